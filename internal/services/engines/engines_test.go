package engines

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempAudioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "call.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFFfake"), 0644))
	return path
}

func TestWhisperClient_Transcribe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/transcribe", r.URL.Path)
		assert.Equal(t, "large-v3", r.URL.Query().Get("model"))

		_ = json.NewEncoder(w).Encode(whisperResponse{
			Language: "en",
			Duration: 12.5,
			Segments: []TranscriptionSegment{
				{Start: 0, End: 2.5, Text: "hello, this is Anna from Acme"},
			},
		})
	}))
	defer server.Close()

	client := NewWhisperClient(WhisperConfig{BaseURL: server.URL, Model: "large-v3"})
	result, err := client.Transcribe(context.Background(), tempAudioFile(t))
	require.NoError(t, err)

	assert.Equal(t, "en", result.Language)
	assert.Equal(t, "large-v3", result.Model)
	require.Len(t, result.Segments, 1)
	assert.Equal(t, 2.5, result.Segments[0].End)
}

func TestWhisperClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_ = json.NewEncoder(w).Encode(whisperResponse{Language: "en"})
	}))
	defer server.Close()

	client := NewWhisperClient(WhisperConfig{BaseURL: server.URL, Model: "base"})
	_, err := client.Transcribe(context.Background(), tempAudioFile(t))
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestWhisperClient_ClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewWhisperClient(WhisperConfig{BaseURL: server.URL, Model: "base"})
	_, err := client.Transcribe(context.Background(), tempAudioFile(t))
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
}

func TestPyannoteClient_Diarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/diarize", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("num_speakers"))

		_ = json.NewEncoder(w).Encode(pyannoteResponse{
			Turns: []DiarizationTurn{
				{Speaker: "SPEAKER_00", Start: 0, End: 3},
				{Speaker: "SPEAKER_01", Start: 3, End: 6},
			},
		})
	}))
	defer server.Close()

	client := NewPyannoteClient(PyannoteConfig{BaseURL: server.URL})
	result, err := client.Diarize(context.Background(), tempAudioFile(t), 2)
	require.NoError(t, err)

	require.Len(t, result.Turns, 2)
	// num_speakers derived from turns when the server omits it
	assert.Equal(t, 2, result.NumSpeakers)
}

func TestAvgWordConfidence(t *testing.T) {
	noWords := TranscriptionSegment{Text: "hi"}
	assert.Nil(t, AvgWordConfidence(noWords))

	seg := TranscriptionSegment{Words: []Word{
		{Word: "hi", Probability: 0.8},
		{Word: "there", Probability: 0.6},
	}}
	conf := AvgWordConfidence(seg)
	require.NotNil(t, conf)
	assert.InDelta(t, 0.7, *conf, 0.0001)
}
