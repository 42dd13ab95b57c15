package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// PyannoteClient talks to a pyannote diarization sidecar server over HTTP.
type PyannoteClient struct {
	baseURL    string
	httpClient *http.Client
}

// PyannoteConfig configures the diarization client.
type PyannoteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewPyannoteClient creates a diarization engine backed by an HTTP server.
func NewPyannoteClient(cfg PyannoteConfig) *PyannoteClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &PyannoteClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type pyannoteResponse struct {
	NumSpeakers int               `json:"num_speakers"`
	Turns       []DiarizationTurn `json:"turns"`
}

// Diarize uploads mono audio and returns its speaker timeline.
func (c *PyannoteClient) Diarize(ctx context.Context, audioPath string, numSpeakers int) (*DiarizationResult, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/diarize")
	if err != nil {
		return nil, fmt.Errorf("building diarize URL: %w", err)
	}

	q := url.Values{}
	if numSpeakers > 0 {
		q.Set("num_speakers", strconv.Itoa(numSpeakers))
	}
	endpoint = endpoint + "?" + q.Encode()

	var result *DiarizationResult
	operation := func() error {
		body, contentType, opErr := multipartFile(audioPath)
		if opErr != nil {
			return backoff.Permanent(opErr)
		}

		req, opErr := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if opErr != nil {
			return backoff.Permanent(opErr)
		}
		req.Header.Set("Content-Type", contentType)

		resp, opErr := c.httpClient.Do(req)
		if opErr != nil {
			return opErr
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("diarizer server returned %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("diarizer server returned %d", resp.StatusCode))
		}

		var payload pyannoteResponse
		if opErr := json.NewDecoder(resp.Body).Decode(&payload); opErr != nil {
			return backoff.Permanent(fmt.Errorf("decoding diarizer response: %w", opErr))
		}

		result = &DiarizationResult{
			Turns:       payload.Turns,
			NumSpeakers: payload.NumSpeakers,
		}
		if result.NumSpeakers == 0 {
			result.NumSpeakers = countSpeakers(payload.Turns)
		}
		return nil
	}

	policy := backoff.WithContext(newRetryPolicy(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("diarization of %s: %w", filepath.Base(audioPath), err)
	}

	return result, nil
}

func countSpeakers(turns []DiarizationTurn) int {
	seen := make(map[string]struct{})
	for _, turn := range turns {
		seen[turn.Speaker] = struct{}{}
	}
	return len(seen)
}
