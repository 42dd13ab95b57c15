package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// WhisperClient talks to a faster-whisper sidecar server over HTTP.
type WhisperClient struct {
	baseURL    string
	model      string
	language   string
	httpClient *http.Client
}

// WhisperConfig configures the transcription client.
type WhisperConfig struct {
	BaseURL  string
	Model    string
	Language string
	Timeout  time.Duration
}

// NewWhisperClient creates a transcription engine backed by an HTTP server.
func NewWhisperClient(cfg WhisperConfig) *WhisperClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &WhisperClient{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		language:   cfg.Language,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type whisperResponse struct {
	Language string                 `json:"language"`
	Duration float64                `json:"duration"`
	Segments []TranscriptionSegment `json:"segments"`
}

// Transcribe uploads the file and returns timestamped segments. Transient
// network failures are retried with exponential backoff inside this single
// engine call; once the call returns an error the job is not retried.
func (c *WhisperClient) Transcribe(ctx context.Context, audioPath string) (*TranscriptionResult, error) {
	endpoint, err := url.JoinPath(c.baseURL, "/transcribe")
	if err != nil {
		return nil, fmt.Errorf("building transcribe URL: %w", err)
	}

	q := url.Values{}
	q.Set("model", c.model)
	q.Set("word_timestamps", "true")
	if c.language != "" {
		q.Set("language", c.language)
	}
	endpoint = endpoint + "?" + q.Encode()

	var result *TranscriptionResult
	operation := func() error {
		res, opErr := c.postAudio(ctx, endpoint, audioPath)
		if opErr != nil {
			return opErr
		}
		result = res
		return nil
	}

	policy := backoff.WithContext(newRetryPolicy(), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, fmt.Errorf("whisper transcription of %s: %w", filepath.Base(audioPath), err)
	}

	result.Model = c.model
	return result, nil
}

func (c *WhisperClient) postAudio(ctx context.Context, endpoint, audioPath string) (*TranscriptionResult, error) {
	body, contentType, err := multipartFile(audioPath)
	if err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err // connection errors are retryable
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("whisper server returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, backoff.Permanent(fmt.Errorf("whisper server returned %d", resp.StatusCode))
	}

	var payload whisperResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("decoding whisper response: %w", err))
	}

	return &TranscriptionResult{
		Segments: payload.Segments,
		Language: payload.Language,
		Duration: payload.Duration,
	}, nil
}

// multipartFile buffers the audio file into a multipart body.
func multipartFile(audioPath string) (io.Reader, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("opening audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copying audio file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

func newRetryPolicy() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = 30 * time.Second
	return policy
}
