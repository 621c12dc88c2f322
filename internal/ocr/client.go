package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrEngineUnavailable = errors.New("ocr engine is not configured")

// Extraction is the text/field payload returned by a single OCR engine.
type Extraction struct {
	Text       string            `json:"text"`
	Fields     map[string]string `json:"fields"`
	Confidence float64           `json:"confidence"`
}

// Engine is one OCR backend. Implementations must honor the context
// deadline.
type Engine interface {
	Name() string
	Extract(ctx context.Context, pageImage []byte) (Extraction, error)
}

type HTTPEngineConfig struct {
	Name       string
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
	HTTPClient *http.Client
}

// HTTPEngine calls an OCR service over HTTP: POST {base}/extract with a
// base64 page image, returning {text, fields, confidence}. Transient
// failures are retried with a short backoff.
type HTTPEngine struct {
	name       string
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	httpClient *http.Client
}

func NewHTTPEngine(config HTTPEngineConfig) *HTTPEngine {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{}
	}
	return &HTTPEngine{
		name:       config.Name,
		baseURL:    strings.TrimSuffix(strings.TrimSpace(config.BaseURL), "/"),
		apiKey:     strings.TrimSpace(config.APIKey),
		timeout:    config.Timeout,
		maxRetries: config.MaxRetries,
		httpClient: config.HTTPClient,
	}
}

func (e *HTTPEngine) Name() string {
	return e.name
}

func (e *HTTPEngine) Available() bool {
	return e.baseURL != ""
}

func (e *HTTPEngine) Extract(ctx context.Context, pageImage []byte) (Extraction, error) {
	if !e.Available() {
		return Extraction{}, ErrEngineUnavailable
	}
	if len(pageImage) == 0 {
		return Extraction{}, errors.New("page image is empty")
	}

	payload, err := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(pageImage),
	})
	if err != nil {
		return Extraction{}, fmt.Errorf("marshal ocr payload: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		extraction, callErr := e.call(ctx, payload)
		if callErr == nil {
			return extraction, nil
		}
		lastErr = callErr

		if !isRetryable(callErr) || attempt == e.maxRetries {
			break
		}
		backoff := time.Duration(250*(attempt+1)) * time.Millisecond
		select {
		case <-ctx.Done():
			return Extraction{}, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return Extraction{}, lastErr
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var retryable *retryableError
	return errors.As(err, &retryable)
}

func (e *HTTPEngine) call(ctx context.Context, payload []byte) (Extraction, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(callCtx, http.MethodPost, e.baseURL+"/extract", bytes.NewReader(payload))
	if err != nil {
		return Extraction{}, fmt.Errorf("build ocr request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		request.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	response, err := e.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Extraction{}, err
		}
		return Extraction{}, &retryableError{err: fmt.Errorf("%s ocr call: %w", e.name, err)}
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, 16<<20))
	if err != nil {
		return Extraction{}, fmt.Errorf("read %s ocr response: %w", e.name, err)
	}

	if response.StatusCode >= 500 || response.StatusCode == http.StatusTooManyRequests {
		return Extraction{}, &retryableError{err: fmt.Errorf("%s ocr status %d", e.name, response.StatusCode)}
	}
	if response.StatusCode != http.StatusOK {
		return Extraction{}, fmt.Errorf("%s ocr status %d: %s", e.name, response.StatusCode, truncate(string(body), 200))
	}

	var decoded Extraction
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Extraction{}, fmt.Errorf("decode %s ocr response: %w", e.name, err)
	}
	if decoded.Fields == nil {
		decoded.Fields = make(map[string]string)
	}
	return decoded, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}
