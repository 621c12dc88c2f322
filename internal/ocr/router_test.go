package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakeEngine struct {
	name       string
	extraction Extraction
	err        error
	calls      int
}

func (f *fakeEngine) Name() string { return f.name }

func (f *fakeEngine) Extract(ctx context.Context, pageImage []byte) (Extraction, error) {
	f.calls++
	if err := ctx.Err(); err != nil {
		return Extraction{}, err
	}
	if f.err != nil {
		return Extraction{}, f.err
	}
	return f.extraction, nil
}

var pageImage = []byte("fake-page-bytes")

func TestRouterHighConfidenceLocalStaysLocal(t *testing.T) {
	local := &fakeEngine{name: "local", extraction: Extraction{Text: "local text", Confidence: 0.92}}
	cloud := &fakeEngine{name: "cloud", extraction: Extraction{Text: "cloud text", Confidence: 0.99}}
	router := NewRouter(local, cloud, RouterConfig{}, nil)

	result, err := router.Extract(context.Background(), pageImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EngineUsed != "local" || result.Text != "local text" {
		t.Fatalf("expected local result, got engine=%s text=%q", result.EngineUsed, result.Text)
	}
	if result.Degraded {
		t.Fatal("confident local result should not be degraded")
	}
	if cloud.calls != 0 {
		t.Fatalf("cloud should not be called, got %d calls", cloud.calls)
	}
}

func TestRouterLowConfidenceEscalatesToCloud(t *testing.T) {
	local := &fakeEngine{name: "local", extraction: Extraction{Text: "garbled", Confidence: 0.42}}
	cloud := &fakeEngine{name: "cloud", extraction: Extraction{Text: "clean text", Confidence: 0.97}}
	router := NewRouter(local, cloud, RouterConfig{}, nil)

	result, err := router.Extract(context.Background(), pageImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.EngineUsed != "cloud" || result.Text != "clean text" {
		t.Fatalf("expected cloud result, got engine=%s text=%q", result.EngineUsed, result.Text)
	}
	if result.Degraded {
		t.Fatal("successful escalation should not be degraded")
	}
}

func TestRouterCloudLowConfidenceStillReturned(t *testing.T) {
	local := &fakeEngine{name: "local", extraction: Extraction{Text: "garbled", Confidence: 0.42}}
	cloud := &fakeEngine{name: "cloud", extraction: Extraction{Text: "also rough", Confidence: 0.60}}
	router := NewRouter(local, cloud, RouterConfig{}, nil)

	result, err := router.Extract(context.Background(), pageImage)
	if err != nil {
		t.Fatalf("low confidence is not an error: %v", err)
	}
	if result.EngineUsed != "cloud" {
		t.Fatalf("expected cloud result, got %s", result.EngineUsed)
	}
}

func TestRouterCloudFailureDegradesToLocal(t *testing.T) {
	local := &fakeEngine{name: "local", extraction: Extraction{Text: "garbled", Confidence: 0.42}}
	cloud := &fakeEngine{name: "cloud", err: errors.New("service unavailable")}
	router := NewRouter(local, cloud, RouterConfig{}, nil)

	result, err := router.Extract(context.Background(), pageImage)
	if err != nil {
		t.Fatalf("usable local result should mask cloud failure: %v", err)
	}
	if result.EngineUsed != "local" || !result.Degraded {
		t.Fatalf("expected degraded local result, got engine=%s degraded=%v", result.EngineUsed, result.Degraded)
	}
	if result.Text != "garbled" {
		t.Fatalf("degraded result should carry local extraction, got %q", result.Text)
	}
}

func TestRouterAllEnginesFailed(t *testing.T) {
	local := &fakeEngine{name: "local", err: errors.New("binary missing")}
	cloud := &fakeEngine{name: "cloud", err: errors.New("auth rejected")}
	router := NewRouter(local, cloud, RouterConfig{}, nil)

	_, err := router.Extract(context.Background(), pageImage)
	if !errors.Is(err, ErrAllEnginesFailed) {
		t.Fatalf("expected ErrAllEnginesFailed, got %v", err)
	}
}

func TestRouterHonorsCancelledContext(t *testing.T) {
	local := &fakeEngine{name: "local", extraction: Extraction{Text: "garbled", Confidence: 0.42}}
	cloud := &fakeEngine{name: "cloud", extraction: Extraction{Text: "clean", Confidence: 0.99}}
	router := NewRouter(local, cloud, RouterConfig{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := router.Extract(ctx, pageImage)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if cloud.calls != 0 {
		t.Fatal("cancelled context should stop before cloud")
	}
}

func TestHTTPEngineUnavailableWithoutBaseURL(t *testing.T) {
	engine := NewHTTPEngine(HTTPEngineConfig{Name: "local"})
	if engine.Available() {
		t.Fatal("engine without a base URL should be unavailable")
	}
	_, err := engine.Extract(context.Background(), pageImage)
	if !errors.Is(err, ErrEngineUnavailable) {
		t.Fatalf("expected ErrEngineUnavailable, got %v", err)
	}
}

func TestHTTPEngineExtract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/extract" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing auth header")
		}
		json.NewEncoder(w).Encode(Extraction{Text: "hello", Confidence: 0.9})
	}))
	defer server.Close()

	engine := NewHTTPEngine(HTTPEngineConfig{Name: "cloud", BaseURL: server.URL, APIKey: "secret"})
	extraction, err := engine.Extract(context.Background(), pageImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extraction.Text != "hello" || extraction.Confidence != 0.9 {
		t.Fatalf("unexpected extraction: %+v", extraction)
	}
	if extraction.Fields == nil {
		t.Fatal("fields should default to an empty map")
	}
}

func TestHTTPEngineRetriesServerErrors(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(Extraction{Text: "recovered", Confidence: 0.8})
	}))
	defer server.Close()

	engine := NewHTTPEngine(HTTPEngineConfig{Name: "cloud", BaseURL: server.URL, MaxRetries: 2})
	extraction, err := engine.Extract(context.Background(), pageImage)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if extraction.Text != "recovered" || hits != 2 {
		t.Fatalf("expected recovery on second attempt, got text=%q hits=%d", extraction.Text, hits)
	}
}

func TestHTTPEngineDoesNotRetryClientErrors(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	engine := NewHTTPEngine(HTTPEngineConfig{Name: "cloud", BaseURL: server.URL, MaxRetries: 3})
	_, err := engine.Extract(context.Background(), pageImage)
	if err == nil {
		t.Fatal("expected error for status 400")
	}
	if hits != 1 {
		t.Fatalf("client errors should not be retried, got %d hits", hits)
	}
}
