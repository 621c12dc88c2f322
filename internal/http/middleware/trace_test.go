package middleware

import (
	"bytes"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestTraceLogsStatusAndDuration(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	handler := Trace(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	request := httptest.NewRequest(http.MethodGet, "/v1/jobs/missing", nil)
	handler.ServeHTTP(httptest.NewRecorder(), request)

	line := buf.String()
	for _, fragment := range []string{"method=GET", "path=/v1/jobs/missing", "status=404", "duration_ms="} {
		if !strings.Contains(line, fragment) {
			t.Fatalf("trace line %q missing %q", line, fragment)
		}
	}
}

func TestTraceDefaultsToOKWhenHandlerNeverWritesHeader(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	handler := Trace(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/categories", nil))
	if !strings.Contains(buf.String(), "status=200") {
		t.Fatalf("implicit 200 should be traced, got %q", buf.String())
	}
}

func TestTraceSkipsHealthCheck(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(&buf, "", 0)

	handler := Trace(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if buf.Len() != 0 {
		t.Fatalf("health checks should not be traced, got %q", buf.String())
	}
}
