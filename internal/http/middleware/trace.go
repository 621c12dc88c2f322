package middleware

import (
	"log"
	"net/http"
	"time"
)

type traceWriter struct {
	http.ResponseWriter
	status int
}

func (w *traceWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// Trace logs one line per request with the id, method, path, status and
// duration. Health checks are skipped: an orchestrator polling /healthz
// every few seconds would drown the job lifecycle lines operators
// actually read.
func Trace(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if logger == nil || r.URL.Path == "/healthz" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			traced := &traceWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(traced, r)

			logger.Printf(
				"trace request_id=%s method=%s path=%s status=%d duration_ms=%d",
				GetRequestID(r.Context()),
				r.Method,
				r.URL.Path,
				traced.status,
				time.Since(start).Milliseconds(),
			)
		})
	}
}
