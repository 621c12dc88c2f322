package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// The document API is browser-facing only for the review console, so the
// defaults cover exactly its surface: JSON reads and writes with bearer
// auth and idempotent job submission. X-Request-Id and Location are
// exposed so the console can correlate errors and follow status URLs.
var (
	defaultCORSAllowedMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodOptions,
	}
	defaultCORSAllowedHeaders = []string{
		"Accept",
		"Authorization",
		"Content-Type",
		"Idempotency-Key",
		"X-Request-Id",
	}
	defaultCORSExposedHeaders = []string{
		"X-Request-Id",
		"Location",
	}
)

const defaultCORSMaxAgeSeconds = 600

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
	ExposedHeaders []string
	MaxAgeSeconds  int
}

type corsPolicy struct {
	origins       []string
	anyOrigin     bool
	allowMethods  string
	allowHeaders  string
	exposeHeaders string
	maxAge        string
}

func newCORSPolicy(cfg CORSConfig) corsPolicy {
	policy := corsPolicy{origins: normalizeStringList(cfg.AllowedOrigins)}
	for _, origin := range policy.origins {
		if origin == "*" {
			policy.anyOrigin = true
			break
		}
	}

	policy.allowMethods = joinOrDefault(cfg.AllowedMethods, defaultCORSAllowedMethods)
	policy.allowHeaders = joinOrDefault(cfg.AllowedHeaders, defaultCORSAllowedHeaders)
	policy.exposeHeaders = joinOrDefault(cfg.ExposedHeaders, defaultCORSExposedHeaders)

	maxAge := cfg.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = defaultCORSMaxAgeSeconds
	}
	policy.maxAge = strconv.Itoa(maxAge)
	return policy
}

func (p corsPolicy) allows(origin string) bool {
	return p.anyOrigin || containsFold(p.origins, origin)
}

func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	policy := newCORSPolicy(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || !policy.allows(origin) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			if policy.anyOrigin {
				w.Header().Set("Access-Control-Allow-Origin", "*")
			} else {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			}
			w.Header().Set("Access-Control-Expose-Headers", policy.exposeHeaders)

			if r.Method == http.MethodOptions {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				w.Header().Add("Vary", "Access-Control-Request-Headers")
				w.Header().Set("Access-Control-Allow-Methods", policy.allowMethods)
				w.Header().Set("Access-Control-Allow-Headers", policy.allowHeaders)
				w.Header().Set("Access-Control-Max-Age", policy.maxAge)
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func joinOrDefault(values, fallback []string) string {
	normalized := normalizeStringList(values)
	if len(normalized) == 0 {
		normalized = fallback
	}
	return strings.Join(normalized, ", ")
}

func normalizeStringList(values []string) []string {
	result := make([]string, 0, len(values))
	for _, raw := range values {
		value := strings.TrimSpace(raw)
		if value == "" {
			continue
		}
		result = append(result, value)
	}
	return result
}

func containsFold(values []string, target string) bool {
	for _, value := range values {
		if strings.EqualFold(value, target) {
			return true
		}
	}
	return false
}
