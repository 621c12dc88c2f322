package httpserver

import (
	"log"
	"net/http"

	"github.com/realsuite/docintel-back/internal/http/handlers"
	"github.com/realsuite/docintel-back/internal/http/middleware"
)

type RouterDependencies struct {
	API            *handlers.API
	Logger         *log.Logger
	AuthToken      string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(deps RouterDependencies) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", deps.API.Health)
	mux.HandleFunc("/v1/jobs", deps.API.SubmitJob)
	mux.HandleFunc("/v1/jobs/", deps.API.Jobs)
	mux.HandleFunc("/v1/versions", deps.API.IngestVersion)
	mux.HandleFunc("/v1/versions/", deps.API.Versions)
	mux.HandleFunc("/v1/documents/", deps.API.DocumentVersions)
	mux.HandleFunc("/v1/rules", deps.API.Rules)
	mux.HandleFunc("/v1/categories", deps.API.Categories)
	mux.HandleFunc("/v1/categories/", deps.API.CategoryRules)

	handler := http.Handler(mux)
	handler = middleware.Auth(deps.AuthToken)(handler)
	handler = middleware.RateLimit(deps.RateLimitRPS, deps.RateLimitBurst)(handler)
	handler = middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.CORSOrigins,
	})(handler)
	handler = middleware.Trace(deps.Logger)(handler)
	handler = middleware.RequestID(handler)

	return handler
}
