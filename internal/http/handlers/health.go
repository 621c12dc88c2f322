package handlers

import (
	"net/http"
	"time"
)

var processStart = time.Now().UTC()

// Health is the liveness endpoint. It reports identity and uptime only; it
// deliberately does not touch the database or queue, so a degraded
// backend cannot make the orchestrator restart an otherwise working
// process.
func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"service":        "docintel-api",
		"uptime_seconds": int(time.Since(processStart).Seconds()),
	})
}
