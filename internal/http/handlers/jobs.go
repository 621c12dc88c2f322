package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/repository"
	"github.com/realsuite/docintel-back/internal/service"
)

type submitJobRequest struct {
	Kind               string `json:"kind"`
	DocumentVersionID  string `json:"document_version_id"`
	CompareToVersionID string `json:"compare_to_version_id,omitempty"`
	Priority           int    `json:"priority,omitempty"`
}

// SubmitJob handles POST /v1/jobs. Submission is idempotent under the
// Idempotency-Key header: a repeat with the same payload returns the
// original job.
func (api *API) SubmitJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if len(idempotencyKey) < 16 {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "Idempotency-Key header is required")
		return
	}

	var request submitJobRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	payloadHash := hashPayload(request)
	if entry, exists := api.idempotency.Get(idempotencyKey); exists {
		if entry.PayloadHash != payloadHash {
			writeError(w, r, http.StatusConflict, "idempotency_conflict", "Idempotency-Key already used with different payload")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{
			"job_id":      entry.JobID,
			"status":      domain.JobStatusQueued,
			"status_url":  "/v1/jobs/" + entry.JobID,
			"accepted_at": entry.CreatedAt.Format(time.RFC3339Nano),
		})
		return
	}

	job, err := api.jobsService.SubmitJob(r.Context(), service.SubmitJobInput{
		Kind:               domain.JobKind(request.Kind),
		DocumentVersionID:  request.DocumentVersionID,
		CompareToVersionID: request.CompareToVersionID,
		Priority:           request.Priority,
	})
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, r, http.StatusUnprocessableEntity, "validation_failed", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to submit job")
		return
	}

	api.idempotency.Put(idempotencyKey, payloadHash, job.ID)
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":      job.ID,
		"status":      job.Status,
		"status_url":  "/v1/jobs/" + job.ID,
		"accepted_at": job.CreatedAt.Format(time.RFC3339Nano),
	})
}

// Jobs routes GET /v1/jobs/{id}, GET /v1/jobs/{id}/result,
// GET /v1/jobs/{id}/attempts and POST /v1/jobs/{id}/cancel.
func (api *API) Jobs(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")

	jobID := strings.TrimSpace(segments[0])
	if jobID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "job_id is required")
		return
	}

	switch {
	case len(segments) == 1:
		api.jobStatus(w, r, jobID)
	case len(segments) == 2 && segments[1] == "result":
		api.jobResult(w, r, jobID)
	case len(segments) == 2 && segments[1] == "attempts":
		api.jobAttempts(w, r, jobID)
	case len(segments) == 2 && segments[1] == "cancel":
		api.jobCancel(w, r, jobID)
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "unknown job resource")
	}
}

func (api *API) jobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	job, err := api.jobsService.GetJob(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job")
		return
	}

	writeJSON(w, http.StatusOK, jobResponse(job))
}

func (api *API) jobResult(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	job, err := api.jobsService.GetJobResult(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, service.ErrNoResult):
			writeError(w, r, http.StatusConflict, "no_result", err.Error())
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job result")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_id": job.ID,
		"kind":   job.Kind,
		"result": jsonRawOrFallback(job.Result),
	})
}

func (api *API) jobAttempts(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	attempts, err := api.jobsService.ListAttempts(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load job attempts")
		return
	}

	items := make([]map[string]any, 0, len(attempts))
	for _, attempt := range attempts {
		item := map[string]any{
			"attempt":    attempt.Attempt,
			"worker_id":  attempt.WorkerID,
			"status":     attempt.Status,
			"started_at": attempt.StartedAt,
			"ended_at":   attempt.EndedAt,
		}
		if attempt.ErrorKind != "" {
			item["error_kind"] = attempt.ErrorKind
			item["error"] = attempt.Error
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "attempts": items})
}

func (api *API) jobCancel(w http.ResponseWriter, r *http.Request, jobID string) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	job, err := api.jobsService.CancelJob(r.Context(), jobID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			writeError(w, r, http.StatusNotFound, "not_found", "job not found")
		case errors.Is(err, service.ErrJobNotCancellable):
			writeError(w, r, http.StatusConflict, "not_cancellable", "job already reached a terminal status")
		default:
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to cancel job")
		}
		return
	}

	writeJSON(w, http.StatusOK, jobResponse(job))
}

func jobResponse(job *domain.Job) map[string]any {
	response := map[string]any{
		"job_id":     job.ID,
		"kind":       job.Kind,
		"status":     job.Status,
		"progress":   job.Progress,
		"attempts":   job.Attempts,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Status == domain.JobStatusSucceeded && len(job.Result) > 0 {
		response["result"] = jsonRawOrFallback(job.Result)
	}
	if job.LastErrorKind != "" {
		response["error"] = map[string]any{
			"kind":    job.LastErrorKind,
			"message": job.LastErrorMessage,
		}
	}
	return response
}
