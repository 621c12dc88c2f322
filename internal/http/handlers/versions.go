package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/repository"
	"github.com/realsuite/docintel-back/internal/service"
)

type ingestVersionRequest struct {
	DocumentID           string            `json:"document_id"`
	Category             string            `json:"category"`
	RawText              string            `json:"raw_text,omitempty"`
	StructuredFields     map[string]string `json:"structured_fields,omitempty"`
	ExtractionConfidence float64           `json:"extraction_confidence,omitempty"`
	EngineUsed           string            `json:"engine_used,omitempty"`
	Degraded             bool              `json:"degraded,omitempty"`
	PageImageRef         string            `json:"page_image_ref,omitempty"`
}

type linkVersionsRequest struct {
	ToVersionID string `json:"to_version_id"`
	Type        string `json:"type"`
}

// IngestVersion handles POST /v1/versions.
func (api *API) IngestVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	var request ingestVersionRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	version, err := api.versionsService.IngestVersion(r.Context(), service.IngestVersionInput{
		DocumentID:           request.DocumentID,
		Category:             domain.Category(request.Category),
		RawText:              request.RawText,
		StructuredFields:     request.StructuredFields,
		ExtractionConfidence: request.ExtractionConfidence,
		EngineUsed:           request.EngineUsed,
		Degraded:             request.Degraded,
		PageImageRef:         request.PageImageRef,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidVersion) {
			writeError(w, r, http.StatusUnprocessableEntity, "validation_failed", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to store document version")
		return
	}

	writeJSON(w, http.StatusCreated, versionResponse(version))
}

// Versions routes GET /v1/versions/{id} and the relationship sub-resource.
func (api *API) Versions(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/versions/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")

	versionID := strings.TrimSpace(segments[0])
	if versionID == "" {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "version_id is required")
		return
	}

	switch {
	case len(segments) == 1:
		api.versionDetail(w, r, versionID)
	case len(segments) == 2 && segments[1] == "relationships":
		api.versionRelationships(w, r, versionID)
	default:
		writeError(w, r, http.StatusNotFound, "not_found", "unknown version resource")
	}
}

func (api *API) versionDetail(w http.ResponseWriter, r *http.Request, versionID string) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	version, err := api.versionsService.GetVersion(r.Context(), versionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not_found", "document version not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load document version")
		return
	}
	writeJSON(w, http.StatusOK, versionResponse(version))
}

func (api *API) versionRelationships(w http.ResponseWriter, r *http.Request, versionID string) {
	switch r.Method {
	case http.MethodGet:
		relationships, err := api.versionsService.ListRelationships(r.Context(), versionID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, r, http.StatusNotFound, "not_found", "document version not found")
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to load relationships")
			return
		}
		items := make([]map[string]any, 0, len(relationships))
		for _, rel := range relationships {
			items = append(items, map[string]any{
				"id":              rel.ID,
				"from_version_id": rel.FromVersionID,
				"to_version_id":   rel.ToVersionID,
				"type":            rel.Type,
				"created_at":      rel.CreatedAt,
			})
		}
		writeJSON(w, http.StatusOK, map[string]any{"version_id": versionID, "relationships": items})
	case http.MethodPost:
		var request linkVersionsRequest
		if err := decodeJSON(r, &request); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
			return
		}
		rel, err := api.versionsService.LinkVersions(
			r.Context(),
			versionID,
			request.ToVersionID,
			domain.RelationshipType(request.Type),
		)
		if err != nil {
			if errors.Is(err, service.ErrInvalidVersion) {
				writeError(w, r, http.StatusUnprocessableEntity, "validation_failed", err.Error())
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to link versions")
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"id":              rel.ID,
			"from_version_id": rel.FromVersionID,
			"to_version_id":   rel.ToVersionID,
			"type":            rel.Type,
			"created_at":      rel.CreatedAt,
		})
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

// DocumentVersions handles GET /v1/documents/{id}/versions.
func (api *API) DocumentVersions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) != 2 || segments[1] != "versions" || strings.TrimSpace(segments[0]) == "" {
		writeError(w, r, http.StatusNotFound, "not_found", "unknown document resource")
		return
	}

	versions, err := api.versionsService.ListVersions(r.Context(), segments[0])
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list document versions")
		return
	}

	items := make([]map[string]any, 0, len(versions))
	for _, version := range versions {
		items = append(items, versionResponse(version))
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": segments[0], "versions": items})
}

func versionResponse(version *domain.DocumentVersion) map[string]any {
	return map[string]any{
		"id":                    version.ID,
		"document_id":           version.DocumentID,
		"category":              version.Category,
		"sequence_number":       version.SequenceNumber,
		"raw_text":              version.RawText,
		"structured_fields":     version.StructuredFields,
		"extraction_confidence": version.ExtractionConfidence,
		"engine_used":           version.EngineUsed,
		"degraded":              version.Degraded,
		"page_image_ref":        version.PageImageRef,
		"created_at":            version.CreatedAt,
	}
}
