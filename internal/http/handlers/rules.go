package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/realsuite/docintel-back/internal/domain"
	"github.com/realsuite/docintel-back/internal/service"
)

type upsertRuleRequest struct {
	RuleID    string            `json:"rule_id,omitempty"`
	Category  string            `json:"category"`
	FieldName string            `json:"field_name,omitempty"`
	Kind      string            `json:"predicate_kind"`
	Params    domain.RuleParams `json:"params"`
	Severity  string            `json:"severity"`
	Active    *bool             `json:"active,omitempty"`
}

// Rules handles POST /v1/rules (upsert) and GET /v1/rules?category=...
func (api *API) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		api.upsertRule(w, r)
	case http.MethodGet:
		category := domain.Category(strings.TrimSpace(r.URL.Query().Get("category")))
		api.listRules(w, r, category)
	default:
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	}
}

func (api *API) upsertRule(w http.ResponseWriter, r *http.Request) {
	var request upsertRuleRequest
	if err := decodeJSON(r, &request); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid JSON payload")
		return
	}

	active := true
	if request.Active != nil {
		active = *request.Active
	}

	rule, err := api.rulesService.UpsertRule(r.Context(), service.UpsertRuleInput{
		RuleID:    request.RuleID,
		Category:  domain.Category(request.Category),
		FieldName: request.FieldName,
		Kind:      domain.PredicateKind(request.Kind),
		Params:    request.Params,
		Severity:  domain.Severity(request.Severity),
		Active:    active,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRule) {
			writeError(w, r, http.StatusUnprocessableEntity, "validation_failed", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to store rule")
		return
	}

	writeJSON(w, http.StatusCreated, rule)
}

func (api *API) listRules(w http.ResponseWriter, r *http.Request, category domain.Category) {
	rules, err := api.rulesService.ListActiveRules(r.Context(), category)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRule) {
			writeError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal_error", "failed to list rules")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "rules": rules})
}

// Categories handles GET /v1/categories.
func (api *API) Categories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	items := make([]map[string]any, 0)
	for _, category := range domain.Categories() {
		item := map[string]any{"category": category}
		if profile, ok := api.rulesService.CategoryProfile(category); ok {
			item["critical_terms"] = profile.CriticalTerms
			item["required_fields"] = profile.RequiredFields
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": items})
}

// CategoryRules handles GET /v1/categories/{category}/rules.
func (api *API) CategoryRules(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/v1/categories/")
	segments := strings.Split(strings.Trim(rest, "/"), "/")
	if len(segments) != 2 || segments[1] != "rules" || strings.TrimSpace(segments[0]) == "" {
		writeError(w, r, http.StatusNotFound, "not_found", "unknown category resource")
		return
	}

	api.listRules(w, r, domain.Category(segments[0]))
}
