package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/models"
	"github.com/dronreef2/3dPot2-sub000/core/spec"
	"github.com/dronreef2/3dPot2-sub000/core/store"
)

// SimulationHandler handles simulation lifecycle HTTP requests
type SimulationHandler struct {
	store *store.Store
}

// NewSimulationHandler creates a new simulation handler
func NewSimulationHandler(st *store.Store) *SimulationHandler {
	return &SimulationHandler{store: st}
}

// SubmitRequest represents the request to submit a simulation. Either the
// inline fields or a YAML spec may be supplied.
type SubmitRequest struct {
	ModelID    string                 `json:"model_id,omitempty"`
	Name       string                 `json:"name,omitempty"`
	Kind       models.SimulationKind  `json:"kind,omitempty"`
	Parameters map[string]interface{} `json:"parameters,omitempty"`
	SpecYAML   string                 `json:"spec_yaml,omitempty"`
}

// Submit handles POST /v1/simulations
func (h *SimulationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	createReq := &models.CreateRequest{
		ModelID:    req.ModelID,
		Name:       req.Name,
		Kind:       req.Kind,
		Parameters: req.Parameters,
	}
	if req.SpecYAML != "" {
		parsed, err := spec.ParseSimulationSpec(req.SpecYAML)
		if err != nil {
			http.Error(w, "Invalid simulation spec: "+err.Error(), http.StatusBadRequest)
			return
		}
		createReq = parsed
	}

	job, err := h.store.Submit(r.Context(), createReq)
	if err != nil {
		if ve, ok := store.AsValidationError(err); ok {
			writeJSON(w, http.StatusUnprocessableEntity, ve.Outcome)
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, job)
}

// Current handles GET /v1/simulations/current
func (h *SimulationHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.Current())
}

// Delete handles DELETE /v1/simulations/current
func (h *SimulationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear handles POST /v1/simulations/current/clear
func (h *SimulationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidateRequest represents a local validation request
type ValidateRequest struct {
	Kind       models.SimulationKind  `json:"kind"`
	Parameters map[string]interface{} `json:"parameters"`
}

// Validate handles POST /v1/simulations/validate
func (h *SimulationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, h.store.Validate(req.Kind, req.Parameters))
}

// History handles GET /v1/simulations/history
func (h *SimulationHandler) History(w http.ResponseWriter, r *http.Request) {
	filters := models.HistoryFilters{
		Status: models.JobStatus(r.URL.Query().Get("status")),
		Kind:   models.SimulationKind(r.URL.Query().Get("kind")),
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		filters.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		filters.Offset, _ = strconv.Atoi(v)
	}

	summaries, err := h.store.History(r.Context(), filters)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if summaries == nil {
		summaries = []models.JobSummary{}
	}
	writeJSON(w, http.StatusOK, summaries)
}

// Templates handles GET /v1/simulations/templates
func (h *SimulationHandler) Templates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.store.Templates(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if templates == nil {
		templates = []models.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

// CompareRequest represents the request to compare completed jobs
type CompareRequest struct {
	IDs []string `json:"ids"`
}

// Compare handles POST /v1/simulations/compare
func (h *SimulationHandler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.IDs) < 2 {
		http.Error(w, "At least two job ids are required", http.StatusBadRequest)
		return
	}
	cmp, err := h.store.Compare(r.Context(), req.IDs)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// writeStoreError maps store and engine errors onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case err == store.ErrJobActive:
		http.Error(w, err.Error(), http.StatusConflict)
	case err == store.ErrNoActiveJob:
		http.Error(w, err.Error(), http.StatusNotFound)
	case client.IsAuthError(err):
		http.Error(w, err.Error(), http.StatusUnauthorized)
	case err == context.DeadlineExceeded:
		http.Error(w, err.Error(), http.StatusGatewayTimeout)
	default:
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
