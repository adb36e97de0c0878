package handlers

import (
	"net/http"

	"github.com/dronreef2/3dPot2-sub000/core/cache"
	"github.com/dronreef2/3dPot2-sub000/core/store"
)

// StatusHandler aggregates gateway state for dashboards
type StatusHandler struct {
	store *store.Store
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(st *store.Store) *StatusHandler {
	return &StatusHandler{store: st}
}

// StatusResponse is the dashboard snapshot
type StatusResponse struct {
	Snapshot store.Snapshot `json:"snapshot"`
	Cache    cache.Stats    `json:"cache"`
}

// Get handles GET /v1/status
func (h *StatusHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{
		Snapshot: h.store.Current(),
		Cache:    h.store.CacheStats(),
	})
}

// ClearCache handles POST /v1/cache/clear
func (h *StatusHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.store.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}
