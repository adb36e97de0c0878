package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dronreef2/3dPot2-sub000/core/playback"
)

// PlaybackHandler handles playback control HTTP requests
type PlaybackHandler struct {
	renderer *playback.Renderer
	loader   *playback.ModelLoader
}

// NewPlaybackHandler creates a new playback handler
func NewPlaybackHandler(renderer *playback.Renderer, loader *playback.ModelLoader) *PlaybackHandler {
	return &PlaybackHandler{renderer: renderer, loader: loader}
}

// PlaybackState is the full playback readback returned to the UI
type PlaybackState struct {
	Readback   playback.Readback   `json:"readback"`
	Transform  playback.Transform  `json:"transform"`
	JobID      string              `json:"job_id,omitempty"`
	ModelState playback.ModelState `json:"model_state"`
	ModelError string              `json:"model_error,omitempty"`
}

// Get handles GET /v1/playback
func (h *PlaybackHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, _, errMsg := h.renderer.Model()
	writeJSON(w, http.StatusOK, PlaybackState{
		Readback:   h.renderer.Readback(),
		Transform:  h.renderer.Transform(),
		JobID:      h.renderer.JobID(),
		ModelState: state,
		ModelError: errMsg,
	})
}

// Play handles POST /v1/playback/play
func (h *PlaybackHandler) Play(w http.ResponseWriter, r *http.Request) {
	h.renderer.Play()
	writeJSON(w, http.StatusOK, h.renderer.Readback())
}

// Pause handles POST /v1/playback/pause
func (h *PlaybackHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.renderer.Pause()
	writeJSON(w, http.StatusOK, h.renderer.Readback())
}

// Reset handles POST /v1/playback/reset
func (h *PlaybackHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.renderer.Reset()
	writeJSON(w, http.StatusOK, h.renderer.Readback())
}

// LoadModelRequest points playback at a model content URL
type LoadModelRequest struct {
	URL string `json:"url"`
}

// LoadModel handles POST /v1/playback/model
func (h *PlaybackHandler) LoadModel(w http.ResponseWriter, r *http.Request) {
	var req LoadModelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.loader.Load(h.renderer, req.URL)
	w.WriteHeader(http.StatusAccepted)
}
