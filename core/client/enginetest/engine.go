// Package enginetest provides an in-process physics engine fake. It serves
// the same REST surface and push channel as the real engine, with a
// scriptable progress timeline, so client, monitor, and store code can be
// exercised end to end without a network.
package enginetest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// Engine is a fake simulation engine backed by httptest.Server
type Engine struct {
	// ProgressSteps is the scripted progress timeline applied to every
	// created job. Defaults to 0, 25, 50, 75, 100.
	ProgressSteps []float64
	// StepInterval is the delay between scripted steps.
	StepInterval time.Duration
	// FailAtStep, when >= 0, fails the job after that many progress steps
	// with FailMessage.
	FailAtStep  int
	FailMessage string
	// RejectWebSocket makes the push channel endpoint return 503, forcing
	// clients onto the polling fallback.
	RejectWebSocket bool
	// DropWebSocketAfter closes each push connection after that many
	// events when > 0, simulating a flaky channel.
	DropWebSocketAfter int
	// AuthToken, when set, causes 401 on any request without the matching
	// bearer token.
	AuthToken string
	// Templates returned by the templates endpoint.
	Templates []models.Template

	mu       sync.Mutex
	jobs     map[string]*models.SimulationJob
	subs     map[string][]chan models.MonitorEvent
	history  []models.JobSummary
	server   *httptest.Server
	upgrader websocket.Upgrader
}

// New starts a fake engine.
func New() *Engine {
	e := &Engine{
		ProgressSteps: []float64{0, 25, 50, 75, 100},
		StepInterval:  10 * time.Millisecond,
		FailAtStep:    -1,
		jobs:          make(map[string]*models.SimulationJob),
		subs:          make(map[string][]chan models.MonitorEvent),
	}
	r := mux.NewRouter()
	r.HandleFunc("/simulations/create", e.handleCreate).Methods("POST")
	r.HandleFunc("/simulations/templates", e.handleTemplates).Methods("GET")
	r.HandleFunc("/simulations/history", e.handleHistory).Methods("GET")
	r.HandleFunc("/simulations/compare", e.handleCompare).Methods("POST")
	r.HandleFunc("/simulations/{id}", e.handleGet).Methods("GET")
	r.HandleFunc("/simulations/{id}", e.handleDelete).Methods("DELETE")
	r.HandleFunc("/simulations/{id}/status", e.handleStatus).Methods("GET")
	r.HandleFunc("/simulations/{id}/results", e.handleResults).Methods("GET")
	r.HandleFunc("/simulations/{id}/validate", e.handleValidate).Methods("POST")
	r.HandleFunc("/simulations/{id}/events", e.handleEvents).Methods("GET")
	e.server = httptest.NewServer(e.authMiddleware(r))
	return e
}

// URL returns the engine's base URL.
func (e *Engine) URL() string { return e.server.URL }

// Close shuts the fake down.
func (e *Engine) Close() { e.server.Close() }

// Job returns a copy of the stored job, or nil.
func (e *Engine) Job(id string) *models.SimulationJob {
	e.mu.Lock()
	defer e.mu.Unlock()
	job, ok := e.jobs[id]
	if !ok {
		return nil
	}
	copied := *job
	return &copied
}

func (e *Engine) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e.AuthToken != "" {
			got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if got != e.AuthToken {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (e *Engine) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req models.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	if !req.Kind.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown kind"})
		return
	}

	job := &models.SimulationJob{
		ID:         uuid.New().String(),
		ModelID:    req.ModelID,
		Name:       req.Name,
		Kind:       req.Kind,
		Status:     models.StatusPending,
		Parameters: req.Parameters,
		CreatedAt:  time.Now(),
	}
	e.mu.Lock()
	e.jobs[job.ID] = job
	e.mu.Unlock()

	go e.runScript(job.ID)
	writeJSON(w, http.StatusCreated, job)
}

// runScript advances the job through the scripted timeline, broadcasting
// each step to push-channel subscribers.
func (e *Engine) runScript(id string) {
	for i, p := range e.ProgressSteps {
		time.Sleep(e.StepInterval)
		if e.FailAtStep >= 0 && i >= e.FailAtStep {
			e.finish(id, models.StatusFailed, e.FailMessage)
			return
		}
		e.mu.Lock()
		job, ok := e.jobs[id]
		if !ok || job.Status.Terminal() {
			e.mu.Unlock()
			return
		}
		job.Status = models.StatusRunning
		job.Progress = p
		e.mu.Unlock()
		e.broadcast(id, models.MonitorEvent{Type: models.EventProgress, JobID: id, Progress: p})
	}
	e.finish(id, models.StatusCompleted, "")
}

func (e *Engine) finish(id string, status models.JobStatus, errMsg string) {
	e.mu.Lock()
	job, ok := e.jobs[id]
	if !ok || job.Status.Terminal() {
		e.mu.Unlock()
		return
	}
	now := time.Now()
	job.Status = status
	job.CompletedAt = &now
	if status == models.StatusCompleted {
		job.Progress = 100
		job.Results = cannedResults(job.Kind)
	}
	if status == models.StatusFailed {
		job.ErrorMessage = errMsg
	}
	e.history = append(e.history, models.JobSummary{
		ID: job.ID, Kind: job.Kind, Status: status,
		CreatedAt: job.CreatedAt, CompletedAt: job.CompletedAt,
	})
	e.mu.Unlock()

	ev := models.MonitorEvent{JobID: id}
	switch status {
	case models.StatusCompleted:
		ev.Type = models.EventCompleted
	case models.StatusFailed:
		ev.Type = models.EventFailed
		ev.ErrorMessage = errMsg
	case models.StatusCancelled:
		ev.Type = models.EventCancelled
	}
	e.broadcast(id, ev)
}

func (e *Engine) broadcast(id string, ev models.MonitorEvent) {
	e.mu.Lock()
	subs := append([]chan models.MonitorEvent(nil), e.subs[id]...)
	e.mu.Unlock()
	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (e *Engine) handleGet(w http.ResponseWriter, r *http.Request) {
	job := e.Job(mux.Vars(r)["id"])
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (e *Engine) handleStatus(w http.ResponseWriter, r *http.Request) {
	job := e.Job(mux.Vars(r)["id"])
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":            job.ID,
		"status":        job.Status,
		"progress":      job.Progress,
		"error_message": job.ErrorMessage,
	})
}

func (e *Engine) handleResults(w http.ResponseWriter, r *http.Request) {
	job := e.Job(mux.Vars(r)["id"])
	if job == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if job.Results == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "results not ready"})
		return
	}
	writeJSON(w, http.StatusOK, job.Results)
}

func (e *Engine) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e.mu.Lock()
	job, ok := e.jobs[id]
	terminal := ok && job.Status.Terminal()
	e.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	if !terminal {
		e.finish(id, models.StatusCancelled, "")
	}
	e.mu.Lock()
	delete(e.jobs, id)
	e.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (e *Engine) handleTemplates(w http.ResponseWriter, r *http.Request) {
	templates := e.Templates
	if templates == nil {
		templates = []models.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

func (e *Engine) handleHistory(w http.ResponseWriter, r *http.Request) {
	status := models.JobStatus(r.URL.Query().Get("status"))
	kind := models.SimulationKind(r.URL.Query().Get("kind"))
	e.mu.Lock()
	out := make([]models.JobSummary, 0, len(e.history))
	for _, s := range e.history {
		if status != "" && s.Status != status {
			continue
		}
		if kind != "" && s.Kind != kind {
			continue
		}
		out = append(out, s)
	}
	e.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (e *Engine) handleValidate(w http.ResponseWriter, r *http.Request) {
	if e.Job(mux.Vars(r)["id"]) == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"valid": true})
}

func (e *Engine) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid body"})
		return
	}
	metrics := make(map[string]map[string]float64, len(req.IDs))
	for _, id := range req.IDs {
		metrics[id] = map[string]float64{"score": 1}
	}
	writeJSON(w, http.StatusOK, models.Comparison{JobIDs: req.IDs, Metrics: metrics})
}

// handleEvents upgrades to a websocket and replays live events for the job.
func (e *Engine) handleEvents(w http.ResponseWriter, r *http.Request) {
	if e.RejectWebSocket {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "push channel unavailable"})
		return
	}
	id := mux.Vars(r)["id"]
	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	ch := make(chan models.MonitorEvent, 32)
	e.mu.Lock()
	e.subs[id] = append(e.subs[id], ch)
	e.mu.Unlock()

	go func() {
		defer conn.Close()
		sent := 0
		for ev := range ch {
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
			sent++
			if e.DropWebSocketAfter > 0 && sent >= e.DropWebSocketAfter {
				return
			}
			if ev.Type.Terminal() {
				return
			}
		}
	}()
}

func cannedResults(kind models.SimulationKind) *models.SimulationResults {
	switch kind {
	case models.KindDropTest:
		return &models.SimulationResults{Kind: kind, DropTest: &models.DropTestResults{
			MaxImpactForce: 340.5, SurvivalRate: 1, ImpactForces: []float64{310, 320, 340.5},
			DeformationDepth: 0.4, RecommendedHeight: 1.2,
		}}
	case models.KindStressTest:
		return &models.SimulationResults{Kind: kind, StressTest: &models.StressTestResults{
			YieldForce: 800, BreakingForce: 1200, MaxDeformation: 0.18,
			StressCurve: []float64{0.01, 0.05, 0.12, 0.18}, SafetyFactor: 2.4,
		}}
	case models.KindMotion:
		return &models.SimulationResults{Kind: kind, Motion: &models.MotionResults{
			PathLength: 3.2, MaxVelocity: 1.1, MaxAngle: 270,
			AngleTimeline: []float64{0, 90, 180, 270},
		}}
	case models.KindFluid:
		return &models.SimulationResults{Kind: kind, Fluid: &models.FluidResults{
			FillTime: 4.5, MaxPressure: 101500, FillTimeline: []float64{0, 0.3, 0.7, 1},
		}}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
