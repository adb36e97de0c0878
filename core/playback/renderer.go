// Package playback turns completed simulation results into a time-indexed
// animation. The renderer is a pure observer of job state: it never calls
// the engine and never mutates the job, it only derives a per-frame
// transform and reports its position back upward.
package playback

import (
	"sync"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// DefaultTotalFrames is the logical timeline length.
const DefaultTotalFrames = 240

// ModelState tracks the asynchronous 3D model load, decoupled from
// playback itself.
type ModelState string

const (
	ModelNone    ModelState = "none"
	ModelLoading ModelState = "loading"
	ModelReady   ModelState = "ready"
	ModelError   ModelState = "error"
)

// Readback is the position report other UI synchronizes with
type Readback struct {
	Frame            int     `json:"frame"`
	TotalFrames      int     `json:"total_frames"`
	ProgressFraction float64 `json:"progress_fraction"`
	Playing          bool    `json:"playing"`
}

// Transform is the per-frame pose applied to the displayed model. Fields
// are zero unless the loaded kind uses them.
type Transform struct {
	OffsetY      float64 `json:"offset_y"`      // vertical drop offset, m
	ScaleY       float64 `json:"scale_y"`       // compression factor, 1 = undeformed
	RotationDeg  float64 `json:"rotation_deg"`  // motion sweep angle
	FillFraction float64 `json:"fill_fraction"` // fluid fill level, 0-1
}

// Renderer maintains a frame counter over the logical timeline and
// computes kind-specific transforms from the loaded results.
type Renderer struct {
	mu          sync.Mutex
	totalFrames int
	frame       int
	playing     bool

	jobID      string
	kind       models.SimulationKind
	parameters map[string]interface{}
	results    *models.SimulationResults

	modelState ModelState
	modelPath  string
	modelErr   string
}

// NewRenderer creates a renderer with the given timeline length; a
// non-positive value means DefaultTotalFrames.
func NewRenderer(totalFrames int) *Renderer {
	if totalFrames <= 0 {
		totalFrames = DefaultTotalFrames
	}
	return &Renderer{totalFrames: totalFrames, modelState: ModelNone}
}

// LoadResults points the renderer at a completed job. The timeline resets
// and playback stays paused until Play.
func (r *Renderer) LoadResults(job *models.SimulationJob) {
	if job == nil || job.Results == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if job.ID == r.jobID {
		return
	}
	r.jobID = job.ID
	r.kind = job.Kind
	r.parameters = job.Parameters
	r.results = job.Results
	r.frame = 0
	r.playing = false
}

// ClearResults detaches the renderer from its job and resets the timeline.
func (r *Renderer) ClearResults() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobID = ""
	r.kind = ""
	r.parameters = nil
	r.results = nil
	r.frame = 0
	r.playing = false
}

// JobID returns the id of the job whose results are loaded, or "".
func (r *Renderer) JobID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobID
}

// Play starts advancing frames. It is a no-op with no results loaded.
func (r *Renderer) Play() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		return
	}
	if r.frame >= r.totalFrames {
		r.frame = 0
	}
	r.playing = true
}

// Pause stops frame advancement without losing the position.
func (r *Renderer) Pause() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.playing = false
}

// Reset rewinds to frame zero and pauses.
func (r *Renderer) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = 0
	r.playing = false
}

// Advance moves one frame forward when playing. At the end of the timeline
// playback pauses on the final frame. Returns true if the frame changed.
func (r *Renderer) Advance() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.playing || r.results == nil {
		return false
	}
	if r.frame >= r.totalFrames {
		r.playing = false
		return false
	}
	r.frame++
	if r.frame >= r.totalFrames {
		r.playing = false
	}
	return true
}

// Readback reports the current timeline position.
func (r *Renderer) Readback() Readback {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Readback{
		Frame:            r.frame,
		TotalFrames:      r.totalFrames,
		ProgressFraction: float64(r.frame) / float64(r.totalFrames),
		Playing:          r.playing,
	}
}

// Transform computes the pose for the current frame.
func (r *Renderer) Transform() Transform {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := float64(r.frame) / float64(r.totalFrames)
	return transformAt(r.kind, r.parameters, r.results, t)
}

// setModelLoading, setModelReady, and setModelError are driven by the
// model loader; load failures are a renderer-local error state, distinct
// from simulation failures.
func (r *Renderer) setModelLoading() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelState = ModelLoading
	r.modelErr = ""
}

func (r *Renderer) setModelReady(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelState = ModelReady
	r.modelPath = path
	r.modelErr = ""
}

func (r *Renderer) setModelError(msg string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modelState = ModelError
	r.modelErr = msg
}

// Model reports the model-load state, the local file path when ready, and
// the load error when failed.
func (r *Renderer) Model() (ModelState, string, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modelState, r.modelPath, r.modelErr
}
