package playback

import (
	"context"
	"time"

	"github.com/dronreef2/3dPot2-sub000/core/models"
	"github.com/dronreef2/3dPot2-sub000/core/store"
)

// DefaultTickInterval renders at roughly 30 frames per second.
const DefaultTickInterval = 33 * time.Millisecond

// Scheduler is the single tick source for playback. Each tick it reads the
// store's current snapshot, syncs the renderer to it, and advances one
// frame. State flows one way: store to renderer, never back.
type Scheduler struct {
	store    *store.Store
	renderer *Renderer
	interval time.Duration
}

// NewScheduler wires a renderer to a store. A non-positive interval means
// DefaultTickInterval.
func NewScheduler(st *store.Store, r *Renderer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{store: st, renderer: r, interval: interval}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick performs one scheduling step. Exposed for tests and for embedding
// in an existing loop.
func (s *Scheduler) Tick() {
	snap := s.store.Current()
	s.observe(snap)
	s.renderer.Advance()
}

func (s *Scheduler) observe(snap store.Snapshot) {
	if snap.Job == nil {
		if s.renderer.JobID() != "" {
			s.renderer.ClearResults()
		}
		return
	}
	if snap.Job.Status == models.StatusCompleted && snap.Job.Results != nil {
		s.renderer.LoadResults(snap.Job)
	}
}
