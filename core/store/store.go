// Package store owns the canonical in-memory state of the active
// simulation job. It drives the validator, result cache, engine client,
// and realtime monitor, and exposes a snapshot/subscription surface to
// consumers. All mutation is serialized through one mutex so events apply
// in arrival order.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/dronreef2/3dPot2-sub000/core/cache"
	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/models"
	"github.com/dronreef2/3dPot2-sub000/core/monitor"
	"github.com/dronreef2/3dPot2-sub000/core/validation"
)

// Attacher opens monitor sessions. Satisfied by *monitor.Monitor.
type Attacher interface {
	Attach(jobID string, onEvent monitor.EventFunc) (detach func())
}

// SummaryRepo persists non-sensitive job summaries for warm-start of the
// history view. A nil repo disables persistence.
type SummaryRepo interface {
	SaveSummary(summary models.JobSummary) error
	UpdateStatus(id string, status models.JobStatus, completedAt *time.Time) error
	ListSummaries(filters models.HistoryFilters) ([]models.JobSummary, error)
}

// Snapshot is the state surface consumers observe
type Snapshot struct {
	Job         *models.SimulationJob `json:"job,omitempty"`
	AuthExpired bool                  `json:"auth_expired"`
}

// Listener receives a snapshot after every state change.
type Listener func(Snapshot)

// Store coordinates the lifecycle of the single active job
type Store struct {
	client   *client.JobClient
	cache    *cache.ResultCache
	attacher Attacher
	repo     SummaryRepo
	cacheTTL time.Duration

	mu           sync.Mutex
	current      *models.SimulationJob
	detach       func()
	fetchingFor  string // job id with a results fetch in flight
	authExpired  bool
	listeners    map[int]Listener
	nextListener int
}

// Option tunes the store.
type Option func(*Store)

// WithCacheTTL overrides the TTL applied to cached results.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Store) { s.cacheTTL = ttl }
}

// New creates a store. repo may be nil.
func New(c *client.JobClient, rc *cache.ResultCache, attacher Attacher, repo SummaryRepo, opts ...Option) *Store {
	s := &Store{
		client:    c,
		cache:     rc,
		attacher:  attacher,
		repo:      repo,
		cacheTTL:  cache.DefaultTTL,
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates, consults the cache, and creates the job. Validation
// errors block submission. When the validator only warns, the suggested
// parameters are submitted in place of the originals and the warnings stick
// to the job. A fresh cache hit short-circuits straight to completed with
// no network round-trip and no monitor session.
func (s *Store) Submit(ctx context.Context, req *models.CreateRequest) (*models.SimulationJob, error) {
	outcome := validation.Validate(req.Kind, req.Parameters)
	if !outcome.Valid {
		return nil, &ValidationError{Outcome: outcome}
	}
	params := req.Parameters
	if outcome.SuggestedParameters != nil {
		params = outcome.SuggestedParameters
	}

	s.mu.Lock()
	if s.current != nil && !s.current.Status.Terminal() {
		s.mu.Unlock()
		return nil, ErrJobActive
	}

	key := cache.Key(req.ModelID, req.Kind, params)
	if cached := s.cache.Get(key); cached != nil {
		now := time.Now()
		job := &models.SimulationJob{
			ID:          "cached-" + key[:12],
			ModelID:     req.ModelID,
			Name:        req.Name,
			Kind:        req.Kind,
			Status:      models.StatusCompleted,
			Parameters:  params,
			Progress:    100,
			CreatedAt:   now,
			CompletedAt: &now,
			Results:     cached,
			Warnings:    outcome.Warnings,
		}
		s.current = job
		s.detach = nil
		s.mu.Unlock()
		logrus.Infof("cache hit for %s %s, skipping engine submission", req.Kind, req.ModelID)
		s.notify()
		return s.Current().Job, nil
	}
	// Reserve the active slot while the create is in flight so a second
	// submission cannot slip in.
	placeholder := &models.SimulationJob{
		ModelID:    req.ModelID,
		Name:       req.Name,
		Kind:       req.Kind,
		Status:     models.StatusPending,
		Parameters: params,
		CreatedAt:  time.Now(),
	}
	s.current = placeholder
	s.mu.Unlock()

	submitted := *req
	submitted.Parameters = params
	job, err := s.client.Create(ctx, &submitted)
	if err != nil {
		// A failed or timed-out create leaves the store idle.
		s.mu.Lock()
		if s.current == placeholder {
			s.current = nil
		}
		s.mu.Unlock()
		if client.IsAuthError(err) {
			s.MarkAuthExpired(err)
		}
		return nil, fmt.Errorf("create simulation: %w", err)
	}
	job.Warnings = append(append([]string(nil), outcome.Warnings...), job.Warnings...)

	s.mu.Lock()
	s.current = job
	s.detach = s.attacher.Attach(job.ID, s.applyEvent)
	s.mu.Unlock()

	s.persistSummary(job)
	logrus.Infof("job %s submitted (%s), status %s", job.ID, job.Kind, job.Status)
	s.notify()
	return s.Current().Job, nil
}

// applyEvent is the single entry point for monitor updates. Terminal
// states are sticky: anything arriving after one is dropped.
func (s *Store) applyEvent(ev models.MonitorEvent) {
	s.mu.Lock()
	job := s.current
	if job == nil || job.ID != ev.JobID || job.Status.Terminal() {
		s.mu.Unlock()
		return
	}

	switch ev.Type {
	case models.EventProgress:
		if job.Status == models.StatusPending {
			job.Status = models.StatusRunning
		}
		if ev.Progress < job.Progress {
			// A regression is a bug on the engine side; surface it
			// rather than silently clamping.
			warning := fmt.Sprintf("progress regressed from %.1f to %.1f", job.Progress, ev.Progress)
			job.Warnings = append(job.Warnings, warning)
			logrus.Warnf("job %s: %s", job.ID, warning)
		} else {
			job.Progress = ev.Progress
		}
		s.mu.Unlock()

	case models.EventCompleted:
		if s.fetchingFor == job.ID {
			s.mu.Unlock()
			return // results fetch already in flight
		}
		s.fetchingFor = job.ID
		id := job.ID
		s.mu.Unlock()
		go s.fetchResults(id)
		return // notify happens when results land

	case models.EventFailed:
		now := time.Now()
		job.Status = models.StatusFailed
		job.CompletedAt = &now
		job.ErrorMessage = ev.ErrorMessage
		s.mu.Unlock()
		s.persistStatus(job.ID, models.StatusFailed, &now)
		logrus.Errorf("job %s failed: %s", job.ID, ev.ErrorMessage)

	case models.EventCancelled:
		now := time.Now()
		job.Status = models.StatusCancelled
		job.CompletedAt = &now
		s.mu.Unlock()
		s.persistStatus(job.ID, models.StatusCancelled, &now)
		logrus.Infof("job %s cancelled", job.ID)

	default:
		s.mu.Unlock()
		return
	}

	s.notify()
}

// fetchResults runs at most once per job id (single-flight). On success it
// completes the job and populates the cache; a fetch failure fails the job
// so the results-iff-completed invariant always holds.
func (s *Store) fetchResults(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	results, err := s.client.GetResults(ctx, jobID)

	s.mu.Lock()
	defer func() {
		s.fetchingFor = ""
		s.mu.Unlock()
		s.notify()
	}()

	job := s.current
	if job == nil || job.ID != jobID || job.Status.Terminal() {
		return
	}
	now := time.Now()
	job.CompletedAt = &now
	if err != nil {
		job.Status = models.StatusFailed
		job.ErrorMessage = fmt.Sprintf("failed to fetch results: %v", err)
		logrus.Errorf("job %s: %s", jobID, job.ErrorMessage)
		go s.persistStatus(jobID, models.StatusFailed, &now)
		return
	}
	job.Status = models.StatusCompleted
	job.Progress = 100
	job.Results = results
	s.cache.Set(cache.Key(job.ModelID, job.Kind, job.Parameters), results, s.cacheTTL)
	logrus.Infof("job %s completed, results cached", jobID)
	go s.persistStatus(jobID, models.StatusCompleted, &now)
}

// Delete detaches the monitor, deletes the job on the engine, and clears
// the active slot.
func (s *Store) Delete(ctx context.Context) error {
	s.mu.Lock()
	job := s.current
	detach := s.detach
	if job == nil {
		s.mu.Unlock()
		return ErrNoActiveJob
	}
	s.detach = nil
	s.mu.Unlock()

	if detach != nil {
		detach()
	}
	if err := s.client.Delete(ctx, job.ID); err != nil {
		if client.IsAuthError(err) {
			s.MarkAuthExpired(err)
		} else {
			logrus.Warnf("engine delete for job %s failed: %v", job.ID, err)
		}
	}

	now := time.Now()
	s.mu.Lock()
	if s.current != nil && s.current.ID == job.ID {
		if !s.current.Status.Terminal() {
			s.current.Status = models.StatusCancelled
			s.current.CompletedAt = &now
			go s.persistStatus(job.ID, models.StatusCancelled, &now)
		}
		s.current = nil
	}
	s.mu.Unlock()
	logrus.Infof("job %s deleted, active slot cleared", job.ID)
	s.notify()
	return nil
}

// Clear resets a terminal job back to the idle state. It refuses while the
// job is still pending or running; use Delete for that.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	if !s.current.Status.Terminal() {
		return ErrJobActive
	}
	s.current = nil
	s.detach = nil
	go s.notify()
	return nil
}

// Current returns a copy of the observable state. A nil Job means idle.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{AuthExpired: s.authExpired}
	if s.current != nil {
		copied := *s.current
		copied.Warnings = append([]string(nil), s.current.Warnings...)
		snap.Job = &copied
	}
	return snap
}

// Subscribe registers a listener notified after every state change. The
// returned function unsubscribes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}

// MarkAuthExpired records that the engine rejected our credentials. The
// active job, if any, fails immediately; nothing is retried until the
// caller re-authenticates. Wired to monitor.Config.OnAuthError.
func (s *Store) MarkAuthExpired(err error) {
	s.mu.Lock()
	s.markAuthExpiredLocked(err)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) markAuthExpiredLocked(err error) {
	if !s.authExpired {
		logrus.Errorf("authentication expired: %v", err)
	}
	s.authExpired = true
	if s.current != nil && !s.current.Status.Terminal() {
		now := time.Now()
		s.current.Status = models.StatusFailed
		s.current.CompletedAt = &now
		s.current.ErrorMessage = "authentication expired"
	}
}

// Validate runs the local parameter validator without touching the network.
func (s *Store) Validate(kind models.SimulationKind, params map[string]interface{}) validation.Outcome {
	return validation.Validate(kind, params)
}

// History lists past jobs from the engine, falling back to locally
// persisted summaries when the engine is unreachable (warm start).
func (s *Store) History(ctx context.Context, filters models.HistoryFilters) ([]models.JobSummary, error) {
	summaries, err := s.client.ListHistory(ctx, filters)
	if err == nil {
		return summaries, nil
	}
	if client.IsAuthError(err) {
		s.MarkAuthExpired(err)
		return nil, err
	}
	if s.repo == nil {
		return nil, err
	}
	logrus.Warnf("engine history unavailable, serving local summaries: %v", err)
	return s.repo.ListSummaries(filters)
}

// Templates lists the engine's parameter presets.
func (s *Store) Templates(ctx context.Context) ([]models.Template, error) {
	return s.client.ListTemplates(ctx)
}

// Compare requests a side-by-side report for completed jobs.
func (s *Store) Compare(ctx context.Context, ids []string) (*models.Comparison, error) {
	return s.client.Compare(ctx, ids)
}

// CacheStats reports the result cache contents.
func (s *Store) CacheStats() cache.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Stats()
}

// ClearCache drops all cached results.
func (s *Store) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.Clear()
}

func (s *Store) persistSummary(job *models.SimulationJob) {
	if s.repo == nil {
		return
	}
	summary := models.JobSummary{
		ID:        job.ID,
		Kind:      job.Kind,
		Status:    job.Status,
		CreatedAt: job.CreatedAt,
	}
	if err := s.repo.SaveSummary(summary); err != nil {
		logrus.Warnf("persist summary for job %s: %v", job.ID, err)
	}
}

func (s *Store) persistStatus(id string, status models.JobStatus, completedAt *time.Time) {
	if s.repo == nil {
		return
	}
	if err := s.repo.UpdateStatus(id, status, completedAt); err != nil {
		logrus.Warnf("persist status for job %s: %v", id, err)
	}
}
