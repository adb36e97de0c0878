// Package monitor tracks an active job in real time. It prefers the
// engine's websocket push channel and falls back to fixed-interval status
// polling whenever the channel is down, reconnecting with capped
// exponential backoff. A session token guards every callback so that
// nothing fires after detach.
package monitor

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// EventFunc receives update events in arrival order.
type EventFunc func(models.MonitorEvent)

// Config tunes the monitor's polling and reconnect policy
type Config struct {
	PollInterval    time.Duration // status poll cadence while the channel is down
	ReconnectBase   time.Duration // first reconnect delay
	ReconnectMax    time.Duration // backoff cap
	MaxPollFailures int           // consecutive transport failures before escalating
	// OnAuthError fires once when the engine rejects credentials; the
	// session terminates immediately and is never retried.
	OnAuthError func(error)
}

// DefaultConfig returns the policy from the original deployment: 2s polls,
// 5s reconnect base, 60s cap, escalate after 5 failed polls.
func DefaultConfig() Config {
	return Config{
		PollInterval:    2 * time.Second,
		ReconnectBase:   5 * time.Second,
		ReconnectMax:    60 * time.Second,
		MaxPollFailures: 5,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.ReconnectBase <= 0 {
		c.ReconnectBase = d.ReconnectBase
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = d.ReconnectMax
	}
	if c.MaxPollFailures <= 0 {
		c.MaxPollFailures = d.MaxPollFailures
	}
	return c
}

// Monitor creates sessions bound to single job ids
type Monitor struct {
	client *client.JobClient
	cfg    Config
}

// New creates a monitor using c for the polling path and push-channel URLs.
func New(c *client.JobClient, cfg Config) *Monitor {
	return &Monitor{client: c, cfg: cfg.withDefaults()}
}

// Attach opens a session for jobID and returns its detach function. Detach
// is idempotent and safe after the session has self-terminated; once it
// returns, onEvent will not be called again.
func (m *Monitor) Attach(jobID string, onEvent EventFunc) (detach func()) {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:      uuid.New().String(),
		jobID:   jobID,
		onEvent: onEvent,
		client:  m.client,
		cfg:     m.cfg,
		cancel:  cancel,
		alive:   true,
	}
	logrus.Infof("monitor session %s attached to job %s", s.id, jobID)

	go s.runChannel(ctx)
	go s.runPolling(ctx)

	var once sync.Once
	return func() {
		once.Do(func() { s.terminate("detached") })
	}
}

// session tracks one job until a terminal event or detach
type session struct {
	id      string
	jobID   string
	onEvent EventFunc
	client  *client.JobClient
	cfg     Config
	cancel  context.CancelFunc

	// deliverMu serializes event delivery and guards the liveness flag.
	// It is held across the onEvent call so events reach the consumer in
	// arrival order and nothing fires once the session is dead. onEvent
	// must therefore never call detach synchronously.
	deliverMu sync.Mutex
	alive     bool

	mu           sync.Mutex
	channelUp    bool
	reconnects   int
	pollFailures int
	lastProgress float64
	sawProgress  bool
}

// terminate flips the liveness flag and stops both loops. It waits for any
// in-flight delivery, so once it returns no callback can fire.
func (s *session) terminate(reason string) {
	s.deliverMu.Lock()
	wasAlive := s.alive
	s.alive = false
	s.deliverMu.Unlock()
	s.cancel()
	if wasAlive {
		logrus.Infof("monitor session %s for job %s terminated (%s)", s.id, s.jobID, reason)
	}
}

// deliver forwards an event if the session is still live. Terminal events
// end the session, so a late progress event can never follow one.
func (s *session) deliver(ev models.MonitorEvent) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if !s.alive {
		return
	}
	if ev.Type == models.EventProgress {
		s.mu.Lock()
		s.lastProgress = ev.Progress
		s.sawProgress = true
		s.mu.Unlock()
	}
	if ev.Type.Terminal() {
		s.alive = false
		s.cancel()
		logrus.Infof("monitor session %s for job %s terminated (%s)", s.id, s.jobID, ev.Type)
	}
	s.onEvent(ev)
}

// runChannel keeps the push channel open, redialing with capped
// exponential backoff on any error.
func (s *session) runChannel(ctx context.Context) {
	for ctx.Err() == nil {
		conn, resp, err := websocket.DefaultDialer.DialContext(ctx, s.client.EventsURL(s.jobID), s.client.AuthHeader())
		if err != nil {
			if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
				s.authExpired(&client.AuthError{StatusCode: resp.StatusCode, Message: "push channel rejected credentials"})
				return
			}
			s.mu.Lock()
			s.reconnects++
			attempt := s.reconnects
			s.mu.Unlock()
			delay := s.backoff(attempt)
			logrus.Warnf("monitor session %s: push channel dial failed (attempt %d, retrying in %s): %v", s.id, attempt, delay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		s.setChannelUp(true)
		s.mu.Lock()
		s.reconnects = 0
		s.mu.Unlock()

		s.readLoop(ctx, conn)
		s.setChannelUp(false)
	}
}

func (s *session) readLoop(ctx context.Context, conn *websocket.Conn) {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
			conn.Close()
		}
	}()

	for {
		var ev models.MonitorEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() == nil {
				logrus.Warnf("monitor session %s: push channel read failed, falling back to polling: %v", s.id, err)
			}
			return
		}
		s.deliver(ev)
	}
}

func (s *session) backoff(attempt int) time.Duration {
	delay := s.cfg.ReconnectBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.cfg.ReconnectMax {
			return s.cfg.ReconnectMax
		}
	}
	if delay > s.cfg.ReconnectMax {
		delay = s.cfg.ReconnectMax
	}
	return delay
}

func (s *session) setChannelUp(up bool) {
	s.mu.Lock()
	s.channelUp = up
	s.mu.Unlock()
}

// runPolling re-fetches status at a fixed interval while the push channel
// is down. It stops the moment the session ends, so no polling survives a
// terminal status.
func (s *session) runPolling(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		up := s.channelUp
		s.mu.Unlock()
		if up || !s.live() {
			continue
		}

		snap, err := s.client.GetStatus(ctx, s.jobID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if client.IsAuthError(err) {
				s.authExpired(err)
				return
			}
			s.mu.Lock()
			s.pollFailures++
			failures := s.pollFailures
			s.mu.Unlock()
			logrus.Warnf("monitor session %s: status poll failed (%d/%d): %v", s.id, failures, s.cfg.MaxPollFailures, err)
			if failures >= s.cfg.MaxPollFailures {
				s.deliver(models.MonitorEvent{
					Type:         models.EventFailed,
					JobID:        s.jobID,
					ErrorMessage: fmt.Sprintf("lost contact with engine after %d status polls", failures),
				})
				return
			}
			continue
		}

		s.mu.Lock()
		s.pollFailures = 0
		s.mu.Unlock()
		s.deliverSnapshot(snap)
	}
}

// deliverSnapshot translates a polled status into the event union,
// suppressing progress values already delivered so the polling path never
// duplicates what the channel reported.
func (s *session) deliverSnapshot(snap *client.StatusSnapshot) {
	switch snap.Status {
	case models.StatusCompleted:
		s.deliver(models.MonitorEvent{Type: models.EventCompleted, JobID: s.jobID})
	case models.StatusFailed:
		s.deliver(models.MonitorEvent{Type: models.EventFailed, JobID: s.jobID, ErrorMessage: snap.ErrorMessage})
	case models.StatusCancelled:
		s.deliver(models.MonitorEvent{Type: models.EventCancelled, JobID: s.jobID})
	case models.StatusRunning, models.StatusPending:
		s.mu.Lock()
		duplicate := s.sawProgress && snap.Progress == s.lastProgress
		s.mu.Unlock()
		if !duplicate {
			s.deliver(models.MonitorEvent{Type: models.EventProgress, JobID: s.jobID, Progress: snap.Progress})
		}
	}
}

func (s *session) live() bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	return s.alive
}

func (s *session) authExpired(err error) {
	logrus.Errorf("monitor session %s: %v", s.id, err)
	if s.cfg.OnAuthError != nil && s.live() {
		s.cfg.OnAuthError(err)
	}
	s.terminate("authentication expired")
}
