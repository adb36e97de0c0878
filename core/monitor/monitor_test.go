package monitor_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/client/enginetest"
	"github.com/dronreef2/3dPot2-sub000/core/models"
	"github.com/dronreef2/3dPot2-sub000/core/monitor"
)

// recorder collects delivered events in arrival order.
type recorder struct {
	mu     sync.Mutex
	events []models.MonitorEvent
}

func (r *recorder) record(ev models.MonitorEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) snapshot() []models.MonitorEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.MonitorEvent(nil), r.events...)
}

func (r *recorder) terminalCount() int {
	n := 0
	for _, ev := range r.snapshot() {
		if ev.Type.Terminal() {
			n++
		}
	}
	return n
}

func fastConfig() monitor.Config {
	return monitor.Config{
		PollInterval:    20 * time.Millisecond,
		ReconnectBase:   20 * time.Millisecond,
		ReconnectMax:    100 * time.Millisecond,
		MaxPollFailures: 3,
	}
}

func createJob(t *testing.T, c *client.JobClient) *models.SimulationJob {
	t.Helper()
	job, err := c.Create(context.Background(), &models.CreateRequest{
		ModelID: "m1",
		Kind:    models.KindDropTest,
		Parameters: map[string]interface{}{
			"drop_height": 1.0, "num_drops": 5, "gravity": -9.8,
		},
	})
	require.NoError(t, err)
	return job
}

func TestAttach_PushChannelDeliversProgressThenCompleted(t *testing.T) {
	engine := enginetest.New()
	defer engine.Close()
	c := client.New(engine.URL(), "")
	m := monitor.New(c, fastConfig())

	job := createJob(t, c)
	rec := &recorder{}
	detach := m.Attach(job.ID, rec.record)
	defer detach()

	require.Eventually(t, func() bool {
		return rec.terminalCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	events := rec.snapshot()
	require.Equal(t, models.EventCompleted, events[len(events)-1].Type)

	// Progress is monotonically non-decreasing across the whole session.
	last := -1.0
	for _, ev := range events {
		if ev.Type != models.EventProgress {
			continue
		}
		require.GreaterOrEqual(t, ev.Progress, last, "progress regressed")
		last = ev.Progress
	}
	require.Equal(t, 100.0, last, "final progress")
}

func TestAttach_PollingFallbackStillCompletes(t *testing.T) {
	// GIVEN an engine whose push channel is unavailable
	engine := enginetest.New()
	engine.RejectWebSocket = true
	engine.StepInterval = 15 * time.Millisecond
	defer engine.Close()
	c := client.New(engine.URL(), "")
	m := monitor.New(c, fastConfig())

	job := createJob(t, c)
	rec := &recorder{}
	detach := m.Attach(job.ID, rec.record)
	defer detach()

	// THEN polling alone still reports completion, exactly once
	require.Eventually(t, func() bool {
		return rec.terminalCount() >= 1
	}, 3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, rec.terminalCount(), "duplicate terminal transitions")
	events := rec.snapshot()
	require.Equal(t, models.EventCompleted, events[len(events)-1].Type)
}

func TestAttach_FlakyChannelFallsBackWithoutDuplicateTerminal(t *testing.T) {
	// GIVEN a channel that drops after the first event
	engine := enginetest.New()
	engine.DropWebSocketAfter = 1
	engine.StepInterval = 15 * time.Millisecond
	defer engine.Close()
	c := client.New(engine.URL(), "")
	m := monitor.New(c, fastConfig())

	job := createJob(t, c)
	rec := &recorder{}
	detach := m.Attach(job.ID, rec.record)
	defer detach()

	require.Eventually(t, func() bool {
		return rec.terminalCount() >= 1
	}, 3*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 1, rec.terminalCount())
}

func TestDetach_NoEventsAfterwards(t *testing.T) {
	engine := enginetest.New()
	engine.StepInterval = 20 * time.Millisecond
	defer engine.Close()
	c := client.New(engine.URL(), "")
	m := monitor.New(c, fastConfig())

	job := createJob(t, c)
	rec := &recorder{}
	detach := m.Attach(job.ID, rec.record)

	// Let at least one event arrive, then detach.
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) > 0
	}, 2*time.Second, 5*time.Millisecond)
	detach()
	seen := len(rec.snapshot())

	// Late-arriving messages for the session must not invoke the callback.
	time.Sleep(300 * time.Millisecond)
	require.Equal(t, seen, len(rec.snapshot()), "events delivered after detach")

	// Detach is idempotent.
	detach()
	detach()
}

func TestDetach_SafeAfterSelfTermination(t *testing.T) {
	engine := enginetest.New()
	engine.StepInterval = 5 * time.Millisecond
	defer engine.Close()
	c := client.New(engine.URL(), "")
	m := monitor.New(c, fastConfig())

	job := createJob(t, c)
	rec := &recorder{}
	detach := m.Attach(job.ID, rec.record)

	require.Eventually(t, func() bool {
		return rec.terminalCount() == 1
	}, 2*time.Second, 5*time.Millisecond)
	detach() // session already ended on its own
}

func TestPolling_EscalatesAfterRepeatedTransportFailures(t *testing.T) {
	// GIVEN an engine that disappears right after job creation
	engine := enginetest.New()
	engine.RejectWebSocket = true
	engine.StepInterval = time.Hour
	c := client.New(engine.URL(), "")
	m := monitor.New(c, fastConfig())

	job := createJob(t, c)
	engine.Close()

	rec := &recorder{}
	detach := m.Attach(job.ID, rec.record)
	defer detach()

	// THEN the monitor gives up with a failed event after the poll budget
	require.Eventually(t, func() bool {
		events := rec.snapshot()
		return len(events) > 0 && events[len(events)-1].Type == models.EventFailed
	}, 3*time.Second, 10*time.Millisecond)
	events := rec.snapshot()
	require.Contains(t, events[len(events)-1].ErrorMessage, "lost contact")
}

func TestAuthFailure_FiresHookAndStops(t *testing.T) {
	engine := enginetest.New()
	engine.AuthToken = "valid"
	engine.StepInterval = time.Hour
	defer engine.Close()

	// Job created with good credentials, monitored with stale ones.
	good := client.New(engine.URL(), "valid")
	job := createJob(t, good)

	stale := client.New(engine.URL(), "expired")
	cfg := fastConfig()
	authErrs := make(chan error, 1)
	cfg.OnAuthError = func(err error) {
		select {
		case authErrs <- err:
		default:
		}
	}
	m := monitor.New(stale, cfg)

	rec := &recorder{}
	detach := m.Attach(job.ID, rec.record)
	defer detach()

	select {
	case err := <-authErrs:
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("OnAuthError never fired")
	}
}
