package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"github.com/dronreef2/3dPot2-sub000/api/rest/routes"
	"github.com/dronreef2/3dPot2-sub000/core/cache"
	"github.com/dronreef2/3dPot2-sub000/core/client"
	"github.com/dronreef2/3dPot2-sub000/core/client/enginetest"
	"github.com/dronreef2/3dPot2-sub000/core/models"
	"github.com/dronreef2/3dPot2-sub000/core/monitor"
	"github.com/dronreef2/3dPot2-sub000/core/playback"
	"github.com/dronreef2/3dPot2-sub000/core/store"
	"github.com/dronreef2/3dPot2-sub000/storage"
)

// gateway spins up the full stack against a fake engine.
type gateway struct {
	engine *enginetest.Engine
	store  *store.Store
	server *httptest.Server
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	engine := enginetest.New()
	engine.StepInterval = 10 * time.Millisecond

	c := client.New(engine.URL(), "")
	mon := monitor.New(c, monitor.Config{
		PollInterval:  20 * time.Millisecond,
		ReconnectBase: 20 * time.Millisecond,
	})
	st := store.New(c, cache.New(8), mon, nil)

	ms, err := storage.NewModelStore(t.TempDir())
	require.NoError(t, err)
	renderer := playback.NewRenderer(10)
	loader := playback.NewModelLoader(ms)

	r := mux.NewRouter()
	routes.SetupRoutes(r, st, renderer, loader)
	server := httptest.NewServer(r)

	t.Cleanup(func() {
		server.Close()
		engine.Close()
	})
	return &gateway{engine: engine, store: st, server: server}
}

func (g *gateway) post(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(g.server.URL+path, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	return resp
}

func (g *gateway) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(g.server.URL + path)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func dropBody() map[string]interface{} {
	return map[string]interface{}{
		"model_id": "model-1",
		"name":     "case drop",
		"kind":     "drop_test",
		"parameters": map[string]interface{}{
			"drop_height": 1.0,
			"num_drops":   5,
			"gravity":     -9.8,
		},
	}
}

func TestSubmitEndpoint_CreatesJob(t *testing.T) {
	g := newGateway(t)

	resp := g.post(t, "/v1/simulations", dropBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var job models.SimulationJob
	decode(t, resp, &job)
	require.NotEmpty(t, job.ID)
	require.Equal(t, models.StatusPending, job.Status)
}

func TestSubmitEndpoint_ValidationErrorsReturn422(t *testing.T) {
	g := newGateway(t)

	body := dropBody()
	body["parameters"].(map[string]interface{})["drop_height"] = 99.0
	resp := g.post(t, "/v1/simulations", body)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var outcome struct {
		Valid  bool     `json:"valid"`
		Errors []string `json:"errors"`
	}
	decode(t, resp, &outcome)
	require.False(t, outcome.Valid)
	require.NotEmpty(t, outcome.Errors)
}

func TestSubmitEndpoint_AcceptsYAMLSpec(t *testing.T) {
	g := newGateway(t)

	resp := g.post(t, "/v1/simulations", map[string]string{
		"spec_yaml": `
simulation:
  model: model-7
  name: yaml submit
  kind: stress_test
  parameters:
    max_force: 100.0
    force_increment: 5.0
`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var job models.SimulationJob
	decode(t, resp, &job)
	require.Equal(t, models.KindStressTest, job.Kind)
	require.Equal(t, "model-7", job.ModelID)
}

func TestSubmitEndpoint_SecondSubmitConflicts(t *testing.T) {
	g := newGateway(t)
	g.engine.StepInterval = time.Hour

	resp := g.post(t, "/v1/simulations", dropBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = g.post(t, "/v1/simulations", dropBody())
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}

func TestCurrentAndStatusEndpoints(t *testing.T) {
	g := newGateway(t)

	resp := g.post(t, "/v1/simulations", dropBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	require.Eventually(t, func() bool {
		snap := g.store.Current()
		return snap.Job != nil && snap.Job.Status == models.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	var snap store.Snapshot
	resp = g.get(t, "/v1/simulations/current")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &snap)
	require.Equal(t, models.StatusCompleted, snap.Job.Status)
	require.NotNil(t, snap.Job.Results)

	var status struct {
		Cache cache.Stats `json:"cache"`
	}
	resp = g.get(t, "/v1/status")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &status)
	require.Equal(t, 1, status.Cache.Size)
}

func TestDeleteEndpoint_ClearsActiveJob(t *testing.T) {
	g := newGateway(t)
	g.engine.StepInterval = time.Hour

	resp := g.post(t, "/v1/simulations", dropBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, g.server.URL+"/v1/simulations/current", nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, delResp.StatusCode)
	delResp.Body.Close()

	var snap store.Snapshot
	resp = g.get(t, "/v1/simulations/current")
	decode(t, resp, &snap)
	require.Nil(t, snap.Job)
}

func TestValidateEndpoint_ReturnsOutcome(t *testing.T) {
	g := newGateway(t)

	resp := g.post(t, "/v1/simulations/validate", map[string]interface{}{
		"kind": "stress_test",
		"parameters": map[string]interface{}{
			"max_force":       50.0,
			"force_increment": 20.0,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var outcome struct {
		Valid               bool                   `json:"valid"`
		Warnings            []string               `json:"warnings"`
		SuggestedParameters map[string]interface{} `json:"suggested_parameters"`
	}
	decode(t, resp, &outcome)
	require.True(t, outcome.Valid)
	require.NotEmpty(t, outcome.Warnings)
	require.InDelta(t, 5.0, outcome.SuggestedParameters["force_increment"], 1e-9)
}

func TestCompareEndpoint_RequiresTwoIDs(t *testing.T) {
	g := newGateway(t)

	resp := g.post(t, "/v1/simulations/compare", map[string]interface{}{"ids": []string{"only-one"}})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	resp = g.post(t, "/v1/simulations/compare", map[string]interface{}{"ids": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestPlaybackEndpoints_ControlTimeline(t *testing.T) {
	g := newGateway(t)

	// Run a job to completion so playback has results.
	resp := g.post(t, "/v1/simulations", dropBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
	require.Eventually(t, func() bool {
		snap := g.store.Current()
		return snap.Job != nil && snap.Job.Status == models.StatusCompleted
	}, 3*time.Second, 10*time.Millisecond)

	var state struct {
		Readback playback.Readback `json:"readback"`
	}
	resp = g.get(t, "/v1/playback")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decode(t, resp, &state)
	require.Equal(t, 10, state.Readback.TotalFrames)

	resp = g.post(t, "/v1/playback/play", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = g.post(t, "/v1/playback/reset", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var rb playback.Readback
	decode(t, resp, &rb)
	require.Equal(t, 0, rb.Frame)
	require.False(t, rb.Playing)
}
