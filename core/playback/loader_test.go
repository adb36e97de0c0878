package playback

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dronreef2/3dPot2-sub000/storage"
)

func TestModelLoader_SuccessfulLoad(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("solid model geometry"))
	}))
	defer server.Close()

	ms, err := storage.NewModelStore(t.TempDir())
	require.NoError(t, err)
	loader := NewModelLoader(ms)
	r := NewRenderer(10)

	select {
	case <-loader.Load(r, server.URL+"/case.stl"):
	case <-time.After(5 * time.Second):
		t.Fatal("model load never settled")
	}

	state, path, errMsg := r.Model()
	require.Equal(t, ModelReady, state)
	require.NotEmpty(t, path)
	require.Empty(t, errMsg)
}

func TestModelLoader_FailureIsDistinctFromJobFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	ms, err := storage.NewModelStore(t.TempDir())
	require.NoError(t, err)
	loader := NewModelLoader(ms)
	r := NewRenderer(10)

	select {
	case <-loader.Load(r, server.URL+"/missing.stl"):
	case <-time.After(5 * time.Second):
		t.Fatal("model load never settled")
	}

	state, _, errMsg := r.Model()
	require.Equal(t, ModelError, state)
	require.NotEmpty(t, errMsg)

	// Job state is untouched: the renderer still has no results and no job.
	require.Equal(t, "", r.JobID())
}

func TestModelStore_SecondFetchServedFromDisk(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("geometry"))
	}))
	defer server.Close()

	ms, err := storage.NewModelStore(t.TempDir())
	require.NoError(t, err)

	first, err := ms.Fetch(server.URL + "/m.stl")
	require.NoError(t, err)
	second, err := ms.Fetch(server.URL + "/m.stl")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, hits, "second fetch must come from the cache")
}
