// Package storage caches downloaded 3D model files on disk, keyed by a
// content address of their source URL, so repeated playback of the same
// model never re-fetches it.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ModelStore manages the on-disk model file cache
type ModelStore struct {
	dir        string
	httpClient *http.Client
}

// NewModelStore creates a store rooted at dir, creating it if needed.
func NewModelStore(dir string) (*ModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model cache dir: %w", err)
	}
	return &ModelStore{
		dir:        dir,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

// Fetch returns a local path for the model at url, downloading it on the
// first request and serving the cached copy afterwards.
func (s *ModelStore) Fetch(url string) (string, error) {
	path := s.pathFor(url)
	if _, err := os.Stat(path); err == nil {
		logrus.Debugf("model cache hit for %s", url)
		return path, nil
	}

	resp, err := s.httpClient.Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch model: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch model: unexpected status %d", resp.StatusCode)
	}

	// Download to a temp file first so a partial write never looks like a
	// cached model.
	tmp, err := os.CreateTemp(s.dir, "model-*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("store model: %w", err)
	}
	logrus.Infof("model %s cached at %s", url, path)
	return path, nil
}

// Evict removes the cached copy for url, if any.
func (s *ModelStore) Evict(url string) error {
	err := os.Remove(s.pathFor(url))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func (s *ModelStore) pathFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".model")
}
