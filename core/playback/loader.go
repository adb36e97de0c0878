package playback

import (
	"github.com/sirupsen/logrus"

	"github.com/dronreef2/3dPot2-sub000/storage"
)

// ModelLoader fetches model geometry into the renderer. Loading is
// asynchronous and fully decoupled from playback: a load failure puts the
// renderer into ModelError without touching job state.
type ModelLoader struct {
	store *storage.ModelStore
}

// NewModelLoader creates a loader backed by the on-disk model store.
func NewModelLoader(store *storage.ModelStore) *ModelLoader {
	return &ModelLoader{store: store}
}

// Load starts fetching the model at url into r. The returned channel
// closes when the load settles either way; callers that don't care may
// ignore it.
func (l *ModelLoader) Load(r *Renderer, url string) <-chan struct{} {
	done := make(chan struct{})
	r.setModelLoading()
	go func() {
		defer close(done)
		path, err := l.store.Fetch(url)
		if err != nil {
			logrus.Errorf("model load failed for %s: %v", url, err)
			r.setModelError(err.Error())
			return
		}
		r.setModelReady(path)
	}()
	return done
}
