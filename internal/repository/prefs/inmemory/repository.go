package inmemory

import (
	"context"
	"sync"

	"github.com/coview/client/internal/repository/prefs"
)

// repo keeps the saved session in process memory. Used when no redis
// endpoint is configured; survives reconnects but not restarts.
type repo struct {
	mu    sync.Mutex
	sess  prefs.LastSession
	saved bool
}

func NewRepo() *repo {
	return &repo{}
}

func (r *repo) SaveSession(_ context.Context, sess prefs.LastSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sess = sess
	r.saved = true

	return nil
}

func (r *repo) LoadSession(_ context.Context) (prefs.LastSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.saved {
		return prefs.LastSession{}, prefs.ErrNotFound
	}

	return r.sess, nil
}

func (r *repo) ClearSession(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sess = prefs.LastSession{}
	r.saved = false

	return nil
}
