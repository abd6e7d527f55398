package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coview/client/internal/repository/prefs"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc), mr
}

func TestSaveAndLoadSession(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	saved := prefs.LastSession{
		Username: "alice",
		RoomID:   "ABCD2345",
		SavedAt:  time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, r.SaveSession(ctx, saved))

	got, err := r.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestLoadSessionNotFound(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.LoadSession(context.Background())
	assert.ErrorIs(t, err, prefs.ErrNotFound)
}

func TestSavedSessionExpiresWithStalenessWindow(t *testing.T) {
	r, mr := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveSession(ctx, prefs.LastSession{
		Username: "alice",
		RoomID:   "ABCD2345",
		SavedAt:  time.Now(),
	}))

	mr.FastForward(prefs.StalenessWindow + time.Second)

	_, err := r.LoadSession(ctx)
	assert.ErrorIs(t, err, prefs.ErrNotFound)
}

func TestClearSession(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SaveSession(ctx, prefs.LastSession{
		Username: "alice",
		RoomID:   "ABCD2345",
		SavedAt:  time.Now(),
	}))
	require.NoError(t, r.ClearSession(ctx))

	_, err := r.LoadSession(ctx)
	assert.ErrorIs(t, err, prefs.ErrNotFound)

	// Clearing an empty store is not an error.
	assert.NoError(t, r.ClearSession(ctx))
}
