package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/coview/client/internal/repository/prefs"
)

const lastSessionKey = "coview:prefs:last-session"

type repo struct {
	rc *redis.Client
}

func NewRepo(rc *redis.Client) *repo {
	return &repo{rc: rc}
}

func (r *repo) SaveSession(ctx context.Context, sess prefs.LastSession) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("marshal last session: %w", err)
	}

	if err := r.rc.Set(ctx, lastSessionKey, data, prefs.StalenessWindow).Err(); err != nil {
		return fmt.Errorf("save last session: %w", err)
	}

	return nil
}

func (r *repo) LoadSession(ctx context.Context) (prefs.LastSession, error) {
	data, err := r.rc.Get(ctx, lastSessionKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return prefs.LastSession{}, prefs.ErrNotFound
		}
		return prefs.LastSession{}, fmt.Errorf("load last session: %w", err)
	}

	var sess prefs.LastSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return prefs.LastSession{}, fmt.Errorf("unmarshal last session: %w", err)
	}

	return sess, nil
}

func (r *repo) ClearSession(ctx context.Context) error {
	if err := r.rc.Del(ctx, lastSessionKey).Err(); err != nil {
		return fmt.Errorf("clear last session: %w", err)
	}

	return nil
}
