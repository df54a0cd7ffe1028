package lock

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/yardtrackpro/yardtrack-backend/pkg/logger"
)

const (
	defaultTTL        = 30 * time.Second
	defaultRetryEvery = 50 * time.Millisecond
	defaultRetryMax   = 20
)

// KeyBuilder namespaces lock keys.
type KeyBuilder interface {
	LockKey(scope, id string) string
}

type releaser interface {
	Release(ctx context.Context) error
}

type obtainFunc func(ctx context.Context, key string, ttl time.Duration) (releaser, error)

// Locker hands out best-effort distributed locks. Locking never blocks the
// caller's work: keys that cannot be obtained are logged and skipped, so a
// Redis outage degrades to unlocked behaviour instead of failing requests.
type Locker struct {
	obtain obtainFunc
	keys   KeyBuilder
	ttl    time.Duration
	logg   *logger.Logger
}

// New builds a Locker on top of a redis scripter. A nil scripter yields a
// Locker whose AcquireAll is a no-op.
func New(scripter redis.Scripter, keys KeyBuilder, ttl time.Duration, logg *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	l := &Locker{keys: keys, ttl: ttl, logg: logg}
	if scripter == nil {
		return l
	}

	client := redislock.New(scripter)
	opts := &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(defaultRetryEvery), defaultRetryMax),
	}
	l.obtain = func(ctx context.Context, key string, ttl time.Duration) (releaser, error) {
		return client.Obtain(ctx, key, ttl, opts)
	}
	return l
}

// AcquireAll locks every id under scope in sorted order so two callers that
// share ids cannot deadlock. The returned func releases whatever was obtained
// and is always safe to call.
func (l *Locker) AcquireAll(ctx context.Context, scope string, ids []string) func() {
	if l == nil || l.obtain == nil || len(ids) == 0 {
		return func() {}
	}

	held := make([]releaser, 0, len(ids))
	for _, id := range uniqueSorted(ids) {
		key := id
		if l.keys != nil {
			key = l.keys.LockKey(scope, id)
		}

		lk, err := l.obtain(ctx, key, l.ttl)
		if err != nil {
			l.warn(ctx, key, err)
			continue
		}
		held = append(held, lk)
	}

	return func() {
		releaseCtx := context.WithoutCancel(ctx)
		for i := len(held) - 1; i >= 0; i-- {
			if err := held[i].Release(releaseCtx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				l.warn(releaseCtx, "release", err)
			}
		}
	}
}

func (l *Locker) warn(ctx context.Context, key string, err error) {
	if l.logg == nil {
		return
	}
	ctx = l.logg.WithFields(ctx, map[string]any{"lock_key": key, "error": err.Error()})
	if errors.Is(err, redislock.ErrNotObtained) {
		l.logg.Warn(ctx, "lock.not_obtained")
		return
	}
	l.logg.Warn(ctx, "lock.unavailable")
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
