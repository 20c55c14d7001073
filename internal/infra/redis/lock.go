package redis

import (
	"context"
	"fmt"
	"time"

	"telegram-tempmail-relay/internal/domain"
	"telegram-tempmail-relay/internal/usecase"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

var _ usecase.SessionGuard = (*SessionGuard)(nil)

// SessionGuard is the Redis-backed per-session in-flight lock. It
// serializes polling of one mailbox across all relay processes: a held
// key means a previous poll is still outstanding and the caller skips
// the session. TryLock is a single non-blocking SET NX attempt; the TTL
// bounds how long a wedged poll can keep its session locked.
type SessionGuard struct {
	cli *redis.Client
}

func NewSessionGuard(c *Client) *SessionGuard {
	return &SessionGuard{cli: c.cli}
}

func (g *SessionGuard) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := g.cli.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire %s: %v: %w", key, err, domain.ErrTransient)
	}
	if !ok {
		return "", domain.ErrSessionBusy
	}
	return token, nil
}

// luaExtend renews the TTL only when the token still matches; extending
// a lock we lost would steal it back from whoever holds it now.
var luaExtend = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
else
	return 0
end`)

func (g *SessionGuard) Extend(ctx context.Context, key, token string, ttl time.Duration) error {
	res, err := luaExtend.Run(ctx, g.cli, []string{key}, token, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("extend %s: %v: %w", key, err, domain.ErrTransient)
	}
	if n, ok := res.(int64); ok && n == 0 {
		return fmt.Errorf("extend %s: lock lost: %w", key, domain.ErrSessionBusy)
	}
	return nil
}

// luaUnlock releases the key only when the token still matches, so an
// expired lock reacquired by another worker is never released by us.
var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (g *SessionGuard) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, g.cli, []string{key}, token).Result()
	return err
}
