package lock

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client is the subset of a go-redis client the locker uses.
type Client interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	redis.Scripter
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by another cycle is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a per-appointment lease shared by every reminder-service
// instance.
type RedisLocker struct {
	rdb    Client
	ttl    time.Duration
	prefix string
	logger *slog.Logger
}

func NewRedisLocker(rdb Client, ttl time.Duration, prefix string, logger *slog.Logger) *RedisLocker {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if prefix == "" {
		prefix = "reminder:lock"
	}
	return &RedisLocker{rdb: rdb, ttl: ttl, prefix: prefix, logger: logger}
}

func (l *RedisLocker) key(appointmentID string) string {
	return l.prefix + ":" + appointmentID
}

func (l *RedisLocker) Acquire(ctx context.Context, appointmentID string) (func(), bool, error) {
	key := l.key(appointmentID)
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	release := func() {
		// The cycle context may already be done; release on a short detached one.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.logger.Warn("reminder lock release failed", "err", err, "key", key)
		}
	}
	return release, true, nil
}
