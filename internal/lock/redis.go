package lock

import (
	"context" // Request scoped cancellation
	"fmt"     // Error wrapping
	"sync"    // Single release
	"time"    // Timestamps and durations

	"github.com/google/uuid"       // Lock ownership tokens
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
)

// releaseScript deletes a key only while it still carries our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process pointed at the same Redis server.
type Redis struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis returns a distributed locker. ttl bounds how long a crashed holder
// can block others.
func NewRedis(client redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: "lock:", ttl: ttl, retry: 25 * time.Millisecond}
}

func (r *Redis) Acquire(ctx context.Context, keys ...string) (Unlock, error) {
	keys = normalize(keys)
	token := uuid.NewString()
	held := make([]string, 0, len(keys))
	for _, key := range keys {
		name := r.prefix + key
		if err := r.acquireOne(ctx, name, token); err != nil {
			r.release(held, token)
			return nil, err
		}
		held = append(held, name)
	}

	var once sync.Once
	return func() { once.Do(func() { r.release(held, token) }) }, nil
}

func (r *Redis) acquireOne(ctx context.Context, name, token string) error {
	for {
		ok, err := r.client.SetNX(ctx, name, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return ErrTimeout
			}
			return fmt.Errorf("lock: acquire %s: %w", name, err)
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrTimeout
		case <-time.After(r.retry):
		}
	}
}

func (r *Redis) release(names []string, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(names) - 1; i >= 0; i-- {
		if err := releaseScript.Run(ctx, r.client, []string{names[i]}, token).Err(); err != nil {
			logrus.WithError(err).WithField("key", names[i]).Warn("failed to release lock, it will expire on its own")
		}
	}
}
