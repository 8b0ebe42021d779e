package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	dialTimeout  = 3 * time.Second
	readTimeout  = 2 * time.Second
	writeTimeout = 2 * time.Second
	pingTimeout  = 2 * time.Second
)

func NewRedisClient(ctx context.Context, redisURL string, logger *slog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	opts.PoolSize = 10
	opts.MinIdleConns = 2
	opts.DialTimeout = dialTimeout
	opts.ReadTimeout = readTimeout
	opts.WriteTimeout = writeTimeout

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}

	logger.Info("redis_connected", "addr", opts.Addr, "pool_size", opts.PoolSize)
	return client, nil
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var ErrLockTimeout = errors.New("lock: timed out waiting for key")

// RedisLocker is a Locker shared by every server instance pointing at the same redis.
// TTL bounds how long a crashed holder can block others.
type RedisLocker struct {
	Client  *redis.Client
	Prefix  string
	TTL     time.Duration
	Retry   time.Duration
	MaxWait time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		Client:  client,
		Prefix:  "storefront:lock:",
		TTL:     5 * time.Second,
		Retry:   25 * time.Millisecond,
		MaxWait: 3 * time.Second,
	}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	k := l.Prefix + key
	token := uuid.NewString()

	waitCtx, cancel := context.WithTimeout(ctx, l.MaxWait)
	defer cancel()

	ticker := time.NewTicker(l.Retry)
	defer ticker.Stop()

	for {
		ok, err := l.Client.SetNX(waitCtx, k, token, l.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("lock: setnx %s: %w", k, err)
		}
		if ok {
			break
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, ErrLockTimeout
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			relCtx, relCancel := context.WithTimeout(context.Background(), writeTimeout)
			defer relCancel()
			if err := releaseScript.Run(relCtx, l.Client, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				slog.Default().Warn("lock_release_failed", "key", k, "error", err)
			}
		})
	}, nil
}
