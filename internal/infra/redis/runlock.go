package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultRunLockKey = "interview-dispatch:run"
	defaultRunLockTTL = 30 * time.Minute
)

// ErrLockHeld is returned when another run owns the lock.
var ErrLockHeld = errors.New("run lock is held by another process")

var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// RunLock keeps two dispatch runs from working the same store at once.
type RunLock struct {
	client   *goredis.Client
	key      string
	ttl      time.Duration
	newToken func() string
	script   *goredis.Script
}

func NewRunLock(client *goredis.Client, key string, ttl time.Duration) (*RunLock, error) {
	return newRunLock(client, key, ttl, uuid.NewString)
}

func newRunLock(client *goredis.Client, key string, ttl time.Duration, tokenFn func() string) (*RunLock, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = DefaultRunLockKey
	}
	if ttl <= 0 {
		ttl = defaultRunLockTTL
	}
	if tokenFn == nil {
		tokenFn = uuid.NewString
	}

	return &RunLock{
		client:   client,
		key:      key,
		ttl:      ttl,
		newToken: tokenFn,
		script:   releaseScript,
	}, nil
}

// Acquire takes the lock and returns the token needed to release it.
func (l *RunLock) Acquire(ctx context.Context) (string, error) {
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return "", ErrLockHeld
	}

	return token, nil
}

// Release drops the lock only if token still owns it.
func (l *RunLock) Release(ctx context.Context, token string) error {
	deleted, err := l.script.Run(ctx, l.client, []string{l.key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("run lock %s was not owned by token", l.key)
	}
	return nil
}
