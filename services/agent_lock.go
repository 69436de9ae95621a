package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrLockTimeout = errors.New("timed out waiting for agent lock")

// AgentLocker serialises work per agent. The returned func releases the lock.
type AgentLocker interface {
	Lock(ctx context.Context, agentID string) (func(), error)
}

const lockRetryInterval = 25 * time.Millisecond

// releaseScript deletes the key only when it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisAgentLocker uses SET NX PX with a random token per holder.
type RedisAgentLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewRedisAgentLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisAgentLocker {
	return &RedisAgentLocker{client: client, ttl: ttl, logger: logger}
}

func lockKey(agentID string) string {
	return "lock:agent:" + agentID
}

func (l *RedisAgentLocker) Lock(ctx context.Context, agentID string) (func(), error) {
	key := lockKey(agentID)
	token := uuid.NewString()

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ErrLockTimeout
		case <-time.After(lockRetryInterval):
		}
	}

	return func() {
		// The caller's ctx may already be done; release on a short fresh one.
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.client, []string{key}, token).Err(); err != nil {
			l.logger.Warn("failed to release agent lock", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

// LocalAgentLocker is the in-process fallback used when Redis is not configured.
type LocalAgentLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalAgentLocker() *LocalAgentLocker {
	return &LocalAgentLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalAgentLocker) slot(agentID string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.locks[agentID]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[agentID] = ch
	}
	return ch
}

func (l *LocalAgentLocker) Lock(ctx context.Context, agentID string) (func(), error) {
	ch := l.slot(agentID)
	select {
	case ch <- struct{}{}:
	case <-ctx.Done():
		return nil, ErrLockTimeout
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-ch })
	}, nil
}

// NewAgentLocker picks Redis when a client is available.
func NewAgentLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) AgentLocker {
	if client == nil {
		return NewLocalAgentLocker()
	}
	return NewRedisAgentLocker(client, ttl, logger)
}
