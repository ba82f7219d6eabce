package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the flag only if it still holds our token, so a flag that
// expired and was taken by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGate implements Gate using Redis, so replicas behind a NATS queue group
// share one busy flag per session
type RedisGate struct {
	client *redis.Client
	ttl    time.Duration // Upper bound on how long a crashed holder blocks a session

	mu     sync.Mutex
	tokens map[string]string
}

var _ Gate = (*RedisGate)(nil)

// NewRedisGate creates a new Redis-backed gate
func NewRedisGate(redisURL string, ttl time.Duration) (*RedisGate, error) {
	// Parse Redis URL
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisGateFromClient(client, ttl), nil
}

// NewRedisGateFromClient wraps an existing client.
func NewRedisGateFromClient(client *redis.Client, ttl time.Duration) *RedisGate {
	return &RedisGate{
		client: client,
		ttl:    ttl,
		tokens: make(map[string]string),
	}
}

// busyKey generates Redis key for a session's busy flag
func (r *RedisGate) busyKey(sessionID string) string {
	return fmt.Sprintf("newsbuddy:busy:%s", sessionID)
}

// Acquire sets the busy flag with SET NX and the configured TTL
func (r *RedisGate) Acquire(ctx context.Context, sessionID string) (bool, error) {
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, r.busyKey(sessionID), token, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set busy flag: %w", err)
	}
	if !ok {
		return false, nil
	}

	r.mu.Lock()
	r.tokens[sessionID] = token
	r.mu.Unlock()

	return true, nil
}

// Release removes the busy flag if this gate still owns it
func (r *RedisGate) Release(ctx context.Context, sessionID string) error {
	r.mu.Lock()
	token, ok := r.tokens[sessionID]
	delete(r.tokens, sessionID)
	r.mu.Unlock()

	if !ok {
		return nil
	}

	if err := releaseScript.Run(ctx, r.client, []string{r.busyKey(sessionID)}, token).Err(); err != nil {
		return fmt.Errorf("failed to clear busy flag: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisGate) Close() error {
	return r.client.Close()
}

// Health check - verify Redis connection is alive
func (r *RedisGate) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
