package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RotationLock makes sure only one instance rotates per schedule tick. The
// holder keeps it after a successful rotation and lets the TTL expire.
type RotationLock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

// NewRotationLock creates a lock on key expiring after ttl
func NewRotationLock(client *redis.Client, key string, ttl time.Duration) *RotationLock {
	return &RotationLock{
		client: client,
		key:    key,
		ttl:    ttl,
		token:  uuid.NewString(),
	}
}

// Acquire takes the lock, reporting false when another holder has it
func (l *RotationLock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquiring rotation lock: %w", err)
	}
	return ok, nil
}

// Release drops the lock if this instance still holds it
func (l *RotationLock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("releasing rotation lock: %w", err)
	}
	return nil
}
