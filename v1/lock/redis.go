package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var delScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

// Redis implements SessionLocker using a leased Redis key per lock name.
// Each acquisition stores a random token so Unlock only deletes locks this
// instance still owns.
type Redis struct {
	client *redis.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewRedis returns a new Redis session locker using the provided client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, tokens: make(map[string]string)}
}

// TryLock implements SessionLocker.TryLock via SET NX PX.
func (r *Redis) TryLock(ctx context.Context, name string, lease time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, name, token, lease).Result()
	if err != nil {
		return false, err
	}
	if ok {
		r.mu.Lock()
		r.tokens[name] = token
		r.mu.Unlock()
	}
	return ok, nil
}

// Unlock implements SessionLocker.Unlock with a compare-and-delete so a lock
// re-acquired by another process after lease expiry is never stolen back.
func (r *Redis) Unlock(ctx context.Context, name string) error {
	r.mu.Lock()
	token, ok := r.tokens[name]
	r.mu.Unlock()
	if !ok {
		return nil
	}
	_, err := delScript.Run(ctx, r.client, []string{name}, token).Result()
	if err == redis.Nil {
		err = nil
	}
	if err == nil {
		r.mu.Lock()
		delete(r.tokens, name)
		r.mu.Unlock()
	}
	return err
}
