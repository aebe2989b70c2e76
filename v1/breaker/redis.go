package breaker

import (
	"context"
	stdErrors "errors"
	"strconv"
	"time"

	hashiuuid "github.com/hashicorp/go-uuid"
	redis "github.com/redis/go-redis/v9"

	sgerrors "github.com/wpconnect/syncgate/v1/errors"
)

const defaultRedisOpTimeout = 5 * time.Second

// RedisStore implements StateStore on a Redis backend. The failure counter
// uses INCR so the threshold crossing is observed by exactly one caller, and
// the probe claim uses SET NX with a TTL so a dead prober cannot hold the
// claim forever.
type RedisStore struct {
	client  *redis.Client
	prefix  string
	timeout time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*redisStoreOptions)

type redisStoreOptions struct {
	timeout time.Duration
}

// WithRedisTimeout sets the operation timeout for Redis calls.
func WithRedisTimeout(d time.Duration) RedisOption {
	return func(o *redisStoreOptions) {
		o.timeout = d
	}
}

// NewRedisStore returns a RedisStore scoping all keys under the breaker name.
func NewRedisStore(client *redis.Client, name string, opts ...RedisOption) *RedisStore {
	o := redisStoreOptions{timeout: defaultRedisOpTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &RedisStore{client: client, prefix: "syncgate:breaker:" + name + ":", timeout: o.timeout}
}

func (s *RedisStore) key(suffix string) string { return s.prefix + suffix }

func mapRedisErr(err error) error {
	if stdErrors.Is(err, context.DeadlineExceeded) {
		return sgerrors.ErrTimeout
	}
	if stdErrors.Is(err, redis.ErrClosed) {
		return sgerrors.ErrConnectionClosed
	}
	return err
}

// Failures implements StateStore.Failures.
func (s *RedisStore) Failures(ctx context.Context) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	v, err := s.client.Get(cctx, s.key("failures")).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, mapRedisErr(err)
	}
	return v, nil
}

// IncrFailures implements StateStore.IncrFailures.
func (s *RedisStore) IncrFailures(ctx context.Context) (int, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.client.Incr(cctx, s.key("failures")).Result()
	if err != nil {
		return 0, mapRedisErr(err)
	}
	return int(n), nil
}

// ResetFailures implements StateStore.ResetFailures.
func (s *RedisStore) ResetFailures(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(cctx, s.key("failures")).Err(); err != nil {
		return mapRedisErr(err)
	}
	return nil
}

// OpenedAt implements StateStore.OpenedAt. The timestamp is stored as unix
// nanoseconds so sub-second recovery delays survive the round trip.
func (s *RedisStore) OpenedAt(ctx context.Context) (time.Time, bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	raw, err := s.client.Get(cctx, s.key("opened_at")).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, mapRedisErr(err)
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.Unix(0, ns), true, nil
}

// SetOpenedAt implements StateStore.SetOpenedAt.
func (s *RedisStore) SetOpenedAt(ctx context.Context, t time.Time) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Set(cctx, s.key("opened_at"), strconv.FormatInt(t.UnixNano(), 10), 0).Err(); err != nil {
		return mapRedisErr(err)
	}
	return nil
}

// ClearOpenedAt implements StateStore.ClearOpenedAt.
func (s *RedisStore) ClearOpenedAt(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(cctx, s.key("opened_at")).Err(); err != nil {
		return mapRedisErr(err)
	}
	return nil
}

// ClaimProbe implements StateStore.ClaimProbe.
func (s *RedisStore) ClaimProbe(ctx context.Context, ttl time.Duration) (bool, error) {
	token, err := hashiuuid.GenerateUUID()
	if err != nil {
		return false, err
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.client.SetNX(cctx, s.key("probe"), token, ttl).Result()
	if err != nil {
		return false, mapRedisErr(err)
	}
	return ok, nil
}

// ProbeClaimed implements StateStore.ProbeClaimed.
func (s *RedisStore) ProbeClaimed(ctx context.Context) (bool, error) {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	n, err := s.client.Exists(cctx, s.key("probe")).Result()
	if err != nil {
		return false, mapRedisErr(err)
	}
	return n > 0, nil
}

// ClearProbe implements StateStore.ClearProbe.
func (s *RedisStore) ClearProbe(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.client.Del(cctx, s.key("probe")).Err(); err != nil {
		return mapRedisErr(err)
	}
	return nil
}
