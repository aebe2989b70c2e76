package breaker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"

	"github.com/wpconnect/syncgate/v1/lock"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return NewRedisStore(client, "odoo"), mr, client
}

func TestRedisStoreFailureCounter(t *testing.T) {
	s, _, _ := newRedisStore(t)
	ctx := context.Background()

	if n, err := s.Failures(ctx); err != nil || n != 0 {
		t.Fatalf("fresh store: n %d err %v", n, err)
	}
	for want := 1; want <= 3; want++ {
		n, err := s.IncrFailures(ctx)
		if err != nil || n != want {
			t.Fatalf("incr: n %d want %d err %v", n, want, err)
		}
	}
	if err := s.ResetFailures(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if n, _ := s.Failures(ctx); n != 0 {
		t.Fatalf("failures after reset: %d", n)
	}
}

func TestRedisStoreOpenedAtRoundTrip(t *testing.T) {
	s, _, _ := newRedisStore(t)
	ctx := context.Background()

	if _, ok, err := s.OpenedAt(ctx); err != nil || ok {
		t.Fatalf("fresh store reports opened: ok %v err %v", ok, err)
	}
	at := time.Now().Add(-90 * time.Second)
	if err := s.SetOpenedAt(ctx, at); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := s.OpenedAt(ctx)
	if err != nil || !ok {
		t.Fatalf("get: ok %v err %v", ok, err)
	}
	if !got.Equal(at) {
		t.Fatalf("opened_at round trip: got %v want %v", got, at)
	}
	if err := s.ClearOpenedAt(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := s.OpenedAt(ctx); ok {
		t.Fatal("opened_at survived clear")
	}
}

func TestRedisStoreProbeClaim(t *testing.T) {
	s, mr, _ := newRedisStore(t)
	ctx := context.Background()

	ok, err := s.ClaimProbe(ctx, time.Minute)
	if err != nil || !ok {
		t.Fatalf("claim: ok %v err %v", ok, err)
	}
	if ok, _ := s.ClaimProbe(ctx, time.Minute); ok {
		t.Fatal("second claim succeeded while the first is live")
	}
	if claimed, _ := s.ProbeClaimed(ctx); !claimed {
		t.Fatal("probe not reported claimed")
	}
	if err := s.ClearProbe(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if claimed, _ := s.ProbeClaimed(ctx); claimed {
		t.Fatal("probe still claimed after clear")
	}

	// A crashed prober's claim expires with its TTL.
	if ok, _ := s.ClaimProbe(ctx, 500*time.Millisecond); !ok {
		t.Fatal("reclaim failed")
	}
	mr.FastForward(time.Second)
	if ok, _ := s.ClaimProbe(ctx, time.Minute); !ok {
		t.Fatal("claim not possible after the previous claim expired")
	}
}

func TestBreakerOverRedis(t *testing.T) {
	s, mr, client := newRedisStore(t)
	ctx := context.Background()

	locker := lock.NewRedis(client)
	mu := lock.New(locker, "syncgate:breaker:odoo:mutex", 50*time.Millisecond, lock.WithPollInterval(5*time.Millisecond))
	b := New("odoo", s, mu)

	for i := 0; i < 3; i++ {
		b.RecordFailure(ctx)
	}
	if b.IsAvailable(ctx) {
		t.Fatal("circuit not open after three failures")
	}

	// Rewind the open window instead of waiting out the recovery delay.
	if err := s.SetOpenedAt(ctx, time.Now().Add(-defaultRecoveryDelay-time.Second)); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	if !b.IsAvailable(ctx) {
		t.Fatal("probe not permitted in the half-open window")
	}
	if b.IsAvailable(ctx) {
		t.Fatal("second probe permitted in the same window")
	}

	b.RecordSuccess(ctx)
	if !b.IsAvailable(ctx) {
		t.Fatal("circuit not closed after the probe succeeded")
	}
	if mr.Exists("syncgate:breaker:odoo:probe") {
		t.Fatal("probe claim key not cleaned up")
	}
}
