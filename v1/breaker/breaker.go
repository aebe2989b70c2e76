package breaker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wpconnect/syncgate/v1/lock"
	"github.com/wpconnect/syncgate/v1/metrics"
)

var tracer = otel.Tracer("github.com/wpconnect/syncgate/v1/breaker")

const (
	defaultFailureThreshold = 3
	defaultRecoveryDelay    = 300 * time.Second
	defaultProbeTTL         = 60 * time.Second
	batchFailureRatio       = 0.8
)

// Notifier is invoked exactly once per CLOSED to OPEN transition edge.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Breaker gates calls against a remote service. It is CLOSED until the
// shared failure count reaches the threshold, OPEN until the recovery delay
// elapses, then half-open eligible: one probe system-wide is allowed through
// and its outcome decides whether the circuit closes or re-opens.
type Breaker struct {
	name  string
	store StateStore
	mutex *lock.Mutex

	threshold     int
	recoveryDelay time.Duration
	probeTTL      time.Duration
	traceEnabled  bool

	notifier Notifier
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) { b.threshold = n }
}

// WithRecoveryDelay sets how long the circuit stays open before a probe is
// allowed.
func WithRecoveryDelay(d time.Duration) Option {
	return func(b *Breaker) { b.recoveryDelay = d }
}

// WithProbeTTL bounds how long a crashed prober can hold the probe claim.
func WithProbeTTL(d time.Duration) Option {
	return func(b *Breaker) { b.probeTTL = d }
}

// WithTracing enables otel spans around availability checks.
func WithTracing() Option {
	return func(b *Breaker) { b.traceEnabled = true }
}

// New returns a Breaker named after the remote it guards. The mutex
// serializes half-open probes across processes; its bounded wait is the only
// blocking the breaker ever does.
func New(name string, store StateStore, mutex *lock.Mutex, opts ...Option) *Breaker {
	b := &Breaker{
		name:          name,
		store:         store,
		mutex:         mutex,
		threshold:     defaultFailureThreshold,
		recoveryDelay: defaultRecoveryDelay,
		probeTTL:      defaultProbeTTL,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetFailureNotifier installs the notifier invoked on the open transition.
func (b *Breaker) SetFailureNotifier(n Notifier) {
	b.notifier = n
}

// IsAvailable reports whether a call against the remote may be attempted.
// Closed circuits always allow. Open circuits deny until the recovery delay
// has elapsed; after that at most one caller system-wide gets true, and only
// after winning both the probe claim and the probe mutex. Every ambiguous
// store or lock signal reads as unavailable.
func (b *Breaker) IsAvailable(ctx context.Context) bool {
	var span trace.Span
	if b.traceEnabled {
		ctx, span = tracer.Start(ctx, "Breaker.IsAvailable")
		defer span.End()
	}

	failures, err := b.store.Failures(ctx)
	if err != nil {
		return false
	}
	if failures < b.threshold {
		if b.traceEnabled {
			span.SetAttributes(attribute.String("syncgate.breaker.state", "closed"))
		}
		return true
	}

	openedAt, ok, err := b.store.OpenedAt(ctx)
	if err != nil {
		return false
	}
	if !ok {
		// Threshold reached but the open transition has not landed yet.
		return false
	}
	if time.Since(openedAt) < b.recoveryDelay {
		if b.traceEnabled {
			span.SetAttributes(attribute.String("syncgate.breaker.state", "open"))
		}
		return false
	}

	// Half-open eligible: cheap claim first, distributed mutex second. A
	// failed mutex acquire leaves the claim in place; the probe outcome call
	// clears it.
	claimed, err := b.store.ClaimProbe(ctx, b.probeTTL)
	if err != nil || !claimed {
		return false
	}
	if !b.mutex.Acquire(ctx) {
		return false
	}
	if b.traceEnabled {
		span.SetAttributes(attribute.String("syncgate.breaker.state", "half_open"))
	}
	metrics.BreakerProbesTotal.Inc()
	return true
}

// RecordFailure counts one failed attempt. Crossing the threshold while
// closed opens the circuit and fires the notifier once for the edge. When the
// failure is the outcome of a half-open probe it re-extends the open window
// instead, and releases the probe guards.
func (b *Breaker) RecordFailure(ctx context.Context) {
	failures, err := b.store.IncrFailures(ctx)
	if err != nil {
		return
	}

	_, open, err := b.store.OpenedAt(ctx)
	if err != nil {
		return
	}

	if !open {
		if failures == b.threshold {
			b.open(ctx)
			b.notifyOpen(ctx, failures)
		}
		return
	}

	// Already open: a counted failure only matters if a probe was in flight.
	probing, err := b.store.ProbeClaimed(ctx)
	if err != nil || !probing {
		b.mutex.Release(ctx)
		return
	}
	b.open(ctx)
	_ = b.store.ClearProbe(ctx)
	b.mutex.Release(ctx)
	slog.Warn("syncgate: half-open probe failed, circuit re-opened", "breaker", b.name)
}

// RecordSuccess resets the failure streak and closes the circuit from any
// prior state. It is safe to call when the circuit is already closed.
func (b *Breaker) RecordSuccess(ctx context.Context) {
	wasOpen := false
	if _, open, err := b.store.OpenedAt(ctx); err == nil && open {
		wasOpen = true
	}
	_ = b.store.ResetFailures(ctx)
	_ = b.store.ClearOpenedAt(ctx)
	_ = b.store.ClearProbe(ctx)
	b.mutex.Release(ctx)
	if wasOpen {
		metrics.BreakerStateGauge.WithLabelValues(b.name).Set(0)
		slog.Info("syncgate: circuit closed", "breaker", b.name)
	}
}

// RecordBatch folds a whole batch of outcomes into a single weighted event.
// A failure ratio at or above 0.8 counts as one RecordFailure, anything
// below as one RecordSuccess. An empty batch is a no-op.
func (b *Breaker) RecordBatch(ctx context.Context, successCount, failureCount int) {
	total := successCount + failureCount
	if total == 0 {
		return
	}
	if float64(failureCount)/float64(total) >= batchFailureRatio {
		b.RecordFailure(ctx)
		return
	}
	b.RecordSuccess(ctx)
}

func (b *Breaker) open(ctx context.Context) {
	_ = b.store.SetOpenedAt(ctx, time.Now())
	metrics.BreakerOpenTotal.WithLabelValues(b.name).Inc()
	metrics.BreakerStateGauge.WithLabelValues(b.name).Set(1)
}

func (b *Breaker) notifyOpen(ctx context.Context, failures int) {
	slog.Warn("syncgate: circuit opened", "breaker", b.name, "failures", failures)
	if b.notifier == nil {
		return
	}
	subject := fmt.Sprintf("Circuit breaker opened: %s", b.name)
	body := fmt.Sprintf("The circuit for %q opened after %d consecutive failures. Synchronization attempts are paused until the remote recovers.", b.name, failures)
	if err := b.notifier.Notify(ctx, subject, body); err != nil {
		slog.Warn("syncgate: failure notification not delivered", "breaker", b.name, "error", err)
	}
}
