package notify

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Notifier delivers one notification. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) error
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, subject, body string) error

// Notify implements Notifier.
func (f Func) Notify(ctx context.Context, subject, body string) error {
	return f(ctx, subject, body)
}

// Multi fans a notification out to every transport concurrently and returns
// the first error. Slow or failing transports do not stop the others from
// receiving the message.
type Multi struct {
	transports []Notifier
}

// NewMulti returns a Multi over the given transports.
func NewMulti(transports ...Notifier) *Multi {
	return &Multi{transports: transports}
}

// Notify implements Notifier.
func (m *Multi) Notify(ctx context.Context, subject, body string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range m.transports {
		t := t
		g.Go(func() error {
			return t.Notify(gctx, subject, body)
		})
	}
	return g.Wait()
}
