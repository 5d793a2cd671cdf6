package reconcile

import (
	"log/slog"
	"time"

	"github.com/jdziat/galaxy-sync/pkg/security"
)

// DefaultConcurrency bounds sibling fan-out when no option is given.
const DefaultConcurrency = 8

// Option configures a Reconciler.
type Option interface {
	applyReconciler(*deps)
}

type optionFunc func(*deps)

func (f optionFunc) applyReconciler(d *deps) { f(d) }

// WithConcurrency bounds the number of siblings synchronized at once.
func WithConcurrency(n int) Option {
	return optionFunc(func(d *deps) {
		d.concurrency = security.ClampConcurrency(n)
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(d *deps) {
		if l != nil {
			d.logger = l
		}
	})
}

// WithBus publishes events on an existing bus instead of a private one.
func WithBus(b *Bus) Option {
	return optionFunc(func(d *deps) {
		if b != nil {
			d.bus = b
		}
	})
}

// WithClock overrides the time source used for event timestamps.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(d *deps) {
		if now != nil {
			d.now = now
		}
	})
}
