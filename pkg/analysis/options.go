package analysis

import (
	"log/slog"
	"time"
)

// DefaultURLTTL is how long dataset download URLs stay valid.
const DefaultURLTTL = 15 * time.Minute

// Option configures a Runner.
type Option interface {
	applyRunner(*Runner)
}

type optionFunc func(*Runner)

func (f optionFunc) applyRunner(r *Runner) { f(r) }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	})
}

// WithURLTTL sets the lifetime of URLs returned by DatasetURL.
func WithURLTTL(ttl time.Duration) Option {
	return optionFunc(func(r *Runner) {
		if ttl > 0 {
			r.urlTTL = ttl
		}
	})
}
