package scheduler

import (
	"log/slog"
	"time"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/security"
)

// Defaults for a Scheduler built without options.
const (
	DefaultInterval    = 6 * time.Second
	DefaultRetryBudget = 10
	DefaultConcurrency = 4
)

// Option configures a Scheduler.
type Option interface {
	applyScheduler(*Config)
}

type optionFunc func(*Config)

func (f optionFunc) applyScheduler(c *Config) { f(c) }

// Config holds scheduler configuration.
type Config struct {
	// Interval is the fixed delay between two passes of one run.
	Interval time.Duration
	// RetryBudget is the number of passes a run makes before giving up.
	RetryBudget int
	// Schedule starts rounds in long-running mode.
	Schedule Schedule
	// Concurrency bounds how many owners are run at once in a round.
	Concurrency int
	// OwnerRetry governs retries of the owner listing at the start of a round.
	OwnerRetry RetryConfig
	// Tick is how often Start checks whether a round is due.
	Tick time.Duration

	logger *slog.Logger
	events Emitter
}

// Emitter receives PassCompleted events.
type Emitter interface {
	Emit(core.Event)
}

func defaultConfig() Config {
	return Config{
		Interval:    DefaultInterval,
		RetryBudget: DefaultRetryBudget,
		Schedule:    Every(time.Minute),
		Concurrency: DefaultConcurrency,
		OwnerRetry:  DefaultRetryConfig(),
		Tick:        time.Second,
		logger:      slog.Default(),
	}
}

// WithInterval sets the delay between passes.
func WithInterval(d time.Duration) Option {
	return optionFunc(func(c *Config) {
		if d > 0 {
			c.Interval = d
		}
	})
}

// WithRetryBudget sets the number of passes per run.
// Values are clamped to [1, MaxRetryBudget].
func WithRetryBudget(n int) Option {
	return optionFunc(func(c *Config) {
		c.RetryBudget = security.ClampRetryBudget(n)
	})
}

// WithSchedule sets when Start begins a round.
func WithSchedule(s Schedule) Option {
	return optionFunc(func(c *Config) {
		if s != nil {
			c.Schedule = s
		}
	})
}

// WithConcurrency bounds the owners run at once by Start.
// Values are clamped to [1, MaxConcurrency].
func WithConcurrency(n int) Option {
	return optionFunc(func(c *Config) {
		c.Concurrency = security.ClampConcurrency(n)
	})
}

// WithOwnerRetry overrides the retry policy of the owner listing.
func WithOwnerRetry(r RetryConfig) Option {
	return optionFunc(func(c *Config) {
		if r.MaxAttempts > 0 {
			c.OwnerRetry = r
		}
	})
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *Config) {
		if l != nil {
			c.logger = l
		}
	})
}

// WithEvents publishes a PassCompleted event after every pass.
func WithEvents(e Emitter) Option {
	return optionFunc(func(c *Config) {
		c.events = e
	})
}
