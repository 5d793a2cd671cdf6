package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// Syncer runs synchronization passes for one owner.
// *reconcile.AnalysisSync implements it.
type Syncer interface {
	SynchronizeAll(ctx context.Context, ownerID string) error
	AllSynced(ctx context.Context, ownerID string) (bool, error)
}

// OwnerSource lists the owners a round visits.
type OwnerSource func(ctx context.Context) ([]string, error)

// Scheduler drives passes until an owner's analyses are all sync.
type Scheduler struct {
	syncer Syncer
	config Config

	mu      sync.Mutex
	running map[string]*atomic.Bool
}

// New creates a Scheduler.
func New(syncer Syncer, opts ...Option) *Scheduler {
	config := defaultConfig()
	for _, opt := range opts {
		opt.applyScheduler(&config)
	}
	return &Scheduler{
		syncer:  syncer,
		config:  config,
		running: make(map[string]*atomic.Bool),
	}
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.config
}

func (s *Scheduler) guard(ownerID string) *atomic.Bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.running[ownerID]
	if !ok {
		g = &atomic.Bool{}
		s.running[ownerID] = g
	}
	return g
}

// RunPass runs one pass over the unsynced analyses of an owner and reports
// whether all of them are sync afterwards. A pass requested while another is
// in flight for the same owner is dropped with ErrPassInProgress.
//
// Failures of single analyses are joined into the returned error; the
// boolean is still meaningful in that case.
func (s *Scheduler) RunPass(ctx context.Context, ownerID string) (bool, error) {
	return s.runPass(ctx, ownerID, 1)
}

func (s *Scheduler) runPass(ctx context.Context, ownerID string, attempt int) (bool, error) {
	g := s.guard(ownerID)
	if !g.CompareAndSwap(false, true) {
		return false, core.ErrPassInProgress
	}
	defer g.Store(false)

	passErr := s.syncer.SynchronizeAll(ctx, ownerID)
	done, err := s.syncer.AllSynced(ctx, ownerID)
	if err != nil {
		return false, errors.Join(passErr, err)
	}

	if s.config.events != nil {
		s.config.events.Emit(&core.PassCompleted{
			OwnerID:   ownerID,
			Attempt:   attempt,
			AllSynced: done,
			Timestamp: time.Now(),
		})
	}
	return done, passErr
}

// Run repeats passes for an owner, Interval apart, until every analysis is
// sync. It gives up with ErrBudgetExhausted after RetryBudget passes.
func (s *Scheduler) Run(ctx context.Context, ownerID string) error {
	log := s.config.logger.With("owner_id", ownerID)
	budget := s.config.RetryBudget

	for attempt := 1; attempt <= budget; attempt++ {
		done, err := s.runPass(ctx, ownerID, attempt)
		if errors.Is(err, core.ErrPassInProgress) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			log.Warn("synchronization pass failed", "attempt", attempt, "error", err)
		}
		if done {
			log.Info("owner synchronized", "passes", attempt)
			return nil
		}
		if attempt == budget {
			break
		}

		timer := time.NewTimer(s.config.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	log.Warn("retry budget exhausted", "passes", budget)
	return fmt.Errorf("%w: owner %s after %d passes", core.ErrBudgetExhausted, ownerID, budget)
}

// Start runs rounds on the configured schedule until ctx is cancelled. Each
// round lists owners and runs them, at most Concurrency at a time. The first
// round starts on the first tick.
func (s *Scheduler) Start(ctx context.Context, owners OwnerSource) error {
	ticker := time.NewTicker(s.config.Tick)
	defer ticker.Stop()

	var lastRun time.Time
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := time.Now()
			if now.Before(s.config.Schedule.Next(lastRun)) {
				continue
			}
			lastRun = now
			s.round(ctx, owners)
		}
	}
}

func (s *Scheduler) round(ctx context.Context, owners OwnerSource) {
	var list []string
	err := retryWithBackoff(ctx, s.config.OwnerRetry, func() error {
		var listErr error
		list, listErr = owners(ctx)
		return listErr
	})
	if err != nil {
		if ctx.Err() == nil {
			s.config.logger.Error("failed to list owners", "error", err)
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)
	for _, ownerID := range list {
		g.Go(func() error {
			err := s.Run(ctx, ownerID)
			if err != nil && ctx.Err() == nil && !errors.Is(err, core.ErrPassInProgress) {
				s.config.logger.Error("owner run failed", "owner_id", ownerID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}
