// Package scheduler drives synchronization passes.
//
// A run makes up to RetryBudget passes for one owner, a fixed Interval apart,
// and stops as soon as every analysis of the owner is sync. Passes for the
// same owner never overlap: a pass requested while one is in flight is
// dropped with core.ErrPassInProgress.
//
// Start turns runs into a long-running loop. On every Schedule tick it lists
// owners and runs each of them:
//
//	s := scheduler.New(rec.Analyses,
//	    scheduler.WithInterval(6*time.Second),
//	    scheduler.WithSchedule(scheduler.Every(time.Minute)),
//	)
//	err := s.Start(ctx, store.ListUnsyncedOwners)
package scheduler
