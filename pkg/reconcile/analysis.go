package reconcile

import (
	"context"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// AnalysisSync mirrors the invocation behind an analysis.
type AnalysisSync struct {
	deps      *deps
	histories *HistorySync
}

// Synchronize runs the history pass of an analysis, then refreshes the
// invocation. Once the invocation is terminal and the history is sync the
// analysis is marked sync and never polled again.
func (s *AnalysisSync) Synchronize(ctx context.Context, analysisID uint, ownerID string) error {
	a, err := s.deps.store.GetAnalysis(ctx, analysisID, ownerID)
	if err != nil {
		return err
	}
	if a == nil {
		return core.Missing("analysis", analysisID, ownerID)
	}
	if a.IsSync {
		return nil
	}

	if err := s.histories.Synchronize(ctx, a.HistoryID, ownerID); err != nil {
		return err
	}

	inv, err := s.deps.remote.GetInvocation(ctx, a.GalaxyID)
	if err != nil {
		return err
	}

	if !a.State.IsTerminal() {
		cached := a.Invocation.Data()
		if inv.State == a.State && inv.UpdateTime == cached.UpdateTime {
			return nil
		}
		if err := s.deps.store.UpdateAnalysisState(ctx, a.ID, inv.State, inv); err != nil {
			return err
		}
		if inv.State != a.State {
			s.deps.stateChanged("analysis", a.ID, string(a.State), string(inv.State))
		}
		return nil
	}

	synced, err := s.histories.IsSync(ctx, a.HistoryID, a.ID, ownerID)
	if err != nil || !synced {
		return err
	}
	if err := s.deps.store.MarkAnalysisSync(ctx, a.ID); err != nil {
		return err
	}
	s.deps.synced("analysis", a.ID)
	return nil
}

// SynchronizeAll runs Synchronize over every unsynced analysis of an owner.
// One analysis failing does not stop the others.
func (s *AnalysisSync) SynchronizeAll(ctx context.Context, ownerID string) error {
	list, err := s.deps.store.ListUnsyncedAnalyses(ctx, ownerID)
	if err != nil {
		return err
	}
	return forEach(ctx, list, s.deps.concurrency, func(ctx context.Context, a *core.Analysis) error {
		err := s.Synchronize(ctx, a.ID, ownerID)
		if err != nil {
			s.deps.logger.Error("analysis synchronization failed", "analysis_id", a.ID, "owner_id", ownerID, "error", err)
		}
		return err
	})
}

// AllSynced reports whether every analysis of an owner is sync.
func (s *AnalysisSync) AllSynced(ctx context.Context, ownerID string) (bool, error) {
	list, err := s.deps.store.ListUnsyncedAnalyses(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return len(list) == 0, nil
}
