package reconcile

import (
	"context"
	"errors"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// HistorySync mirrors the history an analysis runs in, and through it the
// analysis inputs and jobs.
type HistorySync struct {
	deps     *deps
	datasets *DatasetSync
	jobs     *JobSync
}

// IsSync reports whether the history is settled: its state is terminal and
// every job the cached invocation declares is sync. A cached invocation
// without an outputs list declares nothing yet and is never settled. A
// positive answer is persisted on the history.
func (s *HistorySync) IsSync(ctx context.Context, historyID, analysisID uint, ownerID string) (bool, error) {
	a, h, err := s.deps.store.GetAnalysisByHistory(ctx, historyID, ownerID)
	if err != nil {
		return false, err
	}
	if a == nil || a.ID != analysisID {
		return false, nil
	}
	return s.isSync(ctx, a, h)
}

func (s *HistorySync) isSync(ctx context.Context, a *core.Analysis, h *core.History) (bool, error) {
	if h.IsSync {
		return true, nil
	}
	if !h.State.IsTerminal() {
		return false, nil
	}

	inv := a.Invocation.Data()
	if inv.Outputs == nil {
		return false, nil
	}
	for _, entry := range inv.OutputMap() {
		job, err := s.deps.store.GetJob(ctx, entry.GalaxyJobID, a.ID, a.OwnerID)
		if err != nil {
			return false, err
		}
		if job == nil {
			return false, nil
		}
		ok, err := s.jobs.IsSync(ctx, job, entry.DatasetIDs)
		if err != nil || !ok {
			return false, err
		}
	}

	if err := s.deps.store.MarkHistorySync(ctx, h.ID); err != nil {
		return false, err
	}
	h.IsSync = true
	s.deps.synced("history", h.ID)
	return true, nil
}

// Synchronize runs one pass over a history: inputs, jobs with their outputs,
// then the history state itself.
func (s *HistorySync) Synchronize(ctx context.Context, historyID uint, ownerID string) error {
	a, h, err := s.deps.store.GetAnalysisByHistory(ctx, historyID, ownerID)
	if err != nil {
		return err
	}
	if a == nil || h == nil {
		return core.Missing("history", historyID, ownerID)
	}
	if h.IsSync {
		return nil
	}
	synced, err := s.isSync(ctx, a, h)
	if err != nil || synced {
		return err
	}

	log := s.deps.logger.With("history_id", h.ID, "analysis_id", a.ID, "owner_id", ownerID)

	inputs, err := s.deps.store.ListInputs(ctx, a.ID, ownerID)
	if err != nil {
		return err
	}
	inputRefs, err := s.inputRefs(ctx, a, h, inputs)
	if err != nil {
		return err
	}
	inputErr := forEach(ctx, inputRefs, s.deps.concurrency, s.datasets.Synchronize)

	inv := a.Invocation.Data()
	var jobRefs []JobRef
	for _, entry := range inv.OutputMap() {
		jobRefs = append(jobRefs, JobRef{
			GalaxyID:        entry.GalaxyJobID,
			StepID:          entry.StepID,
			AnalysisID:      a.ID,
			HistoryID:       h.ID,
			HistoryGalaxyID: h.GalaxyID,
			OutputIDs:       entry.DatasetIDs,
			OwnerID:         ownerID,
		})
	}
	jobErr := forEach(ctx, jobRefs, s.deps.concurrency, s.jobs.Synchronize)

	if siblings := errors.Join(inputErr, jobErr); siblings != nil {
		log.Warn("history siblings failed", "error", siblings)
		return siblings
	}

	if !h.State.IsTerminal() {
		desc, err := s.deps.remote.GetHistory(ctx, h.GalaxyID)
		if err != nil {
			return err
		}
		if desc.State != h.State {
			if err := s.deps.store.UpdateHistoryState(ctx, h.ID, desc.State); err != nil {
				return err
			}
			s.deps.stateChanged("history", h.ID, string(h.State), string(desc.State))
			h.State = desc.State
		}
	}

	// A history the remote reports as failed stops being polled and is shown
	// as running again. The failure is only visible in the logs.
	if h.State == core.HistoryError {
		log.Warn("history reported error, stopping synchronization")
		if err := s.deps.store.MarkHistorySync(ctx, h.ID); err != nil {
			return err
		}
		if err := s.deps.store.UpdateHistoryState(ctx, h.ID, core.HistoryRunning); err != nil {
			return err
		}
		s.deps.synced("history", h.ID)
		s.deps.stateChanged("history", h.ID, string(core.HistoryError), string(core.HistoryRunning))
		h.IsSync = true
		h.State = core.HistoryRunning
	}
	return nil
}

// inputRefs builds dataset refs for the stored inputs of an analysis. Inputs
// may live in a history other than the analysis history.
func (s *HistorySync) inputRefs(ctx context.Context, a *core.Analysis, h *core.History, inputs []*core.AnalysisInput) ([]DatasetRef, error) {
	galaxyIDs := map[uint]string{h.ID: h.GalaxyID}
	refs := make([]DatasetRef, 0, len(inputs))
	for _, in := range inputs {
		if in.Dataset == nil {
			continue
		}
		hid := in.Dataset.HistoryID
		if _, ok := galaxyIDs[hid]; !ok {
			other, err := s.deps.store.GetHistory(ctx, hid, a.OwnerID)
			if err != nil {
				return nil, err
			}
			if other == nil {
				return nil, core.Missing("history", hid, a.OwnerID)
			}
			galaxyIDs[hid] = other.GalaxyID
		}
		refs = append(refs, DatasetRef{
			GalaxyID:        in.Dataset.GalaxyID,
			AnalysisID:      a.ID,
			HistoryID:       hid,
			HistoryGalaxyID: galaxyIDs[hid],
			OwnerID:         a.OwnerID,
			Role:            core.RoleInput,
		})
	}
	return refs, nil
}
