package reconcile

import (
	"context"
	"errors"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// JobRef identifies a job of an analysis along with the outputs the
// invocation declares for it.
type JobRef struct {
	GalaxyID        string
	StepID          int
	AnalysisID      uint
	HistoryID       uint
	HistoryGalaxyID string
	OutputIDs       []string
	OwnerID         string
}

// JobSync mirrors remote jobs.
type JobSync struct {
	deps     *deps
	datasets *DatasetSync
}

// GetOrCreate returns the local job, fetching and inserting it on a miss.
func (s *JobSync) GetOrCreate(ctx context.Context, analysisID uint, galaxyJobID string, stepID int, ownerID string) (*core.Job, error) {
	job, err := s.deps.store.GetJob(ctx, galaxyJobID, analysisID, ownerID)
	if err != nil || job != nil {
		return job, err
	}

	desc, err := s.deps.remote.GetJob(ctx, galaxyJobID)
	if err != nil {
		return nil, err
	}
	job = &core.Job{
		GalaxyID:   galaxyJobID,
		AnalysisID: analysisID,
		StepID:     stepID,
		ToolID:     desc.ToolID,
		State:      desc.State,
		ExitCode:   desc.ExitCode,
		Stdout:     desc.Stdout,
		Stderr:     desc.Stderr,
		OwnerID:    ownerID,
		CreatedAt:  desc.Created(),
	}
	if err := s.deps.store.UpsertJob(ctx, job); err != nil {
		return nil, err
	}
	s.deps.logger.Info("job created", "job_id", job.ID, "galaxy_id", galaxyJobID, "state", job.State)
	return job, nil
}

// IsSync reports whether the job and every declared output are settled. A
// positive answer is persisted on the job.
func (s *JobSync) IsSync(ctx context.Context, job *core.Job, outputIDs []string) (bool, error) {
	if job.IsSync {
		return true, nil
	}
	if !job.State.IsSyncTerminal() {
		return false, nil
	}

	outputs, err := s.deps.store.ListOutputs(ctx, job.ID)
	if err != nil {
		return false, err
	}
	settled := make(map[string]bool, len(outputs))
	for _, out := range outputs {
		if out.Dataset != nil && out.State.IsTerminal() {
			settled[out.Dataset.GalaxyID] = true
		}
	}
	for _, id := range outputIDs {
		if !settled[id] {
			return false, nil
		}
	}

	if err := s.deps.store.MarkJobSync(ctx, job.ID); err != nil {
		return false, err
	}
	job.IsSync = true
	s.deps.synced("job", job.ID)
	return true, nil
}

// Synchronize mirrors one job and its declared outputs.
func (s *JobSync) Synchronize(ctx context.Context, ref JobRef) error {
	job, err := s.GetOrCreate(ctx, ref.AnalysisID, ref.GalaxyID, ref.StepID, ref.OwnerID)
	if err != nil {
		return err
	}
	synced, err := s.IsSync(ctx, job, ref.OutputIDs)
	if err != nil || synced {
		return err
	}

	// Outputs are visited even when the job has settled: a dataset may turn
	// terminal after the job that produced it.
	refs := make([]DatasetRef, 0, len(ref.OutputIDs))
	for _, id := range ref.OutputIDs {
		refs = append(refs, DatasetRef{
			GalaxyID:        id,
			AnalysisID:      ref.AnalysisID,
			HistoryID:       ref.HistoryID,
			HistoryGalaxyID: ref.HistoryGalaxyID,
			OwnerID:         ref.OwnerID,
			Role:            core.RoleOutput,
			JobID:           job.ID,
		})
	}
	fanErr := forEach(ctx, refs, s.deps.concurrency, s.datasets.Synchronize)

	if !job.State.IsSyncTerminal() {
		if err := s.refresh(ctx, job); err != nil {
			return errors.Join(fanErr, err)
		}
	}
	if fanErr != nil {
		return fanErr
	}

	_, err = s.IsSync(ctx, job, ref.OutputIDs)
	return err
}

func (s *JobSync) refresh(ctx context.Context, job *core.Job) error {
	desc, err := s.deps.remote.GetJob(ctx, job.GalaxyID)
	if err != nil {
		return err
	}
	if desc.State == job.State {
		return nil
	}
	if err := s.deps.store.UpdateJob(ctx, job.ID, desc.State, desc.Stdout, desc.Stderr); err != nil {
		return err
	}
	s.deps.stateChanged("job", job.ID, string(job.State), string(desc.State))
	job.State = desc.State
	job.Stdout = desc.Stdout
	job.Stderr = desc.Stderr
	return nil
}
