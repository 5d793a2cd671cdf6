package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/security"
)

// DatasetRef identifies a dataset in one role of one analysis.
type DatasetRef struct {
	GalaxyID        string
	AnalysisID      uint
	HistoryID       uint
	HistoryGalaxyID string
	OwnerID         string
	Role            core.Role
	JobID           uint // output role only
}

// DatasetRecord is a persisted dataset seen through one of its junctions.
type DatasetRecord struct {
	Dataset    *core.Dataset
	Role       core.Role
	JunctionID uint
	State      core.DatasetState
}

// DatasetSync mirrors remote datasets in their input or output role.
type DatasetSync struct {
	deps *deps
}

// GetOrCreate returns the local record of a dataset. When none exists and the
// remote dataset is terminal, its payload is persisted to object storage and
// the rows are inserted. A nil record means the dataset is not ready yet.
func (s *DatasetSync) GetOrCreate(ctx context.Context, ref DatasetRef) (*DatasetRecord, error) {
	rec, err := s.find(ctx, ref)
	if err != nil || rec != nil {
		return rec, err
	}

	desc, err := s.deps.remote.GetDataset(ctx, ref.GalaxyID, ref.HistoryGalaxyID)
	if err != nil {
		return nil, err
	}
	if !desc.State.IsTerminal() {
		return nil, nil
	}

	payload := []byte{}
	if desc.FileSize > 0 {
		payload, err = s.deps.remote.DownloadDataset(ctx, ref.HistoryGalaxyID, ref.GalaxyID)
		if err != nil {
			return nil, err
		}
	}

	key := security.ObjectKey(desc.Name)
	objectID, err := s.deps.blobs.Upload(ctx, key, payload)
	if err != nil {
		return nil, fmt.Errorf("upload dataset %s: %w", ref.GalaxyID, err)
	}

	ds := &core.Dataset{
		GalaxyID:        ref.GalaxyID,
		HistoryID:       ref.HistoryID,
		OwnerID:         ref.OwnerID,
		Name:            truncate(desc.Name, 256),
		StorageKey:      key,
		StorageObjectID: objectID,
		UUID:            desc.UUID,
		Extension:       desc.Extension,
		DataLines:       desc.MetadataCommentLines,
		MiscBlurb:       truncate(desc.MiscBlurb, 512),
		FileSize:        desc.FileSize,
	}
	if ds.UUID == "" {
		ds.UUID = uuid.NewString()
	}

	rec = &DatasetRecord{Dataset: ds, Role: ref.Role, State: desc.State}
	switch ref.Role {
	case core.RoleInput:
		in := &core.AnalysisInput{State: desc.State, AnalysisID: ref.AnalysisID}
		if err := s.deps.store.CreateInput(ctx, ds, in); err != nil {
			return nil, err
		}
		rec.JunctionID = in.ID
		rec.State = in.State
	case core.RoleOutput:
		out := &core.AnalysisOutput{State: desc.State, AnalysisID: ref.AnalysisID, JobID: ref.JobID}
		if err := s.deps.store.CreateOutput(ctx, ds, out, desc.Tags); err != nil {
			return nil, err
		}
		rec.JunctionID = out.ID
		rec.State = out.State
	default:
		return nil, fmt.Errorf("reconcile: unknown dataset role %q", ref.Role)
	}

	s.deps.logger.Info("dataset persisted",
		"dataset_id", ds.ID, "galaxy_id", ds.GalaxyID, "role", ref.Role, "bytes", len(payload))
	s.deps.emit(&core.DatasetPersisted{Dataset: ds, Role: ref.Role, Timestamp: s.deps.now()})
	return rec, nil
}

func (s *DatasetSync) find(ctx context.Context, ref DatasetRef) (*DatasetRecord, error) {
	switch ref.Role {
	case core.RoleInput:
		in, err := s.deps.store.FindInput(ctx, ref.GalaxyID, ref.HistoryID, ref.OwnerID)
		if err != nil || in == nil {
			return nil, err
		}
		return &DatasetRecord{Dataset: in.Dataset, Role: core.RoleInput, JunctionID: in.ID, State: in.State}, nil
	case core.RoleOutput:
		out, err := s.deps.store.FindOutput(ctx, ref.GalaxyID, ref.HistoryID, ref.JobID, ref.OwnerID)
		if err != nil || out == nil {
			return nil, err
		}
		return &DatasetRecord{Dataset: out.Dataset, Role: core.RoleOutput, JunctionID: out.ID, State: out.State}, nil
	default:
		return nil, fmt.Errorf("reconcile: unknown dataset role %q", ref.Role)
	}
}

// Synchronize brings the junction state of a dataset up to date.
func (s *DatasetSync) Synchronize(ctx context.Context, ref DatasetRef) error {
	rec, err := s.GetOrCreate(ctx, ref)
	if err != nil {
		return err
	}
	if rec == nil || rec.State.IsTerminal() {
		return nil
	}

	desc, err := s.deps.remote.GetDataset(ctx, ref.GalaxyID, ref.HistoryGalaxyID)
	if err != nil {
		return err
	}
	if desc.State == rec.State {
		return nil
	}

	if ref.Role == core.RoleInput {
		err = s.deps.store.UpdateInputState(ctx, rec.JunctionID, desc.State)
	} else {
		err = s.deps.store.UpdateOutputState(ctx, rec.JunctionID, desc.State)
	}
	if err != nil {
		return err
	}
	s.deps.stateChanged("analysis_"+string(ref.Role), rec.JunctionID, string(rec.State), string(desc.State))
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
