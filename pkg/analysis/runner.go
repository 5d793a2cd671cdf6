package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/security"
)

// Runner submits invocations and exposes the mirrored analyses of an owner.
type Runner struct {
	store  core.Storage
	remote core.Remote
	blobs  core.BlobStore
	logger *slog.Logger
	urlTTL time.Duration
}

// New creates a Runner.
func New(store core.Storage, remote core.Remote, blobs core.BlobStore, opts ...Option) *Runner {
	r := &Runner{
		store:  store,
		remote: remote,
		blobs:  blobs,
		logger: slog.Default(),
		urlTTL: DefaultURLTTL,
	}
	for _, opt := range opts {
		opt.applyRunner(r)
	}
	return r
}

// SubmitRequest describes a workflow invocation to start.
type SubmitRequest struct {
	Name             string
	HistoryGalaxyID  string
	HistoryID        uint
	WorkflowGalaxyID string
	WorkflowID       uint
	OwnerID          string
	Inputs           map[string]core.WorkflowInput
	Parameters       map[string]any
	Datamap          map[string]any
}

// SubmitResult holds the ids of the rows Submit created.
type SubmitResult struct {
	AnalysisID uint
	InputIDs   []uint
}

// Submit invokes the workflow remotely and records the analysis with its
// inputs. Inputs without a local dataset id are passed to the remote but get
// no input row.
func (r *Runner) Submit(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	if err := security.ValidateOwnerID(req.OwnerID); err != nil {
		return nil, err
	}
	params, err := marshalJSON(req.Parameters)
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	datamap, err := marshalJSON(req.Datamap)
	if err != nil {
		return nil, fmt.Errorf("encode datamap: %w", err)
	}

	created, err := r.remote.Invoke(ctx, req.HistoryGalaxyID, req.WorkflowGalaxyID, req.Inputs, req.Parameters)
	if err != nil {
		return nil, err
	}
	inv, err := r.remote.GetInvocation(ctx, created.ID)
	if err != nil {
		return nil, err
	}

	a := &core.Analysis{
		Name:       req.Name,
		State:      inv.State,
		Parameters: params,
		Datamap:    datamap,
		Invocation: datatypes.NewJSONType(*inv),
		OwnerID:    req.OwnerID,
		HistoryID:  req.HistoryID,
		WorkflowID: req.WorkflowID,
		GalaxyID:   inv.ID,
	}
	if err := r.store.CreateAnalysis(ctx, a); err != nil {
		r.logger.Error("invocation started but analysis not recorded",
			"invocation_id", inv.ID, "owner_id", req.OwnerID, "error", err)
		return nil, err
	}

	log := r.logger.With("analysis_id", a.ID, "owner_id", req.OwnerID)
	log.Info("analysis submitted", "invocation_id", inv.ID, "state", inv.State)

	res := &SubmitResult{AnalysisID: a.ID}
	keys := make([]string, 0, len(req.Inputs))
	for k := range req.Inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	historyGalaxyIDs := map[uint]string{}
	for _, k := range keys {
		input := req.Inputs[k]
		if input.DBID == 0 {
			continue
		}
		in, err := r.addInput(ctx, a, input.DBID, historyGalaxyIDs)
		if err != nil {
			log.Error("failed to record analysis input", "step", k, "dataset_id", input.DBID, "error", err)
			return res, err
		}
		res.InputIDs = append(res.InputIDs, in.ID)
	}
	return res, nil
}

func (r *Runner) addInput(ctx context.Context, a *core.Analysis, datasetID uint, historyGalaxyIDs map[uint]string) (*core.AnalysisInput, error) {
	ds, err := r.store.GetDataset(ctx, datasetID, a.OwnerID)
	if err != nil {
		return nil, err
	}
	if ds == nil {
		return nil, core.Missing("dataset", datasetID, a.OwnerID)
	}

	hid, ok := historyGalaxyIDs[ds.HistoryID]
	if !ok {
		h, err := r.store.GetHistory(ctx, ds.HistoryID, a.OwnerID)
		if err != nil {
			return nil, err
		}
		if h == nil {
			return nil, core.Missing("history", ds.HistoryID, a.OwnerID)
		}
		hid = h.GalaxyID
		historyGalaxyIDs[ds.HistoryID] = hid
	}

	desc, err := r.remote.GetDataset(ctx, ds.GalaxyID, hid)
	if err != nil {
		return nil, err
	}
	in := &core.AnalysisInput{State: desc.State, DatasetID: ds.ID, AnalysisID: a.ID}
	if err := r.store.AddInput(ctx, in); err != nil {
		return nil, err
	}
	return in, nil
}

// CreateHistory creates a remote history and its local row.
func (r *Runner) CreateHistory(ctx context.Context, name, ownerID string) (*core.History, error) {
	if err := security.ValidateOwnerID(ownerID); err != nil {
		return nil, err
	}
	desc, err := r.remote.CreateHistory(ctx, name)
	if err != nil {
		return nil, err
	}
	h := &core.History{
		Name:     desc.Name,
		GalaxyID: desc.ID,
		State:    core.HistoryNew,
		OwnerID:  ownerID,
	}
	if err := r.store.CreateHistory(ctx, h); err != nil {
		return nil, err
	}
	r.logger.Info("history created", "history_id", h.ID, "galaxy_id", h.GalaxyID, "owner_id", ownerID)
	return h, nil
}

// DeleteAnalysis purges the remote history of an analysis, then deletes the
// analysis and everything mirrored under it.
func (r *Runner) DeleteAnalysis(ctx context.Context, analysisID uint, ownerID string) error {
	a, err := r.store.GetAnalysis(ctx, analysisID, ownerID)
	if err != nil {
		return err
	}
	if a == nil {
		return core.Missing("analysis", analysisID, ownerID)
	}
	h, err := r.store.GetHistory(ctx, a.HistoryID, ownerID)
	if err != nil {
		return err
	}
	if h != nil {
		if err := r.remote.DeleteHistory(ctx, h.GalaxyID); err != nil {
			return err
		}
	}
	if err := r.store.DeleteAnalysis(ctx, analysisID, ownerID); err != nil {
		return err
	}
	r.logger.Info("analysis deleted", "analysis_id", analysisID, "owner_id", ownerID)
	return nil
}

// GetAnalysis returns an analysis or a MissingError.
func (r *Runner) GetAnalysis(ctx context.Context, analysisID uint, ownerID string) (*core.Analysis, error) {
	a, err := r.store.GetAnalysis(ctx, analysisID, ownerID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, core.Missing("analysis", analysisID, ownerID)
	}
	return a, nil
}

// ListAnalyses returns every analysis of an owner.
func (r *Runner) ListAnalyses(ctx context.Context, ownerID string) ([]*core.Analysis, error) {
	return r.store.ListAnalyses(ctx, ownerID)
}

// ListWorkflowAnalyses returns the analyses of an owner that ran a workflow.
func (r *Runner) ListWorkflowAnalyses(ctx context.Context, workflowID uint, ownerID string) ([]*core.Analysis, error) {
	return r.store.ListWorkflowAnalyses(ctx, workflowID, ownerID)
}

// GetHistory returns a history or a MissingError.
func (r *Runner) GetHistory(ctx context.Context, historyID uint, ownerID string) (*core.History, error) {
	h, err := r.store.GetHistory(ctx, historyID, ownerID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, core.Missing("history", historyID, ownerID)
	}
	return h, nil
}

// ListJobs returns the mirrored jobs of an analysis.
func (r *Runner) ListJobs(ctx context.Context, analysisID uint, ownerID string) ([]*core.Job, error) {
	return r.store.ListJobs(ctx, analysisID, ownerID)
}

// ListInputs returns the inputs of an analysis with their datasets.
func (r *Runner) ListInputs(ctx context.Context, analysisID uint, ownerID string) ([]*core.AnalysisInput, error) {
	return r.store.ListInputs(ctx, analysisID, ownerID)
}

// ListOutputs returns the outputs of every job of an analysis.
func (r *Runner) ListOutputs(ctx context.Context, analysisID uint, ownerID string) ([]*core.AnalysisOutput, error) {
	jobs, err := r.store.ListJobs(ctx, analysisID, ownerID)
	if err != nil {
		return nil, err
	}
	var all []*core.AnalysisOutput
	for _, job := range jobs {
		outputs, err := r.store.ListOutputs(ctx, job.ID)
		if err != nil {
			return nil, err
		}
		all = append(all, outputs...)
	}
	return all, nil
}

// DatasetURL returns a time-limited download URL for a persisted dataset.
func (r *Runner) DatasetURL(ctx context.Context, datasetID uint, ownerID string) (string, error) {
	ds, err := r.store.GetDataset(ctx, datasetID, ownerID)
	if err != nil {
		return "", err
	}
	if ds == nil {
		return "", core.Missing("dataset", datasetID, ownerID)
	}
	return r.blobs.SignedURL(ctx, ds.StorageKey, r.urlTTL)
}

func marshalJSON(v map[string]any) (datatypes.JSON, error) {
	if v == nil {
		return datatypes.JSON("{}"), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}
