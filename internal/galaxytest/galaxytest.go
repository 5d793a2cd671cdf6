// Package galaxytest provides in-memory doubles of the remote server and a
// write-counting store wrapper for tests.
package galaxytest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

var (
	_ core.Remote  = (*Remote)(nil)
	_ core.Storage = (*CountingStore)(nil)
)

// Remote is an in-memory Galaxy whose entities tests mutate between passes.
// Every call is counted per operation, keyed by names such as "get_job".
type Remote struct {
	mu          sync.Mutex
	invocations map[string]core.InvocationDescriptor
	jobs        map[string]core.JobDescriptor
	datasets    map[string]core.DatasetDescriptor
	histories   map[string]core.HistoryDescriptor
	payloads    map[string][]byte
	failures    map[string]error // keyed by op + ":" + id
	calls       map[string]int
	invoked     []InvokeCall
}

// NewRemote returns an empty Remote.
func NewRemote() *Remote {
	return &Remote{
		invocations: make(map[string]core.InvocationDescriptor),
		jobs:        make(map[string]core.JobDescriptor),
		datasets:    make(map[string]core.DatasetDescriptor),
		histories:   make(map[string]core.HistoryDescriptor),
		payloads:    make(map[string][]byte),
		failures:    make(map[string]error),
		calls:       make(map[string]int),
	}
}

// ErrNotFound is wrapped in the RemoteError returned for unknown ids.
var ErrNotFound = errors.New("not found")

func (f *Remote) enter(op, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if err, ok := f.failures[op+":"+id]; ok {
		return &core.RemoteError{Op: op, ID: id, Status: 500, Err: err}
	}
	return nil
}

func (f *Remote) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *Remote) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Remote) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = make(map[string]int)
}

func (f *Remote) Fail(op, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op+":"+id] = err
}

func (f *Remote) SetJob(j core.JobDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jobs[j.ID] = j
}

func (f *Remote) SetJobState(id string, state core.JobState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	j := f.jobs[id]
	j.State = state
	f.jobs[id] = j
}

func (f *Remote) SetDataset(d core.DatasetDescriptor, payload []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.datasets[d.ID] = d
	f.payloads[d.ID] = payload
}

func (f *Remote) SetDatasetState(id string, state core.DatasetState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.datasets[id]
	d.State = state
	f.datasets[id] = d
}

func (f *Remote) SetHistoryState(id string, state core.HistoryState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.histories[id] = core.HistoryDescriptor{ID: id, Name: id, State: state}
}

func (f *Remote) SetInvocation(inv core.InvocationDescriptor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invocations[inv.ID] = inv
}

// InvokeCall records the arguments of one Invoke.
type InvokeCall struct {
	HistoryID  string
	WorkflowID string
	Inputs     map[string]core.WorkflowInput
	Parameters map[string]any
}

// Invocations returns every Invoke call in order.
func (f *Remote) Invocations() []InvokeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]InvokeCall(nil), f.invoked...)
}

// Invoke starts invocation "inv-<workflowID>". A descriptor registered under
// that id with SetInvocation is what GetInvocation later returns; otherwise a
// new invocation is registered.
func (f *Remote) Invoke(_ context.Context, historyID, workflowID string, inputs map[string]core.WorkflowInput, parameters map[string]any) (*core.InvocationDescriptor, error) {
	if err := f.enter("invoke", workflowID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, InvokeCall{HistoryID: historyID, WorkflowID: workflowID, Inputs: inputs, Parameters: parameters})

	id := "inv-" + workflowID
	if _, ok := f.invocations[id]; !ok {
		f.invocations[id] = core.InvocationDescriptor{ID: id, State: core.InvocationNew, HistoryID: historyID, WorkflowID: workflowID}
	}
	return &core.InvocationDescriptor{ID: id, State: core.InvocationNew, HistoryID: historyID, WorkflowID: workflowID}, nil
}

func (f *Remote) GetInvocation(_ context.Context, id string) (*core.InvocationDescriptor, error) {
	if err := f.enter("get_invocation", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.invocations[id]
	if !ok {
		return nil, &core.RemoteError{Op: "get_invocation", ID: id, Status: 404, Err: ErrNotFound}
	}
	return &inv, nil
}

func (f *Remote) GetJob(_ context.Context, id string) (*core.JobDescriptor, error) {
	if err := f.enter("get_job", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	j, ok := f.jobs[id]
	if !ok {
		return nil, &core.RemoteError{Op: "get_job", ID: id, Status: 404, Err: ErrNotFound}
	}
	return &j, nil
}

func (f *Remote) GetDataset(_ context.Context, datasetID, _ string) (*core.DatasetDescriptor, error) {
	if err := f.enter("get_dataset", datasetID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.datasets[datasetID]
	if !ok {
		return nil, &core.RemoteError{Op: "get_dataset", ID: datasetID, Status: 404, Err: ErrNotFound}
	}
	return &d, nil
}

func (f *Remote) GetHistory(_ context.Context, id string) (*core.HistoryDescriptor, error) {
	if err := f.enter("get_history", id); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	h, ok := f.histories[id]
	if !ok {
		return nil, &core.RemoteError{Op: "get_history", ID: id, Status: 404, Err: ErrNotFound}
	}
	return &h, nil
}

func (f *Remote) DownloadDataset(_ context.Context, _, datasetID string) ([]byte, error) {
	if err := f.enter("download", datasetID); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.payloads[datasetID]...), nil
}

func (f *Remote) CreateHistory(_ context.Context, name string) (*core.HistoryDescriptor, error) {
	if err := f.enter("create_history", name); err != nil {
		return nil, err
	}
	return &core.HistoryDescriptor{ID: "hist-" + name, Name: name, State: core.HistoryNew}, nil
}

func (f *Remote) DeleteHistory(_ context.Context, id string) error {
	return f.enter("delete_history", id)
}

// ──────────────────────────────────────────────────────────────────────────────
// Store
// ──────────────────────────────────────────────────────────────────────────────

// CountingStore counts every write that reaches the wrapped store.
type CountingStore struct {
	core.Storage
	writes atomic.Int64
}

func (c *CountingStore) Writes() int64 { return c.writes.Load() }

func (c *CountingStore) ResetWrites() { c.writes.Store(0) }

func (c *CountingStore) UpdateAnalysisState(ctx context.Context, id uint, state core.InvocationState, inv *core.InvocationDescriptor) error {
	c.writes.Add(1)
	return c.Storage.UpdateAnalysisState(ctx, id, state, inv)
}

func (c *CountingStore) MarkAnalysisSync(ctx context.Context, id uint) error {
	c.writes.Add(1)
	return c.Storage.MarkAnalysisSync(ctx, id)
}

func (c *CountingStore) UpdateHistoryState(ctx context.Context, id uint, state core.HistoryState) error {
	c.writes.Add(1)
	return c.Storage.UpdateHistoryState(ctx, id, state)
}

func (c *CountingStore) MarkHistorySync(ctx context.Context, id uint) error {
	c.writes.Add(1)
	return c.Storage.MarkHistorySync(ctx, id)
}

func (c *CountingStore) UpsertJob(ctx context.Context, job *core.Job) error {
	c.writes.Add(1)
	return c.Storage.UpsertJob(ctx, job)
}

func (c *CountingStore) UpdateJob(ctx context.Context, id uint, state core.JobState, stdout, stderr string) error {
	c.writes.Add(1)
	return c.Storage.UpdateJob(ctx, id, state, stdout, stderr)
}

func (c *CountingStore) MarkJobSync(ctx context.Context, id uint) error {
	c.writes.Add(1)
	return c.Storage.MarkJobSync(ctx, id)
}

func (c *CountingStore) CreateInput(ctx context.Context, ds *core.Dataset, in *core.AnalysisInput) error {
	c.writes.Add(1)
	return c.Storage.CreateInput(ctx, ds, in)
}

func (c *CountingStore) AddInput(ctx context.Context, in *core.AnalysisInput) error {
	c.writes.Add(1)
	return c.Storage.AddInput(ctx, in)
}

func (c *CountingStore) UpdateInputState(ctx context.Context, id uint, state core.DatasetState) error {
	c.writes.Add(1)
	return c.Storage.UpdateInputState(ctx, id, state)
}

func (c *CountingStore) CreateOutput(ctx context.Context, ds *core.Dataset, out *core.AnalysisOutput, tags []string) error {
	c.writes.Add(1)
	return c.Storage.CreateOutput(ctx, ds, out, tags)
}

func (c *CountingStore) UpdateOutputState(ctx context.Context, id uint, state core.DatasetState) error {
	c.writes.Add(1)
	return c.Storage.UpdateOutputState(ctx, id, state)
}

func (c *CountingStore) UpsertTags(ctx context.Context, labels []string) ([]core.Tag, error) {
	c.writes.Add(1)
	return c.Storage.UpsertTags(ctx, labels)
}
