package reconcile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/jdziat/galaxy-sync/internal/galaxytest"
	"github.com/jdziat/galaxy-sync/pkg/blob"
	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/storage"
)

const testOwner = "3f1d2c1e-0000-4000-8000-000000000001"

// ──────────────────────────────────────────────────────────────────────────────
// Environment
// ──────────────────────────────────────────────────────────────────────────────

type env struct {
	gorm   *storage.GormStorage
	store  *galaxytest.CountingStore
	remote *galaxytest.Remote
	blobs  *blob.MemoryStore
	rec    *Reconciler
}

func newEnv(t *testing.T, opts ...Option) *env {
	t.Helper()
	gs := galaxytest.NewStore(t)
	e := &env{
		gorm:   gs,
		store:  &galaxytest.CountingStore{Storage: gs},
		remote: galaxytest.NewRemote(),
		blobs:  blob.NewMemoryStore(),
	}
	e.rec = New(e.store, e.remote, e.blobs, opts...)
	return e
}

// seeded is one analysis whose cached invocation declares job-1 producing
// d2 and d3 from workflow step 1.
type seeded struct {
	analysis *core.Analysis
	history  *core.History
}

func standardInvocation(id string) core.InvocationDescriptor {
	return core.InvocationDescriptor{
		ID:    id,
		State: core.InvocationScheduled,
		Steps: []core.InvocationStep{
			{ID: "s0", WorkflowStepID: 0, OrderIndex: 0},
			{ID: "s1", WorkflowStepID: 1, JobID: "job-1", OrderIndex: 1},
		},
		Outputs: map[string]core.InvocationIO{
			"aligned": {ID: "d2", Src: "hda", WorkflowStepID: 1},
			"stats":   {ID: "d3", Src: "hda", WorkflowStepID: 1},
		},
	}
}

func (e *env) seed(t *testing.T, galaxyID string, inv core.InvocationDescriptor) seeded {
	t.Helper()
	ctx := context.Background()

	wf := &core.Workflow{GalaxyID: "wf-" + galaxyID, Name: "wf", OwnerID: testOwner}
	require.NoError(t, e.gorm.CreateWorkflow(ctx, wf))
	h := &core.History{GalaxyID: "hist-" + galaxyID, Name: "run", State: core.HistoryQueued, OwnerID: testOwner}
	require.NoError(t, e.gorm.CreateHistory(ctx, h))
	a := &core.Analysis{
		Name:       "analysis",
		State:      inv.State,
		OwnerID:    testOwner,
		HistoryID:  h.ID,
		WorkflowID: wf.ID,
		GalaxyID:   galaxyID,
		Invocation: datatypes.NewJSONType(inv),
	}
	require.NoError(t, e.gorm.CreateAnalysis(ctx, a))

	e.remote.SetInvocation(inv)
	e.remote.SetHistoryState(h.GalaxyID, core.HistoryRunning)
	return seeded{analysis: a, history: h}
}

func datasetDesc(id string, state core.DatasetState, size int64) core.DatasetDescriptor {
	return core.DatasetDescriptor{
		ID:        id,
		Name:      id + ".bam",
		State:     state,
		FileSize:  size,
		UUID:      "00000000-0000-4000-8000-0000000000" + id,
		Extension: "bam",
		Tags:      []string{"name:" + id},
	}
}

func (e *env) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.gorm.DB().Model(model).Count(&n).Error)
	return n
}
