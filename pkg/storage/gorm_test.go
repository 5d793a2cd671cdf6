package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// ──────────────────────────────────────────────────────────────────────────────
// Constructor / detection
// ──────────────────────────────────────────────────────────────────────────────

func TestNewGormStorage_IsSQLite(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s := NewGormStorage(db)
	assert.True(t, s.IsSQLite(), "should detect SQLite dialect")
	assert.Same(t, db, s.DB(), "DB() should return the same *gorm.DB passed in")
}

func TestNewGormStorage_NilDB(t *testing.T) {
	s := NewGormStorage(nil)
	assert.False(t, s.IsSQLite(), "nil db should not claim SQLite")
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStorage(t)
	require.NoError(t, s.Migrate(context.Background()))

	for _, table := range []string{"workflows", "analyses", "histories", "jobs", "datasets", "analysis_inputs", "analysis_outputs", "tags", "analysis_output_tags"} {
		assert.True(t, s.DB().Migrator().HasTable(table), table)
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Workflows and analyses
// ──────────────────────────────────────────────────────────────────────────────

func TestWorkflow_ScopedByOwner(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	got, err := s.GetWorkflow(ctx, f.workflow.ID, testOwner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "wf-inv-1", got.GalaxyID)

	other, err := s.GetWorkflow(ctx, f.workflow.ID, "someone-else")
	require.NoError(t, err)
	assert.Nil(t, other)
}

func TestCreateAnalysis_DefaultsJSONColumns(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	got, err := s.GetAnalysis(ctx, f.analysis.ID, testOwner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.JSONEq(t, `{}`, string(got.Datamap))
	assert.JSONEq(t, `{"threshold": 5}`, string(got.Parameters))
	assert.Equal(t, "inv-1", got.Invocation.Data().ID)
	assert.False(t, got.IsSync)
}

func TestGetAnalysis_NotFound(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.GetAnalysis(context.Background(), 999, testOwner)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestGetAnalysisByHistory(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	a, h, err := s.GetAnalysisByHistory(ctx, f.history.ID, testOwner)
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NotNil(t, h)
	assert.Equal(t, f.analysis.ID, a.ID)
	assert.Equal(t, "hist-inv-1", h.GalaxyID)

	a, h, err = s.GetAnalysisByHistory(ctx, f.history.ID, "someone-else")
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Nil(t, h)
}

func TestGetAnalysisByHistory_HistoryWithoutAnalysis(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	h := &core.History{GalaxyID: "lonely", Name: "lonely", OwnerID: testOwner}
	require.NoError(t, s.CreateHistory(ctx, h))
	assert.Equal(t, core.HistoryNew, h.State)

	a, got, err := s.GetAnalysisByHistory(ctx, h.ID, testOwner)
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.Nil(t, got)
}

func TestListUnsyncedAnalysesAndOwners(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f1 := seedAnalysis(t, s, "inv-1")
	f2 := seedAnalysis(t, s, "inv-2")

	all, err := s.ListAnalyses(ctx, testOwner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, s.MarkAnalysisSync(ctx, f1.analysis.ID))

	unsynced, err := s.ListUnsyncedAnalyses(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, f2.analysis.ID, unsynced[0].ID)

	owners, err := s.ListUnsyncedOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{testOwner}, owners)

	require.NoError(t, s.MarkAnalysisSync(ctx, f2.analysis.ID))
	owners, err = s.ListUnsyncedOwners(ctx)
	require.NoError(t, err)
	assert.Empty(t, owners)
}

func TestListWorkflowAnalyses(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")
	seedAnalysis(t, s, "inv-2")

	list, err := s.ListWorkflowAnalyses(ctx, f.workflow.ID, testOwner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "inv-1", list[0].GalaxyID)
}

func TestUpdateAnalysisState_StoresDescriptor(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	inv := &core.InvocationDescriptor{
		ID:    "inv-1",
		State: core.InvocationScheduled,
		Steps: []core.InvocationStep{{ID: "s1", WorkflowStepID: 1, JobID: "job-1"}},
	}
	require.NoError(t, s.UpdateAnalysisState(ctx, f.analysis.ID, core.InvocationScheduled, inv))

	got, err := s.GetAnalysis(ctx, f.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.Equal(t, core.InvocationScheduled, got.State)
	require.Len(t, got.Invocation.Data().Steps, 1)
	assert.Equal(t, "job-1", got.Invocation.Data().Steps[0].JobID)

	require.NoError(t, s.UpdateAnalysisState(ctx, f.analysis.ID, core.InvocationFailed, nil))
	got, err = s.GetAnalysis(ctx, f.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.Equal(t, core.InvocationFailed, got.State)
	assert.Len(t, got.Invocation.Data().Steps, 1, "nil descriptor keeps the stored one")
}

// ──────────────────────────────────────────────────────────────────────────────
// Histories
// ──────────────────────────────────────────────────────────────────────────────

func TestHistory_StateAndSync(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	require.NoError(t, s.UpdateHistoryState(ctx, f.history.ID, core.HistoryOK))
	require.NoError(t, s.MarkHistorySync(ctx, f.history.ID))

	h, err := s.GetHistory(ctx, f.history.ID, testOwner)
	require.NoError(t, err)
	assert.Equal(t, core.HistoryOK, h.State)
	assert.True(t, h.IsSync)

	h, err = s.GetHistory(ctx, f.history.ID, "someone-else")
	require.NoError(t, err)
	assert.Nil(t, h)
}

// ──────────────────────────────────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────────────────────────────────

func TestUpsertJob_InsertThenUpdate(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	first := &core.Job{
		GalaxyID: "job-1", AnalysisID: f.analysis.ID, StepID: 1, ToolID: "bwa",
		State: core.JobQueued, OwnerID: testOwner,
	}
	require.NoError(t, s.UpsertJob(ctx, first))
	require.NotZero(t, first.ID)

	exit := 0
	second := &core.Job{
		GalaxyID: "job-1", AnalysisID: f.analysis.ID, StepID: 1, ToolID: "bwa",
		State: core.JobOK, Stdout: "done\x00", ExitCode: &exit, OwnerID: testOwner,
	}
	require.NoError(t, s.UpsertJob(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	got, err := s.GetJob(ctx, "job-1", f.analysis.ID, testOwner)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, core.JobOK, got.State)
	assert.Equal(t, "done", got.Stdout)
	require.NotNil(t, got.ExitCode)
	assert.Equal(t, 0, *got.ExitCode)

	jobs, err := s.ListJobs(ctx, f.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestJob_SameRemoteIDAcrossAnalyses(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f1 := seedAnalysis(t, s, "inv-1")
	f2 := seedAnalysis(t, s, "inv-2")

	for _, a := range []*core.Analysis{f1.analysis, f2.analysis} {
		job := &core.Job{GalaxyID: "shared", AnalysisID: a.ID, ToolID: "t", State: core.JobNew, OwnerID: testOwner}
		require.NoError(t, s.UpsertJob(ctx, job))
	}

	j1, err := s.GetJob(ctx, "shared", f1.analysis.ID, testOwner)
	require.NoError(t, err)
	j2, err := s.GetJob(ctx, "shared", f2.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.NotEqual(t, j1.ID, j2.ID)
}

func TestUpdateJobAndMarkSync(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	job := &core.Job{GalaxyID: "job-1", AnalysisID: f.analysis.ID, ToolID: "t", State: core.JobRunning, OwnerID: testOwner}
	require.NoError(t, s.UpsertJob(ctx, job))

	require.NoError(t, s.UpdateJob(ctx, job.ID, core.JobError, "out", "boom"))
	require.NoError(t, s.MarkJobSync(ctx, job.ID))

	got, err := s.GetJob(ctx, "job-1", f.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.Equal(t, core.JobError, got.State)
	assert.Equal(t, "boom", got.Stderr)
	assert.True(t, got.IsSync)
}

func TestGetJob_NotFound(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.GetJob(context.Background(), "nope", 1, testOwner)
	require.NoError(t, err)
	assert.Nil(t, got)
}

// ──────────────────────────────────────────────────────────────────────────────
// Inputs
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateInput_FindAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	ds := newDataset(f.history.ID, "d1", "00000000-0000-4000-8000-0000000000d1")
	in := &core.AnalysisInput{State: core.DatasetQueued, AnalysisID: f.analysis.ID}
	require.NoError(t, s.CreateInput(ctx, ds, in))
	require.NotZero(t, ds.ID)
	assert.Equal(t, ds.ID, in.DatasetID)

	found, err := s.FindInput(ctx, "d1", f.history.ID, testOwner)
	require.NoError(t, err)
	require.NotNil(t, found)
	require.NotNil(t, found.Dataset)
	assert.Equal(t, "d1.fastq", found.Dataset.Name)

	require.NoError(t, s.UpdateInputState(ctx, in.ID, core.DatasetOK))

	list, err := s.ListInputs(ctx, f.analysis.ID, testOwner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, core.DatasetOK, list[0].State)

	ds2, err := s.GetDataset(ctx, ds.ID, testOwner)
	require.NoError(t, err)
	assert.Equal(t, "d1", ds2.GalaxyID)
}

func TestFindInput_Misses(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	ds := newDataset(f.history.ID, "d1", "00000000-0000-4000-8000-0000000000d1")
	require.NoError(t, s.CreateInput(ctx, ds, &core.AnalysisInput{State: core.DatasetOK, AnalysisID: f.analysis.ID}))

	got, err := s.FindInput(ctx, "d1", f.history.ID+100, testOwner)
	require.NoError(t, err)
	assert.Nil(t, got, "other history")

	got, err = s.FindInput(ctx, "d1", f.history.ID, "someone-else")
	require.NoError(t, err)
	assert.Nil(t, got, "other owner")
}

func TestCreateOutput_ReusesExistingDataset(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	in := &core.AnalysisInput{State: core.DatasetOK, AnalysisID: f.analysis.ID}
	require.NoError(t, s.CreateInput(ctx, newDataset(f.history.ID, "d1", "00000000-0000-4000-8000-0000000000d1"), in))

	job := &core.Job{GalaxyID: "job-1", AnalysisID: f.analysis.ID, ToolID: "t", State: core.JobOK, OwnerID: testOwner}
	require.NoError(t, s.UpsertJob(ctx, job))
	out := &core.AnalysisOutput{State: core.DatasetOK, AnalysisID: f.analysis.ID, JobID: job.ID}
	require.NoError(t, s.CreateOutput(ctx, newDataset(f.history.ID, "d1", "00000000-0000-4000-8000-0000000000d1"), out, nil))

	assert.Equal(t, in.DatasetID, out.DatasetID)
	var count int64
	require.NoError(t, s.DB().Model(&core.Dataset{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// ──────────────────────────────────────────────────────────────────────────────
// Outputs and tags
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateOutput_WithTags(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	job := &core.Job{GalaxyID: "job-1", AnalysisID: f.analysis.ID, ToolID: "t", State: core.JobOK, OwnerID: testOwner}
	require.NoError(t, s.UpsertJob(ctx, job))

	ds := newDataset(f.history.ID, "d2", "00000000-0000-4000-8000-0000000000d2")
	out := &core.AnalysisOutput{State: core.DatasetOK, AnalysisID: f.analysis.ID, JobID: job.ID}
	require.NoError(t, s.CreateOutput(ctx, ds, out, []string{"name:vcf", "group:a", "name:vcf"}))
	require.NotZero(t, out.ID)

	found, err := s.FindOutput(ctx, "d2", f.history.ID, job.ID, testOwner)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, out.ID, found.ID)

	outs, err := s.ListOutputs(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	require.NotNil(t, outs[0].Dataset)
	labels := []string{}
	for _, tag := range outs[0].Tags {
		labels = append(labels, tag.Label)
	}
	assert.ElementsMatch(t, []string{"name:vcf", "group:a"}, labels)
}

func TestCreateOutput_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	job := &core.Job{GalaxyID: "job-1", AnalysisID: f.analysis.ID, ToolID: "t", State: core.JobOK, OwnerID: testOwner}
	require.NoError(t, s.UpsertJob(ctx, job))

	first := &core.AnalysisOutput{State: core.DatasetOK, AnalysisID: f.analysis.ID, JobID: job.ID}
	require.NoError(t, s.CreateOutput(ctx, newDataset(f.history.ID, "d2", "00000000-0000-4000-8000-0000000000d2"), first, []string{"x"}))

	second := &core.AnalysisOutput{State: core.DatasetOK, AnalysisID: f.analysis.ID, JobID: job.ID}
	require.NoError(t, s.CreateOutput(ctx, newDataset(f.history.ID, "d2", "00000000-0000-4000-8000-0000000000d2"), second, []string{"x"}))
	assert.Equal(t, first.ID, second.ID)

	var outputs, links int64
	require.NoError(t, s.DB().Model(&core.AnalysisOutput{}).Count(&outputs).Error)
	require.NoError(t, s.DB().Model(&core.AnalysisOutputTag{}).Count(&links).Error)
	assert.Equal(t, int64(1), outputs)
	assert.Equal(t, int64(1), links)
}

func TestUpdateOutputState(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	job := &core.Job{GalaxyID: "job-1", AnalysisID: f.analysis.ID, ToolID: "t", State: core.JobRunning, OwnerID: testOwner}
	require.NoError(t, s.UpsertJob(ctx, job))
	out := &core.AnalysisOutput{State: core.DatasetRunning, AnalysisID: f.analysis.ID, JobID: job.ID}
	require.NoError(t, s.CreateOutput(ctx, newDataset(f.history.ID, "d2", "00000000-0000-4000-8000-0000000000d2"), out, nil))

	require.NoError(t, s.UpdateOutputState(ctx, out.ID, core.DatasetOK))

	outs, err := s.ListOutputs(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, outs, 1)
	assert.Equal(t, core.DatasetOK, outs[0].State)
}

func TestUpsertTags_Deduplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)

	first, err := s.UpsertTags(ctx, []string{"a", "b", "", "a"})
	require.NoError(t, err)
	assert.Len(t, first, 2)

	second, err := s.UpsertTags(ctx, []string{"b", "c"})
	require.NoError(t, err)
	assert.Len(t, second, 2)

	var count int64
	require.NoError(t, s.DB().Model(&core.Tag{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)

	none, err := s.UpsertTags(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

// ──────────────────────────────────────────────────────────────────────────────
// Delete
// ──────────────────────────────────────────────────────────────────────────────

func TestDeleteAnalysis_RemovesTree(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")
	keep := seedAnalysis(t, s, "inv-2")

	job := &core.Job{GalaxyID: "job-1", AnalysisID: f.analysis.ID, ToolID: "t", State: core.JobOK, OwnerID: testOwner}
	require.NoError(t, s.UpsertJob(ctx, job))
	require.NoError(t, s.CreateInput(ctx, newDataset(f.history.ID, "d1", "00000000-0000-4000-8000-0000000000d1"),
		&core.AnalysisInput{State: core.DatasetOK, AnalysisID: f.analysis.ID}))
	require.NoError(t, s.CreateOutput(ctx, newDataset(f.history.ID, "d2", "00000000-0000-4000-8000-0000000000d2"),
		&core.AnalysisOutput{State: core.DatasetOK, AnalysisID: f.analysis.ID, JobID: job.ID}, []string{"t1"}))

	require.NoError(t, s.DeleteAnalysis(ctx, f.analysis.ID, testOwner))

	for _, model := range []any{&core.Job{}, &core.Dataset{}, &core.AnalysisInput{}, &core.AnalysisOutput{}, &core.AnalysisOutputTag{}} {
		var count int64
		require.NoError(t, s.DB().Model(model).Count(&count).Error)
		assert.Zero(t, count, "%T", model)
	}
	h, err := s.GetHistory(ctx, f.history.ID, testOwner)
	require.NoError(t, err)
	assert.Nil(t, h)

	still, err := s.GetAnalysis(ctx, keep.analysis.ID, testOwner)
	require.NoError(t, err)
	assert.NotNil(t, still)

	err = s.DeleteAnalysis(ctx, f.analysis.ID, testOwner)
	assert.ErrorIs(t, err, core.ErrMissing)
}

func TestDeleteAnalysis_WrongOwner(t *testing.T) {
	s := newTestStorage(t)
	f := seedAnalysis(t, s, "inv-1")

	err := s.DeleteAnalysis(context.Background(), f.analysis.ID, "someone-else")
	assert.ErrorIs(t, err, core.ErrMissing)
}

// ──────────────────────────────────────────────────────────────────────────────
// Stats
// ──────────────────────────────────────────────────────────────────────────────

func TestGetOwnerStats(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f1 := seedAnalysis(t, s, "inv-1")
	seedAnalysis(t, s, "inv-2")

	require.NoError(t, s.UpdateAnalysisState(ctx, f1.analysis.ID, core.InvocationScheduled, nil))
	require.NoError(t, s.MarkAnalysisSync(ctx, f1.analysis.ID))
	require.NoError(t, s.UpsertJob(ctx, &core.Job{GalaxyID: "j", AnalysisID: f1.analysis.ID, ToolID: "t", State: core.JobOK, OwnerID: testOwner}))

	stats, err := s.GetOwnerStats(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.AnalysesByState[core.InvocationScheduled])
	assert.Equal(t, int64(1), stats.AnalysesByState[core.InvocationNew])
	assert.Equal(t, int64(1), stats.UnsyncedAnalyses)
	assert.Equal(t, int64(1), stats.JobsByState[core.JobOK])
	assert.Equal(t, int64(1), stats.UnsyncedJobs)
}

func TestSearchAnalyses(t *testing.T) {
	ctx := context.Background()
	s := newTestStorage(t)
	f1 := seedAnalysis(t, s, "inv-1")
	seedAnalysis(t, s, "inv-2")
	seedAnalysis(t, s, "other-3")
	require.NoError(t, s.MarkAnalysisSync(ctx, f1.analysis.ID))

	list, total, err := s.SearchAnalyses(ctx, AnalysisFilter{OwnerID: testOwner, Search: "inv-"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 2)

	list, total, err = s.SearchAnalyses(ctx, AnalysisFilter{OwnerID: testOwner, UnsyncedOnly: true, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, list, 1)

	_, total, err = s.SearchAnalyses(ctx, AnalysisFilter{OwnerID: testOwner, Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, total)
}

// ──────────────────────────────────────────────────────────────────────────────
// Error classification
// ──────────────────────────────────────────────────────────────────────────────

func TestWrapErr(t *testing.T) {
	assert.NoError(t, wrapErr("op", 1, nil))

	err := wrapErr("select job", 7, &pgconn.PgError{Code: "42501", Message: "permission denied for table jobs"})
	assert.ErrorIs(t, err, core.ErrPermissionDenied)
	var perm *core.PermissionError
	require.True(t, errors.As(err, &perm))
	assert.Equal(t, "7", perm.ID)

	err = wrapErr("insert", "x", sqlite3.Error{Code: sqlite3.ErrAuth})
	assert.ErrorIs(t, err, core.ErrPermissionDenied)

	cause := errors.New("disk full")
	err = wrapErr("insert", "x", cause)
	assert.NotErrorIs(t, err, core.ErrPermissionDenied)
	var storeErr *core.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "insert", storeErr.Op)
}
