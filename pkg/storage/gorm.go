// Package storage provides storage implementations for the galaxysync package.
package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/security"
)

// GormStorage implements core.Storage using GORM.
type GormStorage struct {
	db *gorm.DB
}

var _ core.Storage = (*GormStorage)(nil)

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return &GormStorage{db: db}
}

// DB returns the underlying *gorm.DB.
func (s *GormStorage) DB() *gorm.DB {
	return s.db
}

// IsSQLite reports whether the storage runs on the SQLite dialect.
func (s *GormStorage) IsSQLite() bool {
	return s.db != nil && s.db.Dialector != nil && s.db.Dialector.Name() == "sqlite"
}

// Migrate creates the necessary tables.
func (s *GormStorage) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.SetupJoinTable(&core.AnalysisOutput{}, "Tags", &core.AnalysisOutputTag{}); err != nil {
		return fmt.Errorf("setup output tags join table: %w", err)
	}
	return db.AutoMigrate(
		&core.Workflow{},
		&core.History{},
		&core.Analysis{},
		&core.Job{},
		&core.Dataset{},
		&core.AnalysisInput{},
		&core.AnalysisOutput{},
		&core.Tag{},
		&core.AnalysisOutputTag{},
	)
}

// first loads a single row, mapping a miss to (false, nil).
func first(db *gorm.DB, dest any) (bool, error) {
	err := db.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Workflows
// ──────────────────────────────────────────────────────────────────────────────

// CreateWorkflow inserts a workflow row.
func (s *GormStorage) CreateWorkflow(ctx context.Context, wf *core.Workflow) error {
	if err := s.db.WithContext(ctx).Create(wf).Error; err != nil {
		return wrapErr("insert workflow", wf.GalaxyID, err)
	}
	return nil
}

// GetWorkflow retrieves a workflow by id and owner.
func (s *GormStorage) GetWorkflow(ctx context.Context, id uint, ownerID string) (*core.Workflow, error) {
	var wf core.Workflow
	ok, err := first(s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID), &wf)
	if err != nil {
		return nil, wrapErr("select workflow", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &wf, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Analyses
// ──────────────────────────────────────────────────────────────────────────────

// CreateAnalysis inserts an analysis row. Empty JSON columns default to {}.
func (s *GormStorage) CreateAnalysis(ctx context.Context, a *core.Analysis) error {
	if len(a.Parameters) == 0 {
		a.Parameters = datatypes.JSON("{}")
	}
	if len(a.Datamap) == 0 {
		a.Datamap = datatypes.JSON("{}")
	}
	a.Stdout = security.SanitizeOutput(a.Stdout)
	a.Stderr = security.SanitizeOutput(a.Stderr)
	if err := s.db.WithContext(ctx).Create(a).Error; err != nil {
		return wrapErr("insert analysis", a.GalaxyID, err)
	}
	return nil
}

// GetAnalysis retrieves an analysis by id and owner.
func (s *GormStorage) GetAnalysis(ctx context.Context, id uint, ownerID string) (*core.Analysis, error) {
	var a core.Analysis
	ok, err := first(s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID), &a)
	if err != nil {
		return nil, wrapErr("select analysis", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &a, nil
}

// GetAnalysisByHistory loads the analysis and the history it runs in.
// Both are nil when either row is missing.
func (s *GormStorage) GetAnalysisByHistory(ctx context.Context, historyID uint, ownerID string) (*core.Analysis, *core.History, error) {
	db := s.db.WithContext(ctx)

	var h core.History
	ok, err := first(db.Where("id = ? AND owner_id = ?", historyID, ownerID), &h)
	if err != nil {
		return nil, nil, wrapErr("select history", historyID, err)
	}
	if !ok {
		return nil, nil, nil
	}

	var a core.Analysis
	ok, err = first(db.Where("history_id = ? AND owner_id = ?", historyID, ownerID), &a)
	if err != nil {
		return nil, nil, wrapErr("select history analysis", historyID, err)
	}
	if !ok {
		return nil, nil, nil
	}
	return &a, &h, nil
}

// ListAnalyses returns every analysis of an owner.
func (s *GormStorage) ListAnalyses(ctx context.Context, ownerID string) ([]*core.Analysis, error) {
	var list []*core.Analysis
	err := s.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("select analyses", ownerID, err)
	}
	return list, nil
}

// ListUnsyncedAnalyses returns the analyses of an owner still being polled.
func (s *GormStorage) ListUnsyncedAnalyses(ctx context.Context, ownerID string) ([]*core.Analysis, error) {
	var list []*core.Analysis
	err := s.db.WithContext(ctx).
		Where("owner_id = ? AND is_sync = ?", ownerID, false).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("select unsynced analyses", ownerID, err)
	}
	return list, nil
}

// ListWorkflowAnalyses returns the analyses of an owner that ran a workflow.
func (s *GormStorage) ListWorkflowAnalyses(ctx context.Context, workflowID uint, ownerID string) ([]*core.Analysis, error) {
	var list []*core.Analysis
	err := s.db.WithContext(ctx).
		Where("workflow_id = ? AND owner_id = ?", workflowID, ownerID).
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("select workflow analyses", workflowID, err)
	}
	return list, nil
}

// ListUnsyncedOwners returns the owners having at least one unsynced analysis.
func (s *GormStorage) ListUnsyncedOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := s.db.WithContext(ctx).
		Model(&core.Analysis{}).
		Where("is_sync = ?", false).
		Distinct("owner_id").
		Order("owner_id ASC").
		Pluck("owner_id", &owners).Error
	if err != nil {
		return nil, wrapErr("select owners", "", err)
	}
	return owners, nil
}

// UpdateAnalysisState stores a new invocation state and, when given, the
// refreshed invocation descriptor.
func (s *GormStorage) UpdateAnalysisState(ctx context.Context, id uint, state core.InvocationState, inv *core.InvocationDescriptor) error {
	updates := map[string]any{"state": state}
	if inv != nil {
		updates["invocation"] = datatypes.NewJSONType(*inv)
	}
	err := s.db.WithContext(ctx).
		Model(&core.Analysis{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return wrapErr("update analysis", id, err)
	}
	return nil
}

// MarkAnalysisSync sets the analysis isSync flag.
func (s *GormStorage) MarkAnalysisSync(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&core.Analysis{}).
		Where("id = ?", id).
		Update("is_sync", true).Error
	if err != nil {
		return wrapErr("update analysis sync", id, err)
	}
	return nil
}

// DeleteAnalysis removes an analysis, its history and every row beneath them.
// Children are deleted explicitly so SQLite without foreign key enforcement
// behaves like PostgreSQL cascades.
func (s *GormStorage) DeleteAnalysis(ctx context.Context, id uint, ownerID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a core.Analysis
		ok, err := first(tx.Where("id = ? AND owner_id = ?", id, ownerID), &a)
		if err != nil {
			return err
		}
		if !ok {
			return core.Missing("analysis", id, ownerID)
		}

		outputIDs := tx.Model(&core.AnalysisOutput{}).Select("id").Where("analysis_id = ?", a.ID)
		if err := tx.Where("analysis_output_id IN (?)", outputIDs).Delete(&core.AnalysisOutputTag{}).Error; err != nil {
			return err
		}
		steps := []struct {
			model any
			query string
			arg   uint
		}{
			{&core.AnalysisOutput{}, "analysis_id = ?", a.ID},
			{&core.AnalysisInput{}, "analysis_id = ?", a.ID},
			{&core.Job{}, "analysis_id = ?", a.ID},
			{&core.Analysis{}, "id = ?", a.ID},
			{&core.Dataset{}, "history_id = ?", a.HistoryID},
			{&core.History{}, "id = ?", a.HistoryID},
		}
		for _, step := range steps {
			if err := tx.Where(step.query, step.arg).Delete(step.model).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, core.ErrMissing) {
			return err
		}
		return wrapErr("delete analysis", id, err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Histories
// ──────────────────────────────────────────────────────────────────────────────

// CreateHistory inserts a history row.
func (s *GormStorage) CreateHistory(ctx context.Context, h *core.History) error {
	if h.State == "" {
		h.State = core.HistoryNew
	}
	if err := s.db.WithContext(ctx).Create(h).Error; err != nil {
		return wrapErr("insert history", h.GalaxyID, err)
	}
	return nil
}

// GetHistory retrieves a history by id and owner.
func (s *GormStorage) GetHistory(ctx context.Context, id uint, ownerID string) (*core.History, error) {
	var h core.History
	ok, err := first(s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID), &h)
	if err != nil {
		return nil, wrapErr("select history", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &h, nil
}

// UpdateHistoryState stores a new history state.
func (s *GormStorage) UpdateHistoryState(ctx context.Context, id uint, state core.HistoryState) error {
	err := s.db.WithContext(ctx).
		Model(&core.History{}).
		Where("id = ?", id).
		Update("state", state).Error
	if err != nil {
		return wrapErr("update history state", id, err)
	}
	return nil
}

// MarkHistorySync sets the history isSync flag.
func (s *GormStorage) MarkHistorySync(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&core.History{}).
		Where("id = ?", id).
		Update("is_sync", true).Error
	if err != nil {
		return wrapErr("update history sync", id, err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────────────────────────────────

// GetJob retrieves a job by remote id within an analysis.
func (s *GormStorage) GetJob(ctx context.Context, galaxyID string, analysisID uint, ownerID string) (*core.Job, error) {
	var job core.Job
	ok, err := first(s.db.WithContext(ctx).
		Where("galaxy_id = ? AND analysis_id = ? AND owner_id = ?", galaxyID, analysisID, ownerID), &job)
	if err != nil {
		return nil, wrapErr("select job", galaxyID, err)
	}
	if !ok {
		return nil, nil
	}
	return &job, nil
}

// UpsertJob inserts a job. A conflicting (galaxy_id, analysis_id) pair
// updates the mutable columns of the existing row instead.
func (s *GormStorage) UpsertJob(ctx context.Context, job *core.Job) error {
	job.Stdout = security.SanitizeOutput(job.Stdout)
	job.Stderr = security.SanitizeOutput(job.Stderr)

	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "galaxy_id"}, {Name: "analysis_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "stdout", "stderr", "exit_code"}),
	}).Create(job).Error
	if err != nil {
		return wrapErr("upsert job", job.GalaxyID, err)
	}

	if job.ID == 0 {
		var existing core.Job
		err := db.Where("galaxy_id = ? AND analysis_id = ?", job.GalaxyID, job.AnalysisID).First(&existing).Error
		if err != nil {
			return wrapErr("select upserted job", job.GalaxyID, err)
		}
		*job = existing
	}
	return nil
}

// UpdateJob stores a new job state along with its output streams.
func (s *GormStorage) UpdateJob(ctx context.Context, id uint, state core.JobState, stdout, stderr string) error {
	err := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":  state,
			"stdout": security.SanitizeOutput(stdout),
			"stderr": security.SanitizeOutput(stderr),
		}).Error
	if err != nil {
		return wrapErr("update job", id, err)
	}
	return nil
}

// MarkJobSync sets the job isSync flag.
func (s *GormStorage) MarkJobSync(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).
		Model(&core.Job{}).
		Where("id = ?", id).
		Update("is_sync", true).Error
	if err != nil {
		return wrapErr("update job sync", id, err)
	}
	return nil
}

// ListJobs returns the jobs of an analysis.
func (s *GormStorage) ListJobs(ctx context.Context, analysisID uint, ownerID string) ([]*core.Job, error) {
	var list []*core.Job
	err := s.db.WithContext(ctx).
		Where("analysis_id = ? AND owner_id = ?", analysisID, ownerID).
		Order("step_id ASC, id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("select jobs", analysisID, err)
	}
	return list, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Datasets
// ──────────────────────────────────────────────────────────────────────────────

// GetDataset retrieves a dataset by id and owner.
func (s *GormStorage) GetDataset(ctx context.Context, id uint, ownerID string) (*core.Dataset, error) {
	var ds core.Dataset
	ok, err := first(s.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID), &ds)
	if err != nil {
		return nil, wrapErr("select dataset", id, err)
	}
	if !ok {
		return nil, nil
	}
	return &ds, nil
}

// insertDataset inserts ds unless a row with the same (history_id, galaxy_id)
// exists, in which case ds is loaded from it.
func insertDataset(tx *gorm.DB, ds *core.Dataset) error {
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "history_id"}, {Name: "galaxy_id"}},
		DoNothing: true,
	}).Create(ds).Error
	if err != nil {
		return err
	}
	if ds.ID == 0 {
		return tx.Where("history_id = ? AND galaxy_id = ?", ds.HistoryID, ds.GalaxyID).First(ds).Error
	}
	return nil
}

// FindInput looks up the input junction of a remote dataset in a history.
func (s *GormStorage) FindInput(ctx context.Context, galaxyDatasetID string, historyID uint, ownerID string) (*core.AnalysisInput, error) {
	var in core.AnalysisInput
	ok, err := first(s.db.WithContext(ctx).
		Model(&core.AnalysisInput{}).
		Joins("JOIN datasets ON datasets.id = analysis_inputs.dataset_id").
		Where("datasets.galaxy_id = ? AND datasets.history_id = ? AND datasets.owner_id = ?", galaxyDatasetID, historyID, ownerID).
		Preload("Dataset"), &in)
	if err != nil {
		return nil, wrapErr("select input", galaxyDatasetID, err)
	}
	if !ok {
		return nil, nil
	}
	return &in, nil
}

// CreateInput inserts the dataset then its input junction in one transaction.
func (s *GormStorage) CreateInput(ctx context.Context, ds *core.Dataset, in *core.AnalysisInput) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertDataset(tx, ds); err != nil {
			return err
		}
		in.DatasetID = ds.ID
		return tx.Create(in).Error
	})
	if err != nil {
		return wrapErr("insert input dataset", ds.GalaxyID, err)
	}
	return nil
}

// AddInput inserts an input junction for a dataset that already exists.
func (s *GormStorage) AddInput(ctx context.Context, in *core.AnalysisInput) error {
	if err := s.db.WithContext(ctx).Create(in).Error; err != nil {
		return wrapErr("insert input", in.DatasetID, err)
	}
	return nil
}

// UpdateInputState stores a new input junction state.
func (s *GormStorage) UpdateInputState(ctx context.Context, id uint, state core.DatasetState) error {
	err := s.db.WithContext(ctx).
		Model(&core.AnalysisInput{}).
		Where("id = ?", id).
		Update("state", state).Error
	if err != nil {
		return wrapErr("update input state", id, err)
	}
	return nil
}

// ListInputs returns the inputs of an analysis with their datasets.
func (s *GormStorage) ListInputs(ctx context.Context, analysisID uint, ownerID string) ([]*core.AnalysisInput, error) {
	var list []*core.AnalysisInput
	err := s.db.WithContext(ctx).
		Model(&core.AnalysisInput{}).
		Joins("JOIN analyses ON analyses.id = analysis_inputs.analysis_id").
		Where("analysis_inputs.analysis_id = ? AND analyses.owner_id = ?", analysisID, ownerID).
		Preload("Dataset").
		Order("analysis_inputs.id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("select inputs", analysisID, err)
	}
	return list, nil
}

// FindOutput looks up the output junction of a remote dataset produced by a job.
func (s *GormStorage) FindOutput(ctx context.Context, galaxyDatasetID string, historyID, jobID uint, ownerID string) (*core.AnalysisOutput, error) {
	var out core.AnalysisOutput
	ok, err := first(s.db.WithContext(ctx).
		Model(&core.AnalysisOutput{}).
		Joins("JOIN datasets ON datasets.id = analysis_outputs.dataset_id").
		Where("datasets.galaxy_id = ? AND datasets.history_id = ? AND datasets.owner_id = ? AND analysis_outputs.job_id = ?",
			galaxyDatasetID, historyID, ownerID, jobID).
		Preload("Dataset"), &out)
	if err != nil {
		return nil, wrapErr("select output", galaxyDatasetID, err)
	}
	if !ok {
		return nil, nil
	}
	return &out, nil
}

// CreateOutput inserts the dataset, its output junction and the tag links in
// one transaction. The dataset row is written first.
func (s *GormStorage) CreateOutput(ctx context.Context, ds *core.Dataset, out *core.AnalysisOutput, tags []string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := insertDataset(tx, ds); err != nil {
			return err
		}
		out.DatasetID = ds.ID

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "dataset_id"}, {Name: "job_id"}},
			DoNothing: true,
		}).Create(out).Error
		if err != nil {
			return err
		}
		if out.ID == 0 {
			if err := tx.Where("dataset_id = ? AND job_id = ?", out.DatasetID, out.JobID).First(out).Error; err != nil {
				return err
			}
		}

		rows, err := upsertTags(tx, tags)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		links := make([]core.AnalysisOutputTag, 0, len(rows))
		for _, tag := range rows {
			links = append(links, core.AnalysisOutputTag{AnalysisOutputID: out.ID, TagID: tag.ID})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	})
	if err != nil {
		return wrapErr("insert output dataset", ds.GalaxyID, err)
	}
	return nil
}

// UpdateOutputState stores a new output junction state.
func (s *GormStorage) UpdateOutputState(ctx context.Context, id uint, state core.DatasetState) error {
	err := s.db.WithContext(ctx).
		Model(&core.AnalysisOutput{}).
		Where("id = ?", id).
		Update("state", state).Error
	if err != nil {
		return wrapErr("update output state", id, err)
	}
	return nil
}

// ListOutputs returns the outputs of a job with their datasets and tags.
func (s *GormStorage) ListOutputs(ctx context.Context, jobID uint) ([]*core.AnalysisOutput, error) {
	var list []*core.AnalysisOutput
	err := s.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Preload("Dataset").
		Preload("Tags").
		Order("id ASC").
		Find(&list).Error
	if err != nil {
		return nil, wrapErr("select outputs", jobID, err)
	}
	return list, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Tags
// ──────────────────────────────────────────────────────────────────────────────

// UpsertTags ensures a row exists for every label and returns them.
func (s *GormStorage) UpsertTags(ctx context.Context, labels []string) ([]core.Tag, error) {
	tags, err := upsertTags(s.db.WithContext(ctx), labels)
	if err != nil {
		return nil, wrapErr("upsert tags", fmt.Sprint(labels), err)
	}
	return tags, nil
}

func upsertTags(tx *gorm.DB, labels []string) ([]core.Tag, error) {
	seen := make(map[string]bool, len(labels))
	rows := make([]core.Tag, 0, len(labels))
	for _, label := range labels {
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		rows = append(rows, core.Tag{Label: label})
	}
	if len(rows) == 0 {
		return nil, nil
	}

	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "label"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return nil, err
	}

	unique := make([]string, 0, len(rows))
	for _, r := range rows {
		unique = append(unique, r.Label)
	}
	var tags []core.Tag
	if err := tx.Where("label IN ?", unique).Order("id ASC").Find(&tags).Error; err != nil {
		return nil, err
	}
	return tags, nil
}
