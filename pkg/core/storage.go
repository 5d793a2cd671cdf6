package core

import (
	"context"
)

// Storage defines the persistence layer for the mirror.
//
// Getters return (nil, nil) when no row matches. Every method is scoped by
// owner where the row carries one.
type Storage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Workflows
	CreateWorkflow(ctx context.Context, wf *Workflow) error
	GetWorkflow(ctx context.Context, id uint, ownerID string) (*Workflow, error)

	// Analyses
	CreateAnalysis(ctx context.Context, a *Analysis) error
	GetAnalysis(ctx context.Context, id uint, ownerID string) (*Analysis, error)
	GetAnalysisByHistory(ctx context.Context, historyID uint, ownerID string) (*Analysis, *History, error)
	ListAnalyses(ctx context.Context, ownerID string) ([]*Analysis, error)
	ListUnsyncedAnalyses(ctx context.Context, ownerID string) ([]*Analysis, error)
	ListWorkflowAnalyses(ctx context.Context, workflowID uint, ownerID string) ([]*Analysis, error)
	ListUnsyncedOwners(ctx context.Context) ([]string, error)
	UpdateAnalysisState(ctx context.Context, id uint, state InvocationState, inv *InvocationDescriptor) error
	MarkAnalysisSync(ctx context.Context, id uint) error
	DeleteAnalysis(ctx context.Context, id uint, ownerID string) error

	// Histories
	CreateHistory(ctx context.Context, h *History) error
	GetHistory(ctx context.Context, id uint, ownerID string) (*History, error)
	UpdateHistoryState(ctx context.Context, id uint, state HistoryState) error
	MarkHistorySync(ctx context.Context, id uint) error

	// Jobs
	GetJob(ctx context.Context, galaxyID string, analysisID uint, ownerID string) (*Job, error)
	UpsertJob(ctx context.Context, job *Job) error
	UpdateJob(ctx context.Context, id uint, state JobState, stdout, stderr string) error
	MarkJobSync(ctx context.Context, id uint) error
	ListJobs(ctx context.Context, analysisID uint, ownerID string) ([]*Job, error)

	// Datasets
	GetDataset(ctx context.Context, id uint, ownerID string) (*Dataset, error)

	// Input role
	FindInput(ctx context.Context, galaxyDatasetID string, historyID uint, ownerID string) (*AnalysisInput, error)
	CreateInput(ctx context.Context, ds *Dataset, in *AnalysisInput) error
	AddInput(ctx context.Context, in *AnalysisInput) error
	UpdateInputState(ctx context.Context, id uint, state DatasetState) error
	ListInputs(ctx context.Context, analysisID uint, ownerID string) ([]*AnalysisInput, error)

	// Output role
	FindOutput(ctx context.Context, galaxyDatasetID string, historyID, jobID uint, ownerID string) (*AnalysisOutput, error)
	CreateOutput(ctx context.Context, ds *Dataset, out *AnalysisOutput, tags []string) error
	UpdateOutputState(ctx context.Context, id uint, state DatasetState) error
	ListOutputs(ctx context.Context, jobID uint) ([]*AnalysisOutput, error)

	// Tags
	UpsertTags(ctx context.Context, labels []string) ([]Tag, error)
}
