package core

import (
	"context"
	"time"
)

// Remote is the subset of the Galaxy API the engine consumes. Implementations
// must not retry internally; retries belong to the scheduler.
type Remote interface {
	Invoke(ctx context.Context, historyID, workflowID string, inputs map[string]WorkflowInput, parameters map[string]any) (*InvocationDescriptor, error)
	GetInvocation(ctx context.Context, invocationID string) (*InvocationDescriptor, error)
	GetJob(ctx context.Context, jobID string) (*JobDescriptor, error)
	GetDataset(ctx context.Context, datasetID, historyID string) (*DatasetDescriptor, error)
	GetHistory(ctx context.Context, historyID string) (*HistoryDescriptor, error)
	DownloadDataset(ctx context.Context, historyID, datasetID string) ([]byte, error)
	CreateHistory(ctx context.Context, name string) (*HistoryDescriptor, error)
	DeleteHistory(ctx context.Context, historyID string) error
}

// InvocationDescriptor is the remote view of a workflow invocation.
type InvocationDescriptor struct {
	ID         string                  `json:"id"`
	State      InvocationState         `json:"state"`
	HistoryID  string                  `json:"history_id,omitempty"`
	WorkflowID string                  `json:"workflow_id,omitempty"`
	UpdateTime string                  `json:"update_time,omitempty"`
	Steps      []InvocationStep        `json:"steps"`
	Inputs     map[string]InvocationIO `json:"inputs,omitempty"`
	Outputs    map[string]InvocationIO `json:"outputs"`
}

// InvocationStep links a workflow step to the job that executed it.
type InvocationStep struct {
	ID             string `json:"id"`
	WorkflowStepID int    `json:"workflow_step_id"`
	JobID          string `json:"job_id,omitempty"`
	OrderIndex     int    `json:"order_index"`
	State          string `json:"state,omitempty"`
}

// InvocationIO references a dataset produced or consumed by a step.
type InvocationIO struct {
	ID             string `json:"id"`
	Src            string `json:"src"`
	WorkflowStepID int    `json:"workflow_step_id"`
}

// JobDescriptor is the full remote view of a job.
type JobDescriptor struct {
	ID         string   `json:"id"`
	State      JobState `json:"state"`
	ToolID     string   `json:"tool_id"`
	CreateTime string   `json:"create_time"`
	UpdateTime string   `json:"update_time"`
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	ExitCode   *int     `json:"exit_code"`
}

const galaxyTimeLayout = "2006-01-02T15:04:05.999999"

// Created parses CreateTime. Galaxy reports naive UTC timestamps.
func (j *JobDescriptor) Created() time.Time {
	t, err := time.ParseInLocation(galaxyTimeLayout, j.CreateTime, time.UTC)
	if err != nil {
		return time.Now().UTC()
	}
	return t
}

// DatasetDescriptor is the remote view of a history dataset.
type DatasetDescriptor struct {
	ID                   string       `json:"id"`
	HistoryID            string       `json:"history_id"`
	Name                 string       `json:"name"`
	State                DatasetState `json:"state"`
	FileSize             int64        `json:"file_size"`
	UUID                 string       `json:"uuid"`
	Extension            string       `json:"extension"`
	MetadataCommentLines *int         `json:"metadata_comment_lines"`
	MiscBlurb            string       `json:"misc_blurb"`
	Tags                 []string     `json:"tags"`
}

// HistoryDescriptor is the remote view of a history.
type HistoryDescriptor struct {
	ID    string       `json:"id"`
	Name  string       `json:"name"`
	State HistoryState `json:"state"`
}
