package core

// DatasetState is the remote state of a dataset. Analysis inputs and outputs
// mirror it on their junction rows.
type DatasetState string

const (
	DatasetOK              DatasetState = "ok"
	DatasetEmpty           DatasetState = "empty"
	DatasetError           DatasetState = "error"
	DatasetDiscarded       DatasetState = "discarded"
	DatasetFailedMetadata  DatasetState = "failed_metadata"
	DatasetNew             DatasetState = "new"
	DatasetUpload          DatasetState = "upload"
	DatasetQueued          DatasetState = "queued"
	DatasetRunning         DatasetState = "running"
	DatasetPaused          DatasetState = "paused"
	DatasetSettingMetadata DatasetState = "setting_metadata"
	DatasetDeferred        DatasetState = "deferred"
)

var datasetTerminal = map[DatasetState]bool{
	DatasetOK:             true,
	DatasetEmpty:          true,
	DatasetError:          true,
	DatasetDiscarded:      true,
	DatasetFailedMetadata: true,
}

// IsTerminal reports whether the remote will not change the dataset further.
func (s DatasetState) IsTerminal() bool {
	return datasetTerminal[s]
}

// HistoryState is the remote state of a history. It shares the dataset
// enumeration and the dataset terminal set.
type HistoryState string

const (
	HistoryNew             HistoryState = "new"
	HistoryUpload          HistoryState = "upload"
	HistoryQueued          HistoryState = "queued"
	HistoryRunning         HistoryState = "running"
	HistoryOK              HistoryState = "ok"
	HistoryEmpty           HistoryState = "empty"
	HistoryError           HistoryState = "error"
	HistoryPaused          HistoryState = "paused"
	HistorySettingMetadata HistoryState = "setting_metadata"
	HistoryFailedMetadata  HistoryState = "failed_metadata"
	HistoryDeferred        HistoryState = "deferred"
	HistoryDiscarded       HistoryState = "discarded"
)

func (s HistoryState) IsTerminal() bool {
	return DatasetState(s).IsTerminal()
}

// InvocationState is the remote state of a workflow invocation, mirrored on Analysis.
type InvocationState string

const (
	InvocationNew        InvocationState = "new"
	InvocationReady      InvocationState = "ready"
	InvocationScheduled  InvocationState = "scheduled"
	InvocationCancelling InvocationState = "cancelling"
	InvocationCancelled  InvocationState = "cancelled"
	InvocationFailed     InvocationState = "failed"
)

var invocationTerminal = map[InvocationState]bool{
	InvocationScheduled: true,
	InvocationCancelled: true,
	InvocationFailed:    true,
}

func (s InvocationState) IsTerminal() bool {
	return invocationTerminal[s]
}

// JobState is the remote state of a job.
type JobState string

const (
	JobNew         JobState = "new"
	JobResubmitted JobState = "resubmitted"
	JobUpload      JobState = "upload"
	JobWaiting     JobState = "waiting"
	JobQueued      JobState = "queued"
	JobRunning     JobState = "running"
	JobOK          JobState = "ok"
	JobError       JobState = "error"
	JobFailed      JobState = "failed"
	JobPaused      JobState = "paused"
	JobStop        JobState = "stop"
	JobDeleting    JobState = "deleting"
	JobDeleted     JobState = "deleted"
)

// jobTerminal is the remote's own terminal set.
var jobTerminal = map[JobState]bool{
	JobOK:       true,
	JobError:    true,
	JobDeleting: true,
	JobDeleted:  true,
}

// jobSyncTerminal extends jobTerminal for synchronization only. A paused job
// is not terminal remotely but cannot progress without someone acting on the
// remote server, so polling it is pointless.
var jobSyncTerminal = map[JobState]bool{
	JobPaused: true,
}

// IsTerminal reports membership in the remote terminal set.
func (s JobState) IsTerminal() bool {
	return jobTerminal[s]
}

// IsSyncTerminal reports whether polling the job can stop.
func (s JobState) IsSyncTerminal() bool {
	return jobTerminal[s] || jobSyncTerminal[s]
}
