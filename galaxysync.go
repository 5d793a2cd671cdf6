// Package galaxysync mirrors workflow invocations of a Galaxy server into a
// local relational store.
//
// This is the main package users should import. It re-exports the public
// types of the pkg/ packages and wires them into an Engine.
//
// Basic usage:
//
//	store, _ := galaxysync.OpenStorage("sqlite", "galaxy-sync.db", false)
//	store.Migrate(ctx)
//	client, _ := galaxysync.NewClient("https://usegalaxy.org", apiKey)
//	blobs, _ := galaxysync.NewFSStore("./data", signingKey)
//	engine := galaxysync.New(store, client, blobs)
//
//	// Start an invocation
//	res, _ := engine.Runner.Submit(ctx, galaxysync.SubmitRequest{...})
//
//	// Poll until every analysis of the owner is mirrored
//	err := engine.Run(ctx, ownerID)
package galaxysync

import (
	"context"
	"log/slog"
	"time"

	"gorm.io/gorm"

	"github.com/jdziat/galaxy-sync/pkg/analysis"
	"github.com/jdziat/galaxy-sync/pkg/blob"
	"github.com/jdziat/galaxy-sync/pkg/core"
	"github.com/jdziat/galaxy-sync/pkg/reconcile"
	"github.com/jdziat/galaxy-sync/pkg/remote"
	"github.com/jdziat/galaxy-sync/pkg/scheduler"
	"github.com/jdziat/galaxy-sync/pkg/security"
	"github.com/jdziat/galaxy-sync/pkg/storage"
)

// Type aliases
type (
	// Workflow is a workflow definition known to the remote server.
	Workflow = core.Workflow

	// Analysis mirrors one remote workflow invocation.
	Analysis = core.Analysis

	// History mirrors one remote history.
	History = core.History

	// Job mirrors one remote job.
	Job = core.Job

	// Dataset is one remote file artifact persisted to object storage.
	Dataset = core.Dataset

	// AnalysisInput marks a dataset as the input of an analysis.
	AnalysisInput = core.AnalysisInput

	// AnalysisOutput marks a dataset as produced by a job of an analysis.
	AnalysisOutput = core.AnalysisOutput

	// Tag is a label attached to output datasets.
	Tag = core.Tag

	// WorkflowInput is one entry of the inputs passed at submission.
	WorkflowInput = core.WorkflowInput

	// InvocationDescriptor is the remote view of a workflow invocation.
	InvocationDescriptor = core.InvocationDescriptor

	DatasetState    = core.DatasetState
	HistoryState    = core.HistoryState
	InvocationState = core.InvocationState
	JobState        = core.JobState

	// Storage defines the persistence layer for the mirror.
	Storage = core.Storage

	// Remote is the subset of the Galaxy API the engine consumes.
	Remote = core.Remote

	// BlobStore persists dataset payloads.
	BlobStore = core.BlobStore

	// Event is the interface for all synchronization events.
	Event = core.Event

	DatasetPersisted = core.DatasetPersisted
	StateChanged     = core.StateChanged
	EntitySynced     = core.EntitySynced
	PassCompleted    = core.PassCompleted

	RemoteError     = core.RemoteError
	StoreError      = core.StoreError
	MissingError    = core.MissingError
	PermissionError = core.PermissionError

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// PoolOption configures the connection pool of a GormStorage.
	PoolOption = storage.PoolOption

	// Client talks to the Galaxy API.
	Client = remote.Client

	// ClientOption configures a Client.
	ClientOption = remote.Option

	// FSStore keeps dataset payloads on the local filesystem.
	FSStore = blob.FSStore

	// MemoryStore keeps dataset payloads in memory.
	MemoryStore = blob.MemoryStore

	// Reconciler bundles the dataset, job, history and analysis synchronizers.
	Reconciler = reconcile.Reconciler

	// Runner submits invocations and reads the mirror.
	Runner = analysis.Runner

	// SubmitRequest describes a workflow invocation to start.
	SubmitRequest = analysis.SubmitRequest

	// SubmitResult holds the ids of the rows Submit created.
	SubmitResult = analysis.SubmitResult

	// Scheduler drives synchronization passes.
	Scheduler = scheduler.Scheduler

	// Schedule decides when the next round of runs starts.
	Schedule = scheduler.Schedule

	// OwnerSource lists the owners a round visits.
	OwnerSource = scheduler.OwnerSource
)

// Security limits
const (
	MaxRetryBudget        = security.MaxRetryBudget
	MaxConcurrency        = security.MaxConcurrency
	MaxErrorMessageLength = security.MaxErrorMessageLength
	MaxOutputLength       = security.MaxOutputLength
)

// Engine wires the synchronizers, the runner and the scheduler over one
// store, remote and blob store. Every component publishes on the same bus.
type Engine struct {
	Store      Storage
	Remote     Remote
	Blobs      BlobStore
	Reconciler *Reconciler
	Runner     *Runner
	Scheduler  *Scheduler
}

// New creates an Engine.
func New(store Storage, client Remote, blobs BlobStore, opts ...Option) *Engine {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger != nil {
		s.reconcile = append(s.reconcile, reconcile.WithLogger(s.logger))
		s.runner = append(s.runner, analysis.WithLogger(s.logger))
		s.scheduler = append(s.scheduler, scheduler.WithLogger(s.logger))
	}

	rec := reconcile.New(store, client, blobs, s.reconcile...)
	s.scheduler = append(s.scheduler, scheduler.WithEvents(rec.Bus()))

	return &Engine{
		Store:      store,
		Remote:     client,
		Blobs:      blobs,
		Reconciler: rec,
		Runner:     analysis.New(store, client, blobs, s.runner...),
		Scheduler:  scheduler.New(rec.Analyses, s.scheduler...),
	}
}

// Events returns a channel receiving every event emitted after the call.
// The caller must call Unsubscribe when done.
func (e *Engine) Events() <-chan Event {
	return e.Reconciler.Bus().Events()
}

// Unsubscribe removes a channel returned by Events.
func (e *Engine) Unsubscribe(ch <-chan Event) {
	e.Reconciler.Bus().Unsubscribe(ch)
}

// Run polls until every analysis of the owner is sync or the retry budget
// is spent.
func (e *Engine) Run(ctx context.Context, ownerID string) error {
	return e.Scheduler.Run(ctx, ownerID)
}

// Start runs the scheduler until ctx is cancelled. With a nil source every
// owner having unsynced analyses is visited.
func (e *Engine) Start(ctx context.Context, owners OwnerSource) error {
	if owners == nil {
		owners = e.Store.ListUnsyncedOwners
	}
	return e.Scheduler.Start(ctx, owners)
}

// Option configures an Engine.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	reconcile []reconcile.Option
	runner    []analysis.Option
	scheduler []scheduler.Option
}

// WithLogger sets the logger of every component.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithConcurrency bounds sibling fan-out within a pass.
func WithConcurrency(n int) Option {
	return func(s *settings) { s.reconcile = append(s.reconcile, reconcile.WithConcurrency(n)) }
}

// WithOwnerConcurrency bounds the owners Start runs at once.
func WithOwnerConcurrency(n int) Option {
	return func(s *settings) { s.scheduler = append(s.scheduler, scheduler.WithConcurrency(n)) }
}

// WithInterval sets the delay between two passes of a run.
func WithInterval(d time.Duration) Option {
	return func(s *settings) { s.scheduler = append(s.scheduler, scheduler.WithInterval(d)) }
}

// WithRetryBudget sets the number of passes per run.
func WithRetryBudget(n int) Option {
	return func(s *settings) { s.scheduler = append(s.scheduler, scheduler.WithRetryBudget(n)) }
}

// WithSchedule sets when Start begins a round.
func WithSchedule(sched Schedule) Option {
	return func(s *settings) { s.scheduler = append(s.scheduler, scheduler.WithSchedule(sched)) }
}

// WithURLTTL sets the lifetime of dataset download URLs.
func WithURLTTL(d time.Duration) Option {
	return func(s *settings) { s.runner = append(s.runner, analysis.WithURLTTL(d)) }
}

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// OpenStorage connects to a sqlite or postgres database.
func OpenStorage(driver, dsn string, debug bool, opts ...PoolOption) (*GormStorage, error) {
	return storage.Open(driver, dsn, debug, opts...)
}

// NewClient creates a Galaxy API client.
func NewClient(baseURL, apiKey string, opts ...ClientOption) (*Client, error) {
	return remote.New(baseURL, apiKey, opts...)
}

// NewFSStore creates a filesystem blob store rooted at root.
func NewFSStore(root string, signingKey []byte, opts ...blob.FSOption) (*FSStore, error) {
	return blob.NewFSStore(root, signingKey, opts...)
}

// NewMemoryStore creates an in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return blob.NewMemoryStore()
}

// Schedule functions

// Every creates a schedule that starts a round at fixed intervals.
func Every(d time.Duration) Schedule {
	return scheduler.Every(d)
}

// Daily creates a schedule that starts a round at a specific UTC time each day.
func Daily(hour, minute int) Schedule {
	return scheduler.Daily(hour, minute)
}

// Cron creates a schedule from a cron expression.
func Cron(expr string) Schedule {
	return scheduler.Cron(expr)
}

// ParseSchedule reads a duration, cron descriptor or cron expression.
func ParseSchedule(expr string) (Schedule, error) {
	return scheduler.Parse(expr)
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage.
func SanitizeErrorMessage(msg string) string {
	return security.SanitizeErrorMessage(msg)
}
