package reconcile

import (
	"log/slog"
	"time"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// deps is shared by the four synchronizers.
type deps struct {
	store       core.Storage
	remote      core.Remote
	blobs       core.BlobStore
	logger      *slog.Logger
	bus         *Bus
	concurrency int
	now         func() time.Time
}

func (d *deps) emit(e core.Event) {
	d.bus.Emit(e)
}

func (d *deps) stateChanged(entity string, id uint, from, to string) {
	d.logger.Debug("state changed", "entity", entity, "id", id, "from", from, "to", to)
	d.emit(&core.StateChanged{Entity: entity, ID: id, From: from, To: to, Timestamp: d.now()})
}

func (d *deps) synced(entity string, id uint) {
	d.logger.Debug("entity synced", "entity", entity, "id", id)
	d.emit(&core.EntitySynced{Entity: entity, ID: id, Timestamp: d.now()})
}

// Reconciler bundles the synchronizers of every mirrored level. Each level
// calls the one beneath it.
type Reconciler struct {
	Datasets  *DatasetSync
	Jobs      *JobSync
	Histories *HistorySync
	Analyses  *AnalysisSync

	deps *deps
}

// New wires the synchronizers over a store, a remote and a blob store.
func New(store core.Storage, remote core.Remote, blobs core.BlobStore, opts ...Option) *Reconciler {
	d := &deps{
		store:       store,
		remote:      remote,
		blobs:       blobs,
		logger:      slog.Default(),
		bus:         &Bus{},
		concurrency: DefaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt.applyReconciler(d)
	}

	r := &Reconciler{deps: d}
	r.Datasets = &DatasetSync{deps: d}
	r.Jobs = &JobSync{deps: d, datasets: r.Datasets}
	r.Histories = &HistorySync{deps: d, datasets: r.Datasets, jobs: r.Jobs}
	r.Analyses = &AnalysisSync{deps: d, histories: r.Histories}
	return r
}

// Bus returns the bus synchronization events are published on.
func (r *Reconciler) Bus() *Bus {
	return r.deps.bus
}

// Concurrency returns the sibling fan-out bound.
func (r *Reconciler) Concurrency() int {
	return r.deps.concurrency
}
