// Package reconcile mirrors remote Galaxy state into the local store.
//
// The synchronizers form a tree that matches the mirrored model:
//
//	AnalysisSync -> HistorySync -> JobSync -> DatasetSync (output role)
//	                            -> DatasetSync (input role)
//
// Each level creates its row the first time the remote entity is seen, then
// only refreshes state until the entity is terminal. The isSync flag cuts a
// subtree off once everything beneath it has settled, after which a pass over
// it makes no remote call and no write.
//
// Siblings run concurrently, bounded by WithConcurrency. A failing sibling
// does not cancel the others; their errors are joined.
package reconcile
