package core

import "time"

// Event is the interface for all synchronization events.
type Event interface {
	eventMarker()
}

// DatasetPersisted is emitted when a dataset blob and its rows are written.
type DatasetPersisted struct {
	Dataset   *Dataset
	Role      Role
	Timestamp time.Time
}

func (*DatasetPersisted) eventMarker() {}

// StateChanged is emitted when a mirrored state is updated from the remote.
type StateChanged struct {
	Entity    string
	ID        uint
	From      string
	To        string
	Timestamp time.Time
}

func (*StateChanged) eventMarker() {}

// EntitySynced is emitted when an entity's isSync flag is set.
type EntitySynced struct {
	Entity    string
	ID        uint
	Timestamp time.Time
}

func (*EntitySynced) eventMarker() {}

// PassCompleted is emitted by the scheduler after each pass over an owner.
type PassCompleted struct {
	OwnerID   string
	Attempt   int
	AllSynced bool
	Err       error
	Duration  time.Duration
	Timestamp time.Time
}

func (*PassCompleted) eventMarker() {}
