package core

import (
	"errors"
	"fmt"
)

var (
	ErrMissing          = errors.New("galaxysync: missing prerequisite")
	ErrPermissionDenied = errors.New("galaxysync: permission denied")
	ErrNoOwner          = errors.New("galaxysync: no owner")
	ErrInvalidObjectKey = errors.New("galaxysync: invalid object key")
	ErrPassInProgress   = errors.New("galaxysync: synchronization pass already running")
	ErrBudgetExhausted  = errors.New("galaxysync: retry budget exhausted before convergence")
)

// RemoteError is a failed call to the remote server.
type RemoteError struct {
	Op     string
	ID     string
	Status int // HTTP status, 0 for transport failures
	Err    error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("galaxysync: remote %s %s: status %d: %v", e.Op, e.ID, e.Status, e.Err)
	}
	return fmt.Sprintf("galaxysync: remote %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// StoreError is a failed select, insert or update.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("galaxysync: store %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MissingError reports a row that must exist before the operation can run.
type MissingError struct {
	Entity  string
	ID      string
	OwnerID string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("galaxysync: no %s found for id %s and owner %s", e.Entity, e.ID, e.OwnerID)
}

func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

// PermissionError is raised when the store rejects an operation for access
// control reasons.
type PermissionError struct {
	Op  string
	ID  string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("galaxysync: permission denied for %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}

// Missing builds a MissingError.
func Missing(entity string, id any, ownerID string) error {
	return &MissingError{Entity: entity, ID: fmt.Sprint(id), OwnerID: ownerID}
}
