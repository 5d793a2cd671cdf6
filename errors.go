package galaxysync

import (
	"github.com/jdziat/galaxy-sync/pkg/core"
)

// Error variables
var (
	ErrMissing          = core.ErrMissing
	ErrPermissionDenied = core.ErrPermissionDenied
	ErrNoOwner          = core.ErrNoOwner
	ErrInvalidObjectKey = core.ErrInvalidObjectKey
	ErrPassInProgress   = core.ErrPassInProgress
	ErrBudgetExhausted  = core.ErrBudgetExhausted
)

// Missing builds a MissingError for an entity that must exist.
func Missing(entity string, id any, ownerID string) error {
	return core.Missing(entity, id, ownerID)
}
