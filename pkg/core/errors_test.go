package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRemoteError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("sync job: %w", &RemoteError{Op: "get job", ID: "job42", Err: cause})

	var remoteErr *RemoteError
	assert.True(t, errors.As(err, &remoteErr))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "job42")
	assert.Contains(t, err.Error(), "get job")
}

func TestRemoteError_WithStatus(t *testing.T) {
	err := &RemoteError{Op: "get dataset", ID: "d1", Status: 404, Err: errors.New("not found")}
	assert.Contains(t, err.Error(), "status 404")
}

func TestStoreError(t *testing.T) {
	cause := errors.New("disk full")
	err := &StoreError{Op: "update history", ID: "7", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "update history 7")
}

func TestMissingError_IsErrMissing(t *testing.T) {
	err := Missing("history", uint(3), "owner-1")

	assert.ErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "history")
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "owner-1")

	var missing *MissingError
	assert.True(t, errors.As(err, &missing))
	assert.Equal(t, "3", missing.ID)
}

func TestPermissionError_IsErrPermissionDenied(t *testing.T) {
	cause := errors.New("insufficient privilege")
	err := &PermissionError{Op: "insert analysis", ID: "12", Err: cause}

	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrMissing)
	assert.Contains(t, err.Error(), "12")
}

func TestErrorVariables(t *testing.T) {
	for _, err := range []error{ErrMissing, ErrPermissionDenied, ErrNoOwner, ErrInvalidObjectKey, ErrPassInProgress, ErrBudgetExhausted} {
		assert.Contains(t, err.Error(), "galaxysync:")
	}
}
