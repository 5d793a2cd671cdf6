package storage

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// pgInsufficientPrivilege is the SQLSTATE raised by row level security and
// missing grants.
const pgInsufficientPrivilege = "42501"

// wrapErr classifies a database error. Access control rejections become
// *core.PermissionError, everything else a *core.StoreError.
func wrapErr(op string, id any, err error) error {
	if err == nil {
		return nil
	}
	key := fmt.Sprint(id)
	if isPermissionDenied(err) {
		return &core.PermissionError{Op: op, ID: key, Err: err}
	}
	return &core.StoreError{Op: op, ID: key, Err: err}
}

func isPermissionDenied(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgInsufficientPrivilege
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code == sqlite3.ErrAuth || liteErr.Code == sqlite3.ErrPerm
	}
	return false
}
