package rowstore

import (
	"context"
	"database/sql"
	"time"
)

// SetNow replaces the store clock. This file only compiles during `go test`.
func SetNow(s *SQLite, now func() time.Time) {
	s.now = now
}

// SetCommitHook makes every InTx commit go through fn.
func SetCommitHook(s *SQLite, fn func(tx *sql.Tx) error) {
	s.hooks.commit = fn
}

// SetExecHook intercepts every write statement.
func SetExecHook(s *SQLite, fn func(ctx context.Context, query string, args ...any) (sql.Result, error)) {
	s.hooks.exec = func(ctx context.Context, c conn, query string, args ...any) (sql.Result, error) {
		if res, err := fn(ctx, query, args...); res != nil || err != nil {
			return res, err
		}
		return c.ExecContext(ctx, query, args...)
	}
}
