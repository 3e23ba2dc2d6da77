package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
)

// ErrReferenceNotFound is the cause of an Error when a row points at a parent that does not exist.
var ErrReferenceNotFound = errors.New("referenced row not found")

// Error is the only error kind returned by the repositories.
// The underlying driver or constraint error is kept as the cause.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("database error: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transact runs fn with RunInTx and turns any failure into an *Error named after op.
func Transact(ctx context.Context, db *sqlx.DB, op string, fn func(ctx context.Context, tx *sqlx.Tx) error) error {
	if err := RunInTx(ctx, db, fn); err != nil {
		slog.Default().ErrorContext(ctx, "database operation failed",
			"op", op,
			"error", err,
		)
		return &Error{Op: op, Err: err}
	}
	return nil
}
