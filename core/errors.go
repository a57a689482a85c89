package core

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedURL is returned when a database URL cannot be mapped to
	// a dialect and driver.
	ErrUnsupportedURL = errors.New("core: unsupported database URL")

	// ErrConnectionClosed is returned by any Connection method called after Close.
	ErrConnectionClosed = errors.New("core: connection is closed")

	// ErrTransactionInProgress is returned by Connection.Begin when a
	// transaction, explicit or autobegun, is already active.
	ErrTransactionInProgress = errors.New("core: a transaction is already begun on this connection")

	// ErrNoTransaction is returned when a Transaction is committed or rolled
	// back after it has already ended.
	ErrNoTransaction = errors.New("core: transaction is no longer active")

	// ErrMissingParam is returned when a bind parameter in a statement has
	// no value.
	ErrMissingParam = errors.New("core: a value is required for bind parameter")

	// ErrNoRows is returned by Result.One when the result is empty.
	ErrNoRows = errors.New("core: no rows returned")

	// ErrMultipleRows is returned by Result.One when more than one row is present.
	ErrMultipleRows = errors.New("core: multiple rows returned")

	// ErrNoSuchColumn is returned by Row.Lookup for an unknown column name.
	ErrNoSuchColumn = errors.New("core: no such column")
)

// StatementError wraps a driver error with the statement that caused it.
type StatementError struct {
	SQL string
	Err error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%v [SQL: %s]", e.Err, e.SQL)
}

func (e *StatementError) Unwrap() error { return e.Err }
