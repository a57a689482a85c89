package core

import "github.com/zoobzio/capitan"

// Statement execution signals.
var (
	// QueryStarted is emitted when a statement begins execution.
	// Fields: ConnectionKey, OperationKey, SQLKey.
	QueryStarted = capitan.NewSignal("db.query.started", "Statement execution started")

	// QueryCompleted is emitted when a statement completes successfully.
	// Fields: ConnectionKey, OperationKey, DurationMsKey, RowsAffectedKey or RowsReturnedKey.
	QueryCompleted = capitan.NewSignal("db.query.completed", "Statement completed successfully")

	// QueryFailed is emitted when a statement fails.
	// Fields: ConnectionKey, OperationKey, DurationMsKey, ErrorKey.
	QueryFailed = capitan.NewSignal("db.query.failed", "Statement failed with error")

	// TxCommitted is emitted after a transaction commits.
	TxCommitted = capitan.NewSignal("db.tx.committed", "Transaction committed")

	// TxRolledBack is emitted after a transaction rolls back.
	TxRolledBack = capitan.NewSignal("db.tx.rolled_back", "Transaction rolled back")
)

// Event field keys.
var (
	// ConnectionKey identifies the Connection a statement ran on.
	ConnectionKey = capitan.NewStringKey("connection")

	// OperationKey is the leading SQL keyword (SELECT, INSERT, CREATE, ...).
	OperationKey = capitan.NewStringKey("operation")

	// SQLKey contains the compiled SQL string.
	SQLKey = capitan.NewStringKey("sql")

	// DurationMsKey contains the execution duration in milliseconds.
	DurationMsKey = capitan.NewInt64Key("duration_ms")

	// RowsAffectedKey contains the rows affected by a non-query statement.
	RowsAffectedKey = capitan.NewInt64Key("rows_affected")

	// RowsReturnedKey contains the number of rows a query returned.
	RowsReturnedKey = capitan.NewIntKey("rows_returned")

	// ErrorKey contains the error message when a statement fails.
	ErrorKey = capitan.NewStringKey("error")
)
