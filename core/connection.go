package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/zoobzio/capitan"
)

// Connection is a single connection checked out of an Engine's pool.
//
// The first Execute begins a transaction implicitly. Work is kept only
// when Commit is called ("commit as you go"); Close discards anything
// not committed. A Connection is not safe for concurrent use.
type Connection struct {
	engine *Engine
	conn   *sqlx.Conn
	id     string

	mu     sync.Mutex
	tx     *sqlx.Tx
	closed bool
}

func newConnection(e *Engine, conn *sqlx.Conn) *Connection {
	return &Connection{engine: e, conn: conn, id: uuid.NewString()}
}

// ID returns the connection's unique id, as reported in query signals.
func (c *Connection) ID() string { return c.id }

// Engine returns the Engine the connection came from.
func (c *Connection) Engine() *Engine { return c.engine }

// Dialect returns the engine's SQL dialect.
func (c *Connection) Dialect() Dialect { return c.engine.d }

// InTransaction reports whether a transaction is active.
func (c *Connection) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx != nil
}

// Execute runs stmt, beginning a transaction first if none is active.
//
// With no params, or one Params, the statement runs once. With several,
// it runs once per Params in order and the results are combined: rows
// affected are summed and returned rows are concatenated.
//
//	conn.Execute(ctx, core.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
//	    core.Params{"x": 11, "y": 12}, core.Params{"x": 13, "y": 14})
func (c *Connection) Execute(ctx context.Context, stmt Executable, params ...Params) (*Result, error) {
	if err := c.autobegin(ctx); err != nil {
		return nil, err
	}

	if len(params) == 0 {
		params = []Params{nil}
	}

	var out *Result
	for _, p := range params {
		query, args, err := stmt.Compile(c.engine.d, p)
		if err != nil {
			return nil, err //nolint:wrapcheck // already descriptive
		}
		res, err := c.run(ctx, query, args)
		if err != nil {
			return nil, err
		}
		out = combine(out, res)
	}
	return out, nil
}

// ExecDriverSQL runs a statement written with positional "?" placeholders,
// rebinding them for the dialect. It begins a transaction like Execute.
func (c *Connection) ExecDriverSQL(ctx context.Context, query string, args ...any) (*Result, error) {
	return c.Execute(ctx, driverSQL{sql: query, args: args})
}

// Commit commits the active transaction. It is a no-op when there is none.
func (c *Connection) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	return c.end(context.Background(), true)
}

// Rollback rolls back the active transaction. It is a no-op when there
// is none.
func (c *Connection) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	return c.end(context.Background(), false)
}

// Begin starts an explicit transaction. It fails with
// ErrTransactionInProgress if a transaction is already active, including
// one begun implicitly by Execute.
func (c *Connection) Begin(ctx context.Context) (*Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrConnectionClosed
	}
	if c.tx != nil {
		return nil, ErrTransactionInProgress
	}
	if err := c.beginLocked(ctx, "BEGIN"); err != nil {
		return nil, err
	}
	return &Transaction{conn: c, tx: c.tx}, nil
}

// Close rolls back anything uncommitted and returns the connection to
// the pool. Closing a closed connection is a no-op.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	rbErr := c.end(context.Background(), false)
	c.closed = true
	if err := c.conn.Close(); err != nil {
		return fmt.Errorf("core: close connection: %w", err)
	}
	return rbErr
}

func (c *Connection) autobegin(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	if c.tx != nil {
		return nil
	}
	return c.beginLocked(ctx, "BEGIN (implicit)")
}

func (c *Connection) beginLocked(ctx context.Context, echo string) error {
	// The transaction must outlive the ctx of the statement that began it.
	tx, err := c.conn.BeginTxx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return fmt.Errorf("core: begin: %w", err)
	}
	c.engine.log(ctx, echo)
	c.tx = tx
	return nil
}

func (c *Connection) end(ctx context.Context, commit bool) error {
	if c.tx == nil {
		return nil
	}
	tx := c.tx
	c.tx = nil

	if commit {
		c.engine.log(ctx, "COMMIT")
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("core: commit: %w", err)
		}
		capitan.Info(ctx, TxCommitted, ConnectionKey.Field(c.id))
		return nil
	}

	c.engine.log(ctx, "ROLLBACK")
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("core: rollback: %w", err)
	}
	capitan.Info(ctx, TxRolledBack, ConnectionKey.Field(c.id))
	return nil
}

func (c *Connection) run(ctx context.Context, query string, args []any) (*Result, error) {
	c.mu.Lock()
	tx := c.tx
	c.mu.Unlock()
	if tx == nil {
		return nil, ErrNoTransaction
	}

	op := operation(query)
	capitan.Debug(ctx, QueryStarted,
		ConnectionKey.Field(c.id),
		OperationKey.Field(op),
		SQLKey.Field(query),
	)
	c.engine.log(ctx, query, args...)

	start := c.engine.now(ctx)
	var (
		res *Result
		err error
	)
	if returnsRows(query) {
		res, err = queryRows(ctx, tx, query, args)
	} else {
		res, err = execStatement(ctx, tx, query, args)
	}
	durationMs := c.engine.now(ctx).Sub(start).Milliseconds()

	if err != nil {
		capitan.Error(ctx, QueryFailed,
			ConnectionKey.Field(c.id),
			OperationKey.Field(op),
			DurationMsKey.Field(durationMs),
			ErrorKey.Field(err.Error()),
		)
		return nil, &StatementError{SQL: query, Err: err}
	}

	if res.returnsRows {
		capitan.Info(ctx, QueryCompleted,
			ConnectionKey.Field(c.id),
			OperationKey.Field(op),
			DurationMsKey.Field(durationMs),
			RowsReturnedKey.Field(res.Len()),
		)
	} else {
		capitan.Info(ctx, QueryCompleted,
			ConnectionKey.Field(c.id),
			OperationKey.Field(op),
			DurationMsKey.Field(durationMs),
			RowsAffectedKey.Field(res.rowsAffected),
		)
	}
	return res, nil
}

func queryRows(ctx context.Context, tx *sqlx.Tx, query string, args []any) (*Result, error) {
	rows, err := tx.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	binary := make([]bool, len(cols))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, ct := range types {
			binary[i] = isBinaryType(ct.DatabaseTypeName())
		}
	}

	res := newResult(cols)
	for rows.Next() {
		vals, err := rows.SliceScan()
		if err != nil {
			return nil, err //nolint:wrapcheck // wrapped by caller
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok && !binary[i] {
				vals[i] = string(b)
			}
		}
		res.rows = append(res.rows, vals)
	}
	if err := rows.Err(); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	return res, nil
}

func execStatement(ctx context.Context, tx *sqlx.Tx, query string, args []any) (*Result, error) {
	r, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	res := &Result{}
	// Drivers that cannot report these (pgx has no LastInsertId) leave them 0.
	res.rowsAffected, _ = r.RowsAffected()
	res.lastInsertID, _ = r.LastInsertId()
	return res, nil
}

func combine(acc, next *Result) *Result {
	if acc == nil {
		return next
	}
	acc.rowsAffected += next.rowsAffected
	if next.lastInsertID != 0 {
		acc.lastInsertID = next.lastInsertID
	}
	acc.rows = append(acc.rows, next.rows...)
	return acc
}

var rowKeywords = map[string]bool{
	"SELECT":  true,
	"WITH":    true,
	"PRAGMA":  true,
	"VALUES":  true,
	"SHOW":    true,
	"EXPLAIN": true,
}

// operation returns the statement's leading keyword, upper-cased.
func operation(query string) string {
	q := strings.TrimLeft(query, " \t\r\n(")
	end := strings.IndexFunc(q, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '(' || r == ';'
	})
	if end >= 0 {
		q = q[:end]
	}
	return strings.ToUpper(q)
}

func returnsRows(query string) bool {
	if rowKeywords[operation(query)] {
		return true
	}
	return strings.Contains(strings.ToUpper(query), "RETURNING")
}

func isBinaryType(name string) bool {
	name = strings.ToUpper(name)
	return strings.Contains(name, "BLOB") ||
		strings.Contains(name, "BYTEA") ||
		strings.Contains(name, "BINARY")
}
