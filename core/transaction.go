package core

import "github.com/jmoiron/sqlx"

// Transaction is an explicit transaction begun with Connection.Begin.
// Statements still run through the Connection.
type Transaction struct {
	conn *Connection
	tx   *sqlx.Tx
}

// IsActive reports whether the transaction has not yet ended.
func (t *Transaction) IsActive() bool {
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	return t.conn.tx == t.tx
}

// Commit commits the transaction.
func (t *Transaction) Commit() error {
	if !t.IsActive() {
		return ErrNoTransaction
	}
	return t.conn.Commit()
}

// Rollback rolls the transaction back.
func (t *Transaction) Rollback() error {
	if !t.IsActive() {
		return ErrNoTransaction
	}
	return t.conn.Rollback()
}
