package core

import (
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Dialect abstracts SQL differences between database engines.
type Dialect interface {
	// Name returns the dialect name as it appears in a database URL,
	// e.g. "sqlite", "postgresql", "mysql".
	Name() string

	// Placeholder returns the bind parameter placeholder for the given
	// 1-based index. SQLite and MySQL return "?" regardless of index;
	// PostgreSQL returns "$1", "$2", etc.
	Placeholder(index int) string

	// BindType returns the sqlx bind style used to rebind "?" queries.
	BindType() int

	// QuoteIdent quotes an identifier (table name, column name) to safely
	// handle SQL reserved words. MySQL uses backticks; SQLite and
	// PostgreSQL use double quotes.
	QuoteIdent(name string) string

	// UseReturning reports whether INSERT should use a RETURNING clause
	// to retrieve the auto-generated primary key (PostgreSQL) rather
	// than relying on LastInsertId (SQLite, MySQL).
	UseReturning() bool

	// ReturningClause returns the RETURNING clause appended to INSERT
	// statements. Returns an empty string for dialects that read the
	// key through LastInsertId.
	ReturningClause(pk string) string

	// AutoIncrement returns the column type used for an auto-incrementing
	// integer primary key whose plain type is typeSQL.
	AutoIncrement(typeSQL string) string
}

// SQLite is the Dialect for SQLite.
var SQLite Dialect = sqliteDialect{}

// MySQL is the Dialect for MySQL / MariaDB.
var MySQL Dialect = mysqlDialect{}

// PostgreSQL is the Dialect for PostgreSQL.
var PostgreSQL Dialect = postgresDialect{}

// DialectByName returns the Dialect registered under name.
func DialectByName(name string) (Dialect, bool) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite, true
	case "postgresql", "postgres", "pg":
		return PostgreSQL, true
	case "mysql", "mariadb":
		return MySQL, true
	default:
		return nil, false
	}
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string                    { return "sqlite" }
func (sqliteDialect) Placeholder(_ int) string        { return "?" }
func (sqliteDialect) BindType() int                   { return sqlx.QUESTION }
func (sqliteDialect) QuoteIdent(name string) string   { return `"` + strings.ReplaceAll(name, `"`, `""`) + `"` }
func (sqliteDialect) UseReturning() bool              { return false }
func (sqliteDialect) ReturningClause(_ string) string { return "" }
func (sqliteDialect) AutoIncrement(_ string) string   { return "INTEGER" }

type mysqlDialect struct{}

func (mysqlDialect) Name() string                        { return "mysql" }
func (mysqlDialect) Placeholder(_ int) string            { return "?" }
func (mysqlDialect) BindType() int                       { return sqlx.QUESTION }
func (mysqlDialect) QuoteIdent(name string) string       { return "`" + name + "`" }
func (mysqlDialect) UseReturning() bool                  { return false }
func (mysqlDialect) ReturningClause(_ string) string     { return "" }
func (mysqlDialect) AutoIncrement(typeSQL string) string { return typeSQL + " AUTO_INCREMENT" }

type postgresDialect struct{}

func (postgresDialect) Name() string                  { return "postgresql" }
func (postgresDialect) Placeholder(index int) string  { return "$" + strconv.Itoa(index) }
func (postgresDialect) BindType() int                 { return sqlx.DOLLAR }
func (postgresDialect) QuoteIdent(name string) string { return pq.QuoteIdentifier(name) }
func (postgresDialect) UseReturning() bool            { return true }
func (d postgresDialect) ReturningClause(pk string) string {
	return " RETURNING " + d.QuoteIdent(pk)
}

func (postgresDialect) AutoIncrement(typeSQL string) string {
	if strings.EqualFold(typeSQL, "BIGINT") {
		return "BIGSERIAL"
	}
	return "SERIAL"
}

// Rebind converts a "?" query to the dialect's placeholder style.
func Rebind(d Dialect, query string) string {
	return sqlx.Rebind(d.BindType(), query)
}
