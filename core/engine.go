package core

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"           // registers "postgres"
	_ "github.com/mattn/go-sqlite3" // registers "sqlite3"
)

// Engine is the starting point for talking to a database. It owns a
// connection pool and hands out Connections.
type Engine struct {
	db      *sqlx.DB
	url     *URL
	d       Dialect
	logger  Logger
	clock   Clock
	maxOpen int
}

// Create parses rawURL, opens a pool for its driver and returns the Engine.
//
//	engine, err := core.Create("sqlite:///:memory:", core.WithEcho(core.NewSlogLogger(nil)))
//
// No connection is made until one is first needed.
func Create(rawURL string, opts ...Option) (*Engine, error) {
	u, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	driver, err := u.DriverName()
	if err != nil {
		return nil, err
	}
	dsn, err := u.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("core: open %s: %w", u, err)
	}

	e := &Engine{db: db, url: u, d: u.SQLDialect(), clock: systemClock{}}
	for _, opt := range opts {
		opt(e)
	}

	// Every connection to ":memory:" is a fresh database, so the pool is
	// pinned to one connection that is never closed while idle.
	if u.IsMemory() {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxLifetime(0)
	} else if e.maxOpen > 0 {
		db.SetMaxOpenConns(e.maxOpen)
	}
	return e, nil
}

// Connect checks a connection out of the pool.
func (e *Engine) Connect(ctx context.Context) (*Connection, error) {
	conn, err := e.db.Connx(ctx)
	if err != nil {
		return nil, fmt.Errorf("core: connect: %w", err)
	}
	return newConnection(e, conn), nil
}

// Begin runs fn on a new connection with a transaction already begun.
// If fn returns nil the transaction is committed.
// If fn returns an error or panics the transaction is rolled back.
// The connection is released either way.
func (e *Engine) Begin(ctx context.Context, fn func(conn *Connection) error) (err error) {
	conn, err := e.Connect(ctx)
	if err != nil {
		return err
	}
	if err = conn.autobegin(ctx); err != nil {
		_ = conn.Close()
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = conn.Rollback()
			_ = conn.Close()
			panic(p)
		}
		if err != nil {
			_ = conn.Rollback()
		}
		if cerr := conn.Close(); err == nil {
			err = cerr
		}
	}()
	if err = fn(conn); err != nil {
		return err
	}
	return conn.Commit()
}

// Debug returns a new *Engine that echoes every statement using the given
// Logger. The pool is shared; the original Engine is not modified.
func (e *Engine) Debug(l Logger) *Engine {
	e2 := *e
	e2.logger = l
	return &e2
}

// Dialect returns the engine's SQL dialect.
func (e *Engine) Dialect() Dialect { return e.d }

// URL returns the parsed database URL.
func (e *Engine) URL() *URL { return e.url }

// DB returns the underlying pool.
func (e *Engine) DB() *sqlx.DB { return e.db }

// Dispose closes the pool. Connections still checked out are closed as
// they are returned.
func (e *Engine) Dispose() error { return e.db.Close() } //nolint:wrapcheck // thin wrapper

func (e *Engine) String() string { return "Engine(" + e.url.String() + ")" }

func (e *Engine) log(ctx context.Context, query string, args ...any) {
	if e.logger != nil {
		e.logger.Log(ctx, query, args...)
	}
}

func (e *Engine) now(ctx context.Context) time.Time {
	if c, ok := ctx.Value(clockKey{}).(Clock); ok {
		return c.Now()
	}
	return e.clock.Now()
}
