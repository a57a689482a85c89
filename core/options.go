package core

// Option configures an Engine created by Create.
type Option func(*Engine)

// WithEcho logs every statement, along with the implicit BEGIN, COMMIT
// and ROLLBACK, to l.
func WithEcho(l Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithMaxOpenConns caps the size of the connection pool. It is ignored
// for in-memory SQLite, which always uses a single connection.
func WithMaxOpenConns(n int) Option {
	return func(e *Engine) { e.maxOpen = n }
}

// WithClock sets the Clock used to time statements. A Clock carried by
// the context passed to a call takes precedence.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}
