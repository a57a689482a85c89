package orm

import (
	"context"

	"github.com/mickamy/ormtour/core"
)

// TestQuerier is a mock Querier that records executed queries.
// Exported for use in orm_test package.
type TestQuerier struct {
	D       core.Dialect
	Queries []TestQuery
}

// TestQuery holds a captured query string and its args.
type TestQuery struct {
	SQL  string
	Args []any
}

// NewTestQuerier creates a TestQuerier with the given Dialect.
func NewTestQuerier(d core.Dialect) *TestQuerier {
	return &TestQuerier{D: d}
}

// NewTestSession returns a Session that runs every statement on tq.
func NewTestSession(tq *TestQuerier, opts ...SessionOption) *Session {
	return newSession(tq.D, func(context.Context) (Querier, error) { return tq, nil }, opts...)
}

func (tq *TestQuerier) Execute(_ context.Context, stmt core.Executable, params ...core.Params) (*core.Result, error) {
	var p core.Params
	if len(params) > 0 {
		p = params[0]
	}
	query, args, err := stmt.Compile(tq.D, p)
	if err != nil {
		return nil, err //nolint:wrapcheck // test helper
	}
	tq.Queries = append(tq.Queries, TestQuery{query, args})
	return core.NewResult(nil, nil), nil
}

// ExecDriverSQL records query as the connection would send it, with
// placeholders rebound for the dialect.
func (tq *TestQuerier) ExecDriverSQL(_ context.Context, query string, args ...any) (*core.Result, error) {
	tq.Queries = append(tq.Queries, TestQuery{core.Rebind(tq.D, query), args})
	return core.NewResult(nil, nil), nil
}

func (tq *TestQuerier) Dialect() core.Dialect { return tq.D }
func (tq *TestQuerier) Commit() error         { return nil }
func (tq *TestQuerier) Rollback() error       { return nil }
func (tq *TestQuerier) Close() error          { return nil }

var _ Querier = (*TestQuerier)(nil)

// LastQuery returns the most recently captured query, or panics if empty.
func (tq *TestQuerier) LastQuery() TestQuery {
	return tq.Queries[len(tq.Queries)-1]
}
