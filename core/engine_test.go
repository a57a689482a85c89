package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mickamy/ormtour/core"
)

func newEngine(t *testing.T, opts ...core.Option) *core.Engine {
	t.Helper()

	engine, err := core.Create("sqlite:///:memory:", opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Dispose() })
	return engine
}

func seedSomeTable(t *testing.T, engine *core.Engine) {
	t.Helper()

	err := engine.Begin(context.Background(), func(conn *core.Connection) error {
		if _, err := conn.Execute(context.Background(), core.Text("CREATE TABLE some_table (x int, y int)")); err != nil {
			return err
		}
		_, err := conn.Execute(context.Background(),
			core.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
			core.Params{"x": 1, "y": 1}, core.Params{"x": 2, "y": 4}, core.Params{"x": 6, "y": 8},
		)
		return err
	})
	require.NoError(t, err)
}

func TestEngine_HelloWorld(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	res, err := conn.Execute(ctx, core.Text("select 'hello world'"))
	require.NoError(t, err)
	assert.True(t, res.ReturnsRows())
	assert.Equal(t, `[("hello world")]`, res.String())
	assert.Equal(t, "hello world", res.Scalar())
}

func TestConnection_CommitAsYouGo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)

	_, err = conn.Execute(ctx, core.Text("CREATE TABLE some_table (x int, y int)"))
	require.NoError(t, err)
	assert.True(t, conn.InTransaction())

	res, err := conn.Execute(ctx,
		core.Text("INSERT INTO some_table (x, y) VALUES (:x, :y)"),
		core.Params{"x": 1, "y": 1}, core.Params{"x": 2, "y": 4},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RowsAffected())

	require.NoError(t, conn.Commit())
	assert.False(t, conn.InTransaction())
	require.NoError(t, conn.Close())

	conn, err = engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	res, err = conn.Execute(ctx, core.Text("SELECT count(*) FROM some_table"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Scalar())
}

func TestConnection_CloseDiscardsUncommitted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)
	seedSomeTable(t, engine)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)
	_, err = conn.Execute(ctx, core.Text("DELETE FROM some_table"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	conn, err = engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	res, err := conn.Execute(ctx, core.Text("SELECT count(*) FROM some_table"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), res.Scalar())
}

func TestEngine_BeginOnce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)
	seedSomeTable(t, engine)

	errBoom := errors.New("boom")
	err := engine.Begin(ctx, func(conn *core.Connection) error {
		if _, err := conn.Execute(ctx, core.Text("DELETE FROM some_table")); err != nil {
			return err
		}
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	assert.Panics(t, func() {
		_ = engine.Begin(ctx, func(conn *core.Connection) error {
			_, _ = conn.Execute(ctx, core.Text("DELETE FROM some_table"))
			panic("boom")
		})
	})

	var count any
	err = engine.Begin(ctx, func(conn *core.Connection) error {
		res, err := conn.Execute(ctx, core.Text("SELECT count(*) FROM some_table"))
		if err != nil {
			return err
		}
		count = res.Scalar()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestResult_RowAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)
	seedSomeTable(t, engine)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	res, err := conn.Execute(ctx,
		core.Text("SELECT x, y FROM some_table WHERE y > :y ORDER BY x, y").BindParams(core.Params{"y": 2}),
	)
	require.NoError(t, err)
	require.Equal(t, 2, res.Len())
	assert.Equal(t, []string{"x", "y"}, res.Columns())

	var rows []core.Row
	for row := range res.Rows() {
		rows = append(rows, row)
	}
	require.Len(t, rows, 2)

	var x, y int
	require.NoError(t, rows[0].Scan(&x, &y))
	assert.Equal(t, 2, x)
	assert.Equal(t, 4, y)

	assert.Equal(t, int64(6), rows[1].Index(0))
	assert.Equal(t, int64(8), rows[1].Get("y"))
	assert.Nil(t, rows[1].Get("z"))
	_, err = rows[1].Lookup("z")
	require.ErrorIs(t, err, core.ErrNoSuchColumn)

	assert.Equal(t, []map[string]any{
		{"x": int64(2), "y": int64(4)},
		{"x": int64(6), "y": int64(8)},
	}, res.Mappings())
	assert.Equal(t, []any{int64(2), int64(6)}, res.Scalars())
	assert.Equal(t, "(2, 4)", rows[0].String())

	_, err = res.One()
	require.ErrorIs(t, err, core.ErrMultipleRows)
	require.Error(t, rows[0].Scan(&x))
}

func TestResult_Empty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)
	seedSomeTable(t, engine)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	res, err := conn.Execute(ctx, core.Text("SELECT x FROM some_table WHERE x > :x"), core.Params{"x": 100})
	require.NoError(t, err)
	assert.Nil(t, res.First())
	assert.Nil(t, res.Scalar())
	_, err = res.One()
	require.ErrorIs(t, err, core.ErrNoRows)
}

func TestConnection_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)

	_, err = conn.Execute(ctx, core.Text("SELECT :missing"))
	require.ErrorIs(t, err, core.ErrMissingParam)

	_, err = conn.Execute(ctx, core.Text("SELECT * FROM no_such_table"))
	var stmtErr *core.StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, "SELECT * FROM no_such_table", stmtErr.SQL)

	_, err = conn.Begin(ctx)
	require.ErrorIs(t, err, core.ErrTransactionInProgress)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	_, err = conn.Execute(ctx, core.Text("select 1"))
	require.ErrorIs(t, err, core.ErrConnectionClosed)
	require.ErrorIs(t, conn.Commit(), core.ErrConnectionClosed)
	require.ErrorIs(t, conn.Rollback(), core.ErrConnectionClosed)
	_, err = conn.Begin(ctx)
	require.ErrorIs(t, err, core.ErrConnectionClosed)
}

func TestConnection_LiteralColons(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	res, err := conn.Execute(ctx, core.Text("select '12:30'"))
	require.NoError(t, err)
	assert.Equal(t, "12:30", res.Scalar())

	res, err = conn.Execute(ctx, core.Text("select time('2024-01-01 10:00:00'), :x"), core.Params{"x": 1})
	require.NoError(t, err)
	row := res.First()
	require.NotNil(t, row)
	assert.Equal(t, []any{"10:00:00", int64(1)}, row.Values())
}

func TestConnection_ExplicitTransaction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)
	seedSomeTable(t, engine)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	tx, err := conn.Begin(ctx)
	require.NoError(t, err)
	assert.True(t, tx.IsActive())

	_, err = conn.Execute(ctx, core.Text("UPDATE some_table SET y = y + 1"))
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())
	assert.False(t, tx.IsActive())
	require.ErrorIs(t, tx.Commit(), core.ErrNoTransaction)

	res, err := conn.Execute(ctx, core.Text("SELECT sum(y) FROM some_table"))
	require.NoError(t, err)
	assert.Equal(t, int64(13), res.Scalar())
}

func TestEngine_Echo(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	rec := &core.LogRecorder{}
	engine := newEngine(t, core.WithEcho(rec))

	err := engine.Begin(ctx, func(conn *core.Connection) error {
		_, err := conn.Execute(ctx, core.Text("select 'hello world'"))
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"BEGIN (implicit)", "select 'hello world'", "COMMIT"}, rec.Lines)

	quiet := newEngine(t)
	debug := quiet.Debug(rec)
	rec.Lines = nil
	conn, err := debug.Connect(ctx)
	require.NoError(t, err)
	_, err = conn.ExecDriverSQL(ctx, "SELECT ?", 1)
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	assert.Equal(t, []string{"BEGIN (implicit)", "SELECT ?", "ROLLBACK"}, rec.Lines)
}
