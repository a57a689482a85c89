package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/capitan"

	"github.com/mickamy/ormtour/core"
)

func TestSignalNames(t *testing.T) {
	t.Parallel()

	signals := []struct {
		signal capitan.Signal
		want   string
	}{
		{core.QueryStarted, "db.query.started"},
		{core.QueryCompleted, "db.query.completed"},
		{core.QueryFailed, "db.query.failed"},
		{core.TxCommitted, "db.tx.committed"},
		{core.TxRolledBack, "db.tx.rolled_back"},
	}
	for _, s := range signals {
		assert.Equal(t, s.want, s.signal.Name())
		assert.NotEmpty(t, s.signal.Description())
	}
}

type seenEvent struct {
	signal    string
	operation string
	rows      int
	failed    bool
}

func TestConnection_Signals(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	engine := newEngine(t)

	conn, err := engine.Connect(ctx)
	require.NoError(t, err)
	defer conn.Close()

	var (
		mu   sync.Mutex
		seen []seenEvent
	)
	observer := capitan.Observe(func(_ context.Context, e *capitan.Event) {
		// Other tests share the default capitan instance.
		if id, _ := core.ConnectionKey.From(e); id != conn.ID() {
			return
		}
		op, _ := core.OperationKey.From(e)
		rows, _ := core.RowsReturnedKey.From(e)
		msg, _ := core.ErrorKey.From(e)

		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, seenEvent{signal: e.Signal().Name(), operation: op, rows: rows, failed: msg != ""})
	}, core.QueryStarted, core.QueryCompleted, core.QueryFailed, core.TxCommitted, core.TxRolledBack)
	defer observer.Close()

	_, err = conn.Execute(ctx, core.Text("select 'hello world'"))
	require.NoError(t, err)
	require.NoError(t, conn.Commit())

	_, err = conn.Execute(ctx, core.Text("SELECT * FROM no_such_table"))
	require.Error(t, err)
	require.NoError(t, conn.Rollback())

	want := []seenEvent{
		{signal: "db.query.started", operation: "SELECT"},
		{signal: "db.query.completed", operation: "SELECT", rows: 1},
		{signal: "db.tx.committed"},
		{signal: "db.query.started", operation: "SELECT"},
		{signal: "db.query.failed", operation: "SELECT", failed: true},
		{signal: "db.tx.rolled_back"},
	}
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) >= len(want)
	}, 5*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	// Each signal has its own worker, so only the set is stable.
	assert.ElementsMatch(t, want, seen)
}
