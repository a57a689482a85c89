package core

import "context"

// Exported for use in core_test package.
var (
	Operation   = operation
	ReturnsRows = returnsRows
)

// LogRecorder is a Logger that records every echoed statement.
type LogRecorder struct {
	Lines []string
}

func (r *LogRecorder) Log(_ context.Context, query string, _ ...any) {
	r.Lines = append(r.Lines, query)
}
