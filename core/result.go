package core

import (
	"fmt"
	"iter"
	"strings"
)

// Result is the buffered outcome of executing a statement. Rows are read
// in full before Execute returns, so a Result stays usable after the
// connection that produced it is closed.
type Result struct {
	columns      []string
	index        map[string]int
	rows         [][]any
	returnsRows  bool
	rowsAffected int64
	lastInsertID int64
}

func newResult(columns []string) *Result {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; !dup {
			index[c] = i
		}
	}
	return &Result{columns: columns, index: index, returnsRows: true}
}

// NewResult builds a Result from literal columns and rows.
func NewResult(columns []string, rows [][]any) *Result {
	r := newResult(columns)
	r.rows = rows
	return r
}

// Columns returns the column names of a row-returning statement.
func (r *Result) Columns() []string { return append([]string(nil), r.columns...) }

// ReturnsRows reports whether the statement was a query.
func (r *Result) ReturnsRows() bool { return r.returnsRows }

// Len returns the number of buffered rows.
func (r *Result) Len() int { return len(r.rows) }

// RowsAffected returns the number of rows changed by an INSERT, UPDATE
// or DELETE. For executemany it is the sum over all parameter sets.
func (r *Result) RowsAffected() int64 { return r.rowsAffected }

// LastInsertID returns the driver-reported id of the last inserted row,
// or 0 when the driver does not report one.
func (r *Result) LastInsertID() int64 { return r.lastInsertID }

func (r *Result) row(i int) Row {
	return Row{columns: r.columns, index: r.index, values: r.rows[i]}
}

// All returns every row.
func (r *Result) All() []Row {
	out := make([]Row, len(r.rows))
	for i := range r.rows {
		out[i] = r.row(i)
	}
	return out
}

// Rows iterates over the rows.
//
//	for row := range result.Rows() {
//	    fmt.Println(row.Get("x"), row.Get("y"))
//	}
func (r *Result) Rows() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for i := range r.rows {
			if !yield(r.row(i)) {
				return
			}
		}
	}
}

// First returns the first row, or nil when the result is empty.
func (r *Result) First() *Row {
	if len(r.rows) == 0 {
		return nil
	}
	row := r.row(0)
	return &row
}

// One returns the only row. It fails with ErrNoRows or ErrMultipleRows
// when the result does not hold exactly one row.
func (r *Result) One() (Row, error) {
	switch len(r.rows) {
	case 0:
		return Row{}, ErrNoRows
	case 1:
		return r.row(0), nil
	default:
		return Row{}, ErrMultipleRows
	}
}

// Scalar returns the first column of the first row, or nil when the
// result is empty.
func (r *Result) Scalar() any {
	if len(r.rows) == 0 || len(r.rows[0]) == 0 {
		return nil
	}
	return r.rows[0][0]
}

// Scalars returns the first column of every row.
func (r *Result) Scalars() []any {
	out := make([]any, 0, len(r.rows))
	for _, vals := range r.rows {
		if len(vals) > 0 {
			out = append(out, vals[0])
		}
	}
	return out
}

// Mappings returns every row as a column-name keyed map.
func (r *Result) Mappings() []map[string]any {
	out := make([]map[string]any, len(r.rows))
	for i := range r.rows {
		out[i] = r.row(i).Mapping()
	}
	return out
}

// String renders the rows as a list of tuples.
func (r *Result) String() string {
	parts := make([]string, len(r.rows))
	for i := range r.rows {
		parts[i] = r.row(i).String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Row is a single result row. Values are reachable by position, by
// column name, as a mapping, or unpacked into variables with Scan.
type Row struct {
	columns []string
	index   map[string]int
	values  []any
}

// Len returns the number of values in the row.
func (r Row) Len() int { return len(r.values) }

// Index returns the value at position i. It panics if i is out of range.
func (r Row) Index(i int) any { return r.values[i] }

// Get returns the value of the named column, or nil when there is no
// such column.
func (r Row) Get(name string) any {
	v, _ := r.Lookup(name)
	return v
}

// Lookup returns the value of the named column.
func (r Row) Lookup(name string) (any, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrNoSuchColumn, name)
	}
	return r.values[i], nil
}

// Columns returns the column names.
func (r Row) Columns() []string { return append([]string(nil), r.columns...) }

// Values returns a copy of the row values in column order.
func (r Row) Values() []any { return append([]any(nil), r.values...) }

// Mapping returns the row keyed by column name.
func (r Row) Mapping() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		if _, dup := m[c]; !dup {
			m[c] = r.values[i]
		}
	}
	return m
}

// Scan copies the row values into dest, converting where needed, the
// way a tuple is unpacked:
//
//	var x, y int
//	err := row.Scan(&x, &y)
func (r Row) Scan(dest ...any) error {
	if len(dest) != len(r.values) {
		return fmt.Errorf("core: Scan expected %d destinations, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		if err := assign(d, r.values[i]); err != nil {
			return fmt.Errorf("core: Scan column %d (%s): %w", i, r.columns[i], err)
		}
	}
	return nil
}

// ScanColumn copies the named column into dest.
func (r Row) ScanColumn(name string, dest any) error {
	v, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return assign(dest, v)
}

// String renders the row as a tuple, e.g. ("hello world") or (1, 1).
func (r Row) String() string {
	parts := make([]string, len(r.values))
	for i, v := range r.values {
		parts[i] = formatValue(v)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return fmt.Sprintf("%q", v)
	case []byte:
		return fmt.Sprintf("%q", v)
	default:
		return fmt.Sprint(v)
	}
}
