package orm

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/mickamy/ormtour/core"
	"github.com/mickamy/ormtour/scope"
)

// Query represents a pending SELECT of mapped type T.
// All builder methods return a new Query; the receiver is never modified.
type Query[T any] struct {
	s   *Session
	m   *Mapper
	err error

	wheres   []whereClause
	orderBys []string
	joins    []string
	selects  *string
	limit    *int
	offset   *int
	preloads []string
}

type whereClause struct {
	clause string
	args   []any
}

// Select starts a query for objects of type T in s.
//
//	users, err := orm.Select[User](session).
//	    Where(`"user_account"."name" IN (?, ?)`, "spongebob", "sandy").
//	    Preload("Addresses").
//	    All(ctx)
func Select[T any](s *Session) *Query[T] {
	m, err := s.mapperFor(reflect.TypeFor[T]())
	return &Query[T]{s: s, m: m, err: err}
}

// clone returns a shallow copy with slices copied to avoid aliasing.
func (q *Query[T]) clone() *Query[T] {
	q2 := *q
	q2.wheres = append([]whereClause(nil), q.wheres...)
	q2.orderBys = append([]string(nil), q.orderBys...)
	q2.joins = append([]string(nil), q.joins...)
	q2.preloads = append([]string(nil), q.preloads...)
	return &q2
}

// --- Builder methods ---

func (q *Query[T]) Where(clause string, args ...any) *Query[T] {
	q2 := q.clone()
	q2.wheres = append(q2.wheres, whereClause{clause, args})
	return q2
}

func (q *Query[T]) OrderBy(clause string) *Query[T] {
	q2 := q.clone()
	q2.orderBys = append(q2.orderBys, clause)
	return q2
}

func (q *Query[T]) Limit(n int) *Query[T] {
	q2 := q.clone()
	q2.limit = &n
	return q2
}

func (q *Query[T]) Offset(n int) *Query[T] {
	q2 := q.clone()
	q2.offset = &n
	return q2
}

// Select overrides the selected columns. Columns the mapper does not find
// in the result are left zero.
func (q *Query[T]) Select(columns string) *Query[T] {
	q2 := q.clone()
	q2.selects = &columns
	return q2
}

// Join adds an INNER JOIN along the named relationship field.
func (q *Query[T]) Join(name string) *Query[T] {
	return q.addJoin("INNER JOIN", name)
}

// LeftJoin adds a LEFT JOIN along the named relationship field.
func (q *Query[T]) LeftJoin(name string) *Query[T] {
	return q.addJoin("LEFT JOIN", name)
}

func (q *Query[T]) addJoin(joinType, name string) *Query[T] {
	q2 := q.clone()
	if q2.err != nil {
		return q2
	}
	rel := q.m.relByName[name]
	if rel == nil {
		q2.err = fmt.Errorf("%w: %s.%s", ErrUnknownRelationship, q.m.typ.Name(), name)
		return q2
	}

	source, target := q.m.table.Name(), rel.target.table.Name()
	sourceCol, targetCol := q.m.pk.column, rel.fk.column
	if rel.kind == BelongsTo {
		sourceCol, targetCol = rel.fk.column, rel.target.pk.column
	}
	q2.joins = append(q2.joins, fmt.Sprintf(
		"%s %s ON %s.%s = %s.%s",
		joinType,
		q.qi(target),
		q.qi(target), q.qi(targetCol),
		q.qi(source), q.qi(sourceCol),
	))
	return q2
}

// Preload eagerly loads the named relationship field of every result
// with one extra SELECT ... IN query.
func (q *Query[T]) Preload(name string) *Query[T] {
	q2 := q.clone()
	q2.preloads = append(q2.preloads, name)
	return q2
}

// Scopes applies the given scope.Scope values to the query.
func (q *Query[T]) Scopes(scopes ...scope.Scope) *Query[T] {
	q2 := q.clone()
	for _, s := range scopes {
		s.Apply(q2)
	}
	return q2
}

// --- scope.Applier implementation ---

func (q *Query[T]) ApplyWhere(clause string, args []any) {
	q.wheres = append(q.wheres, whereClause{clause, args})
}

func (q *Query[T]) ApplyOrderBy(clause string) {
	q.orderBys = append(q.orderBys, clause)
}

func (q *Query[T]) ApplyLimit(n int)  { q.limit = &n }
func (q *Query[T]) ApplyOffset(n int) { q.offset = &n }

func (q *Query[T]) ApplySelect(columns string) {
	q.selects = &columns
}

var _ scope.Applier = (*Query[any])(nil)

// --- Terminal methods ---

// All flushes pending changes, runs the SELECT and returns every
// matching object. Objects already in the session are returned as is.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	if err := q.prepare(ctx); err != nil {
		return nil, err
	}
	query, args := q.buildSelect()
	loaded, err := q.s.load(ctx, q.m, query, args)
	if err != nil {
		return nil, err
	}

	for _, name := range q.preloads {
		rel := q.m.relByName[name]
		if rel == nil {
			return nil, fmt.Errorf("%w: preload %s.%s", ErrUnknownRelationship, q.m.typ.Name(), name)
		}
		if err := q.s.preload(ctx, rel, loaded); err != nil {
			return nil, err
		}
	}

	result := make([]*T, len(loaded))
	for i, v := range loaded {
		result[i] = v.Interface().(*T) //nolint:forcetypeassert // mapper type is T
	}
	return result, nil
}

// First runs the query with LIMIT 1 and returns the first object.
// Returns ErrNotFound if no rows match.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	items, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	return items[0], nil
}

// One returns the only matching object. It fails with ErrNotFound when
// there is none and core.ErrMultipleRows when there are more.
func (q *Query[T]) One(ctx context.Context) (*T, error) {
	items, err := q.Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(items) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return items[0], nil
	default:
		return nil, core.ErrMultipleRows
	}
}

// Count returns the number of rows matching the current query conditions.
func (q *Query[T]) Count(ctx context.Context) (int64, error) {
	if err := q.prepare(ctx); err != nil {
		return 0, err
	}
	query, args := q.buildCount()
	db, err := q.s.querier(ctx)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecDriverSQL(ctx, query, args...)
	if err != nil {
		return 0, err //nolint:wrapcheck // pass through
	}

	var count int64
	if err := core.Assign(&count, res.Scalar()); err != nil {
		return 0, fmt.Errorf("orm: count: %w", err)
	}
	return count, nil
}

// Exists returns true if at least one row matches the current query
// conditions, honouring any offset.
func (q *Query[T]) Exists(ctx context.Context) (bool, error) {
	if err := q.prepare(ctx); err != nil {
		return false, err
	}
	one := q.Select("1")
	if q.limit == nil || *q.limit > 1 {
		one = one.Limit(1)
	}
	query, args := one.buildSelect()
	db, err := q.s.querier(ctx)
	if err != nil {
		return false, err
	}
	res, err := db.ExecDriverSQL(ctx, query, args...)
	if err != nil {
		return false, err //nolint:wrapcheck // pass through
	}
	return res.Len() > 0, nil
}

// Delete deletes rows matching the accumulated WHERE clauses and returns
// how many were removed. It refuses to run without a WHERE clause.
// Objects already loaded in the session are not touched.
func (q *Query[T]) Delete(ctx context.Context) (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	if len(q.wheres) == 0 {
		return 0, ErrUnsafeDelete
	}
	if err := q.prepare(ctx); err != nil {
		return 0, err
	}
	query, args := q.buildDelete()
	db, err := q.s.querier(ctx)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecDriverSQL(ctx, query, args...)
	if err != nil {
		return 0, err //nolint:wrapcheck // pass through
	}
	return res.RowsAffected(), nil
}

// SQL returns the SELECT the query would run, with "?" placeholders.
func (q *Query[T]) SQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}
	query, args := q.buildSelect()
	return query, args, nil
}

func (q *Query[T]) prepare(ctx context.Context) error {
	if q.err != nil {
		return q.err
	}
	if q.s.autoflush {
		return q.s.Flush(ctx)
	}
	return nil
}

// --- SQL building ---

// qi quotes an identifier (table/column name) using the dialect.
func (q *Query[T]) qi(name string) string {
	return q.s.dialect.QuoteIdent(name)
}

// quoteColumns joins column names, qualified by the query's table.
func (q *Query[T]) quoteColumns(cols []string) string {
	table := q.qi(q.m.table.Name())
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = table + "." + q.qi(c)
	}
	return strings.Join(quoted, ", ")
}

func (q *Query[T]) buildSelect() (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")

	if q.selects != nil {
		b.WriteString(*q.selects)
	} else {
		b.WriteString(q.quoteColumns(q.m.Columns()))
	}

	b.WriteString(" FROM ")
	b.WriteString(q.qi(q.m.table.Name()))

	for _, j := range q.joins {
		b.WriteByte(' ')
		b.WriteString(j)
	}

	args := q.appendWhere(&b)

	if len(q.orderBys) > 0 {
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(q.orderBys, ", "))
	}

	q.appendLimit(&b)
	return b.String(), args
}

// buildCount counts matching rows. With a LIMIT or OFFSET the window is
// applied in a subquery first.
func (q *Query[T]) buildCount() (string, []any) {
	if q.limit != nil || q.offset != nil {
		inner, args := q.Select(q.quoteColumns([]string{q.m.pk.column})).buildSelect()
		return "SELECT COUNT(*) FROM (" + inner + ") AS sub", args
	}

	var b strings.Builder
	b.WriteString("SELECT COUNT(*) FROM ")
	b.WriteString(q.qi(q.m.table.Name()))

	for _, j := range q.joins {
		b.WriteByte(' ')
		b.WriteString(j)
	}

	args := q.appendWhere(&b)
	return b.String(), args
}

func (q *Query[T]) buildDelete() (string, []any) {
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(q.qi(q.m.table.Name()))
	args := q.appendWhere(&b)
	return b.String(), args
}

func (q *Query[T]) appendWhere(b *strings.Builder) []any {
	if len(q.wheres) == 0 {
		return nil
	}

	var args []any
	b.WriteString(" WHERE ")
	for i, w := range q.wheres {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString(w.clause)
		args = append(args, w.args...)
	}
	return args
}

// appendLimit writes LIMIT and OFFSET. SQLite and MySQL accept OFFSET
// only after a LIMIT, so an offset alone gets an unbounded one.
func (q *Query[T]) appendLimit(b *strings.Builder) {
	switch {
	case q.limit != nil:
		fmt.Fprintf(b, " LIMIT %d", *q.limit)
	case q.offset == nil:
	case q.s.dialect.Name() == "sqlite":
		b.WriteString(" LIMIT -1")
	case q.s.dialect.Name() == "mysql":
		b.WriteString(" LIMIT 18446744073709551615")
	}
	if q.offset != nil {
		fmt.Fprintf(b, " OFFSET %d", *q.offset)
	}
}

func buildInsert(d core.Dialect, table string, columns []string) string {
	if len(columns) == 0 {
		return "INSERT INTO " + d.QuoteIdent(table) + " DEFAULT VALUES"
	}
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.QuoteIdent(c)
		placeholders[i] = "?"
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)
}

func buildUpdate(d core.Dialect, table string, setCols []string, pk string) string {
	sets := make([]string, len(setCols))
	for i, col := range setCols {
		sets[i] = d.QuoteIdent(col) + " = ?"
	}
	return fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s = ?",
		d.QuoteIdent(table),
		strings.Join(sets, ", "),
		d.QuoteIdent(pk),
	)
}
