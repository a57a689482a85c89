package orm

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/mickamy/ormtour/core"
)

// Querier is the connection a Session runs its SQL on.
// *core.Connection satisfies it.
type Querier interface {
	Execute(ctx context.Context, stmt core.Executable, params ...core.Params) (*core.Result, error)
	ExecDriverSQL(ctx context.Context, query string, args ...any) (*core.Result, error)
	Dialect() core.Dialect
	Commit() error
	Rollback() error
	Close() error
}

var _ Querier = (*core.Connection)(nil)

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithRegistry sets the Registry whose mapped types the session persists
// and loads. Textual Execute works without one.
func WithRegistry(reg *Registry) SessionOption {
	return func(s *Session) { s.reg = reg }
}

// WithAutoflush controls whether queries flush pending changes first.
// It is on by default.
func WithAutoflush(on bool) SessionOption {
	return func(s *Session) { s.autoflush = on }
}

// Session is a unit of work bound to an Engine. It checks out a
// connection on first use, tracks the objects it loads or is given,
// and writes their changes on Flush and Commit.
//
// Within one Session there is at most one object per primary key.
// A Session is not safe for concurrent use.
type Session struct {
	id        string
	reg       *Registry
	autoflush bool
	dialect   core.Dialect
	connect   func(ctx context.Context) (Querier, error)
	conn      Querier

	identity map[identityKey]*instance
	objects  map[any]*instance
	pending  []*instance
	deleted  []*instance
	gone     map[any]bool // deleted by a flush; not re-added by cascade
}

type identityKey struct {
	m  *Mapper
	pk any
}

// instance is an object tracked by a Session.
type instance struct {
	m        *Mapper
	v        reflect.Value // pointer to the struct
	snapshot []any         // column values as last written or read; nil while pending
}

func (in *instance) key() identityKey {
	return identityKey{m: in.m, pk: normalize(in.m.pkValue(in.v))}
}

// NewSession returns a Session on engine.
//
//	session := orm.NewSession(engine, orm.WithRegistry(reg))
//	defer session.Close()
func NewSession(engine *core.Engine, opts ...SessionOption) *Session {
	return newSession(engine.Dialect(), func(ctx context.Context) (Querier, error) {
		conn, err := engine.Connect(ctx)
		if err != nil {
			return nil, err //nolint:wrapcheck // already descriptive
		}
		return conn, nil
	}, opts...)
}

func newSession(d core.Dialect, connect func(ctx context.Context) (Querier, error), opts ...SessionOption) *Session {
	s := &Session{
		id:        uuid.NewString(),
		autoflush: true,
		dialect:   d,
		connect:   connect,
		identity:  make(map[identityKey]*instance),
		objects:   make(map[any]*instance),
		gone:      make(map[any]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() string { return s.id }

// Registry returns the session's Registry, or nil.
func (s *Session) Registry() *Registry { return s.reg }

// Dialect returns the SQL dialect of the session's engine.
func (s *Session) Dialect() core.Dialect { return s.dialect }

func (s *Session) querier(ctx context.Context) (Querier, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}
	s.conn = conn
	return conn, nil
}

func (s *Session) mapperFor(t reflect.Type) (*Mapper, error) {
	if s.reg == nil {
		return nil, fmt.Errorf("%w: session has no registry", ErrUnmapped)
	}
	if err := s.reg.Configure(); err != nil {
		return nil, err
	}
	return s.reg.MapperFor(t)
}

// Execute runs a textual statement on the session's connection,
// beginning a transaction first if none is active.
func (s *Session) Execute(ctx context.Context, stmt core.Executable, params ...core.Params) (*core.Result, error) {
	q, err := s.querier(ctx)
	if err != nil {
		return nil, err
	}
	return q.Execute(ctx, stmt, params...) //nolint:wrapcheck // pass through
}

// Add places obj, a pointer to a mapped struct, in the session. It is
// inserted on the next flush. Objects reachable through obj's
// relationships are added with it.
func (s *Session) Add(obj any) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("orm: Add needs a non-nil pointer, got %T", obj)
	}
	m, err := s.mapperFor(v.Type())
	if err != nil {
		return err
	}
	key := v.Interface()
	delete(s.gone, key)
	s.deleted = slices.DeleteFunc(s.deleted, func(in *instance) bool { return in.v.Interface() == key })
	s.add(m, v)
	return nil
}

// AddAll adds every object in objs.
func (s *Session) AddAll(objs ...any) error {
	for _, obj := range objs {
		if err := s.Add(obj); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) add(m *Mapper, v reflect.Value) {
	key := v.Interface()
	if s.gone[key] || s.isPending(key) {
		return
	}
	if _, ok := s.objects[key]; ok {
		return
	}
	s.pending = append(s.pending, &instance{m: m, v: v})
	s.cascade(m, v)
}

func (s *Session) cascade(m *Mapper, v reflect.Value) {
	for _, rel := range m.rels {
		for _, other := range rel.related(v) {
			s.add(rel.target, other)
		}
	}
}

func (s *Session) isPending(key any) bool {
	return slices.ContainsFunc(s.pending, func(in *instance) bool { return in.v.Interface() == key })
}

// Delete marks obj for deletion on the next flush. A pending object is
// simply dropped from the session.
func (s *Session) Delete(obj any) error {
	v := reflect.ValueOf(obj)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return fmt.Errorf("orm: Delete needs a non-nil pointer, got %T", obj)
	}
	key := v.Interface()
	if s.isPending(key) {
		s.pending = slices.DeleteFunc(s.pending, func(in *instance) bool { return in.v.Interface() == key })
		return nil
	}
	in, ok := s.objects[key]
	if !ok {
		return fmt.Errorf("orm: %T is not persisted in this session", obj)
	}
	if !slices.Contains(s.deleted, in) {
		s.deleted = append(s.deleted, in)
	}
	return nil
}

// Contains reports whether obj is tracked by the session, pending or
// persistent.
func (s *Session) Contains(obj any) bool {
	if v := reflect.ValueOf(obj); v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	if _, ok := s.objects[obj]; ok {
		return true
	}
	return s.isPending(obj)
}

// Flush writes pending changes: inserts, parents before children, with
// foreign keys copied from related objects and generated primary keys
// written back; updates of changed columns; then deletes, children
// before parents. Nothing is emitted when nothing changed.
func (s *Session) Flush(ctx context.Context) error {
	if len(s.objects) == 0 && len(s.pending) == 0 {
		return nil
	}
	if s.reg != nil {
		if err := s.reg.Configure(); err != nil {
			return err
		}
	}

	for _, in := range s.objects {
		s.cascade(in.m, in.v)
	}
	for _, in := range s.objects {
		if err := s.syncChildren(in); err != nil {
			return err
		}
	}

	order, err := s.tableOrder()
	if err != nil {
		return err
	}
	pending := s.pending
	slices.SortStableFunc(pending, func(a, b *instance) int {
		return order[a.m] - order[b.m]
	})

	for _, in := range pending {
		if err := s.syncParents(in); err != nil {
			return err
		}
		if err := s.insert(ctx, in); err != nil {
			return err
		}
		in.snapshot = in.m.state(in.v)
		s.track(in)
		if err := s.syncChildren(in); err != nil {
			return err
		}
	}
	s.pending = nil

	for _, in := range s.sortedObjects(order) {
		if err := s.update(ctx, in); err != nil {
			return err
		}
	}

	deleted := s.deleted
	slices.SortStableFunc(deleted, func(a, b *instance) int {
		return order[b.m] - order[a.m]
	})
	for _, in := range deleted {
		if err := s.delete(ctx, in); err != nil {
			return err
		}
		delete(s.identity, in.key())
		delete(s.objects, in.v.Interface())
		s.gone[in.v.Interface()] = true
	}
	s.deleted = nil
	return nil
}

// tableOrder ranks mappers by the dependency order of their tables.
func (s *Session) tableOrder() (map[*Mapper]int, error) {
	order := make(map[*Mapper]int)
	if s.reg == nil {
		return order, nil
	}
	tables, err := s.reg.md.SortedTables()
	if err != nil {
		return nil, err //nolint:wrapcheck // already descriptive
	}
	for i, t := range tables {
		if m := s.reg.byTable[t.Name()]; m != nil {
			order[m] = i
		}
	}
	return order, nil
}

// sortedObjects returns the persistent objects in a deterministic order.
func (s *Session) sortedObjects(order map[*Mapper]int) []*instance {
	out := make([]*instance, 0, len(s.objects))
	for _, in := range s.objects {
		out = append(out, in)
	}
	slices.SortFunc(out, func(a, b *instance) int {
		if d := order[a.m] - order[b.m]; d != 0 {
			return d
		}
		return strings.Compare(fmt.Sprint(normalize(a.m.pkValue(a.v))), fmt.Sprint(normalize(b.m.pkValue(b.v))))
	})
	return out
}

func (s *Session) track(in *instance) {
	s.objects[in.v.Interface()] = in
	s.identity[in.key()] = in
}

// syncParents copies the primary key of each belongs_to parent into the
// child's foreign key and links the parent back to the child.
func (s *Session) syncParents(in *instance) error {
	for _, rel := range in.m.rels {
		if rel.kind != BelongsTo {
			continue
		}
		for _, parent := range rel.related(in.v) {
			pk := rel.target.pkValue(parent)
			if pk.IsZero() {
				continue
			}
			if err := setField(in.v.Elem().FieldByIndex(rel.fk.index), pk); err != nil {
				return fmt.Errorf("orm: %s.%s: %w", in.m.typ.Name(), rel.name, err)
			}
			if rel.back != nil {
				rel.back.attach(parent, in.v)
			}
		}
	}
	return nil
}

// syncChildren copies the primary key of in into the foreign key of every
// has_many and has_one child and links each child back to in.
func (s *Session) syncChildren(in *instance) error {
	pk := in.m.pkValue(in.v)
	if pk.IsZero() {
		return nil
	}
	for _, rel := range in.m.rels {
		if rel.kind == BelongsTo {
			continue
		}
		for _, child := range rel.related(in.v) {
			if err := setField(child.Elem().FieldByIndex(rel.fk.index), pk); err != nil {
				return fmt.Errorf("orm: %s.%s: %w", in.m.typ.Name(), rel.name, err)
			}
			if rel.back != nil {
				rel.back.attach(child, in.v)
			}
		}
	}
	return nil
}

// setField copies a key value into a foreign key field, converting
// between integer widths and pointer forms.
func setField(dst, src reflect.Value) error {
	if dst.Kind() == reflect.Pointer && src.Kind() != reflect.Pointer {
		p := reflect.New(dst.Type().Elem())
		if err := core.AssignValue(p.Elem(), src.Interface()); err != nil {
			return err //nolint:wrapcheck // wrapped by caller
		}
		dst.Set(p)
		return nil
	}
	return core.AssignValue(dst, reflect.Indirect(src).Interface()) //nolint:wrapcheck // wrapped by caller
}

func (s *Session) insert(ctx context.Context, in *instance) error {
	q, err := s.querier(ctx)
	if err != nil {
		return err
	}
	m := in.m
	d := q.Dialect()
	pk := m.pkValue(in.v)
	generated := m.autoIncrement() && pk.IsZero()

	var cols []string
	var vals []any
	for i, v := range m.values(in.v) {
		f := m.fields[i]
		if f.pk && generated {
			continue
		}
		cols = append(cols, f.column)
		vals = append(vals, v)
	}

	query := buildInsert(d, m.table.Name(), cols)
	if generated && d.UseReturning() {
		query += d.ReturningClause(m.pk.column)
	}
	res, err := q.ExecDriverSQL(ctx, query, vals...)
	if err != nil {
		return fmt.Errorf("orm: insert %s: %w", m.typ.Name(), err)
	}
	if !generated {
		return nil
	}

	var id any = res.LastInsertID()
	if d.UseReturning() {
		id = res.Scalar()
	}
	if err := core.AssignValue(pk, id); err != nil {
		return fmt.Errorf("orm: insert %s: primary key: %w", m.typ.Name(), err)
	}
	return nil
}

func (s *Session) update(ctx context.Context, in *instance) error {
	current := in.m.state(in.v)
	values := in.m.values(in.v)
	var sets []string
	var args []any
	for i, f := range in.m.fields {
		if f.pk || reflect.DeepEqual(in.snapshot[i], current[i]) {
			continue
		}
		sets = append(sets, f.column)
		args = append(args, values[i])
	}
	if len(sets) == 0 {
		return nil
	}

	q, err := s.querier(ctx)
	if err != nil {
		return err
	}
	d := q.Dialect()
	args = append(args, in.m.pkValue(in.v).Interface())
	if _, err := q.ExecDriverSQL(ctx, buildUpdate(d, in.m.table.Name(), sets, in.m.pk.column), args...); err != nil {
		return fmt.Errorf("orm: update %s: %w", in.m.typ.Name(), err)
	}
	in.snapshot = current
	return nil
}

func (s *Session) delete(ctx context.Context, in *instance) error {
	q, err := s.querier(ctx)
	if err != nil {
		return err
	}
	d := q.Dialect()
	query := "DELETE FROM " + d.QuoteIdent(in.m.table.Name()) + " WHERE " + d.QuoteIdent(in.m.pk.column) + " = ?"
	if _, err := q.ExecDriverSQL(ctx, query, in.m.pkValue(in.v).Interface()); err != nil {
		return fmt.Errorf("orm: delete %s: %w", in.m.typ.Name(), err)
	}
	return nil
}

// Commit flushes pending changes, commits the transaction and releases
// the connection. If the flush fails the transaction is rolled back and
// the flush error returned.
func (s *Session) Commit(ctx context.Context) error {
	if err := s.Flush(ctx); err != nil {
		return errors.Join(err, s.Rollback())
	}
	if s.conn == nil {
		return nil
	}
	err := s.conn.Commit()
	return errors.Join(err, s.release())
}

// Rollback rolls back the transaction, releases the connection and
// forgets every tracked object.
func (s *Session) Rollback() error {
	var err error
	if s.conn != nil {
		err = s.conn.Rollback()
		err = errors.Join(err, s.release())
	}
	s.reset()
	return err
}

// Close ends the session: anything uncommitted is rolled back.
func (s *Session) Close() error { return s.Rollback() }

func (s *Session) release() error {
	conn := s.conn
	s.conn = nil
	return conn.Close() //nolint:wrapcheck // pass through
}

func (s *Session) reset() {
	s.identity = make(map[identityKey]*instance)
	s.objects = make(map[any]*instance)
	s.pending = nil
	s.deleted = nil
	s.gone = make(map[any]bool)
}

// load runs a SELECT and turns its rows into objects of m, reusing the
// tracked object for any primary key already in the session.
func (s *Session) load(ctx context.Context, m *Mapper, query string, args []any) ([]reflect.Value, error) {
	q, err := s.querier(ctx)
	if err != nil {
		return nil, err
	}
	res, err := q.ExecDriverSQL(ctx, query, args...)
	if err != nil {
		return nil, err //nolint:wrapcheck // pass through
	}

	out := make([]reflect.Value, 0, res.Len())
	for row := range res.Rows() {
		v, err := s.materialize(m, row)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Session) materialize(m *Mapper, row core.Row) (reflect.Value, error) {
	var key *identityKey
	if raw, err := row.Lookup(m.pk.column); err == nil && raw != nil {
		pk := reflect.New(m.typ.FieldByIndex(m.pk.index).Type).Elem()
		if err := core.AssignValue(pk, raw); err != nil {
			return reflect.Value{}, fmt.Errorf("orm: load %s.%s: %w", m.typ.Name(), m.pk.name, err)
		}
		key = &identityKey{m: m, pk: normalize(pk)}
		if in, ok := s.identity[*key]; ok {
			return in.v, nil
		}
	}

	v := reflect.New(m.typ)
	for _, f := range m.fields {
		raw, err := row.Lookup(f.column)
		if err != nil {
			continue
		}
		if err := core.AssignValue(v.Elem().FieldByIndex(f.index), raw); err != nil {
			return reflect.Value{}, fmt.Errorf("orm: load %s.%s: %w", m.typ.Name(), f.name, err)
		}
	}
	if key != nil {
		s.track(&instance{m: m, v: v, snapshot: m.state(v)})
	}
	return v, nil
}

// Get returns the object of type T with primary key pk, from the
// identity map when it is already loaded. It returns ErrNotFound when
// no row matches.
//
//	user, err := orm.Get[User](ctx, session, 1)
func Get[T any](ctx context.Context, s *Session, pk any) (*T, error) {
	m, err := s.mapperFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	key := reflect.New(m.typ.FieldByIndex(m.pk.index).Type).Elem()
	if err := core.AssignValue(key, pk); err != nil {
		return nil, fmt.Errorf("orm: Get[%s]: %w", m.typ.Name(), err)
	}
	if in, ok := s.identity[identityKey{m: m, pk: normalize(key)}]; ok {
		return in.v.Interface().(*T), nil //nolint:forcetypeassert // mapper type is T
	}

	d := s.dialect
	return Select[T](s).
		Where(d.QuoteIdent(m.table.Name())+"."+d.QuoteIdent(m.pk.column)+" = ?", pk).
		First(ctx)
}

// normalize turns a key value into a comparable map key that is the
// same for every integer width.
func normalize(v reflect.Value) any {
	v = reflect.Indirect(v)
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(v.Uint()) //nolint:gosec // keys fit
	case reflect.String:
		return v.String()
	default:
		if v.Type().Comparable() {
			return v.Interface()
		}
		return fmt.Sprint(v.Interface())
	}
}
