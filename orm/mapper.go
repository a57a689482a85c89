package orm

import (
	"database/sql"
	"fmt"
	"reflect"
	"sync"

	"github.com/mickamy/ormtour/internal/tags"
	"github.com/mickamy/ormtour/schema"
)

// RelationKind is the cardinality of a Relationship.
type RelationKind string

const (
	// HasMany is a one-to-many relationship held in a slice of pointers.
	// The foreign key column lives on the target table.
	HasMany RelationKind = RelationKind(tags.HasMany)

	// HasOne is a one-to-one relationship held in a pointer. The foreign
	// key column lives on the target table.
	HasOne RelationKind = RelationKind(tags.HasOne)

	// BelongsTo is a many-to-one relationship held in a pointer. The
	// foreign key column lives on this table.
	BelongsTo RelationKind = RelationKind(tags.BelongsTo)
)

var scannerType = reflect.TypeFor[sql.Scanner]()

// Registry is the declarative base: it maps Go struct types to tables
// and keeps every table in one schema.MetaData.
type Registry struct {
	mu         sync.Mutex
	md         *schema.MetaData
	mappers    []*Mapper
	byType     map[reflect.Type]*Mapper
	byTable    map[string]*Mapper
	configured bool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		md:      schema.NewMetaData(),
		byType:  make(map[reflect.Type]*Mapper),
		byTable: make(map[string]*Mapper),
	}
}

// MetaData returns the MetaData holding the mapped tables.
func (r *Registry) MetaData() *schema.MetaData { return r.md }

// Mappers returns every Mapper in mapping order.
func (r *Registry) Mappers() []*Mapper {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Mapper(nil), r.mappers...)
}

// MapperFor returns the Mapper of v's type. v may be a struct value, a
// pointer to one, or a reflect.Type.
func (r *Registry) MapperFor(v any) (*Mapper, error) {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	r.mu.Lock()
	m := r.byType[t]
	r.mu.Unlock()
	if m == nil {
		return nil, fmt.Errorf("%w: %v", ErrUnmapped, t)
	}
	return m, nil
}

// Map maps struct type T to a table registered in reg's MetaData.
//
//	type User struct {
//	    ID        int        `db:"id,primaryKey"`
//	    Name      string     `db:"name,size:30"`
//	    Addresses []*Address `rel:"has_many,foreign_key:user_id,back_populates:User"`
//	}
//
//	func (User) TableName() string { return "user_account" }
//
//	orm.Map[User](reg)
func Map[T any](reg *Registry) (*Mapper, error) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("orm: Map[%v]: not a struct type", t)
	}

	reg.mu.Lock()
	defer reg.mu.Unlock()
	if m, ok := reg.byType[t]; ok {
		return m, nil
	}

	m, cols, err := buildMapper(t)
	if err != nil {
		return nil, err
	}
	name := tableNameOf(t)
	if _, dup := reg.byTable[name]; dup {
		return nil, fmt.Errorf("%w: %s", schema.ErrDuplicateTable, name)
	}

	m.reg = reg
	m.table = schema.NewTable(name, reg.md, cols...)
	reg.mappers = append(reg.mappers, m)
	reg.byType[t] = m
	reg.byTable[name] = m
	reg.configured = false
	return m, nil
}

// MustMap is like Map but panics on error. It suits package-level
// declarations.
func MustMap[T any](reg *Registry) *Mapper {
	m, err := Map[T](reg)
	if err != nil {
		panic(err)
	}
	return m
}

// Configure resolves every relationship: the target type must be mapped,
// the foreign key column must exist on the side that holds it, and a
// back-populating field must be a relationship on the target pointing
// back at this type. It runs automatically before a Session first uses
// the Registry.
func (r *Registry) Configure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.configured {
		return nil
	}
	for _, m := range r.mappers {
		for _, rel := range m.rels {
			if err := r.resolve(m, rel); err != nil {
				return err
			}
		}
	}
	r.configured = true
	return nil
}

func (r *Registry) resolve(m *Mapper, rel *Relationship) error {
	target := r.byType[rel.targetType]
	if target == nil {
		return fmt.Errorf("%w: %s.%s: %w: %v", ErrInvalidRelationship, m.typ.Name(), rel.name, ErrUnmapped, rel.targetType)
	}
	rel.parent = m
	rel.target = target

	holder := target
	if rel.kind == BelongsTo {
		holder = m
	}
	fk := holder.byColumn[rel.foreignKey]
	if fk == nil {
		return fmt.Errorf("%w: %s.%s: no column %q on %s", ErrInvalidRelationship, m.typ.Name(), rel.name, rel.foreignKey, holder.table.Name())
	}
	rel.fk = fk

	if rel.backPopulates == "" {
		return nil
	}
	back := target.relByName[rel.backPopulates]
	if back == nil || back.targetType != m.typ {
		return fmt.Errorf("%w: %s.%s: back_populates %q is not a relationship of %s to %s",
			ErrInvalidRelationship, m.typ.Name(), rel.name, rel.backPopulates, target.typ.Name(), m.typ.Name())
	}
	rel.back = back
	return nil
}

// Mapper maps one Go struct type to a table.
type Mapper struct {
	reg       *Registry
	typ       reflect.Type
	table     *schema.Table
	fields    []*field
	byColumn  map[string]*field
	pk        *field
	rels      []*Relationship
	relByName map[string]*Relationship
}

type field struct {
	name   string
	column string
	index  []int
	pk     bool
}

func buildMapper(t reflect.Type) (*Mapper, []*schema.Column, error) {
	m := &Mapper{
		typ:       t,
		byColumn:  make(map[string]*field),
		relByName: make(map[string]*Relationship),
	}

	var cols []*schema.Column
	for i := range t.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() || sf.Anonymous {
			continue
		}

		if relTag, ok := sf.Tag.Lookup("rel"); ok {
			rel, err := newRelationship(sf, relTag)
			if err != nil {
				return nil, nil, fmt.Errorf("orm: %s.%s: %w", t.Name(), sf.Name, err)
			}
			m.rels = append(m.rels, rel)
			m.relByName[rel.name] = rel
			continue
		}

		dbTag, tagged := sf.Tag.Lookup("db")
		tc, ok, err := tags.ParseColumn(sf.Name, dbTag, tagged)
		if err != nil {
			return nil, nil, fmt.Errorf("orm: %s: %w", t.Name(), err)
		}
		if !ok {
			continue
		}

		typ, ok := columnType(sf.Type, tc.Size)
		if !ok {
			if tagged {
				return nil, nil, fmt.Errorf("orm: %s.%s: no column type for %v", t.Name(), sf.Name, sf.Type)
			}
			continue
		}

		if _, dup := m.byColumn[tc.Name]; dup {
			return nil, nil, fmt.Errorf("orm: %s.%s: %w: %s", t.Name(), sf.Name, schema.ErrDuplicateColumn, tc.Name)
		}
		f := &field{name: sf.Name, column: tc.Name, index: sf.Index, pk: tc.PrimaryKey}
		m.fields = append(m.fields, f)
		m.byColumn[f.column] = f
		if f.pk {
			if m.pk != nil {
				return nil, nil, fmt.Errorf("%w: %s has %s and %s", ErrNoPrimaryKey, t.Name(), m.pk.name, f.name)
			}
			m.pk = f
		}
		cols = append(cols, schema.Col(tc.Name, typ, columnOptions(tc)...))
	}

	if m.pk == nil {
		return nil, nil, fmt.Errorf("%w: %s has none", ErrNoPrimaryKey, t.Name())
	}
	return m, cols, nil
}

func columnType(t reflect.Type, size int) (schema.Type, bool) {
	if typ, ok := schema.TypeForGo(t.String(), size); ok {
		return typ, true
	}
	// Unknown scanners are stored as text.
	if reflect.PointerTo(t).Implements(scannerType) {
		return schema.Text, true
	}
	return nil, false
}

func columnOptions(tc tags.Column) []schema.ColumnOption {
	var opts []schema.ColumnOption
	if tc.PrimaryKey {
		opts = append(opts, schema.PrimaryKey())
	}
	if tc.NotNull {
		opts = append(opts, schema.NotNull())
	}
	if tc.Unique {
		opts = append(opts, schema.Unique())
	}
	if tc.HasDefault {
		opts = append(opts, schema.Default(tc.Default))
	}
	if tc.References != "" {
		opts = append(opts, schema.References(tc.References))
	}
	return opts
}

// Type returns the mapped struct type.
func (m *Mapper) Type() reflect.Type { return m.typ }

// Table returns the mapped table.
func (m *Mapper) Table() *schema.Table { return m.table }

// Columns returns the mapped column names in field order.
func (m *Mapper) Columns() []string {
	cols := make([]string, len(m.fields))
	for i, f := range m.fields {
		cols[i] = f.column
	}
	return cols
}

// PrimaryKey returns the primary key column name.
func (m *Mapper) PrimaryKey() string { return m.pk.column }

// Relationships returns the relationships in field order.
func (m *Mapper) Relationships() []*Relationship {
	return append([]*Relationship(nil), m.rels...)
}

// Relationship returns the relationship held in the named field, or nil.
func (m *Mapper) Relationship(name string) *Relationship { return m.relByName[name] }

func (m *Mapper) autoIncrement() bool {
	return schema.IsInteger(m.table.C(m.pk.column).Type())
}

// pkValue returns the primary key of the struct v points to.
func (m *Mapper) pkValue(v reflect.Value) reflect.Value {
	return v.Elem().FieldByIndex(m.pk.index)
}

// values returns the column values of the struct v points to.
func (m *Mapper) values(v reflect.Value) []any {
	out := make([]any, len(m.fields))
	for i, f := range m.fields {
		out[i] = v.Elem().FieldByIndex(f.index).Interface()
	}
	return out
}

// state returns the column values of the struct v points to with
// pointers dereferenced, so later writes through a pointer show up as
// changes.
func (m *Mapper) state(v reflect.Value) []any {
	out := make([]any, len(m.fields))
	for i, f := range m.fields {
		fv := v.Elem().FieldByIndex(f.index)
		if fv.Kind() == reflect.Pointer {
			if fv.IsNil() {
				continue
			}
			fv = fv.Elem()
		}
		out[i] = fv.Interface()
	}
	return out
}

func (m *Mapper) String() string { return "Mapper[" + m.typ.Name() + " -> " + m.table.Name() + "]" }

// Relationship links a mapped type to another through a foreign key.
type Relationship struct {
	name          string
	index         []int
	kind          RelationKind
	foreignKey    string
	backPopulates string
	targetType    reflect.Type

	parent *Mapper
	target *Mapper
	fk     *field
	back   *Relationship
}

func newRelationship(sf reflect.StructField, tag string) (*Relationship, error) {
	parsed, err := tags.ParseRelation(tag)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by caller
	}
	rel := &Relationship{
		name:          sf.Name,
		index:         sf.Index,
		kind:          RelationKind(parsed.Kind),
		foreignKey:    parsed.ForeignKey,
		backPopulates: parsed.BackPopulates,
	}

	ft := sf.Type
	switch rel.kind {
	case HasMany:
		if ft.Kind() != reflect.Slice || ft.Elem().Kind() != reflect.Pointer || ft.Elem().Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: has_many field must be a slice of struct pointers, got %v", ErrInvalidRelationship, ft)
		}
		rel.targetType = ft.Elem().Elem()
	default:
		if ft.Kind() != reflect.Pointer || ft.Elem().Kind() != reflect.Struct {
			return nil, fmt.Errorf("%w: %s field must be a struct pointer, got %v", ErrInvalidRelationship, rel.kind, ft)
		}
		rel.targetType = ft.Elem()
	}
	return rel, nil
}

// Name returns the field name holding the relationship.
func (r *Relationship) Name() string { return r.name }

// Kind returns the relationship kind.
func (r *Relationship) Kind() RelationKind { return r.kind }

// ForeignKey returns the foreign key column name.
func (r *Relationship) ForeignKey() string { return r.foreignKey }

// BackPopulates returns the name of the relationship field on the target
// that points back, or "".
func (r *Relationship) BackPopulates() string { return r.backPopulates }

// Target returns the target Mapper once the Registry is configured.
func (r *Relationship) Target() *Mapper { return r.target }

// related returns the objects currently held in the relationship field of
// the struct v points to.
func (r *Relationship) related(v reflect.Value) []reflect.Value {
	fv := v.Elem().FieldByIndex(r.index)
	switch r.kind {
	case HasMany:
		out := make([]reflect.Value, 0, fv.Len())
		for i := range fv.Len() {
			if e := fv.Index(i); !e.IsNil() {
				out = append(out, e)
			}
		}
		return out
	default:
		if fv.IsNil() {
			return nil
		}
		return []reflect.Value{fv}
	}
}

// attach places other in the relationship field of v. For has_many the
// pointer is appended unless already present.
func (r *Relationship) attach(v, other reflect.Value) {
	fv := v.Elem().FieldByIndex(r.index)
	if r.kind != HasMany {
		fv.Set(other)
		return
	}
	for i := range fv.Len() {
		if fv.Index(i).Pointer() == other.Pointer() {
			return
		}
	}
	fv.Set(reflect.Append(fv, other))
}
