package schema

import (
	"fmt"
	"strings"
)

// Column is a table column. Build one with Col.
type Column struct {
	name       string
	typ        Type
	primaryKey bool
	notNull    bool
	unique     bool
	def        string
	hasDefault bool
	fk         *ForeignKey
	table      *Table
}

// ColumnOption configures a Column.
type ColumnOption func(*Column)

// Col declares a column. typ may be nil for a column with a References
// option, in which case it takes the referenced column's type.
//
//	schema.Col("name", schema.String(30))
//	schema.Col("user_id", nil, schema.References("user_account.id"), schema.NotNull())
func Col(name string, typ Type, opts ...ColumnOption) *Column {
	c := &Column{name: name, typ: typ}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PrimaryKey marks the column as part of the table's primary key.
func PrimaryKey() ColumnOption {
	return func(c *Column) { c.primaryKey = true }
}

// NotNull makes the column NOT NULL.
func NotNull() ColumnOption {
	return func(c *Column) { c.notNull = true }
}

// Unique adds a UNIQUE constraint on the column.
func Unique() ColumnOption {
	return func(c *Column) { c.unique = true }
}

// Default sets the server-side default, written verbatim into DDL.
func Default(sql string) ColumnOption {
	return func(c *Column) {
		c.def = sql
		c.hasDefault = true
	}
}

// References adds a foreign key to target, written "table.column".
func References(target string) ColumnOption {
	return func(c *Column) {
		table, column, _ := strings.Cut(target, ".")
		c.fk = &ForeignKey{table: table, column: column, parent: c}
	}
}

// Name returns the column name.
func (c *Column) Name() string { return c.name }

// Type returns the column type. For a column declared without one it is
// the referenced column's type once the MetaData is resolved. It is nil
// when no typed column is reached, including along a reference cycle.
func (c *Column) Type() Type {
	seen := map[*Column]bool{c: true}
	col := c
	for col.typ == nil && col.fk != nil {
		target, err := col.fk.resolve()
		if err != nil || seen[target] {
			return nil
		}
		seen[target] = true
		col = target
	}
	return col.typ
}

// IsPrimaryKey reports whether the column is part of the primary key.
func (c *Column) IsPrimaryKey() bool { return c.primaryKey }

// Nullable reports whether the column accepts NULL. Primary key columns
// never do.
func (c *Column) Nullable() bool { return !c.notNull && !c.primaryKey }

// IsUnique reports whether the column carries a UNIQUE constraint.
func (c *Column) IsUnique() bool { return c.unique }

// DefaultSQL returns the server-side default, if any.
func (c *Column) DefaultSQL() (string, bool) { return c.def, c.hasDefault }

// ForeignKey returns the column's foreign key, or nil.
func (c *Column) ForeignKey() *ForeignKey { return c.fk }

// Table returns the table the column belongs to.
func (c *Column) Table() *Table { return c.table }

func (c *Column) String() string {
	if c.table == nil {
		return c.name
	}
	return c.table.name + "." + c.name
}

// ForeignKey is a reference from a column to a column of another table.
type ForeignKey struct {
	table  string
	column string
	parent *Column
}

// TargetTable returns the referenced table name.
func (fk *ForeignKey) TargetTable() string { return fk.table }

// TargetColumn returns the referenced column name.
func (fk *ForeignKey) TargetColumn() string { return fk.column }

// Parent returns the referencing column.
func (fk *ForeignKey) Parent() *Column { return fk.parent }

// Target returns the referenced column.
func (fk *ForeignKey) Target() (*Column, error) { return fk.resolve() }

func (fk *ForeignKey) String() string { return fk.table + "." + fk.column }

func (fk *ForeignKey) resolve() (*Column, error) {
	if fk.parent.table == nil || fk.parent.table.md == nil {
		return nil, fmt.Errorf("%w %q", ErrUnknownTable, fk.table)
	}
	t := fk.parent.table.md.Table(fk.table)
	if t == nil {
		return nil, fmt.Errorf("%w %q referenced by %s", ErrUnknownTable, fk.table, fk.parent)
	}
	c := t.C(fk.column)
	if c == nil {
		return nil, fmt.Errorf("%w %q referenced by %s", ErrUnknownColumn, fk.String(), fk.parent)
	}
	return c, nil
}
