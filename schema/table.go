package schema

import "fmt"

// Table is a named, ordered set of columns registered in a MetaData.
type Table struct {
	name   string
	md     *MetaData
	cols   []*Column
	byName map[string]*Column
}

// NewTable declares a table and registers it in md.
//
//	users := schema.NewTable("user_account", md,
//	    schema.Col("id", schema.Integer, schema.PrimaryKey()),
//	    schema.Col("name", schema.String(30)),
//	)
//
// Declaration problems such as a duplicate table or column name are
// recorded in md and reported by MetaData.Validate.
func NewTable(name string, md *MetaData, cols ...*Column) *Table {
	t := &Table{name: name, md: md, byName: make(map[string]*Column, len(cols))}
	for _, c := range cols {
		if _, dup := t.byName[c.name]; dup {
			md.record(fmt.Errorf("%w: %s.%s", ErrDuplicateColumn, name, c.name))
			continue
		}
		c.table = t
		t.cols = append(t.cols, c)
		t.byName[c.name] = c
	}
	md.add(t)
	return t
}

// Name returns the table name.
func (t *Table) Name() string { return t.name }

// MetaData returns the MetaData the table is registered in.
func (t *Table) MetaData() *MetaData { return t.md }

// C returns the named column, or nil.
func (t *Table) C(name string) *Column { return t.byName[name] }

// Columns returns the columns in declaration order.
func (t *Table) Columns() []*Column { return append([]*Column(nil), t.cols...) }

// PrimaryKey returns the primary key columns in declaration order.
func (t *Table) PrimaryKey() []*Column {
	var pk []*Column
	for _, c := range t.cols {
		if c.primaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// ForeignKeys returns the table's foreign keys in column order.
func (t *Table) ForeignKeys() []*ForeignKey {
	var fks []*ForeignKey
	for _, c := range t.cols {
		if c.fk != nil {
			fks = append(fks, c.fk)
		}
	}
	return fks
}

// autoIncrement returns the single integer primary key column whose
// values the database generates, or nil.
func (t *Table) autoIncrement() *Column {
	pk := t.PrimaryKey()
	if len(pk) != 1 || pk[0].fk != nil || !IsInteger(pk[0].Type()) {
		return nil
	}
	return pk[0]
}

func (t *Table) String() string { return t.name }
