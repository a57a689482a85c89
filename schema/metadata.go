package schema

import (
	"context"
	"errors"
	"fmt"

	"github.com/mickamy/ormtour/core"
)

// MetaData is a collection of tables and the foreign keys between them.
type MetaData struct {
	tables []*Table
	byName map[string]*Table
	errs   []error
}

// NewMetaData returns an empty MetaData.
func NewMetaData() *MetaData {
	return &MetaData{byName: make(map[string]*Table)}
}

func (md *MetaData) add(t *Table) {
	if _, dup := md.byName[t.name]; dup {
		md.record(fmt.Errorf("%w: %s", ErrDuplicateTable, t.name))
		return
	}
	md.tables = append(md.tables, t)
	md.byName[t.name] = t
}

func (md *MetaData) record(err error) { md.errs = append(md.errs, err) }

// Table returns the named table, or nil.
func (md *MetaData) Table(name string) *Table { return md.byName[name] }

// Tables returns the tables in the order they were declared.
func (md *MetaData) Tables() []*Table { return append([]*Table(nil), md.tables...) }

// Validate reports declaration errors and checks that every foreign key
// targets a known table and column and every column has a type.
func (md *MetaData) Validate() error {
	errs := append([]error(nil), md.errs...)
	for _, t := range md.tables {
		for _, c := range t.cols {
			if c.fk != nil {
				if _, err := c.fk.resolve(); err != nil {
					errs = append(errs, err)
					continue
				}
			}
			if c.Type() == nil {
				errs = append(errs, fmt.Errorf("%w: %s", ErrNoType, c))
			}
		}
	}
	return errors.Join(errs...)
}

// SortedTables returns the tables ordered so that every table comes
// after the tables it references. Ties keep declaration order.
// Self-references are ignored.
func (md *MetaData) SortedTables() ([]*Table, error) {
	deps := make(map[*Table][]*Table, len(md.tables))
	for _, t := range md.tables {
		for _, fk := range t.ForeignKeys() {
			target := md.byName[fk.table]
			if target == nil || target == t {
				continue
			}
			deps[t] = append(deps[t], target)
		}
	}

	sorted := make([]*Table, 0, len(md.tables))
	done := make(map[*Table]bool, len(md.tables))
	for len(sorted) < len(md.tables) {
		progressed := false
		for _, t := range md.tables {
			if done[t] {
				continue
			}
			ready := true
			for _, d := range deps[t] {
				if !done[d] {
					ready = false
					break
				}
			}
			if ready {
				sorted = append(sorted, t)
				done[t] = true
				progressed = true
			}
		}
		if !progressed {
			var cycle []string
			for _, t := range md.tables {
				if !done[t] {
					cycle = append(cycle, t.name)
				}
			}
			return nil, fmt.Errorf("%w: %v", ErrCyclicDependency, cycle)
		}
	}
	return sorted, nil
}

// DDLOption configures CreateAll, DropAll and the DDL builders.
type DDLOption func(*ddlConfig)

type ddlConfig struct {
	checkFirst bool
}

// CheckFirst skips tables that already exist on create and tables that
// do not exist on drop.
func CheckFirst() DDLOption {
	return func(c *ddlConfig) { c.checkFirst = true }
}

func newDDLConfig(opts []DDLOption) ddlConfig {
	var cfg ddlConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// CreateAll emits CREATE TABLE for every table, referenced tables first,
// in a single transaction.
func (md *MetaData) CreateAll(ctx context.Context, engine *core.Engine, opts ...DDLOption) error {
	if err := md.Validate(); err != nil {
		return err
	}
	tables, err := md.SortedTables()
	if err != nil {
		return err
	}
	return engine.Begin(ctx, func(conn *core.Connection) error {
		for _, t := range tables {
			if _, err := conn.ExecDriverSQL(ctx, CreateTableSQL(engine.Dialect(), t, opts...)); err != nil {
				return fmt.Errorf("schema: create %s: %w", t.name, err)
			}
		}
		return nil
	})
}

// DropAll emits DROP TABLE for every table, dependent tables first, in
// a single transaction.
func (md *MetaData) DropAll(ctx context.Context, engine *core.Engine, opts ...DDLOption) error {
	tables, err := md.SortedTables()
	if err != nil {
		return err
	}
	return engine.Begin(ctx, func(conn *core.Connection) error {
		for i := len(tables) - 1; i >= 0; i-- {
			if _, err := conn.ExecDriverSQL(ctx, DropTableSQL(engine.Dialect(), tables[i], opts...)); err != nil {
				return fmt.Errorf("schema: drop %s: %w", tables[i].name, err)
			}
		}
		return nil
	})
}
