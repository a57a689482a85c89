package schema

import (
	"fmt"

	"github.com/zoobzio/dbml"
)

const dbmlSchema = "public"

// DBML exports the tables as a DBML project named name. Tables are keyed
// "public.<table>" in the returned project.
func (md *MetaData) DBML(name string) (*dbml.Project, error) {
	if err := md.Validate(); err != nil {
		return nil, err
	}

	project := dbml.NewProject(name)
	for _, t := range md.tables {
		table := dbml.NewTable(t.name).
			WithSchema(dbmlSchema)

		for _, c := range t.cols {
			col := dbml.NewColumn(c.name, c.Type().Name())
			if c.primaryKey {
				col.WithPrimaryKey()
			}
			if c.unique {
				col.WithUnique()
			}
			if c.Nullable() {
				// DBML defaults to NOT NULL
				col.WithNull()
			}
			if c.hasDefault {
				col.WithDefault(c.def)
			}
			if c.fk != nil {
				col.WithRef(dbml.ManyToOne, dbmlSchema, c.fk.table, c.fk.column)
			}
			table.AddColumn(col)
		}

		for _, c := range t.cols {
			if c.unique && !c.primaryKey {
				table.AddIndex(dbml.NewIndex(c.name).WithName(t.name + "_" + c.name + "_key"))
			}
		}
		project.AddTable(table)
	}

	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("schema: generated DBML is invalid: %w", err)
	}
	return project, nil
}
