package schema

import (
	"strings"

	"github.com/mickamy/ormtour/core"
)

// CreateTableSQL renders the CREATE TABLE statement for t:
//
//	CREATE TABLE "address" (
//		"id" INTEGER NOT NULL,
//		"user_id" INTEGER NOT NULL,
//		"email_address" VARCHAR NOT NULL,
//		PRIMARY KEY ("id"),
//		FOREIGN KEY("user_id") REFERENCES "user_account" ("id")
//	)
//
// A single integer primary key is given the dialect's auto-increment form.
func CreateTableSQL(d core.Dialect, t *Table, opts ...DDLOption) string {
	cfg := newDDLConfig(opts)
	q := d.QuoteIdent

	var b strings.Builder
	b.WriteString("CREATE TABLE ")
	if cfg.checkFirst {
		b.WriteString("IF NOT EXISTS ")
	}
	b.WriteString(q(t.name))
	b.WriteString(" (\n")

	auto := t.autoIncrement()
	var lines []string
	for _, c := range t.cols {
		lines = append(lines, columnSQL(d, c, c == auto))
	}
	if pk := t.PrimaryKey(); len(pk) > 0 {
		lines = append(lines, "PRIMARY KEY ("+quoteAll(d, pk)+")")
	}
	for _, c := range t.cols {
		if c.unique && !c.primaryKey {
			lines = append(lines, "UNIQUE ("+q(c.name)+")")
		}
	}
	for _, fk := range t.ForeignKeys() {
		lines = append(lines, "FOREIGN KEY("+q(fk.parent.name)+") REFERENCES "+q(fk.table)+" ("+q(fk.column)+")")
	}

	b.WriteString("\t")
	b.WriteString(strings.Join(lines, ",\n\t"))
	b.WriteString("\n)")
	return b.String()
}

func columnSQL(d core.Dialect, c *Column, auto bool) string {
	typeSQL := ""
	if typ := c.Type(); typ != nil {
		typeSQL = typ.Compile(d)
	}
	if auto {
		typeSQL = d.AutoIncrement(typeSQL)
	}

	parts := []string{d.QuoteIdent(c.name), typeSQL}
	if c.hasDefault {
		parts = append(parts, "DEFAULT "+c.def)
	}
	if !c.Nullable() {
		parts = append(parts, "NOT NULL")
	}
	return strings.Join(parts, " ")
}

// DropTableSQL renders the DROP TABLE statement for t.
func DropTableSQL(d core.Dialect, t *Table, opts ...DDLOption) string {
	cfg := newDDLConfig(opts)
	if cfg.checkFirst {
		return "DROP TABLE IF EXISTS " + d.QuoteIdent(t.name)
	}
	return "DROP TABLE " + d.QuoteIdent(t.name)
}

func quoteAll(d core.Dialect, cols []*Column) string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = d.QuoteIdent(c.name)
	}
	return strings.Join(names, ", ")
}
