package schema_test

import (
	"github.com/mickamy/ormtour/schema"
)

// tutorialSchema declares the user_account and address tables.
func tutorialSchema() (*schema.MetaData, *schema.Table, *schema.Table) {
	md := schema.NewMetaData()
	users := schema.NewTable("user_account", md,
		schema.Col("id", schema.Integer, schema.PrimaryKey()),
		schema.Col("name", schema.String(30)),
		schema.Col("fullname", schema.String(0)),
	)
	addresses := schema.NewTable("address", md,
		schema.Col("id", schema.Integer, schema.PrimaryKey()),
		schema.Col("user_id", nil, schema.References("user_account.id"), schema.NotNull()),
		schema.Col("email_address", schema.String(0), schema.NotNull()),
	)
	return md, users, addresses
}
