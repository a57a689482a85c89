package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mickamy/ormtour/core"
	"github.com/mickamy/ormtour/internal/gen"
	"github.com/mickamy/ormtour/internal/tour"
	"github.com/mickamy/ormtour/schema"
)

// SchemaCmd prints the DDL, or DBML, of the walkthrough's mapped models.
func SchemaCmd(cmd *cobra.Command, _ []string) error {
	reg, err := tour.NewRegistry()
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	return writeSchema(cmd, reg.MetaData())
}

// DDLCmd prints the DDL, or DBML, of the structs in a Go source file.
func DDLCmd(cmd *cobra.Command, _ []string) error {
	source, err := cmd.Flags().GetString("source")
	if err != nil {
		return fmt.Errorf("invalid source flag: %w", err)
	}

	infos, err := gen.Parse(source)
	if err != nil {
		return fmt.Errorf("parse %s: %w", source, err)
	}
	if len(infos) == 0 {
		return fmt.Errorf("no mapped structs in %s", source)
	}

	md := schema.NewMetaData()
	if err := gen.Tables(md, infos); err != nil {
		return fmt.Errorf("%s: %w", source, err)
	}
	return writeSchema(cmd, md)
}

func writeSchema(cmd *cobra.Command, md *schema.MetaData) error {
	asDBML, _ := cmd.Flags().GetBool("dbml")
	if asDBML {
		name, _ := cmd.Flags().GetString("name")
		project, err := md.DBML(name)
		if err != nil {
			return err //nolint:wrapcheck // already descriptive
		}
		_, err = io.WriteString(cmd.OutOrStdout(), project.Generate())
		return err //nolint:wrapcheck // stdout
	}

	dialectName, _ := cmd.Flags().GetString("dialect")
	d, ok := core.DialectByName(dialectName)
	if !ok {
		return fmt.Errorf("unknown dialect %q", dialectName)
	}

	tables, err := md.SortedTables()
	if err != nil {
		return err //nolint:wrapcheck // already descriptive
	}
	for i, t := range tables {
		if i > 0 {
			_, _ = fmt.Fprintln(cmd.OutOrStdout())
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s;\n", schema.CreateTableSQL(d, t))
	}
	return nil
}

func addSchemaFlags(cmd *cobra.Command) {
	cmd.Flags().String("dialect", "sqlite", "SQL dialect: sqlite, postgresql or mysql")
	cmd.Flags().Bool("dbml", false, "print DBML instead of DDL")
	cmd.Flags().String("name", "ormtour", "DBML project name")
}

// InitSchemaCommands registers schema and ddl.
func InitSchemaCommands(rootCmd *cobra.Command) {
	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the DDL of the mapped User and Address models",
		Args:  cobra.NoArgs,
		RunE:  SchemaCmd,
	}
	addSchemaFlags(schemaCmd)

	ddlCmd := &cobra.Command{
		Use:   "ddl",
		Short: "Print the DDL of the db-tagged structs in a Go file",
		Args:  cobra.NoArgs,
		RunE:  DDLCmd,
	}
	addSchemaFlags(ddlCmd)
	ddlCmd.Flags().String("source", "", "Go source file to read")
	_ = ddlCmd.MarkFlagRequired("source")

	rootCmd.AddCommand(schemaCmd, ddlCmd)
}
