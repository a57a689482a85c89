package gen_test

import (
	"errors"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/mickamy/ormtour/core"
	"github.com/mickamy/ormtour/internal/gen"
	"github.com/mickamy/ormtour/internal/tags"
	"github.com/mickamy/ormtour/schema"
)

func testdataPath(name string) string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "testdata", name)
}

func TestParse(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("user.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(infos) != 2 {
		t.Fatalf("len(infos) = %d, want 2", len(infos))
	}

	// Package is set for all
	for _, info := range infos {
		if info.Package != "testdata" {
			t.Errorf("%s: Package = %q, want %q", info.Name, info.Package, "testdata")
		}
	}

	t.Run("User", func(t *testing.T) {
		t.Parallel()

		info := infos[0]
		if info.Name != "User" || info.TableName != "user_account" {
			t.Errorf("Name = %q, TableName = %q", info.Name, info.TableName)
		}

		// 3 db fields (Addresses is a relationship, internal is unexported)
		if len(info.Fields) != 3 {
			t.Fatalf("len(Fields) = %d, want 3", len(info.Fields))
		}

		f := info.Fields[0]
		if f.Name != "ID" || f.Column != "id" || f.GoType != "int" || !f.PrimaryKey {
			t.Errorf("Fields[0] = %+v", f)
		}
		f = info.Fields[1]
		if f.Column != "name" || f.Size != 30 {
			t.Errorf("Fields[1] = %+v", f)
		}
		f = info.Fields[2]
		if f.Column != "fullname" || f.GoType != "*string" {
			t.Errorf("Fields[2] = %+v", f)
		}

		if len(info.Relations) != 1 {
			t.Fatalf("len(Relations) = %d, want 1", len(info.Relations))
		}
		r := info.Relations[0]
		if r.Name != "Addresses" || r.Target != "Address" || r.Kind != tags.HasMany ||
			r.ForeignKey != "user_id" || r.BackPopulates != "User" {
			t.Errorf("Relations[0] = %+v", r)
		}
	})

	t.Run("Address", func(t *testing.T) {
		t.Parallel()

		info := infos[1]
		if info.Name != "Address" || info.TableName != "address" {
			t.Errorf("Name = %q, TableName = %q", info.Name, info.TableName)
		}
		if len(info.Fields) != 3 {
			t.Fatalf("len(Fields) = %d, want 3", len(info.Fields))
		}
		f := info.Fields[1]
		if f.Column != "user_id" || !f.NotNull || f.References != "user_account.id" {
			t.Errorf("Fields[1] = %+v", f)
		}
		if len(info.Relations) != 1 || info.Relations[0].Kind != tags.BelongsTo || info.Relations[0].Target != "User" {
			t.Errorf("Relations = %+v", info.Relations)
		}
	})
}

func TestParseInferred(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("inferred.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}

	info := infos[0]
	want := []string{"id", "name", "created_at"}
	if len(info.Fields) != len(want) {
		t.Fatalf("Fields = %+v", info.Fields)
	}
	for i, col := range want {
		if info.Fields[i].Column != col {
			t.Errorf("Fields[%d].Column = %q, want %q", i, info.Fields[i].Column, col)
		}
	}
}

func TestParsePrimaryKeyField(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("user.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	pk, err := infos[0].PrimaryKeyField()
	if err != nil {
		t.Fatalf("PrimaryKeyField: %v", err)
	}
	if pk.Name != "ID" || pk.Column != "id" {
		t.Errorf("PK = %+v", pk)
	}
}

func TestParseNoPrimaryKey(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("no_pk.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(infos) != 1 {
		t.Fatalf("len(infos) = %d, want 1", len(infos))
	}

	_, err = infos[0].PrimaryKeyField()
	if err == nil {
		t.Fatal("expected error for no primary key, got nil")
	}
}

func TestParseInvalidFile(t *testing.T) {
	t.Parallel()

	_, err := gen.Parse("nonexistent.go")
	if err == nil {
		t.Fatal("expected error for invalid file, got nil")
	}
}

func TestTables(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("user.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	md := schema.NewMetaData()
	if err := gen.Tables(md, infos); err != nil {
		t.Fatalf("Tables: %v", err)
	}

	got := schema.CreateTableSQL(core.SQLite, md.Table("address"))
	want := "CREATE TABLE \"address\" (\n" +
		"\t\"id\" INTEGER NOT NULL,\n" +
		"\t\"user_id\" INTEGER NOT NULL,\n" +
		"\t\"email_address\" VARCHAR NOT NULL,\n" +
		"\tPRIMARY KEY (\"id\"),\n" +
		"\tFOREIGN KEY(\"user_id\") REFERENCES \"user_account\" (\"id\")\n" +
		")"
	if got != want {
		t.Errorf("CreateTableSQL() =\n%s\nwant\n%s", got, want)
	}

	sorted, err := md.SortedTables()
	if err != nil {
		t.Fatal(err)
	}
	if sorted[0].Name() != "user_account" || sorted[1].Name() != "address" {
		t.Errorf("sorted = %v", sorted)
	}
}

func TestTablesCustomTypes(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("custom_types.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	md := schema.NewMetaData()
	if err := gen.Tables(md, infos); err != nil {
		t.Fatalf("Tables: %v", err)
	}

	for _, name := range []string{"topics", "labels"} {
		col := md.Table("repositories").C(name)
		if col == nil || col.Type() != schema.Text {
			t.Errorf("%s = %v, want TEXT column", name, col)
		}
	}
	if col := md.Table("no_tag_custom_types").C("at"); col != nil {
		t.Errorf("untagged custom type became column %v", col)
	}
}

func TestTablesUnknownType(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("unknown_type.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(infos) != 1 || infos[0].Fields[1].Scanner {
		t.Fatalf("infos = %+v", infos)
	}

	err = gen.Tables(schema.NewMetaData(), infos)
	if !errors.Is(err, gen.ErrColumnType) {
		t.Errorf("Tables() error = %v, want ErrColumnType", err)
	}
}

func TestTablesRelations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		file    string
		wantErr error
	}{
		{file: "relations.go"},
		{file: "bad_relation.go", wantErr: gen.ErrRelation},
	}

	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			t.Parallel()

			infos, err := gen.Parse(testdataPath(tt.file))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			err = gen.Tables(schema.NewMetaData(), infos)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Tables() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestTablesNoPrimaryKey(t *testing.T) {
	t.Parallel()

	infos, err := gen.Parse(testdataPath("no_pk.go"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if err := gen.Tables(schema.NewMetaData(), infos); err == nil {
		t.Fatal("expected error for no primary key, got nil")
	}
}
