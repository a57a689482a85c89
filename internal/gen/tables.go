package gen

import (
	"errors"
	"fmt"

	"github.com/mickamy/ormtour/internal/tags"
	"github.com/mickamy/ormtour/schema"
)

// ErrRelation is returned when a relationship's foreign key column is
// missing from the table that should hold it.
var ErrRelation = errors.New("relationship foreign key not found")

// ErrColumnType is returned for a tagged field whose type has no column
// mapping and is not a scanner.
var ErrColumnType = errors.New("no column type")

// Tables adds one schema.Table per parsed struct to md, the way the
// runtime mapper would, and validates the result.
//
// Fields of scanner types with no known column type become TEXT. Other
// unknown types are skipped when untagged and rejected when tagged.
func Tables(md *schema.MetaData, infos []*StructInfo) error {
	byName := make(map[string]*StructInfo, len(infos))
	for _, info := range infos {
		byName[info.Name] = info
	}

	for _, info := range infos {
		if _, err := info.PrimaryKeyField(); err != nil {
			return err
		}
		var cols []*schema.Column
		for _, f := range info.Fields {
			typ, ok := schema.TypeForGo(f.GoType, f.Size)
			if !ok {
				switch {
				case f.Scanner:
					typ = schema.Text
				case f.Tagged:
					return fmt.Errorf("%w: %s.%s: %s", ErrColumnType, info.Name, f.Name, f.GoType)
				default:
					continue
				}
			}
			cols = append(cols, schema.Col(f.Column, typ, columnOptions(f)...))
		}
		schema.NewTable(info.TableName, md, cols...)
	}

	for _, info := range infos {
		for _, rel := range info.Relations {
			target, ok := byName[rel.Target]
			if !ok {
				continue // defined in another file
			}
			holder := target
			if rel.Kind == tags.BelongsTo {
				holder = info
			}
			if !hasColumn(holder, rel.ForeignKey) {
				return fmt.Errorf("%w: %s.%s: no column %q on %s", ErrRelation, info.Name, rel.Name, rel.ForeignKey, holder.TableName)
			}
		}
	}
	return md.Validate() //nolint:wrapcheck // already descriptive
}

func columnOptions(f FieldInfo) []schema.ColumnOption {
	var opts []schema.ColumnOption
	if f.PrimaryKey {
		opts = append(opts, schema.PrimaryKey())
	}
	if f.NotNull {
		opts = append(opts, schema.NotNull())
	}
	if f.Unique {
		opts = append(opts, schema.Unique())
	}
	if f.HasDefault {
		opts = append(opts, schema.Default(f.Default))
	}
	if f.References != "" {
		opts = append(opts, schema.References(f.References))
	}
	return opts
}

func hasColumn(info *StructInfo, column string) bool {
	for _, f := range info.Fields {
		if f.Column == column {
			return true
		}
	}
	return false
}
