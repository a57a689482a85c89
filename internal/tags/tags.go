// Package tags parses the `db` and `rel` struct tags shared by the
// runtime mapper and the source parser.
package tags

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mickamy/ormtour/internal/naming"
)

// Column is the parsed form of a `db` tag together with the defaults
// derived from the field name.
type Column struct {
	Field      string // Go field name, e.g. "UserID"
	Name       string // column name, e.g. "user_id"
	PrimaryKey bool
	NotNull    bool
	Unique     bool
	Size       int    // VARCHAR length, 0 for none
	References string // "table.column"
	Default    string // verbatim SQL
	HasDefault bool
}

// ParseColumn parses the `db` tag of a field. tag is the tag value and
// tagged whether the field carries one at all. The column name defaults
// to the snake_case field name and a field named ID is the primary key.
// ok is false when the field is skipped with `db:"-"`.
//
//	db:"name,size:30"
//	db:"user_id,notNull,references:user_account.id"
//	db:"created_at,default:CURRENT_TIMESTAMP"
func ParseColumn(field, tag string, tagged bool) (c Column, ok bool, err error) {
	c = Column{
		Field:      field,
		Name:       naming.CamelToSnake(field),
		PrimaryKey: field == "ID",
	}
	if !tagged {
		return c, true, nil
	}
	if tag == "-" {
		return Column{}, false, nil
	}

	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		c.Name = parts[0]
	}
	for i := 1; i < len(parts); i++ {
		opt := strings.TrimSpace(parts[i])
		key, val, _ := strings.Cut(opt, ":")
		switch key {
		case "primaryKey":
			c.PrimaryKey = true
		case "notNull":
			c.NotNull = true
		case "unique":
			c.Unique = true
		case "size":
			n, err := strconv.Atoi(val)
			if err != nil || n < 0 {
				return Column{}, false, fmt.Errorf("field %s: invalid size %q", field, val)
			}
			c.Size = n
		case "references":
			if !strings.Contains(val, ".") {
				return Column{}, false, fmt.Errorf("field %s: references %q must be table.column", field, val)
			}
			c.References = val
		case "default":
			// the default runs to the end of the tag and may contain commas
			rest := strings.Join(parts[i:], ",")
			_, c.Default, _ = strings.Cut(rest, ":")
			c.HasDefault = true
			i = len(parts)
		case "":
		default:
			return Column{}, false, fmt.Errorf("field %s: unknown db tag option %q", field, opt)
		}
	}
	return c, true, nil
}

// Kind is a relationship kind.
type Kind string

const (
	HasMany   Kind = "has_many"
	HasOne    Kind = "has_one"
	BelongsTo Kind = "belongs_to"
)

// Relation is the parsed form of a `rel` tag.
type Relation struct {
	Kind          Kind
	ForeignKey    string // column holding the reference
	BackPopulates string // field on the target pointing back, if any
}

// ErrInvalidRelation is returned for a malformed `rel` tag.
var ErrInvalidRelation = errors.New("invalid rel tag")

// ParseRelation parses a `rel` tag.
//
//	rel:"has_many,foreign_key:user_id,back_populates:User"
//	rel:"belongs_to,foreign_key:user_id"
func ParseRelation(tag string) (Relation, error) {
	parts := strings.Split(tag, ",")
	r := Relation{Kind: Kind(strings.TrimSpace(parts[0]))}
	switch r.Kind {
	case HasMany, HasOne, BelongsTo:
	default:
		return Relation{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidRelation, parts[0])
	}
	for _, p := range parts[1:] {
		key, val, _ := strings.Cut(strings.TrimSpace(p), ":")
		switch key {
		case "foreign_key":
			r.ForeignKey = val
		case "back_populates":
			r.BackPopulates = val
		default:
			return Relation{}, fmt.Errorf("%w: unknown option %q", ErrInvalidRelation, p)
		}
	}
	if r.ForeignKey == "" {
		return Relation{}, fmt.Errorf("%w: %q has no foreign_key", ErrInvalidRelation, tag)
	}
	return r, nil
}
