package testdata

import (
	"strings"

	"github.com/lib/pq"
)

type StringArray []string

func (a *StringArray) Scan(src any) error {
	s, _ := src.(string)
	*a = strings.Split(s, ",")
	return nil
}

type Point [2]float64

type Repository struct {
	ID     int            `db:"id,primaryKey"`
	Name   string         `db:"name"`
	Topics StringArray    `db:"topics"`
	Labels pq.StringArray `db:"labels"`
}

// NoTagCustomType has an untagged field of a type that is not a scanner,
// which is not a column.
type NoTagCustomType struct {
	ID   int `db:"id,primaryKey"`
	Name string
	At   Point
}
