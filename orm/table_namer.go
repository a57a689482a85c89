package orm

import (
	"reflect"

	"github.com/mickamy/ormtour/internal/naming"
)

// TableNamer can be implemented by mapped structs to override the
// auto-derived table name.
//
//	func (User) TableName() string { return "user_account" }
type TableNamer interface {
	TableName() string
}

// ResolveTableName returns the table name for type T.
// If T implements TableNamer (value or pointer receiver), that name is used;
// otherwise it is the pluralized snake_case of the type name.
func ResolveTableName[T any]() string {
	return tableNameOf(reflect.TypeFor[T]())
}

func tableNameOf(t reflect.Type) string {
	if tn, ok := reflect.New(t).Interface().(TableNamer); ok {
		return tn.TableName()
	}
	return naming.TableName(t.Name())
}
