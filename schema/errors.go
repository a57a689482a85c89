package schema

import "errors"

var (
	// ErrCyclicDependency is returned when foreign keys between tables
	// form a cycle, so no creation order exists.
	ErrCyclicDependency = errors.New("schema: cyclic foreign key dependency between tables")

	// ErrUnknownTable is returned when a foreign key names a table that is
	// not in the MetaData.
	ErrUnknownTable = errors.New("schema: unknown table")

	// ErrUnknownColumn is returned when a foreign key names a column that
	// the referenced table does not have.
	ErrUnknownColumn = errors.New("schema: unknown column")

	// ErrDuplicateTable is returned when a table name is registered twice
	// in the same MetaData.
	ErrDuplicateTable = errors.New("schema: table already defined")

	// ErrDuplicateColumn is returned when a table declares the same column
	// name twice.
	ErrDuplicateColumn = errors.New("schema: column already defined")

	// ErrNoType is returned when a column has no type and no foreign key
	// to inherit one from.
	ErrNoType = errors.New("schema: column has no type")
)
