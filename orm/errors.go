package orm

import "errors"

var (
	// ErrNotFound is returned when a query expects exactly one row but finds none.
	ErrNotFound = errors.New("orm: not found")

	// ErrUnmapped is returned for a value whose type was never mapped in
	// the Registry.
	ErrUnmapped = errors.New("orm: type is not mapped")

	// ErrUnsafeDelete is returned by Query.Delete when no WHERE clause is set.
	ErrUnsafeDelete = errors.New("orm: Delete without WHERE clause is not allowed")

	// ErrNoPrimaryKey is returned when a mapped type declares no primary
	// key, or more than one.
	ErrNoPrimaryKey = errors.New("orm: mapped type needs exactly one primary key")

	// ErrUnknownRelationship is returned by Preload and Join for a name
	// that is not a relationship field of the mapped type.
	ErrUnknownRelationship = errors.New("orm: unknown relationship")

	// ErrInvalidRelationship is returned by Registry.Configure when a
	// relationship's target, foreign key or back-populating field does
	// not line up.
	ErrInvalidRelationship = errors.New("orm: invalid relationship")
)
