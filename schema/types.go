package schema

import (
	"strconv"
	"strings"

	"github.com/mickamy/ormtour/core"
)

// Type is a column's SQL type, compiled per dialect.
type Type interface {
	// Compile returns the type as written in DDL for d.
	Compile(d core.Dialect) string

	// Name returns the dialect-neutral type name, e.g. "VARCHAR(30)".
	Name() string
}

var (
	// Integer is a 32-bit integer column.
	Integer Type = integerType{}

	// BigInteger is a 64-bit integer column.
	BigInteger Type = bigIntegerType{}

	// Text is an unbounded text column.
	Text Type = textType{}

	// Boolean is a true/false column.
	Boolean Type = booleanType{}

	// Float is a floating point column.
	Float Type = floatType{}

	// DateTime is a timestamp without time zone.
	DateTime Type = dateTimeType{}

	// LargeBinary is a binary blob column.
	LargeBinary Type = largeBinaryType{}
)

// String returns a VARCHAR type of the given length. A length of 0 emits
// a bare VARCHAR, which MySQL does not accept; there it becomes VARCHAR(255).
func String(length int) Type { return stringType{length: length} }

// IsInteger reports whether t is Integer or BigInteger.
func IsInteger(t Type) bool {
	switch t.(type) {
	case integerType, bigIntegerType:
		return true
	default:
		return false
	}
}

type integerType struct{}

func (integerType) Compile(core.Dialect) string { return "INTEGER" }
func (integerType) Name() string                { return "INTEGER" }

type bigIntegerType struct{}

func (bigIntegerType) Compile(core.Dialect) string { return "BIGINT" }
func (bigIntegerType) Name() string                { return "BIGINT" }

type stringType struct{ length int }

func (s stringType) Compile(d core.Dialect) string {
	if s.length == 0 && d == core.MySQL {
		return "VARCHAR(255)"
	}
	return s.Name()
}

func (s stringType) Name() string {
	if s.length == 0 {
		return "VARCHAR"
	}
	return "VARCHAR(" + strconv.Itoa(s.length) + ")"
}

type textType struct{}

func (textType) Compile(core.Dialect) string { return "TEXT" }
func (textType) Name() string                { return "TEXT" }

type booleanType struct{}

func (booleanType) Compile(core.Dialect) string { return "BOOLEAN" }
func (booleanType) Name() string                { return "BOOLEAN" }

type floatType struct{}

func (floatType) Compile(core.Dialect) string { return "FLOAT" }
func (floatType) Name() string                { return "FLOAT" }

type dateTimeType struct{}

func (dateTimeType) Compile(d core.Dialect) string {
	if d == core.PostgreSQL {
		return "TIMESTAMP WITHOUT TIME ZONE"
	}
	return "DATETIME"
}

func (dateTimeType) Name() string { return "DATETIME" }

type largeBinaryType struct{}

func (largeBinaryType) Compile(d core.Dialect) string {
	if d == core.PostgreSQL {
		return "BYTEA"
	}
	return "BLOB"
}

func (largeBinaryType) Name() string { return "BLOB" }

// TypeForGo maps a Go type, written the way reflect.Type.String or a
// source file spells it, to a column Type. size is the VARCHAR length
// for strings (0 for none). Pointer types map to their element type.
// The second result is false for types with no column mapping.
func TypeForGo(goType string, size int) (Type, bool) {
	goType = strings.TrimPrefix(goType, "*")
	switch goType {
	case "int", "int32", "int16", "int8", "uint", "uint32", "uint16", "uint8",
		"sql.NullInt32", "sql.NullInt16", "sql.NullByte":
		return Integer, true
	case "int64", "uint64", "sql.NullInt64":
		return BigInteger, true
	case "string", "sql.NullString":
		return String(size), true
	case "bool", "sql.NullBool":
		return Boolean, true
	case "float64", "float32", "sql.NullFloat64":
		return Float, true
	case "time.Time", "sql.NullTime":
		return DateTime, true
	case "[]byte", "[]uint8":
		return LargeBinary, true
	default:
		return nil, false
	}
}
