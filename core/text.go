package core

import (
	"fmt"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
)

// Params holds named bind parameter values keyed by name, without the
// leading colon.
type Params map[string]any

// Executable is a statement that can be compiled for a dialect.
type Executable interface {
	// Compile renders the statement for d, binding params, and returns
	// the SQL and its positional arguments.
	Compile(d Dialect, params Params) (string, []any, error)
}

// TextClause is a textual SQL statement whose bind parameters are written
// as ":name". A colon that follows a word character or another colon is
// literal, so "'12:30'" and "a::int" need no escaping. A backslash before
// a colon makes it literal anywhere.
type TextClause struct {
	sql     string
	escaped string // sql with literal colons doubled for sqlx.Named
	names   []string
	bound   Params
}

// Text constructs a TextClause from a SQL string.
//
//	core.Text("SELECT x, y FROM some_table WHERE y > :y")
func Text(sql string) *TextClause {
	escaped, names := scanBinds(sql)
	return &TextClause{sql: sql, escaped: escaped, names: names}
}

// BindParams returns a copy of t with the given values bound at the
// statement level. Values passed at execution time take precedence.
//
//	core.Text("SELECT x, y FROM some_table WHERE y > :y").BindParams(core.Params{"y": 6})
func (t *TextClause) BindParams(p Params) *TextClause {
	t2 := *t
	t2.bound = make(Params, len(t.bound)+len(p))
	maps.Copy(t2.bound, t.bound)
	maps.Copy(t2.bound, p)
	return &t2
}

// SQL returns the statement text as written.
func (t *TextClause) SQL() string { return t.sql }

// BindNames returns the bind parameter names in order of appearance.
// A name used more than once appears once per use.
func (t *TextClause) BindNames() []string {
	return append([]string(nil), t.names...)
}

func (t *TextClause) String() string { return t.sql }

// Compile binds params merged over the statement-level values and
// rewrites the named parameters into the dialect's positional style.
func (t *TextClause) Compile(d Dialect, params Params) (string, []any, error) {
	merged := make(map[string]any, len(t.bound)+len(params))
	maps.Copy(merged, t.bound)
	maps.Copy(merged, params)

	for _, name := range t.names {
		if _, ok := merged[name]; !ok {
			return "", nil, fmt.Errorf("%w %q", ErrMissingParam, name)
		}
	}

	query, args, err := sqlx.Named(t.escaped, merged)
	if err != nil {
		return "", nil, fmt.Errorf("core: bind %q: %w", t.sql, err)
	}
	return Rebind(d, query), args, nil
}

// scanBinds finds the ":name" parameters in sql and returns it rewritten
// for sqlx.Named, where every literal colon is written "::".
//
// A colon starts a parameter only when it is not preceded by a word
// character, a colon or a backslash, is followed by a name, and the name
// is not itself followed by a colon.
func scanBinds(sql string) (string, []string) {
	var (
		b     strings.Builder
		names []string
	)
	b.Grow(len(sql) + 8)
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		switch {
		case c == '\\' && i+1 < len(sql) && sql[i+1] == ':':
			b.WriteString("::")
			i++
		case c == ':':
			j := i + 1
			for j < len(sql) && isBindByte(sql[j]) {
				j++
			}
			bind := j > i+1 &&
				(i == 0 || !(isWordByte(sql[i-1]) || sql[i-1] == ':')) &&
				(j == len(sql) || sql[j] != ':')
			if !bind {
				b.WriteString("::")
				continue
			}
			names = append(names, sql[i+1:j])
			b.WriteString(sql[i:j])
			i = j - 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), names
}

// isBindByte matches the name characters sqlx.Named accepts.
func isBindByte(c byte) bool {
	return isWordByte(c) || c == '.' || c >= utf8.RuneSelf && unicode.IsLetter(rune(c))
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// driverSQL is a positional "?" statement passed straight to the driver
// after placeholder rebinding.
type driverSQL struct {
	sql  string
	args []any
}

func (s driverSQL) Compile(d Dialect, _ Params) (string, []any, error) {
	return Rebind(d, s.sql), s.args, nil
}
