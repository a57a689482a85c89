package gen

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"reflect"
	"strconv"
	"strings"

	"github.com/mickamy/ormtour/internal/naming"
	"github.com/mickamy/ormtour/internal/tags"
)

// FieldInfo holds parsed metadata for one column field.
type FieldInfo struct {
	Name       string // Go field name, e.g. "ID"
	Column     string // DB column name from `db:"id"` tag
	GoType     string // Go type as string, e.g. "int", "string", "time.Time"
	Tagged     bool   // true if the field carries a db tag
	Scanner    bool   // type is assumed to implement sql.Scanner
	PrimaryKey bool   // true if tag contains "primaryKey"
	NotNull    bool
	Unique     bool
	Size       int
	References string
	Default    string
	HasDefault bool
}

// RelationInfo holds parsed metadata for one `rel` field.
type RelationInfo struct {
	Name          string    // Go field name, e.g. "Addresses"
	Target        string    // target struct name, e.g. "Address"
	Kind          tags.Kind // has_many, has_one or belongs_to
	ForeignKey    string
	BackPopulates string
}

// StructInfo holds parsed metadata for one mapped struct.
type StructInfo struct {
	Name      string         // Go struct name, e.g. "User"
	Package   string         // Package name, e.g. "model"
	Fields    []FieldInfo    // Non-skipped db fields
	Relations []RelationInfo // rel fields
	TableName string         // from a TableName method, or derived from Name
}

// PrimaryKeyField returns the primary key field, or an error if none or
// multiple are defined.
func (s *StructInfo) PrimaryKeyField() (*FieldInfo, error) {
	var pk *FieldInfo
	for i := range s.Fields {
		if s.Fields[i].PrimaryKey {
			if pk != nil {
				return nil, fmt.Errorf("multiple primary keys: %s and %s", pk.Name, s.Fields[i].Name)
			}
			pk = &s.Fields[i]
		}
	}
	if pk == nil {
		return nil, fmt.Errorf("no primary key defined for %s", s.Name)
	}
	return pk, nil
}

// Parse reads the Go file at path and returns StructInfo for every struct
// that has at least one column field. A method
//
//	func (User) TableName() string { return "user_account" }
//
// returning a string literal overrides the derived table name.
func Parse(filePath string) ([]*StructInfo, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, filePath, nil, parser.ParseComments)
	if err != nil {
		return nil, fmt.Errorf("parse file: %w", err)
	}

	pkg := file.Name.Name
	scanners := scanMethods(file)
	var infos []*StructInfo
	var parseErr error

	ast.Inspect(file, func(n ast.Node) bool {
		if parseErr != nil {
			return false
		}
		ts, ok := n.(*ast.TypeSpec)
		if !ok {
			return true
		}

		st, ok := ts.Type.(*ast.StructType)
		if !ok {
			return true
		}

		fields, rels, err := parseStructFields(st, scanners)
		if err != nil {
			parseErr = fmt.Errorf("%s: %w", ts.Name.Name, err)
			return false
		}
		if len(fields) == 0 {
			return true
		}

		infos = append(infos, &StructInfo{
			Name:      ts.Name.Name,
			Package:   pkg,
			Fields:    fields,
			Relations: rels,
			TableName: naming.TableName(ts.Name.Name),
		})
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}

	names := tableNameMethods(file)
	for _, info := range infos {
		if name, ok := names[info.Name]; ok {
			info.TableName = name
		}
	}
	return infos, nil
}

// parseStructFields extracts column and relationship fields from an AST
// struct type.
func parseStructFields(st *ast.StructType, scanners map[string]bool) ([]FieldInfo, []RelationInfo, error) {
	fields := make([]FieldInfo, 0, len(st.Fields.List))
	var rels []RelationInfo
	for _, field := range st.Fields.List {
		if len(field.Names) == 0 || !field.Names[0].IsExported() {
			continue // embedded or unexported
		}
		tag := fieldTag(field)

		if relTag, ok := tag.Lookup("rel"); ok {
			rel, err := parseRelation(field, relTag)
			if err != nil {
				return nil, nil, err
			}
			rels = append(rels, rel)
			continue
		}

		fi, skip, err := parseField(field, tag, scanners)
		if err != nil {
			return nil, nil, err
		}
		if skip {
			continue
		}
		fields = append(fields, fi)
	}
	return fields, rels, nil
}

func fieldTag(field *ast.Field) reflect.StructTag {
	if field.Tag == nil {
		return ""
	}
	return reflect.StructTag(strings.Trim(field.Tag.Value, "`"))
}

func parseField(field *ast.Field, tag reflect.StructTag, scanners map[string]bool) (FieldInfo, bool, error) {
	name := field.Names[0].Name
	dbTag, tagged := tag.Lookup("db")
	c, ok, err := tags.ParseColumn(name, dbTag, tagged)
	if err != nil {
		return FieldInfo{}, false, err //nolint:wrapcheck // already names the field
	}
	if !ok {
		return FieldInfo{}, true, nil // explicitly skipped
	}

	return FieldInfo{
		Name:       name,
		Column:     c.Name,
		GoType:     typeToString(field.Type),
		Tagged:     tagged,
		Scanner:    isScanner(field.Type, scanners),
		PrimaryKey: c.PrimaryKey,
		NotNull:    c.NotNull,
		Unique:     c.Unique,
		Size:       c.Size,
		References: c.References,
		Default:    c.Default,
		HasDefault: c.HasDefault,
	}, false, nil
}

func parseRelation(field *ast.Field, tag string) (RelationInfo, error) {
	name := field.Names[0].Name
	r, err := tags.ParseRelation(tag)
	if err != nil {
		return RelationInfo{}, fmt.Errorf("field %s: %w", name, err)
	}
	return RelationInfo{
		Name:          name,
		Target:        targetName(field.Type),
		Kind:          r.Kind,
		ForeignKey:    r.ForeignKey,
		BackPopulates: r.BackPopulates,
	}, nil
}

// targetName strips slices, pointers and package qualifiers from a
// relationship field type.
func targetName(expr ast.Expr) string {
	s := typeToString(expr)
	s = strings.TrimLeft(s, "[]*")
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return s
}

// isScanner reports whether a field of type expr can be stored as text
// the way orm stores sql.Scanner types. Local types need a Scan method
// declared in the same file; types from other packages cannot be checked
// and are assumed to be scanners.
func isScanner(expr ast.Expr, scanners map[string]bool) bool {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.SelectorExpr:
		return true
	case *ast.Ident:
		return scanners[t.Name]
	default:
		return false
	}
}

// scanMethods finds the types with a Scan method on their pointer or value.
func scanMethods(file *ast.File) map[string]bool {
	out := make(map[string]bool)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || fn.Name.Name != "Scan" || len(fn.Recv.List) != 1 {
			continue
		}
		out[strings.TrimPrefix(typeToString(fn.Recv.List[0].Type), "*")] = true
	}
	return out
}

// tableNameMethods finds TableName methods that return a string literal.
func tableNameMethods(file *ast.File) map[string]string {
	out := make(map[string]string)
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || fn.Name.Name != "TableName" || fn.Body == nil || len(fn.Recv.List) != 1 {
			continue
		}
		recv := strings.TrimPrefix(typeToString(fn.Recv.List[0].Type), "*")
		for _, stmt := range fn.Body.List {
			ret, ok := stmt.(*ast.ReturnStmt)
			if !ok || len(ret.Results) != 1 {
				continue
			}
			lit, ok := ret.Results[0].(*ast.BasicLit)
			if !ok || lit.Kind != token.STRING {
				continue
			}
			if name, err := strconv.Unquote(lit.Value); err == nil {
				out[recv] = name
			}
		}
	}
	return out
}

func typeToString(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return typeToString(t.X) + "." + t.Sel.Name
	case *ast.StarExpr:
		return "*" + typeToString(t.X)
	case *ast.ArrayType:
		if t.Len == nil {
			return "[]" + typeToString(t.Elt)
		}
		return fmt.Sprintf("[%s]%s", typeToString(t.Len), typeToString(t.Elt))
	case *ast.BasicLit:
		return t.Value
	default:
		return fmt.Sprintf("%T", expr)
	}
}
