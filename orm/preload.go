package orm

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jmoiron/sqlx"
)

// preload fills rel on every object in owners with one SELECT ... IN
// query, and links the loaded objects back when rel back-populates.
func (s *Session) preload(ctx context.Context, rel *Relationship, owners []reflect.Value) error {
	if len(owners) == 0 {
		return nil
	}
	target := rel.target

	if rel.kind == BelongsTo {
		keys := distinctKeys(owners, func(v reflect.Value) reflect.Value {
			return v.Elem().FieldByIndex(rel.fk.index)
		})
		parents, err := s.loadIn(ctx, target, target.pk, keys)
		if err != nil {
			return err
		}
		byPK := make(map[any]reflect.Value, len(parents))
		for _, p := range parents {
			byPK[normalize(target.pkValue(p))] = p
		}
		for _, o := range owners {
			p, ok := byPK[normalize(o.Elem().FieldByIndex(rel.fk.index))]
			if !ok {
				continue
			}
			rel.attach(o, p)
			if rel.back != nil {
				rel.back.attach(p, o)
			}
		}
		return nil
	}

	keys := distinctKeys(owners, func(v reflect.Value) reflect.Value {
		return rel.parent.pkValue(v)
	})
	children, err := s.loadIn(ctx, target, rel.fk, keys)
	if err != nil {
		return err
	}
	byFK := make(map[any][]reflect.Value)
	for _, c := range children {
		k := normalize(c.Elem().FieldByIndex(rel.fk.index))
		byFK[k] = append(byFK[k], c)
	}
	for _, o := range owners {
		kids := byFK[normalize(rel.parent.pkValue(o))]
		fv := o.Elem().FieldByIndex(rel.index)
		if rel.kind == HasMany {
			list := reflect.MakeSlice(fv.Type(), 0, len(kids))
			fv.Set(reflect.Append(list, kids...))
		} else if len(kids) > 0 {
			fv.Set(kids[0])
		} else {
			fv.Set(reflect.Zero(fv.Type()))
		}
		if rel.back != nil {
			for _, c := range kids {
				rel.back.attach(c, o)
			}
		}
	}
	return nil
}

// loadIn loads the objects of m whose column f is one of keys.
func (s *Session) loadIn(ctx context.Context, m *Mapper, f *field, keys []any) ([]reflect.Value, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	d := s.dialect
	table := d.QuoteIdent(m.table.Name())
	cols := m.Columns()
	for i, c := range cols {
		cols[i] = table + "." + d.QuoteIdent(c)
	}

	query, args, err := sqlx.In(
		fmt.Sprintf("SELECT %s FROM %s WHERE %s.%s IN (?)", strings.Join(cols, ", "), table, table, d.QuoteIdent(f.column)),
		keys,
	)
	if err != nil {
		return nil, fmt.Errorf("orm: preload %s: %w", m.typ.Name(), err)
	}
	return s.load(ctx, m, query, args)
}

// distinctKeys returns the non-null keys of vs in first-seen order.
func distinctKeys(vs []reflect.Value, key func(reflect.Value) reflect.Value) []any {
	seen := make(map[any]bool, len(vs))
	var out []any
	for _, v := range vs {
		k := reflect.Indirect(key(v))
		if !k.IsValid() {
			continue
		}
		n := normalize(k)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, k.Interface())
	}
	return out
}
