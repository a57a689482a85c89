package core

import (
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"
)

var timeType = reflect.TypeOf(time.Time{})

// timeLayouts are the textual timestamp forms SQLite and MySQL hand back.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Assign stores src into the value dest points to, converting between
// the representations drivers return (int64, float64, []byte, string,
// time.Time, bool, nil) and common Go types. It is the conversion behind
// Row.Scan and the ORM's column loading.
func Assign(dest, src any) error { return assign(dest, src) }

func assign(dest, src any) error {
	if s, ok := dest.(sql.Scanner); ok {
		return s.Scan(src) //nolint:wrapcheck // pass through
	}
	if d, ok := dest.(*any); ok {
		*d = src
		return nil
	}

	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return errors.New("destination must be a non-nil pointer")
	}
	return assignValue(dv.Elem(), src)
}

// AssignValue stores src into the settable value dv.
func AssignValue(dv reflect.Value, src any) error { return assignValue(dv, src) }

func assignValue(dv reflect.Value, src any) error {
	if dv.CanAddr() {
		if s, ok := dv.Addr().Interface().(sql.Scanner); ok {
			return s.Scan(src) //nolint:wrapcheck // pass through
		}
	}

	if src == nil {
		dv.Set(reflect.Zero(dv.Type()))
		return nil
	}

	if dv.Kind() == reflect.Pointer {
		elem := reflect.New(dv.Type().Elem())
		if err := assignValue(elem.Elem(), src); err != nil {
			return err
		}
		dv.Set(elem)
		return nil
	}

	sv := reflect.ValueOf(src)
	if sv.Type().AssignableTo(dv.Type()) {
		dv.Set(sv)
		return nil
	}

	switch dv.Kind() {
	case reflect.String:
		dv.SetString(asString(src))
		return nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := asInt64(src)
		if err != nil {
			return err
		}
		if dv.OverflowInt(n) {
			return fmt.Errorf("value %d overflows %s", n, dv.Type())
		}
		dv.SetInt(n)
		return nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := asInt64(src)
		if err != nil {
			return err
		}
		if n < 0 || dv.OverflowUint(uint64(n)) {
			return fmt.Errorf("value %d overflows %s", n, dv.Type())
		}
		dv.SetUint(uint64(n))
		return nil
	case reflect.Float32, reflect.Float64:
		f, err := asFloat64(src)
		if err != nil {
			return err
		}
		dv.SetFloat(f)
		return nil
	case reflect.Bool:
		b, err := asBool(src)
		if err != nil {
			return err
		}
		dv.SetBool(b)
		return nil
	case reflect.Slice:
		if dv.Type().Elem().Kind() == reflect.Uint8 {
			switch s := src.(type) {
			case string:
				dv.SetBytes([]byte(s))
				return nil
			case []byte:
				dv.SetBytes(append([]byte(nil), s...))
				return nil
			}
		}
	case reflect.Struct:
		if dv.Type() == timeType {
			t, err := asTime(src)
			if err != nil {
				return err
			}
			dv.Set(reflect.ValueOf(t))
			return nil
		}
	}

	if sv.Type().ConvertibleTo(dv.Type()) {
		dv.Set(sv.Convert(dv.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", src, dv.Type())
}

func asString(src any) string {
	switch s := src.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	case time.Time:
		return s.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(src)
	}
}

func asInt64(src any) (int64, error) {
	switch s := src.(type) {
	case int64:
		return s, nil
	case int:
		return int64(s), nil
	case int32:
		return int64(s), nil
	case int16:
		return int64(s), nil
	case int8:
		return int64(s), nil
	case uint8:
		return int64(s), nil
	case uint16:
		return int64(s), nil
	case uint32:
		return int64(s), nil
	case uint64:
		return int64(s), nil //nolint:gosec // driver values fit
	case float64:
		if s != float64(int64(s)) {
			return 0, fmt.Errorf("value %v is not integral", s)
		}
		return int64(s), nil
	case bool:
		if s {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(s, 10, 64) //nolint:wrapcheck // pass through
	case []byte:
		return strconv.ParseInt(string(s), 10, 64) //nolint:wrapcheck // pass through
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", src)
	}
}

func asFloat64(src any) (float64, error) {
	switch s := src.(type) {
	case float64:
		return s, nil
	case float32:
		return float64(s), nil
	case string:
		return strconv.ParseFloat(s, 64) //nolint:wrapcheck // pass through
	case []byte:
		return strconv.ParseFloat(string(s), 64) //nolint:wrapcheck // pass through
	default:
		n, err := asInt64(src)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %T to float", src)
		}
		return float64(n), nil
	}
}

func asBool(src any) (bool, error) {
	switch s := src.(type) {
	case bool:
		return s, nil
	case string:
		return strconv.ParseBool(s) //nolint:wrapcheck // pass through
	case []byte:
		return strconv.ParseBool(string(s)) //nolint:wrapcheck // pass through
	default:
		n, err := asInt64(src)
		if err != nil {
			return false, fmt.Errorf("cannot convert %T to bool", src)
		}
		return n != 0, nil
	}
}

func asTime(src any) (time.Time, error) {
	var s string
	switch v := src.(type) {
	case time.Time:
		return v, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time.Time", src)
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as time", s)
}
