// Package schema maps application field names onto the column names of the
// hosted records backend. Each table is an explicit list of field pairs with
// optional value transforms, checked once at startup.
package schema

import (
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Transform converts a JSON-decoded value in one direction.
type Transform func(v any) (any, error)

// Field pairs an application field with a backend column.
type Field struct {
	Internal   string // JSON name on the application model
	External   string // backend column name
	ToExternal Transform
	ToInternal Transform
	ReadOnly   bool   // assigned by the backend; never sent on writes
	OmitEmpty  bool   // drop "" and nil values on writes
	Fallback   string // column read when External is missing or empty
}

// Table is the mapping for one backend table.
type Table struct {
	Name   string
	Fields []Field
}

// Validate checks that names are present and unique in both directions.
func (t Table) Validate() error {
	if t.Name == "" {
		return errors.New("schema: table name is empty")
	}
	if len(t.Fields) == 0 {
		return fmt.Errorf("schema %s: no fields", t.Name)
	}
	internal := make(map[string]bool, len(t.Fields))
	external := make(map[string]bool, len(t.Fields))
	for i, f := range t.Fields {
		if f.Internal == "" || f.External == "" {
			return fmt.Errorf("schema %s: field %d has an empty name", t.Name, i)
		}
		if internal[f.Internal] {
			return fmt.Errorf("schema %s: duplicate internal field %q", t.Name, f.Internal)
		}
		if external[f.External] {
			return fmt.Errorf("schema %s: duplicate external field %q", t.Name, f.External)
		}
		internal[f.Internal] = true
		external[f.External] = true
	}
	for _, f := range t.Fields {
		if f.Fallback != "" && external[f.Fallback] {
			return fmt.Errorf("schema %s: fallback %q of %s is already mapped", t.Name, f.Fallback, f.Internal)
		}
	}
	return nil
}

// Check verifies that every internal name is a JSON field of model, which
// must be a struct or a pointer to one.
func (t Table) Check(model any) error {
	typ := reflect.TypeOf(model)
	for typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return fmt.Errorf("schema %s: model must be a struct, got %T", t.Name, model)
	}
	names := make(map[string]bool, typ.NumField())
	for i := 0; i < typ.NumField(); i++ {
		tag := typ.Field(i).Tag.Get("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "" {
			name = typ.Field(i).Name
		}
		names[name] = true
	}
	for _, f := range t.Fields {
		if !names[f.Internal] {
			return fmt.Errorf("schema %s: %s has no field %q", t.Name, typ.Name(), f.Internal)
		}
	}
	return nil
}

// Columns returns the backend column names in declaration order.
func (t Table) Columns() []string {
	cols := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		cols = append(cols, f.External)
	}
	for _, f := range t.Fields {
		if f.Fallback != "" {
			cols = append(cols, f.Fallback)
		}
	}
	return cols
}

// Column returns the backend column for an internal field name.
func (t Table) Column(internal string) (string, bool) {
	for _, f := range t.Fields {
		if f.Internal == internal {
			return f.External, true
		}
	}
	return "", false
}

// ToExternal maps an application record to a backend payload. Unknown and
// read-only fields are dropped.
func (t Table) ToExternal(record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(record))
	for _, f := range t.Fields {
		if f.ReadOnly {
			continue
		}
		v, ok := record[f.Internal]
		if !ok {
			continue
		}
		if f.OmitEmpty && isEmpty(v) {
			continue
		}
		if f.ToExternal != nil {
			var err error
			if v, err = f.ToExternal(v); err != nil {
				return nil, fmt.Errorf("schema %s: field %s: %w", t.Name, f.Internal, err)
			}
		}
		out[f.External] = v
	}
	return out, nil
}

// ToInternal maps a backend record to application field names. Columns not in
// the table are dropped.
func (t Table) ToInternal(record map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(t.Fields))
	for _, f := range t.Fields {
		v, ok := record[f.External]
		if f.Fallback != "" && (!ok || isEmpty(v)) {
			v, ok = record[f.Fallback]
		}
		if !ok {
			continue
		}
		if f.ToInternal != nil {
			var err error
			if v, err = f.ToInternal(v); err != nil {
				return nil, fmt.Errorf("schema %s: column %s: %w", t.Name, f.External, err)
			}
		}
		out[f.Internal] = v
	}
	return out, nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// Ref resolves a lookup column, which the backend returns either as a bare
// ID or as an object carrying "Id", into a plain ID.
func Ref(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		id, ok := x["Id"]
		if !ok {
			return nil, errors.New("lookup object has no Id")
		}
		return Ref(id)
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	case string:
		if x == "" {
			return nil, nil
		}
		n, err := strconv.Atoi(x)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q", x)
		}
		return float64(n), nil
	default:
		return nil, fmt.Errorf("unsupported id value %T", v)
	}
}

// Nullable maps an empty string to nil so optional dates decode cleanly.
func Nullable(v any) (any, error) {
	if s, ok := v.(string); ok && s == "" {
		return nil, nil
	}
	return v, nil
}
