package msgcall

import (
	"fmt"
	"reflect"
	"strings"
)

// structField is the information about a struct field that gets
// boxed into a map entry.
type structField struct {
	// Name is the field's key in the boxed map.
	Name  string
	Index [][]int
	Type  reflect.Type
	// OmitEmpty is whether to leave the field out of the boxed map
	// when it holds its zero value.
	OmitEmpty bool

	// depth is the embedding depth of the field, for resolving
	// shadowed names.
	depth int
}

// GetWithZero loads the struct field from structVal. If loading
// requires traversing a nil pointer into an embedded struct,
// GetWithZero returns a zero value of the field.
func (f *structField) GetWithZero(structVal reflect.Value) reflect.Value {
	v := structVal
	for i, hop := range f.Index {
		if i > 0 {
			if v.IsNil() {
				return reflect.Zero(f.Type)
			}
			v = v.Elem()
		}
		v = v.FieldByIndex(hop)
	}
	return v
}

func (f *structField) String() string {
	return fmt.Sprintf("%s: %s at %v", f.Name, f.Type, f.Index)
}

// structInfo is the information about a struct relevant to boxing.
type structInfo struct {
	// Type is the struct's type, for use in diagnostics.
	Type reflect.Type
	// StructFields are the fields that get boxed, in declaration
	// order.
	StructFields []*structField
}

// getStructInfo returns the structInfo for t.
//
// Exported fields are boxed under their name, or the name given by a
// `msgpack:"name"` struct tag. Fields tagged `msgpack:"-"` are
// skipped, and fields tagged with the omitempty option are skipped
// when zero. Fields of embedded structs are promoted into the outer
// struct, following Go's rules for shadowing.
//
// Names that are ambiguous at their shallowest depth are skipped.
//
// getStructInfo returns an error if t is not a struct.
func getStructInfo(t reflect.Type) (*structInfo, error) {
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%s is not a struct", t)
	}

	var all []*structField
	minDepth := map[string]int{}
	count := map[string]int{}
	for field := range structFields(t, nil) {
		if !field.IsExported() {
			continue
		}
		name, omitEmpty, skip := parseStructTag(field)
		if skip {
			continue
		}
		f := &structField{
			Name:      name,
			Type:      field.Type,
			Index:     allocSteps(t, field.Index),
			OmitEmpty: omitEmpty,
			depth:     len(field.Index),
		}
		all = append(all, f)
		switch d, ok := minDepth[name]; {
		case !ok || f.depth < d:
			minDepth[name] = f.depth
			count[name] = 1
		case f.depth == d:
			count[name]++
		}
	}

	ret := &structInfo{Type: t}
	for _, f := range all {
		if f.depth != minDepth[f.Name] {
			// Shadowed by a shallower field.
			continue
		}
		if count[f.Name] > 1 {
			// Ambiguous, like an ambiguous selector in Go.
			continue
		}
		ret.StructFields = append(ret.StructFields, f)
	}
	return ret, nil
}

// parseStructTag returns the information contained in field's
// "msgpack" struct tag.
func parseStructTag(field reflect.StructField) (name string, omitEmpty, skip bool) {
	tag := field.Tag.Get("msgpack")
	if tag == "-" {
		return "", false, true
	}
	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = field.Name
	}
	for _, o := range strings.Split(opts, ",") {
		if o == "omitempty" {
			omitEmpty = true
		}
	}
	return name, omitEmpty, false
}
