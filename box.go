package msgcall

import (
	"reflect"

	"github.com/cockroachdb/apd/v3"
	"go.uber.org/zap"
)

// A boxFunc converts a Go value into a Value.
type boxFunc func(v reflect.Value) (any, error)

var boxers cache[reflect.Type, boxFunc]

var valueTypes = map[reflect.Type]bool{
	reflect.TypeFor[LocalFuncRef]():  true,
	reflect.TypeFor[RemoteFuncRef](): true,
	reflect.TypeFor[Vector2]():       true,
	reflect.TypeFor[Vector3]():       true,
	reflect.TypeFor[Vector4]():       true,
	reflect.TypeFor[Quaternion]():    true,
}

// Box converts v into a Value, the way an [Invoker] converts the
// results of the methods it calls.
//
// Integers and floats keep their width, except that int and uint box
// as int64 and uint64. Values of named types box as their underlying
// type. Slices and arrays box as []any, except byte slices and arrays
// which box as []byte. Maps with string keys box as map[string]any.
// Structs box as map[string]any of their exported fields, see
// getStructInfo for the details. Pointers and interfaces box as the
// value they point to, or nil. [Char] boxes as int32 and [apd.Decimal]
// as its string representation. Funcrefs, vectors and quaternions box
// unchanged.
//
// Channels, functions, complex numbers, unsafe pointers and maps with
// non-string keys cannot be boxed, Box returns a [TypeError] for
// them.
func Box(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(v)
	b, err := boxerFor(rv.Type())
	if err != nil {
		return nil, err
	}
	return b(rv)
}

func boxerFor(t reflect.Type) (boxFunc, error) {
	return boxers.Get(t, func() (boxFunc, error) {
		ret, err := newBoxer(t, map[reflect.Type]bool{})
		if err != nil {
			Logger().Debug("cannot box type", zap.Stringer("type", t), zap.Error(err))
			return nil, err
		}
		Logger().Debug("built boxer", zap.Stringer("type", t))
		return ret, nil
	})
}

// newBoxer builds the boxFunc for t. building is the set of types
// whose boxers are under construction further up the stack. A type
// that refers back to one of those gets a boxFunc that resolves
// through the boxer cache when first called, by which time the outer
// build is complete.
func newBoxer(t reflect.Type, building map[reflect.Type]bool) (boxFunc, error) {
	if building[t] {
		return newLazyBoxer(t), nil
	}
	building[t] = true
	defer delete(building, t)

	switch {
	case valueTypes[t]:
		return boxInterface, nil
	case t == decimalType:
		return boxDecimal, nil
	case t == charType:
		return func(v reflect.Value) (any, error) {
			return int32(v.Int()), nil
		}, nil
	}

	if unboxableKinds.Has(t.Kind()) {
		return nil, typeErr(t, "no msgpack mapping for %s", t.Kind())
	}

	switch t.Kind() {
	case reflect.Bool:
		return func(v reflect.Value) (any, error) {
			return v.Bool(), nil
		}, nil
	case reflect.Int8:
		return func(v reflect.Value) (any, error) {
			return int8(v.Int()), nil
		}, nil
	case reflect.Int16:
		return func(v reflect.Value) (any, error) {
			return int16(v.Int()), nil
		}, nil
	case reflect.Int32:
		return func(v reflect.Value) (any, error) {
			return int32(v.Int()), nil
		}, nil
	case reflect.Int64, reflect.Int:
		return func(v reflect.Value) (any, error) {
			return v.Int(), nil
		}, nil
	case reflect.Uint8:
		return func(v reflect.Value) (any, error) {
			return uint8(v.Uint()), nil
		}, nil
	case reflect.Uint16:
		return func(v reflect.Value) (any, error) {
			return uint16(v.Uint()), nil
		}, nil
	case reflect.Uint32:
		return func(v reflect.Value) (any, error) {
			return uint32(v.Uint()), nil
		}, nil
	case reflect.Uint64, reflect.Uint:
		return func(v reflect.Value) (any, error) {
			return v.Uint(), nil
		}, nil
	case reflect.Float32:
		return func(v reflect.Value) (any, error) {
			return float32(v.Float()), nil
		}, nil
	case reflect.Float64:
		return func(v reflect.Value) (any, error) {
			return v.Float(), nil
		}, nil
	case reflect.String:
		return func(v reflect.Value) (any, error) {
			return v.String(), nil
		}, nil
	case reflect.Pointer:
		return newPtrBoxer(t, building)
	case reflect.Interface:
		return boxDynamic, nil
	case reflect.Slice, reflect.Array:
		return newSliceBoxer(t, building)
	case reflect.Map:
		return newMapBoxer(t, building)
	case reflect.Struct:
		return newStructBoxer(t, building)
	}
	return nil, typeErr(t, "no msgpack mapping for type")
}

func newLazyBoxer(t reflect.Type) boxFunc {
	return func(v reflect.Value) (any, error) {
		b, err := boxerFor(t)
		if err != nil {
			return nil, err
		}
		return b(v)
	}
}

func boxInterface(v reflect.Value) (any, error) {
	return v.Interface(), nil
}

func boxDecimal(v reflect.Value) (any, error) {
	d := v.Interface().(apd.Decimal)
	return d.String(), nil
}

// boxDynamic boxes the value held by the interface v, according to
// its dynamic type.
func boxDynamic(v reflect.Value) (any, error) {
	if v.IsNil() {
		return nil, nil
	}
	elem := v.Elem()
	b, err := boxerFor(elem.Type())
	if err != nil {
		return nil, err
	}
	return b(elem)
}

func newPtrBoxer(t reflect.Type, building map[reflect.Type]bool) (boxFunc, error) {
	elemBox, err := newBoxer(t.Elem(), building)
	if err != nil {
		return nil, err
	}
	fn := func(v reflect.Value) (any, error) {
		if v.IsNil() {
			return nil, nil
		}
		return elemBox(v.Elem())
	}
	return fn, nil
}

func newSliceBoxer(t reflect.Type, building map[reflect.Type]bool) (boxFunc, error) {
	isSlice := t.Kind() == reflect.Slice
	if t.Elem().Kind() == reflect.Uint8 {
		// Fast path for []byte
		return func(v reflect.Value) (any, error) {
			if isSlice && v.IsNil() {
				return nil, nil
			}
			ret := make([]byte, v.Len())
			for i := range ret {
				ret[i] = byte(v.Index(i).Uint())
			}
			return ret, nil
		}, nil
	}

	elemBox, err := newBoxer(t.Elem(), building)
	if err != nil {
		return nil, err
	}
	fn := func(v reflect.Value) (any, error) {
		if isSlice && v.IsNil() {
			return nil, nil
		}
		ret := make([]any, v.Len())
		for i := range ret {
			ev, err := elemBox(v.Index(i))
			if err != nil {
				return nil, err
			}
			ret[i] = ev
		}
		return ret, nil
	}
	return fn, nil
}

func newMapBoxer(t reflect.Type, building map[reflect.Type]bool) (boxFunc, error) {
	if t.Key().Kind() != reflect.String {
		return nil, typeErr(t, "map keys must be strings")
	}
	valBox, err := newBoxer(t.Elem(), building)
	if err != nil {
		return nil, err
	}
	fn := func(v reflect.Value) (any, error) {
		if v.IsNil() {
			return nil, nil
		}
		ret := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			ev, err := valBox(iter.Value())
			if err != nil {
				return nil, err
			}
			ret[iter.Key().String()] = ev
		}
		return ret, nil
	}
	return fn, nil
}

func newStructBoxer(t reflect.Type, building map[reflect.Type]bool) (boxFunc, error) {
	fs, err := getStructInfo(t)
	if err != nil {
		return nil, typeErr(t, "getting struct info: %w", err)
	}

	type fieldBoxer struct {
		*structField
		box boxFunc
	}
	var fields []fieldBoxer
	for _, f := range fs.StructFields {
		fBox, err := newBoxer(f.Type, building)
		if err != nil {
			return nil, err
		}
		fields = append(fields, fieldBoxer{f, fBox})
	}

	fn := func(v reflect.Value) (any, error) {
		ret := make(map[string]any, len(fields))
		for _, f := range fields {
			fv := f.GetWithZero(v)
			if f.OmitEmpty && fv.IsZero() {
				continue
			}
			bv, err := f.box(fv)
			if err != nil {
				return nil, err
			}
			ret[f.Name] = bv
		}
		return ret, nil
	}
	return fn, nil
}
