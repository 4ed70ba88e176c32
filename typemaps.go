package msgcall

import (
	"reflect"

	"github.com/cockroachdb/apd/v3"
	"github.com/creachadair/mds/mapset"
)

var (
	charType    = reflect.TypeFor[Char]()
	decimalType = reflect.TypeFor[apd.Decimal]()
	anyType     = reflect.TypeFor[any]()
	errorType   = reflect.TypeFor[error]()
	bytesType   = reflect.TypeFor[[]byte]()
	stringType  = reflect.TypeFor[string]()

	// kindToType maps the reflect.Kinds of the primitive parameter
	// types to their canonical reflect.Type. Named types whose kind
	// is in this map coerce like their canonical type.
	kindToType = map[reflect.Kind]reflect.Type{
		reflect.Bool:    reflect.TypeFor[bool](),
		reflect.Int:     reflect.TypeFor[int](),
		reflect.Int8:    reflect.TypeFor[int8](),
		reflect.Int16:   reflect.TypeFor[int16](),
		reflect.Int32:   reflect.TypeFor[int32](),
		reflect.Int64:   reflect.TypeFor[int64](),
		reflect.Uint:    reflect.TypeFor[uint](),
		reflect.Uint8:   reflect.TypeFor[uint8](),
		reflect.Uint16:  reflect.TypeFor[uint16](),
		reflect.Uint32:  reflect.TypeFor[uint32](),
		reflect.Uint64:  reflect.TypeFor[uint64](),
		reflect.Float32: reflect.TypeFor[float32](),
		reflect.Float64: reflect.TypeFor[float64](),
	}

	// intKinds and uintKinds are the signed and unsigned integer
	// reflect.Kinds.
	intKinds  = mapset.New(reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64)
	uintKinds = mapset.New(reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr)

	// unboxableKinds is the set of reflect.Kinds that have no
	// corresponding Value.
	unboxableKinds = mapset.New(
		reflect.Chan,
		reflect.Func,
		reflect.Complex64,
		reflect.Complex128,
		reflect.UnsafePointer,
		reflect.Uintptr,
	)

	// nilableKinds is the set of reflect.Kinds whose zero value is
	// nil.
	nilableKinds = mapset.New(
		reflect.Pointer,
		reflect.Interface,
		reflect.Slice,
		reflect.Map,
		reflect.Chan,
		reflect.Func,
	)
)

// primitiveType returns the canonical primitive type that t coerces
// as, and whether t is primitive at all.
//
// Char and apd.Decimal are primitives in their own right. Otherwise,
// t is primitive if its kind is a boolean, integer or floating point
// kind, whether or not t is a named type.
func primitiveType(t reflect.Type) (reflect.Type, bool) {
	switch t {
	case charType, decimalType:
		return t, true
	}
	ret, ok := kindToType[t.Kind()]
	return ret, ok
}
