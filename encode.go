package msgcall

import (
	"maps"
	"reflect"
	"slices"

	"github.com/danderson/msgcall/fragments"
)

// Marshal returns the MessagePack encoding of v.
//
// v must be a Value, as described by [KindOf]. Marshal picks
// encodings that [Decode] maps back to identical Go values: uint8
// values below 128 encode as positive fixints, int8 values in
// [-32,-1] encode as negative fixints, and all other integers encode
// in the fixed-width form of their type. Strings, byte slices, arrays
// and maps use their shortest header. Map keys are written in sorted
// order.
//
// Funcrefs, vectors and quaternions encode as extension values. A
// [RemoteFuncRef] encodes its name only: the origin is a property of
// the connection the value travels on, not of the value.
//
// Marshal returns a [TypeError] if v, or any value nested within it,
// is not a Value.
func Marshal(v any) ([]byte, error) {
	e := fragments.Encoder{Order: fragments.BigEndian}
	if err := marshalValue(&e, v, 0); err != nil {
		return nil, err
	}
	return e.Out, nil
}

func marshalValue(e *fragments.Encoder, v any, depth int) error {
	switch v := v.(type) {
	case nil:
		e.Nil()
	case bool:
		e.Bool(v)
	case uint8:
		if v <= fragments.MaxPosFixint {
			e.Tag(v)
		} else {
			e.TaggedUint8(v)
		}
	case uint16:
		e.TaggedUint16(v)
	case uint32:
		e.TaggedUint32(v)
	case uint64:
		e.TaggedUint64(v)
	case int8:
		if v < 0 && v >= -32 {
			e.Tag(uint8(v))
		} else {
			e.Int8(v)
		}
	case int16:
		e.Int16(v)
	case int32:
		e.Int32(v)
	case int64:
		e.Int64(v)
	case float32:
		e.TaggedFloat32(v)
	case float64:
		e.TaggedFloat64(v)
	case string:
		e.String(v)
	case []byte:
		e.Bytes(v)
	case []any:
		if depth >= MaxDepth {
			return typeErr(reflect.TypeOf(v), "%w", ErrTooDeep)
		}
		e.ArrayHeader(len(v))
		for _, elem := range v {
			if err := marshalValue(e, elem, depth+1); err != nil {
				return err
			}
		}
	case map[string]any:
		if depth >= MaxDepth {
			return typeErr(reflect.TypeOf(v), "%w", ErrTooDeep)
		}
		e.MapHeader(len(v))
		for _, k := range slices.Sorted(maps.Keys(v)) {
			e.String(k)
			if err := marshalValue(e, v[k], depth+1); err != nil {
				return err
			}
		}
	case LocalFuncRef:
		e.ExtHeader(ExtLocalFuncRef, len(v.Name))
		e.Write([]byte(v.Name))
	case RemoteFuncRef:
		e.ExtHeader(ExtRemoteFuncRef, len(v.Name))
		e.Write([]byte(v.Name))
	case Vector2:
		marshalFloats(e, ExtVector2, v.X, v.Y)
	case Vector3:
		marshalFloats(e, ExtVector3, v.X, v.Y, v.Z)
	case Vector4:
		marshalFloats(e, ExtVector4, v.X, v.Y, v.Z, v.W)
	case Quaternion:
		marshalFloats(e, ExtQuaternion, v.X, v.Y, v.Z, v.W)
	default:
		return typeErr(reflect.TypeOf(v), "not a msgpack value")
	}
	return nil
}

func marshalFloats(e *fragments.Encoder, typ byte, fs ...float32) {
	e.ExtHeader(typ, 4*len(fs))
	for _, f := range fs {
		e.Float32(f)
	}
}
