package msgcall

import (
	"fmt"
)

// FuncRef is a reference to a callable, decoded from extension
// sub-types 10 and 11.
type FuncRef interface {
	// FuncName returns the name of the referenced callable.
	FuncName() string

	isFuncRef()
}

// LocalFuncRef is a reference to a callable in the local process.
type LocalFuncRef struct {
	Name string
}

func (f LocalFuncRef) FuncName() string { return f.Name }
func (LocalFuncRef) isFuncRef()         {}

func (f LocalFuncRef) String() string {
	return fmt.Sprintf("funcref(%s)", f.Name)
}

// RemoteFuncRef is a reference to a callable owned by the remote
// party identified by Origin.
type RemoteFuncRef struct {
	Name   string
	Origin string
}

func (f RemoteFuncRef) FuncName() string { return f.Name }
func (RemoteFuncRef) isFuncRef()         {}

func (f RemoteFuncRef) String() string {
	return fmt.Sprintf("funcref(%s@%s)", f.Name, f.Origin)
}

// Vector2 is a 2-component vector, extension sub-type 20.
type Vector2 struct {
	X, Y float32
}

// Vector3 is a 3-component vector, extension sub-type 21.
type Vector3 struct {
	X, Y, Z float32
}

// Vector4 is a 4-component vector, extension sub-type 22.
type Vector4 struct {
	X, Y, Z, W float32
}

// Quaternion is a rotation quaternion, extension sub-type 23.
type Quaternion struct {
	X, Y, Z, W float32
}

// Char is a single Unicode code point.
//
// The wire format has no character type. Char exists so that methods
// can declare character parameters distinct from int32, and have
// arguments coerced accordingly.
type Char rune

// Kind is the shape of a decoded value.
type Kind uint8

const (
	// KindInvalid is the Kind of Go values that are not Values.
	KindInvalid Kind = iota
	KindNil
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindArray
	KindMap
	KindFuncRef
	KindVector
	KindQuaternion
)

var kindNames = [...]string{
	KindInvalid:    "invalid",
	KindNil:        "nil",
	KindBool:       "bool",
	KindInt:        "int",
	KindUint:       "uint",
	KindFloat:      "float",
	KindString:     "string",
	KindBytes:      "bytes",
	KindArray:      "array",
	KindMap:        "map",
	KindFuncRef:    "funcref",
	KindVector:     "vector",
	KindQuaternion: "quaternion",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// KindOf returns the Kind of v.
//
// The Values produced by [Decode] are exactly the Go values for which
// KindOf does not return KindInvalid: nil, bool, the sized integer
// types, float32, float64, string, []byte, []any, map[string]any,
// [LocalFuncRef], [RemoteFuncRef], [Vector2], [Vector3], [Vector4]
// and [Quaternion]. KindOf only inspects the outermost value, the
// elements of arrays and maps are not checked.
func KindOf(v any) Kind {
	switch v.(type) {
	case nil:
		return KindNil
	case bool:
		return KindBool
	case int8, int16, int32, int64:
		return KindInt
	case uint8, uint16, uint32, uint64:
		return KindUint
	case float32, float64:
		return KindFloat
	case string:
		return KindString
	case []byte:
		return KindBytes
	case []any:
		return KindArray
	case map[string]any:
		return KindMap
	case LocalFuncRef, RemoteFuncRef:
		return KindFuncRef
	case Vector2, Vector3, Vector4:
		return KindVector
	case Quaternion:
		return KindQuaternion
	}
	return KindInvalid
}
