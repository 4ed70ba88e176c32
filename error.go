package msgcall

import (
	"errors"
	"fmt"
	"reflect"
)

// Decode failures. A [*DecodeError] wraps one of these, or a
// [*fragments.BoundsError] when the input ends early.
var (
	ErrInvalidTag           = errors.New("invalid type tag")
	ErrUnsupportedExtension = errors.New("unsupported extension type")
	ErrExtensionLength      = errors.New("invalid extension length")
	ErrNonStringKey         = errors.New("map key is not a string")
	ErrTooDeep              = errors.New("maximum nesting depth exceeded")
	ErrTrailingData         = errors.New("trailing data after value")
)

// Lookup failures, wrapped by [*LookupError].
var (
	ErrArgumentMissing = errors.New("no target given for instance method")
	ErrMethodNotFound  = errors.New("method not found")
	ErrTargetMismatch  = errors.New("target does not provide method")
)

// Call failures.
var (
	ErrTooFewArguments = errors.New("too few arguments")
	ErrOutOfRange      = errors.New("value out of range")
	ErrNotConvertible  = errors.New("value not convertible")
)

// DecodeError is the error returned when a buffer cannot be decoded.
type DecodeError struct {
	// Offset is the position in the buffer of the value that failed
	// to decode.
	Offset int
	// Reason is what went wrong.
	Reason error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding value at offset %d: %v", e.Offset, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Reason
}

// TypeError is the error returned when a Go type cannot take part in
// a call, either as a parameter or as a result.
type TypeError struct {
	// Type is the name of the type that caused the error.
	Type string
	// Reason is an explanation of why the type can't be used.
	Reason error
}

func (e TypeError) Error() string {
	return fmt.Sprintf("msgcall cannot use %s: %s", e.Type, e.Reason)
}

func (e TypeError) Unwrap() error {
	return e.Reason
}

func typeErr(t reflect.Type, reason string, args ...any) error {
	ts := ""
	if t != nil {
		ts = t.String()
	}
	return TypeError{ts, fmt.Errorf(reason, args...)}
}

// LookupError is the error returned when a method cannot be found or
// bound.
type LookupError struct {
	// Type is the type the method was looked up on. It is empty for
	// free functions.
	Type string
	// Name is the method name.
	Name string
	// Reason is one of ErrArgumentMissing, ErrMethodNotFound or
	// ErrTargetMismatch, possibly wrapped with more detail.
	Reason error
}

func (e *LookupError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("looking up %s: %v", e.Name, e.Reason)
	}
	return fmt.Sprintf("looking up %s.%s: %v", e.Type, e.Name, e.Reason)
}

func (e *LookupError) Unwrap() error {
	return e.Reason
}

// CoercionError is the error returned when an argument cannot be
// converted to the primitive type of the parameter it was passed to.
type CoercionError struct {
	// Param is the index of the parameter in the method signature.
	Param int
	// Arg is the index of the offending value in the argument
	// sequence.
	Arg int
	// From is the type of the value received.
	From string
	// To is the declared type of the parameter.
	To string
	// Reason is ErrOutOfRange or ErrNotConvertible, possibly wrapped
	// with more detail.
	Reason error
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("parameter %d (argument %d): cannot convert %s to %s: %v", e.Param, e.Arg, e.From, e.To, e.Reason)
}

func (e *CoercionError) Unwrap() error {
	return e.Reason
}

// CastError is the error returned when an argument is not assignable
// to the non-primitive type of the parameter it was passed to.
type CastError struct {
	// Param is the index of the parameter in the method signature.
	Param int
	// Arg is the index of the offending value in the argument
	// sequence.
	Arg int
	// From is the type of the value received.
	From string
	// To is the declared type of the parameter.
	To string
}

func (e *CastError) Error() string {
	return fmt.Sprintf("parameter %d (argument %d): invalid cast from %s to %s", e.Param, e.Arg, e.From, e.To)
}

// typeName returns the name of v's type for error messages.
func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return reflect.TypeOf(v).String()
}
