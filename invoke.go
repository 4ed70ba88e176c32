package msgcall

import (
	"context"
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// A Thunk calls a bound method with an argument sequence, and returns
// the method's boxed result.
//
// Thunks are safe for concurrent use.
type Thunk func(ctx context.Context, args []any) (any, error)

// Invoker builds and caches Thunks.
//
// The zero Invoker is ready to use, but cannot bind methods that have
// caller parameters.
type Invoker struct {
	// CallerType is the type of the caller identity that the Invoker
	// injects into caller parameters. A caller parameter must have a
	// type that CallerType is assignable to.
	//
	// CallerType must not change after the first call to Thunk.
	CallerType reflect.Type
	// Logger, if non-nil, is used instead of the package's Logger.
	Logger *zap.Logger

	thunks cache[thunkKey, Thunk]
}

type thunkKey struct {
	target any
	method *Method
}

// DefaultInvoker is the Invoker used by [Bind].
var DefaultInvoker = &Invoker{}

// Bind returns DefaultInvoker's Thunk for calling m on target.
func Bind(target any, m *Method) (Thunk, error) {
	return DefaultInvoker.Thunk(target, m)
}

func (inv *Invoker) logger() *zap.Logger {
	if inv.Logger != nil {
		return inv.Logger
	}
	return Logger()
}

// Thunk returns a Thunk that calls m on target.
//
// target is ignored for static methods, and must be non-nil for
// instance methods. Thunk returns a [*LookupError] wrapping
// [ErrArgumentMissing] if it is missing, and wrapping
// [ErrTargetMismatch] if target does not have the method m.
//
// The work of matching arguments to m's parameters is done once,
// when the Thunk is built. Each parameter gets its value from the
// argument sequence in one of the following ways:
//
// Parameters of primitive type (bool, integers, floats, [Char],
// [apd.Decimal] and named types of those) accept arguments of their
// exact type unchanged, and convert other arguments with the rules
// described by [Coerce]. A failed conversion returns a
// [*CoercionError].
//
// Parameters of type any accept any argument unchanged. Parameters of
// other types accept arguments assignable to them, and nil for types
// that can be nil. Strings are also accepted for parameters of named
// string types. Other arguments fail with a [*CastError].
//
// context.Context parameters receive the ctx passed to the Thunk, and
// don't consume an argument.
//
// Caller parameters, marked with [FromCaller], receive the last
// element of the argument sequence, or the caller carried by ctx (see
// [WithCaller]) if the last element is nil. A caller of the wrong type
// is passed as the zero value. Caller parameters don't consume a
// positional argument.
//
// Thunks for the same target and method are built once and cached.
// Targets that cannot be used as map keys get a new Thunk on every
// call.
func (inv *Invoker) Thunk(target any, m *Method) (Thunk, error) {
	if m == nil {
		return nil, &LookupError{"", "", ErrMethodNotFound}
	}
	if m.Static {
		target = nil
	} else if target == nil {
		return nil, &LookupError{typeString(m.Type), m.Name, ErrArgumentMissing}
	}

	build := func() (Thunk, error) {
		ret, err := inv.newThunk(target, m)
		if err != nil {
			inv.logger().Debug("building thunk failed", zap.Stringer("method", m), zap.Error(err))
			return nil, err
		}
		inv.logger().Debug("built thunk", zap.Stringer("method", m))
		return ret, nil
	}
	if target != nil && !reflect.ValueOf(target).Comparable() {
		return build()
	}
	return inv.thunks.Get(thunkKey{target, m}, build)
}

func typeString(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

func (inv *Invoker) newThunk(target any, m *Method) (Thunk, error) {
	fn, err := bindMethod(target, m)
	if err != nil {
		return nil, err
	}
	p, err := newPlan(m, inv.CallerType)
	if err != nil {
		return nil, err
	}

	ret := func(ctx context.Context, args []any) (any, error) {
		if ctx == nil {
			ctx = context.Background()
		}
		in, err := p.args(ctx, args)
		if err != nil {
			return nil, fmt.Errorf("calling %s: %w", m.Name, err)
		}
		debugf("calling %s with %d args", m, len(args))
		return p.results(fn.Call(in))
	}
	return ret, nil
}

// bindMethod returns the function value to call for m on target.
func bindMethod(target any, m *Method) (reflect.Value, error) {
	if m.Static {
		return m.fn, nil
	}
	mismatch := func(detail string, args ...any) error {
		return &LookupError{typeString(m.Type), m.Name, fmt.Errorf("%w: %s", ErrTargetMismatch, fmt.Sprintf(detail, args...))}
	}

	tv := reflect.ValueOf(target)
	tt := tv.Type()
	switch {
	case m.Type == nil:
	case m.Type.Kind() == reflect.Interface:
		if !tt.Implements(m.Type) {
			return reflect.Value{}, mismatch("%s does not implement %s", tt, m.Type)
		}
	case tt == m.Type:
	case tt.Kind() == reflect.Pointer && tt.Elem() == m.Type:
	default:
		return reflect.Value{}, mismatch("target is %s", tt)
	}

	fn := tv.MethodByName(m.Name)
	if !fn.IsValid() {
		return reflect.Value{}, mismatch("%s has no method %s", tt, m.Name)
	}
	if fn.Type() != m.sig {
		return reflect.Value{}, mismatch("%s.%s has signature %s, want %s", tt, m.Name, fn.Type(), m.sig)
	}
	return fn, nil
}

// Invoke looks up the method called name on target, and calls it with
// args.
func (inv *Invoker) Invoke(ctx context.Context, target any, name string, args []any, opts ...LookupOption) (any, error) {
	m, err := LookupMethod(target, name, opts...)
	if err != nil {
		return nil, err
	}
	thunk, err := inv.Thunk(target, m)
	if err != nil {
		return nil, err
	}
	return thunk(ctx, args)
}
