package msgcall

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// ParamSource is where a parameter's value comes from when a method
// is invoked.
type ParamSource uint8

const (
	// SourceArgs parameters consume the next positional argument.
	SourceArgs ParamSource = iota
	// SourceCaller parameters receive the caller's identity, from
	// the trailing slot of the argument sequence or from the call's
	// context. They consume no positional argument.
	SourceCaller
	// SourceContext parameters receive the call's context.Context.
	SourceContext
)

func (s ParamSource) String() string {
	switch s {
	case SourceArgs:
		return "args"
	case SourceCaller:
		return "caller"
	case SourceContext:
		return "context"
	default:
		return fmt.Sprintf("ParamSource(%d)", uint8(s))
	}
}

// Param is a parameter of a [Method].
type Param struct {
	Type   reflect.Type
	Source ParamSource
}

// Method describes a callable: a method of a type, a static function
// associated with a type, or a free function.
//
// Methods are immutable and safe to share. [Lookup] returns the same
// *Method for identical lookups.
type Method struct {
	// Type is the type that declares the method. It is nil for free
	// functions created by [NewFunc].
	Type reflect.Type
	// Name is the method's name.
	Name string
	// Static is whether the method is called without a target.
	Static bool
	// Params are the method's parameters, excluding the receiver.
	Params []Param
	// Results are the method's result types.
	Results []reflect.Type

	// fn is the function to call for static methods.
	fn reflect.Value
	// sig is the method's signature, excluding the receiver.
	sig reflect.Type
}

func (m *Method) String() string {
	var ret strings.Builder
	if m.Type != nil {
		fmt.Fprintf(&ret, "%s.", m.Type)
	}
	ret.WriteString(m.Name)
	ret.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			ret.WriteString(", ")
		}
		ret.WriteString(p.Type.String())
		if p.Source != SourceArgs {
			fmt.Fprintf(&ret, " [%s]", p.Source)
		}
	}
	ret.WriteByte(')')
	return ret.String()
}

// NumArgs returns the minimum length of an argument sequence for m:
// one slot per SourceArgs parameter, plus the trailing caller slot if
// m has a SourceCaller parameter.
func (m *Method) NumArgs() int {
	n, caller := 0, false
	for _, p := range m.Params {
		switch p.Source {
		case SourceArgs:
			n++
		case SourceCaller:
			caller = true
		}
	}
	if caller {
		n++
	}
	return n
}

// LookupOption configures a method lookup.
type LookupOption func(*lookupConfig)

type lookupConfig struct {
	callerMask uint64
}

// FromCaller marks the parameters at the given indexes, counting from
// zero and excluding any receiver, as caller parameters. Caller
// parameters receive the identity of the remote caller instead of a
// positional argument, see [Invoker].
func FromCaller(idx ...int) LookupOption {
	return func(c *lookupConfig) {
		for _, i := range idx {
			if i < 0 || i >= 64 {
				// Out of range for any method, reported by
				// newMethod.
				c.callerMask |= 1 << 63
				continue
			}
			c.callerMask |= 1 << i
		}
	}
}

func lookupOptions(opts []LookupOption) lookupConfig {
	var ret lookupConfig
	for _, o := range opts {
		o(&ret)
	}
	return ret
}

type methodKey struct {
	typ        reflect.Type
	name       string
	sig        reflect.Type
	callerMask uint64
}

type staticKey struct {
	typ  reflect.Type
	name string
}

var (
	methods cache[methodKey, *Method]

	staticsMu sync.RWMutex
	statics   = map[staticKey]reflect.Value{}
)

// RegisterStatic registers fn as a static method called name of type
// t. Static methods are found by [Lookup] when t has no instance
// method of that name, and are called without a target.
//
// fn must be a function. Registering the same name twice for a type
// is an error.
func RegisterStatic(t reflect.Type, name string, fn any) error {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return typeErr(reflect.TypeOf(fn), "static method %s.%s is not a function", t, name)
	}
	k := staticKey{t, name}
	staticsMu.Lock()
	defer staticsMu.Unlock()
	if _, ok := statics[k]; ok {
		return fmt.Errorf("static method %s.%s already registered", t, name)
	}
	statics[k] = fv
	return nil
}

func lookupStatic(t reflect.Type, name string) (reflect.Value, bool) {
	staticsMu.RLock()
	defer staticsMu.RUnlock()
	ret, ok := statics[staticKey{t, name}]
	return ret, ok
}

// Lookup returns the Method called name of type t.
//
// Lookup searches the method set of t, then the method set of *t if t
// is not a pointer or interface, then the static methods registered
// for t with [RegisterStatic]. Unexported methods are invisible to
// Lookup, register them as static methods to make them callable.
//
// Lookup returns a [*LookupError] wrapping [ErrMethodNotFound] if
// there is no such method, and a [TypeError] if the method cannot be
// invoked dynamically.
func Lookup(t reflect.Type, name string, opts ...LookupOption) (*Method, error) {
	if t == nil {
		return nil, &LookupError{"", name, ErrArgumentMissing}
	}
	cfg := lookupOptions(opts)

	decl, sig, fn, static, ok := findMethod(t, name)
	if !ok {
		return nil, &LookupError{t.String(), name, ErrMethodNotFound}
	}
	k := methodKey{decl, name, sig, cfg.callerMask}
	return methods.Get(k, func() (*Method, error) {
		m, err := newMethod(decl, name, sig, cfg.callerMask)
		if err != nil {
			Logger().Debug("method lookup failed",
				zap.Stringer("type", decl),
				zap.String("method", name),
				zap.Error(err))
			return nil, err
		}
		m.Static = static
		m.fn = fn
		return m, nil
	})
}

// findMethod finds the method called name of t. It returns the
// declaring type, the signature without receiver, and for static
// methods the function to call.
func findMethod(t reflect.Type, name string) (decl, sig reflect.Type, fn reflect.Value, static, ok bool) {
	if m, ok := t.MethodByName(name); ok {
		if t.Kind() == reflect.Interface {
			return t, m.Type, reflect.Value{}, false, true
		}
		return t, dropReceiver(m.Type), reflect.Value{}, false, true
	}
	if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface {
		pt := reflect.PointerTo(t)
		if m, ok := pt.MethodByName(name); ok {
			return pt, dropReceiver(m.Type), reflect.Value{}, false, true
		}
	}
	if fv, ok := lookupStatic(t, name); ok {
		return t, fv.Type(), fv, true, true
	}
	return nil, nil, reflect.Value{}, false, false
}

// dropReceiver returns the type of the method expression t, minus its
// first receiver parameter.
func dropReceiver(t reflect.Type) reflect.Type {
	in := make([]reflect.Type, 0, t.NumIn()-1)
	for i := 1; i < t.NumIn(); i++ {
		in = append(in, t.In(i))
	}
	out := make([]reflect.Type, 0, t.NumOut())
	for i := range t.NumOut() {
		out = append(out, t.Out(i))
	}
	return reflect.FuncOf(in, out, t.IsVariadic())
}

// LookupMethod is like [Lookup], but finds the method on the dynamic
// type of target.
func LookupMethod(target any, name string, opts ...LookupOption) (*Method, error) {
	if target == nil {
		return nil, &LookupError{"", name, ErrArgumentMissing}
	}
	return Lookup(reflect.TypeOf(target), name, opts...)
}

// NewFunc returns a static Method that calls the free function fn.
//
// Unlike [Lookup], NewFunc returns a distinct *Method on every call.
func NewFunc(name string, fn any, opts ...LookupOption) (*Method, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func || fv.IsNil() {
		return nil, typeErr(reflect.TypeOf(fn), "%s is not a function", name)
	}
	cfg := lookupOptions(opts)
	m, err := newMethod(nil, name, fv.Type(), cfg.callerMask)
	if err != nil {
		return nil, err
	}
	m.Static = true
	m.fn = fv
	return m, nil
}

var contextType = reflect.TypeFor[context.Context]()

func newMethod(decl reflect.Type, name string, sig reflect.Type, callerMask uint64) (*Method, error) {
	if sig.IsVariadic() {
		return nil, typeErr(sig, "variadic method %s cannot be invoked dynamically", name)
	}
	if callerMask>>sig.NumIn() != 0 {
		return nil, typeErr(sig, "caller parameter index out of range for %s", name)
	}

	ret := &Method{
		Type: decl,
		Name: name,
		sig:  sig,
	}
	for i := range sig.NumIn() {
		p := Param{Type: sig.In(i)}
		switch {
		case callerMask&(1<<i) != 0:
			p.Source = SourceCaller
		case p.Type == contextType:
			p.Source = SourceContext
		}
		ret.Params = append(ret.Params, p)
	}
	for i := range sig.NumOut() {
		ret.Results = append(ret.Results, sig.Out(i))
	}
	return ret, nil
}
