package msgcall

import (
	"context"
	"fmt"
	"reflect"
)

// stepKind is the operation a plan step performs to produce one
// argument of a call.
type stepKind uint8

const (
	// stepPass passes the positional argument unchanged.
	stepPass stepKind = iota
	// stepCoerce converts the positional argument to a primitive
	// type.
	stepCoerce
	// stepCast checks that the positional argument is assignable to
	// the parameter.
	stepCast
	// stepCaller loads the caller from the argument sequence's
	// trailing slot, or from the context.
	stepCaller
	// stepContext passes the call's context.
	stepContext
)

// step produces the value of one parameter.
type step struct {
	kind stepKind
	// param is the index of the parameter.
	param int
	// arg is the index of the positional argument consumed, or -1.
	arg int
	// typ is the parameter's declared type.
	typ reflect.Type
	// canon is the canonical primitive type of typ, for stepCoerce.
	canon  reflect.Type
	coerce coerceFunc
}

// plan is the precomputed recipe for calling a method with an
// argument sequence. Plans are immutable once built.
type plan struct {
	steps []step
	// minArgs is the minimum length of the argument sequence.
	minArgs int
	// hasErr is whether the method's last result is an error.
	hasErr bool
	// boxers box the method's results, excluding the trailing
	// error.
	boxers []boxFunc
}

func newPlan(m *Method, callerType reflect.Type) (*plan, error) {
	ret := &plan{}
	positional, hasCaller := 0, false
	for i, p := range m.Params {
		s := step{
			param: i,
			arg:   -1,
			typ:   p.Type,
		}
		switch p.Source {
		case SourceContext:
			s.kind = stepContext
		case SourceCaller:
			if callerType == nil || !callerType.AssignableTo(p.Type) {
				return nil, typeErr(p.Type, "incompatible injection target for parameter %d of %s (caller type %v)", i, m.Name, callerType)
			}
			s.kind = stepCaller
			hasCaller = true
		case SourceArgs:
			s.arg = positional
			positional++
			if canon, ok := primitiveType(p.Type); ok {
				s.kind = stepCoerce
				s.canon = canon
				s.coerce = coercions[canon]
			} else if p.Type == anyType {
				s.kind = stepPass
			} else {
				s.kind = stepCast
			}
		default:
			return nil, fmt.Errorf("unknown parameter source %v", p.Source)
		}
		ret.steps = append(ret.steps, s)
	}
	ret.minArgs = positional
	if hasCaller {
		ret.minArgs++
	}

	results := m.Results
	if n := len(results); n > 0 && results[n-1] == errorType {
		ret.hasErr = true
		results = results[:n-1]
	}
	for _, t := range results {
		b, err := boxerFor(t)
		if err != nil {
			return nil, err
		}
		ret.boxers = append(ret.boxers, b)
	}

	return ret, nil
}

// args returns the reflect.Values to call the planned method with.
func (p *plan) args(ctx context.Context, args []any) ([]reflect.Value, error) {
	if len(args) < p.minArgs {
		return nil, fmt.Errorf("%w: got %d, want at least %d", ErrTooFewArguments, len(args), p.minArgs)
	}
	ret := make([]reflect.Value, len(p.steps))
	for i := range p.steps {
		s := &p.steps[i]
		switch s.kind {
		case stepContext:
			ret[i] = reflect.ValueOf(&ctx).Elem()
		case stepCaller:
			ret[i] = s.caller(ctx, args[len(args)-1])
		case stepPass:
			v := args[s.arg]
			if v == nil {
				ret[i] = reflect.Zero(s.typ)
			} else {
				ret[i] = reflect.ValueOf(v)
			}
		case stepCoerce:
			v, err := s.coerceArg(args[s.arg])
			if err != nil {
				return nil, err
			}
			ret[i] = v
		case stepCast:
			v, err := s.castArg(args[s.arg])
			if err != nil {
				return nil, err
			}
			ret[i] = v
		}
	}
	return ret, nil
}

// caller returns the caller parameter value. A tail that doesn't fit
// the parameter yields the zero value.
func (s *step) caller(ctx context.Context, tail any) reflect.Value {
	if tail == nil {
		tail, _ = ContextCaller(ctx)
	}
	if tail == nil {
		return reflect.Zero(s.typ)
	}
	v := reflect.ValueOf(tail)
	if !v.Type().AssignableTo(s.typ) {
		debugf("caller of type %s does not fit parameter %d (%s)", v.Type(), s.param, s.typ)
		return reflect.Zero(s.typ)
	}
	return v
}

func (s *step) coerceArg(arg any) (reflect.Value, error) {
	if arg != nil && reflect.TypeOf(arg) == s.typ {
		return reflect.ValueOf(arg), nil
	}
	v, err := s.coerce(arg)
	if err != nil {
		return reflect.Value{}, &CoercionError{
			Param:  s.param,
			Arg:    s.arg,
			From:   typeName(arg),
			To:     s.typ.String(),
			Reason: err,
		}
	}
	if s.canon != s.typ {
		v = v.Convert(s.typ)
	}
	return v, nil
}

func (s *step) castArg(arg any) (reflect.Value, error) {
	if arg == nil {
		if nilableKinds.Has(s.typ.Kind()) {
			return reflect.Zero(s.typ), nil
		}
	} else {
		v := reflect.ValueOf(arg)
		if v.Type().AssignableTo(s.typ) {
			return v, nil
		}
		if s.typ.Kind() == reflect.String && v.Kind() == reflect.String {
			return v.Convert(s.typ), nil
		}
	}
	return reflect.Value{}, &CastError{
		Param: s.param,
		Arg:   s.arg,
		From:  typeName(arg),
		To:    s.typ.String(),
	}
}

// results converts the results of calling the planned method into
// the thunk's return values.
func (p *plan) results(out []reflect.Value) (any, error) {
	if p.hasErr {
		errv := out[len(out)-1]
		if !errv.IsNil() {
			return nil, errv.Interface().(error)
		}
		out = out[:len(out)-1]
	}

	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return p.boxers[0](out[0])
	}
	ret := make([]any, len(out))
	for i, v := range out {
		bv, err := p.boxers[i](v)
		if err != nil {
			return nil, fmt.Errorf("boxing result %d: %w", i, err)
		}
		ret[i] = bv
	}
	return ret, nil
}
