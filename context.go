package msgcall

import (
	"context"
)

type callerContextKey struct{}

// WithCaller returns a context carrying caller, the identity of the
// remote party on whose behalf a call is being made.
//
// A [Thunk] uses the context's caller to fill caller parameters when
// the argument sequence's trailing caller slot is empty.
func WithCaller(ctx context.Context, caller any) context.Context {
	return context.WithValue(ctx, callerContextKey{}, caller)
}

// ContextCaller returns the caller carried by ctx, if any.
func ContextCaller(ctx context.Context) (any, bool) {
	if ctx == nil {
		return nil, false
	}
	v := ctx.Value(callerContextKey{})
	if v == nil {
		return nil, false
	}
	return v, true
}
