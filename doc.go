// Package msgcall decodes MessagePack argument buffers and uses them
// to call Go methods.
//
// Decoding is done by [Decode] and [DecodeArgs], which produce
// untyped Values: nil, booleans, sized integers, floats, strings,
// byte slices, []any arrays and map[string]any maps, plus the
// extension types [LocalFuncRef], [RemoteFuncRef], [Vector2],
// [Vector3], [Vector4] and [Quaternion]. [Marshal] is the inverse of
// Decode.
//
// Calling is done by Thunks. A [Method] describes a callable, found
// with [Lookup], [LookupMethod] or [NewFunc]. An [Invoker] binds a
// Method to a target and builds a [Thunk], which takes an argument
// sequence, converts each argument to the type of its parameter,
// calls the method and converts its result back into a Value with
// [Box]. Thunks are built once per target and method, and cached.
//
// Methods can declare parameters that are not filled from the
// argument sequence: context.Context parameters receive the call's
// context, and parameters marked with [FromCaller] receive the
// identity of the remote caller. [DecodeArgs] reserves a trailing
// slot in the argument sequence for the caller when
// [DecodeOptions.ResolveCaller] is set.
package msgcall
