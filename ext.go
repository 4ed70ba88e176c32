package msgcall

import (
	"fmt"
)

// Extension sub-types.
const (
	ExtLocalFuncRef  = 10
	ExtRemoteFuncRef = 11
	ExtVector2       = 20
	ExtVector3       = 21
	ExtVector4       = 22
	ExtQuaternion    = 23
)

// An extDecoder reads the n byte payload of an extension value. The
// sub-type byte has already been consumed.
type extDecoder func(st *decodeState, n int) (any, error)

// extensions maps extension sub-types to their decoders. It is not
// modified after init, so concurrent decodes can read it freely.
var extensions = map[byte]extDecoder{
	ExtLocalFuncRef:  decodeLocalFuncRef,
	ExtRemoteFuncRef: decodeRemoteFuncRef,
	ExtVector2:       decodeFloats(2, func(f []float32) any { return Vector2{f[0], f[1]} }),
	ExtVector3:       decodeFloats(3, func(f []float32) any { return Vector3{f[0], f[1], f[2]} }),
	ExtVector4:       decodeFloats(4, func(f []float32) any { return Vector4{f[0], f[1], f[2], f[3]} }),
	ExtQuaternion:    decodeFloats(4, func(f []float32) any { return Quaternion{f[0], f[1], f[2], f[3]} }),
}

// ext decodes an extension value whose payload length n has already
// been read. start is the offset of the extension's tag.
func (st *decodeState) ext(start, n int) (any, error) {
	// n payload bytes, plus the sub-type byte.
	if err := st.Need(n + 1); err != nil {
		return nil, st.fail(start, err)
	}
	typ, err := st.Uint8()
	if err != nil {
		return nil, st.fail(start, err)
	}
	dec := extensions[typ]
	if dec == nil {
		return nil, st.fail(start, fmt.Errorf("%w %d", ErrUnsupportedExtension, typ))
	}
	ret, err := dec(st, n)
	if err != nil {
		return nil, st.fail(start, err)
	}
	return ret, nil
}

func decodeLocalFuncRef(st *decodeState, n int) (any, error) {
	name, err := st.String(n)
	if err != nil {
		return nil, err
	}
	return LocalFuncRef{name}, nil
}

// decodeRemoteFuncRef decodes a funcref whose locality depends on the
// decoder's origin. Without an origin, the reference is local. With
// one, the reference belongs to that origin, and is only honored if
// remote references are enabled. Otherwise it decodes as nil, so that
// callers that don't use remote references can still process the
// rest of the buffer.
func decodeRemoteFuncRef(st *decodeState, n int) (any, error) {
	name, err := st.String(n)
	if err != nil {
		return nil, err
	}
	origin, ok := st.opts.Origin.GetOK()
	if !ok {
		return LocalFuncRef{name}, nil
	}
	if !st.opts.RemoteFuncRefs {
		Logger().Debug("dropping remote funcref, remote funcrefs are disabled")
		return nil, nil
	}
	return RemoteFuncRef{name, origin}, nil
}

func decodeFloats(count int, mk func([]float32) any) extDecoder {
	return func(st *decodeState, n int) (any, error) {
		if n != 4*count {
			return nil, fmt.Errorf("%w: %d bytes for %d components", ErrExtensionLength, n, count)
		}
		var fs [4]float32
		for i := range count {
			f, err := st.Float32()
			if err != nil {
				return nil, err
			}
			fs[i] = f
		}
		return mk(fs[:count]), nil
	}
}
