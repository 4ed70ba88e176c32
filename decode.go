package msgcall

import (
	"errors"
	"fmt"

	"github.com/creachadair/mds/value"
	"github.com/danderson/msgcall/fragments"
)

// MaxDepth is the maximum nesting depth of arrays and maps that
// [Decode] accepts.
const MaxDepth = 1024

// DecodeOptions configures decoding. A nil *DecodeOptions is valid,
// and is equivalent to a pointer to the zero DecodeOptions.
type DecodeOptions struct {
	// Origin identifies the remote party that produced the buffer,
	// if any. It determines whether funcrefs of sub-type 11 decode as
	// local or remote references, and is passed to ResolveCaller.
	Origin value.Maybe[string]
	// RemoteFuncRefs enables decoding of remote funcrefs. If false,
	// funcrefs that would be remote decode as nil.
	RemoteFuncRefs bool
	// ExtraSlots is the number of empty slots that [DecodeArgs]
	// appends to the argument sequence.
	ExtraSlots int
	// ResolveCaller, if non-nil, requests caller injection:
	// [DecodeArgs] appends one more trailing slot after ExtraSlots,
	// and fills it with ResolveCaller(origin) if Origin is present.
	ResolveCaller func(origin string) any
}

var noOptions DecodeOptions

// Decode decodes the single MessagePack value in bs.
//
// Decode returns one of the values described by [KindOf]:
//
// Positive fixints decode as uint8 and negative fixints as int8. The
// fixed-width integer forms decode to the Go integer type of the same
// signedness and width. float 32 and float 64 decode as float32 and
// float64.
//
// str values decode as string. The bytes are not validated as UTF-8.
// bin values decode as []byte.
//
// Arrays decode as []any. Maps decode as map[string]any, and every
// key must be a string. If a key repeats, the last value wins.
//
// Extension values decode according to their sub-type, see
// [ExtLocalFuncRef] and friends.
//
// Decode never retains bs. If bs holds anything other than exactly
// one value, or the value is malformed, Decode returns a
// [*DecodeError] and no value.
func Decode(bs []byte, opts *DecodeOptions) (any, error) {
	st := newDecodeState(bs, opts)
	ret, err := st.value()
	if err != nil {
		return nil, err
	}
	if n := st.Remaining(); n > 0 {
		return nil, st.fail(st.Offset(), fmt.Errorf("%w: %d bytes", ErrTrailingData, n))
	}
	return ret, nil
}

// DecodeArgs decodes bs as an argument sequence.
//
// The value in bs should be an array, whose elements become the
// arguments. Any other value decodes successfully as an empty
// argument sequence.
//
// The returned sequence has opts.ExtraSlots nil values appended, plus
// one trailing caller slot if opts.ResolveCaller is set.
func DecodeArgs(bs []byte, opts *DecodeOptions) ([]any, error) {
	v, err := Decode(bs, opts)
	if err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &noOptions
	}
	args, _ := v.([]any)

	extra := max(opts.ExtraSlots, 0)
	if opts.ResolveCaller != nil {
		extra++
	}
	if extra == 0 {
		if args == nil {
			args = []any{}
		}
		return args, nil
	}

	ret := make([]any, len(args)+extra)
	copy(ret, args)
	if opts.ResolveCaller != nil {
		if origin, ok := opts.Origin.GetOK(); ok {
			ret[len(ret)-1] = opts.ResolveCaller(origin)
		}
	}
	return ret, nil
}

// decodeState is the state of one call to Decode.
type decodeState struct {
	fragments.Decoder
	opts  *DecodeOptions
	depth int
}

func newDecodeState(bs []byte, opts *DecodeOptions) *decodeState {
	if opts == nil {
		opts = &noOptions
	}
	return &decodeState{
		Decoder: fragments.Decoder{
			Order: fragments.BigEndian,
			In:    bs,
		},
		opts: opts,
	}
}

// fail returns a DecodeError for the value at offset. Errors that are
// already DecodeErrors pass through unchanged, so that the innermost
// failing value is the one reported.
func (st *decodeState) fail(offset int, reason error) error {
	var de *DecodeError
	if errors.As(reason, &de) {
		return reason
	}
	return &DecodeError{offset, reason}
}

// value decodes one value.
func (st *decodeState) value() (any, error) {
	start := st.Offset()
	tag, err := st.Uint8()
	if err != nil {
		return nil, st.fail(start, err)
	}

	switch {
	case tag <= fragments.MaxPosFixint:
		return tag, nil
	case tag >= fragments.NegFixint:
		return int8(tag), nil
	case tag&0xf0 == fragments.FixMap:
		return st.mapN(start, int(tag&fragments.MaxFixMap))
	case tag&0xf0 == fragments.FixArray:
		return st.array(start, int(tag&fragments.MaxFixArray))
	case tag&0xe0 == fragments.FixStr:
		return st.str(start, int(tag&fragments.MaxFixStr))
	}

	switch tag {
	case fragments.Nil:
		return nil, nil
	case fragments.False:
		return false, nil
	case fragments.True:
		return true, nil
	case fragments.Bin8, fragments.Bin16, fragments.Bin32:
		n, err := st.Length(prefixWidth(tag-fragments.Bin8), 1)
		if err != nil {
			return nil, st.fail(start, err)
		}
		bs, err := st.Bytes(n)
		if err != nil {
			return nil, st.fail(start, err)
		}
		return bs, nil
	case fragments.Ext8, fragments.Ext16, fragments.Ext32:
		n, err := st.Length(prefixWidth(tag-fragments.Ext8), 1)
		if err != nil {
			return nil, st.fail(start, err)
		}
		return st.ext(start, n)
	case fragments.Float32:
		f, err := st.Float32()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return f, nil
	case fragments.Float64:
		f, err := st.Float64()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return f, nil
	case fragments.Uint8:
		u, err := st.Uint8()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return u, nil
	case fragments.Uint16:
		u, err := st.Uint16()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return u, nil
	case fragments.Uint32:
		u, err := st.Uint32()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return u, nil
	case fragments.Uint64:
		u, err := st.Uint64()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return u, nil
	case fragments.Int8:
		u, err := st.Uint8()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return int8(u), nil
	case fragments.Int16:
		u, err := st.Uint16()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return int16(u), nil
	case fragments.Int32:
		u, err := st.Uint32()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return int32(u), nil
	case fragments.Int64:
		u, err := st.Uint64()
		if err != nil {
			return nil, st.fail(start, err)
		}
		return int64(u), nil
	case fragments.FixExt1, fragments.FixExt2, fragments.FixExt4, fragments.FixExt8, fragments.FixExt16:
		return st.ext(start, 1<<(tag-fragments.FixExt1))
	case fragments.Str8, fragments.Str16, fragments.Str32:
		n, err := st.Length(prefixWidth(tag-fragments.Str8), 1)
		if err != nil {
			return nil, st.fail(start, err)
		}
		return st.str(start, n)
	case fragments.Array16, fragments.Array32:
		n, err := st.Length(prefixWidth(tag-fragments.Array16+1), 1)
		if err != nil {
			return nil, st.fail(start, err)
		}
		return st.array(start, n)
	case fragments.Map16, fragments.Map32:
		n, err := st.Length(prefixWidth(tag-fragments.Map16+1), 2)
		if err != nil {
			return nil, st.fail(start, err)
		}
		return st.mapN(start, n)
	}

	return nil, st.fail(start, fmt.Errorf("%w 0x%02x", ErrInvalidTag, tag))
}

// prefixWidth returns the byte width of the i-th length prefix form
// of a type: 1, 2 or 4.
func prefixWidth(i byte) int {
	return 1 << i
}

func (st *decodeState) str(start, n int) (any, error) {
	s, err := st.String(n)
	if err != nil {
		return nil, st.fail(start, err)
	}
	return s, nil
}

func (st *decodeState) enter(start int) error {
	st.depth++
	if st.depth > MaxDepth {
		return st.fail(start, ErrTooDeep)
	}
	return nil
}

func (st *decodeState) leave() {
	st.depth--
}

func (st *decodeState) array(start, n int) (any, error) {
	if err := st.enter(start); err != nil {
		return nil, err
	}
	defer st.leave()
	// Every element takes at least one byte, don't allocate for
	// elements that can't be there.
	if err := st.Need(n); err != nil {
		return nil, st.fail(start, err)
	}

	ret := make([]any, n)
	for i := range n {
		v, err := st.value()
		if err != nil {
			return nil, err
		}
		ret[i] = v
	}
	return ret, nil
}

func (st *decodeState) mapN(start, n int) (any, error) {
	if err := st.enter(start); err != nil {
		return nil, err
	}
	defer st.leave()
	if err := st.Need(2 * n); err != nil {
		return nil, st.fail(start, err)
	}

	ret := make(map[string]any, n)
	for range n {
		keyStart := st.Offset()
		k, err := st.value()
		if err != nil {
			return nil, err
		}
		ks, ok := k.(string)
		if !ok {
			return nil, st.fail(keyStart, fmt.Errorf("%w: got %s", ErrNonStringKey, KindOf(k)))
		}
		v, err := st.value()
		if err != nil {
			return nil, err
		}
		ret[ks] = v
	}
	return ret, nil
}
