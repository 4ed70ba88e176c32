package msgcall

import (
	"bytes"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
	"testing"

	"github.com/creachadair/mds/value"
	"github.com/google/go-cmp/cmp"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDecode(t *testing.T) {
	type testCase struct {
		name    string
		in      []byte
		want    any
		wantErr error
	}
	ok := func(name string, want any, in ...byte) testCase {
		return testCase{name, in, want, nil}
	}
	fail := func(name string, wantErr error, in ...byte) testCase {
		return testCase{name, in, nil, wantErr}
	}

	tests := []testCase{
		ok("nil", nil, 0xc0),
		ok("false", false, 0xc2),
		ok("true", true, 0xc3),

		ok("fixint zero", uint8(0), 0x00),
		ok("fixint max", uint8(127), 0x7f),
		ok("negative fixint -1", int8(-1), 0xff),
		ok("negative fixint -32", int8(-32), 0xe0),

		ok("u8", uint8(255), 0xcc, 0xff),
		ok("u16", uint16(0x1234), 0xcd, 0x12, 0x34),
		ok("u32", uint32(0x12345678), 0xce, 0x12, 0x34, 0x56, 0x78),
		ok("u64", uint64(0x1abbccdd12345678),
			0xcf,
			0x1a, 0xbb, 0xcc, 0xdd,
			0x12, 0x34, 0x56, 0x78),
		ok("i8", int8(-128), 0xd0, 0x80),
		ok("i8 positive", int8(5), 0xd0, 0x05),
		ok("i16", int16(-129), 0xd1, 0xff, 0x7f),
		ok("i32", int32(-256), 0xd2, 0xff, 0xff, 0xff, 0x00),
		ok("i64", int64(-1),
			0xd3,
			0xff, 0xff, 0xff, 0xff,
			0xff, 0xff, 0xff, 0xff),

		ok("f32", float32(1), 0xca, 0x3f, 0x80, 0x00, 0x00),
		ok("f64", math.Pi,
			0xcb,
			0x40, 0x09, 0x21, 0xfb,
			0x54, 0x44, 0x2d, 0x18),

		ok("fixstr", "abc", 0xa3, 'a', 'b', 'c'),
		ok("empty fixstr", "", 0xa0),
		ok("str8", "abc", 0xd9, 3, 'a', 'b', 'c'),
		ok("str16", "abc", 0xda, 0, 3, 'a', 'b', 'c'),
		ok("str32", "abc", 0xdb, 0, 0, 0, 3, 'a', 'b', 'c'),
		ok("invalid utf-8 str", "\xff", 0xa1, 0xff),

		ok("bin8", []byte{1, 2, 3}, 0xc4, 3, 1, 2, 3),
		ok("bin16", []byte{1, 2, 3}, 0xc5, 0, 3, 1, 2, 3),
		ok("bin32", []byte{1, 2, 3}, 0xc6, 0, 0, 0, 3, 1, 2, 3),
		ok("empty bin", []byte{}, 0xc4, 0),

		ok("empty fixarray", []any{}, 0x90),
		ok("fixarray", []any{uint8(1), "a", nil},
			0x93,
			0x01,
			0xa1, 'a',
			0xc0),
		ok("array16", []any{true, false}, 0xdc, 0, 2, 0xc3, 0xc2),
		ok("array32", []any{true}, 0xdd, 0, 0, 0, 1, 0xc3),
		ok("nested array", []any{[]any{[]any{}}}, 0x91, 0x91, 0x90),

		ok("empty fixmap", map[string]any{}, 0x80),
		ok("fixmap", map[string]any{"a": uint8(1), "b": []any{}},
			0x82,
			0xa1, 'a', 0x01,
			0xa1, 'b', 0x90),
		ok("map16", map[string]any{"a": nil}, 0xde, 0, 1, 0xa1, 'a', 0xc0),
		ok("map32", map[string]any{"a": nil}, 0xdf, 0, 0, 0, 1, 0xa1, 'a', 0xc0),
		ok("map repeated key", map[string]any{"a": uint8(2)},
			0x82,
			0xa1, 'a', 0x01,
			0xa1, 'a', 0x02),

		ok("local funcref", LocalFuncRef{"foo"},
			0xc7, 3, ExtLocalFuncRef, 'f', 'o', 'o'),
		ok("local funcref fixext", LocalFuncRef{"fooo"},
			0xd6, ExtLocalFuncRef, 'f', 'o', 'o', 'o'),
		ok("remote funcref without origin", LocalFuncRef{"foo"},
			0xc7, 3, ExtRemoteFuncRef, 'f', 'o', 'o'),
		ok("empty funcref", LocalFuncRef{""},
			0xc7, 0, ExtLocalFuncRef),
		ok("vector2", Vector2{1, 2},
			0xd7, ExtVector2,
			0x3f, 0x80, 0x00, 0x00,
			0x40, 0x00, 0x00, 0x00),
		ok("vector3", Vector3{1, 2, 3},
			0xc7, 12, ExtVector3,
			0x3f, 0x80, 0x00, 0x00,
			0x40, 0x00, 0x00, 0x00,
			0x40, 0x40, 0x00, 0x00),
		ok("vector4", Vector4{1, 2, 3, -1},
			0xd8, ExtVector4,
			0x3f, 0x80, 0x00, 0x00,
			0x40, 0x00, 0x00, 0x00,
			0x40, 0x40, 0x00, 0x00,
			0xbf, 0x80, 0x00, 0x00),
		ok("quaternion", Quaternion{0, 0, 0, 1},
			0xd8, ExtQuaternion,
			0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00,
			0x00, 0x00, 0x00, 0x00,
			0x3f, 0x80, 0x00, 0x00),
		ok("vector in array", []any{Vector2{0, 0}, uint8(1)},
			0x92,
			0xd7, ExtVector2, 0, 0, 0, 0, 0, 0, 0, 0,
			0x01),

		fail("empty input", io.ErrUnexpectedEOF),
		fail("never used tag", ErrInvalidTag, 0xc1),
		fail("short u16", io.ErrUnexpectedEOF, 0xcd, 0x01),
		fail("short f64", io.ErrUnexpectedEOF, 0xcb, 0, 0, 0),
		fail("short str8 length", io.ErrUnexpectedEOF, 0xd9),
		fail("short str8", io.ErrUnexpectedEOF, 0xd9, 5, 'a'),
		fail("short bin32", io.ErrUnexpectedEOF, 0xc6, 0, 0, 1, 0, 1),
		fail("short fixarray", io.ErrUnexpectedEOF, 0x92, 0x01),
		fail("huge array32", io.ErrUnexpectedEOF, 0xdd, 0xff, 0xff, 0xff, 0xff, 0x01),
		fail("huge map32", io.ErrUnexpectedEOF, 0xdf, 0xff, 0xff, 0xff, 0xff, 0xa0, 0xc0),
		fail("short map value", io.ErrUnexpectedEOF, 0x81, 0xa1, 'a'),
		fail("int key", ErrNonStringKey, 0x81, 0x01, 0x01),
		fail("nil key", ErrNonStringKey, 0x81, 0xc0, 0x01),
		fail("nested bad key", ErrNonStringKey, 0x91, 0x81, 0x90, 0x01),
		fail("unknown ext", ErrUnsupportedExtension, 0xd4, 99, 0x00),
		fail("short ext", io.ErrUnexpectedEOF, 0xc7, 4, ExtLocalFuncRef, 'f'),
		fail("ext missing sub-type", io.ErrUnexpectedEOF, 0xc7, 0),
		fail("vector2 too short", ErrExtensionLength,
			0xd6, ExtVector2, 0, 0, 0, 0),
		fail("vector3 too long", ErrExtensionLength,
			0xd8, ExtVector3,
			0, 0, 0, 0, 0, 0, 0, 0,
			0, 0, 0, 0, 0, 0, 0, 0),
		fail("quaternion too short", ErrExtensionLength,
			0xc7, 12, ExtQuaternion,
			0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0),
		fail("trailing data", ErrTrailingData, 0xc0, 0xc0),
		fail("trailing data after array", ErrTrailingData, 0x91, 0x01, 0x02),
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(tc.in, nil)
			if tc.wantErr != nil {
				if err == nil {
					t.Fatalf("Decode(% x) = %#v, want error %v", tc.in, got, tc.wantErr)
				}
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Decode(% x) got err %v, want %v", tc.in, err, tc.wantErr)
				}
				var de *DecodeError
				if !errors.As(err, &de) {
					t.Fatalf("Decode(% x) got err %T, want *DecodeError", tc.in, err)
				}
				if got != nil {
					t.Fatalf("Decode(% x) returned partial value %#v with error", tc.in, got)
				}
				if testing.Verbose() {
					t.Logf("Decode(% x) = err: %v", tc.in, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("Decode(% x) got err: %v", tc.in, err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Fatalf("Decode(% x) decoded incorrectly (-got+want):\n%s", tc.in, diff)
			}

			bs, err := Marshal(got)
			if err != nil {
				t.Fatalf("Marshal(%#v) got err: %v", got, err)
			}
			got2, err := Decode(bs, nil)
			if err != nil {
				t.Fatalf("Decode(Marshal(%#v)) got err: %v", got, err)
			}
			if diff := cmp.Diff(got2, tc.want); diff != "" {
				t.Fatalf("Decode(Marshal(%#v)) round trip changed value (-got+want):\n%s", got, diff)
			}
		})
	}
}

func TestDecodeErrorOffset(t *testing.T) {
	in := []byte{
		0x93,
		0x01,
		0xa1, 'a',
		0xc1,
	}
	_, err := Decode(in, nil)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("Decode(% x) got err %v, want *DecodeError", in, err)
	}
	if de.Offset != 4 {
		t.Errorf("DecodeError.Offset = %d, want 4", de.Offset)
	}
}

func TestDecodeTruncated(t *testing.T) {
	in := []byte{
		0x95,
		0xcd, 0x12, 0x34,
		0xa3, 'f', 'o', 'o',
		0x81, 0xa1, 'k', 0xc4, 2, 1, 2,
		0xc7, 12, ExtVector3,
		0x3f, 0x80, 0x00, 0x00,
		0x40, 0x00, 0x00, 0x00,
		0x40, 0x40, 0x00, 0x00,
		0xd3, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	}
	if _, err := Decode(in, nil); err != nil {
		t.Fatalf("Decode(full input) got err: %v", err)
	}
	for i := range len(in) {
		got, err := Decode(in[:i], nil)
		if !errors.Is(err, io.ErrUnexpectedEOF) {
			t.Errorf("Decode(in[:%d]) = %#v, %v, want io.ErrUnexpectedEOF", i, got, err)
		}
	}
}

func TestDecodeDepth(t *testing.T) {
	nested := func(depth int) []byte {
		ret := bytes.Repeat([]byte{0x91}, depth)
		return append(ret, 0xc0)
	}

	if _, err := Decode(nested(MaxDepth), nil); err != nil {
		t.Errorf("Decode(depth %d) got err: %v", MaxDepth, err)
	}
	if _, err := Decode(nested(MaxDepth+1), nil); !errors.Is(err, ErrTooDeep) {
		t.Errorf("Decode(depth %d) got err %v, want ErrTooDeep", MaxDepth+1, err)
	}

	maps := bytes.Repeat([]byte{0x81, 0xa0}, MaxDepth+1)
	maps = append(maps, 0xc0)
	if _, err := Decode(maps, nil); !errors.Is(err, ErrTooDeep) {
		t.Errorf("Decode(map depth %d) got err %v, want ErrTooDeep", MaxDepth+1, err)
	}
}

func TestDecodeDoesNotRetainInput(t *testing.T) {
	in := []byte{0x92, 0xa2, 'h', 'i', 0xc4, 2, 1, 2}
	got, err := Decode(in, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i := range in {
		in[i] = 0
	}
	want := []any{"hi", []byte{1, 2}}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("decoded value changed after input was modified (-got+want):\n%s", diff)
	}
}

func TestDecodeRemoteFuncRef(t *testing.T) {
	in := []byte{0xc7, 3, ExtRemoteFuncRef, 'f', 'o', 'o'}
	tests := []struct {
		name string
		opts *DecodeOptions
		want any
	}{
		{"nil options", nil, LocalFuncRef{"foo"}},
		{"no origin", &DecodeOptions{RemoteFuncRefs: true}, LocalFuncRef{"foo"}},
		{"origin, remote disabled", &DecodeOptions{Origin: value.Just("peer")}, nil},
		{"origin, remote enabled", &DecodeOptions{Origin: value.Just("peer"), RemoteFuncRefs: true}, RemoteFuncRef{"foo", "peer"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Decode(in, tc.opts)
			if err != nil {
				t.Fatalf("Decode got err: %v", err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Fatalf("Decode decoded incorrectly (-got+want):\n%s", diff)
			}
		})
	}

	// Sub-type 10 is always local.
	local := []byte{0xc7, 3, ExtLocalFuncRef, 'f', 'o', 'o'}
	got, err := Decode(local, &DecodeOptions{Origin: value.Just("peer"), RemoteFuncRefs: true})
	if err != nil {
		t.Fatal(err)
	}
	if got != (LocalFuncRef{"foo"}) {
		t.Fatalf("Decode(local funcref with origin) = %#v, want LocalFuncRef", got)
	}
}

func TestDecodeArgs(t *testing.T) {
	resolve := func(origin string) any { return "caller:" + origin }
	tests := []struct {
		name string
		in   []byte
		opts *DecodeOptions
		want []any
	}{
		{"array", []byte{0x92, 0x01, 0xa1, 'x'}, nil, []any{uint8(1), "x"}},
		{"empty array", []byte{0x90}, nil, []any{}},
		{"not an array", []byte{0x01}, nil, []any{}},
		{"nil", []byte{0xc0}, nil, []any{}},
		{"map", []byte{0x80}, &DecodeOptions{}, []any{}},
		{"extra slots", []byte{0x91, 0x01}, &DecodeOptions{ExtraSlots: 2}, []any{uint8(1), nil, nil}},
		{"extra slots not an array", []byte{0xc3}, &DecodeOptions{ExtraSlots: 1}, []any{nil}},
		{
			"caller with origin",
			[]byte{0x91, 0x01},
			&DecodeOptions{Origin: value.Just("peer"), ResolveCaller: resolve},
			[]any{uint8(1), "caller:peer"},
		},
		{
			"caller without origin",
			[]byte{0x91, 0x01},
			&DecodeOptions{ResolveCaller: resolve},
			[]any{uint8(1), nil},
		},
		{
			"caller after extra slots",
			[]byte{0x90},
			&DecodeOptions{Origin: value.Just("peer"), ExtraSlots: 1, ResolveCaller: resolve},
			[]any{nil, "caller:peer"},
		},
		{
			"remote funcref argument",
			[]byte{0x91, 0xc7, 1, ExtRemoteFuncRef, 'f'},
			&DecodeOptions{Origin: value.Just("peer"), RemoteFuncRefs: true},
			[]any{RemoteFuncRef{"f", "peer"}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeArgs(tc.in, tc.opts)
			if err != nil {
				t.Fatalf("DecodeArgs got err: %v", err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Fatalf("DecodeArgs decoded incorrectly (-got+want):\n%s", diff)
			}
		})
	}

	if _, err := DecodeArgs([]byte{0x92, 0x01}, &DecodeOptions{ExtraSlots: 1}); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("DecodeArgs(truncated) got err %v, want io.ErrUnexpectedEOF", err)
	}
}

// refEncode encodes a value with an independent MessagePack
// implementation.
func refEncode(t *testing.T, f func(*msgpack.Encoder) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := f(msgpack.NewEncoder(&buf)); err != nil {
		t.Fatalf("reference encoder failed: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeReferenceEncoder(t *testing.T) {
	tests := []struct {
		name string
		enc  func(*msgpack.Encoder) error
		want any
	}{
		{"nil", func(e *msgpack.Encoder) error { return e.EncodeNil() }, nil},
		{"bool", func(e *msgpack.Encoder) error { return e.EncodeBool(true) }, true},
		{"fixint", func(e *msgpack.Encoder) error { return e.EncodeUint(42) }, uint8(42)},
		{"u8", func(e *msgpack.Encoder) error { return e.EncodeUint8(200) }, uint8(200)},
		{"u16", func(e *msgpack.Encoder) error { return e.EncodeUint16(60000) }, uint16(60000)},
		{"u32", func(e *msgpack.Encoder) error { return e.EncodeUint32(4000000000) }, uint32(4000000000)},
		{"u64", func(e *msgpack.Encoder) error { return e.EncodeUint64(math.MaxUint64) }, uint64(math.MaxUint64)},
		{"f32", func(e *msgpack.Encoder) error { return e.EncodeFloat32(1.5) }, float32(1.5)},
		{"f64", func(e *msgpack.Encoder) error { return e.EncodeFloat64(math.E) }, math.E},
		{"string", func(e *msgpack.Encoder) error { return e.EncodeString("hello") }, "hello"},
		{"long string", func(e *msgpack.Encoder) error { return e.EncodeString(strings.Repeat("x", 300)) }, strings.Repeat("x", 300)},
		{"bytes", func(e *msgpack.Encoder) error { return e.EncodeBytes([]byte{1, 2, 3}) }, []byte{1, 2, 3}},
		{
			"array",
			func(e *msgpack.Encoder) error {
				if err := e.EncodeArrayLen(2); err != nil {
					return err
				}
				if err := e.EncodeString("a"); err != nil {
					return err
				}
				return e.EncodeInt8(-5)
			},
			[]any{"a", int8(-5)},
		},
		{
			"map",
			func(e *msgpack.Encoder) error {
				if err := e.EncodeMapLen(1); err != nil {
					return err
				}
				if err := e.EncodeString("k"); err != nil {
					return err
				}
				return e.EncodeBool(false)
			},
			map[string]any{"k": false},
		},
		{
			"vector3 ext",
			func(e *msgpack.Encoder) error {
				if err := e.EncodeExtHeader(ExtVector3, 12); err != nil {
					return err
				}
				for _, f := range []float32{1, 2, 3} {
					bs := []byte{0, 0, 0, 0}
					u := math.Float32bits(f)
					bs[0], bs[1], bs[2], bs[3] = byte(u>>24), byte(u>>16), byte(u>>8), byte(u)
					if _, err := e.Writer().Write(bs); err != nil {
						return err
					}
				}
				return nil
			},
			Vector3{1, 2, 3},
		},
		{
			"funcref ext",
			func(e *msgpack.Encoder) error {
				if err := e.EncodeExtHeader(ExtLocalFuncRef, 2); err != nil {
					return err
				}
				_, err := e.Writer().Write([]byte("fn"))
				return err
			},
			LocalFuncRef{"fn"},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := refEncode(t, tc.enc)
			got, err := Decode(in, nil)
			if err != nil {
				t.Fatalf("Decode(% x) got err: %v", in, err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Fatalf("Decode(% x) decoded incorrectly (-got+want):\n%s", in, diff)
			}
		})
	}
}

func TestDecodeNegativeIntegers(t *testing.T) {
	tests := []struct {
		name string
		enc  func(*msgpack.Encoder) error
		want any
	}{
		{"negative fixint", func(e *msgpack.Encoder) error { return e.EncodeInt(-1) }, int8(-1)},
		{"negative fixint min", func(e *msgpack.Encoder) error { return e.EncodeInt(-32) }, int8(-32)},
		{"shortest i8", func(e *msgpack.Encoder) error { return e.EncodeInt(-33) }, int8(-33)},
		{"shortest i16", func(e *msgpack.Encoder) error { return e.EncodeInt(-129) }, int16(-129)},
		{"shortest i32", func(e *msgpack.Encoder) error { return e.EncodeInt(-32769) }, int32(-32769)},
		{"shortest i64", func(e *msgpack.Encoder) error { return e.EncodeInt(math.MinInt32 - 1) }, int64(math.MinInt32 - 1)},
		{"i8 -1", func(e *msgpack.Encoder) error { return e.EncodeInt8(-1) }, int8(-1)},
		{"i8 min", func(e *msgpack.Encoder) error { return e.EncodeInt8(math.MinInt8) }, int8(math.MinInt8)},
		{"i16 -1", func(e *msgpack.Encoder) error { return e.EncodeInt16(-1) }, int16(-1)},
		{"i16 min", func(e *msgpack.Encoder) error { return e.EncodeInt16(math.MinInt16) }, int16(math.MinInt16)},
		{"i32 -1", func(e *msgpack.Encoder) error { return e.EncodeInt32(-1) }, int32(-1)},
		{"i32 min", func(e *msgpack.Encoder) error { return e.EncodeInt32(math.MinInt32) }, int32(math.MinInt32)},
		{"i64 -1", func(e *msgpack.Encoder) error { return e.EncodeInt64(-1) }, int64(-1)},
		{"i64 min", func(e *msgpack.Encoder) error { return e.EncodeInt64(math.MinInt64) }, int64(math.MinInt64)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := refEncode(t, tc.enc)
			got, err := Decode(in, nil)
			if err != nil {
				t.Fatalf("Decode(% x) got err: %v", in, err)
			}
			if diff := cmp.Diff(got, tc.want); diff != "" {
				t.Fatalf("Decode(% x) decoded incorrectly (-got+want):\n%s", in, diff)
			}
		})
	}
}

func TestDecodeContainerBoundaries(t *testing.T) {
	for _, n := range []int{0, 15, 16, 255, 256, 65535, 65536} {
		arr := make([]any, n)
		for i := range arr {
			arr[i] = uint8(i % 128)
		}
		in := refEncode(t, func(e *msgpack.Encoder) error {
			if err := e.EncodeArrayLen(n); err != nil {
				return err
			}
			for i := range n {
				if err := e.EncodeUint(uint64(i % 128)); err != nil {
					return err
				}
			}
			return nil
		})
		got, err := Decode(in, nil)
		if err != nil {
			t.Fatalf("Decode(array of %d) got err: %v", n, err)
		}
		if diff := cmp.Diff(got, arr); diff != "" {
			t.Fatalf("Decode(array of %d) decoded incorrectly (-got+want):\n%s", n, diff)
		}

		m := make(map[string]any, n)
		for i := range n {
			m["k"+strconv.Itoa(i)] = nil
		}
		bs, err := Marshal(m)
		if err != nil {
			t.Fatalf("Marshal(map of %d) got err: %v", len(m), err)
		}
		gotMap, err := Decode(bs, nil)
		if err != nil {
			t.Fatalf("Decode(map of %d) got err: %v", len(m), err)
		}
		if diff := cmp.Diff(gotMap, m); diff != "" {
			t.Fatalf("Decode(map of %d) decoded incorrectly (-got+want):\n%s", len(m), diff)
		}

		s := strings.Repeat("s", n)
		in = refEncode(t, func(e *msgpack.Encoder) error { return e.EncodeString(s) })
		gotStr, err := Decode(in, nil)
		if err != nil {
			t.Fatalf("Decode(string of %d) got err: %v", n, err)
		}
		if gotStr != s {
			t.Fatalf("Decode(string of %d) decoded a string of %d", n, len(gotStr.(string)))
		}
	}
}
