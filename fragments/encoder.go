package fragments

import "math"

// An Encoder provides utilities to write MessagePack fragments to a
// byte slice.
//
// Header methods pick the shortest encoding that can represent the
// given length. Fixed-width scalar methods always write the tag and
// width they are named for.
type Encoder struct {
	// Order is the byte order to use when encoding multi-byte
	// values. If nil, BigEndian is used.
	Order ByteOrder
	// Out is the encoded output.
	Out []byte
}

func (e *Encoder) order() ByteOrder {
	if e.Order == nil {
		return BigEndian
	}
	return e.Order
}

// Write writes bs as-is to the output. It is the caller's
// responsibility to ensure correct framing.
func (e *Encoder) Write(bs []byte) {
	e.Out = append(e.Out, bs...)
}

// Uint8 writes a uint8, with no tag.
func (e *Encoder) Uint8(u8 uint8) {
	e.Out = append(e.Out, u8)
}

// Uint16 writes a uint16, with no tag.
func (e *Encoder) Uint16(u16 uint16) {
	e.Out = e.order().AppendUint16(e.Out, u16)
}

// Uint32 writes a uint32, with no tag.
func (e *Encoder) Uint32(u32 uint32) {
	e.Out = e.order().AppendUint32(e.Out, u32)
}

// Uint64 writes a uint64, with no tag.
func (e *Encoder) Uint64(u64 uint64) {
	e.Out = e.order().AppendUint64(e.Out, u64)
}

// Float32 writes an IEEE-754 single precision float, with no tag.
func (e *Encoder) Float32(f float32) {
	e.Uint32(math.Float32bits(f))
}

// Float64 writes an IEEE-754 double precision float, with no tag.
func (e *Encoder) Float64(f float64) {
	e.Uint64(math.Float64bits(f))
}

// Tag writes a single type tag byte.
func (e *Encoder) Tag(tag byte) {
	e.Out = append(e.Out, tag)
}

// Nil writes a nil value.
func (e *Encoder) Nil() {
	e.Tag(Nil)
}

// Bool writes a boolean value.
func (e *Encoder) Bool(b bool) {
	if b {
		e.Tag(True)
	} else {
		e.Tag(False)
	}
}

// header writes a variable-width length header. fix is the inline
// form's first tag, or 0 if the type has no inline form.
func (e *Encoder) header(n int, fix byte, maxFix int, t8, t16, t32 byte) {
	switch {
	case fix != 0 && n <= maxFix:
		e.Tag(fix | byte(n))
	case t8 != 0 && n <= math.MaxUint8:
		e.Tag(t8)
		e.Uint8(uint8(n))
	case n <= math.MaxUint16:
		e.Tag(t16)
		e.Uint16(uint16(n))
	default:
		e.Tag(t32)
		e.Uint32(uint32(n))
	}
}

// StringHeader writes the header of a string of n bytes.
func (e *Encoder) StringHeader(n int) {
	e.header(n, FixStr, MaxFixStr, Str8, Str16, Str32)
}

// String writes a string value.
func (e *Encoder) String(s string) {
	e.StringHeader(len(s))
	e.Out = append(e.Out, s...)
}

// BytesHeader writes the header of a byte array of n bytes.
func (e *Encoder) BytesHeader(n int) {
	e.header(n, 0, 0, Bin8, Bin16, Bin32)
}

// Bytes writes a byte array value.
func (e *Encoder) Bytes(bs []byte) {
	e.BytesHeader(len(bs))
	e.Out = append(e.Out, bs...)
}

// ArrayHeader writes the header of an array of n elements. The
// caller must write the n elements next.
func (e *Encoder) ArrayHeader(n int) {
	e.header(n, FixArray, MaxFixArray, 0, Array16, Array32)
}

// MapHeader writes the header of a map of n key/value pairs. The
// caller must write the 2*n keys and values next, alternating.
func (e *Encoder) MapHeader(n int) {
	e.header(n, FixMap, MaxFixMap, 0, Map16, Map32)
}

// ExtHeader writes the header of an extension value of sub-type typ
// carrying n payload bytes. The caller must write the payload next.
func (e *Encoder) ExtHeader(typ byte, n int) {
	switch n {
	case 1:
		e.Tag(FixExt1)
	case 2:
		e.Tag(FixExt2)
	case 4:
		e.Tag(FixExt4)
	case 8:
		e.Tag(FixExt8)
	case 16:
		e.Tag(FixExt16)
	default:
		e.header(n, 0, 0, Ext8, Ext16, Ext32)
	}
	e.Uint8(typ)
}

// Int8 writes an int8 in its fixed-width form.
func (e *Encoder) Int8(i int8) {
	e.Tag(Int8)
	e.Uint8(uint8(i))
}

// Int16 writes an int16 in its fixed-width form.
func (e *Encoder) Int16(i int16) {
	e.Tag(Int16)
	e.Uint16(uint16(i))
}

// Int32 writes an int32 in its fixed-width form.
func (e *Encoder) Int32(i int32) {
	e.Tag(Int32)
	e.Uint32(uint32(i))
}

// Int64 writes an int64 in its fixed-width form.
func (e *Encoder) Int64(i int64) {
	e.Tag(Int64)
	e.Uint64(uint64(i))
}

// TaggedUint8 writes a uint8 in its fixed-width form.
func (e *Encoder) TaggedUint8(u uint8) {
	e.Tag(Uint8)
	e.Uint8(u)
}

// TaggedUint16 writes a uint16 in its fixed-width form.
func (e *Encoder) TaggedUint16(u uint16) {
	e.Tag(Uint16)
	e.Uint16(u)
}

// TaggedUint32 writes a uint32 in its fixed-width form.
func (e *Encoder) TaggedUint32(u uint32) {
	e.Tag(Uint32)
	e.Uint32(u)
}

// TaggedUint64 writes a uint64 in its fixed-width form.
func (e *Encoder) TaggedUint64(u uint64) {
	e.Tag(Uint64)
	e.Uint64(u)
}

// TaggedFloat32 writes a tagged single precision float.
func (e *Encoder) TaggedFloat32(f float32) {
	e.Tag(Float32)
	e.Float32(f)
}

// TaggedFloat64 writes a tagged double precision float.
func (e *Encoder) TaggedFloat64(f float64) {
	e.Tag(Float64)
	e.Float64(f)
}
