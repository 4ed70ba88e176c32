package fragments

import (
	"fmt"
	"io"
	"math"
)

// A Decoder reads MessagePack fragments from a byte slice.
//
// A Decoder is a cursor: every read advances the cursor by the number
// of bytes consumed. Reads never go past the end of In, a read that
// would do so fails with a [*BoundsError] and leaves the cursor where
// it was.
type Decoder struct {
	// Order is the byte order to use when reading multi-byte
	// values. If nil, BigEndian is used.
	Order ByteOrder
	// In is the input to read. The Decoder does not modify In, but
	// callers must not modify it while decoding is in progress.
	In []byte

	// offset is the number of bytes consumed off the front of In so
	// far.
	offset int
}

// BoundsError is the error returned when a read would advance past
// the end of the input.
type BoundsError struct {
	// Offset is the cursor position at which the read was attempted.
	Offset int
	// Want is the number of bytes the read needed.
	Want int
	// Have is the number of bytes that remained.
	Have int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("reading %d bytes at offset %d: only %d bytes remaining", e.Want, e.Offset, e.Have)
}

func (e *BoundsError) Unwrap() error {
	return io.ErrUnexpectedEOF
}

func (d *Decoder) order() ByteOrder {
	if d.Order == nil {
		return BigEndian
	}
	return d.Order
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int { return d.offset }

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.In) - d.offset }

// Need checks that at least n bytes remain, without consuming
// anything.
func (d *Decoder) Need(n int) error {
	if n < 0 || n > d.Remaining() {
		return &BoundsError{d.offset, n, d.Remaining()}
	}
	return nil
}

// NeedUint64 is like [Decoder.Need], for lengths read off the wire
// that may not fit in an int.
func (d *Decoder) NeedUint64(n uint64) error {
	if n > uint64(d.Remaining()) {
		want := math.MaxInt
		if n <= math.MaxInt {
			want = int(n)
		}
		return &BoundsError{d.offset, want, d.Remaining()}
	}
	return nil
}

// Read reads n bytes, with no framing.
//
// The returned slice aliases In. Callers that keep the result beyond
// the lifetime of In must copy it, or use [Decoder.Bytes].
func (d *Decoder) Read(n int) ([]byte, error) {
	if err := d.Need(n); err != nil {
		return nil, err
	}
	ret := d.In[d.offset : d.offset+n : d.offset+n]
	d.offset += n
	return ret, nil
}

// Bytes reads n bytes into a newly allocated slice.
func (d *Decoder) Bytes(n int) ([]byte, error) {
	bs, err := d.Read(n)
	if err != nil {
		return nil, err
	}
	ret := make([]byte, n)
	copy(ret, bs)
	return ret, nil
}

// String reads n bytes as a string. The bytes are not validated as
// UTF-8.
func (d *Decoder) String(n int) (string, error) {
	bs, err := d.Read(n)
	if err != nil {
		return "", err
	}
	return string(bs), nil
}

// Uint8 reads a uint8.
func (d *Decoder) Uint8() (uint8, error) {
	bs, err := d.Read(1)
	if err != nil {
		return 0, err
	}
	return bs[0], nil
}

// Uint16 reads a uint16.
func (d *Decoder) Uint16() (uint16, error) {
	bs, err := d.Read(2)
	if err != nil {
		return 0, err
	}
	return d.order().Uint16(bs), nil
}

// Uint32 reads a uint32.
func (d *Decoder) Uint32() (uint32, error) {
	bs, err := d.Read(4)
	if err != nil {
		return 0, err
	}
	return d.order().Uint32(bs), nil
}

// Uint64 reads a uint64.
func (d *Decoder) Uint64() (uint64, error) {
	bs, err := d.Read(8)
	if err != nil {
		return 0, err
	}
	return d.order().Uint64(bs), nil
}

// Float32 reads an IEEE-754 single precision float.
func (d *Decoder) Float32() (float32, error) {
	u32, err := d.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u32), nil
}

// Float64 reads an IEEE-754 double precision float.
func (d *Decoder) Float64() (float64, error) {
	u64, err := d.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u64), nil
}

// Length reads an unsigned length prefix of the given width in bytes
// (1, 2 or 4), and checks that at least min*length bytes remain in
// the input to satisfy it.
func (d *Decoder) Length(width, min int) (int, error) {
	start := d.offset
	var n uint64
	switch width {
	case 1:
		u8, err := d.Uint8()
		if err != nil {
			return 0, err
		}
		n = uint64(u8)
	case 2:
		u16, err := d.Uint16()
		if err != nil {
			return 0, err
		}
		n = uint64(u16)
	case 4:
		u32, err := d.Uint32()
		if err != nil {
			return 0, err
		}
		n = uint64(u32)
	default:
		panic(fmt.Sprintf("invalid length prefix width %d", width))
	}
	if err := d.NeedUint64(n * uint64(min)); err != nil {
		d.offset = start
		return 0, err
	}
	return int(n), nil
}
