package fragments

import (
	"encoding/binary"

	"golang.org/x/sys/cpu"
)

// ByteOrder is a byte order that can also report whether it matches
// the byte order of the host CPU.
type ByteOrder interface {
	byteOrder
	// Native reports whether reading a multi-byte field in this
	// order is a plain load on the host, as opposed to a load
	// followed by a byte swap.
	Native() bool
}

type byteOrder interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

type wrapStd struct {
	byteOrder
}

func (w wrapStd) Native() bool {
	switch w.byteOrder {
	case binary.BigEndian:
		return cpu.IsBigEndian
	case binary.LittleEndian:
		return !cpu.IsBigEndian
	case binary.NativeEndian:
		return true
	default:
		panic("unknown ByteOrder, how did you manage to make one of those?")
	}
}

var (
	// BigEndian is the byte order of every multi-byte field in a
	// MessagePack frame.
	BigEndian    = wrapStd{binary.BigEndian}
	LittleEndian = wrapStd{binary.LittleEndian}
	NativeEndian = wrapStd{binary.NativeEndian}
)

// HostOrder returns the byte order of the host CPU.
func HostOrder() ByteOrder {
	if cpu.IsBigEndian {
		return BigEndian
	}
	return LittleEndian
}
