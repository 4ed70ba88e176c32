package fragments

// MessagePack type tags. Tags that cover a range (fixint, fixmap,
// fixarray, fixstr) name the first tag of the range.
const (
	PosFixint    = 0x00
	MaxPosFixint = 0x7f
	FixMap       = 0x80
	FixArray     = 0x90
	FixStr       = 0xa0
	Nil          = 0xc0
	NeverUsed    = 0xc1
	False        = 0xc2
	True         = 0xc3
	Bin8         = 0xc4
	Bin16        = 0xc5
	Bin32        = 0xc6
	Ext8         = 0xc7
	Ext16        = 0xc8
	Ext32        = 0xc9
	Float32      = 0xca
	Float64      = 0xcb
	Uint8        = 0xcc
	Uint16       = 0xcd
	Uint32       = 0xce
	Uint64       = 0xcf
	Int8         = 0xd0
	Int16        = 0xd1
	Int32        = 0xd2
	Int64        = 0xd3
	FixExt1      = 0xd4
	FixExt2      = 0xd5
	FixExt4      = 0xd6
	FixExt8      = 0xd7
	FixExt16     = 0xd8
	Str8         = 0xd9
	Str16        = 0xda
	Str32        = 0xdb
	Array16      = 0xdc
	Array32      = 0xdd
	Map16        = 0xde
	Map32        = 0xdf
	NegFixint    = 0xe0
)

// Maximum element counts of the inline container and string forms.
const (
	MaxFixMap   = 0x0f
	MaxFixArray = 0x0f
	MaxFixStr   = 0x1f
)
