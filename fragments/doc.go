// Package fragments provides low-level encoding and decoding helpers
// to construct and parse MessagePack frames.
//
// The provided encoder and decoder are very low level, and do not
// encode any value semantics. [Decoder] is a bounds-checked cursor
// over a caller-owned byte slice, and [Encoder] appends tags and
// big-endian fields to a growing output slice. It is the caller's
// responsibility to produce and interpret valid MessagePack with
// these tools.
//
// You should not need to use this package at all, unless you are
// writing your own extension decoders or test fixtures.
package fragments
