package packfile

import (
	"bufio"
	"io"

	"github.com/pinebranch/gitwire/modules/giterr"
)

// ObjType is a packfile object record's type tag, distinct from
// object.Type in that it also carries the two delta kinds.
type ObjType int8

const (
	ObjCommit   ObjType = 1
	ObjTree     ObjType = 2
	ObjBlob     ObjType = 3
	ObjTag      ObjType = 4
	ObjOfsDelta ObjType = 6
	ObjRefDelta ObjType = 7
)

// maxVarintShift bounds the accumulator so continuation bytes cannot
// silently lose bits on a 64-bit word.
const maxVarintShift = 64

// decodeObjHeader reads a packfile object record's encoding/size
// varint: first byte packs a continuation bit, a 3-bit type, and the
// low 4 size bits; subsequent bytes each contribute 7 more size bits.
func decodeObjHeader(r *bufio.Reader) (ObjType, uint64, error) {
	b0, err := r.ReadByte()
	if err != nil {
		return 0, 0, err
	}
	typ := ObjType((b0 >> 4) & 0x7)
	size := uint64(b0 & 0x0f)
	shift := uint(4)
	cont := b0&0x80 != 0

	for cont {
		b, err := r.ReadByte()
		if err != nil {
			return 0, 0, err
		}
		v := uint64(b & 0x7f)
		if shift >= maxVarintShift || v<<shift>>shift != v {
			return 0, 0, giterr.NewInvalidPackfile("object size varint overflow")
		}
		size |= v << shift
		shift += 7
		cont = b&0x80 != 0
	}
	return typ, size, nil
}

// encodeObjHeader writes the encoding/size varint for the writer's
// side: first byte carries the type and the low 4 size bits;
// subsequent bytes carry 7 bits each, little-endian, continuation-coded.
func encodeObjHeader(w io.Writer, typ ObjType, size uint64) error {
	b0 := byte(typ<<4) | byte(size&0x0f)
	size >>= 4
	if size > 0 {
		b0 |= 0x80
	}
	if _, err := w.Write([]byte{b0}); err != nil {
		return err
	}
	for size > 0 {
		b := byte(size & 0x7f)
		size >>= 7
		if size > 0 {
			b |= 0x80
		}
		if _, err := w.Write([]byte{b}); err != nil {
			return err
		}
	}
	return nil
}

// decodeDeltaVarint reads a continuation-coded, 7-bit-per-byte varint
// as used at the head of a delta instruction stream (source-size and
// target-size), little-endian in byte order but big-endian in bit
// significance per byte (high bit of each byte feeds higher bits of
// the accumulator) — matching git's delta header encoding.
func decodeDeltaVarint(r *byteCursor) (uint64, error) {
	var size uint64
	var shift uint
	for {
		b, ok := r.next()
		if !ok {
			return 0, giterr.NewInvalidPackfile("delta: truncated size varint")
		}
		v := uint64(b & 0x7f)
		if shift >= maxVarintShift || v<<shift>>shift != v {
			return 0, giterr.NewInvalidPackfile("delta: size varint overflow")
		}
		size |= v << shift
		shift += 7
		if b&0x80 == 0 {
			return size, nil
		}
	}
}
