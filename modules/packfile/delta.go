package packfile

import (
	"github.com/pinebranch/gitwire/modules/giterr"
)

// byteCursor is a minimal forward-only cursor over a delta instruction
// stream, used by the varint reader and the opcode loop alike.
type byteCursor struct {
	buf []byte
	pos int
}

func (c *byteCursor) next() (byte, bool) {
	if c.pos >= len(c.buf) {
		return 0, false
	}
	b := c.buf[c.pos]
	c.pos++
	return b, true
}

func (c *byteCursor) remaining() int { return len(c.buf) - c.pos }

// ApplyDelta reconstructs a target object's content from a REF_DELTA or
// OFS_DELTA instruction stream applied against source. The stream opens
// with two varints (source size, target size), then a sequence of COPY
// (top bit set: up to 4 little-endian offset bytes, then up to 3
// little-endian size bytes, each present only if its corresponding bit
// is set in the opcode; a size field of zero means 0x10000) and INSERT
// (top bit clear, low 7 bits is the literal length, 0 is invalid)
// instructions.
func ApplyDelta(source, delta []byte) ([]byte, error) {
	c := &byteCursor{buf: delta}

	srcSize, err := decodeDeltaVarint(c)
	if err != nil {
		return nil, err
	}
	if srcSize != uint64(len(source)) {
		return nil, giterr.NewInvalidPackfile("delta source size %d does not match actual source length %d", srcSize, len(source))
	}
	targetSize, err := decodeDeltaVarint(c)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, targetSize)
	for c.remaining() > 0 {
		op, _ := c.next()
		switch {
		case op&0x80 != 0:
			var offset, size uint64
			for i := 0; i < 4; i++ {
				if op&(1<<i) != 0 {
					b, ok := c.next()
					if !ok {
						return nil, giterr.NewInvalidPackfile("delta: truncated copy offset")
					}
					offset |= uint64(b) << (8 * i)
				}
			}
			for i := 0; i < 3; i++ {
				if op&(1<<(4+i)) != 0 {
					b, ok := c.next()
					if !ok {
						return nil, giterr.NewInvalidPackfile("delta: truncated copy size")
					}
					size |= uint64(b) << (8 * i)
				}
			}
			if size == 0 {
				size = 0x10000
			}
			if offset+size > uint64(len(source)) {
				return nil, giterr.NewInvalidPackfile("delta: copy [%d,%d) exceeds source length %d", offset, offset+size, len(source))
			}
			out = append(out, source[offset:offset+size]...)

		case op != 0:
			n := int(op)
			if c.remaining() < n {
				return nil, giterr.NewInvalidPackfile("delta: truncated insert of %d bytes", n)
			}
			out = append(out, c.buf[c.pos:c.pos+n]...)
			c.pos += n

		default:
			return nil, giterr.NewInvalidPackfile("delta: opcode 0 is reserved")
		}
	}

	if uint64(len(out)) != targetSize {
		return nil, giterr.NewInvalidPackfile("delta: reconstructed length %d does not match target size %d", len(out), targetSize)
	}
	return out, nil
}
