// Package packfile implements the pack wire format: a "PACK" header
// followed by a count of zlib-compressed object records, and the delta
// instruction stream used to reconstruct ref-delta records against an
// already-known source object.
package packfile

import (
	"encoding/binary"
	"io"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/modules/store"
	"github.com/pinebranch/gitwire/modules/streamio"
)

const magic = "PACK"
const version = 2

// rawRecord is one decoded-but-unresolved record: a plain object ready
// to insert directly, or a ref-delta pending its source.
type rawRecord struct {
	typ    ObjType
	base   plumbing.Hash // only set for ObjRefDelta
	hash   plumbing.Hash // identity, once known (plain records only)
	otype  object.Type
	bytes  []byte // plain content, or raw delta instruction stream
}

// ReadInto decodes a packfile from r and inserts every resolvable
// object into dst, returning the total record count the header
// declared. RefDelta records are resolved against dst and against
// siblings within the same pack by iterating to a fixed point;
// an iteration that resolves nothing while deltas remain pending is
// reported as InvalidPackfile rather than looping forever.
func ReadInto(r io.Reader, dst *store.Store) (int, error) {
	br := streamio.GetBufioReader(r)
	defer streamio.PutBufioReader(br)

	var hdr [4]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return 0, giterr.NewInvalidPackfile("reading header: %v", err)
	}
	if string(hdr[:]) != magic {
		return 0, giterr.NewInvalidPackfile("bad magic %q", string(hdr[:]))
	}
	var verBuf, countBuf [4]byte
	if _, err := io.ReadFull(br, verBuf[:]); err != nil {
		return 0, giterr.NewInvalidPackfile("reading version: %v", err)
	}
	if binary.BigEndian.Uint32(verBuf[:]) != version {
		return 0, giterr.NewInvalidPackfile("unsupported pack version %d", binary.BigEndian.Uint32(verBuf[:]))
	}
	if _, err := io.ReadFull(br, countBuf[:]); err != nil {
		return 0, giterr.NewInvalidPackfile("reading object count: %v", err)
	}
	count := int(binary.BigEndian.Uint32(countBuf[:]))

	pending := make([]rawRecord, 0, count)

	for i := 0; i < count; i++ {
		typ, size, err := decodeObjHeader(br)
		if err != nil {
			return 0, giterr.NewInvalidPackfile("record %d: %v", i, err)
		}

		var base plumbing.Hash
		if typ == ObjRefDelta {
			var bb [plumbing.HASH_DIGEST_SIZE]byte
			if _, err := io.ReadFull(br, bb[:]); err != nil {
				return 0, giterr.NewInvalidPackfile("record %d: reading ref-delta base: %v", i, err)
			}
			base = plumbing.Hash(bb)
		}
		if typ == ObjOfsDelta {
			return 0, giterr.NewInvalidPackfile("record %d: offset-deltas are not supported", i)
		}

		zr, err := streamio.GetZlibReader(br)
		if err != nil {
			return 0, giterr.NewInvalidPackfile("record %d: opening zlib stream: %v", i, err)
		}
		grow := size
		if grow > 1<<20 {
			grow = 1 << 20
		}
		// Read one byte past the declared size: a well-formed record hits
		// the zlib stream's EOF there, which also drains the Adler-32
		// trailer from br so the next record's header parses at the right
		// offset.
		content, err := streamio.GrowReadMax(zr.Reader, int64(size)+1, int(grow))
		streamio.PutZlibReader(zr)
		if err != nil {
			return 0, giterr.NewInvalidPackfile("record %d: inflating: %v", i, err)
		}
		if uint64(len(content)) != size {
			return 0, giterr.NewInvalidPackfile("record %d: inflated to %d bytes, expected %d", i, len(content), size)
		}

		rec := rawRecord{typ: typ, base: base, bytes: content}
		if typ != ObjRefDelta {
			ot, err := objTypeOf(typ)
			if err != nil {
				return 0, giterr.NewInvalidPackfile("record %d: %v", i, err)
			}
			rec.otype = ot
			rec.hash = object.Identity(ot, content)
		}
		pending = append(pending, rec)
	}

	if err := resolve(pending, dst); err != nil {
		return 0, err
	}
	return count, nil
}

func objTypeOf(t ObjType) (object.Type, error) {
	switch t {
	case ObjCommit:
		return object.CommitType, nil
	case ObjTree:
		return object.TreeType, nil
	case ObjBlob:
		return object.BlobType, nil
	case ObjTag:
		return object.TagType, nil
	default:
		return 0, giterr.NewInvalidPackfile("unexpected object type tag %d", t)
	}
}

// resolve inserts every plain record immediately, then repeatedly walks
// the remaining ref-delta records, applying each whose base is now
// known (in dst or among already-resolved siblings), until a pass
// makes no progress.
func resolve(pending []rawRecord, dst *store.Store) error {
	resolved := make(map[plumbing.Hash][]byte)

	var deltas []rawRecord
	for _, rec := range pending {
		if rec.typ == ObjRefDelta {
			deltas = append(deltas, rec)
			continue
		}
		dst.Insert(rec.otype, rec.bytes, plumbing.ZeroHash)
		resolved[rec.hash] = rec.bytes
	}

	sourceOf := func(h plumbing.Hash) ([]byte, object.Type, bool) {
		if b, ok := resolved[h]; ok {
			if o, ok := dst.Get(h); ok {
				return b, o.Type, true
			}
		}
		if o, ok := dst.Get(h); ok {
			return o.Content, o.Type, true
		}
		return nil, 0, false
	}

	for len(deltas) > 0 {
		var remaining []rawRecord
		progressed := false

		for _, rec := range deltas {
			src, otype, ok := sourceOf(rec.base)
			if !ok {
				remaining = append(remaining, rec)
				continue
			}
			content, err := ApplyDelta(src, rec.bytes)
			if err != nil {
				return err
			}
			h := dst.Insert(otype, content, rec.base)
			resolved[h] = content
			progressed = true
		}

		if !progressed {
			return giterr.NewInvalidPackfile("%d ref-delta record(s) never resolved to a known base", len(remaining))
		}
		deltas = remaining
	}
	return nil
}
