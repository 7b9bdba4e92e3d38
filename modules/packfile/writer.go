package packfile

import (
	"crypto/sha1"
	"encoding/binary"
	"hash"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/pktline"
	"github.com/pinebranch/gitwire/modules/streamio"
)

// flushThreshold is the buffered-chunk size at which a Writer flushes
// accumulated output through the underlying pkt-line raw channel.
const flushThreshold = 64000

// Writer emits a packfile. Per the push path's scope, it only ever
// writes plain object records — thin-pack base objects and newly
// committed objects alike are written in full, never as deltas.
type Writer struct {
	out    *pktline.Writer
	sum    hash.Hash
	buf    []byte
	count  int
	header bool
}

// NewWriter returns a Writer that frames its chunks as raw pkt-line
// payloads on out.
func NewWriter(out *pktline.Writer) *Writer {
	return &Writer{out: out, sum: sha1.New()}
}

func (w *Writer) write(p []byte) error {
	w.sum.Write(p)
	w.buf = append(w.buf, p...)
	if len(w.buf) >= flushThreshold {
		return w.flush()
	}
	return nil
}

func (w *Writer) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.out.WriteRaw(w.buf); err != nil {
		return err
	}
	w.buf = w.buf[:0]
	return nil
}

// WriteHeader emits the "PACK" magic, version 2, and the declared
// object count. It must be called exactly once, before any WriteObject
// call, since the count cannot be revised afterward.
func (w *Writer) WriteHeader(count int) error {
	if w.header {
		return giterr.NewInvalidPackfile("pack header already written")
	}
	var b [12]byte
	copy(b[0:4], magic)
	binary.BigEndian.PutUint32(b[4:8], version)
	binary.BigEndian.PutUint32(b[8:12], uint32(count))
	w.header = true
	return w.write(b[:])
}

// WriteObject emits one plain object record: its encoding/size varint
// header followed by the zlib-compressed content.
func (w *Writer) WriteObject(t object.Type, content []byte) error {
	if !w.header {
		return giterr.NewInvalidPackfile("pack header not written")
	}
	typ, err := packObjType(t)
	if err != nil {
		return err
	}

	rec := streamio.GetBytesBuffer()
	defer streamio.PutBytesBuffer(rec)

	if err := encodeObjHeader(rec, typ, uint64(len(content))); err != nil {
		return err
	}

	zw := streamio.GetZlibWriter(rec)
	if _, err := zw.Write(content); err != nil {
		streamio.PutZlibWriter(zw)
		return err
	}
	if err := zw.Close(); err != nil {
		streamio.PutZlibWriter(zw)
		return err
	}
	streamio.PutZlibWriter(zw)

	w.count++
	return w.write(rec.Bytes())
}

// Finish flushes any buffered output and appends the running SHA-1
// trailer over everything written, per the pack trailer convention.
func (w *Writer) Finish() error {
	if err := w.flush(); err != nil {
		return err
	}
	sum := w.sum.Sum(nil)
	_, err := w.out.WriteRaw(sum)
	return err
}

func packObjType(t object.Type) (ObjType, error) {
	switch t {
	case object.CommitType:
		return ObjCommit, nil
	case object.TreeType:
		return ObjTree, nil
	case object.BlobType:
		return ObjBlob, nil
	case object.TagType:
		return ObjTag, nil
	default:
		return 0, giterr.NewInvalidPackfile("cannot pack object of unknown type")
	}
}
