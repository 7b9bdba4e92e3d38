package streamio

import (
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

var zlibWriter = sync.Pool{
	New: func() any {
		return zlib.NewWriter(io.Discard)
	},
}

// GetZlibWriter returns a *zlib.Writer managed by a sync.Pool, reset to
// write compressed output to w.
//
// After use, the writer must be Close()d by the caller (to flush the
// trailing block) before being returned to the pool with PutZlibWriter.
func GetZlibWriter(w io.Writer) *zlib.Writer {
	z := zlibWriter.Get().(*zlib.Writer)
	z.Reset(w)
	return z
}

// PutZlibWriter puts w back into its sync.Pool.
func PutZlibWriter(w *zlib.Writer) {
	zlibWriter.Put(w)
}

// ZlibReader wraps a pooled zlib reader; Reader is the decompressing
// io.Reader to read from.
type ZlibReader struct {
	Reader io.ReadCloser
}

var zlibReader = sync.Pool{
	New: func() any {
		return new(ZlibReader)
	},
}

// GetZlibReader returns a *ZlibReader managed by a sync.Pool, initialized
// to decompress r.
func GetZlibReader(r io.Reader) (*ZlibReader, error) {
	zr, err := zlib.NewReader(r)
	if err != nil {
		return nil, err
	}
	z := zlibReader.Get().(*ZlibReader)
	z.Reader = zr
	return z, nil
}

// PutZlibReader closes the underlying zlib reader and puts z back into
// its sync.Pool.
func PutZlibReader(z *ZlibReader) {
	if z == nil {
		return
	}
	if z.Reader != nil {
		_ = z.Reader.Close()
		z.Reader = nil
	}
	zlibReader.Put(z)
}
