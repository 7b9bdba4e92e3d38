package pktline

import (
	"bytes"
	"context"
	"io"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/sirupsen/logrus"
)

const (
	sidebandPack     = 1
	sidebandProgress = 2
	sidebandError    = 3
)

// Demux pulls side-band-tagged pkt-lines off a Reader, routing channel 1
// to the packfile stream and logging channels 2 and 3. It is the clone
// receive path's view of the wire described in §4.E.
type Demux struct {
	r   *Reader
	log *logrus.Logger
	raw bytes.Buffer
}

func NewDemux(r *Reader, log *logrus.Logger) *Demux {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Demux{r: r, log: log}
}

// Next returns the next chunk of packfile bytes, transparently skipping
// and logging progress/error lines. It returns io.EOF on flush.
func (d *Demux) Next(ctx context.Context) ([]byte, error) {
	for {
		payload, kind, err := d.r.ReadLine(ctx)
		if err != nil {
			return nil, err
		}
		switch kind {
		case LineFlush:
			return nil, io.EOF
		case LineDelim, LineResponseEnd:
			continue
		}
		if len(payload) == 0 {
			return nil, giterr.NewGitProtocolError("side-band: empty data line")
		}
		tag, body := payload[0], payload[1:]
		switch tag {
		case sidebandPack:
			d.raw.Write(body)
			return body, nil
		case sidebandProgress:
			d.log.Info(string(body))
		case sidebandError:
			d.log.Error(string(body))
		default:
			return nil, giterr.NewGitProtocolError("side-band: unknown channel tag %d", tag)
		}
	}
}

// Raw returns every packfile byte observed so far on channel 1.
func (d *Demux) Raw() []byte {
	return d.raw.Bytes()
}

var _ io.Reader = (*demuxReader)(nil)

// demuxReader adapts Demux to io.Reader so the packfile decoder can
// treat the side-band stream as a plain byte source, pulling another
// pkt-line whenever its internal buffer runs dry.
type demuxReader struct {
	d     *Demux
	ctx   context.Context
	buf   []byte
	atEOF bool
}

// NewPackfileStream returns an io.Reader over d's channel-1 bytes,
// reading ctx-bound pkt-lines lazily as the caller drains it.
func NewPackfileStream(ctx context.Context, d *Demux) io.Reader {
	return &demuxReader{d: d, ctx: ctx}
}

func (r *demuxReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.atEOF {
			return 0, io.EOF
		}
		chunk, err := r.d.Next(r.ctx)
		if err == io.EOF {
			r.atEOF = true
			continue
		}
		if err != nil {
			return 0, err
		}
		r.buf = chunk
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}
