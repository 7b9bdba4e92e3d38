package pktline

import (
	"context"
	"fmt"
	"strings"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/pkg/transport"
	"github.com/sirupsen/logrus"
)

// LineKind distinguishes a data pkt-line from the three control lines.
type LineKind int

const (
	LineData LineKind = iota
	LineFlush
	LineDelim
	LineResponseEnd
)

// ErrChannelStopped is returned when the remote command has exited
// before delivering the expected line.
type ErrChannelStopped struct {
	Code int
}

func (e *ErrChannelStopped) Error() string {
	return fmt.Sprintf("pktline: remote command exited with code %d before flush", e.Code)
}

// Reader frames pkt-lines off a transport.Channel, polling it for more
// bytes as needed. It is not safe for concurrent use.
type Reader struct {
	ch  transport.Channel
	log *logrus.Logger
	buf []byte
}

// NewReader wraps ch in a pkt-line Reader. log receives side-band
// progress/error lines when the reader is used in demux mode; a nil
// logger discards them.
func NewReader(ch transport.Channel, log *logrus.Logger) *Reader {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Reader{ch: ch, log: log}
}

// fill ensures at least n bytes are buffered, polling the channel for
// more data, logging stderr lines, and erroring on premature exit.
func (r *Reader) fill(ctx context.Context, n int) error {
	for len(r.buf) < n {
		ev, err := r.ch.Poll(ctx)
		if err != nil {
			return err
		}
		switch ev.Kind {
		case transport.Data:
			r.buf = append(r.buf, ev.Payload...)
		case transport.Stderr:
			r.log.Info(string(ev.Payload))
		case transport.Stopped:
			if len(r.buf) < n {
				return &ErrChannelStopped{Code: ev.Code}
			}
		case transport.None:
			// transient timeout; keep polling
		}
	}
	return nil
}

func (r *Reader) take(n int) []byte {
	b := r.buf[:n]
	r.buf = r.buf[n:]
	return b
}

// ReadLine reads one pkt-line. For LineData lines, payload holds the
// line's content (without the length header). For control lines,
// payload is nil.
func (r *Reader) ReadLine(ctx context.Context) ([]byte, LineKind, error) {
	if err := r.fill(ctx, lenSize); err != nil {
		return nil, LineFlush, err
	}
	var hdr [lenSize]byte
	copy(hdr[:], r.take(lenSize))
	n, err := hexDecode(hdr)
	if err != nil {
		return nil, LineFlush, giterr.NewGitProtocolError("%v", err)
	}
	switch n {
	case 0:
		return nil, LineFlush, nil
	case 1:
		return nil, LineDelim, nil
	case 2:
		return nil, LineResponseEnd, nil
	case 3:
		return nil, LineFlush, giterr.NewGitProtocolError("%v", ErrInvalidLength)
	}
	if n > maxLine {
		return nil, LineFlush, giterr.NewGitProtocolError("%v", ErrTooLong)
	}
	payloadLen := n - lenSize
	if err := r.fill(ctx, payloadLen); err != nil {
		return nil, LineFlush, err
	}
	return r.take(payloadLen), LineData, nil
}

// ReadLineStr reads one data line and trims trailing whitespace. It
// returns ("", true, nil) on flush.
func (r *Reader) ReadLineStr(ctx context.Context) (string, bool, error) {
	payload, kind, err := r.ReadLine(ctx)
	if err != nil {
		return "", false, err
	}
	if kind != LineData {
		return "", true, nil
	}
	return strings.TrimRight(string(payload), " \t\r\n"), false, nil
}

// ReadUntilFlush reads lines into fn until a flush (or delimiter, when
// stopAtDelim is set) is observed.
func (r *Reader) ReadUntilFlush(ctx context.Context, stopAtDelim bool, fn func(line []byte) error) error {
	for {
		payload, kind, err := r.ReadLine(ctx)
		if err != nil {
			return err
		}
		switch kind {
		case LineFlush:
			return nil
		case LineDelim, LineResponseEnd:
			if stopAtDelim {
				return nil
			}
			continue
		default:
			if err := fn(payload); err != nil {
				return err
			}
		}
	}
}
