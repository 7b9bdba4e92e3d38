package pktline

import (
	"fmt"

	"github.com/pinebranch/gitwire/pkg/transport"
)

// Line is one element of a WriteLines call: either a data payload (Str
// xor Raw set) or one of the control markers (Flush, Delim, ResponseEnd).
type Line struct {
	Kind LineKind
	Str  string
	Raw  []byte
}

// Str builds a text data line.
func Str(s string) Line { return Line{Kind: LineData, Str: s} }

// RawLine builds a binary data line.
func RawLine(b []byte) Line { return Line{Kind: LineData, Raw: b} }

var (
	Flush       = Line{Kind: LineFlush}
	Delim       = Line{Kind: LineDelim}
	ResponseEnd = Line{Kind: LineResponseEnd}
)

// Writer serializes pkt-lines onto a transport.Channel.
type Writer struct {
	ch transport.Channel
}

func NewWriter(ch transport.Channel) *Writer {
	return &Writer{ch: ch}
}

func (w *Writer) encode(payload []byte) []byte {
	n := lenSize + len(payload)
	out := make([]byte, 0, n)
	out = append(out, asciiHex16(n)...)
	out = append(out, payload...)
	return out
}

func (w *Writer) writeControl(marker []byte) error {
	_, err := w.ch.Write(marker)
	return err
}

// WriteLine writes a single data or control line.
func (w *Writer) WriteLine(l Line) error {
	switch l.Kind {
	case LineFlush:
		return w.writeControl(FlushPkt)
	case LineDelim:
		return w.writeControl(DelimPkt)
	case LineResponseEnd:
		return w.writeControl(ResponseEndPkt)
	case LineData:
		payload := l.Raw
		if l.Str != "" {
			payload = []byte(l.Str)
		}
		if len(payload) > MaxPayload {
			return fmt.Errorf("pktline: payload of %d bytes exceeds maximum", len(payload))
		}
		_, err := w.ch.Write(w.encode(payload))
		return err
	default:
		return fmt.Errorf("pktline: unknown line kind %d", l.Kind)
	}
}

// WriteLines writes each line in order, stopping at the first error.
func (w *Writer) WriteLines(lines ...Line) error {
	for _, l := range lines {
		if err := w.WriteLine(l); err != nil {
			return err
		}
	}
	return nil
}

// WriteRaw passes bytes straight through to the underlying channel,
// bypassing pkt-line framing entirely (used by the packfile writer's
// chunked flush).
func (w *Writer) WriteRaw(b []byte) (int, error) {
	return w.ch.Write(b)
}
