package repo

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/packfile"
	"github.com/pinebranch/gitwire/modules/pktline"
	"github.com/pinebranch/gitwire/modules/plumbing/filemode"
	"github.com/pinebranch/gitwire/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChannel replays a fixed sequence of Data events, recording
// everything the caller writes for later assertions, approximating a
// recorded upload-pack/receive-pack exchange.
type scriptedChannel struct {
	written bytes.Buffer
	queue   [][]byte
	idx     int
}

func (s *scriptedChannel) Write(p []byte) (int, error) { return s.written.Write(p) }

func (s *scriptedChannel) Poll(ctx context.Context) (transport.Event, error) {
	if s.idx >= len(s.queue) {
		return transport.Event{Kind: transport.Stopped, Code: 0}, nil
	}
	chunk := s.queue[s.idx]
	s.idx++
	return transport.Event{Kind: transport.Data, Payload: chunk}, nil
}

func (s *scriptedChannel) SetReadTimeout(time.Duration) {}
func (s *scriptedChannel) Close() error                 { return nil }

type scriptedDialer struct{ ch *scriptedChannel }

func (d *scriptedDialer) Dial(ctx context.Context, endpoint *transport.Endpoint, op transport.Operation) (transport.Channel, error) {
	return d.ch, nil
}

func pktLine(payload string) []byte {
	n := 4 + len(payload)
	return append([]byte(asciiHex16ForTest(n)), payload...)
}

func asciiHex16ForTest(n int) string {
	const hex = "0123456789abcdef"
	b := [4]byte{}
	for i := 3; i >= 0; i-- {
		b[i] = hex[n&0xf]
		n >>= 4
	}
	return string(b[:])
}

var flushPkt = []byte("0000")

// sidebandPackLines frames raw pack bytes as channel-1 side-band
// pkt-lines, chunked conservatively under the 65516-byte payload cap.
func sidebandPackLines(pack []byte) []byte {
	var out []byte
	const chunk = 4096
	for len(pack) > 0 {
		n := chunk
		if n > len(pack) {
			n = len(pack)
		}
		payload := append([]byte{0x01}, pack[:n]...)
		out = append(out, pktLineRaw(payload)...)
		pack = pack[n:]
	}
	out = append(out, flushPkt...)
	return out
}

func pktLineRaw(payload []byte) []byte {
	n := 4 + len(payload)
	out := append([]byte(asciiHex16ForTest(n)), payload...)
	return out
}

// buildTestPack writes a commit, its tree, and two blobs as a plain
// (delta-free) packfile and returns the raw bytes plus the hashes
// needed to assert on the resulting repository state.
func buildTestPack(t *testing.T) (pack []byte, commitHash, treeHash string) {
	t.Helper()
	ch := &scriptedChannel{}
	pw := packfile.NewWriter(pktline.NewWriter(ch))

	blobA := []byte("hello")
	blobB := []byte("world")
	aHash := object.Identity(object.BlobType, blobA)
	bHash := object.Identity(object.BlobType, blobB)

	dir := object.NewDirectory()
	dir.Set("a.txt", aHash, filemode.RegularFile)
	dir.Set("b.txt", bHash, filemode.RegularFile)
	treeContent := dir.Encode()
	tHash := object.Identity(object.TreeType, treeContent)

	c := &object.Commit{
		Tree:      tHash,
		Author:    object.Signature{Name: "N", Email: "e", Timestamp: 0, Timezone: "+0000"},
		Committer: object.Signature{Name: "N", Email: "e", Timestamp: 0, Timezone: "+0000"},
		Message:   "m\n",
	}
	commitContent, err := c.Encode()
	require.NoError(t, err)
	cHash := object.Identity(object.CommitType, commitContent)

	require.NoError(t, pw.WriteHeader(4))
	require.NoError(t, pw.WriteObject(object.BlobType, blobA))
	require.NoError(t, pw.WriteObject(object.BlobType, blobB))
	require.NoError(t, pw.WriteObject(object.TreeType, treeContent))
	require.NoError(t, pw.WriteObject(object.CommitType, commitContent))
	require.NoError(t, pw.Finish())

	return ch.written.Bytes(), cHash.String(), tHash.String()
}

func TestCloneHappyPathByRawHash(t *testing.T) {
	pack, commitHash, treeHash := buildTestPack(t)

	var script [][]byte
	script = append(script, pktLine("version 2\n"), pktLine("fetch=shallow\n"), flushPkt)
	script = append(script, pktLine("packfile\n"))
	script = append(script, sidebandPackLines(pack))

	ch := &scriptedChannel{queue: script}
	dialer := &scriptedDialer{ch: ch}
	endpoint := &transport.Endpoint{Host: "example.test", Path: "/repo.git"}

	r := New(nil)
	err := r.Clone(context.Background(), dialer, endpoint, RefHash(commitHash), CloneOptions{})
	require.NoError(t, err)

	assert.Equal(t, commitHash, r.Head().String())
	assert.Equal(t, commitHash, r.UpstreamHead().String())
	assert.Equal(t, treeHash, r.Root().String())
	assert.True(t, r.Objects().Has(r.Head()))
}

func TestCloneRejectsDirtyWorkspace(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.StageFile("a.txt", []byte("x"), filemode.RegularFile))

	dialer := &scriptedDialer{ch: &scriptedChannel{}}
	endpoint := &transport.Endpoint{Host: "example.test", Path: "/repo.git"}
	err := r.Clone(context.Background(), dialer, endpoint, RefHEAD(), CloneOptions{})
	require.Error(t, err)
}

func TestCloneBranchNotAdvertisedFailsNoSuchReference(t *testing.T) {
	var script [][]byte
	script = append(script, pktLine("version 2\n"), pktLine("fetch=shallow\n"), flushPkt)
	script = append(script, flushPkt) // ls-refs response: no matching ref

	ch := &scriptedChannel{queue: script}
	dialer := &scriptedDialer{ch: ch}
	endpoint := &transport.Endpoint{Host: "example.test", Path: "/repo.git"}

	r := New(nil)
	err := r.Clone(context.Background(), dialer, endpoint, RefBranch("no-such"), CloneOptions{})
	require.Error(t, err)
}

func TestCloneRejectsMalformedBranchName(t *testing.T) {
	var script [][]byte
	script = append(script, pktLine("version 2\n"), pktLine("fetch=shallow\n"), flushPkt)

	ch := &scriptedChannel{queue: script}
	dialer := &scriptedDialer{ch: ch}
	endpoint := &transport.Endpoint{Host: "example.test", Path: "/repo.git"}

	r := New(nil)
	err := r.Clone(context.Background(), dialer, endpoint, RefBranch("bad..name"), CloneOptions{})
	require.Error(t, err)
	assert.NotContains(t, ch.written.String(), "command=ls-refs")
}

func TestCloneDeepenWithoutShallowFailsUnsupported(t *testing.T) {
	var script [][]byte
	script = append(script, pktLine("version 2\n"), pktLine("fetch=ref-in-want\n"), flushPkt)

	ch := &scriptedChannel{queue: script}
	dialer := &scriptedDialer{ch: ch}
	endpoint := &transport.Endpoint{Host: "example.test", Path: "/repo.git"}

	r := New(nil)
	err := r.Clone(context.Background(), dialer, endpoint, RefHash("0123456789012345678901234567890123456789"), CloneOptions{Depth: 1})
	require.Error(t, err)
	assert.NotContains(t, ch.written.String(), "command=fetch")
}
