package repo

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/packfile"
	"github.com/pinebranch/gitwire/modules/pktline"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/pkg/transport"
)

// readTimeout bounds each poll on the transport so a misbehaving
// remote cannot wedge the caller; it is not a deadline on the whole
// operation, only a liveness device for the framing layer (§5).
const readTimeout = time.Second

// CloneOptions configures Clone.
type CloneOptions struct {
	// Depth requests a shallow history of the given depth. Zero means
	// a full fetch.
	Depth int
}

// Clone opens an authenticated channel to git-upload-pack at endpoint,
// negotiates protocol v2, resolves ref to a commit hash, fetches it,
// and installs the resulting tree as the repository's root. It fails
// DirtyWorkspace if the repository already holds unsynced state.
func (r *Repository) Clone(ctx context.Context, dialer transport.Dialer, endpoint *transport.Endpoint, ref Reference, opts CloneOptions) error {
	if !r.isClean() {
		return giterr.NewDirtyWorkspace()
	}

	ep := *endpoint
	if ep.ExtraEnv == nil {
		ep.ExtraEnv = map[string]string{}
	} else {
		clone := make(map[string]string, len(ep.ExtraEnv)+1)
		for k, v := range ep.ExtraEnv {
			clone[k] = v
		}
		ep.ExtraEnv = clone
	}
	ep.ExtraEnv["GIT_PROTOCOL"] = "version=2"

	ch, err := dialer.Dial(ctx, &ep, transport.UploadPack)
	if err != nil {
		return giterr.NewSshError(err)
	}
	defer ch.Close()
	ch.SetReadTimeout(readTimeout)

	pr := pktline.NewReader(ch, r.log)
	pw := pktline.NewWriter(ch)

	caps, err := readCapabilities(ctx, pr)
	if err != nil {
		return err
	}

	wantHash, err := r.resolveReference(ctx, pr, pw, ref)
	if err != nil {
		return err
	}

	if opts.Depth > 0 {
		_, shallow := caps["shallow"]
		for _, feature := range strings.Fields(caps["fetch"]) {
			if feature == "shallow" {
				shallow = true
			}
		}
		if !shallow {
			return giterr.NewUnsupportedByRemote("shallow")
		}
	}

	if err := sendFetch(pw, wantHash, opts.Depth); err != nil {
		return err
	}

	if err := skipToPackfileMarker(ctx, pr); err != nil {
		return err
	}

	demux := pktline.NewDemux(pr, r.log)
	stream := pktline.NewPackfileStream(ctx, demux)
	if _, err := packfile.ReadInto(stream, r.objects); err != nil {
		return err
	}

	tree, ok := r.treeOf(wantHash)
	if !ok {
		return giterr.NewMissingObject(wantHash.String())
	}

	r.head = wantHash
	r.upstreamHead = wantHash
	r.root = tree
	r.directories = make(map[plumbing.Hash]*object.Directory)
	return nil
}

// readCapabilities reads the server's capability advertisement lines
// until flush, returning each capability name mapped to its value (the
// text after '=', or "" for a bare capability).
func readCapabilities(ctx context.Context, pr *pktline.Reader) (map[string]string, error) {
	caps := make(map[string]string)
	err := pr.ReadUntilFlush(ctx, false, func(line []byte) error {
		s := strings.TrimRight(string(line), "\n")
		name, val, _ := strings.Cut(s, "=")
		caps[name] = val
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, ok := caps["fetch"]; !ok {
		return nil, giterr.NewUnsupportedByRemote("fetch")
	}
	return caps, nil
}

// resolveReference turns ref into a concrete commit hash: a raw hash
// is used as-is; otherwise ls-refs is run against the remote.
func (r *Repository) resolveReference(ctx context.Context, pr *pktline.Reader, pw *pktline.Writer, ref Reference) (plumbing.Hash, error) {
	if hex, ok := ref.isRawHash(); ok {
		return plumbing.NewHashEx(hex)
	}

	wantName := plumbing.HEAD
	if ref.branch != "" {
		if !plumbing.ValidateBranchName([]byte(ref.branch)) {
			return plumbing.ZeroHash, &plumbing.ErrBadReferenceName{Name: ref.branch}
		}
		wantName = plumbing.NewBranchReferenceName(ref.branch)
	}

	if err := pw.WriteLines(
		pktline.Str("command=ls-refs\n"),
		pktline.Delim,
		pktline.Str("peel\n"),
		pktline.Str("symrefs\n"),
		pktline.Str("ref-prefix "+wantName.String()+"\n"),
		pktline.Flush,
	); err != nil {
		return plumbing.ZeroHash, err
	}

	var found *plumbing.Reference
	err := pr.ReadUntilFlush(ctx, false, func(line []byte) error {
		s := strings.TrimRight(string(line), "\n")
		fields := strings.Fields(s)
		if len(fields) < 2 {
			return giterr.NewGitProtocolError("ls-refs: malformed line %q", s)
		}
		if plumbing.ReferenceName(fields[1]) == wantName {
			h, err := plumbing.NewHashEx(fields[0])
			if err != nil {
				return giterr.NewGitProtocolError("ls-refs: bad hash %q", fields[0])
			}
			found = plumbing.NewHashReference(wantName, h)
		}
		return nil
	})
	if err != nil {
		return plumbing.ZeroHash, err
	}
	if found == nil {
		return plumbing.ZeroHash, giterr.NewNoSuchReference(wantName.String())
	}
	return found.Hash(), nil
}

func sendFetch(pw *pktline.Writer, want plumbing.Hash, depth int) error {
	lines := []pktline.Line{
		pktline.Str("command=fetch\n"),
		pktline.Delim,
		pktline.Str("want " + want.String() + "\n"),
		pktline.Str("no-progress\n"),
	}
	if depth > 0 {
		lines = append(lines, pktline.Str("deepen "+strconv.Itoa(depth)+"\n"))
	}
	lines = append(lines, pktline.Str("done\n"), pktline.Flush)
	return pw.WriteLines(lines...)
}

// skipToPackfileMarker discards acknowledgment/section lines (and the
// delimiters between them) until the "packfile" marker line that
// precedes the side-band-framed pack.
func skipToPackfileMarker(ctx context.Context, pr *pktline.Reader) error {
	for {
		payload, kind, err := pr.ReadLine(ctx)
		if err != nil {
			return err
		}
		switch kind {
		case pktline.LineFlush:
			return giterr.NewGitProtocolError("fetch response ended before packfile section")
		case pktline.LineDelim, pktline.LineResponseEnd:
			continue
		}
		if strings.TrimRight(string(payload), "\n") == "packfile" {
			return nil
		}
	}
}
