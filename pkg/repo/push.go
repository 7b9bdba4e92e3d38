package repo

import (
	"context"
	"strings"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/packfile"
	"github.com/pinebranch/gitwire/modules/pktline"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/pkg/transport"
)

// RefUpdate names one branch update a Push call should attempt.
type RefUpdate struct {
	Name    string
	NewHash plumbing.Hash
}

type target struct {
	newHash    plumbing.Hash
	oldHash    plumbing.Hash
	advertised bool
}

// Push opens a receive-pack channel, negotiates ref updates for every
// entry in updates, walks the local commit graph to build a pack of the
// objects reachable from the new heads, and waits for the remote's
// report-status response. Objects reachable from the advertised old
// heads are left out only when the remote advertises thin-pack;
// otherwise everything reachable from the new heads is sent.
func (r *Repository) Push(ctx context.Context, dialer transport.Dialer, endpoint *transport.Endpoint, updates []RefUpdate, force bool) error {
	targets := make(map[string]*target, len(updates))
	for _, u := range updates {
		if !plumbing.ValidateBranchName([]byte(u.Name)) {
			return &plumbing.ErrBadReferenceName{Name: u.Name}
		}
		targets[u.Name] = &target{newHash: u.NewHash}
	}

	ch, err := dialer.Dial(ctx, endpoint, transport.ReceivePack)
	if err != nil {
		return giterr.NewSshError(err)
	}
	defer ch.Close()
	ch.SetReadTimeout(readTimeout)

	pr := pktline.NewReader(ch, r.log)
	pw := pktline.NewWriter(ch)

	reportStatus, thinPack, err := readReceiveCapabilities(ctx, pr, targets)
	if err != nil {
		return err
	}
	if !reportStatus {
		return giterr.NewUnsupportedByRemote("report-status")
	}

	for name, t := range targets {
		if !t.advertised || t.oldHash.IsZero() {
			continue
		}
		if !force && !r.objects.Has(t.oldHash) {
			return giterr.NewMustForcePush(plumbing.NewBranchReferenceName(name).String())
		}
	}

	skip := make(map[plumbing.Hash]bool)
	if thinPack {
		for _, t := range targets {
			if t.advertised && !t.oldHash.IsZero() {
				r.walkReachable(t.oldHash, skip, true)
			}
		}
	}

	if err := writeRefUpdateLines(pw, updates, targets, thinPack); err != nil {
		return err
	}

	objs, err := r.collectPackObjects(updates, skip)
	if err != nil {
		return err
	}

	pf := packfile.NewWriter(pw)
	if err := pf.WriteHeader(len(objs)); err != nil {
		return err
	}
	for _, o := range objs {
		if err := pf.WriteObject(o.typ, o.content); err != nil {
			return err
		}
	}
	if err := pf.Finish(); err != nil {
		return err
	}

	if err := readReportStatus(ctx, pr, targets); err != nil {
		return err
	}

	r.upstreamHead = r.head
	return nil
}

// readReceiveCapabilities reads the first advertised ref line (which
// carries the server's capability list after a NUL byte) and every
// subsequent advertised ref, filling in old hashes for targets that
// match an advertised branch.
func readReceiveCapabilities(ctx context.Context, pr *pktline.Reader, targets map[string]*target) (reportStatus, thinPack bool, err error) {
	first := true
	readErr := pr.ReadUntilFlush(ctx, false, func(line []byte) error {
		s := strings.TrimRight(string(line), "\n")
		if first {
			first = false
			caps := ""
			if nul := strings.IndexByte(s, 0); nul >= 0 {
				caps = s[nul+1:]
				s = s[:nul]
			}
			for _, c := range strings.Fields(caps) {
				switch c {
				case "report-status":
					reportStatus = true
				case "thin-pack":
					thinPack = true
				}
			}
		}
		fields := strings.Fields(s)
		if len(fields) < 2 || fields[1] == "capabilities^{}" {
			return nil
		}
		rn := plumbing.ReferenceName(fields[1])
		if !rn.IsBranch() {
			return nil
		}
		t, ok := targets[rn.BranchName()]
		if !ok {
			return nil
		}
		h, err := plumbing.NewHashEx(fields[0])
		if err != nil {
			return giterr.NewGitProtocolError("receive-pack: bad advertised hash %q", fields[0])
		}
		t.oldHash = h
		t.advertised = true
		return nil
	})
	return reportStatus, thinPack, readErr
}

// writeRefUpdateLines emits one ref-update pkt-line per target, with
// capabilities attached to the first line only, per §4.I step 5.
func writeRefUpdateLines(pw *pktline.Writer, updates []RefUpdate, targets map[string]*target, thinPack bool) error {
	var lines []pktline.Line
	for i, u := range updates {
		t := targets[u.Name]
		old := plumbing.ZeroHash
		if t.advertised {
			old = t.oldHash
		}

		caps := ""
		if i == 0 {
			caps = "\x00report-status"
			if thinPack {
				caps += " thin-pack"
			}
		}
		lines = append(lines, pktline.Str(
			old.String()+" "+u.NewHash.String()+" "+plumbing.NewBranchReferenceName(u.Name).String()+caps+"\n",
		))
	}
	lines = append(lines, pktline.Flush)
	return pw.WriteLines(lines...)
}

func readReportStatus(ctx context.Context, pr *pktline.Reader, targets map[string]*target) error {
	s, flush, err := pr.ReadLineStr(ctx)
	if err != nil {
		return err
	}
	if flush || s != "unpack ok" {
		return giterr.NewGitProtocolError("receive-pack: expected %q, got %q", "unpack ok", s)
	}

	pending := make(map[string]bool, len(targets))
	for name := range targets {
		pending[name] = true
	}
	for len(pending) > 0 {
		s, flush, err := pr.ReadLineStr(ctx)
		if err != nil {
			return err
		}
		if flush {
			break
		}
		const prefix = "ok refs/heads/"
		if !strings.HasPrefix(s, prefix) {
			return giterr.NewGitProtocolError("receive-pack: unexpected status line %q", s)
		}
		delete(pending, strings.TrimPrefix(s, prefix))
	}
	if len(pending) > 0 {
		return giterr.NewGitProtocolError("receive-pack: %d ref(s) never acknowledged", len(pending))
	}
	return nil
}
