// Package repo implements the staging, commit, clone, and push engine
// that ties the object model, packfile codec, and protocol framing
// together into a single in-memory repository handle.
package repo

import (
	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/modules/store"
	"github.com/sirupsen/logrus"
)

// Repository holds every piece of mutable state a clone/stage/commit/push
// cycle touches. It is single-threaded: no method is safe to call
// concurrently with another on the same handle.
type Repository struct {
	log *logrus.Logger

	objects *store.Store
	scratch *store.Store

	directories map[plumbing.Hash]*object.Directory

	head         plumbing.Hash
	upstreamHead plumbing.Hash
	root         plumbing.Hash
}

// New returns an empty repository, ready for Clone or for staging from
// scratch. A nil logger discards log output.
func New(log *logrus.Logger) *Repository {
	if log == nil {
		log = logrus.New()
		log.SetLevel(logrus.PanicLevel)
	}
	return &Repository{
		log:         log,
		objects:     store.New(log),
		scratch:     store.New(log),
		directories: make(map[plumbing.Hash]*object.Directory),
	}
}

// Head returns the client's current tip, possibly not yet pushed.
func (r *Repository) Head() plumbing.Hash { return r.head }

// UpstreamHead returns the identifier known to equal the remote's tip
// at the last sync point.
func (r *Repository) UpstreamHead() plumbing.Hash { return r.upstreamHead }

// Root returns the identifier of the current working tree, or the zero
// hash when the tree is empty.
func (r *Repository) Root() plumbing.Hash { return r.root }

// Objects exposes the main object store, e.g. for inspection in tests.
func (r *Repository) Objects() *store.Store { return r.objects }

// isClean reports the §3 clean-workspace invariant: head equals
// upstream-head, and root is either empty or exactly the tree of head.
func (r *Repository) isClean() bool {
	if r.head != r.upstreamHead {
		return false
	}
	if r.root.IsZero() {
		return true
	}
	headTree, ok := r.treeOf(r.head)
	return ok && headTree == r.root
}

func (r *Repository) treeOf(commitHash plumbing.Hash) (plumbing.Hash, bool) {
	if commitHash.IsZero() {
		return plumbing.ZeroHash, false
	}
	content, ok := r.objects.GetAs(commitHash, object.CommitType)
	if !ok {
		return plumbing.ZeroHash, false
	}
	c, err := object.DecodeCommit(content)
	if err != nil {
		return plumbing.ZeroHash, false
	}
	return c.Tree, true
}

// directoryFor returns the Directory for h, decoding and memoizing it
// on first access. The zero hash maps to a fresh empty directory.
func (r *Repository) directoryFor(h plumbing.Hash) (*object.Directory, error) {
	if h.IsZero() {
		return object.NewDirectory(), nil
	}
	if d, ok := r.directories[h]; ok {
		return d, nil
	}
	content, ok := r.scratch.GetAs(h, object.TreeType)
	if !ok {
		content, ok = r.objects.GetAs(h, object.TreeType)
	}
	if !ok {
		return nil, giterr.NewMissingObject(h.String())
	}
	d, err := object.DecodeDirectory(content)
	if err != nil {
		return nil, err
	}
	r.directories[h] = d
	return d, nil
}

// takeDirectory removes h's memoized Directory from the cache so the
// caller can mutate it without aliasing the cached copy, per the
// take/replace pattern used throughout staging.
func (r *Repository) takeDirectory(h plumbing.Hash) (*object.Directory, error) {
	d, err := r.directoryFor(h)
	if err != nil {
		return nil, err
	}
	delete(r.directories, h)
	return d, nil
}
