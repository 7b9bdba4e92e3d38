package repo

import (
	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/modules/plumbing/filemode"
)

// packObj is one object ready to hand to the packfile writer.
type packObj struct {
	typ     object.Type
	content []byte
}

// walkReachable performs the depth-first traversal described in §4.I's
// Traversal & Packing section from commitHash: every parent
// (recursively), its root tree, and every tree/blob the tree
// references. seen doubles as the cycle guard and, across calls, as
// the accumulating skip set — an object already in seen is never
// revisited. Missing objects are tolerated only when tolerateMissing
// is set, restricting that tolerance to the old-head skip-set walk
// rather than the new-head walk that decides what gets packed.
func (r *Repository) walkReachable(commitHash plumbing.Hash, seen map[plumbing.Hash]bool, tolerateMissing bool) error {
	return r.walkCommit(commitHash, seen, tolerateMissing, nil)
}

func (r *Repository) walkCommit(h plumbing.Hash, seen map[plumbing.Hash]bool, tolerateMissing bool, emit func(packObj)) error {
	if h.IsZero() || seen[h] {
		return nil
	}
	seen[h] = true

	content, ok := r.objects.GetAs(h, object.CommitType)
	if !ok {
		if tolerateMissing {
			return nil
		}
		return giterr.NewMissingObject(h.String())
	}
	c, err := object.DecodeCommit(content)
	if err != nil {
		return err
	}
	if emit != nil {
		emit(packObj{typ: object.CommitType, content: content})
	}

	for _, p := range c.Parents {
		if err := r.walkCommit(p, seen, tolerateMissing, emit); err != nil {
			return err
		}
	}
	return r.walkTree(c.Tree, seen, tolerateMissing, emit)
}

func (r *Repository) walkTree(h plumbing.Hash, seen map[plumbing.Hash]bool, tolerateMissing bool, emit func(packObj)) error {
	if h.IsZero() || seen[h] {
		return nil
	}
	seen[h] = true

	content, ok := r.objects.GetAs(h, object.TreeType)
	if !ok {
		if tolerateMissing {
			return nil
		}
		return giterr.NewMissingObject(h.String())
	}
	if emit != nil {
		emit(packObj{typ: object.TreeType, content: content})
	}

	it := object.NewTreeIterator(content)
	for {
		entry, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if entry.Mode == filemode.Directory {
			if err := r.walkTree(entry.Hash, seen, tolerateMissing, emit); err != nil {
				return err
			}
			continue
		}
		if seen[entry.Hash] {
			continue
		}
		seen[entry.Hash] = true
		blob, ok := r.objects.GetAs(entry.Hash, object.BlobType)
		if !ok {
			if tolerateMissing {
				continue
			}
			return giterr.NewMissingObject(entry.Hash.String())
		}
		if emit != nil {
			emit(packObj{typ: object.BlobType, content: blob})
		}
	}
}

// collectPackObjects walks every update's new commit, skipping
// anything already in skip (the remote's assumed object set), and
// returns every newly reached object in traversal order. skip is
// mutated as objects are discovered so that a second update sharing
// history with the first never duplicates objects into the pack.
func (r *Repository) collectPackObjects(updates []RefUpdate, skip map[plumbing.Hash]bool) ([]packObj, error) {
	var out []packObj
	emit := func(o packObj) { out = append(out, o) }
	for _, u := range updates {
		if err := r.walkCommit(u.NewHash, skip, false, emit); err != nil {
			return nil, err
		}
	}
	return out, nil
}
