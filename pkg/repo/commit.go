package repo

import (
	"time"

	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/modules/plumbing/filemode"
)

// Signer names an author or committer for Commit.
type Signer struct {
	Name  string
	Email string
}

// Commit promotes every scratch object reachable from the current
// root into the main store, synthesizes a commit object over root with
// the current head as its sole parent (if any), advances head, and
// returns the new commit's hash. If timestamp is nil, the wall clock
// is used.
func (r *Repository) Commit(message string, author, committer Signer, timestamp *int64) (plumbing.Hash, error) {
	headTree, hasHead := r.treeOf(r.head)
	if !hasHead || headTree != r.root {
		if err := r.promoteTree(r.root); err != nil {
			return plumbing.ZeroHash, err
		}
	}

	ts := time.Now().Unix()
	if timestamp != nil {
		ts = *timestamp
	}

	c := &object.Commit{
		Tree:      r.root,
		Author:    object.Signature{Name: author.Name, Email: author.Email, Timestamp: ts, Timezone: "+0000"},
		Committer: object.Signature{Name: committer.Name, Email: committer.Email, Timestamp: ts, Timezone: "+0000"},
		Message:   message,
	}
	if !r.head.IsZero() {
		c.Parents = []plumbing.Hash{r.head}
	}

	content, err := c.Encode()
	if err != nil {
		return plumbing.ZeroHash, err
	}
	h := r.objects.Insert(object.CommitType, content, plumbing.ZeroHash)
	r.head = h
	return h, nil
}

// promoteTree moves a tree and everything it reaches (subtrees, blobs)
// out of scratch and into the main store. Objects already committed
// are left alone; objects not found in either store are tolerated,
// since a directory can reference a tree that was never touched by
// this staging session and is already resolved.
func (r *Repository) promoteTree(treeHash plumbing.Hash) error {
	if treeHash.IsZero() || r.objects.Has(treeHash) {
		return nil
	}
	o, ok := r.scratch.PromoteInto(r.objects, treeHash)
	if !ok {
		return nil
	}

	it := object.NewTreeIterator(o.Content)
	for {
		entry, ok, err := it.Next()
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := r.promoteSubtree(entry); err != nil {
			return err
		}
	}
}

func (r *Repository) promoteSubtree(entry object.Entry) error {
	if entry.Mode == filemode.Directory {
		return r.promoteTree(entry.Hash)
	}
	if r.objects.Has(entry.Hash) {
		return nil
	}
	r.scratch.PromoteInto(r.objects, entry.Hash)
	return nil
}
