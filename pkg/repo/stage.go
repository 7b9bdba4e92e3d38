package repo

import (
	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/modules/plumbing/filemode"
)

// StageFile creates or overwrites the blob at path with content under
// the given mode, reserializing every directory from the leaf up to
// root through the scratch store.
func (r *Repository) StageFile(path string, content []byte, mode filemode.FileMode) error {
	if mode == filemode.Directory {
		return giterr.NewPathError(path, "cannot stage a file entry with Directory mode")
	}
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	newRoot, err := r.stageAt(r.root, segments, func(d *object.Directory, name string) error {
		h := r.insertBlob(content)
		d.Set(name, h, mode)
		return nil
	})
	if err != nil {
		return err
	}
	r.root = newRoot
	return nil
}

// StageDelete removes the entry at path, if present, reserializing
// affected directories the same way StageFile does.
func (r *Repository) StageDelete(path string) error {
	segments, err := splitPath(path)
	if err != nil {
		return err
	}
	newRoot, err := r.stageAt(r.root, segments, func(d *object.Directory, name string) error {
		d.Delete(name)
		return nil
	})
	if err != nil {
		return err
	}
	r.root = newRoot
	return nil
}

func splitPath(path string) ([]string, error) {
	dirs, file, err := object.Path(path).Split()
	if err != nil {
		return nil, err
	}
	return append(dirs, file), nil
}

// stageAt recurses down segments starting from the directory currently
// identified by dirHash, applies leaf to the deepest directory, and
// reserializes every directory on the way back up. It returns the new
// identifier for dirHash's directory, or the zero hash if staging left
// it empty.
func (r *Repository) stageAt(dirHash plumbing.Hash, segments []string, leaf func(d *object.Directory, name string) error) (plumbing.Hash, error) {
	d, err := r.takeDirectory(dirHash)
	if err != nil {
		return plumbing.ZeroHash, err
	}
	name := segments[0]

	if len(segments) == 1 {
		if err := leaf(d, name); err != nil {
			return plumbing.ZeroHash, err
		}
	} else {
		childHash := plumbing.ZeroHash
		if entry, ok := d.Get(name); ok {
			if entry.Mode != filemode.Directory {
				return plumbing.ZeroHash, giterr.NewPathError(name, "expected a directory")
			}
			childHash = entry.Hash
		}
		newChild, err := r.stageAt(childHash, segments[1:], leaf)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		if newChild.IsZero() {
			d.Delete(name)
		} else {
			d.Set(name, newChild, filemode.Directory)
		}
	}

	return r.persistDirectory(dirHash, d)
}

// persistDirectory serializes d under its content hash, unless it has
// emptied out entirely (in which case the caller deletes its parent
// entry instead of storing an empty tree). The prior identifier
// dirHash seeds the delta-hint chain for the newly written version.
func (r *Repository) persistDirectory(dirHash plumbing.Hash, d *object.Directory) (plumbing.Hash, error) {
	if d.Len() == 0 {
		return plumbing.ZeroHash, nil
	}
	content := d.Encode()
	newHash := object.Identity(object.TreeType, content)

	if !r.objects.Has(newHash) {
		hint := r.deepestCommittedAncestor(dirHash)
		r.scratch.Insert(object.TreeType, content, hint)
	}
	r.directories[newHash] = d
	return newHash, nil
}

// deepestCommittedAncestor walks h's delta-hint chain through the
// scratch store until it reaches a node that is not itself a pending
// scratch entry — that node is either already committed or absent,
// and names the ancestor delta compression should be seeded from.
func (r *Repository) deepestCommittedAncestor(h plumbing.Hash) plumbing.Hash {
	if h.IsZero() {
		return plumbing.ZeroHash
	}
	for {
		o, ok := r.scratch.Get(h)
		if !ok {
			return h
		}
		if o.DeltaHint.IsZero() {
			return plumbing.ZeroHash
		}
		h = o.DeltaHint
	}
}

// insertBlob stores content as a blob, reusing the main store's copy
// if the identifier is already committed rather than duplicating it
// into scratch.
func (r *Repository) insertBlob(content []byte) plumbing.Hash {
	h := object.Identity(object.BlobType, content)
	if r.objects.Has(h) {
		return h
	}
	return r.scratch.Insert(object.BlobType, content, plumbing.ZeroHash)
}
