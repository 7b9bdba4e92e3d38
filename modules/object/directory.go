package object

import (
	"bytes"
	"sort"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/pinebranch/gitwire/modules/plumbing/filemode"
)

// Entry is one (name, child-hash, mode) triple of a Directory.
type Entry struct {
	Name string
	Hash plumbing.Hash
	Mode filemode.FileMode
}

// Directory is the in-memory view of a tree object: an ordered mapping
// from entry name to (child-hash, mode). Internal order is whatever the
// caller built; Encode always emits entries in wire order.
type Directory struct {
	order []string
	byKey map[string]Entry
}

// NewDirectory returns an empty directory.
func NewDirectory() *Directory {
	return &Directory{byKey: make(map[string]Entry)}
}

// Get looks up an entry by name.
func (d *Directory) Get(name string) (Entry, bool) {
	e, ok := d.byKey[name]
	return e, ok
}

// Set inserts or overwrites the entry for name.
func (d *Directory) Set(name string, hash plumbing.Hash, mode filemode.FileMode) {
	if _, exists := d.byKey[name]; !exists {
		d.order = append(d.order, name)
	}
	d.byKey[name] = Entry{Name: name, Hash: hash, Mode: mode}
}

// Delete removes the entry for name, if present.
func (d *Directory) Delete(name string) {
	if _, exists := d.byKey[name]; !exists {
		return
	}
	delete(d.byKey, name)
	for i, n := range d.order {
		if n == name {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}

// Len reports the number of entries.
func (d *Directory) Len() int { return len(d.byKey) }

// sortKey is the name used for wire ordering: directory entries sort as
// if their name had a trailing '/', matching upstream git's
// base_name_compare so that "foo" (a tree) sorts after "foo.txt" (a
// blob) and before "foo0".
func sortKey(e Entry) string {
	if e.Mode == filemode.Directory {
		return e.Name + "/"
	}
	return e.Name
}

// Entries returns every entry in on-wire order.
func (d *Directory) Entries() []Entry {
	out := make([]Entry, 0, len(d.byKey))
	for _, n := range d.order {
		out = append(out, d.byKey[n])
	}
	sort.Slice(out, func(i, j int) bool {
		return sortKey(out[i]) < sortKey(out[j])
	})
	return out
}

// Encode serializes the directory as a tree object's content: each
// entry as "<octal-mode> <name>\0<20-byte-hash>", concatenated in wire
// order.
func (d *Directory) Encode() []byte {
	var buf bytes.Buffer
	for _, e := range d.Entries() {
		buf.WriteString(e.Mode.Octal())
		buf.WriteByte(' ')
		buf.WriteString(e.Name)
		buf.WriteByte(0)
		buf.Write(e.Hash[:])
	}
	return buf.Bytes()
}

// TreeIterator yields a tree object's entries in wire order until
// exhausted.
type TreeIterator struct {
	rest []byte
}

// NewTreeIterator wraps a tree object's raw content.
func NewTreeIterator(content []byte) *TreeIterator {
	return &TreeIterator{rest: content}
}

// Next returns the next entry, or ok=false once exhausted. err is set
// and ok is false if the remaining bytes are malformed.
func (it *TreeIterator) Next() (entry Entry, ok bool, err error) {
	if len(it.rest) == 0 {
		return Entry{}, false, nil
	}

	sp := bytes.IndexByte(it.rest, ' ')
	if sp < 0 {
		return Entry{}, false, giterr.NewInvalidObject("tree entry: missing mode separator")
	}
	mode, parsed := filemode.Parse(string(it.rest[:sp]))
	if !parsed {
		return Entry{}, false, giterr.NewInvalidObject("tree entry: unknown mode %q", string(it.rest[:sp]))
	}
	rest := it.rest[sp+1:]

	nul := bytes.IndexByte(rest, 0)
	if nul < 0 {
		return Entry{}, false, giterr.NewInvalidObject("tree entry: missing null terminator")
	}
	name := string(rest[:nul])
	rest = rest[nul+1:]

	if len(rest) < plumbing.HASH_DIGEST_SIZE {
		return Entry{}, false, giterr.NewInvalidObject("tree entry: truncated hash")
	}
	var h plumbing.Hash
	copy(h[:], rest[:plumbing.HASH_DIGEST_SIZE])
	it.rest = rest[plumbing.HASH_DIGEST_SIZE:]

	return Entry{Name: name, Hash: h, Mode: mode}, true, nil
}

// DecodeDirectory parses a tree object's content into a Directory,
// failing InvalidObject on the first malformed entry.
func DecodeDirectory(content []byte) (*Directory, error) {
	d := NewDirectory()
	it := NewTreeIterator(content)
	for {
		entry, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return d, nil
		}
		d.Set(entry.Name, entry.Hash, entry.Mode)
	}
}
