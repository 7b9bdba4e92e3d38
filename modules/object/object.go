package object

import (
	"fmt"

	"github.com/pinebranch/gitwire/modules/plumbing"
)

// Type is one of the four object kinds addressed by the content store.
type Type int8

const (
	InvalidType Type = 0
	CommitType  Type = 1
	TreeType    Type = 2
	BlobType    Type = 3
	TagType     Type = 4
)

func (t Type) String() string {
	switch t {
	case CommitType:
		return "commit"
	case TreeType:
		return "tree"
	case BlobType:
		return "blob"
	case TagType:
		return "tag"
	default:
		return "invalid"
	}
}

// ParseType parses a type's textual wire name ("commit", "tree",
// "blob", "tag").
func ParseType(s string) (Type, error) {
	switch s {
	case "commit":
		return CommitType, nil
	case "tree":
		return TreeType, nil
	case "blob":
		return BlobType, nil
	case "tag":
		return TagType, nil
	default:
		return InvalidType, fmt.Errorf("object: unknown type %q", s)
	}
}

// Object is the tuple (type, content, delta-hint) held by the object
// store. Content is opaque; DeltaHint, when set, names a related prior
// object used to seed delta compression during emission — it never
// affects identity.
type Object struct {
	Type      Type
	Content   []byte
	DeltaHint plumbing.Hash
}

// Identity computes this object's content-addressed hash:
// SHA-1("<type> <len>\0" || content).
func (o *Object) Identity() plumbing.Hash {
	return Identity(o.Type, o.Content)
}

// Identity computes the hash of a (type, content) pair directly,
// without constructing an Object.
func Identity(t Type, content []byte) plumbing.Hash {
	h := plumbing.NewHasher()
	fmt.Fprintf(h, "%s %d\x00", t, len(content))
	h.Write(content)
	return h.Sum()
}
