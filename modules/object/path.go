// Package object implements the path, directory/tree, and commit
// codecs over the content-addressed object model.
package object

import (
	"strings"

	"github.com/pinebranch/gitwire/modules/giterr"
)

// Path is a slash-separated, possibly-empty-component path into the
// working tree. Empty components are ignored throughout.
type Path string

func (p Path) segments() []string {
	raw := strings.Split(string(p), "/")
	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Dirs returns every path component except the last.
func (p Path) Dirs() ([]string, error) {
	segs := p.segments()
	if len(segs) == 0 {
		return nil, giterr.NewPathError(string(p), "empty path")
	}
	return segs[:len(segs)-1], nil
}

// File returns the last path component.
func (p Path) File() (string, error) {
	segs := p.segments()
	if len(segs) == 0 {
		return "", giterr.NewPathError(string(p), "empty path")
	}
	return segs[len(segs)-1], nil
}

// Split is a convenience wrapper returning both Dirs and File in one
// call, failing once if the path is empty.
func (p Path) Split() (dirs []string, file string, err error) {
	segs := p.segments()
	if len(segs) == 0 {
		return nil, "", giterr.NewPathError(string(p), "empty path")
	}
	return segs[:len(segs)-1], segs[len(segs)-1], nil
}
