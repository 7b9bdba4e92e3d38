package repo

// Reference names what Clone should resolve to: either a raw commit
// hash, a branch under refs/heads/, or the remote's default HEAD.
type Reference struct {
	rawHash string
	branch  string
	head    bool
}

// RefHash targets an exact commit hash, bypassing ls-refs entirely.
func RefHash(hex string) Reference { return Reference{rawHash: hex} }

// RefBranch targets refs/heads/<name>.
func RefBranch(name string) Reference { return Reference{branch: name} }

// RefHEAD targets the remote's advertised HEAD.
func RefHEAD() Reference { return Reference{head: true} }

func (r Reference) isRawHash() (string, bool) { return r.rawHash, r.rawHash != "" }
