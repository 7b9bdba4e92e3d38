// Package giterr defines the error taxonomy shared by every layer of the
// client: transport, protocol framing, packfile codec, object model, and
// the repository engine. Each kind is its own exported type with an
// IsErrXxx predicate, rather than a sentinel compared with errors.Is —
// this lets call sites carry structured detail (a path, a hash, an
// underlying transport error) without string-sniffing.
package giterr

import "fmt"

// SshError wraps a transport-layer failure. It is fatal for the current
// operation; the channel is not reused afterward.
type SshError struct {
	Err error
}

func (e *SshError) Error() string { return fmt.Sprintf("ssh transport: %v", e.Err) }
func (e *SshError) Unwrap() error { return e.Err }

func NewSshError(err error) error {
	if err == nil {
		return nil
	}
	return &SshError{Err: err}
}

func IsSshError(err error) bool {
	_, ok := err.(*SshError)
	return ok
}

// DirtyWorkspace is returned when an operation that requires a clean
// workspace (§3) is attempted on a repository with unsynced state.
type DirtyWorkspace struct{}

func (e *DirtyWorkspace) Error() string { return "workspace is not clean" }

func NewDirtyWorkspace() error { return &DirtyWorkspace{} }

func IsDirtyWorkspace(err error) bool {
	_, ok := err.(*DirtyWorkspace)
	return ok
}

// InvalidObject is returned for malformed tree/commit content, unknown
// modes, or illegal characters in author/committer lines.
type InvalidObject struct {
	Reason string
}

func (e *InvalidObject) Error() string { return "invalid object: " + e.Reason }

func NewInvalidObject(format string, a ...any) error {
	return &InvalidObject{Reason: fmt.Sprintf(format, a...)}
}

func IsInvalidObject(err error) bool {
	_, ok := err.(*InvalidObject)
	return ok
}

// PathError is returned for an empty path, a lookup miss, or a wrong
// entry type encountered while walking a path.
type PathError struct {
	Path   string
	Reason string
}

func (e *PathError) Error() string { return fmt.Sprintf("path %q: %s", e.Path, e.Reason) }

func NewPathError(path, format string, a ...any) error {
	return &PathError{Path: path, Reason: fmt.Sprintf(format, a...)}
}

func IsPathError(err error) bool {
	_, ok := err.(*PathError)
	return ok
}

// MissingObject is returned when a referenced hash is absent from the
// store but must be present to proceed.
type MissingObject struct {
	Hash string
}

func (e *MissingObject) Error() string { return "missing object: " + e.Hash }

func NewMissingObject(hash string) error { return &MissingObject{Hash: hash} }

func IsMissingObject(err error) bool {
	_, ok := err.(*MissingObject)
	return ok
}

// NoSuchReference is returned when a requested ref was not advertised
// by the remote.
type NoSuchReference struct {
	Name string
}

func (e *NoSuchReference) Error() string { return "no such reference: " + e.Name }

func NewNoSuchReference(name string) error { return &NoSuchReference{Name: name} }

func IsNoSuchReference(err error) bool {
	_, ok := err.(*NoSuchReference)
	return ok
}

// GitProtocolError is returned for malformed framing, an unexpected line
// where a specific one was required, or a missing required token.
type GitProtocolError struct {
	Reason string
}

func (e *GitProtocolError) Error() string { return "git protocol error: " + e.Reason }

func NewGitProtocolError(format string, a ...any) error {
	return &GitProtocolError{Reason: fmt.Sprintf(format, a...)}
}

func IsGitProtocolError(err error) bool {
	_, ok := err.(*GitProtocolError)
	return ok
}

// InvalidPackfile is returned for a bad signature, a bad varint, an
// unsupported ofs-delta on receive, an inflate failure, a delta VM
// out-of-bounds access, or unresolved delta sources at the end of
// resolution.
type InvalidPackfile struct {
	Reason string
}

func (e *InvalidPackfile) Error() string { return "invalid packfile: " + e.Reason }

func NewInvalidPackfile(format string, a ...any) error {
	return &InvalidPackfile{Reason: fmt.Sprintf(format, a...)}
}

func IsInvalidPackfile(err error) bool {
	_, ok := err.(*InvalidPackfile)
	return ok
}

// MustForcePush is returned when a ref update would not be a fast
// forward and the caller did not request force_push.
type MustForcePush struct {
	Ref string
}

func (e *MustForcePush) Error() string { return "must force push: " + e.Ref }

func NewMustForcePush(ref string) error { return &MustForcePush{Ref: ref} }

func IsMustForcePush(err error) bool {
	_, ok := err.(*MustForcePush)
	return ok
}

// UnsupportedByRemote is returned when a requested capability (shallow
// clone, report-status) was not advertised by the remote.
type UnsupportedByRemote struct {
	Capability string
}

func (e *UnsupportedByRemote) Error() string { return "unsupported by remote: " + e.Capability }

func NewUnsupportedByRemote(capability string) error {
	return &UnsupportedByRemote{Capability: capability}
}

func IsUnsupportedByRemote(err error) bool {
	_, ok := err.(*UnsupportedByRemote)
	return ok
}
