// Package filemode defines the fixed set of tree-entry modes and their
// octal wire encoding.
package filemode

import "strconv"

// FileMode is one of the fixed set of modes a tree entry may carry.
type FileMode uint32

const (
	Directory       FileMode = 0o040000
	RegularFile     FileMode = 0o100644
	GroupWriteable  FileMode = 0o100664
	Executable      FileMode = 0o100755
	Symlink         FileMode = 0o120000
	Gitlink         FileMode = 0o160000
	unrecognizedZero FileMode = 0
)

func (m FileMode) String() string {
	switch m {
	case Directory:
		return "Directory"
	case RegularFile:
		return "RegularFile"
	case GroupWriteable:
		return "GroupWriteable"
	case Executable:
		return "Executable"
	case Symlink:
		return "Symlink"
	case Gitlink:
		return "Gitlink"
	default:
		return "Unrecognized"
	}
}

// IsValid reports whether m is one of the fixed recognized modes.
func (m FileMode) IsValid() bool {
	switch m {
	case Directory, RegularFile, GroupWriteable, Executable, Symlink, Gitlink:
		return true
	default:
		return false
	}
}

// Octal renders m in octal without zero padding, the form used when
// writing tree entries: Directory is "40000", every other mode has six
// digits.
func (m FileMode) Octal() string {
	return strconv.FormatUint(uint64(m), 8)
}

// Parse decodes a tree entry's textual mode. Both the 6-digit
// ("040000") and 5-digit ("40000") forms of Directory are accepted;
// anything else must match one of the fixed modes exactly.
func Parse(s string) (FileMode, bool) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return unrecognizedZero, false
	}
	m := FileMode(v)
	if s == "40000" {
		m = Directory
	}
	if !m.IsValid() {
		return unrecognizedZero, false
	}
	return m, true
}
