package object

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/pinebranch/gitwire/modules/giterr"
	"github.com/pinebranch/gitwire/modules/plumbing"
)

// Signature is an author or committer line: "<name> <<email>> <unix-seconds> <tz-offset>".
type Signature struct {
	Name      string
	Email     string
	Timestamp int64
	Timezone  string
}

// validSigField reports whether a name or email is free of '<', '>',
// and newline.
func validSigField(s string) bool {
	return !strings.ContainsAny(s, "<>\n")
}

func (s Signature) encode() (string, error) {
	if !validSigField(s.Name) || !validSigField(s.Email) {
		return "", giterr.NewInvalidObject("signature contains '<', '>', or newline")
	}
	tz := s.Timezone
	if tz == "" {
		tz = "+0000"
	}
	return fmt.Sprintf("%s <%s> %d %s", s.Name, s.Email, s.Timestamp, tz), nil
}

func decodeSignature(line string) (Signature, error) {
	lt := strings.LastIndexByte(line, '<')
	gt := strings.LastIndexByte(line, '>')
	if lt < 0 || gt < lt {
		return Signature{}, giterr.NewInvalidObject("malformed signature line %q", line)
	}
	name := strings.TrimSpace(line[:lt])
	email := line[lt+1 : gt]
	rest := strings.TrimSpace(line[gt+1:])
	fields := strings.Fields(rest)
	if len(fields) != 2 {
		return Signature{}, giterr.NewInvalidObject("malformed signature timestamp %q", line)
	}
	ts, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return Signature{}, giterr.NewInvalidObject("malformed signature timestamp %q", line)
	}
	return Signature{Name: name, Email: email, Timestamp: ts, Timezone: fields[1]}, nil
}

// Commit is a parsed commit object: one tree header, zero or more
// parents, author/committer signatures, and a message.
type Commit struct {
	Tree      plumbing.Hash
	Parents   []plumbing.Hash
	Author    Signature
	Committer Signature
	Message   string
}

// Parent returns the i-th parent header, if present.
func (c *Commit) Parent(i int) (plumbing.Hash, bool) {
	if i < 0 || i >= len(c.Parents) {
		return plumbing.ZeroHash, false
	}
	return c.Parents[i], true
}

// Encode renders the commit as upstream git's plain-text commit object
// body: headers, a blank line, then the message.
func (c *Commit) Encode() ([]byte, error) {
	author, err := c.Author.encode()
	if err != nil {
		return nil, err
	}
	committer, err := c.Committer.encode()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", c.Tree.String())
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", p.String())
	}
	fmt.Fprintf(&buf, "author %s\n", author)
	fmt.Fprintf(&buf, "committer %s\n", committer)
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	if !strings.HasSuffix(c.Message, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// DecodeCommit parses a commit object's content, failing InvalidObject
// on malformed headers.
func DecodeCommit(content []byte) (*Commit, error) {
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	c := &Commit{}
	sawTree := false
	var sawAuthor, sawCommitter bool

	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			break
		}
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, giterr.NewInvalidObject("malformed commit header %q", line)
		}
		switch key {
		case "tree":
			h, err := plumbing.NewHashEx(val)
			if err != nil {
				return nil, giterr.NewInvalidObject("malformed tree header: %v", err)
			}
			c.Tree = h
			sawTree = true
		case "parent":
			h, err := plumbing.NewHashEx(val)
			if err != nil {
				return nil, giterr.NewInvalidObject("malformed parent header: %v", err)
			}
			c.Parents = append(c.Parents, h)
		case "author":
			sig, err := decodeSignature(val)
			if err != nil {
				return nil, err
			}
			c.Author = sig
			sawAuthor = true
		case "committer":
			sig, err := decodeSignature(val)
			if err != nil {
				return nil, err
			}
			c.Committer = sig
			sawCommitter = true
		default:
			// Unknown headers (e.g. gpgsig) are tolerated and dropped;
			// field projection only exposes the fixed set above.
		}
	}
	if !sawTree || !sawAuthor || !sawCommitter {
		return nil, giterr.NewInvalidObject("commit missing required header")
	}

	var msg bytes.Buffer
	for sc.Scan() {
		msg.WriteString(sc.Text())
		msg.WriteByte('\n')
	}
	if err := sc.Err(); err != nil {
		return nil, giterr.NewInvalidObject("malformed commit body: %v", err)
	}
	c.Message = msg.String()
	return c, nil
}
