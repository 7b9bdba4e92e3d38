package object

import (
	"testing"

	"github.com/pinebranch/gitwire/modules/plumbing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTreeHash() plumbing.Hash {
	return plumbing.NewHash("1111111111111111111111111111111111111111")
}

func testParentHash() plumbing.Hash {
	return plumbing.NewHash("2222222222222222222222222222222222222222")
}

func TestCommitEncodeDecodeRoundTrip(t *testing.T) {
	c := &Commit{
		Tree:      testTreeHash(),
		Parents:   []plumbing.Hash{testParentHash()},
		Author:    Signature{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"},
		Committer: Signature{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"},
		Message:   "initial commit",
	}

	content, err := c.Encode()
	require.NoError(t, err)

	decoded, err := DecodeCommit(content)
	require.NoError(t, err)
	assert.Equal(t, c.Tree, decoded.Tree)
	assert.Equal(t, c.Parents, decoded.Parents)
	assert.Equal(t, c.Author, decoded.Author)
	assert.Equal(t, c.Committer, decoded.Committer)
	assert.Equal(t, c.Message+"\n", decoded.Message)
}

func TestCommitEncodeWithoutParents(t *testing.T) {
	c := &Commit{
		Tree:      testTreeHash(),
		Author:    Signature{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"},
		Committer: Signature{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"},
		Message:   "root commit",
	}

	content, err := c.Encode()
	require.NoError(t, err)
	decoded, err := DecodeCommit(content)
	require.NoError(t, err)
	assert.Empty(t, decoded.Parents)
}

func TestCommitParentHelper(t *testing.T) {
	c := &Commit{Parents: []plumbing.Hash{testParentHash()}}
	p, ok := c.Parent(0)
	require.True(t, ok)
	assert.Equal(t, testParentHash(), p)

	_, ok = c.Parent(1)
	assert.False(t, ok)
}

func TestCommitEncodeRejectsAngleBracketInName(t *testing.T) {
	c := &Commit{
		Tree:      testTreeHash(),
		Author:    Signature{Name: "Ada <evil>", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"},
		Committer: Signature{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"},
		Message:   "m",
	}
	_, err := c.Encode()
	require.Error(t, err)
}

func TestCommitEncodeRejectsNewlineInEmail(t *testing.T) {
	c := &Commit{
		Tree:      testTreeHash(),
		Author:    Signature{Name: "Ada", Email: "ada@example.com", Timestamp: 1000, Timezone: "+0000"},
		Committer: Signature{Name: "Ada", Email: "ada\n@example.com", Timestamp: 1000, Timezone: "+0000"},
		Message:   "m",
	}
	_, err := c.Encode()
	require.Error(t, err)
}

func TestDecodeCommitRejectsMissingRequiredHeader(t *testing.T) {
	_, err := DecodeCommit([]byte("tree " + testTreeHash().String() + "\n\nno author or committer\n"))
	require.Error(t, err)
}

func TestDecodeCommitRejectsMalformedTreeHeader(t *testing.T) {
	_, err := DecodeCommit([]byte("tree not-a-hash\nauthor a <a@b> 0 +0000\ncommitter a <a@b> 0 +0000\n\nm\n"))
	require.Error(t, err)
}

func TestDecodeCommitRejectsMalformedSignatureLine(t *testing.T) {
	_, err := DecodeCommit([]byte("tree " + testTreeHash().String() + "\nauthor no-angle-brackets\ncommitter a <a@b> 0 +0000\n\nm\n"))
	require.Error(t, err)
}

func TestDecodeCommitToleratesUnknownHeaders(t *testing.T) {
	raw := "tree " + testTreeHash().String() + "\n" +
		"gpgsig -----BEGIN PGP SIGNATURE-----\n" +
		"author a <a@b> 0 +0000\n" +
		"committer a <a@b> 0 +0000\n\nm\n"
	c, err := DecodeCommit([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "m\n", c.Message)
}
