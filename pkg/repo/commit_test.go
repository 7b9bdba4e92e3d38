package repo

import (
	"crypto/sha1"
	"testing"

	"github.com/pinebranch/gitwire/modules/object"
	"github.com/pinebranch/gitwire/modules/plumbing/filemode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageThenCommitBuildsExpectedTree(t *testing.T) {
	r := New(nil)

	require.NoError(t, r.StageFile("a/b/c.txt", []byte("hello"), filemode.RegularFile))

	ts := int64(0)
	h, err := r.Commit("m", Signer{Name: "N", Email: "e"}, Signer{Name: "N", Email: "e"}, &ts)
	require.NoError(t, err)
	assert.Equal(t, h, r.Head())

	sum := sha1.Sum([]byte("blob 5\x00hello"))
	blobHash := object.Identity(object.BlobType, []byte("hello"))
	assert.Equal(t, sum[:], blobHash[:])

	rootContent, ok := r.Objects().GetAs(r.Root(), object.TreeType)
	require.True(t, ok)
	rootDir, err := object.DecodeDirectory(rootContent)
	require.NoError(t, err)
	require.Equal(t, 1, rootDir.Len())
	aEntry, ok := rootDir.Get("a")
	require.True(t, ok)
	assert.Equal(t, filemode.Directory, aEntry.Mode)

	aContent, ok := r.Objects().GetAs(aEntry.Hash, object.TreeType)
	require.True(t, ok)
	aDir, err := object.DecodeDirectory(aContent)
	require.NoError(t, err)
	require.Equal(t, 1, aDir.Len())
	bEntry, ok := aDir.Get("b")
	require.True(t, ok)
	assert.Equal(t, filemode.Directory, bEntry.Mode)

	bContent, ok := r.Objects().GetAs(bEntry.Hash, object.TreeType)
	require.True(t, ok)
	bDir, err := object.DecodeDirectory(bContent)
	require.NoError(t, err)
	require.Equal(t, 1, bDir.Len())
	cEntry, ok := bDir.Get("c.txt")
	require.True(t, ok)
	assert.Equal(t, filemode.RegularFile, cEntry.Mode)
	assert.Equal(t, blobHash, cEntry.Hash)

	commitContent, ok := r.Objects().GetAs(h, object.CommitType)
	require.True(t, ok)
	c, err := object.DecodeCommit(commitContent)
	require.NoError(t, err)
	assert.Equal(t, r.Root(), c.Tree)
	assert.Empty(t, c.Parents)
}

func TestStageDeleteRestoresEmptyRoot(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.StageFile("a.txt", []byte("x"), filemode.RegularFile))
	require.NoError(t, r.StageDelete("a.txt"))
	assert.True(t, r.Root().IsZero())
}

func TestCommitSecondTimeSetsParent(t *testing.T) {
	r := New(nil)
	require.NoError(t, r.StageFile("a.txt", []byte("1"), filemode.RegularFile))
	first, err := r.Commit("first", Signer{Name: "N", Email: "e"}, Signer{Name: "N", Email: "e"}, int64Ptr(0))
	require.NoError(t, err)

	require.NoError(t, r.StageFile("b.txt", []byte("2"), filemode.RegularFile))
	second, err := r.Commit("second", Signer{Name: "N", Email: "e"}, Signer{Name: "N", Email: "e"}, int64Ptr(1))
	require.NoError(t, err)

	content, ok := r.Objects().GetAs(second, object.CommitType)
	require.True(t, ok)
	c, err := object.DecodeCommit(content)
	require.NoError(t, err)
	require.Len(t, c.Parents, 1)
	assert.Equal(t, first, c.Parents[0])
}

func int64Ptr(v int64) *int64 { return &v }
