package object

import (
	"crypto/sha1"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeStringAndParseTypeRoundTrip(t *testing.T) {
	for _, tc := range []Type{CommitType, TreeType, BlobType, TagType} {
		parsed, err := ParseType(tc.String())
		require.NoError(t, err)
		assert.Equal(t, tc, parsed)
	}
}

func TestParseTypeRejectsUnknown(t *testing.T) {
	_, err := ParseType("widget")
	require.Error(t, err)
}

func TestInvalidTypeStringsAsInvalid(t *testing.T) {
	assert.Equal(t, "invalid", InvalidType.String())
}

func TestIdentityMatchesHeaderPrefixedSha1(t *testing.T) {
	content := []byte("hello")
	want := sha1.Sum([]byte("blob 5\x00hello"))
	got := Identity(BlobType, content)
	assert.Equal(t, want[:], got[:])
}

func TestObjectIdentityMatchesFreeFunction(t *testing.T) {
	o := &Object{Type: TreeType, Content: []byte("some tree bytes")}
	assert.Equal(t, Identity(TreeType, o.Content), o.Identity())
}

func TestIdentityVariesByType(t *testing.T) {
	content := []byte("same bytes")
	assert.NotEqual(t, Identity(BlobType, content), Identity(TreeType, content))
}
