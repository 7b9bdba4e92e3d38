package object

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathSplit(t *testing.T) {
	dirs, file, err := Path("a/b/c.txt").Split()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, dirs)
	assert.Equal(t, "c.txt", file)
}

func TestPathSplitSingleComponent(t *testing.T) {
	dirs, file, err := Path("c.txt").Split()
	require.NoError(t, err)
	assert.Empty(t, dirs)
	assert.Equal(t, "c.txt", file)
}

func TestPathIgnoresEmptyComponents(t *testing.T) {
	dirs, file, err := Path("a//b//c.txt").Split()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, dirs)
	assert.Equal(t, "c.txt", file)
}

func TestPathRejectsEmpty(t *testing.T) {
	_, _, err := Path("").Split()
	require.Error(t, err)
}

func TestPathRejectsOnlySeparators(t *testing.T) {
	_, _, err := Path("///").Split()
	require.Error(t, err)
}
