package model

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkdirs(t *testing.T, root string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o755))
	}
}

func TestLocate_SingleSubdirectory(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "distilbert-squad")
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("notes"), 0o644))

	path, err := Locate(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "distilbert-squad"), path)
}

func TestLocate_NoSubdirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "model.bin"), []byte{0}, 0o644))

	_, err := Locate(root)
	assert.ErrorIs(t, err, ErrNoModelFound)
}

func TestLocate_Ambiguous(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "b-model", "a-model", "c-model")

	_, err := Locate(root)
	require.ErrorIs(t, err, ErrAmbiguousModel)

	var ambiguous *AmbiguousModelError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, []string{
		filepath.Join(root, "a-model"),
		filepath.Join(root, "b-model"),
		filepath.Join(root, "c-model"),
	}, ambiguous.Candidates)

	for _, c := range ambiguous.Candidates {
		assert.Contains(t, err.Error(), c)
	}
}

func TestLocate_MissingRoot(t *testing.T) {
	_, err := Locate(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.NotErrorIs(t, err, ErrNoModelFound)
}

func TestLocate_RootIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "models")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := Locate(file)
	assert.ErrorIs(t, err, ErrRootNotDirectory)
}

func TestLocate_FollowsSymlinkedDirectory(t *testing.T) {
	target := t.TempDir()
	root := t.TempDir()
	require.NoError(t, os.Symlink(target, filepath.Join(root, "current")))

	path, err := Locate(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "current"), path)
}

func TestCandidates_IgnoresSymlinkedFile(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(t.TempDir(), "weights.bin")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	require.NoError(t, os.Symlink(file, filepath.Join(root, "weights")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	dirs, err := Candidates(root)
	require.NoError(t, err)
	assert.Empty(t, dirs)
}

func TestPurge(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "old-a/nested", "old-b")
	keep := filepath.Join(root, "keep.txt")
	require.NoError(t, os.WriteFile(keep, []byte("x"), 0o644))

	removed, err := Purge(root)
	require.NoError(t, err)
	assert.Len(t, removed, 2)

	dirs, err := Candidates(root)
	require.NoError(t, err)
	assert.Empty(t, dirs)
	assert.FileExists(t, keep)

	_, err = Locate(root)
	assert.ErrorIs(t, err, ErrNoModelFound)
}

func TestEnsureRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "models")
	require.NoError(t, EnsureRoot(root))
	assert.DirExists(t, root)
	require.NoError(t, EnsureRoot(root))
}
