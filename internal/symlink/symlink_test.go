package symlink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyght/wax/internal/layout"
)

func setupCellar(t *testing.T, l *layout.Layout, name, version string, files map[string]string) {
	t.Helper()
	entry := l.CellarEntry(name, version)
	for rel, content := range files {
		full := filepath.Join(entry, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0755))
	}
}

func newLayout(t *testing.T) *layout.Layout {
	t.Helper()
	return &layout.Layout{Prefix: t.TempDir()}
}

func TestCreateSymlinksBasic(t *testing.T) {
	l := newLayout(t)
	setupCellar(t, l, "tree", "2.2.1", map[string]string{"bin/tree": "#!/bin/sh\n"})

	created, err := CreateSymlinks(l, "tree", "2.2.1", false)
	require.NoError(t, err)
	require.Len(t, created, 1)

	linkPath := filepath.Join(l.BinPath(), "tree")
	assert.Equal(t, linkPath, created[0])

	info, err := os.Lstat(linkPath)
	require.NoError(t, err)
	assert.True(t, info.Mode()&os.ModeSymlink != 0)

	target, err := os.Readlink(linkPath)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(l.CellarEntry("tree", "2.2.1"), "bin", "tree"), target)
}

func TestCreateSymlinksIdempotent(t *testing.T) {
	l := newLayout(t)
	setupCellar(t, l, "tree", "2.2.1", map[string]string{"bin/tree": "x"})

	_, err := CreateSymlinks(l, "tree", "2.2.1", false)
	require.NoError(t, err)

	created, err := CreateSymlinks(l, "tree", "2.2.1", false)
	require.NoError(t, err)
	assert.Empty(t, created, "second install of the same package is a no-op")
}

func TestCreateSymlinksConflictRollsBack(t *testing.T) {
	l := newLayout(t)
	setupCellar(t, l, "tree", "2.2.1", map[string]string{
		"bin/tree": "x",
		"bin/tree-conflict": "x",
	})

	// Pre-create a foreign file at the second symlink's target path (entries
	// are processed in name order, so "tree" is linked first).
	require.NoError(t, os.MkdirAll(l.BinPath(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(l.BinPath(), "tree-conflict"), []byte("foreign"), 0644))

	_, err := CreateSymlinks(l, "tree", "2.2.1", false)
	require.Error(t, err)

	// The "tree" symlink created before the conflict was found must be rolled back.
	_, statErr := os.Lstat(filepath.Join(l.BinPath(), "tree"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCreateSymlinksDryRun(t *testing.T) {
	l := newLayout(t)
	setupCellar(t, l, "tree", "2.2.1", map[string]string{"bin/tree": "x"})

	created, err := CreateSymlinks(l, "tree", "2.2.1", true)
	require.NoError(t, err)
	assert.Len(t, created, 1)

	_, statErr := os.Lstat(filepath.Join(l.BinPath(), "tree"))
	assert.True(t, os.IsNotExist(statErr), "dry-run must not touch the filesystem")
}

func TestRemoveSymlinksOwnedOnly(t *testing.T) {
	l := newLayout(t)
	setupCellar(t, l, "tree", "2.2.1", map[string]string{"bin/tree": "x"})

	_, err := CreateSymlinks(l, "tree", "2.2.1", false)
	require.NoError(t, err)

	removed, err := RemoveSymlinks(l, "tree", "2.2.1", false)
	require.NoError(t, err)
	assert.Len(t, removed, 1)

	_, statErr := os.Lstat(filepath.Join(l.BinPath(), "tree"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestRemoveSymlinksSkipsForeign(t *testing.T) {
	l := newLayout(t)
	setupCellar(t, l, "tree", "2.2.1", map[string]string{"bin/tree": "x"})

	require.NoError(t, os.MkdirAll(l.BinPath(), 0755))
	require.NoError(t, os.Symlink("/usr/bin/tree", filepath.Join(l.BinPath(), "tree")))

	removed, err := RemoveSymlinks(l, "tree", "2.2.1", false)
	require.NoError(t, err)
	assert.Empty(t, removed, "a foreign symlink must not be removed")

	_, statErr := os.Lstat(filepath.Join(l.BinPath(), "tree"))
	assert.NoError(t, statErr, "the foreign symlink must remain")
}
