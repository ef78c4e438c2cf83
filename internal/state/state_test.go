package state

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyght/wax/internal/config"
	"github.com/plyght/wax/internal/errs"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := &config.Config{StateDir: t.TempDir()}
	require.NoError(t, cfg.EnsureDirectories())
	return New(cfg)
}

func TestLoadEmpty(t *testing.T) {
	s := newTestStore(t)
	installed, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, installed)
}

func TestInsertAndLoad(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(InstalledPackage{Name: "tree", Version: "2.2.1"}))

	installed, err := s.Load()
	require.NoError(t, err)
	require.Contains(t, installed, "tree")
	assert.Equal(t, "2.2.1", installed["tree"].Version)
}

func TestInsertReplacesExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(InstalledPackage{Name: "tree", Version: "2.2.1"}))
	require.NoError(t, s.Insert(InstalledPackage{Name: "tree", Version: "2.2.2"}))

	installed, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "2.2.2", installed["tree"].Version)
	assert.Len(t, installed, 1)
}

func TestRemoveNotInstalled(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Remove("tree")
	require.Error(t, err)

	var wantErr *errs.Error
	require.ErrorAs(t, err, &wantErr)
	assert.Equal(t, errs.NotInstalled, wantErr.Kind)
}

func TestRemoveExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(InstalledPackage{Name: "tree", Version: "2.2.1"}))

	pkg, err := s.Remove("tree")
	require.NoError(t, err)
	assert.Equal(t, "2.2.1", pkg.Version)

	installed, err := s.Load()
	require.NoError(t, err)
	assert.NotContains(t, installed, "tree")
}

func TestDependentsOf(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(InstalledPackage{Name: "jq", Version: "1.7"}))
	require.NoError(t, s.Insert(InstalledPackage{Name: "oniguruma", Version: "6.9"}))

	deps := map[string][]string{"jq": {"oniguruma"}}

	dependents, err := s.DependentsOf("oniguruma", deps)
	require.NoError(t, err)
	assert.Equal(t, []string{"jq"}, dependents)
}

func TestSavePersistsAtomically(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Insert(InstalledPackage{Name: "tree", Version: "2.2.1"}))

	// A second Store instance pointed at the same files must see the write.
	other := &Store{path: s.path, lockPath: s.lockPath}
	installed, err := other.Load()
	require.NoError(t, err)
	assert.Contains(t, installed, "tree")

	assert.FileExists(t, s.path)
}
