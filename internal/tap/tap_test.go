package tap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyght/wax/internal/config"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(&config.Config{CacheDir: dir, StateDir: dir})
}

func TestListEmpty(t *testing.T) {
	s := newTestStore(t)
	taps, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, taps)
}

func TestAddIsIdempotentAndSorted(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("homebrew/cask"))
	require.NoError(t, s.Add("acme/widgets"))
	require.NoError(t, s.Add("homebrew/cask"))

	taps, err := s.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"acme/widgets", "homebrew/cask"}, taps)
}

func TestRemoveExisting(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Add("acme/widgets"))
	require.NoError(t, s.Remove("acme/widgets"))

	taps, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, taps)
}

func TestRemoveNotRegistered(t *testing.T) {
	s := newTestStore(t)
	err := s.Remove("acme/widgets")
	require.Error(t, err)
}
