package metadata

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyght/wax/internal/config"
	"github.com/plyght/wax/internal/errs"
)

func newTestClient(t *testing.T) (*Client, *config.Config) {
	t.Helper()
	cfg := &config.Config{CacheDir: t.TempDir(), StateDir: t.TempDir()}
	require.NoError(t, cfg.EnsureDirectories())
	return NewClient(cfg), cfg
}

const sampleFormulaBody = `[{"name":"jq","full_name":"jq","versions":{"stable":"1.7"},"dependencies":["oniguruma"],"bottle":{"stable":{"files":{"arm64_sonoma":{"url":"https://ghcr.io/v2/homebrew/core/jq/blobs/sha256:abc","sha256":"abc"}}}}}]`

func TestLoadFormulaeUninitialized(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.LoadFormulae()
	require.Error(t, err)

	var wantErr *errs.Error
	require.ErrorAs(t, err, &wantErr)
	assert.Equal(t, errs.Cache, wantErr.Kind)
}

func TestUpdateFormulaeFetchesAndCaches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("If-None-Match"))
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(sampleFormulaBody))
	}))
	defer srv.Close()

	c, cfg := newTestClient(t)
	c.client = srv.Client()

	changed, err := c.updateFromURL(srv.URL, cfg.FormulaeCachePath(), func(v *validators) (string, string) {
		return v.FormulaETag, v.FormulaLastModified
	}, func(v *validators, etag, lastMod string) { v.FormulaETag, v.FormulaLastModified = etag, lastMod })
	require.NoError(t, err)
	assert.True(t, changed)

	formulae, err := c.LoadFormulae()
	require.NoError(t, err)
	require.Contains(t, formulae, "jq")
	assert.Equal(t, "1.7", formulae["jq"].Version)
	assert.Equal(t, []string{"oniguruma"}, formulae["jq"].Dependencies)
	assert.Equal(t, "abc", formulae["jq"].Bottles["arm64_sonoma"].SHA256)
}

func TestUpdateFormulaeConditionalNotModified(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(sampleFormulaBody))
	}))
	defer srv.Close()

	c, cfg := newTestClient(t)
	c.client = srv.Client()

	getSet := func(v *validators) (string, string) { return v.FormulaETag, v.FormulaLastModified }
	setSet := func(v *validators, etag, lastMod string) { v.FormulaETag, v.FormulaLastModified = etag, lastMod }

	changed, err := c.updateFromURL(srv.URL, cfg.FormulaeCachePath(), getSet, setSet)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = c.updateFromURL(srv.URL, cfg.FormulaeCachePath(), getSet, setSet)
	require.NoError(t, err)
	assert.False(t, changed, "second request must be a 304")
	assert.Equal(t, 2, requests)
}

func TestLoadCasksUninitialized(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.LoadCasks()
	require.Error(t, err)
}
