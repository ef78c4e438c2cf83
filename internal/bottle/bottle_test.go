package bottle

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyght/wax/internal/errs"
)

func buildBottleArchive(t *testing.T, name, version string, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)

	for rel, content := range files {
		hdr := &tar.Header{
			Name: filepath.Join(name, version, rel),
			Mode: 0755,
			Size: int64(len(content)),
		}
		require.NoError(t, tw.WriteHeader(hdr))
		_, err := tw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return buf.Bytes()
}

func TestDownloadAndVerify(t *testing.T) {
	archive := buildBottleArchive(t, "tree", "2.2.1", map[string]string{"bin/tree": "#!/bin/sh\n"})
	sum := sha256.Sum256(archive)
	sha := hex.EncodeToString(sum[:])

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	fetcher := NewFetcher(srv.Client())
	dir := t.TempDir()

	path, err := fetcher.Download(dir, srv.URL+"/tree.tar.gz", sha, nil)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestDownloadChecksumMismatch(t *testing.T) {
	archive := buildBottleArchive(t, "tree", "2.2.1", map[string]string{"bin/tree": "x"})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(archive)
	}))
	defer srv.Close()

	fetcher := NewFetcher(srv.Client())
	dir := t.TempDir()

	path, err := fetcher.Download(dir, srv.URL+"/tree.tar.gz", "0000000000000000000000000000000000000000000000000000000000000000", nil)
	require.Error(t, err)

	var wantErr *errs.Error
	require.ErrorAs(t, err, &wantErr)
	assert.Equal(t, errs.ChecksumMismatch, wantErr.Kind)

	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries, "temp file must be cleaned up on checksum mismatch")
	_ = path
}

func TestExtractLocatesTopLevelDir(t *testing.T) {
	archive := buildBottleArchive(t, "tree", "2.2.1", map[string]string{"bin/tree": "x", "share/doc/tree/README": "hi"})

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "tree.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, archive, 0644))

	root, err := Extract(archivePath, "tree", "2.2.1", dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, "bin", "tree"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestExtractRejectsPathTraversal(t *testing.T) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	hdr := &tar.Header{Name: "../../etc/passwd", Mode: 0644, Size: 1}
	require.NoError(t, tw.WriteHeader(hdr))
	_, err := tw.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	dir := t.TempDir()
	archivePath := filepath.Join(dir, "evil.tar.gz")
	require.NoError(t, os.WriteFile(archivePath, buf.Bytes(), 0644))

	_, err = Extract(archivePath, "evil", "1.0", dir)
	require.Error(t, err)

	var wantErr *errs.Error
	require.ErrorAs(t, err, &wantErr)
	assert.Equal(t, errs.Build, wantErr.Kind)
}

func TestRepoFromURL(t *testing.T) {
	repo, needsAuth := repoFromURL("https://ghcr.io/v2/homebrew/core/jq/blobs/sha256:abc")
	assert.True(t, needsAuth)
	assert.Equal(t, "homebrew/core/jq", repo)

	_, needsAuth = repoFromURL("https://example.com/some/file.tar.gz")
	assert.False(t, needsAuth)
}
