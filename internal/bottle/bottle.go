// Package bottle implements the transport for one (url, sha256) bottle
// descriptor (spec §4.5): anonymous token acquisition against a GHCR-style
// registry, streamed download, checksum verification, and gzip+tar
// extraction. It never queries a manifest index — the concrete descriptor
// already names the blob.
package bottle

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/plyght/wax/internal/errs"
)

// registryHost is the only registry host wax currently speaks to. A URL
// on a different host is downloaded unauthenticated.
const registryHost = "ghcr.io"

// ProgressFunc is called with cumulative bytes written as a download
// streams to disk. May be nil.
type ProgressFunc func(written int64)

// Fetcher downloads and verifies one bottle into a caller-supplied
// working directory.
type Fetcher struct {
	client *http.Client
}

// NewFetcher builds a Fetcher using the given HTTP client (expected to be
// wax's SSRF-hardened client).
func NewFetcher(client *http.Client) *Fetcher {
	return &Fetcher{client: client}
}

// Download streams bottleURL into a new temp file under dir, verifies it
// against sha256, and returns the temp file's path. The temp file is
// removed before returning a non-nil error.
func (f *Fetcher) Download(dir, bottleURL, sha256Hex string, progress ProgressFunc) (string, error) {
	repo, authNeeded := repoFromURL(bottleURL)

	req, err := http.NewRequest(http.MethodGet, bottleURL, nil)
	if err != nil {
		return "", errs.Wrap(errs.Http, "failed to build bottle request", err)
	}

	if authNeeded {
		token, err := f.anonymousToken(repo)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errs.Wrap(errs.Http, "bottle download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.New(errs.Http, fmt.Sprintf("bottle download returned %d", resp.StatusCode))
	}

	tmp, err := os.CreateTemp(dir, "bottle-*.tar.gz")
	if err != nil {
		return "", errs.Wrap(errs.Io, "failed to create temp file", err)
	}
	tmpPath := tmp.Name()

	hasher := sha256.New()
	writer := io.MultiWriter(tmp, hasher)

	var written int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := writer.Write(buf[:n]); err != nil {
				tmp.Close()
				os.Remove(tmpPath)
				return "", errs.Wrap(errs.Io, "failed to write bottle to disk", err)
			}
			written += int64(n)
			if progress != nil {
				progress(written)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return "", errs.Wrap(errs.Io, "failed to stream bottle body", readErr)
		}
	}
	tmp.Close()

	actual := hex.EncodeToString(hasher.Sum(nil))
	if !strings.EqualFold(actual, sha256Hex) {
		os.Remove(tmpPath)
		return "", errs.Mismatch(filepath.Base(bottleURL), sha256Hex, actual)
	}

	return tmpPath, nil
}

type ghcrTokenResponse struct {
	Token string `json:"token"`
}

func (f *Fetcher) anonymousToken(repo string) (string, error) {
	tokenURL := fmt.Sprintf("https://%s/token?service=%s&scope=repository:%s:pull", registryHost, registryHost, repo)

	resp, err := f.client.Get(tokenURL)
	if err != nil {
		return "", errs.Wrap(errs.Http, "token request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.New(errs.Http, fmt.Sprintf("token request returned %d", resp.StatusCode))
	}

	var tokenResp ghcrTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", errs.Wrap(errs.Json, "failed to parse token response", err)
	}
	if tokenResp.Token == "" {
		return "", errs.New(errs.Http, "empty token in registry response")
	}
	return tokenResp.Token, nil
}

// repoFromURL derives the "owner/repo/name"-style scope for the token
// request from a blob URL of the form
// https://ghcr.io/v2/{repo}/blobs/sha256:{digest}, and reports whether the
// URL is on the registry host at all (non-registry URLs skip auth).
func repoFromURL(rawURL string) (repo string, needsAuth bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host != registryHost {
		return "", false
	}

	const marker = "/v2/"
	idx := strings.Index(u.Path, marker)
	if idx == -1 {
		return "", true
	}
	rest := u.Path[idx+len(marker):]
	rest = strings.TrimSuffix(rest, "/")

	if blobsIdx := strings.Index(rest, "/blobs/"); blobsIdx != -1 {
		rest = rest[:blobsIdx]
	} else if manifestsIdx := strings.Index(rest, "/manifests/"); manifestsIdx != -1 {
		rest = rest[:manifestsIdx]
	}
	return rest, true
}

// Extract unpacks a gzip+tar bottle archive into a fresh temp directory
// under dir and returns the path to the top-level "{name}/{version}/"
// directory inside it. Absolute paths and ".." entries are rejected.
func Extract(archivePath, name, version, dir string) (string, error) {
	extractDir, err := os.MkdirTemp(dir, "extract-*")
	if err != nil {
		return "", errs.Wrap(errs.Io, "failed to create extraction directory", err)
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return "", errs.Wrap(errs.Io, "failed to open bottle archive", err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return "", errs.Wrap(errs.Io, "failed to open gzip stream", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errs.Wrap(errs.Io, "failed to read tar entry", err)
		}

		target, err := safeJoin(extractDir, hdr.Name)
		if err != nil {
			return "", err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return "", errs.Wrap(errs.Io, "failed to create directory from archive", err)
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return "", errs.Wrap(errs.Io, "failed to create parent directory", err)
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return "", errs.Wrap(errs.Io, "failed to create file from archive", err)
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return "", errs.Wrap(errs.Io, "failed to write file from archive", err)
			}
			out.Close()
		case tar.TypeSymlink:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return "", errs.Wrap(errs.Io, "failed to create parent directory", err)
			}
			if err := os.Symlink(hdr.Linkname, target); err != nil {
				return "", errs.Wrap(errs.Io, "failed to create symlink from archive", err)
			}
		}
	}

	root := filepath.Join(extractDir, name, version)
	if _, err := os.Stat(root); err != nil {
		return "", errs.New(errs.Build, fmt.Sprintf("archive missing expected %s/%s directory", name, version))
	}
	return root, nil
}

func safeJoin(base, name string) (string, error) {
	if filepath.IsAbs(name) {
		return "", errs.New(errs.Build, "archive entry has an absolute path: "+name)
	}
	cleaned := filepath.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", errs.New(errs.Build, "archive entry escapes extraction directory: "+name)
	}
	return filepath.Join(base, cleaned), nil
}
