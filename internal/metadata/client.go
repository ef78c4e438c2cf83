package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/plyght/wax/internal/config"
	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/httputil"
	"github.com/plyght/wax/internal/progress"
)

// FormulaIndexURL and CaskIndexURL are the two upstream endpoints wax
// mirrors locally (spec §6). Conditional GET keeps a warm update to a
// single round trip when nothing has changed upstream.
const (
	FormulaIndexURL = "https://formulae.brew.sh/api/formula.json"
	CaskIndexURL    = "https://formulae.brew.sh/api/cask.json"
)

// validators holds the conditional-GET state for both indexes, persisted
// at Config.MetadataPath so a cold process can still send If-None-Match.
type validators struct {
	FormulaETag         string `json:"formula_etag"`
	FormulaLastModified string `json:"formula_last_modified"`
	CaskETag            string `json:"cask_etag"`
	CaskLastModified    string `json:"cask_last_modified"`
}

// Client fetches and caches the formula and cask indexes.
type Client struct {
	cfg    *config.Config
	client *http.Client
}

// NewClient builds a metadata Client using wax's SSRF-hardened transport.
// Compression is enabled here (unlike the orchestrator's bottle-download
// client) so the Transport negotiates Accept-Encoding itself and
// transparently decompresses the response: the index is tens of MB of JSON
// (spec §1/§6), and a manually-set Accept-Encoding header disables Go's
// automatic decompression, which would otherwise hand raw gzip bytes to
// json.Unmarshal.
func NewClient(cfg *config.Config) *Client {
	opts := httputil.DefaultOptions()
	opts.EnableCompression = true
	opts.ResponseHeaderTimeout = config.GetAPITimeout()
	httpClient := httputil.NewSecureClient(opts)
	// The index body streams with no total deadline; the wait for the
	// response headers is bounded by GetAPITimeout.
	httpClient.Timeout = 0
	return &Client{cfg: cfg, client: httpClient}
}

// UpdateFormulae performs a conditional GET of the formula index,
// replacing the cached body only on a 200. Returns true if the body
// changed (a 200 was received), false on a 304.
func (c *Client) UpdateFormulae() (bool, error) {
	return c.updateFromURL(FormulaIndexURL, c.cfg.FormulaeCachePath(),
		func(v *validators) (string, string) { return v.FormulaETag, v.FormulaLastModified },
		func(v *validators, etag, lastMod string) { v.FormulaETag, v.FormulaLastModified = etag, lastMod },
	)
}

// UpdateCasks performs a conditional GET of the cask index, the same way
// UpdateFormulae does for formulae.
func (c *Client) UpdateCasks() (bool, error) {
	return c.updateFromURL(CaskIndexURL, c.cfg.CasksCachePath(),
		func(v *validators) (string, string) { return v.CaskETag, v.CaskLastModified },
		func(v *validators, etag, lastMod string) { v.CaskETag, v.CaskLastModified = etag, lastMod },
	)
}

// updateFromURL is the shared conditional-GET implementation; url and
// cachePath are parameterized so tests can point it at an httptest server.
func (c *Client) updateFromURL(url, cachePath string, get func(*validators) (string, string), set func(*validators, string, string)) (bool, error) {
	v, err := c.loadValidators()
	if err != nil {
		return false, err
	}

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return false, errs.Wrap(errs.Http, "failed to build metadata request", err)
	}
	req.Header.Set("Accept", "application/json")

	etag, lastMod := get(v)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return false, errs.Wrap(errs.Http, "metadata fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, errs.New(errs.Http, fmt.Sprintf("metadata fetch returned %d for %s", resp.StatusCode, url))
	}

	// The formula index alone runs tens of MB of JSON; show a byte
	// progress bar on the same fetch path the teacher uses for bottle
	// downloads, rather than leaving `wax update` silent for the whole
	// round trip.
	reader := resp.Body
	if progress.ShouldShowProgress() && resp.ContentLength > 0 {
		pw := progress.NewWriter(io.Discard, resp.ContentLength, os.Stdout)
		defer pw.Finish()
		reader = io.NopCloser(io.TeeReader(resp.Body, pw))
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return false, errs.Wrap(errs.Io, "failed to read metadata response", err)
	}

	if err := writeAtomic(cachePath, body); err != nil {
		return false, err
	}

	set(v, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"))
	if err := c.saveValidators(v); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Client) loadValidators() (*validators, error) {
	data, err := os.ReadFile(c.cfg.MetadataPath())
	if err != nil {
		if os.IsNotExist(err) {
			return &validators{}, nil
		}
		return nil, errs.Wrap(errs.Io, "failed to read cache validators", err)
	}
	var v validators
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errs.Wrap(errs.Json, "failed to parse cache validators", err)
	}
	return &v, nil
}

func (c *Client) saveValidators(v *validators) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.Wrap(errs.Json, "failed to marshal cache validators", err)
	}
	return writeAtomic(c.cfg.MetadataPath(), data)
}

// LoadFormulae reads the cached formula index without touching the
// network. Returns errs.Cache if the index has never been fetched.
func (c *Client) LoadFormulae() (map[string]Formula, error) {
	data, err := readCache(c.cfg.FormulaeCachePath())
	if err != nil {
		return nil, err
	}

	var raws []rawFormula
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errs.Wrap(errs.Json, "failed to parse formula index", err)
	}

	formulae := make(map[string]Formula, len(raws))
	for _, r := range raws {
		f := r.toFormula()
		formulae[f.Name] = f
	}
	return formulae, nil
}

// LoadCasks reads the cached cask index without touching the network.
// Returns errs.Cache if the index has never been fetched.
func (c *Client) LoadCasks() (map[string]Cask, error) {
	data, err := readCache(c.cfg.CasksCachePath())
	if err != nil {
		return nil, err
	}

	var raws []rawCask
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, errs.Wrap(errs.Json, "failed to parse cask index", err)
	}

	casks := make(map[string]Cask, len(raws))
	for _, r := range raws {
		casks[r.Token] = r.toCask()
	}
	return casks, nil
}

func readCache(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.Cache, "not initialized, run `wax update`")
		}
		return nil, errs.Wrap(errs.Io, "failed to read cache", err)
	}
	return data, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errs.Wrap(errs.Io, "failed to create cache directory", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.Wrap(errs.Io, "failed to write cache file", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.Io, "failed to rename cache file", err)
	}
	return nil
}
