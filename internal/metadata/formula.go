// Package metadata fetches and caches the Homebrew formula and cask
// indexes (spec §4.3). It owns the data model both the index entries and
// the resolver (C4), bottle transport (C5) and orchestrator (C9) consume.
package metadata

import "github.com/plyght/wax/internal/errs"

// AllTag is the sentinel platform-tag key meaning "works on every platform".
const AllTag = "all"

// BottleFor returns the concrete bottle entry for the host platform tag,
// falling back to the `all` sentinel, or errs.BottleNotAvailable naming
// the host tag if neither is present (spec §4.2/§4.5).
func BottleFor(bottles map[string]BottleEntry, hostTag string) (BottleEntry, error) {
	if entry, ok := bottles[hostTag]; ok {
		return entry, nil
	}
	if entry, ok := bottles[AllTag]; ok {
		return entry, nil
	}
	return BottleEntry{}, errs.Unavailable(hostTag)
}

// BottleEntry is one platform's bottle descriptor for a formula, as found
// under a formula's "bottle.stable.files" map, keyed by platform tag
// (spec §6: e.g. "arm64_sonoma", "x86_64_linux", or "all").
type BottleEntry struct {
	URL    string `json:"url"`
	SHA256 string `json:"sha256"`
}

// Formula is the subset of a formula.json entry wax needs: identity,
// version, runtime/build dependencies, and per-platform bottles.
type Formula struct {
	Name         string                 `json:"name"`
	FullName     string                 `json:"full_name"`
	Version      string                 `json:"version"`
	Dependencies []string               `json:"dependencies"`
	BuildDeps    []string               `json:"build_dependencies"`
	Bottles      map[string]BottleEntry `json:"bottles"`
}

// Cask is the subset of a cask.json entry wax needs.
type Cask struct {
	Token   string `json:"token"`
	Version string `json:"version"`
	URL     string `json:"url"`
	SHA256  string `json:"sha256"`
}

// rawFormula mirrors the upstream formulae.brew.sh formula.json shape,
// which nests bottle files under bottle.stable.files rather than the flat
// map wax's Formula carries.
type rawFormula struct {
	Name         string   `json:"name"`
	FullName     string   `json:"full_name"`
	Versions     struct {
		Stable string `json:"stable"`
	} `json:"versions"`
	Dependencies     []string `json:"dependencies"`
	BuildDependencies []string `json:"build_dependencies"`
	Bottle           struct {
		Stable struct {
			Files map[string]struct {
				URL    string `json:"url"`
				SHA256 string `json:"sha256"`
			} `json:"files"`
		} `json:"stable"`
	} `json:"bottle"`
}

func (r rawFormula) toFormula() Formula {
	bottles := make(map[string]BottleEntry, len(r.Bottle.Stable.Files))
	for tag, f := range r.Bottle.Stable.Files {
		bottles[tag] = BottleEntry{URL: f.URL, SHA256: f.SHA256}
	}
	return Formula{
		Name:         r.Name,
		FullName:     r.FullName,
		Version:      r.Versions.Stable,
		Dependencies: r.Dependencies,
		BuildDeps:    r.BuildDependencies,
		Bottles:      bottles,
	}
}

type rawCask struct {
	Token   string `json:"token"`
	Version string `json:"version"`
	URL     string `json:"url"`
	SHA256  string `json:"sha256"`
}

func (r rawCask) toCask() Cask {
	return Cask{Token: r.Token, Version: r.Version, URL: r.URL, SHA256: r.SHA256}
}
