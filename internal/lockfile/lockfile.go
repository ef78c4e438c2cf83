// Package lockfile implements the TOML-based wax.lock file (spec §4.10):
// a snapshot of the installed set that a future `wax sync` can reproduce.
package lockfile

import (
	"os"

	"github.com/BurntSushi/toml"

	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/state"
)

// Entry is one locked package: the exact version and bottle platform tag
// it was installed with.
type Entry struct {
	Version string `toml:"version"`
	Bottle  string `toml:"bottle"`
}

// Lockfile is the root TOML document, spec §6: `[packages]` table keyed
// by formula name.
type Lockfile struct {
	Packages map[string]Entry `toml:"packages"`
}

// Generate builds a Lockfile from the current install-state store.
func Generate(installed map[string]state.InstalledPackage) *Lockfile {
	lf := &Lockfile{Packages: make(map[string]Entry, len(installed))}
	for name, pkg := range installed {
		lf.Packages[name] = Entry{Version: pkg.Version, Bottle: pkg.PlatformTag}
	}
	return lf
}

// Save writes the lockfile atomically to path.
func Save(lf *Lockfile, path string) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return errs.Wrap(errs.Io, "failed to create lockfile", err)
	}

	enc := toml.NewEncoder(f)
	if err := enc.Encode(lf); err != nil {
		f.Close()
		os.Remove(tmp)
		return errs.Wrap(errs.Lockfile, "failed to encode lockfile", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.Io, "failed to close lockfile", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.Io, "failed to rename lockfile", err)
	}
	return nil
}

// Load parses a lockfile from path. Unknown fields are ignored by the
// TOML decoder; a package entry missing its version is rejected.
func Load(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errs.New(errs.Lockfile, "no wax.lock found in this directory")
		}
		return nil, errs.Wrap(errs.Io, "failed to read lockfile", err)
	}

	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, errs.Wrap(errs.Lockfile, "failed to parse lockfile", err)
	}

	for name, entry := range lf.Packages {
		if entry.Version == "" {
			return nil, errs.New(errs.Lockfile, "missing version for "+name)
		}
	}

	return &lf, nil
}
