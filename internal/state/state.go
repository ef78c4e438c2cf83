package state

import (
	"encoding/json"
	"os"

	"github.com/plyght/wax/internal/config"
	"github.com/plyght/wax/internal/errs"
)

// InstalledPackage is the persistent record for one installed formula
// (spec §3). Keys are unique by name: one installed version per name at a
// time in this core.
type InstalledPackage struct {
	Name        string   `json:"name"`
	Version     string   `json:"version"`
	PlatformTag string   `json:"platform_tag"`
	InstalledAt int64    `json:"installed_at"` // Unix timestamp
	Mode        string   `json:"mode"`         // "user" or "global"
	Symlinks    []string `json:"symlinks"`     // owned symlink paths
}

// table is the on-disk shape of installed.json: a keyed map, not an array,
// so lookups by name are O(1) without an index.
type table struct {
	Installed map[string]InstalledPackage `json:"installed"`
}

// Store is the single source of truth for "is X installed?" (spec §4.8).
// The presence of a Cellar directory alone does not imply installed.
type Store struct {
	path     string
	lockPath string
}

// New creates a Store backed by the formula install-state file.
func New(cfg *config.Config) *Store {
	return &Store{path: cfg.InstalledFormulaePath(), lockPath: cfg.InstalledFormulaePath() + ".lock"}
}

// NewCasks creates a Store backed by the cask install-state file (macOS only).
func NewCasks(cfg *config.Config) *Store {
	return &Store{path: cfg.InstalledCasksPath(), lockPath: cfg.InstalledCasksPath() + ".lock"}
}

// Load reads the full installed-package table, returning an empty map if
// the file does not yet exist.
func (s *Store) Load() (map[string]InstalledPackage, error) {
	lock := NewFileLock(s.lockPath)
	if err := lock.LockShared(); err != nil {
		return nil, err
	}
	defer lock.Unlock()

	return s.loadLocked()
}

func (s *Store) loadLocked() (map[string]InstalledPackage, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]InstalledPackage{}, nil
		}
		return nil, errs.Wrap(errs.Io, "failed to read install state", err)
	}

	var t table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errs.Wrap(errs.Json, "failed to parse install state", err)
	}
	if t.Installed == nil {
		t.Installed = map[string]InstalledPackage{}
	}
	return t.Installed, nil
}

func (s *Store) saveLocked(installed map[string]InstalledPackage) error {
	data, err := json.MarshalIndent(table{Installed: installed}, "", "  ")
	if err != nil {
		return errs.Wrap(errs.Json, "failed to marshal install state", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errs.Wrap(errs.Io, "failed to write install state", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errs.Wrap(errs.Io, "failed to rename install state", err)
	}
	return nil
}

// Insert replaces any existing entry with the same name.
func (s *Store) Insert(pkg InstalledPackage) error {
	lock := NewFileLock(s.lockPath)
	if err := lock.LockExclusive(); err != nil {
		return err
	}
	defer lock.Unlock()

	installed, err := s.loadLocked()
	if err != nil {
		return err
	}
	installed[pkg.Name] = pkg
	return s.saveLocked(installed)
}

// Remove deletes the entry for name, returning it, or errs.NotInstalled if
// absent.
func (s *Store) Remove(name string) (InstalledPackage, error) {
	lock := NewFileLock(s.lockPath)
	if err := lock.LockExclusive(); err != nil {
		return InstalledPackage{}, err
	}
	defer lock.Unlock()

	installed, err := s.loadLocked()
	if err != nil {
		return InstalledPackage{}, err
	}

	pkg, ok := installed[name]
	if !ok {
		return InstalledPackage{}, errs.NotInstalledName(name)
	}
	delete(installed, name)
	if err := s.saveLocked(installed); err != nil {
		return InstalledPackage{}, err
	}
	return pkg, nil
}

// List returns every installed package, in no particular order.
func (s *Store) List() ([]InstalledPackage, error) {
	installed, err := s.Load()
	if err != nil {
		return nil, err
	}
	out := make([]InstalledPackage, 0, len(installed))
	for _, pkg := range installed {
		out = append(out, pkg)
	}
	return out, nil
}

// DependentsOf scans the installed set for entries whose resolved
// dependency set (from the formula index) contains name. deps maps a
// formula name to its runtime dependency names, mirroring the shape the
// resolver (C4) already holds. This is the O(state × avg-deps) linear scan
// the design notes describe; no index is maintained (see Open Question
// decisions in DESIGN.md).
func (s *Store) DependentsOf(name string, deps map[string][]string) ([]string, error) {
	installed, err := s.Load()
	if err != nil {
		return nil, err
	}

	var dependents []string
	for candidate := range installed {
		for _, dep := range deps[candidate] {
			if dep == name {
				dependents = append(dependents, candidate)
				break
			}
		}
	}
	return dependents, nil
}
