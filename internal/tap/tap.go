// Package tap tracks the set of registered taps (spec's external-collaborator
// tap subsystem): a name list only. Cloning a tap's Git repository and
// merging its formulae into the resolver's formula set is out of scope here
// (spec.md's Non-goals exclude custom tap Git cloning); this package only
// persists which taps a user has registered, for `wax tap list` and for a
// future tap-cloning collaborator to read.
package tap

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/plyght/wax/internal/config"
	"github.com/plyght/wax/internal/errs"
)

type table struct {
	Taps []string `json:"taps"`
}

// Store persists the registered-tap list at Config.TapsPath.
type Store struct {
	path string
}

// New creates a Store backed by the configured taps.json.
func New(cfg *config.Config) *Store {
	return &Store{path: cfg.TapsPath()}
}

// List returns the registered taps in sorted order.
func (s *Store) List() ([]string, error) {
	taps, err := s.load()
	if err != nil {
		return nil, err
	}
	sort.Strings(taps)
	return taps, nil
}

// Add registers name, if not already present.
func (s *Store) Add(name string) error {
	taps, err := s.load()
	if err != nil {
		return err
	}
	for _, t := range taps {
		if t == name {
			return nil
		}
	}
	taps = append(taps, name)
	return s.save(taps)
}

// Remove unregisters name, returning errs.Tap if it was never registered.
func (s *Store) Remove(name string) error {
	taps, err := s.load()
	if err != nil {
		return err
	}
	out := taps[:0]
	found := false
	for _, t := range taps {
		if t == name {
			found = true
			continue
		}
		out = append(out, t)
	}
	if !found {
		return errs.New(errs.Tap, "tap not registered: "+name)
	}
	return s.save(out)
}

func (s *Store) load() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.Io, "failed to read tap list", err)
	}
	var t table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, errs.Wrap(errs.Json, "failed to parse tap list", err)
	}
	return t.Taps, nil
}

func (s *Store) save(taps []string) error {
	data, err := json.MarshalIndent(table{Taps: taps}, "", "  ")
	if err != nil {
		return errs.Wrap(errs.Json, "failed to marshal tap list", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return errs.Wrap(errs.Io, "failed to write tap list", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return errs.Wrap(errs.Io, "failed to rename tap list", err)
	}
	return nil
}
