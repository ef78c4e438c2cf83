// Package symlink creates and removes the symlinks that mirror a Cellar
// install into a prefix's bin/lib/include/share/etc/sbin directories
// (spec §4.7). Conflict detection and ownership checks always inspect the
// symlink's target, never file content.
package symlink

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/layout"
)

// CreateSymlinks mirrors {cellar}/{name}/{version}/{subdir}/* under
// {prefix}/{subdir}/* for each subdir present in the Cellar install. On a
// conflict with a foreign entry, all symlinks created earlier in this call
// are rolled back and an Install error is returned. dryRun computes the
// list without touching the filesystem.
func CreateSymlinks(l *layout.Layout, name, version string, dryRun bool) ([]string, error) {
	cellarEntry := l.CellarEntry(name, version)

	var created []string
	for _, subdir := range layout.Subdirs {
		cellarSubdir := filepath.Join(cellarEntry, subdir)
		entries, err := os.ReadDir(cellarSubdir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errs.Wrap(errs.Install, "failed to read Cellar subdirectory", err)
		}

		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, entry := range entries {
			cellarTarget := filepath.Join(cellarSubdir, entry.Name())
			linkPath := filepath.Join(l.SubdirPath(subdir), entry.Name())

			resolved, isSymlink := resolveLink(linkPath)
			switch {
			case !exists(linkPath):
				if dryRun {
					created = append(created, linkPath)
					continue
				}
				if err := os.MkdirAll(filepath.Dir(linkPath), 0755); err != nil {
					rollback(created)
					return nil, errs.Wrap(errs.Install, "failed to create prefix subdirectory", err)
				}
				if err := os.Symlink(cellarTarget, linkPath); err != nil {
					rollback(created)
					return nil, errs.Wrap(errs.Install, "failed to create symlink", err)
				}
				created = append(created, linkPath)

			case isSymlink && resolvesInto(resolved, cellarEntry):
				// Idempotent: already correctly linked, not counted as newly created.
				continue

			default:
				rollback(created)
				return nil, errs.New(errs.Install, "symlink conflict at "+linkPath)
			}
		}
	}

	return created, nil
}

// RemoveSymlinks removes, for each would-be symlink mirroring the given
// Cellar install, only those that currently resolve into it. Foreign or
// missing symlinks are skipped silently. Returns the paths actually
// removed.
func RemoveSymlinks(l *layout.Layout, name, version string, dryRun bool) ([]string, error) {
	cellarEntry := l.CellarEntry(name, version)

	var removed []string
	for _, subdir := range layout.Subdirs {
		cellarSubdir := filepath.Join(cellarEntry, subdir)
		entries, err := os.ReadDir(cellarSubdir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errs.Wrap(errs.Install, "failed to read Cellar subdirectory", err)
		}

		for _, entry := range entries {
			linkPath := filepath.Join(l.SubdirPath(subdir), entry.Name())

			resolved, isSymlink := resolveLink(linkPath)
			if !isSymlink || !resolvesInto(resolved, cellarEntry) {
				continue
			}

			if !dryRun {
				if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
					return nil, errs.Wrap(errs.Install, "failed to remove symlink", err)
				}
			}
			removed = append(removed, linkPath)
		}
	}

	return removed, nil
}

func rollback(created []string) {
	for _, path := range created {
		os.Remove(path)
	}
}

func exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// resolveLink returns the symlink's target (resolved to an absolute,
// cleaned path) and whether linkPath is in fact a symlink.
func resolveLink(linkPath string) (string, bool) {
	info, err := os.Lstat(linkPath)
	if err != nil || info.Mode()&os.ModeSymlink == 0 {
		return "", false
	}
	target, err := os.Readlink(linkPath)
	if err != nil {
		return "", true
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(linkPath), target)
	}
	return filepath.Clean(target), true
}

// resolvesInto reports whether resolved is cellarEntry itself or lies
// beneath it, using path comparison only (never file content).
func resolvesInto(resolved, cellarEntry string) bool {
	cellarEntry = filepath.Clean(cellarEntry)
	resolved = filepath.Clean(resolved)
	if resolved == cellarEntry {
		return true
	}
	rel, err := filepath.Rel(cellarEntry, resolved)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
