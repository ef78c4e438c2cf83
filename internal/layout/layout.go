// Package layout implements install-mode selection and the pure path
// derivations from an install prefix (spec §4.6): Cellar, bin, lib,
// include, share, etc and sbin all derive from one root.
package layout

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/platform"
)

// Mode selects between a user-local and a system-global install prefix.
type Mode int

const (
	User Mode = iota
	Global
)

func (m Mode) String() string {
	if m == Global {
		return "global"
	}
	return "user"
}

// Subdirs are the Cellar-mirrored directories under a prefix that the
// symlink manager (C7) operates on.
var Subdirs = []string{"bin", "lib", "include", "share", "etc", "sbin"}

// Layout holds the resolved prefix and the pure paths derived from it.
type Layout struct {
	Prefix string
}

// Select resolves the install mode per §4.6: --user forces User, --global
// forces Global, both is a usage error, and neither triggers Detect.
func Select(user, global bool) (Mode, error) {
	if user && global {
		return 0, errs.New(errs.Install, "--user and --global are mutually exclusive")
	}
	if user {
		return User, nil
	}
	if global {
		return Global, nil
	}
	return Detect()
}

// Detect chooses Global if the global prefix is writable, else User.
func Detect() (Mode, error) {
	prefix, err := platform.HomebrewPrefix()
	if err != nil {
		return User, nil
	}
	if writable(prefix) {
		return Global, nil
	}
	return User, nil
}

// New builds a Layout for the given mode, resolving the global prefix via
// C2 when needed.
func New(mode Mode) (*Layout, error) {
	if mode == User {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errs.Wrap(errs.Install, "failed to resolve home directory", err)
		}
		return &Layout{Prefix: filepath.Join(home, ".local", "wax")}, nil
	}

	prefix, err := platform.HomebrewPrefix()
	if err != nil {
		return nil, err
	}
	return &Layout{Prefix: prefix}, nil
}

// Validate confirms the prefix is writable, creating it first if it does
// not exist, else returns errs.Install naming the prefix.
func (l *Layout) Validate() error {
	if writable(l.Prefix) {
		return nil
	}
	return errs.New(errs.Install, fmt.Sprintf("permission denied at %s", l.Prefix))
}

// writable creates path (and any missing parents) and reports whether a
// probe file can be written inside it. Directories it creates are left in
// place.
func writable(path string) bool {
	if err := os.MkdirAll(path, 0755); err != nil {
		return false
	}
	probe := filepath.Join(path, ".wax-write-test")
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

// CellarPath is the root of the versioned install tree.
func (l *Layout) CellarPath() string { return filepath.Join(l.Prefix, "Cellar") }

// CellarEntry is {cellar}/{name}/{version}.
func (l *Layout) CellarEntry(name, version string) string {
	return filepath.Join(l.CellarPath(), name, version)
}

// SubdirPath is {prefix}/{subdir}, one of layout.Subdirs.
func (l *Layout) SubdirPath(subdir string) string { return filepath.Join(l.Prefix, subdir) }

// BinPath is {prefix}/bin.
func (l *Layout) BinPath() string { return l.SubdirPath("bin") }

// LibPath is {prefix}/lib.
func (l *Layout) LibPath() string { return l.SubdirPath("lib") }

// IncludePath is {prefix}/include.
func (l *Layout) IncludePath() string { return l.SubdirPath("include") }

// SharePath is {prefix}/share.
func (l *Layout) SharePath() string { return l.SubdirPath("share") }

// EtcPath is {prefix}/etc.
func (l *Layout) EtcPath() string { return l.SubdirPath("etc") }

// SbinPath is {prefix}/sbin.
func (l *Layout) SbinPath() string { return l.SubdirPath("sbin") }
