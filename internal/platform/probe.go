// Package platform detects the host OS/architecture, computes the
// Homebrew-compatible bottle platform tag for it, and locates the
// Homebrew-style install prefix (spec §4.2). Detection is cached for the
// process lifetime rather than stored in a global mutable singleton
// (SPEC_FULL.md's Global state note): callers hold a *Probe value.
package platform

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/plyght/wax/internal/errs"
)

// macOSCodenames maps a macOS major version to its upstream bottle
// codename. Homebrew's own platform tags are named after macOS release
// codenames, not version numbers; this table is not derived from any one
// teacher file (the teacher hardcodes a single arm64_sonoma/sonoma pair)
// but follows the flat-switch idiom used throughout the pack for this kind
// of fixed lookup table.
var macOSCodenames = map[int]string{
	15: "sequoia",
	14: "sonoma",
	13: "ventura",
	12: "monterey",
	11: "big_sur",
}

// Probe caches platform detection results for the process lifetime.
type Probe struct {
	mu  sync.Mutex
	tag string
}

// NewProbe creates an uninitialized Probe. DetectTag performs the actual
// detection on first call and caches the result.
func NewProbe() *Probe {
	return &Probe{}
}

// DetectTag returns the bottle platform tag for the current host, e.g.
// "arm64_sonoma", "sonoma", "x86_64_linux", "aarch64_linux".
func (p *Probe) DetectTag() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tag != "" {
		return p.tag, nil
	}

	tag, err := detectTag()
	if err != nil {
		return "", err
	}

	p.tag = tag
	return tag, nil
}

func detectTag() (string, error) {
	switch runtime.GOOS {
	case "darwin":
		codename, err := macOSCodename()
		if err != nil {
			return "", err
		}
		if runtime.GOARCH == "arm64" {
			return "arm64_" + codename, nil
		}
		return codename, nil
	case "linux":
		switch runtime.GOARCH {
		case "arm64":
			return "aarch64_linux", nil
		default:
			return "x86_64_linux", nil
		}
	default:
		return "", errs.Gated(fmt.Sprintf("unsupported platform: %s/%s", runtime.GOOS, runtime.GOARCH))
	}
}

// macOSCodename shells out to `sw_vers -productVersion` and maps the major
// version to its bottle codename.
func macOSCodename() (string, error) {
	out, err := exec.Command("sw_vers", "-productVersion").Output()
	if err != nil {
		return "", errs.Wrap(errs.HomebrewNotFound, "failed to determine macOS version", err)
	}

	version := strings.TrimSpace(string(out))
	major, _, _ := strings.Cut(version, ".")
	majorNum, err := strconv.Atoi(major)
	if err != nil {
		return "", errs.New(errs.HomebrewNotFound, "could not parse macOS version: "+version)
	}

	codename, ok := macOSCodenames[majorNum]
	if !ok {
		return "", errs.New(errs.HomebrewNotFound, fmt.Sprintf("unrecognized macOS major version: %d", majorNum))
	}
	return codename, nil
}

// HomebrewPrefix locates the Homebrew-style prefix, trying `brew --prefix`
// first and falling back to the well-known per-platform defaults.
func HomebrewPrefix() (string, error) {
	if out, err := exec.Command("brew", "--prefix").Output(); err == nil {
		prefix := strings.TrimSpace(string(out))
		if prefix != "" {
			return prefix, nil
		}
	}

	for _, candidate := range fallbackPrefixes() {
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}
	}

	return "", errs.New(errs.HomebrewNotFound, "no Homebrew prefix found")
}

func fallbackPrefixes() []string {
	switch runtime.GOOS {
	case "darwin":
		if runtime.GOARCH == "arm64" {
			return []string{"/opt/homebrew"}
		}
		return []string{"/usr/local"}
	case "linux":
		return []string{"/home/linuxbrew/.linuxbrew"}
	default:
		return nil
	}
}
