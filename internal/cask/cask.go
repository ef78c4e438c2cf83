// Package cask gates cask operations to macOS (spec §4.11). DMG/PKG/ZIP
// installer mechanics are out of scope; this package only enforces the
// platform check every cask entry point requires before that work could
// begin.
package cask

import (
	"runtime"

	"github.com/plyght/wax/internal/errs"
)

// RequireSupported returns PlatformNotSupported on any OS other than
// macOS. The cask operations (`install --cask` and `uninstall --cask`)
// call this first.
func RequireSupported() error {
	if runtime.GOOS != "darwin" {
		return errs.Gated("cask: macOS only")
	}
	return nil
}
