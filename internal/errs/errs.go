// Package errs defines the closed taxonomy of failure kinds returned by
// every fallible core operation in wax. Every public function in the core
// packages (metadata, resolver, bottle, layout, symlink, state,
// orchestrator, lockfile, cask) returns an error built from this package,
// so callers can recover structured context with errors.As without string
// matching.
package errs

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// Kind is the closed set of failure kinds.
type Kind int

const (
	Http Kind = iota
	Json
	Io
	FormulaNotFound
	CaskNotFound
	Cache
	HomebrewNotFound
	ChecksumMismatch
	BottleNotAvailable
	DependencyCycle
	Install
	NotInstalled
	Lockfile
	PlatformNotSupported
	Build
	Parse
	Tap
)

func (k Kind) String() string {
	switch k {
	case Http:
		return "http"
	case Json:
		return "json"
	case Io:
		return "io"
	case FormulaNotFound:
		return "formula-not-found"
	case CaskNotFound:
		return "cask-not-found"
	case Cache:
		return "cache"
	case HomebrewNotFound:
		return "homebrew-not-found"
	case ChecksumMismatch:
		return "checksum-mismatch"
	case BottleNotAvailable:
		return "bottle-not-available"
	case DependencyCycle:
		return "dependency-cycle"
	case Install:
		return "install"
	case NotInstalled:
		return "not-installed"
	case Lockfile:
		return "lockfile"
	case PlatformNotSupported:
		return "platform-not-supported"
	case Build:
		return "build"
	case Parse:
		return "parse"
	case Tap:
		return "tap"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by wax's core operations. Name,
// Path, Expected and Actual are filled in where the Kind calls for them
// (§4.1 of the design) so a caller can render a user message without
// reaching back into the operation that produced the error.
type Error struct {
	Kind     Kind
	Message  string
	Name     string // formula/cask/package name, where applicable
	Path     string // filesystem path, where applicable
	Expected string // expected checksum, where applicable
	Actual   string // actual checksum, where applicable
	Err      error  // wrapped cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case FormulaNotFound:
		return fmt.Sprintf("formula not found: %s", e.Name)
	case CaskNotFound:
		return fmt.Sprintf("cask not found: %s", e.Name)
	case ChecksumMismatch:
		return fmt.Sprintf("checksum mismatch for %s: expected %s, got %s", e.Name, e.Expected, e.Actual)
	case BottleNotAvailable:
		return fmt.Sprintf("no bottle available for platform %s", e.Name)
	case DependencyCycle:
		return fmt.Sprintf("dependency cycle: %s", e.Message)
	case NotInstalled:
		return fmt.Sprintf("not installed: %s", e.Name)
	case PlatformNotSupported:
		return fmt.Sprintf("not supported on this platform: %s", e.Message)
	case HomebrewNotFound:
		return "homebrew prefix not found"
	default:
		if e.Message != "" {
			return fmt.Sprintf("%s: %s", e.Kind, e.Message)
		}
		if e.Err != nil {
			return fmt.Sprintf("%s: %s", e.Kind, e.Err)
		}
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Suggestion returns an actionable remediation string for kinds that have
// one, or the empty string otherwise.
func (e *Error) Suggestion() string {
	switch e.Kind {
	case ChecksumMismatch:
		return "retry the install or clear the download cache"
	case DependencyCycle:
		return "the formula metadata may be corrupt, try `wax update`"
	case BottleNotAvailable:
		return "this formula may need to be built from source, or is unavailable on this platform"
	case HomebrewNotFound:
		return "install Homebrew, or pass --user to install into ~/.local/wax"
	case Cache:
		return "run `wax update` to refresh the metadata cache"
	case Install:
		return "check file permissions at the install prefix"
	default:
		return ""
	}
}

// New constructs an *Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an *Error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// NotFoundFormula builds a FormulaNotFound error.
func NotFoundFormula(name string) *Error {
	return &Error{Kind: FormulaNotFound, Name: name}
}

// NotFoundCask builds a CaskNotFound error.
func NotFoundCask(name string) *Error {
	return &Error{Kind: CaskNotFound, Name: name}
}

// Mismatch builds a ChecksumMismatch error.
func Mismatch(name, expected, actual string) *Error {
	return &Error{Kind: ChecksumMismatch, Name: name, Expected: expected, Actual: actual}
}

// Unavailable builds a BottleNotAvailable error naming the host platform tag.
func Unavailable(platformTag string) *Error {
	return &Error{Kind: BottleNotAvailable, Name: platformTag}
}

// Cycle builds a DependencyCycle error from the loop's path, e.g. "A -> B -> C -> A".
func Cycle(path string) *Error {
	return &Error{Kind: DependencyCycle, Message: path}
}

// NotInstalledName builds a NotInstalled error.
func NotInstalledName(name string) *Error {
	return &Error{Kind: NotInstalled, Name: name}
}

// Gated builds a PlatformNotSupported error for a named feature.
func Gated(feature string) *Error {
	return &Error{Kind: PlatformNotSupported, Message: feature}
}

// Classify maps a generic error (often a stdlib network error) onto a
// Kind, mirroring the teacher's classifyError. An error that already wraps
// an *Error keeps its Kind; network errors map to Http; anything else maps
// to Io.
func Classify(err error) Kind {
	if err == nil {
		return Io
	}

	var existing *Error
	if errors.As(err, &existing) {
		return existing.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Http
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Http
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return Http
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return Http
	}

	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return Http
	}

	return Io
}
