// Package orchestrator implements the install/uninstall/upgrade/sync
// entry points (spec §4.9): plan, bounded-parallel download, then
// sequential topological application.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sync/semaphore"

	"github.com/plyght/wax/internal/bottle"
	"github.com/plyght/wax/internal/config"
	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/httputil"
	"github.com/plyght/wax/internal/layout"
	"github.com/plyght/wax/internal/lockfile"
	"github.com/plyght/wax/internal/log"
	"github.com/plyght/wax/internal/metadata"
	"github.com/plyght/wax/internal/platform"
	"github.com/plyght/wax/internal/resolver"
	"github.com/plyght/wax/internal/state"
	"github.com/plyght/wax/internal/symlink"
)

// Options controls one install/uninstall/upgrade call.
type Options struct {
	DryRun          bool
	User            bool
	Global          bool
	BuildFromSource bool

	// OnDownload, if set, is called from downloadAll's worker goroutines
	// as each package's download finishes (success or failure). Callers
	// driving a progress.Spinner can use it to report live per-package
	// status during bounded-parallel downloads; it must be safe to call
	// concurrently, since order is not guaranteed.
	OnDownload func(name string, err error)
}

// PlannedStep is one entry in an install plan: the formula name and the
// version that would be installed.
type PlannedStep struct {
	Name    string
	Version string
}

// Plan is the ordered set of installs an operation would perform. For a
// dry run this is the full return value; for a real run it precedes the
// download/apply phases.
type Plan struct {
	Steps []PlannedStep
	Mode  layout.Mode
}

// Orchestrator wires together the metadata index, install-state store and
// layout to perform full install/uninstall/upgrade/sync operations.
type Orchestrator struct {
	cfg     *config.Config
	probe   *platform.Probe
	client  *metadata.Client
	store   *state.Store
	fetcher *bottle.Fetcher
	logger  log.Logger
}

// New builds an Orchestrator from a resolved config.
func New(cfg *config.Config) *Orchestrator {
	opts := httputil.DefaultOptions()
	opts.ResponseHeaderTimeout = config.GetAPITimeout()
	httpClient := httputil.NewSecureClient(opts)
	// Bottle bodies stream with no total deadline; the wait for the
	// response headers is bounded by GetAPITimeout.
	httpClient.Timeout = 0
	return &Orchestrator{
		cfg:     cfg,
		probe:   platform.NewProbe(),
		client:  metadata.NewClient(cfg),
		store:   state.New(cfg),
		fetcher: bottle.NewFetcher(httpClient),
		logger:  log.Default(),
	}
}

type downloadResult struct {
	name         string
	version      string
	extractedDir string
	err          error
}

// Install resolves the dependency closure of each root, downloads bottles
// with bounded parallelism, and applies them in topological order.
func (o *Orchestrator) Install(ctx context.Context, roots []string, opts Options) (*Plan, error) {
	formulae, err := o.client.LoadFormulae()
	if err != nil {
		return nil, err
	}

	installed, err := o.store.Load()
	if err != nil {
		return nil, err
	}

	for _, root := range roots {
		if _, ok := formulae[root]; !ok {
			return nil, errs.NotFoundFormula(root)
		}
	}

	installedSet := make(map[string]bool, len(installed))
	for name := range installed {
		installedSet[name] = true
	}

	order, err := resolver.ResolveAll(formulae, installedSet, roots)
	if err != nil {
		return nil, err
	}

	mode, err := layout.Select(opts.User, opts.Global)
	if err != nil {
		return nil, err
	}
	l, err := layout.New(mode)
	if err != nil {
		return nil, err
	}

	plan := &Plan{Mode: mode}
	for _, name := range order {
		plan.Steps = append(plan.Steps, PlannedStep{Name: name, Version: formulae[name].Version})
	}

	if opts.DryRun {
		return plan, nil
	}

	if err := l.Validate(); err != nil {
		return nil, err
	}

	hostTag, err := o.probe.DetectTag()
	if err != nil {
		return nil, err
	}

	workDir, err := os.MkdirTemp("", "wax-install-*")
	if err != nil {
		return nil, errs.Wrap(errs.Io, "failed to create working directory", err)
	}
	defer os.RemoveAll(workDir)

	results, err := o.downloadAll(ctx, order, formulae, hostTag, workDir, opts.BuildFromSource, opts.OnDownload)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]downloadResult, len(results))
	for _, r := range results {
		byName[r.name] = r
	}

	// Apply in topological order. A failure (download or apply) only
	// blocks that package and whatever transitively depends on it; an
	// unrelated package later in order (a different root's subtree)
	// still installs. Per spec §7 this is a skip, not an abort: every
	// failed or skipped name is recorded as a diagnostic and surfaced in
	// the returned error, but the application phase keeps going.
	blocked := make(map[string]error, len(order))
	var diagnostics []error

	for _, name := range order {
		r := byName[name]
		if r.err != nil {
			blocked[name] = r.err
			diagnostics = append(diagnostics, r.err)
			o.logger.Warn("download failed", "name", name, "error", r.err)
			continue
		}

		if blockingDep := firstBlockedDependency(formulae[name].Dependencies, blocked); blockingDep != "" {
			skipErr := errs.New(errs.Install, fmt.Sprintf("skipped: dependency %s failed", blockingDep))
			blocked[name] = skipErr
			diagnostics = append(diagnostics, skipErr)
			o.logger.Warn("skipping install", "name", name, "blocking_dependency", blockingDep)
			continue
		}

		if err := o.applyOne(l, r, mode, hostTag); err != nil {
			blocked[name] = err
			diagnostics = append(diagnostics, err)
			o.logger.Warn("apply failed", "name", name, "error", err)
			continue
		}
		o.logger.Info("installed", "name", name, "version", r.version)
	}

	if len(diagnostics) > 0 {
		return plan, errs.Wrap(errs.Install,
			fmt.Sprintf("%d of %d packages failed or were skipped", len(diagnostics), len(order)),
			diagnostics[0])
	}
	return plan, nil
}

// firstBlockedDependency returns the first of deps present in blocked, or
// "" if none are.
func firstBlockedDependency(deps []string, blocked map[string]error) string {
	for _, dep := range deps {
		if _, ok := blocked[dep]; ok {
			return dep
		}
	}
	return ""
}

// downloadAll fetches every formula in order under a fixed-size semaphore.
// Each goroutine owns a single slot of results by index, so per-package
// failures never abort sibling downloads already in flight; only a
// cancelled context (via sem.Acquire) short-circuits the whole batch.
func (o *Orchestrator) downloadAll(ctx context.Context, order []string, formulae map[string]metadata.Formula, hostTag, workDir string, buildFromSource bool, onDownload func(name string, err error)) ([]downloadResult, error) {
	sem := semaphore.NewWeighted(int64(config.GetDownloadConcurrency()))
	results := make([]downloadResult, len(order))
	var wg sync.WaitGroup

	for i, name := range order {
		i, name := i, name
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, errs.Wrap(errs.Install, "download was cancelled", err)
		}
		wg.Add(1)
		go func() {
			defer sem.Release(1)
			defer wg.Done()
			defer func() {
				if onDownload != nil {
					onDownload(name, results[i].err)
				}
			}()

			f := formulae[name]
			results[i].name = name
			results[i].version = f.Version

			entry, err := metadata.BottleFor(f.Bottles, hostTag)
			if err != nil {
				if !buildFromSource {
					results[i].err = err
					return
				}
				results[i].err = errs.New(errs.Build, "build-from-source is not implemented for "+name)
				return
			}

			taskDir, err := os.MkdirTemp(workDir, name+"-*")
			if err != nil {
				results[i].err = errs.Wrap(errs.Io, "failed to create task directory", err)
				return
			}

			archivePath, err := o.fetcher.Download(taskDir, entry.URL, entry.SHA256, nil)
			if err != nil {
				results[i].err = err
				return
			}

			extractedRoot, err := bottle.Extract(archivePath, name, f.Version, taskDir)
			if err != nil {
				results[i].err = err
				return
			}

			results[i].extractedDir = extractedRoot
		}()
	}

	wg.Wait()
	return results, nil
}

// applyOne moves one extracted bottle into the Cellar, creates its
// symlinks, then persists its state entry. State is only written after
// symlinks succeed, per spec §5's ordering guarantee.
func (o *Orchestrator) applyOne(l *layout.Layout, r downloadResult, mode layout.Mode, platformTag string) error {
	dest := l.CellarEntry(r.name, r.version)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errs.Wrap(errs.Install, "failed to create Cellar directory", err)
	}

	if err := os.Rename(r.extractedDir, dest); err != nil {
		if err := copyTree(r.extractedDir, dest); err != nil {
			return errs.Wrap(errs.Install, "failed to move extracted bottle into Cellar", err)
		}
	}

	links, err := symlink.CreateSymlinks(l, r.name, r.version, false)
	if err != nil {
		return err
	}

	return o.store.Insert(state.InstalledPackage{
		Name:        r.name,
		Version:     r.version,
		PlatformTag: platformTag,
		InstalledAt: time.Now().Unix(),
		Mode:        mode.String(),
		Symlinks:    links,
	})
}

// Uninstall removes a package's symlinks, its Cellar directory, and its
// state entry, in that order. Symlink-removal errors are logged but never
// prevent Cellar removal. It also returns the names of any other installed
// packages that still depend on name (spec §4.9 step 2) so callers can warn
// about them; this check runs before the dry-run early return, so a dry run
// surfaces the warning too.
func (o *Orchestrator) Uninstall(name string, dryRun bool) ([]string, error) {
	installed, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	pkg, ok := installed[name]
	if !ok {
		return nil, errs.NotInstalledName(name)
	}

	dependents, err := o.dependentsOf(name, installed)
	if err != nil {
		return nil, err
	}
	if len(dependents) > 0 {
		o.logger.Warn("package still required by other installed formulae", "name", name, "dependents", dependents)
	}

	if dryRun {
		return dependents, nil
	}

	mode, err := layout.Select(pkg.Mode == "user", pkg.Mode == "global")
	if err != nil {
		mode = layout.User
	}
	l, err := layout.New(mode)
	if err != nil {
		return dependents, err
	}

	if _, err := symlink.RemoveSymlinks(l, name, pkg.Version, false); err != nil {
		o.logger.Warn("failed to remove symlinks during uninstall", "name", name, "error", err)
	}

	if err := os.RemoveAll(l.CellarEntry(name, pkg.Version)); err != nil {
		return dependents, errs.Wrap(errs.Install, "failed to remove Cellar directory", err)
	}

	_, err = o.store.Remove(name)
	return dependents, err
}

// dependentsOf reports which other installed packages list name as a
// dependency, by cross-referencing the formula index against the install
// store. A missing/uninitialized index is tolerated: uninstall should not
// fail just because `wax update` was never run, it simply can't warn.
func (o *Orchestrator) dependentsOf(name string, installed map[string]state.InstalledPackage) ([]string, error) {
	formulae, err := o.client.LoadFormulae()
	if err != nil {
		var e *errs.Error
		if errors.As(err, &e) && e.Kind == errs.Cache {
			return nil, nil
		}
		return nil, err
	}

	deps := make(map[string][]string, len(installed))
	for candidate := range installed {
		deps[candidate] = formulae[candidate].Dependencies
	}

	return o.store.DependentsOf(name, deps)
}

// Upgrade uninstalls the currently-installed version of name and installs
// the version currently in the index, if newer. This is not atomic: a
// failure partway through leaves the package uninstalled (documented
// limitation, see DESIGN.md).
func (o *Orchestrator) Upgrade(ctx context.Context, name string, opts Options) (string, error) {
	installed, err := o.store.Load()
	if err != nil {
		return "", err
	}
	current, ok := installed[name]
	if !ok {
		return "", errs.NotInstalledName(name)
	}

	formulae, err := o.client.LoadFormulae()
	if err != nil {
		return "", err
	}
	f, ok := formulae[name]
	if !ok {
		return "", errs.NotFoundFormula(name)
	}

	currentVer, curErr := semver.NewVersion(current.Version)
	latestVer, latestErr := semver.NewVersion(f.Version)
	if curErr == nil && latestErr == nil && !latestVer.GreaterThan(currentVer) {
		return fmt.Sprintf("%s %s already up to date", name, current.Version), nil
	}
	if current.Version == f.Version {
		return fmt.Sprintf("%s %s already up to date", name, current.Version), nil
	}

	if opts.DryRun {
		return fmt.Sprintf("%s %s -> %s", name, current.Version, f.Version), nil
	}

	if _, err := o.Uninstall(name, false); err != nil {
		return "", err
	}
	if _, err := o.Install(ctx, []string{name}, opts); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s upgraded %s -> %s", name, current.Version, f.Version), nil
}

// Lock builds a Lockfile snapshot of the current install state.
func (o *Orchestrator) Lock() (*lockfile.Lockfile, error) {
	installed, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	return lockfile.Generate(installed), nil
}

// Sync reconciles the install-state store against a lockfile: entries
// already installed at the locked version are left alone; everything else
// is installed, pinned to the version in the index. A locked version no
// longer present in the index is a Lockfile error naming it.
func (o *Orchestrator) Sync(ctx context.Context, lf *lockfile.Lockfile, opts Options) error {
	installed, err := o.store.Load()
	if err != nil {
		return err
	}

	formulae, err := o.client.LoadFormulae()
	if err != nil {
		return err
	}

	for name, entry := range lf.Packages {
		if current, ok := installed[name]; ok && current.Version == entry.Version {
			continue
		}

		f, ok := formulae[name]
		if !ok || f.Version != entry.Version {
			return errs.New(errs.Lockfile, fmt.Sprintf("version %s of %s not available", entry.Version, name))
		}

		if _, err := o.Install(ctx, []string{name}, opts); err != nil {
			return err
		}
	}
	return nil
}

func copyTree(src, dst string) error {
	return filepath.Walk(src, func(path string, infoErr os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if infoErr.IsDir() {
			return os.MkdirAll(target, infoErr.Mode())
		}
		if infoErr.Mode()&os.ModeSymlink != 0 {
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			return os.Symlink(link, target)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, infoErr.Mode())
	})
}
