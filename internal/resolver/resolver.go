// Package resolver computes install order from a formula's runtime
// dependency graph (spec §4.4). Build dependencies never enter the
// install path; only the "dependencies" list is walked.
package resolver

import (
	"strings"

	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/metadata"
)

// Resolve walks root's runtime dependency graph depth-first and returns
// the post-order install list: every dependency appears before its
// dependent, each name appears once, and already-installed names are
// dropped unless they are root itself. Order is driven purely by each
// formula's Dependencies slice, never a sort, so the result is
// deterministic for a given index.
func Resolve(formulae map[string]metadata.Formula, installed map[string]bool, root string) ([]string, error) {
	visited := make(map[string]bool)
	var order []string

	var walk func(name string, stack []string) error
	walk = func(name string, stack []string) error {
		if visited[name] {
			return nil
		}
		for _, onStack := range stack {
			if onStack == name {
				return errs.Cycle(strings.Join(append(stack, name), " -> "))
			}
		}

		f, ok := formulae[name]
		if !ok {
			return errs.NotFoundFormula(name)
		}

		stack = append(stack, name)
		for _, dep := range f.Dependencies {
			if err := walk(dep, stack); err != nil {
				return err
			}
		}

		visited[name] = true
		order = append(order, name)
		return nil
	}

	if err := walk(root, nil); err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(order))
	for _, name := range order {
		if name == root || !installed[name] {
			filtered = append(filtered, name)
		}
	}
	return filtered, nil
}

// ResolveAll resolves every root in turn and merges the results,
// preserving first-seen order and dropping duplicates across roots.
func ResolveAll(formulae map[string]metadata.Formula, installed map[string]bool, roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var merged []string

	for _, root := range roots {
		order, err := Resolve(formulae, installed, root)
		if err != nil {
			return nil, err
		}
		for _, name := range order {
			if !seen[name] {
				seen[name] = true
				merged = append(merged, name)
			}
		}
	}
	return merged, nil
}
