package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plyght/wax/internal/errs"
	"github.com/plyght/wax/internal/metadata"
)

func formula(name string, deps ...string) metadata.Formula {
	return metadata.Formula{Name: name, Dependencies: deps}
}

func TestResolveLinearChain(t *testing.T) {
	formulae := map[string]metadata.Formula{
		"jq":        formula("jq", "oniguruma"),
		"oniguruma": formula("oniguruma"),
	}

	order, err := Resolve(formulae, nil, "jq")
	require.NoError(t, err)
	assert.Equal(t, []string{"oniguruma", "jq"}, order)
}

func TestResolveDiamondDedup(t *testing.T) {
	formulae := map[string]metadata.Formula{
		"app": formula("app", "libA", "libB"),
		"libA": formula("libA", "libC"),
		"libB": formula("libB", "libC"),
		"libC": formula("libC"),
	}

	order, err := Resolve(formulae, nil, "app")
	require.NoError(t, err)
	assert.Equal(t, []string{"libC", "libA", "libB", "app"}, order)
}

func TestResolveUnknownDependency(t *testing.T) {
	formulae := map[string]metadata.Formula{
		"app": formula("app", "ghost"),
	}

	_, err := Resolve(formulae, nil, "app")
	require.Error(t, err)

	var wantErr *errs.Error
	require.ErrorAs(t, err, &wantErr)
	assert.Equal(t, errs.FormulaNotFound, wantErr.Kind)
}

func TestResolveCycleDetected(t *testing.T) {
	formulae := map[string]metadata.Formula{
		"a": formula("a", "b"),
		"b": formula("b", "c"),
		"c": formula("c", "a"),
	}

	_, err := Resolve(formulae, nil, "a")
	require.Error(t, err)

	var wantErr *errs.Error
	require.ErrorAs(t, err, &wantErr)
	assert.Equal(t, errs.DependencyCycle, wantErr.Kind)
	assert.Contains(t, wantErr.Message, "a -> b -> c -> a")
}

func TestResolveSkipsInstalledExceptRoot(t *testing.T) {
	formulae := map[string]metadata.Formula{
		"jq":        formula("jq", "oniguruma"),
		"oniguruma": formula("oniguruma"),
	}
	installed := map[string]bool{"oniguruma": true}

	order, err := Resolve(formulae, installed, "jq")
	require.NoError(t, err)
	assert.Equal(t, []string{"jq"}, order)
}

func TestResolveRootAlwaysIncludedEvenIfInstalled(t *testing.T) {
	formulae := map[string]metadata.Formula{"jq": formula("jq")}
	installed := map[string]bool{"jq": true}

	order, err := Resolve(formulae, installed, "jq")
	require.NoError(t, err)
	assert.Equal(t, []string{"jq"}, order)
}

func TestResolveAllMergesPreservingOrder(t *testing.T) {
	formulae := map[string]metadata.Formula{
		"jq":   formula("jq", "oniguruma"),
		"oniguruma": formula("oniguruma"),
		"tree": formula("tree"),
	}

	merged, err := ResolveAll(formulae, nil, []string{"jq", "tree"})
	require.NoError(t, err)
	assert.Equal(t, []string{"oniguruma", "jq", "tree"}, merged)
}
