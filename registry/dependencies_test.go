package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-beans/registry"
)

func TestRegisterDependent_RecordsBothDirections(t *testing.T) {
	r := registry.New()

	r.RegisterDependent("db", "repo")
	r.RegisterDependent("db", "migrator")

	assert.ElementsMatch(t, []string{"repo", "migrator"}, r.Dependents("db"))
	assert.ElementsMatch(t, []string{"db"}, r.DependenciesFor("repo"))
	assert.True(t, r.HasDependents("db"))
	assert.False(t, r.HasDependents("repo"))
}

func TestRegisterDependent_DuplicateEdgeIsNoop(t *testing.T) {
	r := registry.New()

	r.RegisterDependent("db", "repo")
	r.RegisterDependent("db", "repo")

	assert.Len(t, r.Dependents("db"), 1)
	assert.Len(t, r.DependenciesFor("repo"), 1)
}

func TestRegisterDependent_CanonicalizesDependency(t *testing.T) {
	r := registry.New()
	require.NoError(t, r.RegisterAlias("db", "database"))

	r.RegisterDependent("database", "repo")

	assert.ElementsMatch(t, []string{"repo"}, r.Dependents("db"))
	assert.Empty(t, r.Dependents("database"))
	assert.ElementsMatch(t, []string{"db"}, r.DependenciesFor("repo"))
}

func TestIsDependent_Transitive(t *testing.T) {
	r := registry.New()

	// handler → service → db
	r.RegisterDependent("db", "service")
	r.RegisterDependent("service", "handler")

	assert.True(t, r.IsDependent("db", "service"))
	assert.True(t, r.IsDependent("db", "handler"), "transitive dependents count")
	assert.True(t, r.IsDependent("service", "handler"))
	assert.False(t, r.IsDependent("handler", "db"))
	assert.False(t, r.IsDependent("db", "unrelated"))
}

func TestIsDependent_TerminatesOnCycles(t *testing.T) {
	r := registry.New()

	// a and b depend on each other — legal at the naming level.
	r.RegisterDependent("a", "b")
	r.RegisterDependent("b", "a")

	assert.True(t, r.IsDependent("a", "b"))
	assert.True(t, r.IsDependent("b", "a"))
	assert.False(t, r.IsDependent("a", "c"))
}

func TestRegisterContained_ImpliesDependencyEdge(t *testing.T) {
	r := registry.New()

	r.RegisterContained("inner", "outer")

	// The containing name depends on its part for destruction ordering.
	assert.ElementsMatch(t, []string{"outer"}, r.Dependents("inner"))
	assert.ElementsMatch(t, []string{"inner"}, r.DependenciesFor("outer"))

	// Duplicate containment registration stays idempotent.
	r.RegisterContained("inner", "outer")
	assert.Len(t, r.Dependents("inner"), 1)
}
