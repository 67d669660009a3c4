package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/km-arc/go-beans/registry"
)

func TestAliasRegistry_RegisterAndResolve(t *testing.T) {
	r := registry.NewAliasRegistry()

	require.NoError(t, r.RegisterAlias("realBean", "b1"))
	require.NoError(t, r.RegisterAlias("realBean", "b2"))

	assert.True(t, r.IsAlias("b1"))
	assert.True(t, r.IsAlias("b2"))
	assert.False(t, r.IsAlias("realBean"))

	assert.Equal(t, "realBean", r.CanonicalName("b1"))
	assert.Equal(t, "realBean", r.CanonicalName("b2"))
	assert.Equal(t, "realBean", r.CanonicalName("realBean"))

	assert.ElementsMatch(t, []string{"b1", "b2"}, r.Aliases("realBean"))
}

func TestAliasRegistry_EmptyNamesRejected(t *testing.T) {
	r := registry.NewAliasRegistry()

	require.ErrorIs(t, r.RegisterAlias("", "alias"), registry.ErrEmptyName)
	require.ErrorIs(t, r.RegisterAlias("name", ""), registry.ErrEmptyName)
}

func TestAliasRegistry_SelfAliasRemovesMapping(t *testing.T) {
	r := registry.NewAliasRegistry()

	require.NoError(t, r.RegisterAlias("target", "a"))
	require.True(t, r.IsAlias("a"))

	// Aliasing a name to itself is meaningless and drops the old mapping.
	require.NoError(t, r.RegisterAlias("a", "a"))
	assert.False(t, r.IsAlias("a"))
	assert.Equal(t, "a", r.CanonicalName("a"))
}

func TestAliasRegistry_ReRegisterSamePairIsNoop(t *testing.T) {
	r := registry.NewAliasRegistry()
	r.SetOverridable(false)

	require.NoError(t, r.RegisterAlias("target", "a"))
	require.NoError(t, r.RegisterAlias("target", "a"))
	assert.Equal(t, "target", r.CanonicalName("a"))
}

func TestAliasRegistry_OverrideDisabled(t *testing.T) {
	r := registry.NewAliasRegistry()
	r.SetOverridable(false)

	require.NoError(t, r.RegisterAlias("first", "a"))
	err := r.RegisterAlias("second", "a")
	require.ErrorIs(t, err, registry.ErrAlreadyRegistered)

	// State unchanged after the failed call.
	assert.Equal(t, "first", r.CanonicalName("a"))
}

func TestAliasRegistry_OverrideEnabled(t *testing.T) {
	r := registry.NewAliasRegistry()

	require.NoError(t, r.RegisterAlias("first", "a"))
	require.NoError(t, r.RegisterAlias("second", "a"))
	assert.Equal(t, "second", r.CanonicalName("a"))
}

func TestAliasRegistry_CircularAliasRejected(t *testing.T) {
	r := registry.NewAliasRegistry()

	// Direct cycle: a → b, then b → a.
	require.NoError(t, r.RegisterAlias("a", "b"))
	err := r.RegisterAlias("b", "a")
	require.ErrorIs(t, err, registry.ErrCircularAlias)

	// Transitive cycle: c → b → a, then a → c.
	require.NoError(t, r.RegisterAlias("b", "c"))
	err = r.RegisterAlias("c", "a")
	require.ErrorIs(t, err, registry.ErrCircularAlias)

	// State unchanged: the chain still resolves to its terminal name.
	assert.Equal(t, "a", r.CanonicalName("c"))
	assert.False(t, r.IsAlias("a"))
}

func TestAliasRegistry_RemoveAlias(t *testing.T) {
	r := registry.NewAliasRegistry()

	require.NoError(t, r.RegisterAlias("target", "a"))
	require.NoError(t, r.RemoveAlias("a"))
	assert.False(t, r.IsAlias("a"))

	require.ErrorIs(t, r.RemoveAlias("a"), registry.ErrAliasNotFound)
}

func TestAliasRegistry_HasAliasTransitive(t *testing.T) {
	r := registry.NewAliasRegistry()

	require.NoError(t, r.RegisterAlias("c", "b"))
	require.NoError(t, r.RegisterAlias("b", "a"))

	assert.True(t, r.HasAlias("c", "b"))
	assert.True(t, r.HasAlias("c", "a"), "a aliases b which aliases c")
	assert.True(t, r.HasAlias("b", "a"))
	assert.False(t, r.HasAlias("a", "c"))
}

func TestAliasRegistry_CanonicalNameFollowsChain(t *testing.T) {
	r := registry.NewAliasRegistry()

	require.NoError(t, r.RegisterAlias("c", "b"))
	require.NoError(t, r.RegisterAlias("b", "a"))

	assert.Equal(t, "c", r.CanonicalName("a"))
	assert.Equal(t, "c", r.CanonicalName("b"))
	assert.ElementsMatch(t, []string{"a", "b"}, r.Aliases("c"))
}

// ── ResolveAliases ───────────────────────────────────────────────────────────

func TestResolveAliases_IdentityIsNoop(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("target", "a"))
	require.NoError(t, r.RegisterAlias("target", "b"))

	identity := func(s string) string { return s }
	require.NoError(t, r.ResolveAliases(identity))
	require.NoError(t, r.ResolveAliases(identity))

	assert.ElementsMatch(t, []string{"a", "b"}, r.Aliases("target"))
	assert.Equal(t, "target", r.CanonicalName("a"))
}

func TestResolveAliases_RewritesAliasSide(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("target", "${placeholder}"))

	require.NoError(t, r.ResolveAliases(func(s string) string {
		if s == "${placeholder}" {
			return "resolved"
		}
		return s
	}))

	assert.False(t, r.IsAlias("${placeholder}"))
	assert.True(t, r.IsAlias("resolved"))
	assert.Equal(t, "target", r.CanonicalName("resolved"))
}

func TestResolveAliases_RewritesTargetSide(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("${target}", "a"))

	require.NoError(t, r.ResolveAliases(func(s string) string {
		if s == "${target}" {
			return "concrete"
		}
		return s
	}))

	assert.Equal(t, "concrete", r.CanonicalName("a"))
}

func TestResolveAliases_DropsCollapsedPairs(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("target", "a"))
	require.NoError(t, r.RegisterAlias("other", "b"))

	// Both sides of the first pair resolve to the same string; the alias of
	// the second pair resolves to empty.
	require.NoError(t, r.ResolveAliases(func(s string) string {
		switch s {
		case "a":
			return "target"
		case "b":
			return ""
		}
		return s
	}))

	assert.False(t, r.IsAlias("a"))
	assert.False(t, r.IsAlias("b"))
}

func TestResolveAliases_ConsolidatesIntoExistingMapping(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("target", "canonical-alias"))
	require.NoError(t, r.RegisterAlias("target", "${placeholder}"))

	// ${placeholder} rewrites to canonical-alias, which is already bound to
	// the same target: the placeholder entry is simply dropped.
	require.NoError(t, r.ResolveAliases(func(s string) string {
		if s == "${placeholder}" {
			return "canonical-alias"
		}
		return s
	}))

	assert.False(t, r.IsAlias("${placeholder}"))
	assert.ElementsMatch(t, []string{"canonical-alias"}, r.Aliases("target"))
}

func TestResolveAliases_CollisionWithDifferentTarget(t *testing.T) {
	r := registry.NewAliasRegistry()
	require.NoError(t, r.RegisterAlias("one", "a"))
	require.NoError(t, r.RegisterAlias("two", "${p}"))

	err := r.ResolveAliases(func(s string) string {
		if s == "${p}" {
			return "a"
		}
		return s
	})
	require.ErrorIs(t, err, registry.ErrAlreadyRegistered)
}

// ── properties ───────────────────────────────────────────────────────────────

// TestAliasRegistry_NeverCyclic drives the registry with random
// registrations and removals and checks that canonical resolution always
// terminates at a non-aliased name.
func TestAliasRegistry_NeverCyclic(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		r := registry.NewAliasRegistry()
		nameGen := rapid.SampledFrom([]string{"a", "b", "c", "d", "e"})

		ops := rapid.IntRange(1, 40).Draw(rt, "ops")
		for i := 0; i < ops; i++ {
			name := nameGen.Draw(rt, "name")
			alias := nameGen.Draw(rt, "alias")
			// Failed registrations (cycles, collisions) must leave the map
			// intact, so errors are irrelevant to the invariant.
			_ = r.RegisterAlias(name, alias)
		}

		for _, n := range []string{"a", "b", "c", "d", "e"} {
			canonical := r.CanonicalName(n)
			if r.IsAlias(canonical) {
				rt.Fatalf("CanonicalName(%q) = %q, which is still an alias", n, canonical)
			}
		}

		// Applying the identity resolver never changes anything.
		before := map[string]string{}
		for _, n := range []string{"a", "b", "c", "d", "e"} {
			before[n] = r.CanonicalName(n)
		}
		if err := r.ResolveAliases(func(s string) string { return s }); err != nil {
			rt.Fatalf("identity ResolveAliases failed: %v", err)
		}
		for n, want := range before {
			if got := r.CanonicalName(n); got != want {
				rt.Fatalf("identity ResolveAliases changed CanonicalName(%q): %q → %q", n, want, got)
			}
		}
	})
}
