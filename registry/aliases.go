package registry

import (
	"fmt"
	"sync"
)

// AliasRegistry maps aliases to canonical names, transitively.
//
// Mirrors Spring's SimpleAliasRegistry: an alias chain a → b → c resolves to
// the terminal name c, and registration rejects any mapping that would close
// the chain into a cycle.
type AliasRegistry struct {
	mu          sync.Mutex
	aliases     map[string]string // alias → canonical name
	overridable bool
}

// NewAliasRegistry creates an empty alias registry with overriding allowed.
func NewAliasRegistry() *AliasRegistry {
	return &AliasRegistry{
		aliases:     make(map[string]string),
		overridable: true,
	}
}

// SetOverridable controls whether an existing alias may be re-registered for
// a different name. Default is true.
func (r *AliasRegistry) SetOverridable(allowed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overridable = allowed
}

// RegisterAlias registers alias for name. Registering a name as its own alias
// is meaningless and removes any existing mapping for that alias instead.
// Re-registering the same pair is a no-op.
func (r *AliasRegistry) RegisterAlias(name, alias string) error {
	if name == "" {
		return fmt.Errorf("%w: name", ErrEmptyName)
	}
	if alias == "" {
		return fmt.Errorf("%w: alias", ErrEmptyName)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if alias == name {
		delete(r.aliases, alias)
		return nil
	}
	if existing, ok := r.aliases[alias]; ok {
		if existing == name {
			return nil
		}
		if !r.overridable {
			return fmt.Errorf("%w: cannot register alias %q for name %q: it is already registered for name %q",
				ErrAlreadyRegistered, alias, name, existing)
		}
	}
	// Reject the registration if name already resolves to alias the other
	// way round — storing it would close an alias cycle.
	if r.hasAliasLocked(alias, name, nil) {
		return fmt.Errorf("%w: cannot register alias %q for name %q: %q is a direct or indirect alias for %q already",
			ErrCircularAlias, alias, name, name, alias)
	}
	r.aliases[alias] = name
	return nil
}

// RemoveAlias removes the given alias.
func (r *AliasRegistry) RemoveAlias(alias string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.aliases[alias]; !ok {
		return fmt.Errorf("%w: %q", ErrAliasNotFound, alias)
	}
	delete(r.aliases, alias)
	return nil
}

// IsAlias reports whether name is registered as an alias.
func (r *AliasRegistry) IsAlias(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.aliases[name]
	return ok
}

// HasAlias reports whether alias — or any alias of that alias, recursively —
// resolves to name.
func (r *AliasRegistry) HasAlias(name, alias string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hasAliasLocked(name, alias, nil)
}

// hasAliasLocked walks the reverse alias relation. The visited set bounds the
// walk: true cycles are impossible after registration-time checks, but cheap
// termination insurance beats trusting every past mutation.
func (r *AliasRegistry) hasAliasLocked(name, alias string, seen map[string]struct{}) bool {
	for registeredAlias, registeredName := range r.aliases {
		if registeredName != name {
			continue
		}
		if registeredAlias == alias {
			return true
		}
		if _, dup := seen[registeredAlias]; dup {
			continue
		}
		if seen == nil {
			seen = make(map[string]struct{})
		}
		seen[registeredAlias] = struct{}{}
		if r.hasAliasLocked(registeredAlias, alias, seen) {
			return true
		}
	}
	return false
}

// Aliases returns every alias, direct and transitive, that resolves to name.
func (r *AliasRegistry) Aliases(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []string
	r.retrieveAliasesLocked(name, &result, make(map[string]struct{}))
	return result
}

func (r *AliasRegistry) retrieveAliasesLocked(name string, out *[]string, seen map[string]struct{}) {
	for alias, registeredName := range r.aliases {
		if registeredName != name {
			continue
		}
		if _, dup := seen[alias]; dup {
			continue
		}
		seen[alias] = struct{}{}
		*out = append(*out, alias)
		r.retrieveAliasesLocked(alias, out, seen)
	}
}

// CanonicalName follows alias indirections until it reaches a name with no
// further mapping and returns that terminal name.
func (r *AliasRegistry) CanonicalName(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.canonicalNameLocked(name)
}

func (r *AliasRegistry) canonicalNameLocked(name string) string {
	canonical := name
	seen := make(map[string]struct{})
	for {
		resolved, ok := r.aliases[canonical]
		if !ok {
			return canonical
		}
		if _, dup := seen[resolved]; dup {
			return canonical
		}
		seen[resolved] = struct{}{}
		canonical = resolved
	}
}

// ResolveAliases applies a name-rewriting function to every (alias, target)
// pair, atomically with respect to the other alias operations. Pairs whose
// sides resolve to the empty string, or to the same string, are dropped;
// a rewritten alias that collides with a differently-bound alias fails with
// ErrAlreadyRegistered. The pass iterates a point-in-time snapshot, so later
// entries in the same pass observe earlier rewrites already applied.
func (r *AliasRegistry) ResolveAliases(resolver func(string) string) error {
	if resolver == nil {
		panic("registry: resolver must not be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := make(map[string]string, len(r.aliases))
	for alias, name := range r.aliases {
		snapshot[alias] = name
	}
	for alias, registeredName := range snapshot {
		resolvedAlias := resolver(alias)
		resolvedName := resolver(registeredName)
		switch {
		case resolvedAlias == "" || resolvedName == "" || resolvedAlias == resolvedName:
			delete(r.aliases, alias)

		case resolvedAlias != alias:
			if existingName, ok := r.aliases[resolvedAlias]; ok {
				if existingName == resolvedName {
					// Pointing at an existing identical mapping — the old
					// entry is just a leftover placeholder.
					delete(r.aliases, alias)
					continue
				}
				return fmt.Errorf("%w: cannot register resolved alias %q (original %q) for name %q: it is already registered for name %q",
					ErrAlreadyRegistered, resolvedAlias, alias, resolvedName, existingName)
			}
			if r.hasAliasLocked(resolvedAlias, resolvedName, nil) {
				return fmt.Errorf("%w: cannot register resolved alias %q for name %q",
					ErrCircularAlias, resolvedAlias, resolvedName)
			}
			delete(r.aliases, alias)
			r.aliases[resolvedAlias] = resolvedName

		case registeredName != resolvedName:
			r.aliases[alias] = resolvedName
		}
	}
	return nil
}
