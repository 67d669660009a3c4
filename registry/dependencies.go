package registry

// The dependency graph exists purely to compute teardown order. Edges are
// stored in both directions in lockstep under one mutex, so forward and
// backward iteration are both O(1) and the two views cannot drift. Unlike the
// alias map, the graph accepts cycles: structural object graphs legitimately
// contain them, and they are resolved at the instance level through early
// references, not at the naming level.

// RegisterDependent records that dependent depends on name, so that dependent
// is destroyed before name. The dependency side is resolved to its canonical
// name first. Duplicate edges are no-ops.
func (r *SingletonRegistry) RegisterDependent(name, dependent string) {
	canonical := r.CanonicalName(name)

	r.depMu.Lock()
	defer r.depMu.Unlock()

	deps := r.dependents[canonical]
	if deps == nil {
		deps = make(map[string]struct{})
		r.dependents[canonical] = deps
	}
	if _, dup := deps[dependent]; dup {
		return
	}
	deps[dependent] = struct{}{}

	forward := r.dependencies[dependent]
	if forward == nil {
		forward = make(map[string]struct{})
		r.dependencies[dependent] = forward
	}
	forward[canonical] = struct{}{}
}

// RegisterContained records that contained is a structural part of
// containing: destroying containing cascades to contained, and the implied
// dependency edge makes everything that depends on contained die before
// containing does.
func (r *SingletonRegistry) RegisterContained(contained, containing string) {
	r.depMu.Lock()
	set := r.contained[containing]
	if set == nil {
		set = make(map[string]struct{})
		r.contained[containing] = set
	}
	if _, dup := set[contained]; dup {
		r.depMu.Unlock()
		return
	}
	set[contained] = struct{}{}
	r.depMu.Unlock()

	r.RegisterDependent(contained, containing)
}

// IsDependent reports whether dependent has been registered as depending on
// name, directly or through any chain of transitive dependents.
func (r *SingletonRegistry) IsDependent(name, dependent string) bool {
	r.depMu.Lock()
	defer r.depMu.Unlock()
	return r.isDependentLocked(name, dependent, nil)
}

func (r *SingletonRegistry) isDependentLocked(name, dependent string, seen map[string]struct{}) bool {
	if _, dup := seen[name]; dup {
		return false
	}
	canonical := r.CanonicalName(name)
	deps := r.dependents[canonical]
	if deps == nil {
		return false
	}
	if _, ok := deps[dependent]; ok {
		return true
	}
	if seen == nil {
		seen = make(map[string]struct{})
	}
	seen[name] = struct{}{}
	for transitive := range deps {
		if r.isDependentLocked(transitive, dependent, seen) {
			return true
		}
	}
	return false
}

// HasDependents reports whether any name has been registered as depending on
// name.
func (r *SingletonRegistry) HasDependents(name string) bool {
	r.depMu.Lock()
	defer r.depMu.Unlock()
	return len(r.dependents[name]) > 0
}

// Dependents returns the names that depend on name, unordered.
func (r *SingletonRegistry) Dependents(name string) []string {
	r.depMu.Lock()
	defer r.depMu.Unlock()
	return setToSlice(r.dependents[name])
}

// DependenciesFor returns the names that name depends on, unordered.
func (r *SingletonRegistry) DependenciesFor(name string) []string {
	r.depMu.Lock()
	defer r.depMu.Unlock()
	return setToSlice(r.dependencies[name])
}

func setToSlice(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for name := range set {
		out = append(out, name)
	}
	return out
}
