package registry

import "fmt"

// RegisterDisposable associates a teardown callback with name, to be invoked
// when the name — or the whole registry — is destroyed. The callback is
// independent of whether name has a cached instance, which allows adapters
// around objects that have no teardown of their own. Re-registering a name
// replaces its callback but keeps its original position in the teardown
// order.
func (r *SingletonRegistry) RegisterDisposable(name string, dispose func() error) {
	if dispose == nil {
		panic("registry: dispose callback must not be nil")
	}
	r.dispMu.Lock()
	defer r.dispMu.Unlock()
	if _, ok := r.disposables[name]; !ok {
		r.disposeOrder = append(r.disposeOrder, name)
	}
	r.disposables[name] = dispose
}

// DestroySingletons tears the whole registry down: disposables run in reverse
// registration order (last registered, first destroyed), each preceded by its
// registered dependents and followed by its contained names. While the
// teardown runs, GetOrCreate fails with ErrCreationNotAllowed. Afterwards all
// caches and graphs are cleared and the registry is ready for reuse.
func (r *SingletonRegistry) DestroySingletons() {
	r.log.Debug("destroying singletons")
	r.mu.Lock()
	r.destroying = true
	r.mu.Unlock()

	r.dispMu.Lock()
	names := append([]string(nil), r.disposeOrder...)
	r.dispMu.Unlock()
	for i := len(names) - 1; i >= 0; i-- {
		r.DestroySingleton(names[i])
	}

	r.depMu.Lock()
	r.contained = make(map[string]map[string]struct{})
	r.dependents = make(map[string]map[string]struct{})
	r.dependencies = make(map[string]map[string]struct{})
	r.depMu.Unlock()

	r.clearSingletonCache()
}

func (r *SingletonRegistry) clearSingletonCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.singletons.Range(func(key, _ any) bool {
		r.singletons.Delete(key)
		return true
	})
	r.early.Range(func(key, _ any) bool {
		r.early.Delete(key)
		return true
	})
	r.earlyFactories = make(map[string]func() any)
	r.registered = nil
	r.destroying = false
}

// DestroySingleton destroys the instance registered under name: its cached
// instance is removed, everything that depends on it is destroyed first, its
// dispose callback runs, and its contained names are cascaded afterwards.
// Callback failures are logged and swallowed — teardown never aborts.
func (r *SingletonRegistry) DestroySingleton(name string) {
	r.Remove(name)

	r.dispMu.Lock()
	dispose := r.disposables[name]
	delete(r.disposables, name)
	for i, n := range r.disposeOrder {
		if n == name {
			r.disposeOrder = append(r.disposeOrder[:i], r.disposeOrder[i+1:]...)
			break
		}
	}
	r.dispMu.Unlock()

	r.destroyInstance(name, dispose)
}

func (r *SingletonRegistry) destroyInstance(name string, dispose func() error) {
	// Detach the dependent set before recursing: each edge is consumed
	// exactly once, so a cyclic graph cannot be revisited in one traversal.
	r.depMu.Lock()
	dependents := r.dependents[name]
	delete(r.dependents, name)
	r.depMu.Unlock()
	for dependent := range dependents {
		r.log.Debug("destroying dependent", "name", dependent, "of", name)
		r.DestroySingleton(dependent)
	}

	if dispose != nil {
		if err := invokeDispose(dispose); err != nil {
			r.log.Warn("dispose callback failed", "name", name, "error", err)
		}
	}

	r.depMu.Lock()
	containedSet := r.contained[name]
	delete(r.contained, name)
	r.depMu.Unlock()
	for contained := range containedSet {
		r.DestroySingleton(contained)
	}

	// Scrub name from the graph: it no longer blocks anyone's teardown.
	r.depMu.Lock()
	for n, set := range r.dependents {
		delete(set, name)
		if len(set) == 0 {
			delete(r.dependents, n)
		}
	}
	delete(r.dependencies, name)
	r.depMu.Unlock()
}

func invokeDispose(dispose func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return dispose()
}
