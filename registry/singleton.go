package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Factory builds the instance for a name. It runs while the registry's
// construction mutex is held; any nested lookup or construction MUST go
// through the supplied Scope — calling back into the outer registry API from
// inside a factory would self-deadlock.
type Factory func(s *Scope) (any, error)

// Option configures a SingletonRegistry during construction.
type Option func(*SingletonRegistry)

// WithLogger sets the logger used for creation and teardown diagnostics.
// Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *SingletonRegistry) {
		if l != nil {
			r.log = l
		}
	}
}

// WithAliasOverriding controls whether registered aliases may be rebound to a
// different name. Default is true.
func WithAliasOverriding(allowed bool) Option {
	return func(r *SingletonRegistry) {
		r.SetOverridable(allowed)
	}
}

// SingletonRegistry is a registry for shared instances: each name is
// constructed at most once, circular references between names under
// construction are resolved through early references, and registered
// dependencies drive the teardown order of DestroySingletons.
//
// The zero value is not usable; create one with New. All methods are safe for
// concurrent use.
type SingletonRegistry struct {
	*AliasRegistry

	log *slog.Logger

	// mu is the construction mutex. It guards every field below it and is
	// held across the whole get-or-create sequence, factory call included.
	// Finished instances and published early references additionally live in
	// lock-free maps so reads never contend with an in-flight construction.
	mu             sync.Mutex
	singletons     sync.Map // name → finished instance
	early          sync.Map // name → published early reference
	earlyFactories map[string]func() any
	registered     []string // names in registration order
	inCreation     map[string]struct{}
	exclusions     map[string]struct{} // names exempt from the in-creation check
	suppressed     []error
	recording      bool
	destroying     bool

	depMu        sync.Mutex
	dependents   map[string]map[string]struct{} // name → names that depend on it
	dependencies map[string]map[string]struct{} // name → names it depends on
	contained    map[string]map[string]struct{} // containing → contained names

	dispMu       sync.Mutex
	disposables  map[string]func() error
	disposeOrder []string
}

// New creates an empty SingletonRegistry.
func New(opts ...Option) *SingletonRegistry {
	r := &SingletonRegistry{
		AliasRegistry:  NewAliasRegistry(),
		log:            slog.Default(),
		earlyFactories: make(map[string]func() any),
		inCreation:     make(map[string]struct{}),
		exclusions:     make(map[string]struct{}),
		dependents:     make(map[string]map[string]struct{}),
		dependencies:   make(map[string]map[string]struct{}),
		contained:      make(map[string]map[string]struct{}),
		disposables:    make(map[string]func() error),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register inserts an already-built instance under name, bypassing the
// construction protocol entirely. It fails with ErrAlreadyRegistered if a
// finished instance is bound to name.
func (r *SingletonRegistry) Register(name string, instance any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registerLocked(name, instance)
}

func (r *SingletonRegistry) registerLocked(name string, instance any) error {
	if name == "" {
		return fmt.Errorf("%w: name", ErrEmptyName)
	}
	if instance == nil {
		return fmt.Errorf("registering %q: instance must not be nil", name)
	}
	if existing, ok := r.singletons.Load(name); ok {
		return fmt.Errorf("%w: could not register instance under %q: a %T is already bound",
			ErrAlreadyRegistered, name, existing)
	}
	r.addSingletonLocked(name, instance)
	return nil
}

// Get returns the finished instance for name, or — while name is under
// construction — its published early reference. It never blocks and never
// invokes a factory.
func (r *SingletonRegistry) Get(name string) (any, bool) {
	if v, ok := r.singletons.Load(name); ok {
		return v, true
	}
	if v, ok := r.early.Load(name); ok {
		return v, true
	}
	return nil, false
}

// GetOrCreate returns the instance registered under name, invoking factory to
// construct it first if none exists. The factory runs under the construction
// mutex, so concurrent first requests for the same name serialize and the
// factory runs exactly once. See Factory for the nested-resolution contract.
func (r *SingletonRegistry) GetOrCreate(name string, factory Factory) (any, error) {
	// Fast path: finished instances are read lock-free.
	if v, ok := r.singletons.Load(name); ok {
		return v, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getOrCreateLocked(&Scope{reg: r}, name, factory)
}

func (r *SingletonRegistry) getOrCreateLocked(s *Scope, name string, factory Factory) (any, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name", ErrEmptyName)
	}
	if factory == nil {
		panic("registry: factory must not be nil")
	}
	// Double-check: another caller may have finished name while we waited
	// for the construction mutex.
	if v, ok := r.singletons.Load(name); ok {
		return v, nil
	}
	if r.destroying {
		return nil, fmt.Errorf("%w: %q (do not request shared instances from a dispose callback)",
			ErrCreationNotAllowed, name)
	}
	if err := r.beforeCreationLocked(name); err != nil {
		return nil, err
	}
	r.log.Debug("creating shared instance", "name", name)

	// Only the outermost construction on this chain records suppressed
	// errors; nested failures are attached to it as related causes.
	recording := !r.recording
	if recording {
		r.recording = true
		r.suppressed = nil
		defer func() {
			r.recording = false
			r.suppressed = nil
		}()
	}

	var (
		instance any
		ferr     error
	)
	func() {
		s.stack = append(s.stack, name)
		defer func() {
			s.stack = s.stack[:len(s.stack)-1]
			r.afterCreationLocked(name)
		}()
		instance, ferr = factory(s)
	}()

	if ferr == nil && instance == nil {
		ferr = errors.New("factory returned a nil instance")
	}
	if ferr != nil && errors.Is(ferr, ErrAlreadyRegistered) {
		// Benign race: the instance appeared through another path while the
		// factory ran. Return it instead of propagating the error.
		if v, ok := r.singletons.Load(name); ok {
			return v, nil
		}
	}
	if ferr != nil {
		r.removeLocked(name)
		ce := &CreationError{Name: name, Err: ferr}
		if recording {
			ce.Related = append([]error(nil), r.suppressed...)
		} else {
			r.suppressed = append(r.suppressed, ce)
		}
		return nil, ce
	}
	r.addSingletonLocked(name, instance)
	return instance, nil
}

// AddEarlyFactory registers a callback producing a partial, early view of
// name's instance — typically a structurally complete but not yet fully
// populated object. It is only effective while name has no finished instance.
// The registry never invokes it on its own: only a nested Scope.Get for a
// name that is mid-construction does.
func (r *SingletonRegistry) AddEarlyFactory(name string, early func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addEarlyFactoryLocked(name, early)
}

func (r *SingletonRegistry) addEarlyFactoryLocked(name string, early func() any) {
	if early == nil {
		panic("registry: early factory must not be nil")
	}
	if _, ok := r.singletons.Load(name); ok {
		return
	}
	r.earlyFactories[name] = early
	r.early.Delete(name)
	r.recordNameLocked(name)
}

// Remove purges name from every instance tier: finished, early reference and
// pending early factory. Used to roll back a failed eager registration.
func (r *SingletonRegistry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(name)
}

// Contains reports whether a finished instance is registered under name.
func (r *SingletonRegistry) Contains(name string) bool {
	_, ok := r.singletons.Load(name)
	return ok
}

// Names returns the registered names in registration order.
func (r *SingletonRegistry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.registered...)
}

// Count returns the number of registered names.
func (r *SingletonRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.registered)
}

// SetCurrentlyInCreation exempts name from the in-creation check when
// inCreation is false, and lifts the exemption when true. Re-entrant
// construction of the same name is normally a cycle and fails; an exempted
// name skips both the marking and the check.
func (r *SingletonRegistry) SetCurrentlyInCreation(name string, inCreation bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !inCreation {
		r.exclusions[name] = struct{}{}
	} else {
		delete(r.exclusions, name)
	}
}

// IsCurrentlyInCreation reports whether name is being constructed right now.
func (r *SingletonRegistry) IsCurrentlyInCreation(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, excluded := r.exclusions[name]; excluded {
		return false
	}
	_, in := r.inCreation[name]
	return in
}

// OnSuppressed records an error that was swallowed during the current
// construction attempt, to be attached to the eventual CreationError as a
// related cause. No-op when no construction is recording.
//
// Must not be called from inside a factory — use Scope.Suppress there.
func (r *SingletonRegistry) OnSuppressed(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.recording && err != nil {
		r.suppressed = append(r.suppressed, err)
	}
}

// Mutex exposes the construction mutex so external subsystems performing
// multi-step singleton-adjacent work can coordinate on the same lock instead
// of introducing a second one. External code must never hold its own lock and
// then block on this mutex while another goroutine does the reverse.
func (r *SingletonRegistry) Mutex() *sync.Mutex {
	return &r.mu
}

// ── internals (construction mutex held) ──────────────────────────────────────

func (r *SingletonRegistry) addSingletonLocked(name string, instance any) {
	r.singletons.Store(name, instance)
	delete(r.earlyFactories, name)
	r.early.Delete(name)
	r.recordNameLocked(name)
}

func (r *SingletonRegistry) removeLocked(name string) {
	r.singletons.Delete(name)
	r.early.Delete(name)
	delete(r.earlyFactories, name)
	for i, n := range r.registered {
		if n == name {
			r.registered = append(r.registered[:i], r.registered[i+1:]...)
			break
		}
	}
}

func (r *SingletonRegistry) recordNameLocked(name string) {
	for _, n := range r.registered {
		if n == name {
			return
		}
	}
	r.registered = append(r.registered, name)
}

func (r *SingletonRegistry) beforeCreationLocked(name string) error {
	if _, excluded := r.exclusions[name]; excluded {
		return nil
	}
	if _, in := r.inCreation[name]; in {
		return fmt.Errorf("%w: %q", ErrCurrentlyInCreation, name)
	}
	r.inCreation[name] = struct{}{}
	return nil
}

func (r *SingletonRegistry) afterCreationLocked(name string) {
	if _, excluded := r.exclusions[name]; excluded {
		return
	}
	if _, in := r.inCreation[name]; !in {
		panic(fmt.Sprintf("registry: singleton %q isn't currently in creation", name))
	}
	delete(r.inCreation, name)
}
