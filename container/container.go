package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/km-arc/go-beans/registry"
)

// ErrNotBound is returned by MakeE when no binding or instance exists for the
// requested abstract.
var ErrNotBound = errors.New("container: not bound")

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
// Shared factories run under the registry's construction mutex; the container
// handed to them is a scoped view, and all nested resolution must go through
// it rather than through a captured outer container.
type Factory func(c *Container) any

// binding holds a registered factory and whether its result is shared.
type binding struct {
	factory Factory
	shared  bool
}

// extender wraps an already-resolved instance with decorator logic.
type extender func(instance any, c *Container) any

// state is the data shared by the root container and every scoped view of it.
type state struct {
	reg *registry.SingletonRegistry

	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → extender funcs
	extenders map[string][]extender

	// tag → []abstract
	tags map[string][]string

	// contextual: when[consumer][abstract] = factory
	contextual map[string]map[string]Factory

	// rebound callbacks: abstract → []func(any)
	reboundCallbacks map[string][]func(any)

	// resolved callbacks: []func(abstract, instance)
	afterResolving []func(string, any)
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the service container built on top of a shared-instance
// registry — the factory-facing layer over registry.SingletonRegistry, the way
// Spring's DefaultListableBeanFactory sits on DefaultSingletonBeanRegistry.
//
// It supports:
//   - Bind / Singleton / Instance / Alias
//   - Make / MakeE / Resolve (generic)
//   - ShareEarly (publish a partial instance to break reference cycles)
//   - Tags (group multiple abstractions under one tag)
//   - Extend (decorate / wrap resolved instances)
//   - Contextual binding (when A needs B, give it C)
//   - Rebound and resolved callbacks
//   - Disposable / DependsOn (teardown callbacks and destruction ordering)
//
// A Container value is a view: the root view returned by New, or a scoped view
// passed into a running factory. All views share one state, so registrations
// made through any of them are visible everywhere.
type Container struct {
	state *state

	// scope is non-nil inside a shared factory: the construction chain that
	// already holds the registry's construction mutex.
	scope *registry.Scope

	// building is the abstract this view is constructing, for contextual
	// binding lookup and ShareEarly.
	building string
}

// New creates an empty container. Options are forwarded to the underlying
// registry.
func New(opts ...registry.Option) *Container {
	c := &Container{
		state: &state{
			reg:              registry.New(opts...),
			bindings:         make(map[string]*binding),
			extenders:        make(map[string][]extender),
			tags:             make(map[string][]string),
			contextual:       make(map[string]map[string]Factory),
			reboundCallbacks: make(map[string][]func(any)),
		},
	}
	// Bind the container to itself.
	// Spring: beanFactory.registerResolvableDependency(BeanFactory.class, this)
	c.Instance("container", c)
	return c
}

// Registry exposes the underlying shared-instance registry for direct access
// to names, dependency queries and teardown.
func (c *Container) Registry() *registry.SingletonRegistry {
	return c.state.reg
}

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient (new instance each Make) factory.
//
//	c.Bind("report", func(c *container.Container) any {
//	    return report.New(container.Resolve[*Clock](c, "clock"))
//	})
func (c *Container) Bind(abstract string, factory Factory) {
	c.bind(abstract, factory, false)
}

// Singleton registers a factory whose result is shared: the registry
// constructs it at most once and every Make returns the same instance.
//
//	// Spring: beanDefinition.setScope(SCOPE_SINGLETON)
//	c.Singleton("cache", func(c *container.Container) any {
//	    return cache.New(container.Resolve[*config.Config](c, "config"))
//	})
func (c *Container) Singleton(abstract string, factory Factory) {
	c.bind(abstract, factory, true)
}

func (c *Container) bind(abstract string, factory Factory, shared bool) {
	if factory == nil {
		panic(fmt.Sprintf("container: nil factory for [%s]", abstract))
	}
	key := c.canonical(abstract)
	st := c.state

	// Drop an existing shared instance so it is rebuilt with the new factory.
	wasResolved := st.reg.Contains(key)
	c.dropInstance(key)

	st.mu.Lock()
	st.bindings[key] = &binding{factory: factory, shared: shared}
	st.mu.Unlock()

	if wasResolved {
		c.fireRebound(key, c.Make(key))
	}
}

// Instance registers a pre-built value as the shared instance for abstract,
// replacing any previous binding or instance.
//
//	// Spring: beanFactory.registerSingleton("config", config)
//	c.Instance("config", cfg)
func (c *Container) Instance(abstract string, instance any) {
	key := c.canonical(abstract)
	st := c.state

	st.mu.Lock()
	delete(st.bindings, key)
	st.mu.Unlock()

	c.dropInstance(key)
	if err := c.registerInstance(key, instance); err != nil {
		panic(fmt.Sprintf("container: %v", err))
	}
	c.fireRebound(key, instance)
}

// Alias registers an alternative name for an abstract. Panics on a circular
// chain or, with alias overriding disabled, on a conflicting registration.
//
//	// Spring: beanFactory.registerAlias("dataSource", "db")
//	c.Alias("dataSource", "db")
func (c *Container) Alias(abstract, alias string) {
	if err := c.state.reg.RegisterAlias(abstract, alias); err != nil {
		panic(fmt.Sprintf("container: %v", err))
	}
}

// ShareEarly publishes instance as an early reference for the abstract this
// factory is building, letting factories further down the chain observe it
// before construction finishes. This is how two singletons that reference each
// other get built.
//
//	// Spring: addSingletonFactory(beanName, () -> getEarlyBeanReference(...))
//	c.Singleton("a", func(c *container.Container) any {
//	    a := &A{}
//	    c.ShareEarly(a)
//	    a.B = container.Resolve[*B](c, "b") // b's factory may resolve "a"
//	    return a
//	})
//
// Only valid inside a shared factory; panics elsewhere.
func (c *Container) ShareEarly(instance any) {
	if c.scope == nil || c.building == "" {
		panic("container: ShareEarly called outside a shared factory")
	}
	c.scope.AddEarlyFactory(c.building, func() any { return instance })
}

// ── Contextual Binding ────────────────────────────────────────────────────────

// When starts a contextual binding chain.
//
//	c.When("photo.controller").Needs("filesystem").Give(func(c *container.Container) any {
//	    return filesystem.NewS3(...)
//	})
func (c *Container) When(consumer string) *ContextualBuilder {
	return &ContextualBuilder{state: c.state, consumer: consumer}
}

func (st *state) getContextual(consumer, abstract string) Factory {
	st.mu.RLock()
	defer st.mu.RUnlock()
	if m, ok := st.contextual[consumer]; ok {
		if f, ok := m[abstract]; ok {
			return f
		}
	}
	return nil
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved instance of an abstract. Instances resolved
// later pass through every registered extender; an already-shared instance is
// re-registered in its extended form and rebound callbacks fire.
//
//	c.Extend("logger", func(instance any, c *container.Container) any {
//	    return logging.WithTimestamps(instance.(*Logger))
//	})
func (c *Container) Extend(abstract string, fn extender) {
	key := c.canonical(abstract)
	st := c.state

	st.mu.Lock()
	st.extenders[key] = append(st.extenders[key], fn)
	st.mu.Unlock()

	if inst, ok := c.instance(key); ok {
		extended := fn(inst, c)
		c.dropInstance(key)
		if err := c.registerInstance(key, extended); err != nil {
			panic(fmt.Sprintf("container: %v", err))
		}
		c.fireRebound(key, extended)
	}
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple abstracts under a named group.
func (c *Container) Tag(abstracts []string, tag string) {
	st := c.state
	st.mu.Lock()
	defer st.mu.Unlock()
	st.tags[tag] = append(st.tags[tag], abstracts...)
}

// Tagged resolves all abstracts registered under a tag.
func (c *Container) Tagged(tag string) []any {
	st := c.state
	st.mu.RLock()
	abstracts := append([]string(nil), st.tags[tag]...)
	st.mu.RUnlock()

	result := make([]any, 0, len(abstracts))
	for _, abs := range abstracts {
		result = append(result, c.Make(abs))
	}
	return result
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container, panicking on failure. Use
// MakeE when the caller wants to handle resolution errors.
//
//	// Spring: beanFactory.getBean("userRepository")
//	repo := c.Make("userRepository")
func (c *Container) Make(abstract string) any {
	v, err := c.MakeE(abstract)
	if err != nil {
		panic(fmt.Errorf("container: make [%s]: %w", abstract, err))
	}
	return v
}

// MakeE resolves an abstract from the container. It returns ErrNotBound when
// nothing is registered under the name, and the construction error — a
// *registry.CreationError for shared instances — when a factory fails.
func (c *Container) MakeE(abstract string) (any, error) {
	key := c.canonical(abstract)

	// Shared instance cache first; inside a construction chain this also sees
	// early references of names currently being built.
	if v, ok := c.instance(key); ok {
		return v, nil
	}

	// Contextual binding for the abstract currently being built through this
	// view. Contextual results are never shared.
	if c.building != "" {
		if f := c.state.getContextual(c.building, key); f != nil {
			return c.buildTransient(key, f)
		}
	}

	c.state.mu.RLock()
	b, ok := c.state.bindings[key]
	c.state.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: [%s]", ErrNotBound, key)
	}
	if b.shared {
		return c.buildShared(key, b.factory)
	}
	return c.buildTransient(key, b.factory)
}

// buildShared routes construction through the registry so that concurrent
// callers share one factory run and circular references are caught.
func (c *Container) buildShared(key string, f Factory) (any, error) {
	created := false
	regFactory := func(s *registry.Scope) (any, error) {
		view := &Container{state: c.state, scope: s, building: key}
		instance, err := runFactory(key, f, view)
		if err != nil {
			return nil, err
		}
		created = true
		return c.state.applyExtenders(key, view, instance), nil
	}

	var (
		v   any
		err error
	)
	if c.scope != nil {
		v, err = c.scope.GetOrCreate(key, regFactory)
	} else {
		v, err = c.state.reg.GetOrCreate(key, regFactory)
	}
	if err != nil {
		return nil, err
	}
	if created {
		c.fireAfterResolving(key, v)
	}
	return v, nil
}

func (c *Container) buildTransient(key string, f Factory) (any, error) {
	view := &Container{state: c.state, scope: c.scope, building: key}
	instance, err := runFactory(key, f, view)
	if err != nil {
		return nil, err
	}
	instance = c.state.applyExtenders(key, view, instance)
	c.fireAfterResolving(key, instance)
	return instance, nil
}

// runFactory invokes a user factory, converting a panic into an error. Make
// panics with the wrapped resolution error, so a nested Make failure inside a
// factory surfaces to the outer MakeE as a construction error carrying the
// full cause chain instead of unwinding the caller.
func runFactory(key string, f Factory, view *Container) (instance any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = e
				return
			}
			err = fmt.Errorf("factory for [%s] panicked: %v", key, rec)
		}
	}()
	instance = f(view)
	if instance == nil {
		err = fmt.Errorf("factory for [%s] returned nil", key)
	}
	return instance, err
}

func (st *state) applyExtenders(key string, view *Container, instance any) any {
	st.mu.RLock()
	exts := append([]extender(nil), st.extenders[key]...)
	st.mu.RUnlock()
	for _, ext := range exts {
		instance = ext(instance, view)
	}
	return instance
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// Disposable registers a teardown callback for abstract, run by Terminate in
// dependency-aware order.
//
//	// Spring: beanFactory.registerDisposableBean(beanName, bean)
//	c.Disposable("db", db.Close)
func (c *Container) Disposable(abstract string, dispose func() error) {
	c.state.reg.RegisterDisposable(c.canonical(abstract), dispose)
}

// DependsOn records that abstract depends on dependency, so that Terminate
// destroys abstract before dependency.
//
//	// Spring: beanDefinition.setDependsOn("db")
//	c.DependsOn("repo", "db")
func (c *Container) DependsOn(abstract, dependency string) {
	c.state.reg.RegisterDependent(dependency, c.canonical(abstract))
}

// Contained records that part lives inside whole and shares its fate: whole's
// teardown cascades to part.
func (c *Container) Contained(part, whole string) {
	c.state.reg.RegisterContained(c.canonical(part), c.canonical(whole))
}

// Terminate tears down every shared instance: dependents before their
// dependencies, otherwise in reverse registration order. The container's
// bindings survive, so instances are rebuilt on the next Make.
//
//	// Spring: beanFactory.destroySingletons()
func (c *Container) Terminate() {
	c.state.reg.DestroySingletons()
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound reports whether an abstract has a binding or a shared instance.
func (c *Container) Bound(abstract string) bool {
	key := c.canonical(abstract)
	if c.state.reg.Contains(key) {
		return true
	}
	c.state.mu.RLock()
	defer c.state.mu.RUnlock()
	_, ok := c.state.bindings[key]
	return ok
}

// Resolved reports whether the abstract has a finished shared instance.
func (c *Container) Resolved(abstract string) bool {
	return c.state.reg.Contains(c.canonical(abstract))
}

// Forget removes the binding and the shared instance for an abstract.
func (c *Container) Forget(abstract string) {
	key := c.canonical(abstract)
	c.state.mu.Lock()
	delete(c.state.bindings, key)
	c.state.mu.Unlock()
	c.dropInstance(key)
}

// Flush resets the container: bindings, tags, extenders, contextual maps and
// callbacks are dropped and the registry is torn down, disposables included.
func (c *Container) Flush() {
	st := c.state
	st.mu.Lock()
	st.bindings = make(map[string]*binding)
	st.extenders = make(map[string][]extender)
	st.tags = make(map[string][]string)
	st.contextual = make(map[string]map[string]Factory)
	st.reboundCallbacks = make(map[string][]func(any))
	st.afterResolving = nil
	st.mu.Unlock()

	st.reg.DestroySingletons()
	c.Instance("container", c)
}

// Bindings returns all registered abstract keys, bound factories and shared
// instances combined.
func (c *Container) Bindings() []string {
	st := c.state
	st.mu.RLock()
	out := make([]string, 0, len(st.bindings))
	for k := range st.bindings {
		out = append(out, k)
	}
	st.mu.RUnlock()
	for _, k := range st.reg.Names() {
		st.mu.RLock()
		_, already := st.bindings[k]
		st.mu.RUnlock()
		if !already {
			out = append(out, k)
		}
	}
	return out
}

// canonical resolves an alias chain to its terminal name.
func (c *Container) canonical(abstract string) string {
	return c.state.reg.CanonicalName(abstract)
}

// instance returns the shared instance for key, scope-aware so factories see
// early references on their own construction chain.
func (c *Container) instance(key string) (any, bool) {
	if c.scope != nil {
		return c.scope.Get(key)
	}
	return c.state.reg.Get(key)
}

func (c *Container) registerInstance(key string, v any) error {
	if c.scope != nil {
		return c.scope.Register(key, v)
	}
	return c.state.reg.Register(key, v)
}

func (c *Container) dropInstance(key string) {
	if c.scope != nil {
		c.scope.Remove(key)
	} else {
		c.state.reg.Remove(key)
	}
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback invoked whenever the abstract is re-bound or
// its shared instance is replaced.
func (c *Container) Rebinding(abstract string, cb func(any)) {
	key := c.canonical(abstract)
	st := c.state
	st.mu.Lock()
	defer st.mu.Unlock()
	st.reboundCallbacks[key] = append(st.reboundCallbacks[key], cb)
}

// AfterResolving registers a callback fired after any abstract is constructed.
// Callbacks must not resolve further abstracts.
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	st := c.state
	st.mu.Lock()
	defer st.mu.Unlock()
	st.afterResolving = append(st.afterResolving, cb)
}

func (c *Container) fireRebound(key string, instance any) {
	st := c.state
	st.mu.RLock()
	cbs := append(([]func(any))(nil), st.reboundCallbacks[key]...)
	st.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireAfterResolving(key string, instance any) {
	st := c.state
	st.mu.RLock()
	cbs := append(([]func(string, any))(nil), st.afterResolving...)
	st.mu.RUnlock()
	for _, cb := range cbs {
		cb(key, instance)
	}
}

// ── Reflect helpers ───────────────────────────────────────────────────────────

// TypeKey returns the package-qualified type name of v, useful as a stable
// abstract key when working with interfaces.
//
//	key := container.TypeKey((*UserRepository)(nil))
//	c.Singleton(key, factory)
func TypeKey(v any) string {
	t := reflect.TypeOf(v)
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.PkgPath() + "." + t.Name()
}

// ── Generics helper ───────────────────────────────────────────────────────────

// Resolve is a generic helper that calls Make and type-asserts the result.
//
//	// Instead of: db := c.Make("db").(*sql.DB)
//	// Write:      db := container.Resolve[*sql.DB](c, "db")
func Resolve[T any](c *Container, abstract string) T {
	instance := c.Make(abstract)
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Sprintf("container: Resolve[%T]: [%s] resolved to %T", *new(T), abstract, instance))
	}
	return typed
}

// MustResolve is like Resolve but returns (T, bool) without panicking.
func MustResolve[T any](c *Container, abstract string) (T, bool) {
	instance, err := c.MakeE(abstract)
	if err != nil {
		var zero T
		return zero, false
	}
	typed, ok := instance.(T)
	return typed, ok
}
