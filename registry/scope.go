package registry

// Scope is the handle a Factory uses to resolve nested names while its own
// construction is in flight. It is bound to the construction chain that holds
// the registry's construction mutex, so its methods continue the get-or-create
// protocol without re-acquiring the lock.
//
// A Scope must not escape the factory call it was passed to.
type Scope struct {
	reg   *SingletonRegistry
	stack []string // names under construction on this chain, outermost first
}

// Registry returns the owning registry. Alias and dependency operations have
// their own synchronization scope and are safe to call from inside a factory
// through this handle.
func (s *Scope) Registry() *SingletonRegistry { return s.reg }

// Name returns the name currently being constructed on this chain.
func (s *Scope) Name() string {
	if len(s.stack) == 0 {
		return ""
	}
	return s.stack[len(s.stack)-1]
}

// Stack returns the construction chain, outermost name first.
func (s *Scope) Stack() []string {
	return append([]string(nil), s.stack...)
}

// Get returns the instance for name: finished, published early reference, or
// — for a name that is mid-construction on this chain — the result of its
// pending early-reference factory, which is invoked once and published.
func (s *Scope) Get(name string) (any, bool) {
	r := s.reg
	if v, ok := r.singletons.Load(name); ok {
		return v, true
	}
	if _, in := r.inCreation[name]; !in {
		return nil, false
	}
	if v, ok := r.early.Load(name); ok {
		return v, true
	}
	if early, ok := r.earlyFactories[name]; ok {
		v := early()
		r.early.Store(name, v)
		delete(r.earlyFactories, name)
		return v, true
	}
	return nil, false
}

// GetOrCreate continues the construction protocol for a nested name. A nested
// request for a name already on this chain is an unresolvable cycle and fails
// with ErrCurrentlyInCreation; the failure is also recorded as a suppressed
// cause on the outermost construction.
func (s *Scope) GetOrCreate(name string, factory Factory) (any, error) {
	return s.reg.getOrCreateLocked(s, name, factory)
}

// AddEarlyFactory publishes an early-reference factory for name, letting a
// factory further down this chain observe a partial instance instead of
// failing on the cycle. See SingletonRegistry.AddEarlyFactory.
func (s *Scope) AddEarlyFactory(name string, early func() any) {
	s.reg.addEarlyFactoryLocked(name, early)
}

// Register inserts an already-built instance under name from inside a
// factory. Same contract as SingletonRegistry.Register.
func (s *Scope) Register(name string, instance any) error {
	return s.reg.registerLocked(name, instance)
}

// Remove purges name from every instance tier from inside a factory. Same
// contract as SingletonRegistry.Remove.
func (s *Scope) Remove(name string) {
	s.reg.removeLocked(name)
}

// Suppress records an error swallowed by the running factory, attached to the
// outermost CreationError of this chain as a related cause.
func (s *Scope) Suppress(err error) {
	r := s.reg
	if r.recording && err != nil {
		r.suppressed = append(r.suppressed, err)
	}
}
