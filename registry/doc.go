// Package registry provides a shared-instance lifecycle registry: named
// singletons created at most once each, aliases resolved to canonical names,
// and a dependency graph that drives a safe teardown order.
//
// It mirrors the behaviour of Spring's bean registry core
// (SimpleAliasRegistry + DefaultSingletonBeanRegistry) as closely as Go's
// concurrency model allows. The registry never inspects how an instance is
// built — construction logic is supplied as an opaque factory callback — it
// only orchestrates when construction runs and in what order teardown happens.
//
// # Construction protocol
//
//	reg := registry.New()
//	svc, err := reg.GetOrCreate("mailer", func(s *registry.Scope) (any, error) {
//	    cfg, _ := s.Get("config")
//	    return NewMailer(cfg.(*Config)), nil
//	})
//
// A factory runs while the registry's single construction mutex is held, so
// first-time constructions serialize globally. Java's reentrant monitors let
// Spring re-enter getSingleton from inside a factory; Go mutexes are not
// reentrant, so nested resolution is threaded explicitly instead: the factory
// receives a *Scope bound to the in-flight construction and must resolve
// nested names through it.
//
// # Circular references
//
// Two names whose factories need each other are resolved with early
// references: a factory publishes a structurally complete but not yet fully
// populated instance via Scope.AddEarlyFactory, and the other side's nested
// Scope.Get observes that partial instance instead of deadlocking. A cycle
// where both sides need a fully built peer cannot be resolved and fails fast
// with ErrCurrentlyInCreation.
//
// # Teardown
//
//	reg.RegisterDisposable("pool", pool.Close)
//	reg.RegisterDependent("pool", "server") // server depends on pool
//	reg.DestroySingletons()                 // server torn down before pool
//
// Disposables run in reverse registration order, dependents strictly before
// their dependencies, and callback failures are logged and swallowed so
// shutdown always runs to completion.
package registry
