// Package container provides a service container and provider system layered
// on top of the shared-instance registry in package registry.
//
// # Overview
//
// The container manages the instantiation and lifecycle of your application's
// services. It supports transient bindings, shared (singleton) bindings,
// pre-built instances, aliases, tags, contextual bindings, extension
// (decoration), and dependency-aware teardown.
//
// Shared instances are constructed through registry.SingletonRegistry, which
// gives the container Spring-style guarantees: each name is built at most
// once even under concurrent resolution, circular references between shared
// services are detected and — with ShareEarly — resolved, and Terminate
// destroys dependents before the services they depend on. Because Go has no
// runtime constructor reflection, auto-wiring is replaced by explicit factory
// functions.
//
// # Container Lifecycle
//
//  1. Create: c := container.New()
//  2. Register providers: providers.Register(&MyProvider{})
//  3. Boot: providers.Boot()       — safe to resolve everything after this
//  4. Serve requests
//  5. Shutdown: c.Terminate()      — disposables run, dependents first
//
// # Bindings
//
//	// Transient — new instance every Make()
//	c.Bind("report", func(c *container.Container) any { return &Report{} })
//
//	// Shared — created once, reused
//	// Spring: singleton-scoped bean
//	c.Singleton("cache", func(c *container.Container) any {
//	    cfg := container.Resolve[*config.Config](c, "config")
//	    return cache.New(cfg)
//	})
//
//	// Pre-built value
//	// Spring: beanFactory.registerSingleton("config", config)
//	c.Instance("config", cfg)
//
//	// Alias
//	// Spring: beanFactory.registerAlias("dataSource", "db")
//	c.Alias("dataSource", "db")
//
// # Resolving
//
//	// Untyped — panics when unresolvable
//	raw := c.Make("cache")
//
//	// With error handling
//	raw, err := c.MakeE("cache")
//
//	// Generic (preferred — no type assertion required)
//	cache := container.Resolve[*Cache](c, "cache")
//
// # Circular References
//
// Two shared services may reference each other if at least one publishes an
// early reference before resolving the other:
//
//	c.Singleton("a", func(c *container.Container) any {
//	    a := &A{}
//	    c.ShareEarly(a)                       // b's factory can now see a
//	    a.B = container.Resolve[*B](c, "b")
//	    return a
//	})
//
// Without ShareEarly the cycle fails with registry.ErrCurrentlyInCreation.
//
// # Teardown
//
//	c.Disposable("db", db.Close)   // run on Terminate
//	c.DependsOn("repo", "db")      // repo is destroyed before db
//	c.Terminate()
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Singleton("mailer", func(c *container.Container) any {
//	        cfg := container.Resolve[*config.Config](c, "config")
//	        return mail.NewSMTP(cfg.Mail)
//	    })
//	}
//
//	func (p *AppServiceProvider) Boot(app *container.Container) {
//	    // safe to resolve other bindings here
//	}
//
//	providers := container.NewProviderRegistry(c)
//	providers.Register(&AppServiceProvider{})
//	providers.Boot()
//
// # Deferred Providers
//
//	type HeavyProvider struct{ container.BaseProvider }
//
//	func (p *HeavyProvider) IsDeferred() bool   { return true }
//	func (p *HeavyProvider) Provides() []string { return []string{"heavy"} }
//	func (p *HeavyProvider) Register(app *container.Container) {
//	    app.Singleton("heavy", func(c *container.Container) any {
//	        return heavySetup() // only called on first app.Make("heavy")
//	    })
//	}
package container
