package main

import (
	"net/http"
	"os"

	"github.com/km-arc/go-beans/app"
	"github.com/km-arc/go-beans/container"
	gohttp "github.com/km-arc/go-beans/http"
	"github.com/km-arc/go-beans/routing"
)

// dataSource stands in for a connection pool.
type dataSource struct {
	dsn  string
	open bool
}

func (d *dataSource) Close() error {
	d.open = false
	return nil
}

// userRepo reads through the shared data source.
type userRepo struct {
	ds *dataSource
}

func main() {
	application := app.New() // loads .env automatically

	// ── Service wiring ───────────────────────────────────────────────────────

	application.Singleton("dataSource", func(c *container.Container) any {
		ds := &dataSource{dsn: "postgres://localhost/app", open: true}
		c.Disposable("dataSource", ds.Close)
		return ds
	})
	application.Alias("dataSource", "db")

	application.Singleton("userRepo", func(c *container.Container) any {
		return &userRepo{ds: container.Resolve[*dataSource](c, "db")}
	})
	application.DependsOn("userRepo", "db")

	application.Boot()

	r := application.Router()

	// ── Basic routes ─────────────────────────────────────────────────────────

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		res := gohttp.NewResponse(w)
		res.Success(map[string]any{
			"name":    application.Config().App.Name,
			"version": application.Version(),
		})
	})

	// ── Registry introspection ───────────────────────────────────────────────

	r.Prefix("/registry", func(api *routing.Router) {
		reg := application.Registry()

		// GET /registry/names
		api.Get("/names", func(w http.ResponseWriter, req *http.Request) {
			gohttp.NewResponse(w).Success(reg.Names())
		})

		// GET /registry/aliases/{name}
		api.Get("/aliases/{name}", func(w http.ResponseWriter, req *http.Request) {
			name := routing.Param(req, "name")
			canonical := reg.CanonicalName(name)
			gohttp.NewResponse(w).Success(map[string]any{
				"name":     canonical,
				"aliases":  reg.Aliases(canonical),
				"resolved": reg.Contains(canonical),
				"isAlias":  reg.IsAlias(name),
			})
		})

		// POST /registry/aliases  {"name": "dataSource", "alias": "primary-db"}
		api.Post("/aliases", func(w http.ResponseWriter, req *http.Request) {
			res := gohttp.NewResponse(w)
			var body struct {
				Name  string `json:"name"`
				Alias string `json:"alias"`
			}
			if err := gohttp.NewRequest(req).Bind(&body); err != nil {
				res.Error(http.StatusBadRequest, err.Error())
				return
			}
			if err := reg.RegisterAlias(body.Name, body.Alias); err != nil {
				res.Error(http.StatusConflict, err.Error())
				return
			}
			res.Created(map[string]any{"name": body.Name, "alias": body.Alias})
		})

		// GET /registry/dependents/{name}
		api.Get("/dependents/{name}", func(w http.ResponseWriter, req *http.Request) {
			name := routing.Param(req, "name")
			gohttp.NewResponse(w).Success(map[string]any{
				"dependents":   reg.Dependents(name),
				"dependencies": reg.DependenciesFor(name),
			})
		})
	})

	if err := application.Run(); err != nil {
		application.Log().Error("server error", "error", err)
		os.Exit(1)
	}
}
