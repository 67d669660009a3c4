package routing_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/km-arc/go-beans/routing"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func do(t *testing.T, router *routing.Router, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// ── HTTP verbs ────────────────────────────────────────────────────────────────

func TestRouter_Verbs(t *testing.T) {
	tests := []struct {
		method   string
		register func(r *routing.Router)
		path     string
	}{
		{"GET", func(r *routing.Router) { r.Get("/hello", okHandler) }, "/hello"},
		{"POST", func(r *routing.Router) { r.Post("/services", okHandler) }, "/services"},
		{"PUT", func(r *routing.Router) { r.Put("/services/{name}", okHandler) }, "/services/db"},
		{"PATCH", func(r *routing.Router) { r.Patch("/services/{name}", okHandler) }, "/services/db"},
		{"DELETE", func(r *routing.Router) { r.Delete("/services/{name}", okHandler) }, "/services/db"},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			r := routing.New()
			tt.register(r)
			rr := do(t, r, tt.method, tt.path)
			if rr.Code != http.StatusOK {
				t.Errorf("%s %s: got %d want 200", tt.method, tt.path, rr.Code)
			}
		})
	}
}

func TestRouter_Any(t *testing.T) {
	r := routing.New()
	r.Any("/ping", okHandler)

	for _, method := range []string{"GET", "POST", "PUT", "PATCH", "DELETE"} {
		rr := do(t, r, method, "/ping")
		if rr.Code != http.StatusOK {
			t.Errorf("ANY %s /ping: got %d want 200", method, rr.Code)
		}
	}
}

// ── 404 for unregistered routes ──────────────────────────────────────────────

func TestRouter_NotFound(t *testing.T) {
	r := routing.New()
	rr := do(t, r, http.MethodGet, "/not-registered")
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rr.Code)
	}
}

// ── Route params ─────────────────────────────────────────────────────────────

func TestRouter_Param(t *testing.T) {
	r := routing.New()
	r.Get("/services/{name}", func(w http.ResponseWriter, req *http.Request) {
		name := routing.Param(req, "name")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(name))
	})

	rr := do(t, r, http.MethodGet, "/services/cache")
	if rr.Code != http.StatusOK {
		t.Fatalf("got %d want 200", rr.Code)
	}
	if rr.Body.String() != "cache" {
		t.Errorf("got body %q want %q", rr.Body.String(), "cache")
	}
}

// ── Prefix / Group ───────────────────────────────────────────────────────────

func TestRouter_Prefix(t *testing.T) {
	r := routing.New()
	r.Prefix("/registry", func(api *routing.Router) {
		api.Get("/names", okHandler)
	})

	rr := do(t, r, http.MethodGet, "/registry/names")
	if rr.Code != http.StatusOK {
		t.Errorf("GET /registry/names: got %d want 200", rr.Code)
	}

	// Root must 404
	rr2 := do(t, r, http.MethodGet, "/names")
	if rr2.Code != http.StatusNotFound {
		t.Errorf("GET /names: expected 404, got %d", rr2.Code)
	}
}

func TestRouter_Group_Middleware(t *testing.T) {
	called := false
	mw := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			next.ServeHTTP(w, r)
		})
	}

	r := routing.New()
	r.Group(func(g *routing.Router) {
		g.Middleware(mw)
		g.Get("/protected", okHandler)
	})

	do(t, r, http.MethodGet, "/protected")
	if !called {
		t.Error("expected middleware to be called")
	}
}

// ── Handler() returns http.Handler ───────────────────────────────────────────

func TestRouter_HandlerInterface(t *testing.T) {
	r := routing.New()
	r.Get("/ping", okHandler)
	var _ http.Handler = r.Handler()
}
