package httpapi

import (
	stdhttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"diagramgen/internal/http/handlers"
	"diagramgen/internal/middleware"
)

// Options controls router construction.
type Options struct {
	// StaticDir, when set, is served under /static/ so locally stored
	// artifacts are reachable through their public URLs.
	StaticDir string
	// RateLimitPerMin bounds submissions per client IP; zero disables
	// the limiter.
	RateLimitPerMin int
}

// NewRouter assembles the service's HTTP surface.
func NewRouter(app *handlers.App, opts Options) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimiddleware.RealIP, chimiddleware.Recoverer, middleware.Logger(app.Logger))

	r.Get("/v1/healthz", app.Health)
	r.Get("/v1/stats", app.Stats)
	r.Get("/v1/types", app.Types)

	r.Group(func(r chi.Router) {
		if opts.RateLimitPerMin > 0 {
			r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
		}
		r.Post("/v1/generate", app.Generate)
	})

	r.Get("/v1/status/{job_id}", app.Status)

	if opts.StaticDir != "" {
		fs := stdhttp.StripPrefix("/static/", stdhttp.FileServer(stdhttp.Dir(opts.StaticDir)))
		r.Get("/static/*", fs.ServeHTTP)
	}

	return r
}
