package api

import (
	"net/http"

	"github.com/buildbuddy/engine/internal/api/handlers"
	mw "github.com/buildbuddy/engine/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type Dependencies struct {
	Authenticator  mw.Authenticator
	AuthHandler    *handlers.AuthHandler
	WizardHandler  *handlers.WizardHandler
	HealthHandler  *handlers.HealthHandler
	RateLimitRPS   float64
	RateLimitBurst int
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Recovery)
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(chimid.Compress(5))

	// Health and metrics
	hh := dep.HealthHandler
	if hh == nil {
		hh = handlers.NewHealthHandler(nil)
	}
	r.Get("/healthz", hh.Liveness)
	r.Get("/readyz", hh.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	rps, burst := dep.RateLimitRPS, dep.RateLimitBurst
	if rps <= 0 {
		rps, burst = 10, 20
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(mw.RateLimit(rps, burst))

		api.Post("/auth/register", dep.AuthHandler.Register)
		api.Post("/auth/login", dep.AuthHandler.Login)

		api.Group(func(protected chi.Router) {
			protected.Use(mw.Auth(dep.Authenticator))

			protected.Post("/auth/logout", dep.AuthHandler.Logout)
			protected.Get("/auth/me", dep.AuthHandler.Me)
			protected.Route("/wizard", dep.WizardHandler.Mount)
		})
	})

	return r
}
