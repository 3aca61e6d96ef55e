// Package server implements the HTTP transport layer for the krishi backend.
package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	krishi "github.com/krishihq/krishi/internal"
	"github.com/krishihq/krishi/internal/app"
	"github.com/krishihq/krishi/internal/ratelimit"
	"github.com/krishihq/krishi/internal/storage"
	"github.com/krishihq/krishi/internal/telemetry"
)

// ReadyChecker reports whether the system is ready to serve traffic.
type ReadyChecker func(ctx context.Context) error

// AuthService is the account and session surface consumed by the handlers.
type AuthService interface {
	krishi.Authenticator
	Register(ctx context.Context, username, email, fullName, password string) (*krishi.User, error)
	Login(ctx context.Context, username, password string) (string, *krishi.User, error)
	Logout(ctx context.Context, rawToken string) error
}

// Deps holds all dependencies for the HTTP server.
type Deps struct {
	Auth        AuthService
	Store       storage.Store
	Weather     *app.Weather
	Market      *app.Market
	Advisor     *app.Advisor
	Dashboard   *app.Dashboard
	ReadyCheck  ReadyChecker        // nil = always ready (for tests)
	RateLimiter *ratelimit.Registry // nil = no rate limiting
	RateLimit   int64               // requests per minute per client
	CORSOrigin  string              // "" = no CORS headers
	Metrics     *telemetry.Metrics  // nil = no metrics collection
	MetricsPage http.Handler        // nil = /metrics not mounted
}

// New creates an http.Handler with all routes and middleware wired.
func New(deps Deps) http.Handler {
	s := &server{deps: deps}

	r := chi.NewRouter()

	// Global middleware
	r.Use(s.recovery)
	r.Use(s.requestID)
	r.Use(s.logging)
	if deps.Metrics != nil {
		r.Use(metricsMiddleware(deps.Metrics))
	}
	if deps.CORSOrigin != "" {
		r.Use(s.cors)
	}
	r.Use(middleware.Compress(5))

	// System endpoints (no auth)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if deps.MetricsPage != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsPage)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.rateLimit)

		// Account endpoints (no auth)
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		// Everything else requires a session
		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/me", s.handleMe)
			r.Post("/auth/logout", s.handleLogout)

			r.Get("/weather", s.handleWeather)
			r.Get("/weather/forecast", s.handleForecast)
			r.Get("/prices", s.handlePrices)

			r.Get("/crops", s.handleListCrops)
			r.Post("/crops", s.handleCreateCrop)
			r.Get("/crops/{id}", s.handleGetCrop)
			r.Put("/crops/{id}", s.handleUpdateCrop)
			r.Delete("/crops/{id}", s.handleDeleteCrop)

			r.Get("/expenses", s.handleListExpenses)
			r.Post("/expenses", s.handleCreateExpense)
			r.Get("/expenses/summary", s.handleExpenseSummary)
			r.Delete("/expenses/{id}", s.handleDeleteExpense)

			r.Get("/soil", s.handleListSoilReports)
			r.Post("/soil", s.handleCreateSoilReport)
			r.Delete("/soil/{id}", s.handleDeleteSoilReport)

			r.Post("/chatbot", s.handleChat)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/dashboard/insight", s.handleInsight)
		})
	})

	return r
}

type server struct {
	deps Deps
}
