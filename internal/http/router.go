package http

import (
	nethttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/safezone/server/internal/http/handlers"
	"github.com/safezone/server/internal/http/response"
	"github.com/safezone/server/internal/metrics"
	"github.com/safezone/server/internal/middleware"
	"github.com/safezone/server/internal/validate"
)

// Deps collects everything the router needs to mount the API
type Deps struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	Tokens  middleware.TokenVerifier
	Users   middleware.UserLookup
	Limiter middleware.Limiter

	AllowedOrigins []string

	// Body caps; multipart SOS uploads get MaxUploadBytes, everything else MaxBodyBytes
	MaxBodyBytes   int64
	MaxUploadBytes int64

	Auth      *handlers.AuthHandler
	Alerts    *handlers.AlertHandler
	SafeSpots *handlers.SafeSpotHandler
	Zones     *handlers.ZoneHandler
	SOS       *handlers.SOSHandler
	Health    nethttp.Handler
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()
	log := d.Logger

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.Recover(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimw.SetHeader("X-Content-Type-Options", "nosniff"))
	r.Use(chimw.SetHeader("X-Frame-Options", "SAMEORIGIN"))
	r.Use(chimw.SetHeader("Referrer-Policy", "no-referrer"))
	if d.Metrics != nil {
		r.Use(d.Metrics.Instrument)
		r.Method(nethttp.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.NotFound(response.NotFound)
	r.MethodNotAllowed(response.NotFound)

	requireUser := middleware.Authenticate(d.Tokens, d.Users, log)
	smallBody := bodyLimit(d.MaxBodyBytes)
	limited := func(r chi.Router) chi.Router {
		if d.Limiter == nil {
			return r
		}
		return r.With(middleware.RateLimit(d.Limiter, middleware.IPKey, log))
	}

	if d.Health != nil {
		r.Method(nethttp.MethodGet, "/health", d.Health)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(smallBody)
		limited(r).With(validate.Body(validate.Signup, log)).
			Post("/signup", handlers.Wrap(log, d.Auth.Signup))
		limited(r).With(validate.Body(validate.Login, log)).
			Post("/login", handlers.Wrap(log, d.Auth.Login))
	})

	r.With(requireUser).Get("/user/me", handlers.Wrap(log, d.Auth.Me))

	report := handlers.Wrap(log, d.Alerts.Report)
	r.Get("/alerts", handlers.Wrap(log, d.Alerts.List))
	r.With(smallBody, requireUser, validate.Body(validate.AlertReport, log)).Post("/alerts/report", report)
	r.With(smallBody, requireUser, validate.Body(validate.AlertReport, log)).Post("/report", report)

	nearby := handlers.Wrap(log, d.SafeSpots.Nearby)
	r.Get("/safe-spots", handlers.Wrap(log, d.SafeSpots.List))
	r.Get("/safe-spots/nearby", nearby)
	r.With(smallBody).Post("/safe-spots/nearby", nearby)

	limited(r.With(bodyLimit(d.MaxUploadBytes), requireUser)).
		With(d.SOS.Upload, validate.Body(validate.SOSTrigger, log)).
		Post("/sos/trigger", handlers.Wrap(log, d.SOS.Trigger))

	r.Get("/zones/unsafe", handlers.Wrap(log, d.Zones.Unsafe))
	r.Get("/zones/safe", handlers.Wrap(log, d.Zones.Safe))
	r.Get("/routes/safer", handlers.Wrap(log, d.Zones.SaferRoute))

	return r
}

// bodyLimit caps request bodies at n bytes; n <= 0 leaves them unbounded
func bodyLimit(n int64) func(nethttp.Handler) nethttp.Handler {
	if n <= 0 {
		return func(next nethttp.Handler) nethttp.Handler { return next }
	}
	return chimw.RequestSize(n)
}
