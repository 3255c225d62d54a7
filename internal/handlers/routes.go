package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bibliobalance/internal/catalog"
	"bibliobalance/internal/service"
)

// Services bundles what the HTTP layer calls into.
type Services struct {
	Auth     *service.AuthService
	Books    *service.BookService
	Stats    *service.StatsService
	Profiles *service.ProfileService
	Catalog  *catalog.Client
}

// RouterOptions configures cross-cutting HTTP behaviour.
type RouterOptions struct {
	CORSAllowedOrigins []string
	// RateLimitRequests per RateLimitWindow applies to the auth endpoints.
	// Zero disables the limit.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	OAuth             OAuthSettings
}

// Routes builds the API router.
func Routes(svc Services, opts RouterOptions, startup *StartupStatus, logger *zap.Logger) http.Handler {
	mw := NewMiddleware(svc.Auth, logger)
	authHandler := NewAuthHandler(svc.Auth, svc.Profiles, opts.OAuth, logger)
	bookHandler := NewBookHandler(svc.Books, logger)
	statsHandler := NewStatsHandler(svc.Stats, logger)
	profileHandler := NewProfileHandler(svc.Profiles, logger)
	catalogHandler := NewCatalogHandler(svc.Catalog, logger)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(mw.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", startup.Health)
	r.Get("/healthz", startup.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if opts.RateLimitRequests > 0 {
				r.Use(httprate.LimitByIP(opts.RateLimitRequests, opts.RateLimitWindow))
			}
			r.Post("/signup", authHandler.Signup)
			r.Post("/login", authHandler.Login)
			r.Get("/providers", authHandler.Providers)
			r.Get("/{provider}/start", authHandler.StartOAuth)
			r.Get("/{provider}/callback", authHandler.OAuthCallback)
			r.With(mw.RequireAuth).Get("/me", authHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(mw.RequireAuth)

			r.Route("/books", func(r chi.Router) {
				r.Get("/", bookHandler.List)
				r.Post("/", bookHandler.Create)
				r.Get("/favorites", bookHandler.Favorites)
				r.Get("/exists", bookHandler.Exists)
				r.Post("/from-catalog", bookHandler.AddFromCatalog)
				r.Get("/{id}", bookHandler.Get)
				r.Patch("/{id}", bookHandler.Update)
				r.Put("/{id}/progress", bookHandler.UpdateProgress)
				r.Put("/{id}/favorite", bookHandler.SetFavorite)
				r.Delete("/{id}", bookHandler.Delete)
			})

			r.Route("/reading-stats", func(r chi.Router) {
				r.Get("/", statsHandler.Get)
				r.Patch("/", statsHandler.Update)
				r.Post("/refresh", statsHandler.Refresh)
				r.Get("/monthly", statsHandler.Monthly)
				r.Get("/genres", statsHandler.Genres)
				r.Get("/challenge", statsHandler.Challenge)
				r.Put("/challenge/target", statsHandler.UpdateTarget)
				r.Get("/challenges", statsHandler.ListChallenges)
				r.Post("/challenges", statsHandler.CreateChallenge)
			})

			r.Route("/profiles/me", func(r chi.Router) {
				r.Get("/", profileHandler.Get)
				r.Patch("/", profileHandler.Update)
				r.Delete("/", profileHandler.Delete)
			})

			r.Route("/catalog", func(r chi.Router) {
				r.Get("/search", catalogHandler.Search)
				r.Get("/genres", catalogHandler.Genres)
				r.Get("/genres/{genre}", catalogHandler.ByGenre)
				r.Get("/popular", catalogHandler.Popular)
			})
		})
	})

	return r
}
