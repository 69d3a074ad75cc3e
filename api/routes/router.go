package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pindropapp/pindrop-backend/api/controllers"
	"github.com/pindropapp/pindrop-backend/api/middleware"
	"github.com/pindropapp/pindrop-backend/internal/accounts"
	"github.com/pindropapp/pindrop-backend/internal/cards"
	"github.com/pindropapp/pindrop-backend/internal/music"
	"github.com/pindropapp/pindrop-backend/internal/oauth"
	"github.com/pindropapp/pindrop-backend/internal/passwordreset"
	"github.com/pindropapp/pindrop-backend/pkg/auth/session"
	"github.com/pindropapp/pindrop-backend/pkg/config"
	"github.com/pindropapp/pindrop-backend/pkg/db"
	"github.com/pindropapp/pindrop-backend/pkg/enums"
	"github.com/pindropapp/pindrop-backend/pkg/logger"
	"github.com/pindropapp/pindrop-backend/pkg/metrics"
	"github.com/pindropapp/pindrop-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface depends on. Optional
// integrations (music, oauth, metrics) may be nil; their routes then answer
// with a dependency error instead of panicking at startup.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          db.Pinger
	Redis       *redis.Client
	Sessions    *session.Manager
	Metrics     *metrics.HTTPMetrics
	MetricsReg  *prometheus.Registry
	ContentDir  string
	Accounts    accounts.Service
	Cards       cards.Service
	Resets      passwordreset.Service
	Music       music.Searcher
	OAuth       oauth.Exchanger
}

// NewRouter assembles the chi router with the full middleware chain.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, p.Metrics),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginUserLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterUserLimit,
	)

	requireAuth := middleware.Auth(cfg.JWT, p.Sessions, logg)
	maybeAuth := middleware.OptionalAuth(cfg.JWT, p.Sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, p.DB, p.Redis, logg))
	})

	if p.MetricsReg != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.MetricsReg, promhttp.HandlerOpts{}))
	}

	// Uploaded photos and videos are served straight off disk under the same
	// prefix the DTOs embed in their URLs.
	if p.ContentDir != "" {
		fileServer := http.StripPrefix("/content/", http.FileServer(http.Dir(p.ContentDir)))
		r.Method(http.MethodGet, "/content/*", fileServer)
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/login", controllers.AuthLogin(p.Accounts, cfg, logg))
		r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).Post("/register", controllers.Register(p.Accounts, cfg, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/oauth", controllers.AuthOAuth(p.Accounts, p.OAuth, cfg, logg))
		r.With(requireAuth).Post("/logout", controllers.AuthLogout(p.Sessions, cfg, logg))
	})

	r.Route("/api/password-reset", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/", controllers.PasswordResetRequest(p.Resets, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).Post("/confirm", controllers.PasswordResetConfirm(p.Resets, logg))
	})

	r.Route("/api/cards", func(r chi.Router) {
		r.Get("/", controllers.CardsList(p.Cards, logg))
		r.Get("/map", controllers.CardsMap(p.Cards, logg))
		r.With(maybeAuth).Get("/{cardId}", controllers.CardsGet(p.Cards, logg))
		r.With(maybeAuth).Post("/", controllers.CardsCreate(p.Cards, cfg.Content, logg))
		r.With(requireAuth).Delete("/{cardId}", controllers.CardsDelete(p.Cards, logg))
	})

	r.Route("/api/me", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/", controllers.MeProfile(p.Accounts, logg))
		r.Delete("/", controllers.MeDelete(p.Accounts, cfg, logg))
	})

	r.Get("/api/music/search", controllers.MusicSearch(p.Music, logg))

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(requireAuth, middleware.RequireAdmin(logg))

		r.Route("/cards", func(r chi.Router) {
			r.Get("/", controllers.AdminCardsList(p.Cards, logg))
			r.Post("/{cardId}/approve", controllers.AdminCardsSetStatus(p.Cards, enums.CardStatusApproved, logg))
			r.Post("/{cardId}/reject", controllers.AdminCardsSetStatus(p.Cards, enums.CardStatusRejected, logg))
			r.Post("/{cardId}/archive", controllers.AdminCardsSetStatus(p.Cards, enums.CardStatusArchived, logg))
			r.Patch("/{cardId}", controllers.AdminCardsUpdate(p.Cards, logg))
			r.Delete("/{cardId}", controllers.CardsDelete(p.Cards, logg))
		})

		r.Delete("/accounts/{accountId}", controllers.AdminAccountDelete(p.Accounts, logg))
	})

	return r
}
