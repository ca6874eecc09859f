package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/footfall-dashboard/api/controllers"
	"github.com/angelmondragon/footfall-dashboard/api/middleware"
	"github.com/angelmondragon/footfall-dashboard/internal/auth"
	"github.com/angelmondragon/footfall-dashboard/pkg/auth/session"
	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/redis"
)

// Deps carries everything the router needs to build handlers.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Redis       *redis.Client
	Upstream    controllers.Pinger
	Sessions    session.AccessSessionChecker
	Auth        auth.Service
	Dashboards  controllers.Sessions
	Catalog     controllers.LocationCatalog
	MetricsGate prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.SecureHeaders(cfg.App),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)

	readiness := map[string]controllers.Pinger{}
	if d.Redis != nil {
		readiness["redis"] = d.Redis
	}
	if d.Upstream != nil {
		readiness["upstream"] = d.Upstream
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	if d.MetricsGate != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.MetricsGate, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/presets", controllers.ListPresets())

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, d.Sessions, logg)).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))

			r.Get("/locations/{kind}", controllers.ListLocations(d.Catalog, d.Dashboards, logg))

			r.Get("/dashboard", controllers.DashboardView(d.Dashboards, logg))
			r.Get("/filters", controllers.FiltersView(d.Dashboards, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RefreshRateLimit(cfg.Dashboard.RefreshLimit, cfg.Dashboard.RefreshWindow, logg))
				r.Post("/dashboard/refresh", controllers.DashboardRefresh(d.Dashboards, logg))
				r.Put("/filters/location", controllers.UpdateLocation(d.Dashboards, d.Catalog, logg))
				r.Put("/filters/date-range", controllers.UpdateDateRange(d.Dashboards, logg))
			})
		})
	})

	return r
}
