package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/footfall-dashboard/api/routes"
	"github.com/angelmondragon/footfall-dashboard/internal/auth"
	"github.com/angelmondragon/footfall-dashboard/internal/dashboard"
	"github.com/angelmondragon/footfall-dashboard/internal/locations"
	"github.com/angelmondragon/footfall-dashboard/pkg/auth/session"
	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	"github.com/angelmondragon/footfall-dashboard/pkg/instance"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/metrics"
	"github.com/angelmondragon/footfall-dashboard/pkg/redis"
	"github.com/angelmondragon/footfall-dashboard/pkg/trafficapi"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	refreshMetrics := metrics.NewRefreshMetrics(promReg)

	upstream, err := trafficapi.NewClient(cfg.Upstream.BaseURL,
		trafficapi.WithToken(cfg.Upstream.Token),
		trafficapi.WithTimeout(cfg.Upstream.Timeout),
		trafficapi.WithObserver(refreshMetrics),
	)
	if err != nil {
		logg.Error(ctx, "failed to create traffic client", err)
		os.Exit(1)
	}

	catalog, err := locations.NewCatalog(upstream,
		locations.WithCache(redisClient, cfg.Dashboard.CatalogTTL),
		locations.WithLogger(logg),
		locations.WithMetrics(refreshMetrics),
	)
	if err != nil {
		logg.Error(ctx, "failed to create location catalog", err)
		os.Exit(1)
	}

	tz, err := cfg.Dashboard.Location()
	if err != nil {
		logg.Error(ctx, "failed to load dashboard timezone", err)
		os.Exit(1)
	}
	defaultPreset, err := enums.ParseDatePreset(cfg.Dashboard.DefaultPreset)
	if err != nil {
		logg.Warn(ctx, "unknown default preset, falling back to today")
		defaultPreset = enums.DatePresetToday
	}

	dashboards, err := dashboard.NewRegistry(dashboard.RegistryConfig{
		Fetcher:       upstream,
		Catalog:       catalog,
		Logger:        logg,
		Metrics:       refreshMetrics,
		Timezone:      tz,
		DefaultPreset: defaultPreset,
		Timeout:       cfg.Dashboard.RefreshTimeout,
		IdleTTL:       cfg.Dashboard.SessionIdleTTL,
	})
	if err != nil {
		logg.Error(ctx, "failed to create dashboard registry", err)
		os.Exit(1)
	}
	defer dashboards.Close()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		Operator:       cfg.Operator,
		SessionManager: sessionManager,
		Dashboards:     dashboards,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"timezone": tz.String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:      cfg,
			Logger:      logg,
			Redis:       redisClient,
			Upstream:    upstream,
			Sessions:    sessionManager,
			Auth:        authService,
			Dashboards:  dashboards,
			Catalog:     catalog,
			MetricsGate: promReg,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}
