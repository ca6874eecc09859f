package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("expected App.Env to be production, got %q", cfg.App.Env)
	}
	if cfg.Upstream.BaseURL != "https://traffic.example.test" {
		t.Fatalf("unexpected upstream url %q", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.Timeout != 10*time.Second {
		t.Fatalf("expected default upstream timeout 10s, got %v", cfg.Upstream.Timeout)
	}
	if got := cfg.Dashboard.CatalogTTL; got != 2*time.Minute {
		t.Fatalf("expected catalog ttl 2m, got %v", got)
	}
	if cfg.Dashboard.DefaultPreset != "today" {
		t.Fatalf("unexpected default preset %q", cfg.Dashboard.DefaultPreset)
	}
	if cfg.JWT.SessionTTL() != 12*time.Hour {
		t.Fatalf("expected session ttl 12h, got %v", cfg.JWT.SessionTTL())
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAppEnv); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAppEnv, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsBadUpstreamURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvUpstreamBaseURL, "ftp://traffic")

	if _, err := Load(); err == nil {
		t.Fatal("expected non-http upstream url to be rejected")
	}
}

func TestLoad_RejectsUnknownTimezone(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvDashboardTimezone, "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Fatal("expected unknown timezone to be rejected")
	}
}

func TestLoadReport_IgnoresServerSettings(t *testing.T) {
	t.Setenv(EnvAppEnv, "dev")
	t.Setenv(EnvUpstreamBaseURL, "http://localhost:9000")
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvOperatorEmail, "")

	cfg, err := LoadReport()
	if err != nil {
		t.Fatalf("LoadReport() returned unexpected error: %v", err)
	}
	if cfg.Upstream.BaseURL != "http://localhost:9000" {
		t.Fatalf("unexpected upstream url %q", cfg.Upstream.BaseURL)
	}
	if cfg.Dashboard.RefreshTimeout != 15*time.Second {
		t.Fatalf("expected default refresh timeout, got %v", cfg.Dashboard.RefreshTimeout)
	}
	if cfg.Dashboard.SessionIdleTTL != 2*time.Hour {
		t.Fatalf("expected default session idle ttl, got %v", cfg.Dashboard.SessionIdleTTL)
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "production")
	t.Setenv(EnvPort, "8081")
	t.Setenv(EnvUpstreamBaseURL, "https://traffic.example.test")
	t.Setenv(EnvDashboardTimezone, "UTC")
	t.Setenv(EnvDashboardCatalogTTL, "2m")
	t.Setenv(EnvRedisURL, "redis://localhost:6379/0")
	t.Setenv(EnvJWTSecret, "secret")
	t.Setenv(EnvOperatorEmail, "admin@example.com")
	t.Setenv(EnvOperatorPasswordHash, "$argon2id$v=19$m=8,t=1,p=1$c2FsdHNhbHQ$aGFzaGhhc2hoYXNoaGFzaA")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}

func TestDashboardLocationDefaultsToUTC(t *testing.T) {
	loc, err := DashboardConfig{}.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc != time.UTC {
		t.Fatalf("expected UTC, got %v", loc)
	}
}
