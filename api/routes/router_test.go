package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/footfall-dashboard/internal/auth"
	"github.com/angelmondragon/footfall-dashboard/internal/dashboard"
	"github.com/angelmondragon/footfall-dashboard/internal/filters"
	"github.com/angelmondragon/footfall-dashboard/internal/locations"
	pkgAuth "github.com/angelmondragon/footfall-dashboard/pkg/auth"
	"github.com/angelmondragon/footfall-dashboard/pkg/config"
	"github.com/angelmondragon/footfall-dashboard/pkg/enums"
	"github.com/angelmondragon/footfall-dashboard/pkg/logger"
	"github.com/angelmondragon/footfall-dashboard/pkg/metrics"
	"github.com/angelmondragon/footfall-dashboard/pkg/redis"
	"github.com/angelmondragon/footfall-dashboard/pkg/trafficapi"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubAuthService struct {
	loggedOut []string
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return nil, fmt.Errorf("not implemented")
}

func (s *stubAuthService) Logout(ctx context.Context, sessionID string) error {
	s.loggedOut = append(s.loggedOut, sessionID)
	return nil
}

type stubSessionManager struct {
	active map[string]bool
}

func (s stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return s.active[accessID], nil
}

type stubFetcher struct{}

func (stubFetcher) Traffic(context.Context, trafficapi.TrafficQuery) (*trafficapi.TrafficResponse, error) {
	var resp trafficapi.TrafficResponse
	err := json.Unmarshal([]byte(`{"age": [], "gender": {"male": 1, "female": 1}, "graph": [],
		"summary": {"in": {"count": 3, "change": 0}, "out": {"count": 1, "change": 0}}}`), &resp)
	return &resp, err
}

type stubCatalog struct{}

func (stubCatalog) Load(context.Context) locations.Options {
	return locations.Options{enums.LocationKindStore: {{ID: "s1", Name: "Main St"}}}
}

func (stubCatalog) Kind(context.Context, enums.LocationKind) ([]filters.Option, error) {
	return []filters.Option{{ID: "s1", Name: "Main St"}}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		JWT: config.JWTConfig{
			Secret:            "router-test-secret",
			Issuer:            "footfall-test",
			ExpirationMinutes: 30,
		},
		Dashboard: config.DashboardConfig{
			RefreshLimit:  3,
			RefreshWindow: time.Minute,
		},
		AuthRateLimit: config.AuthRateLimitConfig{
			LoginWindow:     time.Minute,
			LoginIPLimit:    2,
			LoginEmailLimit: 2,
		},
	}
}

type routerFixture struct {
	handler http.Handler
	cfg     *config.Config
	auth    *stubAuthService
	token   string
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	cfg := testConfig()
	mr := miniredis.RunT(t)
	rdb := redis.Wrap(goredis.NewClient(&goredis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = rdb.Close() })

	promReg := prometheus.NewRegistry()
	refreshMetrics := metrics.NewRefreshMetrics(promReg)

	reg, err := dashboard.NewRegistry(dashboard.RegistryConfig{
		Fetcher: stubFetcher{},
		Catalog: stubCatalog{},
		Logger:  logger.Nop(),
		Metrics: refreshMetrics,
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	t.Cleanup(reg.Close)

	token, err := pkgAuth.MintAccessToken(cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		Email:     "ops@example.com",
		SessionID: "sess-router",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	svc := &stubAuthService{}
	handler := NewRouter(Deps{
		Config:      cfg,
		Logger:      logger.Nop(),
		Redis:       rdb,
		Upstream:    stubPinger{},
		Sessions:    stubSessionManager{active: map[string]bool{"sess-router": true}},
		Auth:        svc,
		Dashboards:  reg,
		Catalog:     stubCatalog{},
		MetricsGate: promReg,
	})
	return routerFixture{handler: handler, cfg: cfg, auth: svc, token: token}
}

func (f routerFixture) serve(method, path, token string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthRoutes(t *testing.T) {
	f := newRouterFixture(t)

	if rec := f.serve(http.MethodGet, "/health/live", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("live expected 200 got %d", rec.Code)
	}
	rec := f.serve(http.MethodGet, "/health/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"redis":"ok"`) || !strings.Contains(rec.Body.String(), `"upstream":"ok"`) {
		t.Fatalf("expected both checks in body, got %s", rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestPresetsArePublic(t *testing.T) {
	f := newRouterFixture(t)
	if rec := f.serve(http.MethodGet, "/api/v1/presets", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
}

func TestDashboardRoutesRequireAuth(t *testing.T) {
	f := newRouterFixture(t)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/dashboard"},
		{http.MethodPost, "/api/v1/dashboard/refresh"},
		{http.MethodGet, "/api/v1/filters"},
		{http.MethodPut, "/api/v1/filters/location"},
		{http.MethodPut, "/api/v1/filters/date-range"},
		{http.MethodGet, "/api/v1/locations/store"},
		{http.MethodPost, "/api/v1/auth/logout"},
	}
	for _, p := range paths {
		if rec := f.serve(p.method, p.path, "", ""); rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s expected 401 got %d", p.method, p.path, rec.Code)
		}
	}
}

func TestRevokedSessionIsRejected(t *testing.T) {
	f := newRouterFixture(t)
	token, err := pkgAuth.MintAccessToken(f.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{
		Email:     "ops@example.com",
		SessionID: "sess-gone",
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	if rec := f.serve(http.MethodGet, "/api/v1/dashboard", token, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthenticatedDashboardFlow(t *testing.T) {
	f := newRouterFixture(t)

	rec := f.serve(http.MethodGet, "/api/v1/filters", f.token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("filters expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"id":"s1"`) {
		t.Fatalf("expected bootstrapped store, got %s", rec.Body.String())
	}

	rec = f.serve(http.MethodPut, "/api/v1/filters/date-range?wait=true", f.token, `{"preset":"30days"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("date range expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"total_in":3`) {
		t.Fatalf("expected settled snapshot, got %s", rec.Body.String())
	}

	if rec := f.serve(http.MethodGet, "/api/v1/locations/store", f.token, ""); rec.Code != http.StatusOK {
		t.Fatalf("locations expected 200 got %d", rec.Code)
	}

	if rec := f.serve(http.MethodPost, "/api/v1/auth/logout", f.token, ""); rec.Code != http.StatusOK {
		t.Fatalf("logout expected 200 got %d", rec.Code)
	}
	if len(f.auth.loggedOut) != 1 || f.auth.loggedOut[0] != "sess-router" {
		t.Fatalf("expected logout of sess-router, got %v", f.auth.loggedOut)
	}
}

func TestMetricsEndpointExposesRefreshSeries(t *testing.T) {
	f := newRouterFixture(t)

	if rec := f.serve(http.MethodPost, "/api/v1/dashboard/refresh?wait=true", f.token, ""); rec.Code != http.StatusOK {
		t.Fatalf("refresh expected 200 got %d", rec.Code)
	}
	rec := f.serve(http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics expected 200 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "refresh_total") {
		t.Fatalf("expected refresh metrics, got %s", rec.Body.String())
	}
}

func TestRefreshRoutesAreRateLimited(t *testing.T) {
	f := newRouterFixture(t)
	for i := 0; i < 3; i++ {
		if rec := f.serve(http.MethodPost, "/api/v1/dashboard/refresh", f.token, ""); rec.Code != http.StatusAccepted {
			t.Fatalf("refresh %d expected 202 got %d", i+1, rec.Code)
		}
	}
	rec := f.serve(http.MethodPut, "/api/v1/filters/date-range", f.token, `{"preset":"today"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec := f.serve(http.MethodGet, "/api/v1/dashboard", f.token, ""); rec.Code != http.StatusOK {
		t.Fatalf("reads should not be limited, got %d", rec.Code)
	}
}

func TestLoginIsRateLimitedPerIP(t *testing.T) {
	f := newRouterFixture(t)
	body := `{"email":"ops@example.com","password":"wrong"}`

	for i := 0; i < 2; i++ {
		if rec := f.serve(http.MethodPost, "/api/v1/auth/login", "", body); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("attempt %d limited too early", i+1)
		}
	}
	rec := f.serve(http.MethodPost, "/api/v1/auth/login", "", body)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}
}
