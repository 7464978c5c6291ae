package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"smart-locker-control/internal/config"
	"smart-locker-control/internal/service"
	"smart-locker-control/internal/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		TokenTTL:        3600,
		TokenExpirySkew: 1,
		NonceStore:      "memory",
		Locker:          config.LockerConfig{ID: "locker-1", SettleDelay: 50 * time.Millisecond},
		Activity:        config.ActivityConfig{Cap: 1000, ReadLimit: 100},
		QR:              config.QRConfig{CodeTTL: 60, ImageSize: 128},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config) (*gin.Engine, *service.Services) {
	t.Helper()
	svc, err := service.NewServices(context.Background(), cfg, storage.NewMemoryProvider(), false)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(svc.Close)

	limiter := NewRateLimiter(cfg, svc)
	if limiter != nil {
		t.Cleanup(limiter.Stop)
	}
	return HTTPServer(cfg, svc, limiter), svc
}

func serve(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndSecurityHeaders(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	serve(r, httptest.NewRequest(http.MethodGet, "/health", nil))
	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, name := range []string{"locker_status", "locker_http_requests_total"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output is missing %s", name)
		}
	}
}

func TestNotFound(t *testing.T) {
	r, _ := newTestEngine(t, testConfig())

	w := serve(r, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), "NOT_FOUND") {
		t.Errorf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "k3y"
	r, _ := newTestEngine(t, cfg)

	w := serve(r, httptest.NewRequest(http.MethodGet, "/api/locker/status", nil))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "AUTH_INVALID_API_KEY") {
		t.Errorf("without key: status = %d body = %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/api/locker/status", nil)
	req.Header.Set("X-API-Key", "k3y")
	w = serve(r, req)
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "AUTH_REQUIRED") {
		t.Errorf("with key: status = %d body = %s", w.Code, w.Body.String())
	}

	// Health stays outside the API key layer.
	if w := serve(r, httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
		t.Errorf("health status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSOrigins = "https://locker.example, https://admin.example"
	r, _ := newTestEngine(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/api/locker/command", nil)
	req.Header.Set("Origin", "https://admin.example")
	w := serve(r, req)
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://admin.example" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = serve(r, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("allow origin for unknown origin = %q", got)
	}
}

func TestIPAccessControl(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedNetworks = "10.0.0.0/8"
	r, _ := newTestEngine(t, cfg)

	tests := []struct {
		remote string
		status int
	}{
		{"10.1.2.3:5000", http.StatusOK},
		{"127.0.0.1:5000", http.StatusOK},
		{"192.0.2.1:5000", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = tt.remote
		if w := serve(r, req); w.Code != tt.status {
			t.Errorf("%s: status = %d, want %d", tt.remote, w.Code, tt.status)
		}
	}
}

func TestRateLimitOnAPI(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Requests: 1, Window: time.Minute}
	r, _ := newTestEngine(t, cfg)

	first := serve(r, httptest.NewRequest(http.MethodGet, "/api/locker/status", nil))
	if first.Code != http.StatusUnauthorized {
		t.Fatalf("first status = %d", first.Code)
	}
	second := serve(r, httptest.NewRequest(http.MethodGet, "/api/locker/status", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d", second.Code)
	}

	w := serve(r, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(w.Body.String(), "locker_rate_limited_total 1") {
		t.Error("rate limited request was not counted")
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	cfg := testConfig()
	if l := NewRateLimiter(cfg, nil); l != nil {
		t.Error("expected no limiter without a request budget")
	}
}
