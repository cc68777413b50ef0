package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/devtrack/internal/device"
	"github.com/nerrad567/devtrack/internal/infrastructure/config"
	"github.com/nerrad567/devtrack/internal/infrastructure/logging"
	"github.com/nerrad567/devtrack/internal/ingest"
)

// testConfig returns an API config suitable for tests.
func testConfig() config.APIConfig {
	return config.APIConfig{
		Host: "127.0.0.1",
		Port: 0,
		Timeouts: config.APITimeoutConfig{
			Read:  5,
			Write: 5,
			Idle:  5,
		},
	}
}

// testServer creates a Server over a fresh in-memory registry.
func testServer(t *testing.T) (*Server, *device.Registry) {
	t.Helper()
	return testServerWithConfig(t, testConfig())
}

func testServerWithConfig(t *testing.T, cfg config.APIConfig) (*Server, *device.Registry) {
	t.Helper()

	registry := device.NewRegistry()
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	srv, err := New(Deps{
		Config: cfg,
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:  log,
		Service: ingest.NewService(registry),
		Version: "test",
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return srv, registry
}

// do runs one request through the router.
func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal %q: %v", w.Body.String(), err)
	}
}

func TestNew_RequiresDeps(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")

	if _, err := New(Deps{Service: ingest.NewService(device.NewRegistry())}); err == nil {
		t.Error("New() without logger should fail")
	}
	if _, err := New(Deps{Logger: log}); err == nil {
		t.Error("New() without service should fail")
	}
}

// ─── Health Endpoint Tests ─────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, registry := testServer(t)
	router := srv.buildRouter()
	registry.Upsert(device.Report{ID: "phone1"})

	w := do(t, router, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	decodeBody(t, w, &resp)
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
	if resp["devices"] != float64(1) {
		t.Errorf("devices = %v, want 1", resp["devices"])
	}
}

type stubChecker struct{ err error }

func (c stubChecker) HealthCheck(context.Context) error { return c.err }

func TestHealth_MQTTState(t *testing.T) {
	tests := []struct {
		name       string
		checker    HealthChecker
		wantStatus string
		wantMQTT   string
	}{
		{"disabled", nil, "ok", "disabled"},
		{"connected", stubChecker{}, "ok", "connected"},
		{"disconnected", stubChecker{err: errors.New("down")}, "degraded", "disconnected"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := testServer(t)
			srv.mqtt = tt.checker

			w := do(t, srv.buildRouter(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status code = %d, want 200", w.Code)
			}
			var resp map[string]any
			decodeBody(t, w, &resp)
			if resp["status"] != tt.wantStatus || resp["mqtt"] != tt.wantMQTT {
				t.Errorf("status/mqtt = %v/%v, want %s/%s", resp["status"], resp["mqtt"], tt.wantStatus, tt.wantMQTT)
			}
		})
	}
}

// ─── Middleware Tests ──────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv.buildRouter(), httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := do(t, srv.buildRouter(), req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestCORS_Preflight(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	srv, _ := testServerWithConfig(t, cfg)

	req := httptest.NewRequest(http.MethodOptions, "/rename_device", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := do(t, srv.buildRouter(), req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("ACAO = %q, want %q", got, "http://localhost:3000")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.CORS.AllowedOrigins = []string{"http://localhost:3000"}
	srv, _ := testServerWithConfig(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/get_devices", nil)
	req.Header.Set("Origin", "http://evil.example")
	w := do(t, srv.buildRouter(), req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("ACAO = %q, want empty", got)
	}
}

func TestNotFound(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv.buildRouter(), httptest.NewRequest(http.MethodGet, "/api/v1/nonexistent", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestRecoverWith_WritesEnvelope(t *testing.T) {
	srv, _ := testServer(t)

	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := srv.recoverWith(func(w http.ResponseWriter) {
		writeRenameError(w, http.StatusInternalServerError, msgInternal)
	})(panicking)

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/rename_device", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp renameResponse
	decodeBody(t, w, &resp)
	if resp.Success || resp.Message != msgInternal {
		t.Errorf("response = %+v, want failed rename envelope", resp)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	srv, _ := testServer(t)

	h := srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var resp Error
	decodeBody(t, w, &resp)
	if resp.Code != ErrCodeInternal {
		t.Errorf("code = %q, want %q", resp.Code, ErrCodeInternal)
	}
}

func TestBodySizeLimit(t *testing.T) {
	srv, _ := testServer(t)

	body := `{"id":"phone1","lat":1,"lon":2,"pad":"` + strings.Repeat("x", maxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/update", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := do(t, srv.buildRouter(), req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var resp reportResponse
	decodeBody(t, w, &resp)
	if resp.Message != msgBodyTooLarge {
		t.Errorf("message = %q, want %q", resp.Message, msgBodyTooLarge)
	}
}

func TestReportRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}
	srv, _ := testServerWithConfig(t, cfg)
	router := srv.buildRouter()

	target := "/update?id=phone1&lat=1&lon=2"
	if w := do(t, router, httptest.NewRequest(http.MethodGet, target, nil)); w.Code != http.StatusOK {
		t.Fatalf("first report status = %d, want 200", w.Code)
	}

	w := do(t, router, httptest.NewRequest(http.MethodGet, target, nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second report status = %d, want 429", w.Code)
	}
	var resp reportResponse
	decodeBody(t, w, &resp)
	if resp.Status != "error" || resp.Message != msgRateLimited {
		t.Errorf("response = %+v, want rate limited envelope", resp)
	}

	// Reads are not limited.
	if w := do(t, router, httptest.NewRequest(http.MethodGet, "/get_devices", nil)); w.Code != http.StatusOK {
		t.Errorf("get_devices status = %d, want 200", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	do(t, router, httptest.NewRequest(http.MethodGet, "/update?id=phone1&lat=1&lon=2", nil))

	w := do(t, router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "devtrack_reports_total") {
		t.Error("metrics output missing devtrack_reports_total")
	}
}

// ─── Panel Tests ───────────────────────────────────────────────────

func TestPanel_Root(t *testing.T) {
	srv, _ := testServer(t)

	w := do(t, srv.buildRouter(), httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET / status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
}

func TestPanel_Assets(t *testing.T) {
	srv, _ := testServer(t)
	router := srv.buildRouter()

	for _, path := range []string{"/panel/map.js", "/panel/map.css"} {
		if w := do(t, router, httptest.NewRequest(http.MethodGet, path, nil)); w.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want 200", path, w.Code)
		}
	}
}

// ─── Lifecycle Tests ───────────────────────────────────────────────

func TestServer_StartAndClose(t *testing.T) {
	srv, _ := testServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := srv.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() after Start = %v", err)
	}

	base := "http://" + srv.Addr()
	resp, err := http.Get(base + "/api/v1/health")
	if err != nil {
		t.Fatalf("health check failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health check status = %d, want 200", resp.StatusCode)
	}

	if err := srv.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	client := &http.Client{Timeout: time.Second}
	if _, err := client.Get(base + "/api/v1/health"); err == nil {
		t.Error("server still responding after Close()")
	}
}

func TestServer_StartPortInUse(t *testing.T) {
	first, _ := testServer(t)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer first.Close()

	_, portStr, err := net.SplitHostPort(first.Addr())
	if err != nil {
		t.Fatalf("SplitHostPort: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("Atoi: %v", err)
	}
	cfg := testConfig()
	cfg.Port = port
	second, _ := testServerWithConfig(t, cfg)

	if err := second.Start(context.Background()); err == nil {
		second.Close()
		t.Fatal("Start() on a bound port should fail")
	}
}

func TestServer_HealthCheckNotStarted(t *testing.T) {
	srv, _ := testServer(t)

	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start should fail")
	}
	if err := srv.Close(); err != nil {
		t.Errorf("Close() before Start = %v, want nil", err)
	}
}
