package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/pscheid92/bzzzt/internal/domain"
	"github.com/pscheid92/bzzzt/internal/platform/config"
)

type recordedTrigger struct {
	token string
	mode  domain.TriggerMode
}

type mockDoor struct {
	mu         sync.Mutex
	triggers   []recordedTrigger
	triggerErr error
	snapshot   domain.StateSnapshot
	snapErr    error
}

func (m *mockDoor) Trigger(_ context.Context, token string, mode domain.TriggerMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.triggerErr != nil {
		return m.triggerErr
	}
	m.triggers = append(m.triggers, recordedTrigger{token: token, mode: mode})
	return nil
}

func (m *mockDoor) Snapshot(context.Context) (domain.StateSnapshot, error) {
	return m.snapshot, m.snapErr
}

func (m *mockDoor) recorded() []recordedTrigger {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]recordedTrigger(nil), m.triggers...)
}

func testConfig() *config.Config {
	return &config.Config{
		AppEnv:           "development",
		Port:             "8888",
		TriggerRateLimit: 100,
		TriggerRateBurst: 100,
	}
}

func newTestServer(t *testing.T, door doorService, opts ...func(*config.Config, *[]HealthCheck)) *Server {
	t.Helper()

	cfg := testConfig()
	var checks []HealthCheck
	for _, opt := range opts {
		opt(cfg, &checks)
	}
	return NewServer(cfg, door, nil, nil, nil, checks)
}

func withHealthChecks(checks ...HealthCheck) func(*config.Config, *[]HealthCheck) {
	return func(_ *config.Config, hc *[]HealthCheck) { *hc = checks }
}

func withTriggerLimit(ratePerSecond float64, burst int) func(*config.Config, *[]HealthCheck) {
	return func(cfg *config.Config, _ *[]HealthCheck) {
		cfg.TriggerRateLimit = ratePerSecond
		cfg.TriggerRateBurst = burst
	}
}

func serve(srv *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func postForm(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.RemoteAddr = testRemoteAddr
	return req
}
