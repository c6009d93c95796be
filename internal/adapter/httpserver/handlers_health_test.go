package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func healthOK(_ context.Context) error { return nil }

func healthErr(msg string) func(context.Context) error {
	return func(_ context.Context) error { return errors.New(msg) }
}

func TestHandleLiveness(t *testing.T) {
	srv := newTestServer(t, &mockDoor{})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.Contains(t, rec.Body.String(), `"uptime"`)
}

func TestHandleReadiness_AllHealthy(t *testing.T) {
	srv := newTestServer(t, &mockDoor{}, withHealthChecks(
		HealthCheck{Name: "door", Check: healthOK},
		HealthCheck{Name: "gpio", Check: healthOK},
	))

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready"}`, rec.Body.String())
}

func TestHandleReadiness_DoorLoopDown(t *testing.T) {
	srv := newTestServer(t, &mockDoor{}, withHealthChecks(
		HealthCheck{Name: "door", Check: healthErr("door service stopped")},
		HealthCheck{Name: "gpio", Check: healthOK},
	))

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"unhealthy"`)
	assert.Contains(t, rec.Body.String(), `"failed_check":"door"`)
	assert.Contains(t, rec.Body.String(), `"error":"door service stopped"`)
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(t, &mockDoor{})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/version", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"service":"bzzzt"`)
	assert.Contains(t, body, `"version"`)
	assert.Contains(t, body, `"go_version"`)
}
