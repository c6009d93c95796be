package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/pscheid92/bzzzt/internal/domain"
	apperrors "github.com/pscheid92/bzzzt/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleTrigger_Modes(t *testing.T) {
	tests := []struct {
		name      string
		isPressed string
		want      domain.TriggerMode
	}{
		{"absent is momentary", "", domain.TriggerMomentary},
		{"yes holds", "yes", domain.TriggerHold},
		{"no releases", "no", domain.TriggerRelease},
		{"unknown value is momentary", "maybe", domain.TriggerMomentary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			door := &mockDoor{}
			srv := newTestServer(t, door)

			values := url.Values{"token": {"frontdesk"}}
			if tt.isPressed != "" {
				values.Set("is_pressed", tt.isPressed)
			}
			rec := serve(srv, postForm(values))

			assert.Equal(t, http.StatusNoContent, rec.Code)
			assert.Equal(t, []recordedTrigger{{token: "frontdesk", mode: tt.want}}, door.recorded())
		})
	}
}

func TestHandleTrigger_QueryParameters(t *testing.T) {
	door := &mockDoor{}
	srv := newTestServer(t, door)

	req := httptest.NewRequest(http.MethodPost, "/?token=bell&is_pressed=yes", nil)
	req.RemoteAddr = testRemoteAddr
	rec := serve(srv, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []recordedTrigger{{token: "bell", mode: domain.TriggerHold}}, door.recorded())
}

func TestHandleTrigger_MissingToken(t *testing.T) {
	door := &mockDoor{}
	srv := newTestServer(t, door)

	rec := serve(srv, postForm(url.Values{"is_pressed": {"yes"}}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, apperrors.TypeValidation, resp.Type)
	assert.Empty(t, door.recorded())
}

func TestHandleTrigger_ServiceStopped(t *testing.T) {
	srv := newTestServer(t, &mockDoor{triggerErr: domain.ErrServiceStopped})

	rec := serve(srv, postForm(url.Values{"token": {"bell"}}))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestHandleTrigger_UnexpectedError(t *testing.T) {
	srv := newTestServer(t, &mockDoor{triggerErr: errors.New("boom")})

	rec := serve(srv, postForm(url.Values{"token": {"bell"}}))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleTrigger_RateLimited(t *testing.T) {
	door := &mockDoor{}
	srv := newTestServer(t, door, withTriggerLimit(0.01, 2))

	for iter := 0; iter < 2; iter++ {
		assert.Equal(t, http.StatusNoContent, serve(srv, postForm(url.Values{"token": {"bell"}})).Code)
	}
	rec := serve(srv, postForm(url.Values{"token": {"bell"}}))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Len(t, door.recorded(), 2)
}

func TestHandleState(t *testing.T) {
	door := &mockDoor{snapshot: domain.StateSnapshot{IsUnlocked: true, ID: "alice", Connections: 3, Holders: 2}}
	srv := newTestServer(t, door)

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"is_unlocked":true,"id":"alice","connections":3,"holders":2}`, rec.Body.String())
}

func TestHandleState_Locked(t *testing.T) {
	srv := newTestServer(t, &mockDoor{snapshot: domain.StateSnapshot{Connections: 1}})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	assert.JSONEq(t, `{"is_unlocked":false,"connections":1,"holders":0}`, rec.Body.String())
}

func TestHandleState_ServiceStopped(t *testing.T) {
	srv := newTestServer(t, &mockDoor{snapErr: domain.ErrServiceStopped})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestSecureHeaders(t *testing.T) {
	srv := newTestServer(t, &mockDoor{})

	rec := serve(srv, httptest.NewRequest(http.MethodGet, "/api/state", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
