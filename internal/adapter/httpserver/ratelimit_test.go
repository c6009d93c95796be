package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func limitedHandler(ratePerSecond float64, burst int) func(remoteAddr string) *httptest.ResponseRecorder {
	e := echo.New()
	handler := newRateLimiter(ratePerSecond, burst)(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	return func(remoteAddr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = remoteAddr
		rec := httptest.NewRecorder()
		if err := handler(e.NewContext(req, rec)); err != nil {
			panic(err)
		}
		return rec
	}
}

func TestRateLimiter_AllowsBurst(t *testing.T) {
	call := limitedHandler(10, 3)

	for iter := 0; iter < 3; iter++ {
		assert.Equal(t, http.StatusNoContent, call(testRemoteAddr).Code)
	}
}

func TestRateLimiter_BlocksBeyondBurst(t *testing.T) {
	call := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusNoContent, call(testRemoteAddr).Code)

	rec := call(testRemoteAddr)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp["error"])
}

func TestRateLimiter_PerClientBuckets(t *testing.T) {
	call := limitedHandler(0.01, 1)

	assert.Equal(t, http.StatusNoContent, call(testRemoteAddr).Code)
	assert.Equal(t, http.StatusNoContent, call("5.6.7.8:5678").Code)
	assert.Equal(t, http.StatusTooManyRequests, call(testRemoteAddr).Code)
}
