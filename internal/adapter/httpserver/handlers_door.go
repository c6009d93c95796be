package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pscheid92/bzzzt/internal/domain"
	apperrors "github.com/pscheid92/bzzzt/internal/platform/errors"
)

func (s *Server) registerDoorRoutes() {
	limiter := newRateLimiter(s.config.TriggerRateLimit, s.config.TriggerRateBurst)
	s.echo.POST("/", s.handleTrigger, limiter)
	s.echo.GET("/api/state", s.handleState)
}

// handleTrigger presses the door on behalf of a caller without a WebSocket.
// is_pressed=yes holds, is_pressed=no releases, anything else is a momentary press.
func (s *Server) handleTrigger(c echo.Context) error {
	token := c.FormValue("token")
	if token == "" {
		return apperrors.ValidationError("token is required")
	}
	mode := domain.ParseTriggerMode(c.FormValue("is_pressed"))

	if err := s.door.Trigger(c.Request().Context(), token, mode); err != nil {
		if errors.Is(err, domain.ErrServiceStopped) {
			return apperrors.UnavailableError("door service is shutting down", err)
		}
		return apperrors.InternalError("failed to apply trigger", err).WithField("token", token)
	}

	if err := c.NoContent(http.StatusNoContent); err != nil {
		return fmt.Errorf("failed to write trigger response: %w", err)
	}
	return nil
}

type stateResponse struct {
	IsUnlocked  bool   `json:"is_unlocked"`
	ID          string `json:"id,omitempty"`
	Connections int    `json:"connections"`
	Holders     int    `json:"holders"`
}

func (s *Server) handleState(c echo.Context) error {
	snap, err := s.door.Snapshot(c.Request().Context())
	if err != nil {
		if errors.Is(err, domain.ErrServiceStopped) {
			return apperrors.UnavailableError("door service is shutting down", err)
		}
		return apperrors.InternalError("failed to read door state", err)
	}

	response := stateResponse{
		IsUnlocked:  snap.IsUnlocked,
		ID:          snap.ID,
		Connections: snap.Connections,
		Holders:     snap.Holders,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write state response: %w", err)
	}
	return nil
}
