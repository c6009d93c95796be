package door

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pscheid92/bzzzt/internal/domain"
	"github.com/pscheid92/bzzzt/internal/platform/correlation"
	"github.com/pscheid92/bzzzt/internal/platform/logging"
)

// Connection is one admitted client. Trigger holds are connections without a transport.
type Connection struct {
	Key       domain.ConnKey
	Label     string
	SessionID uuid.UUID
	Transport domain.Transport

	ctx context.Context
	log *slog.Logger
}

func newConnection(label string, transport domain.Transport) *Connection {
	sessionID := uuid.New()
	return &Connection{
		Label:     label,
		SessionID: sessionID,
		Transport: transport,
		ctx:       correlation.WithID(context.Background(), correlation.FromUUID(sessionID)),
	}
}

// Virtual reports whether the connection is an HTTP trigger hold.
func (c *Connection) Virtual() bool {
	return c.Transport == nil
}

func (c *Connection) logger() *slog.Logger {
	if c.log == nil {
		c.log = logging.WithConnection(c.Key.String(), c.Label, c.SessionID.String())
	}
	return c.log
}
