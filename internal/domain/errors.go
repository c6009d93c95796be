package domain

import "errors"

var (
	ErrServiceStopped   = errors.New("door service stopped")
	ErrSendBufferFull   = errors.New("send buffer full")
	ErrConnectionClosed = errors.New("connection closed")
	ErrTooManyClients   = errors.New("too many connections")
)
