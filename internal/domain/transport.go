package domain

// Transport is the outbound half of a client connection. Implementations must
// not block: Send and Probe either enqueue or fail immediately.
type Transport interface {
	// Send enqueues a text message for delivery.
	Send(data []byte) error
	// Probe enqueues a liveness probe (WebSocket ping).
	Probe() error
	// Close terminates the connection with the given close code and reason.
	Close(code int, reason string)
}

// Actuator drives the physical door output.
type Actuator interface {
	SetValue(on bool) error
	Close() error
}

// WebSocket close codes used when the server terminates a connection (RFC 6455).
const (
	CloseNormalClosure   = 1000
	CloseGoingAway       = 1001
	CloseUnsupportedData = 1003
	ClosePolicyViolation = 1008
	CloseTryAgainLater   = 1013
)
