package websocket

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/bzzzt/internal/domain"
)

const (
	sendBufferSize = 16
	writeWait      = 5 * time.Second
)

type frameKind int

const (
	frameText frameKind = iota
	framePing
)

type frame struct {
	kind frameKind
	data []byte
}

type closeFrame struct {
	code   int
	reason string
}

// ClientWriter owns all writes to one WebSocket connection. Send, Probe and
// Close never block; frames are written by a dedicated goroutine.
type ClientWriter struct {
	conn    *websocket.Conn
	clock   clockwork.Clock
	sendCh  chan frame
	closeCh chan closeFrame
	done    chan struct{}

	closing   atomic.Bool
	closeOnce sync.Once
}

var _ domain.Transport = (*ClientWriter)(nil)

func NewClientWriter(conn *websocket.Conn, clock clockwork.Clock) *ClientWriter {
	cw := &ClientWriter{
		conn:    conn,
		clock:   clock,
		sendCh:  make(chan frame, sendBufferSize),
		closeCh: make(chan closeFrame, 1),
		done:    make(chan struct{}),
	}
	go cw.run()
	return cw
}

// Send queues a text frame. It fails when the buffer is full (slow client)
// or the writer is closing.
func (cw *ClientWriter) Send(data []byte) error {
	return cw.enqueue(frame{kind: frameText, data: data})
}

// Probe queues a ping control frame.
func (cw *ClientWriter) Probe() error {
	return cw.enqueue(frame{kind: framePing})
}

func (cw *ClientWriter) enqueue(f frame) error {
	if cw.closing.Load() {
		return domain.ErrConnectionClosed
	}
	select {
	case <-cw.done:
		return domain.ErrConnectionClosed
	default:
	}

	select {
	case cw.sendCh <- f:
		return nil
	default:
		return domain.ErrSendBufferFull
	}
}

// Close flushes already queued frames, sends a close frame with code and
// reason and closes the connection. Only the first call has an effect.
func (cw *ClientWriter) Close(code int, reason string) {
	cw.closeOnce.Do(func() {
		cw.closing.Store(true)
		cw.closeCh <- closeFrame{code: code, reason: reason}
	})
}

// Done is closed once the writer goroutine has exited and the connection is closed.
func (cw *ClientWriter) Done() <-chan struct{} {
	return cw.done
}

func (cw *ClientWriter) run() {
	defer close(cw.done)
	defer cw.conn.Close()

	for {
		select {
		case f := <-cw.sendCh:
			if err := cw.write(f); err != nil {
				slog.Debug("WebSocket write failed", "remote_addr", cw.conn.RemoteAddr().String(), "error", err)
				return
			}
		case c := <-cw.closeCh:
			cw.flush()
			cw.writeClose(c)
			return
		}
	}
}

func (cw *ClientWriter) flush() {
	for {
		select {
		case f := <-cw.sendCh:
			if err := cw.write(f); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (cw *ClientWriter) write(f frame) error {
	deadline := cw.clock.Now().Add(writeWait)
	if f.kind == framePing {
		return cw.conn.WriteControl(websocket.PingMessage, nil, deadline)
	}
	if err := cw.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return cw.conn.WriteMessage(websocket.TextMessage, f.data)
}

func (cw *ClientWriter) writeClose(c closeFrame) {
	msg := websocket.FormatCloseMessage(c.code, truncateReason(c.reason))
	if err := cw.conn.WriteControl(websocket.CloseMessage, msg, cw.clock.Now().Add(writeWait)); err != nil {
		slog.Debug("WebSocket close frame failed", "remote_addr", cw.conn.RemoteAddr().String(), "error", err)
	}
}

// Control frame payloads are limited to 125 bytes, two of which carry the code.
func truncateReason(reason string) string {
	const maxReason = 123
	if len(reason) > maxReason {
		return reason[:maxReason]
	}
	return reason
}
