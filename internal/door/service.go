package door

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/bzzzt/internal/adapter/metrics"
	"github.com/pscheid92/bzzzt/internal/domain"
	apperrors "github.com/pscheid92/bzzzt/internal/platform/errors"
)

const (
	commandBufferSize = 256
	stopTimeout       = 10 * time.Second
)

// Removal reasons, also used as metric labels.
const (
	reasonClosed          = "closed"
	reasonProtocolError   = "protocol_error"
	reasonTransportError  = "transport_error"
	reasonLivenessTimeout = "liveness_timeout"
	reasonReleased        = "trigger_released"
)

// Options configures the door service.
type Options struct {
	ProbeInterval   time.Duration
	EvictionTimeout time.Duration
	PressDuration   time.Duration
	MaxConnections  int
}

// command is the command interface for the Service actor.
type command interface{ isCommand() }

type baseCmd struct{}

func (baseCmd) isCommand() {}

type admitResult struct {
	key domain.ConnKey
	err error
}

type admitCmd struct {
	baseCmd
	label     string
	transport domain.Transport
	reply     chan admitResult
}

type messageCmd struct {
	baseCmd
	key     domain.ConnKey
	payload []byte
}

type signalCmd struct {
	baseCmd
	key domain.ConnKey
}

type disconnectCmd struct {
	baseCmd
	key domain.ConnKey
}

type triggerCmd struct {
	baseCmd
	token string
	mode  domain.TriggerMode
	reply chan error
}

type snapshotCmd struct {
	baseCmd
	reply chan domain.StateSnapshot
}

type stopCmd struct {
	baseCmd
}

// Service owns all door state and serializes every mutation through one goroutine.
type Service struct {
	cmdCh   chan command
	done    chan struct{}
	clock   clockwork.Clock
	opts    Options
	metrics *metrics.DoorMetrics

	actuator    domain.Actuator
	registry    *Registry
	presence    *PresenceSet
	sched       *scheduler
	liveness    *LivenessSupervisor
	broadcaster *Broadcaster

	triggers   map[string]domain.ConnKey
	unlockedBy string
	started    bool
}

// NewService wires the door components. Call Start to run the event loop.
func NewService(opts Options, actuator domain.Actuator, clock clockwork.Clock, m *metrics.DoorMetrics) *Service {
	s := &Service{
		cmdCh:       make(chan command, commandBufferSize),
		done:        make(chan struct{}),
		clock:       clock,
		opts:        opts,
		metrics:     m,
		actuator:    actuator,
		registry:    NewRegistry(),
		presence:    NewPresenceSet(),
		broadcaster: NewBroadcaster(m),
		triggers:    make(map[string]domain.ConnKey),
	}
	s.sched = newScheduler(clock, func(f timerFired) { s.post(f) })
	s.liveness = NewLivenessSupervisor(s.sched, opts.ProbeInterval, opts.EvictionTimeout)
	return s
}

// Start launches the event loop. It must be called once.
func (s *Service) Start() {
	s.started = true
	go s.run()
}

// Stop closes every connection, releases the actuator and waits for the loop to exit.
func (s *Service) Stop() {
	if !s.started || !s.post(stopCmd{}) {
		return
	}

	timeout := s.clock.NewTimer(stopTimeout)
	defer timeout.Stop()

	select {
	case <-s.done:
		slog.Info("Door service stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Door service stop timeout exceeded", "timeout", stopTimeout)
	}
}

// Done is closed once the event loop has exited.
func (s *Service) Done() <-chan struct{} {
	return s.done
}

// Admit registers a new client connection and starts its liveness cycle.
func (s *Service) Admit(ctx context.Context, label string, transport domain.Transport) (domain.ConnKey, error) {
	reply := make(chan admitResult, 1)
	if !s.post(admitCmd{label: label, transport: transport, reply: reply}) {
		return 0, domain.ErrServiceStopped
	}

	select {
	case r := <-reply:
		return r.key, r.err
	case <-s.done:
		return 0, domain.ErrServiceStopped
	case <-ctx.Done():
		return 0, fmt.Errorf("admit: %w", ctx.Err())
	}
}

// Receive hands an application message from key to the loop.
func (s *Service) Receive(key domain.ConnKey, payload []byte) {
	s.post(messageCmd{key: key, payload: payload})
}

// Heartbeat records a probe answer from key.
func (s *Service) Heartbeat(key domain.ConnKey) {
	s.post(signalCmd{key: key})
}

// Disconnect removes key after the client closed its side.
func (s *Service) Disconnect(key domain.ConnKey) {
	s.post(disconnectCmd{key: key})
}

// Trigger applies an HTTP trigger for token.
func (s *Service) Trigger(ctx context.Context, token string, mode domain.TriggerMode) error {
	reply := make(chan error, 1)
	if !s.post(triggerCmd{token: token, mode: mode, reply: reply}) {
		return domain.ErrServiceStopped
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		return domain.ErrServiceStopped
	case <-ctx.Done():
		return fmt.Errorf("trigger: %w", ctx.Err())
	}
}

// Snapshot returns the current aggregate state and registry sizes.
func (s *Service) Snapshot(ctx context.Context) (domain.StateSnapshot, error) {
	reply := make(chan domain.StateSnapshot, 1)
	if !s.post(snapshotCmd{reply: reply}) {
		return domain.StateSnapshot{}, domain.ErrServiceStopped
	}

	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return domain.StateSnapshot{}, domain.ErrServiceStopped
	case <-ctx.Done():
		return domain.StateSnapshot{}, fmt.Errorf("snapshot: %w", ctx.Err())
	}
}

// post enqueues cmd unless the loop has exited.
func (s *Service) post(cmd command) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.cmdCh <- cmd:
		return true
	case <-s.done:
		return false
	}
}

func (s *Service) run() {
	defer close(s.done)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Door service panic recovered", "panic", r)
			s.shutdown("server error")
		}
	}()

	for cmd := range s.cmdCh {
		start := s.clock.Now()

		switch c := cmd.(type) {
		case admitCmd:
			c.reply <- s.handleAdmit(c)
		case messageCmd:
			s.handleMessage(c)
		case signalCmd:
			s.liveness.Signal(c.key)
		case disconnectCmd:
			s.remove(c.key, reasonClosed)
		case triggerCmd:
			c.reply <- s.handleTrigger(c)
		case snapshotCmd:
			c.reply <- s.snapshot()
		case timerFired:
			s.handleTimer(c)
		case stopCmd:
			s.shutdown("server shutting down")
			return
		default:
			slog.Warn("Door service received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}

		s.metrics.CommandDuration.Observe(s.clock.Since(start).Seconds())
	}
}

func (s *Service) clientCount() int {
	return s.registry.Len() - len(s.triggers)
}

func (s *Service) handleAdmit(c admitCmd) admitResult {
	if s.clientCount() >= s.opts.MaxConnections {
		slog.Warn("Rejecting client: max connections reached", "label", c.label, "max_connections", s.opts.MaxConnections)
		return admitResult{err: domain.ErrTooManyClients}
	}

	conn := newConnection(c.label, c.transport)
	key := s.registry.Admit(conn)
	s.liveness.Track(key)
	s.updateGauges()

	conn.logger().InfoContext(conn.ctx, "Client admitted", "total_connections", s.registry.Len())

	// The new client learns the current state directly; this is not an edge.
	data, err := encodeUpdate(s.currentUpdate())
	if err == nil {
		err = conn.Transport.Send(data)
	}
	if err != nil {
		s.metrics.SendFailures.Inc()
		conn.logger().WarnContext(conn.ctx, "Initial state delivery failed", "error", err)
		s.remove(key, reasonTransportError)
	}

	return admitResult{key: key}
}

func (s *Service) handleMessage(c messageCmd) {
	conn, ok := s.registry.Get(c.key)
	if !ok {
		slog.Debug("Message for unknown connection dropped", "conn", c.key.String())
		return
	}

	s.liveness.Signal(c.key)

	held, err := parseHold(c.payload)
	if err != nil {
		s.metrics.ProtocolErrors.Inc()
		conn.logger().WarnContext(conn.ctx, "Terminating connection", "error", err)
		s.remove(c.key, reasonProtocolError)
		return
	}

	conn.logger().DebugContext(conn.ctx, "Hold updated", "held", held)
	if edge, changed := s.presence.SetHeld(c.key, held); changed {
		s.applyEdge(edge)
	}
	s.updateGauges()
}

// parseHold maps a client payload to a hold: "1" presses, any other integer releases.
func parseHold(payload []byte) (bool, error) {
	v, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		return false, apperrors.ProtocolError("payload is not a number", err).WithField("payload", string(payload))
	}
	return v == 1, nil
}

func (s *Service) handleTimer(f timerFired) {
	if !s.sched.claim(f) {
		return
	}

	conn, ok := s.registry.Get(f.id.key)
	if !ok {
		return
	}

	switch f.id.kind {
	case probeTimer:
		if !s.liveness.ProbeDue(conn.Key) {
			return
		}
		if err := conn.Transport.Probe(); err != nil {
			s.metrics.SendFailures.Inc()
			conn.logger().WarnContext(conn.ctx, "Probe delivery failed", "error", apperrors.TransportError("probe failed", err))
			s.remove(conn.Key, reasonTransportError)
		}
	case evictionTimer:
		conn.logger().InfoContext(conn.ctx, "Evicting connection",
			"error", apperrors.LivenessTimeoutError("no signal before deadline"),
			"timeout", s.opts.EvictionTimeout,
		)
		s.remove(conn.Key, reasonLivenessTimeout)
	case releaseTimer:
		s.remove(conn.Key, reasonReleased)
	}
}

// remove runs the removal cascade for key: registry, timers, presence, and
// the resulting edge, if any. Removing an absent key is a no-op.
func (s *Service) remove(key domain.ConnKey, reason string) {
	conn, ok := s.registry.Remove(key)
	if !ok {
		return
	}

	s.liveness.Untrack(key)
	s.sched.cancelAll(key)

	if conn.Virtual() {
		if s.triggers[conn.Label] == key {
			delete(s.triggers, conn.Label)
		}
	} else {
		conn.Transport.Close(closeCodeFor(reason), reason)
	}

	s.metrics.Removals.WithLabelValues(reason).Inc()
	conn.logger().InfoContext(conn.ctx, "Connection removed", "reason", reason, "remaining_connections", s.registry.Len())

	if edge, changed := s.presence.Release(key); changed {
		s.applyEdge(edge)
	}
	s.updateGauges()
}

func closeCodeFor(reason string) int {
	switch reason {
	case reasonProtocolError:
		return domain.CloseUnsupportedData
	case reasonLivenessTimeout:
		return domain.ClosePolicyViolation
	case reasonTransportError:
		return domain.CloseGoingAway
	default:
		return domain.CloseNormalClosure
	}
}

// applyEdge broadcasts the edge, then drives the actuator. Connections that
// failed delivery are removed afterwards, which may produce a further edge.
func (s *Service) applyEdge(edge domain.Edge) {
	s.unlockedBy = ""
	if edge.HasCauser {
		if causer, ok := s.registry.Get(edge.Causer); ok {
			s.unlockedBy = causer.Label
		}
	}

	update := s.currentUpdate()
	s.metrics.Edges.WithLabelValues(edge.Direction()).Inc()
	slog.Info("Door state changed", "is_unlocked", update.IsUnlocked, "id", update.ID, "holders", s.presence.Len())

	failed, err := s.broadcaster.NotifyAll(s.registry, update)
	if err != nil {
		slog.Error("Broadcast failed", "error", err)
	}

	if err := s.actuator.SetValue(edge.Pressed); err != nil {
		s.metrics.ActuatorErrors.Inc()
		slog.Error("Failed to drive door output", "error", apperrors.ActuatorError("set value failed", err), "value", edge.Pressed)
	}
	if edge.Pressed {
		s.metrics.Unlocked.Set(1)
	} else {
		s.metrics.Unlocked.Set(0)
	}

	for _, key := range failed {
		s.remove(key, reasonTransportError)
	}
}

func (s *Service) currentUpdate() domain.StateUpdate {
	update := domain.StateUpdate{IsUnlocked: s.presence.Pressed()}
	if update.IsUnlocked {
		update.ID = s.unlockedBy
	}
	return update
}

func (s *Service) snapshot() domain.StateSnapshot {
	update := s.currentUpdate()
	return domain.StateSnapshot{
		IsUnlocked:  update.IsUnlocked,
		ID:          update.ID,
		Connections: s.clientCount(),
		Holders:     s.presence.Len(),
	}
}

func (s *Service) updateGauges() {
	s.metrics.Connections.Set(float64(s.registry.Len()))
	s.metrics.Holders.Set(float64(s.presence.Len()))
}

// shutdown closes all connections without broadcasting and leaves the output off.
func (s *Service) shutdown(reason string) {
	total := s.registry.Len()
	slog.Info("Door service shutting down", "connections", total)

	s.sched.stopAll()
	s.registry.ForEach(func(c *Connection) {
		if !c.Virtual() {
			c.Transport.Close(domain.CloseNormalClosure, reason)
		}
		s.registry.Remove(c.Key)
		s.liveness.Untrack(c.Key)
	})
	clear(s.triggers)

	wasPressed := s.presence.Pressed()
	s.presence.Reset()
	s.unlockedBy = ""
	if wasPressed {
		if err := s.actuator.SetValue(false); err != nil {
			s.metrics.ActuatorErrors.Inc()
			slog.Error("Failed to release door output on shutdown", "error", err)
		}
	}

	s.metrics.Unlocked.Set(0)
	s.updateGauges()
	slog.Info("Door service shutdown complete", "disconnected_connections", total)
}
