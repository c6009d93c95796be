package door

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/bzzzt/internal/adapter/metrics"
	"github.com/pscheid92/bzzzt/internal/domain"
	"github.com/stretchr/testify/require"
)

const (
	testProbeInterval   = 3 * time.Second
	testEvictionTimeout = 10 * time.Second
	testPressDuration   = 3 * time.Second
)

// fakeTransport records everything the service pushes to one connection.
type fakeTransport struct {
	mu          sync.Mutex
	messages    [][]byte
	probes      int
	closed      bool
	closeCode   int
	closeReason string
	sendErr     error
	probeErr    error
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.messages = append(f.messages, data)
	return nil
}

func (f *fakeTransport) Probe() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.probeErr != nil {
		return f.probeErr
	}
	f.probes++
	return nil
}

func (f *fakeTransport) Close(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
}

func (f *fakeTransport) failSends(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendErr = err
}

func (f *fakeTransport) updates(t *testing.T) []domain.StateUpdate {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]domain.StateUpdate, 0, len(f.messages))
	for _, m := range f.messages {
		var u domain.StateUpdate
		require.NoError(t, json.Unmarshal(m, &u))
		out = append(out, u)
	}
	return out
}

func (f *fakeTransport) rawMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.messages))
	for _, m := range f.messages {
		out = append(out, string(m))
	}
	return out
}

func (f *fakeTransport) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func (f *fakeTransport) closeState() (bool, int, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed, f.closeCode, f.closeReason
}

// fakeActuator records every value the service drives.
type fakeActuator struct {
	mu     sync.Mutex
	values []bool
	err    error
	closed bool
}

func (a *fakeActuator) SetValue(on bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values = append(a.values, on)
	return a.err
}

func (a *fakeActuator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func (a *fakeActuator) history() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]bool(nil), a.values...)
}

type testEnv struct {
	svc      *Service
	clock    *clockwork.FakeClock
	actuator *fakeActuator
	metrics  *metrics.DoorMetrics
}

func newTestEnv(t *testing.T, opts ...func(*Options)) *testEnv {
	t.Helper()

	o := Options{
		ProbeInterval:   testProbeInterval,
		EvictionTimeout: testEvictionTimeout,
		PressDuration:   testPressDuration,
		MaxConnections:  16,
	}
	for _, fn := range opts {
		fn(&o)
	}

	clock := clockwork.NewFakeClock()
	actuator := &fakeActuator{}
	m := metrics.NewDoorMetrics(prometheus.NewRegistry())

	svc := NewService(o, actuator, clock, m)
	svc.Start()
	t.Cleanup(svc.Stop)

	return &testEnv{svc: svc, clock: clock, actuator: actuator, metrics: m}
}

func (e *testEnv) admit(t *testing.T, label string) (domain.ConnKey, *fakeTransport) {
	t.Helper()
	tr := &fakeTransport{}
	key, err := e.svc.Admit(context.Background(), label, tr)
	require.NoError(t, err)
	return key, tr
}

// sync waits until every previously posted command has been processed.
func (e *testEnv) sync(t *testing.T) domain.StateSnapshot {
	t.Helper()
	snap, err := e.svc.Snapshot(context.Background())
	require.NoError(t, err)
	return snap
}

func (e *testEnv) press(t *testing.T, key domain.ConnKey) {
	t.Helper()
	e.svc.Receive(key, []byte("1"))
	e.sync(t)
}

func (e *testEnv) release(t *testing.T, key domain.ConnKey) {
	t.Helper()
	e.svc.Receive(key, []byte("0"))
	e.sync(t)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, time.Second, time.Millisecond)
}
