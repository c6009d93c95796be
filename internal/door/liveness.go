package door

import (
	"time"

	"github.com/pscheid92/bzzzt/internal/domain"
)

type livenessState int

const (
	stateActive livenessState = iota
	stateAwaitingProbeResponse
)

func (s livenessState) String() string {
	if s == stateAwaitingProbeResponse {
		return "awaiting_probe_response"
	}
	return "active"
}

// LivenessSupervisor probes every tracked connection on a fixed cadence.
// The first unanswered probe arms an eviction deadline; any inbound signal
// cancels it. Later probes never extend an armed deadline, so a silent
// connection is evicted at most probeInterval+evictionTimeout after its last signal.
type LivenessSupervisor struct {
	sched           *scheduler
	probeInterval   time.Duration
	evictionTimeout time.Duration
	states          map[domain.ConnKey]livenessState
}

func NewLivenessSupervisor(sched *scheduler, probeInterval, evictionTimeout time.Duration) *LivenessSupervisor {
	return &LivenessSupervisor{
		sched:           sched,
		probeInterval:   probeInterval,
		evictionTimeout: evictionTimeout,
		states:          make(map[domain.ConnKey]livenessState),
	}
}

// Track starts the probe cycle for key.
func (l *LivenessSupervisor) Track(key domain.ConnKey) {
	l.states[key] = stateActive
	l.sched.schedule(timerID{key: key, kind: probeTimer}, l.probeInterval)
}

// Untrack cancels both timers of key.
func (l *LivenessSupervisor) Untrack(key domain.ConnKey) {
	delete(l.states, key)
	l.sched.cancel(timerID{key: key, kind: probeTimer})
	l.sched.cancel(timerID{key: key, kind: evictionTimer})
}

// Signal records evidence of life: a probe answer or an application message.
func (l *LivenessSupervisor) Signal(key domain.ConnKey) {
	if _, ok := l.states[key]; !ok {
		return
	}
	l.states[key] = stateActive
	l.sched.cancel(timerID{key: key, kind: evictionTimer})
}

// ProbeDue reschedules the next probe and, if the connection was active,
// arms its eviction deadline. The caller sends the probe itself.
func (l *LivenessSupervisor) ProbeDue(key domain.ConnKey) bool {
	state, ok := l.states[key]
	if !ok {
		return false
	}

	l.sched.schedule(timerID{key: key, kind: probeTimer}, l.probeInterval)
	if state == stateActive {
		l.states[key] = stateAwaitingProbeResponse
		l.sched.schedule(timerID{key: key, kind: evictionTimer}, l.evictionTimeout)
	}
	return true
}

func (l *LivenessSupervisor) State(key domain.ConnKey) (livenessState, bool) {
	s, ok := l.states[key]
	return s, ok
}

func (l *LivenessSupervisor) Len() int {
	return len(l.states)
}
