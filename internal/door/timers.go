package door

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/bzzzt/internal/domain"
)

type timerKind int

const (
	probeTimer timerKind = iota
	evictionTimer
	releaseTimer
)

func (k timerKind) String() string {
	switch k {
	case probeTimer:
		return "probe"
	case evictionTimer:
		return "eviction"
	case releaseTimer:
		return "release"
	default:
		return "unknown"
	}
}

type timerID struct {
	key  domain.ConnKey
	kind timerKind
}

// timerFired is posted back to the service loop when a timer expires.
// gen identifies which scheduling of the timer fired.
type timerFired struct {
	baseCmd
	id  timerID
	gen uint64
}

type scheduledTimer struct {
	gen   uint64
	timer clockwork.Timer
}

// scheduler keeps at most one pending timer per (connection, kind).
// Rescheduling supersedes the previous timer; a superseded or cancelled timer
// that fires anyway is rejected by claim.
type scheduler struct {
	clock  clockwork.Clock
	post   func(timerFired)
	gen    uint64
	timers map[timerID]scheduledTimer
}

func newScheduler(clock clockwork.Clock, post func(timerFired)) *scheduler {
	return &scheduler{
		clock:  clock,
		post:   post,
		timers: make(map[timerID]scheduledTimer),
	}
}

func (s *scheduler) schedule(id timerID, d time.Duration) {
	s.cancel(id)
	s.gen++
	gen := s.gen
	t := s.clock.AfterFunc(d, func() {
		s.post(timerFired{id: id, gen: gen})
	})
	s.timers[id] = scheduledTimer{gen: gen, timer: t}
}

func (s *scheduler) cancel(id timerID) {
	if st, ok := s.timers[id]; ok {
		st.timer.Stop()
		delete(s.timers, id)
	}
}

func (s *scheduler) cancelAll(key domain.ConnKey) {
	for _, kind := range []timerKind{probeTimer, evictionTimer, releaseTimer} {
		s.cancel(timerID{key: key, kind: kind})
	}
}

func (s *scheduler) pending(id timerID) bool {
	_, ok := s.timers[id]
	return ok
}

// claim accepts a fired timer only if it is the latest scheduling for its id.
func (s *scheduler) claim(f timerFired) bool {
	st, ok := s.timers[f.id]
	if !ok || st.gen != f.gen {
		return false
	}
	delete(s.timers, f.id)
	return true
}

func (s *scheduler) stopAll() {
	for id, st := range s.timers {
		st.timer.Stop()
		delete(s.timers, id)
	}
}
