package door

import (
	"github.com/pscheid92/bzzzt/internal/domain"
)

func triggerModeLabel(mode domain.TriggerMode) string {
	switch mode {
	case domain.TriggerHold:
		return "hold"
	case domain.TriggerRelease:
		return "release"
	default:
		return "momentary"
	}
}

// handleTrigger applies an HTTP trigger. A trigger hold is a virtual
// connection in the registry, keyed by its token, so it is aggregated,
// reported and released exactly like a client hold.
func (s *Service) handleTrigger(c triggerCmd) error {
	s.metrics.Triggers.WithLabelValues(triggerModeLabel(c.mode)).Inc()

	key, exists := s.triggers[c.token]

	if c.mode == domain.TriggerRelease {
		if exists {
			s.remove(key, reasonReleased)
		}
		return nil
	}

	if !exists {
		conn := newConnection(c.token, nil)
		key = s.registry.Admit(conn)
		s.triggers[c.token] = key
		conn.logger().InfoContext(conn.ctx, "Trigger hold admitted", "mode", triggerModeLabel(c.mode))
	}

	release := timerID{key: key, kind: releaseTimer}
	if c.mode == domain.TriggerMomentary {
		s.sched.schedule(release, s.opts.PressDuration)
	} else {
		s.sched.cancel(release)
	}

	if edge, changed := s.presence.SetHeld(key, true); changed {
		s.applyEdge(edge)
	}
	s.updateGauges()
	return nil
}
