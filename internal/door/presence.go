package door

import "github.com/pscheid92/bzzzt/internal/domain"

// PresenceSet tracks which connections hold the button and reports edges of
// the aggregate state. It is edge-triggered: repeated presses report nothing.
type PresenceSet struct {
	holders       map[domain.ConnKey]struct{}
	lastBroadcast bool
	causer        domain.ConnKey
}

func NewPresenceSet() *PresenceSet {
	return &PresenceSet{holders: make(map[domain.ConnKey]struct{})}
}

// SetHeld adds or removes key and reports the edge, if the aggregate changed.
// The causer of an unlock edge is the key that made the holder set non-empty.
func (p *PresenceSet) SetHeld(key domain.ConnKey, held bool) (domain.Edge, bool) {
	wasEmpty := len(p.holders) == 0
	if held {
		p.holders[key] = struct{}{}
		if wasEmpty {
			p.causer = key
		}
	} else {
		delete(p.holders, key)
	}

	pressed := len(p.holders) > 0
	if pressed == p.lastBroadcast {
		return domain.Edge{}, false
	}
	p.lastBroadcast = pressed

	edge := domain.Edge{Pressed: pressed}
	if pressed {
		edge.Causer = p.causer
		edge.HasCauser = true
	}
	return edge, true
}

// Release drops any hold of key, as happens when its connection goes away.
func (p *PresenceSet) Release(key domain.ConnKey) (domain.Edge, bool) {
	return p.SetHeld(key, false)
}

// Pressed is the aggregate state.
func (p *PresenceSet) Pressed() bool {
	return len(p.holders) > 0
}

func (p *PresenceSet) Holding(key domain.ConnKey) bool {
	_, ok := p.holders[key]
	return ok
}

func (p *PresenceSet) Len() int {
	return len(p.holders)
}

// Reset drops every hold without reporting an edge. Used on shutdown.
func (p *PresenceSet) Reset() {
	clear(p.holders)
	p.lastBroadcast = false
}
