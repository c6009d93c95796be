package domain

import "fmt"

// ConnKey identifies one admitted connection. Keys are issued by the registry
// and never reused within a process.
type ConnKey uint64

func (k ConnKey) String() string {
	return fmt.Sprintf("conn-%d", k)
}

// StateUpdate is the message pushed to clients whenever the door state flips.
// ID names the label of the connection that caused an unlock and is omitted on release.
type StateUpdate struct {
	IsUnlocked bool   `json:"is_unlocked"`
	ID         string `json:"id,omitempty"`
}

// Edge is a transition of the aggregate door state.
type Edge struct {
	Pressed bool
	// Causer is set only on unlock edges.
	Causer    ConnKey
	HasCauser bool
}

// Direction returns "unlock" or "lock", used as a metric label.
func (e Edge) Direction() string {
	if e.Pressed {
		return "unlock"
	}
	return "lock"
}

// StateSnapshot is a read-only view of the door service.
type StateSnapshot struct {
	IsUnlocked  bool   `json:"is_unlocked"`
	ID          string `json:"id,omitempty"`
	Connections int    `json:"connections"`
	Holders     int    `json:"holders"`
}

// TriggerMode selects how an HTTP trigger affects the hold for its token.
type TriggerMode int

const (
	// TriggerMomentary holds for the configured press duration, then releases.
	TriggerMomentary TriggerMode = iota
	// TriggerHold holds until a matching TriggerRelease arrives.
	TriggerHold
	// TriggerRelease drops the hold for the token.
	TriggerRelease
)

// ParseTriggerMode maps the is_pressed request parameter to a TriggerMode.
func ParseTriggerMode(isPressed string) TriggerMode {
	switch isPressed {
	case "yes":
		return TriggerHold
	case "no":
		return TriggerRelease
	default:
		return TriggerMomentary
	}
}
