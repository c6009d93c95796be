package gpio

import (
	"log/slog"
	"sync"

	"github.com/pscheid92/bzzzt/internal/domain"
)

// LogPin stands in for real hardware during development: it only logs.
type LogPin struct {
	pin int

	mu    sync.Mutex
	value bool
}

var _ domain.Actuator = (*LogPin)(nil)

func NewLogPin(pin int) *LogPin {
	slog.Info("GPIO pin ready", "pin", pin, "backend", "log")
	return &LogPin{pin: pin}
}

func (p *LogPin) SetValue(on bool) error {
	p.mu.Lock()
	p.value = on
	p.mu.Unlock()

	slog.Info("GPIO output", "pin", p.pin, "value", on)
	return nil
}

func (p *LogPin) Value() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value
}

func (p *LogPin) Close() error {
	return p.SetValue(false)
}
