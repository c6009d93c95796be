// Package gpio drives the door output pin.
package gpio

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/bzzzt/internal/domain"
	"github.com/pscheid92/bzzzt/internal/platform/retry"
)

// The kernel creates the pin directory on export; udev may need a moment
// before its files become writable.
var exportPolicy = retry.Policy{
	MaxAttempts:    10,
	InitialBackoff: 10 * time.Millisecond,
	MaxBackoff:     200 * time.Millisecond,
}

// SysfsPin drives one output pin through the legacy /sys/class/gpio interface.
type SysfsPin struct {
	root      string
	pin       int
	valuePath string
}

var _ domain.Actuator = (*SysfsPin)(nil)

// OpenSysfs exports pin under root if needed, configures it as an output and
// drives it low.
func OpenSysfs(ctx context.Context, clock clockwork.Clock, root string, pin int) (*SysfsPin, error) {
	p := &SysfsPin{
		root:      root,
		pin:       pin,
		valuePath: filepath.Join(root, pinDir(pin), "value"),
	}

	if _, err := os.Stat(filepath.Join(root, pinDir(pin))); errors.Is(err, fs.ErrNotExist) {
		if err := writeFile(filepath.Join(root, "export"), strconv.Itoa(pin)); err != nil {
			return nil, fmt.Errorf("export gpio %d: %w", pin, err)
		}
	}

	direction := filepath.Join(root, pinDir(pin), "direction")
	err := retry.DoVoid(ctx, clock, exportPolicy, retry.On(fs.ErrNotExist, fs.ErrPermission), func() error {
		return writeFile(direction, "out")
	})
	if err != nil {
		return nil, fmt.Errorf("set gpio %d direction: %w", pin, err)
	}

	if err := p.SetValue(false); err != nil {
		return nil, err
	}

	slog.Info("GPIO pin ready", "pin", pin, "backend", "sysfs", "root", root)
	return p, nil
}

func pinDir(pin int) string {
	return "gpio" + strconv.Itoa(pin)
}

func (p *SysfsPin) SetValue(on bool) error {
	value := "0"
	if on {
		value = "1"
	}
	if err := writeFile(p.valuePath, value); err != nil {
		return fmt.Errorf("write gpio %d value: %w", p.pin, err)
	}
	return nil
}

// Close drives the pin low and unexports it.
func (p *SysfsPin) Close() error {
	setErr := p.SetValue(false)

	var unexportErr error
	if err := writeFile(filepath.Join(p.root, "unexport"), strconv.Itoa(p.pin)); err != nil {
		unexportErr = fmt.Errorf("unexport gpio %d: %w", p.pin, err)
	}
	return errors.Join(setErr, unexportErr)
}

// writeFile writes to an existing sysfs attribute; it never creates files.
func writeFile(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(value); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
