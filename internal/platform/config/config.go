package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go-simpler.org/env"
)

const (
	BackendSysfs = "sysfs"
	BackendLog   = "log"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	AppURL    string `env:"APP_URL" default:"http://localhost:8888"`
	Port      string `env:"PORT" default:"8888"`
	Debug     bool   `env:"DEBUG" default:"false"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	Pin           int    `env:"PIN" default:"8"`
	GPIOBackend   string `env:"GPIO_BACKEND" default:"sysfs"`
	GPIOSysfsRoot string `env:"GPIO_SYSFS_ROOT" default:"/sys/class/gpio"`

	ProbeInterval   time.Duration `env:"PROBE_INTERVAL" default:"3s"`
	EvictionTimeout time.Duration `env:"EVICTION_TIMEOUT" default:"10s"`
	PressDuration   time.Duration `env:"PRESS_DURATION" default:"3s"`

	TriggerRateLimit float64 `env:"TRIGGER_RATE_LIMIT" default:"5"`
	TriggerRateBurst int     `env:"TRIGGER_RATE_BURST" default:"10"`
	MaxConnections   int     `env:"MAX_CONNECTIONS" default:"1000"`
}

// Load reads .env and the environment, then applies command-line overrides from args
// (typically os.Args[1:]). Flags win over environment variables.
func Load(args []string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := applyFlags(&cfg, args); err != nil {
		return nil, err
	}

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyFlags(cfg *Config, args []string) error {
	fs := pflag.NewFlagSet("bzzzt", pflag.ContinueOnError)
	fs.IntVar(&cfg.Pin, "pin", cfg.Pin, "output pin")
	fs.StringVar(&cfg.Port, "port", cfg.Port, "run on the given port")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "run in debug mode")
	fs.StringVar(&cfg.GPIOBackend, "gpio-backend", cfg.GPIOBackend, "pin driver: sysfs or log")
	fs.DurationVar(&cfg.ProbeInterval, "probe-interval", cfg.ProbeInterval, "interval between liveness probes")
	fs.DurationVar(&cfg.EvictionTimeout, "eviction-timeout", cfg.EvictionTimeout, "time a client has to answer a probe")
	fs.DurationVar(&cfg.PressDuration, "press-duration", cfg.PressDuration, "hold time of a momentary HTTP trigger")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("failed to parse flags: %w", err)
	}
	return nil
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	if cfg.Pin < 0 {
		return fmt.Errorf("PIN must not be negative, got %d", cfg.Pin)
	}

	switch cfg.GPIOBackend {
	case BackendSysfs, BackendLog:
	default:
		return fmt.Errorf("GPIO_BACKEND must be %q or %q, got %q", BackendSysfs, BackendLog, cfg.GPIOBackend)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"PROBE_INTERVAL", cfg.ProbeInterval},
		{"EVICTION_TIMEOUT", cfg.EvictionTimeout},
		{"PRESS_DURATION", cfg.PressDuration},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if cfg.TriggerRateLimit <= 0 || cfg.TriggerRateBurst <= 0 {
		return errors.New("TRIGGER_RATE_LIMIT and TRIGGER_RATE_BURST must be positive")
	}

	if cfg.MaxConnections <= 0 {
		return fmt.Errorf("MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}

	return nil
}

// IsDevelopment reports whether the app runs outside production.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv != "production"
}
