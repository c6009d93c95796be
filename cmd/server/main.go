package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/bzzzt/internal/adapter/gpio"
	"github.com/pscheid92/bzzzt/internal/adapter/httpserver"
	"github.com/pscheid92/bzzzt/internal/adapter/metrics"
	"github.com/pscheid92/bzzzt/internal/adapter/websocket"
	"github.com/pscheid92/bzzzt/internal/door"
	"github.com/pscheid92/bzzzt/internal/domain"
	"github.com/pscheid92/bzzzt/internal/platform/config"
	"github.com/pscheid92/bzzzt/internal/platform/logging"
	"github.com/pscheid92/bzzzt/internal/platform/version"
)

const shutdownTimeout = 10 * time.Second

func setupConfig() *config.Config {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupPin(cfg *config.Config, clock clockwork.Clock) domain.Actuator {
	if cfg.GPIOBackend == config.BackendLog {
		return gpio.NewLogPin(cfg.Pin)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pin, err := gpio.OpenSysfs(ctx, clock, cfg.GPIOSysfsRoot, cfg.Pin)
	if err != nil {
		slog.Error("Failed to open GPIO pin", "pin", cfg.Pin, "root", cfg.GPIOSysfsRoot, "error", err)
		os.Exit(1)
	}
	return pin
}

func runGracefulShutdown(srv *httpserver.Server, svc *door.Service, pin domain.Actuator) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		svc.Stop()

		if err := pin.Close(); err != nil {
			slog.Error("Failed to release GPIO pin", "error", err)
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting",
		"version", version.Get().String(),
		"env", cfg.AppEnv,
		"port", cfg.Port,
		"pin", cfg.Pin,
		"gpio_backend", cfg.GPIOBackend,
	)

	pin := setupPin(cfg, clock)

	registry := metrics.NewRegistry()
	doorMetrics := metrics.NewDoorMetrics(registry)
	httpMetrics := metrics.NewHTTPMetrics(registry)

	svc := door.NewService(door.Options{
		ProbeInterval:   cfg.ProbeInterval,
		EvictionTimeout: cfg.EvictionTimeout,
		PressDuration:   cfg.PressDuration,
		MaxConnections:  cfg.MaxConnections,
	}, pin, clock, doorMetrics)
	svc.Start()

	wsHandler := websocket.NewHandler(svc, websocket.NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()), clock)

	healthChecks := []httpserver.HealthCheck{
		{Name: "door", Check: func(ctx context.Context) error {
			_, err := svc.Snapshot(ctx)
			return err
		}},
	}

	srv := httpserver.NewServer(cfg, svc, wsHandler, metrics.Handler(registry), httpMetrics, healthChecks)

	done := runGracefulShutdown(srv, svc, pin)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		svc.Stop()
		if err := pin.Close(); err != nil {
			slog.Error("Failed to release GPIO pin", "error", err)
		}
		os.Exit(1)
	}

	<-done
}
