// Package app provides the top-level application lifecycle for the wallet
// tracker. It wires the fetch gateway, trackers, notification channels, and
// audit trail together, then runs one of the operating modes.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ozanylmz/walletwatch/internal/config"
)

// Mode selects what the application does after wiring.
type Mode string

const (
	// ModeMonitor polls every wallet on the configured interval until the
	// context is cancelled.
	ModeMonitor Mode = "monitor"
	// ModeCheck runs a single poll cycle and exits.
	ModeCheck Mode = "check"
	// ModeList prints the configured wallets and exits without touching
	// any upstream API.
	ModeList Mode = "list"
)

// App is the root application object. It owns the configuration, logger, and
// a list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run wires all dependencies and runs the selected mode until it returns or
// the context is cancelled.
func (a *App) Run(ctx context.Context, mode Mode) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("mode", string(mode)),
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("wallets", len(a.cfg.EnabledWallets())),
	)

	if mode == ModeList {
		// List mode needs no upstream clients or audit file.
		return a.ListMode(ctx)
	}

	deps, cleanup, err := Wire(a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	switch mode {
	case ModeMonitor:
		return a.MonitorMode(ctx, deps)
	case ModeCheck:
		return a.CheckMode(ctx, deps)
	default:
		return fmt.Errorf("app: unsupported mode %q", mode)
	}
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
