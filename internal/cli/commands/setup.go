// Package commands implements the dbmux subcommands.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dbmux-labs/dbmux/internal/config"
	"github.com/dbmux-labs/dbmux/internal/hub"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
}

// NewCommandContext pulls config and logger from the command context.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	return &CommandContext{
		Cfg:    config.GetConfig(cmd.Context()),
		Logger: config.GetLogger(cmd.Context()),
	}
}

// registerBackend adds one configured backend to the registry. Failures
// are logged, not fatal: the hub runs with whatever subset connects.
func registerBackend(ctx context.Context, reg *hub.Registry, bc config.BackendConfig, logger *slog.Logger) {
	if err := reg.AddDatabase(ctx, bc.ToDatabaseConfig()); err != nil {
		logger.Error("failed to register database", "name", bc.Name, "error", err)
		return
	}
	if !bc.Enabled() {
		_ = reg.SetActive(bc.Name, false)
	}
}

// seedRegistry registers every backend from the configuration.
func seedRegistry(ctx context.Context, reg *hub.Registry, backends []config.BackendConfig, logger *slog.Logger) {
	for _, bc := range backends {
		registerBackend(ctx, reg, bc, logger)
	}
}

// openHub builds a registry and router seeded from the configuration.
// The returned cleanup closes every pool.
func openHub(ctx context.Context, cmdCtx *CommandContext) (*hub.Registry, *hub.Router, func()) {
	reg := hub.NewRegistry(cmdCtx.Logger)
	seedRegistry(ctx, reg, cmdCtx.Cfg.Databases, cmdCtx.Logger)
	router := hub.NewRouter(reg, cmdCtx.Logger)
	return reg, router, func() { _ = reg.Close() }
}
