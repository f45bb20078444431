package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/dbmux-labs/dbmux/internal/config"
	"github.com/dbmux-labs/dbmux/internal/hub"
	"github.com/dbmux-labs/dbmux/internal/server"
)

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Watch bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the dbmux HTTP server",
		Long: `Start the HTTP server exposing the database hub.

Backends from the configuration are registered at startup; more can be
added and removed over the API while the server runs.`,
		Example: `  # Start with ./dbmux.yaml
  dbmux serve

  # Custom port, reload backends when the config file changes
  dbmux serve --port 9000 --watch`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "Reload backends when the config file changes")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	cmdCtx := NewCommandContext(cmd)
	cfg, logger := cmdCtx.Cfg, cmdCtx.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, router, cleanup := openHub(ctx, cmdCtx)
	defer cleanup()

	if opts.Watch {
		if path := config.ConfigFileUsed(); path != "" {
			go watchConfig(ctx, path, reg, cfg.Databases, cmd.Root().PersistentFlags(), logger)
		} else {
			logger.Warn("--watch set but no config file in use")
		}
	}

	srv := server.New(reg, router, cfg.Server, logger)
	logger.Info("starting server", "addr", cfg.Server.Addr(), "databases", len(reg.List()))
	return srv.Serve(ctx)
}

// watchConfig reloads the config file on change and reconciles the
// registry with the new database list. The parent directory is watched
// because editors typically replace files rather than write in place.
func watchConfig(ctx context.Context, path string, reg *hub.Registry, backends []config.BackendConfig, flags *pflag.FlagSet, logger *slog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to start config watcher", "error", err)
		return
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Error("failed to watch config directory", "error", err)
		return
	}

	target := filepath.Clean(path)
	var pending <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			// Debounce
			pending = time.After(100 * time.Millisecond)

		case <-pending:
			pending = nil
			next, err := config.Load(path, flags)
			if err != nil {
				logger.Error("config reload failed", "error", err)
				continue
			}
			logger.Info("config file changed, reconciling databases", "file", path)
			backends = reconcileBackends(ctx, reg, backends, next.Databases, logger)

		case err := <-watcher.Errors:
			logger.Error("config watcher error", "error", err)
		}
	}
}

// reconcileBackends applies a reloaded database list: vanished entries
// are removed, new ones registered, changed ones replaced and a changed
// active flag toggled in place. A backend that failed to connect earlier
// is retried. Returns the list now in effect.
func reconcileBackends(ctx context.Context, reg *hub.Registry, old, next []config.BackendConfig, logger *slog.Logger) []config.BackendConfig {
	prev := make(map[string]config.BackendConfig, len(old))
	for _, bc := range old {
		prev[bc.Name] = bc
	}

	registered := make(map[string]bool)
	for _, s := range reg.List() {
		registered[s.Name] = true
	}

	seen := make(map[string]bool, len(next))
	for _, bc := range next {
		seen[bc.Name] = true
		if !registered[bc.Name] {
			registerBackend(ctx, reg, bc, logger)
			continue
		}
		was, ok := prev[bc.Name]
		if !ok {
			// Registered over the API under a name the config now
			// claims; leave it alone.
			continue
		}
		if was.ToDatabaseConfig() != bc.ToDatabaseConfig() {
			_ = reg.RemoveDatabase(bc.Name)
			registerBackend(ctx, reg, bc, logger)
			continue
		}
		if was.Enabled() != bc.Enabled() {
			if err := reg.SetActive(bc.Name, bc.Enabled()); err != nil {
				logger.Error("failed to toggle database", "name", bc.Name, "error", err)
			}
		}
	}

	for name := range prev {
		if seen[name] {
			continue
		}
		if err := reg.RemoveDatabase(name); err == nil {
			logger.Info("database dropped from config", "name", name)
		}
	}

	return next
}
