package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/runnerr0/yoda/internal/config"
	"github.com/runnerr0/yoda/internal/server"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	log := newLogger(cfg, c.globals)

	store, dbPath, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	c.applyOverrides(cfg)
	srv := server.New(store, server.Options{
		Addr:       cfg.Addr(),
		TopN:       cfg.Server.TopN,
		SmallShare: cfg.Server.SmallShare,
		Log:        log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("db", dbPath).Str("version", c.version).Msg("starting dashboard")
	return srv.ListenAndServe(ctx)
}

// applyOverrides copies --host and --port over the configured listen address.
func (c *ServeCommand) applyOverrides(cfg *config.Config) {
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port > 0 {
		cfg.Server.Port = c.Port
	}
}
