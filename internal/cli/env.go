// Package cli holds the inspectctl subcommands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bryanwahyu/inspection-sync/internal/application"
	"github.com/bryanwahyu/inspection-sync/internal/config"
	"github.com/bryanwahyu/inspection-sync/internal/infra/db"
	"github.com/bryanwahyu/inspection-sync/internal/logging"
)

var (
	okLabel   = color.New(color.FgGreen).Sprint("OK")
	warnLabel = color.New(color.FgYellow).Sprint("WARN")
	bold      = color.New(color.Bold)
)

// env is what every subcommand needs: config, logger, store and clock.
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	db     *db.Handle
	clock  application.Clock
	cancel context.CancelFunc
}

func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" {
		return p
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return "config.yaml"
}

func openEnv(cmd *cobra.Command) (*env, context.Context, error) {
	cfg, err := config.Load(configPath(cmd))
	if err != nil {
		return nil, nil, fmt.Errorf("config load: %w", err)
	}
	// CLI output goes to the terminal; keep logs quiet unless asked for.
	level := cfg.Logging.Level
	if level == "info" {
		level = "warn"
	}
	log, err := logging.New(level, "console", cfg.Logging.Service)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	h, err := db.Open(ctx, cfg, log)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return &env{cfg: cfg, log: log, db: h, clock: application.SystemClock{}, cancel: cancel}, ctx, nil
}

func (e *env) close() {
	e.cancel()
	_ = e.db.Close()
	_ = e.log.Sync()
}
