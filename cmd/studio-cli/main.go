// Command studio-cli runs maintenance tasks against the practice data:
// seeding, backup and restore, document exports and reminder delivery.
//
// Usage:
//
//	studio-cli backup -o backup.json
//	studio-cli restore backup.json
//	studio-cli quote-pdf <quote-id>
//	studio-cli reminders send
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"studio/internal/cli"
	"studio/internal/clinic"
	"studio/internal/config"
	"studio/internal/document"
	"studio/internal/log"
)

// app carries what every subcommand needs. repo is opened lazily so that
// --help works without a backend.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer

	repo    *clinic.Repository
	cleanup func() error
}

func (a *app) open(ctx context.Context) error {
	if a.repo != nil {
		return nil
	}
	repo, cleanup, err := cli.OpenRepository(ctx, a.cfg, a.logger, nil)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.repo, a.cleanup = repo, cleanup
	return nil
}

func (a *app) close() {
	if a.cleanup == nil {
		return
	}
	if err := a.cleanup(); err != nil {
		a.logger.Warn("Storage close error", log.FieldError, err)
	}
	a.cleanup = nil
}

func (a *app) studio() document.Studio {
	if a.cfg == nil || a.cfg.StudioName == "" {
		return document.DefaultStudio()
	}
	return document.Studio{Name: a.cfg.StudioName, Address: a.cfg.StudioAddress, Email: a.cfg.StudioEmail}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "studio-cli",
		Short:         "Maintenance tasks for the dental practice data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}
	root.SetOut(a.out)

	root.AddCommand(
		newSeedCmd(a),
		newBackupCmd(a),
		newRestoreCmd(a),
		newQuotePDFCmd(a),
		newReportCmd(a),
		newStatsCmd(a),
		newRemindersCmd(a),
	)
	return root
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(cfg, log.ComponentCLI)
	cfg = cli.LoadAndValidateConfig(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{cfg: cfg, logger: logger, out: os.Stdout}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	cancel()
	if err != nil {
		logger.Error("Command failed", log.FieldError, err)
		os.Exit(1)
	}
}
