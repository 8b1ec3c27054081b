package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"studio/internal/amqp"
	"studio/internal/clinic"
	"studio/internal/document"
	"studio/internal/log"
	"studio/internal/report"
	"studio/internal/services"
)

var errInvalidBackup = errors.New("backup file is not valid")

// writeOutput writes data to path, or to the command output when path is "-"
func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Install the demo treatment catalog on an empty practice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			seeded, err := a.repo.Seed(cmd.Context())
			if err != nil {
				return err
			}
			if seeded {
				fmt.Fprintln(cmd.OutOrStdout(), "demo catalog installed")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "practice already has patients or prices, nothing to do")
			}
			return nil
		},
	}
}

func newBackupCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export every collection as one JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := a.repo.BackupJSON(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = clinic.BackupFilename(a.repo.Today())
			}
			return writeOutput(cmd, output, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file ("-" for stdout, default backup-dentist-<date>.json)`)
	return cmd
}

func newRestoreCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace every collection with the content of a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			ok, err := a.repo.Restore(cmd.Context(), data)
			if err != nil {
				return err
			}
			if !ok {
				return errInvalidBackup
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", args[0])
			return nil
		},
	}
}

func newQuotePDFCmd(a *app) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "quote-pdf <quote-id>",
		Short: "Render a quote as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quote, ok, err := a.repo.Quotes.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("quote %s not found", args[0])
			}
			data, filename, err := document.QuotePDF(quote, a.studio(), a.repo.Now())
			if err != nil {
				return err
			}
			return writeOutput(cmd, filepath.Join(dir, filename), data)
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "directory for the generated file")
	return cmd
}

func newReportCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export payments and revenue totals as XLSX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.repo.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			data, err := report.PaymentsXLSX(snap.Payments, clinic.Names(snap.Patients))
			if err != nil {
				return err
			}
			if output == "" {
				output = report.Filename(a.repo.Today())
			}
			return writeOutput(cmd, output, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default pagamenti-<date>.xlsx)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print today's dashboard as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := a.repo.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func newRemindersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reminders",
		Short: "Publish or inspect appointment reminders",
	}

	dial := func() (*amqp.Client, error) {
		if a.cfg == nil || a.cfg.AMQPURL == "" {
			return nil, errors.New("AMQP_URL is not configured")
		}
		return amqp.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger.WithComponent(log.ComponentAMQP))
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "send",
		Short: "Publish reminders for tomorrow's appointments once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial()
			if err != nil {
				return err
			}
			defer client.Close()

			processor := services.NewReminderProcessor(a.repo, client, a.logger.WithComponent(log.ComponentReminder))
			sent, err := processor.ProcessDueReminders(cmd.Context(), a.repo.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %d reminders\n", sent)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "tail",
		Short: "Print and acknowledge reminder messages as they arrive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := dial()
			if err != nil {
				return err
			}
			defer client.Close()

			out := cmd.OutOrStdout()
			err = client.ConsumeReminders(cmd.Context(), func(_ context.Context, msg *amqp.ReminderMessage) error {
				_, werr := fmt.Fprintf(out, "%s %s %s (%s)\n", msg.Date, msg.Time, msg.PatientName, msg.AppointmentID)
				return werr
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	})
	return cmd
}
