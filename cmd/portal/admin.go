package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/rpggio/salesportal/internal/app"
	"github.com/rpggio/salesportal/internal/auth"
	"github.com/rpggio/salesportal/internal/events"
	"github.com/rpggio/salesportal/internal/sheetimport"
)

// EventWorksheetImported is published after a worksheet import.
const EventWorksheetImported = "worksheet.imported"

func newMigrateCommand() *cobra.Command {
	flags := configFlags()
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			db, err := app.Open(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintf(cmd.OutOrStdout(), "migrated %s database\n", db.Driver())
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	return cmd
}

func newImportCommand() *cobra.Command {
	flags := configFlags()
	var replace bool
	cmd := &cobra.Command{
		Use:   "import <worksheet> <file.csv>",
		Short: "Load a CSV export into a worksheet",
		Long: `Load a CSV export into a worksheet.

The first row is the header. UTF-8 (with or without BOM), UTF-16 with BOM
and Latin-1 files are accepted. Rows are padded or truncated to the header
width. An existing worksheet is only overwritten with --replace.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				return err
			}
			parsed, err := sheetimport.Parse(data)
			if err != nil {
				return fmt.Errorf("parse %s: %w", args[1], err)
			}

			logger, closeLog := newLogger(cfg.Log.Level, true)
			defer closeLog()
			portal, err := app.New(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer portal.Close()

			return importWorksheet(cmd.Context(), cmd.OutOrStdout(), portal, args[0], parsed, replace)
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite an existing worksheet")
	return cmd
}

func importWorksheet(ctx context.Context, out io.Writer, portal *app.App, worksheet string, parsed *sheetimport.Result, replace bool) error {
	if err := portal.Worksheets.ImportGrid(ctx, worksheet, parsed.Grid, replace); err != nil {
		return fmt.Errorf("import %s: %w", worksheet, err)
	}
	if portal.Cache != nil {
		portal.Cache.Invalidate(ctx, worksheet)
	}
	payload := map[string]any{"worksheet": worksheet, "rows": len(parsed.Grid.Rows), "encoding": parsed.Encoding}
	if err := portal.Events.Publish(ctx, EventWorksheetImported, payload); err != nil {
		fmt.Fprintf(out, "warning: could not publish import event: %v\n", err)
	}

	for _, w := range parsed.Warnings {
		fmt.Fprintf(out, "row %d: %s\n", w.Row, w.Message)
	}
	fmt.Fprintf(out, "imported %d rows into %q (%s)\n", len(parsed.Grid.Rows), worksheet, parsed.Encoding)
	return nil
}

func newHashPasswordCommand() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for users.<login>.password_hash",
		Long:  "Print a bcrypt hash. The password is read from the first line of stdin when not given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var plain string
			if len(args) == 1 {
				plain = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && !errors.Is(err, io.EOF) {
					return err
				}
				plain = strings.TrimRight(line, "\r\n")
			}
			hash, err := auth.HashPassword(plain, cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (0 uses the default)")
	return cmd
}

func newEventsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Inspect portal events",
	}
	cmd.AddCommand(newEventsTailCommand())
	return cmd
}

func newEventsTailCommand() *cobra.Command {
	flags := configFlags()
	var limit int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Print events from the broker queue as JSON lines",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			logger, closeLog := newLogger(cfg.Log.Level, true)
			defer closeLog()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()

			enc := json.NewEncoder(cmd.OutOrStdout())
			seen := 0
			err = events.Consume(ctx, cfg.Broker.URL, cfg.Broker.Queue, func(_ context.Context, env events.Envelope) error {
				if err := enc.Encode(env); err != nil {
					return err
				}
				seen++
				if limit > 0 && seen >= limit {
					cancel()
				}
				return nil
			}, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
	cobraflags.RegisterMap(cmd, flags)
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Stop after this many events (0 waits forever)")
	return cmd
}
