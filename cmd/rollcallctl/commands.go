package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/rollcall/internal/app"
	"github.com/rpggio/rollcall/internal/config"
	"github.com/rpggio/rollcall/internal/domain/activity"
	"github.com/rpggio/rollcall/internal/domain/report"
	"github.com/spf13/cobra"
)

type loader func() (config.Config, error)

func newRootCmd(load loader) *cobra.Command {
	var verbose bool
	rootCmd := &cobra.Command{
		Use:           "rollcallctl",
		Short:         "Maintenance commands for the rollcall attendance store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log to stderr")

	open := func(cmd *cobra.Command) (*app.App, error) {
		cfg, err := load()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		// Scheduled backups belong to the server.
		cfg.Backup.Schedule = ""
		logger := slog.New(slog.DiscardHandler)
		if verbose {
			logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
		}
		return app.Build(cmd.Context(), cfg, logger)
	}

	rootCmd.AddCommand(backupCmd(open))
	rootCmd.AddCommand(restoreCmd(open))
	rootCmd.AddCommand(backupsCmd(open))
	rootCmd.AddCommand(groupsCmd(open))
	rootCmd.AddCommand(reportCmd(open))

	return rootCmd
}

type opener func(cmd *cobra.Command) (*app.App, error)

func backupCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the attendance document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			name, err := a.Attendance.Backup(cmd.Context())
			if err != nil {
				return err
			}
			a.Activity.Record(cmd.Context(), 0, activity.TypeBackupCreated, "cli backup "+name, map[string]string{"name": name})
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
}

func restoreCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "restore [name]",
		Short: "Replace the attendance document with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			name := strings.TrimSpace(args[0])
			if err := a.Attendance.Restore(cmd.Context(), name); err != nil {
				return err
			}
			a.Activity.Record(cmd.Context(), 0, activity.TypeDocumentRestored, "cli restore "+name, map[string]string{"name": name})
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s\n", name)
			return nil
		},
	}
}

func backupsCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			names, err := a.Attendance.Backups(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func groupsCmd(open opener) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List groups and their rosters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			groups, err := a.Attendance.Groups(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, groups)
			}
			for _, g := range groups {
				fmt.Fprintf(out, "%s\t%s\t%d students\n", g.Name, g.Code, len(g.Students))
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func reportCmd(open opener) *cobra.Command {
	var (
		mode   string
		month  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "report [group]",
		Short: "Summarize attendance for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := report.ParseMode(mode)
			if err != nil {
				return err
			}
			req := report.Request{Mode: m, Group: args[0]}
			if m.NeedsMonth() {
				if month < 1 || month > 12 {
					return fmt.Errorf("--month must be 1-12 for monthly reports")
				}
				req.Month = time.Month(month)
			}

			a, err := open(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Reports.Run(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, rep)
			}
			printReport(out, rep)
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", string(report.ModeDaily), "daily, weekly, monthly or yearly")
	cmd.Flags().IntVar(&month, "month", 0, "Month number for monthly reports")
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func printReport(out io.Writer, rep *report.Report) {
	fmt.Fprintf(out, "%s report for %s, %s to %s\n", rep.Mode, rep.Group,
		rep.Start.Format("2006-01-02"), rep.End.Format("2006-01-02"))
	fmt.Fprintf(out, "records: %d  present: %d  unexcused: %d  excused: %d\n",
		rep.Summary.Records, rep.Summary.Present, rep.Summary.Unexcused, rep.Summary.Excused)
	for _, t := range rep.Summary.Absences {
		fmt.Fprintf(out, "  %s\tunexcused %d\texcused %d\n", t.Student, t.Unexcused, t.Excused)
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
