// Command termine runs single operations against the appointment store.
//
// Usage:
//
//	termine refresh
//	termine expire
//	termine earliest --limit 10
//	termine query --deadline 24.12.2024
//	termine cutoff
//	termine ics --before 2024-12-24 > termine.ics
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/buergeramt-termine/termine/internal/appointment"
	"github.com/buergeramt-termine/termine/internal/bootstrap"
	"github.com/buergeramt-termine/termine/internal/calendar"
	"github.com/buergeramt-termine/termine/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "termine",
		Short:        "Bürgeramt appointment notifier CLI",
		SilenceUsage: true,
	}

	root.AddCommand(refreshCmd())
	root.AddCommand(expireCmd())
	root.AddCommand(earliestCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(cutoffCmd())
	root.AddCommand(icsCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func refreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Download the current snapshot and notify subscribers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg config.Config, svc *appointment.Service) error {
				report, err := svc.Refresh(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "observed=%d added=%d removed=%d notified=%d failed=%d\n",
					report.Observed, report.Added, report.Removed, report.Notified, report.Failed)
				return nil
			})
		},
	}
}

func expireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Remove subscribers whose deadline has been reached",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg config.Config, svc *appointment.Service) error {
				n, err := svc.ExpireSubscribers(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed=%d\n", n)
				return nil
			})
		},
	}
}

func earliestCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "earliest",
		Short: "Print the earliest stored appointments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg config.Config, svc *appointment.Service) error {
				text, err := svc.Earliest(ctx, limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of appointments (default EARLIEST_LIMIT)")
	return cmd
}

func queryCmd() *cobra.Command {
	var deadline string
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Answer a deadline query from the stored snapshot without subscribing",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(deadline)
			if err != nil {
				return fmt.Errorf("invalid --deadline: %w", err)
			}
			return run(func(ctx context.Context, cfg config.Config, svc *appointment.Service) error {
				answer, err := svc.QueryDeadline(ctx, d)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), answer.Text)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&deadline, "deadline", "", "Deadline as 02.01.2006 or 2006-01-02")
	_ = cmd.MarkFlagRequired("deadline")
	return cmd
}

func cutoffCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cutoff",
		Short: "Print the date where regular availability begins",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(ctx context.Context, cfg config.Config, svc *appointment.Service) error {
				cutoff, err := svc.Cutoff(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), cutoff.Format(time.DateOnly))
				return nil
			})
		},
	}
}

func icsCmd() *cobra.Command {
	var before string
	cmd := &cobra.Command{
		Use:   "ics",
		Short: "Write the appointments before a date as iCalendar to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(before)
			if err != nil {
				return fmt.Errorf("invalid --before: %w", err)
			}
			return run(func(ctx context.Context, cfg config.Config, svc *appointment.Service) error {
				apps, names, err := svc.AppointmentsBefore(ctx, d)
				if err != nil {
					return err
				}
				return calendar.Encode(cmd.OutOrStdout(), apps, names, cfg.Timezone, time.Now())
			})
		},
	}
	cmd.Flags().StringVar(&before, "before", "", "Date as 02.01.2006 or 2006-01-02")
	_ = cmd.MarkFlagRequired("before")
	return cmd
}

func run(fn func(ctx context.Context, cfg config.Config, svc *appointment.Service) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := config.NewLogger(cfg.LogLevel)

	deps, err := bootstrap.Connect(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close(logger)

	return fn(ctx, cfg, deps.Service)
}

func parseDate(s string) (time.Time, error) {
	if d, err := time.ParseInLocation("02.01.2006", s, time.UTC); err == nil {
		return d, nil
	}
	return time.ParseInLocation(time.DateOnly, s, time.UTC)
}
