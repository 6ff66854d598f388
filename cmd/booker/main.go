package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wolfman30/consultation-booking/internal/booking"
	"github.com/wolfman30/consultation-booking/internal/gateway"
	httpmiddleware "github.com/wolfman30/consultation-booking/internal/http/middleware"
	"github.com/wolfman30/consultation-booking/internal/tui"
	"github.com/wolfman30/consultation-booking/internal/widget"
	"github.com/wolfman30/consultation-booking/pkg/logging"
)

// packageDurations are the consultation lengths the API sells.
var packageDurations = []int{30, 45, 60}

type options struct {
	baseURL   string
	duration  int
	timeout   time.Duration
	exportDir string
	logFile   string
	logLevel  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "booker",
		Short:         "Book a consultation from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInteractive(cmd.Context(), opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.baseURL, "base-url", envOr("BOOKER_BASE_URL", "http://localhost:8080"), "Booking gateway base URL")
	pf.IntVar(&opts.duration, "duration", booking.DefaultDurationMinutes, "Consultation length in minutes (30, 45 or 60)")
	pf.DurationVar(&opts.timeout, "timeout", 10*time.Second, "Per-request timeout")
	pf.StringVar(&opts.logFile, "log-file", "", "Write logs to this file (logs are discarded when empty)")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	cmd.Flags().StringVar(&opts.exportDir, "export-dir", ".", "Directory for exported calendar files")

	cmd.AddCommand(newSlotsCmd(opts), newMonthCmd(opts), newAdminTokenCmd())
	return cmd
}

func newSlotsCmd(opts *options) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List free slots for a date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, logger, closeLog, err := newClient(opts)
			if err != nil {
				return err
			}
			defer closeLog()

			if date == "" {
				date = time.Now().Format(booking.DateLayout)
			}
			set, err := client.DaySlots(cmd.Context(), date, opts.duration)
			if err != nil {
				logger.Error("slot lookup failed", "date", date, "error", err)
				return err
			}
			out := cmd.OutOrStdout()
			views := booking.PrepareSlots(date, set.Slots, time.Now())
			if len(views) == 0 {
				fmt.Fprintln(out, booking.EmptySlotsMessage(set.IsToday, set.CurrentTime))
				return nil
			}
			for _, v := range views {
				line := fmt.Sprintf("%s  %s", v.ID, v.DisplayLabel())
				if v.Disabled {
					line += "  (" + v.DisabledReason + ")"
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Date as YYYY-MM-DD (default today)")
	return cmd
}

func newMonthCmd(opts *options) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "month",
		Short: "Show which dates of a month have free slots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, logger, closeLog, err := newClient(opts)
			if err != nil {
				return err
			}
			defer closeLog()

			m := booking.MonthOf(time.Now())
			if month != "" {
				t, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid --month %q: want YYYY-MM", month)
				}
				m = booking.MonthOf(t)
			}
			days, err := client.MonthAvailability(cmd.Context(), m.Year, m.Number(), opts.duration)
			if err != nil {
				logger.Error("month availability failed", "month", m.Key(), "error", err)
				return err
			}

			cells := booking.RenderMonth(m, "", time.Now())
			booking.MergeAvailability(cells, days)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, m.Label())
			for _, c := range cells {
				if c.Empty() {
					continue
				}
				state := c.Availability.String()
				if c.IsPast {
					state = "past"
				}
				fmt.Fprintf(out, "%s  %s\n", c.Date, state)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month as YYYY-MM (default current)")
	return cmd
}

// newAdminTokenCmd mints a bearer token for the /admin booking endpoints.
func newAdminTokenCmd() *cobra.Command {
	var (
		secret string
		email  string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "admin-token",
		Short: "Issue an admin bearer token signed with ADMIN_JWT_SECRET",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			token, err := httpmiddleware.IssueAdminToken(secret, email, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("ADMIN_JWT_SECRET"), "HMAC secret shared with the API")
	cmd.Flags().StringVar(&email, "email", os.Getenv("ADMIN_EMAIL"), "Admin email placed in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func runInteractive(ctx context.Context, opts *options) error {
	client, logger, closeLog, err := newClient(opts)
	if err != nil {
		return err
	}
	defer closeLog()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctrl := widget.New(client, widget.Options{
		DurationMinutes: opts.duration,
		Timeout:         opts.timeout,
		Logger:          logger,
	})
	logger.Info("booker started", "base_url", opts.baseURL, "duration", opts.duration)

	p := tea.NewProgram(tui.New(ctx, ctrl, opts.exportDir), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		logger.Error("terminal ui failed", "error", err)
		return err
	}
	return nil
}

func newClient(opts *options) (*gateway.Client, *logging.Logger, func(), error) {
	if !slices.Contains(packageDurations, opts.duration) {
		return nil, nil, nil, fmt.Errorf("invalid --duration %d: want 30, 45 or 60", opts.duration)
	}
	logger, closeLog, err := openLogger(opts.logFile, opts.logLevel)
	if err != nil {
		return nil, nil, nil, err
	}
	client, err := gateway.NewClient(opts.baseURL, gateway.WithTimeout(opts.timeout), gateway.WithLogger(logger))
	if err != nil {
		closeLog()
		return nil, nil, nil, err
	}
	return client, logger, closeLog, nil
}

// openLogger keeps logs off the terminal the UI draws on.
func openLogger(path, level string) (*logging.Logger, func(), error) {
	if path == "" {
		return logging.NewWithWriter(level, io.Discard), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return logging.NewWithWriter(level, f), func() { _ = f.Close() }, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
