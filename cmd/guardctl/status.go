package main

import (
	"fmt"
	"io"
	"time"

	"github.com/BradenHooton/loginguard/internal/models"
	"github.com/BradenHooton/loginguard/internal/services"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var showRecord bool

var statusCmd = &cobra.Command{
	Use:   "status <identifier>",
	Short: "Show whether an identifier may attempt a login",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newAPIClient(serverURL, apiToken)

		status, err := client.Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		renderStatus(cmd.OutOrStdout(), args[0], status, locale)

		if showRecord {
			rec, err := client.Record(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderRecord(cmd.OutOrStdout(), rec)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset <identifier>",
	Short: "Clear failures and lockout for an identifier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if apiToken == "" {
			return fmt.Errorf("reset requires an operator token (--token or GUARDCTL_TOKEN)")
		}
		if err := newAPIClient(serverURL, apiToken).Reset(cmd.Context(), args[0]); err != nil {
			return err
		}
		color.New(color.FgGreen, color.Bold).Fprintf(cmd.OutOrStdout(), "✓ %s reset\n", args[0])
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&showRecord, "record", false, "also print the stored record (operator token required)")
}

func stateColor(state models.AttemptState) *color.Color {
	switch state {
	case models.StateLocked:
		return color.New(color.FgRed, color.Bold)
	case models.StateDelayed:
		return color.New(color.FgYellow, color.Bold)
	case models.StateWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func renderStatus(w io.Writer, identifier string, s *models.RateLimitStatus, locale string) {
	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)

	bold.Fprintf(w, "%s\n", identifier)
	fmt.Fprintf(w, "  state:     %s\n", stateColor(s.State).Sprint(s.State))
	fmt.Fprintf(w, "  allowed:   %t\n", s.Allowed)
	fmt.Fprintf(w, "  remaining: %d\n", s.AttemptsRemaining)

	if s.WaitTimeSeconds > 0 {
		fmt.Fprintf(w, "  wait:      %s\n", services.FormatLockoutTime(s.WaitTimeSeconds, locale))
	}
	if s.LockedUntil != nil {
		gray.Fprintf(w, "  locked until %s\n", s.LockedUntil.UTC().Format(time.RFC3339))
	}
}

func renderRecord(w io.Writer, rec *models.AttemptRecord) {
	gray := color.New(color.FgHiBlack)
	stamp := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}

	gray.Fprintln(w, "  record:")
	fmt.Fprintf(w, "    failures:      %d\n", rec.FailureCount)
	fmt.Fprintf(w, "    first failure: %s\n", stamp(rec.FirstFailureAt))
	fmt.Fprintf(w, "    last failure:  %s\n", stamp(rec.LastFailureAt))
	fmt.Fprintf(w, "    locked until:  %s\n", stamp(rec.LockedUntil))
	fmt.Fprintf(w, "    last success:  %s\n", stamp(rec.SuccessAt))
}
