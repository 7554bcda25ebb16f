package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version = "dev"

	serverURL string
	apiToken  string
	locale    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "guardctl",
		Short: "Inspect and manage loginguard attempt state",
		Long: `guardctl talks to a running loginguard API to inspect the lockout state of
an identifier, clear it, or prepare credentials for local authentication mode.`,
		SilenceUsage: true,
		Version:      Version,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("GUARDCTL_SERVER", "http://localhost:8080"), "loginguard API base URL")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("GUARDCTL_TOKEN"), "operator bearer token")
	rootCmd.PersistentFlags().StringVar(&locale, "locale", "en", "locale for durations (en, ar)")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(hashPasswordCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
