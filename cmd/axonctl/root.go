package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	asJSON  bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:          "axonctl",
		Short:        "Operate axoncore accounts and estimate usage",
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.baseURL, "url", envOr("AXONCORE_URL", "http://localhost:8080"), "axoncore API base URL")
	flags.StringVar(&opts.apiKey, "api-key", os.Getenv("INTERNAL_API_KEY"), "internal API key")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	flags.BoolVar(&opts.asJSON, "json", false, "render JSON output")

	rootCmd.AddCommand(
		newAccountsCmd(opts),
		newEstimateCmd(opts),
	)
	return rootCmd
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
