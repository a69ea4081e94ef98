package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"kycpass/internal/platform/config"
)

type globalFlags struct {
	apiURL     string
	timeout    time.Duration
	logLevel   string
	logFormat  string
	traceHTTP  bool
	traceSpans bool
}

// apply overlays the flags on cfg.
func (f *globalFlags) apply(cfg config.Config) config.Config {
	cfg.API.URL = f.apiURL
	cfg.API.Timeout = f.timeout
	cfg.Log.Level = f.logLevel
	cfg.Log.Format = f.logFormat
	return cfg
}

func newRootCommand(cfg config.Config, stdout, stderr io.Writer) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "walletd",
		Short: "KYC credential session for a wallet account",
		Long: "walletd keeps the DID and KYC credential state of one wallet account in sync with the " +
			"identity service. Run it as a local HTTP service with 'serve', or run single commands.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&flags.apiURL, "api-url", cfg.API.URL, "identity service base URL")
	pf.DurationVar(&flags.timeout, "timeout", cfg.API.Timeout, "timeout for each identity service call")
	pf.StringVar(&flags.logLevel, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	pf.StringVar(&flags.logFormat, "log-format", cfg.Log.Format, "log format: json or text")
	pf.BoolVar(&flags.traceHTTP, "trace-http", false, "dump identity service requests and responses to stderr")
	pf.BoolVar(&flags.traceSpans, "trace-spans", false, "export identity service spans to stderr")

	root.AddCommand(
		newServeCommand(cfg, flags),
		newDIDCommand(cfg, flags),
		newCredentialCommand(cfg, flags),
		newVerifyCommand(cfg, flags),
		newConfigCommand(cfg, flags),
	)
	return root
}

func newConfigCommand(cfg config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printJSON(cmd.OutOrStdout(), flags.apply(cfg))
		},
	}
}

func printJSON(w io.Writer, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
