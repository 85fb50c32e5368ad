package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/systmms/vaultkeys/cmd/vaultkeys/commands"
	"github.com/systmms/vaultkeys/internal/config"
	dserrors "github.com/systmms/vaultkeys/internal/errors"
	"github.com/systmms/vaultkeys/internal/logging"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx)
	stop()
	memguard.Purge()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", dserrors.SimplifyError(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		configFile string
		noColor    bool
		debug      bool
	)

	cfg := &config.Config{}

	rootCmd := &cobra.Command{
		Use:   "vaultkeys",
		Short: "Rotate Vault's encryption key and run master-key rekey ceremonies",
		Long: `vaultkeys drives Vault's sys/key-status, sys/rotate and sys/rekey endpoints.

The Vault address, namespace and rekey defaults come from vaultkeys.yaml and the
usual VAULT_* environment variables.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg.Path = configFile
			cfg.Logger = logging.New(debug, noColor)
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", config.DefaultPath, "Config file path")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", "json", "Output format: json or yaml")
	rootCmd.PersistentFlags().StringVar(&cfg.Token, "token", "", "Vault token for this invocation (overrides token_source)")
	rootCmd.PersistentFlags().StringVar(&cfg.MetricsFile, "metrics-file", "", "Write request metrics to this Prometheus textfile")

	rootCmd.AddCommand(
		commands.NewKeyCommand(cfg),
		commands.NewRekeyCommand(cfg),
		commands.NewLoginCommand(cfg),
		commands.NewLogoutCommand(cfg),
	)

	return rootCmd.ExecuteContext(ctx)
}
