package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/vaultkeys/internal/config"
	"github.com/systmms/vaultkeys/pkg/keys"
)

// NewKeyCommand creates the key command with status and rotate subcommands
func NewKeyCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Inspect and rotate Vault's backend encryption key",
		Long: `Inspect and rotate the keyring Vault uses to encrypt data at rest.

Rotation adds a new key term; data written afterwards is encrypted with it while
older terms stay available for decryption.`,
	}

	cmd.AddCommand(
		newKeyStatusCommand(cfg),
		newKeyRotateCommand(cfg),
	)
	return cmd
}

func newKeyStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current encryption key term and install time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := outputFormat(cfg); err != nil {
				return err
			}
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := commandContext(cmd)
			resp, err := s.await(ctx, "key status", s.client.GetKeyStatus(ctx, s.options()))
			if err != nil {
				return err
			}
			status, err := keys.DecodeKeyStatus(resp)
			if err != nil {
				return err
			}
			return printResult(cmd, cfg, status)
		},
	}
}

func newKeyRotateCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "rotate",
		Short: "Rotate the backend encryption key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := commandContext(cmd)
			if _, err := s.await(ctx, "key rotation", s.client.RotateKey(ctx, s.options())); err != nil {
				return err
			}
			cfg.Logger.Info("Encryption key rotated")
			return nil
		},
	}
}
