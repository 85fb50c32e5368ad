package commands

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/systmms/vaultkeys/internal/config"
	"github.com/systmms/vaultkeys/internal/secure"
	"github.com/systmms/vaultkeys/pkg/keys"
)

// NewRekeyCommand creates the rekey command
func NewRekeyCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rekey",
		Short: "Run a master-key rekey ceremony",
		Long: `Replace Vault's master key and issue a new set of key shares.

A ceremony runs in three steps:
  1. vaultkeys rekey start --shares 5 --threshold 3
  2. each current key holder runs: vaultkeys rekey update --nonce <nonce>
     and pastes their share on stdin
  3. once enough shares are in, Vault prints the new shares

Use 'vaultkeys rekey status' to follow progress and 'vaultkeys rekey stop' to
abandon a ceremony.`,
	}

	cmd.AddCommand(
		newRekeyStatusCommand(cfg),
		newRekeyStartCommand(cfg),
		newRekeyStopCommand(cfg),
		newRekeyUpdateCommand(cfg),
	)
	return cmd
}

func newRekeyStatusCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the progress of the current rekey",
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
			resp, err := s.await(ctx, "rekey status", s.client.GetRekeyStatus(ctx, s.options()))
			if err != nil {
				return err
			}
			status, err := keys.DecodeRekeyStatus(resp)
			if err != nil {
				return err
			}
			return printResult(cmd, cfg, status)
		},
	}
}

func newRekeyStartCommand(cfg *config.Config) *cobra.Command {
	var (
		shares              int
		threshold           int
		pgpKeys             []string
		backup              bool
		requireVerification bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Begin a new rekey",
		Long: `Begin a new rekey. --shares and --threshold default to secret_shares and
secret_threshold from the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := outputFormat(cfg); err != nil {
				return err
			}
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			opts := &keys.StartRekeyOptions{
				Token:               cfg.Token,
				PGPKeys:             pgpKeys,
				Backup:              backup,
				RequireVerification: requireVerification,
			}
			if cmd.Flags().Changed("shares") {
				opts.SecretShares = keys.Int(shares)
			}
			if cmd.Flags().Changed("threshold") {
				opts.SecretThreshold = keys.Int(threshold)
			}

			ctx := commandContext(cmd)
			resp, err := s.await(ctx, "rekey start", s.client.StartRekey(ctx, opts))
			if err != nil {
				return err
			}
			status, err := keys.DecodeRekeyStatus(resp)
			if err != nil {
				return err
			}
			cfg.Logger.Info("Rekey started (%d of %d shares will be required). Share the nonce with key holders", status.T, status.N)
			return printResult(cmd, cfg, status)
		},
	}

	cmd.Flags().IntVar(&shares, "shares", 0, "Number of shares to split the new master key into")
	cmd.Flags().IntVar(&threshold, "threshold", 0, "Number of shares required to reconstruct the new master key")
	cmd.Flags().StringSliceVar(&pgpKeys, "pgp-key", nil, "Base64 PGP public key to encrypt a share with (repeat once per share)")
	cmd.Flags().BoolVar(&backup, "backup", false, "Keep PGP-encrypted shares in Vault's core")
	cmd.Flags().BoolVar(&requireVerification, "require-verification", false, "Require holders of the new shares to verify them")
	return cmd
}

func newRekeyStopCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Cancel the current rekey",
		Long:  `Cancel the current rekey. Vault discards any shares submitted so far.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := commandContext(cmd)
			if _, err := s.await(ctx, "rekey stop", s.client.StopRekey(ctx, s.options())); err != nil {
				return err
			}
			cfg.Logger.Info("Rekey cancelled")
			return nil
		},
	}
}

func newRekeyUpdateCommand(cfg *config.Config) *cobra.Command {
	var (
		nonce string
		key   string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Submit one current key share",
		Long: `Submit one current key share toward the rekey identified by --nonce.

The share is read from stdin unless --key is given. Passing it on the command
line leaves it in shell history and process listings.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := outputFormat(cfg); err != nil {
				return err
			}

			var share *secure.SecureBuffer
			var err error
			if key != "" {
				share, err = secure.FromString(key)
			} else {
				share, err = secure.ReadLine(cmd.InOrStdin())
			}
			if err != nil && !errors.Is(err, secure.ErrEmpty) {
				return err
			}
			if share != nil {
				defer share.Destroy()
			}

			s, err := openSession(cfg)
			if err != nil {
				return err
			}
			defer s.close()

			body, err := shareBody(share, nonce)
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			f := s.client.UpdateRekey(ctx, &keys.UpdateRekeyOptions{Token: cfg.Token, Body: body})
			resp, err := s.await(ctx, "rekey update", f)
			if err != nil {
				return err
			}

			result, err := keys.DecodeRekeyUpdate(resp)
			if err != nil {
				return err
			}
			if result.Complete {
				cfg.Logger.Warn("Rekey complete. Distribute the new shares now; Vault will not show them again")
			} else {
				cfg.Logger.Info("Share accepted (%d of %d)", result.Progress, result.Required)
			}
			return printResult(cmd, cfg, result)
		},
	}

	cmd.Flags().StringVar(&nonce, "nonce", "", "Nonce of the rekey in progress")
	cmd.Flags().StringVar(&key, "key", "", "Key share (read from stdin when omitted)")
	return cmd
}

// shareBody builds the update body and destroys share before returning.
// The body's Key is an ordinary string: it lives on the heap until the
// request completes and the garbage collector reclaims it. Only the enclave
// copy is wiped.
func shareBody(share *secure.SecureBuffer, nonce string) (*keys.RekeyUpdateBody, error) {
	body := &keys.RekeyUpdateBody{Nonce: nonce}
	if share == nil {
		return body, nil
	}
	defer share.Destroy()

	err := share.Use(func(p []byte) error {
		body.Key = string(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
