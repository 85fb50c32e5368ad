package commands

import (
	"github.com/spf13/cobra"
	"github.com/systmms/vaultkeys/internal/config"
	dserrors "github.com/systmms/vaultkeys/internal/errors"
	"github.com/systmms/vaultkeys/internal/secure"
	"github.com/systmms/vaultkeys/internal/tokenstore"
)

// NewLoginCommand creates the login command
func NewLoginCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Store a Vault token in the OS keychain",
		Long: `Store a Vault token in the OS keychain for the configured address.

The token is read from stdin unless the global --token flag is given. It is used whenever
token_source is unset or set to keyring and VAULT_TOKEN is empty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureLoaded(cfg); err != nil {
				return err
			}

			var buf *secure.SecureBuffer
			var err error
			if cfg.Token != "" {
				buf, err = secure.FromString(cfg.Token)
			} else {
				buf, err = secure.ReadLine(cmd.InOrStdin())
			}
			if err != nil {
				return dserrors.UserError{
					Message:    "No token provided",
					Suggestion: "Pipe the token on stdin or pass --token",
					Err:        err,
				}
			}
			defer buf.Destroy()

			// The keychain API takes a string, so the token is copied to the
			// heap for the duration of Store. The enclave is wiped right after.
			k := keyring(cfg)
			err = buf.Use(func(p []byte) error {
				return k.Store(string(p))
			})
			buf.Destroy()
			if err != nil {
				return dserrors.UserError{
					Message:    "Failed to store token in the OS keychain",
					Details:    err.Error(),
					Suggestion: "Check that a keychain service is available, or set token_source to env and use VAULT_TOKEN",
					Err:        err,
				}
			}

			cfg.Logger.Info("Token stored for %s", cfg.Definition.Address)
			return nil
		},
	}
}

// NewLogoutCommand creates the logout command
func NewLogoutCommand(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored Vault token from the OS keychain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := ensureLoaded(cfg); err != nil {
				return err
			}
			if err := keyring(cfg).Delete(); err != nil {
				return dserrors.UserError{
					Message: "Failed to remove token from the OS keychain",
					Details: err.Error(),
					Err:     err,
				}
			}
			cfg.Logger.Info("Token removed for %s", cfg.Definition.Address)
			return nil
		},
	}
}

func keyring(cfg *config.Config) *tokenstore.Keyring {
	k := tokenstore.NewKeyring(cfg.Definition.Address)
	if keyringClient != nil {
		k.Client = keyringClient
	}
	return k
}
