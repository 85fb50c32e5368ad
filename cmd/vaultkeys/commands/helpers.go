package commands

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/systmms/vaultkeys/internal/config"
	dserrors "github.com/systmms/vaultkeys/internal/errors"
	"github.com/systmms/vaultkeys/internal/logging"
	"github.com/systmms/vaultkeys/internal/metrics"
	"github.com/systmms/vaultkeys/internal/tokenstore"
	"github.com/systmms/vaultkeys/internal/vault"
	"github.com/systmms/vaultkeys/pkg/keys"
	"gopkg.in/yaml.v3"
)

// keyringClient replaces the OS keychain when set. Tests use it.
var keyringClient tokenstore.KeyringClient

// session is one command's view of Vault.
type session struct {
	cfg     *config.Config
	client  *keys.KeyRotationClient
	metrics *metrics.RequestMetrics
}

func openSession(cfg *config.Config) (*session, error) {
	if err := ensureLoaded(cfg); err != nil {
		return nil, err
	}

	tokens, err := tokenSource(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	client, err := vault.NewClient(cfg, vault.ClientOptions{Tokens: tokens, Metrics: m})
	if err != nil {
		return nil, dserrors.VaultError("client setup", err)
	}

	return &session{cfg: cfg, client: client, metrics: m}, nil
}

func ensureLoaded(cfg *config.Config) error {
	if cfg.Logger == nil {
		cfg.Logger = logging.New(false, true)
	}
	if cfg.Definition != nil {
		return nil
	}
	return cfg.Load()
}

// tokenSource puts an explicit token (config file or VAULT_TOKEN) ahead of
// the configured token_source.
func tokenSource(cfg *config.Config) (tokenstore.Source, error) {
	def := cfg.Definition
	parsed, err := tokenstore.Parse(def.TokenSource, tokenstore.ParseOptions{
		Address: def.Address,
		AWS: tokenstore.AWSOptions{
			Region:          def.AWS.Region,
			Endpoint:        def.AWS.Endpoint,
			Profile:         def.AWS.Profile,
			AccessKeyID:     def.AWS.AccessKeyID,
			SecretAccessKey: def.AWS.SecretAccessKey,
			RoleARN:         def.AWS.RoleARN,
			ExternalID:      def.AWS.ExternalID,
		},
		GCP: tokenstore.GCPOptions{
			CredentialsFile:    def.GCP.CredentialsFile,
			ImpersonateAccount: def.GCP.ImpersonateServiceAccount,
		},
		Azure: tokenstore.AzureOptions{
			TenantID:          def.Azure.TenantID,
			ClientID:          def.Azure.ClientID,
			ClientSecret:      def.Azure.ClientSecret,
			ManagedIdentityID: def.Azure.ManagedIdentityClientID,
		},
		LookupEnv: cfg.LookupEnv,
		Keyring:   keyringClient,
	})
	if err != nil {
		return nil, dserrors.ConfigError{
			Field:      "token_source",
			Value:      def.TokenSource,
			Message:    err.Error(),
			Suggestion: "Use env, keyring, static:<token>, aws-sm://<id>[#field], aws-ssm://<name>, gcp-sm://projects/<p>/secrets/<s> or azure-kv://<vault>/<secret>",
		}
	}

	chain := tokenstore.Chain{}
	if def.Token != "" {
		chain = append(chain, tokenstore.Static(def.Token))
	}
	chain = append(chain, parsed)
	return tokenstore.NewCached(chain), nil
}

func (s *session) options() *keys.Options {
	return &keys.Options{Token: s.cfg.Token}
}

// await waits for f and converts failures into user-facing errors.
func (s *session) await(ctx context.Context, operation string, f *keys.Future) (*keys.Response, error) {
	resp, err := f.Await(ctx)
	if err != nil {
		return nil, dserrors.VaultError(operation, err)
	}
	return resp, nil
}

// close writes the metrics textfile when one was requested.
func (s *session) close() {
	if s.cfg.MetricsFile == "" {
		return
	}
	if err := prometheus.WriteToTextfile(s.cfg.MetricsFile, s.metrics.Registry()); err != nil {
		s.cfg.Logger.Warn("Failed to write metrics to %s: %v", s.cfg.MetricsFile, err)
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// printResult writes v to the command's output in the configured format.
func printResult(cmd *cobra.Command, cfg *config.Config, v interface{}) error {
	format, err := outputFormat(cfg)
	if err != nil {
		return err
	}
	return writeResult(cmd.OutOrStdout(), format, v)
}

func writeResult(w io.Writer, format string, v interface{}) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputFormat normalizes --output. Commands check it before calling Vault
// so a typo does not cost a round trip.
func outputFormat(cfg *config.Config) (string, error) {
	switch strings.ToLower(cfg.Output) {
	case "", "json":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	}
	return "", dserrors.ConfigError{
		Field:      "output",
		Value:      cfg.Output,
		Message:    "unsupported output format",
		Suggestion: "Use --output json or --output yaml",
	}
}
