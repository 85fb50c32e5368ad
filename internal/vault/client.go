package vault

import (
	"net/http"

	"github.com/systmms/vaultkeys/internal/config"
	"github.com/systmms/vaultkeys/internal/logging"
	"github.com/systmms/vaultkeys/internal/metrics"
	"github.com/systmms/vaultkeys/internal/tokenstore"
	"github.com/systmms/vaultkeys/pkg/keys"
)

// ClientOptions carries the collaborators NewClient does not build itself.
type ClientOptions struct {
	Tokens     tokenstore.Source
	Metrics    *metrics.RequestMetrics
	HTTPClient *http.Client
}

// NewClient composes a KeyRotationClient over Vault's HTTP API from a loaded
// config.
func NewClient(cfg *config.Config, opts ClientOptions) (*keys.KeyRotationClient, error) {
	if cfg == nil || cfg.Definition == nil {
		return nil, &keys.ConfigurationError{Message: "configuration not loaded"}
	}
	def := cfg.Definition

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	transport, err := NewHTTPTransport(TransportOptions{
		Address:   def.Address,
		Namespace: def.Namespace,
		Timeout:   def.Timeout(),
		TLS: TLSOptions{
			CACert:     def.TLS.CACert,
			ClientCert: def.TLS.ClientCert,
			ClientKey:  def.TLS.ClientKey,
			SkipVerify: def.TLS.SkipVerify,
		},
		Tokens:     opts.Tokens,
		Logger:     logger,
		Metrics:    opts.Metrics,
		HTTPClient: opts.HTTPClient,
	})
	if err != nil {
		return nil, &keys.ConfigurationError{Message: "failed to build transport", Err: err}
	}

	return keys.NewKeyRotationClient(NewHTTPBinder(def.Address, transport), NewHostState(cfg))
}
