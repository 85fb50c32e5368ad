package config

import (
	"os"
	"strings"
	"time"

	dserrors "github.com/systmms/vaultkeys/internal/errors"
	"github.com/systmms/vaultkeys/internal/logging"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath            = "vaultkeys.yaml"
	DefaultAddress         = "http://127.0.0.1:8200"
	DefaultTimeout         = 30 * time.Second
	DefaultSecretShares    = 5
	DefaultSecretThreshold = 3
)

// Config holds the runtime configuration
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition

	// Set from global CLI flags.
	Output      string // json or yaml
	Token       string // per-call token override
	MetricsFile string // Prometheus textfile written after each command

	// LookupEnv reads environment overrides. Defaults to os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// Definition represents the vaultkeys.yaml structure
type Definition struct {
	Address     string            `yaml:"address"`
	Namespace   string            `yaml:"namespace,omitempty"`
	Token       string            `yaml:"token,omitempty"`        // discouraged, prefer token_source
	TokenSource string            `yaml:"token_source,omitempty"` // env, keyring, static:, aws-sm://, aws-ssm://, gcp-sm://, azure-kv://
	Headers     map[string]string `yaml:"headers,omitempty"`

	SecretShares    int `yaml:"secret_shares,omitempty"`
	SecretThreshold int `yaml:"secret_threshold,omitempty"`

	TimeoutMs int         `yaml:"timeout_ms,omitempty"`
	TLS       TLSConfig   `yaml:"tls,omitempty"`
	AWS       AWSConfig   `yaml:"aws,omitempty"`
	GCP       GCPConfig   `yaml:"gcp,omitempty"`
	Azure     AzureConfig `yaml:"azure,omitempty"`
}

// TLSConfig holds transport security settings
type TLSConfig struct {
	CACert     string `yaml:"ca_cert,omitempty"`
	ClientCert string `yaml:"client_cert,omitempty"`
	ClientKey  string `yaml:"client_key,omitempty"`
	SkipVerify bool   `yaml:"skip_verify,omitempty"` // not recommended
}

// AWSConfig configures the aws-sm:// and aws-ssm:// token sources
type AWSConfig struct {
	Region          string `yaml:"region,omitempty"`
	Endpoint        string `yaml:"endpoint,omitempty"` // LocalStack or testing
	Profile         string `yaml:"profile,omitempty"`
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
	RoleARN         string `yaml:"role_arn,omitempty"`
	ExternalID      string `yaml:"external_id,omitempty"`
}

// GCPConfig configures the gcp-sm:// token source. Application Default
// Credentials apply when both fields are empty.
type GCPConfig struct {
	CredentialsFile           string `yaml:"credentials_file,omitempty"`
	ImpersonateServiceAccount string `yaml:"impersonate_service_account,omitempty"`
}

// AzureConfig configures the azure-kv:// token source. DefaultAzureCredential
// applies when no client secret or managed identity is set.
type AzureConfig struct {
	TenantID                string `yaml:"tenant_id,omitempty"`
	ClientID                string `yaml:"client_id,omitempty"`
	ClientSecret            string `yaml:"client_secret,omitempty"`
	ManagedIdentityClientID string `yaml:"managed_identity_client_id,omitempty"`
}

// Load reads and validates the config file, then applies defaults and
// environment overrides. A missing file is only an error when the path was
// set explicitly to something other than the default.
func (c *Config) Load() error {
	if c.Path == "" {
		c.Path = DefaultPath
	}

	def := &Definition{}
	data, err := os.ReadFile(c.Path)
	switch {
	case err == nil:
		if err := c.parse(data, def); err != nil {
			return err
		}
	case os.IsNotExist(err) && c.Path == DefaultPath:
		c.logger().Debug("No config file at %s, using defaults and environment", c.Path)
	case os.IsNotExist(err):
		return dserrors.ConfigError{
			Field:      "path",
			Value:      c.Path,
			Message:    "configuration file not found",
			Suggestion: "Create the file or omit --config to use defaults and VAULT_* environment variables",
		}
	default:
		return dserrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	c.applyEnv(def)
	applyDefaults(def)

	if def.SecretThreshold > def.SecretShares {
		c.logger().Warn("secret_threshold (%d) exceeds secret_shares (%d); Vault will reject rekey requests that rely on these defaults",
			def.SecretThreshold, def.SecretShares)
	}

	c.Definition = def
	return nil
}

func (c *Config) parse(data []byte, def *Definition) error {
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return dserrors.ConfigError{
			Field:      "path",
			Value:      c.Path,
			Message:    "invalid YAML syntax: " + err.Error(),
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters. Use a YAML validator",
		}
	}
	if raw == nil {
		return nil
	}

	if err := validateSchema(raw); err != nil {
		return dserrors.ConfigError{
			Message:    err.Error(),
			Suggestion: "Fix the listed fields in " + c.Path,
		}
	}

	if err := yaml.Unmarshal(data, def); err != nil {
		return dserrors.ConfigError{
			Message:    "invalid configuration values",
			Suggestion: err.Error(),
		}
	}
	return nil
}

func (c *Config) applyEnv(def *Definition) {
	lookup := c.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	if addr := get("VAULT_ADDR"); addr != "" {
		def.Address = addr
	}
	if token := get("VAULT_TOKEN"); token != "" {
		def.Token = token
	}
	if namespace := get("VAULT_NAMESPACE"); namespace != "" {
		def.Namespace = namespace
	}
	if caCert := get("VAULT_CACERT"); caCert != "" {
		def.TLS.CACert = caCert
	}
	if clientCert := get("VAULT_CLIENT_CERT"); clientCert != "" {
		def.TLS.ClientCert = clientCert
	}
	if clientKey := get("VAULT_CLIENT_KEY"); clientKey != "" {
		def.TLS.ClientKey = clientKey
	}
	if skip := get("VAULT_SKIP_VERIFY"); skip == "1" || strings.ToLower(skip) == "true" {
		def.TLS.SkipVerify = true
	}
	if region := get("AWS_REGION"); region != "" && def.AWS.Region == "" {
		def.AWS.Region = region
	}
}

func applyDefaults(def *Definition) {
	if def.Address == "" {
		def.Address = DefaultAddress
	}
	if def.SecretShares <= 0 {
		def.SecretShares = DefaultSecretShares
	}
	if def.SecretThreshold <= 0 {
		def.SecretThreshold = DefaultSecretThreshold
	}
	if def.TimeoutMs <= 0 {
		def.TimeoutMs = int(DefaultTimeout / time.Millisecond)
	}
}

// Timeout returns the per-request timeout
func (d *Definition) Timeout() time.Duration {
	if d.TimeoutMs <= 0 {
		return DefaultTimeout
	}
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// Get looks up a configuration value by its YAML key. Secrets (token) are not
// served.
func (c *Config) Get(key string) (interface{}, bool) {
	if c.Definition == nil {
		return nil, false
	}
	d := c.Definition

	switch key {
	case "address":
		return d.Address, d.Address != ""
	case "namespace":
		return d.Namespace, d.Namespace != ""
	case "token_source":
		return d.TokenSource, d.TokenSource != ""
	case "secret_shares":
		return d.SecretShares, d.SecretShares > 0
	case "secret_threshold":
		return d.SecretThreshold, d.SecretThreshold > 0
	case "timeout_ms":
		return d.TimeoutMs, d.TimeoutMs > 0
	}

	if name, ok := strings.CutPrefix(key, "headers."); ok {
		v, ok := d.Headers[name]
		return v, ok
	}
	return nil, false
}

func (c *Config) logger() *logging.Logger {
	if c.Logger == nil {
		return logging.Discard()
	}
	return c.Logger
}
