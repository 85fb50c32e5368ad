package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/systmms/vaultkeys/internal/logging"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vaultkeys.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func envMap(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestConfig_Load(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
address: https://vault.internal:8200
namespace: ops
token_source: keyring
headers:
  X-Request-Source: vaultkeys
secret_shares: 7
secret_threshold: 4
timeout_ms: 5000
tls:
  ca_cert: /etc/vault/ca.pem
aws:
  region: eu-west-1
`)

	cfg := &Config{Path: path, Logger: logging.Discard(), LookupEnv: envMap(nil)}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "https://vault.internal:8200", def.Address)
	assert.Equal(t, "ops", def.Namespace)
	assert.Equal(t, "keyring", def.TokenSource)
	assert.Equal(t, map[string]string{"X-Request-Source": "vaultkeys"}, def.Headers)
	assert.Equal(t, 7, def.SecretShares)
	assert.Equal(t, 4, def.SecretThreshold)
	assert.Equal(t, 5*time.Second, def.Timeout())
	assert.Equal(t, "/etc/vault/ca.pem", def.TLS.CACert)
	assert.Equal(t, "eu-west-1", def.AWS.Region)
}

func TestConfig_Load_CloudTokenSources(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, def *Definition)
	}{
		{
			name: "gcp secret manager",
			content: `
token_source: gcp-sm://projects/ops/secrets/vault-token/versions/3#token
gcp:
  credentials_file: /etc/gcp/sa.json
  impersonate_service_account: vault@ops.iam.gserviceaccount.com
`,
			check: func(t *testing.T, def *Definition) {
				assert.Equal(t, "gcp-sm://projects/ops/secrets/vault-token/versions/3#token", def.TokenSource)
				assert.Equal(t, "/etc/gcp/sa.json", def.GCP.CredentialsFile)
				assert.Equal(t, "vault@ops.iam.gserviceaccount.com", def.GCP.ImpersonateServiceAccount)
			},
		},
		{
			name: "azure key vault",
			content: `
token_source: azure-kv://ops-kv/vault-token
azure:
  tenant_id: t-1
  client_id: c-1
  client_secret: s3cret
`,
			check: func(t *testing.T, def *Definition) {
				assert.Equal(t, "azure-kv://ops-kv/vault-token", def.TokenSource)
				assert.Equal(t, AzureConfig{TenantID: "t-1", ClientID: "c-1", ClientSecret: "s3cret"}, def.Azure)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{Path: writeConfig(t, tt.content), Logger: logging.Discard(), LookupEnv: envMap(nil)}
			require.NoError(t, cfg.Load())
			tt.check(t, cfg.Definition)
		})
	}
}

func TestConfig_Load_DefaultsWithoutFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{
		Path:      DefaultPath,
		Logger:    logging.Discard(),
		LookupEnv: envMap(nil),
	}

	if _, err := os.Stat(DefaultPath); err == nil {
		t.Skip("a vaultkeys.yaml exists in the working directory")
	}

	require.NoError(t, cfg.Load())
	assert.Equal(t, DefaultAddress, cfg.Definition.Address)
	assert.Equal(t, DefaultSecretShares, cfg.Definition.SecretShares)
	assert.Equal(t, DefaultSecretThreshold, cfg.Definition.SecretThreshold)
	assert.Equal(t, DefaultTimeout, cfg.Definition.Timeout())
}

func TestConfig_Load_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	cfg := &Config{Path: "/nonexistent/path/vaultkeys.yaml", Logger: logging.Discard()}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration file not found")
}

func TestConfig_Load_InvalidYAML(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "secret_shares: 5\naddress: [unterminated\n")
	cfg := &Config{Path: path, Logger: logging.Discard()}
	err := cfg.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid YAML syntax")
	assert.Contains(t, err.Error(), "line ", "yaml position should reach the user")
	assert.Contains(t, err.Error(), path)
}

func TestConfig_Load_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "unknown field", content: "adress: http://x\n", want: "adress"},
		{name: "shares not integer", content: "secret_shares: five\n", want: "secret_shares"},
		{name: "threshold below one", content: "secret_threshold: 0\n", want: "secret_threshold"},
		{name: "address without scheme", content: "address: vault:8200\n", want: "address"},
		{name: "bad token source", content: "token_source: ftp://x\n", want: "token_source"},
		{name: "access key without secret", content: "aws:\n  access_key_id: AKIA\n", want: "secret_access_key"},
		{name: "role is not an arn", content: "aws:\n  role_arn: vault-reader\n", want: "role_arn"},
		{name: "gcp source without resource path", content: "token_source: gcp-sm://ops/vault\n", want: "token_source"},
		{name: "azure source without secret", content: "token_source: azure-kv://ops-kv\n", want: "token_source"},
		{name: "azure secret without tenant", content: "azure:\n  client_secret: s3cret\n", want: "tenant_id"},
		{name: "gcp unknown field", content: "gcp:\n  project: ops\n", want: "project"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{Path: writeConfig(t, tt.content), Logger: logging.Discard(), LookupEnv: envMap(nil)}
			err := cfg.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "schema validation failed")
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Load_EnvOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "address: https://from-file:8200\nnamespace: file-ns\n")
	cfg := &Config{
		Path:   path,
		Logger: logging.Discard(),
		LookupEnv: envMap(map[string]string{
			"VAULT_ADDR":        "https://from-env:8200",
			"VAULT_TOKEN":       "hvs.env",
			"VAULT_NAMESPACE":   "env-ns",
			"VAULT_CACERT":      "/tmp/ca.pem",
			"VAULT_CLIENT_CERT": "/tmp/cert.pem",
			"VAULT_CLIENT_KEY":  "/tmp/key.pem",
			"VAULT_SKIP_VERIFY": "true",
		}),
	}
	require.NoError(t, cfg.Load())

	def := cfg.Definition
	assert.Equal(t, "https://from-env:8200", def.Address)
	assert.Equal(t, "hvs.env", def.Token)
	assert.Equal(t, "env-ns", def.Namespace)
	assert.Equal(t, "/tmp/ca.pem", def.TLS.CACert)
	assert.Equal(t, "/tmp/cert.pem", def.TLS.ClientCert)
	assert.Equal(t, "/tmp/key.pem", def.TLS.ClientKey)
	assert.True(t, def.TLS.SkipVerify)
}

func TestConfig_Load_WarnsOnThresholdAboveShares(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	path := writeConfig(t, "secret_shares: 2\nsecret_threshold: 3\n")
	cfg := &Config{Path: path, Logger: logging.NewWithWriter(&buf, false, true), LookupEnv: envMap(nil)}
	require.NoError(t, cfg.Load())

	assert.Contains(t, buf.String(), "secret_threshold (3) exceeds secret_shares (2)")
}

func TestConfig_Get(t *testing.T) {
	t.Parallel()

	cfg := &Config{Definition: &Definition{
		Address:         "https://vault:8200",
		SecretShares:    5,
		SecretThreshold: 3,
		Token:           "hvs.hidden",
		Headers:         map[string]string{"X-Team": "sre"},
	}}

	v, ok := cfg.Get("secret_shares")
	assert.True(t, ok)
	assert.Equal(t, 5, v)

	v, ok = cfg.Get("secret_threshold")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	v, ok = cfg.Get("headers.X-Team")
	assert.True(t, ok)
	assert.Equal(t, "sre", v)

	_, ok = cfg.Get("token")
	assert.False(t, ok, "token must not be served by Get")

	_, ok = cfg.Get("namespace")
	assert.False(t, ok)

	_, ok = (&Config{}).Get("address")
	assert.False(t, ok)
}
