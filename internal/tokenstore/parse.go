package tokenstore

import (
	"fmt"
	"strings"
)

// ParseOptions carries what Parse needs besides the source string.
type ParseOptions struct {
	Address   string
	AWS       AWSOptions
	GCP       GCPOptions
	Azure     AzureOptions
	LookupEnv func(key string) (string, bool)
	// Keyring replaces the OS keychain, mainly for tests.
	Keyring KeyringClient
}

// Parse builds a source from a token_source value:
//
//	env                        VAULT_TOKEN
//	keyring                    OS keychain entry for the Vault address
//	static:<token>             literal token
//	aws-sm://<id>[#field]      Secrets Manager secret
//	aws-ssm://<parameter>      SSM parameter
//	gcp-sm://projects/<p>/secrets/<s>[/versions/<v>][#field]
//	                           GCP Secret Manager version (default latest)
//	azure-kv://<vault>/<secret>[/<version>]
//	                           Azure Key Vault secret
//
// An empty value yields env followed by keyring.
func Parse(source string, opts ParseOptions) (Source, error) {
	source = strings.TrimSpace(source)
	switch {
	case source == "":
		return Chain{Env{LookupEnv: opts.LookupEnv}, opts.keyring()}, nil
	case source == "env":
		return Env{LookupEnv: opts.LookupEnv}, nil
	case source == "keyring":
		return opts.keyring(), nil
	case strings.HasPrefix(source, "static:"):
		token := strings.TrimPrefix(source, "static:")
		if token == "" {
			return nil, fmt.Errorf("static token source is empty")
		}
		return Static(token), nil
	case strings.HasPrefix(source, "aws-sm://"):
		ref := strings.TrimPrefix(source, "aws-sm://")
		id, field, _ := strings.Cut(ref, "#")
		if id == "" {
			return nil, fmt.Errorf("aws-sm token source needs a secret id")
		}
		return &AWSSecretsManager{SecretID: id, Field: field, Options: opts.AWS}, nil
	case strings.HasPrefix(source, "aws-ssm://"):
		name := strings.TrimPrefix(source, "aws-ssm://")
		if name == "" {
			return nil, fmt.Errorf("aws-ssm token source needs a parameter name")
		}
		if !strings.HasPrefix(name, "/") && strings.Contains(name, "/") {
			name = "/" + name
		}
		return &AWSParameterStore{Parameter: name, Options: opts.AWS}, nil
	case strings.HasPrefix(source, "gcp-sm://"):
		ref, field, _ := strings.Cut(strings.TrimPrefix(source, "gcp-sm://"), "#")
		name, err := gcpSecretName(ref)
		if err != nil {
			return nil, err
		}
		return &GCPSecretManager{Resource: name, Field: field, Options: opts.GCP}, nil
	case strings.HasPrefix(source, "azure-kv://"):
		parts := strings.Split(strings.TrimPrefix(source, "azure-kv://"), "/")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("azure-kv token source must look like <vault>/<secret>[/<version>]")
		}
		kv := &AzureKeyVault{VaultURL: keyVaultURL(parts[0]), Secret: parts[1], Options: opts.Azure}
		if len(parts) == 3 {
			kv.Version = parts[2]
		}
		return kv, nil
	}
	return nil, fmt.Errorf("unsupported token source %q", source)
}

func (o ParseOptions) keyring() *Keyring {
	k := NewKeyring(o.Address)
	if o.Keyring != nil {
		k.Client = o.Keyring
	}
	return k
}
