package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
)

// KeyVaultAPI is the subset of the Key Vault secrets client used here.
type KeyVaultAPI interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

// AzureOptions selects the credential for the Key Vault client built on
// first use. A client secret wins over a managed identity; with neither set
// DefaultAzureCredential applies.
type AzureOptions struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// ManagedIdentityID is the client id of a user-assigned identity.
	ManagedIdentityID string
}

// AzureKeyVault reads the token from a Key Vault secret. An empty Version
// reads the current version.
type AzureKeyVault struct {
	VaultURL string
	Secret   string
	Version  string
	Options  AzureOptions
	Client   KeyVaultAPI
}

func (a *AzureKeyVault) Name() string { return "azure-kv" }

func (a *AzureKeyVault) Token(ctx context.Context) (string, error) {
	client := a.Client
	if client == nil {
		c, err := newKeyVaultClient(a.VaultURL, a.Options)
		if err != nil {
			return "", err
		}
		client = c
	}

	resp, err := client.GetSecret(ctx, a.Secret, a.Version, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) {
			switch respErr.StatusCode {
			case http.StatusNotFound:
				return "", fmt.Errorf("secret %s not found in %s", a.Secret, a.VaultURL)
			case http.StatusForbidden:
				return "", fmt.Errorf("access to secret %s denied (needs the Get secret permission): %w", a.Secret, err)
			}
		}
		return "", fmt.Errorf("failed to read secret %s: %w", a.Secret, err)
	}
	if resp.Value == nil || *resp.Value == "" {
		return "", ErrNoToken
	}
	return strings.TrimSpace(*resp.Value), nil
}

func newKeyVaultClient(vaultURL string, opts AzureOptions) (*azsecrets.Client, error) {
	var cred azcore.TokenCredential
	var err error

	switch {
	case opts.ClientSecret != "":
		cred, err = azidentity.NewClientSecretCredential(opts.TenantID, opts.ClientID, opts.ClientSecret, nil)
	case opts.ManagedIdentityID != "":
		cred, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(opts.ManagedIdentityID),
		})
	default:
		cred, err = azidentity.NewDefaultAzureCredential(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure credential: %w", err)
	}

	client, err := azsecrets.NewClient(vaultURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Key Vault client: %w", err)
	}
	return client, nil
}

// keyVaultURL expands a bare vault name to its public-cloud URL. Hosts with a
// dot (sovereign clouds, private endpoints) are used as given.
func keyVaultURL(vault string) string {
	if strings.Contains(vault, ".") {
		return "https://" + vault + "/"
	}
	return "https://" + vault + ".vault.azure.net/"
}
