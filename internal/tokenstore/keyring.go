package tokenstore

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name tokens are stored under.
const KeyringService = "vaultkeys"

// KeyringClient abstracts the OS keychain for testing.
type KeyringClient interface {
	Get(service, account string) (string, error)
	Set(service, account, secret string) error
	Delete(service, account string) error
}

type systemKeyring struct{}

func (systemKeyring) Get(service, account string) (string, error) {
	return keyring.Get(service, account)
}

func (systemKeyring) Set(service, account, secret string) error {
	return keyring.Set(service, account, secret)
}

func (systemKeyring) Delete(service, account string) error {
	return keyring.Delete(service, account)
}

// Keyring stores one token per Vault address in the OS keychain.
type Keyring struct {
	Account string
	Client  KeyringClient
}

// NewKeyring returns a keyring source for the given Vault address.
func NewKeyring(address string) *Keyring {
	return &Keyring{Account: address, Client: systemKeyring{}}
}

func (k *Keyring) Name() string { return "keyring" }

func (k *Keyring) Token(context.Context) (string, error) {
	token, err := k.client().Get(KeyringService, k.Account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNoToken
		}
		return "", err
	}
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Store saves token for this address.
func (k *Keyring) Store(token string) error {
	return k.client().Set(KeyringService, k.Account, token)
}

// Delete removes the stored token. Deleting a missing token is not an error.
func (k *Keyring) Delete() error {
	err := k.client().Delete(KeyringService, k.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}

func (k *Keyring) client() KeyringClient {
	if k.Client == nil {
		return systemKeyring{}
	}
	return k.Client
}
