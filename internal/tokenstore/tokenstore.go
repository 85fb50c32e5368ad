// Package tokenstore resolves the Vault token used when a call carries no
// per-request override.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/systmms/vaultkeys/internal/secure"
)

// ErrNoToken is returned by a source that has nothing to offer. Chain moves on
// to the next source when it sees it.
var ErrNoToken = errors.New("no vault token available")

// Source yields a Vault token.
type Source interface {
	Name() string
	Token(ctx context.Context) (string, error)
}

// Static always returns the same token.
type Static string

func (s Static) Name() string { return "static" }

func (s Static) Token(context.Context) (string, error) {
	if s == "" {
		return "", ErrNoToken
	}
	return string(s), nil
}

// Env reads VAULT_TOKEN.
type Env struct {
	LookupEnv func(key string) (string, bool)
}

func (e Env) Name() string { return "env" }

func (e Env) Token(context.Context) (string, error) {
	lookup := e.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, _ := lookup("VAULT_TOKEN"); strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), nil
	}
	return "", ErrNoToken
}

// Chain returns the first token any source yields.
type Chain []Source

func (c Chain) Name() string {
	names := make([]string, 0, len(c))
	for _, s := range c {
		names = append(names, s.Name())
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

func (c Chain) Token(ctx context.Context) (string, error) {
	for _, s := range c {
		token, err := s.Token(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err != nil && !errors.Is(err, ErrNoToken) {
			return "", fmt.Errorf("token source %s: %w", s.Name(), err)
		}
	}
	return "", ErrNoToken
}

// Cached resolves its source once and keeps the token in a memguard enclave.
// Failed lookups are not cached.
type Cached struct {
	src Source

	mu  sync.Mutex
	buf *secure.SecureBuffer
}

// NewCached wraps src.
func NewCached(src Source) *Cached {
	return &Cached{src: src}
}

func (c *Cached) Name() string { return c.src.Name() }

func (c *Cached) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.buf == nil {
		token, err := c.src.Token(ctx)
		if err != nil {
			return "", err
		}
		buf, err := secure.FromString(token)
		if err != nil {
			return "", ErrNoToken
		}
		c.buf = buf
	}

	var token string
	err := c.buf.Use(func(p []byte) error {
		token = string(p)
		return nil
	})
	return token, err
}

// Reset drops the cached token so the next call asks the source again.
func (c *Cached) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.buf != nil {
		c.buf.Destroy()
		c.buf = nil
	}
}
