package keys

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Configuration keys consulted by StartRekey.
const (
	ConfigSecretShares    = "secret_shares"
	ConfigSecretThreshold = "secret_threshold"
)

// Options are accepted by the operations that send no body.
type Options struct {
	// Token overrides the host's authentication token for this call.
	Token string
}

// StartRekeyOptions configures a new rekey ceremony. Nil share and threshold
// values are filled from host configuration.
type StartRekeyOptions struct {
	Token           string
	SecretShares    *int
	SecretThreshold *int
	// PGPKeys encrypts the resulting shares, one key per share.
	PGPKeys []string
	// Backup asks Vault to keep PGP-encrypted shares in core.
	Backup              bool
	RequireVerification bool
}

// RekeyInitRequest is the body sent to sys/rekey/init.
type RekeyInitRequest struct {
	SecretShares        *int     `json:"secret_shares,omitempty"`
	SecretThreshold     *int     `json:"secret_threshold,omitempty"`
	PGPKeys             []string `json:"pgp_keys,omitempty"`
	Backup              bool     `json:"backup,omitempty"`
	RequireVerification bool     `json:"require_verification,omitempty"`
}

// UpdateRekeyOptions submits one key share.
type UpdateRekeyOptions struct {
	Token string
	Body  *RekeyUpdateBody
}

// RekeyUpdateBody is the body sent to sys/rekey/update. Both fields are
// required.
type RekeyUpdateBody struct {
	Key   string `json:"key"`
	Nonce string `json:"nonce"`
}

// Validate reports a *ValidationError when the key share or nonce is missing.
func (b *RekeyUpdateBody) Validate() error {
	if b == nil {
		return &ValidationError{Field: "body", Message: "key and nonce are required"}
	}
	if b.Key == "" {
		return &ValidationError{Field: "body.key", Message: "a master key share is required"}
	}
	if b.Nonce == "" {
		return &ValidationError{Field: "body.nonce", Message: "the rekey nonce is required"}
	}
	return nil
}

// Int returns a pointer to v, for the optional integer fields.
func Int(v int) *int {
	return &v
}

// intValue coerces a configuration value to an int. Values from YAML or JSON
// may arrive as any numeric type or as a numeric string. Values that do not
// fit in an int are rejected.
func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int64ToInt(int64(n))
	case int64:
		return int64ToInt(n)
	case uint:
		return uint64ToInt(uint64(n))
	case uint32:
		return uint64ToInt(uint64(n))
	case uint64:
		return uint64ToInt(n)
	case float64:
		if n != math.Trunc(n) || n < float64(math.MinInt) || n >= float64(math.MaxInt) {
			return 0, false
		}
		return int(n), true
	case float32:
		return intValue(float64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int64ToInt(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	case *int:
		if n == nil {
			return 0, false
		}
		return *n, true
	}
	return 0, false
}

func int64ToInt(n int64) (int, bool) {
	if n < math.MinInt || n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func uint64ToInt(n uint64) (int, bool) {
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}
