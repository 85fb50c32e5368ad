package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/systmms/vaultkeys/pkg/keys"
)

// UserError represents an error that should be shown to the user with helpful context
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error with helpful context
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// VaultError turns an error from a key-rotation operation into a UserError
// with a suggestion based on what went wrong.
func VaultError(operation string, err error) error {
	if err == nil {
		return nil
	}

	ue := UserError{
		Message: fmt.Sprintf("Vault %s failed", operation),
		Details: err.Error(),
		Err:     err,
	}

	var terr *keys.TransportError
	var verr *keys.ValidationError
	switch {
	case errors.As(err, &verr):
		ue.Suggestion = validationSuggestion(verr)
	case errors.Is(err, keys.ErrConfiguration):
		ue.Suggestion = "Check the Vault address in your config file or VAULT_ADDR"
	case errors.As(err, &terr):
		ue.Suggestion = transportSuggestion(terr)
	}

	return ue
}

func validationSuggestion(err *keys.ValidationError) string {
	switch err.Field {
	case "body.nonce":
		return "Pass the nonce printed by 'vaultkeys rekey start' or shown by 'vaultkeys rekey status'"
	case "body.key", "body":
		return "Provide one unseal key share with --key or on stdin"
	}
	return ""
}

func transportSuggestion(err *keys.TransportError) string {
	switch err.StatusCode {
	case 0:
		// Network-level failure, fall through to message matching.
	case 400:
		if containsAny(err.Errors, "no rekey in progress", "no rekey configuration") {
			return "Start a rekey first with 'vaultkeys rekey start'"
		}
		if containsAny(err.Errors, "nonce") {
			return "The nonce does not match the active rekey. Check 'vaultkeys rekey status'"
		}
		return "Vault rejected the request parameters"
	case 403:
		return "The token lacks permission on this sys path. Use a root or sudo-capable token, or run 'vaultkeys login'"
	case 503:
		return "Vault is sealed or in standby. Unseal it or target the active node"
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") {
		return "The operation timed out. Check your network connection and try again"
	}
	if strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") {
		return "Unable to connect. Check the Vault address and that the server is running"
	}
	if strings.Contains(msg, "certificate") {
		return "TLS verification failed. Set tls.ca_cert or VAULT_CACERT"
	}
	return ""
}

func containsAny(messages []string, needles ...string) bool {
	for _, m := range messages {
		lm := strings.ToLower(m)
		for _, n := range needles {
			if strings.Contains(lm, n) {
				return true
			}
		}
	}
	return false
}

// SimplifyError simplifies complex error messages for users
func SimplifyError(err error) error {
	if err == nil {
		return nil
	}

	// Already a user-friendly error
	var ue UserError
	if errors.As(err, &ue) {
		return err
	}
	var ce ConfigError
	if errors.As(err, &ce) {
		return err
	}

	// Unwrap to get the root cause
	rootErr := err
	for {
		unwrapped := errors.Unwrap(rootErr)
		if unwrapped == nil {
			break
		}
		rootErr = unwrapped
	}

	errStr := rootErr.Error()

	if strings.Contains(errStr, "yaml:") {
		return ConfigError{
			Message:    "Invalid YAML format",
			Suggestion: "Check for indentation errors and missing quotes",
		}
	}

	if strings.Contains(errStr, "permission denied") {
		return UserError{
			Message:    "Permission denied",
			Suggestion: "Check file permissions or run with appropriate privileges",
			Err:        err,
		}
	}

	if strings.Contains(errStr, "no such file or directory") {
		return UserError{
			Message:    "File or directory not found",
			Suggestion: "Verify the path exists and is spelled correctly",
			Err:        err,
		}
	}

	return err
}
