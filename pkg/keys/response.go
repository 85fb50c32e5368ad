package keys

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrEmptyResponse is returned when decoding a response that carried no body,
// such as the 204 from sys/rotate.
var ErrEmptyResponse = errors.New("response has no body")

// Response is the transport's result for a successful call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the JSON body into v. Vault mirrors some sys payloads
// under a "data" key; when present that object is decoded instead.
func (r *Response) Decode(v interface{}) error {
	if r == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return ErrEmptyResponse
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	payload := r.Body
	if len(envelope.Data) > 0 && envelope.Data[0] == '{' {
		payload = envelope.Data
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// KeyStatus is returned by sys/key-status.
type KeyStatus struct {
	Term        int       `json:"term" yaml:"term"`
	InstallTime time.Time `json:"install_time" yaml:"install_time"`
	Encryptions int64     `json:"encryptions,omitempty" yaml:"encryptions,omitempty"`
}

// RekeyStatus is returned by GET and PUT on sys/rekey/init.
type RekeyStatus struct {
	Nonce                string   `json:"nonce" yaml:"nonce"`
	Started              bool     `json:"started" yaml:"started"`
	T                    int      `json:"t" yaml:"t"`
	N                    int      `json:"n" yaml:"n"`
	Progress             int      `json:"progress" yaml:"progress"`
	Required             int      `json:"required" yaml:"required"`
	PGPFingerprints      []string `json:"pgp_fingerprints" yaml:"pgp_fingerprints"`
	Backup               bool     `json:"backup" yaml:"backup"`
	VerificationRequired bool     `json:"verification_required" yaml:"verification_required"`
}

// RekeyUpdateResult is returned by sys/rekey/update. Until enough shares have
// been submitted only Nonce, Progress and Required are populated.
type RekeyUpdateResult struct {
	Nonce                string   `json:"nonce" yaml:"nonce"`
	Complete             bool     `json:"complete" yaml:"complete"`
	Progress             int      `json:"progress" yaml:"progress"`
	Required             int      `json:"required" yaml:"required"`
	Keys                 []string `json:"keys" yaml:"keys"`
	KeysB64              []string `json:"keys_base64" yaml:"keys_base64"`
	PGPFingerprints      []string `json:"pgp_fingerprints" yaml:"pgp_fingerprints"`
	Backup               bool     `json:"backup" yaml:"backup"`
	VerificationRequired bool     `json:"verification_required" yaml:"verification_required"`
	VerificationNonce    string   `json:"verification_nonce" yaml:"verification_nonce"`
}

// DecodeKeyStatus decodes a sys/key-status response.
func DecodeKeyStatus(resp *Response) (*KeyStatus, error) {
	var out KeyStatus
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeRekeyStatus decodes a sys/rekey/init response.
func DecodeRekeyStatus(resp *Response) (*RekeyStatus, error) {
	var out RekeyStatus
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeRekeyUpdate decodes a sys/rekey/update response.
func DecodeRekeyUpdate(resp *Response) (*RekeyUpdateResult, error) {
	var out RekeyUpdateResult
	if err := resp.Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
