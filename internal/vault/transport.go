package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/systmms/vaultkeys/internal/logging"
	"github.com/systmms/vaultkeys/internal/metrics"
	"github.com/systmms/vaultkeys/internal/tokenstore"
	"github.com/systmms/vaultkeys/pkg/keys"
)

const maxErrorBody = 512

// Request is one call against a Vault route.
type Request struct {
	Method  string
	Route   string
	Headers map[string]string
	Body    interface{}
	// Token overrides the transport's token source when set.
	Token string
}

// Transport performs requests. Failures are returned as *keys.TransportError.
type Transport interface {
	Do(ctx context.Context, req *Request) (*keys.Response, error)
}

// HTTPTransport talks to Vault's HTTP API.
type HTTPTransport struct {
	address   string
	namespace string
	tokens    tokenstore.Source
	client    *http.Client
	logger    *logging.Logger
	metrics   *metrics.RequestMetrics
}

// TransportOptions configures an HTTPTransport.
type TransportOptions struct {
	Address   string
	Namespace string
	Timeout   time.Duration
	TLS       TLSOptions
	// Tokens supplies the token for calls without an override. May be nil.
	Tokens  tokenstore.Source
	Logger  *logging.Logger
	Metrics *metrics.RequestMetrics
	// HTTPClient replaces the client built from Timeout and TLS.
	HTTPClient *http.Client
}

// NewHTTPTransport builds a transport from opts.
func NewHTTPTransport(opts TransportOptions) (*HTTPTransport, error) {
	client := opts.HTTPClient
	if client == nil {
		var err error
		client, err = newHTTPClient(opts.Timeout, opts.TLS)
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &HTTPTransport{
		address:   strings.TrimSuffix(opts.Address, "/"),
		namespace: opts.Namespace,
		tokens:    opts.Tokens,
		client:    client,
		logger:    logger,
		metrics:   opts.Metrics,
	}, nil
}

// Do sends req and returns the response for any 2xx status.
func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*keys.Response, error) {
	fail := func(status int, errs []string, err error) *keys.TransportError {
		return &keys.TransportError{
			Route:      req.Route,
			Method:     req.Method,
			StatusCode: status,
			Errors:     errs,
			Err:        err,
		}
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fail(0, nil, fmt.Errorf("failed to encode request body: %w", err))
		}
		body = bytes.NewReader(data)
	}

	url := t.address + "/v1/" + strings.TrimPrefix(req.Route, "/")
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, fail(0, nil, fmt.Errorf("failed to create request: %w", err))
	}

	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	httpReq.Header.Set("X-Vault-Request", "true")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if t.namespace != "" {
		httpReq.Header.Set("X-Vault-Namespace", t.namespace)
	}

	token, err := t.token(ctx, req.Token)
	if err != nil {
		return nil, fail(0, nil, err)
	}
	if token != "" {
		httpReq.Header.Set("X-Vault-Token", token)
	}

	t.logger.Debug("%s %s (token: %s)", req.Method, url, logging.Secret(token))

	start := time.Now()
	resp, err := t.client.Do(httpReq)
	if err != nil {
		t.metrics.ObserveRequest(req.Route, req.Method, 0, time.Since(start))
		t.logger.Debug("%s %s failed: %v", req.Method, req.Route, err)
		return nil, fail(0, nil, fmt.Errorf("failed to make request: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	t.metrics.ObserveRequest(req.Route, req.Method, resp.StatusCode, elapsed)
	if err != nil {
		return nil, fail(resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err))
	}

	t.logger.Debug("%s %s -> %d in %s", req.Method, req.Route, resp.StatusCode, elapsed.Round(time.Millisecond))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		errs := vaultErrors(respBody)
		for i := range errs {
			errs[i] = logging.Redact(errs[i], []string{token})
		}
		return nil, fail(resp.StatusCode, errs, nil)
	}

	return &keys.Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

func (t *HTTPTransport) token(ctx context.Context, override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if t.tokens == nil {
		return "", nil
	}
	token, err := t.tokens.Token(ctx)
	if errors.Is(err, tokenstore.ErrNoToken) {
		t.logger.Debug("No Vault token available, sending unauthenticated request")
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve vault token: %w", err)
	}
	return token, nil
}

// vaultErrors extracts the messages of Vault's {"errors": [...]} envelope,
// falling back to the raw body.
func vaultErrors(body []byte) []string {
	var envelope struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		return envelope.Errors
	}

	text := strings.TrimSpace(string(body))
	if text == "" {
		return nil
	}
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody] + "..."
	}
	return []string{text}
}
