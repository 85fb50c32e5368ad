package vault

import (
	"context"
	"net/http"
	"net/url"
	"regexp"

	"github.com/systmms/vaultkeys/pkg/keys"
)

var routePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*(/[A-Za-z0-9][A-Za-z0-9._-]*)*$`)

// HTTPBinder validates routes against a configured Vault address and binds
// them to a shared transport.
type HTTPBinder struct {
	address   string
	transport Transport
}

// NewHTTPBinder returns a binder. Address problems surface from
// ValidateEndpoint so that client composition reports them per route.
func NewHTTPBinder(address string, transport Transport) *HTTPBinder {
	return &HTTPBinder{address: address, transport: transport}
}

// ValidateEndpoint implements keys.Binder.
func (b *HTTPBinder) ValidateEndpoint(route string) (keys.Endpoint, error) {
	if b.transport == nil {
		return nil, &keys.ConfigurationError{Route: route, Message: "no transport configured"}
	}
	if b.address == "" {
		return nil, &keys.ConfigurationError{Route: route, Message: "vault address is not configured"}
	}
	u, err := url.Parse(b.address)
	if err != nil {
		return nil, &keys.ConfigurationError{Route: route, Message: "invalid vault address", Err: err}
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &keys.ConfigurationError{Route: route, Message: "vault address must be an http(s) URL with a host"}
	}
	if !routePattern.MatchString(route) {
		return nil, &keys.ConfigurationError{Route: route, Message: "malformed route"}
	}

	return &httpEndpoint{route: route, transport: b.transport}, nil
}

// httpEndpoint dispatches each call on its own goroutine and settles a future
// with the outcome.
type httpEndpoint struct {
	route     string
	transport Transport
}

func (e *httpEndpoint) Route() string { return e.route }

func (e *httpEndpoint) Get(ctx context.Context, spec keys.RequestSpec) *keys.Future {
	return e.dispatch(ctx, http.MethodGet, spec)
}

func (e *httpEndpoint) Put(ctx context.Context, spec keys.RequestSpec) *keys.Future {
	return e.dispatch(ctx, http.MethodPut, spec)
}

func (e *httpEndpoint) Delete(ctx context.Context, spec keys.RequestSpec) *keys.Future {
	return e.dispatch(ctx, http.MethodDelete, spec)
}

func (e *httpEndpoint) dispatch(ctx context.Context, method string, spec keys.RequestSpec) *keys.Future {
	if ctx == nil {
		ctx = context.Background()
	}
	req := &Request{
		Method:  method,
		Route:   e.route,
		Headers: spec.Headers,
		Body:    spec.Body,
		Token:   spec.Token,
	}

	f := keys.NewFuture()
	go func() {
		resp, err := e.transport.Do(ctx, req)
		if err != nil {
			f.Reject(err)
			return
		}
		f.Resolve(resp)
	}()
	return f
}
