package keys

import "context"

// Vault routes bound by the client.
const (
	RouteKeyStatus   = "sys/key-status"
	RouteKeyRotate   = "sys/rotate"
	RouteRekeyInit   = "sys/rekey/init"
	RouteRekeyUpdate = "sys/rekey/update"
)

// Routes lists every route the client resolves, in resolution order.
var Routes = []string{RouteKeyStatus, RouteKeyRotate, RouteRekeyInit, RouteRekeyUpdate}

// RequestSpec is what an operation hands to an Endpoint.
type RequestSpec struct {
	Headers map[string]string
	// Body is JSON-encoded by the transport; nil means no body.
	Body interface{}
	// Token overrides the host's authentication token when non-empty.
	Token string
}

// Endpoint is a validated handle to one remote route.
type Endpoint interface {
	Route() string
	Get(ctx context.Context, spec RequestSpec) *Future
	Put(ctx context.Context, spec RequestSpec) *Future
	Delete(ctx context.Context, spec RequestSpec) *Future
}

// Binder resolves route names into endpoint handles. Implementations return a
// *ConfigurationError for malformed routes or an unconfigured host.
type Binder interface {
	ValidateEndpoint(route string) (Endpoint, error)
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(route string) (Endpoint, error)

// ValidateEndpoint calls f(route).
func (f BinderFunc) ValidateEndpoint(route string) (Endpoint, error) {
	return f(route)
}

// Host is the read-only state an operation merges into each request.
type Host interface {
	// Headers returns the ambient headers applied to every call.
	Headers() map[string]string
	// ConfigValue looks up a configuration value by name.
	ConfigValue(key string) (interface{}, bool)
}

type emptyHost struct{}

func (emptyHost) Headers() map[string]string             { return nil }
func (emptyHost) ConfigValue(string) (interface{}, bool) { return nil, false }
