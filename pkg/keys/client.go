package keys

import "context"

// Endpoints are the handles a client resolved at construction.
type Endpoints struct {
	KeyStatus   Endpoint
	KeyRotate   Endpoint
	RekeyInit   Endpoint
	RekeyUpdate Endpoint
}

// KeyRotationClient issues key-rotation and rekey requests. It holds no
// mutable state and is safe for concurrent use.
type KeyRotationClient struct {
	host      Host
	endpoints Endpoints
}

// NewKeyRotationClient resolves every route through binder once. A nil host
// behaves as one with no headers and no configuration.
func NewKeyRotationClient(binder Binder, host Host) (*KeyRotationClient, error) {
	if binder == nil {
		return nil, &ConfigurationError{Message: "no endpoint binder configured"}
	}
	if host == nil {
		host = emptyHost{}
	}

	resolved := make(map[string]Endpoint, len(Routes))
	for _, route := range Routes {
		ep, err := binder.ValidateEndpoint(route)
		if err != nil {
			return nil, asConfigurationError(route, err)
		}
		if ep == nil {
			return nil, &ConfigurationError{Route: route, Message: "binder returned no endpoint"}
		}
		resolved[route] = ep
	}

	return &KeyRotationClient{
		host: host,
		endpoints: Endpoints{
			KeyStatus:   resolved[RouteKeyStatus],
			KeyRotate:   resolved[RouteKeyRotate],
			RekeyInit:   resolved[RouteRekeyInit],
			RekeyUpdate: resolved[RouteRekeyUpdate],
		},
	}, nil
}

// asConfigurationError tags err with route. A binder's *ConfigurationError is
// copied, never modified.
func asConfigurationError(route string, err error) error {
	if ce, ok := err.(*ConfigurationError); ok {
		if ce.Route != "" {
			return ce
		}
		tagged := *ce
		tagged.Route = route
		return &tagged
	}
	return &ConfigurationError{Route: route, Err: err}
}

// Endpoints returns the resolved handles.
func (c *KeyRotationClient) Endpoints() Endpoints {
	return c.endpoints
}

// GetKeyStatus reads the current encryption key term and install time.
func (c *KeyRotationClient) GetKeyStatus(ctx context.Context, opts *Options) *Future {
	o := optionsOrZero(opts)
	return c.endpoints.KeyStatus.Get(ctx, c.request(o.Token, nil))
}

// RotateKey asks Vault to rotate the backend encryption key.
func (c *KeyRotationClient) RotateKey(ctx context.Context, opts *Options) *Future {
	o := optionsOrZero(opts)
	return c.endpoints.KeyRotate.Put(ctx, c.request(o.Token, nil))
}

// GetRekeyStatus reads the state of an in-progress rekey.
func (c *KeyRotationClient) GetRekeyStatus(ctx context.Context, opts *Options) *Future {
	o := optionsOrZero(opts)
	return c.endpoints.RekeyInit.Get(ctx, c.request(o.Token, nil))
}

// StartRekey begins a rekey ceremony. Share and threshold counts not supplied
// by the caller come from the host's secret_shares and secret_threshold
// configuration.
func (c *KeyRotationClient) StartRekey(ctx context.Context, opts *StartRekeyOptions) *Future {
	var o StartRekeyOptions
	if opts != nil {
		o = *opts
	}

	body := &RekeyInitRequest{
		SecretShares:        o.SecretShares,
		SecretThreshold:     o.SecretThreshold,
		PGPKeys:             o.PGPKeys,
		Backup:              o.Backup,
		RequireVerification: o.RequireVerification,
	}
	if body.SecretShares == nil {
		body.SecretShares = c.configInt(ConfigSecretShares)
	}
	if body.SecretThreshold == nil {
		body.SecretThreshold = c.configInt(ConfigSecretThreshold)
	}

	return c.endpoints.RekeyInit.Put(ctx, c.request(o.Token, body))
}

// StopRekey cancels an in-progress rekey. The request is always sent; Vault
// decides what cancelling an inactive rekey means.
func (c *KeyRotationClient) StopRekey(ctx context.Context, opts *Options) *Future {
	o := optionsOrZero(opts)
	return c.endpoints.RekeyInit.Delete(ctx, c.request(o.Token, nil))
}

// UpdateRekey submits one key share. Once enough shares are in, Vault
// completes the rekey and the response carries the new shares.
func (c *KeyRotationClient) UpdateRekey(ctx context.Context, opts *UpdateRekeyOptions) *Future {
	var o UpdateRekeyOptions
	if opts != nil {
		o = *opts
	}
	if err := o.Body.Validate(); err != nil {
		return Rejected(err)
	}

	body := *o.Body
	return c.endpoints.RekeyUpdate.Put(ctx, c.request(o.Token, &body))
}

func (c *KeyRotationClient) request(token string, body interface{}) RequestSpec {
	spec := RequestSpec{Token: token, Body: body}
	if h := c.host.Headers(); len(h) > 0 {
		spec.Headers = make(map[string]string, len(h))
		for k, v := range h {
			spec.Headers[k] = v
		}
	}
	return spec
}

func (c *KeyRotationClient) configInt(key string) *int {
	v, ok := c.host.ConfigValue(key)
	if !ok {
		return nil
	}
	n, ok := intValue(v)
	if !ok {
		return nil
	}
	return &n
}

func optionsOrZero(opts *Options) Options {
	if opts == nil {
		return Options{}
	}
	return *opts
}
