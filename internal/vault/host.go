package vault

import "github.com/systmms/vaultkeys/internal/config"

// HostState serves headers and configuration defaults from a loaded config.
type HostState struct {
	cfg *config.Config
}

// NewHostState wraps cfg.
func NewHostState(cfg *config.Config) *HostState {
	return &HostState{cfg: cfg}
}

// Headers returns a copy of the configured headers.
func (h *HostState) Headers() map[string]string {
	if h.cfg == nil || h.cfg.Definition == nil || len(h.cfg.Definition.Headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(h.cfg.Definition.Headers))
	for k, v := range h.cfg.Definition.Headers {
		out[k] = v
	}
	return out
}

// ConfigValue implements keys.Host.
func (h *HostState) ConfigValue(key string) (interface{}, bool) {
	if h.cfg == nil {
		return nil, false
	}
	return h.cfg.Get(key)
}
