// Package vault binds the key-rotation client to Vault's HTTP API.
//
// HTTPBinder validates route names against the configured address and hands
// out endpoint handles. Each handle call runs HTTPTransport on its own
// goroutine and settles a keys.Future with the result. HostState feeds the
// client the configured headers and rekey defaults.
package vault
