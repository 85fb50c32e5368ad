// Package keys exposes Vault's key-rotation and master-key rekey endpoints as
// asynchronous operations.
//
// The package is a request composer. It never talks to the network itself:
// a host supplies a Binder that turns route names into Endpoint handles, and a
// Host that provides ambient headers and configuration defaults. The client
// resolves its four routes once, when it is built, and every operation then
// merges the caller's options with host state and hands the request to one of
// those handles.
//
//	┌──────────────┐   options   ┌────────────────────┐  RequestSpec  ┌──────────┐
//	│    caller    │ ──────────► │ KeyRotationClient  │ ────────────► │ Endpoint │
//	└──────────────┘ ◄────────── └────────────────────┘ ◄──────────── └──────────┘
//	                   *Future                              *Future
//
// # Operations
//
//	GetKeyStatus    GET    sys/key-status
//	RotateKey       PUT    sys/rotate
//	GetRekeyStatus  GET    sys/rekey/init
//	StartRekey      PUT    sys/rekey/init     (secret_shares/secret_threshold default from host config)
//	StopRekey       DELETE sys/rekey/init
//	UpdateRekey     PUT    sys/rekey/update   (key and nonce are required)
//
// # Results
//
// Every operation returns a *Future that settles exactly once. Transport
// failures are delivered as-is; the only error produced locally is a
// *ValidationError from UpdateRekey when the key share or nonce is missing.
//
//	resp, err := client.GetRekeyStatus(ctx, nil).Await(ctx)
//	if err != nil {
//	    return err
//	}
//	status, err := keys.DecodeRekeyStatus(resp)
//
// The rekey ceremony itself is a state machine held by Vault. The client does
// not track or enforce any ordering between calls.
package keys
