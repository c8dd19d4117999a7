// Package ultimaker talks to Ultimaker-family 3D printers over their local
// HTTP API, including the pairing handshake the API puts in front of it.
//
// # Overview
//
// Ultimaker printers expose a JSON API on the local network. Reading a
// printer's status requires a credential pair that the printer itself issues
// on request and that an operator must approve on the printer's touchscreen.
// This package owns that whole lifecycle: requesting credentials, tracking
// approval, verifying them before use, authenticating requests with HTTP
// digest, and composing the typed results a dashboard wants.
//
// # Architecture
//
// The package is split by responsibility:
//
//   - types.go: identities, credentials, enums, the typed PrintJob and its
//     field-by-field wire conversion
//   - errors.go: the error taxonomy callers branch on
//   - auth.go: the pairing lifecycle state machine (AuthEngine) and the
//     CredentialStore persistence interface
//   - client.go: HTTP plumbing, digest authorization, response
//     classification
//   - printer.go: the Printer connection with typed endpoint wrappers and
//     the composed Snapshot
//   - camera.go: camera frame fetching with perceptual-hash caching
//
// # Pairing Lifecycle
//
// A connection's credentials move through four states:
//
//	no_credential -> pending_approval -> verified
//	                                     rejected (reserved)
//
// Acquiring moves no_credential to pending_approval: POST auth/request with
// the installation's application and user names makes the printer issue an
// id/key pair and show an approval prompt on its screen. CheckAuthorized
// polls GET auth/check/{id}; only an "authorized" answer promotes the pair
// to verified. Verified credentials are probed with GET auth/verify before
// each authenticated call; a 401 there means the printer no longer knows the
// pair (a factory reset while paired looks exactly like this), so the engine
// discards it and re-pairs exactly once before giving up with
// ErrAuthRejected. The rejected state is reserved for firmware that signals
// explicit refusal; no documented endpoint does today, so only Reject
// reaches it and only Reset leaves it.
//
// ValidCredential is the one entry point callers need:
//
//	creds, err := printer.Auth().ValidCredential(ctx)
//	switch {
//	case errors.Is(err, ultimaker.ErrPairingRequired):
//		// prompt the operator to approve on the printer's screen
//	case errors.Is(err, ultimaker.ErrAuthRejected):
//		// pairing failed twice in a row; needs human attention
//	}
//
// It never returns a credential the printer did not confirm within that
// call.
//
// # Endpoints
//
// All API paths are relative to http://{address}:{port}/api/v1/:
//
//   - POST auth/request (form: application, user) -> {id, key}: no auth
//   - GET auth/check/{id} -> {message}: no auth
//   - GET auth/verify: digest; 401 iff the credential is unknown
//   - GET printer/status -> status string: digest
//   - GET print_job -> full job object: digest
//   - GET print_job/{state,time_elapsed,time_total,progress,name}: digest
//   - PUT system/display_message {message, button_caption}: digest
//   - PUT beep {frequency, duration}: digest
//   - GET system/guid, system/name -> strings: no auth
//
// The camera is a separate MJPEG streamer on port 8080;
// GET /?action=snapshot returns one frame.
//
// # Error Handling
//
// Callers branch on a small taxonomy:
//
//   - ErrUnreachable (errors.Is): connection or timeout trouble; transient,
//     and never commits a credential state change
//   - ErrPairingRequired (errors.Is): operator approval outstanding
//   - ErrAuthRejected (errors.Is): the printer refused two credentials in a
//     row, or an authenticated call kept answering 401 after re-pairing
//   - *DeviceError (errors.As): any other non-2xx answer, never retried
//   - *PrintJobFieldError (errors.As): a print_job field that does not
//     convert to its documented type, named by wire field
//
// # Request Handling
//
// Every request uses context for cancellation, sets Accept and User-Agent
// headers, and is bounded by the connection's timeout (default 750ms; the
// printers answer on a LAN or not at all). Authenticated calls confirm the
// credential immediately before the request; a 401 on the call itself
// triggers exactly one re-pair-and-replay, then ErrAuthRejected. Other
// device errors are returned as-is without retrying, leaving retry cadence
// to the poller.
//
// # Snapshot Composition
//
// Snapshot assembles {system name, status, camera frame, print job} with the
// job included only while the status is printing. When the printer is
// unreachable the snapshot degrades to the best-known system name with
// Degraded set instead of failing, because dark printers are a normal sight
// on a dashboard. Camera frames are cached by 64-bit perceptual hash and the
// cached data URI is reused until the picture actually changes, which keeps
// re-encoding and UI churn off the hot path.
//
// # Concurrency
//
// Printer, Client and AuthEngine do no internal locking. A connection has a
// single owner at a time; anything exposing one across goroutines must
// serialize the whole call-with-auth sequence, the way the app layer's
// per-printer workers do. Separate printers are fully independent.
//
// # Testing Considerations
//
// The auth engine takes its wire surface as an interface, so lifecycle tests
// run against scripted fakes. HTTP behavior is tested with httptest servers
// speaking the documented endpoints, including the digest challenge dance.
package ultimaker
