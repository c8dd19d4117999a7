package ultimaker

import (
	"context"
	"fmt"
)

// CredentialStore persists issued credentials across restarts, keyed by the
// printer's device identity (its system GUID). Implementations must tolerate
// unknown keys; the engine treats persistence as best effort.
type CredentialStore interface {
	Load(deviceID string) (Credentials, bool, error)
	Save(deviceID string, creds Credentials) error
	Delete(deviceID string) error
}

// authTransport is the slice of the wire client the auth engine needs.
type authTransport interface {
	requestCredentials(ctx context.Context, id Identity) (Credentials, error)
	checkAuthorized(ctx context.Context, id string) (ApprovalStatus, error)
	verifyCredentials(ctx context.Context, creds Credentials) (bool, error)
}

// AuthEngine drives the pairing lifecycle for one printer connection:
// no credential -> pending approval -> verified, with rejected reserved for
// explicit refusal. It is not safe for concurrent use; it shares the
// connection's single owner.
type AuthEngine struct {
	api      authTransport
	identity Identity

	store    CredentialStore
	deviceID string

	state AuthState
	creds *Credentials

	// retryConsumed marks that a definitive verification failure already
	// happened in the current call cycle, so the next one is final.
	retryConsumed bool
}

func newAuthEngine(api authTransport, identity Identity) *AuthEngine {
	return &AuthEngine{api: api, identity: identity, state: AuthNoCredential}
}

// UseStore attaches credential persistence keyed by deviceID. Stored
// credentials were approved once, so they restore as verified; the per-call
// verification probe still gates their actual use.
func (e *AuthEngine) UseStore(store CredentialStore, deviceID string) {
	e.store = store
	e.deviceID = deviceID
	if store == nil || deviceID == "" || e.creds != nil {
		return
	}
	creds, ok, err := store.Load(deviceID)
	if err != nil || !ok {
		return
	}
	e.creds = &creds
	e.state = AuthVerified
}

// SetCredentials installs an externally supplied pair. It counts as
// previously approved; the next call's probe decides whether it still works.
func (e *AuthEngine) SetCredentials(creds Credentials) {
	e.creds = &creds
	e.state = AuthVerified
	e.retryConsumed = false
	e.persist()
}

// Credentials returns the currently held pair, if any.
func (e *AuthEngine) Credentials() (Credentials, bool) {
	if e.creds == nil {
		return Credentials{}, false
	}
	return *e.creds, true
}

// State reports the lifecycle state.
func (e *AuthEngine) State() AuthState { return e.state }

// ValidCredential returns a credential pair the printer confirmed usable
// within this call. It fails with ErrPairingRequired while operator approval
// is outstanding, and with ErrAuthRejected when the printer refused two
// credentials in a row.
func (e *AuthEngine) ValidCredential(ctx context.Context) (Credentials, error) {
	retried := e.retryConsumed
	e.retryConsumed = false
	return e.validCredential(ctx, retried)
}

func (e *AuthEngine) validCredential(ctx context.Context, retried bool) (Credentials, error) {
	if e.state == AuthRejected {
		return Credentials{}, fmt.Errorf("%w: discard and re-pair", ErrAuthRejected)
	}
	wasVerified := e.state == AuthVerified && e.creds != nil
	if e.creds == nil {
		if err := e.acquire(ctx); err != nil {
			return Credentials{}, err
		}
		wasVerified = false
	}

	ok, err := e.api.verifyCredentials(ctx, *e.creds)
	if err != nil {
		// No verdict, no transition.
		return Credentials{}, err
	}
	if ok {
		e.state = AuthVerified
		return *e.creds, nil
	}

	if wasVerified {
		// The printer no longer knows a credential it previously accepted,
		// which is what a factory reset looks like. Start over, once.
		e.clear()
		if retried {
			return Credentials{}, fmt.Errorf("%w: re-pairing failed", ErrAuthRejected)
		}
		return e.validCredential(ctx, true)
	}

	e.state = AuthPendingApproval
	if retried {
		return Credentials{}, fmt.Errorf("%w: re-pairing failed", ErrAuthRejected)
	}
	return Credentials{}, fmt.Errorf("%w: approve %q on the printer screen", ErrPairingRequired, e.identity.Application)
}

// CheckAuthorized asks the printer once what the operator decided. Authorized
// promotes the credential to verified; unauthorized and unknown leave it
// pending. One check per call, never a blocking wait; callers choose whether
// and when to poll again.
func (e *AuthEngine) CheckAuthorized(ctx context.Context) (ApprovalStatus, error) {
	if e.creds == nil {
		return UnknownApproval, fmt.Errorf("%w: no credential issued yet", ErrPairingRequired)
	}
	status, err := e.api.checkAuthorized(ctx, e.creds.ID)
	if err != nil {
		return UnknownApproval, err
	}
	if status == Authorized && e.state == AuthPendingApproval {
		e.state = AuthVerified
	}
	return status, nil
}

// Invalidate discards the held credential after the printer answered a
// definitive 401 on an authenticated call. The failure counts toward the
// current cycle, so a replacement credential that also fails verification
// surfaces ErrAuthRejected instead of retrying again.
func (e *AuthEngine) Invalidate() {
	e.clear()
	e.retryConsumed = true
}

// Reject marks the credential explicitly rejected. No documented endpoint
// signals rejection today; this is the hook for firmware that does. The
// state is terminal for the held credential, cleared only by Reset.
func (e *AuthEngine) Reject() {
	e.state = AuthRejected
}

// Reset discards the credential and restarts the lifecycle from scratch.
func (e *AuthEngine) Reset() {
	e.clear()
	e.retryConsumed = false
}

func (e *AuthEngine) acquire(ctx context.Context) error {
	creds, err := e.api.requestCredentials(ctx, e.identity)
	if err != nil {
		return err
	}
	e.creds = &creds
	e.state = AuthPendingApproval
	e.persist()
	return nil
}

func (e *AuthEngine) clear() {
	e.creds = nil
	e.state = AuthNoCredential
	if e.store != nil && e.deviceID != "" {
		// Best effort: a persistence hiccup must not fail a live poll.
		_ = e.store.Delete(e.deviceID)
	}
}

func (e *AuthEngine) persist() {
	if e.store == nil || e.deviceID == "" || e.creds == nil {
		return
	}
	_ = e.store.Save(e.deviceID, *e.creds)
}
