package ultimaker

import (
	"errors"
	"fmt"
)

// Sentinel errors for the three outcomes callers are expected to branch on.
// Match with errors.Is; the wrapped message carries request context.
var (
	// ErrUnreachable marks transport-level failures: connection refused, no
	// route, DNS, timeout. Transient; no credential state changes on it.
	ErrUnreachable = errors.New("printer unreachable")

	// ErrPairingRequired means no usable credential is held and an operator
	// has to approve the pairing request on the printer's screen.
	ErrPairingRequired = errors.New("pairing approval required")

	// ErrAuthRejected means the printer definitively refused the credentials
	// and automatic re-pairing already ran its single permitted attempt.
	ErrAuthRejected = errors.New("printer rejected the credentials")
)

// DeviceError is a non-2xx answer from the printer that is not an
// authorization failure. It is returned verbatim, never retried.
type DeviceError struct {
	Status int
	Body   string
}

func (e *DeviceError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("printer returned status %d", e.Status)
	}
	return fmt.Sprintf("printer returned status %d: %s", e.Status, e.Body)
}

// PrintJobFieldError reports a print job field whose wire value could not be
// converted to its documented type.
type PrintJobFieldError struct {
	Field string
	Err   error
}

func (e *PrintJobFieldError) Error() string {
	return fmt.Sprintf("print job field %q: %v", e.Field, e.Err)
}

func (e *PrintJobFieldError) Unwrap() error { return e.Err }
