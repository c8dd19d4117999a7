package ultimaker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// PrinterConfig describes one printer connection.
type PrinterConfig struct {
	Address  string
	Port     int
	Identity Identity
	// Timeout bounds every request; zero means the package default.
	Timeout time.Duration
	// Credentials optionally seeds a previously approved pair.
	Credentials *Credentials
}

// Printer is a session with one printer on the local network. Connections
// are created when a printer appears and torn down when it disappears. Not
// safe for concurrent use; give each printer a single owner and route all
// calls through it.
type Printer struct {
	address string
	port    int
	client  *Client
	auth    *AuthEngine
	cache   deviceCache
}

// deviceCache holds the read-through fields a connection accumulates.
// name follows every successful system/name fetch and survives outages as
// the best-known value; guid is immutable and fetched at most once; snapshot
// is replaced only when the camera frame's perceptual hash changes.
type deviceCache struct {
	name     string
	guid     uuid.UUID
	snapshot *cameraSnapshot
}

// NewPrinter builds a connection for the printer at cfg.Address:cfg.Port.
func NewPrinter(cfg PrinterConfig) *Printer {
	client := NewClient(cfg.Address, cfg.Port, cfg.Timeout)
	engine := newAuthEngine(client, cfg.Identity)
	client.auth = engine
	p := &Printer{
		address: cfg.Address,
		port:    cfg.Port,
		client:  client,
		auth:    engine,
	}
	if cfg.Credentials != nil {
		engine.SetCredentials(*cfg.Credentials)
	}
	return p
}

// Auth exposes the pairing engine for approval polling and lifecycle
// control.
func (p *Printer) Auth() *AuthEngine { return p.auth }

// Address returns the printer's host address.
func (p *Printer) Address() string { return p.address }

// Host returns the address:port this connection targets.
func (p *Printer) Host() string {
	return net.JoinHostPort(p.address, strconv.Itoa(p.port))
}

// AttachStore wires credential persistence. The printer's GUID keys the
// store, so this fetches it first (unauthenticated) when not cached yet.
func (p *Printer) AttachStore(ctx context.Context, store CredentialStore) error {
	guid, err := p.SystemGUID(ctx)
	if err != nil {
		return err
	}
	p.auth.UseStore(store, guid.String())
	return nil
}

// Status fetches the printer's top-level status.
func (p *Printer) Status(ctx context.Context) (PrinterStatus, error) {
	var status PrinterStatus
	if err := p.client.doAuthed(ctx, http.MethodGet, "printer/status", nil, &status); err != nil {
		return "", err
	}
	return status, nil
}

// Job fetches the active print job in full.
func (p *Printer) Job(ctx context.Context) (PrintJob, error) {
	var raw json.RawMessage
	if err := p.client.doAuthed(ctx, http.MethodGet, "print_job", nil, &raw); err != nil {
		return PrintJob{}, err
	}
	return ParsePrintJob(raw)
}

// JobState fetches only the job's lifecycle state.
func (p *Printer) JobState(ctx context.Context) (PrintJobState, error) {
	var state PrintJobState
	if err := p.client.doAuthed(ctx, http.MethodGet, "print_job/state", nil, &state); err != nil {
		return "", err
	}
	return state, nil
}

// JobTimeElapsed fetches how long the job has been running.
func (p *Printer) JobTimeElapsed(ctx context.Context) (time.Duration, error) {
	return p.jobDuration(ctx, "print_job/time_elapsed")
}

// JobTimeTotal fetches the job's estimated total runtime.
func (p *Printer) JobTimeTotal(ctx context.Context) (time.Duration, error) {
	return p.jobDuration(ctx, "print_job/time_total")
}

func (p *Printer) jobDuration(ctx context.Context, path string) (time.Duration, error) {
	var seconds float64
	if err := p.client.doAuthed(ctx, http.MethodGet, path, nil, &seconds); err != nil {
		return 0, err
	}
	return secondsToDuration(seconds), nil
}

// JobProgress fetches the job's completion fraction in 0..1.
func (p *Printer) JobProgress(ctx context.Context) (float64, error) {
	var progress float64
	if err := p.client.doAuthed(ctx, http.MethodGet, "print_job/progress", nil, &progress); err != nil {
		return 0, err
	}
	return progress, nil
}

// JobName fetches the job's display name.
func (p *Printer) JobName(ctx context.Context) (string, error) {
	var name string
	if err := p.client.doAuthed(ctx, http.MethodGet, "print_job/name", nil, &name); err != nil {
		return "", err
	}
	return name, nil
}

// SystemName fetches the printer's display name and refreshes the cached
// best-known value.
func (p *Printer) SystemName(ctx context.Context) (string, error) {
	var name string
	if err := p.client.do(ctx, http.MethodGet, "system/name", nil, &name); err != nil {
		return "", err
	}
	p.cache.name = name
	return name, nil
}

// SystemGUID fetches the printer's immutable device GUID, once per
// connection.
func (p *Printer) SystemGUID(ctx context.Context) (uuid.UUID, error) {
	if p.cache.guid != uuid.Nil {
		return p.cache.guid, nil
	}
	var raw string
	if err := p.client.do(ctx, http.MethodGet, "system/guid", nil, &raw); err != nil {
		return uuid.Nil, err
	}
	guid, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse system guid %q: %w", raw, err)
	}
	p.cache.guid = guid
	return guid, nil
}

// DisplayMessage shows a message with a confirmation button on the
// printer's screen.
func (p *Printer) DisplayMessage(ctx context.Context, message, buttonCaption string) error {
	body := map[string]string{
		"message":        message,
		"button_caption": buttonCaption,
	}
	return p.client.doAuthed(ctx, http.MethodPut, "system/display_message", body, nil)
}

// Beep plays a tone on the printer, which helps tell fleet members apart.
func (p *Printer) Beep(ctx context.Context, frequencyHz float64, duration time.Duration) error {
	body := map[string]float64{
		"frequency": frequencyHz,
		"duration":  float64(duration.Milliseconds()),
	}
	return p.client.doAuthed(ctx, http.MethodPut, "beep", body, nil)
}

// IsAuthorized reports whether the printer currently accepts this
// installation: a usable credential whose approval check answers authorized.
func (p *Printer) IsAuthorized(ctx context.Context) (bool, error) {
	if _, err := p.auth.ValidCredential(ctx); err != nil {
		if errors.Is(err, ErrPairingRequired) || errors.Is(err, ErrAuthRejected) {
			return false, nil
		}
		return false, err
	}
	status, err := p.auth.CheckAuthorized(ctx)
	if err != nil {
		return false, err
	}
	return status == Authorized, nil
}

// StatusSnapshot is the composed dashboard view of one printer.
type StatusSnapshot struct {
	SystemName string
	Status     PrinterStatus
	// Camera is the data URI of the latest distinct camera frame.
	Camera string
	// Job is set only while Status is printing.
	Job *PrintJob
	// Degraded marks a snapshot taken while the printer was unreachable;
	// only SystemName (the best-known value) is meaningful then.
	Degraded bool
}

// Snapshot assembles the dashboard view of the printer. An unreachable
// printer yields a degraded snapshot and no error, because a device that is
// momentarily off or rebooting is a normal condition for a dashboard.
// Pairing, rejection and device errors propagate.
func (p *Printer) Snapshot(ctx context.Context) (StatusSnapshot, error) {
	status, err := p.Status(ctx)
	if err != nil {
		return p.degradedOr(err)
	}
	name, err := p.SystemName(ctx)
	if err != nil {
		return p.degradedOr(err)
	}
	camera, err := p.CameraSnapshot(ctx)
	if err != nil {
		return p.degradedOr(err)
	}
	snap := StatusSnapshot{SystemName: name, Status: status, Camera: camera}
	if status == StatusPrinting {
		job, err := p.Job(ctx)
		if err != nil {
			return p.degradedOr(err)
		}
		snap.Job = &job
	}
	return snap, nil
}

func (p *Printer) degradedOr(err error) (StatusSnapshot, error) {
	if errors.Is(err, ErrUnreachable) {
		return StatusSnapshot{SystemName: p.cache.name, Degraded: true}, nil
	}
	return StatusSnapshot{}, err
}
