package ultimaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAuthedCallPairsAndSucceeds(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	device.autoApprove = true
	p := newTestPrinter(t, device.server(t), 2*time.Second)

	status, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != StatusIdle {
		t.Fatalf("status = %q, want %q", status, StatusIdle)
	}
	if device.issueCount != 1 {
		t.Fatalf("issueCount = %d, want 1", device.issueCount)
	}
	if device.gotApplication != "hotend" || device.gotUser != "workshop" {
		t.Fatalf("pairing identity = %q/%q, want hotend/workshop", device.gotApplication, device.gotUser)
	}
	if device.gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("auth/request content type = %q, want form encoding", device.gotContentType)
	}

	// A second call reuses the pair instead of pairing again.
	if _, err := p.Status(context.Background()); err != nil {
		t.Fatalf("second Status: %v", err)
	}
	if device.issueCount != 1 {
		t.Fatalf("issueCount = %d, want still 1", device.issueCount)
	}
}

func TestAuthedCallReportsPairingUntilApproved(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	p := newTestPrinter(t, device.server(t), 2*time.Second)

	_, err := p.Status(context.Background())
	if !errors.Is(err, ErrPairingRequired) {
		t.Fatalf("Status before approval = %v, want ErrPairingRequired", err)
	}
	if device.statusCalls != 0 {
		t.Fatalf("statusCalls = %d, want 0 without a usable credential", device.statusCalls)
	}

	device.approveCurrent()

	status, err := p.Status(context.Background())
	if err != nil {
		t.Fatalf("Status after approval: %v", err)
	}
	if status != StatusIdle {
		t.Fatalf("status = %q, want %q", status, StatusIdle)
	}
	if device.issueCount != 1 {
		t.Fatalf("issueCount = %d, want 1", device.issueCount)
	}
}

func TestAuthedCallRetriesOnceThenRejects(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	device.autoApprove = true
	device.statusAlways401 = true
	p := newTestPrinter(t, device.server(t), 2*time.Second)

	_, err := p.Status(context.Background())
	if !errors.Is(err, ErrAuthRejected) {
		t.Fatalf("Status = %v, want ErrAuthRejected", err)
	}
	// One original pair plus exactly one re-pair for the replay.
	if device.issueCount != 2 {
		t.Fatalf("issueCount = %d, want 2", device.issueCount)
	}
}

func TestDeviceErrorsAreNotRetried(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	device.autoApprove = true
	device.statusErrCode = 503
	device.statusErrBody = "maintenance in progress"
	p := newTestPrinter(t, device.server(t), 2*time.Second)

	_, err := p.Status(context.Background())
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("Status = %v, want *DeviceError", err)
	}
	if devErr.Status != 503 {
		t.Fatalf("DeviceError.Status = %d, want 503", devErr.Status)
	}
	if devErr.Body != "maintenance in progress" {
		t.Fatalf("DeviceError.Body = %q, want the response text", devErr.Body)
	}
	if device.statusCalls != 1 {
		t.Fatalf("statusCalls = %d, want 1 (no retry)", device.statusCalls)
	}
	if device.issueCount != 1 {
		t.Fatalf("issueCount = %d, want 1 (no re-pairing)", device.issueCount)
	}
}

func TestUnauthenticatedEndpointsNeedNoPairing(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	p := newTestPrinter(t, device.server(t), 2*time.Second)

	name, err := p.SystemName(context.Background())
	if err != nil {
		t.Fatalf("SystemName: %v", err)
	}
	if name != "U2 Workshop" {
		t.Fatalf("name = %q, want %q", name, "U2 Workshop")
	}
	if device.gotUserAgent != defaultUserAgent {
		t.Fatalf("User-Agent = %q, want %q", device.gotUserAgent, defaultUserAgent)
	}
	if device.issueCount != 0 {
		t.Fatalf("issueCount = %d, want 0 for unauthenticated endpoints", device.issueCount)
	}
}

func TestConnectionFailureIsUnreachable(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	srv := device.server(t)
	p := newTestPrinter(t, srv, 500*time.Millisecond)
	srv.Close()

	_, err := p.SystemName(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("SystemName against closed server = %v, want ErrUnreachable", err)
	}
}

func TestTimeoutIsUnreachable(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	device.delay = 300 * time.Millisecond
	p := newTestPrinter(t, device.server(t), 30*time.Millisecond)

	_, err := p.SystemName(context.Background())
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("SystemName past the deadline = %v, want ErrUnreachable", err)
	}
}

func TestScalarEndpointsDecode(t *testing.T) {
	t.Parallel()
	device := newFakeDevice()
	device.autoApprove = true
	p := newTestPrinter(t, device.server(t), 2*time.Second)
	ctx := context.Background()

	state, err := p.JobState(ctx)
	if err != nil {
		t.Fatalf("JobState: %v", err)
	}
	if state != JobPrinting {
		t.Fatalf("state = %q, want %q", state, JobPrinting)
	}

	elapsed, err := p.JobTimeElapsed(ctx)
	if err != nil {
		t.Fatalf("JobTimeElapsed: %v", err)
	}
	if elapsed != 2*time.Minute+5*time.Second {
		t.Fatalf("elapsed = %v, want 2m5s", elapsed)
	}

	progress, err := p.JobProgress(ctx)
	if err != nil {
		t.Fatalf("JobProgress: %v", err)
	}
	if progress != 0.208 {
		t.Fatalf("progress = %v, want 0.208", progress)
	}
}
