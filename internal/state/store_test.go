package state

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/five82/hotend/internal/ultimaker"
)

func TestStore_TrackAndFleetOrdering(t *testing.T) {
	var s Store

	s.Track(PrinterInfo{Key: "ultimakersystem-bb22", Name: "Workshop B", Address: "10.0.0.3", Port: 80, Source: SourceDiscovered})
	s.Track(PrinterInfo{Key: "ultimakersystem-aa11", Name: "Workshop A", Address: "10.0.0.2", Port: 80, Source: SourceDiscovered})
	s.Track(PrinterInfo{Key: "192.168.1.18:80", Address: "192.168.1.18", Port: 80, Source: SourceConfigured})

	fleet := s.Fleet()
	if len(fleet) != 3 {
		t.Fatalf("Fleet() returned %d printers, want 3", len(fleet))
	}
	// Nameless entries sort first, then by name.
	if fleet[0].Key != "192.168.1.18:80" || fleet[1].Name != "Workshop A" || fleet[2].Name != "Workshop B" {
		t.Fatalf("Fleet() order = [%s %s %s]", fleet[0].Key, fleet[1].Name, fleet[2].Name)
	}

	got, ok := s.Printer("ultimakersystem-aa11")
	if !ok || got.Address != "10.0.0.2" {
		t.Fatalf("Printer() = %+v, %v; want address 10.0.0.2", got, ok)
	}
	if _, ok := s.Printer("unknown"); ok {
		t.Fatalf("Printer(unknown) = ok, want miss")
	}
}

func TestStore_UpdatePollAndSnapshotClone(t *testing.T) {
	var s Store
	s.Track(PrinterInfo{Key: "p1", Name: "U1", Address: "10.0.0.2", Port: 80})

	job := ultimaker.PrintJob{Name: "bracket_v2", Progress: 0.2}
	snap := &ultimaker.StatusSnapshot{
		SystemName: "U2 Workshop",
		Status:     ultimaker.StatusPrinting,
		Job:        &job,
	}

	before := time.Now()
	s.UpdatePoll("p1", snap, ultimaker.AuthVerified, nil)

	got, ok := s.Printer("p1")
	if !ok {
		t.Fatalf("Printer(p1) missing after UpdatePoll")
	}
	if !got.HasSnapshot || got.Snapshot.Status != ultimaker.StatusPrinting {
		t.Fatalf("snapshot = %#v, want printing with HasSnapshot=true", got.Snapshot)
	}
	if got.Name != "U2 Workshop" {
		t.Fatalf("Name = %q, want name learned from printer %q", got.Name, "U2 Workshop")
	}
	if got.AuthState != ultimaker.AuthVerified {
		t.Fatalf("AuthState = %v, want verified", got.AuthState)
	}
	if got.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", got.LastUpdated, before)
	}
	if got.LastError != nil {
		t.Fatalf("LastError = %v, want nil", got.LastError)
	}

	// Returned state should be independent of the stored one.
	got.Snapshot.Job.Name = "tampered"
	again, _ := s.Printer("p1")
	if again.Snapshot.Job.Name != "bracket_v2" {
		t.Fatalf("Printer should clone job; got name %q want bracket_v2", again.Snapshot.Job.Name)
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store
	s.UpdatePoll("p1", &ultimaker.StatusSnapshot{SystemName: "U1", Status: ultimaker.StatusIdle}, ultimaker.AuthVerified, nil)
	prev, _ := s.Printer("p1")

	before := time.Now()
	origErr := fmt.Errorf("status: %w", &ultimaker.DeviceError{Status: 503})
	s.UpdatePoll("p1", nil, ultimaker.AuthVerified, origErr)

	got, _ := s.Printer("p1")
	if got.HasSnapshot != prev.HasSnapshot || got.Snapshot.Status != prev.Snapshot.Status {
		t.Fatalf("snapshot changed on error: got %#v want %#v", got.Snapshot, prev.Snapshot)
	}
	if got.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", got.LastUpdated, before)
	}
	if got.LastError == nil || got.LastError.Error() != origErr.Error() {
		t.Fatalf("LastError = %v, want %v", got.LastError, origErr)
	}
	if reflect.ValueOf(got.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Printer should clone error instance")
	}
	if got.NeedsPairing {
		t.Fatalf("NeedsPairing = true for a device error, want false")
	}
}

func TestStore_DegradedPollsCountTowardOffline(t *testing.T) {
	var s Store

	s.UpdatePoll("p1", &ultimaker.StatusSnapshot{SystemName: "U1", Status: ultimaker.StatusIdle}, ultimaker.AuthVerified, nil)
	got, _ := s.Printer("p1")
	if got.IsOffline() {
		t.Fatal("IsOffline() = true after a good poll, want false")
	}

	degraded := &ultimaker.StatusSnapshot{SystemName: "U1", Degraded: true}

	s.UpdatePoll("p1", degraded, ultimaker.AuthVerified, nil)
	got, _ = s.Printer("p1")
	if got.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", got.ConsecutiveFailures)
	}
	if got.IsOffline() {
		t.Fatal("IsOffline() = true after one degraded poll, want false")
	}
	// Last known data survives degradation.
	if !got.HasSnapshot || got.Snapshot.Status != ultimaker.StatusIdle {
		t.Fatalf("snapshot lost on degraded poll: %#v", got.Snapshot)
	}

	s.UpdatePoll("p1", degraded, ultimaker.AuthVerified, nil)
	got, _ = s.Printer("p1")
	if got.ConsecutiveFailures != 2 || !got.IsOffline() {
		t.Fatalf("ConsecutiveFailures = %d, IsOffline = %v; want 2, true", got.ConsecutiveFailures, got.IsOffline())
	}

	s.UpdatePoll("p1", &ultimaker.StatusSnapshot{SystemName: "U1", Status: ultimaker.StatusIdle}, ultimaker.AuthVerified, nil)
	got, _ = s.Printer("p1")
	if got.ConsecutiveFailures != 0 || got.IsOffline() {
		t.Fatalf("ConsecutiveFailures = %d after success, want 0", got.ConsecutiveFailures)
	}
}

func TestStore_PairingErrorsMarkNeedsPairing(t *testing.T) {
	var s Store

	// Run up the failure counter first: a pairing answer proves the
	// printer is reachable, so it must clear the offline track.
	degraded := &ultimaker.StatusSnapshot{Degraded: true}
	s.UpdatePoll("p1", degraded, ultimaker.AuthNoCredential, nil)
	s.UpdatePoll("p1", degraded, ultimaker.AuthNoCredential, nil)

	pairErr := fmt.Errorf("status: %w", ultimaker.ErrPairingRequired)
	s.UpdatePoll("p1", nil, ultimaker.AuthPendingApproval, pairErr)

	got, _ := s.Printer("p1")
	if !got.NeedsPairing {
		t.Fatalf("NeedsPairing = false, want true")
	}
	if got.ConsecutiveFailures != 0 || got.IsOffline() {
		t.Fatalf("pairing answer left printer offline: failures=%d", got.ConsecutiveFailures)
	}
	if got.AuthState != ultimaker.AuthPendingApproval {
		t.Fatalf("AuthState = %v, want pending approval", got.AuthState)
	}

	s.UpdatePoll("p1", nil, ultimaker.AuthNoCredential, fmt.Errorf("status: %w", ultimaker.ErrAuthRejected))
	got, _ = s.Printer("p1")
	if !got.NeedsPairing {
		t.Fatalf("NeedsPairing = false after auth rejection, want true")
	}
}

func TestStore_TrackKeepsLearnedName(t *testing.T) {
	var s Store

	s.Track(PrinterInfo{Key: "p1", Name: "U1", Address: "10.0.0.2", Port: 80, Source: SourceDiscovered})
	s.UpdatePoll("p1", &ultimaker.StatusSnapshot{SystemName: "U2 Workshop", Status: ultimaker.StatusIdle}, ultimaker.AuthVerified, nil)

	// A repeat announcement with the stale TXT name must not clobber
	// the name the printer reported itself.
	s.Track(PrinterInfo{Key: "p1", Name: "U1", Address: "10.0.0.7", Port: 80, Source: SourceDiscovered})

	got, _ := s.Printer("p1")
	if got.Name != "U2 Workshop" {
		t.Fatalf("Name = %q, want learned name kept", got.Name)
	}
	if got.Address != "10.0.0.7" {
		t.Fatalf("Address = %q, want refreshed address 10.0.0.7", got.Address)
	}
}

func TestStore_Remove(t *testing.T) {
	var s Store
	s.Track(PrinterInfo{Key: "p1", Name: "U1"})
	s.Remove("p1")
	if _, ok := s.Printer("p1"); ok {
		t.Fatalf("Printer(p1) = ok after Remove, want miss")
	}
	if len(s.Fleet()) != 0 {
		t.Fatalf("Fleet() = %d printers after Remove, want 0", len(s.Fleet()))
	}
	// Removing an unknown key is a no-op.
	s.Remove("p2")
}

func TestStore_UpdatePollOnUntrackedKeyCreatesEntry(t *testing.T) {
	var s Store
	s.UpdatePoll("p1", nil, ultimaker.AuthNoCredential, errors.New("boom"))
	got, ok := s.Printer("p1")
	if !ok || got.Key != "p1" {
		t.Fatalf("Printer(p1) = %+v, %v; want entry created", got, ok)
	}
	if got.ConsecutiveFailures != 1 {
		t.Fatalf("ConsecutiveFailures = %d, want 1", got.ConsecutiveFailures)
	}
}
