package state

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/five82/hotend/internal/ultimaker"
)

// Source records how a printer entered the fleet.
type Source string

const (
	// SourceDiscovered marks printers found via mDNS.
	SourceDiscovered Source = "discovered"
	// SourceConfigured marks printers listed in the config file.
	SourceConfigured Source = "configured"
)

// PrinterInfo is the identity metadata for one fleet member.
type PrinterInfo struct {
	// Key is the stable identity used throughout the application:
	// the mDNS instance name for discovered printers, "host:port"
	// for configured ones.
	Key      string
	Name     string
	Address  string
	Port     int
	Machine  string
	Firmware string
	Source   Source
}

// PrinterState is the latest known data for one printer.
type PrinterState struct {
	PrinterInfo

	Snapshot    ultimaker.StatusSnapshot
	HasSnapshot bool

	AuthState ultimaker.AuthState
	// NeedsPairing is set when the last poll was refused pending
	// approval on the printer screen.
	NeedsPairing bool

	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive polls without contact
}

// IsOffline returns true when the printer has been unreachable for
// multiple polls.
func (p PrinterState) IsOffline() bool {
	return p.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the fleet table. Workers
// write their printer's entry; the UI reads the whole fleet.
type Store struct {
	mu       sync.RWMutex
	printers map[string]PrinterState
}

// Track upserts a printer's identity metadata, keeping any poll data
// already recorded under the same key.
func (s *Store) Track(info PrinterInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.printers == nil {
		s.printers = make(map[string]PrinterState)
	}

	entry := s.printers[info.Key]
	// A name learned from the printer itself beats the announcement.
	learned := ""
	if entry.HasSnapshot {
		learned = entry.Name
	}
	entry.PrinterInfo = info
	if learned != "" {
		entry.Name = learned
	}
	s.printers[info.Key] = entry
}

// Remove drops a printer from the fleet.
func (s *Store) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.printers, key)
}

// UpdatePoll records the outcome of one poll cycle. When err is non-nil
// or the snapshot is degraded, previous data is kept so the UI can show
// the last known state alongside the problem.
func (s *Store) UpdatePoll(key string, snap *ultimaker.StatusSnapshot, auth ultimaker.AuthState, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.printers == nil {
		s.printers = make(map[string]PrinterState)
	}
	entry, ok := s.printers[key]
	if !ok {
		entry.Key = key
	}

	entry.AuthState = auth
	entry.LastUpdated = time.Now()

	switch {
	case err != nil:
		entry.LastError = err
		entry.NeedsPairing = errors.Is(err, ultimaker.ErrPairingRequired) || errors.Is(err, ultimaker.ErrAuthRejected)
		if entry.NeedsPairing {
			// The printer answered; it is waiting on a human.
			entry.ConsecutiveFailures = 0
		} else {
			entry.ConsecutiveFailures++
		}
	case snap != nil && snap.Degraded:
		entry.LastError = nil
		entry.NeedsPairing = false
		entry.ConsecutiveFailures++
	default:
		if snap != nil {
			entry.Snapshot = *snap
			entry.HasSnapshot = true
			if snap.SystemName != "" {
				entry.Name = snap.SystemName
			}
		}
		entry.LastError = nil
		entry.NeedsPairing = false
		entry.ConsecutiveFailures = 0
	}

	s.printers[key] = entry
}

// Printer returns a copy of one printer's state.
func (s *Store) Printer(key string) (PrinterState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.printers[key]
	if !ok {
		return PrinterState{}, false
	}
	return cloneState(entry), true
}

// Fleet returns copies of every printer's state, sorted by name.
func (s *Store) Fleet() []PrinterState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]PrinterState, 0, len(s.printers))
	for _, entry := range s.printers {
		out = append(out, cloneState(entry))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].Key < out[j].Key
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func cloneState(entry PrinterState) PrinterState {
	dup := entry
	if entry.Snapshot.Job != nil {
		job := *entry.Snapshot.Job
		dup.Snapshot.Job = &job
	}
	if entry.LastError != nil {
		dup.LastError = fmt.Errorf("%w", entry.LastError)
	}
	return dup
}
