// Package state provides thread-safe fleet state for the hotend application.
//
// # Overview
//
// This package implements the shared table of printers the application knows
// about: who they are, what their last poll said, and whether they currently
// need a human at the machine. It is the coordination point where per-printer
// poll workers meet UI rendering.
//
// # Architecture
//
// The package follows a many-producers, one-consumer pattern:
//
//	Producers (one worker per printer):       Consumer (UI):
//	┌──────────────────────┐
//	│ printer.Snapshot()   │                 ┌────────────────┐
//	│        ↓             │                 │ store.Fleet()  │
//	│ store.UpdatePoll()   │────────────────→│      ↓         │
//	│        ↓             │    (mutex)      │  render UI     │
//	│     repeat...        │                 └────────────────┘
//	└──────────────────────┘
//	┌──────────────────────┐
//	│ discovery events     │
//	│        ↓             │
//	│ store.Track/Remove   │
//	└──────────────────────┘
//
// The Store mediates between these goroutines, ensuring:
//   - Atomic updates (no partial/torn reads)
//   - No data races (mutex-protected access)
//   - Immutable reads (defensive copying)
//
// # Core Types
//
// Store:
//   - Thread-safe container keyed by stable printer identity
//   - Uses sync.RWMutex for concurrent access
//   - Many writers (workers, discovery), one reader (UI refresh loop)
//
// PrinterState:
//   - Immutable view of one printer at a point in time
//   - Identity metadata plus last snapshot, auth state, and error info
//   - Returned by value with defensive copies
//
// # Keys
//
// Printers are keyed by the mDNS instance name when discovered, or by
// "host:port" when configured statically. The instance name encodes the
// machine's hardware identity, so a printer keeps its entry (and its poll
// history) across DHCP address changes.
//
// # Update Semantics
//
// UpdatePoll records one poll cycle and distinguishes three outcomes:
//
//	// Success: replace data, clear failure tracking
//	store.UpdatePoll(key, &snap, auth, nil)
//
//	// Degraded (printer unreachable): keep old data, count the miss
//	store.UpdatePoll(key, &degraded, auth, nil)
//
//	// Error (pairing needed, device fault): keep old data, record error
//	store.UpdatePoll(key, nil, auth, err)
//
// Previous data always survives a failed poll, so the UI shows the last
// known state alongside the problem instead of blanking out.
//
// Pairing errors are special: a printer refusing us pending approval has
// demonstrably answered, so those polls reset the offline counter and set
// NeedsPairing instead. IsOffline() only reports printers that have not
// answered at all for two or more polls.
//
// Names follow the same keep-the-best rule. A successful poll records the
// name the printer reports about itself, and later mDNS announcements do
// not overwrite it; announcement TXT data can lag a rename.
//
// # Usage Example
//
//	// Worker goroutine (one per printer):
//	for {
//		snap, err := printer.Snapshot(ctx)
//		store.UpdatePoll(key, &snap, printer.Auth().State(), err)
//		time.Sleep(interval)
//	}
//
//	// UI goroutine:
//	ticker := time.NewTicker(time.Second)
//	for range ticker.C {
//		renderFleet(store.Fleet())
//	}
//
// # Testing Considerations
//
// The Store is safe to construct with zero value:
//
//	store := &state.Store{}  // Ready to use immediately
//
// For tests:
//   - No initialization required
//   - Thread-safe from first use
//   - Fleet() returns an empty slice if nothing was tracked
//   - Updates are atomic and immediately visible
//
// # Design Rationale
//
// This package intentionally avoids:
//   - Channels (mutex is simpler for this access pattern)
//   - Incremental updates (full entry replacement is easier)
//   - Versioning/history (only latest state matters)
//   - Pub/sub (UI polls the fleet on its own schedule)
//
// The design prioritizes simplicity and correctness over maximum
// performance, which is appropriate for a handful of printers polled
// a few times per minute.
package state
