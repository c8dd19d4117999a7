// Package app provides the orchestration layer for the hotend application.
//
// # Overview
//
// This package wires together configuration, discovery, pairing persistence,
// per-printer polling, and the UI to create the complete hotend TUI
// experience. It serves as the composition root where all dependencies are
// initialized and connected.
//
// # Architecture
//
// The app package follows a simple initialization pattern:
//
//  1. Load configuration from ~/.config/hotend/config.toml
//  2. Redirect the standard logger to <data_dir>/hotend.log
//  3. Open the pairing credential database
//  4. Create the shared state.Store for worker and UI coordination
//  5. Start the fleet manager and workers for configured printers
//  6. Start mDNS discovery and feed its events to the manager
//  7. Start the TUI and block until the user exits or context cancels
//
// # Fleet Model
//
// Every printer gets its own worker goroutine, started by the Manager when
// the printer is configured or discovered:
//
//	┌─────────────────────────────────────────────┐
//	│ worker (one per printer)                    │
//	│  ├─> restore persisted credentials (once)   │
//	│  ├─> check pairing approval while pending   │
//	│  ├─> printer.Snapshot()                     │
//	│  ├─> store.UpdatePoll()  (atomic)           │
//	│  │     └─> UI reads store.Fleet()           │
//	│  └─> execute queued UI commands             │
//	└─────────────────────────────────────────────┘
//
// The worker is the single owner of its printer connection. The credential
// state machine inside a connection is not safe for concurrent use, so all
// device actions the UI triggers (beep, display message) travel through the
// worker's command channel rather than calling the connection directly.
//
// # Polling Behavior
//
// Workers poll at a steady cadence (default: 5 seconds) and back off
// exponentially while a printer stays unreachable, up to a 30 second cap.
// Pairing refusals do not back off: a printer waiting for on-screen
// approval is up, and prompt polling notices the operator's decision
// quickly. Results always land in the store, so the UI shows last-known
// data alongside any problem.
//
// # Error Handling
//
// The app package distinguishes between fatal and recoverable errors:
//
// Fatal errors (returned from Run):
//   - Configuration file invalid
//   - Data directory cannot be created
//   - Credential database cannot be opened
//
// Recoverable errors (logged, operation continues):
//   - Discovery unavailable (static printers still work)
//   - Log file cannot be opened (logging is dropped)
//   - Per-printer poll and command failures
//
// # Duplicate Entries
//
// A printer listed statically and also found via discovery is tracked
// twice, under different keys, and each entry pairs separately. List a
// printer statically only when discovery cannot reach it.
//
// # Usage Example
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	opts := app.Options{
//		ConfigPath: "", // Use default
//		PollEvery:  5,  // 5 second polling
//	}
//
//	if err := app.Run(ctx, opts); err != nil {
//		log.Fatalf("hotend failed: %v", err)
//	}
//
// # Design Rationale
//
// This package intentionally keeps orchestration logic minimal and focused.
// Business logic lives in domain packages (ultimaker, discovery, credstore,
// state, ui). The app package connects these pieces and enforces the
// one-owner-per-connection rule that the credential lifecycle requires.
package app
