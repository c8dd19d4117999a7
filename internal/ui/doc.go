// Package ui provides the terminal user interface for the hotend application.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program: a single Model value holds all state, the
// Update method folds messages into it, and View renders the whole screen.
// The interface is a monitoring dashboard over a fleet of printers; the only
// actions it can trigger are device-side conveniences (beep, display a
// message, rescan the network).
//
// # Package Structure
//
//   - app.go: Model, Init/Update/View, global key routing, messages and commands
//   - header.go: Status bar with fleet counts and the command hints bar
//   - fleet.go: Fleet table, filtering, selection, and printer actions
//   - detail.go: Detail pane for the selected printer
//   - logs.go: Log view over the application's own log file, with search
//   - help.go, message.go: Overlays for help and the display-message input
//   - theme.go, style_helpers.go, layout.go: Themes and rendering utilities
//
// # Views
//
// Two main views are available:
//
//   - Fleet View: Table of printers (name, status, progress) with a scrollable
//     detail pane for the selected one
//   - Logs View: The hotend log file, colorized, with vim-style search
//
// # Data Flow
//
//  1. Run() starts the program; a tick arrives every second
//  2. Each tick fetches the fleet from state.Store as a fleetMsg
//  3. Polling workers update the store concurrently; the UI never talks to
//     printers directly - device actions go through the Commander interface
//     so the worker that owns the connection performs them
//  4. Log refreshes read the log file in a tea.Cmd off the UI goroutine
//
// # External Dependencies
//
//   - state.Store: Provides fleet snapshots written by polling workers
//   - logtail: Reads and colorizes the application log file
//   - prefs: Persists the selected theme and fleet filter across runs
//
// # Usage Example
//
//	err := ui.Run(ui.Options{
//		Context:  ctx,
//		Store:    store,
//		Manager:  manager,
//		LogPath:  logPath,
//		PollTick: time.Second,
//	})
package ui
