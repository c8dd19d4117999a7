// Package logtail provides utilities for reading and colorizing the
// application log.
//
// # Overview
//
// hotend writes its own activity log (pairing progress, poll failures,
// discovery changes) to a file in the data directory, and the UI shows the
// tail of that file in a dedicated view. This package implements the
// tail-like read and the styling applied to each line.
//
// # Reading Log Files
//
// The Read function uses a ring buffer to extract the last maxLines from a
// file, regardless of file size. This approach:
//
//   - Scans the file sequentially (one pass)
//   - Uses O(maxLines) memory, not O(file size)
//   - Returns lines in correct chronological order
//   - Handles files larger than available memory
//
// A maxLines of zero or less reads the entire file. Missing files return
// nil, nil: the log view simply shows nothing until the first line is
// written.
//
// Example usage:
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//	if err != nil {
//		log.Printf("failed to read log: %v", err)
//	}
//
// # Expected Log Format
//
// Lines are written through the standard log package with a component tag:
//
//	2026/08/25 14:32:15 [worker U2 Workshop] pairing required: approve "hotend" on the printer screen
//	2026/08/25 14:32:20 [discovery] printer ultimakersystem-aa11 appeared at 10.0.0.18
//
// # Colorization
//
// ColorizeLine styles the timestamp dim and the [component] tag blue, then
// colors the message by what it says: failures and rejections red, pairing
// prompts yellow, successful pairing green. Styling uses lipgloss, so the
// output degrades to plain text on terminals without color support.
//
// Lines that do not match the expected format pass through unchanged.
// Colorization never fails.
//
// # Design Rationale
//
// This package is intentionally simple and focused:
//   - No streaming or file watching (the UI re-reads on its refresh tick)
//   - No log rotation handling (reads current file only)
//   - No filtering or searching (that's the UI's job)
//   - Pure functions with no global state
package logtail
