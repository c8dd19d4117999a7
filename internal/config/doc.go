// Package config handles loading and parsing hotend configuration files.
//
// # Overview
//
// This package reads hotend's TOML configuration: the pairing identity shown
// on printer screens, where local state lives, request timing, and which
// printers to talk to. Everything is optional; a missing config file yields
// a fully working default setup that monitors whatever mDNS finds.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/hotend/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/hotend/config.toml
//   - Application: hotend
//   - User: $USER (or "workshop" when unset)
//   - Data directory: ~/.local/share/hotend
//   - Credential database: <data_dir>/credentials.db
//   - Application log: <data_dir>/hotend.log
//   - Request timeout: 750ms
//
// # TOML Format
//
// Example config.toml:
//
//	application = "front desk"
//	user = "anna"
//	data_dir = "~/.local/share/hotend"
//	request_timeout_ms = 750
//	disable_discovery = false
//	printers = ["192.168.1.18", "10.0.0.7:8080"]
//
// Printer entries are "host" or "host:port"; the port defaults to 80, the
// HTTP port printers listen on. Static entries supplement mDNS discovery,
// which covers networks where multicast does not reach the printer VLAN.
//
// # Identity
//
// The application and user fields are not credentials. They are the label a
// printer displays when asking its owner to approve a pairing request, so
// they should say something a human at the machine will recognize.
//
// # Timeouts
//
// Printers answer local HTTP requests quickly when reachable, so the
// default request timeout is deliberately short. A fleet dashboard polling
// several machines cannot afford multi-second hangs on one unplugged
// printer. Raise request_timeout_ms only for genuinely slow networks.
//
// # Error Handling
//
// Load returns errors for:
//   - Path expansion failures (e.g., cannot determine home directory)
//   - File read errors (except os.ErrNotExist, which triggers defaults)
//   - TOML parsing errors, including malformed printer entries
//
// Missing config files are NOT an error - defaults are used instead.
// This allows hotend to work out-of-the-box on a network with
// discoverable printers.
//
// # Usage Example
//
//	// Use default config path
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatalf("failed to load config: %v", err)
//	}
//
//	// Access configuration
//	store, err := credstore.Open(cfg.CredentialDBPath())
//	identity := ultimaker.Identity{Application: cfg.Application, User: cfg.User}
//
// # Design Philosophy
//
// The config package is read-only and stateless - it loads configuration
// once at startup and returns an immutable Config struct. No global state
// or singleton patterns are used.
package config
