package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/five82/hotend/internal/config"
	"github.com/five82/hotend/internal/credstore"
	"github.com/five82/hotend/internal/discovery"
	"github.com/five82/hotend/internal/prefs"
	"github.com/five82/hotend/internal/state"
	"github.com/five82/hotend/internal/ui"
	"github.com/five82/hotend/internal/ultimaker"
)

// Options configure the hotend application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/hotend/prefs.toml
	PollEvery  int    // seconds; zero uses default
}

// Run boots the hotend TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// The TUI owns the terminal, so logging goes to a file that the
	// log view reads back.
	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(logFile)
		defer func() { _ = logFile.Close() }()
	}

	creds, err := credstore.Open(cfg.CredentialDBPath())
	if err != nil {
		return fmt.Errorf("open credential store: %w", err)
	}
	defer func() { _ = creds.Close() }()

	store := &state.Store{}

	manager := NewManager(ManagerOptions{
		Store:        store,
		Credentials:  creds,
		Identity:     ultimaker.Identity{Application: cfg.Application, User: cfg.User},
		Timeout:      cfg.RequestTimeout,
		PollInterval: time.Duration(opts.PollEvery) * time.Second,
	})
	manager.Start(ctx)
	defer manager.Stop()

	manager.TrackConfigured(cfg.Printers)

	var rescan func(context.Context) error
	if !cfg.DisableDiscovery {
		scanner, err := discovery.NewScanner(discovery.Config{})
		if err != nil {
			log.Printf("[discovery] disabled: %v", err)
		} else if err := scanner.Start(); err != nil {
			log.Printf("[discovery] disabled: %v", err)
		} else {
			defer scanner.Stop()
			manager.ConsumeDiscovery(scanner.Events())
			rescan = scanner.Refresh
		}
	}

	log.Printf("[app] started as %q (%s), %d configured printers", cfg.Application, cfg.User, len(cfg.Printers))

	uiOpts := ui.Options{
		Context:     ctx,
		Store:       store,
		Manager:     manager,
		PollTick:    manager.Interval(),
		ThemeName:   userPrefs.Theme,
		FleetFilter: userPrefs.FleetFilter,
		PrefsPath:   opts.PrefsPath,
		LogPath:     cfg.LogPath(),
		Rescan:      rescan,
	}
	return ui.Run(uiOpts)
}
