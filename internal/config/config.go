package config

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// StaticPrinter is one manually configured printer address.
type StaticPrinter struct {
	Address string
	Port    int
}

// Config captures everything hotend needs to find and talk to printers.
type Config struct {
	// Application and User form the identity shown on the printer's
	// approval screen when pairing.
	Application string
	User        string

	// DataDir holds the credential database and the application log.
	DataDir string

	RequestTimeout   time.Duration
	DisableDiscovery bool

	// Printers lists manually configured machines, for networks where
	// mDNS does not reach.
	Printers []StaticPrinter
}

const (
	defaultConfigPath = "~/.config/hotend/config.toml"
	defaultDataDir    = "~/.local/share/hotend"

	defaultApplication = "hotend"
	defaultTimeout     = 750 * time.Millisecond

	// defaultPrinterPort is the HTTP port printers listen on.
	defaultPrinterPort = 80
)

// Load locates and parses the hotend config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Application:    defaultApplication,
		User:           defaultUser(),
		DataDir:        defaultDataDir,
		RequestTimeout: defaultTimeout,
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.DataDir = mustExpand(defaultDataDir)
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Application      string   `toml:"application"`
		User             string   `toml:"user"`
		DataDir          string   `toml:"data_dir"`
		RequestTimeoutMS int      `toml:"request_timeout_ms"`
		DisableDiscovery bool     `toml:"disable_discovery"`
		Printers         []string `toml:"printers"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if app := strings.TrimSpace(raw.Application); app != "" {
		cfg.Application = app
	}
	if user := strings.TrimSpace(raw.User); user != "" {
		cfg.User = user
	}

	dataDir := strings.TrimSpace(raw.DataDir)
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	cfg.DataDir = mustExpand(dataDir)

	if raw.RequestTimeoutMS > 0 {
		cfg.RequestTimeout = time.Duration(raw.RequestTimeoutMS) * time.Millisecond
	}
	cfg.DisableDiscovery = raw.DisableDiscovery

	for _, entry := range raw.Printers {
		printer, err := parsePrinter(entry)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
		cfg.Printers = append(cfg.Printers, printer)
	}

	return cfg, nil
}

// CredentialDBPath returns the path of the pairing credential database.
func (c Config) CredentialDBPath() string {
	return filepath.Join(c.dataDir(), "credentials.db")
}

// LogPath returns the path of the application log file.
func (c Config) LogPath() string {
	return filepath.Join(c.dataDir(), "hotend.log")
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

// parsePrinter accepts "host" or "host:port" entries. Bare IPv6
// addresses pass through as hosts with the default port.
func parsePrinter(entry string) (StaticPrinter, error) {
	trimmed := strings.TrimSpace(entry)
	if trimmed == "" {
		return StaticPrinter{}, fmt.Errorf("printer entry is empty")
	}

	host, portRaw, err := net.SplitHostPort(trimmed)
	if err != nil {
		return StaticPrinter{Address: strings.Trim(trimmed, "[]"), Port: defaultPrinterPort}, nil
	}
	if host == "" {
		return StaticPrinter{}, fmt.Errorf("printer entry %q has no host", entry)
	}

	port, err := strconv.Atoi(portRaw)
	if err != nil || port <= 0 || port > 65535 {
		return StaticPrinter{}, fmt.Errorf("printer entry %q has invalid port %q", entry, portRaw)
	}
	return StaticPrinter{Address: host, Port: port}, nil
}

func defaultUser() string {
	if user := strings.TrimSpace(os.Getenv("USER")); user != "" {
		return user
	}
	return "workshop"
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
