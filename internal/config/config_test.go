package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USER", "printroom")

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Application != defaultApplication {
		t.Fatalf("Application = %q, want %q", cfg.Application, defaultApplication)
	}
	if cfg.User != "printroom" {
		t.Fatalf("User = %q, want %q", cfg.User, "printroom")
	}
	if cfg.RequestTimeout != defaultTimeout {
		t.Fatalf("RequestTimeout = %v, want %v", cfg.RequestTimeout, defaultTimeout)
	}
	if cfg.DisableDiscovery {
		t.Fatalf("DisableDiscovery = true, want false")
	}

	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
application = "  front desk  "
user = "  anna  "
data_dir = "  ~/.hotend  "
request_timeout_ms = 1500
disable_discovery = true
printers = ["192.168.1.18", "10.0.0.7:8080"]
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Application != "front desk" {
		t.Fatalf("Application = %q, want %q", cfg.Application, "front desk")
	}
	if cfg.User != "anna" {
		t.Fatalf("User = %q, want %q", cfg.User, "anna")
	}
	if !strings.HasPrefix(cfg.DataDir, home) {
		t.Fatalf("DataDir = %q, want it under HOME %q", cfg.DataDir, home)
	}
	if cfg.RequestTimeout != 1500*time.Millisecond {
		t.Fatalf("RequestTimeout = %v, want 1.5s", cfg.RequestTimeout)
	}
	if !cfg.DisableDiscovery {
		t.Fatalf("DisableDiscovery = false, want true")
	}
	want := []StaticPrinter{
		{Address: "192.168.1.18", Port: 80},
		{Address: "10.0.0.7", Port: 8080},
	}
	if len(cfg.Printers) != len(want) {
		t.Fatalf("Printers = %+v, want %+v", cfg.Printers, want)
	}
	for i := range want {
		if cfg.Printers[i] != want[i] {
			t.Fatalf("Printers[%d] = %+v, want %+v", i, cfg.Printers[i], want[i])
		}
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USER", "printroom")

	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`
application = "   "
user = ""
data_dir = ""
request_timeout_ms = 0
`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Application != defaultApplication {
		t.Fatalf("Application = %q, want %q", cfg.Application, defaultApplication)
	}
	if cfg.User != "printroom" {
		t.Fatalf("User = %q, want %q", cfg.User, "printroom")
	}
	if cfg.RequestTimeout != defaultTimeout {
		t.Fatalf("RequestTimeout = %v, want %v", cfg.RequestTimeout, defaultTimeout)
	}
	wantDataDir, err := expandPath(defaultDataDir)
	if err != nil {
		t.Fatalf("expandPath(defaultDataDir) returned error: %v", err)
	}
	if cfg.DataDir != wantDataDir {
		t.Fatalf("DataDir = %q, want %q", cfg.DataDir, wantDataDir)
	}
}

func TestLoad_InvalidTOMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(`printers = [`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err := Load(path)
	if err == nil {
		t.Fatalf("Load returned nil error, want parse error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load error = %q, want it to mention parse config", err.Error())
	}
}

func TestLoad_RejectsBadPrinterEntries(t *testing.T) {
	for _, entry := range []string{`""`, `"10.0.0.7:printer"`, `"10.0.0.7:0"`} {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("printers = ["+entry+"]\n"), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("Load accepted printer entry %s, want error", entry)
		}
	}
}

func TestParsePrinter(t *testing.T) {
	tests := []struct {
		entry string
		want  StaticPrinter
	}{
		{"192.168.1.18", StaticPrinter{Address: "192.168.1.18", Port: 80}},
		{"10.0.0.7:8080", StaticPrinter{Address: "10.0.0.7", Port: 8080}},
		{"printer.workshop.lan", StaticPrinter{Address: "printer.workshop.lan", Port: 80}},
		{"fe80::1", StaticPrinter{Address: "fe80::1", Port: 80}},
		{"[fe80::1]:631", StaticPrinter{Address: "fe80::1", Port: 631}},
		{"  192.168.1.18  ", StaticPrinter{Address: "192.168.1.18", Port: 80}},
	}
	for _, tt := range tests {
		got, err := parsePrinter(tt.entry)
		if err != nil {
			t.Errorf("parsePrinter(%q) returned error: %v", tt.entry, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePrinter(%q) = %+v, want %+v", tt.entry, got, tt.want)
		}
	}
}

func TestExpandPath_ExpandsTildeAndReturnsAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := expandPath("~/a/b")
	if err != nil {
		t.Fatalf("expandPath returned error: %v", err)
	}
	want := filepath.Join(home, "a/b")
	if got != want {
		t.Fatalf("expandPath = %q, want %q", got, want)
	}
}

func TestExpandPath_EmptyErrors(t *testing.T) {
	if _, err := expandPath("   "); err == nil {
		t.Fatalf("expandPath returned nil error, want error")
	}
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{DataDir: filepath.FromSlash("/var/lib/hotend")}
	if got := cfg.CredentialDBPath(); got != filepath.FromSlash("/var/lib/hotend/credentials.db") {
		t.Fatalf("CredentialDBPath = %q", got)
	}
	if got := cfg.LogPath(); got != filepath.FromSlash("/var/lib/hotend/hotend.log") {
		t.Fatalf("LogPath = %q", got)
	}
}

func TestDerivedPaths_DefaultWhenDataDirEmpty(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	var cfg Config
	got := cfg.LogPath()
	if !strings.HasPrefix(got, home) {
		t.Fatalf("LogPath = %q, want it under HOME %q", got, home)
	}
	if !strings.HasSuffix(got, filepath.FromSlash("/hotend.log")) {
		t.Fatalf("LogPath = %q, want it to end with /hotend.log", got)
	}
}
