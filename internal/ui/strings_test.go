package ui

import (
	"testing"
	"time"
)

func TestHumanizeDuration(t *testing.T) {
	cases := []struct {
		name string
		in   int64 // seconds
		want string
	}{
		{"subsecond", 0, "now"},
		{"seconds", 12, "12s"},
		{"minutes", 61, "1m"},
		{"hours_only", 2 * 60 * 60, "2h"},
		{"hours_minutes", 2*60*60 + 3*60, "2h 3m"},
		{"days", 24 * 60 * 60, "1d"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := humanizeDuration(time.Duration(tc.in) * time.Second)
			if got != tc.want {
				t.Fatalf("humanizeDuration(%ds) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q, want unchanged", got)
	}
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("truncate = %q, want abc...", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("truncate limit<=3 = %q, want ab", got)
	}
}

func TestTruncateMiddle(t *testing.T) {
	if got := truncateMiddle("  ", 10); got != "" {
		t.Fatalf("truncateMiddle blank = %q, want empty", got)
	}
	got := truncateMiddle("/home/user/.local/share/hotend/hotend.log", 20)
	if got == "/home/user/.local/share/hotend/hotend.log" {
		t.Fatalf("expected truncation")
	}
	if len([]rune(got)) > 20 {
		t.Fatalf("got %q (%d runes), want <=20", got, len([]rune(got)))
	}
}

func TestTitleCase(t *testing.T) {
	cases := []struct{ in, want string }{
		{"idle", "Idle"},
		{"wait_user_action", "Wait User Action"},
		{"pre_print", "Pre Print"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := titleCase(tc.in); got != tc.want {
			t.Errorf("titleCase(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	if got := formatBytes(999); got != "999 B" {
		t.Fatalf("formatBytes = %q, want 999 B", got)
	}
	if got := formatBytes(2048); got != "2 KiB" {
		t.Fatalf("formatBytes = %q, want 2 KiB", got)
	}
	if got := formatBytes(1024 * 1024); got != "1.0 MiB" {
		t.Fatalf("formatBytes = %q, want 1.0 MiB", got)
	}
}

func TestPadRight(t *testing.T) {
	if got := padRight("ab", 5); got != "ab   " {
		t.Fatalf("padRight = %q, want %q", got, "ab   ")
	}
	if got := padRight("abcdef", 3); got != "abcdef" {
		t.Fatalf("padRight long input = %q, want unchanged", got)
	}
}
