package logtail

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestRead(t *testing.T) {
	tmpDir := t.TempDir()
	logPath := filepath.Join(tmpDir, "test.log")

	var content strings.Builder
	var expectedAll []string
	for i := 1; i <= 10; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		expectedAll = append(expectedAll, line)
	}

	if err := os.WriteFile(logPath, []byte(content.String()), 0o644); err != nil {
		t.Fatalf("failed to create test log file: %v", err)
	}

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{
			name:     "read all (0)",
			maxLines: 0,
			expected: expectedAll,
		},
		{
			name:     "read all (negative)",
			maxLines: -1,
			expected: expectedAll,
		},
		{
			name:     "read partial (5)",
			maxLines: 5,
			expected: expectedAll[5:],
		},
		{
			name:     "read exactly all (10)",
			maxLines: 10,
			expected: expectedAll,
		},
		{
			name:     "read more than exists (20)",
			maxLines: 20,
			expected: expectedAll,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	lines, err := Read(filepath.Join(t.TempDir(), "absent.log"), 100)
	if err != nil {
		t.Fatalf("Read() error = %v, want nil for missing file", err)
	}
	if lines != nil {
		t.Errorf("Read() = %v, want nil", lines)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  parsedLine
		ok    bool
	}{
		{
			name:  "worker line",
			input: "2026/08/25 14:32:15 [worker U2 Workshop] poll failed: printer returned status 503",
			want: parsedLine{
				Timestamp: "2026/08/25 14:32:15",
				Component: "[worker U2 Workshop]",
				Message:   "poll failed: printer returned status 503",
			},
			ok: true,
		},
		{
			name:  "line without component",
			input: "2026/08/25 14:32:15 starting",
			want: parsedLine{
				Timestamp: "2026/08/25 14:32:15",
				Message:   "starting",
			},
			ok: true,
		},
		{
			name:  "microsecond timestamp",
			input: "2026/08/25 14:32:15.123456 [discovery] printer appeared",
			want: parsedLine{
				Timestamp: "2026/08/25 14:32:15.123456",
				Component: "[discovery]",
				Message:   "printer appeared",
			},
			ok: true,
		},
		{
			name:  "free-form line",
			input: "panic: something broke",
			ok:    false,
		},
		{
			name:  "empty line",
			input: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLine(tt.input)
			if ok != tt.ok {
				t.Fatalf("parseLine() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("parseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		message string
		want    messageKind
	}{
		{"poll failed: connection refused", kindTrouble},
		{"printer unreachable", kindTrouble},
		{"credentials rejected, pairing again", kindTrouble},
		{"pairing required: approve \"hotend\" on the printer screen", kindPairing},
		{"waiting for approval", kindPairing},
		{"pairing approved", kindGood},
		{"credentials restored from store", kindGood},
		{"polling every 5s", kindPlain},
	}

	for _, tt := range tests {
		if got := classify(tt.message); got != tt.want {
			t.Errorf("classify(%q) = %v, want %v", tt.message, got, tt.want)
		}
	}
}

func TestColorizeLinePreservesContent(t *testing.T) {
	line := "2026/08/25 14:32:15 [worker U2 Workshop] poll failed: printer returned status 503"
	got := ColorizeLine(line)

	for _, want := range []string{"2026/08/25 14:32:15", "[worker U2 Workshop]", "poll failed: printer returned status 503"} {
		if !strings.Contains(got, want) {
			t.Errorf("ColorizeLine() dropped %q: %q", want, got)
		}
	}
}

func TestColorizeLineLeavesUnparsedLinesAlone(t *testing.T) {
	line := "panic: something broke"
	if got := ColorizeLine(line); got != line {
		t.Errorf("ColorizeLine() = %q, want unchanged input", got)
	}
}

func TestColorizeLines(t *testing.T) {
	input := []string{
		"2026/08/25 14:32:15 [discovery] printer appeared",
		"free-form line",
	}
	got := ColorizeLines(input)
	if len(got) != len(input) {
		t.Fatalf("ColorizeLines() returned %d lines, want %d", len(got), len(input))
	}
	if got[1] != input[1] {
		t.Errorf("ColorizeLines()[1] = %q, want unchanged", got[1])
	}
}
