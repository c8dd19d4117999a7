package logtail

import (
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTimestamp = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	styleComponent = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	styleTrouble   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	stylePairing   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	styleGood      = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
)

// Lines written through the standard log package:
//
//	2026/08/25 14:32:15 [worker U2 Workshop] poll failed: ...
var lineRe = regexp.MustCompile(`^(\d{4}/\d{2}/\d{2} \d{2}:\d{2}:\d{2}(?:\.\d+)?) (.*)$`)

var componentRe = regexp.MustCompile(`^(\[[^\]]+\]) ?(.*)$`)

type parsedLine struct {
	Timestamp string
	Component string
	Message   string
}

func parseLine(line string) (parsedLine, bool) {
	match := lineRe.FindStringSubmatch(line)
	if match == nil {
		return parsedLine{}, false
	}
	parsed := parsedLine{Timestamp: match[1], Message: match[2]}
	if sub := componentRe.FindStringSubmatch(parsed.Message); sub != nil {
		parsed.Component = sub[1]
		parsed.Message = sub[2]
	}
	return parsed, true
}

type messageKind int

const (
	kindPlain messageKind = iota
	kindTrouble
	kindPairing
	kindGood
)

func classify(message string) messageKind {
	lower := strings.ToLower(message)
	switch {
	case strings.Contains(lower, "error"),
		strings.Contains(lower, "failed"),
		strings.Contains(lower, "unreachable"),
		strings.Contains(lower, "rejected"):
		return kindTrouble
	case strings.Contains(lower, "pairing required"),
		strings.Contains(lower, "waiting for approval"):
		return kindPairing
	case strings.Contains(lower, "approved"),
		strings.Contains(lower, "paired"),
		strings.Contains(lower, "restored"):
		return kindGood
	default:
		return kindPlain
	}
}

// ColorizeLine applies terminal styling to one log line. Lines that do
// not match the expected format are returned unchanged.
func ColorizeLine(line string) string {
	parsed, ok := parseLine(line)
	if !ok {
		return line
	}

	var b strings.Builder
	b.WriteString(styleTimestamp.Render(parsed.Timestamp))
	b.WriteString(" ")
	if parsed.Component != "" {
		b.WriteString(styleComponent.Render(parsed.Component))
		b.WriteString(" ")
	}

	switch classify(parsed.Message) {
	case kindTrouble:
		b.WriteString(styleTrouble.Render(parsed.Message))
	case kindPairing:
		b.WriteString(stylePairing.Render(parsed.Message))
	case kindGood:
		b.WriteString(styleGood.Render(parsed.Message))
	default:
		b.WriteString(parsed.Message)
	}
	return b.String()
}

// ColorizeLineOn styles a line like ColorizeLine, but paints every segment
// over the given background color. Styled text ends with a terminal reset
// that would otherwise punch a hole in a filled pane.
func ColorizeLineOn(line string, background lipgloss.Color) string {
	parsed, ok := parseLine(line)
	if !ok {
		return lipgloss.NewStyle().Background(background).Render(line)
	}

	space := lipgloss.NewStyle().Background(background).Render(" ")

	var b strings.Builder
	b.WriteString(styleTimestamp.Background(background).Render(parsed.Timestamp))
	b.WriteString(space)
	if parsed.Component != "" {
		b.WriteString(styleComponent.Background(background).Render(parsed.Component))
		b.WriteString(space)
	}

	messageStyle := lipgloss.NewStyle().Background(background)
	switch classify(parsed.Message) {
	case kindTrouble:
		messageStyle = styleTrouble.Background(background)
	case kindPairing:
		messageStyle = stylePairing.Background(background)
	case kindGood:
		messageStyle = styleGood.Background(background)
	}
	b.WriteString(messageStyle.Render(parsed.Message))
	return b.String()
}

// ColorizeLines applies ColorizeLine to each line.
func ColorizeLines(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = ColorizeLine(line)
	}
	return out
}
