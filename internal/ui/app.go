package ui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/hotend/internal/logtail"
	"github.com/five82/hotend/internal/prefs"
	"github.com/five82/hotend/internal/state"
)

// View represents the current active view.
type View int

const (
	ViewFleet View = iota
	ViewLogs
)

// FleetFilter represents the fleet filter mode.
type FleetFilter int

const (
	FilterAll FleetFilter = iota
	FilterPrinting
	FilterAttention
)

// prefValue returns the stable name the filter is persisted under.
func (f FleetFilter) prefValue() string {
	switch f {
	case FilterPrinting:
		return "printing"
	case FilterAttention:
		return "attention"
	default:
		return "all"
	}
}

// filterFromPref maps a persisted filter name back to a mode. Unknown
// names fall back to showing everything.
func filterFromPref(value string) FleetFilter {
	switch value {
	case "printing":
		return FilterPrinting
	case "attention":
		return FilterAttention
	default:
		return FilterAll
	}
}

const (
	defaultUITick = time.Second
	flashDuration = 4 * time.Second
	rescanBudget  = 10 * time.Second

	// beepFrequencyHz and beepDuration identify a printer on a crowded
	// shelf without being obnoxious about it.
	beepFrequencyHz = 440.0
	beepDuration    = time.Second
)

// Commander routes device actions to a printer's polling worker, which is
// the single owner of the printer connection.
type Commander interface {
	Beep(key string, frequencyHz float64, duration time.Duration) error
	DisplayMessage(key, message, button string) error
}

// Options configures the UI.
type Options struct {
	Context   context.Context
	Store     *state.Store
	Manager   Commander
	PollTick  time.Duration
	ThemeName string
	// FleetFilter is the persisted fleet filter name, usually from prefs.
	FleetFilter string
	PrefsPath   string
	LogPath     string
	// Rescan triggers an immediate discovery sweep. nil when discovery
	// is disabled.
	Rescan func(context.Context) error
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx       context.Context
	store     *state.Store
	manager   Commander
	rescan    func(context.Context) error
	logPath   string
	prefsPath string
	pollTick  time.Duration

	// UI state
	theme       Theme
	keys        keyMap
	currentView View
	width       int
	height      int
	ready       bool
	focusedPane int // 0 = fleet table, 1 = detail

	// Data state
	fleet       []state.PrinterState
	lastUpdated time.Time

	// Fleet state
	selectedRow int
	selectedKey string
	filterMode  FleetFilter

	// Detail state
	detailViewport viewport.Model

	// Log state
	logViewport viewport.Model
	logState    logState

	// Help overlay
	showHelp bool

	// Message modal
	showMessage  bool
	messageInput textinput.Model
	messageKey   string
	messageName  string

	// Transient feedback for beep/message/rescan outcomes
	flash        string
	flashIsError bool
	flashExpires time.Time
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick <= 0 {
		pollTick = defaultUITick
	}
	// Polling workers set the data cadence; the UI never needs to redraw
	// slower than once a second to keep timestamps honest.
	if pollTick > time.Second {
		pollTick = time.Second
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Dracula"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	return Model{
		ctx:          ctx,
		store:        opts.Store,
		manager:      opts.Manager,
		rescan:       opts.Rescan,
		logPath:      opts.LogPath,
		prefsPath:    prefsPath,
		pollTick:     pollTick,
		theme:        GetTheme(themeName),
		keys:         DefaultKeyMap(),
		currentView:  ViewFleet,
		filterMode:   filterFromPref(opts.FleetFilter),
		messageInput: newMessageInput(),
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		tickCmd(m.pollTick),
	}
	// Fetch the fleet immediately on start
	if m.store != nil {
		cmds = append(cmds, fetchFleetCmd(m.store))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogState()
			m.initLogViewport()
			m.initDetailViewport()
		}
		m.ready = true
		m.updateDetailViewport()
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case fleetMsg:
		m.fleet = []state.PrinterState(msg)
		m.lastUpdated = time.Now()
		m.updateFleetSelection()
		m.updateDetailViewport()
		return m, nil

	case logLinesMsg:
		m.handleLogLines(msg)
		return m, nil

	case logErrorMsg:
		m.logState.lastErr = msg.err
		return m, nil

	case rescanDoneMsg:
		if msg.err != nil {
			m.setFlash("rescan failed: "+msg.err.Error(), true)
		} else {
			m.setFlash("rescan complete", false)
		}
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	if m.showMessage {
		return m.renderMessageModal()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes the help overlay
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	if m.showMessage {
		return m.handleMessageKey(msg)
	}

	// While the log search input is active it owns every key
	if m.currentView == ViewLogs && m.logState.searchActive {
		return m.handleLogsKey(msg)
	}

	// Global keys
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "h", "?":
		m.showHelp = true
		return m, nil

	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		return m, nil

	case "tab":
		m.toggleFocus()
		m.updateDetailViewport()
		if m.currentView == ViewLogs {
			return m, readLogsCmd(m.logPath)
		}
		return m, nil

	case "shift+tab":
		m.toggleFocusReverse()
		m.updateDetailViewport()
		if m.currentView == ViewLogs {
			return m, readLogsCmd(m.logPath)
		}
		return m, nil

	case "p":
		m.currentView = ViewFleet
		return m, nil

	case "l":
		m.currentView = ViewLogs
		return m, readLogsCmd(m.logPath)

	case "f":
		m.cycleFilter()
		m.updateFleetSelection()
		m.updateDetailViewport()
		m.savePrefs()
		return m, nil

	case "r":
		return m.startRescan()

	case "esc":
		if m.currentView == ViewLogs && m.logState.searchRegex != nil {
			m.clearLogSearch()
			m.updateLogViewport()
			return m, nil
		}
		m.currentView = ViewFleet
		m.focusedPane = 0
		m.updateDetailViewport()
		return m, nil
	}

	// View-specific keys
	switch m.currentView {
	case ViewFleet:
		return m.handleFleetKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

// toggleFocus cycles focus forward: fleet table, detail pane, logs.
func (m *Model) toggleFocus() {
	switch m.currentView {
	case ViewFleet:
		if m.focusedPane == 0 {
			m.focusedPane = 1
		} else {
			m.currentView = ViewLogs
			m.focusedPane = 0
		}
	case ViewLogs:
		m.currentView = ViewFleet
		m.focusedPane = 0
	}
}

// toggleFocusReverse cycles focus backward.
func (m *Model) toggleFocusReverse() {
	switch m.currentView {
	case ViewFleet:
		if m.focusedPane == 1 {
			m.focusedPane = 0
		} else {
			m.currentView = ViewLogs
		}
	case ViewLogs:
		m.currentView = ViewFleet
		m.focusedPane = 1
	}
}

// cycleFilter cycles through fleet filter modes.
func (m *Model) cycleFilter() {
	switch m.filterMode {
	case FilterAll:
		m.filterMode = FilterPrinting
	case FilterPrinting:
		m.filterMode = FilterAttention
	default:
		m.filterMode = FilterAll
	}
}

// filterLabel returns the display label for the current filter mode.
func (m *Model) filterLabel() string {
	switch m.filterMode {
	case FilterPrinting:
		return "Printing"
	case FilterAttention:
		return "Attention"
	default:
		return "All"
	}
}

// startRescan kicks off a discovery sweep unless one is pointless.
func (m Model) startRescan() (tea.Model, tea.Cmd) {
	if m.rescan == nil {
		m.setFlash("discovery is disabled", true)
		return m, nil
	}
	m.setFlash("rescanning the network...", false)
	return m, m.rescanCmd()
}

// handleTick processes the polling tick.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.store != nil {
		cmds = append(cmds, fetchFleetCmd(m.store))
	}

	// Refresh logs while the log view follows the file
	if m.currentView == ViewLogs && m.logState.follow {
		cmds = append(cmds, readLogsCmd(m.logPath))
	}

	if m.flash != "" && time.Now().After(m.flashExpires) {
		m.flash = ""
	}

	cmds = append(cmds, tickCmd(m.pollTick))

	return m, tea.Batch(cmds...)
}

// savePrefs persists the current theme and fleet filter. Write failures
// cost at most one forgotten preference, so they are not surfaced.
func (m *Model) savePrefs() {
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:       m.theme.Name,
		FleetFilter: m.filterMode.prefValue(),
	})
}

// setFlash shows transient feedback in the command bar.
func (m *Model) setFlash(text string, isError bool) {
	m.flash = text
	m.flashIsError = isError
	m.flashExpires = time.Now().Add(flashDuration)
}

// activeFlash returns the flash text if it has not expired yet.
func (m Model) activeFlash() (string, bool) {
	if m.flash == "" || time.Now().After(m.flashExpires) {
		return "", false
	}
	return m.flash, m.flashIsError
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	switch m.currentView {
	case ViewLogs:
		b.WriteString(m.renderLogs())
	default:
		b.WriteString(m.renderFleet())
	}

	return b.String()
}

// Messages

type tickMsg time.Time

type fleetMsg []state.PrinterState

type logLinesMsg []string

type logErrorMsg struct{ err error }

type rescanDoneMsg struct{ err error }

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func fetchFleetCmd(store *state.Store) tea.Cmd {
	return func() tea.Msg {
		return fleetMsg(store.Fleet())
	}
}

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		lines, err := logtail.Read(path, logReadLimit)
		if err != nil {
			return logErrorMsg{err: err}
		}
		return logLinesMsg(lines)
	}
}

func (m Model) rescanCmd() tea.Cmd {
	rescan := m.rescan
	ctx := m.ctx
	return func() tea.Msg {
		scanCtx, cancel := context.WithTimeout(ctx, rescanBudget)
		defer cancel()
		return rescanDoneMsg{err: rescan(scanCtx)}
	}
}

// Run starts the Bubble Tea program and blocks until the user quits or the
// context is cancelled.
func Run(opts Options) error {
	m := New(opts)
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if err != nil && ctx.Err() != nil {
		// A shutdown signal, not a UI failure.
		return nil
	}
	return err
}
