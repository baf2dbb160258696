// Package tui provides a Bubble Tea terminal user interface for TubeSync.
package tui

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/tubesync/internal/config"
	"github.com/handiism/tubesync/internal/download"
	"github.com/handiism/tubesync/internal/model"
	"github.com/handiism/tubesync/internal/monitor"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF4E45")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(0, 1)

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500")).
			Bold(true)
)

// Progress bar fill per indicator tone.
var toneColors = map[monitor.Tone]string{
	monitor.ToneProgress: "#4ECDC4",
	monitor.ToneSuccess:  "#95E1A3",
	monitor.ToneFailure:  "#FF6B6B",
}

const (
	maxLogs      = 10
	tickInterval = 100 * time.Millisecond
	eventBuffer  = 64
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateAnalyzing
	StateFormats
	StatePath
	StateDownloads
	StateFetching
	StateError
)

// Focus is the list that cursor keys move in on the formats screen.
type Focus int

const (
	FocusFormats Focus = iota
	FocusEntries
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   model.Level
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	pathInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	manager   *download.Manager
	events    chan model.Event
	logs      []LogEntry
	err       error

	// notice is a one-line result of the last action, cleared on the next key
	notice string

	ctx    context.Context
	cancel context.CancelFunc

	// Formats screen
	info         *model.VideoInfo
	quality      string
	formatCursor int
	focus        Focus
	entryCursor  int
	entries      map[int]bool

	// Downloads screen
	files      []model.DownloadedFile
	fileCursor int
	picked     map[string]bool

	// Last indicator state applied to the progress bar
	indicator monitor.IndicatorState

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model with its own download manager.
func NewModel(settings *config.Settings) (Model, error) {
	ti := textinput.New()
	ti.Placeholder = "https://www.youtube.com/watch?v=..."
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	pi := textinput.New()
	pi.Placeholder = "blank resets to the configured path"
	pi.CharLimit = 500
	pi.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4E45"))

	// The message line carries the percentage
	prog := progress.New(progress.WithSolidFill(toneColors[monitor.ToneProgress]), progress.WithoutPercentage())
	prog.Width = 50

	events := make(chan model.Event, eventBuffer)
	manager, err := download.NewManager(settings, func(event model.Event) {
		// Events arrive from manager goroutines; drop rather than block
		// them when the UI falls behind.
		select {
		case events <- event:
		default:
		}
	}, nil)
	if err != nil {
		return Model{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		pathInput: pi,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		manager:   manager,
		events:    events,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[int]bool),
		picked:    make(map[string]bool),
	}, nil
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForEvent(), m.tickProgress())
}

// Message types
type (
	// ProgressMsg carries one manager event.
	ProgressMsg struct {
		Event model.Event
	}

	// AnalyzeDoneMsg is sent when video info has been fetched.
	AnalyzeDoneMsg struct {
		Info *model.VideoInfo
		Err  error
	}

	// StartDoneMsg is sent when a download or playlist job was started.
	StartDoneMsg struct {
		JobID string
		Err   error
	}

	// SelectedDoneMsg is sent when selected playlist entries were started.
	SelectedDoneMsg struct {
		Selection download.Selection
		Err       error
	}

	// DownloadsMsg carries a reloaded list of finished files.
	DownloadsMsg struct {
		Files []model.DownloadedFile
	}

	// FetchDoneMsg is sent when files were copied to the local machine.
	FetchDoneMsg struct {
		Set *model.LocalSet
		Err error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	before := m.state

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			return m, tea.Quit
		}
		m.notice = ""
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		log.Printf("[%s] %s", msg.Event.Level, msg.Event.Message)
		m.addLog(msg.Event)
		cmds = append(cmds, m.waitForEvent())

	case AnalyzeDoneMsg:
		if errors.Is(msg.Err, context.Canceled) {
			m.state = StateInput
			m.textInput.Focus()
			break
		}
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			break
		}
		m.info = msg.Info
		m.quality = ""
		m.formatCursor = 0
		m.focus = FocusFormats
		m.entryCursor = 0
		m.entries = make(map[int]bool)
		m.state = StateFormats

	case StartDoneMsg:
		if msg.Err != nil {
			m.notice = msg.Err.Error()
		}

	case SelectedDoneMsg:
		if msg.Err != nil {
			m.notice = msg.Err.Error()
			break
		}
		m.entries = make(map[int]bool)

	case DownloadsMsg:
		m.files = msg.Files
		m.fileCursor = min(m.fileCursor, max(len(m.files)-1, 0))
		for name := range m.picked {
			if !containsFile(m.files, name) {
				delete(m.picked, name)
			}
		}

	case FetchDoneMsg:
		m.state = StateDownloads
		if msg.Err != nil {
			if !errors.Is(msg.Err, context.Canceled) {
				m.notice = msg.Err.Error()
			}
			break
		}
		m.picked = make(map[string]bool)

	case TickMsg:
		m.indicator = m.manager.Indicator().Snapshot()
		m.progress.FullColor = toneColors[m.indicator.Tone]
		cmds = append(cmds, m.tickProgress())
	}

	// Update text inputs, unless the message moved to another screen
	if m.state != before {
		return m, tea.Batch(cmds...)
	}
	switch m.state {
	case StateInput:
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	case StatePath:
		var cmd tea.Cmd
		m.pathInput, cmd = m.pathInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	key := msg.String()

	switch m.state {
	case StateInput:
		switch key {
		case "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			m.state = StateAnalyzing
			return m, m.analyze(m.textInput.Value())
		case "ctrl+o":
			m.verbose = !m.verbose
		}

	case StateAnalyzing, StateFetching:
		if key == "esc" {
			m.cancel()
			m.ctx, m.cancel = context.WithCancel(context.Background())
		}

	case StateFormats:
		return m.handleFormatsKey(key)

	case StatePath:
		switch key {
		case "esc":
			m.pathInput.Blur()
			m.state = StateFormats
		case "enter":
			if m.pathInput.Value() == "" {
				m.manager.ResetDownloadPath()
			} else {
				m.manager.SetDownloadPath(m.pathInput.Value())
			}
			m.pathInput.Blur()
			m.state = StateFormats
		}

	case StateDownloads:
		return m.handleDownloadsKey(key)

	case StateError:
		switch key {
		case "q":
			m.cancel()
			return m, tea.Quit
		case "r", "esc":
			m.state = StateInput
			m.err = nil
			m.textInput.SetValue("")
			m.textInput.Focus()
		}
	}

	return m, nil
}

func (m Model) handleFormatsKey(key string) (Model, tea.Cmd) {
	formats := m.manager.Formats(m.quality)
	playlist := m.info != nil && m.info.IsPlaylist

	switch key {
	case "esc":
		m.state = StateInput
		m.textInput.Focus()
	case "q":
		m.cancel()
		return m, tea.Quit
	case "up", "k":
		if m.focus == FocusEntries {
			m.entryCursor = max(m.entryCursor-1, 0)
		} else {
			m.formatCursor = max(m.formatCursor-1, 0)
		}
	case "down", "j":
		if m.focus == FocusEntries {
			m.entryCursor = min(m.entryCursor+1, max(len(m.info.PlaylistEntries)-1, 0))
		} else {
			m.formatCursor = min(m.formatCursor+1, max(len(formats)-1, 0))
		}
	case "tab":
		if playlist && len(m.info.PlaylistEntries) > 0 {
			if m.focus == FocusFormats {
				m.focus = FocusEntries
			} else {
				m.focus = FocusFormats
			}
		}
	case " ", "space":
		if m.focus == FocusEntries {
			m.entries[m.entryCursor] = !m.entries[m.entryCursor]
		}
	case "f":
		m.quality = nextQuality(m.manager.Qualities(), m.quality)
		m.formatCursor = 0
	case "t":
		if m.manager.DownloadType() == model.DownloadAudio {
			m.manager.SetDownloadType(model.DownloadVideo)
		} else {
			m.manager.SetDownloadType(model.DownloadAudio)
		}
	case "o":
		m.pathInput.SetValue(m.manager.DownloadPath())
		m.pathInput.Focus()
		m.state = StatePath
		return m, textinput.Blink
	case "enter":
		if len(formats) == 0 {
			return m, nil
		}
		id := formats[m.formatCursor].FormatID
		if playlist {
			return m, m.startPlaylist(id)
		}
		return m, m.startDownload(id)
	case "s":
		if playlist && len(formats) > 0 {
			return m, m.startSelected(m.selectedEntryURLs(), formats[m.formatCursor].FormatID)
		}
	case "c":
		if err := m.manager.Cancel(m.ctx); err != nil {
			m.notice = err.Error()
		}
	case "l":
		m.state = StateDownloads
		return m, m.refresh()
	}
	return m, nil
}

func (m Model) handleDownloadsKey(key string) (Model, tea.Cmd) {
	switch key {
	case "esc":
		if m.info != nil {
			m.state = StateFormats
		} else {
			m.state = StateInput
			m.textInput.Focus()
		}
	case "q":
		m.cancel()
		return m, tea.Quit
	case "up", "k":
		m.fileCursor = max(m.fileCursor-1, 0)
	case "down", "j":
		m.fileCursor = min(m.fileCursor+1, max(len(m.files)-1, 0))
	case " ", "space":
		if len(m.files) > 0 {
			name := m.files[m.fileCursor].Name
			m.picked[name] = !m.picked[name]
		}
	case "a":
		all := len(m.picked) < len(m.files)
		m.picked = make(map[string]bool)
		if all {
			for _, f := range m.files {
				m.picked[f.Name] = true
			}
		}
	case "r":
		return m, m.refresh()
	case "f":
		names := m.pickedNames()
		if len(names) == 0 && len(m.files) > 0 {
			names = []string{m.files[m.fileCursor].Name}
		}
		if len(names) == 0 {
			return m, nil
		}
		m.state = StateFetching
		return m, m.fetch(names)
	}
	return m, nil
}

func (m *Model) addLog(event model.Event) {
	if event.Level == model.LevelVerbose && !m.verbose {
		return
	}
	m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) shutdown() {
	m.cancel()
	m.manager.Close()
}

func (m Model) selectedEntryURLs() []string {
	var urls []string
	for i, e := range m.info.PlaylistEntries {
		if m.entries[i] {
			urls = append(urls, e.WatchURL())
		}
	}
	return urls
}

// pickedNames returns the picked files in list order.
func (m Model) pickedNames() []string {
	var names []string
	for _, f := range m.files {
		if m.picked[f.Name] {
			names = append(names, f.Name)
		}
	}
	return names
}

// nextQuality cycles "" (all) through each quality and back to "".
func nextQuality(qualities []string, current string) string {
	if current == "" {
		if len(qualities) == 0 {
			return ""
		}
		return qualities[0]
	}
	for i, q := range qualities {
		if q == current && i+1 < len(qualities) {
			return qualities[i+1]
		}
	}
	return ""
}

func containsFile(files []model.DownloadedFile, name string) bool {
	for _, f := range files {
		if f.Name == name {
			return true
		}
	}
	return false
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(tickInterval, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// waitForEvent returns a command that delivers the next manager event.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

func (m Model) analyze(url string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		info, err := manager.Analyze(ctx, url)
		return AnalyzeDoneMsg{Info: info, Err: err}
	}
}

func (m Model) startDownload(formatID string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		id, err := manager.StartDownload(ctx, formatID)
		return StartDoneMsg{JobID: id, Err: err}
	}
}

func (m Model) startPlaylist(formatID string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		id, err := manager.StartPlaylist(ctx, formatID, 0)
		return StartDoneMsg{JobID: id, Err: err}
	}
}

func (m Model) startSelected(urls []string, formatID string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		sel, err := manager.StartSelected(ctx, urls, formatID)
		return SelectedDoneMsg{Selection: sel, Err: err}
	}
}

func (m Model) refresh() tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		return DownloadsMsg{Files: manager.RefreshDownloads(ctx)}
	}
}

func (m Model) fetch(names []string) tea.Cmd {
	ctx, manager := m.ctx, m.manager
	return func() tea.Msg {
		set, err := manager.Fetch(ctx, names)
		return FetchDoneMsg{Set: set, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings) error {
	m, err := NewModel(settings)
	if err != nil {
		return err
	}
	defer m.shutdown()

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
