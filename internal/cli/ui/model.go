package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PaddyThePaddy/crlf/internal/cli/hooks"
	"github.com/PaddyThePaddy/crlf/pkg/converter"
)

const listHeightMargin = 4

const (
	phaseInitializing = "Initializing..."
	phaseScanning     = "Scanning..."
	phaseProcessing   = "Processing..."
	phaseComplete     = "Complete"
)

// listUpdateInterval caps list refreshes to about 20 per second.
const listUpdateInterval = 50 * time.Millisecond

// Model is the TUI state: the file list, the spinner and the running summary.
// bubbletea calls Update and View from a single goroutine.
type Model struct {
	list    list.Model
	spinner spinner.Model
	width   int
	height  int
	// initialized is set once the first WindowSizeMsg arrived.
	initialized bool

	version string
	action  converter.Action

	fileItems []listItem
	itemMap   map[string]int

	summary      Summary
	phaseMessage string
	fatalError   string
	quitting     bool
	// updatePending is set while an UpdateListMsg is scheduled.
	updatePending bool
}

// listItem is one file row in the list.
type listItem struct {
	path     string
	status   converter.Status
	message  string
	ending   string
	duration time.Duration
}

// Summary holds the counts shown in the footer.
type Summary struct {
	TotalFilesScanned int
	ChangedCount      int
	UnchangedCount    int
	MeasuredCount     int
	CachedCount       int
	SkippedCount      int
	ErrorCount        int
	CRLFFiles         int
	LFFiles           int
	MixedFiles        int
	StartTime         time.Time
	// Elapsed is frozen when the run completes.
	Elapsed time.Duration
}

// UpdateListMsg asks the model to copy its items into the list component.
type UpdateListMsg struct{}

// NewModel creates the TUI model for one run of action.
func NewModel(version string, action converter.Action) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorStatusProcessing)

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = true
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(ColorSelectedDescFg).
		Background(ColorSelectedBg).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)
	delegate.Styles.NormalDesc = delegate.Styles.NormalDesc.
		Foreground(ColorNormalDescFg).Padding(0, 0, 0, 1)

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetShowFilter(false)
	l.SetFilteringEnabled(false)
	l.DisableQuitKeybindings()

	if version == "" {
		version = "dev"
	}
	return &Model{
		list:         l,
		spinner:      s,
		version:      version,
		action:       action,
		summary:      Summary{StartTime: time.Now()},
		phaseMessage: phaseInitializing,
		fileItems:    make([]listItem, 0, 256),
		itemMap:      make(map[string]int),
	}
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles terminal input and the messages sent by the CLI hooks.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		listHeight := m.height - listHeightMargin
		if listHeight < 1 {
			listHeight = 1
		}
		m.list.SetSize(m.width, listHeight)
		m.initialized = true
		return m, nil

	case tea.KeyMsg:
		if m.quitting {
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}
		var listCmd tea.Cmd
		m.list, listCmd = m.list.Update(msg)
		cmds = append(cmds, listCmd)

	case spinner.TickMsg:
		if m.quitting || m.phaseMessage == phaseComplete {
			return m, nil
		}
		var spinnerCmd tea.Cmd
		m.spinner, spinnerCmd = m.spinner.Update(msg)
		cmds = append(cmds, spinnerCmd)

	case hooks.FileDiscoveredMsg:
		if _, exists := m.itemMap[msg.Path]; !exists {
			m.addItem(listItem{path: msg.Path, status: converter.StatusPending})
			cmds = append(cmds, m.scheduleListUpdate())
		}
		if m.phaseMessage == phaseInitializing {
			m.phaseMessage = phaseScanning
		}

	case hooks.FileStatusUpdateMsg:
		idx, ok := m.itemMap[msg.Path]
		if !ok {
			m.addItem(listItem{path: msg.Path, status: converter.StatusPending})
			idx = len(m.fileItems) - 1
		}
		item := &m.fileItems[idx]
		if msg.Status.IsFinal() && !item.status.IsFinal() {
			m.countStatus(msg.Status)
		}
		item.status = msg.Status
		item.message = msg.Message
		item.duration = msg.Duration
		cmds = append(cmds, m.scheduleListUpdate())
		if msg.Status == converter.StatusProcessing && m.phaseMessage != phaseProcessing && m.phaseMessage != phaseComplete {
			m.phaseMessage = phaseProcessing
		}

	case hooks.RunCompleteMsg:
		m.applyReport(msg.Report)
		cmds = append(cmds, m.scheduleListUpdate())

	case UpdateListMsg:
		m.updatePending = false
		items := make([]list.Item, len(m.fileItems))
		for i, item := range m.fileItems {
			items[i] = item
		}
		cmds = append(cmds, m.list.SetItems(items))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) addItem(item listItem) {
	m.fileItems = append(m.fileItems, item)
	m.itemMap[item.path] = len(m.fileItems) - 1
	m.summary.TotalFilesScanned++
}

func (m *Model) countStatus(status converter.Status) {
	switch status {
	case converter.StatusSuccess:
		if m.action.IsConversion() {
			m.summary.ChangedCount++
		} else {
			m.summary.MeasuredCount++
		}
	case converter.StatusUnchanged:
		m.summary.UnchangedCount++
	case converter.StatusCached:
		m.summary.CachedCount++
	case converter.StatusSkipped:
		m.summary.SkippedCount++
	case converter.StatusFailed:
		m.summary.ErrorCount++
	}
}

// applyReport replaces the running counts with the final ones and labels
// every measured file with its ending.
func (m *Model) applyReport(report converter.Report) {
	s := report.Summary
	m.phaseMessage = phaseComplete
	m.summary.ChangedCount = s.ConvertedCount
	m.summary.UnchangedCount = s.UnchangedCount
	m.summary.CachedCount = s.CachedCount
	m.summary.SkippedCount = s.SkippedCount
	m.summary.ErrorCount = s.ErrorCount
	m.summary.CRLFFiles = s.CRLFFiles
	m.summary.LFFiles = s.LFFiles
	m.summary.MixedFiles = s.MixedFiles
	if !m.action.IsConversion() {
		m.summary.MeasuredCount = s.TotalFiles - s.CachedCount
	}
	m.summary.Elapsed = time.Duration(s.DurationSeconds * float64(time.Second))

	for _, f := range report.Files {
		if idx, ok := m.itemMap[f.Path]; ok {
			m.fileItems[idx].ending = f.Ending
			m.fileItems[idx].status = f.Status
		}
	}

	if s.FatalError {
		m.fatalError = "Run halted due to fatal error."
		for _, e := range report.Errors {
			if e.IsFatal {
				m.fatalError = fmt.Sprintf("Fatal Error: %s (%s)", e.Error, e.Path)
				break
			}
		}
	}
}

// scheduleListUpdate throttles list refreshes: at most one UpdateListMsg is
// in flight, and it picks up every change made before it fires.
func (m *Model) scheduleListUpdate() tea.Cmd {
	if m.updatePending {
		return nil
	}
	m.updatePending = true
	return tea.Tick(listUpdateInterval, func(time.Time) tea.Msg {
		return UpdateListMsg{}
	})
}
