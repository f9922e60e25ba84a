package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeff-barlow-spady/mediascribe/config"
	"github.com/jeff-barlow-spady/mediascribe/internal/clipboard"
	"github.com/jeff-barlow-spady/mediascribe/pkg/app"
	"github.com/jeff-barlow-spady/mediascribe/pkg/logger"
	"github.com/jeff-barlow-spady/mediascribe/pkg/models"
	"github.com/jeff-barlow-spady/mediascribe/pkg/transcription"
)

const appVersion = "v0.1.0"

// Define some styles
var (
	appStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#61E3FA")).
			Background(lipgloss.Color("#1E1E2E")).
			Padding(0, 2)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A9B1D6"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ECE6A")).
			MarginTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F7768E"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9ECE6A"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0AF68")).
			Bold(true)

	frameStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7AA2F7")).
			Padding(0, 1)
)

type statusMsg string

type logMsg string

type progressMsg float64

type confirmMsg struct {
	names []string
	reply chan bool
}

type jobDoneMsg struct {
	task string
	text string
	err  error
}

// TerminalModel is the TUI model
type TerminalModel struct {
	svc  *app.Service
	send func(tea.Msg)

	spinner  spinner.Model
	progress progress.Model
	status   app.Status
	cursor   int

	busy          bool
	task          string
	fraction      float64
	cancel        context.CancelFunc
	confirm       *confirmMsg
	statusMessage string
	errorMessage  string
	logMessages   []string
	maxLogLines   int
	width         int
}

// NewTerminalModel creates a TUI model over svc
func NewTerminalModel(svc *app.Service) *TerminalModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ECE6A"))

	m := &TerminalModel{
		svc:           svc,
		spinner:       s,
		progress:      progress.New(progress.WithDefaultGradient()),
		statusMessage: "Ready",
		maxLogLines:   6,
		width:         80,
	}
	m.refresh()
	for i, st := range m.status.Models {
		if st.Name == m.status.Model {
			m.cursor = i
		}
	}
	return m
}

// Init initializes the model
func (m *TerminalModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *TerminalModel) refresh() {
	m.status = m.svc.Status()
}

func (m *TerminalModel) addLog(line string) {
	m.logMessages = append([]string{line}, m.logMessages...)
	if len(m.logMessages) > m.maxLogLines {
		m.logMessages = m.logMessages[:m.maxLogLines]
	}
}

func (m *TerminalModel) emit(msg tea.Msg) {
	if m.send != nil {
		m.send(msg)
	}
}

// Update updates the model based on messages
func (m *TerminalModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = clampWidth(msg.Width - 8)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case statusMsg:
		m.statusMessage = string(msg)
		m.refresh()

	case logMsg:
		m.addLog(string(msg))

	case progressMsg:
		m.fraction = float64(msg)

	case confirmMsg:
		m.confirm = &msg

	case jobDoneMsg:
		m.busy = false
		m.task = ""
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		switch {
		case errors.Is(msg.err, app.ErrCancelled):
			m.statusMessage = "Cancelled"
		case msg.err != nil:
			report := m.svc.ReportError(msg.task+" failed", msg.err)
			m.errorMessage = fmt.Sprintf("%s: %v\n%s\nDetails: %s", report.Context, report.Err, report.Hint, report.LogPath)
			m.statusMessage = msg.task + " failed"
		default:
			m.fraction = 1
			m.errorMessage = ""
			m.statusMessage = msg.text
		}
		m.refresh()
	}

	return m, nil
}

func (m *TerminalModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm != nil {
		switch msg.String() {
		case "y", "Y":
			m.confirm.reply <- true
			m.confirm = nil
		case "n", "N", "esc":
			m.confirm.reply <- false
			m.confirm = nil
		}
		return m, nil
	}

	switch msg.String() {
	case "ctrl+c", "q":
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case "esc":
		if m.cancel != nil {
			m.cancel()
			m.statusMessage = "Stopping..."
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.status.Models)-1 {
			m.cursor++
		}
	case "enter":
		m.selectCursor()
	case "tab":
		if m.busy {
			return m, nil
		}
		next := nextDevice(m.status.Device)
		if err := m.svc.SetDevicePreference(next); err != nil {
			m.errorMessage = err.Error()
		}
		m.refresh()
	case "r":
		m.refresh()
		m.statusMessage = "Refreshed"
	case "c":
		dir := m.svc.Paths().OutputDir
		if err := clipboard.SetText(dir); err != nil {
			m.errorMessage = "Copy failed: " + err.Error()
		} else {
			m.statusMessage = "Copied: " + dir
		}
	case "d":
		if m.busy || !m.selectCursor() {
			return m, nil
		}
		if m.status.ModelReady {
			m.statusMessage = fmt.Sprintf("Model %s is already installed", m.status.Model)
			return m, nil
		}
		return m, m.start("Download", m.downloadJob)
	case "s":
		if m.busy {
			return m, nil
		}
		return m, m.start("Processing", m.processJob)
	}
	return m, nil
}

// selectCursor makes the highlighted model the selected one
func (m *TerminalModel) selectCursor() bool {
	if m.busy || m.cursor >= len(m.status.Models) {
		return false
	}
	name := m.status.Models[m.cursor].Name
	if name != m.status.Model {
		if err := m.svc.SelectModel(name); err != nil {
			m.errorMessage = err.Error()
			return false
		}
		m.refresh()
	}
	return true
}

// start runs job as a bubbletea command
func (m *TerminalModel) start(task string, job func(ctx context.Context) (string, error)) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	m.busy = true
	m.task = task
	m.cancel = cancel
	m.fraction = 0
	m.errorMessage = ""
	m.statusMessage = task + "..."

	errorLog := m.svc.Paths().ErrorLog
	return func() (msg tea.Msg) {
		defer logger.Recover(errorLog, func(err error) {
			msg = jobDoneMsg{task: task, err: err}
		})
		text, err := job(ctx)
		return jobDoneMsg{task: task, text: text, err: err}
	}
}

func (m *TerminalModel) downloadJob(ctx context.Context) (string, error) {
	name := m.svc.Model().Name
	err := m.svc.DownloadModel(ctx, func(p models.Progress) {
		m.emit(progressMsg(p.Fraction))
		m.emit(statusMsg(downloadText(name, p)))
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Model %s installed", name), nil
}

func (m *TerminalModel) processJob(ctx context.Context) (string, error) {
	result, err := m.svc.Process(ctx, app.ProcessHooks{
		Confirm: func(names []string) bool {
			if m.send == nil {
				return false
			}
			reply := make(chan bool, 1)
			m.send(confirmMsg{names: names, reply: reply})
			select {
			case ok := <-reply:
				return ok
			case <-ctx.Done():
				return false
			}
		},
		Status: func(msg string) {
			m.emit(logMsg(msg))
		},
		Progress: func(e transcription.Event) {
			m.emit(progressMsg(e.Overall))
			m.emit(statusMsg(eventText(e)))
		},
	})
	if err != nil {
		return "", err
	}
	text := fmt.Sprintf("Processed %d file(s) on %s", result.Files, strings.ToUpper(result.Device))
	if result.FellBack {
		text += " (CPU fallback)"
	}
	return text, nil
}

// nextDevice cycles Auto -> GPU -> CPU -> Auto
func nextDevice(current string) string {
	for i, d := range config.DevicePreferences {
		if d == current {
			return config.DevicePreferences[(i+1)%len(config.DevicePreferences)]
		}
	}
	return config.DeviceAuto
}

func clampWidth(w int) int {
	switch {
	case w < 20:
		return 20
	case w > 80:
		return 80
	}
	return w
}

// View renders the TUI
func (m *TerminalModel) View() string {
	var s strings.Builder

	s.WriteString(appStyle.Render("MEDIASCRIBE " + appVersion + "  batch transcriber"))
	s.WriteString("\n\n" + infoStyle.Render(m.status.StatusLine()))

	message := m.status.Message()
	if m.status.Ready {
		s.WriteString("\n" + readyStyle.Render(message))
	} else {
		s.WriteString("\n" + errorStyle.Render(message))
	}

	var list strings.Builder
	for i, st := range m.status.Models {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		line := modelLabel(st)
		if st.Name == m.status.Model {
			line += " [selected]"
		}
		style := errorStyle
		if st.Ready {
			style = readyStyle
		}
		if i > 0 {
			list.WriteString("\n")
		}
		list.WriteString(cursor + style.Render(line))
	}
	list.WriteString("\n\nDevice: " + m.status.Device + " (" + m.status.ActiveDevice + ")")
	s.WriteString("\n" + frameStyle.Width(clampWidth(m.width-4)).Render(list.String()))

	indicator := ""
	if m.busy {
		indicator = m.spinner.View() + " "
	}
	s.WriteString("\n" + statusStyle.Render(indicator+"Status: "+m.statusMessage))
	if m.busy || m.fraction > 0 {
		s.WriteString("\n" + m.progress.ViewAs(m.fraction))
	}

	if m.confirm != nil {
		s.WriteString("\n\n" + promptStyle.Render(overwritePrompt(m.confirm.names)+" [y/n]"))
	}

	if m.errorMessage != "" {
		s.WriteString("\n\n" + errorStyle.Render("Error: "+m.errorMessage))
	}

	if len(m.logMessages) > 0 {
		s.WriteString("\n\nLog:")
		for _, line := range m.logMessages {
			s.WriteString("\n" + infoStyle.Render("• "+line))
		}
	}

	s.WriteString("\n\n" + infoStyle.Render("↑/↓ model | enter select | d download | tab device | s start | c copy results path | r refresh | esc stop | q quit"))
	return s.String()
}

// logForwarder routes logger output into the TUI log pane
type logForwarder struct {
	send func(tea.Msg)
}

func (w logForwarder) Write(p []byte) (int, error) {
	for _, line := range strings.Split(strings.TrimSpace(string(p)), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			w.send(logMsg(line))
		}
	}
	return len(p), nil
}

// TerminalUI manages the terminal user interface
type TerminalUI struct {
	program *tea.Program
	model   *TerminalModel
}

// NewTerminalUI creates a terminal UI over svc. opts are passed on to bubbletea
// after the alt screen option.
func NewTerminalUI(svc *app.Service, opts ...tea.ProgramOption) *TerminalUI {
	model := NewTerminalModel(svc)
	program := tea.NewProgram(model, append([]tea.ProgramOption{tea.WithAltScreen()}, opts...)...)
	model.send = program.Send
	return &TerminalUI{program: program, model: model}
}

// RunBlocking runs the TUI in the current goroutine. Log output is shown in
// the log pane while it runs.
func (t *TerminalUI) RunBlocking() error {
	logger.EnableColors(false)
	logger.SetOutput(logForwarder{send: t.program.Send})
	defer func() {
		logger.SetOutput(os.Stderr)
		logger.EnableColors(true)
	}()

	if _, err := t.program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

// Stop terminates the terminal UI
func (t *TerminalUI) Stop() {
	t.program.Quit()
}
