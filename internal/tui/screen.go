package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/whisperdeck/internal/app"
	"github.com/muesli/termenv"
)

// Controller is what the screen drives. *app.Controller implements it.
type Controller interface {
	Init(ctx context.Context) error
	Snapshot() app.Snapshot
	State() *app.State
	ToggleRealtime(ctx context.Context) error
	TranscribeSample(ctx context.Context) (string, error)
	ToggleRecording(ctx context.Context) (string, error)
	Cancel() bool
}

type stateChangedMsg struct{}

type initDoneMsg struct{ err error }

type flowDoneMsg struct {
	flow string
	err  error
}

// Screen is the bubbletea model for the main whisperdeck screen.
type Screen struct {
	ctx     context.Context
	ctrl    Controller
	spinner spinner.Model
	snap    app.Snapshot
	changes <-chan struct{}
	status  string
}

// NewScreen subscribes to ctrl's state. The subscription ends with ctx.
func NewScreen(ctx context.Context, ctrl Controller) Screen {
	changes, cancel := ctrl.State().Subscribe()
	context.AfterFunc(ctx, cancel)

	return Screen{
		ctx:     ctx,
		ctrl:    ctrl,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StyleMuted)),
		snap:    ctrl.Snapshot(),
		changes: changes,
	}
}

func (m Screen) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.initModel(), waitForChange(m.changes))
}

func (m Screen) initModel() tea.Cmd {
	return func() tea.Msg {
		return initDoneMsg{err: m.ctrl.Init(m.ctx)}
	}
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

func (m Screen) runFlow(flow string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		return flowDoneMsg{flow: flow, err: fn(m.ctx)}
	}
}

func (m Screen) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case stateChangedMsg:
		m.snap = m.ctrl.Snapshot()
		return m, waitForChange(m.changes)

	case initDoneMsg:
		m.snap = m.ctrl.Snapshot()
		if msg.err != nil {
			m.status = fmt.Sprintf("model initialization failed: %v", msg.err)
		}
		return m, nil

	case flowDoneMsg:
		m.snap = m.ctrl.Snapshot()
		m.status = flowStatus(msg.flow, msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Screen) handleKey(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	if !m.snap.Model.Ready {
		return m, nil
	}

	m.status = ""
	switch key {
	case "r":
		return m, m.runFlow("realtime", m.ctrl.ToggleRealtime)
	case "f":
		if FileButton(m.snap.File).Disabled {
			return m, nil
		}
		return m, m.runFlow("file", func(ctx context.Context) error {
			_, err := m.ctrl.TranscribeSample(ctx)
			return err
		})
	case "v":
		if RecordButton(m.snap.Record).Disabled {
			return m, nil
		}
		return m, m.runFlow("record", func(ctx context.Context) error {
			_, err := m.ctrl.ToggleRecording(ctx)
			return err
		})
	case "c":
		if !m.ctrl.Cancel() {
			m.status = "nothing to cancel"
		}
	}
	return m, nil
}

// flowStatus is the status line after a flow command returns. Errors the
// section already shows, and user cancellation, produce no status.
func flowStatus(flow string, err error) string {
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return ""
	case errors.Is(err, app.ErrBusy):
		return flow + " is busy"
	case errors.Is(err, app.ErrNotReady):
		return "model is still loading"
	}
	return ""
}

func (m Screen) View() string {
	var b strings.Builder

	if !m.snap.Model.Ready {
		b.WriteString(StyleTitle.Render("Initializing Model..."))
		b.WriteString("\n")
		if m.snap.Model.Err != nil {
			b.WriteString(StyleError.Render(m.snap.Model.Err.Error()))
			b.WriteString("\n")
			b.WriteString(StyleSubtle.Render("restart whisperdeck to try again"))
		} else {
			b.WriteString(m.spinner.View())
		}
		if p := renderDownloadProgress(m.snap.Model); p != "" {
			b.WriteString("\n\n")
			b.WriteString(p)
		}
		b.WriteString("\n\n")
		b.WriteString(StyleSubtle.Render("q quit"))
		return lipgloss.NewStyle().Padding(1, 2).Render(b.String())
	}

	b.WriteString(Logo())
	b.WriteString("\n")
	for _, sec := range Sections(m.snap) {
		b.WriteString(renderSection(sec, m.spinner.View()))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(StyleWarning.Render(m.status))
		b.WriteString("\n")
	}
	b.WriteString(StyleSubtle.Render("r realtime • f transcribe file • v voice recording • c cancel • q quit"))
	return lipgloss.NewStyle().Padding(0, 2).Render(b.String())
}

// Run shows the main screen until the user quits.
func Run(ctx context.Context, ctrl Controller) error {
	lipgloss.SetColorProfile(termenv.NewOutput(os.Stdout).EnvColorProfile())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	_, err := tea.NewProgram(NewScreen(ctx, ctrl), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
