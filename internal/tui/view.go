package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/whisperdeck/internal/app"
)

// Button is everything a section's button shows for one flow state.
type Button struct {
	Label    string
	Disabled bool
	Loading  bool
	Color    lipgloss.Color
}

func RealtimeButton(s app.RealtimeState) Button {
	if s.Status == app.RealtimeActive {
		return Button{Label: "Stop Realtime Transcribe", Color: ColorButtonStop}
	}
	return Button{Label: "Start Realtime Transcribe", Color: ColorButtonIdle}
}

func FileButton(s app.FileState) Button {
	if s.Busy() {
		return Button{Label: "Transcribing", Disabled: true, Loading: true, Color: ColorButtonIdle}
	}
	return Button{Label: "Transcribe File", Color: ColorButtonIdle}
}

func RecordButton(s app.RecordState) Button {
	switch s.Status {
	case app.RecordTranscribing:
		return Button{Label: "Please wait", Disabled: true, Loading: true, Color: ColorButtonIdle}
	case app.RecordRecording:
		return Button{Label: "Stop recording", Color: ColorButtonStop}
	}
	return Button{Label: "Start voice recording", Color: ColorButtonIdle}
}

// Section is one flow: a key-bound button and the flow's text.
type Section struct {
	Key    string
	Button Button
	Text   string
	Err    error
}

// Sections returns the three flow sections in screen order.
func Sections(snap app.Snapshot) []Section {
	return []Section{
		{Key: "r", Button: RealtimeButton(snap.Realtime), Text: snap.Realtime.Text, Err: snap.Realtime.LastError},
		{Key: "f", Button: FileButton(snap.File), Text: snap.File.Text, Err: snap.File.LastError},
		{Key: "v", Button: RecordButton(snap.Record), Text: snap.Record.Text, Err: snap.Record.LastError},
	}
}

// renderSection draws a section. spin replaces the loading indicator.
func renderSection(sec Section, spin string) string {
	style := styleButton.Background(sec.Button.Color)
	if sec.Button.Disabled {
		style = style.Faint(true)
	}

	button := style.Render(sec.Button.Label)
	if sec.Button.Loading {
		button = lipgloss.JoinHorizontal(lipgloss.Bottom, button, " ", spin)
	}

	var b strings.Builder
	b.WriteString(StyleMuted.Render("["+sec.Key+"] ") + button)
	b.WriteString("\n")
	b.WriteString(StyleLabel.Render("Text: ") + sec.Text)
	if sec.Err != nil {
		b.WriteString("\n")
		b.WriteString(StyleError.Render(fmt.Sprintf("error: %v", sec.Err)))
	}
	return StyleSection.Render(b.String())
}
