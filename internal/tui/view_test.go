package tui

import (
	"errors"
	"strings"
	"testing"

	"github.com/leonardotrapani/whisperdeck/internal/app"
)

func TestRealtimeButton(t *testing.T) {
	tests := []struct {
		name   string
		status app.RealtimeStatus
		label  string
		color  string
	}{
		{"idle", app.RealtimeIdle, "Start Realtime Transcribe", string(ColorButtonIdle)},
		{"active", app.RealtimeActive, "Stop Realtime Transcribe", string(ColorButtonStop)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := RealtimeButton(app.RealtimeState{Status: tt.status})
			if b.Label != tt.label {
				t.Errorf("Label = %q, want %q", b.Label, tt.label)
			}
			if string(b.Color) != tt.color {
				t.Errorf("Color = %q, want %q", b.Color, tt.color)
			}
			if b.Disabled {
				t.Error("realtime button should never be disabled")
			}
		})
	}
}

func TestFileButton(t *testing.T) {
	idle := FileButton(app.FileState{Status: app.FileIdle})
	if idle.Label != "Transcribe File" || idle.Disabled || idle.Loading {
		t.Errorf("idle button = %+v", idle)
	}

	busy := FileButton(app.FileState{Status: app.FileTranscribing})
	if busy.Label != "Transcribing" || !busy.Disabled || !busy.Loading {
		t.Errorf("busy button = %+v", busy)
	}
}

func TestRecordButton(t *testing.T) {
	tests := []struct {
		status   app.RecordStatus
		label    string
		disabled bool
		stop     bool
	}{
		{app.RecordIdle, "Start voice recording", false, false},
		{app.RecordRecording, "Stop recording", false, true},
		{app.RecordTranscribing, "Please wait", true, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			b := RecordButton(app.RecordState{Status: tt.status})
			if b.Label != tt.label {
				t.Errorf("Label = %q, want %q", b.Label, tt.label)
			}
			if b.Disabled != tt.disabled {
				t.Errorf("Disabled = %v, want %v", b.Disabled, tt.disabled)
			}
			if (b.Color == ColorButtonStop) != tt.stop {
				t.Errorf("Color = %q", b.Color)
			}
		})
	}
}

func TestSections(t *testing.T) {
	snap := app.Snapshot{
		Realtime: app.RealtimeState{Status: app.RealtimeActive, Text: "live"},
		File:     app.FileState{Status: app.FileIdle, Text: "from file"},
		Record:   app.RecordState{Status: app.RecordIdle, Text: "from mic", LastError: errors.New("mic gone")},
	}

	sections := Sections(snap)
	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(sections))
	}

	keys := []string{"r", "f", "v"}
	texts := []string{"live", "from file", "from mic"}
	for i, sec := range sections {
		if sec.Key != keys[i] {
			t.Errorf("section %d key = %q, want %q", i, sec.Key, keys[i])
		}
		if sec.Text != texts[i] {
			t.Errorf("section %d text = %q, want %q", i, sec.Text, texts[i])
		}
	}
	if sections[2].Err == nil {
		t.Error("record section should carry its error")
	}
}

func TestRenderSection(t *testing.T) {
	sec := Section{
		Key:    "f",
		Button: FileButton(app.FileState{Status: app.FileTranscribing}),
		Text:   "partial words",
		Err:    errors.New("boom"),
	}

	out := renderSection(sec, "SPIN")
	for _, want := range []string{"Transcribing", "SPIN", "partial words", "boom", "[f]"} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered section missing %q:\n%s", want, out)
		}
	}

	idle := renderSection(Section{Key: "f", Button: FileButton(app.FileState{})}, "SPIN")
	if strings.Contains(idle, "SPIN") {
		t.Error("idle button should not show the spinner")
	}
}
