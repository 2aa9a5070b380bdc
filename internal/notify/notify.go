package notify

import (
	"context"
	"os/exec"
	"time"

	"github.com/rs/zerolog/log"
)

const appName = "Whisperdeck"

type Notifier interface {
	TranscriptionReady(flow, text string)
	Error(msg string)
}

// New returns the notifier for a notifications.type value.
func New(kind string) Notifier {
	switch kind {
	case "desktop":
		return Desktop{}
	case "none":
		return Nop{}
	default:
		return Log{}
	}
}

// Desktop sends notifications with notify-send.
type Desktop struct {
	// Run executes the notify-send argv. Nil runs the real binary.
	Run func(ctx context.Context, name string, args ...string) error
}

func (d Desktop) TranscriptionReady(flow, text string) {
	d.send("-a", appName, appName+": "+flow+" transcription", preview(text))
}

func (d Desktop) Error(msg string) {
	d.send("-a", appName, "-u", "critical", appName+" error", msg)
}

func (d Desktop) send(args ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	run := d.Run
	if run == nil {
		run = func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		}
	}
	if err := run(ctx, "notify-send", args...); err != nil {
		log.Warn().Err(err).Msg("notify: failed to send notification")
	}
}

// Log writes notifications to the application log.
type Log struct{}

func (Log) TranscriptionReady(flow, text string) {
	log.Info().Str("component", "notify").Str("flow", flow).Str("text", text).Msg("transcription ready")
}

func (Log) Error(msg string) {
	log.Error().Str("component", "notify").Msg(msg)
}

// Nop is a Notifier that does nothing.
type Nop struct{}

func (Nop) TranscriptionReady(flow, text string) {}
func (Nop) Error(msg string)                     {}

const previewLen = 200

func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewLen {
		return text
	}
	return string(r[:previewLen]) + "..."
}
