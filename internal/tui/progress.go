package tui

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/leonardotrapani/whisperdeck/internal/app"
)

const downloadProgressLabel = "Remote Download Progress:"

// DownloadProgressText renders the model download line. It is empty while
// nothing has been downloaded, so a bundled model never shows it.
func DownloadProgressText(m app.ModelReadiness) string {
	if m.DownloadProgressPercent <= 0 {
		return ""
	}
	text := fmt.Sprintf("%s %.1f%%", downloadProgressLabel, m.DownloadProgressPercent)
	if m.BytesTotal > 0 {
		text += fmt.Sprintf(" (%s / %s)", humanize.Bytes(uint64(m.BytesWritten)), humanize.Bytes(uint64(m.BytesTotal)))
	}
	return text
}

func renderDownloadProgress(m app.ModelReadiness) string {
	text := DownloadProgressText(m)
	if text == "" {
		return ""
	}
	value := text[len(downloadProgressLabel):]
	return StyleLabel.Render(downloadProgressLabel) + StyleProgressValue.Render(value)
}
