package deps

import (
	"context"
	"os/exec"
	"strings"
	"time"
)

const versionTimeout = 3 * time.Second

// Tool is an external program a flow shells out to.
type Tool struct {
	Binary     string
	VersionArg string // empty when the tool has no version flag
	Purpose    string
}

// Status represents the installation status of a dependency
type Status struct {
	Tool      Tool
	Installed bool
	Path      string
	Version   string
}

var (
	PwRecord   = Tool{Binary: "pw-record", VersionArg: "--version", Purpose: "microphone capture"}
	PwCli      = Tool{Binary: "pw-cli", VersionArg: "--version", Purpose: "PipeWire availability check"}
	WhisperCli = Tool{Binary: "whisper-cli", VersionArg: "--version", Purpose: "local whisper.cpp transcription"}
	NotifySend = Tool{Binary: "notify-send", VersionArg: "--version", Purpose: "desktop notifications"}
)

// Required lists the tools needed for an engine provider and notification type.
func Required(provider, notifications string) []Tool {
	tools := []Tool{PwRecord, PwCli}
	if provider == "whisper-cpp" {
		tools = append(tools, WhisperCli)
	}
	if notifications == "desktop" {
		tools = append(tools, NotifySend)
	}
	return tools
}

// Check looks the tool up in PATH and reads the first line of its version output.
func Check(t Tool) Status {
	path, err := exec.LookPath(t.Binary)
	if err != nil {
		return Status{Tool: t, Installed: false}
	}

	status := Status{
		Tool:      t,
		Installed: true,
		Path:      path,
	}
	if t.VersionArg == "" {
		return status
	}

	ctx, cancel := context.WithTimeout(context.Background(), versionTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, path, t.VersionArg).Output()
	if err == nil {
		lines := strings.Split(string(output), "\n")
		if len(lines) > 0 {
			status.Version = strings.TrimSpace(lines[0])
		}
	}

	return status
}

// CheckAll checks every tool in order.
func CheckAll(tools []Tool) []Status {
	out := make([]Status, 0, len(tools))
	for _, t := range tools {
		out = append(out, Check(t))
	}
	return out
}

// Missing returns the tools that are not installed.
func Missing(statuses []Status) []Tool {
	var missing []Tool
	for _, s := range statuses {
		if !s.Installed {
			missing = append(missing, s.Tool)
		}
	}
	return missing
}
