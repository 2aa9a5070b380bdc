package transcriber

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/leonardotrapani/whisperdeck/internal/language"
	"github.com/rs/zerolog/log"
)

// WhisperCppAdapter implements BatchAdapter by running whisper.cpp's whisper-cli
type WhisperCppAdapter struct {
	modelPath string
	binary    string
}

// NewWhisperCppAdapter creates a whisper-cli adapter for a ggml model file
func NewWhisperCppAdapter(modelPath string) *WhisperCppAdapter {
	return &WhisperCppAdapter{modelPath: modelPath, binary: "whisper-cli"}
}

func (a *WhisperCppAdapter) TranscribeFile(ctx context.Context, path string, opts Options) (string, error) {
	if _, err := os.Stat(a.modelPath); os.IsNotExist(err) {
		return "", fmt.Errorf("model file not found: %s", a.modelPath)
	}

	whisperPath, err := exec.LookPath(a.binary)
	if err != nil {
		return "", fmt.Errorf("%s not found: install whisper.cpp first", a.binary)
	}

	cmd := exec.CommandContext(ctx, whisperPath, a.args(path, opts)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	duration := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Error().Err(err).Dur("took", duration).Str("stderr", stderr.String()).Msg("whisper-cpp: command failed")
		return "", fmt.Errorf("whisper-cli failed: %w", err)
	}

	// with -nt whisper-cli prints only the text
	text := strings.TrimSpace(stdout.String())
	log.Debug().Dur("took", duration).Str("file", path).Msg("whisper-cpp: transcribed")
	return text, nil
}

func (a *WhisperCppAdapter) args(path string, opts Options) []string {
	args := []string{
		"-m", a.modelPath,
		"-l", language.ForProvider(opts.Language, ProviderWhisperCpp),
		"-nt", // no timestamps
		"-np", // no progress
		"-f", path,
	}
	if opts.MaxThreads > 0 {
		args = append(args, "-t", strconv.Itoa(opts.MaxThreads))
	}
	return args
}
