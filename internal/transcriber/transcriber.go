package transcriber

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/leonardotrapani/whisperdeck/internal/recording"
	"github.com/rs/zerolog/log"
)

// ErrEngineInit wraps every failure to produce an Engine.
var ErrEngineInit = errors.New("engine initialization failed")

const (
	ProviderWhisperCpp = "whisper-cpp"
	ProviderOpenAI     = "openai"
)

// BatchAdapter transcribes one complete audio file.
type BatchAdapter interface {
	TranscribeFile(ctx context.Context, path string, opts Options) (string, error)
}

// InitConfig describes how to build an Engine.
type InitConfig struct {
	ModelPath      string
	IsBundledAsset bool   // ModelPath is relative to AssetsDir
	AssetsDir      string
	Provider       string
	APIKey         string
	OpenAIModel    string
	Capture        recording.Config // microphone settings for realtime sessions
	Step           time.Duration    // realtime partial update interval
}

// Options configure a one-shot transcription.
type Options struct {
	Language   string
	MaxThreads int
}

// Source is an audio input: a bundled asset or a file on disk.
type Source struct {
	Path    string
	Bundled bool
}

func BundledAsset(name string) Source { return Source{Path: name, Bundled: true} }

// FileURI accepts plain paths and file:// URIs.
func FileURI(uri string) Source { return Source{Path: strings.TrimPrefix(uri, "file://")} }

func (s Source) String() string {
	if s.Bundled {
		return "asset:" + s.Path
	}
	return s.Path
}

// Engine is the shared, initialized speech engine. It is safe for concurrent use.
type Engine struct {
	assetsDir string
	adapter   BatchAdapter
	capture   recording.Config
	newSource func(recording.Config) recording.FrameSource
	step      time.Duration
}

// Init resolves the model and builds the backend named by cfg.Provider.
func Init(ctx context.Context, cfg InitConfig) (*Engine, error) {
	modelPath := cfg.ModelPath
	if cfg.IsBundledAsset && modelPath != "" && !filepath.IsAbs(modelPath) {
		modelPath = filepath.Join(cfg.AssetsDir, modelPath)
	}

	var adapter BatchAdapter
	switch cfg.Provider {
	case ProviderWhisperCpp, "":
		if err := checkModelFile(modelPath); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrEngineInit, err)
		}
		adapter = NewWhisperCppAdapter(modelPath)
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: OpenAI API key required", ErrEngineInit)
		}
		adapter = NewOpenAIAdapter(cfg.APIKey, cfg.OpenAIModel)
	default:
		return nil, fmt.Errorf("%w: unsupported provider: %s", ErrEngineInit, cfg.Provider)
	}

	log.Info().Str("provider", cfg.Provider).Str("model", modelPath).Msg("engine: initialized")

	e := New(adapter, cfg.Capture, func(c recording.Config) recording.FrameSource {
		return recording.NewRecorder(c)
	})
	e.assetsDir = cfg.AssetsDir
	if cfg.Step > 0 {
		e.step = cfg.Step
	}
	return e, nil
}

// New builds an Engine around an adapter and a capture source factory.
func New(adapter BatchAdapter, capture recording.Config, newSource func(recording.Config) recording.FrameSource) *Engine {
	return &Engine{
		adapter:   adapter,
		capture:   capture,
		newSource: newSource,
		step:      time.Second,
	}
}

// Transcribe starts a one-shot transcription of src. The returned Job carries
// the cancel handle and the eventual result.
func (e *Engine) Transcribe(ctx context.Context, src Source, opts Options) *Job {
	return NewJob(ctx, func(ctx context.Context) (Result, error) {
		path := e.resolve(src)
		if _, err := os.Stat(path); err != nil {
			return Result{}, fmt.Errorf("audio source %s: %w", src, err)
		}

		log.Info().Str("source", src.String()).Msg("engine: file transcribe started")
		start := time.Now()
		text, err := e.adapter.TranscribeFile(ctx, path, opts)
		if err != nil {
			return Result{}, err
		}
		log.Info().Str("source", src.String()).Dur("took", time.Since(start)).
			Str("text", text).Msg("engine: file transcribe result")
		return Result{Text: text}, nil
	})
}

func (e *Engine) resolve(src Source) string {
	if src.Bundled && !filepath.IsAbs(src.Path) {
		return filepath.Join(e.assetsDir, src.Path)
	}
	return src.Path
}

// transcribePCM writes pcm to a temporary WAV file and runs the adapter on it.
func (e *Engine) transcribePCM(ctx context.Context, pcm []byte, opts Options) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}

	f, err := os.CreateTemp("", "whisperdeck-slice-*.wav")
	if err != nil {
		return "", fmt.Errorf("temp file: %w", err)
	}
	path := f.Name()
	f.Close()
	defer os.Remove(path)

	if err := recording.WriteWAVFile(path, pcm, e.capture.SampleRate, e.capture.Channels); err != nil {
		return "", err
	}
	return e.adapter.TranscribeFile(ctx, path, opts)
}

func checkModelFile(path string) error {
	if path == "" {
		return errors.New("model path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("model file: %w", err)
	}
	if !info.Mode().IsRegular() || info.Size() == 0 {
		return fmt.Errorf("model file is empty or not a regular file: %s", path)
	}
	return nil
}
