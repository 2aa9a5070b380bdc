package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/whisperdeck/internal/config"
	"github.com/leonardotrapani/whisperdeck/internal/recording"
	"github.com/leonardotrapani/whisperdeck/internal/transcriber"
)

// TestConfig returns a valid configuration whose directories live under t.TempDir.
func TestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	cfg := config.DefaultConfig()
	cfg.Assets.Dir = filepath.Join(dir, "assets")
	cfg.Assets.Sample = "sample.wav"
	cfg.Model.Dir = filepath.Join(dir, "models")
	cfg.Recording.Dir = filepath.Join(dir, "recordings")
	cfg.Realtime.Step = 10 * time.Millisecond
	return cfg
}

// CreateTempConfigFile creates a temporary config file for testing
func CreateTempConfigFile(t *testing.T, configContent string) string {
	t.Helper()

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create temp config file: %v", err)
	}
	return configPath
}

// WaitForCondition polls condition until it holds or timeout passes.
func WaitForCondition(t *testing.T, condition func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// MockAudioFrame creates a test audio frame
func MockAudioFrame(data []byte) recording.AudioFrame {
	if data == nil {
		data = make([]byte, 1024)
		for i := range data {
			data[i] = byte(i % 256)
		}
	}
	return recording.AudioFrame{Data: data, Timestamp: time.Now()}
}

// FakeEngine implements the engine used by the flows.
type FakeEngine struct {
	mu sync.Mutex

	Texts   map[string]string // source path to text; default "hello world"
	Err     error             // returned by every one-shot job
	Block   chan struct{}     // one-shot jobs wait for this when set
	Sources []transcriber.Source

	RealtimeErr error
	FinalText   string // published with IsCapturing=false when a session is stopped
	Sessions    []*transcriber.RealtimeSession
	Stops       int
}

func NewFakeEngine() *FakeEngine {
	return &FakeEngine{Texts: make(map[string]string)}
}

func (f *FakeEngine) Transcribe(ctx context.Context, src transcriber.Source, opts transcriber.Options) *transcriber.Job {
	f.mu.Lock()
	f.Sources = append(f.Sources, src)
	block, jobErr := f.Block, f.Err
	text, ok := f.Texts[src.Path]
	f.mu.Unlock()
	if !ok {
		text = "hello world"
	}

	return transcriber.NewJob(ctx, func(ctx context.Context) (transcriber.Result, error) {
		if block != nil {
			select {
			case <-block:
			case <-ctx.Done():
				return transcriber.Result{}, ctx.Err()
			}
		}
		if jobErr != nil {
			return transcriber.Result{}, jobErr
		}
		return transcriber.Result{Text: text}, nil
	})
}

func (f *FakeEngine) TranscribeRealtime(ctx context.Context, opts transcriber.RealtimeOptions) (*transcriber.RealtimeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.RealtimeErr != nil {
		return nil, f.RealtimeErr
	}

	var s *transcriber.RealtimeSession
	s = transcriber.NewRealtimeSession(func() {
		f.mu.Lock()
		f.Stops++
		final := f.FinalText
		f.mu.Unlock()
		s.Publish(transcriber.Event{IsCapturing: false, PartialText: final})
		s.Close()
	})
	f.Sessions = append(f.Sessions, s)
	return s, nil
}

// LastSession returns the most recent realtime session, or nil.
func (f *FakeEngine) LastSession() *transcriber.RealtimeSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Sessions) == 0 {
		return nil
	}
	return f.Sessions[len(f.Sessions)-1]
}

func (f *FakeEngine) StopCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Stops
}

func (f *FakeEngine) TranscribedSources() []transcriber.Source {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transcriber.Source(nil), f.Sources...)
}

// FakeAudio implements recording.AudioSystem without touching a microphone.
type FakeAudio struct {
	mu sync.Mutex

	Denied        bool
	PermissionErr error
	StartErr      error
	URI           string // URI of every session after stop; empty keeps it empty

	Modes       []recording.Mode
	Sessions    []*FakeSession
	Permissions int
}

func NewFakeAudio() *FakeAudio {
	return &FakeAudio{URI: "file:///tmp/whisperdeck/recording.wav"}
}

func (a *FakeAudio) RequestPermission(ctx context.Context) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Permissions++
	if a.PermissionErr != nil {
		return false, a.PermissionErr
	}
	return !a.Denied, nil
}

func (a *FakeAudio) SetAudioMode(mode recording.Mode) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Modes = append(a.Modes, mode)
	return nil
}

func (a *FakeAudio) StartRecording(ctx context.Context, opts recording.Options) (recording.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.StartErr != nil {
		return nil, a.StartErr
	}
	s := &FakeSession{uri: a.URI, Options: opts}
	a.Sessions = append(a.Sessions, s)
	return s, nil
}

// LastMode returns the most recently set audio mode.
func (a *FakeAudio) LastMode() recording.Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.Modes) == 0 {
		return recording.Mode{}
	}
	return a.Modes[len(a.Modes)-1]
}

func (a *FakeAudio) SessionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.Sessions)
}

// FakeSession is a recording whose URI appears once it is stopped.
type FakeSession struct {
	mu      sync.Mutex
	uri     string
	stopped bool
	StopErr error
	Options recording.Options
}

func (s *FakeSession) StopAndUnload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	return s.StopErr
}

func (s *FakeSession) URI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		return ""
	}
	return s.uri
}

func (s *FakeSession) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
