package recording

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	ErrPermissionDenied    = errors.New("microphone permission denied")
	ErrRecordingNotAllowed = errors.New("audio mode does not allow recording")
)

// Mode is the process audio mode. Recording is only allowed while AllowsRecording is set.
type Mode struct {
	AllowsRecording   bool
	PlaysInSilentMode bool
}

// Options describe a voice recording written to disk.
type Options struct {
	Capture   Config
	Dir       string
	Extension string
	BitDepth  int
}

// Session is a recording in progress. URI is empty until StopAndUnload returns.
type Session interface {
	StopAndUnload(ctx context.Context) error
	URI() string
}

// AudioSystem is the OS audio surface used by the flows.
type AudioSystem interface {
	RequestPermission(ctx context.Context) (bool, error)
	SetAudioMode(mode Mode) error
	StartRecording(ctx context.Context, opts Options) (Session, error)
}

// System implements AudioSystem on top of a FrameSource factory.
type System struct {
	mu        sync.Mutex
	mode      Mode
	newSource func(Config) FrameSource
	check     func(ctx context.Context) error
}

// NewPipeWire returns an AudioSystem that captures with pw-record.
func NewPipeWire() *System {
	return NewSystem(func(c Config) FrameSource { return NewRecorder(c) }, CheckPipeWireAvailable)
}

func NewSystem(newSource func(Config) FrameSource, check func(ctx context.Context) error) *System {
	return &System{newSource: newSource, check: check}
}

// RequestPermission reports whether capture is possible. A desktop session has
// no prompt, so "granted" means the capture backend is reachable.
func (s *System) RequestPermission(ctx context.Context) (bool, error) {
	if s.check == nil {
		return true, nil
	}
	if err := s.check(ctx); err != nil {
		log.Warn().Err(err).Msg("recording: microphone not available")
		return false, nil
	}
	return true, nil
}

func (s *System) SetAudioMode(mode Mode) error {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	log.Debug().Bool("allows_recording", mode.AllowsRecording).Msg("recording: audio mode set")
	return nil
}

func (s *System) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *System) StartRecording(ctx context.Context, opts Options) (Session, error) {
	if !s.Mode().AllowsRecording {
		return nil, ErrRecordingNotAllowed
	}
	// every frame must reach the file that gets transcribed
	opts.Capture.Lossless = true
	return StartFileSession(ctx, s.newSource(opts.Capture), opts)
}

// FileSession writes captured frames to a WAV file named by a random UUID.
type FileSession struct {
	src     FrameSource
	path    string
	file    *os.File
	wav     *WAVWriter
	started time.Time
	done    chan struct{}

	stopOnce sync.Once
	stopErr  error

	mu  sync.Mutex
	uri string
	err error // first capture or write error
}

func StartFileSession(ctx context.Context, src FrameSource, opts Options) (*FileSession, error) {
	if opts.BitDepth != 0 && opts.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d", opts.BitDepth)
	}
	if err := opts.Capture.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create recordings directory: %w", err)
	}

	ext := opts.Extension
	if ext == "" {
		ext = ".wav"
	}
	path := filepath.Join(opts.Dir, uuid.NewString()+ext)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create recording file: %w", err)
	}

	frames, errs, err := src.Start(ctx)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, fmt.Errorf("start capture: %w", err)
	}

	s := &FileSession{
		src:     src,
		path:    path,
		file:    f,
		wav:     NewWAVWriter(f, opts.Capture.SampleRate, opts.Capture.Channels),
		started: time.Now(),
		done:    make(chan struct{}),
	}
	go s.collect(frames, errs)

	log.Info().Str("path", path).Msg("recording: started")
	return s, nil
}

func (s *FileSession) collect(frames <-chan AudioFrame, errs <-chan error) {
	defer close(s.done)

	for frames != nil || errs != nil {
		select {
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				continue
			}
			if err := s.wav.Write(frame.Data); err != nil {
				s.setErr(err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.setErr(err)
		}
	}
}

func (s *FileSession) setErr(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// StopAndUnload stops capture, finalizes the WAV file and publishes its URI.
// Calling it again returns the first result.
func (s *FileSession) StopAndUnload(ctx context.Context) error {
	s.stopOnce.Do(func() {
		s.stopErr = s.stop(ctx)
	})
	return s.stopErr
}

func (s *FileSession) stop(ctx context.Context) error {
	if err := s.src.Stop(); err != nil {
		log.Warn().Err(err).Msg("recording: stop capture")
	}

	select {
	case <-s.done:
	case <-ctx.Done():
		s.file.Close()
		return ctx.Err()
	}

	if err := s.wav.Close(); err != nil {
		s.file.Close()
		return err
	}
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close recording file: %w", err)
	}

	s.mu.Lock()
	s.uri = s.path
	err := s.err
	s.mu.Unlock()

	log.Info().Str("path", s.path).Dur("duration", time.Since(s.started)).
		Int("samples", s.wav.Samples()).Msg("recording: stopped")
	return err
}

func (s *FileSession) URI() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uri
}
