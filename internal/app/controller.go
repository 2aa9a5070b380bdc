package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/leonardotrapani/whisperdeck/internal/config"
	"github.com/leonardotrapani/whisperdeck/internal/models/whisper"
	"github.com/leonardotrapani/whisperdeck/internal/notify"
	"github.com/leonardotrapani/whisperdeck/internal/recording"
	"github.com/leonardotrapani/whisperdeck/internal/transcriber"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	ErrBusy     = errors.New("flow is busy")
	ErrNotReady = errors.New("model is not initialized")
	ErrNoAudio  = errors.New("recording produced no audio file")
)

// realtimeDrainTimeout bounds how long a stopped realtime session may take
// to deliver its final text before the subscription is dropped.
const realtimeDrainTimeout = 30 * time.Second

// Engine is the part of transcriber.Engine the flows use.
type Engine interface {
	Transcribe(ctx context.Context, src transcriber.Source, opts transcriber.Options) *transcriber.Job
	TranscribeRealtime(ctx context.Context, opts transcriber.RealtimeOptions) (*transcriber.RealtimeSession, error)
}

type EngineInitFunc func(ctx context.Context, cfg transcriber.InitConfig) (Engine, error)

type DownloadFunc func(ctx context.Context, url, dest string, onProgress whisper.ProgressFunc) error

type Deps struct {
	InitEngine EngineInitFunc
	Download   DownloadFunc
	Audio      recording.AudioSystem
	Notifier   notify.Notifier
}

// DefaultDeps wires the real engine, downloader and PipeWire audio.
func DefaultDeps(n notify.Notifier) Deps {
	return Deps{
		InitEngine: func(ctx context.Context, cfg transcriber.InitConfig) (Engine, error) {
			e, err := transcriber.Init(ctx, cfg)
			if err != nil {
				return nil, err
			}
			return e, nil
		},
		Download: whisper.Download,
		Audio:    recording.NewPipeWire(),
		Notifier: n,
	}
}

// Controller owns the app state and runs the three transcription flows.
// Flows are independent: each has its own lock and busy state.
type Controller struct {
	settings func() *config.Config
	deps     Deps
	state    *State
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	initMu sync.Mutex
	engMu  sync.RWMutex
	engine Engine

	rtMu  sync.Mutex
	rt    *realtimeRun
	rtGen int

	fileMu  sync.Mutex
	fileJob *transcriber.Job

	recMu      sync.Mutex
	recSession recording.Session
	recJob     *transcriber.Job

	wg sync.WaitGroup
}

// New builds a Controller. settings is read at the start of every flow run,
// so config reloads apply to the next run.
func New(settings func() *config.Config, deps Deps) *Controller {
	if deps.Notifier == nil {
		deps.Notifier = notify.Nop{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		settings: settings,
		deps:     deps,
		state:    NewState(),
		log:      log.With().Str("component", "app").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (c *Controller) State() *State { return c.state }

func (c *Controller) Snapshot() Snapshot { return c.state.Snapshot() }

// Close stops every running flow and waits for background work.
func (c *Controller) Close() {
	c.rtMu.Lock()
	if c.rt != nil {
		c.stopRealtimeLocked()
	}
	c.rtMu.Unlock()

	c.recMu.Lock()
	if c.recSession != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := c.recSession.StopAndUnload(ctx); err != nil {
			c.log.Warn().Err(err).Msg("stop recording on close")
		}
		cancel()
		c.recSession = nil
	}
	c.recMu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Init loads the model and creates the engine. It returns nil once ready.
func (c *Controller) Init(ctx context.Context) error {
	c.initMu.Lock()
	defer c.initMu.Unlock()
	if c.state.Snapshot().Model.Ready {
		return nil
	}

	cfg := c.settings()
	modelPath, bundled := c.resolveModel(ctx, cfg)

	eng, err := c.deps.InitEngine(ctx, cfg.ToInitConfig(modelPath, bundled))
	if err != nil {
		c.log.Error().Err(err).Str("model", modelPath).Msg("engine init failed")
		c.state.update(func(s *Snapshot) { s.Model.Err = err })
		c.deps.Notifier.Error(err.Error())
		return err
	}

	c.engMu.Lock()
	c.engine = eng
	c.engMu.Unlock()

	c.state.update(func(s *Snapshot) {
		s.Model.Ready = true
		s.Model.Err = nil
	})
	c.log.Info().Str("model", modelPath).Bool("bundled", bundled).Msg("model ready")
	return nil
}

// resolveModel returns the model path for the configured source. A failed
// download is logged and yields an empty path.
func (c *Controller) resolveModel(ctx context.Context, cfg *config.Config) (string, bool) {
	if cfg.Engine.Provider == config.ProviderOpenAI {
		return "", false
	}
	if cfg.Model.Source != config.SourceRemote {
		return cfg.Model.BundledPath, true
	}

	url, dest, err := cfg.RemoteModel()
	if err != nil {
		c.log.Error().Err(err).Msg("resolve remote model")
		return "", false
	}
	if whisper.IsInstalled(dest) {
		c.log.Info().Str("path", dest).Msg("remote model already downloaded")
		return dest, false
	}

	c.log.Info().Str("url", url).Str("dest", dest).Msg("downloading model")
	lastDecile := -1
	err = c.deps.Download(ctx, url, dest, func(written, total int64) {
		pct := whisper.ProgressPercent(written, total)
		c.state.update(func(s *Snapshot) {
			s.Model.DownloadProgressPercent = pct
			s.Model.BytesWritten = written
			s.Model.BytesTotal = total
		})
		if d := int(pct) / 10; d > lastDecile {
			lastDecile = d
			c.log.Debug().Float64("percent", pct).Int64("written", written).Msg("download progress")
		}
	})
	if err != nil {
		c.log.Error().Err(err).Str("url", url).Msg("model download failed")
		return "", false
	}
	c.log.Info().Str("path", dest).Msg("model downloaded")
	return dest, false
}

func (c *Controller) readyEngine() (Engine, error) {
	c.engMu.RLock()
	defer c.engMu.RUnlock()
	if c.engine == nil {
		return nil, ErrNotReady
	}
	return c.engine, nil
}

// realtimeRun is one realtime session owned by the controller.
type realtimeRun struct {
	gen     int
	session *transcriber.RealtimeSession
	stopped chan struct{} // closed when the user stops the session
}

// ToggleRealtime starts a realtime session when idle and stops it when active.
func (c *Controller) ToggleRealtime(ctx context.Context) error {
	eng, err := c.readyEngine()
	if err != nil {
		return err
	}

	c.rtMu.Lock()
	defer c.rtMu.Unlock()

	if c.rt != nil {
		c.stopRealtimeLocked()
		return nil
	}

	logger := c.log.With().Str("flow", "realtime").Logger()

	granted, err := c.deps.Audio.RequestPermission(ctx)
	if err == nil && !granted {
		err = recording.ErrPermissionDenied
	}
	if err != nil {
		logger.Warn().Err(err).Msg("microphone permission")
		c.state.update(func(s *Snapshot) { s.Realtime.LastError = err })
		return err
	}

	cfg := c.settings()
	session, err := eng.TranscribeRealtime(c.ctx, cfg.ToRealtimeOptions())
	if err != nil {
		logger.Error().Err(err).Msg("start realtime transcribe")
		c.state.update(func(s *Snapshot) { s.Realtime.LastError = err })
		return fmt.Errorf("start realtime transcribe: %w", err)
	}

	events, unsubscribe := session.Subscribe()
	c.rtGen++
	run := &realtimeRun{gen: c.rtGen, session: session, stopped: make(chan struct{})}
	c.rt = run

	c.state.update(func(s *Snapshot) {
		s.Realtime.Status = RealtimeActive
		s.Realtime.LastError = nil
	})
	logger.Info().Msg("realtime started")

	c.wg.Add(1)
	go c.consumeRealtime(run, events, unsubscribe, cfg.Realtime.AutoStop)
	return nil
}

// stopRealtimeLocked ends capture and returns the flow to idle right away.
// The subscription stays open until the final event arrives or the drain
// timeout passes. Caller holds rtMu.
func (c *Controller) stopRealtimeLocked() {
	run := c.rt
	c.rt = nil
	close(run.stopped)
	run.session.Stop()
	c.state.update(func(s *Snapshot) { s.Realtime.Status = RealtimeIdle })
	c.log.Info().Str("flow", "realtime").Msg("realtime stopped")
}

func (c *Controller) consumeRealtime(run *realtimeRun, events <-chan transcriber.Event, unsubscribe func(), autoStop bool) {
	defer c.wg.Done()
	defer unsubscribe()

	logger := c.log.With().Str("flow", "realtime").Logger()
	stopped := run.stopped
	var drain <-chan time.Time

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				c.realtimeEnded(run, autoStop)
				return
			}
			logger.Debug().Bool("capturing", ev.IsCapturing).Dur("process_time", ev.ProcessTime).
				Dur("recording_time", ev.RecordingTime).Str("result", ev.PartialText).Msg("realtime event")

			if (ev.IsCapturing || ev.PartialText != "") && c.realtimeLatest(run) {
				c.state.update(func(s *Snapshot) { s.Realtime.Text = ev.PartialText })
			}
			if !ev.IsCapturing {
				logger.Info().Msg("finished realtime transcribing")
				if ev.PartialText != "" {
					c.deps.Notifier.TranscriptionReady("realtime", ev.PartialText)
				}
			}

		case <-stopped:
			stopped = nil
			drain = time.After(realtimeDrainTimeout)

		case <-drain:
			logger.Warn().Msg("realtime session did not finish in time")
			return

		case <-c.ctx.Done():
			return
		}
	}
}

// realtimeLatest reports whether run is the most recently started session.
// A stopped session keeps updating the text until a new one starts.
func (c *Controller) realtimeLatest(run *realtimeRun) bool {
	c.rtMu.Lock()
	defer c.rtMu.Unlock()
	return c.rtGen == run.gen
}

// realtimeEnded runs when the event stream closes. A session that ended on
// its own (window reached) stays active until the user stops it, unless
// autoStop is set.
func (c *Controller) realtimeEnded(run *realtimeRun, autoStop bool) {
	if !autoStop {
		return
	}
	c.rtMu.Lock()
	defer c.rtMu.Unlock()
	if c.rt == run {
		c.rt = nil
		close(run.stopped)
		c.state.update(func(s *Snapshot) { s.Realtime.Status = RealtimeIdle })
		c.log.Info().Str("flow", "realtime").Msg("realtime ended on its own")
	}
}

// Pending is a transcription that has claimed its flow and is running.
type Pending struct {
	wait func(ctx context.Context) (string, error)
}

// Wait blocks until the transcription finishes. Cancelling ctx cancels it.
func (p *Pending) Wait(ctx context.Context) (string, error) {
	return p.wait(ctx)
}

// StartFile claims the file flow and starts transcribing src. It returns
// ErrBusy while another file transcription is running.
func (c *Controller) StartFile(src transcriber.Source) (*Pending, error) {
	eng, err := c.readyEngine()
	if err != nil {
		return nil, err
	}

	c.fileMu.Lock()
	defer c.fileMu.Unlock()
	if c.fileJob != nil {
		return nil, ErrBusy
	}
	job := eng.Transcribe(c.ctx, src, c.settings().ToTranscribeOptions())
	c.fileJob = job
	c.state.update(func(s *Snapshot) {
		s.File.Status = FileTranscribing
		s.File.Text = ""
		s.File.LastError = nil
	})
	c.log.Info().Str("flow", "file").Str("source", src.String()).Msg("file transcribe started")

	return &Pending{wait: func(ctx context.Context) (string, error) {
		text, err := c.await(ctx, job)

		c.fileMu.Lock()
		c.fileJob = nil
		c.state.update(func(s *Snapshot) {
			s.File.Status = FileIdle
			s.File.Text = text
			s.File.LastError = err
		})
		c.fileMu.Unlock()

		c.finish("file", text, err)
		return text, err
	}}, nil
}

// StartSample starts the file flow on the configured bundled sample.
func (c *Controller) StartSample() (*Pending, error) {
	return c.StartFile(c.settings().SampleSource())
}

// TranscribeFile runs a one-shot transcription of src for the file flow.
func (c *Controller) TranscribeFile(ctx context.Context, src transcriber.Source) (string, error) {
	p, err := c.StartFile(src)
	if err != nil {
		return "", err
	}
	return p.Wait(ctx)
}

// TranscribeSample runs the file flow on the configured bundled sample.
func (c *Controller) TranscribeSample(ctx context.Context) (string, error) {
	return c.TranscribeFile(ctx, c.settings().SampleSource())
}

// await waits for job to finish. Cancelling ctx cancels the job.
func (c *Controller) await(ctx context.Context, job *transcriber.Job) (string, error) {
	stop := context.AfterFunc(ctx, job.Cancel)
	defer stop()
	res, err := job.Wait(context.Background())
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

func (c *Controller) finish(flow, text string, err error) {
	logger := c.log.With().Str("flow", flow).Logger()
	switch {
	case errors.Is(err, context.Canceled):
		logger.Info().Msg("transcription cancelled")
	case err != nil:
		logger.Error().Err(err).Msg("transcription failed")
		c.deps.Notifier.Error(fmt.Sprintf("%s transcription failed: %v", flow, err))
	default:
		logger.Info().Str("result", text).Msg("transcribe result")
		c.deps.Notifier.TranscriptionReady(flow, text)
	}
}

// ToggleRecording starts a voice recording when idle. When recording, it stops
// the recording and transcribes the file, returning the text.
func (c *Controller) ToggleRecording(ctx context.Context) (string, error) {
	p, err := c.BeginRecordingToggle(ctx)
	if err != nil || p == nil {
		return "", err
	}
	return p.Wait(ctx)
}

// BeginRecordingToggle does the synchronous half of ToggleRecording. When
// idle it starts recording and returns a nil Pending. When recording it stops
// the recording and returns the started transcription of the file.
func (c *Controller) BeginRecordingToggle(ctx context.Context) (*Pending, error) {
	eng, err := c.readyEngine()
	if err != nil {
		return nil, err
	}

	c.recMu.Lock()
	defer c.recMu.Unlock()

	switch c.state.Snapshot().Record.Status {
	case RecordTranscribing:
		return nil, ErrBusy
	case RecordRecording:
		c.state.update(func(s *Snapshot) {
			s.Record.Status = RecordTranscribing
			s.Record.Text = ""
			s.Record.LastError = nil
		})
		uri, err := c.stopRecordingLocked(ctx)
		if err == nil && uri == "" {
			err = ErrNoAudio
		}
		if err != nil {
			c.state.update(func(s *Snapshot) {
				s.Record.Status = RecordIdle
				s.Record.LastError = err
			})
			c.log.Error().Err(err).Str("flow", "record").Msg("stop recording")
			return nil, err
		}
		c.state.update(func(s *Snapshot) { s.Record.URI = uri })
		job := eng.Transcribe(c.ctx, transcriber.FileURI(uri), c.settings().ToTranscribeOptions())
		c.recJob = job

		return &Pending{wait: func(ctx context.Context) (string, error) {
			text, err := c.await(ctx, job)

			c.recMu.Lock()
			c.recJob = nil
			c.state.update(func(s *Snapshot) {
				s.Record.Status = RecordIdle
				s.Record.Text = text
				s.Record.LastError = err
			})
			c.recMu.Unlock()

			c.finish("record", text, err)
			return text, err
		}}, nil
	}

	c.state.update(func(s *Snapshot) {
		s.Record.Status = RecordRecording
		s.Record.LastError = nil
	})
	if err := c.startRecordingLocked(ctx); err != nil {
		c.log.Error().Err(err).Str("flow", "record").Msg("failed to start recording")
		c.state.update(func(s *Snapshot) {
			s.Record.Status = RecordIdle
			s.Record.LastError = err
		})
		return nil, err
	}
	return nil, nil
}

func (c *Controller) startRecordingLocked(ctx context.Context) error {
	logger := c.log.With().Str("flow", "record").Logger()

	logger.Info().Msg("requesting permissions")
	granted, err := c.deps.Audio.RequestPermission(ctx)
	if err != nil {
		return err
	}
	if !granted {
		return recording.ErrPermissionDenied
	}
	if err := c.deps.Audio.SetAudioMode(recording.Mode{AllowsRecording: true, PlaysInSilentMode: true}); err != nil {
		return fmt.Errorf("set audio mode: %w", err)
	}

	opts, err := c.settings().ToRecordingOptions()
	if err != nil {
		return err
	}
	logger.Info().Msg("starting recording")
	session, err := c.deps.Audio.StartRecording(c.ctx, opts)
	if err != nil {
		if resetErr := c.deps.Audio.SetAudioMode(recording.Mode{}); resetErr != nil {
			logger.Warn().Err(resetErr).Msg("reset audio mode")
		}
		return err
	}
	c.recSession = session
	logger.Info().Msg("recording started")
	return nil
}

// StopRecording stops the current recording without transcribing it and
// returns its URI. With no recording running it returns an empty URI.
func (c *Controller) StopRecording(ctx context.Context) (string, error) {
	c.recMu.Lock()
	defer c.recMu.Unlock()

	uri, err := c.stopRecordingLocked(ctx)
	if c.recJob == nil {
		c.state.update(func(s *Snapshot) {
			s.Record.Status = RecordIdle
			if uri != "" {
				s.Record.URI = uri
			}
			if err != nil {
				s.Record.LastError = err
			}
		})
	}
	return uri, err
}

func (c *Controller) stopRecordingLocked(ctx context.Context) (string, error) {
	logger := c.log.With().Str("flow", "record").Logger()

	session := c.recSession
	c.recSession = nil
	if session == nil {
		return "", nil
	}

	logger.Info().Msg("stopping recording")
	stopErr := session.StopAndUnload(ctx)
	if err := c.deps.Audio.SetAudioMode(recording.Mode{AllowsRecording: false}); err != nil {
		logger.Warn().Err(err).Msg("reset audio mode")
	}
	uri := session.URI()
	logger.Info().Str("uri", uri).Msg("recording stopped and stored")

	if stopErr != nil && uri == "" {
		return "", stopErr
	}
	if stopErr != nil {
		logger.Warn().Err(stopErr).Msg("recording finished with error")
	}
	return uri, nil
}

// Cancel aborts in-flight one-shot transcriptions. It reports whether any was running.
func (c *Controller) Cancel() bool {
	cancelled := false

	c.fileMu.Lock()
	if c.fileJob != nil {
		c.fileJob.Cancel()
		cancelled = true
	}
	c.fileMu.Unlock()

	c.recMu.Lock()
	if c.recJob != nil {
		c.recJob.Cancel()
		cancelled = true
	}
	c.recMu.Unlock()

	if cancelled {
		c.log.Info().Msg("transcription cancel requested")
	}
	return cancelled
}
