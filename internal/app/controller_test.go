package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/leonardotrapani/whisperdeck/internal/config"
	"github.com/leonardotrapani/whisperdeck/internal/models/whisper"
	"github.com/leonardotrapani/whisperdeck/internal/recording"
	"github.com/leonardotrapani/whisperdeck/internal/testutil"
	"github.com/leonardotrapani/whisperdeck/internal/transcriber"
)

const waitTimeout = 2 * time.Second

type recordingNotifier struct {
	mu     sync.Mutex
	ready  map[string]string
	errors []string
}

func (n *recordingNotifier) TranscriptionReady(flow, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ready == nil {
		n.ready = make(map[string]string)
	}
	n.ready[flow] = text
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) text(flow string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ready[flow]
}

type harness struct {
	t        *testing.T
	cfg      *config.Config
	engine   *testutil.FakeEngine
	audio    *testutil.FakeAudio
	notifier *recordingNotifier
	inits    []transcriber.InitConfig
	ctrl     *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:        t,
		cfg:      testutil.TestConfig(t),
		engine:   testutil.NewFakeEngine(),
		audio:    testutil.NewFakeAudio(),
		notifier: &recordingNotifier{},
	}
	h.ctrl = New(func() *config.Config { return h.cfg }, Deps{
		InitEngine: func(ctx context.Context, cfg transcriber.InitConfig) (Engine, error) {
			h.inits = append(h.inits, cfg)
			return h.engine, nil
		},
		Download: func(ctx context.Context, url, dest string, onProgress whisper.ProgressFunc) error {
			t.Fatalf("unexpected download of %s", url)
			return nil
		},
		Audio:    h.audio,
		Notifier: h.notifier,
	})
	t.Cleanup(h.ctrl.Close)
	return h
}

func (h *harness) ready() *harness {
	h.t.Helper()
	if err := h.ctrl.Init(context.Background()); err != nil {
		h.t.Fatalf("Init() error = %v", err)
	}
	return h
}

func (h *harness) waitFor(cond func(Snapshot) bool) {
	h.t.Helper()
	testutil.WaitForCondition(h.t, func() bool { return cond(h.ctrl.Snapshot()) }, waitTimeout)
}

func TestInit_BundledFastPath(t *testing.T) {
	h := newHarness(t)
	h.ready()

	snap := h.ctrl.Snapshot()
	if !snap.Model.Ready {
		t.Fatal("model should be ready")
	}
	if snap.Model.DownloadProgressPercent != 0 {
		t.Errorf("bundled init reported progress %v", snap.Model.DownloadProgressPercent)
	}
	if len(h.inits) != 1 {
		t.Fatalf("engine initialized %d times, want 1", len(h.inits))
	}
	got := h.inits[0]
	if !got.IsBundledAsset || got.ModelPath != "whisper/ggml-tiny.bin" || got.AssetsDir != h.cfg.Assets.Dir {
		t.Errorf("init config = %+v, want bundled tiny model", got)
	}

	// Ready is never reset: a second Init is a no-op.
	if err := h.ctrl.Init(context.Background()); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	if len(h.inits) != 1 {
		t.Errorf("second Init() re-initialized the engine")
	}
}

func TestInit_RemoteDownloadReportsProgress(t *testing.T) {
	h := newHarness(t)
	h.cfg.Model.Source = config.SourceRemote
	h.cfg.Model.URL = "https://models.example/ggml-tiny.bin"

	var seen []float64
	h.ctrl.deps.Download = func(ctx context.Context, url, dest string, onProgress whisper.ProgressFunc) error {
		if url != h.cfg.Model.URL {
			t.Errorf("download url = %q", url)
		}
		for _, written := range []int64{25, 50, 100} {
			onProgress(written, 100)
			seen = append(seen, h.ctrl.Snapshot().Model.DownloadProgressPercent)
		}
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		return os.WriteFile(dest, []byte("ggml"), 0644)
	}

	h.ready()

	want := []float64{25, 50, 100}
	if len(seen) != len(want) {
		t.Fatalf("progress updates = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, seen[i], want[i])
		}
	}

	wantPath := filepath.Join(h.cfg.Model.Dir, "ggml-tiny.bin")
	got := h.inits[0]
	if got.IsBundledAsset || got.ModelPath != wantPath {
		t.Errorf("init config = %+v, want remote path %s", got, wantPath)
	}
	if snap := h.ctrl.Snapshot(); !snap.Model.Ready || snap.Model.BytesTotal != 100 {
		t.Errorf("model readiness = %+v", snap.Model)
	}
}

func TestInit_RemoteAlreadyInstalledSkipsDownload(t *testing.T) {
	h := newHarness(t)
	h.cfg.Model.Source = config.SourceRemote
	path := filepath.Join(h.cfg.Model.Dir, "ggml-tiny.bin")
	if err := os.MkdirAll(h.cfg.Model.Dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("ggml"), 0644); err != nil {
		t.Fatal(err)
	}

	h.ready()

	if h.inits[0].ModelPath != path {
		t.Errorf("model path = %q, want %q", h.inits[0].ModelPath, path)
	}
}

func TestInit_DownloadFailureLeavesEmptyModelPath(t *testing.T) {
	h := newHarness(t)
	h.cfg.Model.Source = config.SourceRemote
	h.ctrl.deps.Download = func(ctx context.Context, url, dest string, onProgress whisper.ProgressFunc) error {
		onProgress(10, 100)
		return errors.New("connection reset")
	}
	h.ctrl.deps.InitEngine = func(ctx context.Context, cfg transcriber.InitConfig) (Engine, error) {
		h.inits = append(h.inits, cfg)
		e, err := transcriber.Init(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return e, nil
	}

	err := h.ctrl.Init(context.Background())
	if !errors.Is(err, transcriber.ErrEngineInit) {
		t.Fatalf("Init() error = %v, want ErrEngineInit", err)
	}
	if h.inits[0].ModelPath != "" {
		t.Errorf("model path after failed download = %q, want empty", h.inits[0].ModelPath)
	}

	snap := h.ctrl.Snapshot()
	if snap.Model.Ready || !errors.Is(snap.Model.Err, transcriber.ErrEngineInit) {
		t.Errorf("model readiness = %+v", snap.Model)
	}
	if len(h.notifier.errors) != 1 {
		t.Errorf("expected one error notification, got %v", h.notifier.errors)
	}

	if _, err := h.ctrl.TranscribeSample(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("TranscribeSample() before ready = %v, want ErrNotReady", err)
	}
}

func TestFlows_NotReady(t *testing.T) {
	h := newHarness(t)

	if err := h.ctrl.ToggleRealtime(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("ToggleRealtime() = %v, want ErrNotReady", err)
	}
	if _, err := h.ctrl.TranscribeSample(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("TranscribeSample() = %v, want ErrNotReady", err)
	}
	if _, err := h.ctrl.ToggleRecording(context.Background()); !errors.Is(err, ErrNotReady) {
		t.Errorf("ToggleRecording() = %v, want ErrNotReady", err)
	}
}

func TestTranscribeFile_SampleResult(t *testing.T) {
	h := newHarness(t).ready()
	h.cfg.Assets.Sample = "sample.wav"

	text, err := h.ctrl.TranscribeSample(context.Background())
	if err != nil {
		t.Fatalf("TranscribeSample() error = %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}

	snap := h.ctrl.Snapshot()
	if snap.File.Status != FileIdle || snap.File.Text != "hello world" || snap.File.LastError != nil {
		t.Errorf("file state = %+v", snap.File)
	}
	srcs := h.engine.TranscribedSources()
	if len(srcs) != 1 || srcs[0] != transcriber.BundledAsset("sample.wav") {
		t.Errorf("sources = %v", srcs)
	}
	if h.notifier.text("file") != "hello world" {
		t.Errorf("notifier got %q", h.notifier.text("file"))
	}
}

func TestTranscribeFile_BusyBetweenTriggerAndCompletion(t *testing.T) {
	h := newHarness(t).ready()
	h.ctrl.state.update(func(s *Snapshot) { s.File.Text = "previous" })
	h.engine.Block = make(chan struct{})

	done := make(chan string, 1)
	go func() {
		text, _ := h.ctrl.TranscribeSample(context.Background())
		done <- text
	}()

	h.waitFor(func(s Snapshot) bool { return s.File.Busy() })
	if snap := h.ctrl.Snapshot(); snap.File.Text != "" {
		t.Errorf("text should be cleared while transcribing, got %q", snap.File.Text)
	}
	if _, err := h.ctrl.TranscribeSample(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second trigger = %v, want ErrBusy", err)
	}

	close(h.engine.Block)
	select {
	case text := <-done:
		if text != "hello world" {
			t.Errorf("text = %q", text)
		}
	case <-time.After(waitTimeout):
		t.Fatal("transcription did not finish")
	}
	if snap := h.ctrl.Snapshot(); snap.File.Busy() {
		t.Error("file flow still busy after completion")
	}
}

func TestTranscribeFile_EngineErrorClearsBusy(t *testing.T) {
	h := newHarness(t).ready()
	h.engine.Err = errors.New("decoder crashed")

	if _, err := h.ctrl.TranscribeSample(context.Background()); err == nil {
		t.Fatal("expected engine error")
	}
	snap := h.ctrl.Snapshot()
	if snap.File.Busy() || snap.File.LastError == nil {
		t.Errorf("file state after error = %+v", snap.File)
	}
	if len(h.notifier.errors) != 1 {
		t.Errorf("error notifications = %v", h.notifier.errors)
	}
}

func TestCancel(t *testing.T) {
	h := newHarness(t).ready()
	if h.ctrl.Cancel() {
		t.Error("Cancel() with nothing running should report false")
	}

	h.engine.Block = make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		_, err := h.ctrl.TranscribeSample(context.Background())
		errCh <- err
	}()
	h.waitFor(func(s Snapshot) bool { return s.File.Busy() })

	if !h.ctrl.Cancel() {
		t.Error("Cancel() should report a running job")
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(waitTimeout):
		t.Fatal("cancelled transcription did not return")
	}
	if snap := h.ctrl.Snapshot(); snap.File.Busy() {
		t.Error("file flow busy after cancel")
	}
}

func TestTranscribeFile_ContextCancelsJob(t *testing.T) {
	h := newHarness(t).ready()
	h.engine.Block = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := h.ctrl.TranscribeSample(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if h.ctrl.Snapshot().File.Busy() {
		t.Error("file flow busy after caller gave up")
	}
}

func TestRealtime_EventsReplaceTextThenStop(t *testing.T) {
	h := newHarness(t).ready()

	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatalf("ToggleRealtime() error = %v", err)
	}
	if snap := h.ctrl.Snapshot(); snap.Realtime.Status != RealtimeActive {
		t.Fatalf("status = %s, want active", snap.Realtime.Status)
	}
	session := h.engine.LastSession()

	session.Publish(transcriber.Event{IsCapturing: true, PartialText: "he"})
	h.waitFor(func(s Snapshot) bool { return s.Realtime.Text == "he" })
	session.Publish(transcriber.Event{IsCapturing: true, PartialText: "hello"})
	h.waitFor(func(s Snapshot) bool { return s.Realtime.Text == "hello" })

	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatalf("ToggleRealtime() stop error = %v", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.Realtime.Status != RealtimeIdle {
		t.Errorf("status after stop = %s, want idle", snap.Realtime.Status)
	}
	if snap.Realtime.Text != "hello" {
		t.Errorf("text after stop = %q, want hello", snap.Realtime.Text)
	}
	if h.engine.StopCount() != 1 {
		t.Errorf("session stopped %d times, want 1", h.engine.StopCount())
	}
	if h.audio.Permissions != 1 {
		t.Errorf("permission requested %d times, want 1", h.audio.Permissions)
	}
}

func TestRealtime_FinalTextArrivesAfterStop(t *testing.T) {
	h := newHarness(t).ready()
	h.engine.FinalText = "hello world"

	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatal(err)
	}

	h.waitFor(func(s Snapshot) bool { return s.Realtime.Text == "hello world" })
	testutil.WaitForCondition(t, func() bool { return h.notifier.text("realtime") == "hello world" }, waitTimeout)
}

func TestRealtime_CaptureEndDoesNotTransition(t *testing.T) {
	h := newHarness(t).ready()

	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatal(err)
	}
	session := h.engine.LastSession()
	session.Publish(transcriber.Event{IsCapturing: true, PartialText: "hi"})
	h.waitFor(func(s Snapshot) bool { return s.Realtime.Text == "hi" })

	// no data: the text is kept
	session.Publish(transcriber.Event{IsCapturing: false})
	session.Close()

	select {
	case <-session.Done():
	case <-time.After(waitTimeout):
		t.Fatal("session did not close")
	}
	time.Sleep(20 * time.Millisecond)

	snap := h.ctrl.Snapshot()
	if snap.Realtime.Status != RealtimeActive {
		t.Errorf("status = %s, want active until the user stops", snap.Realtime.Status)
	}
	if snap.Realtime.Text != "hi" {
		t.Errorf("text = %q, want hi", snap.Realtime.Text)
	}

	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatal(err)
	}
	if snap := h.ctrl.Snapshot(); snap.Realtime.Status != RealtimeIdle {
		t.Errorf("status after stop = %s", snap.Realtime.Status)
	}
}

func TestRealtime_AutoStop(t *testing.T) {
	h := newHarness(t).ready()
	h.cfg.Realtime.AutoStop = true

	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatal(err)
	}
	session := h.engine.LastSession()
	session.Publish(transcriber.Event{IsCapturing: false, PartialText: "done"})
	session.Close()

	h.waitFor(func(s Snapshot) bool { return s.Realtime.Status == RealtimeIdle && s.Realtime.Text == "done" })

	// the next toggle starts a fresh session instead of stopping the old one
	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.engine.Sessions) != 2 {
		t.Errorf("sessions = %d, want 2", len(h.engine.Sessions))
	}
}

func TestRealtime_PermissionDenied(t *testing.T) {
	h := newHarness(t).ready()
	h.audio.Denied = true

	err := h.ctrl.ToggleRealtime(context.Background())
	if !errors.Is(err, recording.ErrPermissionDenied) {
		t.Fatalf("ToggleRealtime() = %v, want ErrPermissionDenied", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.Realtime.Status != RealtimeIdle || !errors.Is(snap.Realtime.LastError, recording.ErrPermissionDenied) {
		t.Errorf("realtime state = %+v", snap.Realtime)
	}
	if h.engine.LastSession() != nil {
		t.Error("no session should start without permission")
	}
}

func TestRealtime_StartError(t *testing.T) {
	h := newHarness(t).ready()
	h.engine.RealtimeErr = errors.New("pw-record missing")

	if err := h.ctrl.ToggleRealtime(context.Background()); err == nil {
		t.Fatal("expected start error")
	}
	if snap := h.ctrl.Snapshot(); snap.Realtime.Status != RealtimeIdle || snap.Realtime.LastError == nil {
		t.Errorf("realtime state = %+v", snap.Realtime)
	}
}

func TestRecording_StartStopTranscribe(t *testing.T) {
	h := newHarness(t).ready()

	if _, err := h.ctrl.ToggleRecording(context.Background()); err != nil {
		t.Fatalf("start recording: %v", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.Record.Status != RecordRecording || snap.Record.Busy() {
		t.Fatalf("record state = %+v, want recording and not busy", snap.Record)
	}
	if mode := h.audio.LastMode(); !mode.AllowsRecording || !mode.PlaysInSilentMode {
		t.Errorf("audio mode = %+v, want recording allowed", mode)
	}
	sess := h.audio.Sessions[0]
	if sess.Options.Dir != h.cfg.Recording.Dir || sess.Options.BitDepth != 16 || sess.Options.Capture.Channels != 1 {
		t.Errorf("recording options = %+v", sess.Options)
	}

	text, err := h.ctrl.ToggleRecording(context.Background())
	if err != nil {
		t.Fatalf("stop recording: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if !sess.Stopped() {
		t.Error("session was not stopped")
	}
	if mode := h.audio.LastMode(); mode.AllowsRecording {
		t.Error("audio mode should be reset after stop")
	}

	srcs := h.engine.TranscribedSources()
	if len(srcs) != 1 || srcs[0].Path != "/tmp/whisperdeck/recording.wav" || srcs[0].Bundled {
		t.Errorf("sources = %v", srcs)
	}
	snap = h.ctrl.Snapshot()
	if snap.Record.Status != RecordIdle || snap.Record.Text != "hello world" || snap.Record.URI == "" {
		t.Errorf("record state = %+v", snap.Record)
	}
	if snap.File.Text != "" {
		t.Error("recording result must not touch the file flow")
	}
}

func TestRecording_BusyWhileTranscribing(t *testing.T) {
	h := newHarness(t).ready()
	h.engine.Block = make(chan struct{})

	if _, err := h.ctrl.ToggleRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = h.ctrl.ToggleRecording(context.Background())
	}()

	h.waitFor(func(s Snapshot) bool { return s.Record.Busy() })
	if _, err := h.ctrl.ToggleRecording(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("toggle while transcribing = %v, want ErrBusy", err)
	}

	// flows are independent
	if err := h.ctrl.ToggleRealtime(context.Background()); err != nil {
		t.Errorf("realtime while recording transcribes: %v", err)
	}

	close(h.engine.Block)
	select {
	case <-done:
	case <-time.After(waitTimeout):
		t.Fatal("recording transcription did not finish")
	}
	if h.ctrl.Snapshot().Record.Busy() {
		t.Error("record flow still busy")
	}
}

func TestStart_ClaimsFlowBeforeReturning(t *testing.T) {
	h := newHarness(t).ready()
	h.engine.Block = make(chan struct{})

	file, err := h.ctrl.StartSample()
	if err != nil {
		t.Fatalf("StartSample() error = %v", err)
	}
	if !h.ctrl.Snapshot().File.Busy() {
		t.Error("file flow should be busy as soon as StartSample returns")
	}
	if _, err := h.ctrl.StartSample(); !errors.Is(err, ErrBusy) {
		t.Errorf("second StartSample() = %v, want ErrBusy", err)
	}

	p, err := h.ctrl.BeginRecordingToggle(context.Background())
	if err != nil || p != nil {
		t.Fatalf("BeginRecordingToggle() start = %v, %v; want nil, nil", p, err)
	}
	rec, err := h.ctrl.BeginRecordingToggle(context.Background())
	if err != nil || rec == nil {
		t.Fatalf("BeginRecordingToggle() stop = %v, %v; want pending transcription", rec, err)
	}
	if _, err := h.ctrl.BeginRecordingToggle(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("toggle while transcribing = %v, want ErrBusy", err)
	}

	close(h.engine.Block)
	for name, p := range map[string]*Pending{"file": file, "record": rec} {
		if text, err := p.Wait(context.Background()); err != nil || text != "hello world" {
			t.Errorf("%s Wait() = %q, %v", name, text, err)
		}
	}
	snap := h.ctrl.Snapshot()
	if snap.File.Busy() || snap.Record.Busy() {
		t.Error("flows should be idle after Wait")
	}
}

func TestStopRecording_BeforeStart(t *testing.T) {
	h := newHarness(t).ready()

	uri, err := h.ctrl.StopRecording(context.Background())
	if err != nil {
		t.Fatalf("StopRecording() error = %v", err)
	}
	if uri != "" {
		t.Errorf("uri = %q, want empty", uri)
	}
	if snap := h.ctrl.Snapshot(); snap.Record.Status != RecordIdle {
		t.Errorf("status = %s, want idle", snap.Record.Status)
	}
	if h.audio.SessionCount() != 0 {
		t.Error("no session should exist")
	}
}

func TestStopRecording_ReturnsURI(t *testing.T) {
	h := newHarness(t).ready()

	if _, err := h.ctrl.ToggleRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	uri, err := h.ctrl.StopRecording(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if uri != "file:///tmp/whisperdeck/recording.wav" {
		t.Errorf("uri = %q", uri)
	}
	if snap := h.ctrl.Snapshot(); snap.Record.Status != RecordIdle || snap.Record.URI != uri {
		t.Errorf("record state = %+v", snap.Record)
	}
	if len(h.engine.TranscribedSources()) != 0 {
		t.Error("StopRecording must not transcribe")
	}
}

func TestRecording_EmptyURI(t *testing.T) {
	h := newHarness(t).ready()
	h.audio.URI = ""

	if _, err := h.ctrl.ToggleRecording(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := h.ctrl.ToggleRecording(context.Background()); !errors.Is(err, ErrNoAudio) {
		t.Fatalf("stop with empty uri = %v, want ErrNoAudio", err)
	}
	snap := h.ctrl.Snapshot()
	if snap.Record.Status != RecordIdle || !errors.Is(snap.Record.LastError, ErrNoAudio) {
		t.Errorf("record state = %+v", snap.Record)
	}
	if len(h.engine.TranscribedSources()) != 0 {
		t.Error("nothing should be transcribed")
	}
}

func TestRecording_StartFailure(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *testutil.FakeAudio)
		want  error
	}{
		{"permission denied", func(a *testutil.FakeAudio) { a.Denied = true }, recording.ErrPermissionDenied},
		{"start error", func(a *testutil.FakeAudio) { a.StartErr = recording.ErrRecordingNotAllowed }, recording.ErrRecordingNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t).ready()
			tt.setup(h.audio)

			if _, err := h.ctrl.ToggleRecording(context.Background()); !errors.Is(err, tt.want) {
				t.Fatalf("ToggleRecording() = %v, want %v", err, tt.want)
			}
			snap := h.ctrl.Snapshot()
			if snap.Record.Status != RecordIdle || !errors.Is(snap.Record.LastError, tt.want) {
				t.Errorf("record state = %+v", snap.Record)
			}
			if h.audio.LastMode().AllowsRecording {
				t.Error("audio mode left allowing recording")
			}
		})
	}
}
