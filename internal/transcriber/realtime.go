package transcriber

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/leonardotrapani/whisperdeck/internal/recording"
	"github.com/rs/zerolog/log"
)

// RealtimeOptions configure a live microphone session.
type RealtimeOptions struct {
	Language          string
	RealtimeWindowSec int // capture stops after this much audio
	SliceSec          int // audio is transcribed in slices of at most this length
	MaxThreads        int
}

func (o RealtimeOptions) batch() Options {
	return Options{Language: o.Language, MaxThreads: o.MaxThreads}
}

// Event is one realtime update. PartialText is the whole transcript so far.
type Event struct {
	IsCapturing   bool
	PartialText   string
	SliceIndex    int
	ProcessTime   time.Duration
	RecordingTime time.Duration
}

const (
	subscriberBuffer  = 16
	finalFlushTimeout = 2 * time.Minute
)

// RealtimeSession fans realtime events out to subscribers. Every subscription
// channel is closed exactly once: by its unsubscribe func or when the session ends.
type RealtimeSession struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	nextID int
	closed bool

	stop     func()
	stopOnce sync.Once
	done     chan struct{}
}

func NewRealtimeSession(stop func()) *RealtimeSession {
	return &RealtimeSession{
		subs: make(map[int]chan Event),
		stop: stop,
		done: make(chan struct{}),
	}
}

// Subscribe returns an event channel and the func that tears it down.
func (s *RealtimeSession) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

// Publish delivers ev to every subscriber without blocking. A full subscriber
// loses its oldest queued event, never the newest.
func (s *RealtimeSession) Publish(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}

// Close ends the session and closes every remaining subscription.
func (s *RealtimeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
	close(s.done)
}

// Stop ends capture. Audio already captured is still transcribed and
// delivered as the final event before the session closes.
func (s *RealtimeSession) Stop() {
	s.stopOnce.Do(func() {
		if s.stop != nil {
			s.stop()
		}
	})
}

// Done is closed once the final event has been published.
func (s *RealtimeSession) Done() <-chan struct{} {
	return s.done
}

// TranscribeRealtime starts microphone capture and transcribes it slice by slice.
// ctx bounds the whole session including the final flush; Stop only ends capture.
func (e *Engine) TranscribeRealtime(ctx context.Context, opts RealtimeOptions) (*RealtimeSession, error) {
	if opts.RealtimeWindowSec <= 0 {
		return nil, fmt.Errorf("invalid realtime window: %ds", opts.RealtimeWindowSec)
	}
	if opts.SliceSec <= 0 || opts.SliceSec > opts.RealtimeWindowSec {
		opts.SliceSec = opts.RealtimeWindowSec
	}
	if e.capture.BytesPerSecond() <= 0 {
		return nil, fmt.Errorf("invalid capture config: %+v", e.capture)
	}

	captureCtx, stopCapture := context.WithCancel(ctx)
	src := e.newSource(e.capture)
	frames, errs, err := src.Start(captureCtx)
	if err != nil {
		stopCapture()
		return nil, fmt.Errorf("start capture: %w", err)
	}

	s := NewRealtimeSession(stopCapture)
	r := &realtimeRun{
		engine:      e,
		session:     s,
		opts:        opts,
		bps:         e.capture.BytesPerSecond(),
		sliceBytes:  opts.SliceSec * e.capture.BytesPerSecond(),
		windowBytes: opts.RealtimeWindowSec * e.capture.BytesPerSecond(),
		results:     make(chan sliceResult, 1),
	}

	log.Info().Int("window_sec", opts.RealtimeWindowSec).Int("slice_sec", opts.SliceSec).
		Msg("engine: realtime transcribe started")

	go r.run(ctx, captureCtx, stopCapture, src, frames, errs)
	return s, nil
}

type slice struct {
	index int
	pcm   []byte
	final bool
}

type sliceResult struct {
	index int
	text  string
	final bool
	took  time.Duration
	err   error
}

// realtimeRun is owned by a single goroutine; only results crosses goroutines.
type realtimeRun struct {
	engine  *Engine
	session *RealtimeSession
	opts    RealtimeOptions

	bps         int
	sliceBytes  int
	windowBytes int

	captured   int
	current    []byte
	sliceIndex int
	dirty      bool
	sealed     []slice

	texts     []string
	finalized []bool

	busy    bool
	results chan sliceResult
}

func (r *realtimeRun) run(ctx, captureCtx context.Context, stopCapture func(), src recording.FrameSource,
	frames <-chan recording.AudioFrame, errs <-chan error) {
	defer r.session.Close()

	ticker := time.NewTicker(r.engine.step)
	defer ticker.Stop()

capture:
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				frames = nil
				break capture
			}
			if r.append(frame.Data) {
				log.Info().Msg("engine: realtime window reached")
				break capture
			}
			r.dispatch(ctx)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			log.Error().Err(err).Msg("engine: realtime capture error")

		case <-ticker.C:
			r.dispatch(ctx)

		case res := <-r.results:
			r.busy = false
			r.apply(res)
			r.publish(true, res.took)
			r.dispatch(ctx)

		case <-captureCtx.Done():
			break capture
		}
	}

	stopCapture()
	if err := src.Stop(); err != nil {
		log.Warn().Err(err).Msg("engine: stop capture")
	}

	// frames already queued by the source still count
	if frames != nil {
		for frame := range frames {
			r.append(frame.Data)
		}
	}

	flushCtx, cancel := context.WithTimeout(ctx, finalFlushTimeout)
	defer cancel()

	var took time.Duration
	if r.busy {
		select {
		case res := <-r.results:
			r.apply(res)
			took = res.took
		case <-flushCtx.Done():
		}
		r.busy = false
	}

	r.seal()
	for _, sl := range r.sealed {
		res := r.transcribe(flushCtx, sl)
		r.apply(res)
		took = res.took
	}
	r.sealed = nil

	r.publish(false, took)
	log.Info().Dur("recorded", r.recordingTime()).Msg("engine: realtime transcribe finished")
}

// append adds captured PCM, sealing full slices. It reports whether the window is full.
func (r *realtimeRun) append(data []byte) bool {
	if remaining := r.windowBytes - r.captured; len(data) > remaining {
		data = data[:remaining]
	}
	for len(data) > 0 {
		n := min(r.sliceBytes-len(r.current), len(data))
		r.current = append(r.current, data[:n]...)
		data = data[n:]
		r.captured += n
		r.dirty = true
		if len(r.current) >= r.sliceBytes {
			r.seal()
		}
	}
	return r.captured >= r.windowBytes
}

func (r *realtimeRun) seal() {
	if len(r.current) == 0 {
		return
	}
	r.sealed = append(r.sealed, slice{index: r.sliceIndex, pcm: r.current, final: true})
	r.current = nil
	r.sliceIndex++
	r.dirty = false
}

// dispatch starts one background transcription if none is running:
// sealed slices first, otherwise the growing current slice.
func (r *realtimeRun) dispatch(ctx context.Context) {
	if r.busy {
		return
	}

	var sl slice
	switch {
	case len(r.sealed) > 0:
		sl = r.sealed[0]
		r.sealed = r.sealed[1:]
	case r.dirty && len(r.current) > 0:
		sl = slice{index: r.sliceIndex, pcm: append([]byte(nil), r.current...)}
		r.dirty = false
	default:
		return
	}

	r.busy = true
	go func() {
		r.results <- r.transcribe(ctx, sl)
	}()
}

func (r *realtimeRun) transcribe(ctx context.Context, sl slice) sliceResult {
	start := time.Now()
	text, err := r.engine.transcribePCM(ctx, sl.pcm, r.opts.batch())
	return sliceResult{
		index: sl.index,
		text:  strings.TrimSpace(text),
		final: sl.final,
		took:  time.Since(start),
		err:   err,
	}
}

func (r *realtimeRun) apply(res sliceResult) {
	if res.err != nil {
		log.Warn().Err(res.err).Int("slice", res.index).Bool("final", res.final).
			Msg("engine: realtime slice transcription failed")
		if res.final {
			// let a later partial never overwrite a failed final
			r.grow(res.index)
			r.finalized[res.index] = true
		}
		return
	}

	r.grow(res.index)
	if r.finalized[res.index] {
		return
	}
	r.texts[res.index] = res.text
	r.finalized[res.index] = res.final
}

func (r *realtimeRun) grow(index int) {
	for len(r.texts) <= index {
		r.texts = append(r.texts, "")
		r.finalized = append(r.finalized, false)
	}
}

func (r *realtimeRun) text() string {
	parts := make([]string, 0, len(r.texts))
	for _, t := range r.texts {
		if t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (r *realtimeRun) recordingTime() time.Duration {
	return time.Duration(r.captured) * time.Second / time.Duration(r.bps)
}

func (r *realtimeRun) publish(capturing bool, took time.Duration) {
	r.session.Publish(Event{
		IsCapturing:   capturing,
		PartialText:   r.text(),
		SliceIndex:    r.sliceIndex,
		ProcessTime:   took,
		RecordingTime: r.recordingTime(),
	})
}
