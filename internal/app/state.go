package app

import "sync"

type RealtimeStatus string

const (
	RealtimeIdle   RealtimeStatus = "idle"
	RealtimeActive RealtimeStatus = "active"
)

type FileStatus string

const (
	FileIdle         FileStatus = "idle"
	FileTranscribing FileStatus = "transcribing"
)

type RecordStatus string

const (
	RecordIdle         RecordStatus = "idle"
	RecordRecording    RecordStatus = "recording"
	RecordTranscribing RecordStatus = "transcribing"
)

// ModelReadiness tracks startup. Ready never goes back to false.
type ModelReadiness struct {
	Ready                   bool
	DownloadProgressPercent float64
	BytesWritten            int64
	BytesTotal              int64
	Err                     error
}

type RealtimeState struct {
	Status    RealtimeStatus
	Text      string
	LastError error
}

func (s RealtimeState) Busy() bool { return s.Status == RealtimeActive }

type FileState struct {
	Status    FileStatus
	Text      string
	LastError error
}

func (s FileState) Busy() bool { return s.Status == FileTranscribing }

type RecordState struct {
	Status    RecordStatus
	Text      string
	URI       string // last finished recording
	LastError error
}

func (s RecordState) Busy() bool { return s.Status == RecordTranscribing }

// Recording reports whether the microphone session is open.
func (s RecordState) Recording() bool { return s.Status == RecordRecording }

// Snapshot is a copy of everything the screen renders.
type Snapshot struct {
	Model    ModelReadiness
	Realtime RealtimeState
	File     FileState
	Record   RecordState
}

// State holds the Snapshot behind a mutex and notifies subscribers on change.
// Notifications carry no data and coalesce: a slow reader sees one pending
// signal and reads the latest Snapshot.
type State struct {
	mu     sync.Mutex
	snap   Snapshot
	subs   map[int]chan struct{}
	nextID int
}

func NewState() *State {
	return &State{
		snap: Snapshot{
			Realtime: RealtimeState{Status: RealtimeIdle},
			File:     FileState{Status: FileIdle},
			Record:   RecordState{Status: RecordIdle},
		},
		subs: make(map[int]chan struct{}),
	}
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe returns a change signal channel and its cancel func.
func (s *State) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *State) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.snap)
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
