package solver

import (
	"sync"
)

// State is everything the display shows. It is published as a whole on
// every change.
type State struct {
	Recording    bool   `json:"recording"`
	Processing   bool   `json:"processing"`
	Muted        bool   `json:"muted"`
	SolutionText string `json:"solution_text"`
	ErrorText    string `json:"error_text"`
}

// Phase is the coarse state machine derived from State.
type Phase string

const (
	PhaseIdle                   Phase = "idle"
	PhaseRecording              Phase = "recording"
	PhaseRecordingAndProcessing Phase = "recording_processing"
	PhaseError                  Phase = "error"
)

// Phase derives the current phase. Processing after the session stopped
// still reads as idle (or error); the late response will be discarded.
func (s State) Phase() Phase {
	switch {
	case s.Recording && s.Processing:
		return PhaseRecordingAndProcessing
	case s.Recording:
		return PhaseRecording
	case s.ErrorText != "":
		return PhaseError
	default:
		return PhaseIdle
	}
}

// Store is the single owner of State. Every mutation runs under one lock
// and publishes exactly one snapshot when something changed.
//
// Alongside State the store tracks the generation of the live session
// (0 when none), so a response can be checked against it in the same
// critical section that applies it.
type Store struct {
	mu         sync.Mutex
	state      State
	generation uint64
	publish    func(State)
}

// NewStore creates a store publishing snapshots to publish, which may be
// nil. publish is called with the lock held and must not call back into
// the store.
func NewStore(publish func(State)) *Store {
	if publish == nil {
		publish = func(State) {}
	}
	return &Store{publish: publish}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Generation returns the live session generation, 0 when idle.
func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Update applies fn and publishes the result if it changed.
func (s *Store) Update(fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apply(fn)
	return s.state
}

// SetSession records gen as the live session (0 for none) and applies fn
// in the same update.
func (s *Store) SetSession(gen uint64, fn func(*State)) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation = gen
	s.apply(fn)
	return s.state
}

// TryBeginProcessing sets Processing if it was clear and reports whether
// it did. Exactly one caller wins while a request is outstanding.
func (s *Store) TryBeginProcessing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Processing {
		return false
	}
	s.apply(func(st *State) { st.Processing = true })
	return true
}

// EndProcessing clears Processing and, if gen is still the live session,
// applies outcome in the same update. It reports whether outcome was
// applied.
func (s *Store) EndProcessing(gen uint64, outcome func(*State)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := gen != 0 && gen == s.generation
	s.apply(func(st *State) {
		st.Processing = false
		if current && outcome != nil {
			outcome(st)
		}
	})
	return current
}

func (s *Store) apply(fn func(*State)) {
	before := s.state
	fn(&s.state)
	if s.state != before {
		s.publish(s.state)
	}
}
