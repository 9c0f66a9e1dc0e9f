package solver

import (
	"log/slog"
)

// Feedback hands solutions to the speaker unless muted.
type Feedback struct {
	store   *Store
	speaker Speaker
	logger  *slog.Logger
}

// NewFeedback creates a feedback controller. speaker may be nil.
func NewFeedback(store *Store, speaker Speaker, logger *slog.Logger) *Feedback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Feedback{
		store:   store,
		speaker: speaker,
		logger:  logger.With("component", "solver.feedback"),
	}
}

// OnSolution speaks text if not muted right now. It does not wait for
// speech to finish.
func (f *Feedback) OnSolution(text string) {
	if f.speaker == nil {
		return
	}
	if f.store.Snapshot().Muted {
		f.logger.Debug("muted, not speaking", "chars", len(text))
		return
	}
	f.speaker.Speak(text)
}

// ToggleMute flips Muted and returns the new value. Speech already
// started is not interrupted.
func (f *Feedback) ToggleMute() bool {
	st := f.store.Update(func(s *State) { s.Muted = !s.Muted })
	f.logger.Info("mute toggled", "muted", st.Muted)
	return st.Muted
}
