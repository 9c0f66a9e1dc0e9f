package tts

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultQueueSize bounds utterances waiting behind the one being spoken.
const DefaultQueueSize = 8

// Speaker speaks text without blocking the caller. Utterances are spoken
// one at a time in the order received.
type Speaker struct {
	provider Provider
	player   Player
	logger   *slog.Logger
	timeout  time.Duration

	mu     sync.Mutex
	closed bool
	queue  chan string

	pending sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}
}

// SpeakerOption configures a Speaker.
type SpeakerOption func(*Speaker)

// WithSpeakerLogger sets the logger used to report failures.
func WithSpeakerLogger(logger *slog.Logger) SpeakerOption {
	return func(s *Speaker) { s.logger = logger }
}

// WithUtteranceTimeout bounds synthesis plus playback of one utterance.
// Non-positive values keep the default.
func WithUtteranceTimeout(d time.Duration) SpeakerOption {
	return func(s *Speaker) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithQueueSize sets how many utterances may wait.
func WithQueueSize(n int) SpeakerOption {
	return func(s *Speaker) { s.queue = make(chan string, n) }
}

// NewSpeaker creates a Speaker and starts its worker.
func NewSpeaker(provider Provider, player Player, opts ...SpeakerOption) *Speaker {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Speaker{
		provider: provider,
		player:   player,
		logger:   slog.Default(),
		timeout:  2 * time.Minute,
		queue:    make(chan string, DefaultQueueSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.player == nil {
		s.player = NopPlayer{}
	}
	s.logger = s.logger.With("component", "tts.speaker")

	go s.run()
	return s
}

// Speak queues text and returns immediately. Failures are logged.
func (s *Speaker) Speak(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		s.logger.Debug("speak after close", "error", ErrSpeakerClosed)
		return
	}

	s.pending.Add(1)
	select {
	case s.queue <- text:
	default:
		s.pending.Done()
		s.logger.Warn("speech queue full, dropping utterance", "chars", len(text))
	}
}

// Wait blocks until every queued utterance has been handled.
func (s *Speaker) Wait() {
	s.pending.Wait()
}

// Close stops the worker, aborting the current utterance and dropping the
// rest. It does not close the provider.
func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()

	s.cancel()
	<-s.done
	return nil
}

func (s *Speaker) run() {
	defer close(s.done)
	for text := range s.queue {
		if s.ctx.Err() == nil {
			s.say(text)
		}
		s.pending.Done()
	}
}

func (s *Speaker) say(text string) {
	text = SpokenText(text)
	if text == "" {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	audio, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		s.logger.Warn("speech synthesis failed", "error", err)
		return
	}
	if err := s.player.Play(ctx, audio); err != nil {
		s.logger.Warn("speech playback failed", "error", err)
		return
	}
	s.logger.Debug("spoke solution",
		"chars", audio.CharCount,
		"bytes", len(audio.Audio),
	)
}
