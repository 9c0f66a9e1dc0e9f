// Package tts reads solutions aloud.
//
// A Provider turns text into encoded audio and a Player plays it. Speaker
// combines the two behind a fire-and-forget Speak call: synthesis and
// playback run on their own goroutine and failures are only logged.
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceAlloy),
//	)
//	speaker := tts.NewSpeaker(provider, tts.NewCommandPlayer("ffplay"))
//	defer speaker.Close()
//
//	speaker.Speak("The answer is 42.")
package tts

import (
	"context"
	"time"
)

// Provider turns text into one complete encoded audio clip.
type Provider interface {
	Synthesize(ctx context.Context, text string) (*AudioResult, error)
	Health(ctx context.Context) error
	Close() error
}

// AudioResult is a synthesized clip.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	Duration  time.Duration // zero when the provider does not say
	CharCount int
	LatencyMs int64
}

// AudioFormat describes how Audio is encoded.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
	BitDepth   int // PCM only
}

// Encoding is an output format name as providers spell it.
type Encoding string

const (
	EncodingMP3  Encoding = "mp3"
	EncodingOpus Encoding = "opus"
	EncodingAAC  Encoding = "aac"
	EncodingFLAC Encoding = "flac"
	EncodingWAV  Encoding = "wav"
	EncodingPCM  Encoding = "pcm" // raw 24kHz mono PCM16
)

// SampleRateFromEncoding returns the rate providers produce for enc.
func SampleRateFromEncoding(enc Encoding) int {
	rates := map[Encoding]int{
		EncodingPCM:  24000,
		EncodingWAV:  24000,
		EncodingOpus: 48000,
	}
	if r, ok := rates[enc]; ok {
		return r
	}
	return 44100
}
