package tts

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"sync"
)

// Player plays synthesized audio. Play blocks until playback finishes or
// ctx is done.
type Player interface {
	Play(ctx context.Context, audio *AudioResult) error
}

// CommandPlayer pipes audio into an external player's stdin.
type CommandPlayer struct {
	command string
	args    func(AudioFormat) []string
}

// NewCommandPlayer creates a player for command. ffplay, mpv and aplay get
// their stdin arguments filled in; any other command receives no arguments.
func NewCommandPlayer(command string) *CommandPlayer {
	return &CommandPlayer{command: command, args: argsFor(command)}
}

// Play runs the command with the audio on stdin.
func (p *CommandPlayer) Play(ctx context.Context, audio *AudioResult) error {
	if audio == nil || len(audio.Audio) == 0 {
		return nil
	}

	cmd := exec.CommandContext(ctx, p.command, p.args(audio.Format)...)
	cmd.Stdin = bytes.NewReader(audio.Audio)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("tts: %s: %w: %s", p.command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return nil
}

// Command returns the player executable.
func (p *CommandPlayer) Command() string {
	return p.command
}

func argsFor(command string) func(AudioFormat) []string {
	switch command {
	case "ffplay":
		return func(f AudioFormat) []string {
			args := []string{"-nodisp", "-autoexit", "-loglevel", "error"}
			if f.Encoding == EncodingPCM {
				args = append(args, "-f", "s16le", "-ar", strconv.Itoa(f.SampleRate), "-ac", "1")
			}
			return append(args, "-i", "pipe:0")
		}
	case "mpv":
		return func(AudioFormat) []string {
			return []string{"--no-video", "--really-quiet", "-"}
		}
	case "aplay":
		return func(f AudioFormat) []string {
			if f.Encoding == EncodingPCM {
				return []string{"-q", "-f", "S16_LE", "-r", strconv.Itoa(f.SampleRate), "-c", "1", "-"}
			}
			return []string{"-q", "-"}
		}
	default:
		return func(AudioFormat) []string { return nil }
	}
}

// NopPlayer discards audio.
type NopPlayer struct{}

// Play implements Player.
func (NopPlayer) Play(ctx context.Context, audio *AudioResult) error { return nil }

// MockPlayer records played audio for tests.
type MockPlayer struct {
	// PlayFunc is called when Play is invoked. If nil, Play returns nil.
	PlayFunc func(ctx context.Context, audio *AudioResult) error

	mu     sync.Mutex
	played []*AudioResult
}

// Play records audio and calls PlayFunc.
func (m *MockPlayer) Play(ctx context.Context, audio *AudioResult) error {
	m.mu.Lock()
	m.played = append(m.played, audio)
	fn := m.PlayFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, audio)
	}
	return nil
}

// Played returns every audio result passed to Play.
func (m *MockPlayer) Played() []*AudioResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*AudioResult, len(m.played))
	copy(out, m.played)
	return out
}

var (
	_ Player = (*CommandPlayer)(nil)
	_ Player = NopPlayer{}
	_ Player = (*MockPlayer)(nil)
)
