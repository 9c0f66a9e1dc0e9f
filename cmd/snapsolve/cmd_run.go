package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teslashibe/snapsolve/internal/config"
	"github.com/teslashibe/snapsolve/internal/log"
	"github.com/teslashibe/snapsolve/pkg/camera"
	"github.com/teslashibe/snapsolve/pkg/inference"
	"github.com/teslashibe/snapsolve/pkg/solver"
	"github.com/teslashibe/snapsolve/pkg/tts"
	"github.com/teslashibe/snapsolve/pkg/web"
)

var (
	runStaticDir string
	runAutostart bool
)

func runCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the camera orchestrator and dashboard",
		Long: `Run the orchestrator: it owns the camera, submits captures to the
inference backend, speaks solutions, and serves the dashboard with its
control API and live state.`,
		Example: `  snapsolve run
  SNAPSOLVE_CAMERA_SOURCE=remote snapsolve run --static ./web
  snapsolve run --autostart --log-level debug`,
		RunE: runRun,
	}
	cmd.Flags().StringVar(&runStaticDir, "static", "", "Directory of dashboard assets to serve at /")
	cmd.Flags().BoolVar(&runAutostart, "autostart", false, "Start the camera session immediately")
	return cmd
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := log.L()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	manager := camera.NewManager(cfg.Camera)
	device, err := camera.NewDevice(manager, logger)
	if err != nil {
		return err
	}

	urls := append([]string{cfg.Backend.BaseURL}, cfg.Backend.FallbackURLs...)
	analyzer, err := inference.NewClientChain(urls,
		inference.WithTimeout(cfg.Backend.Timeout),
		inference.WithRetry(cfg.Backend.MaxRetries, 500*time.Millisecond),
		inference.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer analyzer.Close()

	hctx, hcancel := context.WithTimeout(ctx, 5*time.Second)
	if err := analyzer.Health(hctx); err != nil {
		logger.Warn("inference backend not reachable yet", "url", cfg.Backend.BaseURL, "error", err)
	}
	hcancel()

	speaker, err := newSpeaker(cfg, logger)
	if err != nil {
		return err
	}
	var voice solver.Speaker
	if speaker != nil {
		defer speaker.Close()
		voice = speaker
	}

	opts := []web.Option{
		web.WithLogger(logger),
		web.WithCamera(manager),
		web.WithStaticDir(runStaticDir),
		web.WithAllowedOrigins(strings.Join(cfg.Model.AllowedOrigins, ",")),
		web.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	}
	if remote, ok := device.(*camera.RemoteDevice); ok {
		opts = append(opts, web.WithRemoteCamera(remote))
	}
	server := web.NewServer(cfg.Server.Addr(), opts...)

	sink := solver.MultiSink{server, solver.SinkFunc(func(st solver.State) {
		logger.Debug("state changed", "phase", st.Phase(), "processing", st.Processing, "muted", st.Muted)
	})}
	ctrl := solver.NewController(device, analyzer, sink, voice,
		solver.WithLogger(logger),
		solver.WithQualityFunc(func() int { return manager.GetConfig().Quality }),
		solver.WithAcquireTimeout(cfg.Session.AcquireTimeout),
		solver.WithRequestTimeout(cfg.Backend.Timeout),
	)
	defer ctrl.Close()
	server.Bind(ctrl)

	if runAutostart {
		if err := ctrl.Start(ctx); err != nil {
			logger.Warn("autostart failed", "error", err)
		}
	}

	logger.Info("snapsolve running",
		"dashboard", "http://"+cfg.Server.Addr(),
		"backend", cfg.Backend.BaseURL,
		"camera", cfg.Camera.Source,
		"speech", speaker != nil,
	)
	return server.Start(ctx)
}

// newSpeaker builds the spoken feedback pipeline, or nil when disabled.
func newSpeaker(cfg *config.Config, logger *slog.Logger) (*tts.Speaker, error) {
	if !cfg.Speech.Enabled || cfg.Speech.Provider == config.SpeechNone {
		return nil, nil
	}
	if cfg.Speech.Provider != config.SpeechOpenAI {
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Speech.Provider)
	}

	provider, err := tts.NewOpenAI(
		tts.WithAPIKey(cfg.Speech.APIKey),
		tts.WithVoice(cfg.Speech.Voice),
		tts.WithLogger(log.Component("tts")),
	)
	if err != nil {
		return nil, err
	}

	var player tts.Player = tts.NopPlayer{}
	if cfg.Speech.Player != "" && cfg.Speech.Player != "none" {
		player = tts.NewCommandPlayer(cfg.Speech.Player)
	}
	logger.Info("speech enabled",
		"provider", cfg.Speech.Provider,
		"voice", provider.VoiceID(),
		"player", cfg.Speech.Player,
	)
	return tts.NewSpeaker(provider, player,
		tts.WithSpeakerLogger(logger),
		tts.WithUtteranceTimeout(cfg.Speech.Timeout),
	), nil
}
