package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teslashibe/snapsolve/internal/log"
	"github.com/teslashibe/snapsolve/pkg/backend"
	"github.com/teslashibe/snapsolve/pkg/inference"
)

var serveAddr string

func serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the inference backend",
		Long: `Run the HTTP service that receives captured images and answers with a
vision model. GOOGLE_API_KEY or a service account credentials file is
required.`,
		Example: `  snapsolve serve
  snapsolve serve --addr :5000 -c snapsolve.yaml`,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "0.0.0.0:5000", "Listen address")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateModel(); err != nil {
		return err
	}

	logger := log.L()
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider, err := inference.NewGemini(ctx,
		inference.WithAPIKey(cfg.Model.APIKey),
		inference.WithCredentialsFile(cfg.Model.CredentialsFile),
		inference.WithModel(cfg.Model.Name),
		inference.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer provider.Close()

	srv := backend.New(provider,
		backend.WithAddr(serveAddr),
		backend.WithModel(cfg.Model.Name),
		backend.WithGeneration(cfg.Model.Temperature, cfg.Model.MaxTokens),
		backend.WithRateLimit(cfg.Model.RateLimit, cfg.Model.RateWindow),
		backend.WithMaxBodyBytes(cfg.Model.MaxBodyBytes),
		backend.WithMaxPixels(cfg.Model.MaxPixels),
		backend.WithProxyHeader(cfg.Server.ProxyHeader),
		backend.WithAllowedOrigins(strings.Join(cfg.Model.AllowedOrigins, ",")),
		backend.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		backend.WithLogger(logger),
	)
	return srv.Start(ctx)
}
