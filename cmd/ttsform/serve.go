package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/example/go-tts-form/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the text-to-speech web form",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger := slog.Default()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.handler.Ready(); err != nil {
				logger.Warn("serving with an unavailable synthesizer", slog.String("error", err.Error()))
			}

			opts := []server.Option{server.WithLogger(logger)}
			if h := a.telemetry.Handler(); h != nil {
				opts = append(opts, server.WithMetricsHandler(h))
			}

			return server.New(cfg, a.handler, opts...).Start(ctx)
		},
	}

	return cmd
}
