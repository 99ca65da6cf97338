package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/example/go-tts-form/internal/config"
	"github.com/example/go-tts-form/internal/gtts"
	"github.com/example/go-tts-form/internal/telemetry"
	"github.com/example/go-tts-form/internal/tempstore"
	"github.com/example/go-tts-form/internal/tts"
	"github.com/example/go-tts-form/internal/vocoder"
)

// backend is the synthesizer selected by configuration plus what the
// handler needs to know about it.
type backend struct {
	synth   tts.Synthesizer
	success string
	close   func()
}

func newBackend(cfg config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.TTS.Backend {
	case config.BackendCloud:
		opts := []gtts.Option{
			gtts.WithTLD(cfg.Cloud.TLD),
			gtts.WithDefaultLanguage(cfg.TTS.DefaultLanguage),
			gtts.WithSlow(cfg.TTS.Slow),
			gtts.WithRateLimit(cfg.Cloud.RequestsPerSecond, cfg.Cloud.Burst),
			gtts.WithLogger(logger),
		}
		if cfg.Cloud.BaseURL != "" {
			opts = append(opts, gtts.WithBaseURL(cfg.Cloud.BaseURL))
		}
		if cfg.Cloud.Timeout > 0 {
			opts = append(opts, gtts.WithHTTPClient(&http.Client{
				Timeout: time.Duration(cfg.Cloud.Timeout) * time.Second,
			}))
		}
		return backend{synth: gtts.NewClient(opts...), success: tts.MsgSuccessGTTS, close: func() {}}, nil

	case config.BackendCLI:
		cli, err := gtts.NewCLI(cfg.CLI.Command,
			gtts.WithCLITLD(cfg.Cloud.TLD),
			gtts.WithCLIDefaultLanguage(cfg.TTS.DefaultLanguage),
			gtts.WithCLISlow(cfg.TTS.Slow),
			gtts.WithCLILogger(logger),
		)
		if err != nil {
			return backend{}, err
		}
		return backend{synth: cli, success: tts.MsgSuccessGTTS, close: func() {}}, nil

	case config.BackendLocal:
		model, err := vocoder.Load(localConfig(cfg), vocoder.WithLogger(logger))
		if err != nil {
			// Keep serving: every request reports the load failure.
			logger.Error("local model unavailable", slog.String("error", err.Error()))
			return backend{synth: tts.Unavailable(tts.FormatWAV, err), success: tts.MsgSuccess, close: func() {}}, nil
		}
		return backend{synth: model, success: tts.MsgSuccess, close: model.Close}, nil

	default:
		return backend{}, fmt.Errorf("unsupported backend %q", cfg.TTS.Backend)
	}
}

func localConfig(cfg config.Config) vocoder.Config {
	return vocoder.Config{
		ModelPath:      cfg.Local.ModelPath,
		TokenizerModel: cfg.Local.TokenizerModel,
		ORTLibraryPath: cfg.Local.ORTLibraryPath,
		ORTAPIVersion:  cfg.Local.ORTAPIVersion,
		InputName:      cfg.Local.InputName,
		OutputName:     cfg.Local.OutputName,
		SampleRate:     cfg.Local.SampleRate,
		Normalize:      cfg.Local.Normalize,
	}
}

// app is the assembled request handler and the resources behind it.
type app struct {
	handler   *tts.Handler
	telemetry *telemetry.Provider
	close     func()
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	be, err := newBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	store, err := tempstore.New(cfg.Server.TempDir)
	if err != nil {
		be.close()
		return nil, err
	}

	tp, err := telemetry.Setup(ctx, cfg.Metrics.Enabled, version(), cfg.TTS.Backend, logger)
	if err != nil {
		be.close()
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	h := tts.NewHandler(be.synth, store,
		tts.WithLanguages(cfg.TTS.Languages),
		tts.WithSuccessMessage(be.success),
		tts.WithLogger(logger),
		tts.WithMeter(tp.Meter(telemetry.ServiceName)),
	)

	return &app{
		handler:   h,
		telemetry: tp,
		close: func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
			}
			be.close()
		},
	}, nil
}

func version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}
