package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/go-tts-form/internal/config"
	"github.com/example/go-tts-form/internal/doctor"
	"github.com/example/go-tts-form/internal/gtts"
	"github.com/example/go-tts-form/internal/model"
	"github.com/example/go-tts-form/internal/onnx"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the configured backend can run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			dcfg, err := doctorConfig(cmd.Context(), cfg)
			result := doctor.Run(dcfg, cmd.OutOrStdout())
			if err != nil {
				result.AddFailure(err.Error())
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %v\n", doctor.FailMark, err)
			}

			if result.Failed() {
				return errors.New("doctor checks failed")
			}
			return nil
		},
	}
}

// doctorConfig selects the checks relevant to cfg's backend.
func doctorConfig(ctx context.Context, cfg config.Config) (doctor.Config, error) {
	dcfg := doctor.Config{
		Backend: cfg.TTS.Backend,
		TempDir: cfg.Server.TempDir,
	}

	switch cfg.TTS.Backend {
	case config.BackendCloud:
		client := gtts.NewClient(gtts.WithTLD(cfg.Cloud.TLD), gtts.WithBaseURL(cfg.Cloud.BaseURL))
		dcfg.CloudEndpoint = client.Endpoint()

	case config.BackendCLI:
		cli, err := gtts.NewCLI(cfg.CLI.Command)
		if err != nil {
			return dcfg, fmt.Errorf("cli command: %w", err)
		}
		dcfg.GTTSCLIVersion = func() (string, error) {
			vctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return cli.Version(vctx)
		}

	case config.BackendLocal:
		dcfg.ORTVersion = func() (string, error) {
			info, err := onnx.DetectRuntime(cfg.Local.ORTLibraryPath)
			if err != nil {
				return "", err
			}
			return info.Version + " (" + info.LibraryPath + ")", nil
		}
		dcfg.Files = []doctor.FileCheck{
			{Label: "onnx model", Path: cfg.Local.ModelPath},
			{Label: "tokenizer model", Path: cfg.Local.TokenizerModel},
		}
		if cfg.Local.ManifestPath != "" {
			dcfg.VerifyModels = func() error {
				return model.Verify(model.VerifyOptions{ManifestPath: cfg.Local.ManifestPath})
			}
		}
	}

	return dcfg, nil
}
