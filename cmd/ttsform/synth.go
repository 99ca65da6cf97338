package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/go-tts-form/internal/tts"
	"github.com/spf13/cobra"
)

func newSynthCmd() *cobra.Command {
	var text string
	var lang string
	var out string

	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Synthesize text once and print the audio file path",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			inputText, err := readSynthText(text, cmd.InOrStdin())
			if err != nil {
				return err
			}

			if lang == "" {
				lang = cfg.TTS.DefaultLanguage
			}

			a, err := newApp(cmd.Context(), cfg, slog.Default())
			if err != nil {
				return err
			}
			defer a.close()

			res := a.handler.Synthesize(cmd.Context(), tts.Request{Text: inputText, Language: lang})
			if !res.OK() {
				return errors.New(res.Message)
			}

			path := res.AudioPath
			if out != "" {
				if err := moveFile(path, out); err != nil {
					return err
				}
				path = out
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, path)
			_, err = fmt.Fprintln(w, res.Message)
			return err
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "Text to synthesize (if empty, read from stdin)")
	cmd.Flags().StringVar(&lang, "lang", "", "Language code (default: configured default language)")
	cmd.Flags().StringVar(&out, "out", "", "Move the generated audio to this path")

	return cmd
}

func readSynthText(text string, stdin io.Reader) (string, error) {
	if text != "" {
		return text, nil
	}

	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("read stdin: %w", err)
	}
	return string(data), nil
}

// moveFile renames src to dst, copying when they are on different devices.
func moveFile(src, dst string) error {
	if dir := filepath.Dir(dst); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	outFile, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if _, err := io.Copy(outFile, in); err != nil {
		_ = outFile.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err := outFile.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
