package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List the languages offered in the form",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			for _, lang := range cfg.TTS.Languages {
				if lang == cfg.TTS.DefaultLanguage {
					_, _ = fmt.Fprintf(w, "%s (default)\n", lang)
					continue
				}
				_, _ = fmt.Fprintln(w, lang)
			}
			return nil
		},
	}
}
