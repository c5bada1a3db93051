package cmd

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/patterns"
	"github.com/haosfm/haos/internal/presentation"
	"github.com/haosfm/haos/internal/sequencer"
)

var presetsJSON bool

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List built-in presets and library patterns",
	Long: `List the built-in presets followed by the patterns found in the
pattern library (patterns.dir).

Examples:
  haos presets
  haos presets --json | jq '.[].name'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		lib := patterns.New(cfg.Patterns.Dir, patterns.WithoutCache())
		dtos, err := listPatterns(cmd, lib, cfg.Sequencer.Steps)
		if err != nil {
			return err
		}
		return formatPatterns(cmd.OutOrStdout(), dtos, presetsJSON)
	},
}

func init() {
	presetsCmd.Flags().BoolVar(&presetsJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(presetsCmd)
}

// listPatterns returns every built-in preset, then every readable library
// pattern. Unreadable library files are skipped with a warning.
func listPatterns(cmd *cobra.Command, lib *patterns.Library, steps int) ([]presentation.PatternDTO, error) {
	if steps <= 0 {
		steps = sequencer.DefaultSteps
	}
	var dtos []presentation.PatternDTO
	for _, name := range sequencer.Presets() {
		if dto, ok := presentation.FromPreset(name, steps); ok {
			dtos = append(dtos, dto)
		}
	}

	names, err := lib.List()
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		f, err := lib.Load(cmd.Context(), name)
		if err != nil {
			log.Warn(log.CatPatterns, "skipping unreadable pattern", "name", name, "error", err)
			continue
		}
		dto, err := presentation.FromFile(name, f, steps)
		if err != nil {
			log.Warn(log.CatPatterns, "skipping invalid pattern", "name", name, "error", err)
			continue
		}
		dtos = append(dtos, dto)
	}
	return dtos, nil
}

func formatPatterns(w io.Writer, dtos []presentation.PatternDTO, asJSON bool) error {
	formatter := presentation.NewFormatter(w)
	if asJSON {
		if dtos == nil {
			dtos = []presentation.PatternDTO{}
		}
		return formatter.FormatPatterns(dtos)
	}
	return formatter.FormatPatternTable(dtos)
}
