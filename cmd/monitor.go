package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"
	"github.com/spf13/cobra"

	"github.com/haosfm/haos/internal/config"
	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/monitor"
)

var (
	monitorPreset    string
	monitorBPM       float64
	monitorSaveMixer bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Open the live sequencer monitor",
	Long: `Open the terminal monitor for a session: the step grid with its playhead,
instrument selections, voice load, engine level and the debug log tail.
Click a cell to toggle a step.

Example:
  haos monitor                    # Configured pattern
  haos monitor --preset techno    # Start from a built-in preset
  haos monitor --save-mixer       # Persist instrument choices on quit`,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	addMonitorFlags(monitorCmd)
}

// addMonitorFlags registers the monitor flags on c. The root command runs
// the monitor too.
func addMonitorFlags(c *cobra.Command) {
	c.Flags().StringVarP(&monitorPreset, "preset", "p", "", "built-in preset or library pattern to load")
	c.Flags().Float64Var(&monitorBPM, "bpm", 0, "tempo override (40-300)")
	c.Flags().BoolVar(&monitorSaveMixer, "save-mixer", false, "save the mixer to the config file on quit")
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	cleanup, err := initLogging("haos")
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	s, err := newSession(ctx, cfg, sessionOptions{Preset: monitorPreset, BPM: monitorBPM})
	if err != nil {
		return err
	}
	defer s.Close()

	zone.NewGlobal()

	model := monitor.New(ctx, s.orch, s.sched, monitor.Sources{
		Ticks:  s.sched.Ticks(),
		Events: s.bridge.Events(),
		States: s.orch.PlayStates(),
		Logs:   log.NewListener(ctx),
	})
	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)

	_, err = p.Run()

	if monitorSaveMixer {
		path := configPath()
		if saveErr := config.SaveMixer(path, mixerToConfig(s.orch.Mixer())); saveErr != nil {
			log.ErrorErr(log.CatConfig, "saving mixer", saveErr, "path", path)
			if err == nil {
				err = saveErr
			}
		} else {
			log.Info(log.CatConfig, "mixer saved", "path", path)
		}
	}

	if err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
