package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/haosfm/haos/internal/pubsub"
	"github.com/haosfm/haos/internal/sequencer"
)

var (
	playDuration time.Duration
	playPreset   string
	playBPM      float64
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play the configured pattern without the monitor",
	Long: `Run a headless session: the sequencer plays the configured pattern
through the configured engine until interrupted or until --duration elapses.

Example:
  haos play                          # Play until Ctrl+C
  haos play --preset acid --bpm 128  # Built-in preset at a custom tempo
  haos play --preset groove --duration 8s  # Library pattern for 8s`,
	RunE: runPlay,
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().DurationVar(&playDuration, "duration", 0, "stop after this long (0 plays until interrupted)")
	playCmd.Flags().StringVarP(&playPreset, "preset", "p", "", "built-in preset or library pattern to load")
	playCmd.Flags().Float64Var(&playBPM, "bpm", 0, "tempo override (40-300)")
}

func runPlay(cmd *cobra.Command, _ []string) error {
	cleanup, err := initLogging("haos-play")
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if playDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, playDuration)
		defer cancel()
	}

	s, err := newSession(ctx, cfg, sessionOptions{Preset: playPreset, BPM: playBPM})
	if err != nil {
		return err
	}
	defer s.Close()

	return playSession(ctx, s, cmd.OutOrStdout())
}

// playSession plays s until ctx is done, printing one line per bar.
func playSession(ctx context.Context, s *session, out io.Writer) error {
	bars := s.sched.Ticks().SubscribeTypes(ctx, pubsub.BarTick)

	s.orch.Play()
	st := s.orch.State()
	_, _ = fmt.Fprintf(out, "Playing bank %s at %.0f BPM (%s, %s, %s). Press Ctrl+C to stop.\n",
		st.Bank, st.BPM, st.Mixer.DrumMachine, st.Mixer.BassSynth, st.Mixer.Synth)

	for {
		select {
		case <-ctx.Done():
			played := s.sched.Bar()
			s.orch.Stop()
			stats := s.bridge.Stats()
			_, _ = fmt.Fprintf(out, "Stopped after %d bars: %d commands delivered, %d dropped, %d missed steps\n",
				played, stats.Delivered, stats.Dropped, s.sched.Missed())
			return nil
		case ev, ok := <-bars:
			if !ok {
				return nil
			}
			printBar(out, ev.Payload)
		}
	}
}

func printBar(out io.Writer, t sequencer.Tick) {
	_, _ = fmt.Fprintf(out, "bar %d  bank %s\n", t.Bar, t.Bank)
}
