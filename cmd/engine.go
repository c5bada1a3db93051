package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/haosfm/haos/internal/engine"
)

var engineCmd = &cobra.Command{
	Use:    "engine",
	Short:  "Run the loopback engine on stdin/stdout",
	Hidden: true,
	Long: `Run the loopback engine as a child process: newline-delimited JSON
commands are read from stdin and events written to stdout. Point
engine.command at the haos binary with args ["engine"] to use it.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Stdout carries the protocol, so logs go to the file only.
		cleanup, err := initLogging("haos-engine")
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return engine.ServeEngine(ctx, os.Stdin, os.Stdout,
			engine.WithReadyDelay(cfg.Engine.ReadyDelay),
			engine.WithWaveformPoints(cfg.Engine.WaveformPoints),
		)
	},
}

func init() {
	rootCmd.AddCommand(engineCmd)
}
