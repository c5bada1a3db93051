package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/haosfm/haos/internal/config"
	"github.com/haosfm/haos/internal/log"
)

func init() {
	// Force lipgloss/termenv to query terminal background color BEFORE
	// any Bubble Tea program starts. This prevents the terminal's OSC 11
	// response from racing with Bubble Tea's input loop.
	//
	// See: https://github.com/charmbracelet/bubbletea/issues/1036
	_ = lipgloss.HasDarkBackground()
}

// localConfigPath is where a project config lives and where the default
// config is written when none is found.
var localConfigPath = filepath.Join(".haos", "config.yaml")

var (
	version   = "dev"
	cfgFile   string
	debugFlag bool
	cfg       config.Config
)

var rootCmd = &cobra.Command{
	Use:   "haos",
	Short: "A terminal step sequencer driving a software audio engine",
	Long: `haos runs a 16-step drum and synth sequencer and drives an audio engine
over a command/event bridge. With no subcommand it opens the monitor.`,
	Version:      version,
	SilenceUsage: true,
	RunE:         runMonitor,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: .haos/config.yaml, then ~/.config/haos/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&debugFlag, "debug", "d", false,
		"write a debug log (path from HAOS_LOG, default debug.log)")
	addMonitorFlags(rootCmd)
}

// setViperDefaults seeds viper so that keys missing from the file keep
// their default values after Unmarshal.
func setViperDefaults(v *viper.Viper) {
	d := config.Defaults()
	v.SetDefault("engine.transport", d.Engine.Transport)
	v.SetDefault("engine.ready_delay", d.Engine.ReadyDelay)
	v.SetDefault("engine.level_interval", d.Engine.LevelInterval)
	v.SetDefault("engine.waveform_points", d.Engine.WaveformPoints)
	v.SetDefault("engine.auto_resume", d.Engine.AutoResume)
	v.SetDefault("sequencer.bpm", d.Sequencer.BPM)
	v.SetDefault("sequencer.steps", d.Sequencer.Steps)
	v.SetDefault("sequencer.swing", d.Sequencer.Swing)
	v.SetDefault("sequencer.bank", d.Sequencer.Bank)
	v.SetDefault("mixer.volumes", d.Mixer.Volumes)
	v.SetDefault("mixer.master", d.Mixer.Master)
	v.SetDefault("mixer.drum_machine", d.Mixer.DrumMachine)
	v.SetDefault("mixer.bass_synth", d.Mixer.BassSynth)
	v.SetDefault("mixer.synth", d.Mixer.Synth)
	v.SetDefault("effects.filter_type", d.Effects.FilterType)
	v.SetDefault("effects.filter_frequency", d.Effects.FilterFrequency)
	v.SetDefault("effects.filter_q", d.Effects.FilterQ)
	v.SetDefault("effects.delay_time", d.Effects.DelayTime)
	v.SetDefault("effects.delay_feedback", d.Effects.DelayFeedback)
	v.SetDefault("effects.threshold", d.Effects.Threshold)
	v.SetDefault("effects.ratio", d.Effects.Ratio)
	v.SetDefault("effects.attack", d.Effects.Attack)
	v.SetDefault("effects.release", d.Effects.Release)
	v.SetDefault("voices.max", d.Voices.Max)
	v.SetDefault("patterns.dir", d.Patterns.Dir)
	v.SetDefault("patterns.cache_ttl", d.Patterns.CacheTTL)
	v.SetDefault("tracing.enabled", d.Tracing.Enabled)
	v.SetDefault("tracing.exporter", d.Tracing.Exporter)
	v.SetDefault("tracing.file_path", d.Tracing.FilePath)
	v.SetDefault("tracing.otlp_endpoint", d.Tracing.OTLPEndpoint)
	v.SetDefault("tracing.sample_rate", d.Tracing.SampleRate)
	v.SetDefault("flags", d.Flags)
}

func initConfig() {
	setViperDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .haos/config.yaml (current directory)
		// 2. ~/.config/haos/config.yaml (user config)
		if _, err := os.Stat(localConfigPath); err == nil {
			viper.SetConfigFile(localConfigPath)
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "haos"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			if writeErr := config.WriteDefaultConfig(localConfigPath); writeErr == nil {
				viper.SetConfigFile(localConfigPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)
}

// configPath is where mixer changes are saved.
func configPath() string {
	if p := viper.ConfigFileUsed(); p != "" {
		return p
	}
	return localConfigPath
}

// initLogging enables the debug log when --debug or HAOS_DEBUG is set.
// The returned cleanup is always safe to call.
func initLogging(prefix string) (func(), error) {
	if os.Getenv("HAOS_DEBUG") == "" && !debugFlag {
		return func() {}, nil
	}
	logPath := os.Getenv("HAOS_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}
	cleanup, err := log.InitWithTeaLog(logPath, prefix)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info(log.CatConfig, "haos starting", "version", version, "logPath", logPath, "config", viper.ConfigFileUsed())
	return cleanup, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
