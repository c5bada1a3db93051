// Package config provides configuration types and defaults for haos.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/haosfm/haos/internal/log"
)

// Engine transports accepted by EngineConfig.Transport.
const (
	TransportLoopback = "loopback"
	TransportProcess  = "process"
)

// Config holds all configuration options for haos.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"`
	Sequencer SequencerConfig `mapstructure:"sequencer"`
	Mixer     MixerConfig     `mapstructure:"mixer"`
	Effects   EffectsConfig   `mapstructure:"effects"`
	Voices    VoicesConfig    `mapstructure:"voices"`
	Patterns  PatternsConfig  `mapstructure:"patterns"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Flags     map[string]bool `mapstructure:"flags"`
}

// EngineConfig selects and tunes the audio engine peer.
type EngineConfig struct {
	Transport string   `mapstructure:"transport"` // "loopback" (default) or "process"
	Command   string   `mapstructure:"command"`   // executable for the process transport
	Args      []string `mapstructure:"args"`

	// ReadyDelay is how long the loopback engine takes to announce itself.
	ReadyDelay time.Duration `mapstructure:"ready_delay"`

	// LevelInterval is the waveform/level streaming period.
	// Values below 16ms are raised to 16ms by the engine.
	LevelInterval time.Duration `mapstructure:"level_interval"`

	WaveformPoints int `mapstructure:"waveform_points"`

	// AutoResume opens the resume gate at startup instead of waiting for
	// the first Play.
	AutoResume bool `mapstructure:"auto_resume"`
}

// SequencerConfig holds the initial clock and pattern state.
type SequencerConfig struct {
	BPM    float64  `mapstructure:"bpm"`
	Steps  int      `mapstructure:"steps"`
	Swing  float64  `mapstructure:"swing"`
	Bank   string   `mapstructure:"bank"`
	Preset string   `mapstructure:"preset"` // built-in preset or library pattern, optional
	Chain  []string `mapstructure:"chain"`
}

// MixerConfig holds track and master volumes and instrument selections.
type MixerConfig struct {
	Volumes     map[string]float64 `mapstructure:"volumes" yaml:"volumes"`
	Master      float64            `mapstructure:"master" yaml:"master"`
	DrumMachine string             `mapstructure:"drum_machine" yaml:"drum_machine"`
	BassSynth   string             `mapstructure:"bass_synth" yaml:"bass_synth"`
	Synth       string             `mapstructure:"synth" yaml:"synth"`
}

// EffectsConfig is the master effect chain sent at the first Play.
type EffectsConfig struct {
	FilterType      string  `mapstructure:"filter_type"`
	FilterFrequency float64 `mapstructure:"filter_frequency"`
	FilterQ         float64 `mapstructure:"filter_q"`
	Distortion      float64 `mapstructure:"distortion"`
	Reverb          float64 `mapstructure:"reverb"`
	DelayTime       float64 `mapstructure:"delay_time"`
	DelayFeedback   float64 `mapstructure:"delay_feedback"`
	DelayMix        float64 `mapstructure:"delay_mix"`
	Threshold       float64 `mapstructure:"threshold"`
	Ratio           float64 `mapstructure:"ratio"`
	Attack          float64 `mapstructure:"attack"`
	Release         float64 `mapstructure:"release"`
}

// VoicesConfig bounds the voice tracker.
type VoicesConfig struct {
	Max int `mapstructure:"max"`
}

// PatternsConfig locates the on-disk pattern library.
type PatternsConfig struct {
	// Dir holds one YAML file per pattern.
	// Default: .haos/patterns
	Dir string `mapstructure:"dir"`

	// CacheTTL bounds how long a decoded pattern is reused.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Watch reloads patterns on file change. Also requires the
	// pattern-watch flag.
	Watch bool `mapstructure:"watch"`
}

// TracingConfig holds distributed tracing configuration for bridge traffic.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/haos/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// Bounds shared with the sequencer and orchestrator.
const (
	MinBPM = 40
	MaxBPM = 300
)

var (
	validTracks       = []string{"kick", "snare", "hihat", "clap", "bass", "synth"}
	validBanks        = []string{"A", "B", "C", "D"}
	validDrumMachines = []string{"808", "909"}
	validBassSynths   = []string{"tb303", "arp2600", "td3"}
	validSynths       = []string{"arp2600", "juno106", "minimoog", "tb303"}
	validFilterTypes  = []string{"lowpass", "highpass", "bandpass", "notch"}
)

// DefaultTracesFilePath returns the default path for trace file export.
// Returns ~/.config/haos/traces/traces.jsonl or empty string if home dir unavailable.
func DefaultTracesFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "haos", "traces", "traces.jsonl")
}

// DefaultMixer returns the factory mix.
func DefaultMixer() MixerConfig {
	return MixerConfig{
		Volumes: map[string]float64{
			"kick":  1.0,
			"snare": 1.0,
			"hihat": 0.7,
			"clap":  0.8,
			"bass":  0.9,
			"synth": 0.8,
		},
		Master:      0.8,
		DrumMachine: "808",
		BassSynth:   "tb303",
		Synth:       "arp2600",
	}
}

// DefaultEffects returns a neutral effect chain.
func DefaultEffects() EffectsConfig {
	return EffectsConfig{
		FilterType:      "lowpass",
		FilterFrequency: 10000,
		FilterQ:         1,
		DelayTime:       0.25,
		DelayFeedback:   0.3,
		Threshold:       -24,
		Ratio:           4,
		Attack:          0.003,
		Release:         0.25,
	}
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Engine: EngineConfig{
			Transport:      TransportLoopback,
			ReadyDelay:     50 * time.Millisecond,
			LevelInterval:  50 * time.Millisecond,
			WaveformPoints: 128,
		},
		Sequencer: SequencerConfig{
			BPM:   120,
			Steps: 16,
			Bank:  "A",
		},
		Mixer:   DefaultMixer(),
		Effects: DefaultEffects(),
		Voices:  VoicesConfig{Max: 16},
		Patterns: PatternsConfig{
			Dir:      filepath.Join(".haos", "patterns"),
			CacheTTL: 10 * time.Minute,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Flags: map[string]bool{
			"voice-tracking": true,
		},
	}
}

// Validate checks the whole configuration, reporting the first problem.
func Validate(cfg Config) error {
	validators := []func(Config) error{
		func(c Config) error { return ValidateEngine(c.Engine) },
		func(c Config) error { return ValidateSequencer(c.Sequencer) },
		func(c Config) error { return ValidateMixer(c.Mixer) },
		func(c Config) error { return ValidateEffects(c.Effects) },
		func(c Config) error { return ValidateVoices(c.Voices) },
		func(c Config) error { return ValidateTracing(c.Tracing) },
	}
	for _, v := range validators {
		if err := v(cfg); err != nil {
			return err
		}
	}
	return nil
}

// ValidateEngine checks engine configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateEngine(e EngineConfig) error {
	switch e.Transport {
	case "", TransportLoopback:
	case TransportProcess:
		if e.Command == "" {
			return fmt.Errorf("engine.command is required when engine.transport is %q", TransportProcess)
		}
	default:
		return fmt.Errorf("engine.transport must be %q or %q, got %q", TransportLoopback, TransportProcess, e.Transport)
	}
	if e.ReadyDelay < 0 {
		return fmt.Errorf("engine.ready_delay must not be negative, got %s", e.ReadyDelay)
	}
	if e.LevelInterval < 0 {
		return fmt.Errorf("engine.level_interval must not be negative, got %s", e.LevelInterval)
	}
	if e.WaveformPoints < 0 {
		return fmt.Errorf("engine.waveform_points must not be negative, got %d", e.WaveformPoints)
	}
	return nil
}

// ValidateSequencer checks sequencer configuration for errors.
// A zero BPM or step count means "use the default".
func ValidateSequencer(s SequencerConfig) error {
	if s.BPM != 0 && (s.BPM < MinBPM || s.BPM > MaxBPM) {
		return fmt.Errorf("sequencer.bpm must be between %d and %d, got %g", MinBPM, MaxBPM, s.BPM)
	}
	if s.Steps < 0 || s.Steps > 64 {
		return fmt.Errorf("sequencer.steps must be between 1 and 64, got %d", s.Steps)
	}
	if s.Swing < 0 || s.Swing > 100 {
		return fmt.Errorf("sequencer.swing must be between 0 and 100, got %g", s.Swing)
	}
	if s.Bank != "" && !slices.Contains(validBanks, s.Bank) {
		return fmt.Errorf("sequencer.bank must be one of %v, got %q", validBanks, s.Bank)
	}
	for i, b := range s.Chain {
		if !slices.Contains(validBanks, b) {
			return fmt.Errorf("sequencer.chain[%d] must be one of %v, got %q", i, validBanks, b)
		}
	}
	return nil
}

// ValidateMixer checks mixer configuration for errors.
// Empty selections use defaults.
func ValidateMixer(m MixerConfig) error {
	for track, v := range m.Volumes {
		if !slices.Contains(validTracks, track) {
			return fmt.Errorf("mixer.volumes: unknown track %q (must be one of %v)", track, validTracks)
		}
		if v < 0 || v > 1 {
			return fmt.Errorf("mixer.volumes.%s must be between 0 and 1, got %g", track, v)
		}
	}
	if m.Master < 0 || m.Master > 1 {
		return fmt.Errorf("mixer.master must be between 0 and 1, got %g", m.Master)
	}
	if m.DrumMachine != "" && !slices.Contains(validDrumMachines, m.DrumMachine) {
		return fmt.Errorf("mixer.drum_machine must be one of %v, got %q", validDrumMachines, m.DrumMachine)
	}
	if m.BassSynth != "" && !slices.Contains(validBassSynths, m.BassSynth) {
		return fmt.Errorf("mixer.bass_synth must be one of %v, got %q", validBassSynths, m.BassSynth)
	}
	if m.Synth != "" && !slices.Contains(validSynths, m.Synth) {
		return fmt.Errorf("mixer.synth must be one of %v, got %q", validSynths, m.Synth)
	}
	return nil
}

// ValidateEffects checks the effect chain. Numeric values are clamped by
// the instruments package, so only the filter type is strict.
func ValidateEffects(e EffectsConfig) error {
	if e.FilterType != "" && !slices.Contains(validFilterTypes, e.FilterType) {
		return fmt.Errorf("effects.filter_type must be one of %v, got %q", validFilterTypes, e.FilterType)
	}
	return nil
}

// ValidateVoices checks voice tracker configuration for errors.
func ValidateVoices(v VoicesConfig) error {
	if v.Max < 0 {
		return fmt.Errorf("voices.max must not be negative, got %d", v.Max)
	}
	return nil
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}
	if tracing.SampleRate < 0 || tracing.SampleRate > 1 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %g", tracing.SampleRate)
	}
	if tracing.Enabled && tracing.Exporter == "file" && tracing.FilePath == "" && DefaultTracesFilePath() == "" {
		return fmt.Errorf("tracing.file_path is required when exporter is \"file\" and home directory is unavailable")
	}
	return nil
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# haos configuration

# Audio engine peer.
engine:
  transport: loopback       # loopback (in-process) or process (external engine)
  # command: haos           # executable for the process transport
  # args: [engine]          # "haos engine" runs the loopback engine on stdio
  ready_delay: 50ms         # loopback start-up time before "ready"
  level_interval: 50ms      # waveform/level streaming period (min 16ms)
  waveform_points: 128
  auto_resume: false        # resume audio at startup instead of on first play

# Step sequencer.
sequencer:
  bpm: 120                  # 40-300
  steps: 16
  swing: 0                  # 0-100, delays odd steps
  bank: A                   # A-D
  # preset: acid            # four-on-floor, detroit, acid, industrial, minimal, berlin
  # chain: [A, A, B, C]     # play banks in order, advancing every bar

# Mixer. Saved back here by "haos monitor --save-mixer".
mixer:
  volumes:
    kick: 1.0
    snare: 1.0
    hihat: 0.7
    clap: 0.8
    bass: 0.9
    synth: 0.8
  master: 0.8
  drum_machine: "808"       # 808 or 909
  bass_synth: tb303         # tb303, arp2600, td3
  synth: arp2600            # arp2600, juno106, minimoog, tb303

# Master effect chain, sent once when playback first starts.
effects:
  filter_type: lowpass      # lowpass, highpass, bandpass, notch
  filter_frequency: 10000   # 20-10000 Hz
  filter_q: 1
  distortion: 0             # 0-1
  reverb: 0                 # 0-1
  delay_time: 0.25          # seconds
  delay_feedback: 0.3
  delay_mix: 0
  threshold: -24            # compressor, dB
  ratio: 4
  attack: 0.003
  release: 0.25

voices:
  max: 16                   # oldest voice is evicted beyond this

# Pattern library: one YAML file per pattern.
patterns:
  dir: .haos/patterns
  cache_ttl: 10m
  watch: false              # also requires the pattern-watch flag

# Feature flags.
flags:
  voice-tracking: true      # register melodic notes with the voice tracker
  waveform-stream: false    # stream waveform/level events from the engine
  pattern-watch: false      # reload patterns when files change

# Distributed tracing of bridge commands (disabled by default).
# tracing:
#   enabled: false
#   exporter: file                        # none, file, stdout, otlp
#   file_path: ~/.config/haos/traces/traces.jsonl
#   otlp_endpoint: localhost:4317
#   sample_rate: 1.0
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
