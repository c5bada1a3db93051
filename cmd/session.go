package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/config"
	"github.com/haosfm/haos/internal/engine"
	"github.com/haosfm/haos/internal/flags"
	"github.com/haosfm/haos/internal/instrument"
	"github.com/haosfm/haos/internal/log"
	"github.com/haosfm/haos/internal/orchestrator"
	"github.com/haosfm/haos/internal/patterns"
	"github.com/haosfm/haos/internal/sequencer"
	"github.com/haosfm/haos/internal/tracing"
	"github.com/haosfm/haos/internal/voice"
	"github.com/haosfm/haos/internal/watcher"
)

// slowDelivery promotes slow command deliveries to warnings.
const slowDelivery = 20 * time.Millisecond

// sessionOptions override the configured starting state.
type sessionOptions struct {
	Preset string  // built-in preset or library pattern
	BPM    float64 // zero keeps the configured tempo
}

// session owns every long-lived component of one run.
type session struct {
	cfg     config.Config
	flags   *flags.Registry
	cancel  context.CancelFunc
	tracer  *tracing.Provider
	bridge  *bridge.Bridge
	loop    *engine.Loopback
	proc    *engine.Process
	voices  *voice.Tracker
	sched   *sequencer.Scheduler
	orch    *orchestrator.Orchestrator
	library *patterns.Library

	// current is the library pattern loaded into the scheduler, if any.
	current string
}

// newSession wires the engine, bridge, instruments, scheduler and
// orchestrator from cfg. The caller must Close it.
func newSession(parent context.Context, cfg config.Config, opts sessionOptions) (*session, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(parent)
	s := &session{
		cfg:    cfg,
		flags:  flags.New(cfg.Flags),
		cancel: cancel,
	}

	tp, err := tracing.NewProvider(tracingConfig(cfg.Tracing))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating tracer: %w", err)
	}
	s.tracer = tp

	bridgeOpts := []bridge.Option{
		bridge.WithContext(ctx),
		bridge.WithMiddleware(
			bridge.NewLoggingMiddleware(bridge.LoggingMiddlewareConfig{SlowThreshold: slowDelivery}),
			tracing.NewMiddleware(tracing.MiddlewareConfig{Tracer: tp.Tracer()}),
		),
	}
	if err := s.startEngine(ctx, bridgeOpts); err != nil {
		s.Close()
		return nil, err
	}

	s.voices = voice.NewTracker(voice.WithMax(cfg.Voices.Max))
	gate := instrument.NewResumeGate()
	if cfg.Engine.AutoResume {
		gate.Open()
	}

	instOpts := []instrument.Option{
		instrument.WithResumer(gate),
		instrument.WithFeedback(instrument.LogFeedback{}),
	}
	if s.flags.Enabled(flags.FlagVoiceTracking) {
		instOpts = append(instOpts, instrument.WithVoices(s.voices))
	}
	registry := instrument.NewDefaultRegistry(s.bridge, instOpts...)

	s.sched = sequencer.NewScheduler(
		sequencer.WithSteps(cfg.Sequencer.Steps),
		sequencer.WithBPM(cfg.Sequencer.BPM),
		sequencer.WithSwing(cfg.Sequencer.Swing),
	)
	if cfg.Sequencer.Bank != "" {
		if err := s.sched.SwitchBank(cfg.Sequencer.Bank); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.library = patterns.New(cfg.Patterns.Dir, patterns.WithTTL(cfg.Patterns.CacheTTL))

	preset := cfg.Sequencer.Preset
	if opts.Preset != "" {
		preset = opts.Preset
	}
	if preset != "" {
		if err := s.loadPattern(ctx, preset); err != nil {
			s.Close()
			return nil, err
		}
	}
	if len(cfg.Sequencer.Chain) > 0 {
		s.sched.SetChain(cfg.Sequencer.Chain)
	}
	if opts.BPM > 0 {
		s.sched.SetBPM(opts.BPM)
	}

	s.orch = orchestrator.New(registry, s.sched, s.bridge,
		orchestrator.WithMixer(mixerFromConfig(cfg.Mixer)),
		orchestrator.WithVoices(s.voices),
		orchestrator.WithResumeGate(gate),
		orchestrator.WithEffects(effectsFromConfig(cfg.Effects), s.bridge),
	)

	if s.flags.Enabled(flags.FlagWaveformStream) {
		// Buffered until the engine is ready.
		s.bridge.StartWaveformUpdates(cfg.Engine.LevelInterval)
	}

	if s.flags.Enabled(flags.FlagPatternWatch) && cfg.Patterns.Watch {
		s.watchPatterns(ctx)
	}

	log.Info(log.CatConfig, "session ready",
		"transport", cfg.Engine.Transport,
		"bpm", s.sched.BPM(),
		"bank", s.sched.Bank(),
		"preset", preset)
	return s, nil
}

// startEngine creates the bridge together with its engine peer.
func (s *session) startEngine(ctx context.Context, bridgeOpts []bridge.Option) error {
	switch s.cfg.Engine.Transport {
	case config.TransportProcess:
		// The process may speak before the bridge exists.
		wired := make(chan struct{})
		var b *bridge.Bridge
		proc, err := engine.StartProcess(ctx, engine.ProcessConfig{
			Command: s.cfg.Engine.Command,
			Args:    s.cfg.Engine.Args,
			Env:     os.Environ(),
		}, func(raw []byte) {
			<-wired
			b.OnMessage(raw)
		})
		if err != nil {
			return fmt.Errorf("starting engine process: %w", err)
		}
		b = bridge.New(proc, bridgeOpts...)
		close(wired)
		s.proc = proc
		s.bridge = b

	default:
		loop := engine.NewLoopback(nil,
			engine.WithReadyDelay(s.cfg.Engine.ReadyDelay),
			engine.WithWaveformPoints(s.cfg.Engine.WaveformPoints),
		)
		s.bridge = bridge.New(loop, bridgeOpts...)
		loop.SetEmitter(s.bridge.OnMessage)
		go loop.Run(ctx)
		if err := loop.WaitForRunning(ctx); err != nil {
			loop.Stop()
			return fmt.Errorf("starting loopback engine: %w", err)
		}
		s.loop = loop
	}
	return nil
}

// loadPattern loads a built-in preset, falling back to the library.
func (s *session) loadPattern(ctx context.Context, name string) error {
	if slices.Contains(sequencer.Presets(), name) {
		if err := s.sched.LoadPreset(name); err != nil {
			return err
		}
		if bpm, ok := sequencer.PresetBPM(name); ok && bpm > 0 {
			s.sched.SetBPM(bpm)
		}
		s.current = ""
		return nil
	}

	f, err := s.library.Load(ctx, name)
	if err != nil {
		if errors.Is(err, patterns.ErrNotFound) {
			return fmt.Errorf("unknown preset or pattern %q", name)
		}
		return fmt.Errorf("loading pattern %q: %w", name, err)
	}
	return s.applyFile(name, f)
}

func (s *session) applyFile(name string, f patterns.File) error {
	p, err := f.Pattern(s.sched.Steps())
	if err != nil {
		return fmt.Errorf("pattern %q: %w", name, err)
	}
	s.sched.SetPattern(p)
	if f.BPM > 0 {
		s.sched.SetBPM(f.BPM)
	}
	if f.Swing > 0 {
		s.sched.SetSwing(f.Swing)
	}
	s.current = name
	return nil
}

// watchPatterns reloads the active library pattern when its file changes.
func (s *session) watchPatterns(ctx context.Context) {
	if err := os.MkdirAll(s.library.Dir(), 0o750); err != nil {
		log.ErrorErr(log.CatPatterns, "creating pattern directory", err, "dir", s.library.Dir())
		return
	}
	err := s.library.Watch(ctx, watcher.DefaultDebounce, func(names []string) {
		if s.current == "" || !slices.Contains(names, s.current) {
			return
		}
		f, err := s.library.Load(ctx, s.current)
		if err != nil {
			log.ErrorErr(log.CatPatterns, "reloading pattern", err, "name", s.current)
			return
		}
		if err := s.applyFile(s.current, f); err != nil {
			log.ErrorErr(log.CatPatterns, "applying pattern", err, "name", s.current)
		}
	})
	if err != nil {
		log.ErrorErr(log.CatPatterns, "watching patterns", err, "dir", s.library.Dir())
	}
}

// Close stops playback and releases everything in reverse order.
func (s *session) Close() {
	if s.orch != nil {
		s.orch.Close()
	}
	if s.sched != nil {
		s.sched.Close()
	}
	if s.voices != nil {
		s.voices.Close()
	}
	if s.bridge != nil && s.flags.Enabled(flags.FlagWaveformStream) {
		s.bridge.StopWaveformUpdates()
	}
	if s.loop != nil {
		s.loop.Stop()
	}
	if s.proc != nil {
		if err := s.proc.Close(); err != nil {
			log.ErrorErr(log.CatEngine, "closing engine process", err)
		}
	}
	if s.bridge != nil {
		s.bridge.Close()
	}
	if s.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.tracer.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "flushing traces", err)
		}
		cancel()
	}
	s.cancel()
}

func tracingConfig(tc config.TracingConfig) tracing.Config {
	out := tracing.DefaultConfig()
	out.Enabled = tc.Enabled
	if tc.Exporter != "" {
		out.Exporter = tc.Exporter
	}
	out.FilePath = tc.FilePath
	if out.FilePath == "" {
		out.FilePath = config.DefaultTracesFilePath()
	}
	if tc.OTLPEndpoint != "" {
		out.OTLPEndpoint = tc.OTLPEndpoint
	}
	if tc.SampleRate > 0 {
		out.SampleRate = tc.SampleRate
	}
	return out
}

func mixerFromConfig(mc config.MixerConfig) orchestrator.MixerState {
	m := orchestrator.MixerState{
		Volumes:     make(map[sequencer.Track]float64, len(mc.Volumes)),
		Master:      mc.Master,
		DrumMachine: mc.DrumMachine,
		BassSynth:   mc.BassSynth,
		Synth:       mc.Synth,
	}
	for name, v := range mc.Volumes {
		if t, ok := sequencer.ParseTrack(name); ok {
			m.Volumes[t] = v
		}
	}
	return m
}

func mixerToConfig(m orchestrator.MixerState) config.MixerConfig {
	mc := config.MixerConfig{
		Volumes:     make(map[string]float64, len(m.Volumes)),
		Master:      m.Master,
		DrumMachine: m.DrumMachine,
		BassSynth:   m.BassSynth,
		Synth:       m.Synth,
	}
	for t, v := range m.Volumes {
		mc.Volumes[string(t)] = v
	}
	return mc
}

func effectsFromConfig(ec config.EffectsConfig) instrument.Effects {
	return instrument.Effects{
		FilterType:      ec.FilterType,
		FilterFrequency: ec.FilterFrequency,
		FilterQ:         ec.FilterQ,
		Distortion:      ec.Distortion,
		Reverb:          ec.Reverb,
		DelayTime:       ec.DelayTime,
		DelayFeedback:   ec.DelayFeedback,
		DelayMix:        ec.DelayMix,
		Threshold:       ec.Threshold,
		Ratio:           ec.Ratio,
		CompAttack:      ec.Attack,
		CompRelease:     ec.Release,
	}
}
