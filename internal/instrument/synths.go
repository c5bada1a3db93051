package instrument

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/haosfm/haos/internal/bridge"
	"github.com/haosfm/haos/internal/note"
)

// Synthesizer IDs.
const (
	IDTB303    = "tb303"
	IDTD3      = "td3"
	IDARP2600  = "arp2600"
	IDJuno106  = "juno106"
	IDMinimoog = "minimoog"
)

// Acid bass waveforms.
const (
	WaveSawtooth = "sawtooth"
	WaveSquare   = "square"
)

// Synth parameters beyond the canonical set.
var (
	EnvMod      = Param{Name: "envMod", Min: 0, Max: 5000, Default: 3000}
	AccentLevel = Param{Name: "accent", Min: 1, Max: 3, Default: 1.5}
	ChorusDepth = Param{Name: "chorusDepth", Min: 0, Max: 1, Default: 0.7}
	Osc1Level   = Param{Name: "osc1Level", Min: 0, Max: 1, Default: 0.5}
	Osc2Level   = Param{Name: "osc2Level", Min: 0, Max: 1, Default: 0.3}
	Osc3Level   = Param{Name: "osc3Level", Min: 0, Max: 1, Default: 0.5}
	Detune      = Param{Name: "detune", Min: 0, Max: 50, Default: 5}
)

// decorator adds instrument-specific fields to a note command.
type decorator func(s *Synth, params map[string]any, freq float64, opts NoteOptions)

// Synth is a Melodic adapter. Every trigger carries the full parameter
// snapshot plus frequency, duration and velocity.
type Synth struct {
	core
	command  string
	decorate decorator

	mu        sync.Mutex
	waveform  string
	waveforms []string
	lastFreq  float64
}

var _ Melodic = (*Synth)(nil)

func newSynth(id, command string, sender Sender, params *ParamSet, decorate decorator, opts []Option) *Synth {
	return &Synth{
		core:     newCore(id, sender, params, opts),
		command:  command,
		decorate: decorate,
	}
}

// NewTB303 creates the TB-303 acid bass adapter.
func NewTB303(sender Sender, opts ...Option) *Synth {
	params := NewParamSet(
		Cutoff.WithDefault(500),
		Resonance.WithDefault(10),
		EnvMod,
		Decay,
		AccentLevel,
	)
	return newAcid(IDTB303, sender, params, opts)
}

// NewTD3 creates the TD-3 adapter, a darker and more aggressive 303.
func NewTD3(sender Sender, opts ...Option) *Synth {
	params := NewParamSet(
		Cutoff.WithDefault(300),
		Resonance.WithDefault(18),
		Param{Name: EnvMod.Name, Min: 0, Max: 6000, Default: 4500},
		Decay.WithDefault(0.25),
		AccentLevel.WithDefault(2),
	)
	return newAcid(IDTD3, sender, params, opts)
}

func newAcid(id string, sender Sender, params *ParamSet, opts []Option) *Synth {
	s := newSynth(id, bridge.CmdPlayTB303, sender, params, decorateAcid, opts)
	s.waveform = WaveSawtooth
	s.waveforms = []string{WaveSawtooth, WaveSquare}
	return s
}

// decorateAcid sends the accent flag in place of the accent level, which
// moves to accentAmount, and the previous pitch when sliding.
func decorateAcid(s *Synth, params map[string]any, _ float64, opts NoteOptions) {
	params["accentAmount"] = params[AccentLevel.Name]
	params["accent"] = opts.Accent
	params["slide"] = opts.Slide
	params["waveform"] = s.waveform
	if opts.Slide && s.lastFreq > 0 {
		params["slideFrom"] = s.lastFreq
	}
}

// NewARP2600 creates the ARP 2600 adapter.
func NewARP2600(sender Sender, opts ...Option) *Synth {
	params := NewParamSet(
		Osc1Level,
		Osc2Level,
		Detune,
		Cutoff.WithDefault(2000),
		Resonance.WithDefault(18),
		Attack.WithDefault(0.05),
		Decay.WithDefault(0.1),
		Sustain,
		Release,
	)
	return newSynth(IDARP2600, bridge.CmdPlayARP2600, sender, params, nil, opts)
}

// NewJuno106 creates the Juno-106 adapter.
func NewJuno106(sender Sender, opts ...Option) *Synth {
	params := NewParamSet(
		ChorusDepth,
		Cutoff.WithDefault(1500),
		Resonance.WithDefault(2),
		Attack,
		Decay.WithDefault(0.1),
		Sustain.WithDefault(0.8),
		Release,
	)
	return newSynth(IDJuno106, bridge.CmdPlayJuno106, sender, params, decorateJuno, opts)
}

func decorateJuno(_ *Synth, params map[string]any, _ float64, _ NoteOptions) {
	params["chorus"] = params[ChorusDepth.Name]
}

// NewMinimoog creates the Minimoog adapter.
func NewMinimoog(sender Sender, opts ...Option) *Synth {
	params := NewParamSet(
		Osc1Level.WithDefault(0.4),
		Osc2Level,
		Osc3Level,
		Cutoff.WithDefault(800),
		Resonance.WithDefault(8),
		Attack.WithDefault(0.005),
		Decay.WithDefault(0.2),
		Sustain,
		Release.WithDefault(0.5),
	)
	return newSynth(IDMinimoog, bridge.CmdPlayMinimoog, sender, params, nil, opts)
}

// PlayNote triggers note, a MIDI number or a name like "C#3".
// Unparseable notes play at 440 Hz.
func (s *Synth) PlayNote(ctx context.Context, n any, opts NoteOptions) {
	freq := note.ToFrequency(n)
	duration := opts.Duration
	if duration <= 0 {
		duration = DefaultNoteDuration
	}
	velocity := Velocity.Clamp(opts.Velocity)

	params := s.params.Snapshot()
	params["frequency"] = freq
	params["duration"] = duration.Seconds()
	params["velocity"] = velocity

	s.mu.Lock()
	if s.decorate != nil {
		s.decorate(s, params, freq, opts)
	}
	s.lastFreq = freq
	s.mu.Unlock()

	if !s.trigger(ctx, s.command, velocity, params) {
		return
	}
	if s.voices != nil {
		s.voices.Track(s.id, noteID(n), duration)
	}
}

// SetWaveform selects the oscillator waveform. Only acid basses have a
// selectable waveform; unknown names are ignored.
func (s *Synth) SetWaveform(waveform string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !slices.Contains(s.waveforms, waveform) {
		return false
	}
	s.waveform = waveform
	return true
}

// Waveform returns the selected waveform, or "" when not selectable.
func (s *Synth) Waveform() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waveform
}

// StopAll silences this synth and forgets slide state.
func (s *Synth) StopAll() {
	s.mu.Lock()
	s.lastFreq = 0
	s.mu.Unlock()
	s.stopAll()
}

func noteID(n any) string {
	switch v := n.(type) {
	case string:
		return v
	case int:
		return note.Name(v)
	default:
		return fmt.Sprint(v)
	}
}
