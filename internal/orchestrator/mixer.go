package orchestrator

import (
	"maps"
	"math"
	"slices"

	"github.com/haosfm/haos/internal/instrument"
	"github.com/haosfm/haos/internal/sequencer"
)

// Selectable instruments per role.
var (
	DrumMachines = []string{instrument.IDTR808, instrument.IDTR909}
	BassSynths   = []string{instrument.IDTB303, instrument.IDARP2600, instrument.IDTD3}
	Synths       = []string{instrument.IDARP2600, instrument.IDJuno106, instrument.IDMinimoog, instrument.IDTB303}
)

// MixerState is the per-track and master volume plus the instrument
// selected for each role.
type MixerState struct {
	Volumes     map[sequencer.Track]float64
	Master      float64
	DrumMachine string
	BassSynth   string
	Synth       string
}

// DefaultMixer returns the factory mix.
func DefaultMixer() MixerState {
	return MixerState{
		Volumes: map[sequencer.Track]float64{
			sequencer.Kick:  1.0,
			sequencer.Snare: 1.0,
			sequencer.HiHat: 0.7,
			sequencer.Clap:  0.8,
			sequencer.Bass:  0.9,
			sequencer.Synth: 0.8,
		},
		Master:      0.8,
		DrumMachine: instrument.IDTR808,
		BassSynth:   instrument.IDTB303,
		Synth:       instrument.IDARP2600,
	}
}

// Clone deep-copies m.
func (m MixerState) Clone() MixerState {
	m.Volumes = maps.Clone(m.Volumes)
	return m
}

// Sanitized fills gaps from the defaults, clamps volumes and replaces
// unknown selections with the default ones.
func (m MixerState) Sanitized() MixerState {
	def := DefaultMixer()
	out := m.Clone()
	if out.Volumes == nil {
		out.Volumes = make(map[sequencer.Track]float64)
	}
	for _, t := range sequencer.Tracks {
		v, ok := out.Volumes[t]
		if !ok {
			v = def.Volumes[t]
		}
		out.Volumes[t] = clampUnit(v)
	}
	for t := range out.Volumes {
		if _, ok := sequencer.ParseTrack(string(t)); !ok {
			delete(out.Volumes, t)
		}
	}
	out.Master = clampUnit(out.Master)
	if !slices.Contains(DrumMachines, out.DrumMachine) {
		out.DrumMachine = def.DrumMachine
	}
	if !slices.Contains(BassSynths, out.BassSynth) {
		out.BassSynth = def.BassSynth
	}
	if !slices.Contains(Synths, out.Synth) {
		out.Synth = def.Synth
	}
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}
