package sequencer

import "sort"

// preset is a built-in groove: drum masks plus an optional bass line.
type preset struct {
	bpm   float64
	masks map[Track]string
	bass  []Step // indexed by step; inactive entries are skipped
}

func line(notes map[int]Step) []Step {
	steps := emptySteps(DefaultSteps)
	for i, s := range notes {
		s.Active = true
		if s.Velocity == 0 {
			s.Velocity = DefaultVelocity
		}
		steps[i] = s
	}
	return steps
}

var presets = map[string]preset{
	"four-on-floor": {
		bpm: 124,
		masks: map[Track]string{
			Kick:  "1000100010001000",
			Snare: "0000100000001000",
			HiHat: "1010101010101010",
			Clap:  "0000100000001000",
		},
	},
	"detroit": {
		bpm: 128,
		masks: map[Track]string{
			Kick:  "1000101010001010",
			Snare: "0000100000001001",
			HiHat: "1111111111111111",
			Clap:  "0000100000001000",
		},
	},
	"acid": {
		bpm: 130,
		masks: map[Track]string{
			Kick:  "1001001001001010",
			Snare: "0000100000001000",
			HiHat: "1010101010101010",
			Clap:  "0000000000001000",
		},
		bass: line(map[int]Step{
			0:  {Note: "C2", Accent: true},
			3:  {Note: "C2", Velocity: 0.8},
			6:  {Note: "D#2", Slide: true},
			8:  {Note: "C2", Accent: true},
			10: {Note: "G2", Velocity: 0.8},
			12: {Note: "C3", Slide: true},
			14: {Note: "A#1", Velocity: 0.9},
		}),
	},
	"industrial": {
		bpm: 140,
		masks: map[Track]string{
			Kick:  "1010101010101010",
			Snare: "0000100100001010",
			HiHat: "0010001000100010",
			Clap:  "0000100001001001",
		},
	},
	"minimal": {
		bpm: 122,
		masks: map[Track]string{
			Kick:  "1000000010000000",
			Snare: "0000100000001000",
			HiHat: "0010001000100010",
			Clap:  "0000000000000000",
		},
	},
	"berlin": {
		bpm: 132,
		masks: map[Track]string{
			Kick:  "1000100010001000",
			Snare: "0000000000001000",
			HiHat: "1101110111011101",
			Clap:  "0000100000000000",
		},
	},
}

// Presets returns the built-in preset names, sorted.
func Presets() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetBPM returns the suggested tempo of a preset.
func PresetBPM(name string) (float64, bool) {
	p, ok := presets[name]
	return p.bpm, ok
}

// PresetPattern builds the preset as a standalone pattern of n steps.
func PresetPattern(name string, n int) (Pattern, bool) {
	p, ok := presets[name]
	if !ok {
		return nil, false
	}
	out := NewPattern(n)
	p.apply(out)
	return out, true
}

// apply writes the drum masks into pat and, when the preset has one, the
// bass line. Other tracks are left alone.
func (p preset) apply(pat Pattern) {
	for t, mask := range p.masks {
		pat.SetMask(t, mask)
	}
	if p.bass != nil {
		copy(pat[Bass], emptySteps(len(pat[Bass])))
		copy(pat[Bass], p.bass)
	}
}
