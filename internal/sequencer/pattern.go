// Package sequencer holds the step patterns and drives the step clock.
package sequencer

import (
	"errors"
	"slices"
)

// Track names a pattern row.
type Track string

const (
	Kick  Track = "kick"
	Snare Track = "snare"
	HiHat Track = "hihat"
	Clap  Track = "clap"
	Bass  Track = "bass"
	Synth Track = "synth"
)

// Tracks lists every track in display order.
var Tracks = []Track{Kick, Snare, HiHat, Clap, Bass, Synth}

// Percussive reports whether the track is played by a drum machine.
func (t Track) Percussive() bool {
	switch t {
	case Kick, Snare, HiHat, Clap:
		return true
	}
	return false
}

// ParseTrack validates a track name.
func ParseTrack(s string) (Track, bool) {
	t := Track(s)
	return t, slices.Contains(Tracks, t)
}

// Banks are the pattern memory slots.
var Banks = []string{"A", "B", "C", "D"}

// ValidBank reports whether name is one of Banks.
func ValidBank(name string) bool {
	return slices.Contains(Banks, name)
}

// DefaultSteps is the default pattern length, one bar of 16ths.
const DefaultSteps = 16

// DefaultVelocity is the velocity of newly activated steps.
const DefaultVelocity = 1.0

var (
	// ErrUnknownTrack is returned for track names not in Tracks.
	ErrUnknownTrack = errors.New("unknown track")
	// ErrUnknownBank is returned for bank names not in Banks.
	ErrUnknownBank = errors.New("unknown bank")
	// ErrStepRange is returned for step indices outside the pattern.
	ErrStepRange = errors.New("step out of range")
	// ErrUnknownPreset is returned by LoadPreset for unknown names.
	ErrUnknownPreset = errors.New("unknown preset")
)

// Step is one cell of a pattern.
type Step struct {
	Active   bool    `json:"active"`
	Velocity float64 `json:"velocity"`
	Accent   bool    `json:"accent,omitempty"`
	Note     string  `json:"note,omitempty"`
	Slide    bool    `json:"slide,omitempty"`
}

// Pattern maps each track to its steps. Every track has the same length.
type Pattern map[Track][]Step

// NewPattern returns an empty pattern of n steps per track.
func NewPattern(n int) Pattern {
	p := make(Pattern, len(Tracks))
	for _, t := range Tracks {
		p[t] = emptySteps(n)
	}
	return p
}

func emptySteps(n int) []Step {
	steps := make([]Step, n)
	for i := range steps {
		steps[i].Velocity = DefaultVelocity
	}
	return steps
}

// Clone deep-copies p.
func (p Pattern) Clone() Pattern {
	out := make(Pattern, len(p))
	for t, steps := range p {
		out[t] = slices.Clone(steps)
	}
	return out
}

// normalized returns a copy of p with every known track present at
// exactly n steps. Unknown tracks are dropped.
func (p Pattern) normalized(n int) Pattern {
	out := NewPattern(n)
	for _, t := range Tracks {
		copy(out[t], p[t])
	}
	return out
}

// ActiveCount counts active steps across all tracks.
func (p Pattern) ActiveCount() int {
	n := 0
	for _, steps := range p {
		for _, s := range steps {
			if s.Active {
				n++
			}
		}
	}
	return n
}

// SetMask activates the steps of track t marked 'x' or '1' in mask.
// Other characters deactivate. The mask is applied from step 0 and may be
// shorter than the pattern.
func (p Pattern) SetMask(t Track, mask string) {
	steps := p[t]
	for i := range steps {
		steps[i].Active = false
	}
	for i, c := range []rune(mask) {
		if i >= len(steps) {
			break
		}
		steps[i].Active = c == 'x' || c == 'X' || c == '1'
	}
}

// Mask renders the active steps of track t as "x" and ".".
func (p Pattern) Mask(t Track) string {
	steps := p[t]
	b := make([]byte, len(steps))
	for i, s := range steps {
		b[i] = '.'
		if s.Active {
			b[i] = 'x'
		}
	}
	return string(b)
}
