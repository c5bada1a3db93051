package presentation

import (
	"github.com/haosfm/haos/internal/patterns"
	"github.com/haosfm/haos/internal/sequencer"
)

// Pattern sources.
const (
	SourceBuiltin = "builtin"
	SourceLibrary = "library"
)

// PatternDTO represents a preset or library pattern for presentation
type PatternDTO struct {
	Name   string            `json:"name"`
	Source string            `json:"source"`
	BPM    float64           `json:"bpm,omitempty"`
	Swing  float64           `json:"swing,omitempty"`
	Active int               `json:"active"`
	Masks  map[string]string `json:"masks"` // always present, one entry per track
}

// FromPattern converts a pattern to a DTO with one mask per track.
func FromPattern(name, source string, p sequencer.Pattern, bpm, swing float64) PatternDTO {
	masks := make(map[string]string, len(sequencer.Tracks))
	for _, t := range sequencer.Tracks {
		masks[string(t)] = p.Mask(t)
	}
	return PatternDTO{
		Name:   name,
		Source: source,
		BPM:    bpm,
		Swing:  swing,
		Active: p.ActiveCount(),
		Masks:  masks,
	}
}

// FromPreset converts a built-in preset to a DTO.
func FromPreset(name string, steps int) (PatternDTO, bool) {
	p, ok := sequencer.PresetPattern(name, steps)
	if !ok {
		return PatternDTO{}, false
	}
	bpm, _ := sequencer.PresetBPM(name)
	return FromPattern(name, SourceBuiltin, p, bpm, 0), true
}

// FromFile converts a library pattern file to a DTO.
func FromFile(name string, f patterns.File, steps int) (PatternDTO, error) {
	if f.Steps > 0 {
		steps = f.Steps
	}
	p, err := f.Pattern(steps)
	if err != nil {
		return PatternDTO{}, err
	}
	return FromPattern(name, SourceLibrary, p, f.BPM, f.Swing), nil
}
