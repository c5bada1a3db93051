// Package patterns is the on-disk pattern library: one YAML file per
// pattern, decoded through a read-through cache.
package patterns

import (
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/haosfm/haos/internal/sequencer"
)

// File is the YAML form of a single pattern:
//
//	bpm: 130
//	swing: 10
//	tracks:
//	  kick: "x...x...x...x..."
//	  bass:
//	    - {step: 0, note: C2, accent: true}
//	    - {step: 6, note: D#2, slide: true}
type File struct {
	BPM    float64              `yaml:"bpm,omitempty"`
	Swing  float64              `yaml:"swing,omitempty"`
	Steps  int                  `yaml:"steps,omitempty"`
	Tracks map[string]TrackSpec `yaml:"tracks"`
}

// TrackSpec is either a mask string or a list of notes.
type TrackSpec struct {
	Mask  string
	Notes []NoteSpec
}

// NoteSpec is one active step of a note list.
type NoteSpec struct {
	Step     int      `yaml:"step"`
	Note     string   `yaml:"note,omitempty"`
	Velocity *float64 `yaml:"velocity,omitempty"`
	Accent   bool     `yaml:"accent,omitempty"`
	Slide    bool     `yaml:"slide,omitempty"`
}

// UnmarshalYAML accepts a scalar mask or a sequence of notes.
func (t *TrackSpec) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		t.Mask = value.Value
		return nil
	case yaml.SequenceNode:
		return value.Decode(&t.Notes)
	default:
		return fmt.Errorf("line %d: track must be a mask string or a list of notes", value.Line)
	}
}

// MarshalYAML writes a mask when the track has no note detail.
func (t TrackSpec) MarshalYAML() (any, error) {
	if len(t.Notes) > 0 {
		return t.Notes, nil
	}
	return t.Mask, nil
}

// Pattern converts f to a sequencer pattern of n steps. Steps beyond n are
// dropped; unknown track names are an error.
func (f File) Pattern(n int) (sequencer.Pattern, error) {
	p := sequencer.NewPattern(n)
	for name, spec := range f.Tracks {
		track, ok := sequencer.ParseTrack(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", sequencer.ErrUnknownTrack, name)
		}
		if spec.Mask != "" {
			p.SetMask(track, strings.ReplaceAll(spec.Mask, " ", ""))
		}
		for _, ns := range spec.Notes {
			if ns.Step < 0 || ns.Step >= n {
				continue
			}
			st := &p[track][ns.Step]
			st.Active = true
			st.Note = ns.Note
			st.Accent = ns.Accent
			st.Slide = ns.Slide
			if ns.Velocity != nil {
				st.Velocity = max(0, min(1, *ns.Velocity))
			}
		}
	}
	return p, nil
}

// FromPattern renders p, using masks for tracks whose active steps carry
// only default values.
func FromPattern(p sequencer.Pattern, bpm, swing float64) File {
	f := File{BPM: bpm, Swing: swing, Tracks: make(map[string]TrackSpec)}
	for _, t := range sequencer.Tracks {
		steps := p[t]
		if len(steps) > f.Steps {
			f.Steps = len(steps)
		}
		if !slices.ContainsFunc(steps, func(s sequencer.Step) bool { return s.Active }) {
			continue
		}
		if plain(steps) {
			f.Tracks[string(t)] = TrackSpec{Mask: p.Mask(t)}
			continue
		}
		var notes []NoteSpec
		for i, s := range steps {
			if !s.Active {
				continue
			}
			ns := NoteSpec{Step: i, Note: s.Note, Accent: s.Accent, Slide: s.Slide}
			if s.Velocity != sequencer.DefaultVelocity {
				v := s.Velocity
				ns.Velocity = &v
			}
			notes = append(notes, ns)
		}
		f.Tracks[string(t)] = TrackSpec{Notes: notes}
	}
	return f
}

func plain(steps []sequencer.Step) bool {
	for _, s := range steps {
		if s.Active && (s.Note != "" || s.Accent || s.Slide || s.Velocity != sequencer.DefaultVelocity) {
			return false
		}
	}
	return true
}

// Decode parses a pattern file.
func Decode(data []byte) (File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("decoding pattern: %w", err)
	}
	if f.BPM != 0 && (f.BPM < sequencer.MinBPM || f.BPM > sequencer.MaxBPM) {
		return File{}, fmt.Errorf("bpm must be between %g and %g, got %g", sequencer.MinBPM, sequencer.MaxBPM, f.BPM)
	}
	if f.Swing < 0 || f.Swing > 100 {
		return File{}, fmt.Errorf("swing must be between 0 and 100, got %g", f.Swing)
	}
	for name := range f.Tracks {
		if _, ok := sequencer.ParseTrack(name); !ok {
			return File{}, fmt.Errorf("%w: %q", sequencer.ErrUnknownTrack, name)
		}
	}
	return f, nil
}

// Encode renders f as YAML.
func Encode(f File) ([]byte, error) {
	data, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding pattern: %w", err)
	}
	return data, nil
}
