package testutil

import "github.com/haosfm/haos/internal/patterns"

// fileData holds a pattern to be written.
type fileData struct {
	name string
	file patterns.File
}

func defaultFile() patterns.File {
	return patterns.File{Tracks: make(map[string]patterns.TrackSpec)}
}

// PatternOption configures a pattern file.
type PatternOption func(*patterns.File)

// BPM sets the pattern tempo.
func BPM(bpm float64) PatternOption {
	return func(f *patterns.File) { f.BPM = bpm }
}

// Swing sets the pattern swing.
func Swing(swing float64) PatternOption {
	return func(f *patterns.File) { f.Swing = swing }
}

// Steps sets the pattern length.
func Steps(n int) PatternOption {
	return func(f *patterns.File) { f.Steps = n }
}

// Mask sets a track from an x/. mask.
func Mask(track, mask string) PatternOption {
	return func(f *patterns.File) { f.Tracks[track] = patterns.TrackSpec{Mask: mask} }
}

// NoteOption configures one note.
type NoteOption func(*patterns.NoteSpec)

// Accent marks the note accented.
func Accent() NoteOption {
	return func(n *patterns.NoteSpec) { n.Accent = true }
}

// Slide marks the note slid.
func Slide() NoteOption {
	return func(n *patterns.NoteSpec) { n.Slide = true }
}

// Velocity sets the note velocity.
func Velocity(v float64) NoteOption {
	return func(n *patterns.NoteSpec) { n.Velocity = &v }
}

// Note appends a note to a melodic track.
func Note(track string, step int, note string, opts ...NoteOption) PatternOption {
	return func(f *patterns.File) {
		ns := patterns.NoteSpec{Step: step, Note: note}
		for _, opt := range opts {
			opt(&ns)
		}
		spec := f.Tracks[track]
		spec.Notes = append(spec.Notes, ns)
		f.Tracks[track] = spec
	}
}
