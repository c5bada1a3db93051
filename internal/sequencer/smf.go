package sequencer

import (
	"fmt"
	"io"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/haosfm/haos/internal/note"
)

// Standard MIDI File layout.
const (
	TicksPerQuarter = 960
	TicksPerStep    = TicksPerQuarter / 4

	drumChannel  = 9 // GM channel 10
	bassChannel  = 0
	synthChannel = 1
)

// General MIDI percussion keys.
var drumKeys = map[Track]uint8{
	Kick:  36,
	Snare: 38,
	HiHat: 42,
	Clap:  39,
}

type smfEvent struct {
	at  uint32
	off bool
	msg midi.Message
}

// ExportSMF writes the chain, or the current bank when no chain is set,
// as a format 1 Standard MIDI File: a tempo track, then drums, bass and
// synth tracks.
func (s *Scheduler) ExportSMF(w io.Writer) error {
	doc := s.Document()
	order := doc.Chain
	if len(order) == 0 {
		order = []string{doc.Bank}
	}

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	barTicks := uint32(doc.Steps) * TicksPerStep //nolint:gosec // steps is small and positive
	total := barTicks * uint32(len(order))       //nolint:gosec // at most four banks

	var tempo smf.Track
	tempo.Add(0, smf.MetaMeter(4, 4))
	tempo.Add(0, smf.MetaTempo(doc.BPM))
	tempo.Close(total)
	if err := sm.Add(tempo); err != nil {
		return fmt.Errorf("adding tempo track: %w", err)
	}

	var drums, bass, synth []smfEvent
	for i, bank := range order {
		p := doc.Banks[bank]
		offset := uint32(i) * barTicks //nolint:gosec // bounded by len(order)
		for t, key := range drumKeys {
			drums = append(drums, noteEvents(p[t], offset, drumChannel, func(Step) (uint8, bool) { return key, true })...)
		}
		bass = append(bass, noteEvents(p[Bass], offset, bassChannel, stepKey)...)
		synth = append(synth, noteEvents(p[Synth], offset, synthChannel, stepKey)...)
	}

	for _, evs := range [][]smfEvent{drums, bass, synth} {
		if err := sm.Add(buildTrack(evs, total)); err != nil {
			return fmt.Errorf("adding note track: %w", err)
		}
	}

	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("writing midi file: %w", err)
	}
	return nil
}

func stepKey(st Step) (uint8, bool) {
	if st.Note == "" {
		return 0, false
	}
	freq := note.ToFrequency(st.Note)
	midiNum := math.Round(69 + 12*math.Log2(freq/note.A4))
	if midiNum < 0 || midiNum > 127 {
		return 0, false
	}
	return uint8(midiNum), true
}

func noteEvents(steps []Step, offset uint32, ch uint8, key func(Step) (uint8, bool)) []smfEvent {
	var out []smfEvent
	for i, st := range steps {
		if !st.Active {
			continue
		}
		k, ok := key(st)
		if !ok {
			continue
		}
		at := offset + uint32(i)*TicksPerStep //nolint:gosec // step index is small
		out = append(out,
			smfEvent{at: at, msg: midi.NoteOn(ch, k, velocityByte(st))},
			smfEvent{at: at + TicksPerStep - 1, off: true, msg: midi.NoteOff(ch, k)},
		)
	}
	return out
}

func velocityByte(st Step) uint8 {
	if st.Accent {
		return 127
	}
	v := math.Round(st.Velocity * 127)
	return uint8(math.Max(1, math.Min(127, v)))
}

// buildTrack sorts events by absolute time and converts them to deltas.
func buildTrack(evs []smfEvent, end uint32) smf.Track {
	sort.SliceStable(evs, func(i, j int) bool {
		if evs[i].at != evs[j].at {
			return evs[i].at < evs[j].at
		}
		return evs[i].off && !evs[j].off
	})

	var tr smf.Track
	var last uint32
	for _, ev := range evs {
		tr.Add(ev.at-last, ev.msg)
		last = ev.at
	}
	tr.Close(end - last)
	return tr
}

// ImportSMF reads the first bar of a Standard MIDI File into the current
// bank: GM drum keys on channel 10 become drum steps, channel 1 the bass
// line and channel 2 the synth line. The first tempo change sets the BPM.
// Accents are exported as velocity 127 and come back as plain velocity.
func (s *Scheduler) ImportSMF(r io.Reader) error {
	sm, err := smf.ReadFrom(r)
	if err != nil {
		return fmt.Errorf("reading midi file: %w", err)
	}

	perStep := uint64(TicksPerStep)
	if mt, ok := sm.TimeFormat.(smf.MetricTicks); ok && mt.Resolution() >= 4 {
		perStep = uint64(mt.Resolution() / 4)
	}

	keyTracks := make(map[uint8]Track, len(drumKeys))
	for t, k := range drumKeys {
		keyTracks[k] = t
	}

	p := NewPattern(s.steps)
	for _, tr := range sm.Tracks {
		var abs uint64
		for _, ev := range tr {
			abs += uint64(ev.Delta)
			var ch, key, vel uint8
			if !midi.Message(ev.Message).GetNoteStart(&ch, &key, &vel) {
				continue
			}
			if abs%perStep != 0 {
				continue
			}
			step := int(abs / perStep) //nolint:gosec // bounded below
			if step >= s.steps {
				continue
			}
			st := Step{Active: true, Velocity: float64(vel) / 127}
			switch ch {
			case drumChannel:
				t, ok := keyTracks[key]
				if !ok {
					continue
				}
				p[t][step] = st
			case bassChannel:
				st.Note = note.Name(int(key))
				p[Bass][step] = st
			case synthChannel:
				st.Note = note.Name(int(key))
				p[Synth][step] = st
			}
		}
	}

	s.SetPattern(p)
	if changes := sm.TempoChanges(); len(changes) > 0 {
		s.SetBPM(changes[0].BPM)
	}
	return nil
}
