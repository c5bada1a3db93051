// Package note maps MIDI numbers and note names ("C#3", "Bb-1") to
// frequencies in 12-tone equal temperament with A4 = 440 Hz.
package note

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// A4 is the reference pitch.
const A4 = 440.0

// FallbackFrequency is returned for notes that cannot be interpreted.
const FallbackFrequency = A4

var semitones = map[byte]int{
	'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11,
}

var sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// Frequency returns the frequency of a (possibly fractional) MIDI number.
func Frequency(midi float64) float64 {
	return A4 * math.Pow(2, (midi-69)/12)
}

// Parse converts a note name to its MIDI number. The name is a letter A-G
// (any case), an optional accidental (#, b, ♯ or ♭) and an integer octave,
// which may be negative. C4 is 60.
func Parse(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	semi, ok := semitones[upper(s[0])]
	if !ok {
		return 0, false
	}
	rest := s[1:]

	switch {
	case strings.HasPrefix(rest, "#"):
		semi++
		rest = rest[1:]
	case strings.HasPrefix(rest, "♯"):
		semi++
		rest = rest[len("♯"):]
	case strings.HasPrefix(rest, "♭"):
		semi--
		rest = rest[len("♭"):]
	case strings.HasPrefix(rest, "b") && len(rest) > 1:
		semi--
		rest = rest[1:]
	}

	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return (octave+1)*12 + semi, true
}

// ToFrequency interprets v as a note. Numbers are MIDI numbers; strings
// are note names, or numeric MIDI numbers written as text. Anything else,
// including unparseable names and MIDI numbers whose frequency is not a
// finite positive value, yields FallbackFrequency.
func ToFrequency(v any) float64 {
	switch n := v.(type) {
	case float64:
		return checked(Frequency(n))
	case float32:
		return checked(Frequency(float64(n)))
	case int:
		return checked(Frequency(float64(n)))
	case int64:
		return checked(Frequency(float64(n)))
	case string:
		if midi, ok := Parse(n); ok {
			return checked(Frequency(float64(midi)))
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return checked(Frequency(f))
		}
	}
	return FallbackFrequency
}

func checked(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return FallbackFrequency
	}
	return f
}

// Name renders a MIDI number with sharps, e.g. 61 -> "C#4".
func Name(midi int) string {
	pc := ((midi % 12) + 12) % 12
	octave := (midi-pc)/12 - 1
	return fmt.Sprintf("%s%d", sharpNames[pc], octave)
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}
