package note

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFrequency(t *testing.T) {
	tests := []struct {
		midi float64
		want float64
	}{
		{69, 440},
		{81, 880},
		{57, 220},
		{60, 261.6255653},
		{36, 65.4063913},
	}
	for _, tt := range tests {
		require.InDelta(t, tt.want, Frequency(tt.midi), 1e-6, "midi %v", tt.midi)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"A4", 69, true},
		{"C4", 60, true},
		{"c4", 60, true},
		{"C#3", 49, true},
		{"Db3", 49, true},
		{"C♯3", 49, true},
		{"D♭3", 49, true},
		{"B-1", 11, true},
		{"C-1", 0, true},
		{"Cb4", 59, true},
		{"E#4", 65, true},
		{" G2 ", 43, true},
		{"", 0, false},
		{"H4", 0, false},
		{"C", 0, false},
		{"C#", 0, false},
		{"Cx4", 0, false},
		{"4C", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := Parse(tt.in)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				require.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParse_LowercaseBIsTheNoteB(t *testing.T) {
	got, ok := Parse("b3")
	require.True(t, ok)
	require.Equal(t, 59, got)
}

func TestToFrequency(t *testing.T) {
	require.InDelta(t, 440.0, ToFrequency(69), 1e-9)
	require.InDelta(t, 440.0, ToFrequency(69.0), 1e-9)
	require.InDelta(t, 440.0, ToFrequency("A4"), 1e-9)
	require.InDelta(t, 880.0, ToFrequency("81"), 1e-9)
	require.InDelta(t, 138.5913155, ToFrequency("C#3"), 1e-6)

	require.Equal(t, FallbackFrequency, ToFrequency("not-a-note"))
	require.Equal(t, FallbackFrequency, ToFrequency(nil))
	require.Equal(t, FallbackFrequency, ToFrequency(true))
}

func TestToFrequency_NonFiniteFallsBack(t *testing.T) {
	for _, v := range []any{
		"NaN", "Inf", "-Inf", "1e9", "-1e9", "C999999999",
		math.NaN(), math.Inf(1), math.Inf(-1), 1e9, float32(1e9),
	} {
		got := ToFrequency(v)
		require.Equal(t, FallbackFrequency, got, "ToFrequency(%v)", v)
	}
}

func TestToFrequency_AlwaysFinite(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		f := ToFrequency(s)
		if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
			t.Fatalf("ToFrequency(%q) = %v", s, f)
		}
	})
}

func TestName(t *testing.T) {
	require.Equal(t, "A4", Name(69))
	require.Equal(t, "C#4", Name(61))
	require.Equal(t, "C-1", Name(0))
	require.Equal(t, "B-2", Name(-1))
}

func TestNameParseRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		midi := rapid.IntRange(-24, 140).Draw(t, "midi")
		got, ok := Parse(Name(midi))
		if !ok || got != midi {
			t.Fatalf("Parse(Name(%d)) = %d, %v", midi, got, ok)
		}
	})
}

func TestFrequencyOctaveProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		midi := rapid.Float64Range(0, 127).Draw(t, "midi")
		ratio := Frequency(midi+12) / Frequency(midi)
		if ratio < 2-1e-9 || ratio > 2+1e-9 {
			t.Fatalf("octave ratio %v", ratio)
		}
	})
}
