package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/haosfm/haos/internal/sequencer"
)

func TestBuilder_WithPattern(t *testing.T) {
	lib := NewBuilder(t, t.TempDir()).
		WithPattern("kicks", BPM(100), Mask("kick", "x.x.x.x.x.x.x.x.")).
		Build()

	names, err := lib.List()
	require.NoError(t, err)
	require.Equal(t, []string{"kicks"}, names)

	f, err := lib.Load(context.Background(), "kicks")
	require.NoError(t, err)
	require.Equal(t, 100.0, f.BPM)
	require.Equal(t, "x.x.x.x.x.x.x.x.", f.Tracks["kick"].Mask)
}

func TestBuilder_Notes(t *testing.T) {
	lib := NewBuilder(t, t.TempDir()).WithStandardPatterns().Build()

	f, err := lib.Load(context.Background(), "bassline")
	require.NoError(t, err)
	require.Equal(t, 20.0, f.Swing)

	p, err := f.Pattern(sequencer.DefaultSteps)
	require.NoError(t, err)
	bass := p[sequencer.Bass]
	require.True(t, bass[0].Active)
	require.True(t, bass[0].Accent)
	require.Equal(t, "C2", bass[0].Note)
	require.True(t, bass[6].Slide)
	require.Equal(t, 0.6, bass[6].Velocity)
	require.Equal(t, 2, p.ActiveCount())
}

func TestBuilder_StandardPatterns(t *testing.T) {
	lib := NewBuilder(t, t.TempDir()).WithStandardPatterns().Build()

	names, err := lib.List()
	require.NoError(t, err)
	require.Equal(t, []string{"bassline", "groove"}, names)
}
