package keys

import (
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

func TestDefaultKeyMap_Assignments(t *testing.T) {
	km := DefaultKeyMap()
	tests := []struct {
		name     string
		binding  key.Binding
		expected []string
	}{
		{"Play uses space", km.Play, []string{" "}},
		{"Pause uses .", km.Pause, []string{"."}},
		{"Panic uses p", km.Panic, []string{"p"}},
		{"Drums808 uses 1", km.Drums808, []string{"1"}},
		{"Drums909 uses 2", km.Drums909, []string{"2"}},
		{"CycleBass uses b", km.CycleBass, []string{"b"}},
		{"CycleSynth uses s", km.CycleSynth, []string{"s"}},
		{"PreviewDrum uses the bottom row", km.PreviewDrum, []string{"z", "x", "c", "v"}},
		{"PreviewBass uses n", km.PreviewBass, []string{"n"}},
		{"BPMUp also accepts unshifted =", km.BPMUp, []string{"+", "="}},
		{"BPMDown", km.BPMDown, []string{"-", "_"}},
		{"Quit uses q and ctrl+c", km.Quit, []string{"q", "ctrl+c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, tt.binding.Keys())
			require.NotEmpty(t, tt.binding.Help().Desc)
		})
	}
}

func TestDefaultKeyMap_MatchesKeyMsgs(t *testing.T) {
	km := DefaultKeyMap()
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}, km.Play))
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'p'}}, km.Panic))
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyTab}, km.NextBank))
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyCtrlC}, km.Quit))
	require.False(t, key.Matches(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}}, km.Play))
}

func TestDefaultKeyMap_NoDuplicateKeys(t *testing.T) {
	km := DefaultKeyMap()
	seen := map[string]string{}
	for _, group := range km.FullHelp() {
		for _, b := range group {
			for _, k := range b.Keys() {
				prev, dup := seen[k]
				require.False(t, dup, "key %q bound to both %q and %q", k, prev, b.Help().Desc)
				seen[k] = b.Help().Desc
			}
		}
	}
}

func TestHelp(t *testing.T) {
	km := DefaultKeyMap()
	require.Len(t, km.ShortHelp(), 4)
	total := 0
	for _, group := range km.FullHelp() {
		total += len(group)
	}
	require.Equal(t, 14, total)
}

func TestPreviewDrumKeys_CoverBinding(t *testing.T) {
	km := DefaultKeyMap()
	require.Len(t, PreviewDrumKeys, len(km.PreviewDrum.Keys()))
	for _, k := range km.PreviewDrum.Keys() {
		require.Contains(t, PreviewDrumKeys, k)
	}
}
