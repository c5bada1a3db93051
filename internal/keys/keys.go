// Package keys contains keybinding definitions.
package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the monitor.
type KeyMap struct {
	// Transport
	Play  key.Binding
	Pause key.Binding
	Panic key.Binding

	// Instruments
	Drums808   key.Binding
	Drums909   key.Binding
	CycleBass  key.Binding
	CycleSynth key.Binding

	// Previews
	PreviewDrum key.Binding
	PreviewBass key.Binding

	// Tempo and banks
	BPMUp    key.Binding
	BPMDown  key.Binding
	NextBank key.Binding

	// General
	Help key.Binding
	Quit key.Binding
}

// BPMStep is the tempo change per BPMUp/BPMDown press.
const BPMStep = 2

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Play: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "play/stop"),
		),
		Pause: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "pause"),
		),
		Panic: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "panic"),
		),
		Drums808: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "TR-808"),
		),
		Drums909: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "TR-909"),
		),
		CycleBass: key.NewBinding(
			key.WithKeys("b"),
			key.WithHelp("b", "next bass synth"),
		),
		CycleSynth: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "next synth"),
		),
		PreviewDrum: key.NewBinding(
			key.WithKeys("z", "x", "c", "v"),
			key.WithHelp("z/x/c/v", "preview kick/snare/hat/clap"),
		),
		PreviewBass: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "preview bass"),
		),
		BPMUp: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "faster"),
		),
		BPMDown: key.NewBinding(
			key.WithKeys("-", "_"),
			key.WithHelp("-", "slower"),
		),
		NextBank: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next bank"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings for the mini help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Panic, k.Help, k.Quit}
}

// FullHelp returns keybindings for the expanded help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Pause, k.Panic, k.BPMUp, k.BPMDown},
		{k.Drums808, k.Drums909, k.CycleBass, k.CycleSynth},
		{k.PreviewDrum, k.PreviewBass},
		{k.NextBank, k.Help, k.Quit},
	}
}

// PreviewDrumKeys maps each PreviewDrum key to the track it auditions.
var PreviewDrumKeys = map[string]string{
	"z": "kick",
	"x": "snare",
	"c": "hihat",
	"v": "clap",
}
