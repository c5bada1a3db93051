package monitor

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	zone "github.com/lrstanley/bubblezone"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"

	"github.com/haosfm/haos/internal/sequencer"
)

const (
	labelWidth = 6
	meterWidth = 12
	// levelFloorDB maps to an empty level meter.
	levelFloorDB = -60.0
)

// View renders the monitor.
func (m Model) View() string {
	sections := []string{
		m.renderHeader(),
		m.renderInstruments(),
		"",
		m.renderPlayhead(),
	}
	for _, t := range sequencer.Tracks {
		sections = append(sections, m.renderTrack(t))
	}
	sections = append(sections, "", m.renderMeters(), m.help.View(m.keys))
	if m.viewport.Height > 0 {
		sections = append(sections, dividerStyle.Render(strings.Repeat("─", max(0, m.width))), m.viewport.View())
	}
	return zone.Scan(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (m Model) renderHeader() string {
	st := m.state
	status := stoppedStyle.Render("■ stopped")
	switch {
	case st.Playing:
		status = playingStyle.Render("▶ playing")
	case st.Paused:
		status = pausedStyle.Render("‖ paused")
	}
	left := titleStyle.Render("haos") + "  " + status

	parts := []string{
		field("bpm", fmt.Sprintf("%g", st.BPM)),
		field("swing", fmt.Sprintf("%g", st.Swing)),
		field("bank", st.Bank),
	}
	if len(st.Chain) > 0 {
		parts = append(parts, field("chain", strings.Join(st.Chain, "→")))
	}
	if st.Playing {
		parts = append(parts, field("bar", fmt.Sprintf("%d", st.Bar+1)))
	}
	right := strings.Join(parts, "  ")

	gap := m.width - ansi.StringWidth(left) - ansi.StringWidth(right)
	if gap < 2 {
		gap = 2
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderInstruments() string {
	mx := m.state.Mixer
	return strings.Join([]string{
		field("drums", mx.DrumMachine),
		field("bass", mx.BassSynth),
		field("synth", mx.Synth),
		field("master", fmt.Sprintf("%.0f%%", mx.Master*100)),
	}, "  ")
}

// renderPlayhead draws a marker above the current step column.
func (m Model) renderPlayhead() string {
	n := len(m.pattern[sequencer.Kick])
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", labelWidth+1))
	for i := range n {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		if i == m.playhead {
			b.WriteString(activeStyle.Render("▼"))
		} else {
			b.WriteByte(' ')
		}
		b.WriteByte(' ')
	}
	return b.String()
}

func (m Model) renderTrack(t sequencer.Track) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(runewidth.FillRight(runewidth.Truncate(string(t), labelWidth, ""), labelWidth)))
	b.WriteByte(' ')
	for i, step := range m.pattern[t] {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		cell := idleStyle.Render("·")
		switch {
		case step.Active && step.Accent:
			cell = accentStyle.Render("■")
		case step.Active:
			cell = activeStyle.Render("■")
		}
		if i == m.playhead {
			cell = headStyle.Render(cell)
		}
		b.WriteString(zone.Mark(cellID(m.prefix, t, i), cell))
		b.WriteByte(' ')
	}
	return b.String()
}

func (m Model) renderMeters() string {
	v := m.state.Voices
	voices := field("voices", fmt.Sprintf("%d/%d", v.Count, v.Max)) + " " +
		meter(v.CPULoadRatio) + " " + valueStyle.Render(fmt.Sprintf("%3.0f%%", v.CPULoadRatio*100))

	db := m.levelDB
	level := field("level", formatDB(db)) + " " + meter((db-levelFloorDB)/-levelFloorDB)

	out := voices + "   " + level
	if m.lastSound != "" {
		out += "   " + field("last", m.lastSound)
	}
	return out
}

func field(label, value string) string {
	return labelStyle.Render(label) + " " + valueStyle.Render(value)
}

func formatDB(db float64) string {
	if db <= silenceDB {
		return "-inf dB"
	}
	return fmt.Sprintf("%.1f dB", db)
}

// meter renders ratio (clamped to 0-1) as a bar; the top quarter is hot.
func meter(ratio float64) string {
	if math.IsNaN(ratio) {
		ratio = 0
	}
	ratio = math.Max(0, math.Min(1, ratio))
	filled := int(math.Round(ratio * meterWidth))
	var b strings.Builder
	for i := range meterWidth {
		switch {
		case i >= filled:
			b.WriteString(idleStyle.Render("░"))
		case i >= meterWidth*3/4:
			b.WriteString(hotStyle.Render("█"))
		default:
			b.WriteString(meterStyle.Render("█"))
		}
	}
	return b.String()
}

// renderLogLines truncates each line to width so the viewport never wraps.
func renderLogLines(lines []string, width int) string {
	if width <= 0 {
		return strings.Join(lines, "\n")
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = truncate.StringWithTail(l, uint(width), "…") //nolint:gosec // width > 0
	}
	return strings.Join(out, "\n")
}
