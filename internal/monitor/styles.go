package monitor

import "github.com/charmbracelet/lipgloss"

var (
	// Semantic color names - Text hierarchy
	textPrimaryColor = lipgloss.AdaptiveColor{Light: "#1F2937", Dark: "#E5E7EB"}
	textMutedColor   = lipgloss.AdaptiveColor{Light: "#6B7280", Dark: "#9CA3AF"}
	textIdleColor    = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#4B5563"}
	borderColor      = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}

	// Semantic color names - Sequencer
	stepActiveColor = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#F59E0B"} // active steps, title
	stepAccentColor = lipgloss.AdaptiveColor{Light: "#DC2626", Dark: "#EF4444"} // accented steps, clipping
	playingColor    = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#10B981"} // transport, meters

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(stepActiveColor)
	playingStyle = lipgloss.NewStyle().Bold(true).Foreground(playingColor)
	stoppedStyle = lipgloss.NewStyle().Foreground(textMutedColor)
	pausedStyle  = lipgloss.NewStyle().Foreground(stepActiveColor)
	labelStyle   = lipgloss.NewStyle().Foreground(textMutedColor)
	valueStyle   = lipgloss.NewStyle().Foreground(textPrimaryColor)
	activeStyle  = lipgloss.NewStyle().Foreground(stepActiveColor)
	accentStyle  = lipgloss.NewStyle().Bold(true).Foreground(stepAccentColor)
	idleStyle    = lipgloss.NewStyle().Foreground(textIdleColor)
	headStyle    = lipgloss.NewStyle().Reverse(true)
	meterStyle   = lipgloss.NewStyle().Foreground(playingColor)
	hotStyle     = lipgloss.NewStyle().Foreground(stepAccentColor)
	dividerStyle = lipgloss.NewStyle().Foreground(borderColor)
)
