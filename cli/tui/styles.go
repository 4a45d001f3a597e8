// Package tui renders the live transfer view.
//
// The view is the default for pull and push on a terminal; --plain opts out
// and non-TTY output always falls back to plain line output. The view is a
// pure consumer: it reads the workflow's event channel and never touches the
// device or filesystem itself.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for the transfer view.
var (
	// TitleStyle for the header line.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(12)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for the completed state.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// ActiveStyle for in-flight states.
	ActiveStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for the failed state and diagnostics.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// BoxStyle for the bordered attempt summary.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(1, 2)

	// HelpStyle for the key hint line.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// SpeedStyle for the live throughput readout.
	SpeedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)
)

// StateStyle returns a style for a workflow state identifier.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "completed":
		return SuccessStyle
	case "checking_device", "sizing", "transferring":
		return ActiveStyle
	case "failed":
		return ErrorStyle
	default:
		return ValueStyle
	}
}
