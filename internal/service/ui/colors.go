package ui

import "github.com/charmbracelet/lipgloss"

var (
	// TitleStyle uses ANSI 6 (cyan) for headings, readable on both dark and
	// light terminals.
	TitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true).MarginBottom(1)

	// UsageStyle ANSI 2 (green) for arguments and usage lines.
	UsageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))

	// DescStyle ANSI 8 (gray) for descriptions, dimmer than the content.
	DescStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))

	// FlagStyle ANSI 3 (yellow) for flags.
	FlagStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))

	// IDStyle marks record ids so they are easy to copy into other commands.
	IDStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))

	// WarnStyle ANSI 1 (red) for capacity warnings.
	WarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
)
