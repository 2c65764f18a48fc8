package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.Color("205")
	muted  = lipgloss.Color("241")
	danger = lipgloss.Color("196")
)

func TitleStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(accent).
		Padding(0, 2).
		MarginBottom(1)
}

func RowStyle(selected bool) lipgloss.Style {
	s := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(muted).
		Padding(0, 1).
		MarginLeft(1)
	if selected {
		s = s.BorderForeground(accent)
	}
	return s
}

func NameStyle() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true)
}

func DetailStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(muted)
}

func MessageStyle() lipgloss.Style {
	return lipgloss.NewStyle().Padding(0, 2)
}

func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(danger).Padding(0, 2)
}

func DialogStyle() lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(1, 2).
		MarginTop(1)
}

func ButtonStyle(enabled bool) lipgloss.Style {
	s := lipgloss.NewStyle().Padding(0, 1).Bold(true)
	if enabled {
		return s.Foreground(danger)
	}
	return s.Foreground(muted)
}

func StatusStyle(width int) lipgloss.Style {
	s := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)
	if width > 0 {
		s = s.Width(width)
	}
	return s
}
