package ui

import "github.com/charmbracelet/lipgloss"

type Style struct {
	Header            lipgloss.Style
	UnselectedMessage lipgloss.Style
	SelectedMessage   lipgloss.Style
	Role              lipgloss.Style
	Pager             lipgloss.Style
	Status            lipgloss.Style
	Progress          lipgloss.Style
	Error             lipgloss.Style
}

func DefaultStyles() *Style {
	return &Style{
		Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		UnselectedMessage: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		SelectedMessage: lipgloss.NewStyle().
			Border(lipgloss.ThickBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1),
		Role:     lipgloss.NewStyle().Bold(true),
		Pager:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Status:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("214")),
		Progress: lipgloss.NewStyle().Padding(0, 1),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1),
	}
}
