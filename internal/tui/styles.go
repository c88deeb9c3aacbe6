package tui

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("3"))
	BulletStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).PaddingRight(1)
	DimTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	SpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	PreviewStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Italic(true)
	PromptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)
