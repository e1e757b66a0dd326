package styles

import (
	"github.com/allbin/nanocom/internal/tui/colors"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	// Header styles
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Mauve).
			Background(colors.Surface0).
			Padding(0, 1).
			MarginBottom(1)

	// Static table styles used by `list --table`
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(colors.Mauve)

	TableBaseStyle = lipgloss.NewStyle().
			Foreground(colors.Text).
			BorderForeground(colors.Surface1).
			Align(lipgloss.Left)

	// Picker styles
	PickerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Surface1)

	HintStyle = lipgloss.NewStyle().
			Foreground(colors.Overlay0).
			MarginTop(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colors.Red)
)

// PickerTableStyles styles the interactive port table
func PickerTableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colors.Subtext0).
		BorderBottom(true).
		Bold(true).
		Foreground(colors.Text)
	s.Selected = s.Selected.
		Foreground(colors.Surface0).
		Background(colors.Green).
		Bold(true)
	return s
}
