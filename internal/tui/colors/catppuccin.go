package colors

import "github.com/charmbracelet/lipgloss"

// Catppuccin Mocha color palette, the subset used by nanocom
var (
	Surface0 = lipgloss.Color("#313244") // Surface colors
	Surface1 = lipgloss.Color("#45475a")
	Overlay0 = lipgloss.Color("#6c7086")
	Subtext0 = lipgloss.Color("#a6adc8") // Text colors
	Text     = lipgloss.Color("#cdd6f4")

	Green = lipgloss.Color("#a6e3a1")
	Red   = lipgloss.Color("#f38ba8")
	Mauve = lipgloss.Color("#cba6f7")
)
