package models

import (
	"strings"

	"github.com/allbin/nanocom/internal/tui/keys"
	"github.com/allbin/nanocom/internal/tui/styles"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxVisibleRows caps the picker height, longer lists scroll
const maxVisibleRows = 10

// PortEntry is one row of the picker
type PortEntry struct {
	Path        string
	Type        string
	Description string
}

// PickerModel lets the user choose a serial port. After the program exits,
// Selected returns the chosen path or "" if the user quit.
type PickerModel struct {
	table    table.Model
	help     help.Model
	keys     keys.PickerKeys
	exitHint string

	selected string
	done     bool
}

// NewPickerModel builds a picker over entries. exitHint is shown under the
// table so the user knows how to leave the session they are about to start.
func NewPickerModel(entries []PortEntry, exitHint string) *PickerModel {
	columns := []table.Column{
		{Title: "Port", Width: 16},
		{Title: "Type", Width: 16},
		{Title: "Description", Width: 32},
	}

	rows := make([]table.Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, table.Row{e.Path, e.Type, e.Description})
	}

	// The table height includes the header, which spans two lines once
	// its bottom border is drawn
	tableStyles := styles.PickerTableStyles()
	headerHeight := lipgloss.Height(tableStyles.Header.Render(columns[0].Title))
	visibleRows := min(max(len(rows), 1), maxVisibleRows)

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithStyles(tableStyles),
		table.WithHeight(visibleRows+headerHeight),
	)

	return &PickerModel{
		table:    t,
		help:     help.New(),
		keys:     keys.NewPickerKeys(),
		exitHint: exitHint,
	}
}

func (m *PickerModel) Init() tea.Cmd {
	return nil
}

func (m *PickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Select):
			if row := m.table.SelectedRow(); row != nil {
				m.selected = row[0]
			}
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *PickerModel) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("nanocom · select a serial port"))
	b.WriteString("\n")
	b.WriteString(styles.PickerStyle.Render(m.table.View()))
	if m.exitHint != "" {
		b.WriteString(styles.HintStyle.Render(m.exitHint))
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return lipgloss.NewStyle().Margin(1, 2).Render(b.String())
}

// Selected returns the chosen port path, or "" if the picker was quit
func (m *PickerModel) Selected() string {
	return m.selected
}
