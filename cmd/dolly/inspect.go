package main

import (
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/teranos/dolly/report"
	"github.com/teranos/dolly/take"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <take.jsonl>",
	Short: "Browse a recorded take interactively",
	Long: `Inspect opens a take file in a small terminal browser with one tab per
view: entities with their row counts and archetypes, and timelines
with their cell kinds and ranges.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	rows, err := take.ReadFile(args[0])
	if err != nil {
		return err
	}
	program := tea.NewProgram(newInspectModel(args[0], rows), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

const (
	tabEntities = iota
	tabTimelines
)

var (
	inspectTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#6ab0f3"))
	inspectActiveTab     = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("#ffffff"))
	inspectInactiveTab   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	inspectSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8BC34A"))
	inspectMutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
)

// inspectModel is a two-tab browser over a take summary.
type inspectModel struct {
	path    string
	summary report.Summary
	tab     int
	cursor  int
	offset  int
	width   int
	height  int
}

func newInspectModel(path string, rows []take.Row) inspectModel {
	return inspectModel{
		path:    path,
		summary: report.BuildSummary(rows),
	}
}

// Init implements tea.Model.
func (m inspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampScroll()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab":
			m.tab = (m.tab + 1) % 2
			m.cursor = 0
			m.offset = 0
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.clampScroll()
			}
		case "down", "j":
			if m.cursor < m.listLen()-1 {
				m.cursor++
				m.clampScroll()
			}
		case "g":
			m.cursor = 0
			m.offset = 0
		case "G":
			if n := m.listLen(); n > 0 {
				m.cursor = n - 1
				m.clampScroll()
			}
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m inspectModel) View() string {
	var b strings.Builder

	title := fmt.Sprintf("%s  (%d rows)", m.path, m.summary.Rows)
	b.WriteString(inspectTitleStyle.Render(title) + "\n\n")

	tabs := []string{
		fmt.Sprintf("Entities (%d)", len(m.summary.Entities)),
		fmt.Sprintf("Timelines (%d)", len(m.summary.Timelines)),
	}
	for i, label := range tabs {
		if i > 0 {
			b.WriteString("  ")
		}
		if i == m.tab {
			b.WriteString(inspectActiveTab.Render(label))
		} else {
			b.WriteString(inspectInactiveTab.Render(label))
		}
	}
	b.WriteString("\n\n")

	lines := m.lines()
	if len(lines) == 0 {
		b.WriteString(inspectMutedStyle.Render("nothing recorded") + "\n")
	}
	end := m.offset + m.visibleLines()
	if end > len(lines) {
		end = len(lines)
	}
	for i := m.offset; i < end; i++ {
		if i == m.cursor {
			b.WriteString(inspectSelectedStyle.Render("> "+lines[i]) + "\n")
		} else {
			b.WriteString("  " + lines[i] + "\n")
		}
	}

	b.WriteString("\n" + inspectMutedStyle.Render("↑/↓ move · tab switch · q quit"))
	return b.String()
}

func (m inspectModel) lines() []string {
	if m.tab == tabTimelines {
		out := make([]string, 0, len(m.summary.Timelines))
		for _, tl := range m.summary.Timelines {
			out = append(out, fmt.Sprintf("%-20s %-9s %5d points  %s", tl.Name, tl.Kind, tl.Points, tl.Range()))
		}
		return out
	}
	out := make([]string, 0, len(m.summary.Entities))
	for _, ent := range m.summary.Entities {
		out = append(out, fmt.Sprintf("%-50s %4d rows  %s", ent.Path, ent.Rows, kindList(ent.Kinds)))
	}
	return out
}

func (m inspectModel) listLen() int {
	if m.tab == tabTimelines {
		return len(m.summary.Timelines)
	}
	return len(m.summary.Entities)
}

func (m inspectModel) visibleLines() int {
	if m.height == 0 {
		return 20
	}
	// Title, tab row, help line and their blank lines eat six rows.
	n := m.height - 6
	if n < 5 {
		n = 5
	}
	return n
}

func (m *inspectModel) clampScroll() {
	window := m.visibleLines()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+window {
		m.offset = m.cursor - window + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// kindList renders archetype counts like "boxes3d x1, transform3d x4".
func kindList(kinds map[string]int) string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s x%d", name, kinds[name]))
	}
	return strings.Join(parts, ", ")
}
