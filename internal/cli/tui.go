package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/store"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// ReportModel - Interactive event browser
// =============================================================================

// ReportModel is the bubbletea model for browsing the events of a run.
// Enter toggles a detail view of the event under the cursor.
type ReportModel struct {
	Report   *store.Report
	Cursor   int
	Offset   int
	Height   int
	Detailed bool
}

// NewReportModel creates a new event browser for rep.
func NewReportModel(rep *store.Report) ReportModel {
	return ReportModel{Report: rep, Height: 15}
}

func (m ReportModel) events() []buffer.Event {
	return m.Report.Stats.Events
}

func (m ReportModel) Init() tea.Cmd {
	return nil
}

func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if !m.Detailed {
				return m, tea.Quit
			}
			m.Detailed = false
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.events())-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter":
			if len(m.events()) > 0 {
				m.Detailed = !m.Detailed
			}
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-8, 5)
	}
	return m, nil
}

func (m ReportModel) View() string {
	var b strings.Builder

	rep := m.Report
	b.WriteString(StyleTitle.Render(fmt.Sprintf("Run %s", rep.ID)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%s · %s · %s %.4f %s %.4f",
		rep.Network, rep.Mode, metricName(rep.Stats.Constrained),
		rep.Stats.MetricBefore, iconArrow, rep.Stats.MetricAfter)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	events := m.events()
	if len(events) == 0 {
		b.WriteString(listDimStyle.Render("  no transforms committed"))
		b.WriteString("\n")
		return b.String()
	}
	if m.Detailed {
		b.WriteString(eventDetail(events[m.Cursor]))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(events))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		ev := events[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		row := eventRow(ev.Sweep, ev.Kind, ev.Node, ev.Level, ev.Gain, ev.Area, len(ev.Inserted))
		rows = append(rows, append([]string{cursor}, row...))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Sweep", "Kind", "Node", "Level", "Gain", "Area", "Cells").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 {
				return styleHeader
			}
			if m.Offset+row == m.Cursor {
				return listSelectedStyle
			}
			return lipgloss.NewStyle()
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(events))))
	return b.String()
}

func eventDetail(ev buffer.Event) string {
	var b strings.Builder
	line := func(k, v string) {
		fmt.Fprintf(&b, "  %s %s\n", StyleDim.Render(fmt.Sprintf("%-10s", k+":")), StyleValue.Render(v))
	}
	line("sweep", fmt.Sprint(ev.Sweep))
	line("kind", ev.Kind)
	line("node", ev.Node)
	line("level", fmt.Sprint(ev.Level))
	line("gain", fmt.Sprintf("%+.4f", ev.Gain))
	line("area", fmt.Sprintf("%+.3f", ev.Area))
	if len(ev.Inserted) == 0 {
		line("inserted", "-")
	} else {
		line("inserted", strings.Join(ev.Inserted, ", "))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("  esc back"))
	return b.String()
}
