package cli

import (
	"fmt"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/store"
)

// reportCommand creates the report command.
func (c *CLI) reportCommand() *cobra.Command {
	var (
		limit int
		tui   bool
	)
	cmd := &cobra.Command{
		Use:   "report [RUN_ID]",
		Short: "Show stored run reports",
		Long: `Without arguments, lists the most recent runs. With a run ID, prints the
run's summary and its transform events. --tui opens an interactive browser
over the events.`,
		Args: userArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, st, err := c.newRunner(true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if len(args) == 0 {
				reports, err := st.List(ctx, limit)
				if err != nil {
					return err
				}
				if len(reports) == 0 {
					printInfo("No runs recorded")
					printDetail("Directory: %s", st.Path())
					return nil
				}
				fmt.Println(runTable(reports))
				return nil
			}

			if err := errors.ValidateRunID(args[0]); err != nil {
				return err
			}
			rep, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			if tui {
				_, err := tea.NewProgram(NewReportModel(rep)).Run()
				return err
			}
			printReport(rep)
			if len(rep.Stats.Events) > 0 {
				fmt.Println()
				fmt.Println(eventTable(rep))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to list")
	cmd.Flags().BoolVar(&tui, "tui", false, "browse events interactively")
	return cmd
}

func runTable(reports []*store.Report) string {
	rows := make([][]string, 0, len(reports))
	for _, r := range reports {
		cached := ""
		if r.CacheHit {
			cached = iconCached
		}
		rows = append(rows, []string{
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Network,
			r.Mode,
			fmt.Sprint(r.Stats.Changes()),
			fmt.Sprintf("%.4f", r.Stats.MetricAfter),
			cached,
		})
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Run", "Created", "Network", "Mode", "Changes", "Metric", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row < 0:
				return styleHeader
			case col == 0:
				return StyleDim
			case col == 5 && reports[row].Stats.MetricAfter < 0:
				return StyleNegative
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func eventTable(rep *store.Report) string {
	rows := make([][]string, 0, len(rep.Stats.Events))
	for _, ev := range rep.Stats.Events {
		rows = append(rows, eventRow(ev.Sweep, ev.Kind, ev.Node, ev.Level, ev.Gain, ev.Area, len(ev.Inserted)))
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Sweep", "Kind", "Node", "Level", "Gain", "Area", "Cells").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row < 0 {
				return styleHeader
			}
			if col == 1 {
				return StyleHighlight
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func eventRow(sweep int, kind, node string, level int, gain, area float64, cells int) []string {
	return []string{
		fmt.Sprint(sweep),
		kind,
		node,
		fmt.Sprint(level),
		fmt.Sprintf("%+.4f", gain),
		fmt.Sprintf("%+.3f", area),
		fmt.Sprint(cells),
	}
}

// sortedKinds returns the transform kinds with a nonzero count in name
// order.
func sortedKinds(counts map[string]int) []string {
	kinds := make([]string, 0, len(counts))
	for k, n := range counts {
		if n > 0 {
			kinds = append(kinds, k)
		}
	}
	slices.SortFunc(kinds, strings.Compare)
	return kinds
}
