package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bufferopt/pkg/delay"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/pipeline"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// traceCommand creates the trace command.
func (c *CLI) traceCommand() *cobra.Command {
	var (
		library  string
		wireLoad float64
		critical bool
	)
	cmd := &cobra.Command{
		Use:   "trace NETWORK",
		Short: "Print arrival, required and slack times of every node",
		Args:  userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readInputs(args[0], library)
			if err != nil {
				return err
			}
			runner := pipeline.NewRunner(nil, nil, nil, c.Logger)
			net, lib, err := runner.Load(cmd.Context(), opts)
			if err != nil {
				return err
			}
			tr, err := timing.Run(net, timing.NewModel(lib, wireLoad))
			if err != nil {
				return errors.Wrap(errors.ErrCodeInvalidNetwork, err, "trace %s", net.Name())
			}
			fmt.Println(traceTable(tr, critical))
			printKeyValue(metricName(tr.Constrained()), metricValue(tr))
			return nil
		},
	}
	cmd.Flags().StringVar(&library, "library", "", "technology library (TOML)")
	cmd.Flags().Float64Var(&wireLoad, "wire-load", 0, "routing load per fanout edge")
	cmd.Flags().BoolVar(&critical, "critical", false, "only show nodes on the most critical path")
	return cmd
}

func metricValue(tr *timing.Trace) string {
	if tr.Constrained() {
		return fmtSlack(tr.MinOutputSlack())
	}
	return fmt.Sprintf("%.4f", -tr.MaxArrival())
}

// traceTable renders one row per node in topological order.
func traceTable(tr *timing.Trace, criticalOnly bool) string {
	net := tr.Network()
	floor := tr.MinSlack()
	var rows [][]string
	var negative []bool
	for _, id := range net.TopoOrder() {
		nd, _ := net.Node(id)
		slack := tr.Slack(id)
		if criticalOnly && slack.Worst() > floor+delay.Epsilon {
			continue
		}
		rows = append(rows, []string{
			nd.Name,
			kindLabel(nd),
			nd.Gate,
			fmtTime(tr.Arrival(id)),
			fmtTime(tr.Required(id)),
			fmtTime(slack),
			fmt.Sprintf("%.2f", tr.Load(id)),
		})
		negative = append(negative, slack.Worst() < 0)
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(StyleDim).
		Headers("Node", "Kind", "Gate", "Arrival", "Required", "Slack", "Load").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row < 0 {
				return styleHeader.Padding(0, 1)
			}
			if col == 5 && negative[row] {
				return base.Foreground(colorRed)
			}
			return base
		}).
		Render()
}

func kindLabel(nd *network.Node) string {
	switch {
	case nd.IsInput():
		return "input"
	case nd.IsOutput():
		return "output"
	case nd.Synthetic:
		return nd.Func.String() + "*"
	}
	return nd.Func.String()
}

func fmtTime(t delay.Time) string {
	if t.IsInf() {
		return "-"
	}
	return fmt.Sprintf("%.3f/%.3f", t.Rise, t.Fall)
}
