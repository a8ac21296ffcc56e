package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/pipeline"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// dotCommand creates the dot command.
func (c *CLI) dotCommand() *cobra.Command {
	var (
		library  string
		output   string
		svg      bool
		detailed bool
		optimize bool
		noCache  bool
	)
	cmd := &cobra.Command{
		Use:   "dot NETWORK",
		Short: "Draw a network as Graphviz DOT or SVG",
		Long: `Draws the network with its critical path in red and inserted cells dashed.
With --optimize the network is optimized with the default settings first.`,
		Args: userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readInputs(args[0], library)
			if err != nil {
				return err
			}
			ropts := pipeline.RenderOptions{Format: pipeline.FormatDOT, Detailed: detailed}
			if svg {
				ropts.Format = pipeline.FormatSVG
			}
			data, err := c.renderNetwork(cmd.Context(), opts, ropts, optimize, noCache)
			if err != nil {
				return err
			}
			if output == "" {
				_, err := os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", output)
			}
			printSuccess("Rendered %s", args[0])
			printFile(output)
			return nil
		},
	}
	cmd.Flags().StringVar(&library, "library", "", "technology library (TOML)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&svg, "svg", false, "render SVG instead of DOT")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "show gates and timing in labels")
	cmd.Flags().BoolVar(&optimize, "optimize", false, "optimize before drawing")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")
	return cmd
}

func (c *CLI) renderNetwork(ctx context.Context, opts pipeline.Options, ropts pipeline.RenderOptions, optimize, noCache bool) ([]byte, error) {
	runner, _, err := c.newRunner(noCache)
	if err != nil {
		return nil, err
	}
	defer runner.Close(context.WithoutCancel(ctx))

	var res *pipeline.Result
	if optimize {
		opts.Config = buffer.DefaultConfig()
		if res, err = runner.Execute(ctx, opts); err != nil {
			return nil, err
		}
	} else {
		net, lib, err := runner.Load(ctx, opts)
		if err != nil {
			return nil, err
		}
		res = &pipeline.Result{Network: net, Model: timing.NewModel(lib, 0)}
	}
	data, _, err := runner.Render(ctx, res, ropts)
	return data, err
}
