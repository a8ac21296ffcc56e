package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/pipeline"
)

// optimizeFlags holds the buffer_opt command line.
type optimizeFlags struct {
	fanoutLimit int
	singlePass  bool
	decompose   bool
	mode        int
	maxLoadOnly bool
	trace       bool
	debugLevel  int
	debug       bool

	library   string
	config    string
	output    string
	mapped    bool
	threshold float64
	rejectMax bool
	noCache   bool
	refresh   bool
}

func (f *optimizeFlags) register(fs *pflag.FlagSet) {
	fs.IntVarP(&f.fanoutLimit, "fanout-limit", "l", buffer.DefaultFanoutLimit, "fanout count at or below which new branches are not restructured")
	fs.BoolVarP(&f.singlePass, "single-pass", "c", false, "stop after the first sweep")
	fs.BoolVarP(&f.decompose, "decompose", "d", false, "allow node duplication as a last resort")
	fs.IntVarP(&f.mode, "mode", "f", int(buffer.ModeAll), "transform bitmask: 1 repower, 2 unbalanced, 4 balanced")
	fs.BoolVarP(&f.maxLoadOnly, "max-load", "L", false, "only fix max-load violations")
	fs.BoolVarP(&f.trace, "trace", "T", false, "log every committed transform")
	fs.IntVarP(&f.debugLevel, "debug-level", "v", 0, "optimizer debug verbosity")
	fs.BoolVarP(&f.debug, "debug", "D", false, "enable optimizer debug output")

	fs.StringVar(&f.library, "library", "", "technology library (TOML)")
	fs.StringVar(&f.config, "config", "", "optimizer config file (TOML); flags override it")
	fs.StringVarP(&f.output, "output", "o", "", "write the optimized network to this file (- for stdout)")
	fs.BoolVar(&f.mapped, "mapped", false, "require library cells for inserted buffers")
	fs.Float64Var(&f.threshold, "threshold", buffer.DefaultThreshold, "slack window around the worst output slack")
	fs.BoolVar(&f.rejectMax, "reject-load-violations", false, "reject transforms that exceed a cell's max load")
	fs.BoolVar(&f.noCache, "no-cache", false, "disable the result cache")
	fs.BoolVar(&f.refresh, "refresh", false, "ignore cached results")
}

// buildConfig starts from the config file (or the defaults) and applies the
// flags that were set explicitly. nodes restricts the scan.
func (f *optimizeFlags) buildConfig(fs *pflag.FlagSet, nodes []string) (buffer.Config, error) {
	cfg := buffer.DefaultConfig()
	if f.config != "" {
		var err error
		if cfg, err = buffer.LoadConfig(f.config); err != nil {
			return cfg, err
		}
	}
	set := func(name string) bool { return f.config == "" || fs.Changed(name) }

	if set("fanout-limit") {
		cfg.FanoutLimit = f.fanoutLimit
	}
	if set("mode") {
		if f.mode < 0 || f.mode > 255 {
			return cfg, errors.ValidateMode(f.mode)
		}
		cfg.Mode = buffer.Mode(f.mode)
	}
	if set("threshold") {
		cfg.Threshold = f.threshold
	}
	if fs.Changed("single-pass") {
		cfg.SinglePass = f.singlePass
	}
	if fs.Changed("decompose") {
		cfg.AllowDecompose = f.decompose
	}
	if fs.Changed("max-load") {
		cfg.MaxLoadOnly = f.maxLoadOnly
	}
	if fs.Changed("trace") {
		cfg.Trace = f.trace
	}
	if fs.Changed("mapped") {
		cfg.UseMappedModel = f.mapped
	}
	if fs.Changed("reject-load-violations") {
		cfg.RejectLoadViolations = f.rejectMax
	}
	if fs.Changed("debug-level") {
		cfg.DebugLevel = f.debugLevel
	}
	if f.debug && cfg.DebugLevel == 0 {
		cfg.DebugLevel = 1
	}
	if len(nodes) > 0 {
		cfg.Nodes = nodes
	}
	return cfg, cfg.Validate()
}

// optimizeCommand creates the buffer_opt command.
func (c *CLI) optimizeCommand() *cobra.Command {
	var f optimizeFlags
	cmd := &cobra.Command{
		Use:     "buffer_opt [flags] NETWORK [NODE...]",
		Aliases: []string{"optimize"},
		Short:   "Insert buffers and restructure fanouts on critical paths",
		Long: `Reads a JSON network, optimizes its delay and stores a run report.

Trailing node names restrict the scan to those nodes. Without --library the
network is treated as unmapped and unit-fanout cells are inserted.`,
		Args: userArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.buildConfig(cmd.Flags(), args[1:])
			if err != nil {
				return err
			}
			return c.runOptimize(cmd.Context(), args[0], cfg, f)
		},
	}
	f.register(cmd.Flags())
	return cmd
}

func (c *CLI) runOptimize(ctx context.Context, path string, cfg buffer.Config, f optimizeFlags) error {
	if cfg.DebugLevel > 0 || cfg.Trace {
		c.SetLogLevel(LogDebug)
	}
	opts, err := readInputs(path, f.library)
	if err != nil {
		return err
	}
	opts.Config = cfg
	opts.Refresh = f.refresh

	runner, _, err := c.newRunner(f.noCache)
	if err != nil {
		return err
	}
	defer runner.Close(context.WithoutCancel(ctx))

	prog := newProgress(c.Logger)
	var spinner *Spinner
	if c.Logger.GetLevel() > LogDebug && f.output != "-" {
		spinner = newSpinner(ctx, os.Stderr, "Optimizing "+path)
		spinner.Start()
	}
	res, err := runner.Execute(ctx, opts)
	if spinner != nil && spinner.Stop() {
		printWarning("Interrupted")
	}
	if err != nil {
		return err
	}
	prog.done("optimized " + res.Network.Name())

	if f.output == "-" {
		_, err := os.Stdout.Write(res.Document)
		return err
	}
	printSuccess("Optimized %s", StyleHighlight.Render(res.Network.Name()))
	printReport(res.Report)
	if f.output != "" {
		if err := os.WriteFile(f.output, res.Document, 0o644); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "write %s", f.output)
		}
		printFile(f.output)
	}
	return nil
}

// readInputs loads the network and optional library files.
func readInputs(networkPath, libraryPath string) (pipeline.Options, error) {
	var opts pipeline.Options
	data, err := os.ReadFile(networkPath)
	if err != nil {
		return opts, errors.Wrap(errors.ErrCodeInvalidPath, err, "read network")
	}
	opts.Network, opts.Source = data, networkPath
	if libraryPath != "" {
		lib, err := os.ReadFile(libraryPath)
		if err != nil {
			return opts, errors.Wrap(errors.ErrCodeMissingLibrary, err, "read library")
		}
		opts.Library = lib
	}
	return opts, nil
}

