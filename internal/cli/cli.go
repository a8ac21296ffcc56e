// Package cli implements the bufferopt command-line interface.
//
// # Commands
//
//   - buffer_opt: optimize a network (alias: optimize)
//   - trace: print arrival, required and slack times
//   - dot: draw a network as Graphviz DOT or SVG
//   - report: show stored run reports, optionally in an interactive browser
//   - serve: run the HTTP API
//   - cache: manage the result cache
//
// Results are cached under $XDG_CACHE_HOME/bufferopt and run reports are
// written to $XDG_DATA_HOME/bufferopt/runs.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bufferopt/pkg/buildinfo"
	"github.com/matzehuels/bufferopt/pkg/cache"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/pipeline"
	"github.com/matzehuels/bufferopt/pkg/store"
)

// appName names the cache and data directories.
const appName = "bufferopt"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a CLI logging to w at level.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Timing-driven buffer insertion and fanout restructuring",
		Long:         `bufferopt inserts buffers, resizes gates and splits fanouts of a logic network to reduce its worst delay, then recovers area where slack allows.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}
	root.SetVersionTemplate(buildinfo.Template())
	root.SetFlagErrorFunc(flagError)
	root.Args = cobra.ArbitraryArgs
	root.RunE = func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return errors.New(errors.ErrCodeInvalidInput, "unknown command %q for %q", args[0], cmd.CommandPath())
	}

	root.AddCommand(c.optimizeCommand())
	root.AddCommand(c.traceCommand())
	root.AddCommand(c.dotCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())
	return root
}

// newRunner creates a pipeline runner backed by the file cache and the
// file report store.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, *store.FileStore, error) {
	var rc cache.Cache = cache.NewNullCache()
	if !noCache {
		if dir, err := cacheDir(); err == nil {
			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return nil, nil, err
			}
			rc = fc
		}
	}
	dir, err := dataDir()
	if err != nil {
		return nil, nil, err
	}
	st, err := store.NewFileStore(filepath.Join(dir, "runs"))
	if err != nil {
		return nil, nil, err
	}
	return pipeline.NewRunner(rc, nil, st, c.Logger), st, nil
}

// cacheDir returns $XDG_CACHE_HOME/bufferopt or ~/.cache/bufferopt.
func cacheDir() (string, error) {
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// dataDir returns $XDG_DATA_HOME/bufferopt or ~/.local/share/bufferopt.
func dataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, appName), nil
}
