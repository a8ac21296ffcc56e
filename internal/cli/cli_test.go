package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/store"
)

const fanoutJSON = `{
  "name": "fanout",
  "inputs": [{"name": "a"}],
  "nodes": [{"name": "n", "fanins": ["a"]}],
  "outputs": [
    {"name": "o1", "driver": "n", "load": 1, "required": {"rise": 2, "fall": 2}},
    {"name": "o2", "driver": "n", "load": 1, "required": {"rise": 9, "fall": 9}},
    {"name": "o3", "driver": "n", "load": 1, "required": {"rise": 9, "fall": 9}},
    {"name": "o4", "driver": "n", "load": 1, "required": {"rise": 9, "fall": 9}}
  ]
}`

// sandbox points the cache and data directories at a temp dir and writes
// the fanout network there.
func sandbox(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	path := filepath.Join(dir, "fanout.json")
	if err := os.WriteFile(path, []byte(fanoutJSON), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	var logs bytes.Buffer
	root := New(&logs, log.WarnLevel).RootCommand()
	root.SetArgs(args)
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	return root.ExecuteContext(context.Background())
}

func TestRootCommand(t *testing.T) {
	root := New(&bytes.Buffer{}, log.InfoLevel).RootCommand()
	want := []string{"buffer_opt", "trace", "dot", "report", "serve", "cache", "completion"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %s not registered", name)
		}
	}
	if cmd, _, err := root.Find([]string{"optimize"}); err != nil || cmd.Name() != "buffer_opt" {
		t.Error("optimize should alias buffer_opt")
	}
}

func TestBuildConfig(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		nodes    []string
		check    func(t *testing.T, cfg buffer.Config)
		wantCode errors.Code
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg buffer.Config) {
				if cfg.Mode != buffer.ModeAll || cfg.FanoutLimit != buffer.DefaultFanoutLimit {
					t.Errorf("cfg = %+v", cfg)
				}
			},
		},
		{
			name:  "short flags",
			args:  []string{"-f", "3", "-l", "4", "-c", "-d", "-L", "-T"},
			nodes: []string{"n"},
			check: func(t *testing.T, cfg buffer.Config) {
				if cfg.Mode != buffer.ModeRepower|buffer.ModeUnbalanced || cfg.FanoutLimit != 4 {
					t.Errorf("cfg = %+v", cfg)
				}
				if !cfg.SinglePass || !cfg.AllowDecompose || !cfg.MaxLoadOnly || !cfg.Trace {
					t.Errorf("boolean flags not applied: %+v", cfg)
				}
				if len(cfg.Nodes) != 1 || cfg.Nodes[0] != "n" {
					t.Errorf("Nodes = %v", cfg.Nodes)
				}
			},
		},
		{
			name: "debug raises level",
			args: []string{"-D"},
			check: func(t *testing.T, cfg buffer.Config) {
				if cfg.DebugLevel != 1 {
					t.Errorf("DebugLevel = %d, want 1", cfg.DebugLevel)
				}
			},
		},
		{
			name: "explicit debug level wins",
			args: []string{"-D", "-v", "3"},
			check: func(t *testing.T, cfg buffer.Config) {
				if cfg.DebugLevel != 3 {
					t.Errorf("DebugLevel = %d, want 3", cfg.DebugLevel)
				}
			},
		},
		{name: "mode zero", args: []string{"-f", "0"}, wantCode: errors.ErrCodeInvalidConfig},
		{name: "mode too large", args: []string{"-f", "9"}, wantCode: errors.ErrCodeInvalidConfig},
		{name: "negative threshold", args: []string{"--threshold", "-1"}, wantCode: errors.ErrCodeInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f optimizeFlags
			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			f.register(fs)
			if err := fs.Parse(tt.args); err != nil {
				t.Fatal(err)
			}
			cfg, err := f.buildConfig(fs, tt.nodes)
			if tt.wantCode != "" {
				if got := errors.GetCode(err); got != tt.wantCode {
					t.Fatalf("code = %q, want %q (err %v)", got, tt.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildConfig() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestBuildConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "opt.toml")
	if err := os.WriteFile(path, []byte("mode = 4\nfanout_limit = 6\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	var f optimizeFlags
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.register(fs)
	if err := fs.Parse([]string{"--config", path, "-l", "3"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := f.buildConfig(fs, nil)
	if err != nil {
		t.Fatalf("buildConfig() error = %v", err)
	}
	if cfg.Mode != buffer.ModeBalanced {
		t.Errorf("Mode = %v, want the file's balanced", cfg.Mode)
	}
	if cfg.FanoutLimit != 3 {
		t.Errorf("FanoutLimit = %d, flag should override the file", cfg.FanoutLimit)
	}
}

func TestOptimizeEndToEnd(t *testing.T) {
	path := sandbox(t)
	out := filepath.Join(filepath.Dir(path), "out.json")

	if err := run(t, "buffer_opt", path, "-o", out); err != nil {
		t.Fatalf("buffer_opt error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	if !strings.Contains(string(data), `"fanout"`) {
		t.Errorf("output does not look like the fanout network: %s", data)
	}

	dir, err := dataDir()
	if err != nil {
		t.Fatal(err)
	}
	st, err := store.NewFileStore(filepath.Join(dir, "runs"))
	if err != nil {
		t.Fatal(err)
	}
	reports, err := st.List(context.Background(), 0)
	if err != nil || len(reports) != 1 {
		t.Fatalf("List() = %d reports, %v; want 1", len(reports), err)
	}
	if err := run(t, "report", reports[0].ID); err != nil {
		t.Errorf("report error = %v", err)
	}
	if err := run(t, "report"); err != nil {
		t.Errorf("report list error = %v", err)
	}
}

func TestCommandErrors(t *testing.T) {
	path := sandbox(t)
	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing network", []string{"buffer_opt", filepath.Join(t.TempDir(), "none.json")}, errors.ErrCodeInvalidPath},
		{"missing library", []string{"buffer_opt", path, "--library", filepath.Join(t.TempDir(), "none.toml")}, errors.ErrCodeMissingLibrary},
		{"bad mode", []string{"buffer_opt", path, "-f", "8"}, errors.ErrCodeInvalidConfig},
		{"bad run id", []string{"report", "not-a-run"}, errors.ErrCodeInvalidInput},
		{"unknown run", []string{"report", "123e4567-e89b-42d3-a456-426614174000"}, errors.ErrCodeRunNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t, tt.args...)
			if got := errors.GetCode(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	path := sandbox(t)
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"unknown flag", []string{"buffer_opt", path, "--no-such-flag"}, ExitUsage},
		{"malformed mode", []string{"buffer_opt", path, "-f", "abc"}, ExitUsage},
		{"missing network argument", []string{"buffer_opt"}, ExitUsage},
		{"mode out of range", []string{"buffer_opt", path, "-f", "9"}, ExitUsage},
		{"extra argument", []string{"trace", path, "extra"}, ExitUsage},
		{"unknown command", []string{"bufer_opt", path}, ExitUsage},
		{"unknown shell", []string{"completion", "tcsh"}, ExitUsage},
		{"success", []string{"buffer_opt", path, "--no-cache"}, ExitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(t, tt.args...)
			if got := ExitCode(err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d (err %v)", got, tt.want, err)
			}
		})
	}

	t.Run("internal", func(t *testing.T) {
		if got := ExitCode(errors.New(errors.ErrCodeInternal, "boom")); got != ExitFailure {
			t.Errorf("ExitCode(internal) = %d, want %d", got, ExitFailure)
		}
	})
	t.Run("canceled", func(t *testing.T) {
		err := errors.Wrap(errors.ErrCodeInternal, context.Canceled, "sweep")
		if got := ExitCode(err); got != ExitCanceled {
			t.Errorf("ExitCode(canceled) = %d, want %d", got, ExitCanceled)
		}
	})
}

func TestCompletionCommand(t *testing.T) {
	for _, shell := range []string{"bash", "zsh", "fish", "powershell"} {
		t.Run(shell, func(t *testing.T) {
			root := New(&bytes.Buffer{}, log.WarnLevel).RootCommand()
			var out bytes.Buffer
			root.SetOut(&out)
			root.SetArgs([]string{"completion", shell})
			if err := root.Execute(); err != nil {
				t.Fatalf("completion %s error = %v", shell, err)
			}
			if !strings.Contains(out.String(), "bufferopt") {
				t.Errorf("completion %s output does not mention bufferopt", shell)
			}
		})
	}
}

func TestDotCommand(t *testing.T) {
	path := sandbox(t)
	out := filepath.Join(filepath.Dir(path), "fanout.dot")
	if err := run(t, "dot", path, "-o", out, "--detailed"); err != nil {
		t.Fatalf("dot error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph") {
		t.Errorf("output is not DOT: %.40s", data)
	}
}

func TestCacheClear(t *testing.T) {
	path := sandbox(t)
	if err := run(t, "buffer_opt", path); err != nil {
		t.Fatal(err)
	}
	if err := run(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error = %v", err)
	}
	dir, _ := cacheDir()
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cache dir still has %d entries", len(entries))
	}
}

func TestXDGDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")
	got, err := xdgDir("XDG_CACHE_HOME", ".cache")
	if err != nil || got != filepath.Join("/tmp/xdg", appName) {
		t.Errorf("xdgDir() = %q, %v", got, err)
	}

	t.Setenv("XDG_CACHE_HOME", "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err = xdgDir("XDG_CACHE_HOME", ".cache")
	if err != nil || got != filepath.Join(home, ".cache", appName) {
		t.Errorf("xdgDir() = %q, %v", got, err)
	}
}

func TestSortedKinds(t *testing.T) {
	got := sortedKinds(map[string]int{"repower": 2, "balanced": 1, "area": 0})
	if strings.Join(got, ",") != "balanced,repower" {
		t.Errorf("sortedKinds() = %v", got)
	}
}

func TestReportModel(t *testing.T) {
	rep := &store.Report{ID: "r", Network: "fanout", Mode: "repower", Stats: buffer.Stats{
		Events: []buffer.Event{
			{Sweep: 1, Kind: buffer.KindRepower, Node: "n"},
			{Sweep: 1, Kind: buffer.KindUnbalanced, Node: "n", Inserted: []string{"b1"}},
		},
	}}
	key := func(k tea.KeyType) tea.Msg { return tea.KeyMsg{Type: k} }
	step := func(m ReportModel, msg tea.Msg) (ReportModel, tea.Cmd) {
		next, cmd := m.Update(msg)
		return next.(ReportModel), cmd
	}

	m := NewReportModel(rep)
	m, _ = step(m, key(tea.KeyUp))
	if m.Cursor != 0 {
		t.Errorf("cursor moved above the first event: %d", m.Cursor)
	}
	m, _ = step(m, key(tea.KeyDown))
	m, _ = step(m, key(tea.KeyDown))
	if m.Cursor != 1 {
		t.Errorf("Cursor = %d, want 1", m.Cursor)
	}

	m, _ = step(m, key(tea.KeyEnter))
	if !m.Detailed || !strings.Contains(m.View(), "b1") {
		t.Error("enter should open the detail view of the selected event")
	}
	m, cmd := step(m, key(tea.KeyEsc))
	if m.Detailed || cmd != nil {
		t.Error("esc should close the detail view without quitting")
	}
	if _, cmd := step(m, key(tea.KeyEsc)); cmd == nil {
		t.Error("esc in the list should quit")
	}

	m, _ = step(m, tea.WindowSizeMsg{Height: 4})
	if m.Height != 5 {
		t.Errorf("Height = %d, want the minimum 5", m.Height)
	}
}

func TestReportModelEmpty(t *testing.T) {
	m := NewReportModel(&store.Report{ID: "r"})
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if next.(ReportModel).Detailed {
		t.Error("enter with no events should not open a detail view")
	}
	if !strings.Contains(m.View(), "no transforms") {
		t.Error("empty report should say so")
	}
}
