package buffer

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/bufferopt/pkg/errors"
)

// Mode selects which transforms the engine may apply.
type Mode uint8

const (
	// ModeRepower resizes the node and its companion inverter (trans1).
	ModeRepower Mode = 1 << iota
	// ModeUnbalanced inserts a two-branch buffer split (trans3).
	ModeUnbalanced
	// ModeBalanced inserts a multi-way inverter tree (trans2).
	ModeBalanced

	// ModeAll enables every transform.
	ModeAll = ModeRepower | ModeUnbalanced | ModeBalanced
)

// Has reports whether every bit of f is set.
func (m Mode) Has(f Mode) bool { return m&f == f }

func (m Mode) String() string {
	var parts []string
	if m.Has(ModeRepower) {
		parts = append(parts, "repower")
	}
	if m.Has(ModeUnbalanced) {
		parts = append(parts, "unbalanced")
	}
	if m.Has(ModeBalanced) {
		parts = append(parts, "balanced")
	}
	if len(parts) == 0 {
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
	return strings.Join(parts, "+")
}

// Default configuration values.
const (
	DefaultFanoutLimit = 2
	DefaultThreshold   = 0.5
	DefaultMaxSweeps   = 100
)

// Config holds the session-wide optimizer parameters. It is read-only while
// a [Session] runs.
type Config struct {
	// Mode is the transform bitmask; see [Mode].
	Mode Mode `toml:"mode" json:"mode"`

	// AllowDecompose enables the node duplication fallback.
	AllowDecompose bool `toml:"allow_decompose" json:"allow_decompose"`

	// FanoutLimit is the fanout count at or below which a newly inserted
	// branch is not restructured further.
	FanoutLimit int `toml:"fanout_limit" json:"fanout_limit"`

	// MinReqDiff is the least required-time spread between the most and
	// least critical fanout that justifies the unbalanced search. Zero uses
	// the catalog's smallest buffer block delay.
	MinReqDiff float64 `toml:"min_req_diff" json:"min_req_diff"`

	// SinglePass stops after the first sweep instead of iterating until the
	// performance metric stops improving.
	SinglePass bool `toml:"single_pass" json:"single_pass"`

	// DebugLevel raises log verbosity; above 1 every candidate is logged.
	DebugLevel int `toml:"debug_level" json:"debug_level"`

	// Interactive enables the fanin safety check on partial improvements.
	Interactive bool `toml:"interactive" json:"interactive"`

	// Threshold widens the critical region: nodes with slack within
	// Threshold of the worst output slack are scanned.
	Threshold float64 `toml:"threshold" json:"threshold"`

	// UseMappedModel requires technology-library cells even when the
	// network is not fully mapped.
	UseMappedModel bool `toml:"use_mapped_model" json:"use_mapped_model"`

	// MaxLoadOnly runs only the max-load enforcement pass.
	MaxLoadOnly bool `toml:"max_load_only" json:"max_load_only"`

	// Trace logs one line per committed transform.
	Trace bool `toml:"trace" json:"trace"`

	// RejectLoadViolations rejects candidates whose cells would drive more
	// than their max load. When false violations are only counted.
	RejectLoadViolations bool `toml:"reject_load_violations" json:"reject_load_violations"`

	// MaxSweeps caps the number of sweeps.
	MaxSweeps int `toml:"max_sweeps" json:"max_sweeps"`

	// WireLoad is the routing load added per fanout edge.
	WireLoad float64 `toml:"wire_load" json:"wire_load"`

	// Nodes restricts the scan to the named nodes. Empty means all nodes.
	Nodes []string `toml:"nodes" json:"nodes,omitempty"`
}

// DefaultConfig returns the configuration used when nothing is specified.
func DefaultConfig() Config {
	return Config{
		Mode:        ModeAll,
		FanoutLimit: DefaultFanoutLimit,
		Threshold:   DefaultThreshold,
		MaxSweeps:   DefaultMaxSweeps,
	}
}

// SetDefaults fills zero-valued limits. Mode is left alone so that an
// explicit zero mode is still rejected by Validate.
func (c *Config) SetDefaults() {
	if c.FanoutLimit == 0 {
		c.FanoutLimit = DefaultFanoutLimit
	}
	if c.MaxSweeps == 0 {
		c.MaxSweeps = DefaultMaxSweeps
	}
}

// Validate checks the configuration. All errors carry
// errors.ErrCodeInvalidConfig.
func (c Config) Validate() error {
	if err := errors.ValidateMode(int(c.Mode)); err != nil {
		return err
	}
	if c.FanoutLimit < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "fanout limit must not be negative: %d", c.FanoutLimit)
	}
	if c.Threshold < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "threshold must not be negative: %g", c.Threshold)
	}
	if c.MinReqDiff < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "min_req_diff must not be negative: %g", c.MinReqDiff)
	}
	if c.WireLoad < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "wire load must not be negative: %g", c.WireLoad)
	}
	if c.MaxSweeps < 1 {
		return errors.New(errors.ErrCodeInvalidConfig, "max_sweeps must be positive: %d", c.MaxSweeps)
	}
	for _, name := range c.Nodes {
		if err := errors.ValidateNodeName(name); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidConfig, err, "node list")
		}
	}
	return nil
}

// LoadConfig reads a TOML config file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read %s", path)
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return cfg, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return cfg, errors.New(errors.ErrCodeInvalidConfig, "unknown config key %q in %s", undecoded[0].String(), path)
	}
	return cfg, cfg.Validate()
}
