// Package pipeline runs the load → optimize → report sequence shared by the
// CLI and the API server.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, reports, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Network: netJSON,
//	    Library: libTOML,
//	    Config:  buffer.DefaultConfig(),
//	})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Report.ID, res.Report.Stats.MetricAfter)
//
// Results are cached under a key derived from the content hashes of the
// network and library documents and the configuration, so repeated runs
// of the same input return the cached network without optimizing again.
package pipeline

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/bufferopt/pkg/buffer"
	"github.com/matzehuels/bufferopt/pkg/errors"
	"github.com/matzehuels/bufferopt/pkg/network"
	"github.com/matzehuels/bufferopt/pkg/store"
	"github.com/matzehuels/bufferopt/pkg/timing"
)

// Output formats accepted by [Runner.Render].
const (
	FormatDOT = "dot"
	FormatSVG = "svg"
)

// ValidFormats is the set of supported render formats.
var ValidFormats = map[string]bool{
	FormatDOT: true,
	FormatSVG: true,
}

// ValidateFormat checks that format is a render format.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidInput, "invalid format: %q (must be one of: dot, svg)", format)
	}
	return nil
}

// Options describes one pipeline run. Network and Library hold the raw
// documents so that cache keys follow their content.
type Options struct {
	// Network is the JSON network document.
	Network []byte `json:"network"`

	// Source names the network in logs; it defaults to the document name.
	Source string `json:"source,omitempty"`

	// Library is the TOML technology library. Empty means none.
	Library []byte `json:"library,omitempty"`

	Config buffer.Config `json:"config"`

	// Refresh bypasses the result cache lookup.
	Refresh bool `json:"refresh,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Validate checks required fields and the optimizer configuration.
func (o *Options) Validate() error {
	if len(o.Network) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "network document is required")
	}
	o.Config.SetDefaults()
	return o.Config.Validate()
}

// Result is the outcome of [Runner.Execute].
type Result struct {
	// Report summarizes the run. It has been saved when the runner has a
	// store.
	Report *store.Report

	// Network is the optimized network.
	Network *network.Network

	// Model is the delay model the network was optimized against.
	Model *timing.Model

	// Document is the JSON encoding of Network.
	Document []byte

	// Key is the result cache key.
	Key string

	CacheHit bool
}
