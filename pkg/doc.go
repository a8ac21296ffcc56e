// Package pkg provides the libraries behind bufferopt, a timing-driven
// buffer insertion and fanout restructuring optimizer for logic networks.
//
// # Overview
//
// The pkg directory is organized into three areas:
//
//  1. Domain: [delay], [library], [network], [timing] and [buffer]
//  2. Infrastructure: [cache], [store], [observability] and [errors]
//  3. Surfaces: [netio], [render], [pipeline] and [api]
//
// # Architecture
//
// The typical data flow:
//
//	network JSON + library TOML
//	         ↓
//	    [netio] / [library] (parse)
//	         ↓
//	    [timing] (arrival, required and slack per node)
//	         ↓
//	    [buffer] (sweeps of repower, split and duplication transforms)
//	         ↓
//	    [netio] / [render] (JSON, DOT or SVG output)
//
// [pipeline] wires these stages together with result caching and run
// reports; the CLI and the HTTP [api] are thin layers over it.
//
// # Quick Start
//
//	net, _ := netio.ImportJSON("examples/fanout.json")
//	lib, _ := library.Load("examples/tiny.toml")
//
//	sess, _ := buffer.NewSession(net, timing.NewModel(lib, 0), buffer.DefaultConfig())
//	defer sess.Close()
//	stats, _ := sess.Optimize(ctx)
//
//	_ = netio.ExportJSON(net, "out.json")
//
// [delay]: github.com/matzehuels/bufferopt/pkg/delay
// [library]: github.com/matzehuels/bufferopt/pkg/library
// [network]: github.com/matzehuels/bufferopt/pkg/network
// [timing]: github.com/matzehuels/bufferopt/pkg/timing
// [buffer]: github.com/matzehuels/bufferopt/pkg/buffer
// [cache]: github.com/matzehuels/bufferopt/pkg/cache
// [store]: github.com/matzehuels/bufferopt/pkg/store
// [observability]: github.com/matzehuels/bufferopt/pkg/observability
// [errors]: github.com/matzehuels/bufferopt/pkg/errors
// [netio]: github.com/matzehuels/bufferopt/pkg/netio
// [render]: github.com/matzehuels/bufferopt/pkg/render
// [pipeline]: github.com/matzehuels/bufferopt/pkg/pipeline
// [api]: github.com/matzehuels/bufferopt/pkg/api
package pkg
