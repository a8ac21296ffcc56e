// Package network provides the combinational logic network the optimizer
// rewrites.
//
// # Overview
//
// A [Network] is an arena of [Node] values addressed by [NodeID]. Each node
// has an ordered list of fanins (its input pins) and a list of [Fanout]
// edges. The two views are kept consistent by every mutation, so the
// buffering engine can move edges around with [Network.PatchPin] without
// ever holding dangling references.
//
//	net := network.New("adder")
//	a, _ := net.AddInput("a")
//	g, _ := net.AddNode(network.Node{Name: "g", Func: network.FuncLogic, Gate: "nand2"}, a, a)
//	net.AddOutput("out", g)
//
// # Lifecycle Hooks
//
// Optimizer side tables register an [Observer] to allocate and release
// per-node records as nodes are created and deleted.
//
// # Snapshots
//
// [Network.Snapshot] and [Network.Restore] give the optimizer a cheap undo
// around a speculative rewrite. [Network.Revision] increases on every
// mutation and is used to detect "changed" reports with no actual change.
//
// # Concurrency
//
// Networks are not safe for concurrent use.
package network
