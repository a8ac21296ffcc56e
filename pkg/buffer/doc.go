// Package buffer implements timing-driven buffer insertion and fanout
// restructuring on a mapped or unmapped logic network.
//
// # Overview
//
// A [Session] owns one optimization run. It validates the [Config], builds
// the [Catalog] of buffering cells, attaches a [StateTable] to the network
// and keeps the current delay trace:
//
//	sess, err := buffer.NewSession(net, model, cfg, buffer.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//	stats, err := sess.Optimize(ctx)
//
// Configuration problems (an invalid mode, a mapped model without a usable
// library, an unknown node in the scope list) are reported by [NewSession]
// before the network is touched.
//
// # Driver
//
// [Session.Optimize] runs sweeps. Each sweep clears the node states, picks
// the criticality threshold from the worst output slack and scans nodes from
// inputs to outputs. Every node within the threshold is packaged as a
// [Problem] by [Session.Classify], given a budget by [Session.Target] and
// handed to [Session.Restructure]. A committed change restarts the scan.
// After the scan, [Session.RecoverArea] downsizes gates that have slack to
// spare. Sweeps stop when nothing changes or the metric stops improving.
//
// # Transforms
//
// The engine tries, in order:
//
//   - Repower: every library variant of the node and its companion inverter.
//   - Unbalanced split: the least critical fanouts move behind one buffer,
//     the negative-phase fanouts optionally behind a second cell.
//   - Balanced split: fanouts are spread over several inverters.
//   - Duplication: the node is copied and the fanouts shared (only with
//     AllowDecompose).
//
// Among the candidates of one transform the least-area candidate meeting the
// target wins; failing that the one with the best worst-rail required time.
// No candidate is accepted that leaves the node's required time worse than
// before. New branches with more than FanoutLimit fanouts are restructured
// recursively.
//
// # Max load
//
// With MaxLoadOnly set, [Session.EnforceMaxLoad] is the only pass: nodes
// driving more than their cell's max load have fanouts moved behind buffers.
package buffer
