// Package timing implements the delay model and static delay trace used by
// the buffering optimizer.
//
// A [Model] answers "what does pin i of this node look like" from a
// technology library, falling back to a unit-fanout characterization for
// unmapped logic. [Run] computes a [Trace]: loads, arrival times in input
// to output order, and required times in the reverse order.
//
// Delays are linear in load: a stage contributes block + drive*load on each
// rail, with the rail mapping chosen by the pin phase.
package timing
