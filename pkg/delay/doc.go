// Package delay provides the paired rise/fall timing arithmetic used by the
// buffering engine.
//
// # Overview
//
// Every timing quantity in the optimizer is a [Time]: one value for the rising
// output transition and one for the falling transition. Stages are described
// by a block delay (load independent), a drive coefficient (delay per unit of
// load) and a [Phase] that says which input rail feeds which output rail.
//
// # Required Times
//
// Required times flow backward. [Subtract] moves a required time from a
// stage's output to its input, and [DriveAdjust] charges the upstream stage
// for the load a candidate presents. Larger required times are better:
//
//	req := delay.Subtract(delay.PhaseNonInverting, block, drive, 2.0, delay.Uniform(8))
//	req = delay.DriveAdjust(prevDrive, 1.0, req)
//
// # Comparisons
//
// [Improved] demands a strict gain on both rails, [Equal] compares within
// [Epsilon], and [Meets] checks a candidate against a target.
package delay
