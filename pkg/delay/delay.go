package delay

import (
	"fmt"
	"math"
)

// Epsilon is the tolerance used by every timing comparison in the optimizer.
const Epsilon = 1e-6

// Sentinel magnitudes for required and arrival times.
var (
	// PosInf is the required time of a signal with no downstream constraint.
	PosInf = Time{Rise: math.Inf(1), Fall: math.Inf(1)}

	// NegInf is the arrival time of a signal that has not been reached yet.
	NegInf = Time{Rise: math.Inf(-1), Fall: math.Inf(-1)}

	// VeryNegative is the starting point of every best-candidate search. Any
	// finite candidate beats it, and it is finite so arithmetic stays defined.
	VeryNegative = Time{Rise: -1e30, Fall: -1e30}
)

// Time is a pair of worst-case timing values, one per output transition.
// It is used for arrival times, required times, slacks, block delays and
// drive coefficients alike. Time is an immutable value type.
type Time struct {
	Rise float64 `json:"rise" toml:"rise" bson:"rise"`
	Fall float64 `json:"fall" toml:"fall" bson:"fall"`
}

// Uniform returns a Time with the same value on both rails.
func Uniform(v float64) Time { return Time{Rise: v, Fall: v} }

// Add returns the componentwise sum of t and o.
func (t Time) Add(o Time) Time { return Time{Rise: t.Rise + o.Rise, Fall: t.Fall + o.Fall} }

// Sub returns the componentwise difference t - o.
func (t Time) Sub(o Time) Time { return Time{Rise: t.Rise - o.Rise, Fall: t.Fall - o.Fall} }

// Scale multiplies both rails by k.
func (t Time) Scale(k float64) Time { return Time{Rise: t.Rise * k, Fall: t.Fall * k} }

// Neg returns the componentwise negation of t.
func (t Time) Neg() Time { return Time{Rise: -t.Rise, Fall: -t.Fall} }

// Swap exchanges the rise and fall rails.
func (t Time) Swap() Time { return Time{Rise: t.Fall, Fall: t.Rise} }

// Worst returns the smaller of the two rails. For required times and slacks
// this is the binding constraint.
func (t Time) Worst() float64 { return math.Min(t.Rise, t.Fall) }

// Max returns the larger of the two rails.
func (t Time) Max() float64 { return math.Max(t.Rise, t.Fall) }

// ClampZero replaces negative rails with zero.
func (t Time) ClampZero() Time {
	return Time{Rise: math.Max(t.Rise, 0), Fall: math.Max(t.Fall, 0)}
}

// IsInf reports whether either rail is infinite.
func (t Time) IsInf() bool { return math.IsInf(t.Rise, 0) || math.IsInf(t.Fall, 0) }

func (t Time) String() string {
	return fmt.Sprintf("(%.4g,%.4g)", t.Rise, t.Fall)
}

// Min returns the componentwise minimum of a and b.
func Min(a, b Time) Time {
	return Time{Rise: math.Min(a.Rise, b.Rise), Fall: math.Min(a.Fall, b.Fall)}
}

// Max returns the componentwise maximum of a and b.
func Max(a, b Time) Time {
	return Time{Rise: math.Max(a.Rise, b.Rise), Fall: math.Max(a.Fall, b.Fall)}
}

// Improved reports whether a is strictly better than b on both rails.
// Required-time semantics apply: larger is better.
func Improved(a, b Time) bool {
	return a.Rise > b.Rise+Epsilon && a.Fall > b.Fall+Epsilon
}

// Equal reports whether a and b agree on both rails within Epsilon.
func Equal(a, b Time) bool {
	return math.Abs(a.Rise-b.Rise) < Epsilon && math.Abs(a.Fall-b.Fall) < Epsilon
}

// Meets reports whether a is at least b on both rails, within Epsilon.
func Meets(a, b Time) bool {
	return a.Rise >= b.Rise-Epsilon && a.Fall >= b.Fall-Epsilon
}
