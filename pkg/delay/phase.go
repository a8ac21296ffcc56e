package delay

import (
	"fmt"
	"strings"
)

// Phase describes how a stage maps input transitions to output transitions.
type Phase int

const (
	// PhaseUnknown marks an edge whose polarity has not been characterized.
	PhaseUnknown Phase = iota
	// PhaseInverting maps a rising input to a falling output.
	PhaseInverting
	// PhaseNonInverting preserves the input transition.
	PhaseNonInverting
	// PhaseBinate depends on the input pattern; both mappings are possible.
	PhaseBinate
)

var phaseNames = map[Phase]string{
	PhaseUnknown:      "unknown",
	PhaseInverting:    "inv",
	PhaseNonInverting: "noninv",
	PhaseBinate:       "binate",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// ParsePhase converts a textual phase into a Phase. The empty string maps to
// PhaseUnknown.
func ParsePhase(s string) (Phase, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "unknown":
		return PhaseUnknown, nil
	case "inv", "inverting", "neg":
		return PhaseInverting, nil
	case "noninv", "noninverting", "non-inverting", "pos":
		return PhaseNonInverting, nil
	case "binate", "both":
		return PhaseBinate, nil
	}
	return PhaseUnknown, fmt.Errorf("unknown phase %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Stage returns the delay of one stage driving load, before the phase
// mapping is applied: block + drive*load on each rail.
func Stage(block, drive Time, load float64) Time {
	return block.Add(drive.Scale(load))
}

// Subtract propagates the required time req backward through one stage with
// the given phase, block delay and drive, loaded by load.
//
// For a non-inverting stage each rail is reduced by its own stage delay. For
// an inverting stage the output rise constrains the input fall and vice
// versa. A binate stage takes the componentwise minimum of both mappings.
// Unknown phase leaves req untouched.
func Subtract(phase Phase, block, drive Time, load float64, req Time) Time {
	d := Stage(block, drive, load)
	switch phase {
	case PhaseNonInverting:
		return req.Sub(d)
	case PhaseInverting:
		return req.Sub(d).Swap()
	case PhaseBinate:
		return Min(req.Sub(d), req.Sub(d).Swap())
	}
	return req
}

// Propagate computes the output arrival of one stage from the input arrival.
// It is the forward counterpart of Subtract.
func Propagate(phase Phase, block, drive Time, load float64, arr Time) Time {
	d := Stage(block, drive, load)
	switch phase {
	case PhaseNonInverting:
		return arr.Add(d)
	case PhaseInverting:
		return arr.Swap().Add(d)
	case PhaseBinate:
		worst := Uniform(arr.Max())
		return worst.Add(d)
	}
	return arr
}

// DriveAdjust charges the stage feeding a pin for the load that pin presents:
// req - prev*load on each rail.
func DriveAdjust(prev Time, load float64, req Time) Time {
	return req.Sub(prev.Scale(load))
}
