package buffer

import (
	"maps"
	"slices"
)

// Transform kinds reported in Stats and events.
const (
	KindRepower      = "repower"
	KindUnbalanced   = "unbalanced"
	KindBalanced     = "balanced"
	KindDuplicate    = "duplicate"
	KindMaxLoad      = "maxload"
	KindAreaRecovery = "area"
)

// Event is one committed transform.
type Event struct {
	Sweep    int      `json:"sweep" bson:"sweep"`
	Kind     string   `json:"kind" bson:"kind"`
	Node     string   `json:"node" bson:"node"`
	Level    int      `json:"level" bson:"level"`
	Gain     float64  `json:"gain" bson:"gain"`
	Area     float64  `json:"area" bson:"area"`
	Inserted []string `json:"inserted,omitempty" bson:"inserted,omitempty"`
}

// Stats summarizes a session.
type Stats struct {
	Sweeps         int            `json:"sweeps" bson:"sweeps"`
	Transforms     map[string]int `json:"transforms" bson:"transforms"`
	Inserted       int            `json:"inserted" bson:"inserted"`
	Deleted        int            `json:"deleted" bson:"deleted"`
	Resized        int            `json:"resized" bson:"resized"`
	LoadViolations int            `json:"load_violations" bson:"load_violations"`
	MaxLevel       int            `json:"max_level" bson:"max_level"`
	Constrained    bool           `json:"constrained" bson:"constrained"`
	AreaBefore     float64        `json:"area_before" bson:"area_before"`
	AreaAfter      float64        `json:"area_after" bson:"area_after"`
	MetricBefore   float64        `json:"metric_before" bson:"metric_before"`
	MetricAfter    float64        `json:"metric_after" bson:"metric_after"`
	Events         []Event        `json:"events,omitempty" bson:"events,omitempty"`
}

func newStats() Stats {
	return Stats{Transforms: make(map[string]int)}
}

func (st Stats) clone() Stats {
	st.Transforms = maps.Clone(st.Transforms)
	st.Events = slices.Clone(st.Events)
	return st
}

// Changes returns the total number of committed transforms.
func (st Stats) Changes() int {
	total := 0
	for _, n := range st.Transforms {
		total += n
	}
	return total
}
