package heuristic

import "fmt"

// Weights scales each evaluator feature.
type Weights struct {
	Empty  float64 `json:"empty" yaml:"empty" mapstructure:"empty"`
	Smooth float64 `json:"smooth" yaml:"smooth" mapstructure:"smooth"`
	Mono   float64 `json:"mono" yaml:"mono" mapstructure:"mono"`
	Max    float64 `json:"max" yaml:"max" mapstructure:"max"`
}

// DefaultWeights are the coefficients the web player ships with.
var DefaultWeights = Weights{
	Empty:  3.0,
	Smooth: 1.0,
	Mono:   1.5,
	Max:    0.1,
}

// Wire weight keys, as sent by clients of the remote search.
const (
	WireMonotonic  = "monotonic"
	WireSmoothness = "smoothness"
	WireFreeTiles  = "free_tiles"
	WireMerges     = "merges"
)

// FromWire maps the wire weight vector onto evaluator weights. "merges" is
// the slot clients use for the max-tile nudge. Missing keys keep defaults.
func FromWire(m map[string]float64) Weights {
	w := DefaultWeights
	if v, ok := m[WireMonotonic]; ok {
		w.Mono = v
	}
	if v, ok := m[WireSmoothness]; ok {
		w.Smooth = v
	}
	if v, ok := m[WireFreeTiles]; ok {
		w.Empty = v
	}
	if v, ok := m[WireMerges]; ok {
		w.Max = v
	}
	return w
}

// Wire is the inverse of FromWire.
func (w Weights) Wire() map[string]float64 {
	return map[string]float64{
		WireMonotonic:  w.Mono,
		WireSmoothness: w.Smooth,
		WireFreeTiles:  w.Empty,
		WireMerges:     w.Max,
	}
}

func (w Weights) String() string {
	return fmt.Sprintf("empty=%.2f smooth=%.2f mono=%.2f max=%.2f",
		w.Empty, w.Smooth, w.Mono, w.Max)
}

// Set changes one weight by name. Both the evaluator names and the wire
// names are accepted.
func (w *Weights) Set(name string, v float64) error {
	switch name {
	case "empty", WireFreeTiles:
		w.Empty = v
	case "smooth", WireSmoothness:
		w.Smooth = v
	case "mono", WireMonotonic:
		w.Mono = v
	case "max", WireMerges:
		w.Max = v
	default:
		return fmt.Errorf("unknown weight %q", name)
	}
	return nil
}
