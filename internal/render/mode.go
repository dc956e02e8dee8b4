// Package render adapts what the visualization draws: it owns the
// discrete performance mode, the frame-rate sampler, viewport culling
// and the adaptive quality control loop.
package render

import "fmt"

// Mode is a discrete renderer-quality tier.
type Mode string

const (
	ModeStandard        Mode = "standard"
	ModeHighPerformance Mode = "high-performance"
	ModeUltra           Mode = "ultra"
)

// Node-count thresholds for automatic mode escalation.
const (
	highPerformanceNodeCount = 1000
	ultraNodeCount           = 5000
)

// ModeForNodeCount returns the mode the graph size calls for.
func ModeForNodeCount(n int) Mode {
	switch {
	case n > ultraNodeCount:
		return ModeUltra
	case n > highPerformanceNodeCount:
		return ModeHighPerformance
	default:
		return ModeStandard
	}
}

// ParseMode validates a mode name from config or an API request.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeStandard, ModeHighPerformance, ModeUltra:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown performance mode %q", s)
}

// Hints is the fixed bundle of renderer switches a mode maps to.
type Hints struct {
	TextureOnViewport    bool    `json:"texture_on_viewport"`
	HideEdgesOnViewport  bool    `json:"hide_edges_on_viewport"`
	HideLabelsOnViewport bool    `json:"hide_labels_on_viewport"`
	PixelRatio           float64 `json:"pixel_ratio"`
}

// Hints returns the renderer hints for the mode.
func (m Mode) Hints() Hints {
	switch m {
	case ModeUltra:
		return Hints{
			TextureOnViewport:    true,
			HideEdgesOnViewport:  true,
			HideLabelsOnViewport: true,
			PixelRatio:           1.0,
		}
	case ModeHighPerformance:
		return Hints{
			TextureOnViewport:    true,
			HideLabelsOnViewport: true,
			PixelRatio:           1.5,
		}
	default:
		return Hints{PixelRatio: 2.0}
	}
}

// rank orders modes for one-step escalation comparisons.
func (m Mode) rank() int {
	switch m {
	case ModeUltra:
		return 2
	case ModeHighPerformance:
		return 1
	default:
		return 0
	}
}

// Exceeds reports whether m is a more aggressive tier than other.
func (m Mode) Exceeds(other Mode) bool {
	return m.rank() > other.rank()
}
