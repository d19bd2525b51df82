// Package detector implements the ball detector pipeline (spec.md §4.2):
// colour mask, edge detection, radius narrowing, adaptive Hough search, and
// the best-circle refinement pass, per imaging regime.
package detector

import (
	"github.com/pitrac/lm/internal/config"
)

// Regime selects which detector tuning and pipeline variant to run
// (spec.md §4.2 "regime ∈ {PlacedBall, Strobed, ExternalStrobe, Putting}").
type Regime int

const (
	RegimePlacedBall Regime = iota
	RegimeStrobed
	RegimeExternalStrobe
	RegimePutting
)

func (r Regime) String() string {
	switch r {
	case RegimePlacedBall:
		return "PlacedBall"
	case RegimeStrobed:
		return "Strobed"
	case RegimeExternalStrobe:
		return "ExternalStrobe"
	case RegimePutting:
		return "Putting"
	default:
		return "Unknown"
	}
}

// houghConfigFor returns the per-regime Hough/Canny tuning. ExternalStrobe
// shares Strobed's tuning but additionally runs line suppression (spec.md
// §4.2 step 2).
func houghConfigFor(cfg *config.Config, regime Regime) config.RegimeHoughConfig {
	switch regime {
	case RegimePlacedBall:
		return cfg.BallID.Placed
	case RegimePutting:
		return cfg.BallID.Putting
	default:
		return cfg.BallID.Strobed
	}
}
