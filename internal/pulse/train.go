package pulse

import (
	"github.com/pitrac/lm/internal/config"
)

// Regime selects which named pulse train and on-pulse width a shot uses.
type Regime int

const (
	// RegimeDriver is the short-interval, geometric-growth train used for
	// full-swing shots.
	RegimeDriver Regime = iota
	// RegimePutter is the longer-interval train used for putts.
	RegimePutter
)

// Train is an ordered sequence of strobe off-durations plus the on-pulse
// width and baud rate used to realize them (spec.md §3 StrobePulseTrain).
type Train struct {
	OffDurationsMs []float64
	OnWidthBits    int
	BaudRate       int
}

// NewTrain selects the driver or putter pulse train from cfg and builds
// its Train description. It does not build the bitstream itself — see
// Build.
func NewTrain(cfg *config.Config, regime Regime) Train {
	switch regime {
	case RegimePutter:
		return Train{
			OffDurationsMs: cfg.Strobing.PulseVectorPutterMs,
			OnWidthBits:    cfg.Strobing.OnPulseBitsSlow,
			BaudRate:       cfg.Strobing.BaudSlow,
		}
	default:
		return Train{
			OffDurationsMs: cfg.Strobing.PulseVectorDriverMs,
			OnWidthBits:    cfg.Strobing.OnPulseBitsFast,
			BaudRate:       cfg.Strobing.BaudFast,
		}
	}
}

// wordSizeBits is the SPI word size the buffer is padded to; 16 matches
// the original implementation's kBitsPerWord.
const wordSizeBits = 16

// Build constructs the byte buffer for t, ready to stream to a digital
// output MSB-first at t.BaudRate.
func (t Train) Build() ([]byte, error) {
	return BuildBitstream(t.OffDurationsMs, t.OnWidthBits, t.BaudRate, wordSizeBits)
}

// TotalOnTimeSeconds returns the expected cumulative "on" time across
// every pulse in the train, in seconds — used to check the spec.md §8
// invariant that total high-time equals on_bits*pulses/baud*8.
func (t Train) TotalOnTimeSeconds() float64 {
	n := float64(len(t.OffDurationsMs))
	return n * float64(t.OnWidthBits) / float64(t.BaudRate) * 8
}

// PrimingTrain builds the short on-off sequence sent before the real shot
// to force the camera through its startup-frame states (spec.md §4.1,
// §10 "Priming and flush pulse sequences"). It reuses the same bitstream
// builder with a short, constant off-duration repeated count times.
func PrimingTrain(cfg *config.Config, count int, offDurationMs float64) Train {
	offs := make([]float64, count)
	for i := range offs {
		offs[i] = offDurationMs
	}
	return Train{
		OffDurationsMs: offs,
		OnWidthBits:    cfg.Strobing.OnPulseBitsFast,
		BaudRate:       cfg.Strobing.BaudFast,
	}
}

// FlushPulse builds a single short on/off pulse used after the real
// trigger to push a captured frame out of cameras that require it
// (spec.md §4.1 "final short flush pulse").
func FlushPulse(cfg *config.Config, offDurationMs float64) Train {
	return Train{
		OffDurationsMs: []float64{offDurationMs},
		OnWidthBits:    cfg.Strobing.OnPulseBitsFast,
		BaudRate:       cfg.Strobing.BaudFast,
	}
}
