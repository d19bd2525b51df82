package exposure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/imaging"
)

func ballAt(x, y, radius float64, quality int) imaging.Ball {
	return imaging.Ball{CenterXPx: x, CenterYPx: y, RadiusPx: radius, Quality: quality}
}

func TestSelectFallbackWithTwoBalls(t *testing.T) {
	cfg := config.Default()
	sel := New(cfg)

	raw := []imaging.Ball{
		ballAt(100, 100, 20, 0),
		ballAt(150, 100, 20, 1),
	}
	result, err := sel.Select(raw, RegimeStandard, 125, 100, cfg.Strobing.PulseVectorDriverMs)
	require.NoError(t, err)
	require.Len(t, result.Balls, 2)
	assert.Equal(t, cfg.Strobing.PulseVectorDriverMs[0], result.IntervalsMs[1])
}

func TestSelectFallbackWithTwoBallsPuttingUsesLastPulse(t *testing.T) {
	cfg := config.Default()
	sel := New(cfg)

	raw := []imaging.Ball{
		ballAt(100, 100, 20, 0),
		ballAt(150, 100, 20, 1),
	}
	pulses := cfg.Strobing.PulseVectorPutterMs
	result, err := sel.Select(raw, RegimePutting, 125, 100, pulses)
	require.NoError(t, err)
	require.Len(t, result.Balls, 2)
	assert.Equal(t, pulses[len(pulses)-1], result.IntervalsMs[1])
}

func TestSelectAssignsGeometricIntervals(t *testing.T) {
	cfg := config.Default()
	sel := New(cfg)

	pulses := cfg.Strobing.PulseVectorDriverMs // {3, 4.5, 6.75, 10.1, 15.2}
	x := 0.0
	raw := make([]imaging.Ball, 0, 5)
	for i, q := range []int{0, 1, 2, 3, 4} {
		raw = append(raw, ballAt(x, 100, 20, q))
		if i < len(pulses) {
			x += pulses[i] * 20 // scale intervals into a pixel-distance-like spacing
		}
	}

	result, err := sel.Select(raw, RegimeStandard, x/2, 100, pulses)
	require.NoError(t, err)
	require.Len(t, result.Balls, 5)
	assert.Len(t, result.IntervalsMs, 5)
}

func TestPerpendicularDistanceOnLineIsZero(t *testing.T) {
	a := ballAt(0, 0, 10, 0)
	b := ballAt(100, 0, 10, 1)
	p := ballAt(50, 0, 10, 2)
	assert.InDelta(t, 0, perpendicularDistance(p, a, b), 1e-9)
}

func TestPerpendicularDistanceOffLine(t *testing.T) {
	a := ballAt(0, 0, 10, 0)
	b := ballAt(100, 0, 10, 1)
	p := ballAt(50, 10, 10, 2)
	assert.InDelta(t, 10, perpendicularDistance(p, a, b), 1e-9)
}

func TestRemoveOverlappingBallsDropsStrictOverlap(t *testing.T) {
	cfg := config.Default()
	sel := New(cfg)

	cands := []Candidate{
		{Ball: ballAt(0, 0, 20, 0), IsAnchor: true},
		{Ball: ballAt(200, 0, 20, 1), IsAnchor: true},
		{Ball: ballAt(100, 0, 20, 2)},
		{Ball: ballAt(105, 0, 20, 3)}, // near-total overlap with the previous
	}
	kept := sel.removeOverlappingBalls(cands)
	for _, c := range kept {
		for _, other := range kept {
			if c.Ball == other.Ball {
				continue
			}
			threshold := (1 - cfg.Exposure.OverlapMarginPct) * (c.Ball.Radius() + other.Ball.Radius())
			assert.GreaterOrEqual(t, c.Ball.PixelDistanceFrom(other.Ball), threshold)
		}
	}
}

func TestCollapseIntervalsSumsAdjacentPulses(t *testing.T) {
	pulses := []float64{3, 4.5, 6.75, 10.1, 15.2}
	collapsed := collapseIntervals(pulses, 1, 1)
	require.Len(t, collapsed, 4)
	assert.InDelta(t, 3, collapsed[0], 1e-9)
	assert.InDelta(t, 4.5+6.75, collapsed[1], 1e-9)
	assert.InDelta(t, 10.1, collapsed[2], 1e-9)
	assert.InDelta(t, 15.2, collapsed[3], 1e-9)
}

func TestAssignFaceAndPairPicksClosestToCenter(t *testing.T) {
	cfg := config.Default()
	sel := New(cfg)
	result := Result{Balls: []imaging.Ball{
		ballAt(0, 0, 10, 0),
		ballAt(50, 0, 10, 1),
		ballAt(100, 0, 10, 2),
	}}
	sel.assignFaceAndPair(&result, 48, 0)
	assert.Equal(t, 1, result.FaceBallIdx)
}
