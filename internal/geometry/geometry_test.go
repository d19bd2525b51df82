package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitrac/lm/internal/imaging"
)

func testCamera() imaging.Camera {
	return imaging.Camera{
		FocalLengthMM:  6,
		SensorWidthMM:  6.3,
		SensorHeightMM: 4.7,
		ResolutionX:    1456,
		ResolutionY:    1088,
	}
}

func TestDistanceRadiusRoundTrip(t *testing.T) {
	cam := testCamera()
	const ballRadiusM = 0.02135

	wantDistance := 0.5
	r := RadiusFromDistance(cam, wantDistance, ballRadiusM)
	b := imaging.Ball{RadiusPx: r}

	gotDistance := DistanceFromRadius(cam, b, ballRadiusM)
	assert.InEpsilon(t, wantDistance, gotDistance, 0.005)
}

func TestPixelToWorldAtImageCenterIsOnAxis(t *testing.T) {
	cam := testCamera()
	b := imaging.Ball{CenterXPx: float64(cam.ResolutionX) / 2, CenterYPx: float64(cam.ResolutionY) / 2}

	wp := PixelToWorld(cam, b, 0.5)
	assert.InDelta(t, 0, wp.X, 1e-9)
	assert.InDelta(t, 0, wp.Y, 1e-9)
	assert.InDelta(t, 0.5, wp.Z, 1e-9)
}

func TestHorizontalLaunchAngle(t *testing.T) {
	d := Delta{DX: 1, DZ: 1}
	assert.InDelta(t, 45.0, HorizontalLaunchAngleDeg(d), 1e-9)
}

func TestVerticalLaunchAngle(t *testing.T) {
	d := Delta{DY: 1, DZ: 1}
	assert.InDelta(t, 45.0, VerticalLaunchAngleDeg(d), 1e-9)
}

func TestVelocityMPS(t *testing.T) {
	d := Delta{DX: 3, DY: 4, DZ: 0}
	assert.InDelta(t, 5.0, VelocityMPS(d, 1.0), 1e-9)
}

func TestVelocityGuardsZeroDeltaT(t *testing.T) {
	d := Delta{DX: 3, DY: 4, DZ: 0}
	assert.Equal(t, 0.0, VelocityMPS(d, 0))
}

func TestCalibrateFocalLengthRecoversKnownFocalLength(t *testing.T) {
	cam := testCamera()
	const ballRadiusM = 0.02135
	const knownDistance = 1.0

	r := RadiusFromDistance(cam, knownDistance, ballRadiusM)
	b := imaging.Ball{RadiusPx: r}

	got := CalibrateFocalLength(cam, b, ballRadiusM, knownDistance)
	assert.InEpsilon(t, cam.FocalLengthMM, got, 0.01)
}

func TestTwoBallDeltaAppliesCoordinateSwap(t *testing.T) {
	from := WorldPoint{X: 0, Y: 0, Z: 1}
	to := WorldPoint{X: 0.1, Y: 0.05, Z: 1}

	d := TwoBallDelta(from, to, nil)
	// ball-x = -camera-z, so DX should reflect the negated Z difference (0 here).
	assert.InDelta(t, 0, d.DX, 1e-9)
	assert.InDelta(t, 0.05, d.DY, 1e-9)
	assert.InDelta(t, 0.1, d.DZ, 1e-9)
}

func TestTwoBallDeltaAppliesCrossCameraOffset(t *testing.T) {
	from := WorldPoint{}
	to := WorldPoint{}
	offset := WorldPoint{X: 0.35}

	d := TwoBallDelta(from, to, &offset)
	assert.InDelta(t, 0.35, d.DX, 1e-9)
}
