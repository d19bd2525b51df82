package imaging

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pitrac/lm/internal/config"
)

func TestCameraFromConfigCopiesFields(t *testing.T) {
	cc := config.CameraConfig{FocalLengthMM: 6, SensorWidthMM: 6.3, ResolutionX: 1456, PositionXMeters: 0.35, PanDeg: 1.5}
	cam := CameraFromConfig(cc)
	assert.Equal(t, 6.0, cam.FocalLengthMM)
	assert.Equal(t, 0.35, cam.PositionXMeters)
	assert.Equal(t, 1.5, cam.PanDeg)
}

func TestRadiusPrefersEllipseMean(t *testing.T) {
	b := Ball{RadiusPx: 10, Ellipse: &Ellipse{RadiusX: 12, RadiusY: 8}}
	assert.Equal(t, 10.0, b.Radius())
}

func TestRadiusFallsBackToCircle(t *testing.T) {
	b := Ball{RadiusPx: 15}
	assert.Equal(t, 15.0, b.Radius())
}

func TestPixelDistanceFrom(t *testing.T) {
	a := Ball{CenterXPx: 0, CenterYPx: 0}
	b := Ball{CenterXPx: 3, CenterYPx: 4}
	assert.InDelta(t, 5.0, a.PixelDistanceFrom(b), 1e-9)
}

func TestRadiusChangePct(t *testing.T) {
	a := Ball{RadiusPx: 11}
	b := Ball{RadiusPx: 10}
	assert.InDelta(t, 10.0, a.RadiusChangePct(b), 1e-9)
}

func TestRadiusChangePctGuardsZero(t *testing.T) {
	a := Ball{RadiusPx: 11}
	b := Ball{RadiusPx: 0}
	assert.Equal(t, 0.0, a.RadiusChangePct(b))
}

func TestCameraPixelsPerMM(t *testing.T) {
	c := Camera{ResolutionX: 1456, SensorWidthMM: 6.3}
	assert.InDelta(t, 1456.0/6.3, c.PixelsPerMM(), 1e-6)
}

func TestCameraPixelsPerMMGuardsZeroSensor(t *testing.T) {
	c := Camera{ResolutionX: 1456}
	assert.Equal(t, 0.0, c.PixelsPerMM())
}
