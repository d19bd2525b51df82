package imaging

import "github.com/pitrac/lm/internal/config"

// Camera is one camera's resolved intrinsics/extrinsics, built from
// config.CameraConfig at startup. It stays a plain value (no package-level
// camera registry), matching the rest of the module's no-global-state rule.
type Camera struct {
	FocalLengthMM  float64
	SensorWidthMM  float64
	SensorHeightMM float64
	ResolutionX    int
	ResolutionY    int

	PositionXMeters float64
	PositionYMeters float64
	PositionZMeters float64

	PanDeg  float64
	TiltDeg float64
}

// PixelsPerMM returns the camera's horizontal pixel density at the sensor
// plane, used throughout geometry's pixel<->world conversions.
func (c Camera) PixelsPerMM() float64 {
	if c.SensorWidthMM == 0 {
		return 0
	}
	return float64(c.ResolutionX) / c.SensorWidthMM
}

// CameraFromConfig resolves a config.CameraConfig into a Camera value.
func CameraFromConfig(c config.CameraConfig) Camera {
	return Camera{
		FocalLengthMM:   c.FocalLengthMM,
		SensorWidthMM:   c.SensorWidthMM,
		SensorHeightMM:  c.SensorHeightMM,
		ResolutionX:     c.ResolutionX,
		ResolutionY:     c.ResolutionY,
		PositionXMeters: c.PositionXMeters,
		PositionYMeters: c.PositionYMeters,
		PositionZMeters: c.PositionZMeters,
		PanDeg:          c.PanDeg,
		TiltDeg:         c.TiltDeg,
	}
}
