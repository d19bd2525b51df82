// Package geometry converts between pixel-space ball measurements and
// world-space position/angles/velocity (spec.md §4.3).
package geometry

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pitrac/lm/internal/imaging"
)

// DistanceFromRadius implements spec.md §4.3's "Distance from radius":
// d = (resolution_x / (2·r_px)) · (2·R_ball) · (focal_length / sensor_width).
// When b carries an ellipse, the effective sensor width is widened by the
// ellipse's aspect ratio projected through its angle, approximating the
// foreshortening a tilted ball view introduces.
func DistanceFromRadius(cam imaging.Camera, b imaging.Ball, ballRadiusM float64) float64 {
	if b.Radius() <= 0 {
		return 0
	}
	sensorWidth := effectiveSensorWidth(cam, b)
	return (float64(cam.ResolutionX) / (2 * b.Radius())) * (2 * ballRadiusM) * (cam.FocalLengthMM / sensorWidth)
}

// effectiveSensorWidth substitutes an ellipse-aware sensor width when b was
// measured as an ellipse rather than a circle (spec.md §4.3).
func effectiveSensorWidth(cam imaging.Camera, b imaging.Ball) float64 {
	if b.Ellipse == nil || b.Ellipse.RadiusX <= 0 {
		return cam.SensorWidthMM
	}
	aspect := b.Ellipse.RadiusY / b.Ellipse.RadiusX
	angleRad := b.Ellipse.AngleDeg * math.Pi / 180
	foreshorten := 1 + (1-aspect)*math.Abs(math.Cos(angleRad))
	return cam.SensorWidthMM * foreshorten
}

// RadiusFromDistance is the inverse of DistanceFromRadius, holding camera
// intrinsics fixed; used by the calibration routine and the distance round
// trip test (spec.md §8).
func RadiusFromDistance(cam imaging.Camera, distanceM, ballRadiusM float64) float64 {
	if distanceM <= 0 {
		return 0
	}
	return (float64(cam.ResolutionX) * ballRadiusM * cam.FocalLengthMM) / (distanceM * cam.SensorWidthMM)
}

// WorldPoint is a ball position in the launch-monitor world frame, metres.
type WorldPoint struct {
	X, Y, Z float64
}

// PixelToWorld implements spec.md §4.3's orthographic reprojection:
// translate the pixel offset from image centre to metres at the computed
// distance, rotate it about the Z axis by the camera twist (pan·sin(tilt)),
// and add the camera position to land in the launch-monitor world frame.
// No separate pan or tilt rotation and no polar-to-Cartesian step is
// applied.
func PixelToWorld(cam imaging.Camera, b imaging.Ball, distanceM float64) WorldPoint {
	pxPerMM := cam.PixelsPerMM()
	if pxPerMM == 0 {
		return WorldPoint{}
	}
	mmPerPx := 1 / pxPerMM

	dxPx := b.CenterXPx - float64(cam.ResolutionX)/2
	dyPx := b.CenterYPx - float64(cam.ResolutionY)/2

	localX := dxPx * mmPerPx / 1000
	localY := -dyPx * mmPerPx / 1000
	localZ := distanceM

	twistRad := cam.PanDeg * math.Pi / 180 * math.Sin(cam.TiltDeg*math.Pi/180)
	rotated := rotateZ(localX, localY, localZ, twistRad)

	return WorldPoint{
		X: rotated[0] + cam.PositionXMeters,
		Y: rotated[1] + cam.PositionYMeters,
		Z: rotated[2] + cam.PositionZMeters,
	}
}

// rotateZ rotates (x,y,z) about the Z axis by theta radians, via gonum's
// dense matrix multiply (the module's one gonum/mat use site, grounded on
// the teacher's gonum.org/v1/gonum dependency).
func rotateZ(x, y, z, theta float64) [3]float64 {
	rot := mat.NewDense(3, 3, []float64{
		math.Cos(theta), -math.Sin(theta), 0,
		math.Sin(theta), math.Cos(theta), 0,
		0, 0, 1,
	})
	vec := mat.NewDense(3, 1, []float64{x, y, z})
	var out mat.Dense
	out.Mul(rot, vec)
	return [3]float64{out.At(0, 0), out.At(1, 0), out.At(2, 0)}
}

// Delta is the per-axis position and angle difference between two ball
// observations, in the ball-flight frame (spec.md §4.3 "Two-ball delta").
type Delta struct {
	DX, DY, DZ float64
}

// TwoBallDelta implements spec.md §4.3: coordinate swap between camera and
// ball frames (ball-x = -camera-z, ball-y = camera-y, ball-z = camera-x),
// with the inter-camera offset added when the two balls came from
// different cameras.
func TwoBallDelta(from, to WorldPoint, crossCameraOffset *WorldPoint) Delta {
	offset := WorldPoint{}
	if crossCameraOffset != nil {
		offset = *crossCameraOffset
	}

	fromBall := WorldPoint{X: -from.Z, Y: from.Y, Z: from.X}
	toBall := WorldPoint{X: -to.Z + offset.X, Y: to.Y + offset.Y, Z: to.X + offset.Z}

	return Delta{
		DX: toBall.X - fromBall.X,
		DY: toBall.Y - fromBall.Y,
		DZ: toBall.Z - fromBall.Z,
	}
}

// HorizontalLaunchAngleDeg is atan(Δx/Δz) in the ball frame.
func HorizontalLaunchAngleDeg(d Delta) float64 {
	if d.DZ == 0 {
		return 0
	}
	return math.Atan2(d.DX, d.DZ) * 180 / math.Pi
}

// VerticalLaunchAngleDeg is atan(Δy/Δz) in the ball frame.
func VerticalLaunchAngleDeg(d Delta) float64 {
	if d.DZ == 0 {
		return 0
	}
	return math.Atan2(d.DY, d.DZ) * 180 / math.Pi
}

// VelocityMPS is ‖Δposition‖ / Δt (spec.md §4.3 "Velocity"). When a more
// accurate side angle has been derived (e.g. by averaging teed-ball-to-
// exposure angles), the caller should recompute d.DX from that angle
// before calling this, per the spec.
func VelocityMPS(d Delta, deltaTSeconds float64) float64 {
	if deltaTSeconds <= 0 {
		return 0
	}
	dist := math.Sqrt(d.DX*d.DX + d.DY*d.DY + d.DZ*d.DZ)
	return dist / deltaTSeconds
}

// CalibrateFocalLength solves for the focal length that makes
// DistanceFromRadius(cam, b, ballRadiusM) equal knownDistanceM, given a
// ball measured at a known calibration distance (SPEC_FULL.md §10
// "Calibration mode", supplemented from the original source's
// calibration step — not present in spec.md's distillation).
func CalibrateFocalLength(cam imaging.Camera, b imaging.Ball, ballRadiusM, knownDistanceM float64) float64 {
	if b.Radius() <= 0 || knownDistanceM <= 0 {
		return cam.FocalLengthMM
	}
	sensorWidth := effectiveSensorWidth(cam, b)
	return (knownDistanceM * b.Radius() * sensorWidth) / (float64(cam.ResolutionX) * ballRadiusM)
}
