// Package imaging holds the ball/camera value types and the gocv-backed
// image primitives (colour masking, blur, edge detection, Hough circles)
// shared by the detector, exposure selector, and spin solver (spec.md §3,
// §4.2). Grounded on golf_ball.h's GolfBall/BallColorRange fields,
// generalized from a C++ class with getters/setters into plain Go structs.
package imaging

import (
	"image"
	"math"
)

// Colour is a BGR triplet (OpenCV's native channel order), mirroring
// golf_ball.h's GsColorTriplet usage for average_color_/std_color_.
type Colour struct {
	B, G, R float64
}

// Ellipse is a ball outline with independent width/height radii, used once
// a circle fit degrades to an ellipse fit under perspective (spec.md §3
// Ball invariant "ellipse width >= height when both known").
type Ellipse struct {
	CenterX, CenterY float64
	RadiusX, RadiusY float64
	AngleDeg         float64
}

// Ball is one detected (or tracked) golf ball, carrying both its image-space
// measurement and any world-space values solved from it (spec.md §3 Ball).
// A Ball is a value produced by the detector and consumed read-only by
// later stages; nothing in this package mutates one returned to a caller.
type Ball struct {
	CenterXPx, CenterYPx float64
	RadiusPx             float64
	Ellipse              *Ellipse

	Quality int // 0 is best, set by the Hough/refinement pass

	AverageColour Colour
	StdDevColour  Colour

	// DistanceM and the World* position/velocity fields are nil until
	// geometry has solved them; a Ball straight out of the detector leaves
	// them unset.
	DistanceM    *float64
	WorldX       *float64
	WorldY       *float64
	WorldZ       *float64

	SearchROI image.Rectangle
}

// Radius returns the ball's effective radius in pixels, preferring the
// ellipse's arithmetic mean radius over the plain circle radius when an
// ellipse fit is present (spec.md §4.3 "effective sensor width substitution").
func (b Ball) Radius() float64 {
	if b.Ellipse != nil {
		return (b.Ellipse.RadiusX + b.Ellipse.RadiusY) / 2
	}
	return b.RadiusPx
}

// Center returns the ball's image-space center as an image.Point (rounded).
func (b Ball) Center() image.Point {
	return image.Pt(int(b.CenterXPx+0.5), int(b.CenterYPx+0.5))
}

// PixelDistanceFrom returns the Euclidean pixel distance between two balls'
// centers (golf_ball.h's PixelDistanceFromBall).
func (b Ball) PixelDistanceFrom(other Ball) float64 {
	dx := b.CenterXPx - other.CenterXPx
	dy := b.CenterYPx - other.CenterYPx
	return math.Hypot(dx, dy)
}

// RadiusChangePct returns how much b's radius differs from other's, as a
// percentage of other's radius (golf_ball.h's CheckIfBallMoved max-percent
// comparisons).
func (b Ball) RadiusChangePct(other Ball) float64 {
	if other.Radius() == 0 {
		return 0
	}
	return (b.Radius() - other.Radius()) / other.Radius() * 100
}
