package imaging

import (
	"image"
	"image/color"
	"math"

	"gocv.io/x/gocv"
)

// HSVRange is a colour's lower/upper HSV bounds, possibly wrapping around
// hue 0°/180° (golf_ball.h's BallColorRange, minus the unused centre field).
type HSVRange struct {
	LowH, LowS, LowV    float64
	HighH, HighS, HighV float64
}

// Widen grows the range by deltaH/deltaS/deltaV on each side, additively
// (spec.md §9 open question: the spec pins additive widening for both
// bounds; see DESIGN.md).
func (r HSVRange) Widen(deltaH, deltaS, deltaV float64) HSVRange {
	return HSVRange{
		LowH: r.LowH - deltaH, LowS: r.LowS - deltaS, LowV: r.LowV - deltaV,
		HighH: r.HighH + deltaH, HighS: r.HighS + deltaS, HighV: r.HighV + deltaV,
	}
}

// ColourMask builds a binary mask selecting pixels of src (BGR) inside r's
// HSV bounds. When the hue interval crosses 0°/180°, the mask is the union
// of the two in-range sub-masks that result from splitting at the wrap
// point (spec.md §4.2 step 1, §8 boundary behaviour).
func ColourMask(src gocv.Mat, r HSVRange) gocv.Mat {
	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorBGRToHSV)

	mask := gocv.NewMat()

	if r.LowH < 0 || r.HighH > 180 {
		lowWrapped := r.LowH
		if lowWrapped < 0 {
			lowWrapped += 180
		}
		highWrapped := r.HighH
		if highWrapped > 180 {
			highWrapped -= 180
		}

		lower1 := gocv.NewScalar(math.Max(lowWrapped, 0), r.LowS, r.LowV, 0)
		upper1 := gocv.NewScalar(180, r.HighS, r.HighV, 0)
		mask1 := gocv.NewMat()
		gocv.InRangeWithScalar(hsv, lower1, upper1, &mask1)
		defer mask1.Close()

		lower2 := gocv.NewScalar(0, r.LowS, r.LowV, 0)
		upper2 := gocv.NewScalar(math.Min(highWrapped, 180), r.HighS, r.HighV, 0)
		mask2 := gocv.NewMat()
		gocv.InRangeWithScalar(hsv, lower2, upper2, &mask2)
		defer mask2.Close()

		gocv.BitwiseOr(mask1, mask2, &mask)
		return mask
	}

	lower := gocv.NewScalar(r.LowH, r.LowS, r.LowV, 0)
	upper := gocv.NewScalar(r.HighH, r.HighS, r.HighV, 0)
	gocv.InRangeWithScalar(hsv, lower, upper, &mask)
	return mask
}

// ToGray converts src (BGR) to a single-channel grayscale Mat.
func ToGray(src gocv.Mat) gocv.Mat {
	gray := gocv.NewMat()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)
	return gray
}

// oddify rounds a blur kernel size up to the nearest odd value >= 1, since
// gocv.GaussianBlur requires an odd kernel.
func oddify(size int) int {
	if size < 1 {
		return 1
	}
	if size%2 == 0 {
		return size + 1
	}
	return size
}

// Blur applies a Gaussian blur with the given kernel size (odd, auto
// corrected).
func Blur(src gocv.Mat, kernelSize int) gocv.Mat {
	dst := gocv.NewMat()
	k := oddify(kernelSize)
	gocv.GaussianBlur(src, &dst, image.Pt(k, k), 0, 0, gocv.BorderDefault)
	return dst
}

// CannyEdges applies Canny edge detection with the given thresholds.
func CannyEdges(src gocv.Mat, low, high float64) gocv.Mat {
	edges := gocv.NewMat()
	gocv.Canny(src, &edges, float32(low), float32(high))
	return edges
}

// HoughCircle is one raw Hough-transform detection (centre + radius, both
// in the coordinate space of the image passed to HoughCircles).
type HoughCircle struct {
	X, Y, Radius float64
}

// HoughCircles runs gradient-alt Hough circle detection over img (expected
// to already be edge-filtered/blurred per the detector's regime pipeline)
// and returns raw circles in detection order (best-voted first).
func HoughCircles(img gocv.Mat, dp, minDist, param1, param2, minRadius, maxRadius float64) []HoughCircle {
	out := gocv.NewMat()
	defer out.Close()

	gocv.HoughCirclesWithParams(img, &out, gocv.HoughGradientAlt, dp, minDist, param1, param2, int(minRadius), int(maxRadius))

	circles := make([]HoughCircle, 0, out.Cols())
	for i := 0; i < out.Cols(); i++ {
		v := out.GetVecfAt(0, i)
		if len(v) < 3 {
			continue
		}
		circles = append(circles, HoughCircle{X: float64(v[0]), Y: float64(v[1]), Radius: float64(v[2])})
	}
	return circles
}

// CropOffset is the top-left corner of a crop in the coordinates of the
// image it was cropped from, used to translate circle detections found in
// a cropped sub-image back to full-image coordinates.
type CropOffset struct {
	X, Y int
}

// Crop returns the sub-image of src within roi, and the offset needed to
// translate coordinates found in the crop back into src's frame.
func Crop(src gocv.Mat, roi image.Rectangle) (gocv.Mat, CropOffset) {
	bounded := roi.Intersect(image.Rect(0, 0, src.Cols(), src.Rows()))
	return src.Region(bounded), CropOffset{X: bounded.Min.X, Y: bounded.Min.Y}
}

// MeanStdDev returns the per-channel mean and standard deviation of src
// restricted to a circular region of the given centre/radius (used to score
// candidate colour against an expected ball colour).
func MeanStdDev(src gocv.Mat, centerX, centerY, radius float64) (Colour, Colour) {
	mask := gocv.NewMatWithSize(src.Rows(), src.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()
	gocv.Circle(&mask, image.Pt(int(centerX), int(centerY)), int(radius), color.RGBA{255, 255, 255, 0}, -1)

	masked := gocv.NewMat()
	defer masked.Close()
	src.CopyToWithMask(&masked, mask)

	meanVec := gocv.NewMat()
	defer meanVec.Close()
	stdVec := gocv.NewMat()
	defer stdVec.Close()
	gocv.MeanStdDev(masked, &meanVec, &stdVec)

	mean := Colour{}
	std := Colour{}
	if meanVec.Rows() >= 3 {
		mean = Colour{B: meanVec.GetDoubleAt(0, 0), G: meanVec.GetDoubleAt(1, 0), R: meanVec.GetDoubleAt(2, 0)}
		std = Colour{B: stdVec.GetDoubleAt(0, 0), G: stdVec.GetDoubleAt(1, 0), R: stdVec.GetDoubleAt(2, 0)}
	}
	return mean, std
}

// SuppressNearHorizontalLines removes long near-horizontal edge segments
// (golf-shaft artifacts) from an edge image, used by the external-strobe
// regime (spec.md §4.2 step 2). Lines within ±maxAngleDeg of horizontal and
// longer than minLengthPx are erased.
func SuppressNearHorizontalLines(edges gocv.Mat, minLengthPx float64, maxAngleDeg float64) gocv.Mat {
	out := gocv.NewMat()
	edges.CopyTo(&out)

	lines := gocv.NewMat()
	defer lines.Close()
	gocv.HoughLinesPWithParams(edges, &lines, 1, math.Pi/180, 40, minLengthPx, 10)

	for i := 0; i < lines.Rows(); i++ {
		x1 := float64(lines.GetVeciAt(i, 0)[0])
		y1 := float64(lines.GetVeciAt(i, 0)[1])
		x2 := float64(lines.GetVeciAt(i, 0)[2])
		y2 := float64(lines.GetVeciAt(i, 0)[3])

		angle := math.Abs(math.Atan2(y2-y1, x2-x1) * 180 / math.Pi)
		if angle > 90 {
			angle = 180 - angle
		}
		if angle <= maxAngleDeg {
			gocv.Line(&out, image.Pt(int(x1), int(y1)), image.Pt(int(x2), int(y2)), color.RGBA{0, 0, 0, 0}, 3)
		}
	}
	return out
}
