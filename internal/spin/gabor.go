// Package spin implements the spin solver: Gabor dimple-edge extraction,
// reflection removal, perspective correction, and the coarse/fine rotation
// search (spec.md §4.5). Grounded on ball_image_proc.cpp's
// ApplyGaborFilterToBall/ApplyTestGaborFilter (adaptive white-pct
// threshold), CreateGaborKernel (gocv.GetGaborKernel equivalent), and the
// hemisphere-projection rotation search (GetBallRotation et al.).
package spin

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/config"
)

// ignoreValue is the sentinel marking "not part of the comparison" in a
// Gabor edge image (spec.md §9 "Sentinel pixel value (128)"; kept as the
// original's chosen constant rather than reimplemented as a parallel mask,
// since the rotation search's hot loop benefits from testing one byte
// rather than two slices).
const ignoreValue = 128

// GaborBank builds cfg.GaborOrientations Gabor kernels spanning 0..180° and
// applies each to img, taking the per-pixel maximum response (spec.md §4.5
// step 2 "apply a bank of Gabor kernels... take the per-pixel maximum").
func GaborBank(img gocv.Mat, cfg config.SpinConfig) gocv.Mat {
	src := gocv.NewMat()
	defer src.Close()
	img.ConvertTo(&src, gocv.MatTypeCV32F)
	maxResponse := gocv.NewMat()

	stepDeg := 180.0 / float64(cfg.GaborOrientations)
	for i := 0; i < cfg.GaborOrientations; i++ {
		thetaRad := float64(i) * stepDeg * 3.14159265358979 / 180
		kernel := gocv.GetGaborKernel(
			image.Pt(cfg.GaborKernelSize, cfg.GaborKernelSize),
			cfg.GaborSigma, thetaRad, cfg.GaborLambda, cfg.GaborGamma, cfg.GaborPsi, gocv.MatTypeCV32F,
		)

		filtered := gocv.NewMat()
		gocv.Filter2D(src, &filtered, gocv.MatTypeCV32F, kernel, image.Pt(-1, -1), 0, gocv.BorderDefault)
		kernel.Close()

		if i == 0 {
			filtered.CopyTo(&maxResponse)
		} else {
			gocv.Max(maxResponse, filtered, &maxResponse)
		}
		filtered.Close()
	}

	return maxResponse
}

// AdaptiveBinaryThreshold iterates a binary threshold on a Gabor response
// image until the white-pixel percentage falls in [minPct, maxPct]
// (spec.md §4.5 step 2's adaptive threshold; grounded on
// ApplyGaborFilterToBall's "ratheting_threshold_down" loop).
func AdaptiveBinaryThreshold(gabor gocv.Mat, minPct, maxPct float64) (gocv.Mat, float64) {
	eightBit := gocv.NewMat()
	gocv.Normalize(gabor, &eightBit, 0, 255, gocv.NormMinMax)
	eightBit.ConvertTo(&eightBit, gocv.MatTypeCV8U)

	threshold := 128.0
	step := 16.0
	var binary gocv.Mat

	const maxIterations = 20
	for i := 0; i < maxIterations; i++ {
		binary.Close()
		binary = gocv.NewMat()
		gocv.Threshold(eightBit, &binary, float32(threshold), 255, gocv.ThresholdBinary)

		whitePct := float64(gocv.CountNonZero(binary)) / float64(binary.Rows()*binary.Cols())
		if whitePct >= minPct && whitePct < maxPct {
			break
		}
		if whitePct < minPct {
			threshold -= step
		} else {
			threshold += step
		}
		step *= 0.6
		if threshold <= 0 || threshold >= 255 {
			break
		}
	}

	eightBit.Close()
	return binary, threshold
}

// RemoveReflections marks the top brightnessCutoffPct brightest pixels of
// the original grayscale image (dilated) as ignoreValue in gabor, and also
// ignores everything outside isolateRadiusRatio*r (spec.md §4.5 step 3).
func RemoveReflections(gabor gocv.Mat, original gocv.Mat, centerX, centerY, radius float64, brightnessCutoffPct, isolateRadiusRatio float64) {
	bright := gocv.NewMat()
	defer bright.Close()
	threshold := percentileThreshold(original, 1-brightnessCutoffPct)
	gocv.Threshold(original, &bright, float32(threshold), 255, gocv.ThresholdBinary)

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(5, 5))
	defer kernel.Close()
	gocv.MorphologyEx(bright, &bright, gocv.MorphClose, kernel)
	gocv.Dilate(bright, &bright, kernel)

	setSentinelWhereMask(gabor, bright)
	maskOutsideRadius(gabor, centerX, centerY, radius*isolateRadiusRatio)
}

// percentileThreshold returns the grayscale value below which pct of pixels
// fall, via a 256-bin histogram walk.
func percentileThreshold(gray gocv.Mat, pct float64) float64 {
	hist := gocv.NewMat()
	defer hist.Close()
	mask := gocv.NewMat()
	defer mask.Close()
	gocv.CalcHist([]gocv.Mat{gray}, []int{0}, mask, &hist, []int{256}, []float64{0, 256}, false)

	total := float64(gray.Rows() * gray.Cols())
	cumulative := 0.0
	for i := 0; i < 256; i++ {
		cumulative += float64(hist.GetFloatAt(i, 0))
		if cumulative/total >= pct {
			return float64(i)
		}
	}
	return 255
}

func setSentinelWhereMask(img gocv.Mat, mask gocv.Mat) {
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			if mask.GetUCharAt(y, x) > 0 {
				img.SetFloatAt(y, x, ignoreValue)
			}
		}
	}
}

func maskOutsideRadius(img gocv.Mat, cx, cy, r float64) {
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			dx, dy := float64(x)-cx, float64(y)-cy
			if dx*dx+dy*dy > r*r {
				img.SetFloatAt(y, x, ignoreValue)
			}
		}
	}
}
