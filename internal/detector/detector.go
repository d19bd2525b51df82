package detector

import (
	"image"
	"math"
	"sort"

	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/imaging"
	"github.com/pitrac/lm/internal/pitracerr"
)

// Reference describes the optional expected ball used to score candidates
// by colour (spec.md §4.2 "a reference ball (optional colour and expected
// radius)").
type Reference struct {
	HasColour     bool
	ExpectedColour imaging.Colour
	ExpectedStdDev imaging.Colour
	ExpectedRadiusPx float64
}

// Detector runs the regime-specific detection pipeline against one frame.
// It holds only its immutable config slice; all per-call state (ROI,
// working mats) lives on the call stack, per spec.md §5 "Detector state is
// not shared: a detector instance is short-lived".
type Detector struct {
	cfg *config.Config
}

// New builds a Detector bound to cfg.
func New(cfg *config.Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect runs the full pipeline described in spec.md §4.2 against img and
// returns candidates ranked by likelihood, best first. roi may be the zero
// Rectangle to mean "whole image".
func (d *Detector) Detect(img gocv.Mat, regime Regime, ref Reference, roi image.Rectangle, colourMask *imaging.HSVRange) ([]imaging.Ball, error) {
	hc := houghConfigFor(d.cfg, regime)

	working := img
	var maskedOwned gocv.Mat
	if colourMask != nil {
		mask := imaging.ColourMask(img, *colourMask)
		defer mask.Close()
		maskedOwned = gocv.NewMat()
		img.CopyToWithMask(&maskedOwned, mask)
		working = maskedOwned
		defer maskedOwned.Close()
	}

	gray := imaging.ToGray(working)
	defer gray.Close()

	preBlur := imaging.Blur(gray, hc.PreCannyBlurSize)
	defer preBlur.Close()

	edges := imaging.CannyEdges(preBlur, hc.CannyLow, hc.CannyHigh)
	defer edges.Close()

	postBlur := imaging.Blur(edges, hc.PostCannyBlurSize)
	defer postBlur.Close()

	processed := postBlur
	if regime == RegimeExternalStrobe {
		suppressed := imaging.SuppressNearHorizontalLines(postBlur, 60, 10)
		defer suppressed.Close()
		processed = suppressed
	}

	cropped, offset := imaging.Crop(processed, nonZero(roi, img))
	defer cropped.Close()

	minR, maxR := hc.MinRadiusPx, hc.MaxRadiusPx
	if d.cfg.BallID.NarrowingEnabled && (regime == RegimeStrobed || regime == RegimePlacedBall) {
		minR, maxR = d.narrowRadiusBand(cropped, hc)
	}

	circles := d.adaptiveHough(cropped, hc, minR, maxR)
	if len(circles) == 0 {
		return nil, pitracerr.New(pitracerr.KindDetectionMiss, "ball not found")
	}

	balls := make([]imaging.Ball, 0, len(circles))
	for i, c := range circles {
		b := imaging.Ball{
			CenterXPx: c.X + float64(offset.X),
			CenterYPx: c.Y + float64(offset.Y),
			RadiusPx:  c.Radius,
			Quality:   i,
		}
		if c.Radius < 0.001 {
			continue
		}
		if d.cfg.BallID.BestCircleEnabled {
			b = d.refineBestCircle(img, b, hc)
		}
		mean, std := imaging.MeanStdDev(img, b.CenterXPx, b.CenterYPx, b.Radius())
		b.AverageColour = mean
		b.StdDevColour = std
		balls = append(balls, b)
	}

	if len(balls) == 0 {
		return nil, pitracerr.New(pitracerr.KindDetectionMiss, "ball not found")
	}

	if ref.HasColour && regime != RegimeStrobed {
		d.scoreByColour(balls, ref)
	}

	if best := balls[0]; best.Radius() < 0.001 {
		return nil, pitracerr.New(pitracerr.KindDetectionMiss, "ball not found")
	}

	return balls, nil
}

func nonZero(roi image.Rectangle, img gocv.Mat) image.Rectangle {
	if roi.Dx() == 0 || roi.Dy() == 0 {
		return image.Rect(0, 0, img.Cols(), img.Rows())
	}
	return roi
}

// narrowRadiusBand implements spec.md §4.2 step 4: a broad Hough pass over
// the whole resolution-scaled radius range, averaging the top-N radii to
// derive a tighter band for the main pass. Concentric duplicates (an
// artefact of gradient-alt mode) are collapsed by keeping the larger.
func (d *Detector) narrowRadiusBand(img gocv.Mat, hc config.RegimeHoughConfig) (float64, float64) {
	broadMax := float64(img.Cols()) * 0.45
	circles := imaging.HoughCircles(img, hc.HoughDP, hc.MinRadiusPx, hc.HoughParam1, (hc.HoughParam2Min+hc.HoughParam2Max)/2, 1, broadMax)
	circles = collapseConcentric(circles)
	if len(circles) == 0 {
		return hc.MinRadiusPx, hc.MaxRadiusPx
	}

	sort.Slice(circles, func(i, j int) bool { return circles[i].Radius > circles[j].Radius })
	n := d.cfg.BallID.NarrowingTopN
	if n > len(circles) {
		n = len(circles)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += circles[i].Radius
	}
	avg := sum / float64(n)

	return avg * d.cfg.BallID.NarrowingRatioMin, avg * d.cfg.BallID.NarrowingRatioMax
}

func collapseConcentric(circles []imaging.HoughCircle) []imaging.HoughCircle {
	const concentricTolPx = 4.0
	kept := make([]imaging.HoughCircle, 0, len(circles))
	for _, c := range circles {
		merged := false
		for i, k := range kept {
			if math.Hypot(c.X-k.X, c.Y-k.Y) <= concentricTolPx {
				if c.Radius > k.Radius {
					kept[i] = c
				}
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, c)
		}
	}
	return kept
}

// adaptiveHough implements spec.md §4.2 step 5: start at the regime's
// param2 midpoint and walk it up/down until the candidate count falls in
// [MinKeep, MaxKeep], preserving the last non-empty result if the final
// step overshoots into emptiness.
func (d *Detector) adaptiveHough(img gocv.Mat, hc config.RegimeHoughConfig, minR, maxR float64) []imaging.HoughCircle {
	param2 := (hc.HoughParam2Min + hc.HoughParam2Max) / 2
	var lastNonEmpty []imaging.HoughCircle

	maxIterations := int(math.Ceil((hc.HoughParam2Max-hc.HoughParam2Min)/hc.HoughParam2Step)) + 1
	for i := 0; i < maxIterations; i++ {
		circles := imaging.HoughCircles(img, hc.HoughDP, minR*1.5, hc.HoughParam1, param2, minR, maxR)
		if len(circles) > 0 {
			lastNonEmpty = circles
		}

		switch {
		case len(circles) > hc.MaxKeep:
			param2 += hc.HoughParam2Step
		case len(circles) < hc.MinKeep:
			param2 -= hc.HoughParam2Step
		default:
			return circles
		}

		if param2 > hc.HoughParam2Max || param2 < hc.HoughParam2Min {
			return lastNonEmpty
		}
	}
	return lastNonEmpty
}

// refineBestCircle implements spec.md §4.2 step 6: crop a 1.5x radius
// window around a candidate, re-edge and re-Hough with a tight band, and
// replace the candidate's circle with the best (highest score, or largest,
// per config) sub-candidate.
func (d *Detector) refineBestCircle(img gocv.Mat, b imaging.Ball, hc config.RegimeHoughConfig) imaging.Ball {
	mult := d.cfg.BallID.BestCircleCropMult
	r := b.Radius()
	roi := image.Rect(
		int(b.CenterXPx-r*mult), int(b.CenterYPx-r*mult),
		int(b.CenterXPx+r*mult), int(b.CenterYPx+r*mult),
	)
	cropped, offset := imaging.Crop(img, roi)
	defer cropped.Close()

	gray := imaging.ToGray(cropped)
	defer gray.Close()
	edges := imaging.CannyEdges(gray, hc.CannyLow, hc.CannyHigh)
	defer edges.Close()

	sub := imaging.HoughCircles(edges, hc.HoughDP, r*0.5, hc.HoughParam1, (hc.HoughParam2Min+hc.HoughParam2Max)/2, r*0.7, r*1.3)
	if len(sub) == 0 {
		return b
	}

	var chosen imaging.HoughCircle
	if d.cfg.BallID.BestCircleByLargest {
		chosen = sub[0]
		for _, c := range sub {
			if c.Radius > chosen.Radius {
				chosen = c
			}
		}
	} else {
		chosen = sub[0] // Hough returns best-scoring first
	}

	b.CenterXPx = chosen.X + float64(offset.X)
	b.CenterYPx = chosen.Y + float64(offset.Y)
	b.RadiusPx = chosen.Radius
	return b
}

// scoreByColour sorts balls ascending by calculated_color_difference
// (spec.md §4.2 "Scoring"): α‖avg−expected_avg‖² + β‖std−expected_std‖² +
// γ·index³, where index is the Hough rank prior to sorting.
func (d *Detector) scoreByColour(balls []imaging.Ball, ref Reference) {
	alpha, beta, gamma := d.cfg.BallID.ScoreAlpha, d.cfg.BallID.ScoreBeta, d.cfg.BallID.ScoreGamma

	type scored struct {
		ball  imaging.Ball
		score float64
	}
	scoredBalls := make([]scored, len(balls))
	for i, b := range balls {
		avgDiff := colourDistSq(b.AverageColour, ref.ExpectedColour)
		stdDiff := colourDistSq(b.StdDevColour, ref.ExpectedStdDev)
		index := float64(b.Quality)
		score := alpha*avgDiff + beta*stdDiff + gamma*index*index*index
		scoredBalls[i] = scored{ball: b, score: score}
	}
	sort.SliceStable(scoredBalls, func(i, j int) bool { return scoredBalls[i].score < scoredBalls[j].score })
	for i, s := range scoredBalls {
		balls[i] = s.ball
	}
}

func colourDistSq(a, b imaging.Colour) float64 {
	db := a.B - b.B
	dg := a.G - b.G
	dr := a.R - b.R
	return db*db + dg*dg + dr*dr
}
