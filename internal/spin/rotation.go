package spin

import (
	"math"
	"sync"

	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/config"
)

// Rotation is a trial (or result) 3D rotation in degrees.
type Rotation struct {
	RX, RY, RZ float64
}

// hemispherePixel is one (x,y) image pixel lifted onto the ball's 3D
// hemisphere, carrying its Gabor value (spec.md §4.5 "Rotation search").
type hemispherePixel struct {
	X, Y, Z float64
	Value   float64
	Ignored bool
}

// hemisphereOf projects every in-circle pixel of img onto the ball's
// hemisphere, z = sqrt(r^2 - x^2 - y^2) in ball-centred coordinates.
func hemisphereOf(img gocv.Mat, centerX, centerY, radius float64) []hemispherePixel {
	pts := make([]hemispherePixel, 0, img.Rows()*img.Cols())
	for y := 0; y < img.Rows(); y++ {
		for x := 0; x < img.Cols(); x++ {
			dx := float64(x) - centerX
			dy := float64(y) - centerY
			rr := radius*radius - dx*dx - dy*dy
			if rr < 0 {
				continue
			}
			v := img.GetFloatAt(y, x)
			pts = append(pts, hemispherePixel{
				X: dx, Y: dy, Z: math.Sqrt(rr),
				Value:   float64(v),
				Ignored: v == ignoreValue,
			})
		}
	}
	return pts
}

// rotatePoint applies an intrinsic X-then-Y-then-Z rotation to (x,y,z), in
// degrees, with the X rotation's sign inverted by the original
// implementation's convention (spec.md §4.5 step 1).
func rotatePoint(x, y, z, rxDeg, ryDeg, rzDeg float64) (nx, ny, nz float64) {
	rx := -rxDeg * math.Pi / 180
	ry := ryDeg * math.Pi / 180
	rz := rzDeg * math.Pi / 180

	// X rotation
	y1 := y*math.Cos(rx) - z*math.Sin(rx)
	z1 := y*math.Sin(rx) + z*math.Cos(rx)
	x1 := x

	// Y rotation
	x2 := x1*math.Cos(ry) + z1*math.Sin(ry)
	z2 := -x1*math.Sin(ry) + z1*math.Cos(ry)
	y2 := y1

	// Z rotation
	x3 := x2*math.Cos(rz) - y2*math.Sin(rz)
	y3 := x2*math.Sin(rz) + y2*math.Cos(rz)
	z3 := z2

	return x3, y3, z3
}

// score compares a rotated version of img1's hemisphere against img2's
// Gabor image pixel-wise, counting matches only among pixels where neither
// side is the ignore sentinel (spec.md §4.5 steps 1-3).
func score(pts1 []hemispherePixel, img2 gocv.Mat, centerX2, centerY2, radius2 float64, rot Rotation, w, p, s float64) (scoreValue float64, examined int) {
	matches := 0
	for _, pt := range pts1 {
		if pt.Ignored {
			continue
		}
		nx, ny, nz := rotatePoint(pt.X, pt.Y, pt.Z, rot.RX, rot.RY, rot.RZ)
		if nz <= 0 {
			continue
		}

		px := int(centerX2 + nx)
		py := int(centerY2 + ny)
		if px < 0 || py < 0 || px >= img2.Cols() || py >= img2.Rows() {
			continue
		}

		v2 := img2.GetFloatAt(py, px)
		if v2 == ignoreValue {
			continue
		}

		examined++
		if samePixelClass(pt.Value, float64(v2)) {
			matches++
		}
	}
	_ = radius2
	if examined == 0 {
		return 0, 0
	}
	return float64(matches) / float64(examined), examined
}

func samePixelClass(a, b float64) bool {
	const whiteThreshold = 128
	return (a >= whiteThreshold) == (b >= whiteThreshold)
}

// finalScore applies spec.md §4.5 step 3's penalty for low-coverage trials:
// final = score*10 - ((maxExamined-examined)/W)^P / S.
func finalScore(matchScore float64, examined, maxExamined int, w, p, s float64) float64 {
	if w == 0 {
		return matchScore * 10
	}
	deficit := float64(maxExamined-examined) / w
	penalty := math.Pow(deficit, p) / s
	return matchScore*10 - penalty
}

// trial is one evaluated grid point and its result.
type trial struct {
	rot      Rotation
	score    float64
	examined int
}

// searchGrid evaluates every (rx,ry,rz) in the given ranges against img2,
// in parallel unless cfg.Serial is set (spec.md §4.5 "Concurrency": a
// configurable parallel strategy with identical results to serial).
func searchGrid(pts1 []hemispherePixel, img2 gocv.Mat, centerX2, centerY2, radius2 float64, rxs, rys, rzs []float64, cfg config.SpinConfig) Rotation {
	type cell struct {
		rot Rotation
	}
	cells := make([]cell, 0, len(rxs)*len(rys)*len(rzs))
	for _, rx := range rxs {
		for _, ry := range rys {
			for _, rz := range rzs {
				cells = append(cells, cell{Rotation{rx, ry, rz}})
			}
		}
	}

	results := make([]trial, len(cells))

	evalCell := func(i int) {
		matchScore, examined := score(pts1, img2, centerX2, centerY2, radius2, cells[i].rot, cfg.ScoreW, cfg.ScoreP, cfg.ScoreS)
		results[i] = trial{rot: cells[i].rot, score: matchScore, examined: examined}
	}

	if cfg.Serial {
		for i := range cells {
			evalCell(i)
		}
	} else {
		var wg sync.WaitGroup
		sem := make(chan struct{}, 8)
		for i := range cells {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				evalCell(i)
			}(i)
		}
		wg.Wait()
	}

	maxExamined := 0
	for _, r := range results {
		if r.examined > maxExamined {
			maxExamined = r.examined
		}
	}

	best := results[0]
	bestFinal := finalScore(best.score, best.examined, maxExamined, cfg.ScoreW, cfg.ScoreP, cfg.ScoreS)
	for _, r := range results[1:] {
		f := finalScore(r.score, r.examined, maxExamined, cfg.ScoreW, cfg.ScoreP, cfg.ScoreS)
		if f > bestFinal {
			bestFinal = f
			best = r
		}
	}
	return best.rot
}

func arange(start, end, step float64) []float64 {
	if step <= 0 {
		return []float64{start}
	}
	var out []float64
	for v := start; v <= end+1e-9; v += step {
		out = append(out, v)
	}
	return out
}

// Search runs spec.md §4.5's two-stage coarse-then-fine rotation search.
// The coarse pass sweeps the configured X/Y/Z ranges; the fine pass sweeps
// each axis +/- half the coarse step around the coarse winner, at 1deg
// increments (ry at half-coarse-step increments, per the spec).
func Search(img1, img2 gocv.Mat, center1X, center1Y, radius1 float64, center2X, center2Y, radius2 float64, cfg config.SpinConfig) Rotation {
	pts1 := hemisphereOf(img1, center1X, center1Y, radius1)

	coarseRxs := arange(cfg.CoarseX.StartDeg, cfg.CoarseX.EndDeg, cfg.CoarseX.StepDeg)
	coarseRys := arange(cfg.CoarseY.StartDeg, cfg.CoarseY.EndDeg, cfg.CoarseY.StepDeg)
	coarseRzs := arange(cfg.CoarseZ.StartDeg, cfg.CoarseZ.EndDeg, cfg.CoarseZ.StepDeg)

	coarseWinner := searchGrid(pts1, img2, center2X, center2Y, radius2, coarseRxs, coarseRys, coarseRzs, cfg)

	fineRxs := arange(coarseWinner.RX-cfg.CoarseX.StepDeg/2, coarseWinner.RX+cfg.CoarseX.StepDeg/2, cfg.FineStepDeg)
	fineRys := arange(coarseWinner.RY-cfg.CoarseY.StepDeg/2, coarseWinner.RY+cfg.CoarseY.StepDeg/2, cfg.CoarseY.StepDeg/2)
	fineRzs := arange(coarseWinner.RZ-cfg.CoarseZ.StepDeg/2, coarseWinner.RZ+cfg.CoarseZ.StepDeg/2, cfg.FineStepDeg)

	return searchGrid(pts1, img2, center2X, center2Y, radius2, fineRxs, fineRys, fineRzs, cfg)
}

// NormalizeToFlightFrame moves the solved rotation into the ball-flight
// frame by subtracting the camera perspective offset from each axis angle
// (spec.md §4.5 "Normalisation"). The offset is not composed as a 3D
// rotation; the axes are adjusted independently.
func NormalizeToFlightFrame(r Rotation, cameraOffsetDeg Rotation) Rotation {
	return Rotation{
		RX: r.RX - cameraOffsetDeg.RX,
		RY: r.RY - cameraOffsetDeg.RY,
		RZ: r.RZ - cameraOffsetDeg.RZ,
	}
}

// RPM converts a rotation angle in degrees to revolutions per minute given
// the elapsed time between exposures (spec.md §4.5 "RPM = (deg/360) x 60 /
// dt_seconds").
func RPM(angleDeg, deltaTSeconds float64) float64 {
	if deltaTSeconds <= 0 {
		return 0
	}
	return (angleDeg / 360) * 60 / deltaTSeconds
}
