// Package exposure implements the exposure selector: the filter cascade
// that separates real ball exposures from artefacts in a strobed frame,
// and the interval correlation that assigns each surviving exposure to a
// pulse-train interval (spec.md §4.4 — "the hardest subsystem").
//
// Grounded on gs_camera.cpp's RemoveUnlikelyRadiusChangeBalls/
// RemoveOffTrajectoryBalls/RemoveNearbyPoorQualityBalls/
// RemoveOverlappingBalls and the collapse/offset correlation search loop in
// AnalyzeStrobedBall.
package exposure

import (
	"math"
	"sort"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/imaging"
)

// Regime selects the angle-band and slowdown tuning used by the cascade.
type Regime int

const (
	RegimeStandard Regime = iota
	RegimePutting
)

// Candidate is a ball candidate carried through the cascade, tagged with
// whether it is one of the top-two quality anchors (never dropped).
type Candidate struct {
	Ball       imaging.Ball
	IsAnchor   bool
}

// Selector runs the filter cascade and interval correlation against one
// frame's raw Hough candidates.
type Selector struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Selector {
	return &Selector{cfg: cfg}
}

// Result is the selector's output: the surviving balls in image order, each
// assigned a pulse-train interval index, plus the designated face/pair
// balls used downstream.
type Result struct {
	Balls          []imaging.Ball
	IntervalsMs    []float64 // interval preceding each ball; Balls[0] has no preceding interval
	FaceBallIdx    int
	PairBallIdx    int
	CollapsePenaltyApplied bool
	CollapseScore  float64
}

// Select runs the full cascade (spec.md §4.4 filter table) followed by
// interval correlation, against raw candidates already ranked by quality
// (best/lowest index first, matching the detector's output order).
func (s *Selector) Select(raw []imaging.Ball, regime Regime, imageCenterX, imageCenterY float64, pulseOffDurationsMs []float64) (Result, error) {
	cands := toCandidates(raw, 2)

	cands = s.removeWrongColor(cands, regime)
	cands = s.removeWrongRadius(cands)
	cands = s.removeUnlikelyAngle(cands, regime)
	cands = s.removeLowScoringBalls(cands)
	cands = s.removeOffTrajectory(cands)
	cands = s.removeNearbyPoorQuality(cands)
	for i := 0; i < 3; i++ {
		cands = s.removeUnlikelyRadiusChange(cands)
	}
	cands = s.removeOverlappingBalls(cands)

	balls := make([]imaging.Ball, len(cands))
	for i, c := range cands {
		balls[i] = c.Ball
	}
	sortByX(balls)

	result := Result{Balls: balls}
	s.assignIntervals(&result, regime, pulseOffDurationsMs)
	s.assignFaceAndPair(&result, imageCenterX, imageCenterY)
	return result, nil
}

func toCandidates(raw []imaging.Ball, topN int) []Candidate {
	cands := make([]Candidate, len(raw))
	for i, b := range raw {
		cands[i] = Candidate{Ball: b, IsAnchor: i < topN}
	}
	return cands
}

func sortByX(balls []imaging.Ball) {
	sort.Slice(balls, func(i, j int) bool { return balls[i].CenterXPx < balls[j].CenterXPx })
}

// removeWrongColor drops candidates whose colour distance from the
// top-quality ball exceeds the regime threshold (spec.md §4.4 table row 1).
func (s *Selector) removeWrongColor(cands []Candidate, regime Regime) []Candidate {
	if len(cands) == 0 {
		return cands
	}
	threshold := s.cfg.Exposure.MaxColorDiffStandard
	if regime == RegimePutting {
		threshold = s.cfg.Exposure.MaxColorDiffPutting
	}

	reference := topQuality(cands).Ball
	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.IsAnchor {
			kept = append(kept, c)
			continue
		}
		diff := weightedColourDiff(c.Ball, reference)
		if diff <= threshold {
			kept = append(kept, c)
		}
	}
	return kept
}

// weightedColourDiff weights average/std colour asymmetrically depending
// on whether the candidate is darker or lighter than expected (spec.md
// §4.4 row 1): darker deviations are penalised more, since strobe
// reflections tend to brighten false candidates rather than darken them.
func weightedColourDiff(a, ref imaging.Ball) float64 {
	avgDiff := 0.0
	for _, pair := range [][2]float64{
		{a.AverageColour.B, ref.AverageColour.B},
		{a.AverageColour.G, ref.AverageColour.G},
		{a.AverageColour.R, ref.AverageColour.R},
	} {
		d := pair[0] - pair[1]
		weight := 1.0
		if d < 0 {
			weight = 1.3 // darker than expected weighted more heavily
		}
		avgDiff += weight * d * d
	}
	stdDiff := 0.0
	for _, pair := range [][2]float64{
		{a.StdDevColour.B, ref.StdDevColour.B},
		{a.StdDevColour.G, ref.StdDevColour.G},
		{a.StdDevColour.R, ref.StdDevColour.R},
	} {
		d := pair[0] - pair[1]
		stdDiff += d * d
	}
	return avgDiff + stdDiff
}

func topQuality(cands []Candidate) Candidate {
	best := cands[0]
	for _, c := range cands[1:] {
		if c.Ball.Quality < best.Ball.Quality {
			best = c
		}
	}
	return best
}

// removeWrongRadius drops candidates whose radius differs from the top
// ball's by more than max_radius_pct (spec.md §4.4 row 2).
func (s *Selector) removeWrongRadius(cands []Candidate) []Candidate {
	if len(cands) == 0 {
		return cands
	}
	ref := topQuality(cands).Ball.Radius()
	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.IsAnchor || ref == 0 {
			kept = append(kept, c)
			continue
		}
		pctDiff := math.Abs(c.Ball.Radius()-ref) / ref
		if pctDiff <= s.cfg.Exposure.MaxRadiusPct {
			kept = append(kept, c)
		}
	}
	return kept
}

// removeUnlikelyAngle drops candidates within min_dist of a higher-quality
// candidate whose connecting angle falls outside the launch-angle band
// (spec.md §4.4 row 3).
func (s *Selector) removeUnlikelyAngle(cands []Candidate, regime Regime) []Candidate {
	minAngle, maxAngle := s.cfg.Exposure.MinLaunchAngleDeg, s.cfg.Exposure.MaxLaunchAngleDeg
	if regime == RegimePutting {
		minAngle, maxAngle = s.cfg.Exposure.MinLaunchAnglePutDeg, s.cfg.Exposure.MaxLaunchAnglePutDeg
	}

	kept := make([]Candidate, 0, len(cands))
	for i, c := range cands {
		if c.IsAnchor {
			kept = append(kept, c)
			continue
		}
		drop := false
		for j, other := range cands {
			if i == j || other.Ball.Quality >= c.Ball.Quality {
				continue
			}
			dist := c.Ball.PixelDistanceFrom(other.Ball)
			if dist > s.cfg.Exposure.MinDistPx {
				continue
			}
			angle := math.Atan2(c.Ball.CenterYPx-other.Ball.CenterYPx, c.Ball.CenterXPx-other.Ball.CenterXPx) * 180 / math.Pi
			if angle < minAngle || angle > maxAngle {
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, c)
		}
	}
	return kept
}

// removeLowScoringBalls caps the vector at max_retain (spec.md §4.4 row 4).
func (s *Selector) removeLowScoringBalls(cands []Candidate) []Candidate {
	max := s.cfg.Exposure.MaxRetain
	if max <= 0 || len(cands) <= max {
		return cands
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].Ball.Quality < cands[j].Ball.Quality })
	return cands[:max]
}

// removeOffTrajectory drops candidates whose perpendicular distance to the
// line through the top-two anchors exceeds max_dist (spec.md §4.4 row 5).
func (s *Selector) removeOffTrajectory(cands []Candidate) []Candidate {
	if len(cands) < 2 {
		return cands
	}
	a, b := anchorPair(cands)

	kept := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if c.IsAnchor {
			kept = append(kept, c)
			continue
		}
		if perpendicularDistance(c.Ball, a.Ball, b.Ball) <= s.cfg.Exposure.MaxOffTrajectoryPx {
			kept = append(kept, c)
		}
	}
	return kept
}

func anchorPair(cands []Candidate) (Candidate, Candidate) {
	sorted := append([]Candidate(nil), cands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ball.Quality < sorted[j].Ball.Quality })
	if len(sorted) == 1 {
		return sorted[0], sorted[0]
	}
	return sorted[0], sorted[1]
}

func perpendicularDistance(p imaging.Ball, a, b imaging.Ball) float64 {
	dx := b.CenterXPx - a.CenterXPx
	dy := b.CenterYPx - a.CenterYPx
	lineLen := math.Hypot(dx, dy)
	if lineLen == 0 {
		return p.PixelDistanceFrom(a)
	}
	// Cross product magnitude / line length = perpendicular distance.
	cross := (p.CenterXPx-a.CenterXPx)*dy - (p.CenterYPx-a.CenterYPx)*dx
	return math.Abs(cross) / lineLen
}

// removeNearbyPoorQuality drops, for each candidate, any much-lower-quality
// candidate within min_dist pixels (spec.md §4.4 row 6).
func (s *Selector) removeNearbyPoorQuality(cands []Candidate) []Candidate {
	toDrop := make(map[int]bool)
	for i, c := range cands {
		if c.IsAnchor {
			continue
		}
		for j, other := range cands {
			if i == j || toDrop[i] {
				continue
			}
			if other.Ball.PixelDistanceFrom(c.Ball) > s.cfg.Exposure.MinDistPx {
				continue
			}
			gap := float64(c.Ball.Quality - other.Ball.Quality)
			if gap > 0 && gap >= s.cfg.Exposure.QualityGapFactor {
				toDrop[i] = true
			}
		}
	}
	return dropIndices(cands, toDrop)
}

func dropIndices(cands []Candidate, toDrop map[int]bool) []Candidate {
	kept := make([]Candidate, 0, len(cands))
	for i, c := range cands {
		if !toDrop[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

// removeUnlikelyRadiusChange is the triple-window x-sorted pass (spec.md
// §4.4 row 7). Intended to run three times per the spec.
func (s *Selector) removeUnlikelyRadiusChange(cands []Candidate) []Candidate {
	if len(cands) < 3 {
		return cands
	}
	sorted := append([]Candidate(nil), cands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ball.CenterXPx < sorted[j].Ball.CenterXPx })

	toDrop := make(map[int]bool)
	for i := 1; i < len(sorted)-1; i++ {
		mid := sorted[i]
		if mid.IsAnchor {
			continue
		}
		left, right := sorted[i-1], sorted[i+1]
		maxPct := s.cfg.Exposure.MaxRadiusChangePct

		midR, leftR, rightR := mid.Ball.Radius(), left.Ball.Radius(), right.Ball.Radius()
		if leftR == 0 || rightR == 0 {
			continue
		}
		diffLeft := math.Abs(midR-leftR) / leftR
		diffRight := math.Abs(midR-rightR) / rightR
		if diffLeft > maxPct && diffRight > maxPct {
			toDrop[i] = true
			continue
		}

		// Overlapped-ball artefact: two adjacent candidates very close, one
		// radius much larger than the other.
		if mid.Ball.PixelDistanceFrom(left.Ball) <= s.cfg.Exposure.MinDistPx && leftR > 0 {
			if midR/leftR > 1+maxPct*2 {
				toDrop[i] = true
			} else if leftR/midR > 1+maxPct*2 && !left.IsAnchor {
				toDrop[i-1] = true
			}
		}
	}

	kept := make([]Candidate, 0, len(sorted))
	for i, c := range sorted {
		if !toDrop[i] {
			kept = append(kept, c)
		}
	}
	return kept
}

// removeOverlappingBalls is the right-to-left sweep (spec.md §4.4 row 8).
func (s *Selector) removeOverlappingBalls(cands []Candidate) []Candidate {
	if len(cands) < 2 {
		return cands
	}
	sorted := append([]Candidate(nil), cands...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Ball.CenterXPx < sorted[j].Ball.CenterXPx })
	a, b := anchorPair(cands)

	margin := s.cfg.Exposure.OverlapMarginPct
	onTrajTol := s.cfg.Exposure.OverlapOnTrajTolPx

	dropped := make(map[int]bool)
	for i := len(sorted) - 1; i > 0; i-- {
		if dropped[i] {
			continue
		}
		left, right := sorted[i-1], sorted[i]
		if dropped[i-1] {
			continue
		}
		threshold := (1 - margin) * (left.Ball.Radius() + right.Ball.Radius())
		dist := left.Ball.PixelDistanceFrom(right.Ball)
		if dist >= threshold {
			continue
		}

		leftOnTraj := perpendicularDistance(left.Ball, a.Ball, b.Ball) <= onTrajTol
		rightOnTraj := perpendicularDistance(right.Ball, a.Ball, b.Ball) <= onTrajTol

		switch {
		case leftOnTraj && rightOnTraj:
			if !left.IsAnchor {
				dropped[i-1] = true
			}
			if !right.IsAnchor {
				dropped[i] = true
			}
		case leftOnTraj && !rightOnTraj:
			if !right.IsAnchor {
				dropped[i] = true
			}
		case rightOnTraj && !leftOnTraj:
			if !left.IsAnchor {
				dropped[i-1] = true
			}
		}
	}

	// Special case: if dropping a pair leaves exactly one candidate to the
	// left, drop it too — it is almost certainly also overlapped.
	remaining := make([]int, 0, len(sorted))
	for i := range sorted {
		if !dropped[i] {
			remaining = append(remaining, i)
		}
	}
	if len(remaining) == 1 && remaining[0] < len(sorted)-1 && !sorted[remaining[0]].IsAnchor {
		dropped[remaining[0]] = true
	}

	kept := make([]Candidate, 0, len(sorted))
	for i, c := range sorted {
		if !dropped[i] {
			kept = append(kept, c)
		}
	}
	return kept
}
