package exposure

import (
	"math"
)

// assignIntervals implements spec.md §4.4's "Interval correlation": given
// surviving balls (x-sorted) and the known pulse-train off-intervals,
// find the (collapse-count, offset) alignment with minimum penalised
// squared-error between observed distance ratios and pulse ratios, then
// assign each gap its matching interval.
func (s *Selector) assignIntervals(r *Result, regime Regime, pulseOffMs []float64) {
	if len(r.Balls) < 2 || len(pulseOffMs) < 2 {
		s.fallbackIntervals(r, regime, pulseOffMs)
		return
	}

	slowdown := s.cfg.Exposure.StandardSlowdownPct
	if regime == RegimePutting {
		slowdown = s.cfg.Exposure.PuttingSlowdownPct
	}

	distances := make([]float64, len(r.Balls)-1)
	for i := 0; i < len(r.Balls)-1; i++ {
		distances[i] = r.Balls[i+1].PixelDistanceFrom(r.Balls[i]) * (1 - slowdown)
	}

	if len(distances) == 1 {
		s.fallbackIntervals(r, regime, pulseOffMs)
		return
	}

	distRatios := make([]float64, len(distances)-1)
	for i := 0; i < len(distances)-1; i++ {
		if distances[i] == 0 {
			distRatios[i] = 0
			continue
		}
		distRatios[i] = distances[i+1] / distances[i]
	}

	bestScore := math.Inf(1)
	bestCollapse, bestOffset, bestAlign := 0, 0, 0
	penalty := s.cfg.Exposure.CollapsePenalty

	maxCollapse := len(pulseOffMs) / 2
	for collapse := 0; collapse < maxCollapse; collapse++ {
		for offset := 0; offset <= len(pulseOffMs)-collapse-1; offset++ {
			candidateIntervals := collapseIntervals(pulseOffMs, collapse, offset)
			if len(candidateIntervals) < 2 {
				continue
			}
			candidateRatios := ratios(candidateIntervals)

			for align := 0; align+len(distRatios) <= len(candidateRatios); align++ {
				score := 0.0
				for i, dr := range distRatios {
					d := dr - candidateRatios[align+i]
					score += d * d
				}
				if collapse > 0 {
					score *= penalty
				}
				if score < bestScore {
					bestScore = score
					bestCollapse, bestOffset, bestAlign = collapse, offset, align
					r.CollapsePenaltyApplied = collapse > 0
				}
			}
		}
	}

	finalIntervals := collapseIntervals(pulseOffMs, bestCollapse, bestOffset)
	r.IntervalsMs = make([]float64, len(r.Balls))
	for i := range r.Balls {
		if i == 0 {
			r.IntervalsMs[0] = 0
			continue
		}
		idx := bestAlign + i - 1
		if idx < len(finalIntervals) {
			r.IntervalsMs[i] = finalIntervals[idx]
		}
	}
	r.CollapseScore = bestScore
}

// collapseIntervals sums the k+1 adjacent pulses starting at offset o into
// one interval, simulating k missed exposures (spec.md §4.4 step 3); k=0
// returns a copy of the pulses from o onward.
func collapseIntervals(pulseOffMs []float64, k, o int) []float64 {
	if k == 0 {
		return append([]float64(nil), pulseOffMs...)
	}
	out := make([]float64, 0, len(pulseOffMs)-k)
	out = append(out, pulseOffMs[:o]...)
	if o+k+1 > len(pulseOffMs) {
		return out
	}
	sum := 0.0
	for i := o; i < o+k+1; i++ {
		sum += pulseOffMs[i]
	}
	out = append(out, sum)
	out = append(out, pulseOffMs[o+k+1:]...)
	return out
}

func ratios(intervals []float64) []float64 {
	out := make([]float64, 0, len(intervals)-1)
	for i := 0; i < len(intervals)-1; i++ {
		if intervals[i] == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, intervals[i+1]/intervals[i])
	}
	return out
}

// fallbackIntervals implements spec.md §4.4's "Fallback (only two balls
// survive)": putting assumes the last two pulse exposures, otherwise the
// first two.
func (s *Selector) fallbackIntervals(r *Result, regime Regime, pulseOffMs []float64) {
	r.IntervalsMs = make([]float64, len(r.Balls))
	if len(r.Balls) < 2 || len(pulseOffMs) == 0 {
		return
	}
	interval := pulseOffMs[0]
	if regime == RegimePutting {
		interval = pulseOffMs[len(pulseOffMs)-1]
	}
	r.IntervalsMs[1] = interval
}

// assignFaceAndPair designates the ball closest to image centre as the
// "face" ball, and the next-closest as the paired ball for velocity
// (spec.md §4.4 "Middle and second ball").
func (s *Selector) assignFaceAndPair(r *Result, centerX, centerY float64) {
	if len(r.Balls) == 0 {
		return
	}
	type distIdx = struct {
		idx  int
		dist float64
	}
	dists := make([]distIdx, len(r.Balls))
	for i, b := range r.Balls {
		dists[i] = distIdx{idx: i, dist: math.Hypot(b.CenterXPx-centerX, b.CenterYPx-centerY)}
	}
	sortByDist(dists)

	r.FaceBallIdx = dists[0].idx
	if len(dists) > 1 {
		r.PairBallIdx = dists[1].idx
	} else {
		r.PairBallIdx = dists[0].idx
	}
}

func sortByDist(d []struct {
	idx  int
	dist float64
}) {
	for i := 1; i < len(d); i++ {
		for j := i; j > 0 && d[j].dist < d[j-1].dist; j-- {
			d[j], d[j-1] = d[j-1], d[j]
		}
	}
}
