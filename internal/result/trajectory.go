package result

import (
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// RenderTrajectoryPlot draws a flat-earth, no-drag ballistic trajectory for
// each shot (distance along the horizontal launch direction vs. height) as
// one PNG, grounded on the teacher's gridplotter.go generateRingPlot: a
// plot.New, one plotter.Line per series, shared legend, single Save call.
// It's a rough debug visual only — real ball flight includes lift and drag
// the shot record doesn't carry.
func RenderTrajectoryPlot(shots []ShotResult, path string) error {
	p := plot.New()
	p.Title.Text = "Shot trajectories (no-drag estimate)"
	p.X.Label.Text = "Distance (m)"
	p.Y.Label.Text = "Height (m)"

	const g = 9.81
	for i, s := range shots {
		if s.BallSpeedMPS <= 0 {
			continue
		}
		vla := s.VLADeg * math.Pi / 180
		vx := s.BallSpeedMPS * math.Cos(vla)
		vy := s.BallSpeedMPS * math.Sin(vla)
		if vx <= 0 {
			continue
		}
		flightTime := 2 * vy / g
		if flightTime <= 0 {
			continue
		}

		const steps = 40
		pts := make(plotter.XYs, 0, steps+1)
		for step := 0; step <= steps; step++ {
			t := flightTime * float64(step) / float64(steps)
			x := vx * t
			y := vy*t - 0.5*g*t*t
			if y < 0 {
				break
			}
			pts = append(pts, plotter.XY{X: x, Y: y})
		}
		if len(pts) < 2 {
			continue
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Width = vg.Points(1.5)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("#%d %.0fmph", i+1, s.BallSpeedMPS*2.23694), line)
	}

	p.Legend.Top = true
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
