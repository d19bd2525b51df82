package result

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderSummaryHTML writes a quick go-echarts HTML page plotting ball
// speed and back-spin across recent shots (debugging-only view, grounded
// on echarts_handlers.go's handleBackgroundGridPolar's
// build-chart-then-Render shape).
func RenderSummaryHTML(w io.Writer, shots []ShotResult) error {
	speedBars := charts.NewBar()
	speedBars.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Recent Shots", Theme: "dark"}),
		charts.WithTitleOpts(opts.Title{Title: "Ball Speed & Back Spin", Subtitle: "most recent first"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	labels := make([]string, len(shots))
	speedData := make([]opts.BarData, len(shots))
	spinData := make([]opts.BarData, len(shots))
	for i, s := range shots {
		labels[i] = "#" + strconv.Itoa(i+1)
		speedData[i] = opts.BarData{Value: s.BallSpeedMPS}
		spinData[i] = opts.BarData{Value: s.BackSpinRPM}
	}

	speedBars.SetXAxis(labels).
		AddSeries("ball_speed_mps", speedData).
		AddSeries("back_spin_rpm", spinData)

	return speedBars.Render(w)
}
