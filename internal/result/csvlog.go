package result

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
)

// csvFields is spec.md §6's shot-log column order: "counter, carry,
// total, side dest, smash, club speed, ball speed mph, back-spin rpm,
// side-spin rpm, VLA, HLA, descent, apex, flight time, type".
var csvFields = []string{
	"counter", "carry_yds", "total_yds", "side_dest_yds", "smash",
	"club_speed_mph", "ball_speed_mph", "back_spin_rpm", "side_spin_rpm",
	"vla_deg", "hla_deg", "descent_deg", "apex_ft", "flight_time_s", "type",
}

// CSVLogEntry is one shot-log line. Fields unknown to the core (carry,
// total, side dest, smash, club speed, descent, apex, flight time — none
// of which this module computes) are emitted as "NA" per spec.md §6.
type CSVLogEntry struct {
	Counter      int
	Result       ShotResult
	FlightTimeS  *float64
	ShotType     string
}

// WriteCSVHeader writes the column header line.
func WriteCSVHeader(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	return cw.Write(csvFields)
}

// AppendCSVLine writes one shot-log line to w.
func AppendCSVLine(w io.Writer, e CSVLogEntry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	mps2mph := func(v float64) float64 { return v * 2.23694 }

	row := []string{
		fmt.Sprintf("%d", e.Counter),
		"NA", // carry_yds: not computed by this core
		"NA", // total_yds
		"NA", // side_dest_yds
		"NA", // smash
		"NA", // club_speed_mph
		formatFloat(mps2mph(e.Result.BallSpeedMPS)),
		formatFloat(e.Result.BackSpinRPM),
		formatFloat(e.Result.SideSpinRPM),
		formatFloat(e.Result.VLADeg),
		formatFloat(e.Result.HLADeg),
		"NA", // descent_deg
		"NA", // apex_ft
		formatOptionalFloat(e.FlightTimeS),
		emptyAsNA(e.ShotType),
	}
	return cw.Write(row)
}

func formatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	return fmt.Sprintf("%.2f", v)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return "NA"
	}
	return formatFloat(*v)
}

func emptyAsNA(s string) string {
	if s == "" {
		return "NA"
	}
	return s
}
