// Command shotlog prints recent shots from the sqlite shot history and
// optionally renders the go-echarts HTML summary (spec.md §6 "Shot log",
// "Result record to simulator adapters").
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/pitrac/lm/internal/result"
)

var (
	dbPath   = flag.String("db-path", "shots.db", "Path to sqlite shot history database")
	limit    = flag.Int("limit", 20, "Number of recent shots to print")
	htmlOut  = flag.String("html-out", "", "If set, render a go-echarts HTML summary to this path")
	csvOut   = flag.String("csv-out", "", "If set, write the recent shots as a CSV shot log to this path")
	plotOut  = flag.String("plot-out", "", "If set, render a gonum/plot trajectory PNG to this path")
)

func main() {
	flag.Parse()

	store, err := result.OpenStore(*dbPath)
	if err != nil {
		log.Fatalf("open shot store: %v", err)
	}
	defer store.Close()

	shots, err := store.RecentShots(*limit)
	if err != nil {
		log.Fatalf("read recent shots: %v", err)
	}

	fmt.Printf("%-6s %-10s %-8s %-8s %-10s %-10s\n", "speed", "hla_deg", "vla_deg", "back_rpm", "side_rpm", "club")
	for _, s := range shots {
		fmt.Printf("%-6.1f %-10.2f %-8.2f %-8.0f %-10.0f %-10s\n", s.BallSpeedMPS, s.HLADeg, s.VLADeg, s.BackSpinRPM, s.SideSpinRPM, s.Club)
	}

	if *csvOut != "" {
		if err := writeCSV(*csvOut, shots); err != nil {
			log.Fatalf("write csv: %v", err)
		}
	}

	if *htmlOut != "" {
		if err := writeHTML(*htmlOut, shots); err != nil {
			log.Fatalf("render html summary: %v", err)
		}
	}

	if *plotOut != "" {
		if err := result.RenderTrajectoryPlot(shots, *plotOut); err != nil {
			log.Fatalf("render trajectory plot: %v", err)
		}
	}
}

func writeCSV(path string, shots []result.ShotResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := result.WriteCSVHeader(f); err != nil {
		return err
	}
	for i, s := range shots {
		entry := result.CSVLogEntry{Counter: i + 1, Result: s}
		if err := result.AppendCSVLine(f, entry); err != nil {
			return err
		}
	}
	return nil
}

func writeHTML(path string, shots []result.ShotResult) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return result.RenderSummaryHTML(f, shots)
}
