// Command calibrate solves for a camera's focal length from a ball of
// known radius photographed at a known distance, printing the solved
// focal length and the config key it belongs under (SPEC_FULL.md §10
// "Calibration mode", supplemented from the original implementation's
// calibration step, not present in spec.md's distillation).
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/geometry"
	"github.com/pitrac/lm/internal/imaging"
)

var (
	configFile    = flag.String("config", config.DefaultConfigPath, "Path to JSON tuning configuration file")
	camName       = flag.String("camera", "cam1", "Which camera entry to calibrate against: cam1 or cam2")
	radiusPx      = flag.Float64("radius-px", 0, "Measured ball radius in the calibration photo, pixels")
	knownDistance = flag.Float64("known-distance-m", 0, "Known distance from camera to ball, metres")
)

func main() {
	flag.Parse()

	if *radiusPx <= 0 || *knownDistance <= 0 {
		log.Fatal("-radius-px and -known-distance-m are both required and must be positive")
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Printf("using default configuration: %v", err)
		cfg = config.Default()
	}

	var camCfg config.CameraConfig
	switch *camName {
	case "cam1":
		camCfg = cfg.Cameras.Cam1
	case "cam2":
		camCfg = cfg.Cameras.Cam2
	default:
		log.Fatalf("unknown -camera %q (want cam1 or cam2)", *camName)
	}

	cam := imaging.CameraFromConfig(camCfg)
	ball := imaging.Ball{RadiusPx: *radiusPx}

	focalLengthMM := geometry.CalibrateFocalLength(cam, ball, cfg.Cameras.BallRadiusM, *knownDistance)

	fmt.Printf("solved focal_length_mm for %s: %.4f\n", *camName, focalLengthMM)
	fmt.Printf("paste into cameras.%s.focal_length_mm in your config file.\n", *camName)

	// Round-trip check: does the solved focal length reproduce the known
	// distance from the same radius measurement?
	check := cam
	check.FocalLengthMM = focalLengthMM
	reproduced := geometry.DistanceFromRadius(check, ball, cfg.Cameras.BallRadiusM)
	fmt.Printf("round-trip check: reproduces distance %.4f m (target %.4f m)\n", reproduced, *knownDistance)
}
