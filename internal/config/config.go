// Package config loads the PiTrac core's configuration tree once at
// startup and hands out an immutable value. There is no package-level
// mutable configuration anywhere in this module: every component takes a
// *Config (or a narrower sub-struct of one) through its constructor.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path, relative to the repository root, looked
// up for a tuning file by default. The repository ships no file at this
// path; MustLoadDefault then falls back to Default().
const DefaultConfigPath = "config/pitrac.defaults.json"

// Config is the root of the dotted-key configuration tree described in
// spec.md §6. Each top-level field corresponds to one dotted-key family.
type Config struct {
	Strobing   StrobingConfig   `json:"strobing"`
	BallID     BallIDConfig     `json:"ball_identification"`
	Exposure   ExposureConfig   `json:"ball_exposure_selection"`
	Spin       SpinConfig       `json:"spin_analysis"`
	Cameras    CamerasConfig    `json:"cameras"`
	IPC        IPCConfig        `json:"ipc"`
}

// StrobingConfig governs pulse train construction (spec.md §4.1).
type StrobingConfig struct {
	PulseVectorDriverMs []float64 `json:"pulse_vector_driver"`
	PulseVectorPutterMs []float64 `json:"pulse_vector_putter"`
	OnPulseBitsFast     int       `json:"on_pulse_bits_fast"`
	OnPulseBitsSlow     int       `json:"on_pulse_bits_slow"`
	BaudFast            int       `json:"baud_fast"`
	BaudSlow            int       `json:"baud_slow"`
	StandardSlowdownPct float64   `json:"standard_slowdown_pct"`
	PuttingSlowdownPct  float64   `json:"putting_slowdown_pct"`
}

// RegimeHoughConfig is the per-regime ball-identification tuning applied in
// the detector's pre-processing and Hough passes (spec.md §4.2).
type RegimeHoughConfig struct {
	PreCannyBlurSize   int     `json:"pre_canny_blur_size"`
	CannyLow           float64 `json:"canny_low"`
	CannyHigh          float64 `json:"canny_high"`
	PostCannyBlurSize  int     `json:"post_canny_blur_size"`
	HoughDP            float64 `json:"hough_dp"`
	HoughParam1        float64 `json:"hough_param1"`
	HoughParam2Min     float64 `json:"hough_param2_min"`
	HoughParam2Max     float64 `json:"hough_param2_max"`
	HoughParam2Step    float64 `json:"hough_param2_step"`
	MinKeep            int     `json:"min_keep"`
	MaxKeep            int     `json:"max_keep"`
	MinRadiusPx        float64 `json:"min_radius_px"`
	MaxRadiusPx        float64 `json:"max_radius_px"`
}

// BallIDConfig groups the detector's per-regime tuning plus the radius
// narrowing and best-circle refinement passes.
type BallIDConfig struct {
	Placed  RegimeHoughConfig `json:"placed"`
	Strobed RegimeHoughConfig `json:"strobed"`
	Putting RegimeHoughConfig `json:"putting"`

	NarrowingEnabled   bool    `json:"radius_narrowing_enabled"`
	NarrowingTopN      int     `json:"radius_narrowing_top_n"`
	NarrowingRatioMin  float64 `json:"radius_narrowing_ratio_min"`
	NarrowingRatioMax  float64 `json:"radius_narrowing_ratio_max"`

	BestCircleEnabled  bool    `json:"best_circle_enabled"`
	BestCircleCropMult float64 `json:"best_circle_crop_mult"`
	BestCircleByLargest bool   `json:"best_circle_select_largest"` // open question #3: selectable strategy

	ScoreAlpha float64 `json:"score_alpha"`
	ScoreBeta  float64 `json:"score_beta"`
	ScoreGamma float64 `json:"score_gamma"`
}

// ExposureConfig tunes the exposure selector's filter cascade and interval
// correlation (spec.md §4.4).
type ExposureConfig struct {
	MaxColorDiffStandard float64 `json:"max_color_diff_standard"`
	MaxColorDiffPutting  float64 `json:"max_color_diff_putting"`
	MaxRadiusPct         float64 `json:"max_radius_pct"`
	MinDistPx            float64 `json:"min_dist_px"`
	MinLaunchAngleDeg    float64 `json:"min_launch_angle_deg"`
	MaxLaunchAngleDeg    float64 `json:"max_launch_angle_deg"`
	MinLaunchAnglePutDeg float64 `json:"min_launch_angle_putting_deg"`
	MaxLaunchAnglePutDeg float64 `json:"max_launch_angle_putting_deg"`
	MaxRetain            int     `json:"max_retain"`
	MaxOffTrajectoryPx   float64 `json:"max_off_trajectory_px"`
	QualityGapFactor     float64 `json:"quality_gap_factor"`
	MaxRadiusChangePct   float64 `json:"max_radius_change_pct"`
	OverlapMarginPct     float64 `json:"overlap_margin_pct"`
	OverlapOnTrajTolPx   float64 `json:"overlap_on_trajectory_tolerance_px"`
	CollapsePenalty      float64 `json:"collapse_penalty"`
	StandardSlowdownPct  float64 `json:"standard_slowdown_pct"`
	PuttingSlowdownPct   float64 `json:"putting_slowdown_pct"`
}

// SpinConfig tunes the Gabor filter bank and the coarse/fine rotation
// search (spec.md §4.5).
type SpinConfig struct {
	CoarseX SweepConfig `json:"coarse_x"`
	CoarseY SweepConfig `json:"coarse_y"`
	CoarseZ SweepConfig `json:"coarse_z"`

	FineStepDeg float64 `json:"fine_step_deg"`

	GaborOrientations  int     `json:"gabor_orientations"`
	GaborSigma         float64 `json:"gabor_sigma"`
	GaborLambda        float64 `json:"gabor_lambda"`
	GaborGamma         float64 `json:"gabor_gamma"`
	GaborPsi           float64 `json:"gabor_psi"`
	GaborKernelSize    int     `json:"gabor_kernel_size"`
	WhitePctMin        float64 `json:"white_pct_min"`
	WhitePctMax        float64 `json:"white_pct_max"`
	ReflectionCutoffPct float64 `json:"reflection_cutoff_pct"`
	IgnoreRadiusRatio  float64 `json:"ignore_radius_ratio"`
	IsolateRadiusRatio float64 `json:"isolate_radius_ratio"`

	ScoreW float64 `json:"score_w"`
	ScoreP float64 `json:"score_p"`
	ScoreS float64 `json:"score_s"`

	Serial bool `json:"serialize_for_debug"`
}

// SweepConfig describes one axis of the rotation-search grid.
type SweepConfig struct {
	StartDeg float64 `json:"start_deg"`
	EndDeg   float64 `json:"end_deg"`
	StepDeg  float64 `json:"step_deg"`
}

// CameraConfig is one camera's intrinsics and extrinsics (spec.md §3).
type CameraConfig struct {
	FocalLengthMM    float64 `json:"focal_length_mm"`
	SensorWidthMM    float64 `json:"sensor_width_mm"`
	SensorHeightMM   float64 `json:"sensor_height_mm"`
	ResolutionX      int     `json:"resolution_x"`
	ResolutionY      int     `json:"resolution_y"`
	PositionXMeters  float64 `json:"position_x_m"`
	PositionYMeters  float64 `json:"position_y_m"`
	PositionZMeters  float64 `json:"position_z_m"`
	PanDeg           float64 `json:"pan_deg"`
	TiltDeg          float64 `json:"tilt_deg"`
	ShutterTimeUs    float64 `json:"shutter_time_us"`
	GainDb           float64 `json:"gain_db"`
}

// CamerasConfig holds both cameras and the known ball real-world radius.
type CamerasConfig struct {
	Cam1           CameraConfig `json:"cam1"`
	Cam2           CameraConfig `json:"cam2"`
	BallRadiusM    float64      `json:"ball_radius_m"`
	OffsetXMeters  float64      `json:"offset_x_m"`
	OffsetYMeters  float64      `json:"offset_y_m"`
	OffsetZMeters  float64      `json:"offset_z_m"`
}

// IPCConfig tunes the cross-process message broker (spec.md §6).
type IPCConfig struct {
	Cam2ImageTimeoutMs int `json:"cam2_image_timeout_ms"`
	StabilizationMs    int `json:"stabilization_timeout_ms"`
}

// Default returns the baked-in defaults used when no config file is
// supplied, or to fill a partially-specified one. Values are drawn from
// spec.md's examples (e.g. the two named pulse trains, the end-to-end test
// scenarios' expected tolerances).
func Default() *Config {
	return &Config{
		Strobing: StrobingConfig{
			PulseVectorDriverMs: []float64{3, 4.5, 6.75, 10.1, 15.2},
			PulseVectorPutterMs: []float64{10, 14, 19.6, 27.4},
			OnPulseBitsFast:     3,
			OnPulseBitsSlow:     8,
			BaudFast:            1_000_000,
			BaudSlow:            200_000,
			StandardSlowdownPct: 0.02,
			PuttingSlowdownPct:  0.01,
		},
		BallID: BallIDConfig{
			Placed:  RegimeHoughConfig{PreCannyBlurSize: 5, CannyLow: 50, CannyHigh: 150, PostCannyBlurSize: 3, HoughDP: 1.2, HoughParam1: 100, HoughParam2Min: 20, HoughParam2Max: 60, HoughParam2Step: 2, MinKeep: 1, MaxKeep: 3, MinRadiusPx: 10, MaxRadiusPx: 400},
			Strobed: RegimeHoughConfig{PreCannyBlurSize: 3, CannyLow: 40, CannyHigh: 120, PostCannyBlurSize: 3, HoughDP: 1.0, HoughParam1: 100, HoughParam2Min: 15, HoughParam2Max: 50, HoughParam2Step: 2, MinKeep: 3, MaxKeep: 20, MinRadiusPx: 5, MaxRadiusPx: 200},
			Putting: RegimeHoughConfig{PreCannyBlurSize: 5, CannyLow: 50, CannyHigh: 150, PostCannyBlurSize: 3, HoughDP: 1.2, HoughParam1: 100, HoughParam2Min: 18, HoughParam2Max: 55, HoughParam2Step: 2, MinKeep: 2, MaxKeep: 12, MinRadiusPx: 8, MaxRadiusPx: 300},
			NarrowingEnabled:    true,
			NarrowingTopN:       5,
			NarrowingRatioMin:   0.8,
			NarrowingRatioMax:   1.2,
			BestCircleEnabled:   true,
			BestCircleCropMult:  1.5,
			BestCircleByLargest: false,
			ScoreAlpha: 1.0,
			ScoreBeta:  1.0,
			ScoreGamma: 0.05,
		},
		Exposure: ExposureConfig{
			MaxColorDiffStandard: 2500,
			MaxColorDiffPutting:  1800,
			MaxRadiusPct:         0.35,
			MinDistPx:            40,
			MinLaunchAngleDeg:    -5,
			MaxLaunchAngleDeg:    5,
			MinLaunchAnglePutDeg: -2,
			MaxLaunchAnglePutDeg: 2,
			MaxRetain:            12,
			MaxOffTrajectoryPx:   15,
			QualityGapFactor:     2.0,
			MaxRadiusChangePct:   0.4,
			OverlapMarginPct:     0.1,
			OverlapOnTrajTolPx:   6,
			CollapsePenalty:      1.7,
			StandardSlowdownPct:  0.02,
			PuttingSlowdownPct:   0.01,
		},
		Spin: SpinConfig{
			CoarseX: SweepConfig{StartDeg: -42, EndDeg: 42, StepDeg: 6},
			CoarseY: SweepConfig{StartDeg: -30, EndDeg: 30, StepDeg: 5},
			CoarseZ: SweepConfig{StartDeg: -50, EndDeg: 60, StepDeg: 6},
			FineStepDeg:         1,
			GaborOrientations:   32,
			GaborSigma:          4,
			GaborLambda:         10,
			GaborGamma:          0.5,
			GaborPsi:            0,
			GaborKernelSize:     21,
			WhitePctMin:         0.38,
			WhitePctMax:         0.44,
			ReflectionCutoffPct: 0.01,
			IgnoreRadiusRatio:   0.92,
			IsolateRadiusRatio:  1.05,
			ScoreW: 50,
			ScoreP: 2,
			ScoreS: 10,
			Serial: false,
		},
		Cameras: CamerasConfig{
			Cam1: CameraConfig{FocalLengthMM: 6, SensorWidthMM: 6.3, SensorHeightMM: 4.7, ResolutionX: 1456, ResolutionY: 1088, ShutterTimeUs: 2000},
			Cam2: CameraConfig{FocalLengthMM: 6, SensorWidthMM: 6.3, SensorHeightMM: 4.7, ResolutionX: 1456, ResolutionY: 1088, ShutterTimeUs: 2000, PositionXMeters: 0.35},
			BallRadiusM: 0.02135,
		},
		IPC: IPCConfig{
			Cam2ImageTimeoutMs: 4000,
			StabilizationMs:    1000,
		},
	}
}

// Load reads a JSON configuration tree from path, applying it on top of
// Default() so a partial file is always safe (spec.md §6 "Configuration
// input"). Mirrors the teacher's LoadTuningConfig: validated extension and
// file-size guard, read-once, returned as an immutable value.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks invariants that must hold for the core to run safely.
func (c *Config) Validate() error {
	if len(c.Strobing.PulseVectorDriverMs) == 0 {
		return fmt.Errorf("strobing.pulse_vector_driver must not be empty")
	}
	if len(c.Strobing.PulseVectorPutterMs) == 0 {
		return fmt.Errorf("strobing.pulse_vector_putter must not be empty")
	}
	if c.Strobing.BaudFast <= 0 || c.Strobing.BaudSlow <= 0 {
		return fmt.Errorf("strobing baud rates must be positive")
	}
	if c.Cameras.BallRadiusM <= 0 {
		return fmt.Errorf("cameras.ball_radius_m must be positive")
	}
	if c.IPC.Cam2ImageTimeoutMs <= 0 {
		return fmt.Errorf("ipc.cam2_image_timeout_ms must be positive")
	}
	return nil
}

// MustLoadDefault loads DefaultConfigPath, searching from the current
// directory up through common parents, and falls back to Default() if no
// file is found. Intended for test setup.
func MustLoadDefault() *Config {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,
		"../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := Load(path); err == nil {
			return cfg
		}
	}
	return Default()
}
