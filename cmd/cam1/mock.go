package main

import (
	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/config"
)

// mockFrameSource yields blank frames sized to the configured camera's
// resolution, for -simulate runs where no camera hardware is present
// (spec.md §10 "simulator mode"), mirroring pulse.MockWriter's role for
// the strobe output.
type mockFrameSource struct {
	width, height int
}

func newMockFrameSource(cam config.CameraConfig) *mockFrameSource {
	w, h := cam.ResolutionX, cam.ResolutionY
	if w <= 0 {
		w = 1456
	}
	if h <= 0 {
		h = 1088
	}
	return &mockFrameSource{width: w, height: h}
}

func (m *mockFrameSource) Read() (gocv.Mat, error) {
	return gocv.NewMatWithSize(m.height, m.width, gocv.MatTypeCV8UC3), nil
}

func (m *mockFrameSource) Close() error { return nil }
