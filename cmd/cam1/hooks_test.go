package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/detector"
	"github.com/pitrac/lm/internal/exposure"
	"github.com/pitrac/lm/internal/fsm"
	"github.com/pitrac/lm/internal/imaging"
	"github.com/pitrac/lm/internal/obslog"
	"github.com/pitrac/lm/internal/pulse"
)

var _ fsm.Cam1Hooks = (*cam1Hooks)(nil)

func newTestHooks(t *testing.T) *cam1Hooks {
	t.Helper()
	cfg := config.Default()
	return &cam1Hooks{
		cfg:      cfg,
		frames:   newMockFrameSource(cfg.Cameras.Cam1),
		detector: detector.New(cfg),
		selector: exposure.New(cfg),
		writer:   pulse.NewMockWriter(),
		log:      obslog.NewBuffer(obslog.DefaultCapacity),
	}
}

func TestSimulatorArmedIsAlwaysReady(t *testing.T) {
	h := newTestHooks(t)
	armed, err := h.SimulatorArmed()
	require.NoError(t, err)
	assert.True(t, armed)
}

func TestDetectBallPlacedOnBlankFrameFindsNothing(t *testing.T) {
	h := newTestHooks(t)
	found, err := h.DetectBallPlaced()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, h.lastPlacedBall)
}

func TestBallStillAtRestWithoutPriorBallReturnsFalse(t *testing.T) {
	h := newTestHooks(t)
	stable, err := h.BallStillAtRest()
	require.NoError(t, err)
	assert.False(t, stable)
}

func TestWatchForBallHitWithoutPriorBallReturnsFalse(t *testing.T) {
	h := newTestHooks(t)
	hit, err := h.WatchForBallHit()
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestFireShotPulsesSendsDriverThenFlush(t *testing.T) {
	h := newTestHooks(t)
	mock := h.writer.(*pulse.MockWriter)

	require.NoError(t, h.FireShotPulses())
	assert.Len(t, mock.Sent, 2)
}

func TestRoiAroundFallsBackToDefaultRadius(t *testing.T) {
	b := imaging.Ball{CenterXPx: 100, CenterYPx: 50, RadiusPx: 0}
	roi := roiAround(b)
	assert.Greater(t, roi.Dx(), 0)
	assert.Greater(t, roi.Dy(), 0)
}
