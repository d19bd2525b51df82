package fsm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/obslog"
)

type fakeCam1Hooks struct {
	armed     bool
	ballFound bool
}

func (f *fakeCam1Hooks) SimulatorArmed() (bool, error)   { return f.armed, nil }
func (f *fakeCam1Hooks) DetectBallPlaced() (bool, error) { return f.ballFound, nil }
func (f *fakeCam1Hooks) BallStillAtRest() (bool, error)  { return true, nil }
func (f *fakeCam1Hooks) ArmCamera2AndFirePriming() error { return nil }
func (f *fakeCam1Hooks) WatchForBallHit() (bool, error)  { return true, nil }
func (f *fakeCam1Hooks) FireShotPulses() error           { return nil }
func (f *fakeCam1Hooks) ProcessShotAndSendResult() error { return nil }

// TestCam1TimesOutWaitingForCam2Image implements spec.md §8 scenario 6:
// after BallHit, a CheckForCam2ImageReceived timeout without
// Camera2ImageReceived restarts the machine and logs an error containing
// "Timed out waiting for Cam2Image".
func TestCam1TimesOutWaitingForCam2Image(t *testing.T) {
	cfg := config.Default()
	cfg.IPC.Cam2ImageTimeoutMs = 40

	log := obslog.NewBuffer(20)
	m := New(BallHitNowWaitingForCam2Image, log)
	hooks := &fakeCam1Hooks{armed: true, ballFound: true}
	NewCam1(hooks, cfg, m)
	m.On(InitializingCam1, Restart, func(any) (State, error) {
		armed, _ := hooks.SimulatorArmed()
		if armed {
			return WaitingForBall, nil
		}
		return WaitingForSimulatorArmed, nil
	})

	go m.Run()
	m.Dispatch(CheckForCam2ImageReceived, nil)

	require.Eventually(t, func() bool {
		return m.State() == WaitingForBall
	}, time.Second, time.Millisecond)

	found := false
	for _, line := range log.Recent(20) {
		if strings.Contains(line, "Timed out waiting for Cam2Image") {
			found = true
		}
	}
	assert.True(t, found, "expected log to contain timeout message, got: %v", log.Recent(20))

	m.Stop()
}

// TestCam1ErrorSinkReceivesTransitionError ensures a transition error is
// not only logged locally but also handed to Machine.ErrorSink, which is
// how spec.md §7's "error result sent upstream" is actually produced.
func TestCam1ErrorSinkReceivesTransitionError(t *testing.T) {
	cfg := config.Default()
	cfg.IPC.Cam2ImageTimeoutMs = 40

	log := obslog.NewBuffer(20)
	m := New(BallHitNowWaitingForCam2Image, log)
	hooks := &fakeCam1Hooks{armed: true, ballFound: true}
	NewCam1(hooks, cfg, m)

	var gotErr error
	var gotRecent []string
	done := make(chan struct{})
	m.ErrorSink = func(err error, recent []string) {
		gotErr = err
		gotRecent = recent
		close(done)
	}

	go m.Run()
	m.Dispatch(CheckForCam2ImageReceived, nil)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ErrorSink was never called")
	}

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "Timed out waiting for Cam2Image")
	assert.NotEmpty(t, gotRecent)

	m.Stop()
}
