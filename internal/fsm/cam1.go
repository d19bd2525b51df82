package fsm

import (
	"time"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/pitracerr"
)

// Cam1Hooks is the set of domain actions the Cam1 transition table calls
// into; cmd/cam1 supplies the concrete implementation wiring detector,
// exposure, geometry, spin and ipc (spec.md §4.6 Cam1 transitions).
type Cam1Hooks interface {
	SimulatorArmed() (bool, error)
	DetectBallPlaced() (found bool, err error)
	BallStillAtRest() (stillThere bool, err error)
	ArmCamera2AndFirePriming() error
	WatchForBallHit() (hit bool, err error)
	FireShotPulses() error
	ProcessShotAndSendResult() error
}

// NewCam1 builds the Cam1 state machine wired per spec.md §4.6's table.
// The Cam2-image timeout comes from cfg.IPC.Cam2ImageTimeoutMs, or 4s when
// that is not positive.
func NewCam1(hooks Cam1Hooks, cfg *config.Config, m *Machine) *Machine {
	cam2ImageTimeout := time.Duration(cfg.IPC.Cam2ImageTimeoutMs) * time.Millisecond
	if cam2ImageTimeout <= 0 {
		cam2ImageTimeout = 4 * time.Second
	}
	stabilizationDelay := 1 * time.Second

	var cancelCam2Timeout func()

	m.On(InitializingCam1, Restart, func(any) (State, error) {
		armed, err := hooks.SimulatorArmed()
		if err != nil {
			return InitializingCam1, err
		}
		if armed {
			m.Dispatch(BeginWaitingForBallPlaced, nil)
			return WaitingForBall, nil
		}
		m.Dispatch(BeginWaitingForSimulatorArmed, nil)
		return WaitingForSimulatorArmed, nil
	})

	m.On(WaitingForSimulatorArmed, BeginWaitingForSimulatorArmed, func(any) (State, error) {
		armed, err := hooks.SimulatorArmed()
		if err != nil {
			return WaitingForSimulatorArmed, err
		}
		if armed {
			m.Dispatch(BeginWaitingForBallPlaced, nil)
			return WaitingForBall, nil
		}
		m.Dispatch(BeginWaitingForSimulatorArmed, nil)
		return WaitingForSimulatorArmed, nil
	})

	m.On(WaitingForBall, BeginWaitingForBallPlaced, func(any) (State, error) {
		found, err := hooks.DetectBallPlaced()
		if err != nil && !pitracerr.Is(err, pitracerr.KindDetectionMiss) {
			return WaitingForBall, err
		}
		if !found {
			m.Dispatch(BeginWaitingForBallPlaced, nil)
			return WaitingForBall, nil
		}
		m.AfterTimeout(stabilizationDelay, CheckForBallStable, nil)
		return WaitingForBallStabilization, nil
	})

	m.On(WaitingForBallStabilization, CheckForBallStable, func(any) (State, error) {
		stable, err := hooks.BallStillAtRest()
		if err != nil && !pitracerr.Is(err, pitracerr.KindDetectionMiss) {
			return WaitingForBall, err
		}
		if !stable {
			m.Dispatch(BeginWaitingForBallPlaced, nil)
			return WaitingForBall, nil
		}
		if err := hooks.ArmCamera2AndFirePriming(); err != nil {
			return WaitingForBall, err
		}
		m.Dispatch(BeginWatchingForBallHit, nil)
		return WaitingForCamera2PreImage, nil
	})

	m.On(WaitingForCamera2PreImage, Camera2PreImageReceived, func(any) (State, error) {
		m.Dispatch(BeginWatchingForBallHit, nil)
		return WaitingForBallHit, nil
	})

	m.On(WaitingForBallHit, BeginWatchingForBallHit, func(any) (State, error) {
		hit, err := hooks.WatchForBallHit()
		if err != nil {
			return WaitingForBallHit, err
		}
		if !hit {
			m.Dispatch(BeginWatchingForBallHit, nil)
			return WaitingForBallHit, nil
		}
		if err := hooks.FireShotPulses(); err != nil {
			return WaitingForBallHit, err
		}
		cancelCam2Timeout = m.AfterTimeout(cam2ImageTimeout, CheckForCam2ImageReceived, nil)
		return BallHitNowWaitingForCam2Image, nil
	})

	m.On(BallHitNowWaitingForCam2Image, Camera2ImageReceived, func(any) (State, error) {
		if cancelCam2Timeout != nil {
			cancelCam2Timeout()
			cancelCam2Timeout = nil
		}
		if err := hooks.ProcessShotAndSendResult(); err != nil {
			m.Log.Printf("fsm: shot processing error: %v", err)
		}
		m.Dispatch(BeginWaitingForBallPlaced, nil)
		return WaitingForBall, nil
	})

	m.On(BallHitNowWaitingForCam2Image, CheckForCam2ImageReceived, func(any) (State, error) {
		err := pitracerr.New(pitracerr.KindTimeout, "Timed out waiting for Cam2Image")
		m.Dispatch(Restart, nil)
		return InitializingCam1, err
	})

	return m
}
