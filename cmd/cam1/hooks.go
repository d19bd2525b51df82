package main

import (
	"image"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/detector"
	"github.com/pitrac/lm/internal/exposure"
	"github.com/pitrac/lm/internal/geometry"
	"github.com/pitrac/lm/internal/imaging"
	"github.com/pitrac/lm/internal/ipc"
	"github.com/pitrac/lm/internal/obslog"
	"github.com/pitrac/lm/internal/pitracerr"
	"github.com/pitrac/lm/internal/pulse"
	"github.com/pitrac/lm/internal/result"
	"github.com/pitrac/lm/internal/spin"
)

// ipcSender is the narrow slice of Broker's API the hooks need, so tests
// can exercise them against any Transport rather than only *ipc.TCPTransport.
type ipcSender interface {
	Send(ipc.Message) error
}

// cam1Hooks implements fsm.Cam1Hooks, wiring the detector, exposure
// selector, geometry solver, spin solver and IPC broker into the Cam1
// transition table (spec.md §4.6 Cam1 transitions).
type cam1Hooks struct {
	cfg      *config.Config
	frames   imaging.FrameSource
	detector *detector.Detector
	selector *exposure.Selector
	writer   pulse.Writer
	broker   ipcSender
	store    *result.Store
	log      *obslog.Buffer

	lastPlacedBall *imaging.Ball
	shotCounter    int

	// lastCam2Image is set by the broker-listener goroutine in main before
	// it dispatches Camera2ImageReceived; the FSM's single worker thread
	// guarantees ProcessShotAndSendResult runs only after that dispatch is
	// processed, so no additional locking is needed here (spec.md §5
	// "a single worker thread serialising all event handling").
	lastCam2Image *ipc.Message
}

func (h *cam1Hooks) SimulatorArmed() (bool, error) {
	// This build has no external simulator-arm handshake to wait on; the
	// core is always ready to start looking for a placed ball.
	return true, nil
}

func (h *cam1Hooks) DetectBallPlaced() (bool, error) {
	img, err := h.frames.Read()
	if err != nil {
		return false, err
	}
	defer img.Close()

	balls, err := h.detector.Detect(img, detector.RegimePlacedBall, detector.Reference{}, image.Rectangle{}, nil)
	if err != nil {
		if pitracerr.Is(err, pitracerr.KindDetectionMiss) {
			return false, nil
		}
		return false, err
	}
	b := balls[0]
	h.lastPlacedBall = &b
	return true, nil
}

func (h *cam1Hooks) BallStillAtRest() (bool, error) {
	if h.lastPlacedBall == nil {
		return false, nil
	}
	img, err := h.frames.Read()
	if err != nil {
		return false, err
	}
	defer img.Close()

	balls, err := h.detector.Detect(img, detector.RegimePlacedBall, detector.Reference{}, image.Rectangle{}, nil)
	if err != nil {
		if pitracerr.Is(err, pitracerr.KindDetectionMiss) {
			return false, nil
		}
		return false, err
	}
	current := balls[0]
	stable := current.PixelDistanceFrom(*h.lastPlacedBall) < h.cfg.Exposure.MinDistPx/4 &&
		current.RadiusChangePct(*h.lastPlacedBall) < 5
	h.lastPlacedBall = &current
	return stable, nil
}

func (h *cam1Hooks) ArmCamera2AndFirePriming() error {
	armMsg := ipc.NewMessage(ipc.RequestForCamera2Image)
	if err := h.broker.Send(armMsg); err != nil {
		return err
	}

	train := pulse.PrimingTrain(h.cfg, 3, 5)
	buf, err := train.Build()
	if err != nil {
		return err
	}
	return h.writer.Send(buf, train.BaudRate)
}

func (h *cam1Hooks) WatchForBallHit() (bool, error) {
	if h.lastPlacedBall == nil {
		return false, nil
	}
	img, err := h.frames.Read()
	if err != nil {
		return false, err
	}
	defer img.Close()

	balls, err := h.detector.Detect(img, detector.RegimePlacedBall, detector.Reference{}, image.Rectangle{}, nil)
	if err != nil {
		if pitracerr.Is(err, pitracerr.KindDetectionMiss) {
			// The ball vanishing from its rest position is itself evidence
			// of a hit: motion blur defeats the placed-ball detector.
			return true, nil
		}
		return false, err
	}
	moved := balls[0].PixelDistanceFrom(*h.lastPlacedBall) > h.cfg.Exposure.MinDistPx
	return moved, nil
}

func (h *cam1Hooks) FireShotPulses() error {
	train := pulse.NewTrain(h.cfg, pulse.RegimeDriver)
	buf, err := train.Build()
	if err != nil {
		return err
	}
	if err := h.writer.Send(buf, train.BaudRate); err != nil {
		return err
	}

	flush := pulse.FlushPulse(h.cfg, 20)
	flushBuf, err := flush.Build()
	if err != nil {
		return err
	}
	return h.writer.Send(flushBuf, flush.BaudRate)
}

func (h *cam1Hooks) ProcessShotAndSendResult() error {
	h.shotCounter++

	if h.lastCam2Image == nil || h.lastCam2Image.Image == nil {
		return pitracerr.New(pitracerr.KindIPC, "no cam2 image available for shot processing")
	}
	cam2Mat, err := imaging.DecodeMatPNG(h.lastCam2Image.Image.Data)
	if err != nil {
		return err
	}
	defer cam2Mat.Close()

	cam1Img, err := h.frames.Read()
	if err != nil {
		return err
	}
	defer cam1Img.Close()

	raw, err := h.detector.Detect(cam2Mat, detector.RegimeStrobed, detector.Reference{}, image.Rectangle{}, nil)
	if err != nil {
		return h.sendPartialResult(err)
	}

	centerX, centerY := float64(cam2Mat.Cols())/2, float64(cam2Mat.Rows())/2
	sel, err := h.selector.Select(raw, exposure.RegimeStandard, centerX, centerY, h.cfg.Strobing.PulseVectorDriverMs)
	if err != nil {
		return err
	}
	if len(sel.Balls) < 2 {
		return h.sendPartialResult(pitracerr.New(pitracerr.KindFilteringCollapse, "fewer than two exposures survived selection"))
	}

	cam2 := imaging.CameraFromConfig(h.cfg.Cameras.Cam2)

	faceBall := sel.Balls[sel.FaceBallIdx]
	pairBall := sel.Balls[sel.PairBallIdx]

	distFace := geometry.DistanceFromRadius(cam2, faceBall, h.cfg.Cameras.BallRadiusM)
	distPair := geometry.DistanceFromRadius(cam2, pairBall, h.cfg.Cameras.BallRadiusM)

	worldFace := geometry.PixelToWorld(cam2, faceBall, distFace)
	worldPair := geometry.PixelToWorld(cam2, pairBall, distPair)

	crossOffset := &geometry.WorldPoint{
		X: h.cfg.Cameras.OffsetXMeters,
		Y: h.cfg.Cameras.OffsetYMeters,
		Z: h.cfg.Cameras.OffsetZMeters,
	}
	delta := geometry.TwoBallDelta(worldFace, worldPair, crossOffset)

	intervalMs := h.cfg.Strobing.PulseVectorDriverMs[0]
	if sel.PairBallIdx < len(sel.IntervalsMs) && sel.IntervalsMs[sel.PairBallIdx] > 0 {
		intervalMs = sel.IntervalsMs[sel.PairBallIdx]
	}
	deltaT := intervalMs / 1000

	speed := geometry.VelocityMPS(delta, deltaT)
	hla := geometry.HorizontalLaunchAngleDeg(delta)
	vla := geometry.VerticalLaunchAngleDeg(delta)

	backSpin, sideSpin := h.solveSpin(cam2Mat, faceBall, pairBall, deltaT)

	res := result.ShotResult{
		BallSpeedMPS: speed,
		HLADeg:       hla,
		VLADeg:       vla,
		BackSpinRPM:  backSpin,
		SideSpinRPM:  sideSpin,
		Confidence:   1,
	}.Clamped(result.DefaultClamp)

	if _, err := h.store.InsertShot(time.Now().Unix(), res); err != nil {
		h.log.Printf("result store: %v", err)
	}

	resMsg := ipc.NewMessage(ipc.Results)
	resMsg.Scalar["ball_speed_mps"] = res.BallSpeedMPS
	resMsg.Scalar["hla_deg"] = res.HLADeg
	resMsg.Scalar["vla_deg"] = res.VLADeg
	resMsg.Scalar["back_spin_rpm"] = res.BackSpinRPM
	resMsg.Scalar["side_spin_rpm"] = res.SideSpinRPM
	return h.broker.Send(resMsg)
}

// sendPartialResult records a NA-spin result when the spin/geometry
// pipeline can't complete (spec.md §7 "KindFilteringCollapse... the
// caller should return a partial result with NA spin").
func (h *cam1Hooks) sendPartialResult(cause error) error {
	h.log.Printf("shot processing degraded: %v", cause)
	res := result.ShotResult{Message: cause.Error()}
	if _, err := h.store.InsertShot(time.Now().Unix(), res); err != nil {
		h.log.Printf("result store: %v", err)
	}
	msg := ipc.NewMessage(ipc.Error)
	msg.Text = cause.Error()
	msg.Recent = h.log.Recent(20)
	return h.broker.Send(msg)
}

// solveSpin runs the Gabor/rotation-search pipeline against the two
// exposure crops from the same strobed frame (spec.md §4.5), mapping the
// recovered rotation's X axis to backspin and Y axis to sidespin.
func (h *cam1Hooks) solveSpin(frame gocv.Mat, ball1, ball2 imaging.Ball, deltaT float64) (backSpinRPM, sideSpinRPM float64) {
	crop1, _ := imaging.Crop(frame, roiAround(ball1))
	defer crop1.Close()
	crop2, _ := imaging.Crop(frame, roiAround(ball2))
	defer crop2.Close()

	gray1 := imaging.ToGray(crop1)
	defer gray1.Close()
	gray2 := imaging.ToGray(crop2)
	defer gray2.Close()

	gabor1 := spin.GaborBank(gray1, h.cfg.Spin)
	defer gabor1.Close()
	gabor2 := spin.GaborBank(gray2, h.cfg.Spin)
	defer gabor2.Close()

	bin1, _ := spin.AdaptiveBinaryThreshold(gabor1, h.cfg.Spin.WhitePctMin, h.cfg.Spin.WhitePctMax)
	defer bin1.Close()
	bin2, _ := spin.AdaptiveBinaryThreshold(gabor2, h.cfg.Spin.WhitePctMin, h.cfg.Spin.WhitePctMax)
	defer bin2.Close()

	cx1, cy1 := float64(bin1.Cols())/2, float64(bin1.Rows())/2
	cx2, cy2 := float64(bin2.Cols())/2, float64(bin2.Rows())/2
	r1, r2 := ball1.Radius(), ball2.Radius()

	spin.RemoveReflections(bin1, gray1, cx1, cy1, r1, h.cfg.Spin.ReflectionCutoffPct, h.cfg.Spin.IsolateRadiusRatio)
	spin.RemoveReflections(bin2, gray2, cx2, cy2, r2, h.cfg.Spin.ReflectionCutoffPct, h.cfg.Spin.IsolateRadiusRatio)

	rot := spin.Search(bin1, bin2, cx1, cy1, r1, cx2, cy2, r2, h.cfg.Spin)
	flightRot := spin.NormalizeToFlightFrame(rot, spin.Rotation{})

	backSpinRPM = math.Abs(spin.RPM(flightRot.RX, deltaT))
	sideSpinRPM = spin.RPM(flightRot.RY, deltaT)
	return backSpinRPM, sideSpinRPM
}

func roiAround(b imaging.Ball) image.Rectangle {
	r := b.Radius()
	if r <= 0 {
		r = 20
	}
	pad := r * 1.4
	return image.Rect(
		int(b.CenterXPx-pad), int(b.CenterYPx-pad),
		int(b.CenterXPx+pad), int(b.CenterYPx+pad),
	)
}
