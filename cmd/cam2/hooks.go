package main

import (
	"time"

	"periph.io/x/periph/conn/gpio"

	"github.com/pitrac/lm/internal/imaging"
	"github.com/pitrac/lm/internal/ipc"
	"github.com/pitrac/lm/internal/obslog"
)

// ipcSender is the narrow slice of Broker's API the hooks need, so tests
// can exercise them against any Transport rather than only *ipc.TCPTransport.
type ipcSender interface {
	Send(ipc.Message) error
}

// cam2Hooks implements fsm.Cam2Hooks (spec.md §4.6 "Cam2 transitions are
// simpler"): announce readiness over IPC, wait for the strobe pulse to
// trigger the camera's external-trigger input, then capture and send the
// resulting frame back to Cam1.
type cam2Hooks struct {
	frames     imaging.FrameSource
	broker     ipcSender
	triggerPin gpio.PinIO // nil in -simulate mode
	log        *obslog.Buffer
}

// SendArmedStatus tells Cam1 this process is armed and ready, satisfying
// Cam1's WaitingForCamera2PreImage wait (spec.md §4.6
// "Camera2PreImageReceived").
func (h *cam2Hooks) SendArmedStatus() error {
	return h.broker.Send(ipc.NewMessage(ipc.Camera2PreImage))
}

// WaitForExternalTrigger blocks for one polling interval waiting on the
// camera's external-trigger GPIO line (the same strobe pulse that
// triggers the shutter electrically), returning false on a timeout so the
// FSM loops back and checks again rather than blocking the worker thread
// indefinitely.
func (h *cam2Hooks) WaitForExternalTrigger() (bool, error) {
	if h.triggerPin == nil {
		// No physical trigger line in -simulate mode: treat every poll as
		// a trigger after a short delay, so the FSM still exercises the
		// capture/send path in development.
		time.Sleep(50 * time.Millisecond)
		return true, nil
	}
	return h.triggerPin.WaitForEdge(200 * time.Millisecond), nil
}

// CaptureAndSendImage reads one frame, encodes it and sends it to Cam1
// as a Camera2Image message (spec.md §4.6 "Camera2ImageReceived").
func (h *cam2Hooks) CaptureAndSendImage() error {
	img, err := h.frames.Read()
	if err != nil {
		return err
	}
	defer img.Close()

	data, err := imaging.EncodeMatPNG(img)
	if err != nil {
		return err
	}

	msg := ipc.NewMessage(ipc.Camera2Image)
	msg.Image = &ipc.ImagePayload{
		Width:       img.Cols(),
		Height:      img.Rows(),
		PixelFormat: "png",
		Data:        data,
	}
	return h.broker.Send(msg)
}
