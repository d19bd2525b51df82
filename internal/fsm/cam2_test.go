package fsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitrac/lm/internal/obslog"
)

type fakeCam2Hooks struct {
	armedSent  bool
	triggered  bool
	sendCalled bool
}

func (f *fakeCam2Hooks) SendArmedStatus() error { f.armedSent = true; return nil }
func (f *fakeCam2Hooks) WaitForExternalTrigger() (bool, error) {
	return f.triggered, nil
}
func (f *fakeCam2Hooks) CaptureAndSendImage() error { f.sendCalled = true; return nil }

// TestCam2WaitsForArmMessageBeforeArming verifies the fix for spec.md §5's
// ordering contract: InitializingCam2's Restart handler must NOT
// self-dispatch CameraArmMessageReceived. Only an explicit dispatch (which
// in production comes from the IPC listener observing Cam1's
// RequestForCamera2Image) may advance past WaitingForCameraArmMessage.
func TestCam2WaitsForArmMessageBeforeArming(t *testing.T) {
	log := obslog.NewBuffer(20)
	m := New(InitializingCam2, log)
	hooks := &fakeCam2Hooks{triggered: true}
	NewCam2(hooks, m)

	go m.Run()
	m.Dispatch(Restart, nil)

	require.Eventually(t, func() bool {
		return m.State() == WaitingForCameraArmMessage
	}, time.Second, time.Millisecond)

	// Give the (absent) self-dispatch a chance to have fired if the bug
	// were still present.
	time.Sleep(20 * time.Millisecond)
	assert.False(t, hooks.armedSent, "SendArmedStatus must not run before an arm message is actually dispatched")

	m.Dispatch(CameraArmMessageReceived, nil)

	require.Eventually(t, func() bool {
		return hooks.sendCalled
	}, time.Second, time.Millisecond)
	assert.True(t, hooks.armedSent)

	m.Stop()
}

// TestCam2TriggerInWrongStateIsIgnoredNotActedOn exercises the "trigger in
// the wrong state" case from spec.md §5: an ExternalTrigger delivered
// before Cam2 has been armed has no registered transition in
// InitializingCam2, so it must not call CaptureAndSendImage.
func TestCam2TriggerInWrongStateIsIgnoredNotActedOn(t *testing.T) {
	log := obslog.NewBuffer(20)
	m := New(InitializingCam2, log)
	hooks := &fakeCam2Hooks{triggered: true}
	NewCam2(hooks, m)

	go m.Run()
	m.Dispatch(ExternalTrigger, nil)

	time.Sleep(20 * time.Millisecond)
	assert.False(t, hooks.sendCalled)

	m.Stop()
}
