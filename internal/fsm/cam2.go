package fsm

// Cam2Hooks is the set of domain actions the simpler Cam2 transition
// table calls into (spec.md §4.6 "Cam2 transitions are simpler").
type Cam2Hooks interface {
	SendArmedStatus() error
	WaitForExternalTrigger() (triggered bool, err error)
	CaptureAndSendImage() error
}

// NewCam2 builds the Cam2 state machine: InitializingCam2 ->
// WaitingForCameraArmMessage -> capture on external trigger -> send image
// via IPC -> restart.
func NewCam2(hooks Cam2Hooks, m *Machine) *Machine {
	m.On(InitializingCam2, Restart, func(any) (State, error) {
		// CameraArmMessageReceived is dispatched by the IPC listener only
		// once Cam1's RequestForCamera2Image actually arrives (spec.md §5
		// "Cam1's 'arm cam2' IPC must arrive before Cam2's hardware
		// trigger fires") — it is never self-dispatched here.
		return WaitingForCameraArmMessage, nil
	})

	m.On(WaitingForCameraArmMessage, CameraArmMessageReceived, func(any) (State, error) {
		if err := hooks.SendArmedStatus(); err != nil {
			return WaitingForCameraArmMessage, err
		}
		m.Dispatch(ExternalTrigger, nil)
		return WaitingForCameraArmMessage, nil
	})

	m.On(WaitingForCameraArmMessage, ExternalTrigger, func(any) (State, error) {
		triggered, err := hooks.WaitForExternalTrigger()
		if err != nil {
			return WaitingForCameraArmMessage, err
		}
		if !triggered {
			m.Dispatch(ExternalTrigger, nil)
			return WaitingForCameraArmMessage, nil
		}
		if err := hooks.CaptureAndSendImage(); err != nil {
			return WaitingForCameraArmMessage, err
		}
		m.Dispatch(Restart, nil)
		return InitializingCam2, nil
	})

	return m
}
