package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitrac/lm/internal/config"
	"github.com/pitrac/lm/internal/fsm"
	"github.com/pitrac/lm/internal/ipc"
	"github.com/pitrac/lm/internal/obslog"
)

var _ fsm.Cam2Hooks = (*cam2Hooks)(nil)

func TestWaitForExternalTriggerSimulatedAlwaysFires(t *testing.T) {
	h := &cam2Hooks{triggerPin: nil, log: obslog.NewBuffer(obslog.DefaultCapacity)}
	triggered, err := h.WaitForExternalTrigger()
	require.NoError(t, err)
	assert.True(t, triggered)
}

func TestSendArmedStatusAndCaptureSendOverChanTransport(t *testing.T) {
	a, b := ipc.NewChanPair(4)
	cam2Broker := ipc.NewBroker[*ipc.ChanTransport](a)
	cam1Broker := ipc.NewBroker[*ipc.ChanTransport](b)
	defer cam2Broker.Close()
	defer cam1Broker.Close()

	id, ch := cam1Broker.Subscribe()
	defer cam1Broker.Unsubscribe(id)

	h := &cam2Hooks{
		frames: newMockFrameSource(config.Default().Cameras.Cam2),
		broker: cam2Broker,
		log:    obslog.NewBuffer(obslog.DefaultCapacity),
	}

	require.NoError(t, h.SendArmedStatus())
	msg := <-ch
	assert.Equal(t, ipc.Camera2PreImage, msg.Type)

	require.NoError(t, h.CaptureAndSendImage())
	msg = <-ch
	assert.Equal(t, ipc.Camera2Image, msg.Type)
	require.NotNil(t, msg.Image)
	assert.NotEmpty(t, msg.Image.Data)
}
