package ipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTCPTransportRoundTripsMessage(t *testing.T) {
	addr := "127.0.0.1:18179"
	serverReady := make(chan *TCPTransport, 1)
	go func() {
		srv, err := ListenTCP(addr)
		require.NoError(t, err)
		serverReady <- srv
	}()

	time.Sleep(50 * time.Millisecond)
	client, err := DialTCP(addr)
	require.NoError(t, err)
	defer client.Close()

	server := <-serverReady
	defer server.Close()

	msg := NewMessage(Camera2Image)
	msg.Image = &ImagePayload{Width: 4, Height: 2, Stride: 4, PixelFormat: "gray8", Data: []byte{1, 2, 3, 4}}
	msg.Scalar["exposure_ms"] = 1.5

	require.NoError(t, client.Send(msg))

	got, err := server.Recv()
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
	assert.Equal(t, Camera2Image, got.Type)
	assert.Equal(t, 1.5, got.Scalar["exposure_ms"])
	require.NotNil(t, got.Image)
	assert.Equal(t, []byte{1, 2, 3, 4}, got.Image.Data)
}

func TestChanTransportRoundTrip(t *testing.T) {
	a, b := NewChanPair(1)
	msg := NewMessage(ControlMessage)
	require.NoError(t, a.Send(msg))
	got, err := b.Recv()
	require.NoError(t, err)
	assert.Equal(t, msg.ID, got.ID)
}
