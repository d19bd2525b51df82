package ipc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrokerFansOutToAllSubscribers(t *testing.T) {
	a, b := NewChanPair(4)
	defer a.Close()
	defer b.Close()

	broker := NewBroker[*ChanTransport](a)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Monitor(ctx)

	_, ch1 := broker.Subscribe()
	_, ch2 := broker.Subscribe()

	msg := NewMessage(Status)
	require.NoError(t, b.Send(msg))

	select {
	case got := <-ch1:
		assert.Equal(t, msg.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber 1 never received message")
	}
	select {
	case got := <-ch2:
		assert.Equal(t, msg.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber 2 never received message")
	}
}

func TestBrokerDropsDuplicateMessageID(t *testing.T) {
	a, b := NewChanPair(4)
	defer a.Close()
	defer b.Close()

	broker := NewBroker[*ChanTransport](a)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Monitor(ctx)

	_, ch := broker.Subscribe()

	msg := NewMessage(Status)
	require.NoError(t, b.Send(msg))
	require.NoError(t, b.Send(msg)) // duplicate ID

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("never received first message")
	}

	select {
	case <-ch:
		t.Fatal("received duplicate message; broker should have deduped by ID")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	a, b := NewChanPair(4)
	defer a.Close()
	defer b.Close()

	broker := NewBroker[*ChanTransport](a)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go broker.Monitor(ctx)

	id, ch := broker.Subscribe()
	broker.Unsubscribe(id)

	require.NoError(t, b.Send(NewMessage(Status)))

	_, ok := <-ch
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestMessageCarriesScalarAndImagePayload(t *testing.T) {
	msg := NewMessage(Results)
	msg.Scalar["ball_speed_mps"] = 42.5
	msg.Image = &ImagePayload{Width: 1280, Height: 720, Stride: 1280, PixelFormat: "gray8", Data: []byte{1, 2, 3}}

	assert.Equal(t, 42.5, msg.Scalar["ball_speed_mps"])
	assert.Equal(t, 1280, msg.Image.Width)
}
