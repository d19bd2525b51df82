package fsm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueuePopReturnsShutdownBeforeRegularEvents(t *testing.T) {
	q := NewQueue()
	q.Push(BeginWaitingForBallPlaced, nil)
	q.Push(Shutdown, nil)

	item, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, Shutdown, item.Event)
}

func TestQueuePopIsFIFOWithinLane(t *testing.T) {
	q := NewQueue()
	q.Push(Restart, "a")
	q.Push(Restart, "b")

	first, _ := q.Pop()
	second, _ := q.Pop()
	assert.Equal(t, "a", first.Payload)
	assert.Equal(t, "b", second.Payload)
}

func TestMachineRunsTransitionsAndStops(t *testing.T) {
	m := New(InitializingCam1, nil)
	m.On(InitializingCam1, Restart, func(any) (State, error) {
		return WaitingForBall, nil
	})

	go m.Run()
	m.Dispatch(Restart, nil)

	require.Eventually(t, func() bool {
		return m.State() == WaitingForBall
	}, time.Second, time.Millisecond)

	m.Stop()
}

func TestMachineUnknownTransitionIsIgnoredNotFatal(t *testing.T) {
	m := New(InitializingCam1, nil)
	m.On(InitializingCam1, Restart, func(any) (State, error) {
		return WaitingForBall, nil
	})

	go m.Run()
	m.Dispatch(CheckForBallStable, nil) // no handler registered from InitializingCam1
	m.Dispatch(Restart, nil)

	require.Eventually(t, func() bool {
		return m.State() == WaitingForBall
	}, time.Second, time.Millisecond)

	m.Stop()
}

func TestAfterTimeoutCanBeCancelled(t *testing.T) {
	m := New(InitializingCam1, nil)
	fired := make(chan struct{}, 1)
	m.On(InitializingCam1, CheckForBallStable, func(any) (State, error) {
		fired <- struct{}{}
		return InitializingCam1, nil
	})

	go m.Run()
	stop := m.AfterTimeout(50*time.Millisecond, CheckForBallStable, nil)
	stop()

	select {
	case <-fired:
		t.Fatal("timer fired after being cancelled")
	case <-time.After(150 * time.Millisecond):
	}

	m.Stop()
}
