package fsm

import (
	"sync"
	"time"

	"github.com/pitrac/lm/internal/obslog"
)

// Transition handles one event from one state, returning the next state
// (or the same state to stay put) and an error if the transition failed.
type Transition func(payload any) (State, error)

// Machine drives one state table with a single worker goroutine (spec.md
// §4.6, §5 "Scheduling": "a single worker thread serialising all event
// handling; work from that thread does not block on network I/O").
type Machine struct {
	mu      sync.Mutex
	state   State
	queue   *Queue
	table   map[State]map[Event]Transition
	Log     *obslog.Buffer
	running *runningFlag

	// ErrorSink, if set, is called with every non-nil transition error and
	// the log's recent lines, so the caller can emit a status message
	// upstream (spec.md §7 "Recoverable errors emit a status message to
	// the UI channel... embedded in any error result sent upstream").
	ErrorSink func(err error, recent []string)

	wg sync.WaitGroup
}

// runningFlag is the Ctrl-C "running" flag from spec.md §5
// "Cancellation and timeouts": set false to stop all loops and unblock
// the queue pop.
type runningFlag struct {
	mu      sync.Mutex
	running bool
}

func newRunningFlag() *runningFlag {
	return &runningFlag{running: true}
}

func (r *runningFlag) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.running = false
}

func (r *runningFlag) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// New builds a Machine starting in initial, with log embedded so error
// results can carry recent context (spec.md §7).
func New(initial State, log *obslog.Buffer) *Machine {
	if log == nil {
		log = obslog.NewBuffer(obslog.DefaultCapacity)
	}
	return &Machine{
		state:   initial,
		queue:   NewQueue(),
		table:   make(map[State]map[Event]Transition),
		Log:     log,
		running: newRunningFlag(),
	}
}

// On registers the transition fired when event arrives while in from.
func (m *Machine) On(from State, event Event, t Transition) {
	if m.table[from] == nil {
		m.table[from] = make(map[Event]Transition)
	}
	m.table[from][event] = t
}

// State returns the machine's current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Dispatch enqueues an event for the worker to process.
func (m *Machine) Dispatch(e Event, payload any) {
	m.queue.Push(e, payload)
}

// AfterTimeout enqueues event after d elapses, unless stopped first; it
// models spec.md §5's "dedicated sleeping thread" timer shape (one-shot,
// grounded on TransitWorker's ticker goroutine with a stop channel).
func (m *Machine) AfterTimeout(d time.Duration, e Event, payload any) (stop func()) {
	stopCh := make(chan struct{})
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-t.C:
			if m.running.IsRunning() {
				m.Dispatch(e, payload)
			}
		case <-stopCh:
		}
	}()
	return func() { close(stopCh) }
}

// Run drains the event queue on the calling goroutine until Stop is
// called or the queue is closed. Intended to be run in its own goroutine
// by the caller (the "single worker thread" of spec.md §4.6).
func (m *Machine) Run() {
	for m.running.IsRunning() {
		item, ok := m.queue.Pop()
		if !ok {
			return
		}
		if item.Event == Shutdown {
			m.setState(Exiting)
			return
		}

		from := m.State()
		handler, ok := m.table[from][item.Event]
		if !ok {
			m.Log.Printf("fsm: no transition for event %s in state %s, ignoring", item.Event, from)
			continue
		}

		next, err := handler(item.Payload)
		if err != nil {
			m.Log.Printf("fsm: transition %s/%s error: %v", from, item.Event, err)
			if m.ErrorSink != nil {
				m.ErrorSink(err, m.Log.Recent(20))
			}
		}
		m.setState(next)
	}
}

// Stop sets the running flag false and closes the queue, unblocking Run.
func (m *Machine) Stop() {
	m.running.Stop()
	m.queue.Close()
	m.wg.Wait()
}
