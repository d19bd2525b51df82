package ipc

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"tailscale.com/tsweb"

	"github.com/pitrac/lm/internal/pitracerr"
)

// dedupCapacity bounds the seen-ID set so a long-running broker doesn't
// grow it unboundedly; it only needs to cover in-flight retransmits, not
// a process lifetime's worth of shots.
const dedupCapacity = 4096

// Broker multiplexes a single Transport across any number of subscribers,
// direct generalisation of serialmux.SerialMux[T]: Monitor reads
// messages instead of lines, Send replaces SendCommand, and each
// subscriber gets its own Message channel instead of a string channel.
type Broker[T Transport] struct {
	transport T

	subscriberMu sync.Mutex
	subscribers  map[string]chan Message

	sendMu sync.Mutex

	seenMu    sync.Mutex
	seen      map[uuid.UUID]struct{}
	seenOrder []uuid.UUID

	closingMu sync.Mutex
	closing   bool
}

// NewBroker builds a Broker over the given transport.
func NewBroker[T Transport](transport T) *Broker[T] {
	return &Broker[T]{
		transport:   transport,
		subscribers: make(map[string]chan Message),
		seen:        make(map[uuid.UUID]struct{}),
	}
}

func randomID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe returns a new channel that receives every message the broker
// fans out, plus an ID for later Unsubscribe.
func (b *Broker[T]) Subscribe() (string, chan Message) {
	id := randomID()
	ch := make(chan Message, 16)
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	b.subscribers[id] = ch
	return id, ch
}

// Unsubscribe closes and removes a subscriber channel.
func (b *Broker[T]) Unsubscribe(id string) {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
	}
}

// Send writes a message to the transport.
func (b *Broker[T]) Send(m Message) error {
	b.sendMu.Lock()
	defer b.sendMu.Unlock()
	if err := b.transport.Send(m); err != nil {
		return pitracerr.Wrap(pitracerr.KindIPC, "send message", err)
	}
	return nil
}

// Monitor reads messages from the transport until ctx is cancelled or the
// transport is closed, fanning each new (non-duplicate) message out to
// every subscriber. Any Recv error, a decode failure included, ends
// Monitor with that error wrapped as "ipc: transport closed"; a message
// that fails to decode is not skipped, and reading does not continue.
func (b *Broker[T]) Monitor(ctx context.Context) error {
	msgChan := make(chan Message)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		for {
			m, err := b.transport.Recv()
			if err != nil {
				select {
				case errChan <- err:
				case <-ctx.Done():
				}
				return
			}
			select {
			case msgChan <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errChan:
			return fmt.Errorf("ipc: transport closed: %w", err)
		case m, ok := <-msgChan:
			if !ok {
				return nil
			}
			b.closingMu.Lock()
			closing := b.closing
			b.closingMu.Unlock()
			if closing {
				return nil
			}
			if b.markSeen(m.ID) {
				continue // duplicate: at-most-once delivery is idempotent
			}
			b.fanOut(m)
		}
	}
}

// markSeen returns true if id has already been delivered.
func (b *Broker[T]) markSeen(id uuid.UUID) bool {
	b.seenMu.Lock()
	defer b.seenMu.Unlock()
	if _, ok := b.seen[id]; ok {
		return true
	}
	b.seen[id] = struct{}{}
	b.seenOrder = append(b.seenOrder, id)
	if len(b.seenOrder) > dedupCapacity {
		oldest := b.seenOrder[0]
		b.seenOrder = b.seenOrder[1:]
		delete(b.seen, oldest)
	}
	return false
}

func (b *Broker[T]) fanOut(m Message) {
	b.subscriberMu.Lock()
	defer b.subscriberMu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- m:
		default:
		}
	}
}

// Close stops fan-out and closes the underlying transport.
func (b *Broker[T]) Close() error {
	b.closingMu.Lock()
	b.closing = true
	b.closingMu.Unlock()

	b.subscriberMu.Lock()
	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}
	b.subscriberMu.Unlock()

	return b.transport.Close()
}

// AttachAdminRoutes mounts a read-only status endpoint under /debug/,
// mirroring SerialMux.AttachAdminRoutes's localhost/Tailscale-only debug
// surface.
func (b *Broker[T]) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	debug.HandleSilentFunc("ipc-subscribers", func(w http.ResponseWriter, r *http.Request) {
		b.subscriberMu.Lock()
		n := len(b.subscribers)
		b.subscriberMu.Unlock()
		fmt.Fprintf(w, "subscribers: %d\n", n)
	})
}
