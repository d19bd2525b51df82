// Package obslog keeps a small ring buffer of recent log lines so that an
// error result sent upstream can embed the context that led to it
// (spec.md §5 "recent-log-messages ring buffer is written by any thread
// under a lock", §7 "The log's recent messages buffer is embedded in any
// error result sent upstream").
package obslog

import (
	"container/ring"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultCapacity is the number of lines the ring buffer retains.
const DefaultCapacity = 200

// Buffer is a thread-safe ring buffer of recent log lines, safe for use by
// any number of goroutines (grounded on the subscriber-map-under-a-mutex
// shape in serialmux.SerialMux).
type Buffer struct {
	mu  sync.Mutex
	r   *ring.Ring
}

// NewBuffer creates a Buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{r: ring.New(capacity)}
}

// Printf formats and records a line, and also forwards it to the standard
// logger so the ambient logging behaviour is unchanged.
func (b *Buffer) Printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	b.record(line)
	log.Print(line)
}

func (b *Buffer) record(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.r.Value = fmt.Sprintf("%s %s", time.Now().Format(time.RFC3339), line)
	b.r = b.r.Next()
}

// Recent returns up to n most-recently recorded lines, oldest first.
func (b *Buffer) Recent(n int) []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	all := make([]string, 0, b.r.Len())
	b.r.Do(func(v any) {
		if v != nil {
			all = append(all, v.(string))
		}
	})
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
