package reconcile

import (
	"sync"

	"github.com/jdziat/galaxy-sync/pkg/core"
)

// Bus fans synchronization events out to subscribers.
type Bus struct {
	mu   sync.RWMutex
	subs []chan core.Event
}

// Events returns a channel receiving every event emitted after the call.
// The caller must call Unsubscribe when done.
func (b *Bus) Events() <-chan core.Event {
	ch := make(chan core.Event, 100)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber channel created by Events. The channel is
// not closed.
func (b *Bus) Unsubscribe(ch <-chan core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Emit delivers e to every subscriber, dropping it for subscribers whose
// buffer is full.
func (b *Bus) Emit(e core.Event) {
	b.mu.RLock()
	subs := make([]chan core.Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
		}
	}
}
