// Package eventbus fans lifecycle notifications out to in-process
// consumers. Delivery is best-effort and non-blocking: slow subscribers
// drop, they never stall a lifecycle transition.
package eventbus

import "sync"

// Notification wraps one lifecycle event for the change feed. Kind names
// the event (mission_accepted, offers_created, ...); Payload is the
// corresponding core/events struct.
type Notification struct {
	Kind    string
	Payload any
}

// EventBus is the in-process publish/subscribe notification feed.
type EventBus interface {
	Publish(Notification)
	Subscribe() <-chan Notification
	Unsubscribe(<-chan Notification)
	Close()
}

// subscriber channel capacity; a burst beyond this drops for that
// subscriber only.
const subBuffer = 64

// Bus is the default EventBus implementation using fan-out channels.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Notification
	closed bool
}

// New creates a new Bus.
func New() *Bus { return &Bus{} }

// Publish sends the notification to all subscribers. Delivery is
// non-blocking.
func (b *Bus) Publish(n Notification) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe() <-chan Notification {
	ch := make(chan Notification, subBuffer)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes all subscriber channels and clears the list.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
