// Package eventbus provides a typed fan-out bus. The grid evaluator
// publishes run progress on it and the CLI subscribes to report progress.
package eventbus

import "sync"

// Bus is a publish/subscribe bus for events of type T. Delivery is
// non-blocking: a subscriber whose buffer is full misses the event.
type Bus[T any] struct {
	mu     sync.RWMutex
	subs   []chan T
	buffer int
	closed bool
}

// New creates a Bus whose subscriber channels hold buffer events.
func New[T any](buffer int) *Bus[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus[T]{buffer: buffer}
}

// Publish sends the event to all subscribers.
func (b *Bus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a subscriber and returns its channel. Subscribing to a
// closed bus returns a closed channel.
func (b *Bus[T]) Subscribe() <-chan T {
	ch := make(chan T, b.buffer)
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
func (b *Bus[T]) Unsubscribe(sub <-chan T) {
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

// Close closes all subscriber channels. Later publishes are dropped.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
}
