package eventbus

import (
	"sync"
	"sync/atomic"
)

const defaultBuffer = 8

// Option configures a bus.
type Option func(*options)

type options struct {
	buffer int
}

// WithBuffer sets the channel capacity of every subscriber. Events
// published while a subscriber's buffer is full are dropped for it.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// TypedBus is a publish/subscribe bus for events of type T. Publishing
// never blocks.
type TypedBus[T any] struct {
	mu      sync.RWMutex
	subs    []chan T
	closed  bool
	buffer  int
	dropped atomic.Uint64
}

// NewTyped creates a new TypedBus.
func NewTyped[T any](opts ...Option) *TypedBus[T] {
	o := options{buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	return &TypedBus[T]{buffer: o.buffer}
}

// Publish sends the event to all subscribers with room in their buffer.
func (b *TypedBus[T]) Publish(e T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.dropped.Add(1)
		}
	}
}

// Dropped returns the number of deliveries skipped on full buffers.
func (b *TypedBus[T]) Dropped() uint64 { return b.dropped.Load() }

// Subscribers returns the number of live subscriptions.
func (b *TypedBus[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Subscribe registers a subscriber and returns its channel. Subscribing
// to a closed bus yields a closed channel.
func (b *TypedBus[T]) Subscribe() <-chan T {
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

// Unsubscribe removes the subscriber and closes its channel. It is a no-op
// after Close.
func (b *TypedBus[T]) Unsubscribe(sub <-chan T) {
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

// Close closes the bus and all subscriber channels.
func (b *TypedBus[T]) Close() {
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
