// Package events is a small typed, in-process publish/subscribe bus. It
// replaces window-level events for telling unrelated parts of the client
// that something happened, without threading callbacks through them.
package events

import (
	"sync"
)

// Bus delivers values of type T to every current subscriber, synchronously
// and in subscription order. Handlers run on the publisher's goroutine and
// must not block; a handler may unsubscribe itself or others while running.
type Bus[T any] struct {
	mu       sync.RWMutex
	nextID   uint64
	handlers map[uint64]func(T)
	order    []uint64
}

func NewBus[T any]() *Bus[T] {
	return &Bus[T]{handlers: make(map[uint64]func(T))}
}

// Subscribe registers fn and returns a function that removes it. The
// returned function is idempotent.
func (b *Bus[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.handlers[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish calls every handler registered at the time of the call. A panic
// in one handler does not prevent delivery to the rest; it is re-raised
// after all handlers ran.
func (b *Bus[T]) Publish(v T) {
	b.mu.RLock()
	fns := make([]func(T), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.handlers[id])
	}
	b.mu.RUnlock()

	var firstPanic any
	for _, fn := range fns {
		func() {
			defer func() {
				if p := recover(); p != nil && firstPanic == nil {
					firstPanic = p
				}
			}()
			fn(v)
		}()
	}
	if firstPanic != nil {
		panic(firstPanic)
	}
}

// Len returns the number of current subscribers.
func (b *Bus[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers)
}
