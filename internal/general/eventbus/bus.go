package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"taxi-client/internal/general/logger"
)

// DefaultBuffer is the per-subscriber queue length used when Subscribe gets buffer <= 0.
const DefaultBuffer = 32

var ErrClosed = errors.New("eventbus: closed")

// Handler consumes one event. It runs on the subscriber's own goroutine.
type Handler[E any] func(ctx context.Context, event E)

// Bus fans events out to any number of subscribers. Publish never blocks: every
// subscriber has its own bounded queue, and a full queue only costs that subscriber the event.
type Bus[E any] struct {
	logger *logger.Logger
	ctx    context.Context // base context handed to handlers

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*subscriber[E]
	closed bool
	wg     sync.WaitGroup
}

type subscriber[E any] struct {
	name    string
	queue   chan E
	handler Handler[E]
}

// New creates a bus. ctx is the base context for handler calls (cancellation is not
// propagated, so handlers still run while the bus drains on Close).
func New[E any](ctx context.Context, logger *logger.Logger) *Bus[E] {
	return &Bus[E]{
		logger: logger,
		ctx:    context.WithoutCancel(ctx),
		subs:   make(map[uint64]*subscriber[E]),
	}
}

// Subscribe registers handler and returns a function that unregisters it. Events already
// queued for the subscriber are still delivered after unsubscribe.
func (b *Bus[E]) Subscribe(name string, buffer int, handler Handler[E]) (func(), error) {
	if handler == nil {
		return nil, fmt.Errorf("eventbus: nil handler for %q", name)
	}
	if buffer <= 0 {
		buffer = DefaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}

	id := b.nextID
	b.nextID++
	sub := &subscriber[E]{name: name, queue: make(chan E, buffer), handler: handler}
	b.subs[id] = sub

	b.wg.Add(1)
	go b.drain(sub)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}, nil
}

// Publish hands event to every registered subscriber without waiting for any of them.
func (b *Bus[E]) Publish(ctx context.Context, event E) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	for _, sub := range b.subs {
		select {
		case sub.queue <- event:
		default:
			b.logger.Error(ctx, "event_dropped", "Subscriber queue is full; event dropped for it",
				errors.New("subscriber queue full"),
				map[string]any{"subscriber": sub.name, "capacity": cap(sub.queue)})
		}
	}
	return nil
}

// Subscribers returns the number of registered subscribers.
func (b *Bus[E]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unregisters everyone and waits until queued events are handled.
func (b *Bus[E]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.queue)
		delete(b.subs, id)
	}
	b.mu.Unlock()

	b.wg.Wait()
}

func (b *Bus[E]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		close(sub.queue)
		delete(b.subs, id)
	}
}

func (b *Bus[E]) drain(sub *subscriber[E]) {
	defer b.wg.Done()
	for event := range sub.queue {
		b.deliver(sub, event)
	}
}

// deliver isolates one handler call so a panic only loses that event.
func (b *Bus[E]) deliver(sub *subscriber[E], event E) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error(b.ctx, "event_handler_panic", "Subscriber panicked while handling an event",
				fmt.Errorf("panic: %v", p), map[string]any{"subscriber": sub.name})
		}
	}()
	sub.handler(b.ctx, event)
}
