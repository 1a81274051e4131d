// Package eventbus fans debug events out to subscribers without
// blocking the publisher. Events are buffered and dispatched from a
// single worker goroutine; when the buffer is full, events are dropped.
package eventbus

import (
	"context"
	"sync"
	"time"
)

type Event struct {
	Type      string
	Timestamp time.Time
	Data      map[string]interface{}
	Context   context.Context
}

type Handler interface {
	Handle(event Event)
	ID() string
}

type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
	buffer      chan Event
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	ctx, cancel := context.WithCancel(context.Background())

	bus := &Bus{
		subscribers: make(map[string][]Handler),
		buffer:      make(chan Event, bufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}

	bus.wg.Add(1)
	go bus.worker()
	return bus
}

// Publish queues an event for dispatch. It never blocks; a full buffer
// drops the event instead of stalling the caller.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case b.buffer <- event:
	case <-b.ctx.Done():
	default:
	}
}

func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

func (b *Bus) Unsubscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := b.subscribers[eventType]
	for i, h := range handlers {
		if h.ID() == handler.ID() {
			b.subscribers[eventType] = append(handlers[:i], handlers[i+1:]...)
			break
		}
	}
}

// Shutdown stops the worker. Buffered events that have not been
// dispatched yet are discarded.
func (b *Bus) Shutdown() {
	b.cancel()
	b.wg.Wait()
}

func (b *Bus) worker() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.buffer:
			b.dispatch(event)
		case <-b.ctx.Done():
			return
		}
	}
}

func (b *Bus) dispatch(event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subscribers[event.Type]))
	copy(handlers, b.subscribers[event.Type])
	b.mu.RUnlock()

	for _, handler := range handlers {
		func() {
			defer func() {
				// A panicking subscriber must not take the bus down.
				_ = recover()
			}()
			handler.Handle(event)
		}()
	}
}
