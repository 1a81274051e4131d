// Package timing records wall-clock durations of named operations such
// as series loads and slice renders.
package timing

import (
	"context"
	"sync"
	"time"
)

type contextKey struct{}

type EventPublisher interface {
	Publish(event Event)
}

type Event struct {
	Type      string
	Timestamp time.Time
	Data      map[string]interface{}
}

type span struct {
	operation string
	start     time.Time
}

type Tracker struct {
	mu       sync.RWMutex
	timings  map[string][]time.Duration
	eventBus EventPublisher
	enabled  bool
}

func NewTracker(eventBus EventPublisher) *Tracker {
	return &Tracker{
		timings:  make(map[string][]time.Duration),
		eventBus: eventBus,
		enabled:  true,
	}
}

// StartTiming opens a span for the operation. The returned context must
// be handed back to EndTiming to record the duration.
func (t *Tracker) StartTiming(operation string) context.Context {
	if !t.enabled {
		return context.Background()
	}

	start := time.Now()
	ctx := context.WithValue(context.Background(), contextKey{}, span{
		operation: operation,
		start:     start,
	})

	if t.eventBus != nil {
		t.eventBus.Publish(Event{
			Type: "timing_started",
			Data: map[string]interface{}{
				"operation": operation,
				"start":     start,
			},
		})
	}

	return ctx
}

func (t *Tracker) EndTiming(ctx context.Context) {
	if !t.enabled {
		return
	}

	sp, ok := ctx.Value(contextKey{}).(span)
	if !ok {
		return
	}

	duration := time.Since(sp.start)

	t.mu.Lock()
	t.timings[sp.operation] = append(t.timings[sp.operation], duration)
	t.mu.Unlock()

	if t.eventBus != nil {
		t.eventBus.Publish(Event{
			Type: "timing_completed",
			Data: map[string]interface{}{
				"operation":   sp.operation,
				"duration_ms": duration.Milliseconds(),
				"start":       sp.start,
			},
		})
	}
}

func (t *Tracker) GetTimings(operation string) []time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	timings := t.timings[operation]
	if timings == nil {
		return nil
	}

	result := make([]time.Duration, len(timings))
	copy(result, timings)
	return result
}

func (t *Tracker) GetAverageTime(operation string) time.Duration {
	timings := t.GetTimings(operation)
	if len(timings) == 0 {
		return 0
	}

	var total time.Duration
	for _, duration := range timings {
		total += duration
	}
	return total / time.Duration(len(timings))
}

func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Reset drops recorded durations for one operation, or for all of them
// when operation is empty.
func (t *Tracker) Reset(operation string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if operation == "" {
		t.timings = make(map[string][]time.Duration)
	} else {
		delete(t.timings, operation)
	}
}
