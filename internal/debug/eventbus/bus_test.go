package eventbus

import (
	"testing"
	"time"
)

type recordingHandler struct {
	id     string
	events chan Event
}

func (h *recordingHandler) Handle(event Event) { h.events <- event }
func (h *recordingHandler) ID() string         { return h.id }

type panickyHandler struct {
	id string
}

func (p panickyHandler) Handle(Event) { panic("subscriber failure") }
func (p panickyHandler) ID() string   { return p.id }

func TestPublishReachesSubscriber(t *testing.T) {
	bus := NewBus(16)
	defer bus.Shutdown()

	handler := &recordingHandler{id: "h1", events: make(chan Event, 1)}
	bus.Subscribe("series_loaded", handler)

	bus.Publish(Event{Type: "series_loaded", Data: map[string]interface{}{"slices": 42}})

	select {
	case event := <-handler.events:
		if event.Type != "series_loaded" {
			t.Errorf("event type = %s", event.Type)
		}
		if event.Data["slices"] != 42 {
			t.Errorf("event data = %v", event.Data)
		}
		if event.Timestamp.IsZero() {
			t.Error("timestamp was not stamped on publish")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event never dispatched")
	}
}

func TestEventTypeFiltering(t *testing.T) {
	bus := NewBus(16)
	defer bus.Shutdown()

	slices := &recordingHandler{id: "slices", events: make(chan Event, 4)}
	bus.Subscribe("slice_rendered", slices)

	bus.Publish(Event{Type: "snapshot_saved"})
	bus.Publish(Event{Type: "slice_rendered"})

	select {
	case event := <-slices.events:
		if event.Type != "slice_rendered" {
			t.Errorf("handler received foreign event %s", event.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscribed event never arrived")
	}

	select {
	case event := <-slices.events:
		t.Errorf("unexpected extra event %s", event.Type)
	default:
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(16)
	defer bus.Shutdown()

	removed := &recordingHandler{id: "removed", events: make(chan Event, 4)}
	kept := &recordingHandler{id: "kept", events: make(chan Event, 4)}
	bus.Subscribe("slice_rendered", removed)
	bus.Subscribe("slice_rendered", kept)

	bus.Unsubscribe("slice_rendered", removed)
	bus.Publish(Event{Type: "slice_rendered"})

	select {
	case <-kept.events:
	case <-time.After(2 * time.Second):
		t.Fatal("remaining handler missed the event")
	}

	select {
	case <-removed.events:
		t.Error("unsubscribed handler still received the event")
	default:
	}
}

func TestPanickingSubscriberDoesNotKillBus(t *testing.T) {
	bus := NewBus(16)
	defer bus.Shutdown()

	bus.Subscribe("snapshot_saved", panickyHandler{id: "bad"})
	sane := &recordingHandler{id: "sane", events: make(chan Event, 1)}
	bus.Subscribe("snapshot_saved", sane)

	bus.Publish(Event{Type: "snapshot_saved"})

	select {
	case <-sane.events:
	case <-time.After(2 * time.Second):
		t.Fatal("bus stopped dispatching after a subscriber panic")
	}
}

func TestPublishAfterShutdownDoesNotBlock(t *testing.T) {
	bus := NewBus(1)
	bus.Shutdown()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Publish(Event{Type: "timing_started"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked after shutdown")
	}
}
