package debug

import (
	"testing"
	"time"
)

type busProbe struct {
	id     string
	events chan Event
}

func (b *busProbe) Handle(event Event) {
	select {
	case b.events <- event:
	default:
	}
}

func (b *busProbe) ID() string { return b.id }

func quietConfig() Config {
	config := DefaultConfig()
	config.EnableLogging = false
	config.EventBufferSize = 16
	return config
}

func TestCoordinatorWiresAllFacilities(t *testing.T) {
	coord := NewCoordinator(quietConfig())
	defer coord.Shutdown()

	if coord.Logger() == nil || coord.TimingTracker() == nil ||
		coord.MemoryTracker() == nil || coord.FileTracker() == nil ||
		coord.EventPublisher() == nil {
		t.Fatal("coordinator returned a nil facility")
	}

	ctx := coord.TimingTracker().StartTiming("render_axial")
	coord.TimingTracker().EndTiming(ctx)
	if got := len(coord.TimingTracker().GetTimings("render_axial")); got != 1 {
		t.Errorf("timing tracker recorded %d spans, want 1", got)
	}

	coord.MemoryTracker().TrackAllocation(0x42, 100, "volume_mat")
	if got := coord.MemoryTracker().GetStats().CurrentlyActive; got != 1 {
		t.Errorf("memory tracker shows %d active allocations, want 1", got)
	}
	coord.MemoryTracker().TrackDeallocation(0x42, "volume_mat")

	coord.FileTracker().TrackOpen("/scans/s.dcm", 1)
	if got := len(coord.FileTracker().GetOpenFiles()); got != 1 {
		t.Errorf("file tracker shows %d open files, want 1", got)
	}
	coord.FileTracker().TrackClose("/scans/s.dcm", 1)
}

func TestTrackerEventsReachSubscribers(t *testing.T) {
	coord := NewCoordinator(quietConfig())
	defer coord.Shutdown()

	probe := &busProbe{id: "probe", events: make(chan Event, 8)}
	coord.EventPublisher().Subscribe("timing_completed", probe)

	ctx := coord.TimingTracker().StartTiming("load_series")
	coord.TimingTracker().EndTiming(ctx)

	select {
	case event := <-probe.events:
		if event.Data["operation"] != "load_series" {
			t.Errorf("event operation = %v", event.Data["operation"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tracker event never reached the bus subscriber")
	}
}

func TestDisabledTrackersStayQuiet(t *testing.T) {
	config := quietConfig()
	config.EnableTimingTracking = false
	config.EnableMemoryTracking = false
	config.EnableFileTracking = false

	coord := NewCoordinator(config)
	defer coord.Shutdown()

	coord.TimingTracker().EndTiming(coord.TimingTracker().StartTiming("ignored"))
	if coord.TimingTracker().GetTimings("ignored") != nil {
		t.Error("disabled timing tracker recorded a span")
	}

	coord.MemoryTracker().TrackAllocation(0x1, 1, "ignored")
	if coord.MemoryTracker().GetStats().AllocationCount != 0 {
		t.Error("disabled memory tracker recorded an allocation")
	}
}

func TestConfigPresets(t *testing.T) {
	def := DefaultConfig()
	if !def.EnableLogging || !def.EnableTimingTracking || def.EventBufferSize <= 0 {
		t.Errorf("default config not usable for development: %+v", def)
	}

	prod := ProductionConfig()
	if !prod.UseJSONLogging || prod.EnableMemoryTracking || prod.LogLevel != "error" {
		t.Errorf("production config leaks debug facilities: %+v", prod)
	}
}
