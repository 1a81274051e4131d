package debug

import (
	"os"

	"mpr-visualizer/internal/debug/eventbus"
	"mpr-visualizer/internal/debug/filetracker"
	"mpr-visualizer/internal/debug/logger"
	"mpr-visualizer/internal/debug/memtracker"
	"mpr-visualizer/internal/debug/timing"
)

// Config selects which debug facilities are active.
type Config struct {
	EnableLogging        bool
	EnableTimingTracking bool
	EnableMemoryTracking bool
	EnableFileTracking   bool
	EnableStackTraces    bool
	UseJSONLogging       bool
	LogLevel             string
	EventBufferSize      int
}

// DefaultConfig enables everything except stack traces, for development.
func DefaultConfig() Config {
	return Config{
		EnableLogging:        true,
		EnableTimingTracking: true,
		EnableMemoryTracking: true,
		EnableFileTracking:   true,
		EnableStackTraces:    false,
		UseJSONLogging:       false,
		LogLevel:             "info",
		EventBufferSize:      1000,
	}
}

// ProductionConfig keeps errors-only JSON logging and turns the
// trackers off.
func ProductionConfig() Config {
	return Config{
		EnableLogging:        true,
		EnableTimingTracking: false,
		EnableMemoryTracking: false,
		EnableFileTracking:   false,
		EnableStackTraces:    false,
		UseJSONLogging:       true,
		LogLevel:             "error",
		EventBufferSize:      100,
	}
}

// NewCoordinator wires the logger, trackers and event bus together
// according to config.
func NewCoordinator(config Config) Coordinator {
	bus := &eventBusAdapter{bus: eventbus.NewBus(config.EventBufferSize)}

	var log Logger
	switch {
	case !config.EnableLogging:
		log = logger.NoOpLogger{}
	case config.UseJSONLogging:
		log = logger.NewZerolog(os.Stdout, logger.ParseLevel(config.LogLevel))
	default:
		log = logger.NewConsoleLogger(logger.ParseLevel(config.LogLevel))
	}

	timingTracker := timing.NewTracker(timingEvents{bus: bus})
	timingTracker.SetEnabled(config.EnableTimingTracking)

	memTracker := memtracker.NewTracker(memoryEvents{bus: bus}, config.EnableStackTraces)
	memTracker.SetEnabled(config.EnableMemoryTracking)

	fileTracker := filetracker.NewTracker(fileEvents{bus: bus})
	fileTracker.SetEnabled(config.EnableFileTracking)

	return &coordinator{
		logger:   log,
		timing:   timingTracker,
		memory:   &memoryTrackerAdapter{tracker: memTracker},
		files:    &fileTrackerAdapter{tracker: fileTracker},
		eventBus: bus,
	}
}

type coordinator struct {
	logger   Logger
	timing   TimingTracker
	memory   MemoryTracker
	files    FileTracker
	eventBus *eventBusAdapter
}

func (c *coordinator) Logger() Logger                 { return c.logger }
func (c *coordinator) TimingTracker() TimingTracker   { return c.timing }
func (c *coordinator) MemoryTracker() MemoryTracker   { return c.memory }
func (c *coordinator) FileTracker() FileTracker       { return c.files }
func (c *coordinator) EventPublisher() EventPublisher { return c.eventBus }

func (c *coordinator) Shutdown() {
	c.eventBus.bus.Shutdown()
}

// eventBusAdapter converts between the package-local Event type and the
// eventbus one.
type eventBusAdapter struct {
	bus *eventbus.Bus
}

func (e *eventBusAdapter) Publish(event Event) {
	e.bus.Publish(eventbus.Event{
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Data:      event.Data,
		Context:   event.Context,
	})
}

func (e *eventBusAdapter) Subscribe(eventType string, handler EventHandler) {
	e.bus.Subscribe(eventType, handlerAdapter{handler: handler})
}

func (e *eventBusAdapter) Unsubscribe(eventType string, handler EventHandler) {
	e.bus.Unsubscribe(eventType, handlerAdapter{handler: handler})
}

type handlerAdapter struct {
	handler EventHandler
}

func (h handlerAdapter) Handle(event eventbus.Event) {
	h.handler.Handle(Event{
		Type:      event.Type,
		Timestamp: event.Timestamp,
		Data:      event.Data,
		Context:   event.Context,
	})
}

func (h handlerAdapter) ID() string { return h.handler.ID() }

// Each tracker publishes its own event type; these bridges forward them
// onto the shared bus.

type timingEvents struct {
	bus *eventBusAdapter
}

func (t timingEvents) Publish(event timing.Event) {
	t.bus.Publish(Event{Type: event.Type, Timestamp: event.Timestamp, Data: event.Data})
}

type memoryEvents struct {
	bus *eventBusAdapter
}

func (m memoryEvents) Publish(event memtracker.Event) {
	m.bus.Publish(Event{Type: event.Type, Timestamp: event.Timestamp, Data: event.Data})
}

type fileEvents struct {
	bus *eventBusAdapter
}

func (f fileEvents) Publish(event filetracker.Event) {
	f.bus.Publish(Event{Type: event.Type, Timestamp: event.Timestamp, Data: event.Data})
}

type memoryTrackerAdapter struct {
	tracker *memtracker.Tracker
}

func (m *memoryTrackerAdapter) TrackAllocation(ptr uintptr, size int64, tag string) {
	m.tracker.TrackAllocation(ptr, size, tag)
}

func (m *memoryTrackerAdapter) TrackDeallocation(ptr uintptr, tag string) {
	m.tracker.TrackDeallocation(ptr, tag)
}

func (m *memoryTrackerAdapter) GetAllocations() map[uintptr]AllocationInfo {
	allocations := m.tracker.GetAllocations()
	result := make(map[uintptr]AllocationInfo, len(allocations))
	for k, v := range allocations {
		result[k] = AllocationInfo{
			Size:        v.Size,
			Tag:         v.Tag,
			AllocatedAt: v.AllocatedAt,
			StackTrace:  v.StackTrace,
		}
	}
	return result
}

func (m *memoryTrackerAdapter) GetStats() MemoryStats {
	stats := m.tracker.GetStats()
	return MemoryStats{
		TotalAllocated:   stats.TotalAllocated,
		TotalDeallocated: stats.TotalDeallocated,
		CurrentlyActive:  stats.CurrentlyActive,
		AllocationCount:  stats.AllocationCount,
		LeakCount:        stats.LeakCount,
	}
}

type fileTrackerAdapter struct {
	tracker *filetracker.Tracker
}

func (f *fileTrackerAdapter) TrackOpen(path string, handle uintptr) {
	f.tracker.TrackOpen(path, handle)
}

func (f *fileTrackerAdapter) TrackClose(path string, handle uintptr) {
	f.tracker.TrackClose(path, handle)
}

func (f *fileTrackerAdapter) GetOpenFiles() map[string]FileInfo {
	files := f.tracker.GetOpenFiles()
	result := make(map[string]FileInfo, len(files))
	for k, v := range files {
		result[k] = FileInfo{
			Path:       v.Path,
			Handle:     v.Handle,
			OpenedAt:   v.OpenedAt,
			StackTrace: v.StackTrace,
		}
	}
	return result
}

func (f *fileTrackerAdapter) DetectLeaks() []FileInfo {
	leaks := f.tracker.DetectLeaks()
	result := make([]FileInfo, len(leaks))
	for i, v := range leaks {
		result[i] = FileInfo{
			Path:       v.Path,
			Handle:     v.Handle,
			OpenedAt:   v.OpenedAt,
			StackTrace: v.StackTrace,
		}
	}
	return result
}
