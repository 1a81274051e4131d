// Package memtracker accounts for native OpenCV allocations, which live
// outside the Go heap and leak silently when a Mat is never closed.
package memtracker

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

type AllocationInfo struct {
	Size        int64
	Tag         string
	AllocatedAt time.Time
	StackTrace  []uintptr
}

type MemoryStats struct {
	TotalAllocated   int64
	TotalDeallocated int64
	CurrentlyActive  int64
	AllocationCount  int64
	LeakCount        int64
}

type EventPublisher interface {
	Publish(event Event)
}

type Event struct {
	Type      string
	Timestamp time.Time
	Data      map[string]interface{}
}

type Tracker struct {
	mu           sync.RWMutex
	allocations  map[uintptr]AllocationInfo
	eventBus     EventPublisher
	enabled      bool
	stackTraces  bool
	totalAlloc   int64
	totalDealloc int64
	allocCount   int64
	leakCount    int64
}

func NewTracker(eventBus EventPublisher, enableStackTraces bool) *Tracker {
	return &Tracker{
		allocations: make(map[uintptr]AllocationInfo),
		eventBus:    eventBus,
		enabled:     true,
		stackTraces: enableStackTraces,
	}
}

func (t *Tracker) TrackAllocation(ptr uintptr, size int64, tag string) {
	if !t.enabled {
		return
	}

	atomic.AddInt64(&t.totalAlloc, size)
	atomic.AddInt64(&t.allocCount, 1)

	info := AllocationInfo{
		Size:        size,
		Tag:         tag,
		AllocatedAt: time.Now(),
	}

	if t.stackTraces {
		var pcs [32]uintptr
		n := runtime.Callers(3, pcs[:])
		info.StackTrace = pcs[:n]
	}

	t.mu.Lock()
	t.allocations[ptr] = info
	t.mu.Unlock()

	if t.eventBus != nil {
		t.eventBus.Publish(Event{
			Type: "memory_allocated",
			Data: map[string]interface{}{
				"ptr":  ptr,
				"size": size,
				"tag":  tag,
			},
		})
	}
}

func (t *Tracker) TrackDeallocation(ptr uintptr, tag string) {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	info, exists := t.allocations[ptr]
	if exists {
		delete(t.allocations, ptr)
		atomic.AddInt64(&t.totalDealloc, info.Size)
	} else {
		atomic.AddInt64(&t.leakCount, 1)
	}
	t.mu.Unlock()

	if t.eventBus == nil {
		return
	}

	data := map[string]interface{}{
		"ptr": ptr,
		"tag": tag,
	}
	if exists {
		data["size"] = info.Size
		data["lifetime_ms"] = time.Since(info.AllocatedAt).Milliseconds()
		t.eventBus.Publish(Event{Type: "memory_deallocated", Data: data})
	} else {
		t.eventBus.Publish(Event{Type: "memory_untracked_deallocation", Data: data})
	}
}

func (t *Tracker) GetAllocations() map[uintptr]AllocationInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[uintptr]AllocationInfo, len(t.allocations))
	for k, v := range t.allocations {
		result[k] = v
	}
	return result
}

func (t *Tracker) GetStats() MemoryStats {
	t.mu.RLock()
	currentlyActive := int64(len(t.allocations))
	t.mu.RUnlock()

	return MemoryStats{
		TotalAllocated:   atomic.LoadInt64(&t.totalAlloc),
		TotalDeallocated: atomic.LoadInt64(&t.totalDealloc),
		CurrentlyActive:  currentlyActive,
		AllocationCount:  atomic.LoadInt64(&t.allocCount),
		LeakCount:        atomic.LoadInt64(&t.leakCount),
	}
}

// DetectLeaks returns allocations older than the threshold that are
// still live.
func (t *Tracker) DetectLeaks(olderThan time.Duration) []AllocationInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	threshold := time.Now().Add(-olderThan)
	var leaks []AllocationInfo
	for _, info := range t.allocations {
		if info.AllocatedAt.Before(threshold) {
			leaks = append(leaks, info)
		}
	}
	return leaks
}

func (t *Tracker) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}
