// Package filetracker watches file handle lifecycles, mainly the DICOM
// slice files read during a series load and the snapshot files written
// on capture.
package filetracker

import (
	"runtime"
	"sync"
	"time"
)

// leakThreshold is how long a handle may stay open before DetectLeaks
// reports it.
const leakThreshold = 5 * time.Minute

type FileInfo struct {
	Path       string
	Handle     uintptr
	OpenedAt   time.Time
	StackTrace []uintptr
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
	mu        sync.RWMutex
	openFiles map[string]FileInfo
	eventBus  EventPublisher
	enabled   bool
}

func NewTracker(eventBus EventPublisher) *Tracker {
	return &Tracker{
		openFiles: make(map[string]FileInfo),
		eventBus:  eventBus,
		enabled:   true,
	}
}

func (t *Tracker) TrackOpen(path string, handle uintptr) {
	if !t.enabled {
		return
	}

	var pcs [16]uintptr
	n := runtime.Callers(2, pcs[:])

	info := FileInfo{
		Path:       path,
		Handle:     handle,
		OpenedAt:   time.Now(),
		StackTrace: pcs[:n],
	}

	t.mu.Lock()
	t.openFiles[path] = info
	t.mu.Unlock()

	if t.eventBus != nil {
		t.eventBus.Publish(Event{
			Type: "file_opened",
			Data: map[string]interface{}{
				"path":   path,
				"handle": handle,
			},
		})
	}
}

func (t *Tracker) TrackClose(path string, handle uintptr) {
	if !t.enabled {
		return
	}

	t.mu.Lock()
	info, exists := t.openFiles[path]
	if exists && info.Handle == handle {
		delete(t.openFiles, path)
	}
	t.mu.Unlock()

	if exists && info.Handle == handle && t.eventBus != nil {
		t.eventBus.Publish(Event{
			Type: "file_closed",
			Data: map[string]interface{}{
				"path":        path,
				"handle":      handle,
				"open_for_ms": time.Since(info.OpenedAt).Milliseconds(),
			},
		})
	}
}

func (t *Tracker) GetOpenFiles() map[string]FileInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]FileInfo, len(t.openFiles))
	for k, v := range t.openFiles {
		result[k] = v
	}
	return result
}

func (t *Tracker) DetectLeaks() []FileInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()

	threshold := time.Now().Add(-leakThreshold)
	var leaks []FileInfo
	for _, info := range t.openFiles {
		if info.OpenedAt.Before(threshold) {
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
