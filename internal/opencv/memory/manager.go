// Package memory hands out tracked OpenCV Mats, pools them by shape and
// enforces a ceiling on live native memory.
package memory

import (
	"fmt"
	"sync"

	"mpr-visualizer/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// defaultLimit bounds live native memory. A full CT volume render cycle
// needs a few slice-sized Mats, so this is generous.
const defaultLimit = 2 << 30

type Logger interface {
	Debug(component string, message string, fields map[string]interface{})
	Info(component string, message string, fields map[string]interface{})
	Warning(component string, message string, fields map[string]interface{})
	Error(component string, err error, fields map[string]interface{})
}

type poolKey struct {
	rows    int
	cols    int
	matType gocv.MatType
}

type Stats struct {
	TotalAllocated int64
	TotalReleased  int64
	ActiveMats     int64
	PooledMats     int64
	PoolHits       int64
	PoolMisses     int64
	MaxAllowed     int64
}

type liveRecord struct {
	mat  *safe.Mat
	size int64
}

type Manager struct {
	mu      sync.Mutex
	pools   map[poolKey]*Pool
	live    map[uint64]liveRecord
	stats   Stats
	logger  Logger
	tracker safe.MemoryTracker

	liveBytes   int64
	pooledBytes int64
}

func NewManager(logger Logger, tracker safe.MemoryTracker) *Manager {
	return &Manager{
		pools:   make(map[poolKey]*Pool),
		live:    make(map[uint64]liveRecord),
		stats:   Stats{MaxAllowed: defaultLimit},
		logger:  logger,
		tracker: tracker,
	}
}

// GetMat returns a Mat of the requested shape, reusing a pooled one
// when available. The tag names the consumer for leak diagnosis.
func (m *Manager) GetMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	if err := safe.ValidateDimensions(cols, rows, "GetMat"); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	size := int64(rows * cols * safe.MatTypeSize(matType))

	if m.liveBytes+m.pooledBytes+size > m.stats.MaxAllowed {
		return nil, fmt.Errorf("native memory limit exceeded: %d bytes live, %d requested",
			m.liveBytes+m.pooledBytes, size)
	}

	key := poolKey{rows: rows, cols: cols, matType: matType}
	if pool, ok := m.pools[key]; ok {
		if mat := pool.Get(); mat != nil {
			m.stats.PoolHits++
			m.stats.ActiveMats++
			m.stats.PooledMats--
			m.pooledBytes -= size
			m.liveBytes += size
			m.live[mat.ID()] = liveRecord{mat: mat, size: size}
			return mat, nil
		}
	}

	m.stats.PoolMisses++
	mat, err := safe.NewMatWithTracker(rows, cols, matType, m.tracker, tag)
	if err != nil {
		return nil, err
	}

	m.live[mat.ID()] = liveRecord{mat: mat, size: size}
	m.liveBytes += size
	m.stats.TotalAllocated += size
	m.stats.ActiveMats++

	m.logger.Debug("MemoryManager", "Mat allocated", map[string]interface{}{
		"rows":  rows,
		"cols":  cols,
		"bytes": size,
		"tag":   tag,
	})
	return mat, nil
}

// ReleaseMat returns a Mat to its shape pool, or closes it when the
// pool is full.
func (m *Manager) ReleaseMat(mat *safe.Mat) {
	if mat == nil || !mat.IsValid() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id := mat.ID()
	record, tracked := m.live[id]
	if !tracked {
		m.logger.Warning("MemoryManager", "releasing untracked Mat", map[string]interface{}{
			"mat_id": id,
		})
		mat.Close()
		return
	}
	delete(m.live, id)
	m.liveBytes -= record.size
	m.stats.ActiveMats--

	key := poolKey{rows: mat.Rows(), cols: mat.Cols(), matType: mat.Type()}
	pool, ok := m.pools[key]
	if !ok {
		pool = NewPool(4)
		m.pools[key] = pool
	}

	if pool.Put(mat) {
		m.stats.PooledMats++
		m.pooledBytes += record.size
		return
	}

	mat.Close()
	m.stats.TotalReleased += record.size
}

func (m *Manager) GetStats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// Cleanup closes every pooled and live Mat. Called on shutdown.
func (m *Manager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	closed := 0
	for key, pool := range m.pools {
		closed += pool.Cleanup()
		delete(m.pools, key)
	}
	m.stats.PooledMats = 0
	m.stats.TotalReleased += m.pooledBytes
	m.pooledBytes = 0

	// Live Mats at this point were leaked by their holders; shutdown
	// closes them directly rather than waiting for finalizers.
	leaked := len(m.live)
	for _, record := range m.live {
		record.mat.Close()
	}
	m.stats.TotalReleased += m.liveBytes
	m.liveBytes = 0
	m.live = make(map[uint64]liveRecord)
	m.stats.ActiveMats = 0

	if leaked > 0 {
		m.logger.Warning("MemoryManager", "Mats still live at cleanup", map[string]interface{}{
			"count": leaked,
		})
	}
	m.logger.Info("MemoryManager", "cleanup complete", map[string]interface{}{
		"pooled_closed": closed,
	})
}
