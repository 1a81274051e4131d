// Package safe wraps gocv.Mat with validity tracking so a Mat freed by
// one holder cannot be touched through a stale reference, and reports
// native allocations to the memory tracker.
package safe

import (
	"fmt"
	"image"
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"

	"gocv.io/x/gocv"
)

// MemoryTracker is the subset of the debug tracker the wrapper needs,
// declared locally to avoid an import cycle.
type MemoryTracker interface {
	TrackAllocation(ptr uintptr, size int64, tag string)
	TrackDeallocation(ptr uintptr, tag string)
}

type Mat struct {
	mat        gocv.Mat
	isValid    int32
	mu         sync.RWMutex
	id         uint64
	memTracker MemoryTracker
	tag        string
}

var nextMatID uint64

func NewMat(rows, cols int, matType gocv.MatType) (*Mat, error) {
	return NewMatWithTracker(rows, cols, matType, nil, "")
}

func NewMatWithTracker(rows, cols int, matType gocv.MatType, memTracker MemoryTracker, tag string) (*Mat, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("invalid dimensions: %dx%d", cols, rows)
	}

	mat := gocv.NewMatWithSize(rows, cols, matType)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("failed to create Mat with size %dx%d", cols, rows)
	}

	return wrap(mat, memTracker, tag), nil
}

// NewMatFromMatWithTracker clones src into a fresh tracked Mat. The
// caller keeps ownership of src.
func NewMatFromMatWithTracker(src gocv.Mat, memTracker MemoryTracker, tag string) (*Mat, error) {
	if src.Empty() || src.Rows() <= 0 || src.Cols() <= 0 {
		return nil, fmt.Errorf("source Mat is empty or has invalid dimensions %dx%d", src.Cols(), src.Rows())
	}

	cloned := src.Clone()
	if cloned.Empty() {
		cloned.Close()
		return nil, fmt.Errorf("failed to clone Mat")
	}

	return wrap(cloned, memTracker, tag), nil
}

func wrap(mat gocv.Mat, memTracker MemoryTracker, tag string) *Mat {
	safeMat := &Mat{
		mat:        mat,
		isValid:    1,
		id:         atomic.AddUint64(&nextMatID, 1),
		memTracker: memTracker,
		tag:        tag,
	}

	if memTracker != nil {
		size := int64(mat.Rows() * mat.Cols() * MatTypeSize(mat.Type()))
		memTracker.TrackAllocation(safeMat.trackingPtr(), size, tag)
	}

	// The finalizer is a backstop for Mats that were never closed.
	runtime.SetFinalizer(safeMat, (*Mat).finalize)
	return safeMat
}

// trackingPtr keys the allocation in the memory tracker. The embedded
// mat field address is stable for the life of the wrapper, so open and
// close report the same key.
func (m *Mat) trackingPtr() uintptr {
	return uintptr(unsafe.Pointer(&m.mat))
}

func (m *Mat) IsValid() bool {
	return atomic.LoadInt32(&m.isValid) == 1
}

func (m *Mat) Empty() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return !m.IsValid() || m.mat.Empty()
}

func (m *Mat) Rows() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() {
		return 0
	}
	return m.mat.Rows()
}

func (m *Mat) Cols() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() {
		return 0
	}
	return m.mat.Cols()
}

func (m *Mat) Channels() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() {
		return 0
	}
	return m.mat.Channels()
}

func (m *Mat) Type() gocv.MatType {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() {
		return gocv.MatTypeCV8UC1
	}
	return m.mat.Type()
}

func (m *Mat) ID() uint64 {
	return m.id
}

// SetFloatData copies values into a CV32FC1 Mat through its native
// buffer, avoiding a CGo call per pixel.
func (m *Mat) SetFloatData(values []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.IsValid() {
		return fmt.Errorf("Mat is invalid")
	}
	if m.mat.Type() != gocv.MatTypeCV32FC1 {
		return fmt.Errorf("Mat type %d does not hold float32 data", int(m.mat.Type()))
	}

	data, err := m.mat.DataPtrFloat32()
	if err != nil {
		return fmt.Errorf("failed to access Mat data: %w", err)
	}
	if len(data) != len(values) {
		return fmt.Errorf("value count %d does not match Mat capacity %d", len(values), len(data))
	}

	copy(data, values)
	return nil
}

// FloatData copies the contents of a CV32FC1 Mat into a fresh slice.
func (m *Mat) FloatData() ([]float32, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() {
		return nil, fmt.Errorf("Mat is invalid")
	}
	if m.mat.Type() != gocv.MatTypeCV32FC1 {
		return nil, fmt.Errorf("Mat type %d does not hold float32 data", int(m.mat.Type()))
	}

	data, err := m.mat.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to access Mat data: %w", err)
	}
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (m *Mat) Clone() (*Mat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() || m.mat.Empty() {
		return nil, fmt.Errorf("cannot clone an invalid or empty Mat")
	}
	return NewMatFromMatWithTracker(m.mat, m.memTracker, m.tag+"_clone")
}

// ToImage converts the Mat into a Go image for canvas display.
func (m *Mat) ToImage() (image.Image, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.IsValid() {
		return nil, fmt.Errorf("Mat is invalid")
	}

	img, err := m.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert Mat to image: %w", err)
	}
	return img, nil
}

// GetMat exposes the underlying gocv.Mat for OpenCV calls. The caller
// must not close it.
func (m *Mat) GetMat() gocv.Mat {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.mat
}

func (m *Mat) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if atomic.CompareAndSwapInt32(&m.isValid, 1, 0) {
		if m.memTracker != nil {
			m.memTracker.TrackDeallocation(m.trackingPtr(), m.tag)
		}

		if !m.mat.Empty() {
			m.mat.Close()
		}

		runtime.SetFinalizer(m, nil)
	}
}

func (m *Mat) finalize() {
	if atomic.LoadInt32(&m.isValid) == 1 {
		m.Close()
	}
}

// MatTypeSize returns the bytes per pixel for the Mat types the viewer
// allocates.
func MatTypeSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV16UC1:
		return 2
	case gocv.MatTypeCV32FC1:
		return 4
	default:
		return 1
	}
}
