// Package volume holds the reconstructed 3D voxel grid and extracts 2D
// slices from it along the axial, coronal and sagittal planes. Slice
// extraction is direct array indexing; no resampling or interpolation is
// performed.
package volume

import "fmt"

// Spacing is the physical size of a voxel in millimetres.
type Spacing struct {
	X, Y, Z float64
}

// Volume is a 3D intensity grid stored as a flat slice in z-major order:
// index = z*Width*Height + y*Width + x. Voxel values carry the modality
// units produced by the series reader (HU for CT after rescale).
type Volume struct {
	Data    []float32
	Width   int // columns, patient X
	Height  int // rows, patient Y
	Depth   int // number of slices, patient Z
	Spacing Spacing

	stats *Stats
}

// Slice is a single 2D plane extracted from a Volume, in row-major order.
type Slice struct {
	Pixels []float32
	Width  int
	Height int
	Plane  Plane
	Index  int
}

// New creates a volume of the given dimensions backed by data. The data
// length must be exactly width*height*depth.
func New(data []float32, width, height, depth int, spacing Spacing) (*Volume, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("invalid volume dimensions %dx%dx%d", width, height, depth)
	}
	if len(data) != width*height*depth {
		return nil, fmt.Errorf("volume data length %d does not match dimensions %dx%dx%d",
			len(data), width, height, depth)
	}
	if spacing.X <= 0 {
		spacing.X = 1
	}
	if spacing.Y <= 0 {
		spacing.Y = 1
	}
	if spacing.Z <= 0 {
		spacing.Z = 1
	}
	return &Volume{
		Data:    data,
		Width:   width,
		Height:  height,
		Depth:   depth,
		Spacing: spacing,
	}, nil
}

// MaxIndex returns the largest valid slice index for the plane. Axial
// scrubs through depth, coronal through rows, sagittal through columns.
func (v *Volume) MaxIndex(p Plane) int {
	switch p {
	case Axial:
		return v.Depth - 1
	case Coronal:
		return v.Height - 1
	case Sagittal:
		return v.Width - 1
	default:
		return 0
	}
}

// ClampIndex forces i into the valid [0, MaxIndex] range for the plane.
func (v *Volume) ClampIndex(p Plane, i int) int {
	if i < 0 {
		return 0
	}
	if max := v.MaxIndex(p); i > max {
		return max
	}
	return i
}

// ExtractSlice copies the 2D plane at the given index out of the volume.
//
// Axial slices are Width x Height, coronal slices Width x Depth and
// sagittal slices Height x Depth, each row-major with z increasing down
// the rows for the reformatted planes.
func (v *Volume) ExtractSlice(p Plane, index int) (Slice, error) {
	if len(v.Data) == 0 {
		return Slice{}, fmt.Errorf("volume is empty")
	}
	if index < 0 || index > v.MaxIndex(p) {
		return Slice{}, fmt.Errorf("%s index %d out of range [0, %d]", p, index, v.MaxIndex(p))
	}

	switch p {
	case Axial:
		// Fixed z: the native acquisition plane, a contiguous block.
		pixels := make([]float32, v.Width*v.Height)
		copy(pixels, v.Data[index*v.Width*v.Height:(index+1)*v.Width*v.Height])
		return Slice{Pixels: pixels, Width: v.Width, Height: v.Height, Plane: p, Index: index}, nil

	case Coronal:
		// Fixed y: gather row y from every z slice.
		pixels := make([]float32, v.Width*v.Depth)
		for z := 0; z < v.Depth; z++ {
			src := z*v.Width*v.Height + index*v.Width
			copy(pixels[z*v.Width:(z+1)*v.Width], v.Data[src:src+v.Width])
		}
		return Slice{Pixels: pixels, Width: v.Width, Height: v.Depth, Plane: p, Index: index}, nil

	case Sagittal:
		// Fixed x: gather column x from every row of every z slice.
		pixels := make([]float32, v.Height*v.Depth)
		for z := 0; z < v.Depth; z++ {
			for y := 0; y < v.Height; y++ {
				pixels[z*v.Height+y] = v.Data[z*v.Width*v.Height+y*v.Width+index]
			}
		}
		return Slice{Pixels: pixels, Width: v.Height, Height: v.Depth, Plane: p, Index: index}, nil

	default:
		return Slice{}, fmt.Errorf("invalid plane %d", int(p))
	}
}

// VoxelCount returns the total number of voxels.
func (v *Volume) VoxelCount() int {
	return len(v.Data)
}
