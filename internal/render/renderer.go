// Package render turns extracted volume slices into displayable images.
// The live view path normalizes each slice to its own intensity range
// and applies the selected colormap; the snapshot path applies the
// selected denoising filter and produces fixed-size grayscale
// thumbnails instead.
package render

import (
	"fmt"
	"image"

	"mpr-visualizer/internal/opencv/memory"
	"mpr-visualizer/internal/opencv/safe"
	"mpr-visualizer/internal/volume"

	"gocv.io/x/gocv"
)

// DefaultThumbnailSize is the snapshot edge length in pixels.
const DefaultThumbnailSize = 300

// Renderer converts slices into images using pooled mats from the
// shared memory manager. It holds no per-slice state; colormap and
// filter choices travel with each call.
type Renderer struct {
	memory *memory.Manager
	logger Logger
	timing TimingTracker
}

func NewRenderer(manager *memory.Manager, logger Logger, timing TimingTracker) *Renderer {
	return &Renderer{
		memory: manager,
		logger: logger,
		timing: timing,
	}
}

// Render produces the live view image for a slice. The slice is scaled
// so its own minimum and maximum span 0..255 before the colormap
// lookup; a constant slice comes out black.
func (r *Renderer) Render(slice volume.Slice, cmap Colormap) (image.Image, error) {
	src, err := r.matFromSlice(slice, "render_src")
	if err != nil {
		return nil, err
	}
	defer r.memory.ReleaseMat(src)

	gray, err := r.normalizeToGray(src, "render")
	if err != nil {
		return nil, err
	}
	defer r.memory.ReleaseMat(gray)

	lut, ok := cmap.gocvColormap()
	if !ok {
		img, err := gray.ToImage()
		if err != nil {
			return nil, fmt.Errorf("failed to convert slice to image: %w", err)
		}
		return img, nil
	}

	colored, err := r.memory.GetMat(gray.Rows(), gray.Cols(), gocv.MatTypeCV8UC3, "render_colored")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate colormap mat: %w", err)
	}
	defer r.memory.ReleaseMat(colored)

	grayMat := gray.GetMat()
	coloredMat := colored.GetMat()
	gocv.ApplyColorMap(grayMat, &coloredMat, lut)

	img, err := colored.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert colored slice to image: %w", err)
	}
	return img, nil
}

// Thumbnail produces the snapshot image for a slice: the selected
// filter, per-slice normalization, and a resize to size×size pixels.
// Colormaps are never applied on this path.
func (r *Renderer) Thumbnail(slice volume.Slice, filter Filter, sigma float64, size int) (image.Image, error) {
	ctx := r.timing.StartTiming("render_thumbnail")
	defer r.timing.EndTiming(ctx)

	if size <= 0 {
		size = DefaultThumbnailSize
	}

	src, err := r.matFromSlice(slice, "thumbnail_src")
	if err != nil {
		return nil, err
	}
	defer r.memory.ReleaseMat(src)

	work := src
	if filter == FilterGaussian {
		blurred, err := r.gaussianBlur(src, sigma, "thumbnail")
		if err != nil {
			return nil, err
		}
		defer r.memory.ReleaseMat(blurred)
		work = blurred
	}

	gray, err := r.normalizeToGray(work, "thumbnail")
	if err != nil {
		return nil, err
	}
	defer r.memory.ReleaseMat(gray)

	resized, err := r.memory.GetMat(size, size, gocv.MatTypeCV8UC1, "thumbnail_resized")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate thumbnail mat: %w", err)
	}
	defer r.memory.ReleaseMat(resized)

	grayMat := gray.GetMat()
	resizedMat := resized.GetMat()
	gocv.Resize(grayMat, &resizedMat, image.Point{X: size, Y: size}, 0, 0, gocv.InterpolationArea)

	img, err := resized.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert thumbnail to image: %w", err)
	}

	r.logger.Debug("Renderer", "thumbnail rendered", map[string]interface{}{
		"plane":  slice.Plane.String(),
		"index":  slice.Index,
		"filter": filter.String(),
		"size":   size,
	})
	return img, nil
}

// ApplyFilter runs the denoising filter over a slice and returns the
// filtered pixels as a new slice. FilterNone returns the input
// untouched.
func (r *Renderer) ApplyFilter(slice volume.Slice, filter Filter, sigma float64) (volume.Slice, error) {
	if filter != FilterGaussian {
		return slice, nil
	}

	src, err := r.matFromSlice(slice, "filter_src")
	if err != nil {
		return volume.Slice{}, err
	}
	defer r.memory.ReleaseMat(src)

	blurred, err := r.gaussianBlur(src, sigma, "filter")
	if err != nil {
		return volume.Slice{}, err
	}
	defer r.memory.ReleaseMat(blurred)

	pixels, err := blurred.FloatData()
	if err != nil {
		return volume.Slice{}, fmt.Errorf("failed to read filtered pixels: %w", err)
	}

	out := slice
	out.Pixels = pixels
	return out, nil
}

// matFromSlice uploads slice pixels into a pooled CV32FC1 mat.
func (r *Renderer) matFromSlice(slice volume.Slice, tag string) (*safe.Mat, error) {
	if len(slice.Pixels) == 0 || len(slice.Pixels) != slice.Width*slice.Height {
		return nil, fmt.Errorf("slice pixel count %d does not match %dx%d", len(slice.Pixels), slice.Width, slice.Height)
	}

	mat, err := r.memory.GetMat(slice.Height, slice.Width, gocv.MatTypeCV32FC1, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate slice mat: %w", err)
	}
	if err := mat.SetFloatData(slice.Pixels); err != nil {
		r.memory.ReleaseMat(mat)
		return nil, fmt.Errorf("failed to upload slice pixels: %w", err)
	}
	return mat, nil
}

// normalizeToGray scales a float mat so its own range spans 0..255 and
// converts it to 8-bit.
func (r *Renderer) normalizeToGray(src *safe.Mat, tag string) (*safe.Mat, error) {
	scaled, err := r.memory.GetMat(src.Rows(), src.Cols(), gocv.MatTypeCV32FC1, tag+"_scaled")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate normalization mat: %w", err)
	}
	defer r.memory.ReleaseMat(scaled)

	srcMat := src.GetMat()
	scaledMat := scaled.GetMat()
	gocv.Normalize(srcMat, &scaledMat, 0, 255, gocv.NormMinMax)

	gray, err := r.memory.GetMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, tag+"_gray")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate grayscale mat: %w", err)
	}

	grayMat := gray.GetMat()
	scaledMat.ConvertTo(&grayMat, gocv.MatTypeCV8UC1)
	return gray, nil
}

// gaussianBlur blurs a float mat with the kernel width derived from
// sigma.
func (r *Renderer) gaussianBlur(src *safe.Mat, sigma float64, tag string) (*safe.Mat, error) {
	if sigma <= 0 {
		sigma = DefaultSigma
	}

	dst, err := r.memory.GetMat(src.Rows(), src.Cols(), gocv.MatTypeCV32FC1, tag+"_blurred")
	if err != nil {
		return nil, fmt.Errorf("failed to allocate blur mat: %w", err)
	}

	k := kernelSize(sigma)
	srcMat := src.GetMat()
	dstMat := dst.GetMat()
	gocv.GaussianBlur(srcMat, &dstMat, image.Point{X: k, Y: k}, sigma, sigma, gocv.BorderDefault)
	return dst, nil
}
