// Package pipeline holds the viewer state machine: the loaded volume,
// the per-plane slice cursors, and the active display settings. The GUI
// talks to the Coordinator and never to the readers or renderers
// directly.
package pipeline

import (
	"fmt"
	"image"
	"sync"
	"time"

	"mpr-visualizer/internal/dicom"
	"mpr-visualizer/internal/render"
	"mpr-visualizer/internal/snapshot"
	"mpr-visualizer/internal/volume"
)

// Settings carries the initial display state, usually from the config
// file.
type Settings struct {
	Colormap      render.Colormap
	Filter        render.Filter
	GaussianSigma float64
	ThumbnailSize int
	Autosave      bool
}

type Coordinator struct {
	mu sync.RWMutex

	reader   SeriesReader
	renderer SliceRenderer
	writer   SnapshotWriter
	logger   Logger
	timing   TimingTracker

	volume  *volume.Volume
	info    dicom.SeriesInfo
	indices map[volume.Plane]int

	colormap render.Colormap
	filter   render.Filter
	sigma    float64
	thumb    int
	autosave bool
}

func NewCoordinator(reader SeriesReader, renderer SliceRenderer, writer SnapshotWriter, settings Settings, logger Logger, timing TimingTracker) *Coordinator {
	if settings.GaussianSigma <= 0 {
		settings.GaussianSigma = render.DefaultSigma
	}
	if settings.ThumbnailSize <= 0 {
		settings.ThumbnailSize = render.DefaultThumbnailSize
	}

	return &Coordinator{
		reader:   reader,
		renderer: renderer,
		writer:   writer,
		logger:   logger,
		timing:   timing,
		indices:  make(map[volume.Plane]int),
		colormap: settings.Colormap,
		filter:   settings.Filter,
		sigma:    settings.GaussianSigma,
		thumb:    settings.ThumbnailSize,
		autosave: settings.Autosave,
	}
}

// LoadSeries reads the DICOM series under dir and replaces the current
// volume. Each plane cursor starts at the middle slice. The read runs
// without the state lock so live views stay responsive.
func (c *Coordinator) LoadSeries(dir string) (dicom.SeriesInfo, error) {
	vol, info, err := c.reader.ReadSeries(dir)
	if err != nil {
		return dicom.SeriesInfo{}, err
	}
	stats := vol.ComputeStats()

	indices := make(map[volume.Plane]int, len(volume.Planes()))
	for _, plane := range volume.Planes() {
		indices[plane] = vol.MaxIndex(plane) / 2
	}

	c.mu.Lock()
	c.volume = vol
	c.info = info
	c.indices = indices
	c.mu.Unlock()

	c.logger.Info("Pipeline", "series loaded", map[string]interface{}{
		"series_uid":     info.SeriesUID,
		"slices":         info.SliceCount,
		"voxels":         vol.VoxelCount(),
		"intensity_min":  stats.Min,
		"intensity_max":  stats.Max,
		"intensity_mean": stats.Mean,
	})
	return info, nil
}

// VolumeLoaded reports whether a series is currently loaded.
func (c *Coordinator) VolumeLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.volume != nil
}

// Info returns the metadata of the loaded series.
func (c *Coordinator) Info() dicom.SeriesInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info
}

// MaxIndex reports the highest slice index for a plane, 0 when nothing
// is loaded.
func (c *Coordinator) MaxIndex(plane volume.Plane) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.volume == nil {
		return 0
	}
	return c.volume.MaxIndex(plane)
}

// SliceIndex reports the current cursor for a plane.
func (c *Coordinator) SliceIndex(plane volume.Plane) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.indices[plane]
}

// SetSliceIndex moves the cursor for one plane, clamped to the volume
// bounds, and returns the effective index.
func (c *Coordinator) SetSliceIndex(plane volume.Plane, index int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.volume == nil {
		return 0
	}
	clamped := c.volume.ClampIndex(plane, index)
	c.indices[plane] = clamped
	return clamped
}

// StepAll moves every plane cursor by delta, clamped per plane, and
// returns the new cursor positions. Without a volume it returns nil.
func (c *Coordinator) StepAll(delta int) map[volume.Plane]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.volume == nil {
		return nil
	}

	moved := make(map[volume.Plane]int, len(c.indices))
	for plane, index := range c.indices {
		clamped := c.volume.ClampIndex(plane, index+delta)
		c.indices[plane] = clamped
		moved[plane] = clamped
	}
	return moved
}

// RenderPlane produces the live view image for a plane at its current
// cursor, with the active colormap applied.
func (c *Coordinator) RenderPlane(plane volume.Plane) (image.Image, error) {
	c.mu.RLock()
	vol := c.volume
	index := c.indices[plane]
	cmap := c.colormap
	c.mu.RUnlock()

	if vol == nil {
		return nil, fmt.Errorf("no series loaded")
	}

	slice, err := vol.ExtractSlice(plane, index)
	if err != nil {
		return nil, fmt.Errorf("failed to extract %s slice: %w", plane, err)
	}
	return c.renderer.Render(slice, cmap)
}

// CaptureSnapshot renders the snapshot thumbnail for a plane at its
// current cursor, with the active filter applied and no colormap. When
// autosave is on, the thumbnail is also exported; export failures are
// logged, not fatal.
func (c *Coordinator) CaptureSnapshot(plane volume.Plane) (image.Image, string, error) {
	ctx := c.timing.StartTiming("capture_snapshot")
	defer c.timing.EndTiming(ctx)

	c.mu.RLock()
	vol := c.volume
	index := c.indices[plane]
	filter := c.filter
	sigma := c.sigma
	size := c.thumb
	autosave := c.autosave
	c.mu.RUnlock()

	if vol == nil {
		return nil, "", fmt.Errorf("no series loaded")
	}

	slice, err := vol.ExtractSlice(plane, index)
	if err != nil {
		return nil, "", fmt.Errorf("failed to extract %s slice: %w", plane, err)
	}

	img, err := c.renderer.Thumbnail(slice, filter, sigma, size)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render snapshot: %w", err)
	}

	path := ""
	if autosave && c.writer != nil {
		path, err = c.writer.Write(snapshot.Record{
			Plane:    plane,
			Index:    index,
			Filter:   filter.String(),
			Captured: time.Now(),
			Image:    img,
		})
		if err != nil {
			c.logger.Warning("Pipeline", "snapshot export failed", map[string]interface{}{
				"plane": plane.String(),
				"error": err.Error(),
			})
			path = ""
		}
	}

	c.logger.Debug("Pipeline", "snapshot captured", map[string]interface{}{
		"plane":  plane.String(),
		"index":  index,
		"filter": filter.String(),
	})
	return img, path, nil
}

// SetColormap switches the colormap used by live views.
func (c *Coordinator) SetColormap(cmap render.Colormap) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.colormap = cmap
}

func (c *Coordinator) Colormap() render.Colormap {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.colormap
}

// SetFilter switches the denoising filter used by snapshots.
func (c *Coordinator) SetFilter(filter render.Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
}

func (c *Coordinator) Filter() render.Filter {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter
}
