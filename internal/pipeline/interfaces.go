package pipeline

import (
	"image"

	"mpr-visualizer/internal/dicom"
	"mpr-visualizer/internal/render"
	"mpr-visualizer/internal/snapshot"
	"mpr-visualizer/internal/volume"
)

// SeriesReader assembles a volume from the DICOM files in a directory.
type SeriesReader interface {
	ReadSeries(dir string) (*volume.Volume, dicom.SeriesInfo, error)
}

// SliceRenderer turns extracted slices into displayable images.
type SliceRenderer interface {
	Render(slice volume.Slice, cmap render.Colormap) (image.Image, error)
	Thumbnail(slice volume.Slice, filter render.Filter, sigma float64, size int) (image.Image, error)
}

// SnapshotWriter exports captured thumbnails.
type SnapshotWriter interface {
	Write(rec snapshot.Record) (string, error)
}
