// Package snapshot exports captured plane thumbnails as PNG files.
package snapshot

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"mpr-visualizer/internal/volume"
)

// Record is one captured thumbnail together with where it came from.
type Record struct {
	Plane    volume.Plane
	Index    int
	Filter   string
	Captured time.Time
	Image    image.Image
}

// Writer persists snapshot records under a single export directory.
type Writer struct {
	dir    string
	logger Logger
	timing TimingTracker
	files  FileTracker
}

func NewWriter(dir string, logger Logger, timing TimingTracker, files FileTracker) *Writer {
	return &Writer{
		dir:    dir,
		logger: logger,
		timing: timing,
		files:  files,
	}
}

// Dir reports the export directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write encodes the record as a PNG named after its plane, slice index
// and capture time, and returns the written path. A capture of the same
// plane and index within the same second replaces the previous file.
func (w *Writer) Write(rec Record) (string, error) {
	if rec.Image == nil {
		return "", fmt.Errorf("no snapshot image to write")
	}

	ctx := w.timing.StartTiming("write_snapshot")
	defer w.timing.EndTiming(ctx)

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	captured := rec.Captured
	if captured.IsZero() {
		captured = time.Now()
	}

	name := fmt.Sprintf("%s_%03d_%s.png",
		rec.Plane, rec.Index, captured.Format("20060102-150405"))
	path := filepath.Join(w.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot file: %w", err)
	}
	fd := file.Fd()
	w.files.TrackOpen(path, fd)

	if err := png.Encode(file, rec.Image); err != nil {
		w.files.TrackClose(path, fd)
		file.Close()
		w.logger.Error("SnapshotWriter", err, map[string]interface{}{
			"path": path,
		})
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := file.Close(); err != nil {
		w.files.TrackClose(path, fd)
		return "", fmt.Errorf("failed to close snapshot file: %w", err)
	}
	w.files.TrackClose(path, fd)

	w.logger.Info("SnapshotWriter", "snapshot exported", map[string]interface{}{
		"path":   path,
		"plane":  rec.Plane.String(),
		"index":  rec.Index,
		"filter": rec.Filter,
	})
	return path, nil
}
