package dicom

import (
	"context"
	"errors"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{})   {}
func (nopLogger) Info(string, string, map[string]interface{})    {}
func (nopLogger) Warning(string, string, map[string]interface{}) {}
func (nopLogger) Error(string, error, map[string]interface{})    {}

type nopTiming struct{}

func (nopTiming) StartTiming(string) context.Context { return context.Background() }
func (nopTiming) EndTiming(context.Context)          {}

type recordingFiles struct {
	opens  []string
	closes []string
}

func (r *recordingFiles) TrackOpen(path string, handle uintptr)  { r.opens = append(r.opens, path) }
func (r *recordingFiles) TrackClose(path string, handle uintptr) { r.closes = append(r.closes, path) }

func TestReadSeriesEmptyDirectory(t *testing.T) {
	reader := NewReader(nopLogger{}, nopTiming{}, &recordingFiles{})

	_, _, err := reader.ReadSeries(t.TempDir())
	if !errors.Is(err, ErrNoSeries) {
		t.Fatalf("expected ErrNoSeries, got %v", err)
	}
}

func TestReadSeriesIgnoresNonDicomFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("not a scan"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatal(err)
	}

	reader := NewReader(nopLogger{}, nopTiming{}, &recordingFiles{})
	_, _, err := reader.ReadSeries(dir)
	if !errors.Is(err, ErrNoSeries) {
		t.Fatalf("expected ErrNoSeries for junk-only directory, got %v", err)
	}
}

func TestReadSeriesMissingDirectory(t *testing.T) {
	reader := NewReader(nopLogger{}, nopTiming{}, &recordingFiles{})

	_, _, err := reader.ReadSeries(filepath.Join(t.TempDir(), "absent"))
	if err == nil || errors.Is(err, ErrNoSeries) {
		t.Fatalf("expected a read error distinct from ErrNoSeries, got %v", err)
	}
}

func TestReadSeriesTracksEveryFileHandle(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.dcm", "b.dcm"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("junk"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	files := &recordingFiles{}
	reader := NewReader(nopLogger{}, nopTiming{}, files)
	reader.ReadSeries(dir)

	// Parsing fails for junk content, but every opened handle must still
	// be closed.
	if len(files.opens) != 2 || len(files.closes) != 2 {
		t.Fatalf("tracked %d opens and %d closes, want 2 and 2", len(files.opens), len(files.closes))
	}
	for i := range files.opens {
		if files.opens[i] != files.closes[i] {
			t.Errorf("open %q paired with close %q", files.opens[i], files.closes[i])
		}
	}
}

func TestSortInstancesByProjection(t *testing.T) {
	instances := []*instance{
		{path: "c", projection: 30, hasProjection: true},
		{path: "a", projection: 10, hasProjection: true},
		{path: "b", projection: 20, hasProjection: true},
	}

	if by := sortInstances(instances); by != "position" {
		t.Fatalf("sorted by %q, want position", by)
	}
	for i, want := range []string{"a", "b", "c"} {
		if instances[i].path != want {
			t.Errorf("slot %d holds %s, want %s", i, instances[i].path, want)
		}
	}
}

func TestSortInstancesFallsBackToInstanceNumber(t *testing.T) {
	instances := []*instance{
		{path: "b", instanceNumber: 2, hasInstanceNumber: true, projection: 5, hasProjection: true},
		{path: "a", instanceNumber: 1, hasInstanceNumber: true}, // no projection
	}

	if by := sortInstances(instances); by != "instance_number" {
		t.Fatalf("sorted by %q, want instance_number", by)
	}
	if instances[0].path != "a" || instances[1].path != "b" {
		t.Errorf("unexpected order: %s, %s", instances[0].path, instances[1].path)
	}
}

func TestSortInstancesFallsBackToSliceLocation(t *testing.T) {
	instances := []*instance{
		{path: "b", sliceLocation: 4.5, hasSliceLocation: true},
		{path: "a", sliceLocation: -2.0, hasSliceLocation: true},
	}

	if by := sortInstances(instances); by != "slice_location" {
		t.Fatalf("sorted by %q, want slice_location", by)
	}
	if instances[0].path != "a" {
		t.Errorf("expected slice at -2.0 first, got %s", instances[0].path)
	}
}

func TestSortInstancesFallsBackToFilename(t *testing.T) {
	instances := []*instance{
		{path: "im02"},
		{path: "im01"},
		{path: "im10"},
	}

	if by := sortInstances(instances); by != "filename" {
		t.Fatalf("sorted by %q, want filename", by)
	}
	if instances[0].path != "im01" || instances[2].path != "im10" {
		t.Errorf("unexpected order: %v", []string{instances[0].path, instances[1].path, instances[2].path})
	}
}

func TestSelectLargestSeries(t *testing.T) {
	instances := []*instance{
		{path: "s1a", seriesUID: "1.2.3"},
		{path: "s2a", seriesUID: "1.2.4"},
		{path: "s2b", seriesUID: "1.2.4"},
		{path: "s2c", seriesUID: "1.2.4"},
		{path: "s1b", seriesUID: "1.2.3"},
	}

	best := selectLargestSeries(instances)
	if len(best) != 3 {
		t.Fatalf("largest series has %d files, want 3", len(best))
	}
	for _, inst := range best {
		if inst.seriesUID != "1.2.4" {
			t.Errorf("wrong series member %s (%s)", inst.path, inst.seriesUID)
		}
	}
}

func TestSliceNormalAxial(t *testing.T) {
	// Identity orientation: rows along X, columns along Y.
	normal, ok := sliceNormal([]float64{1, 0, 0, 0, 1, 0})
	if !ok {
		t.Fatal("expected a normal for a 6-element orientation")
	}
	if normal != [3]float64{0, 0, 1} {
		t.Errorf("normal = %v, want +Z", normal)
	}

	if _, ok := sliceNormal([]float64{1, 0, 0}); ok {
		t.Error("short orientation should not yield a normal")
	}
}

func TestInferZSpacingFromProjections(t *testing.T) {
	instances := []*instance{
		{projection: 0, hasProjection: true},
		{projection: 2.5, hasProjection: true},
		{projection: 5.0, hasProjection: true},
	}

	if got := inferZSpacing(instances); got != 2.5 {
		t.Errorf("spacing = %v, want 2.5", got)
	}
}

func TestInferZSpacingFallbacks(t *testing.T) {
	spacingBetween := []*instance{
		{spacingBetween: 3.0, hasSpacingBetween: true, thickness: 5.0, hasThickness: true},
	}
	if got := inferZSpacing(spacingBetween); got != 3.0 {
		t.Errorf("spacing = %v, want SpacingBetweenSlices 3.0", got)
	}

	thicknessOnly := []*instance{
		{thickness: 5.0, hasThickness: true},
	}
	if got := inferZSpacing(thicknessOnly); got != 5.0 {
		t.Errorf("spacing = %v, want SliceThickness 5.0", got)
	}

	bare := []*instance{{}}
	if got := inferZSpacing(bare); got != 1.0 {
		t.Errorf("spacing = %v, want default 1.0", got)
	}
}

func TestRescale(t *testing.T) {
	inst := &instance{rescaleSlope: 2, rescaleIntercept: -1024}
	if got := rescale(1000, inst); got != 976 {
		t.Errorf("rescale(1000) = %v, want 976", got)
	}

	identity := &instance{rescaleSlope: 1}
	if got := rescale(42, identity); got != 42 {
		t.Errorf("identity rescale(42) = %v", got)
	}
}

func TestImageToSlice(t *testing.T) {
	gray := image.NewGray16(image.Rect(0, 0, 2, 2))
	gray.Pix = []uint8{0, 10, 0, 20, 0, 30, 0, 40} // big-endian Gray16 samples
	inst := &instance{rows: 2, cols: 2, rescaleSlope: 1, rescaleIntercept: 5}

	dst := make([]float32, 4)
	if err := imageToSlice(dst, gray, inst); err != nil {
		t.Fatalf("imageToSlice: %v", err)
	}
	want := []float32{15, 25, 35, 45}
	for i := range want {
		if math.Abs(float64(dst[i]-want[i])) > 1e-6 {
			t.Errorf("pixel %d = %v, want %v", i, dst[i], want[i])
		}
	}

	wrong := &instance{rows: 3, cols: 3, rescaleSlope: 1}
	if err := imageToSlice(dst, gray, wrong); err == nil {
		t.Error("expected dimension mismatch error")
	}
}
