package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"testing"

	"mpr-visualizer/internal/dicom"
	"mpr-visualizer/internal/render"
	"mpr-visualizer/internal/snapshot"
	"mpr-visualizer/internal/volume"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{})   {}
func (nopLogger) Info(string, string, map[string]interface{})    {}
func (nopLogger) Warning(string, string, map[string]interface{}) {}
func (nopLogger) Error(string, error, map[string]interface{})    {}

type nopTiming struct{}

func (nopTiming) StartTiming(string) context.Context { return context.Background() }
func (nopTiming) EndTiming(context.Context)          {}

// testVolume is 4 wide, 3 tall, 5 deep, so the plane maxima differ.
func testVolume(t *testing.T) *volume.Volume {
	t.Helper()
	data := make([]float32, 4*3*5)
	for i := range data {
		data[i] = float32(i)
	}
	vol, err := volume.New(data, 4, 3, 5, volume.Spacing{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	return vol
}

type fakeReader struct {
	vol  *volume.Volume
	info dicom.SeriesInfo
	err  error
	dirs []string
}

func (f *fakeReader) ReadSeries(dir string) (*volume.Volume, dicom.SeriesInfo, error) {
	f.dirs = append(f.dirs, dir)
	return f.vol, f.info, f.err
}

type renderCall struct {
	plane  volume.Plane
	index  int
	cmap   render.Colormap
	filter render.Filter
	sigma  float64
	size   int
}

type fakeRenderer struct {
	renders    []renderCall
	thumbnails []renderCall
	err        error
}

func (f *fakeRenderer) Render(slice volume.Slice, cmap render.Colormap) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.renders = append(f.renders, renderCall{plane: slice.Plane, index: slice.Index, cmap: cmap})
	return image.NewGray(image.Rect(0, 0, slice.Width, slice.Height)), nil
}

func (f *fakeRenderer) Thumbnail(slice volume.Slice, filter render.Filter, sigma float64, size int) (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.thumbnails = append(f.thumbnails, renderCall{
		plane: slice.Plane, index: slice.Index, filter: filter, sigma: sigma, size: size,
	})
	return image.NewGray(image.Rect(0, 0, size, size)), nil
}

type fakeWriter struct {
	records []snapshot.Record
	err     error
}

func (f *fakeWriter) Write(rec snapshot.Record) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return fmt.Sprintf("/snaps/%d.png", len(f.records)), nil
}

func newLoadedCoordinator(t *testing.T, settings Settings) (*Coordinator, *fakeReader, *fakeRenderer, *fakeWriter) {
	t.Helper()
	reader := &fakeReader{vol: testVolume(t), info: dicom.SeriesInfo{SeriesUID: "1.2.3", SliceCount: 5}}
	renderer := &fakeRenderer{}
	writer := &fakeWriter{}
	coord := NewCoordinator(reader, renderer, writer, settings, nopLogger{}, nopTiming{})

	if _, err := coord.LoadSeries("/data/series"); err != nil {
		t.Fatalf("LoadSeries returned error: %v", err)
	}
	return coord, reader, renderer, writer
}

func TestLoadSeriesCentersEveryPlane(t *testing.T) {
	coord, reader, _, _ := newLoadedCoordinator(t, Settings{})

	if reader.dirs[0] != "/data/series" {
		t.Errorf("reader asked for %q", reader.dirs[0])
	}
	if !coord.VolumeLoaded() {
		t.Fatal("VolumeLoaded is false after a successful load")
	}

	// Maxima are depth-1=4, height-1=2, width-1=3; centers are the
	// halves.
	wantIndex := map[volume.Plane]int{volume.Axial: 2, volume.Coronal: 1, volume.Sagittal: 1}
	wantMax := map[volume.Plane]int{volume.Axial: 4, volume.Coronal: 2, volume.Sagittal: 3}
	for _, plane := range volume.Planes() {
		if got := coord.SliceIndex(plane); got != wantIndex[plane] {
			t.Errorf("%s starts at %d, want %d", plane, got, wantIndex[plane])
		}
		if got := coord.MaxIndex(plane); got != wantMax[plane] {
			t.Errorf("%s max = %d, want %d", plane, got, wantMax[plane])
		}
	}

	if got := coord.Info().SeriesUID; got != "1.2.3" {
		t.Errorf("Info().SeriesUID = %q", got)
	}
}

func TestLoadSeriesFailureKeepsState(t *testing.T) {
	reader := &fakeReader{err: errors.New("unreadable")}
	coord := NewCoordinator(reader, &fakeRenderer{}, &fakeWriter{}, Settings{}, nopLogger{}, nopTiming{})

	if _, err := coord.LoadSeries("/bad"); err == nil {
		t.Fatal("LoadSeries swallowed the reader error")
	}
	if coord.VolumeLoaded() {
		t.Error("VolumeLoaded is true after a failed load")
	}
}

func TestSetSliceIndexClamps(t *testing.T) {
	coord, _, _, _ := newLoadedCoordinator(t, Settings{})

	if got := coord.SetSliceIndex(volume.Axial, 99); got != 4 {
		t.Errorf("index clamped to %d, want 4", got)
	}
	if got := coord.SetSliceIndex(volume.Axial, -7); got != 0 {
		t.Errorf("index clamped to %d, want 0", got)
	}
	if got := coord.SetSliceIndex(volume.Axial, 3); got != 3 {
		t.Errorf("in-range index became %d, want 3", got)
	}
	if got := coord.SliceIndex(volume.Axial); got != 3 {
		t.Errorf("stored index = %d, want 3", got)
	}
}

func TestStepAllMovesEveryPlaneClamped(t *testing.T) {
	coord, _, _, _ := newLoadedCoordinator(t, Settings{})

	moved := coord.StepAll(1)
	want := map[volume.Plane]int{volume.Axial: 3, volume.Coronal: 2, volume.Sagittal: 2}
	for plane, index := range want {
		if moved[plane] != index {
			t.Errorf("%s stepped to %d, want %d", plane, moved[plane], index)
		}
	}

	// Coronal is already at its maximum of 2; stepping again pins it
	// there while the others advance.
	moved = coord.StepAll(1)
	if moved[volume.Coronal] != 2 {
		t.Errorf("coronal moved past its maximum to %d", moved[volume.Coronal])
	}
	if moved[volume.Axial] != 4 {
		t.Errorf("axial stepped to %d, want 4", moved[volume.Axial])
	}

	for i := 0; i < 10; i++ {
		moved = coord.StepAll(-1)
	}
	for _, plane := range volume.Planes() {
		if moved[plane] != 0 {
			t.Errorf("%s ended at %d after stepping far down, want 0", plane, moved[plane])
		}
	}
}

func TestStepAllWithoutVolumeIsNoOp(t *testing.T) {
	coord := NewCoordinator(&fakeReader{}, &fakeRenderer{}, &fakeWriter{}, Settings{}, nopLogger{}, nopTiming{})

	if moved := coord.StepAll(1); moved != nil {
		t.Errorf("StepAll returned %v without a volume, want nil", moved)
	}
}

func TestRenderPlaneUsesActiveColormap(t *testing.T) {
	coord, _, renderer, _ := newLoadedCoordinator(t, Settings{Colormap: render.ColormapGray})

	if _, err := coord.RenderPlane(volume.Axial); err != nil {
		t.Fatalf("RenderPlane returned error: %v", err)
	}
	coord.SetColormap(render.ColormapHot)
	if _, err := coord.RenderPlane(volume.Sagittal); err != nil {
		t.Fatalf("RenderPlane returned error: %v", err)
	}

	if len(renderer.renders) != 2 {
		t.Fatalf("renderer saw %d calls, want 2", len(renderer.renders))
	}
	first, second := renderer.renders[0], renderer.renders[1]
	if first.plane != volume.Axial || first.cmap != render.ColormapGray || first.index != 2 {
		t.Errorf("first render was %+v", first)
	}
	if second.plane != volume.Sagittal || second.cmap != render.ColormapHot || second.index != 1 {
		t.Errorf("second render was %+v", second)
	}
}

func TestRenderPlaneWithoutVolumeFails(t *testing.T) {
	coord := NewCoordinator(&fakeReader{}, &fakeRenderer{}, &fakeWriter{}, Settings{}, nopLogger{}, nopTiming{})

	if _, err := coord.RenderPlane(volume.Axial); err == nil {
		t.Error("RenderPlane succeeded without a volume")
	}
}

func TestCaptureSnapshotUsesActiveFilter(t *testing.T) {
	coord, _, renderer, _ := newLoadedCoordinator(t, Settings{
		Filter:        render.FilterNone,
		GaussianSigma: 2.5,
		ThumbnailSize: 128,
	})
	coord.SetFilter(render.FilterGaussian)

	img, path, err := coord.CaptureSnapshot(volume.Coronal)
	if err != nil {
		t.Fatalf("CaptureSnapshot returned error: %v", err)
	}
	if img == nil {
		t.Fatal("CaptureSnapshot returned a nil image")
	}
	if path != "" {
		t.Errorf("snapshot exported to %q with autosave off", path)
	}

	if len(renderer.thumbnails) != 1 {
		t.Fatalf("renderer saw %d thumbnail calls, want 1", len(renderer.thumbnails))
	}
	call := renderer.thumbnails[0]
	if call.plane != volume.Coronal || call.index != 1 {
		t.Errorf("thumbnail rendered for %s at %d", call.plane, call.index)
	}
	if call.filter != render.FilterGaussian || call.sigma != 2.5 || call.size != 128 {
		t.Errorf("thumbnail call was %+v", call)
	}
}

func TestCaptureSnapshotAutosaves(t *testing.T) {
	coord, _, _, writer := newLoadedCoordinator(t, Settings{Autosave: true})

	_, path, err := coord.CaptureSnapshot(volume.Axial)
	if err != nil {
		t.Fatalf("CaptureSnapshot returned error: %v", err)
	}
	if path == "" {
		t.Error("autosave produced no path")
	}

	if len(writer.records) != 1 {
		t.Fatalf("writer saw %d records, want 1", len(writer.records))
	}
	rec := writer.records[0]
	if rec.Plane != volume.Axial || rec.Index != 2 {
		t.Errorf("exported record %+v", rec)
	}
	if rec.Filter != "None" {
		t.Errorf("exported filter name %q, want None", rec.Filter)
	}
	if rec.Image == nil {
		t.Error("exported record has no image")
	}
	if rec.Captured.IsZero() {
		t.Error("exported record has no capture time")
	}
}

func TestCaptureSnapshotSurvivesExportFailure(t *testing.T) {
	reader := &fakeReader{vol: testVolume(t)}
	writer := &fakeWriter{err: errors.New("disk full")}
	coord := NewCoordinator(reader, &fakeRenderer{}, writer, Settings{Autosave: true}, nopLogger{}, nopTiming{})
	if _, err := coord.LoadSeries("/data"); err != nil {
		t.Fatal(err)
	}

	img, path, err := coord.CaptureSnapshot(volume.Axial)
	if err != nil {
		t.Fatalf("CaptureSnapshot failed on an export error: %v", err)
	}
	if img == nil {
		t.Error("capture lost its image on an export error")
	}
	if path != "" {
		t.Errorf("failed export still reported path %q", path)
	}
}

func TestCaptureSnapshotWithoutVolumeFails(t *testing.T) {
	coord := NewCoordinator(&fakeReader{}, &fakeRenderer{}, &fakeWriter{}, Settings{}, nopLogger{}, nopTiming{})

	if _, _, err := coord.CaptureSnapshot(volume.Axial); err == nil {
		t.Error("CaptureSnapshot succeeded without a volume")
	}
}

func TestColormapAndFilterAccessors(t *testing.T) {
	coord := NewCoordinator(&fakeReader{}, &fakeRenderer{}, &fakeWriter{}, Settings{
		Colormap: render.ColormapJet,
		Filter:   render.FilterGaussian,
	}, nopLogger{}, nopTiming{})

	if coord.Colormap() != render.ColormapJet {
		t.Error("initial colormap lost")
	}
	if coord.Filter() != render.FilterGaussian {
		t.Error("initial filter lost")
	}

	coord.SetColormap(render.ColormapGray)
	coord.SetFilter(render.FilterNone)
	if coord.Colormap() != render.ColormapGray || coord.Filter() != render.FilterNone {
		t.Error("setters did not update the active selections")
	}
}
