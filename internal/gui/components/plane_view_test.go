package components

import (
	"image"
	"testing"

	"fyne.io/fyne/v2/test"

	"mpr-visualizer/internal/volume"
)

func TestPlaneViewSliderScrubbing(t *testing.T) {
	test.NewApp()
	view := NewPlaneView(volume.Axial)

	gotPlane := volume.Sagittal
	gotIndex := -1
	view.SetIndexChangeHandler(func(plane volume.Plane, index int) {
		gotPlane = plane
		gotIndex = index
	})

	view.SetRange(10)
	if gotIndex != -1 {
		t.Fatal("SetRange fired the change handler")
	}

	view.SetIndex(4)
	if gotPlane != volume.Axial || gotIndex != 4 {
		t.Errorf("handler saw (%v, %d), want (axial, 4)", gotPlane, gotIndex)
	}
	if view.Index() != 4 {
		t.Errorf("Index() = %d, want 4", view.Index())
	}
}

func TestPlaneViewIndexLabel(t *testing.T) {
	test.NewApp()
	view := NewPlaneView(volume.Coronal)

	view.SetRange(63)
	view.SetIndex(31)

	if got := view.indexLabel.Text; got != "31 / 63" {
		t.Errorf("index label = %q, want \"31 / 63\"", got)
	}
}

func TestPlaneViewSetImage(t *testing.T) {
	test.NewApp()
	view := NewPlaneView(volume.Sagittal)

	img := image.NewGray(image.Rect(0, 0, 8, 8))
	view.SetImage(img)
	if view.image.Image != img {
		t.Error("SetImage did not install the image")
	}

	view.SetImage(nil)
	if view.image.Image != img {
		t.Error("SetImage(nil) replaced the current image")
	}
}
