package components

import (
	"fmt"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mpr-visualizer/internal/volume"
)

// SnapshotViewSize is the edge length of each snapshot cell, matching
// the thumbnails the renderer produces.
const SnapshotViewSize = 300

// SnapshotStrip shows the captured thumbnail for each plane together
// with its capture button.
type SnapshotStrip struct {
	container *fyne.Container
	cells     map[volume.Plane]*snapshotCell

	captureHandler func(volume.Plane)
}

type snapshotCell struct {
	image  *canvas.Image
	button *widget.Button
}

func NewSnapshotStrip() *SnapshotStrip {
	strip := &SnapshotStrip{cells: make(map[volume.Plane]*snapshotCell)}
	strip.setup()
	return strip
}

func (s *SnapshotStrip) setup() {
	columns := make([]fyne.CanvasObject, 0, len(volume.Planes()))
	for _, plane := range volume.Planes() {
		label := widget.NewRichTextFromMarkdown(fmt.Sprintf("**%s Snapshot**", plane.DisplayName()))

		img := canvas.NewImageFromImage(nil)
		img.FillMode = canvas.ImageFillContain
		img.SetMinSize(fyne.NewSize(SnapshotViewSize, SnapshotViewSize))

		button := widget.NewButton(fmt.Sprintf("Capture %s Snapshot", plane.DisplayName()), func() {
			s.onCapture(plane)
		})

		s.cells[plane] = &snapshotCell{image: img, button: button}
		columns = append(columns, container.NewVBox(
			container.NewCenter(label),
			img,
			container.NewCenter(button),
		))
	}
	s.container = container.NewGridWithColumns(len(columns), columns...)
}

func (s *SnapshotStrip) GetContainer() *fyne.Container {
	return s.container
}

func (s *SnapshotStrip) SetCaptureHandler(handler func(volume.Plane)) {
	s.captureHandler = handler
}

// SetSnapshot replaces the thumbnail shown for a plane.
func (s *SnapshotStrip) SetSnapshot(plane volume.Plane, img image.Image) {
	cell, ok := s.cells[plane]
	if !ok || img == nil {
		return
	}
	cell.image.Image = img
	cell.image.Refresh()
}

func (s *SnapshotStrip) onCapture(plane volume.Plane) {
	if s.captureHandler != nil {
		s.captureHandler(plane)
	}
}
