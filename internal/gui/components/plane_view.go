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

// PlaneViewSize is the edge length of each live view area.
const PlaneViewSize = 360

// PlaneView shows one reconstruction plane: a title, the live slice
// image, and a slider scrubbing through the volume along that plane.
type PlaneView struct {
	container  *fyne.Container
	plane      volume.Plane
	image      *canvas.Image
	slider     *widget.Slider
	indexLabel *widget.Label

	indexChangeHandler func(volume.Plane, int)
}

func NewPlaneView(plane volume.Plane) *PlaneView {
	view := &PlaneView{plane: plane}
	view.setup()
	return view
}

func (pv *PlaneView) setup() {
	title := widget.NewRichTextFromMarkdown(fmt.Sprintf("**%s**", pv.plane.DisplayName()))

	pv.image = canvas.NewImageFromImage(nil)
	pv.image.FillMode = canvas.ImageFillContain
	pv.image.SetMinSize(fyne.NewSize(PlaneViewSize, PlaneViewSize))

	pv.slider = widget.NewSlider(0, 0)
	pv.slider.Step = 1
	pv.slider.OnChanged = pv.onSliderChanged

	pv.indexLabel = widget.NewLabel("0 / 0")

	scrubber := container.NewBorder(nil, nil, nil, pv.indexLabel, pv.slider)
	pv.container = container.NewVBox(
		container.NewCenter(title),
		pv.image,
		scrubber,
	)
}

func (pv *PlaneView) GetContainer() *fyne.Container {
	return pv.container
}

func (pv *PlaneView) Plane() volume.Plane {
	return pv.plane
}

func (pv *PlaneView) SetIndexChangeHandler(handler func(volume.Plane, int)) {
	pv.indexChangeHandler = handler
}

// SetRange rescales the slider to 0..max. The change handler does not
// fire.
func (pv *PlaneView) SetRange(max int) {
	pv.slider.Max = float64(max)
	pv.slider.Refresh()
	pv.updateLabel()
}

// SetIndex moves the slider; the change handler fires as if the user
// dragged it.
func (pv *PlaneView) SetIndex(index int) {
	pv.slider.SetValue(float64(index))
	pv.updateLabel()
}

func (pv *PlaneView) Index() int {
	return int(pv.slider.Value)
}

func (pv *PlaneView) SetImage(img image.Image) {
	if img == nil {
		return
	}
	pv.image.Image = img
	pv.image.Refresh()
}

func (pv *PlaneView) onSliderChanged(value float64) {
	pv.updateLabel()
	if pv.indexChangeHandler != nil {
		pv.indexChangeHandler(pv.plane, int(value))
	}
}

func (pv *PlaneView) updateLabel() {
	pv.indexLabel.SetText(fmt.Sprintf("%d / %d", int(pv.slider.Value), int(pv.slider.Max)))
}
