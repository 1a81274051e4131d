package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"mpr-visualizer/internal/render"
)

// Toolbar holds the load button, the colormap and filter selectors, and
// the status line.
type Toolbar struct {
	container      *fyne.Container
	LoadButton     *widget.Button
	ColormapSelect *widget.Select
	FilterSelect   *widget.Select
	statusLabel    *widget.Label

	loadHandler           func()
	colormapChangeHandler func(string)
	filterChangeHandler   func(string)
}

func NewToolbar() *Toolbar {
	toolbar := &Toolbar{}
	toolbar.setup()
	return toolbar
}

func (t *Toolbar) setup() {
	t.LoadButton = widget.NewButton("Load DICOM Folder", t.onLoad)
	t.LoadButton.Importance = widget.HighImportance

	t.ColormapSelect = widget.NewSelect(render.Colormaps(), t.onColormapSelected)
	t.ColormapSelect.SetSelected(render.ColormapGray.String())

	t.FilterSelect = widget.NewSelect(render.Filters(), t.onFilterSelected)
	t.FilterSelect.SetSelected(render.FilterNone.String())

	t.statusLabel = widget.NewLabel("Ready")

	leftSection := container.NewHBox(t.LoadButton)
	centerSection := container.NewHBox(
		widget.NewLabel("Colormap:"),
		t.ColormapSelect,
		widget.NewSeparator(),
		widget.NewLabel("Filter:"),
		t.FilterSelect,
	)
	rightSection := container.NewHBox(t.statusLabel)

	t.container = container.NewBorder(
		nil, nil,
		leftSection,
		rightSection,
		centerSection,
	)
}

func (t *Toolbar) GetContainer() *fyne.Container {
	return t.container
}

func (t *Toolbar) SetLoadHandler(handler func()) {
	t.loadHandler = handler
}

func (t *Toolbar) SetColormapChangeHandler(handler func(string)) {
	t.colormapChangeHandler = handler
}

func (t *Toolbar) SetFilterChangeHandler(handler func(string)) {
	t.filterChangeHandler = handler
}

// SetColormapSelection changes the selector; the change handler fires
// as if the user picked it.
func (t *Toolbar) SetColormapSelection(name string) {
	t.ColormapSelect.SetSelected(name)
}

// SetFilterSelection changes the selector; the change handler fires as
// if the user picked it.
func (t *Toolbar) SetFilterSelection(name string) {
	t.FilterSelect.SetSelected(name)
}

func (t *Toolbar) SetStatus(status string) {
	t.statusLabel.SetText(status)
}

func (t *Toolbar) onLoad() {
	if t.loadHandler != nil {
		t.loadHandler()
	}
}

func (t *Toolbar) onColormapSelected(name string) {
	if t.colormapChangeHandler != nil {
		t.colormapChangeHandler(name)
	}
}

func (t *Toolbar) onFilterSelected(name string) {
	if t.filterChangeHandler != nil {
		t.filterChangeHandler(name)
	}
}
