// Package gui assembles the viewer window: the toolbar, the three
// plane views, and the snapshot strip. The Manager exposes handler
// setters for the application layer and runs every widget mutation
// through fyne.Do, so callers may live on any goroutine.
package gui

import (
	"image"

	"mpr-visualizer/internal/debug"
	"mpr-visualizer/internal/gui/components"
	"mpr-visualizer/internal/volume"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
)

type Manager struct {
	window     fyne.Window
	debugCoord debug.Coordinator
	logger     debug.Logger
	isShutdown bool

	toolbar    *components.Toolbar
	planeViews map[volume.Plane]*components.PlaneView
	snapshots  *components.SnapshotStrip

	stepHandler func(int)
}

func NewManager(window fyne.Window, debugCoord debug.Coordinator) *Manager {
	logger := debugCoord.Logger()

	planeViews := make(map[volume.Plane]*components.PlaneView, len(volume.Planes()))
	for _, plane := range volume.Planes() {
		planeViews[plane] = components.NewPlaneView(plane)
	}

	manager := &Manager{
		window:     window,
		debugCoord: debugCoord,
		logger:     logger,
		toolbar:    components.NewToolbar(),
		planeViews: planeViews,
		snapshots:  components.NewSnapshotStrip(),
	}

	logger.Info("GUIManager", "initialized", map[string]interface{}{
		"planes":        len(planeViews),
		"view_size":     components.PlaneViewSize,
		"snapshot_size": components.SnapshotViewSize,
	})
	return manager
}

func (m *Manager) GetMainContainer() *fyne.Container {
	views := make([]fyne.CanvasObject, 0, len(volume.Planes()))
	for _, plane := range volume.Planes() {
		views = append(views, m.planeViews[plane].GetContainer())
	}

	return container.NewBorder(
		m.toolbar.GetContainer(),
		m.snapshots.GetContainer(),
		nil, nil,
		container.NewGridWithColumns(len(views), views...),
	)
}

func (m *Manager) GetWindow() fyne.Window {
	return m.window
}

// BindKeys attaches the Left/Right arrow shortcuts that step every
// plane at once.
func (m *Manager) BindKeys() {
	m.window.Canvas().SetOnTypedKey(m.onTypedKey)
}

func (m *Manager) SetLoadHandler(handler func()) {
	m.toolbar.SetLoadHandler(handler)
}

func (m *Manager) SetColormapChangeHandler(handler func(string)) {
	m.toolbar.SetColormapChangeHandler(func(name string) {
		m.logger.Debug("GUIManager", "colormap change requested", map[string]interface{}{
			"colormap": name,
		})
		handler(name)
	})
}

func (m *Manager) SetFilterChangeHandler(handler func(string)) {
	m.toolbar.SetFilterChangeHandler(func(name string) {
		m.logger.Debug("GUIManager", "filter change requested", map[string]interface{}{
			"filter": name,
		})
		handler(name)
	})
}

func (m *Manager) SetIndexChangeHandler(handler func(volume.Plane, int)) {
	for _, view := range m.planeViews {
		view.SetIndexChangeHandler(handler)
	}
}

func (m *Manager) SetCaptureHandler(handler func(volume.Plane)) {
	m.snapshots.SetCaptureHandler(handler)
}

func (m *Manager) SetStepHandler(handler func(int)) {
	m.stepHandler = handler
}

// SetSelections moves the toolbar selectors, firing their change
// handlers. Used once at startup to apply the configured defaults.
func (m *Manager) SetSelections(colormap, filter string) {
	fyne.Do(func() {
		m.toolbar.SetColormapSelection(colormap)
		m.toolbar.SetFilterSelection(filter)
	})
}

// UpdatePlaneImage replaces the live view image for a plane.
func (m *Manager) UpdatePlaneImage(plane volume.Plane, img image.Image) {
	fyne.Do(func() {
		m.planeViews[plane].SetImage(img)
	})
}

// UpdatePlaneRange rescales a plane's slider after a volume load.
func (m *Manager) UpdatePlaneRange(plane volume.Plane, max int) {
	fyne.Do(func() {
		m.planeViews[plane].SetRange(max)
		m.logger.Debug("GUIManager", "slider range updated", map[string]interface{}{
			"plane": plane.String(),
			"max":   max,
		})
	})
}

// UpdatePlaneIndex moves a plane's slider; the index change handler
// fires just as for a user drag.
func (m *Manager) UpdatePlaneIndex(plane volume.Plane, index int) {
	fyne.Do(func() {
		m.planeViews[plane].SetIndex(index)
	})
}

// UpdateSnapshot replaces the captured thumbnail shown for a plane.
func (m *Manager) UpdateSnapshot(plane volume.Plane, img image.Image) {
	fyne.Do(func() {
		m.snapshots.SetSnapshot(plane, img)
		m.logger.Debug("GUIManager", "snapshot updated", map[string]interface{}{
			"plane": plane.String(),
		})
	})
}

// UpdateStatus replaces the toolbar status line.
func (m *Manager) UpdateStatus(status string) {
	fyne.Do(func() {
		m.toolbar.SetStatus(status)
	})
}

// ShowError logs the error and raises a modal error dialog.
func (m *Manager) ShowError(title string, err error) {
	m.logger.Error("GUIManager", err, map[string]interface{}{
		"title": title,
	})
	fyne.Do(func() {
		dialog.ShowError(err, m.window)
	})
}

// ShowInfo raises a modal information dialog.
func (m *Manager) ShowInfo(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, m.window)
	})
}

// ShowFolderSelect opens the folder picker and hands the chosen path to
// the callback. Cancelling the dialog is a silent no-op.
func (m *Manager) ShowFolderSelect(callback func(dir string)) {
	fyne.Do(func() {
		dialog.ShowFolderOpen(func(uri fyne.ListableURI, err error) {
			if err != nil {
				m.ShowError("Folder Error", err)
				return
			}
			if uri == nil {
				m.logger.Debug("GUIManager", "folder selection cancelled", nil)
				return
			}
			callback(uri.Path())
		}, m.window)
	})
}

func (m *Manager) onTypedKey(event *fyne.KeyEvent) {
	if m.stepHandler == nil {
		return
	}
	switch event.Name {
	case fyne.KeyLeft:
		m.stepHandler(-1)
	case fyne.KeyRight:
		m.stepHandler(1)
	}
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}
	m.isShutdown = true
	m.logger.Info("GUIManager", "shutdown initiated", nil)
}
