package app

import (
	"fmt"

	"mpr-visualizer/internal/debug"
	"mpr-visualizer/internal/gui"
	"mpr-visualizer/internal/pipeline"
	"mpr-visualizer/internal/render"
	"mpr-visualizer/internal/volume"
)

// Handlers connects interface events to the pipeline coordinator. The
// GUI manager schedules its own main-thread updates, so handler
// goroutines call it directly.
type Handlers struct {
	coordinator *pipeline.Coordinator
	guiManager  *gui.Manager
	logger      debug.Logger
}

func NewHandlers(coordinator *pipeline.Coordinator, guiManager *gui.Manager, debugCoord debug.Coordinator) *Handlers {
	return &Handlers{
		coordinator: coordinator,
		guiManager:  guiManager,
		logger:      debugCoord.Logger(),
	}
}

// HandleLoadSeries asks for a folder and loads the DICOM series inside
// it. Reading runs off the event thread; a cancelled dialog is a no-op.
func (h *Handlers) HandleLoadSeries() {
	h.guiManager.ShowFolderSelect(func(dir string) {
		h.guiManager.UpdateStatus("Loading DICOM series...")

		go func() {
			h.loadSeries(dir)
		}()
	})
}

func (h *Handlers) loadSeries(dir string) {
	info, err := h.coordinator.LoadSeries(dir)
	if err != nil {
		h.guiManager.ShowError("Load Error", err)
		h.guiManager.UpdateStatus("Ready")
		return
	}

	for _, plane := range volume.Planes() {
		h.guiManager.UpdatePlaneRange(plane, h.coordinator.MaxIndex(plane))
		h.guiManager.UpdatePlaneIndex(plane, h.coordinator.SliceIndex(plane))
	}
	h.refreshAllPlanes()

	status := fmt.Sprintf("%d slices loaded", info.SliceCount)
	if info.Modality != "" {
		status = fmt.Sprintf("%d %s slices loaded", info.SliceCount, info.Modality)
	}
	h.guiManager.UpdateStatus(status)
	h.guiManager.ShowInfo("Loaded", "DICOM series loaded successfully!")
}

// HandleIndexChange re-renders the plane whose scrubber moved. The
// other planes show the same voxels as before, so they stay untouched.
func (h *Handlers) HandleIndexChange(plane volume.Plane, index int) {
	if !h.coordinator.VolumeLoaded() {
		return
	}

	h.coordinator.SetSliceIndex(plane, index)
	h.refreshPlane(plane)
}

// HandleStep moves every plane by delta, clamped to its own range. The
// slider updates fire the index handlers, which re-render.
func (h *Handlers) HandleStep(delta int) {
	moved := h.coordinator.StepAll(delta)
	for plane, index := range moved {
		h.guiManager.UpdatePlaneIndex(plane, index)
	}
}

func (h *Handlers) HandleColormapChange(name string) {
	colormap, err := render.ParseColormap(name)
	if err != nil {
		h.guiManager.ShowError("Colormap Error", err)
		return
	}

	h.coordinator.SetColormap(colormap)
	h.refreshAllPlanes()
}

// HandleFilterChange updates the denoising filter used by snapshot
// capture. Live views are unfiltered, so nothing is re-rendered.
func (h *Handlers) HandleFilterChange(name string) {
	filter, err := render.ParseFilter(name)
	if err != nil {
		h.guiManager.ShowError("Filter Error", err)
		return
	}

	h.coordinator.SetFilter(filter)
}

func (h *Handlers) HandleCaptureSnapshot(plane volume.Plane) {
	img, path, err := h.coordinator.CaptureSnapshot(plane)
	if err != nil {
		h.guiManager.ShowError("Snapshot Error", err)
		return
	}

	h.guiManager.UpdateSnapshot(plane, img)
	if path != "" {
		h.guiManager.UpdateStatus(fmt.Sprintf("Snapshot saved to %s", path))
	}
}

func (h *Handlers) refreshPlane(plane volume.Plane) {
	img, err := h.coordinator.RenderPlane(plane)
	if err != nil {
		h.guiManager.ShowError("Render Error", err)
		return
	}
	h.guiManager.UpdatePlaneImage(plane, img)
}

func (h *Handlers) refreshAllPlanes() {
	if !h.coordinator.VolumeLoaded() {
		return
	}
	for _, plane := range volume.Planes() {
		h.refreshPlane(plane)
	}
}
