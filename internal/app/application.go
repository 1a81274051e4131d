// Package app assembles the viewer: configuration, debug facilities,
// the rendering pipeline, and the window, wired together in one place.
package app

import (
	"os"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"mpr-visualizer/internal/config"
	"mpr-visualizer/internal/debug"
	"mpr-visualizer/internal/dicom"
	"mpr-visualizer/internal/gui"
	"mpr-visualizer/internal/opencv/memory"
	"mpr-visualizer/internal/pipeline"
	"mpr-visualizer/internal/render"
	"mpr-visualizer/internal/shutdown"
	"mpr-visualizer/internal/snapshot"
)

const (
	AppID      = "com.imageprocessing.mprvisualizer"
	AppVersion = "1.0.0"
)

type Application struct {
	fyneApp         fyne.App
	window          fyne.Window
	cfg             *config.Config
	guiManager      *gui.Manager
	coordinator     *pipeline.Coordinator
	memoryManager   *memory.Manager
	debugCoord      debug.Coordinator
	lifecycle       *Lifecycle
	shutdownManager *shutdown.Manager
}

func NewApplication(cfg *config.Config) (*Application, error) {
	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow(cfg.Window.Title)

	window.Resize(fyne.NewSize(float32(cfg.Window.Width), float32(cfg.Window.Height)))
	window.CenterOnScreen()
	window.SetMaster()

	debugConfig := debugConfigFrom(cfg)
	debugCoord := debug.NewCoordinator(debugConfig)

	logger := debugCoord.Logger()
	timing := debugCoord.TimingTracker()

	logger.Info("Application", "starting application", map[string]interface{}{
		"version":       AppVersion,
		"window_width":  cfg.Window.Width,
		"window_height": cfg.Window.Height,
		"debug_enabled": debugConfig.EnableLogging,
	})

	colormap, err := render.ParseColormap(cfg.Display.Colormap)
	if err != nil {
		return nil, err
	}
	filter, err := render.ParseFilter(cfg.Display.Filter)
	if err != nil {
		return nil, err
	}

	memoryManager := memory.NewManager(logger, debugCoord.MemoryTracker())
	renderer := render.NewRenderer(memoryManager, logger, timing)
	reader := dicom.NewReader(logger, timing, debugCoord.FileTracker())
	writer := snapshot.NewWriter(cfg.Snapshot.Dir, logger, timing, debugCoord.FileTracker())

	coordinator := pipeline.NewCoordinator(reader, renderer, writer, pipeline.Settings{
		Colormap:      colormap,
		Filter:        filter,
		GaussianSigma: cfg.Display.GaussianSigma,
		ThumbnailSize: cfg.Snapshot.Size,
		Autosave:      cfg.Snapshot.Autosave,
	}, logger, timing)

	guiManager := gui.NewManager(window, debugCoord)
	lifecycle := NewLifecycle(memoryManager, debugCoord, guiManager)

	shutdownManager := shutdown.NewManager(logger)
	shutdownManager.Register(lifecycle)

	application := &Application{
		fyneApp:         fyneApp,
		window:          window,
		cfg:             cfg,
		guiManager:      guiManager,
		coordinator:     coordinator,
		memoryManager:   memoryManager,
		debugCoord:      debugCoord,
		lifecycle:       lifecycle,
		shutdownManager: shutdownManager,
	}
	application.setupHandlers()

	logger.Info("Application", "initialization complete", nil)
	return application, nil
}

func (a *Application) setupHandlers() {
	handlers := NewHandlers(a.coordinator, a.guiManager, a.debugCoord)
	wireHandlers(a.guiManager, handlers)

	// Push the configured defaults through the same path user input
	// takes, so the toolbar, coordinator, and log agree on the state.
	a.guiManager.SetSelections(a.cfg.Display.Colormap, a.cfg.Display.Filter)
}

func wireHandlers(guiManager *gui.Manager, handlers *Handlers) {
	guiManager.SetLoadHandler(handlers.HandleLoadSeries)
	guiManager.SetColormapChangeHandler(handlers.HandleColormapChange)
	guiManager.SetFilterChangeHandler(handlers.HandleFilterChange)
	guiManager.SetIndexChangeHandler(handlers.HandleIndexChange)
	guiManager.SetCaptureHandler(handlers.HandleCaptureSnapshot)
	guiManager.SetStepHandler(handlers.HandleStep)
	guiManager.BindKeys()
}

func (a *Application) Run() error {
	logger := a.debugCoord.Logger()

	a.window.SetCloseIntercept(func() {
		logger.Info("Application", "shutdown requested", nil)
		a.shutdownManager.Shutdown()
		a.window.Close()
	})

	// Terminal signals close the window through the same sequence.
	a.shutdownManager.Listen()
	go func() {
		<-a.shutdownManager.Done()
		fyne.Do(a.fyneApp.Quit)
	}()

	a.window.SetContent(a.guiManager.GetMainContainer())
	a.window.Show()

	logger.Info("Application", "GUI displayed", nil)
	a.fyneApp.Run()

	return nil
}

// debugConfigFrom derives the debug configuration from the loaded
// settings. Two environment shortcuts bypass the file entirely:
// MPR_DEBUG_ALL enables every facility, MPR_PRODUCTION strips the
// configuration down to error logging.
func debugConfigFrom(cfg *config.Config) debug.Config {
	if os.Getenv("MPR_DEBUG_ALL") == "true" {
		return debug.DefaultConfig()
	}

	if os.Getenv("MPR_PRODUCTION") == "true" {
		return debug.ProductionConfig()
	}

	debugConfig := debug.DefaultConfig()
	debugConfig.LogLevel = cfg.Debug.LogLevel
	debugConfig.UseJSONLogging = cfg.Debug.JSONLogging
	debugConfig.EnableTimingTracking = cfg.Debug.TrackTimings
	debugConfig.EnableMemoryTracking = cfg.Debug.TrackMemory
	debugConfig.EnableFileTracking = cfg.Debug.TrackFiles
	debugConfig.EnableStackTraces = cfg.Debug.StackTraces

	if os.Getenv("MPR_DEBUG_MEMORY") == "true" {
		debugConfig.EnableMemoryTracking = true
		debugConfig.EnableStackTraces = true
	}
	if os.Getenv("MPR_DEBUG_FILES") == "true" {
		debugConfig.EnableFileTracking = true
	}

	return debugConfig
}
