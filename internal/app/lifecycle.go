package app

import (
	"mpr-visualizer/internal/debug"
	"mpr-visualizer/internal/gui"
	"mpr-visualizer/internal/opencv/memory"
)

type Lifecycle struct {
	memoryManager *memory.Manager
	debugCoord    debug.Coordinator
	guiManager    *gui.Manager
	logger        debug.Logger
	isShutdown    bool
}

func NewLifecycle(mm *memory.Manager, dc debug.Coordinator, gm *gui.Manager) *Lifecycle {
	return &Lifecycle{
		memoryManager: mm,
		debugCoord:    dc,
		guiManager:    gm,
		logger:        dc.Logger(),
		isShutdown:    false,
	}
}

func (l *Lifecycle) Shutdown() {
	if l.isShutdown {
		return
	}

	l.isShutdown = true
	l.logger.Info("Lifecycle", "shutdown sequence initiated", nil)

	// Shutdown components in reverse dependency order
	if l.guiManager != nil {
		l.guiManager.Shutdown()
		l.logger.Debug("Lifecycle", "GUI manager shutdown completed", nil)
	}

	if l.memoryManager != nil {
		l.memoryManager.Cleanup()
		l.logger.Debug("Lifecycle", "memory manager cleanup completed", nil)
	}

	if leaked := l.debugCoord.FileTracker().DetectLeaks(); len(leaked) > 0 {
		l.logger.Warning("Lifecycle", "files still open at shutdown", map[string]interface{}{
			"count": len(leaked),
		})
	}

	// Debug coordinator shutdown last to capture all cleanup events
	if l.debugCoord != nil {
		l.logger.Info("Lifecycle", "shutdown sequence completed", nil)
		l.debugCoord.Shutdown()
	}
}
