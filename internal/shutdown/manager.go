// Package shutdown turns termination signals into an orderly close of
// registered components, complementing the window close path.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// componentTimeout bounds how long one component may take to shut down
// before the sequence moves on.
const componentTimeout = 10 * time.Second

type Shutdownable interface {
	Shutdown()
}

type Logger interface {
	Info(component string, message string, fields map[string]interface{})
	Warning(component string, message string, fields map[string]interface{})
}

type Manager struct {
	components []Shutdownable
	logger     Logger
	mu         sync.Mutex
	done       chan struct{}
}

func NewManager(logger Logger) *Manager {
	return &Manager{
		components: make([]Shutdownable, 0),
		logger:     logger,
		done:       make(chan struct{}),
	}
}

func (m *Manager) Register(component Shutdownable) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.components = append(m.components, component)
}

// Listen starts a goroutine that runs the shutdown sequence when the
// process receives SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		sig := <-sigChan
		m.logger.Info("ShutdownManager", "shutdown signal received", map[string]interface{}{
			"signal": sig.String(),
		})
		m.Shutdown()
	}()
}

// Shutdown runs every registered component in reverse registration
// order, once. Later calls return immediately.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.done:
		return
	default:
		close(m.done)
	}

	m.logger.Info("ShutdownManager", "shutdown sequence initiated", map[string]interface{}{
		"components": len(m.components),
	})

	for i := len(m.components) - 1; i >= 0; i-- {
		component := m.components[i]

		finished := make(chan struct{})
		go func() {
			defer close(finished)
			component.Shutdown()
		}()

		select {
		case <-finished:
		case <-time.After(componentTimeout):
			m.logger.Warning("ShutdownManager", "component shutdown timeout", map[string]interface{}{
				"component_index": i,
			})
		}
	}

	m.logger.Info("ShutdownManager", "shutdown sequence completed", nil)
}

// Done closes once the shutdown sequence has started.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}
