package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type ComponentStatus struct {
	Name      string    `json:"name"`
	Ready     bool      `json:"ready"`
	StartedAt time.Time `json:"started_at"`
	ReadyAt   time.Time `json:"ready_at,omitempty"`
}

type ReadinessStatus struct {
	Ready      bool              `json:"ready"`
	Components []ComponentStatus `json:"components"`
}

// ComponentManager manages component registration and readiness tracking.
type ComponentManager interface {
	// AddComponent registers a component and returns a function to mark it as ready.
	AddComponent(name string) func()
}

// ReadinessChecker provides readiness status information.
type ReadinessChecker interface {
	IsReady() bool
	GetStatus() ReadinessStatus
}

// ReadinessWaiter blocks until every registered component is ready.
type ReadinessWaiter interface {
	WaitReady(ctx context.Context) error
}

type component struct {
	name      string
	ready     bool
	startedAt time.Time
	readyAt   time.Time
}

type readiness struct {
	mu         sync.RWMutex
	components map[string]*component
	order      []string
	readyChan  chan struct{}
	readyOnce  sync.Once
	logger     *zap.Logger
}

func newReadiness(logger *zap.Logger) *readiness {
	return &readiness{
		components: make(map[string]*component),
		readyChan:  make(chan struct{}),
		logger:     logger,
	}
}

func (r *readiness) AddComponent(name string) func() {
	if name == "" {
		panic("health: component name must not be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.components[name]; exists {
		r.logger.Warn("component already registered", zap.String("component", name))
	} else {
		r.components[name] = &component{name: name, startedAt: time.Now()}
		r.order = append(r.order, name)
	}

	return func() { r.markReady(name) }
}

func (r *readiness) markReady(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comp, exists := r.components[name]
	if !exists || comp.ready {
		return
	}
	comp.ready = true
	comp.readyAt = time.Now()
	r.logger.Info("component ready", zap.String("component", name))

	for _, c := range r.components {
		if !c.ready {
			return
		}
	}

	r.readyOnce.Do(func() {
		close(r.readyChan)
		r.logger.Info("all components are ready", zap.Int("component_count", len(r.components)))
	})
}

func (r *readiness) IsReady() bool {
	select {
	case <-r.readyChan:
		return true
	default:
		return false
	}
}

func (r *readiness) GetStatus() ReadinessStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status := ReadinessStatus{
		Ready:      r.IsReady(),
		Components: make([]ComponentStatus, 0, len(r.order)),
	}
	for _, name := range r.order {
		comp := r.components[name]
		status.Components = append(status.Components, ComponentStatus{
			Name:      comp.name,
			Ready:     comp.ready,
			StartedAt: comp.startedAt,
			ReadyAt:   comp.readyAt,
		})
	}
	return status
}

// WaitReady blocks until all components are ready or the context is cancelled.
func (r *readiness) WaitReady(ctx context.Context) error {
	select {
	case <-r.readyChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
