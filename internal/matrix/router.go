package matrix

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Router.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Route is one crosspoint assignment: the input currently carried by an output.
type Route struct {
	Output    int       `json:"output"`
	Input     int       `json:"input"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RouteStore persists crosspoint state across restarts.
// Implementations must tolerate being called concurrently for
// different outputs.
type RouteStore interface {
	// LoadRoutes returns all persisted routes.
	LoadRoutes(ctx context.Context) ([]Route, error)

	// SaveRoute upserts one output's route.
	SaveRoute(ctx context.Context, route Route) error
}

// Router owns the crosspoint: it issues switch commands to the hardware
// and maintains the authoritative in-memory route table.
//
// Concurrency model:
//   - Hardware exchanges for the same output are serialised by a
//     per-output lock; two dispatches routing different outputs proceed
//     in parallel up to the client's own serialisation.
//   - The route table is replaced atomically per output key under a
//     single mutex. CurrentRoute never blocks on hardware.
//   - On hardware failure the prior route is left untouched.
type Router struct {
	switcher Switcher
	store    RouteStore // optional; nil disables persistence
	logger   Logger

	inputs  map[int]bool
	outputs map[int]bool

	routes   map[int]Route
	routesMu sync.RWMutex

	outputLocks map[int]*sync.Mutex
}

// RouterOptions configures a Router.
type RouterOptions struct {
	// Switcher executes crosspoint commands. Required.
	Switcher Switcher

	// Inputs and Outputs are the configured, active numbers.
	Inputs  []int
	Outputs []int

	// Store persists route state. Optional.
	Store RouteStore

	// Logger for events. Optional.
	Logger Logger
}

// NewRouter creates a Router for the configured crosspoint.
func NewRouter(opts RouterOptions) *Router {
	r := &Router{
		switcher:    opts.Switcher,
		store:       opts.Store,
		logger:      opts.Logger,
		inputs:      make(map[int]bool, len(opts.Inputs)),
		outputs:     make(map[int]bool, len(opts.Outputs)),
		routes:      make(map[int]Route),
		outputLocks: make(map[int]*sync.Mutex, len(opts.Outputs)),
	}
	if r.logger == nil {
		r.logger = noopLogger{}
	}
	for _, in := range opts.Inputs {
		r.inputs[in] = true
	}
	for _, out := range opts.Outputs {
		r.outputs[out] = true
		r.outputLocks[out] = &sync.Mutex{}
	}
	return r
}

// LoadRoutes restores persisted crosspoint state into the route table.
// Call once at startup, before dispatching. Routes referencing outputs
// that are no longer configured are dropped with a warning.
func (r *Router) LoadRoutes(ctx context.Context) error {
	if r.store == nil {
		return nil
	}

	routes, err := r.store.LoadRoutes(ctx)
	if err != nil {
		return fmt.Errorf("loading routes: %w", err)
	}

	r.routesMu.Lock()
	defer r.routesMu.Unlock()

	for _, route := range routes {
		if !r.outputs[route.Output] {
			r.logger.Warn("dropping persisted route for unconfigured output",
				"output", route.Output, "input", route.Input)
			continue
		}
		r.routes[route.Output] = route
	}

	r.logger.Info("matrix routes restored", "count", len(r.routes))
	return nil
}

// Route connects input to output on the crosspoint.
//
// Validation happens before any hardware contact: unknown input or output
// numbers fail with ErrInvalidAddress. On hardware success the route table
// entry for the output is replaced atomically; on failure the prior route
// is unchanged. Cancellation before a definitive switcher response leaves
// the table untouched.
func (r *Router) Route(ctx context.Context, input, output int) error {
	if !r.inputs[input] {
		return fmt.Errorf("%w: input %d is not configured", ErrInvalidAddress, input)
	}
	if !r.outputs[output] {
		return fmt.Errorf("%w: output %d is not configured", ErrInvalidAddress, output)
	}

	// One in-flight hardware command per output.
	lock := r.outputLocks[output]
	lock.Lock()
	defer lock.Unlock()

	if err := r.switcher.Switch(ctx, input, output); err != nil {
		r.logger.Error("crosspoint switch failed",
			"input", input, "output", output, "error", err)
		return err
	}

	route := Route{Output: output, Input: input, UpdatedAt: time.Now().UTC()}

	r.routesMu.Lock()
	r.routes[output] = route
	r.routesMu.Unlock()

	r.logger.Debug("crosspoint switched", "input", input, "output", output)

	if r.store != nil {
		if err := r.store.SaveRoute(ctx, route); err != nil {
			// Persistence is best-effort; the hardware is switched and
			// the in-memory table is authoritative until restart.
			r.logger.Warn("route persist failed", "output", output, "error", err)
		}
	}

	return nil
}

// CurrentRoute returns the input currently routed to an output.
// The second return value is false when the output's route is unknown.
// Never blocks on hardware.
func (r *Router) CurrentRoute(output int) (int, bool) {
	r.routesMu.RLock()
	defer r.routesMu.RUnlock()

	route, ok := r.routes[output]
	if !ok {
		return 0, false
	}
	return route.Input, true
}

// Routes returns a snapshot of the current route table.
func (r *Router) Routes() []Route {
	r.routesMu.RLock()
	defer r.routesMu.RUnlock()

	routes := make([]Route, 0, len(r.routes))
	for _, route := range r.routes {
		routes = append(routes, route)
	}
	return routes
}
