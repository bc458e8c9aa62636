package irhub

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"
)

// Logger captures the logging calls the registry makes.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// probeTimeout bounds a reachability check dial.
const probeTimeout = 3 * time.Second

// offlineRetry is how long an offline hub is rejected before a real
// attempt is allowed again.
const offlineRetry = 30 * time.Second

// Registry manages the set of IR hubs and a shared transceiver client
// per hub. It tracks reachability so callers can fail fast against a
// hub known to be offline instead of waiting out a dial timeout.
type Registry struct {
	repo           Repository
	logger         Logger
	newTransceiver func(address string) Transceiver

	mu       sync.RWMutex
	hubs     map[string]*Hub
	clients  map[string]Transceiver
	statusAt map[string]time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTransceiverFactory overrides how transceiver clients are built.
func WithTransceiverFactory(factory func(address string) Transceiver) RegistryOption {
	return func(r *Registry) {
		if factory != nil {
			r.newTransceiver = factory
		}
	}
}

// NewRegistry creates a hub registry backed by the given repository.
func NewRegistry(repo Repository, opts ...RegistryOption) *Registry {
	r := &Registry{
		repo:   repo,
		logger: noopLogger{},
		newTransceiver: func(address string) Transceiver {
			return NewClient(address)
		},
		hubs:     make(map[string]*Hub),
		clients:  make(map[string]Transceiver),
		statusAt: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load populates the registry from persistent storage.
func (r *Registry) Load(ctx context.Context) error {
	hubs, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading hubs: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.hubs = make(map[string]*Hub, len(hubs))
	for i := range hubs {
		hub := hubs[i]
		r.hubs[hub.ID] = &hub
	}
	r.logger.Info("ir hubs loaded", "count", len(hubs))
	return nil
}

// Get returns a copy of the hub. Returns ErrHubNotFound if absent.
func (r *Registry) Get(id string) (*Hub, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hub, ok := r.hubs[id]
	if !ok {
		return nil, ErrHubNotFound
	}
	copied := *hub
	return &copied, nil
}

// List returns copies of all registered hubs.
func (r *Registry) List() []Hub {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hubs := make([]Hub, 0, len(r.hubs))
	for _, hub := range r.hubs {
		hubs = append(hubs, *hub)
	}
	return hubs
}

// Register persists a new hub and adds it to the registry.
func (r *Registry) Register(ctx context.Context, hub *Hub) error {
	if hub.ID == "" || hub.Address == "" {
		return fmt.Errorf("%w: id and address are required", ErrHubInvalid)
	}
	if hub.Ports <= 0 {
		hub.Ports = 1
	}
	hub.Status = StatusUnknown

	if err := r.repo.Create(ctx, hub); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *hub
	r.hubs[hub.ID] = &copied
	r.logger.Info("ir hub registered", "hub_id", hub.ID, "address", hub.Address)
	return nil
}

// Remove deletes a hub and closes its client connection.
func (r *Registry) Remove(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.hubs, id)
	if client, ok := r.clients[id]; ok {
		client.Close()
		delete(r.clients, id)
	}
	r.logger.Info("ir hub removed", "hub_id", id)
	return nil
}

// Send transmits a code through the hub's emitter port. A hub already
// marked offline fails immediately with ErrHubOffline.
func (r *Registry) Send(ctx context.Context, hubID string, port int, code string) error {
	client, err := r.transceiverFor(hubID)
	if err != nil {
		return err
	}

	err = client.SendCode(ctx, port, code)
	r.recordOutcome(hubID, err)
	return err
}

// Learn places the hub in capture mode and returns the captured code.
// A hub already marked offline fails immediately with ErrHubOffline.
func (r *Registry) Learn(ctx context.Context, hubID string, port int, window time.Duration) (string, error) {
	client, err := r.transceiverFor(hubID)
	if err != nil {
		return "", err
	}

	code, err := client.Learn(ctx, port, window)
	r.recordOutcome(hubID, err)
	return code, err
}

// Probe checks hub reachability with a short dial and updates status.
func (r *Registry) Probe(ctx context.Context, hubID string) (Status, error) {
	r.mu.RLock()
	hub, ok := r.hubs[hubID]
	r.mu.RUnlock()
	if !ok {
		return StatusUnknown, ErrHubNotFound
	}

	dialer := net.Dialer{Timeout: probeTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", hub.Address)
	if err != nil {
		r.setStatus(hubID, StatusOffline)
		return StatusOffline, nil
	}
	conn.Close()
	r.setStatus(hubID, StatusOnline)
	return StatusOnline, nil
}

// Close shuts down all hub connections.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, client := range r.clients {
		client.Close()
		delete(r.clients, id)
	}
}

// transceiverFor returns the shared client for a hub, creating it on
// first use. Hubs marked offline are rejected without touching the
// network.
func (r *Registry) transceiverFor(hubID string) (Transceiver, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hub, ok := r.hubs[hubID]
	if !ok {
		return nil, ErrHubNotFound
	}
	if hub.Status == StatusOffline && time.Since(r.statusAt[hubID]) < offlineRetry {
		return nil, fmt.Errorf("%w: hub %s", ErrHubOffline, hubID)
	}

	client, ok := r.clients[hubID]
	if !ok {
		client = r.newTransceiver(hub.Address)
		r.clients[hubID] = client
	}
	return client, nil
}

// recordOutcome updates hub status from a transmission result.
// Protocol-level failures (ErrNoSignal, ErrSendFailed from a NAK) still
// prove the hub is reachable, so only connectivity errors mark it
// offline.
func (r *Registry) recordOutcome(hubID string, err error) {
	if err == nil || isReachable(err) {
		r.setStatus(hubID, StatusOnline)
		return
	}
	r.setStatus(hubID, StatusOffline)
	r.logger.Warn("ir hub unreachable", "hub_id", hubID, "error", err)
}

func isReachable(err error) bool {
	return errors.Is(err, ErrNoSignal) || errors.Is(err, ErrSendFailed) || errors.Is(err, ErrLearnFailed)
}

func (r *Registry) setStatus(hubID string, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	hub, ok := r.hubs[hubID]
	if !ok {
		return
	}
	hub.Status = status
	r.statusAt[hubID] = time.Now()
	if status == StatusOnline {
		now := time.Now().UTC()
		hub.LastSeen = &now
	}
}
