package device

import (
	"context"
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups;
// the dispatch path hits this cache on every command.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by cache-invalidating CRUD operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // Cached devices by ID
	cacheMu sync.RWMutex       // Protects cache
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.Copy()
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.Copy(), nil
	}

	// Fall back to repository (might be a new device not yet cached)
	dev, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = dev.Copy()
	r.cacheMu.Unlock()

	return dev, nil
}

// ListDevices retrieves all devices.
// The returned devices are copies; callers can safely modify them.
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	r.cacheMu.RLock()
	if len(r.cache) > 0 {
		devices := make([]Device, 0, len(r.cache))
		for _, d := range r.cache {
			devices = append(devices, *d.Copy())
		}
		r.cacheMu.RUnlock()
		return devices, nil
	}
	r.cacheMu.RUnlock()

	devices, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	r.cacheMu.Lock()
	for i := range devices {
		d := devices[i]
		r.cache[d.ID] = d.Copy()
	}
	r.cacheMu.Unlock()

	return devices, nil
}

// CreateDevice validates and persists a new device, then caches it.
func (r *Registry) CreateDevice(ctx context.Context, dev *Device) error {
	if err := r.repo.Create(ctx, dev); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[dev.ID] = dev.Copy()
	r.cacheMu.Unlock()

	r.logger.Info("device created", "device_id", dev.ID, "name", dev.Name)
	return nil
}

// UpdateDevice persists device changes and refreshes the cache entry.
func (r *Registry) UpdateDevice(ctx context.Context, dev *Device) error {
	if err := r.repo.Update(ctx, dev); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[dev.ID] = dev.Copy()
	r.cacheMu.Unlock()

	return nil
}

// DeleteDevice removes a device from persistence and the cache.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "device_id", id)
	return nil
}

// SetPowerState records the last-known power state and last result line
// for a device. The write-through keeps the cache and repository in step;
// failures are logged but not fatal because the cache is advisory.
func (r *Registry) SetPowerState(ctx context.Context, id string, state PowerState, lastResult string) {
	if err := r.repo.UpdatePowerState(ctx, id, state, lastResult); err != nil {
		r.logger.Warn("power state persist failed", "device_id", id, "error", err)
	}

	r.cacheMu.Lock()
	if d, ok := r.cache[id]; ok {
		d.PowerState = state
		result := lastResult
		d.LastResult = &result
	}
	r.cacheMu.Unlock()
}
