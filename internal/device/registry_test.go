package device

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device

	// Call counters for cache behaviour assertions.
	getCalls  int
	listCalls int

	// For testing error paths
	createErr error
	updateErr error
	stateErr  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[string]*Device),
	}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.getCalls++
	if d, ok := m.devices[id]; ok {
		return d.Copy(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.listCalls++
	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.Copy())
	}
	return devices, nil
}

func (m *MockRepository) ListByHub(_ context.Context, hubID string) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var devices []Device
	for _, d := range m.devices {
		if d.HubID != nil && *d.HubID == hubID {
			devices = append(devices, *d.Copy())
		}
	}
	return devices, nil
}

func (m *MockRepository) Create(_ context.Context, dev *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.devices[dev.ID]; ok {
		return ErrDeviceExists
	}
	m.devices[dev.ID] = dev.Copy()
	return nil
}

func (m *MockRepository) Update(_ context.Context, dev *Device) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.devices[dev.ID]; !ok {
		return ErrDeviceNotFound
	}
	m.devices[dev.ID] = dev.Copy()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.devices[id]; !ok {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MockRepository) UpdatePowerState(_ context.Context, id string, state PowerState, lastResult string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stateErr != nil {
		return m.stateErr
	}
	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.PowerState = state
	d.LastResult = &lastResult
	return nil
}

func seedMock(repo *MockRepository, ids ...string) {
	for i, id := range ids {
		repo.devices[id] = &Device{
			ID:           id,
			Name:         "TV " + id,
			Brand:        "Generic",
			MatrixOutput: i + 1,
			Transports:   []Transport{TransportCEC, TransportIR},
			Preferred:    PreferAuto,
			PowerState:   PowerUnknown,
		}
	}
}

func TestRegistry_RefreshCacheAndGet(t *testing.T) {
	repo := NewMockRepository()
	seedMock(repo, "tv-1", "tv-2")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	dev, err := reg.GetDevice(context.Background(), "tv-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if dev.ID != "tv-1" {
		t.Errorf("ID = %q, want tv-1", dev.ID)
	}

	// Cached read must not touch the repository.
	if repo.getCalls != 0 {
		t.Errorf("repo.getCalls = %d, want 0 (cache hit expected)", repo.getCalls)
	}
}

func TestRegistry_GetDeviceFallsBackToRepo(t *testing.T) {
	repo := NewMockRepository()
	seedMock(repo, "tv-late")

	reg := NewRegistry(repo)
	// No RefreshCache: the device is only in the repository.

	dev, err := reg.GetDevice(context.Background(), "tv-late")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if dev.ID != "tv-late" {
		t.Errorf("ID = %q, want tv-late", dev.ID)
	}
	if repo.getCalls != 1 {
		t.Errorf("repo.getCalls = %d, want 1", repo.getCalls)
	}

	// Second read served from cache.
	if _, err := reg.GetDevice(context.Background(), "tv-late"); err != nil {
		t.Fatalf("second GetDevice() error = %v", err)
	}
	if repo.getCalls != 1 {
		t.Errorf("repo.getCalls = %d after cached read, want 1", repo.getCalls)
	}
}

func TestRegistry_GetDeviceNotFound(t *testing.T) {
	reg := NewRegistry(NewMockRepository())

	_, err := reg.GetDevice(context.Background(), "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestRegistry_CopyIsolation(t *testing.T) {
	repo := NewMockRepository()
	seedMock(repo, "tv-1")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	dev, _ := reg.GetDevice(context.Background(), "tv-1")
	dev.Name = "mutated"
	dev.Transports[0] = "bogus"

	fresh, _ := reg.GetDevice(context.Background(), "tv-1")
	if fresh.Name == "mutated" {
		t.Error("cache entry mutated through returned copy")
	}
	if fresh.Transports[0] != TransportCEC {
		t.Error("cached transports slice mutated through returned copy")
	}
}

func TestRegistry_SetPowerState(t *testing.T) {
	repo := NewMockRepository()
	seedMock(repo, "tv-1")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	reg.SetPowerState(context.Background(), "tv-1", PowerOn, "power_on ok")

	dev, err := reg.GetDevice(context.Background(), "tv-1")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if dev.PowerState != PowerOn {
		t.Errorf("PowerState = %q, want %q", dev.PowerState, PowerOn)
	}
	if dev.LastResult == nil || *dev.LastResult != "power_on ok" {
		t.Errorf("LastResult = %v, want %q", dev.LastResult, "power_on ok")
	}
}

func TestRegistry_SetPowerStatePersistFailureKeepsCache(t *testing.T) {
	repo := NewMockRepository()
	seedMock(repo, "tv-1")
	repo.stateErr = errors.New("disk full")

	reg := NewRegistry(repo)
	if err := reg.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	// Persist failure is tolerated; the in-memory cache still updates.
	reg.SetPowerState(context.Background(), "tv-1", PowerOff, "power_off ok")

	dev, _ := reg.GetDevice(context.Background(), "tv-1")
	if dev.PowerState != PowerOff {
		t.Errorf("PowerState = %q, want %q", dev.PowerState, PowerOff)
	}
}

func TestRegistry_CreateUpdateDelete(t *testing.T) {
	repo := NewMockRepository()
	reg := NewRegistry(repo)
	ctx := context.Background()

	dev := &Device{
		ID:           "tv-new",
		Name:         "Corner TV",
		Brand:        "LG",
		MatrixOutput: 7,
		Transports:   []Transport{TransportCEC},
		Preferred:    PreferCEC,
	}

	if err := reg.CreateDevice(ctx, dev); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}

	dev.Name = "Corner TV (new)"
	if err := reg.UpdateDevice(ctx, dev); err != nil {
		t.Fatalf("UpdateDevice() error = %v", err)
	}

	got, err := reg.GetDevice(ctx, "tv-new")
	if err != nil {
		t.Fatalf("GetDevice() error = %v", err)
	}
	if got.Name != "Corner TV (new)" {
		t.Errorf("Name = %q, want updated name", got.Name)
	}

	if err := reg.DeleteDevice(ctx, "tv-new"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	if _, err := reg.GetDevice(ctx, "tv-new"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetDevice() after delete error = %v, want ErrDeviceNotFound", err)
	}
}

func TestDevice_SupportsTransport(t *testing.T) {
	dev := &Device{Transports: []Transport{TransportIR}}

	if !dev.SupportsTransport(TransportIR) {
		t.Error("SupportsTransport(ir) = false, want true")
	}
	if dev.SupportsTransport(TransportCEC) {
		t.Error("SupportsTransport(cec) = true, want false")
	}
}
