package matrix

import (
	"context"
	"errors"
	"sync"
	"testing"
)

// mockSwitcher is a test Switcher that records calls and can fail on demand.
type mockSwitcher struct {
	mu       sync.Mutex
	calls    [][2]int // (input, output) pairs
	failNext error
}

func (m *mockSwitcher) Switch(_ context.Context, input, output int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	m.calls = append(m.calls, [2]int{input, output})
	return nil
}

func (m *mockSwitcher) Close() error { return nil }

func (m *mockSwitcher) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// mockRouteStore is an in-memory RouteStore.
type mockRouteStore struct {
	mu     sync.Mutex
	routes map[int]Route
	saves  int
}

func newMockRouteStore() *mockRouteStore {
	return &mockRouteStore{routes: make(map[int]Route)}
}

func (m *mockRouteStore) LoadRoutes(_ context.Context) ([]Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	routes := make([]Route, 0, len(m.routes))
	for _, r := range m.routes {
		routes = append(routes, r)
	}
	return routes, nil
}

func (m *mockRouteStore) SaveRoute(_ context.Context, route Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.routes[route.Output] = route
	m.saves++
	return nil
}

func testRouter(sw Switcher, store RouteStore) *Router {
	return NewRouter(RouterOptions{
		Switcher: sw,
		Inputs:   []int{1, 2, 3, 4},
		Outputs:  []int{1, 2, 3, 4, 5, 6, 7, 8},
		Store:    store,
	})
}

func TestRouter_RouteAndCurrentRoute(t *testing.T) {
	sw := &mockSwitcher{}
	router := testRouter(sw, nil)

	if err := router.Route(context.Background(), 3, 7); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	input, ok := router.CurrentRoute(7)
	if !ok {
		t.Fatal("CurrentRoute(7) unknown, want known")
	}
	if input != 3 {
		t.Errorf("CurrentRoute(7) = %d, want 3", input)
	}
}

func TestRouter_RouteIdempotent(t *testing.T) {
	sw := &mockSwitcher{}
	router := testRouter(sw, nil)
	ctx := context.Background()

	if err := router.Route(ctx, 3, 7); err != nil {
		t.Fatalf("first Route() error = %v", err)
	}
	if err := router.Route(ctx, 3, 7); err != nil {
		t.Fatalf("second Route() error = %v", err)
	}

	input, ok := router.CurrentRoute(7)
	if !ok || input != 3 {
		t.Errorf("CurrentRoute(7) = (%d, %v), want (3, true)", input, ok)
	}
	if len(router.Routes()) != 1 {
		t.Errorf("len(Routes()) = %d, want 1", len(router.Routes()))
	}
}

func TestRouter_InvalidAddressSkipsHardware(t *testing.T) {
	sw := &mockSwitcher{}
	router := testRouter(sw, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		input  int
		output int
	}{
		{name: "unknown input", input: 99, output: 7},
		{name: "unknown output", input: 3, output: 99},
		{name: "zero input", input: 0, output: 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := router.Route(ctx, tt.input, tt.output)
			if !errors.Is(err, ErrInvalidAddress) {
				t.Errorf("Route() error = %v, want ErrInvalidAddress", err)
			}
		})
	}

	if sw.callCount() != 0 {
		t.Errorf("switcher called %d times, want 0", sw.callCount())
	}
}

func TestRouter_HardwareFailureLeavesRouteUnchanged(t *testing.T) {
	sw := &mockSwitcher{}
	router := testRouter(sw, nil)
	ctx := context.Background()

	if err := router.Route(ctx, 2, 5); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	sw.failNext = ErrTransportError
	if err := router.Route(ctx, 4, 5); !errors.Is(err, ErrTransportError) {
		t.Fatalf("Route() error = %v, want ErrTransportError", err)
	}

	input, ok := router.CurrentRoute(5)
	if !ok || input != 2 {
		t.Errorf("CurrentRoute(5) = (%d, %v), want prior route (2, true)", input, ok)
	}
}

func TestRouter_CurrentRouteUnknownOutput(t *testing.T) {
	router := testRouter(&mockSwitcher{}, nil)

	if _, ok := router.CurrentRoute(4); ok {
		t.Error("CurrentRoute(4) known before any routing, want unknown")
	}
}

func TestRouter_PersistAndRestore(t *testing.T) {
	store := newMockRouteStore()
	ctx := context.Background()

	router := testRouter(&mockSwitcher{}, store)
	if err := router.Route(ctx, 1, 3); err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if err := router.Route(ctx, 2, 4); err != nil {
		t.Fatalf("Route() error = %v", err)
	}

	// A fresh router restores the persisted table without hardware contact.
	sw := &mockSwitcher{}
	restored := testRouter(sw, store)
	if err := restored.LoadRoutes(ctx); err != nil {
		t.Fatalf("LoadRoutes() error = %v", err)
	}

	if input, ok := restored.CurrentRoute(3); !ok || input != 1 {
		t.Errorf("CurrentRoute(3) = (%d, %v), want (1, true)", input, ok)
	}
	if input, ok := restored.CurrentRoute(4); !ok || input != 2 {
		t.Errorf("CurrentRoute(4) = (%d, %v), want (2, true)", input, ok)
	}
	if sw.callCount() != 0 {
		t.Errorf("switcher called %d times during restore, want 0", sw.callCount())
	}
}

func TestRouter_LoadRoutesDropsUnconfiguredOutputs(t *testing.T) {
	store := newMockRouteStore()
	store.routes[99] = Route{Output: 99, Input: 1}
	store.routes[2] = Route{Output: 2, Input: 1}

	router := testRouter(&mockSwitcher{}, store)
	if err := router.LoadRoutes(context.Background()); err != nil {
		t.Fatalf("LoadRoutes() error = %v", err)
	}

	if _, ok := router.CurrentRoute(99); ok {
		t.Error("route for unconfigured output 99 restored, want dropped")
	}
	if _, ok := router.CurrentRoute(2); !ok {
		t.Error("route for configured output 2 not restored")
	}
}

func TestRouter_ConcurrentDifferentOutputs(t *testing.T) {
	sw := &mockSwitcher{}
	router := testRouter(sw, nil)

	var wg sync.WaitGroup
	for out := 1; out <= 8; out++ {
		wg.Add(1)
		go func(output int) {
			defer wg.Done()
			for in := 1; in <= 4; in++ {
				if err := router.Route(context.Background(), in, output); err != nil {
					t.Errorf("Route(%d, %d) error = %v", in, output, err)
				}
			}
		}(out)
	}
	wg.Wait()

	// Every output ends on input 4; the table has exactly 8 entries.
	if len(router.Routes()) != 8 {
		t.Fatalf("len(Routes()) = %d, want 8", len(router.Routes()))
	}
	for out := 1; out <= 8; out++ {
		if input, ok := router.CurrentRoute(out); !ok || input != 4 {
			t.Errorf("CurrentRoute(%d) = (%d, %v), want (4, true)", out, input, ok)
		}
	}
}
