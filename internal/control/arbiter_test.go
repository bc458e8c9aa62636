package control

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/barlinq/barlinq-core/internal/brand"
	"github.com/barlinq/barlinq-core/internal/device"
)

// fakeDeviceStore is an in-memory DeviceStore recording cache commits.
type fakeDeviceStore struct {
	mu      sync.Mutex
	devices map[string]*device.Device
	states  map[string]device.PowerState
	results map[string]string
	commits int
}

func newFakeDeviceStore(devices ...*device.Device) *fakeDeviceStore {
	store := &fakeDeviceStore{
		devices: make(map[string]*device.Device),
		states:  make(map[string]device.PowerState),
		results: make(map[string]string),
	}
	for _, dev := range devices {
		store.devices[dev.ID] = dev
	}
	return store
}

func (s *fakeDeviceStore) GetDevice(ctx context.Context, id string) (*device.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dev, ok := s.devices[id]
	if !ok {
		return nil, device.ErrDeviceNotFound
	}
	return dev.Copy(), nil
}

func (s *fakeDeviceStore) SetPowerState(ctx context.Context, id string, state device.PowerState, lastResult string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[id] = state
	s.results[id] = lastResult
	s.commits++
}

func (s *fakeDeviceStore) state(id string) device.PowerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[id]
}

func (s *fakeDeviceStore) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

// fakeAdapter scripts one transport's behaviour.
type fakeAdapter struct {
	transport device.Transport
	err       error
	fn        func(ctx context.Context, dev *device.Device, cmd Command) error

	mu    sync.Mutex
	calls int
}

func (f *fakeAdapter) Transport() device.Transport { return f.transport }

func (f *fakeAdapter) Send(ctx context.Context, dev *device.Device, cmd Command) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(ctx, dev, cmd)
	}
	return f.err
}

func (f *fakeAdapter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRecorder collects everything the arbiter records.
type fakeRecorder struct {
	mu      sync.Mutex
	results []Result
}

func (r *fakeRecorder) Record(result Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func hybridDevice(id string) *device.Device {
	return &device.Device{
		ID:           id,
		Name:         id,
		Brand:        "Generic",
		MatrixOutput: 1,
		Transports:   []device.Transport{device.TransportCEC, device.TransportIR},
		Preferred:    device.PreferAuto,
		PowerState:   device.PowerUnknown,
	}
}

func testArbiter(t *testing.T, store *fakeDeviceStore, cec, ir *fakeAdapter, recorders ...Recorder) *Arbiter {
	t.Helper()

	// Zero delays keep successive dispatches in tests instant.
	brands := brand.NewStore()
	brands.Put(&brand.Profile{
		Brand:             "Generic",
		SupportsCECWake:   true,
		SupportsCECVolume: true,
		PreferredMethod:   brand.MethodHybrid,
	})
	return NewArbiter(ArbiterOptions{
		Devices:   store,
		Brands:    brands,
		Adapters:  []Adapter{cec, ir},
		Recorders: recorders,
	})
}

func TestDispatchHybridFallsBackToIR(t *testing.T) {
	// A Generic-brand device on auto preference resolves hybrid: CEC
	// first, IR as the fallback.
	store := newFakeDeviceStore(hybridDevice("tv-12"))
	cec := &fakeAdapter{transport: device.TransportCEC, err: ErrTransportError}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-12", CmdPowerOn, "")

	if !result.Success {
		t.Fatalf("Dispatch() = %+v, want success", result)
	}
	if result.Transport != device.TransportIR {
		t.Errorf("Transport = %v, want ir", result.Transport)
	}
	if !result.FallbackUsed {
		t.Error("FallbackUsed = false, want true")
	}
	if cec.callCount() != 1 || ir.callCount() != 1 {
		t.Errorf("attempts cec=%d ir=%d, want exactly one each", cec.callCount(), ir.callCount())
	}
}

func TestDispatchFirstTransportSucceeds(t *testing.T) {
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-1", CmdPowerOff, "")

	if !result.Success || result.FallbackUsed {
		t.Errorf("Dispatch() = %+v, want success without fallback", result)
	}
	if result.Transport != device.TransportCEC {
		t.Errorf("Transport = %v, want cec", result.Transport)
	}
	if ir.callCount() != 0 {
		t.Errorf("ir attempts = %d, want 0", ir.callCount())
	}
}

func TestDispatchUnsupportedOperationFallsBack(t *testing.T) {
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC, err: ErrUnsupportedOperation}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-1", CmdVolumeUp, "")

	if !result.Success || !result.FallbackUsed {
		t.Errorf("Dispatch() = %+v, want fallback success", result)
	}
}

func TestDispatchConfigurationGapStopsFallback(t *testing.T) {
	// An IR-first device whose hub is not configured must not have the
	// failure papered over by a CEC attempt.
	dev := hybridDevice("tv-1")
	dev.Preferred = device.PreferIR
	store := newFakeDeviceStore(dev)
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR, err: device.ErrHubNotConfigured}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-1", CmdMute, "")

	if result.Success {
		t.Fatalf("Dispatch() = %+v, want failure", result)
	}
	if result.FallbackUsed {
		t.Error("FallbackUsed = true, want false")
	}
	if cec.callCount() != 0 {
		t.Errorf("cec attempts = %d, want 0 after non-recoverable failure", cec.callCount())
	}
	if !strings.Contains(result.Message, "no IR hub configured") {
		t.Errorf("Message = %q, want originating reason preserved", result.Message)
	}
}

func TestDispatchSingleTransportNoSecondAttempt(t *testing.T) {
	dev := hybridDevice("tv-1")
	dev.Transports = []device.Transport{device.TransportCEC}
	store := newFakeDeviceStore(dev)
	cec := &fakeAdapter{transport: device.TransportCEC, err: ErrTransportError}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-1", CmdPowerOn, "")

	if result.Success || result.FallbackUsed {
		t.Errorf("Dispatch() = %+v, want plain failure", result)
	}
	if cec.callCount() != 1 || ir.callCount() != 0 {
		t.Errorf("attempts cec=%d ir=%d, want 1 and 0", cec.callCount(), ir.callCount())
	}
}

func TestDispatchForcedTransportNoFallback(t *testing.T) {
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR, err: ErrTransportError}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-1", CmdPowerOn, device.TransportIR)

	if result.Success {
		t.Fatalf("Dispatch() = %+v, want failure", result)
	}
	if cec.callCount() != 0 {
		t.Errorf("cec attempts = %d, want 0 with forced ir", cec.callCount())
	}
}

func TestDispatchForcedUnsupportedTransport(t *testing.T) {
	dev := hybridDevice("tv-1")
	dev.Transports = []device.Transport{device.TransportIR}
	store := newFakeDeviceStore(dev)
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-1", CmdPowerOn, device.TransportCEC)

	if result.Success {
		t.Fatalf("Dispatch() = %+v, want failure", result)
	}
	if cec.callCount() != 0 || ir.callCount() != 0 {
		t.Error("no adapter should be attempted for an unsupported forced transport")
	}
}

func TestDispatchUnknownDevice(t *testing.T) {
	store := newFakeDeviceStore()
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "ghost", CmdPowerOn, "")

	if result.Success {
		t.Fatalf("Dispatch() = %+v, want failure", result)
	}
	if result.DeviceID != "ghost" || result.Command != CmdPowerOn {
		t.Errorf("result identity = %q/%q, want preserved", result.DeviceID, result.Command)
	}
	if cec.callCount() != 0 && ir.callCount() != 0 {
		t.Error("no adapter should be attempted for an unknown device")
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(context.Background(), "tv-1", Command("explode"), "")

	if result.Success {
		t.Fatalf("Dispatch() = %+v, want failure", result)
	}
	if cec.callCount() != 0 {
		t.Error("no adapter should be attempted for an unknown command")
	}
}

func TestDispatchCommitsPowerState(t *testing.T) {
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	arbiter.Dispatch(context.Background(), "tv-1", CmdPowerOn, "")
	if store.state("tv-1") != device.PowerOn {
		t.Errorf("power state = %v, want on", store.state("tv-1"))
	}

	arbiter.Dispatch(context.Background(), "tv-1", CmdPowerOff, "")
	if store.state("tv-1") != device.PowerOff {
		t.Errorf("power state = %v, want off", store.state("tv-1"))
	}
}

func TestDispatchCancellationCommitsNothing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC}
	cec.fn = func(ctx context.Context, dev *device.Device, cmd Command) error {
		cancel()
		return ErrTransportError
	}
	ir := &fakeAdapter{transport: device.TransportIR}
	arbiter := testArbiter(t, store, cec, ir)

	result := arbiter.Dispatch(ctx, "tv-1", CmdPowerOn, "")

	if result.Success {
		t.Fatalf("Dispatch() = %+v, want failure", result)
	}
	if ir.callCount() != 0 {
		t.Error("no fallback attempt after cancellation")
	}
	if store.commitCount() != 0 {
		t.Errorf("commits = %d, want 0 on cancellation", store.commitCount())
	}
}

func TestDispatchPacesSuccessiveCommands(t *testing.T) {
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR}

	brands := brand.NewStore()
	brands.Put(&brand.Profile{
		Brand:             "Generic",
		VolumeStepDelayMs: 120,
		SupportsCECWake:   true,
		SupportsCECVolume: true,
		PreferredMethod:   brand.MethodHybrid,
	})
	arbiter := NewArbiter(ArbiterOptions{
		Devices:  store,
		Brands:   brands,
		Adapters: []Adapter{cec, ir},
	})

	arbiter.Dispatch(context.Background(), "tv-1", CmdVolumeUp, "")

	start := time.Now()
	arbiter.Dispatch(context.Background(), "tv-1", CmdVolumeUp, "")
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("second dispatch started after %v, want volume pacing enforced", elapsed)
	}
}

func TestDispatchPacingIsPerDevice(t *testing.T) {
	a := hybridDevice("tv-a")
	b := hybridDevice("tv-b")
	store := newFakeDeviceStore(a, b)
	cec := &fakeAdapter{transport: device.TransportCEC}
	ir := &fakeAdapter{transport: device.TransportIR}

	brands := brand.NewStore()
	brands.Put(&brand.Profile{
		Brand:             "Generic",
		VolumeStepDelayMs: 500,
		SupportsCECVolume: true,
		PreferredMethod:   brand.MethodHybrid,
	})
	arbiter := NewArbiter(ArbiterOptions{
		Devices:  store,
		Brands:   brands,
		Adapters: []Adapter{cec, ir},
	})

	arbiter.Dispatch(context.Background(), "tv-a", CmdVolumeUp, "")

	// A different device is not embargoed by tv-a's command.
	start := time.Now()
	arbiter.Dispatch(context.Background(), "tv-b", CmdVolumeUp, "")
	if elapsed := time.Since(start); elapsed > 300*time.Millisecond {
		t.Errorf("tv-b dispatch took %v, want no cross-device pacing", elapsed)
	}
}

func TestDispatchRecordsResults(t *testing.T) {
	store := newFakeDeviceStore(hybridDevice("tv-1"))
	cec := &fakeAdapter{transport: device.TransportCEC, err: ErrTransportError}
	ir := &fakeAdapter{transport: device.TransportIR, err: ErrTransportError}
	recorder := &fakeRecorder{}
	arbiter := testArbiter(t, store, cec, ir, recorder)

	arbiter.Dispatch(context.Background(), "tv-1", CmdPowerOn, "")

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if len(recorder.results) != 1 {
		t.Fatalf("recorded %d results, want 1", len(recorder.results))
	}
	got := recorder.results[0]
	if got.Success || got.DeviceID != "tv-1" || got.Command != CmdPowerOn {
		t.Errorf("recorded %+v", got)
	}
	if got.CompletedAt.IsZero() {
		t.Error("CompletedAt not set")
	}
}

func TestTransportOrder(t *testing.T) {
	cecFirst := []device.Transport{device.TransportCEC, device.TransportIR}
	irFirst := []device.Transport{device.TransportIR, device.TransportCEC}

	tests := []struct {
		name      string
		preferred device.Preference
		hint      brand.Method
		supports  []device.Transport
		force     device.Transport
		want      []device.Transport
		wantErr   bool
	}{
		{"auto hybrid", device.PreferAuto, brand.MethodHybrid, cecFirst, "", cecFirst, false},
		{"auto cec", device.PreferAuto, brand.MethodCEC, cecFirst, "", cecFirst, false},
		{"auto ir", device.PreferAuto, brand.MethodIR, cecFirst, "", irFirst, false},
		{"explicit ir beats hint", device.PreferIR, brand.MethodCEC, cecFirst, "", irFirst, false},
		{"explicit cec", device.PreferCEC, brand.MethodIR, cecFirst, "", cecFirst, false},
		{"single transport", device.PreferAuto, brand.MethodHybrid, []device.Transport{device.TransportIR}, "", []device.Transport{device.TransportIR}, false},
		{"forced", device.PreferAuto, brand.MethodHybrid, cecFirst, device.TransportIR, []device.Transport{device.TransportIR}, false},
		{"forced unsupported", device.PreferAuto, brand.MethodHybrid, []device.Transport{device.TransportIR}, device.TransportCEC, nil, true},
		{"no transports", device.PreferAuto, brand.MethodHybrid, nil, "", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := &device.Device{ID: "tv", Transports: tt.supports, Preferred: tt.preferred}
			profile := &brand.Profile{Brand: "Test", PreferredMethod: tt.hint}

			got, err := transportOrder(dev, profile, tt.force)
			if (err != nil) != tt.wantErr {
				t.Fatalf("transportOrder() error = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("transportOrder() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("transportOrder() = %v, want %v", got, tt.want)
					break
				}
			}
		})
	}
}
