package control

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/barlinq/barlinq-core/internal/brand"
	"github.com/barlinq/barlinq-core/internal/device"
)

// Logger captures the logging calls the control engine makes.
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

// DeviceStore is the device registry surface the arbiter needs.
type DeviceStore interface {
	GetDevice(ctx context.Context, id string) (*device.Device, error)
	SetPowerState(ctx context.Context, id string, state device.PowerState, lastResult string)
}

// Recorder receives every definitive dispatch result. Implemented by
// the in-memory history ring and the metrics writer.
type Recorder interface {
	Record(result Result)
}

const defaultAttemptTimeout = 4 * time.Second

// Arbiter selects a transport for each dispatch, executes it through
// the matching adapter, and retries once through the alternate
// transport when the first attempt fails in a recoverable way.
type Arbiter struct {
	devices  DeviceStore
	brands   *brand.Store
	adapters map[device.Transport]Adapter
	pacer    *pacer

	timeout   time.Duration
	logger    Logger
	recorders []Recorder
}

// ArbiterOptions configures an Arbiter.
type ArbiterOptions struct {
	Devices  DeviceStore
	Brands   *brand.Store
	Adapters []Adapter

	// AttemptTimeout bounds each transport attempt. Defaults to 4s.
	AttemptTimeout time.Duration

	Logger    Logger
	Recorders []Recorder
}

// NewArbiter creates a command arbiter.
func NewArbiter(opts ArbiterOptions) *Arbiter {
	a := &Arbiter{
		devices:   opts.Devices,
		brands:    opts.Brands,
		adapters:  make(map[device.Transport]Adapter, len(opts.Adapters)),
		pacer:     newPacer(),
		timeout:   opts.AttemptTimeout,
		logger:    opts.Logger,
		recorders: opts.Recorders,
	}
	for _, adapter := range opts.Adapters {
		a.adapters[adapter.Transport()] = adapter
	}
	if a.timeout <= 0 {
		a.timeout = defaultAttemptTimeout
	}
	if a.logger == nil {
		a.logger = noopLogger{}
	}
	return a
}

// Dispatch executes one canonical command against one device. The
// returned Result is always populated; failures are reported in it,
// never as a bare error. Force restricts the dispatch to a single
// transport with no fallback; pass an empty transport for automatic
// selection.
func (a *Arbiter) Dispatch(ctx context.Context, deviceID string, cmd Command, force device.Transport) Result {
	started := time.Now()

	result := a.dispatch(ctx, deviceID, cmd, force)
	result.DeviceID = deviceID
	result.Command = cmd
	result.Duration = time.Since(started)
	result.CompletedAt = time.Now().UTC()

	for _, recorder := range a.recorders {
		recorder.Record(result)
	}
	return result
}

func (a *Arbiter) dispatch(ctx context.Context, deviceID string, cmd Command, force device.Transport) Result {
	if !cmd.IsValid() {
		return Result{Message: fmt.Sprintf("unknown command %q", cmd)}
	}

	dev, err := a.devices.GetDevice(ctx, deviceID)
	if err != nil {
		return Result{Message: err.Error()}
	}

	profile := a.brands.Resolve(dev.Brand)
	order, err := transportOrder(dev, profile, force)
	if err != nil {
		return Result{Message: err.Error()}
	}

	if err := a.pacer.wait(ctx, dev.ID); err != nil {
		return Result{Message: err.Error()}
	}

	var (
		lastErr       error
		lastTransport device.Transport
	)
	for i, transport := range order {
		adapter, ok := a.adapters[transport]
		if !ok {
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, a.timeout)
		err := adapter.Send(attemptCtx, dev, cmd)
		cancel()

		if err == nil {
			a.pacer.record(dev.ID, pacingDelay(profile, cmd))
			result := Result{
				Success:      true,
				Transport:    transport,
				FallbackUsed: i > 0,
				Message:      fmt.Sprintf("%s via %s", cmd, transport),
			}
			a.commit(dev, cmd, result.Message)
			a.logger.Debug("command dispatched",
				"device_id", dev.ID, "command", string(cmd),
				"transport", string(transport), "fallback", i > 0)
			return result
		}

		// Cancellation is not a transport verdict; nothing is committed
		// and no fallback is attempted.
		if ctx.Err() != nil {
			return Result{
				Transport: transport,
				Message:   fmt.Sprintf("%s cancelled via %s: %v", cmd, transport, err),
			}
		}

		lastErr = err
		lastTransport = transport

		if !recoverable(err) {
			break
		}
		if i < len(order)-1 {
			a.logger.Warn("transport failed, trying fallback",
				"device_id", dev.ID, "command", string(cmd),
				"transport", string(transport), "error", err)
		}
	}

	if lastErr == nil {
		return Result{Message: ErrNoTransport.Error()}
	}

	message := fmt.Sprintf("%s failed via %s: %v", cmd, lastTransport, lastErr)
	a.devices.SetPowerState(ctx, dev.ID, dev.PowerState, message)
	a.logger.Warn("command failed",
		"device_id", dev.ID, "command", string(cmd),
		"transport", string(lastTransport), "error", lastErr)
	return Result{
		Transport: lastTransport,
		Message:   message,
	}
}

// commit updates the device's non-authoritative caches after a
// definitive success. Power commands also update the power state.
func (a *Arbiter) commit(dev *device.Device, cmd Command, message string) {
	state := dev.PowerState
	switch cmd {
	case CmdPowerOn:
		state = device.PowerOn
	case CmdPowerOff:
		state = device.PowerOff
	}
	// Detached context: the cache write must not be lost to a caller
	// cancelling immediately after the hardware acknowledged.
	a.devices.SetPowerState(context.Background(), dev.ID, state, message)
}

// recoverable reports whether a transport failure justifies trying the
// alternate transport. Timeouts and hardware rejections are worth a
// second path; configuration gaps and cancellations are not.
func recoverable(err error) bool {
	return errors.Is(err, ErrTransportError) ||
		errors.Is(err, ErrUnsupportedOperation) ||
		errors.Is(err, context.DeadlineExceeded)
}

// transportOrder resolves which transports to try, in order. A forced
// transport is used alone with no fallback. Otherwise the device's
// preference decides; "auto" defers to the brand profile's hint, where
// hybrid means CEC first with IR as the fallback.
func transportOrder(dev *device.Device, profile *brand.Profile, force device.Transport) ([]device.Transport, error) {
	if force != "" {
		if !dev.SupportsTransport(force) {
			return nil, fmt.Errorf("%w: device does not support %s", ErrNoTransport, force)
		}
		return []device.Transport{force}, nil
	}

	first := device.TransportCEC
	switch dev.Preferred {
	case device.PreferCEC:
		first = device.TransportCEC
	case device.PreferIR:
		first = device.TransportIR
	case device.PreferAuto:
		if profile.PreferredMethod == brand.MethodIR {
			first = device.TransportIR
		}
	}

	var order []device.Transport
	if dev.SupportsTransport(first) {
		order = append(order, first)
	}
	for _, t := range device.AllTransports() {
		if t != first && dev.SupportsTransport(t) {
			order = append(order, t)
		}
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: device declares no supported transports", ErrNoTransport)
	}
	return order, nil
}
