package control

import (
	"context"
	"sync"
	"time"

	"github.com/barlinq/barlinq-core/internal/device"
)

// dispatcher is the arbiter surface the batch fan-out needs.
type dispatcher interface {
	Dispatch(ctx context.Context, deviceID string, cmd Command, force device.Transport) Result
}

const defaultBatchDelay = time.Second

// Dispatcher fans a single command out to a set of devices, either
// concurrently or as a timed sequential sweep.
type Dispatcher struct {
	arbiter dispatcher
	delay   time.Duration
	logger  Logger
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Arbiter dispatcher

	// Delay is the default pause between devices in a sequential sweep.
	// Defaults to one second.
	Delay time.Duration

	Logger Logger
}

// NewDispatcher creates a batch dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	d := &Dispatcher{
		arbiter: opts.Arbiter,
		delay:   opts.Delay,
		logger:  opts.Logger,
	}
	if d.delay <= 0 {
		d.delay = defaultBatchDelay
	}
	if d.logger == nil {
		d.logger = noopLogger{}
	}
	return d
}

// BatchOptions tunes one fan-out call.
type BatchOptions struct {
	// Sequential dispatches devices one at a time in input order with a
	// pause between them, instead of all at once.
	Sequential bool

	// Delay overrides the dispatcher's sequential pause for this call.
	Delay time.Duration

	// Force restricts every dispatch to a single transport.
	Force device.Transport
}

// DispatchAll sends cmd to every device in deviceIDs. The returned
// result list has exactly one entry per input ID, in input order;
// invalid IDs are reported as failures in their slot, never dropped.
// One device's failure never blocks or cancels another's attempt.
func (d *Dispatcher) DispatchAll(ctx context.Context, deviceIDs []string, cmd Command, opts BatchOptions) BatchResult {
	results := make([]Result, len(deviceIDs))

	if opts.Sequential {
		d.sweep(ctx, deviceIDs, cmd, opts, results)
	} else {
		d.fanOut(ctx, deviceIDs, cmd, opts, results)
	}

	batch := BatchResult{Results: results, Total: len(results)}
	for _, result := range results {
		if result.Success {
			batch.SuccessCount++
		}
	}
	d.logger.Info("batch dispatched",
		"command", string(cmd), "sequential", opts.Sequential,
		"success", batch.SuccessCount, "total", batch.Total)
	return batch
}

func (d *Dispatcher) fanOut(ctx context.Context, deviceIDs []string, cmd Command, opts BatchOptions, results []Result) {
	var wg sync.WaitGroup
	for i, id := range deviceIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			results[i] = d.arbiter.Dispatch(ctx, id, cmd, opts.Force)
		}(i, id)
	}
	wg.Wait()
}

func (d *Dispatcher) sweep(ctx context.Context, deviceIDs []string, cmd Command, opts BatchOptions, results []Result) {
	delay := opts.Delay
	if delay <= 0 {
		delay = d.delay
	}

	timer := time.NewTimer(delay)
	timer.Stop()
	defer timer.Stop()

	for i, id := range deviceIDs {
		if i > 0 {
			timer.Reset(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				for j := i; j < len(deviceIDs); j++ {
					results[j] = Result{
						DeviceID: deviceIDs[j],
						Command:  cmd,
						Message:  ErrCancelled.Error(),
					}
				}
				return
			}
		}
		results[i] = d.arbiter.Dispatch(ctx, id, cmd, opts.Force)
	}
}
