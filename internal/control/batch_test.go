package control

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/barlinq/barlinq-core/internal/device"
)

// scriptedArbiter dispatches from a per-device script and records call
// start times.
type scriptedArbiter struct {
	mu       sync.Mutex
	fail     map[string]string // device id -> failure message
	delay    time.Duration     // simulated per-dispatch work
	startsAt map[string]time.Time
	order    []string
}

func newScriptedArbiter() *scriptedArbiter {
	return &scriptedArbiter{
		fail:     make(map[string]string),
		startsAt: make(map[string]time.Time),
	}
}

func (s *scriptedArbiter) Dispatch(ctx context.Context, deviceID string, cmd Command, force device.Transport) Result {
	s.mu.Lock()
	s.startsAt[deviceID] = time.Now()
	s.order = append(s.order, deviceID)
	s.mu.Unlock()

	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	s.mu.Lock()
	message, failed := s.fail[deviceID]
	s.mu.Unlock()
	if failed {
		return Result{DeviceID: deviceID, Command: cmd, Message: message}
	}
	return Result{DeviceID: deviceID, Command: cmd, Success: true, Transport: device.TransportCEC}
}

func TestDispatchAllReturnsAllResultsInOrder(t *testing.T) {
	arbiter := newScriptedArbiter()
	arbiter.fail["tv2"] = device.ErrHubNotConfigured.Error()
	d := NewDispatcher(DispatcherOptions{Arbiter: arbiter})

	ids := []string{"tv1", "tv2", "tv3"}
	batch := d.DispatchAll(context.Background(), ids, CmdMute, BatchOptions{})

	if batch.Total != 3 || len(batch.Results) != 3 {
		t.Fatalf("Total = %d, results = %d, want 3 each", batch.Total, len(batch.Results))
	}
	for i, id := range ids {
		if batch.Results[i].DeviceID != id {
			t.Errorf("Results[%d].DeviceID = %s, want %s (input order preserved)", i, batch.Results[i].DeviceID, id)
		}
	}
	if batch.SuccessCount != 2 {
		t.Errorf("SuccessCount = %d, want 2", batch.SuccessCount)
	}
	if batch.Results[1].Success {
		t.Error("tv2 should fail")
	}
	if !strings.Contains(batch.Results[1].Message, "no IR hub configured") {
		t.Errorf("tv2 message = %q, want failure reason", batch.Results[1].Message)
	}
}

func TestDispatchAllParallelFailureIsolation(t *testing.T) {
	arbiter := newScriptedArbiter()
	arbiter.delay = 50 * time.Millisecond
	for _, id := range []string{"tv2", "tv4"} {
		arbiter.fail[id] = "transport error"
	}
	d := NewDispatcher(DispatcherOptions{Arbiter: arbiter})

	ids := []string{"tv1", "tv2", "tv3", "tv4", "tv5"}
	start := time.Now()
	batch := d.DispatchAll(context.Background(), ids, CmdPowerOn, BatchOptions{})
	elapsed := time.Since(start)

	if batch.SuccessCount != 3 {
		t.Errorf("SuccessCount = %d, want 3", batch.SuccessCount)
	}
	// Five 50ms dispatches in parallel should take nowhere near 250ms.
	if elapsed > 200*time.Millisecond {
		t.Errorf("parallel batch took %v, want concurrent execution", elapsed)
	}
}

func TestDispatchAllSequentialSpacing(t *testing.T) {
	arbiter := newScriptedArbiter()
	d := NewDispatcher(DispatcherOptions{Arbiter: arbiter, Delay: 80 * time.Millisecond})

	ids := []string{"tv1", "tv2", "tv3"}
	batch := d.DispatchAll(context.Background(), ids, CmdPowerOff, BatchOptions{Sequential: true})

	if batch.SuccessCount != 3 {
		t.Fatalf("SuccessCount = %d, want 3", batch.SuccessCount)
	}

	arbiter.mu.Lock()
	defer arbiter.mu.Unlock()
	for i := 1; i < len(ids); i++ {
		gap := arbiter.startsAt[ids[i]].Sub(arbiter.startsAt[ids[i-1]])
		if gap < 80*time.Millisecond {
			t.Errorf("gap %s->%s = %v, want at least 80ms", ids[i-1], ids[i], gap)
		}
	}
	for i, id := range arbiter.order {
		if id != ids[i] {
			t.Errorf("dispatch order = %v, want input order", arbiter.order)
			break
		}
	}
}

func TestDispatchAllSequentialFailureContinues(t *testing.T) {
	arbiter := newScriptedArbiter()
	arbiter.fail["tv1"] = "dead"
	d := NewDispatcher(DispatcherOptions{Arbiter: arbiter, Delay: time.Millisecond})

	batch := d.DispatchAll(context.Background(), []string{"tv1", "tv2"}, CmdMute, BatchOptions{Sequential: true})

	if len(batch.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(batch.Results))
	}
	if batch.Results[0].Success || !batch.Results[1].Success {
		t.Errorf("results = %+v, want sweep to continue past tv1", batch.Results)
	}
}

func TestDispatchAllSequentialCancellation(t *testing.T) {
	arbiter := newScriptedArbiter()
	d := NewDispatcher(DispatcherOptions{Arbiter: arbiter, Delay: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	ids := []string{"tv1", "tv2", "tv3"}
	batch := d.DispatchAll(ctx, ids, CmdMute, BatchOptions{Sequential: true})

	// Every slot is still filled; the undispatched tail is marked failed.
	if len(batch.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(batch.Results))
	}
	if !batch.Results[0].Success {
		t.Error("tv1 should have dispatched before cancellation")
	}
	for _, result := range batch.Results[1:] {
		if result.Success {
			t.Errorf("%s = success, want cancelled failure", result.DeviceID)
		}
	}
}

func TestDispatchAllEmpty(t *testing.T) {
	d := NewDispatcher(DispatcherOptions{Arbiter: newScriptedArbiter()})

	batch := d.DispatchAll(context.Background(), nil, CmdMute, BatchOptions{})
	if batch.Total != 0 || batch.SuccessCount != 0 || len(batch.Results) != 0 {
		t.Errorf("DispatchAll(nil) = %+v, want empty batch", batch)
	}
}
