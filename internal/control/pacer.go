package control

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/barlinq/barlinq-core/internal/brand"
)

// pacer spaces successive commands to the same device. After a command
// completes, the device is embargoed for the brand profile delay
// matching that command's category; the next dispatch waits out the
// remainder before its first transport attempt.
type pacer struct {
	mu        sync.Mutex
	notBefore map[string]time.Time
}

func newPacer() *pacer {
	return &pacer{notBefore: make(map[string]time.Time)}
}

// wait blocks until the device's embargo expires or ctx is cancelled.
func (p *pacer) wait(ctx context.Context, deviceID string) error {
	p.mu.Lock()
	until := p.notBefore[deviceID]
	p.mu.Unlock()

	remaining := time.Until(until)
	if remaining <= 0 {
		return nil
	}

	timer := time.NewTimer(remaining)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrCancelled, ctx.Err())
	}
}

// record embargoes the device for d from now. A zero or negative d
// clears nothing and records nothing.
func (p *pacer) record(deviceID string, d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notBefore[deviceID] = time.Now().Add(d)
}

// pacingDelay selects the settle delay a completed command imposes on
// the device, from the brand profile. Navigation and playback keys need
// no settling.
func pacingDelay(profile *brand.Profile, cmd Command) time.Duration {
	switch cmd.Category() {
	case CategoryPower:
		if cmd == CmdPowerOff {
			return profile.PowerOffDelay()
		}
		return profile.PowerOnDelay()
	case CategoryVolume:
		return profile.VolumeStepDelay()
	case CategoryInput:
		return profile.InputSwitchDelay()
	default:
		return 0
	}
}
