package control

import (
	"context"

	"github.com/barlinq/barlinq-core/internal/device"
)

// Adapter executes one canonical command against one device over a
// single physical transport. An adapter reports failures through the
// control package's error kinds so the arbiter can decide whether a
// fallback is worthwhile.
type Adapter interface {
	// Transport identifies the physical path this adapter drives.
	Transport() device.Transport

	// Send executes the command. A nil return means the hardware
	// acknowledged the command.
	Send(ctx context.Context, dev *device.Device, cmd Command) error
}

// CodeStore resolves learned IR code payloads. Implemented by the
// learning package's command store.
type CodeStore interface {
	// LearnedCode returns the opaque code payload for a device's
	// canonical command. Returns ErrCodeNotLearned when the command is
	// missing or still a placeholder.
	LearnedCode(ctx context.Context, deviceID string, cmd Command) (string, error)
}

// RouteReader exposes the matrix router's non-blocking read accessor.
type RouteReader interface {
	CurrentRoute(output int) (int, bool)
}

// HubSender transmits IR codes through a hub's emitter port.
// Implemented by the irhub registry.
type HubSender interface {
	Send(ctx context.Context, hubID string, port int, code string) error
}
