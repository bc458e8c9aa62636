package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/barlinq/barlinq-core/internal/device"
	"github.com/barlinq/barlinq-core/internal/irhub"
)

// IRAdapter blasts learned codes through a network IR hub. It fails
// fast on configuration gaps (no hub assigned, hub offline, code not
// learned) without touching the network where possible.
type IRAdapter struct {
	hubs  HubSender
	codes CodeStore
}

// NewIRAdapter creates an IR transport adapter.
func NewIRAdapter(hubs HubSender, codes CodeStore) *IRAdapter {
	return &IRAdapter{hubs: hubs, codes: codes}
}

// Transport identifies this adapter's physical path.
func (a *IRAdapter) Transport() device.Transport {
	return device.TransportIR
}

// Send resolves the device's learned code for the command and transmits
// it through the assigned hub port.
func (a *IRAdapter) Send(ctx context.Context, dev *device.Device, cmd Command) error {
	if dev.HubID == nil {
		return device.ErrHubNotConfigured
	}

	code, err := a.codes.LearnedCode(ctx, dev.ID, cmd)
	if err != nil {
		return err
	}

	if err := a.hubs.Send(ctx, *dev.HubID, dev.HubPort, code); err != nil {
		switch {
		case errors.Is(err, irhub.ErrHubOffline), errors.Is(err, irhub.ErrHubNotFound):
			return err
		case errors.Is(err, context.Canceled):
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		default:
			return fmt.Errorf("%w: %v", ErrTransportError, err)
		}
	}
	return nil
}
