package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/barlinq/barlinq-core/internal/brand"
	"github.com/barlinq/barlinq-core/internal/cecbus"
	"github.com/barlinq/barlinq-core/internal/device"
)

// CECAdapter drives displays over the HDMI-CEC bus gateway. A CEC
// command travels the HDMI path currently routed to the display's
// matrix output, so the adapter refuses to send when that output has no
// known route.
type CECAdapter struct {
	bus    cecbus.Bus
	routes RouteReader
	brands *brand.Store
}

// NewCECAdapter creates a CEC transport adapter.
func NewCECAdapter(bus cecbus.Bus, routes RouteReader, brands *brand.Store) *CECAdapter {
	return &CECAdapter{bus: bus, routes: routes, brands: brands}
}

// Transport identifies this adapter's physical path.
func (a *CECAdapter) Transport() device.Transport {
	return device.TransportCEC
}

// Send executes the command over CEC. Brand capability gaps fail with
// ErrUnsupportedOperation so the arbiter can fall back to IR instead of
// silently no-opping.
func (a *CECAdapter) Send(ctx context.Context, dev *device.Device, cmd Command) error {
	profile := a.brands.Resolve(dev.Brand)

	switch cmd.Category() {
	case CategoryVolume:
		if !profile.SupportsCECVolume {
			return fmt.Errorf("%w: brand %s has no CEC volume control", ErrUnsupportedOperation, profile.Brand)
		}
	case CategoryPower:
		if cmd == CmdPowerOn && !profile.SupportsCECWake {
			return fmt.Errorf("%w: brand %s does not wake from CEC", ErrUnsupportedOperation, profile.Brand)
		}
	}

	// The bus frame is only meaningful on a routed HDMI path.
	if _, known := a.routes.CurrentRoute(dev.MatrixOutput); !known {
		return fmt.Errorf("%w: output %d has no known route", ErrTransportError, dev.MatrixOutput)
	}

	op, args, err := cecOp(cmd)
	if err != nil {
		return err
	}

	if err := a.bus.Send(ctx, dev.MatrixOutput, op, args...); err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		return fmt.Errorf("%w: %v", ErrTransportError, err)
	}
	return nil
}

// cecOp maps a canonical command onto a gateway operation.
func cecOp(cmd Command) (cecbus.Op, []string, error) {
	switch cmd {
	case CmdPowerOn:
		return cecbus.OpPowerOn, nil, nil
	case CmdPowerOff:
		return cecbus.OpStandby, nil, nil
	case CmdVolumeUp:
		return cecbus.OpVolumeUp, nil, nil
	case CmdVolumeDown:
		return cecbus.OpVolumeDown, nil, nil
	case CmdMute:
		return cecbus.OpMute, nil, nil
	case CmdInputHDMI1:
		return cecbus.OpKey, []string{"HDMI1"}, nil
	case CmdInputHDMI2:
		return cecbus.OpKey, []string{"HDMI2"}, nil
	case CmdInputHDMI3:
		return cecbus.OpKey, []string{"HDMI3"}, nil
	case CmdUp, CmdDown, CmdLeft, CmdRight, CmdOK, CmdBack, CmdHome,
		CmdPlay, CmdPause, CmdStop:
		return cecbus.OpKey, []string{keyName(cmd)}, nil
	default:
		return "", nil, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)
	}
}

func keyName(cmd Command) string {
	switch cmd {
	case CmdUp:
		return "UP"
	case CmdDown:
		return "DOWN"
	case CmdLeft:
		return "LEFT"
	case CmdRight:
		return "RIGHT"
	case CmdOK:
		return "SELECT"
	case CmdBack:
		return "BACK"
	case CmdHome:
		return "ROOT_MENU"
	case CmdPlay:
		return "PLAY"
	case CmdPause:
		return "PAUSE"
	case CmdStop:
		return "STOP"
	default:
		return string(cmd)
	}
}
