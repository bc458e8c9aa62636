package device

import "fmt"

// maxNameLength bounds display names to keep UI layers sane.
const maxNameLength = 100

// Validate checks a device for structural problems before persistence.
//
// Returns:
//   - error: wrapping ErrInvalidDevice (or a more specific sentinel), or nil
func (d *Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidDevice)
	}

	if d.Name == "" || len(d.Name) > maxNameLength {
		return fmt.Errorf("%w: name must be 1-%d characters", ErrInvalidName, maxNameLength)
	}

	if d.MatrixOutput < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidOutput, d.MatrixOutput)
	}

	if len(d.Transports) == 0 {
		return fmt.Errorf("%w: at least one transport is required", ErrInvalidDevice)
	}
	for _, t := range d.Transports {
		if t != TransportCEC && t != TransportIR {
			return fmt.Errorf("%w: %q", ErrInvalidTransport, t)
		}
	}

	switch d.Preferred {
	case PreferCEC, PreferIR, PreferAuto:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPreference, d.Preferred)
	}

	// A declared IR transport without a hub is allowed at configuration
	// time (hub may be assigned later), but an assigned hub needs a port.
	if d.HubID != nil && d.HubPort < 1 {
		return fmt.Errorf("%w: hub port must be at least 1", ErrInvalidDevice)
	}

	return nil
}
