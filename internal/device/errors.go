package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidTransport is returned when a transport value is not recognised.
	ErrInvalidTransport = errors.New("device: invalid transport")

	// ErrInvalidPreference is returned when a preference value is not recognised.
	ErrInvalidPreference = errors.New("device: invalid preference")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidOutput is returned when a matrix output number is not positive.
	ErrInvalidOutput = errors.New("device: invalid matrix output")

	// ErrHubNotConfigured is returned when an IR operation targets a device
	// with no assigned IR hub.
	ErrHubNotConfigured = errors.New("device: no IR hub configured")
)
