package cecbus

import "errors"

// Domain errors for the cecbus package, checked with errors.Is().
var (
	// ErrConnectionFailed is returned when the gateway cannot be reached.
	ErrConnectionFailed = errors.New("cecbus: connection failed")

	// ErrNotConnected is returned when a command is attempted while the
	// client holds no usable connection.
	ErrNotConnected = errors.New("cecbus: not connected")

	// ErrCommandFailed is returned when the gateway reports an error or
	// the exchange times out.
	ErrCommandFailed = errors.New("cecbus: command failed")

	// ErrDeviceNack is returned when the bus delivers the frame but the
	// addressed display does not acknowledge it.
	ErrDeviceNack = errors.New("cecbus: device did not acknowledge")
)
