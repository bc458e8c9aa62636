package matrix

import "errors"

// Domain errors for the matrix package, checked with errors.Is().
var (
	// ErrInvalidAddress is returned when an input or output number is not
	// part of the configured crosspoint.
	ErrInvalidAddress = errors.New("matrix: invalid address")

	// ErrTransportError is returned when the switcher times out, rejects
	// a command, or the connection fails mid-exchange.
	ErrTransportError = errors.New("matrix: transport error")

	// ErrNotConnected is returned when a command is attempted with no
	// usable connection to the switcher.
	ErrNotConnected = errors.New("matrix: not connected")
)
