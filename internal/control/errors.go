package control

import "errors"

// Domain errors for the control package, checked with errors.Is().
//
// ErrTransportError and ErrUnsupportedOperation are the only two the
// arbiter recovers from by falling back to the alternate transport;
// every other kind is surfaced to the caller with the originating
// transport's message preserved.
var (
	// ErrUnknownCommand is returned when a command name is not canonical.
	ErrUnknownCommand = errors.New("control: unknown command")

	// ErrUnsupportedOperation is returned when a transport cannot perform
	// the command for this device or brand.
	ErrUnsupportedOperation = errors.New("control: unsupported operation")

	// ErrTransportError is returned when a transport attempt times out or
	// the hardware reports a failure.
	ErrTransportError = errors.New("control: transport error")

	// ErrCodeNotLearned is returned when the IR path has no learned code
	// for the requested command.
	ErrCodeNotLearned = errors.New("control: code not learned")

	// ErrNoTransport is returned when no supported transport could be
	// resolved for the dispatch.
	ErrNoTransport = errors.New("control: no usable transport")

	// ErrCancelled is returned when the caller cancels an in-flight
	// dispatch. No device state is committed on cancellation.
	ErrCancelled = errors.New("control: cancelled")
)
