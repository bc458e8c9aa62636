package irhub

import "errors"

// Domain errors for the irhub package, checked with errors.Is().
var (
	// ErrHubNotFound is returned when a hub ID does not exist.
	ErrHubNotFound = errors.New("irhub: hub not found")

	// ErrHubOffline is returned when an operation targets a hub whose
	// reachability status is not online. No transmission is attempted.
	ErrHubOffline = errors.New("irhub: hub offline")

	// ErrSendFailed is returned when the hub times out or reports an
	// error while blasting a code.
	ErrSendFailed = errors.New("irhub: send failed")

	// ErrNoSignal is returned when a learning window closes without the
	// hub capturing a code from the remote.
	ErrNoSignal = errors.New("irhub: no signal captured")

	// ErrLearnFailed is returned when the hub rejects learn mode or
	// fails mid-capture.
	ErrLearnFailed = errors.New("irhub: learn failed")

	// ErrHubInvalid is returned when hub registration data is incomplete.
	ErrHubInvalid = errors.New("irhub: invalid hub")
)
