// Package control is the device control engine: it turns canonical
// commands (power_on, volume_up, ...) into transport attempts against
// real displays.
//
// The Arbiter is the heart of the package. Each dispatch resolves a
// transport order from the device's preference and its brand profile's
// hint, paces the device according to its previous command, executes
// the first transport's adapter, and falls back once to the alternate
// transport when the failure is recoverable (a timeout, a hardware
// rejection, or a brand capability gap). Every outcome is a structured
// Result; callers never see a bare error for a device-level failure.
//
// The Dispatcher fans one command out to many devices, either all at
// once with failure isolation or as a timed sequential sweep to spare a
// shared hub or bus. It always returns one result per requested device,
// in request order.
//
// Adapters translate canonical commands into the CEC gateway's
// operations or into learned IR code payloads. They report failures
// through this package's error kinds so the arbiter can tell a
// recoverable transport fault from a configuration gap.
package control
