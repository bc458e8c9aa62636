// Package learning owns the IR code capture lifecycle.
//
// A command starts as a named placeholder on a device. A capture
// session points the hub's learning sensor at a physical remote and
// waits out a bounded window for one code; the captured payload is
// persisted atomically, so a command is always either fully learned or
// a visible placeholder. Learned codes are validated by playing them
// back through the normal dispatch path, forced to the IR transport.
//
// The Store doubles as the control engine's code source: the IR
// adapter resolves payloads through it at dispatch time.
package learning
