// Package irhub manages network-attached infrared transceiver hubs.
//
// A hub is a small TCP device with one or more IR emitter ports and a
// learning sensor. The package provides a line-protocol client for
// blasting and capturing codes, a SQLite-backed repository for hub
// records, and a registry that shares one client per hub and tracks
// reachability so commands against a dead hub fail fast.
//
// Reachability is inferred from transmission outcomes: protocol errors
// (a rejected code, an empty learning window) keep a hub online, while
// connection failures mark it offline. An offline hub is rejected for a
// short cooldown, then real attempts resume; an explicit Probe can
// restore it sooner.
package irhub
