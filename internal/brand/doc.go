// Package brand holds per-manufacturer timing profiles.
//
// Displays from different manufacturers need different settle times after
// power transitions and input switches, and differ in what their CEC
// implementations support. Those differences live here as data rows, not
// as per-brand code paths.
//
// The one invariant: Resolve never fails. A brand the store has never
// heard of gets the Generic profile, so a missing row slows a display
// down to conservative timing instead of making it uncontrollable.
package brand
