// Package device defines the display model and its persistence.
//
// A Device is one physical display: which crosspoint output it hangs off,
// which brand profile governs its timing, which transports (HDMI-CEC,
// infrared) it accepts, and which IR hub port reaches it.
//
// The package provides:
//   - Device type with transport/preference/power-state enums
//   - Repository interface with a SQLite implementation
//   - Registry: a cached, thread-safe front for the repository used by
//     the dispatch path
//
// Devices are created and edited by configuration surfaces outside the
// control engine. At dispatch time the engine reads them through the
// Registry and writes back only the advisory power-state cache.
//
// Thread Safety:
//   - Registry methods are safe for concurrent use.
//   - Devices returned by the Registry are copies; callers may mutate them.
package device
