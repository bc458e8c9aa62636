// Package cecbus talks to the CEC gateway daemon.
//
// HDMI-CEC lets one HDMI device command another over the cable itself.
// The electrical and bit-timing work happens in a gateway daemon that
// owns the physical CEC adapters; this package is only its network
// client, speaking a line protocol over TCP or a Unix socket.
//
// Addressing is by matrix output number: a CEC frame travels whatever
// HDMI path the crosspoint currently routes to that output, which is why
// the control engine checks the route table before reaching for this
// client.
//
// The gateway distinguishes three outcomes, and so does this client:
// acknowledged (nil), sent-but-ignored (ErrDeviceNack, typically a
// display with CEC disabled in its menu), and failed (ErrCommandFailed).
package cecbus
