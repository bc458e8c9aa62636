package control

import (
	"time"

	"github.com/barlinq/barlinq-core/internal/device"
)

// Command is a transport-independent instruction. Each adapter
// translates a command into its own protocol; callers never see
// CEC opcodes or raw IR payloads.
type Command string

// Canonical commands.
const (
	CmdPowerOn    Command = "power_on"
	CmdPowerOff   Command = "power_off"
	CmdVolumeUp   Command = "volume_up"
	CmdVolumeDown Command = "volume_down"
	CmdMute       Command = "mute"
	CmdInputHDMI1 Command = "input_hdmi1"
	CmdInputHDMI2 Command = "input_hdmi2"
	CmdInputHDMI3 Command = "input_hdmi3"
	CmdUp         Command = "up"
	CmdDown       Command = "down"
	CmdLeft       Command = "left"
	CmdRight      Command = "right"
	CmdOK         Command = "ok"
	CmdBack       Command = "back"
	CmdHome       Command = "home"
	CmdPlay       Command = "play"
	CmdPause      Command = "pause"
	CmdStop       Command = "stop"
)

// AllCommands returns every canonical command.
func AllCommands() []Command {
	return []Command{
		CmdPowerOn, CmdPowerOff,
		CmdVolumeUp, CmdVolumeDown, CmdMute,
		CmdInputHDMI1, CmdInputHDMI2, CmdInputHDMI3,
		CmdUp, CmdDown, CmdLeft, CmdRight, CmdOK, CmdBack, CmdHome,
		CmdPlay, CmdPause, CmdStop,
	}
}

// IsValid reports whether c is a recognised canonical command.
func (c Command) IsValid() bool {
	for _, known := range AllCommands() {
		if c == known {
			return true
		}
	}
	return false
}

// Category groups commands for pacing purposes. Successive commands to
// the same device are spaced by the brand profile delay matching the
// previous command's category.
type Category string

// Category constants.
const (
	CategoryPower      Category = "power"
	CategoryVolume     Category = "volume"
	CategoryInput      Category = "input"
	CategoryNavigation Category = "navigation"
	CategoryPlayback   Category = "playback"
)

// Category returns the pacing category of the command.
func (c Command) Category() Category {
	switch c {
	case CmdPowerOn, CmdPowerOff:
		return CategoryPower
	case CmdVolumeUp, CmdVolumeDown, CmdMute:
		return CategoryVolume
	case CmdInputHDMI1, CmdInputHDMI2, CmdInputHDMI3:
		return CategoryInput
	case CmdPlay, CmdPause, CmdStop:
		return CategoryPlayback
	default:
		return CategoryNavigation
	}
}

// Result is the outcome of one dispatch. Failures are results, not
// errors: callers always receive a structured outcome per device.
type Result struct {
	DeviceID string `json:"device_id"`
	Command  Command `json:"command"`

	Success bool `json:"success"`

	// Transport actually used (or last attempted on failure).
	// Empty when no transport attempt was made at all.
	Transport device.Transport `json:"transport,omitempty"`

	// FallbackUsed is true when the succeeding transport was not the
	// first in the resolved order.
	FallbackUsed bool `json:"fallback_used"`

	Message string `json:"message"`

	Duration    time.Duration `json:"duration"`
	CompletedAt time.Time     `json:"completed_at"`
}

// BatchResult aggregates a fan-out. Results holds exactly one entry
// per requested device ID, in request order.
type BatchResult struct {
	Results      []Result `json:"results"`
	SuccessCount int      `json:"success_count"`
	Total        int      `json:"total"`
}
