package device

import "time"

// Device represents a controllable display wired to one matrix output.
// This matches the database schema in migrations/20260815_120000_initial_schema.up.sql.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`

	// Brand identifier used to resolve a timing profile.
	// Unknown brands resolve to the "Generic" profile.
	Brand string `json:"brand"`

	// MatrixOutput is the crosspoint output number this display is wired to.
	MatrixOutput int `json:"matrix_output"`

	// Transports declares which control paths the display supports.
	Transports []Transport `json:"transports"`

	// Preferred selects the transport tried first. PreferAuto defers
	// to the brand profile's preferred-method hint.
	Preferred Preference `json:"preferred"`

	// IR hub assignment. HubID is nil when the display has no IR path.
	HubID   *string `json:"hub_id,omitempty"`
	HubPort int     `json:"hub_port,omitempty"`

	// Non-authoritative caches, updated only on definitive command outcomes.
	PowerState PowerState `json:"power_state"`
	LastResult *string    `json:"last_result,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Copy creates an independent copy of the Device.
// The transports slice is cloned so modifications to the copy do not
// affect the original. This is essential for cache isolation.
func (d *Device) Copy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d

	if d.Transports != nil {
		cpy.Transports = make([]Transport, len(d.Transports))
		copy(cpy.Transports, d.Transports)
	}

	// Pointer fields (*string) don't need deep copy because strings
	// are immutable in Go

	return &cpy
}

// SupportsTransport reports whether the device declares support for t.
func (d *Device) SupportsTransport(t Transport) bool {
	for _, have := range d.Transports {
		if have == t {
			return true
		}
	}
	return false
}

// Transport identifies a physical control path to a display.
type Transport string

// Transport constants.
const (
	TransportCEC Transport = "cec"
	TransportIR  Transport = "ir"
)

// AllTransports returns all valid transport values.
func AllTransports() []Transport {
	return []Transport{TransportCEC, TransportIR}
}

// Preference selects which transport a dispatch tries first.
type Preference string

// Preference constants.
const (
	PreferCEC  Preference = "cec"
	PreferIR   Preference = "ir"
	PreferAuto Preference = "auto"
)

// AllPreferences returns all valid preference values.
func AllPreferences() []Preference {
	return []Preference{PreferCEC, PreferIR, PreferAuto}
}

// PowerState is the last-known power state of a display.
// It is a cache, never a guarantee; displays can be toggled by
// physical remotes the engine never sees.
type PowerState string

// PowerState constants.
const (
	PowerOn      PowerState = "on"
	PowerOff     PowerState = "off"
	PowerUnknown PowerState = "unknown"
)
