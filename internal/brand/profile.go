package brand

import "time"

// Profile holds per-manufacturer timing and capability data.
// Profiles are data, not behaviour: the control engine consults them
// through pure lookups and never branches on brand names directly.
type Profile struct {
	// Brand is the manufacturer identifier, e.g. "Samsung".
	Brand string `json:"brand"`

	// Timing delays in milliseconds.
	PowerOnDelayMs     int `json:"power_on_delay_ms"`
	PowerOffDelayMs    int `json:"power_off_delay_ms"`
	VolumeStepDelayMs  int `json:"volume_step_delay_ms"`
	InputSwitchDelayMs int `json:"input_switch_delay_ms"`

	// Capability flags.
	SupportsCECWake   bool `json:"supports_cec_wake"`
	SupportsCECVolume bool `json:"supports_cec_volume"`

	// PreferredMethod hints which transport to try first when a device
	// is configured as "auto".
	PreferredMethod Method `json:"preferred_method"`

	// Quirks is an informational list of known oddities.
	// It is surfaced to operators and never parsed.
	Quirks []string `json:"quirks"`
}

// Method is a brand's preferred control method hint.
type Method string

// Method constants. Hybrid means "prefer CEC, fall back to IR".
const (
	MethodCEC    Method = "cec"
	MethodIR     Method = "ir"
	MethodHybrid Method = "hybrid"
)

// PowerOnDelay returns the power-on settle time as a Duration.
func (p *Profile) PowerOnDelay() time.Duration {
	return time.Duration(p.PowerOnDelayMs) * time.Millisecond
}

// PowerOffDelay returns the power-off settle time as a Duration.
func (p *Profile) PowerOffDelay() time.Duration {
	return time.Duration(p.PowerOffDelayMs) * time.Millisecond
}

// VolumeStepDelay returns the volume pacing interval as a Duration.
func (p *Profile) VolumeStepDelay() time.Duration {
	return time.Duration(p.VolumeStepDelayMs) * time.Millisecond
}

// InputSwitchDelay returns the input-switch settle time as a Duration.
func (p *Profile) InputSwitchDelay() time.Duration {
	return time.Duration(p.InputSwitchDelayMs) * time.Millisecond
}

// GenericBrand is the brand identifier every unknown brand resolves to.
const GenericBrand = "Generic"

// genericProfile is the built-in fallback. It exists in code as well as
// in the seeded database row so that Resolve can never fail, even if
// the row is removed out-of-band.
func genericProfile() *Profile {
	return &Profile{
		Brand:              GenericBrand,
		PowerOnDelayMs:     3000,
		PowerOffDelayMs:    1500,
		VolumeStepDelayMs:  150,
		InputSwitchDelayMs: 2000,
		SupportsCECWake:    true,
		SupportsCECVolume:  true,
		PreferredMethod:    MethodHybrid,
		Quirks:             []string{},
	}
}
