package learning

import "time"

// State is an IR command's position in the learning lifecycle. Only
// Placeholder and Learned are ever persisted: Learning exists while a
// capture session is in flight, and Failed describes one attempt's
// outcome while the stored command remains a Placeholder for retry.
type State string

// State constants.
const (
	StatePlaceholder State = "placeholder"
	StateLearning    State = "learning"
	StateLearned     State = "learned"
	StateFailed      State = "failed"
)

// IRCommand is a learned or pending code owned by one device. Names
// are unique per device, case-insensitively.
type IRCommand struct {
	ID       string `json:"id"`
	DeviceID string `json:"device_id"`

	// Name is the canonical function name, e.g. "power_on".
	Name     string `json:"name"`
	Category string `json:"category"`

	State State `json:"state"`

	// Code is the opaque learned payload; nil while a placeholder.
	Code       *string `json:"code,omitempty"`
	CodeLength int     `json:"code_length"`

	LearnedAt *time.Time `json:"learned_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Learned reports whether the command carries a usable code.
func (c *IRCommand) Learned() bool {
	return c.Code != nil && *c.Code != ""
}
