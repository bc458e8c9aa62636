package bridge

import (
	"time"

	"github.com/barlinq/barlinq-core/internal/control"
	"github.com/barlinq/barlinq-core/internal/device"
	"github.com/barlinq/barlinq-core/internal/irhub"
	"github.com/barlinq/barlinq-core/internal/learning"
	"github.com/barlinq/barlinq-core/internal/matrix"
)

// CommandRequest is the payload accepted on barlinq/display/{id}/set.
type CommandRequest struct {
	// ID correlates the request with its result message. Optional.
	ID string `json:"id,omitempty"`

	// Command is the canonical command name (e.g. "power_on", "mute").
	Command string `json:"command"`

	// Transport forces a single transport ("cec" or "ir") with no
	// fallback. Empty means automatic selection.
	Transport string `json:"transport,omitempty"`

	// Source indicates where the command originated (e.g. "panel",
	// "scheduler"). Informational only.
	Source string `json:"source,omitempty"`
}

// BatchRequest is the payload accepted on barlinq/display/all/set.
type BatchRequest struct {
	// ID correlates the request with its summary message. Optional.
	ID string `json:"id,omitempty"`

	// Command is the canonical command name.
	Command string `json:"command"`

	// Devices lists the target display IDs. Empty means every
	// registered display.
	Devices []string `json:"devices,omitempty"`

	// Sequential dispatches one display at a time with a pause between
	// them instead of fanning out in parallel.
	Sequential bool `json:"sequential,omitempty"`

	// DelayMs overrides the sequential pause, in milliseconds.
	DelayMs int `json:"delay_ms,omitempty"`

	// Transport forces a single transport for every display.
	Transport string `json:"transport,omitempty"`

	Source string `json:"source,omitempty"`
}

// MatrixRequest is the payload accepted on barlinq/matrix/set.
type MatrixRequest struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// ResultMessage reports one dispatch outcome.
// Topic: barlinq/display/{id}/result
type ResultMessage struct {
	ID       string `json:"id,omitempty"`
	DeviceID string `json:"device_id"`
	Command  string `json:"command"`
	Success  bool   `json:"success"`

	// Transport actually used, or last attempted on failure.
	Transport    string `json:"transport,omitempty"`
	FallbackUsed bool   `json:"fallback_used"`

	Message     string    `json:"message"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

func newResultMessage(id string, result control.Result) ResultMessage {
	return ResultMessage{
		ID:           id,
		DeviceID:     result.DeviceID,
		Command:      string(result.Command),
		Success:      result.Success,
		Transport:    string(result.Transport),
		FallbackUsed: result.FallbackUsed,
		Message:      result.Message,
		DurationMs:   result.Duration.Milliseconds(),
		CompletedAt:  result.CompletedAt,
	}
}

// BatchSummaryMessage reports a fan-out outcome.
// Topic: barlinq/display/all/result
type BatchSummaryMessage struct {
	ID           string          `json:"id,omitempty"`
	Command      string          `json:"command"`
	SuccessCount int             `json:"success_count"`
	Total        int             `json:"total"`
	Results      []ResultMessage `json:"results"`
	CompletedAt  time.Time       `json:"completed_at"`
}

func newBatchSummary(id, command string, batch control.BatchResult) BatchSummaryMessage {
	msg := BatchSummaryMessage{
		ID:           id,
		Command:      command,
		SuccessCount: batch.SuccessCount,
		Total:        batch.Total,
		Results:      make([]ResultMessage, 0, len(batch.Results)),
		CompletedAt:  time.Now().UTC(),
	}
	for _, result := range batch.Results {
		msg.Results = append(msg.Results, newResultMessage("", result))
	}
	return msg
}

// StateMessage mirrors a display's cached power state.
// Topic: barlinq/display/{id}/state (retained)
type StateMessage struct {
	DeviceID   string    `json:"device_id"`
	PowerState string    `json:"power_state"`
	LastResult string    `json:"last_result,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func newStateMessage(dev *device.Device) StateMessage {
	msg := StateMessage{
		DeviceID:   dev.ID,
		PowerState: string(dev.PowerState),
		UpdatedAt:  dev.UpdatedAt,
	}
	if dev.LastResult != nil {
		msg.LastResult = *dev.LastResult
	}
	return msg
}

// RouteMessage mirrors one crosspoint route.
// Topic: barlinq/matrix/route/{output} (retained)
type RouteMessage struct {
	Output    int       `json:"output"`
	Input     int       `json:"input"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newRouteMessage(route matrix.Route) RouteMessage {
	return RouteMessage{
		Output:    route.Output,
		Input:     route.Input,
		UpdatedAt: route.UpdatedAt,
	}
}

// LearningRequest is the payload accepted on barlinq/learning/set.
// Action selects the workflow step; the other fields it needs depend
// on the action:
//
//	"add"      — DeviceID, Name, Category
//	"learn"    — CommandID
//	"test"     — CommandID
//	"test_all" — DeviceID
//	"template" — DeviceID, Template
type LearningRequest struct {
	ID     string `json:"id,omitempty"`
	Action string `json:"action"`

	DeviceID  string `json:"device_id,omitempty"`
	CommandID string `json:"command_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Category  string `json:"category,omitempty"`
	Template  string `json:"template,omitempty"`
}

// LearningResultMessage reports a learning action outcome.
// Topic: barlinq/learning/result
type LearningResultMessage struct {
	ID      string `json:"id,omitempty"`
	Action  string `json:"action"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Command carries the affected IR command for "add" and "learn".
	Command *learning.IRCommand `json:"command,omitempty"`

	// Test carries the playback outcome for "test".
	Test *ResultMessage `json:"test,omitempty"`

	// TestReport carries the sweep outcome for "test_all".
	TestReport *learning.TestReport `json:"test_report,omitempty"`

	// TemplateReport carries created/skipped names for "template".
	TemplateReport *learning.TemplateReport `json:"template_report,omitempty"`

	CompletedAt time.Time `json:"completed_at"`
}

// HubStatusMessage mirrors one IR hub's reachability.
// Topic: barlinq/hub/{id}/status (retained)
type HubStatusMessage struct {
	HubID     string     `json:"hub_id"`
	Status    string     `json:"status"`
	LastSeen  *time.Time `json:"last_seen,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

func newHubStatusMessage(hub irhub.Hub) HubStatusMessage {
	return HubStatusMessage{
		HubID:     hub.ID,
		Status:    string(hub.Status),
		LastSeen:  hub.LastSeen,
		Timestamp: time.Now().UTC(),
	}
}
