package mqtt

import "fmt"

// Topic prefixes for the Barlinq message bus.
//
// Display topics use the scheme: barlinq/display/{device_id}/{verb}
const (
	// TopicPrefix is the base for all Barlinq topics.
	TopicPrefix = "barlinq"

	// TopicPrefixDisplay is the base for display control topics.
	TopicPrefixDisplay = "barlinq/display"

	// TopicPrefixMatrix is the base for crosspoint routing topics.
	TopicPrefixMatrix = "barlinq/matrix"

	// TopicPrefixHub is the base for IR hub topics.
	TopicPrefixHub = "barlinq/hub"

	// TopicPrefixLearning is the base for IR learning topics.
	TopicPrefixLearning = "barlinq/learning"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "barlinq/system"
)

// Topics provides builders for Barlinq MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	setTopic := topics.DisplayCommand("tv-12")
//	// Returns: "barlinq/display/tv-12/set"
type Topics struct{}

// =============================================================================
// Display Topics
// =============================================================================

// DisplayCommand returns the inbound command topic for one display.
//
// Example: barlinq/display/tv-12/set
func (Topics) DisplayCommand(deviceID string) string {
	return fmt.Sprintf("%s/%s/set", TopicPrefixDisplay, deviceID)
}

// DisplayResult returns the topic carrying one display's dispatch results.
//
// Example: barlinq/display/tv-12/result
func (Topics) DisplayResult(deviceID string) string {
	return fmt.Sprintf("%s/%s/result", TopicPrefixDisplay, deviceID)
}

// DisplayState returns the retained power-state topic for one display.
//
// Example: barlinq/display/tv-12/state
func (Topics) DisplayState(deviceID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDisplay, deviceID)
}

// BatchCommand returns the inbound topic for room-wide fan-out commands.
//
// Example: barlinq/display/all/set
func (Topics) BatchCommand() string {
	return TopicPrefixDisplay + "/all/set"
}

// BatchResult returns the topic carrying batch summaries.
//
// Example: barlinq/display/all/result
func (Topics) BatchResult() string {
	return TopicPrefixDisplay + "/all/result"
}

// =============================================================================
// Matrix Topics
// =============================================================================

// MatrixCommand returns the inbound crosspoint switch topic.
//
// Example: barlinq/matrix/set
func (Topics) MatrixCommand() string {
	return TopicPrefixMatrix + "/set"
}

// MatrixRoute returns the retained route-state topic for one output.
//
// Example: barlinq/matrix/route/7
func (Topics) MatrixRoute(output int) string {
	return fmt.Sprintf("%s/route/%d", TopicPrefixMatrix, output)
}

// =============================================================================
// Hub Topics
// =============================================================================

// HubStatus returns the retained reachability topic for one IR hub.
//
// Example: barlinq/hub/hub-1/status
func (Topics) HubStatus(hubID string) string {
	return fmt.Sprintf("%s/%s/status", TopicPrefixHub, hubID)
}

// =============================================================================
// Learning Topics
// =============================================================================

// LearningCommand returns the inbound IR learning action topic.
//
// Example: barlinq/learning/set
func (Topics) LearningCommand() string {
	return TopicPrefixLearning + "/set"
}

// LearningResult returns the topic carrying learning action outcomes.
//
// Example: barlinq/learning/result
func (Topics) LearningResult() string {
	return TopicPrefixLearning + "/result"
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the service online/offline status topic.
// Used for LWT and graceful shutdown announcements.
//
// Example: barlinq/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// =============================================================================
// Wildcard Subscriptions
// =============================================================================

// AllDisplayCommands returns a wildcard matching every display's inbound
// command topic, including the batch topic.
//
// Example: barlinq/display/+/set
func (Topics) AllDisplayCommands() string {
	return TopicPrefixDisplay + "/+/set"
}

// AllDisplayStates returns a wildcard matching every display's retained
// state topic.
//
// Example: barlinq/display/+/state
func (Topics) AllDisplayStates() string {
	return TopicPrefixDisplay + "/+/state"
}

// AllHubStatuses returns a wildcard matching every hub's status topic.
//
// Example: barlinq/hub/+/status
func (Topics) AllHubStatuses() string {
	return TopicPrefixHub + "/+/status"
}

// AllTopics returns a wildcard matching every Barlinq topic.
//
// Example: barlinq/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
