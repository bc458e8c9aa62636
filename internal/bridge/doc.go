// Package bridge connects the control engine to the MQTT message bus.
//
// The bridge subscribes to inbound command topics, translates JSON
// payloads into arbiter dispatches, and publishes the outcomes back:
//
//   - barlinq/display/{id}/set    → single-display command
//   - barlinq/display/all/set     → room-wide batch command
//   - barlinq/matrix/set          → crosspoint switch request
//   - barlinq/learning/set        → IR learning workflow action
//
// Results go to barlinq/display/{id}/result,
// barlinq/display/all/result, and barlinq/learning/result. Retained topics mirror durable state:
// per-display power state, per-output matrix routes, and per-hub
// reachability.
//
// The bridge owns no control logic. It validates payloads, hands them
// to the arbiter, dispatcher, or router, and reports what they did.
// Commands run on bridge-owned goroutines so a slow display never
// stalls the MQTT client's delivery loop; Stop cancels in-flight
// dispatches and waits for them to drain.
package bridge
