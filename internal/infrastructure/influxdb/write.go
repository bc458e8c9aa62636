package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteCommandResult records one dispatch outcome.
//
// The write is non-blocking; points are batched and sent
// asynchronously.
//
// Parameters:
//   - deviceID: the display the command targeted
//   - command: canonical command name (e.g. "power_on")
//   - transport: transport used, or last attempted on failure
//   - success: whether the command reached the display
//   - fallbackUsed: whether the alternate transport completed it
//   - duration: wall time of the full dispatch, including pacing
func (c *Client) WriteCommandResult(deviceID, command, transport string, success, fallbackUsed bool, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"command_results",
		map[string]string{
			"device_id": deviceID,
			"command":   command,
			"transport": transport,
		},
		map[string]interface{}{
			"success":       success,
			"fallback_used": fallbackUsed,
			"duration_ms":   duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteBatchSummary records the outcome of one room-wide fan-out.
func (c *Client) WriteBatchSummary(command string, successCount, total int, duration time.Duration) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"batch_summaries",
		map[string]string{
			"command": command,
		},
		map[string]interface{}{
			"success_count": successCount,
			"total":         total,
			"duration_ms":   duration.Milliseconds(),
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteRouteChange records a crosspoint switch.
func (c *Client) WriteRouteChange(input, output int) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"matrix_routes",
		map[string]string{
			"output": strconv.Itoa(output),
		},
		map[string]interface{}{
			"input": input,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteHubStatus records an IR hub reachability transition.
func (c *Client) WriteHubStatus(hubID, status string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"hub_status",
		map[string]string{
			"hub_id": hubID,
		},
		map[string]interface{}{
			"online": status == "online",
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g. replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
