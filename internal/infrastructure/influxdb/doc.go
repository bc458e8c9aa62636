// Package influxdb provides InfluxDB connectivity for Barlinq Core.
//
// It wraps the official influxdb-client-go v2 library with Barlinq-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles time-series storage for:
//   - Per-dispatch command results (transport, fallback, duration)
//   - Batch fan-out summaries
//   - Crosspoint route changes
//   - IR hub reachability transitions
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "barlinq",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteCommandResult("tv-12", "power_on", "cec", true, false, 1200*time.Millisecond)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are delivered via a
// callback. Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size,
// flush_interval). This keeps high-frequency command telemetry cheap.
package influxdb
