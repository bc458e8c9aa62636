// Package mqtt provides MQTT client connectivity for Barlinq Core.
//
// This package manages:
//   - Connection to Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Barlinq uses MQTT as the control plane's message bus: panels and
// other front-ends publish display commands and matrix switches, and
// the engine publishes results, retained display states, and hub
// reachability.
//
//	Front-ends ↔ MQTT Broker ↔ Barlinq Core ↔ CEC gateway / IR hubs / matrix
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all display commands
//	err = client.Subscribe(mqtt.Topics{}.AllDisplayCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a command
//	topic := mqtt.Topics{}.DisplayCommand("tv-12")
//	client.Publish(topic, []byte(`{"command":"power_on"}`), 1, false)
package mqtt
