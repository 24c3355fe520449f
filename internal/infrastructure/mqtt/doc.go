// Package mqtt provides MQTT client connectivity for the Venstar bridge.
//
// This package manages:
//   - Connection to the platform broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The bridge uses MQTT as its sole link to the automation platform. The
// broker decouples the platform core from this protocol-specific process.
//
//	Platform Core ↔ MQTT Broker ↔ Venstar Bridge ↔ Thermostats (HTTP)
//
// All topics live under the graylogic/ prefix with the protocol segment
// "venstar"; see topics.go for the full layout.
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Performance Characteristics
//
//   - Connection: <1 second to local broker
//   - Publish latency: <10ms for QoS 1 to local broker
//   - Reconnect: Exponential backoff 1s-60s with jitter
//   - Message throughput: Broker-limited (typically 10K+ msg/sec)
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to commands for every managed thermostat
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish retained climate state
//	client.PublishRetained(mqtt.Topics{}.ClimateState("hallway"), stateJSON)
package mqtt
