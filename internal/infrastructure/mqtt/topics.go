package mqtt

import "fmt"

// Topic layout for the bridge, following the platform's flat scheme:
// graylogic/{category}/{protocol}/{address_or_id}. The protocol segment is
// always "venstar" for this bridge.
const (
	// TopicPrefix is the base for all platform topics.
	TopicPrefix = "graylogic"

	// Protocol is the protocol segment used by this bridge.
	Protocol = "venstar"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.ClimateState("hallway")
//	// Returns: "graylogic/state/venstar/hallway"
type Topics struct{}

// ClimateState returns the topic for a thermostat's climate entity state.
// Retained, so late subscribers converge on the current state.
//
// Example: graylogic/state/venstar/hallway
func (Topics) ClimateState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, Protocol, deviceID)
}

// SensorState returns the topic for one logical sensor reading.
// The slug combines the sensor name and attribute kind.
//
// Example: graylogic/state/venstar/hallway/sensor/outdoor-temperature
func (Topics) SensorState(deviceID, slug string) string {
	return fmt.Sprintf("%s/state/%s/%s/sensor/%s", TopicPrefix, Protocol, deviceID, slug)
}

// AlertState returns the topic for one alert binary sensor.
//
// Example: graylogic/state/venstar/hallway/alert/air-filter
func (Topics) AlertState(deviceID, slug string) string {
	return fmt.Sprintf("%s/state/%s/%s/alert/%s", TopicPrefix, Protocol, deviceID, slug)
}

// Availability returns the per-device availability topic.
// Retained; payload is "online" or "offline".
//
// Example: graylogic/availability/venstar/hallway
func (Topics) Availability(deviceID string) string {
	return fmt.Sprintf("%s/availability/%s/%s", TopicPrefix, Protocol, deviceID)
}

// Command returns the topic for commands to one thermostat.
//
// Example: graylogic/command/venstar/hallway
func (Topics) Command(deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, Protocol, deviceID)
}

// Ack returns the topic for command acknowledgements for one thermostat.
//
// Example: graylogic/ack/venstar/hallway
func (Topics) Ack(deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefix, Protocol, deviceID)
}

// Health returns the bridge health status topic (also the LWT topic).
//
// Example: graylogic/health/venstar
func (Topics) Health() string {
	return fmt.Sprintf("%s/health/%s", TopicPrefix, Protocol)
}

// Discovery returns the topic for discovered-but-unconfigured thermostats.
// Retained per discovered unique id.
//
// Example: graylogic/discovery/venstar/0023a73ab211
func (Topics) Discovery(uniqueID string) string {
	return fmt.Sprintf("%s/discovery/%s/%s", TopicPrefix, Protocol, uniqueID)
}

// AllCommands returns a pattern matching commands for every thermostat
// this bridge manages.
//
// Pattern: graylogic/command/venstar/+
func (Topics) AllCommands() string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefix, Protocol)
}

// DeviceIDFromCommandTopic extracts the device id from a command topic.
// Returns "" if the topic does not match the command layout.
func DeviceIDFromCommandTopic(topic string) string {
	prefix := fmt.Sprintf("%s/command/%s/", TopicPrefix, Protocol)
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	id := topic[len(prefix):]
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return ""
		}
	}
	return id
}
