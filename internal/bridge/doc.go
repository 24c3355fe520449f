// Package bridge orchestrates Venstar thermostats onto the platform MQTT
// bus.
//
// One Bridge manages the configured fleet: it runs a polling coordinator
// per thermostat, translates polled device state into climate, sensor, and
// alert entity payloads, and executes platform commands against the
// device's local HTTP API.
//
// # State Flow
//
// Each coordinator cycle ends in an update callback. The bridge publishes
// per-device availability on transitions, then (when the cycle succeeded)
// the climate snapshot and any enabled sensor, runtime, and alert states.
// State topics are retained and deduplicated: a payload identical to the
// last one published on a topic is skipped, so subscribers only see
// changes.
//
// # Command Flow
//
// Commands arrive on graylogic/command/venstar/{device_id} and are executed
// synchronously against the thermostat. The acknowledgment on the matching
// ack topic reports the device's actual answer: "accepted" only after the
// HTTP call succeeded, "failed" or "timeout" otherwise with an error code.
// A successful command triggers an immediate re-poll so the retained state
// catches up with the change.
//
// Supported commands: set_hvac_mode, set_temperature, set_fan_mode,
// set_preset_mode, set_humidity.
//
// # Health
//
// The HealthReporter publishes a retained fleet summary on
// graylogic/health/venstar: healthy when every thermostat is reachable,
// degraded when only some are (or the broker link is impaired), unhealthy
// when none are.
package bridge
