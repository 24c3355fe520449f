package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteClimate writes one climate snapshot for a thermostat.
//
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Thermostat identifier (e.g., "hallway")
//   - fields: Numeric snapshot values (space_temp, heat_temp, cool_temp,
//     mode, state, and so on)
//
// Example:
//
//	client.WriteClimate("hallway", map[string]interface{}{
//	    "space_temp": 71.5, "heat_temp": 70.0, "cool_temp": 76.0,
//	    "mode": 1, "state": 1,
//	})
func (c *Client) WriteClimate(deviceID string, fields map[string]interface{}) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}

	point := write.NewPoint(
		"climate",
		map[string]string{
			"device_id": deviceID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteSensorReading writes one reading from an attached or wireless
// sensor.
//
// Parameters:
//   - deviceID: Thermostat identifier
//   - sensor: Device-reported sensor name (e.g., "Outdoor")
//   - kind: Reading kind (temperature, humidity, battery, runtime)
//   - value: The numeric reading
func (c *Client) WriteSensorReading(deviceID, sensor, kind string, value float64) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"sensor_reading",
		map[string]string{
			"device_id": deviceID,
			"sensor":    sensor,
			"kind":      kind,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteConnectionState records whether a thermostat passed its last poll.
//
// Useful for availability dashboards and alerting on flapping devices.
func (c *Client) WriteConnectionState(deviceID string, connected bool) {
	if !c.IsConnected() {
		return
	}

	value := 0
	if connected {
		value = 1
	}

	point := write.NewPoint(
		"connection",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"connected": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}
