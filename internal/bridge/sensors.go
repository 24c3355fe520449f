package bridge

import (
	"strings"

	"github.com/nerrad567/venstar-bridge/internal/venstar"
)

// Sensor reading kinds.
const (
	KindTemperature = "temperature"
	KindHumidity    = "humidity"
	KindBattery     = "battery"
	KindRuntime     = "runtime"
)

// SensorReading is one logical reading derived from a device sensor.
// A wireless sensor reporting temperature and battery yields two readings.
type SensorReading struct {
	// Slug identifies the reading in topics, e.g. "outdoor-temperature".
	Slug string

	// Sensor is the device-reported sensor name, e.g. "Outdoor".
	Sensor string

	// Kind is the reading kind (temperature, humidity, battery, runtime).
	Kind string

	// Value is the numeric reading.
	Value float64

	// Unit is the unit symbol ("F", "C", "%", "min").
	Unit string
}

// Slugify lowercases a name and collapses non-alphanumeric runs to single
// hyphens, for use as a topic segment.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ReadingsFromSensors expands the polled sensor list into individual
// readings. Sensors missing a reading kind simply don't produce it.
func ReadingsFromSensors(sensors []venstar.Sensor, tempUnits int) []SensorReading {
	tempUnit := TemperatureUnit(tempUnits)

	var readings []SensorReading
	for _, s := range sensors {
		base := Slugify(s.Name)
		if base == "" {
			continue
		}

		if s.Temp != nil {
			readings = append(readings, SensorReading{
				Slug:   base + "-" + KindTemperature,
				Sensor: s.Name,
				Kind:   KindTemperature,
				Value:  *s.Temp,
				Unit:   tempUnit,
			})
		}
		if s.Hum != nil {
			readings = append(readings, SensorReading{
				Slug:   base + "-" + KindHumidity,
				Sensor: s.Name,
				Kind:   KindHumidity,
				Value:  *s.Hum,
				Unit:   "%",
			})
		}
		if s.Battery != nil {
			readings = append(readings, SensorReading{
				Slug:   base + "-" + KindBattery,
				Sensor: s.Name,
				Kind:   KindBattery,
				Value:  *s.Battery,
				Unit:   "%",
			})
		}
	}
	return readings
}

// ReadingsFromRuntime expands the most recent runtime record into per-stage
// readings (minutes of equipment runtime for the current day).
func ReadingsFromRuntime(rt venstar.Runtime) []SensorReading {
	stages := rt.Stages()
	readings := make([]SensorReading, 0, len(stages))
	for _, stage := range stages {
		readings = append(readings, SensorReading{
			Slug:   "runtime-" + stage.Name,
			Sensor: stage.Name,
			Kind:   KindRuntime,
			Value:  float64(stage.Minutes),
			Unit:   "min",
		})
	}
	return readings
}

// BuildSensorState builds the state payload for one sensor reading.
func BuildSensorState(r SensorReading) map[string]any {
	return map[string]any{
		"sensor": r.Sensor,
		"kind":   r.Kind,
		"value":  r.Value,
		"unit":   r.Unit,
	}
}

// BuildAlertState builds the state payload for one alert binary sensor.
func BuildAlertState(a venstar.Alert) map[string]any {
	return map[string]any{
		"name":   a.Name,
		"active": a.Active,
	}
}
