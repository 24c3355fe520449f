package bridge

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector exposes the bridge's fleet state as Prometheus metrics.
// It implements prometheus.Collector and reads the latest polled state on
// every scrape, so no background updating is required.
type MetricsCollector struct {
	bridge *Bridge

	connected          *prometheus.GaugeVec
	currentTemperature *prometheus.GaugeVec
	targetHeat         *prometheus.GaugeVec
	targetCool         *prometheus.GaugeVec
	humidity           *prometheus.GaugeVec
	hvacMode           *prometheus.GaugeVec
	hvacState          *prometheus.GaugeVec
	sensorValue        *prometheus.GaugeVec
	alertActive        *prometheus.GaugeVec

	pollsTotal     *prometheus.Desc
	pollsFailed    *prometheus.Desc
	commandsTotal  *prometheus.Desc
	commandsFailed *prometheus.Desc
}

// NewMetricsCollector creates a collector reading from the given bridge.
// Register it with a prometheus.Registerer to expose the metrics.
func NewMetricsCollector(b *Bridge) *MetricsCollector {
	deviceLabels := []string{"device_id"}

	return &MetricsCollector{
		bridge: b,

		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_device_connected",
			Help: "Whether the thermostat passed its last poll cycle (1 = connected).",
		}, deviceLabels),
		currentTemperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_current_temperature",
			Help: "Space temperature reported by the thermostat, in its configured unit.",
		}, deviceLabels),
		targetHeat: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_target_heat_temperature",
			Help: "Heat-to setpoint.",
		}, deviceLabels),
		targetCool: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_target_cool_temperature",
			Help: "Cool-to setpoint.",
		}, deviceLabels),
		humidity: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_current_humidity",
			Help: "Indoor relative humidity percentage, when reported.",
		}, deviceLabels),
		hvacMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_hvac_mode",
			Help: "Configured HVAC mode (0=off, 1=heat, 2=cool, 3=auto).",
		}, deviceLabels),
		hvacState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_hvac_state",
			Help: "Equipment state (0=idle, 1=heating, 2=cooling, 3=lockout, 4=error).",
		}, deviceLabels),
		sensorValue: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_sensor_value",
			Help: "Latest reading from an attached or wireless sensor.",
		}, []string{"device_id", "sensor", "kind"}),
		alertActive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "venstarbridge_alert_active",
			Help: "Whether a thermostat alert is active (1 = active).",
		}, []string{"device_id", "alert"}),

		pollsTotal: prometheus.NewDesc(
			"venstarbridge_polls_total",
			"Total poll cycles run across all devices.", nil, nil),
		pollsFailed: prometheus.NewDesc(
			"venstarbridge_polls_failed_total",
			"Poll cycles that failed.", nil, nil),
		commandsTotal: prometheus.NewDesc(
			"venstarbridge_commands_total",
			"Commands received from the platform core.", nil, nil),
		commandsFailed: prometheus.NewDesc(
			"venstarbridge_commands_failed_total",
			"Commands that failed to execute.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	c.connected.Describe(ch)
	c.currentTemperature.Describe(ch)
	c.targetHeat.Describe(ch)
	c.targetCool.Describe(ch)
	c.humidity.Describe(ch)
	c.hvacMode.Describe(ch)
	c.hvacState.Describe(ch)
	c.sensorValue.Describe(ch)
	c.alertActive.Describe(ch)
	ch <- c.pollsTotal
	ch <- c.pollsFailed
	ch <- c.commandsTotal
	ch <- c.commandsFailed
}

// Collect implements prometheus.Collector.
func (c *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	c.connected.Reset()
	c.currentTemperature.Reset()
	c.targetHeat.Reset()
	c.targetCool.Reset()
	c.humidity.Reset()
	c.hvacMode.Reset()
	c.hvacState.Reset()
	c.sensorValue.Reset()
	c.alertActive.Reset()

	for id, dev := range c.bridge.Devices() {
		c.connected.WithLabelValues(id).Set(boolToFloat(dev.Connected()))
		c.collectDevice(id, dev)
	}

	c.connected.Collect(ch)
	c.currentTemperature.Collect(ch)
	c.targetHeat.Collect(ch)
	c.targetCool.Collect(ch)
	c.humidity.Collect(ch)
	c.hvacMode.Collect(ch)
	c.hvacState.Collect(ch)
	c.sensorValue.Collect(ch)
	c.alertActive.Collect(ch)

	stats := c.bridge.Statistics()
	ch <- prometheus.MustNewConstMetric(c.pollsTotal,
		prometheus.CounterValue, float64(stats.PollsTotal))
	ch <- prometheus.MustNewConstMetric(c.pollsFailed,
		prometheus.CounterValue, float64(stats.PollsFailed))
	ch <- prometheus.MustNewConstMetric(c.commandsTotal,
		prometheus.CounterValue, float64(stats.CommandsTotal))
	ch <- prometheus.MustNewConstMetric(c.commandsFailed,
		prometheus.CounterValue, float64(stats.CommandsFailed))
}

// collectDevice fills the per-device gauges from the latest polled state.
func (c *MetricsCollector) collectDevice(id string, dev *Device) {
	info := dev.Client().Info()
	if info == nil {
		return
	}

	c.currentTemperature.WithLabelValues(id).Set(info.SpaceTemp)
	c.targetHeat.WithLabelValues(id).Set(info.HeatTemp)
	c.targetCool.WithLabelValues(id).Set(info.CoolTemp)
	c.hvacMode.WithLabelValues(id).Set(float64(info.Mode))
	c.hvacState.WithLabelValues(id).Set(float64(info.State))
	if info.Humidity != nil {
		c.humidity.WithLabelValues(id).Set(float64(*info.Humidity))
	}

	if dev.Config().Sensors {
		for _, r := range ReadingsFromSensors(dev.Client().Sensors(), info.TempUnits) {
			c.sensorValue.WithLabelValues(id, r.Sensor, r.Kind).Set(r.Value)
		}
	}

	if dev.Config().Runtimes {
		if rt := dev.Client().LatestRuntime(); rt != nil {
			for _, r := range ReadingsFromRuntime(*rt) {
				c.sensorValue.WithLabelValues(id, r.Sensor, r.Kind).Set(r.Value)
			}
		}
	}

	if dev.Config().Alerts {
		for _, a := range dev.Client().Alerts() {
			c.alertActive.WithLabelValues(id, a.Name).Set(boolToFloat(a.Active))
		}
	}
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
