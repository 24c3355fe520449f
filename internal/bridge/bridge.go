package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/venstar-bridge/internal/coordinator"
	"github.com/nerrad567/venstar-bridge/internal/infrastructure/config"
	infomqtt "github.com/nerrad567/venstar-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/venstar-bridge/internal/venstar"
)

// commandTimeout bounds the HTTP round trips for one command.
const commandTimeout = 5 * time.Second

// Bridge orchestrates the thermostat fleet: it runs one coordinator per
// configured device, publishes entity state to MQTT, and executes commands
// received from the platform core.
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	cfg    *config.Config
	mqtt   MQTTClient
	health *HealthReporter

	recorder StateRecorder    // optional state history persistence
	tsdb     TimeSeriesWriter // optional time-series export
	auditor  CommandAuditor   // optional command audit trail

	devices map[string]*Device

	// published caches the last state JSON per topic for change detection.
	published   map[string]string
	publishedMu sync.Mutex

	// availability caches the last published availability per device.
	availability   map[string]bool
	availabilityMu sync.Mutex

	// Operational counters.
	pollsTotal     atomic.Uint64
	pollsFailed    atomic.Uint64
	commandsTotal  atomic.Uint64
	commandsFailed atomic.Uint64

	// Shutdown coordination.
	done      chan struct{}
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   Logger
	loggerMu sync.RWMutex
}

// Device pairs one thermostat's client with its coordinator.
type Device struct {
	cfg    config.ThermostatConfig
	client *venstar.Client
	coord  *coordinator.Coordinator
}

// ID returns the device identifier.
func (d *Device) ID() string { return d.cfg.ID }

// Connected reports whether the device passed its last poll cycle.
func (d *Device) Connected() bool { return d.coord.Connected() }

// Client exposes the underlying thermostat client (read-only use).
func (d *Device) Client() *venstar.Client { return d.client }

// Config returns the device configuration.
func (d *Device) Config() config.ThermostatConfig { return d.cfg }

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

// StateRecorder persists entity state observations.
// This interface is satisfied by *history.Store (via adapter in main.go).
// It is optional - if nil, the bridge operates without history.
type StateRecorder interface {
	// RecordState stores one entity state observation.
	RecordState(ctx context.Context, deviceID, entity string, state map[string]any, observedAt time.Time) error
}

// TimeSeriesWriter exports numeric readings to a time-series database.
// It is optional - if nil, the bridge operates without export.
type TimeSeriesWriter interface {
	// WriteClimate records the climate snapshot for one device.
	WriteClimate(deviceID string, info venstar.Info, connected bool)

	// WriteReading records one sensor reading.
	WriteReading(deviceID string, reading SensorReading)
}

// CommandRecord describes one executed command for the audit trail.
type CommandRecord struct {
	CommandID string
	DeviceID  string
	Command   string
	Params    map[string]any
	Status    string // "accepted" or "failed"
	ErrorCode string
	Message   string
}

// CommandAuditor persists an audit trail of executed commands.
// It is optional - if nil, commands are not recorded.
type CommandAuditor interface {
	RecordCommand(ctx context.Context, rec CommandRecord) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Options holds configuration for creating a bridge.
type Options struct {
	// Config is the loaded bridge configuration.
	Config *config.Config

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// Version is the bridge software version, reported in health messages.
	Version string

	// Logger is optional structured logger.
	Logger Logger

	// Recorder is optional state history persistence.
	Recorder StateRecorder

	// TimeSeries is optional time-series export.
	TimeSeries TimeSeriesWriter

	// Auditor is optional command audit trail persistence.
	Auditor CommandAuditor
}

// New creates a bridge instance with one coordinator per configured
// thermostat. Call Start() to begin operation.
func New(opts Options) (*Bridge, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("MQTT client is required")
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		cfg:          opts.Config,
		mqtt:         opts.MQTTClient,
		recorder:     opts.Recorder,
		tsdb:         opts.TimeSeries,
		auditor:      opts.Auditor,
		devices:      make(map[string]*Device),
		published:    make(map[string]string),
		availability: make(map[string]bool),
		done:         make(chan struct{}),
		ctx:          ctx,
		ctxCancel:    ctxCancel,
		logger:       opts.Logger,
	}

	for _, tc := range opts.Config.Thermostats {
		client := venstar.New(tc.BaseURL(), venstar.Options{
			Username: tc.Username,
			Password: tc.Password,
			PIN:      tc.PIN,
			Timeout:  tc.TimeoutDuration(),
		})

		coord, err := coordinator.New(coordinator.Options{
			DeviceID: tc.ID,
			Client:   client,
			Interval: tc.ScanIntervalDuration(),
			Timeout:  tc.TimeoutDuration(),
			Sensors:  tc.Sensors,
			Runtimes: tc.Runtimes,
			Alerts:   tc.Alerts,
			OnUpdate: b.handleUpdate,
			Logger:   opts.Logger,
		})
		if err != nil {
			ctxCancel()
			return nil, fmt.Errorf("coordinator for %s: %w", tc.ID, err)
		}

		b.devices[tc.ID] = &Device{cfg: tc, client: client, coord: coord}
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.Config.Bridge.ID,
		Version:   opts.Version,
		Interval:  opts.Config.GetHealthInterval(),
		Publisher: opts.MQTTClient,
		Source:    b,
	})
	if opts.Logger != nil {
		b.health.SetLogger(opts.Logger)
	}

	return b, nil
}

// Start begins bridge operation: subscribes to command topics, starts all
// coordinators, and begins health reporting.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	commandTopic := infomqtt.Topics{}.AllCommands()
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	for _, dev := range b.devices {
		dev.coord.Start(ctx)
	}

	b.health.Start(ctx)

	b.logInfo("bridge started",
		"bridge_id", b.cfg.Bridge.ID,
		"devices", len(b.devices))

	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		close(b.done)
		b.ctxCancel()

		for _, dev := range b.devices {
			dev.coord.Stop()
		}

		// Publishes a final "stopping" status.
		b.health.Stop()

		b.logInfo("bridge stopped")
	})
}

// Devices returns the managed devices keyed by id.
func (b *Bridge) Devices() map[string]*Device {
	out := make(map[string]*Device, len(b.devices))
	for id, dev := range b.devices {
		out[id] = dev
	}
	return out
}

// DevicesManaged returns the number of configured thermostats.
func (b *Bridge) DevicesManaged() int {
	return len(b.devices)
}

// DevicesConnected returns how many thermostats passed their last poll.
func (b *Bridge) DevicesConnected() int {
	connected := 0
	for _, dev := range b.devices {
		if dev.coord.Connected() {
			connected++
		}
	}
	return connected
}

// Statistics returns the current operational counters.
func (b *Bridge) Statistics() BridgeStatistics {
	return BridgeStatistics{
		PollsTotal:     b.pollsTotal.Load(),
		PollsFailed:    b.pollsFailed.Load(),
		CommandsTotal:  b.commandsTotal.Load(),
		CommandsFailed: b.commandsFailed.Load(),
	}
}

// handleUpdate is the coordinator sink: called after every poll cycle.
func (b *Bridge) handleUpdate(deviceID string, connected bool) {
	dev, ok := b.devices[deviceID]
	if !ok {
		return
	}

	b.pollsTotal.Add(1)
	if !connected {
		b.pollsFailed.Add(1)
	}

	b.publishAvailability(dev, connected)

	if !connected {
		return
	}

	info := dev.client.Info()
	if info == nil {
		return
	}

	b.publishClimate(dev, *info)

	if dev.cfg.Sensors {
		for _, reading := range ReadingsFromSensors(dev.client.Sensors(), info.TempUnits) {
			b.publishReading(dev, reading)
		}
	}

	if dev.cfg.Runtimes {
		if rt := dev.client.LatestRuntime(); rt != nil {
			for _, reading := range ReadingsFromRuntime(*rt) {
				b.publishReading(dev, reading)
			}
		}
	}

	if dev.cfg.Alerts {
		for _, alert := range dev.client.Alerts() {
			b.publishAlert(dev, alert)
		}
	}

	if b.tsdb != nil {
		b.tsdb.WriteClimate(deviceID, *info, connected)
	}
}

// publishAvailability publishes the per-device availability topic on
// transitions (and on the first cycle).
func (b *Bridge) publishAvailability(dev *Device, connected bool) {
	b.availabilityMu.Lock()
	last, seen := b.availability[dev.cfg.ID]
	b.availabilityMu.Unlock()
	if seen && last == connected {
		return
	}

	payload := "offline"
	if connected {
		payload = "online"
	}

	topic := infomqtt.Topics{}.Availability(dev.cfg.ID)
	if err := b.mqtt.Publish(topic, []byte(payload), 1, true); err != nil {
		// Not cached, so the next cycle retries the publish.
		b.logError("failed to publish availability", err)
		return
	}

	b.availabilityMu.Lock()
	b.availability[dev.cfg.ID] = connected
	b.availabilityMu.Unlock()

	b.logInfo("availability changed", "device_id", dev.cfg.ID, "available", connected)
}

// publishClimate publishes the climate entity state, skipping unchanged
// snapshots, and records the observation.
func (b *Bridge) publishClimate(dev *Device, info venstar.Info) {
	state := BuildClimateState(info, dev.cfg.Humidifier)

	topic := infomqtt.Topics{}.ClimateState(dev.cfg.ID)
	if !b.publishState(dev, topic, state) {
		return
	}

	b.recordState(dev, "climate", state)
}

// publishReading publishes one sensor reading, skipping unchanged values,
// and records the observation.
func (b *Bridge) publishReading(dev *Device, reading SensorReading) {
	state := BuildSensorState(reading)

	topic := infomqtt.Topics{}.SensorState(dev.cfg.ID, reading.Slug)
	if !b.publishState(dev, topic, state) {
		return
	}

	b.recordState(dev, "sensor/"+reading.Slug, state)

	if b.tsdb != nil {
		b.tsdb.WriteReading(dev.cfg.ID, reading)
	}
}

// publishAlert publishes one alert binary sensor state and records the
// transition.
func (b *Bridge) publishAlert(dev *Device, alert venstar.Alert) {
	slug := Slugify(alert.Name)
	if slug == "" {
		return
	}

	topic := infomqtt.Topics{}.AlertState(dev.cfg.ID, slug)
	state := BuildAlertState(alert)
	if !b.publishState(dev, topic, state) {
		return
	}

	b.recordState(dev, "alert/"+slug, state)
}

// recordState persists one entity observation, if a recorder is configured.
func (b *Bridge) recordState(dev *Device, entity string, state map[string]any) {
	if b.recorder == nil {
		return
	}
	if err := b.recorder.RecordState(b.ctx, dev.cfg.ID, entity, state, time.Now().UTC()); err != nil {
		b.logDebug("history write skipped",
			"device_id", dev.cfg.ID, "entity", entity, "reason", err.Error())
	}
}

// publishState publishes a retained state message if the state differs
// from the last publish on this topic. Returns true when published.
func (b *Bridge) publishState(dev *Device, topic string, state map[string]any) bool {
	// Map keys marshal in sorted order, so identical states produce
	// identical JSON.
	stateJSON, err := json.Marshal(state)
	if err != nil {
		b.logError("failed to marshal state", err)
		return false
	}

	b.publishedMu.Lock()
	unchanged := b.published[topic] == string(stateJSON)
	b.publishedMu.Unlock()
	if unchanged {
		return false
	}

	msg := NewStateMessage(dev.cfg.ID, dev.cfg.Host, state)
	payload, err := json.Marshal(msg)
	if err != nil {
		b.logError("failed to marshal state message", err)
		return false
	}

	if err := b.mqtt.Publish(topic, payload, byte(b.cfg.MQTT.QoS), true); err != nil {
		// Cache stays stale so the next cycle retries the publish.
		b.logError("failed to publish state", err)
		return false
	}

	b.publishedMu.Lock()
	b.published[topic] = string(stateJSON)
	b.publishedMu.Unlock()

	return true
}

// handleMQTTMessage routes incoming command messages.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	deviceID := infomqtt.DeviceIDFromCommandTopic(topic)
	if deviceID == "" {
		b.logError("invalid command topic", fmt.Errorf("topic: %s", topic))
		return
	}

	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logError("failed to parse command", err)
		return
	}
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	if cmd.DeviceID == "" {
		cmd.DeviceID = deviceID
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", cmd.DeviceID,
		"command", cmd.Command)

	b.commandsTotal.Add(1)

	dev, ok := b.devices[cmd.DeviceID]
	if !ok {
		b.commandsFailed.Add(1)
		b.publishAckError(cmd, "", ErrCodeNotConfigured,
			fmt.Sprintf("device %s not configured", cmd.DeviceID))
		return
	}

	if err := b.executeCommand(dev, cmd); err != nil {
		b.commandsFailed.Add(1)
		// Error ack already sent by executeCommand.
		return
	}

	b.publishAck(cmd, dev.cfg.Host, AckAccepted)
	b.auditCommand(cmd, "accepted", "", "")

	// Re-poll promptly so the published state reflects the command.
	dev.coord.Refresh()
}

// auditCommand records one command outcome, if an auditor is configured.
func (b *Bridge) auditCommand(cmd CommandMessage, status, code, message string) {
	if b.auditor == nil {
		return
	}

	err := b.auditor.RecordCommand(b.ctx, CommandRecord{
		CommandID: cmd.ID,
		DeviceID:  cmd.DeviceID,
		Command:   cmd.Command,
		Params:    cmd.Parameters,
		Status:    status,
		ErrorCode: code,
		Message:   message,
	})
	if err != nil {
		b.logDebug("command audit write skipped", "device_id", cmd.DeviceID, "reason", err.Error())
	}
}

// executeCommand dispatches and executes a command against the device.
func (b *Bridge) executeCommand(dev *Device, cmd CommandMessage) error {
	ctx, cancel := context.WithTimeout(b.ctx, commandTimeout)
	defer cancel()

	var err error
	switch cmd.Command {
	case "set_hvac_mode":
		err = b.executeSetHVACMode(ctx, dev, cmd)
	case "set_temperature":
		err = b.executeSetTemperature(ctx, dev, cmd)
	case "set_fan_mode":
		err = b.executeSetFanMode(ctx, dev, cmd)
	case "set_preset_mode":
		err = b.executeSetPresetMode(ctx, dev, cmd)
	case "set_humidity":
		err = b.executeSetHumidity(ctx, dev, cmd)
	default:
		err = fmt.Errorf("unknown command: %s", cmd.Command)
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidCommand, err.Error())
	}

	return err
}

// executeSetHVACMode handles {"mode": "heat"|"cool"|"auto"|"off"}.
func (b *Bridge) executeSetHVACMode(ctx context.Context, dev *Device, cmd CommandMessage) error {
	modeStr, ok := stringParam(cmd.Parameters, "mode")
	if !ok {
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, "missing 'mode' parameter")
		return fmt.Errorf("missing mode parameter")
	}

	mode, err := HVACModeToDevice(modeStr)
	if err != nil {
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, err.Error())
		return err
	}

	if err := dev.client.SetMode(ctx, mode); err != nil {
		b.publishDeviceError(cmd, dev, err)
		return err
	}
	return nil
}

// executeSetTemperature handles setpoint changes. Accepts "temperature"
// for heat/cool, "target_low"/"target_high" for auto, and an optional
// "mode" to switch before setting. The device always receives both
// setpoints as a pair.
func (b *Bridge) executeSetTemperature(ctx context.Context, dev *Device, cmd CommandMessage) error {
	info := dev.client.Info()
	if info == nil {
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeDeviceUnreachable, "no state polled yet")
		return fmt.Errorf("no state polled yet")
	}

	mode := info.Mode
	if modeStr, ok := stringParam(cmd.Parameters, "mode"); ok {
		requested, err := HVACModeToDevice(modeStr)
		if err != nil {
			b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, err.Error())
			return err
		}
		if requested != mode {
			if err := dev.client.SetMode(ctx, requested); err != nil {
				b.publishDeviceError(cmd, dev, err)
				return err
			}
			mode = requested
		}
	}

	var heatTemp, coolTemp float64
	switch mode {
	case venstar.ModeHeat:
		temp, ok := floatParam(cmd.Parameters, "temperature")
		if !ok {
			b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, "missing 'temperature' parameter")
			return fmt.Errorf("missing temperature parameter")
		}
		heatTemp, coolTemp = temp, info.CoolTemp
	case venstar.ModeCool:
		temp, ok := floatParam(cmd.Parameters, "temperature")
		if !ok {
			b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, "missing 'temperature' parameter")
			return fmt.Errorf("missing temperature parameter")
		}
		heatTemp, coolTemp = info.HeatTemp, temp
	case venstar.ModeAuto:
		low, okLow := floatParam(cmd.Parameters, "target_low")
		high, okHigh := floatParam(cmd.Parameters, "target_high")
		if !okLow || !okHigh {
			b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters,
				"auto mode requires 'target_low' and 'target_high'")
			return fmt.Errorf("missing auto setpoints")
		}
		heatTemp, coolTemp = low, high
	default:
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters,
			"current mode does not support target temperature")
		return fmt.Errorf("mode %d does not support setpoints", mode)
	}

	if err := dev.client.SetSetpoints(ctx, heatTemp, coolTemp); err != nil {
		b.publishDeviceError(cmd, dev, err)
		return err
	}
	return nil
}

// executeSetFanMode handles {"fan": "on"|"auto"}.
func (b *Bridge) executeSetFanMode(ctx context.Context, dev *Device, cmd CommandMessage) error {
	fanStr, ok := stringParam(cmd.Parameters, "fan")
	if !ok {
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, "missing 'fan' parameter")
		return fmt.Errorf("missing fan parameter")
	}

	fan := venstar.FanAuto
	switch fanStr {
	case FanModeOn:
		fan = venstar.FanOn
	case FanModeAuto:
		fan = venstar.FanAuto
	default:
		err := fmt.Errorf("unknown fan mode: %q", fanStr)
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, err.Error())
		return err
	}

	if err := dev.client.SetFan(ctx, fan); err != nil {
		b.publishDeviceError(cmd, dev, err)
		return err
	}
	return nil
}

// executeSetPresetMode handles {"preset": "none"|"away"|"temperature"}.
func (b *Bridge) executeSetPresetMode(ctx context.Context, dev *Device, cmd CommandMessage) error {
	preset, ok := stringParam(cmd.Parameters, "preset")
	if !ok {
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, "missing 'preset' parameter")
		return fmt.Errorf("missing preset parameter")
	}

	var err error
	switch preset {
	case PresetAway:
		err = dev.client.SetAway(ctx, true)
	case PresetTemperature:
		if err = dev.client.SetAway(ctx, false); err == nil {
			err = dev.client.SetSchedule(ctx, 0)
		}
	case PresetNone:
		if err = dev.client.SetAway(ctx, false); err == nil {
			err = dev.client.SetSchedule(ctx, 1)
		}
	default:
		err = fmt.Errorf("unknown preset: %q", preset)
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, err.Error())
		return err
	}

	if err != nil {
		b.publishDeviceError(cmd, dev, err)
		return err
	}
	return nil
}

// executeSetHumidity handles {"humidity": n}. Rejected unless the device
// is configured with a humidifier.
func (b *Bridge) executeSetHumidity(ctx context.Context, dev *Device, cmd CommandMessage) error {
	if !dev.cfg.Humidifier {
		err := fmt.Errorf("device %s has no humidifier configured", dev.cfg.ID)
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeNotConfigured, err.Error())
		return err
	}

	humidity, ok := floatParam(cmd.Parameters, "humidity")
	if !ok {
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, "missing 'humidity' parameter")
		return fmt.Errorf("missing humidity parameter")
	}
	if humidity < 0 || humidity > 60 {
		err := fmt.Errorf("'humidity' must be 0-60, got %.0f", humidity)
		b.publishAckError(cmd, dev.cfg.Host, ErrCodeInvalidParameters, err.Error())
		return err
	}

	if err := dev.client.SetHumSetpoint(ctx, int(humidity)); err != nil {
		b.publishDeviceError(cmd, dev, err)
		return err
	}
	return nil
}

// publishDeviceError maps a device client error to an ack error code.
func (b *Bridge) publishDeviceError(cmd CommandMessage, dev *Device, err error) {
	code := ErrCodeDeviceUnreachable
	switch {
	case errors.Is(err, venstar.ErrCommandRejected):
		code = ErrCodeDeviceRejected
	case errors.Is(err, venstar.ErrSetpointDelta),
		errors.Is(err, venstar.ErrInvalidMode),
		errors.Is(err, venstar.ErrInvalidFan),
		errors.Is(err, venstar.ErrNoHumidifier):
		code = ErrCodeInvalidParameters
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	}

	b.publishAckError(cmd, dev.cfg.Host, code, err.Error())
}

// publishAck publishes a command acknowledgment.
func (b *Bridge) publishAck(cmd CommandMessage, address string, status AckStatus) {
	ack := NewAckMessage(cmd, status, address)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}

	topic := infomqtt.Topics{}.Ack(cmd.DeviceID)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// publishAckError publishes a failed command acknowledgment.
func (b *Bridge) publishAckError(cmd CommandMessage, address, code, message string) {
	ack := NewAckError(cmd, address, code, message)

	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack error", err)
		return
	}

	topic := infomqtt.Topics{}.Ack(cmd.DeviceID)
	if err := b.mqtt.Publish(topic, payload, 1, false); err != nil {
		b.logError("failed to publish ack error", err)
	}

	b.auditCommand(cmd, "failed", code, message)

	b.logError("command failed",
		fmt.Errorf("code=%s message=%s", code, message))
}

// stringParam extracts a string parameter from a command.
func stringParam(params map[string]any, key string) (string, bool) {
	v, ok := params[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// floatParam extracts a numeric parameter from a command.
// JSON numbers decode as float64.
func floatParam(params map[string]any, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	if b.health != nil {
		b.health.SetLogger(logger)
	}
}

func (b *Bridge) getLogger() Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
