package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/venstar-bridge/internal/infrastructure/config"
	infomqtt "github.com/nerrad567/venstar-bridge/internal/infrastructure/mqtt"
)

// mockMQTT records publishes and captures the command handler.
type mockMQTT struct {
	mu         sync.Mutex
	published  []publishedMsg
	handler    func(topic string, payload []byte)
	connected  bool
	publishErr error
}

type publishedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

func (m *mockMQTT) Publish(topic string, payload []byte, qos byte, retained bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.publishErr != nil {
		return m.publishErr
	}
	m.published = append(m.published, publishedMsg{topic, payload, qos, retained})
	return nil
}

func (m *mockMQTT) setPublishErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishErr = err
}

func (m *mockMQTT) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = handler
	return nil
}

func (m *mockMQTT) IsConnected() bool { return m.connected }

// on returns all publishes on a topic.
func (m *mockMQTT) on(topic string) []publishedMsg {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []publishedMsg
	for _, p := range m.published {
		if p.topic == topic {
			out = append(out, p)
		}
	}
	return out
}

// lastAck decodes the most recent ack published for a device.
func (m *mockMQTT) lastAck(t *testing.T, deviceID string) AckMessage {
	t.Helper()
	msgs := m.on(infomqtt.Topics{}.Ack(deviceID))
	if len(msgs) == 0 {
		t.Fatal("no ack published")
	}
	var ack AckMessage
	if err := json.Unmarshal(msgs[len(msgs)-1].payload, &ack); err != nil {
		t.Fatalf("unmarshal ack: %v", err)
	}
	return ack
}

// fakeDevice is a minimal thermostat HTTP endpoint for command tests.
type fakeDevice struct {
	mu          sync.Mutex
	info        map[string]any
	lastControl url.Values
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		info: map[string]any{
			"name": "Hallway", "mode": 1, "state": 0, "fan": 0, "fanstate": 0,
			"tempunits": 0, "schedule": 1, "away": 0,
			"spacetemp": 71.0, "heattemp": 70.0, "cooltemp": 76.0,
			"setpointdelta": 2.0,
		},
	}
}

func (f *fakeDevice) server(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"api_ver": 7, "type": "residential", "model": "ColorTouch",
		})
	})
	mux.HandleFunc("/query/info", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(f.info)
	})
	mux.HandleFunc("/control", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.lastControl = r.PostForm
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/settings", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	})
	mux.HandleFunc("/query/sensors", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"sensors": []map[string]any{
				{"name": "Outdoor", "temp": 60.5},
			},
		})
	})
	mux.HandleFunc("/query/alerts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"alerts": []map[string]any{
				{"name": "Air Filter", "active": true},
			},
		})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (f *fakeDevice) control() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastControl
}

// newTestBridge builds a bridge with one device pointed at the fake server.
func newTestBridge(t *testing.T, serverURL string, humidifier bool) (*Bridge, *mockMQTT) {
	t.Helper()

	u, err := url.Parse(serverURL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse server port: %v", err)
	}

	cfg := &config.Config{
		Bridge: config.BridgeConfig{ID: "venstar-bridge-test"},
		Thermostats: []config.ThermostatConfig{{
			ID:           "hallway",
			Host:         u.Hostname(),
			Port:         port,
			ScanInterval: 60,
			Timeout:      5,
			Humidifier:   humidifier,
		}},
		MQTT: config.MQTTConfig{QoS: 1},
	}

	mock := &mockMQTT{connected: true}
	b, err := New(Options{Config: cfg, MQTTClient: mock, Version: "test"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(b.Stop)
	return b, mock
}

// poll logs in and pulls info so command handlers have cached state.
func poll(t *testing.T, b *Bridge) {
	t.Helper()
	dev := b.Devices()["hallway"]
	ctx := context.Background()
	if err := dev.Client().Login(ctx); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := dev.Client().UpdateInfo(ctx); err != nil {
		t.Fatalf("UpdateInfo() error = %v", err)
	}
}

func command(deviceID, name string, params map[string]any) (string, []byte) {
	cmd := CommandMessage{
		ID:         "cmd-1",
		DeviceID:   deviceID,
		Command:    name,
		Parameters: params,
		Source:     "api",
	}
	payload, _ := json.Marshal(&cmd)
	return infomqtt.Topics{}.Command(deviceID), payload
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Options{MQTTClient: &mockMQTT{}}); err == nil {
		t.Error("New() without config expected error")
	}
	if _, err := New(Options{Config: &config.Config{}}); err == nil {
		t.Error("New() without MQTT client expected error")
	}
}

func TestHandleCommand_UnknownDevice(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)

	topic, payload := command("basement", "set_hvac_mode", map[string]any{"mode": "heat"})
	b.handleMQTTMessage(topic, payload)

	ack := mock.lastAck(t, "basement")
	if ack.Status != AckFailed {
		t.Errorf("ack status = %q, want failed", ack.Status)
	}
	if ack.Error == nil || ack.Error.Code != ErrCodeNotConfigured {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeNotConfigured)
	}
}

func TestHandleCommand_UnknownCommand(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)

	topic, payload := command("hallway", "self_destruct", nil)
	b.handleMQTTMessage(topic, payload)

	ack := mock.lastAck(t, "hallway")
	if ack.Error == nil || ack.Error.Code != ErrCodeInvalidCommand {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeInvalidCommand)
	}
}

func TestHandleCommand_MissingParameters(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)

	topic, payload := command("hallway", "set_hvac_mode", nil)
	b.handleMQTTMessage(topic, payload)

	ack := mock.lastAck(t, "hallway")
	if ack.Error == nil || ack.Error.Code != ErrCodeInvalidParameters {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeInvalidParameters)
	}
}

func TestHandleCommand_SetHVACMode(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	topic, payload := command("hallway", "set_hvac_mode", map[string]any{"mode": "cool"})
	b.handleMQTTMessage(topic, payload)

	ack := mock.lastAck(t, "hallway")
	if ack.Status != AckAccepted {
		t.Fatalf("ack status = %q, error = %+v", ack.Status, ack.Error)
	}
	if ack.CommandID != "cmd-1" {
		t.Errorf("ack command_id = %q, want cmd-1", ack.CommandID)
	}

	form := fake.control()
	if form.Get("mode") != "2" {
		t.Errorf("control mode = %q, want 2", form.Get("mode"))
	}
	// Setpoints always ride along as a pair.
	if form.Get("heattemp") != "70" || form.Get("cooltemp") != "76" {
		t.Errorf("control setpoints = %q/%q, want 70/76",
			form.Get("heattemp"), form.Get("cooltemp"))
	}
}

func TestHandleCommand_SetTemperatureHeat(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	topic, payload := command("hallway", "set_temperature", map[string]any{"temperature": 72.0})
	b.handleMQTTMessage(topic, payload)

	if ack := mock.lastAck(t, "hallway"); ack.Status != AckAccepted {
		t.Fatalf("ack status = %q, error = %+v", ack.Status, ack.Error)
	}

	form := fake.control()
	if form.Get("heattemp") != "72" || form.Get("cooltemp") != "76" {
		t.Errorf("control setpoints = %q/%q, want 72/76",
			form.Get("heattemp"), form.Get("cooltemp"))
	}
}

func TestHandleCommand_SetTemperatureAuto(t *testing.T) {
	fake := newFakeDevice()
	fake.info["mode"] = 3
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	topic, payload := command("hallway", "set_temperature",
		map[string]any{"target_low": 68.0, "target_high": 75.0})
	b.handleMQTTMessage(topic, payload)

	if ack := mock.lastAck(t, "hallway"); ack.Status != AckAccepted {
		t.Fatalf("ack status = %q, error = %+v", ack.Status, ack.Error)
	}

	form := fake.control()
	if form.Get("heattemp") != "68" || form.Get("cooltemp") != "75" {
		t.Errorf("control setpoints = %q/%q, want 68/75",
			form.Get("heattemp"), form.Get("cooltemp"))
	}
}

func TestHandleCommand_SetTemperatureWithModeSwitch(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	// Device is in heat; command asks for cool at 74.
	topic, payload := command("hallway", "set_temperature",
		map[string]any{"mode": "cool", "temperature": 74.0})
	b.handleMQTTMessage(topic, payload)

	if ack := mock.lastAck(t, "hallway"); ack.Status != AckAccepted {
		t.Fatalf("ack status = %q, error = %+v", ack.Status, ack.Error)
	}

	form := fake.control()
	if form.Get("mode") != "2" {
		t.Errorf("control mode = %q, want 2", form.Get("mode"))
	}
	if form.Get("cooltemp") != "74" {
		t.Errorf("control cooltemp = %q, want 74", form.Get("cooltemp"))
	}
}

func TestHandleCommand_SetTemperatureAutoDeltaViolation(t *testing.T) {
	fake := newFakeDevice()
	fake.info["mode"] = 3
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	// Delta is 2; 73/74 violates it. Rejected locally, device untouched.
	topic, payload := command("hallway", "set_temperature",
		map[string]any{"target_low": 73.0, "target_high": 74.0})
	b.handleMQTTMessage(topic, payload)

	ack := mock.lastAck(t, "hallway")
	if ack.Status != AckFailed {
		t.Fatalf("ack status = %q, want failed", ack.Status)
	}
	if ack.Error == nil || ack.Error.Code != ErrCodeInvalidParameters {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeInvalidParameters)
	}
	if fake.control() != nil {
		t.Error("control posted despite delta violation")
	}
}

func TestHandleCommand_SetFanMode(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	topic, payload := command("hallway", "set_fan_mode", map[string]any{"fan": "on"})
	b.handleMQTTMessage(topic, payload)

	if ack := mock.lastAck(t, "hallway"); ack.Status != AckAccepted {
		t.Fatalf("ack status = %q, error = %+v", ack.Status, ack.Error)
	}
	if fake.control().Get("fan") != "1" {
		t.Errorf("control fan = %q, want 1", fake.control().Get("fan"))
	}
}

func TestHandleCommand_SetPresetMode(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	topic, payload := command("hallway", "set_preset_mode", map[string]any{"preset": "away"})
	b.handleMQTTMessage(topic, payload)

	if ack := mock.lastAck(t, "hallway"); ack.Status != AckAccepted {
		t.Fatalf("ack status = %q, error = %+v", ack.Status, ack.Error)
	}
}

func TestHandleCommand_SetHumidityWithoutHumidifier(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	topic, payload := command("hallway", "set_humidity", map[string]any{"humidity": 40.0})
	b.handleMQTTMessage(topic, payload)

	ack := mock.lastAck(t, "hallway")
	if ack.Error == nil || ack.Error.Code != ErrCodeNotConfigured {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeNotConfigured)
	}
}

func TestHandleCommand_SetHumidityOutOfRange(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, true)
	poll(t, b)

	topic, payload := command("hallway", "set_humidity", map[string]any{"humidity": 75.0})
	b.handleMQTTMessage(topic, payload)

	ack := mock.lastAck(t, "hallway")
	if ack.Error == nil || ack.Error.Code != ErrCodeInvalidParameters {
		t.Errorf("ack error = %+v, want code %s", ack.Error, ErrCodeInvalidParameters)
	}
}

func TestHandleCommand_InvalidJSON(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)

	b.handleMQTTMessage(infomqtt.Topics{}.Command("hallway"), []byte("{not json"))

	if msgs := mock.on(infomqtt.Topics{}.Ack("hallway")); len(msgs) != 0 {
		t.Errorf("acks published for malformed command: %d", len(msgs))
	}
}

func TestHandleUpdate_PublishesAndDeduplicates(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	b.handleUpdate("hallway", true)
	b.handleUpdate("hallway", true) // identical state, should not republish

	availTopic := infomqtt.Topics{}.Availability("hallway")
	avail := mock.on(availTopic)
	if len(avail) != 1 {
		t.Fatalf("availability publishes = %d, want 1", len(avail))
	}
	if string(avail[0].payload) != "online" || !avail[0].retained {
		t.Errorf("availability = %q retained=%v, want online retained",
			avail[0].payload, avail[0].retained)
	}

	stateTopic := infomqtt.Topics{}.ClimateState("hallway")
	states := mock.on(stateTopic)
	if len(states) != 1 {
		t.Fatalf("climate state publishes = %d, want 1", len(states))
	}

	var msg StateMessage
	if err := json.Unmarshal(states[0].payload, &msg); err != nil {
		t.Fatalf("unmarshal state: %v", err)
	}
	if msg.DeviceID != "hallway" || msg.Protocol != "venstar" {
		t.Errorf("state message = %+v", msg)
	}
	if msg.State["hvac_mode"] != "heat" {
		t.Errorf("hvac_mode = %v, want heat", msg.State["hvac_mode"])
	}

	// Connection loss flips availability but publishes no state.
	b.handleUpdate("hallway", false)
	avail = mock.on(availTopic)
	if len(avail) != 2 || string(avail[1].payload) != "offline" {
		t.Fatalf("availability after failure = %v", avail)
	}
	if states := mock.on(stateTopic); len(states) != 1 {
		t.Errorf("state published during failed cycle")
	}
}

func TestStatistics_CountsCommands(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	topic, payload := command("hallway", "set_fan_mode", map[string]any{"fan": "on"})
	b.handleMQTTMessage(topic, payload)

	topic, payload = command("hallway", "bogus", nil)
	b.handleMQTTMessage(topic, payload)

	stats := b.Statistics()
	if stats.CommandsTotal != 2 {
		t.Errorf("CommandsTotal = %d, want 2", stats.CommandsTotal)
	}
	if stats.CommandsFailed != 1 {
		t.Errorf("CommandsFailed = %d, want 1", stats.CommandsFailed)
	}
	if acks := mock.on(infomqtt.Topics{}.Ack("hallway")); len(acks) != 2 {
		t.Errorf("acks published = %d, want 2", len(acks))
	}
}

func TestHandleUpdate_RepublishesAfterBrokerFailure(t *testing.T) {
	fake := newFakeDevice()
	b, mock := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	// Broker down: nothing goes out and nothing may be cached as sent.
	mock.setPublishErr(errors.New("broker down"))
	b.handleUpdate("hallway", true)

	availTopic := infomqtt.Topics{}.Availability("hallway")
	stateTopic := infomqtt.Topics{}.ClimateState("hallway")
	if len(mock.on(availTopic)) != 0 || len(mock.on(stateTopic)) != 0 {
		t.Fatal("messages recorded while broker was down")
	}

	// Broker back, state unchanged: the next cycle must still publish.
	mock.setPublishErr(nil)
	b.handleUpdate("hallway", true)

	avail := mock.on(availTopic)
	if len(avail) != 1 || string(avail[0].payload) != "online" {
		t.Errorf("availability after recovery = %v, want one online", avail)
	}
	if states := mock.on(stateTopic); len(states) != 1 {
		t.Errorf("climate state publishes after recovery = %d, want 1", len(states))
	}
}

// fakeRecorder captures state observations in memory.
type fakeRecorder struct {
	mu       sync.Mutex
	entities []string
}

func (f *fakeRecorder) RecordState(_ context.Context, deviceID, entity string, state map[string]any, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities = append(f.entities, entity)
	return nil
}

func (f *fakeRecorder) seen() map[string]bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]bool, len(f.entities))
	for _, e := range f.entities {
		out[e] = true
	}
	return out
}

func TestHandleUpdate_RecordsObservations(t *testing.T) {
	fake := newFakeDevice()
	b, _ := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	dev := b.Devices()["hallway"]
	dev.cfg.Sensors = true
	dev.cfg.Alerts = true
	ctx := context.Background()
	if err := dev.Client().UpdateSensors(ctx); err != nil {
		t.Fatalf("UpdateSensors() error = %v", err)
	}
	if err := dev.Client().UpdateAlerts(ctx); err != nil {
		t.Fatalf("UpdateAlerts() error = %v", err)
	}

	rec := &fakeRecorder{}
	b.recorder = rec

	b.handleUpdate("hallway", true)

	seen := rec.seen()
	for _, entity := range []string{"climate", "sensor/outdoor-temperature", "alert/air-filter"} {
		if !seen[entity] {
			t.Errorf("entity %q not recorded; got %v", entity, rec.entities)
		}
	}
}

// recordingAuditor captures command records in memory.
type recordingAuditor struct {
	mu      sync.Mutex
	records []CommandRecord
}

func (r *recordingAuditor) RecordCommand(_ context.Context, rec CommandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func TestAuditCommand_RecordsOutcomes(t *testing.T) {
	fake := newFakeDevice()
	b, _ := newTestBridge(t, fake.server(t).URL, false)
	poll(t, b)

	rec := &recordingAuditor{}
	b.auditor = rec

	topic, payload := command("hallway", "set_fan_mode", map[string]any{"fan": "on"})
	b.handleMQTTMessage(topic, payload)

	topic, payload = command("hallway", "bogus", nil)
	b.handleMQTTMessage(topic, payload)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.records) != 2 {
		t.Fatalf("records = %d, want 2", len(rec.records))
	}

	accepted := rec.records[0]
	if accepted.Status != "accepted" || accepted.Command != "set_fan_mode" {
		t.Errorf("accepted record = %+v", accepted)
	}
	if accepted.Params["fan"] != "on" {
		t.Errorf("params = %v", accepted.Params)
	}

	failed := rec.records[1]
	if failed.Status != "failed" || failed.ErrorCode != ErrCodeInvalidCommand {
		t.Errorf("failed record = %+v", failed)
	}
}
