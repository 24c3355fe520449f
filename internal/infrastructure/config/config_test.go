package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	content := `
bridge:
  id: "venstar-bridge"
thermostats:
  - id: "hallway"
    host: "192.168.1.40"
    scan_interval: 10
    timeout: 5
    sensors: true
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Bridge.ID != "venstar-bridge" {
		t.Errorf("Bridge.ID = %q, want %q", cfg.Bridge.ID, "venstar-bridge")
	}

	if len(cfg.Thermostats) != 1 {
		t.Fatalf("len(Thermostats) = %d, want 1", len(cfg.Thermostats))
	}

	therm := cfg.Thermostats[0]
	if therm.ID != "hallway" {
		t.Errorf("Thermostats[0].ID = %q, want %q", therm.ID, "hallway")
	}
	if therm.Host != "192.168.1.40" {
		t.Errorf("Thermostats[0].Host = %q, want %q", therm.Host, "192.168.1.40")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "invalid: [yaml: content"))
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_NoThermostats(t *testing.T) {
	content := `
bridge:
  id: "venstar-bridge"
database:
  path: "/tmp/test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected error for empty thermostat list, got nil")
	}
	if !strings.Contains(err.Error(), "at least one thermostat") {
		t.Errorf("error = %v, want thermostat validation failure", err)
	}
}

func TestLoad_TimeoutExceedsScanInterval(t *testing.T) {
	content := `
thermostats:
  - id: "hallway"
    host: "192.168.1.40"
    scan_interval: 5
    timeout: 30
database:
  path: "/tmp/test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected error for timeout > scan_interval, got nil")
	}
	if !strings.Contains(err.Error(), "timeout must not exceed scan_interval") {
		t.Errorf("error = %v, want timeout validation failure", err)
	}
}

func TestLoad_ThermostatDefaults(t *testing.T) {
	content := `
thermostats:
  - host: "192.168.1.40"
database:
  path: "/tmp/test.db"
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	therm := cfg.Thermostats[0]
	if therm.ScanInterval != defaultScanInterval {
		t.Errorf("ScanInterval = %d, want %d", therm.ScanInterval, defaultScanInterval)
	}
	if therm.Timeout != defaultPollTimeout {
		t.Errorf("Timeout = %d, want %d", therm.Timeout, defaultPollTimeout)
	}
	if therm.ID != "192-168-1-40" {
		t.Errorf("derived ID = %q, want %q", therm.ID, "192-168-1-40")
	}
}

func TestLoad_DuplicateThermostatIDs(t *testing.T) {
	content := `
thermostats:
  - id: "hallway"
    host: "192.168.1.40"
  - id: "hallway"
    host: "192.168.1.41"
database:
  path: "/tmp/test.db"
`
	_, err := Load(writeConfig(t, content))
	if err == nil {
		t.Fatal("Load() expected error for duplicate ids, got nil")
	}
	if !strings.Contains(err.Error(), "duplicate thermostat id") {
		t.Errorf("error = %v, want duplicate id failure", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	content := `
thermostats:
  - id: "hallway"
    host: "192.168.1.40"
database:
  path: "/tmp/test.db"
mqtt:
  broker:
    host: "configured-host"
`
	t.Setenv("VENSTARBRIDGE_MQTT_HOST", "env-host")
	t.Setenv("VENSTARBRIDGE_DATABASE_PATH", "/tmp/env.db")

	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.MQTT.Broker.Host != "env-host" {
		t.Errorf("MQTT.Broker.Host = %q, want env override %q", cfg.MQTT.Broker.Host, "env-host")
	}
	if cfg.Database.Path != "/tmp/env.db" {
		t.Errorf("Database.Path = %q, want env override %q", cfg.Database.Path, "/tmp/env.db")
	}
}

func TestDeriveDeviceID(t *testing.T) {
	tests := []struct {
		name string
		mac  string
		host string
		port int
		want string
	}{
		{"mac with port", "00:23:A7:3A:B2:11", "192.168.1.40", 8080, "0023a73ab211-8080"},
		{"mac without port", "00:23:A7:3A:B2:11", "192.168.1.40", 0, "0023a73ab211"},
		{"host fallback", "", "192.168.1.40", 0, "192-168-1-40"},
		{"host with port", "", "thermostat.local", 8080, "thermostat-local-8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveDeviceID(tt.mac, tt.host, tt.port)
			if got != tt.want {
				t.Errorf("DeriveDeviceID(%q, %q, %d) = %q, want %q", tt.mac, tt.host, tt.port, got, tt.want)
			}
		})
	}
}

func TestThermostatConfig_BaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  ThermostatConfig
		want string
	}{
		{"plain http", ThermostatConfig{Host: "192.168.1.40"}, "http://192.168.1.40"},
		{"http with port", ThermostatConfig{Host: "192.168.1.40", Port: 8080}, "http://192.168.1.40:8080"},
		{"https", ThermostatConfig{Host: "192.168.1.40", SSL: true}, "https://192.168.1.40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.BaseURL(); got != tt.want {
				t.Errorf("BaseURL() = %q, want %q", got, tt.want)
			}
		})
	}
}
