package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Venstar bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Bridge      BridgeConfig       `yaml:"bridge"`
	Thermostats []ThermostatConfig `yaml:"thermostats"`
	MQTT        MQTTConfig         `yaml:"mqtt"`
	Database    DatabaseConfig     `yaml:"database"`
	InfluxDB    InfluxDBConfig     `yaml:"influxdb"`
	API         APIConfig          `yaml:"api"`
	Discovery   DiscoveryConfig    `yaml:"discovery"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// BridgeConfig contains bridge-wide identity settings.
type BridgeConfig struct {
	ID             string `yaml:"id"`
	HealthInterval int    `yaml:"health_interval"`
}

// ThermostatConfig describes one Venstar ColorTouch thermostat to manage.
type ThermostatConfig struct {
	// ID is the platform device identifier. If empty, it is derived from
	// MAC (when discovered) or host and port.
	ID   string `yaml:"id"`
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	SSL  bool   `yaml:"ssl"`

	// Username/Password enable HTTP digest authentication on the local API.
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// PIN is the screen lock code, sent with control requests when set.
	PIN string `yaml:"pin"`

	// ScanInterval is the polling period in seconds.
	ScanInterval int `yaml:"scan_interval"`
	// Timeout is the per-poll HTTP timeout in seconds. Must not exceed ScanInterval.
	Timeout int `yaml:"timeout"`

	// Humidifier exposes humidity control when the thermostat reports one.
	Humidifier bool `yaml:"humidifier"`
	// Sensors exposes remote wireless sensor readings.
	Sensors bool `yaml:"sensors"`
	// Runtimes exposes daily equipment runtime sensors.
	Runtimes bool `yaml:"runtimes"`
	// Alerts exposes thermostat alerts as binary sensors.
	Alerts bool `yaml:"alerts"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// DatabaseConfig contains SQLite database settings for poll/runtime history.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
	// RetentionDays is how long history rows are kept before pruning. 0 disables pruning.
	RetentionDays int `yaml:"retention_days"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// APIConfig contains HTTP status API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// DiscoveryConfig contains SSDP autodiscovery settings.
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval is the period between SSDP searches in seconds.
	Interval int `yaml:"interval"`
	// WaitSeconds is how long each search waits for responses.
	WaitSeconds int `yaml:"wait_seconds"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: VENSTARBRIDGE_SECTION_KEY
// For example: VENSTARBRIDGE_MQTT_HOST, VENSTARBRIDGE_DATABASE_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	// Read and parse YAML file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Fill per-thermostat defaults before validation
	for i := range cfg.Thermostats {
		cfg.Thermostats[i].applyDefaults()
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Per-thermostat defaults, matching the thermostat's own local API behaviour.
const (
	defaultScanInterval = 10
	defaultPollTimeout  = 5
)

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Bridge: BridgeConfig{
			ID:             "venstar-bridge",
			HealthInterval: 30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "venstar-bridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		Database: DatabaseConfig{
			Path:          "./data/venstar-bridge.db",
			WALMode:       true,
			BusyTimeout:   5,
			RetentionDays: 90,
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8093,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Discovery: DiscoveryConfig{
			Enabled:     true,
			Interval:    300,
			WaitSeconds: 3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyDefaults fills zero values on a single thermostat entry.
func (t *ThermostatConfig) applyDefaults() {
	if t.ScanInterval == 0 {
		t.ScanInterval = defaultScanInterval
	}
	if t.Timeout == 0 {
		t.Timeout = defaultPollTimeout
	}
	if t.ID == "" {
		t.ID = DeriveDeviceID("", t.Host, t.Port)
	}
}

// DeriveDeviceID builds a stable device identifier from MAC, host and port.
// MAC wins over host; the port is appended only when non-zero. This mirrors
// how discovered thermostats are identified so that a manually configured
// entry and a discovered one agree.
func DeriveDeviceID(mac, host string, port int) string {
	base := mac
	if base == "" {
		base = host
	}
	base = strings.ToLower(strings.NewReplacer(":", "", ".", "-").Replace(base))
	if port != 0 {
		return fmt.Sprintf("%s-%d", base, port)
	}
	return base
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: VENSTARBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// MQTT
	if v := os.Getenv("VENSTARBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("VENSTARBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("VENSTARBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Database
	if v := os.Getenv("VENSTARBRIDGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// InfluxDB
	if v := os.Getenv("VENSTARBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// API
	if v := os.Getenv("VENSTARBRIDGE_API_HOST"); v != "" {
		cfg.API.Host = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Bridge.ID == "" {
		errs = append(errs, "bridge.id is required")
	}

	if len(c.Thermostats) == 0 {
		errs = append(errs, "at least one thermostat must be configured")
	}

	seen := make(map[string]bool)
	for i, t := range c.Thermostats {
		prefix := fmt.Sprintf("thermostats[%d]", i)
		if t.Host == "" {
			errs = append(errs, prefix+".host is required")
		}
		if t.ScanInterval < 1 {
			errs = append(errs, prefix+".scan_interval must be at least 1 second")
		}
		if t.Timeout < 1 {
			errs = append(errs, prefix+".timeout must be at least 1 second")
		}
		// A timeout longer than the interval would let poll cycles overlap.
		if t.Timeout > t.ScanInterval {
			errs = append(errs, prefix+".timeout must not exceed scan_interval")
		}
		if t.Port < 0 || t.Port > 65535 {
			errs = append(errs, prefix+".port must be between 0 and 65535")
		}
		if seen[t.ID] {
			errs = append(errs, prefix+": duplicate thermostat id "+t.ID)
		}
		seen[t.ID] = true
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Database validation
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ScanIntervalDuration returns the thermostat polling period as a Duration.
func (t ThermostatConfig) ScanIntervalDuration() time.Duration {
	return time.Duration(t.ScanInterval) * time.Second
}

// TimeoutDuration returns the per-poll timeout as a Duration.
func (t ThermostatConfig) TimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// BaseURL returns the thermostat's local API base URL.
func (t ThermostatConfig) BaseURL() string {
	scheme := "http"
	if t.SSL {
		scheme = "https"
	}
	if t.Port != 0 {
		return fmt.Sprintf("%s://%s:%d", scheme, t.Host, t.Port)
	}
	return fmt.Sprintf("%s://%s", scheme, t.Host)
}

// GetHealthInterval returns the bridge health reporting period as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	if c.Bridge.HealthInterval <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Bridge.HealthInterval) * time.Second
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// DiscoveryInterval returns the SSDP search period as a Duration.
func (c *Config) DiscoveryInterval() time.Duration {
	if c.Discovery.Interval <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.Discovery.Interval) * time.Second
}

// RetentionDuration returns the history retention window as a Duration.
func (c DatabaseConfig) RetentionDuration() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
