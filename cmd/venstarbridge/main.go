// Venstar Bridge - ColorTouch thermostats on the platform MQTT bus.
//
// This is the main entry point for the bridge. It polls each configured
// thermostat over its local HTTP API, publishes climate/sensor/alert
// entity state to MQTT, executes platform commands, and optionally
// records state history, exports time-series data, and announces
// unconfigured thermostats found via SSDP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	_ "github.com/nerrad567/venstar-bridge/migrations"

	"github.com/nerrad567/venstar-bridge/internal/api"
	"github.com/nerrad567/venstar-bridge/internal/audit"
	"github.com/nerrad567/venstar-bridge/internal/bridge"
	"github.com/nerrad567/venstar-bridge/internal/discovery"
	"github.com/nerrad567/venstar-bridge/internal/history"
	"github.com/nerrad567/venstar-bridge/internal/infrastructure/config"
	"github.com/nerrad567/venstar-bridge/internal/infrastructure/database"
	"github.com/nerrad567/venstar-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/venstar-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/venstar-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/venstar-bridge/internal/venstar"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting venstar bridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath, "thermostats", len(cfg.Thermostats))

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database for state history
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	if applied, pending, statusErr := db.MigrationStatus(ctx); statusErr == nil {
		log.Info("database migrations complete",
			"applied", len(applied),
			"pending", len(pending),
		)
	} else {
		log.Warn("migration status unavailable", "error", statusErr)
	}

	// State history store with retention pruning
	store := history.NewStore(db.DB, cfg.Database.RetentionDuration())
	store.SetLogger(log)
	store.StartPruner(ctx)
	defer store.Stop()

	// Command audit trail shares the state database
	auditRepo := audit.NewSQLiteRepository(db.DB)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var tsWriter bridge.TimeSeriesWriter
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		tsWriter = &influxWriter{client: influxClient}
	} else {
		log.Info("InfluxDB disabled")
	}

	// Create and start the bridge
	b, err := bridge.New(bridge.Options{
		Config:     cfg,
		MQTTClient: &mqttBridgeAdapter{client: mqttClient},
		Version:    version,
		Logger:     log,
		Recorder:   store,
		TimeSeries: tsWriter,
		Auditor:    &commandAuditor{repo: auditRepo},
	})
	if err != nil {
		return fmt.Errorf("creating bridge: %w", err)
	}

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("starting bridge: %w", err)
	}
	defer func() {
		log.Info("stopping bridge")
		b.Stop()
	}()
	log.Info("bridge started", "devices", b.DevicesManaged())

	// Prometheus metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(bridge.NewMetricsCollector(b))

	// Status API (optional)
	if cfg.API.Enabled {
		apiServer, err := api.New(api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Bridge:  b,
			History: store,
			Audit:   auditRepo,
			Metrics: registry,
			Version: version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := apiServer.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("API server disabled")
	}

	// SSDP discovery (optional)
	if cfg.Discovery.Enabled {
		scanner, err := discovery.NewScanner(discovery.Options{
			Interval:   cfg.DiscoveryInterval(),
			Publisher:  mqttClient,
			Configured: cfg.Thermostats,
			Logger:     log,
		})
		if err != nil {
			return fmt.Errorf("creating discovery scanner: %w", err)
		}
		scanner.Start(ctx)
		defer scanner.Stop()
		log.Info("discovery scanner started", "interval", cfg.DiscoveryInterval())
	} else {
		log.Info("discovery disabled")
	}

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: discovery, API,
	// bridge, InfluxDB, MQTT, history pruner, database.

	log.Info("venstar bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses VENSTARBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("VENSTARBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}

// mqttBridgeAdapter adapts the infrastructure MQTT client to the bridge's
// MQTTClient interface. The difference is the Subscribe handler signature:
// - Infrastructure mqtt: func(topic, payload []byte) error
// - Bridge expects: func(topic, payload []byte)
type mqttBridgeAdapter struct {
	client *mqtt.Client
}

// Publish implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Publish(topic string, payload []byte, qos byte, retained bool) error {
	return a.client.Publish(topic, payload, qos, retained)
}

// Subscribe implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error {
	// Wrap the void handler to return nil error (bridge handlers don't return errors)
	return a.client.Subscribe(topic, qos, func(t string, p []byte) error {
		handler(t, p)
		return nil
	})
}

// IsConnected implements bridge.MQTTClient.
func (a *mqttBridgeAdapter) IsConnected() bool {
	return a.client.IsConnected()
}

// commandAuditor adapts the audit repository to the bridge's CommandAuditor
// interface.
type commandAuditor struct {
	repo *audit.SQLiteRepository
}

// RecordCommand implements bridge.CommandAuditor.
func (a *commandAuditor) RecordCommand(ctx context.Context, rec bridge.CommandRecord) error {
	return a.repo.Create(ctx, &audit.CommandLog{
		CommandID: rec.CommandID,
		DeviceID:  rec.DeviceID,
		Command:   rec.Command,
		Params:    rec.Params,
		Status:    rec.Status,
		ErrorCode: rec.ErrorCode,
		Message:   rec.Message,
	})
}

// influxWriter adapts the InfluxDB client to the bridge's TimeSeriesWriter
// interface.
type influxWriter struct {
	client *influxdb.Client
}

// WriteClimate implements bridge.TimeSeriesWriter.
func (w *influxWriter) WriteClimate(deviceID string, info venstar.Info, connected bool) {
	fields := map[string]interface{}{
		"space_temp": info.SpaceTemp,
		"heat_temp":  info.HeatTemp,
		"cool_temp":  info.CoolTemp,
		"mode":       info.Mode,
		"state":      info.State,
		"fan_state":  info.FanState,
	}
	if info.Humidity != nil {
		fields["humidity"] = float64(*info.Humidity)
	}

	w.client.WriteClimate(deviceID, fields)
	w.client.WriteConnectionState(deviceID, connected)
}

// WriteReading implements bridge.TimeSeriesWriter.
func (w *influxWriter) WriteReading(deviceID string, reading bridge.SensorReading) {
	w.client.WriteSensorReading(deviceID, reading.Sensor, reading.Kind, reading.Value)
}
