package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Client is the device access the coordinator needs.
// Implemented by *venstar.Client.
type Client interface {
	// Login negotiates the API root. Called on the first cycle and again
	// after any cycle in which it has not yet succeeded.
	Login(ctx context.Context) error

	// UpdateInfo refreshes /query/info.
	UpdateInfo(ctx context.Context) error

	// UpdateSensors refreshes /query/sensors.
	UpdateSensors(ctx context.Context) error

	// UpdateRuntimes refreshes /query/runtimes.
	UpdateRuntimes(ctx context.Context) error

	// UpdateAlerts refreshes /query/alerts.
	UpdateAlerts(ctx context.Context) error
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// Options configures a Coordinator.
type Options struct {
	// DeviceID identifies the thermostat in sink callbacks and logs.
	DeviceID string

	// Client is the thermostat client to poll.
	Client Client

	// Interval is the time between poll cycles.
	Interval time.Duration

	// Timeout bounds one full poll cycle. Must not exceed Interval.
	Timeout time.Duration

	// Sensors, Runtimes and Alerts enable the optional query endpoints.
	// Disabled endpoints are skipped entirely, not polled-and-ignored.
	Sensors  bool
	Runtimes bool
	Alerts   bool

	// OnUpdate is called after every cycle with the resulting connection
	// state. Called from the poll goroutine; must not block for long.
	OnUpdate func(deviceID string, connected bool)

	// Logger is optional.
	Logger Logger
}

// Coordinator polls one thermostat on a fixed interval.
type Coordinator struct {
	deviceID string
	client   Client
	interval time.Duration
	timeout  time.Duration
	sensors  bool
	runtimes bool
	alerts   bool
	onUpdate func(deviceID string, connected bool)
	logger   Logger

	// loggedIn tracks whether Login has succeeded; only touched from the
	// poll goroutine.
	loggedIn bool

	connected bool
	connMu    sync.RWMutex

	refresh  chan struct{}
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// New creates a coordinator. Call Start to begin polling.
func New(opts Options) (*Coordinator, error) {
	if opts.DeviceID == "" {
		return nil, fmt.Errorf("device id is required")
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if opts.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive")
	}

	timeout := opts.Timeout
	if timeout <= 0 || timeout > opts.Interval {
		timeout = opts.Interval
	}

	return &Coordinator{
		deviceID: opts.DeviceID,
		client:   opts.Client,
		interval: opts.Interval,
		timeout:  timeout,
		sensors:  opts.Sensors,
		runtimes: opts.Runtimes,
		alerts:   opts.Alerts,
		onUpdate: opts.OnUpdate,
		logger:   opts.Logger,
		refresh:  make(chan struct{}, 1),
		done:     make(chan struct{}),
	}, nil
}

// Start begins polling. The first cycle runs immediately.
func (c *Coordinator) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.run(ctx)
}

// Stop halts polling and waits for the in-flight cycle to finish.
// Safe to call multiple times.
func (c *Coordinator) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
}

// Connected returns the device connection state: true only when the most
// recent poll cycle completed fully.
func (c *Coordinator) Connected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected
}

// Refresh requests an immediate poll cycle outside the regular interval,
// typically after a command changed device state. Non-blocking; if a
// refresh is already pending this is a no-op.
func (c *Coordinator) Refresh() {
	select {
	case c.refresh <- struct{}{}:
	default:
	}
}

// run is the poll loop.
func (c *Coordinator) run(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.refresh:
			c.poll(ctx)
		case <-ticker.C:
			c.poll(ctx)
		}
	}
}

// poll runs one cycle: login if needed, then every enabled query endpoint.
// The connection state flips to true only when the whole cycle succeeds.
func (c *Coordinator) poll(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	err := c.runCycle(pollCtx)

	connected := err == nil
	c.setConnected(connected)

	if err != nil {
		c.logWarn("poll cycle failed", "device_id", c.deviceID, "error", err)
	} else {
		c.logDebug("poll cycle complete", "device_id", c.deviceID)
	}

	if c.onUpdate != nil {
		c.onUpdate(c.deviceID, connected)
	}
}

// runCycle performs the endpoint refreshes for one cycle.
func (c *Coordinator) runCycle(ctx context.Context) error {
	if !c.loggedIn {
		if err := c.client.Login(ctx); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		c.loggedIn = true
		c.logInfo("logged in", "device_id", c.deviceID)
	}

	if err := c.client.UpdateInfo(ctx); err != nil {
		return fmt.Errorf("update info: %w", err)
	}

	if c.sensors {
		if err := c.client.UpdateSensors(ctx); err != nil {
			return fmt.Errorf("update sensors: %w", err)
		}
	}

	if c.runtimes {
		if err := c.client.UpdateRuntimes(ctx); err != nil {
			return fmt.Errorf("update runtimes: %w", err)
		}
	}

	if c.alerts {
		if err := c.client.UpdateAlerts(ctx); err != nil {
			return fmt.Errorf("update alerts: %w", err)
		}
	}

	return nil
}

func (c *Coordinator) setConnected(connected bool) {
	c.connMu.Lock()
	c.connected = connected
	c.connMu.Unlock()
}

func (c *Coordinator) logInfo(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Info(msg, keysAndValues...)
	}
}

func (c *Coordinator) logWarn(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, keysAndValues...)
	}
}

func (c *Coordinator) logDebug(msg string, keysAndValues ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keysAndValues...)
	}
}
