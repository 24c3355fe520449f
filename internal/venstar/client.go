package venstar

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/icholy/digest"
)

// defaultTimeout bounds each HTTP request when Options.Timeout is zero.
const defaultTimeout = 5 * time.Second

// Options configures a thermostat client.
type Options struct {
	// Username and Password enable HTTP digest authentication.
	// Commercial units require credentials; residential units usually don't.
	Username string
	Password string

	// PIN is the device screen lock PIN, sent with control posts when set.
	PIN string

	// Timeout bounds each HTTP request. Defaults to 5 seconds.
	Timeout time.Duration
}

// Client talks to a single ColorTouch thermostat over its local HTTP API.
//
// Query results are cached on the client; getters return the values from
// the most recent successful Update* call.
type Client struct {
	baseURL string
	pin     string
	http    *http.Client

	mu       sync.RWMutex
	api      *APIInfo
	info     *Info
	sensors  []Sensor
	runtimes []Runtime
	alerts   []Alert
}

// New creates a client for the thermostat at baseURL
// (e.g. "http://192.168.1.40" or "https://192.168.1.40:8080").
func New(baseURL string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	if opts.Username != "" {
		// Commercial units protect the API with HTTP digest auth.
		httpClient.Transport = &digest.Transport{
			Username: opts.Username,
			Password: opts.Password,
		}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		pin:     opts.PIN,
		http:    httpClient,
	}
}

// Login fetches the API root and verifies the device speaks a supported
// firmware API version. It must succeed before any query or control call.
func (c *Client) Login(ctx context.Context) error {
	var api APIInfo
	if err := c.get(ctx, "/", &api); err != nil {
		return err
	}

	if api.APIVer < minAPIVersion {
		return fmt.Errorf("%w: api_ver %d (need >= %d)", ErrUnsupportedAPI, api.APIVer, minAPIVersion)
	}

	c.mu.Lock()
	c.api = &api
	c.mu.Unlock()

	return nil
}

// UpdateInfo polls /query/info and caches the result.
func (c *Client) UpdateInfo(ctx context.Context) error {
	if !c.loggedIn() {
		return ErrNotLoggedIn
	}

	var info Info
	if err := c.get(ctx, "/query/info", &info); err != nil {
		return err
	}

	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()

	return nil
}

// UpdateSensors polls /query/sensors and caches the result.
func (c *Client) UpdateSensors(ctx context.Context) error {
	if !c.loggedIn() {
		return ErrNotLoggedIn
	}

	var resp sensorsResponse
	if err := c.get(ctx, "/query/sensors", &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.sensors = resp.Sensors
	c.mu.Unlock()

	return nil
}

// UpdateRuntimes polls /query/runtimes and caches the result.
func (c *Client) UpdateRuntimes(ctx context.Context) error {
	if !c.loggedIn() {
		return ErrNotLoggedIn
	}

	var resp runtimesResponse
	if err := c.get(ctx, "/query/runtimes", &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.runtimes = resp.Runtimes
	c.mu.Unlock()

	return nil
}

// UpdateAlerts polls /query/alerts and caches the result.
func (c *Client) UpdateAlerts(ctx context.Context) error {
	if !c.loggedIn() {
		return ErrNotLoggedIn
	}

	var resp alertsResponse
	if err := c.get(ctx, "/query/alerts", &resp); err != nil {
		return err
	}

	c.mu.Lock()
	c.alerts = resp.Alerts
	c.mu.Unlock()

	return nil
}

// API returns the negotiated API root info, or nil before Login.
func (c *Client) API() *APIInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return nil
	}
	api := *c.api
	return &api
}

// Info returns a copy of the last polled /query/info, or nil before the
// first successful UpdateInfo.
func (c *Client) Info() *Info {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil {
		return nil
	}
	info := *c.info
	return &info
}

// Name returns the thermostat's configured name.
func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil {
		return ""
	}
	return c.info.Name
}

// Model returns the device model reported at login.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return ""
	}
	return c.api.Model
}

// DeviceType returns the device class reported at login, "residential"
// or "commercial". Both classes share the same query and control surface.
func (c *Client) DeviceType() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.api == nil {
		return ""
	}
	return c.api.Type
}

// Sensors returns a copy of the last polled sensor list.
func (c *Client) Sensors() []Sensor {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Sensor, len(c.sensors))
	copy(out, c.sensors)
	return out
}

// Runtimes returns a copy of the last polled runtime records,
// oldest first as reported by the device.
func (c *Client) Runtimes() []Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Runtime, len(c.runtimes))
	copy(out, c.runtimes)
	return out
}

// LatestRuntime returns the most recent runtime record, or nil when no
// runtimes have been polled.
func (c *Client) LatestRuntime() *Runtime {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.runtimes) == 0 {
		return nil
	}
	rt := c.runtimes[len(c.runtimes)-1]
	return &rt
}

// Alerts returns a copy of the last polled alert list.
func (c *Client) Alerts() []Alert {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Alert, len(c.alerts))
	copy(out, c.alerts)
	return out
}

// loggedIn reports whether Login has completed successfully.
func (c *Client) loggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.api != nil
}

// get performs a GET against the device and decodes the JSON response.
func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrRequestFailed, path, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %w", ErrRequestFailed, path, err)
	}

	return nil
}

// postForm performs a form-encoded POST against the device and checks the
// success/error response contract. The screen PIN is attached when set.
func (c *Client) postForm(ctx context.Context, path string, values url.Values) error {
	if c.pin != "" {
		values.Set("pin", c.pin)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(values.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: POST %s returned %d", ErrRequestFailed, path, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("%w: read %s response: %w", ErrRequestFailed, path, err)
	}

	var result controlResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("%w: decode %s response: %w", ErrRequestFailed, path, err)
	}

	if result.Error || !result.Success {
		reason := result.Reason
		if reason == "" {
			reason = "no reason given"
		}
		return fmt.Errorf("%w: %s", ErrCommandRejected, reason)
	}

	return nil
}
