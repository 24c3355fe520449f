package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/koron/go-ssdp"

	"github.com/nerrad567/venstar-bridge/internal/infrastructure/config"
	infomqtt "github.com/nerrad567/venstar-bridge/internal/infrastructure/mqtt"
)

// searchTarget is the SSDP search target ColorTouch thermostats answer to.
const searchTarget = "colortouch:ecp"

// defaultWait is how long one search waits for responses, in seconds.
const defaultWait = 3

// Thermostat is one discovered device.
type Thermostat struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	SSL  bool   `json:"ssl"`
	MAC  string `json:"mac"`
	Name string `json:"name"`
}

// Message is published for each unconfigured thermostat found on the
// network, so an operator can pick it up into the bridge configuration.
// Topic: graylogic/discovery/venstar/{unique_id}
// QoS: 1, Retained: Yes
type Message struct {
	Protocol     string     `json:"protocol"`
	UniqueID     string     `json:"unique_id"`
	DiscoveredAt time.Time  `json:"discovered_at"`
	Thermostat   Thermostat `json:"thermostat"`
}

// Publisher is the interface for publishing discovery messages.
type Publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Logger interface for optional logging support.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Debug(msg string, args ...any)
}

// searchFunc matches ssdp.Search and is swappable in tests.
type searchFunc func(searchType string, waitSec int, localAddr string, opts ...ssdp.Option) ([]ssdp.Service, error)

// Scanner periodically searches the local network for ColorTouch
// thermostats and announces unconfigured ones on the discovery topic.
type Scanner struct {
	interval   time.Duration
	publisher  Publisher
	configured map[string]bool // unique ids already in the bridge config
	search     searchFunc

	// announced dedupes repeat announcements within one process lifetime.
	announced   map[string]bool
	announcedMu sync.Mutex

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   Logger
	loggerMu sync.RWMutex
}

// Options holds configuration for creating a scanner.
type Options struct {
	// Interval is how often to scan. Default: 5 minutes.
	Interval time.Duration

	// Publisher is the MQTT client for discovery announcements.
	Publisher Publisher

	// Configured lists the thermostats already in the bridge config;
	// matching devices are not announced.
	Configured []config.ThermostatConfig

	// Logger is optional.
	Logger Logger
}

// NewScanner creates a network scanner. Call Start to begin scanning.
func NewScanner(opts Options) (*Scanner, error) {
	if opts.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	configured := make(map[string]bool, len(opts.Configured))
	for _, tc := range opts.Configured {
		configured[tc.ID] = true
		// Guard against hand-written ids: index by endpoint too.
		configured[endpointKey(tc.Host, tc.Port, tc.SSL)] = true
	}

	return &Scanner{
		interval:   interval,
		publisher:  opts.Publisher,
		configured: configured,
		search:     ssdp.Search,
		announced:  make(map[string]bool),
		done:       make(chan struct{}),
		logger:     opts.Logger,
	}, nil
}

// Start begins periodic scanning. Call Stop to shut down.
func (s *Scanner) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.scanLoop(ctx)
}

// Stop gracefully stops scanning. Safe to call multiple times.
func (s *Scanner) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
}

// ScanOnce runs a single search and announces any new devices.
func (s *Scanner) ScanOnce() error {
	services, err := s.search(searchTarget, defaultWait, "")
	if err != nil {
		return fmt.Errorf("ssdp search: %w", err)
	}

	for _, svc := range services {
		ts, err := ParseService(svc.Location, svc.USN)
		if err != nil {
			s.logDebug("skipping ssdp response", "location", svc.Location, "reason", err.Error())
			continue
		}
		s.announce(ts)
	}
	return nil
}

// scanLoop runs the periodic scans.
func (s *Scanner) scanLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if err := s.ScanOnce(); err != nil {
		s.logWarn("discovery scan failed", "error", err.Error())
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			if err := s.ScanOnce(); err != nil {
				s.logWarn("discovery scan failed", "error", err.Error())
			}
		}
	}
}

// announce publishes a retained discovery message for a device, unless
// it is already configured or was announced before.
func (s *Scanner) announce(ts Thermostat) {
	uniqueID := config.DeriveDeviceID(ts.MAC, ts.Host, ts.Port)

	if s.configured[uniqueID] || s.configured[endpointKey(ts.Host, ts.Port, ts.SSL)] {
		return
	}

	s.announcedMu.Lock()
	if s.announced[uniqueID] {
		s.announcedMu.Unlock()
		return
	}
	s.announced[uniqueID] = true
	s.announcedMu.Unlock()

	msg := Message{
		Protocol:     "venstar",
		UniqueID:     uniqueID,
		DiscoveredAt: time.Now().UTC(),
		Thermostat:   ts,
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		s.logWarn("failed to marshal discovery message", "error", err.Error())
		return
	}

	topic := infomqtt.Topics{}.Discovery(uniqueID)
	if err := s.publisher.Publish(topic, payload, 1, true); err != nil {
		s.logWarn("failed to publish discovery message", "error", err.Error())
		return
	}

	s.logInfo("discovered thermostat",
		"unique_id", uniqueID,
		"host", ts.Host,
		"name", ts.Name)
}

// ParseService extracts a thermostat from an SSDP response.
//
// The location header carries the device's API base URL. The USN packs
// the MAC and URL-encoded device name into colon-separated fields:
//
//	<type>:ecp:aa:bb:cc:dd:ee:ff:name:Hallway%20Thermostat
func ParseService(location, usn string) (Thermostat, error) {
	u, err := url.Parse(location)
	if err != nil {
		return Thermostat{}, fmt.Errorf("parse location: %w", err)
	}
	if u.Hostname() == "" {
		return Thermostat{}, fmt.Errorf("location %q has no host", location)
	}

	port := 80
	if u.Port() != "" {
		port, err = strconv.Atoi(u.Port())
		if err != nil {
			return Thermostat{}, fmt.Errorf("parse location port: %w", err)
		}
	} else if u.Scheme == "https" {
		port = 443
	}

	parts := strings.Split(usn, ":")
	if len(parts) < 10 {
		return Thermostat{}, fmt.Errorf("usn %q has %d fields, want at least 10", usn, len(parts))
	}

	mac := strings.ToLower(strings.Join(parts[2:8], ":"))
	name, err := url.QueryUnescape(parts[9])
	if err != nil {
		name = parts[9]
	}

	return Thermostat{
		Host: u.Hostname(),
		Port: port,
		SSL:  u.Scheme == "https",
		MAC:  mac,
		Name: name,
	}, nil
}

// endpointKey indexes a device by network endpoint. Config entries may
// leave the port at zero (scheme default), while SSDP locations always
// carry one, so the default is filled in before keying.
func endpointKey(host string, port int, ssl bool) string {
	if port == 0 {
		port = 80
		if ssl {
			port = 443
		}
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// SetLogger sets the logger for the scanner.
func (s *Scanner) SetLogger(logger Logger) {
	s.loggerMu.Lock()
	s.logger = logger
	s.loggerMu.Unlock()
}

func (s *Scanner) getLogger() Logger {
	s.loggerMu.RLock()
	defer s.loggerMu.RUnlock()
	return s.logger
}

func (s *Scanner) logInfo(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (s *Scanner) logWarn(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (s *Scanner) logDebug(msg string, keysAndValues ...any) {
	if logger := s.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
