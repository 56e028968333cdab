package server

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shaunagostinho/ins-dash/internal/ins"
	"github.com/shaunagostinho/ins-dash/internal/mqttlink"
)

// Source types for the dashboard's poll loops.
const (
	SourceLocal = "local"
	SourceHTTP  = "http"
	SourceMQTT  = "mqtt"
)

// Config holds all dashboard configuration. It is read once at startup and
// not changed afterwards.
type Config struct {
	// Units to monitor, in display order
	Units []UnitConfig `yaml:"units" json:"units"`

	// Backend acquisition
	Monitor MonitorConfig `yaml:"monitor" json:"monitor"`

	// Where the dashboard reads snapshots from
	Source SourceConfig `yaml:"source" json:"source"`

	// Broker for publishing or subscribing to snapshots
	MQTT MQTTConfig `yaml:"mqtt" json:"mqtt"`

	// Map defaults
	Map MapConfig `yaml:"map" json:"map"`

	// Server
	Server ServerConfig `yaml:"server" json:"server"`

	path string
}

type UnitConfig struct {
	ID             string `yaml:"id" json:"id"`
	Name           string `yaml:"name" json:"name"`
	Color          string `yaml:"color" json:"color"`                    // trace color on the map
	ConnectionType string `yaml:"connection_type" json:"connectionType"` // "ethernet", "serial" or "demo"
	IPAddress      string `yaml:"ip_address" json:"ipAddress"`
	Port           int    `yaml:"port" json:"port"`
	SerialPort     string `yaml:"serial_port" json:"serialPort"` // e.g. /dev/ttyINS0
	SerialBaudRate int    `yaml:"serial_baudrate" json:"serialBaudrate"`
	TimeoutMs      int    `yaml:"timeout_ms" json:"timeoutMs"`
}

type MonitorConfig struct {
	Enabled        bool `yaml:"enabled" json:"enabled"`
	IntervalMs     int  `yaml:"interval_ms" json:"intervalMs"`
	HistoryMinutes int  `yaml:"history_minutes" json:"historyMinutes"`
	Publish        bool `yaml:"publish" json:"publish"` // publish snapshots to MQTT
}

type SourceConfig struct {
	Type                string `yaml:"type" json:"type"` // "local", "http" or "mqtt"
	URL                 string `yaml:"url" json:"url"`   // backend base URL for "http"
	IntervalMs          int    `yaml:"interval_ms" json:"intervalMs"`
	PositionsIntervalMs int    `yaml:"positions_interval_ms" json:"positionsIntervalMs"`
	TimeoutMs           int    `yaml:"timeout_ms" json:"timeoutMs"` // 0 = no timeout
}

type MQTTConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	UseTLS   bool   `yaml:"use_tls" json:"useTls"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"-"`
	Topic    string `yaml:"topic" json:"topic"`
}

type MapConfig struct {
	CenterLat float64 `yaml:"center_lat" json:"centerLat"`
	CenterLon float64 `yaml:"center_lon" json:"centerLon"`
	Zoom      int     `yaml:"zoom" json:"zoom"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr" json:"listenAddr"`
}

// unitColors is assigned in order to units without a configured color.
var unitColors = []string{"#e6194b", "#3cb44b", "#4363d8", "#f58231", "#911eb4", "#42d4f4", "#f032e6", "#bfef45"}

// DefaultConfig returns a config with sensible defaults: two simulated units
// monitored in-process.
func DefaultConfig() *Config {
	return &Config{
		Units: []UnitConfig{
			{ID: "ins1", Name: "INS 1", ConnectionType: ins.Demo},
			{ID: "ins2", Name: "INS 2", ConnectionType: ins.Demo},
		},
		Monitor: MonitorConfig{
			Enabled:        true,
			IntervalMs:     1000,
			HistoryMinutes: 5,
		},
		Source: SourceConfig{
			Type:                SourceLocal,
			URL:                 "http://localhost:8080",
			IntervalMs:          1000,
			PositionsIntervalMs: 1000,
			TimeoutMs:           5000,
		},
		MQTT: MQTTConfig{
			Port:  1883,
			Topic: "insdash/snapshot",
		},
		Map: MapConfig{
			CenterLat: 48.8566,
			CenterLon: 2.3522,
			Zoom:      16,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
	}
}

// LoadConfig reads config from a YAML file, then applies .env and environment
// variable overrides. Falls back to defaults if YAML not found.
func LoadConfig(path string) *Config {
	cfg := DefaultConfig()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		log.Printf("[config] no config at %s, using defaults", path)
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		log.Printf("[config] error parsing %s: %v, using defaults", path, err)
		cfg = DefaultConfig()
		cfg.path = path
	} else {
		log.Printf("[config] loaded from %s", path)
	}

	// Load .env file from the same directory as the config, or from CWD
	envPaths := []string{
		filepath.Join(filepath.Dir(path), ".env"),
		".env",
	}
	for _, ep := range envPaths {
		loadEnvFile(ep)
	}

	cfg.applyEnvOverrides()
	cfg.fillUnitDefaults()
	return cfg
}

// loadEnvFile reads a simple KEY=VALUE .env file and sets os env vars.
func loadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	log.Printf("[config] loading .env from %s", path)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		// Real env takes precedence
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

// applyEnvOverrides reads environment variables and overrides config values.
// Supported: LISTEN_ADDR, SOURCE_TYPE, SOURCE_URL, POLL_INTERVAL_MS, MQTT_HOST,
// MQTT_PORT, MQTT_TOPIC, MQTT_USERNAME, MQTT_PASSWORD, MONITOR_ENABLED
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("SOURCE_TYPE"); v != "" {
		c.Source.Type = v
	}
	if v := os.Getenv("SOURCE_URL"); v != "" {
		c.Source.URL = v
	}
	if v := os.Getenv("POLL_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Source.IntervalMs = n
		}
	}
	if v := os.Getenv("MQTT_HOST"); v != "" {
		c.MQTT.Host = v
	}
	if v := os.Getenv("MQTT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MQTT.Port = n
		}
	}
	if v := os.Getenv("MQTT_TOPIC"); v != "" {
		c.MQTT.Topic = v
	}
	if v := os.Getenv("MQTT_USERNAME"); v != "" {
		c.MQTT.Username = v
	}
	if v := os.Getenv("MQTT_PASSWORD"); v != "" {
		c.MQTT.Password = v
	}
	if v := os.Getenv("MONITOR_ENABLED"); v != "" {
		c.Monitor.Enabled = v == "1" || v == "true" || v == "yes"
	}
}

func (c *Config) fillUnitDefaults() {
	for i := range c.Units {
		u := &c.Units[i]
		if u.Name == "" {
			u.Name = u.ID
		}
		if u.Color == "" {
			u.Color = unitColors[i%len(unitColors)]
		}
		if u.ConnectionType == "" {
			u.ConnectionType = ins.Ethernet
		}
	}
}

// Validate checks the combination of sections main is about to wire.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Units))
	for i, u := range c.Units {
		if u.ID == "" {
			return fmt.Errorf("config: unit %d has no id", i)
		}
		if strings.ContainsAny(u.ID, " \t/") {
			return fmt.Errorf("config: unit id %q must not contain spaces or slashes", u.ID)
		}
		if seen[u.ID] {
			return fmt.Errorf("config: duplicate unit id %q", u.ID)
		}
		seen[u.ID] = true
		switch u.ConnectionType {
		case ins.Ethernet, ins.Serial, ins.Demo:
		default:
			return fmt.Errorf("config: unit %q: unknown connection_type %q", u.ID, u.ConnectionType)
		}
	}

	switch c.Source.Type {
	case SourceLocal:
		if !c.Monitor.Enabled {
			return fmt.Errorf("config: source %q needs the monitor enabled", SourceLocal)
		}
	case SourceHTTP:
		if c.Source.URL == "" {
			return fmt.Errorf("config: source %q needs a url", SourceHTTP)
		}
	case SourceMQTT:
		if c.MQTT.Host == "" {
			return fmt.Errorf("config: source %q needs mqtt.host", SourceMQTT)
		}
	default:
		return fmt.Errorf("config: unknown source type %q", c.Source.Type)
	}

	if c.Monitor.Enabled && len(c.Units) == 0 {
		return fmt.Errorf("config: monitor enabled but no units configured")
	}
	if c.Monitor.Enabled && c.Monitor.Publish && c.MQTT.Host == "" {
		return fmt.Errorf("config: monitor.publish needs mqtt.host")
	}
	return nil
}

// UseDemo switches every unit to the simulator.
func (c *Config) UseDemo() {
	for i := range c.Units {
		c.Units[i].ConnectionType = ins.Demo
	}
}

// INSConfig converts a unit entry to a client configuration. index spreads
// simulated units around the map center.
func (c *Config) INSConfig(index int) ins.Config {
	u := c.Units[index]
	timeout := time.Duration(u.TimeoutMs) * time.Millisecond
	return ins.Config{
		ConnectionType: u.ConnectionType,
		REST: ins.RESTConfig{
			Address: u.IPAddress,
			Port:    u.Port,
			Timeout: timeout,
		},
		Serial: ins.SerialConfig{
			PortPath: u.SerialPort,
			BaudRate: u.SerialBaudRate,
			Timeout:  timeout,
		},
		DemoCenter: [2]float64{c.Map.CenterLat, c.Map.CenterLon},
		DemoPhase:  float64(index) * 2.1,
	}
}

// MQTTLink converts the mqtt section for the link package.
func (c *Config) MQTTLink() mqttlink.Config {
	return mqttlink.Config{
		Host:     c.MQTT.Host,
		Port:     c.MQTT.Port,
		UseTLS:   c.MQTT.UseTLS,
		Username: c.MQTT.Username,
		Password: c.MQTT.Password,
		Topic:    c.MQTT.Topic,
	}
}

// Interval converts a millisecond setting, falling back to def when unset.
func Interval(ms int, def time.Duration) time.Duration {
	if ms <= 0 {
		return def
	}
	return time.Duration(ms) * time.Millisecond
}

// pageConfig is the subset of the config the page needs.
type pageConfig struct {
	Units  []pageUnitConfig `json:"units"`
	Map    MapConfig        `json:"map"`
	Source string           `json:"source"`
}

type pageUnitConfig struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ToJSON serializes the page-facing config for the API.
func (c *Config) ToJSON() ([]byte, error) {
	pc := pageConfig{Map: c.Map, Source: c.Source.Type, Units: make([]pageUnitConfig, 0, len(c.Units))}
	for _, u := range c.Units {
		pc.Units = append(pc.Units, pageUnitConfig{ID: u.ID, Name: u.Name, Color: u.Color})
	}
	return json.Marshal(pc)
}
