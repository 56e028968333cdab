// Package ins talks to the inertial navigation units under test.
package ins

import (
	"context"
	"fmt"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// Client is the interface for INS data sources.
type Client interface {
	Name() string
	Connect() error
	Close() error
	// Fetch returns the unit's current state. An error means the unit is
	// unreachable; the caller reports it offline.
	Fetch(ctx context.Context) (*telemetry.UnitRecord, error)
}

// Connection types.
const (
	Ethernet = "ethernet"
	Serial   = "serial"
	Demo     = "demo"
)

// DefaultTimeout bounds a single request to a unit.
const DefaultTimeout = 5 * time.Second

// Timestamp formats the record timestamp the way every client reports it.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Config describes how to reach one unit.
type Config struct {
	ConnectionType string
	REST           RESTConfig
	Serial         SerialConfig
	// Demo units circle DemoCenter; DemoPhase spreads several of them apart.
	DemoCenter [2]float64
	DemoPhase  float64
}

// New builds the client for a unit's connection type.
func New(cfg Config) (Client, error) {
	switch cfg.ConnectionType {
	case Ethernet:
		if cfg.REST.Address == "" {
			return nil, fmt.Errorf("ins: ethernet unit needs an ip_address")
		}
		return NewREST(cfg.REST), nil
	case Serial:
		if cfg.Serial.PortPath == "" {
			return nil, fmt.Errorf("ins: serial unit needs a serial_port")
		}
		return NewSerial(cfg.Serial), nil
	case Demo:
		return NewDemoUnit(cfg.DemoCenter[0], cfg.DemoCenter[1], cfg.DemoPhase), nil
	default:
		return nil, fmt.Errorf("ins: unsupported connection type %q", cfg.ConnectionType)
	}
}
