package ins

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// DemoUnit generates simulated INS data for testing.
type DemoUnit struct {
	mu        sync.Mutex
	t         float64
	centerLat float64
	centerLon float64
	phase     float64
	used      uint64
}

// Solution types the demo cycles through, best first.
var demoSolutions = []struct {
	ekf, gnss string
}{
	{"rtkFixed", "rtkFixed"},
	{"rtkFloat", "rtkFloat"},
	{"singlePoint", "single"},
	{"inertial", "noSolution"},
}

const demoCapacity = 32 * 1024 * 1024 * 1024

// NewDemoUnit creates a simulated unit circling the given point. phase offsets
// units sharing a center so their traces do not overlap.
func NewDemoUnit(centerLat, centerLon, phase float64) *DemoUnit {
	return &DemoUnit{
		centerLat: centerLat,
		centerLon: centerLon,
		phase:     phase,
		used:      4 * 1024 * 1024 * 1024,
	}
}

func (d *DemoUnit) Name() string   { return "Demo INS (Simulated)" }
func (d *DemoUnit) Connect() error { return nil }
func (d *DemoUnit) Close() error   { return nil }

func (d *DemoUnit) Fetch(ctx context.Context) (*telemetry.UnitRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.t += 1

	radius := 0.002 // ~200m
	a := d.t*0.05 + d.phase
	lat := d.centerLat + radius*math.Sin(a)
	lon := d.centerLon + radius*math.Cos(a)
	alt := 120 + 2*math.Sin(d.t*0.1)

	// Degrade the solution for a few seconds every minute.
	sol := demoSolutions[0]
	if step := int(d.t) % 60; step >= 50 {
		sol = demoSolutions[1+(step-50)%3]
	}
	std := 0.02
	if sol.ekf != "rtkFixed" {
		std = 0.5 + rand.Float64()
	}

	d.used += uint64(2*1024*1024 + rand.Intn(512*1024))
	if d.used > demoCapacity {
		d.used = demoCapacity
	}
	used, total := d.used, uint64(demoCapacity)

	now := time.Now()
	return &telemetry.UnitRecord{
		Online:    true,
		Timestamp: Timestamp(now),
		Status: &telemetry.StatusBlock{
			UTC: telemetry.UTCStatus{UTCStatus: "valid", ClockStatus: "valid"},
			INS: telemetry.INSStatus{Type: sol.ekf, Aligned: ptr(true)},
			Aiding: map[string]bool{
				"gnss1Pos": sol.gnss != "noSolution",
				"gnss1Vel": sol.gnss != "noSolution",
				"gnss1Hdt": false,
				"gnss2Pos": false,
				"gnss2Vel": false,
				"gnss2Hdt": sol.gnss != "noSolution",
				"odometer": true,
			},
			GNSS1: telemetry.ChannelStatus{Enabled: true},
			GNSS2: telemetry.ChannelStatus{Enabled: true},
		},
		Measurement: &telemetry.MeasurementBlock{
			Timestamp: Timestamp(now),
			EKF: &telemetry.EKFSolution{
				Latitude:    ptr(lat),
				Longitude:   ptr(lon),
				Altitude:    ptr(alt),
				PositionStd: []*float64{ptr(std), ptr(std), ptr(std * 1.5)},
			},
			GNSS1: demoReceiver(sol.gnss, lat, lon, alt, std),
			GNSS2: demoReceiver(sol.gnss, lat+0.00001, lon, alt, std),
		},
		DataLogger: &telemetry.DataLoggerBlock{
			Status:     "recording",
			Mode:       "continuous",
			UsedSpace:  &used,
			TotalSpace: &total,
		},
	}, nil
}

func demoReceiver(fix string, lat, lon, alt, std float64) *telemetry.GNSSMeasurement {
	return &telemetry.GNSSMeasurement{
		Status: telemetry.ChannelEnabled,
		PVT: &telemetry.PVT{
			Type:         fix,
			Latitude:     ptr(lat),
			Longitude:    ptr(lon),
			Height:       ptr(alt),
			LatitudeStd:  ptr(std),
			LongitudeStd: ptr(std),
			HeightStd:    ptr(std * 2),
			Spoofing:     "none",
			Interference: "none",
			OSNMA:        "disabled",
			NumSvUsed:    ptr(18 + rand.Intn(4)),
			NumSvTracked: ptr(26),
			Signals: map[string]bool{
				"gps": true, "glonass": true, "galileo": true, "beidou": true,
				"l1": true, "l2": true, "l5": fix == "rtkFixed",
			},
		},
	}
}

func ptr[T any](v T) *T { return &v }
