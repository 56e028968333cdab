package monitor

import (
	"sync"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

type fix struct {
	at  time.Time
	pos telemetry.LatLon
}

// History keeps recent EKF fixes per unit, bounded by age and count.
type History struct {
	window time.Duration
	max    int

	mu    sync.RWMutex
	fixes map[string][]fix // oldest first
}

func NewHistory(window time.Duration, max int) *History {
	if window <= 0 {
		window = 5 * time.Minute
	}
	if max <= 0 {
		max = 1000
	}
	return &History{window: window, max: max, fixes: make(map[string][]fix)}
}

// Record appends the record's EKF position. Offline records and records
// without a full position are ignored.
func (h *History) Record(id string, rec *telemetry.UnitRecord, now time.Time) {
	if rec == nil || !rec.Online || rec.Measurement == nil || rec.Measurement.EKF == nil {
		return
	}
	ekf := rec.Measurement.EKF
	if ekf.Latitude == nil || ekf.Longitude == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	f := append(h.fixes[id], fix{at: now, pos: telemetry.LatLon{*ekf.Latitude, *ekf.Longitude}})
	cutoff := now.Add(-h.window)
	drop := 0
	for drop < len(f) && f[drop].at.Before(cutoff) {
		drop++
	}
	if over := len(f) - drop - h.max; over > 0 {
		drop += over
	}
	if drop > 0 {
		f = append([]fix(nil), f[drop:]...)
	}
	h.fixes[id] = f
}

// Positions returns the fixes inside the window for each id, latest first.
// Every id gets an entry, empty when nothing is known.
func (h *History) Positions(ids []string, now time.Time) *telemetry.Positions {
	cutoff := now.Add(-h.window)
	out := telemetry.NewPositions()

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, id := range ids {
		f := h.fixes[id]
		path := make([]telemetry.LatLon, 0, len(f))
		for i := len(f) - 1; i >= 0; i-- {
			if f[i].at.Before(cutoff) {
				break
			}
			path = append(path, f[i].pos)
		}
		out.Add(id, path)
	}
	return out
}
