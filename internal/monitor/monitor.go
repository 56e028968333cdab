// Package monitor polls every configured unit and keeps their latest state
// and recent position history in memory.
package monitor

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/shaunagostinho/ins-dash/internal/ins"
	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// Unit binds a configured unit id to its client.
type Unit struct {
	ID     string
	Client ins.Client
}

// Publisher receives every snapshot the monitor assembles.
type Publisher interface {
	Publish(snap *telemetry.Snapshot) error
}

type Config struct {
	Interval   time.Duration
	History    time.Duration // position history window
	MaxHistory int           // per-unit cap on stored fixes
	Publisher  Publisher     // optional

	// Connect backoff, 1s and 60s when unset.
	RetryMin time.Duration
	RetryMax time.Duration
}

// Monitor runs the acquisition loop.
type Monitor struct {
	cfg   Config
	units []Unit

	latest cmap.ConcurrentMap[string, *telemetry.UnitRecord]

	history *History
	links   map[string]*link

	running    atomic.Bool
	passes     atomic.Uint64
	lastUpdate atomic.Value // time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// Status is a point-in-time view for the status API.
type Status struct {
	Monitoring    bool   `json:"monitoring"`
	UnitCount     int    `json:"unitCount"`
	Passes        uint64 `json:"passes"`
	LastUpdateUTC string `json:"lastUpdate,omitempty"`
}

func New(units []Unit, cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.History <= 0 {
		cfg.History = 5 * time.Minute
	}
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = 1000
	}
	if cfg.RetryMin <= 0 {
		cfg.RetryMin = time.Second
	}
	if cfg.RetryMax < cfg.RetryMin {
		cfg.RetryMax = max(60*time.Second, cfg.RetryMin)
	}
	m := &Monitor{
		cfg:     cfg,
		units:   units,
		latest:  cmap.New[*telemetry.UnitRecord](),
		history: NewHistory(cfg.History, cfg.MaxHistory),
		links:   make(map[string]*link, len(units)),
	}
	for _, u := range units {
		m.links[u.ID] = &link{}
	}
	m.lastUpdate.Store(time.Time{})
	return m
}

// Start connects every unit in the background and launches the polling
// goroutine. Calling Start on a running monitor is a no-op.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running.Load() {
		return nil
	}
	if len(m.units) == 0 {
		return fmt.Errorf("monitor: no units configured")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running.Store(true)
	for _, u := range m.units {
		l := m.links[u.ID]
		l.pending.Store(true)
		go m.connect(runCtx, u, l)
	}
	go m.loop(runCtx, m.done)
	log.Printf("[monitor] started: %d units every %v", len(m.units), m.cfg.Interval)
	return nil
}

// Stop ends the loop and waits up to 10s for the current pass to finish.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Printf("[monitor] stop timed out")
	}
}

func (m *Monitor) Running() bool { return m.running.Load() }

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer func() {
		m.running.Store(false)
		close(done)
		log.Printf("[monitor] stopped")
	}()
	for {
		start := time.Now()
		m.PollOnce(ctx)

		// Keep the cadence regardless of how long the pass took.
		wait := m.cfg.Interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// PollOnce fetches every connected unit sequentially and records the
// results. A unit still connecting is recorded offline without a fetch.
func (m *Monitor) PollOnce(ctx context.Context) {
	for _, u := range m.units {
		if ctx.Err() != nil {
			return
		}
		if l := m.links[u.ID]; l.pending.Load() {
			m.store(u.ID, telemetry.Offline(ins.Timestamp(time.Now()), l.err()), time.Now())
			continue
		}
		rec, err := u.Client.Fetch(ctx)
		if err != nil {
			log.Printf("[monitor] error on fetching data for %s: %v", u.ID, err)
			rec = telemetry.Offline(ins.Timestamp(time.Now()), err)
		}
		m.store(u.ID, rec, time.Now())
	}
	m.passes.Add(1)
	m.lastUpdate.Store(time.Now().UTC())

	if m.cfg.Publisher != nil {
		if err := m.cfg.Publisher.Publish(m.Snapshot()); err != nil {
			log.Printf("[monitor] publish failed: %v", err)
		}
	}
}

func (m *Monitor) store(id string, rec *telemetry.UnitRecord, now time.Time) {
	m.latest.Set(id, rec)
	m.history.Record(id, rec, now)
}

// Snapshot returns the latest record of every unit polled at least once, in
// configuration order.
func (m *Monitor) Snapshot() *telemetry.Snapshot {
	snap := telemetry.NewSnapshot()
	for _, u := range m.units {
		if rec, ok := m.latest.Get(u.ID); ok {
			snap.Add(u.ID, rec)
		}
	}
	return snap
}

// Unit returns the latest record of one unit.
func (m *Monitor) Unit(id string) (*telemetry.UnitRecord, bool) {
	return m.latest.Get(id)
}

// Positions returns, per configured unit, the EKF fixes inside the history
// window, latest first.
func (m *Monitor) Positions(now time.Time) *telemetry.Positions {
	ids := make([]string, len(m.units))
	for i, u := range m.units {
		ids[i] = u.ID
	}
	return m.history.Positions(ids, now)
}

func (m *Monitor) Status() Status {
	st := Status{
		Monitoring: m.Running(),
		UnitCount:  len(m.units),
		Passes:     m.passes.Load(),
	}
	if t := m.lastUpdate.Load().(time.Time); !t.IsZero() {
		st.LastUpdateUTC = t.Format(time.RFC3339Nano)
	}
	return st
}
