package source

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/monitor"
	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// ErrNoData is returned until the first message has arrived.
var ErrNoData = errors.New("source: no snapshot received yet")

// Feed yields the most recent raw snapshot document.
type Feed interface {
	Latest() (payload []byte, at time.Time, ok bool)
}

// MQTTSource serves the last snapshot published on a topic. The topic only
// carries snapshots, so positions are accumulated locally from each one.
type MQTTSource struct {
	name    string
	feed    Feed
	history *monitor.History
	now     func() time.Time

	mu     sync.Mutex
	lastAt time.Time
	ids    []string
}

func NewMQTT(name string, feed Feed, history *monitor.History) *MQTTSource {
	if history == nil {
		history = monitor.NewHistory(0, 0)
	}
	return &MQTTSource{name: name, feed: feed, history: history, now: time.Now}
}

func (s *MQTTSource) Name() string { return "mqtt " + s.name }

func (s *MQTTSource) Snapshot(ctx context.Context) (*telemetry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	payload, at, ok := s.feed.Latest()
	if !ok {
		return nil, &TransportError{URL: s.name, Err: ErrNoData}
	}
	snap, err := telemetry.DecodeSnapshot(payload)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// A retained message is seen on every poll; record each one once.
	if at.After(s.lastAt) {
		s.lastAt = at
		for _, id := range snap.IDs {
			s.history.Record(id, snap.Units[id], at)
		}
	}
	s.ids = append(s.ids[:0], snap.IDs...)
	return snap, nil
}

// Positions returns the history gathered from the snapshots seen so far.
func (s *MQTTSource) Positions(ctx context.Context) (*telemetry.Positions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	ids := append([]string(nil), s.ids...)
	s.mu.Unlock()
	return s.history.Positions(ids, s.now()), nil
}
