package source

import (
	"context"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// Store is the part of the monitor a LocalSource reads.
type Store interface {
	Snapshot() *telemetry.Snapshot
	Positions(now time.Time) *telemetry.Positions
}

// LocalSource reads the in-process monitor directly.
type LocalSource struct {
	store Store
	now   func() time.Time
}

func NewLocal(store Store) *LocalSource {
	return &LocalSource{store: store, now: time.Now}
}

func (s *LocalSource) Name() string { return "local monitor" }

func (s *LocalSource) Snapshot(ctx context.Context) (*telemetry.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.Snapshot(), nil
}

func (s *LocalSource) Positions(ctx context.Context) (*telemetry.Positions, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.store.Positions(s.now()), nil
}
