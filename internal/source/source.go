// Package source implements the snapshot sources the dashboard polls: a
// remote backend over HTTP, the in-process monitor, and an MQTT topic.
package source

import (
	"context"
	"fmt"

	"github.com/shaunagostinho/ins-dash/internal/poller"
	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// Source serves the two documents the dashboard consumes.
type Source interface {
	Name() string
	Snapshot(ctx context.Context) (*telemetry.Snapshot, error)
	Positions(ctx context.Context) (*telemetry.Positions, error)
}

// TransportError reports that a document could not be obtained at all: the
// request failed, or the backend answered with a non-2xx status.
type TransportError struct {
	URL        string
	StatusCode int // 0 for transport failures
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("source: %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("source: %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Snapshots adapts a Source to the poll loop's snapshot stream.
func Snapshots(s Source) poller.Source[*telemetry.Snapshot] {
	return poller.SourceFunc[*telemetry.Snapshot](s.Snapshot)
}

// PositionStream adapts a Source to the poll loop's trajectory stream.
func PositionStream(s Source) poller.Source[*telemetry.Positions] {
	return poller.SourceFunc[*telemetry.Positions](s.Positions)
}
