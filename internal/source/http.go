package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// maxDocument bounds a single response body.
const maxDocument = 8 << 20

// HTTPSource polls a backend exposing /api/data and /api/positions.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTP builds a source for baseURL. timeout bounds each request; zero
// leaves requests unbounded, so a hung backend stalls the loop.
func NewHTTP(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Name() string { return "http " + s.baseURL }

func (s *HTTPSource) Snapshot(ctx context.Context) (*telemetry.Snapshot, error) {
	body, err := s.get(ctx, "/api/data")
	if err != nil {
		return nil, err
	}
	return telemetry.DecodeSnapshot(body)
}

func (s *HTTPSource) Positions(ctx context.Context) (*telemetry.Positions, error) {
	body, err := s.get(ctx, "/api/positions")
	if err != nil {
		return nil, err
	}
	return telemetry.DecodePositions(body)
}

func (s *HTTPSource) get(ctx context.Context, path string) ([]byte, error) {
	url := s.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &TransportError{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocument))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return body, nil
}
