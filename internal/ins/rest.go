package ins

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// RESTClient polls a unit's embedded web API over Ethernet.
type RESTClient struct {
	baseURL string
	client  *http.Client
}

// RESTConfig holds configuration for the REST client.
type RESTConfig struct {
	Address string        `yaml:"ip_address" json:"ipAddress"`
	Port    int           `yaml:"port" json:"port"`
	Timeout time.Duration `yaml:"-" json:"-"`
}

const apiPrefix = "/api/v1"

// errNotFound marks an endpoint the unit does not implement.
var errNotFound = errors.New("ins: endpoint not found")

func NewREST(cfg RESTConfig) *RESTClient {
	if cfg.Port == 0 {
		cfg.Port = 80
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	base := cfg.Address
	if !strings.Contains(base, "://") {
		base = fmt.Sprintf("http://%s:%d", cfg.Address, cfg.Port)
	}
	return &RESTClient{
		baseURL: strings.TrimRight(base, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *RESTClient) Name() string   { return "INS REST " + c.baseURL }
func (c *RESTClient) Connect() error { return nil }
func (c *RESTClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Fetch reads status, fused solution and both receivers. Any failure makes the
// whole unit unreachable, except a missing data-logger endpoint which only
// leaves that block empty.
func (c *RESTClient) Fetch(ctx context.Context) (*telemetry.UnitRecord, error) {
	rec := &telemetry.UnitRecord{Online: true}

	var status telemetry.StatusBlock
	if err := c.getJSON(ctx, "status", &status); err != nil {
		return nil, err
	}
	rec.Status = &status

	var meas telemetry.MeasurementBlock
	if err := c.getJSON(ctx, "data", &meas); err != nil {
		return nil, err
	}
	for i, dst := range []**telemetry.GNSSMeasurement{&meas.GNSS1, &meas.GNSS2} {
		var g telemetry.GNSSMeasurement
		if err := c.getJSON(ctx, fmt.Sprintf("gnss%d", i+1), &g); err != nil {
			return nil, err
		}
		*dst = &g
	}
	rec.Measurement = &meas

	var dl telemetry.DataLoggerBlock
	switch err := c.getJSON(ctx, "datalogger", &dl); {
	case err == nil:
		rec.DataLogger = &dl
	case errors.Is(err, errNotFound):
	default:
		return nil, err
	}

	rec.Timestamp = Timestamp(time.Now())
	return rec, nil
}

func (c *RESTClient) getJSON(ctx context.Context, path string, dst any) error {
	url := c.baseURL + apiPrefix + "/" + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("ins: new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ins: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s", errNotFound, url)
	}
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("ins: GET %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("ins: decode %s: %w", path, err)
	}
	return nil
}
