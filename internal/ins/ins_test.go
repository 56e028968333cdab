package ins

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go.bug.st/serial"

	"github.com/shaunagostinho/ins-dash/internal/quality"
)

func unitServer(t *testing.T, routes map[string]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("accept=%q", r.Header.Get("Accept"))
		}
		body, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if body == "500" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

var fullRoutes = map[string]string{
	"/api/v1/status":     `{"utc": {"utcStatus": "valid", "clockStatus": "valid"}, "ins": {"type": "rtkFixed", "aligned": true}, "aiding": {"gnss1Pos": true}, "gnss1": {"enabled": true}, "gnss2": {"enabled": false}}`,
	"/api/v1/data":       `{"timestamp": "2026-10-18T10:00:00Z", "ekf": {"latitude": 48.1, "longitude": 2.1, "altitude": 50, "positionStd": [0.1, 0.1, 0.2]}}`,
	"/api/v1/gnss1":      `{"status": "enabled", "pvt": {"type": "rtkFixed", "numSvUsed": 12}}`,
	"/api/v1/gnss2":      `{"status": "disabled"}`,
	"/api/v1/datalogger": `{"status": "recording", "mode": "continuous", "usedSpace": 10, "totalSpace": 100}`,
}

func TestRESTClientFetch(t *testing.T) {
	ts := unitServer(t, fullRoutes)
	c := NewREST(RESTConfig{Address: ts.URL, Timeout: time.Second})

	rec, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !rec.Online || rec.Timestamp == "" {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.Status.INS.Type != "rtkFixed" || !rec.Status.Aiding["gnss1Pos"] {
		t.Fatalf("status=%+v", rec.Status)
	}
	if *rec.Measurement.EKF.Latitude != 48.1 || len(rec.Measurement.EKF.PositionStd) != 3 {
		t.Fatalf("ekf=%+v", rec.Measurement.EKF)
	}
	if rec.Measurement.GNSS1.PVT == nil || *rec.Measurement.GNSS1.PVT.NumSvUsed != 12 {
		t.Fatalf("gnss1=%+v", rec.Measurement.GNSS1)
	}
	if !rec.Measurement.GNSS2.Disabled() {
		t.Fatalf("gnss2=%+v", rec.Measurement.GNSS2)
	}
	if rec.DataLogger == nil || *rec.DataLogger.TotalSpace != 100 {
		t.Fatalf("dataLogger=%+v", rec.DataLogger)
	}
}

func TestRESTClientMissingDataLogger(t *testing.T) {
	routes := map[string]string{}
	for k, v := range fullRoutes {
		routes[k] = v
	}
	delete(routes, "/api/v1/datalogger")
	ts := unitServer(t, routes)

	rec, err := NewREST(RESTConfig{Address: ts.URL}).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if rec.DataLogger != nil {
		t.Fatalf("dataLogger=%+v", rec.DataLogger)
	}
}

func TestRESTClientFailures(t *testing.T) {
	routes := map[string]string{}
	for k, v := range fullRoutes {
		routes[k] = v
	}
	routes["/api/v1/gnss1"] = "500"
	ts := unitServer(t, routes)

	_, err := NewREST(RESTConfig{Address: ts.URL}).Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "unexpected status 500") {
		t.Fatalf("err=%v", err)
	}

	ts.Close()
	if _, err := NewREST(RESTConfig{Address: ts.URL}).Fetch(context.Background()); err == nil {
		t.Fatalf("expected transport error")
	}
}

func TestNewRESTBuildsURL(t *testing.T) {
	c := NewREST(RESTConfig{Address: "192.168.1.20"})
	if c.baseURL != "http://192.168.1.20:80" {
		t.Fatalf("baseURL=%q", c.baseURL)
	}
	c = NewREST(RESTConfig{Address: "10.0.0.5", Port: 8080})
	if c.baseURL != "http://10.0.0.5:8080" {
		t.Fatalf("baseURL=%q", c.baseURL)
	}
}

func TestParseSerialLine(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	rec, err := parseSerialLine(`{"status": {"ins": {"type": "sbas"}}, "measurement": {"ekf": {"latitude": 1.5}}}`+"\r\n", now)
	if err != nil {
		t.Fatalf("parseSerialLine: %v", err)
	}
	if !rec.Online || rec.Timestamp != "2026-10-18T12:00:00Z" {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.Status.INS.Type != "sbas" || *rec.Measurement.EKF.Latitude != 1.5 {
		t.Fatalf("rec=%+v", rec)
	}
	if rec.DataLogger != nil {
		t.Fatalf("dataLogger should be absent")
	}

	if _, err := parseSerialLine("  ", now); err == nil {
		t.Fatalf("expected error for empty line")
	}
	if _, err := parseSerialLine("$GPGGA,1,2,3", now); err == nil {
		t.Fatalf("expected error for non-json line")
	}
}

func TestDemoUnitProducesRenderableRecords(t *testing.T) {
	d := NewDemoUnit(48.85, 2.35, 0)
	var lastUsed uint64
	for i := 0; i < 70; i++ {
		rec, err := d.Fetch(context.Background())
		if err != nil {
			t.Fatalf("Fetch: %v", err)
		}
		if quality.Classify(quality.EKF, rec.Status.INS.Type) == quality.Unknown {
			t.Fatalf("demo solution %q is not classifiable", rec.Status.INS.Type)
		}
		if quality.Classify(quality.GNSS, rec.Measurement.GNSS1.PVT.Type) == quality.Unknown {
			t.Fatalf("demo fix %q is not classifiable", rec.Measurement.GNSS1.PVT.Type)
		}
		used := *rec.DataLogger.UsedSpace
		if used < lastUsed || used > *rec.DataLogger.TotalSpace {
			t.Fatalf("used=%d last=%d", used, lastUsed)
		}
		lastUsed = used
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Fetch(ctx); err == nil {
		t.Fatalf("expected error on cancelled context")
	}
}

func TestNewByConnectionType(t *testing.T) {
	if c, err := New(Config{ConnectionType: Demo}); err != nil || c == nil {
		t.Fatalf("demo: %v", err)
	}
	if _, err := New(Config{ConnectionType: Ethernet}); err == nil {
		t.Fatalf("ethernet without address should fail")
	}
	if _, err := New(Config{ConnectionType: Serial}); err == nil {
		t.Fatalf("serial without port should fail")
	}
	if _, err := New(Config{ConnectionType: "carrier-pigeon"}); err == nil {
		t.Fatalf("unknown type should fail")
	}
	c, err := New(Config{ConnectionType: Serial, Serial: SerialConfig{PortPath: "/dev/ttyINS0"}})
	if err != nil {
		t.Fatalf("serial: %v", err)
	}
	if c.Name() != "INS serial /dev/ttyINS0" {
		t.Fatalf("name=%q", c.Name())
	}
}

// fakePort answers GET_INFO with the queued lines, or stays silent once they
// run out. Reads return (0, nil) after readWait like a port whose read
// timeout expired. chunk > 0 hands out at most chunk bytes per read, one
// read every readWait.
type fakePort struct {
	serial.Port

	mu       sync.Mutex
	pending  []byte
	answers  []string
	readWait time.Duration
	chunk    int
	closed   bool
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if string(b) == serialRequest && len(p.answers) > 0 {
		p.pending = append(p.pending, p.answers[0]...)
		p.answers = p.answers[1:]
	}
	return len(b), nil
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	if len(p.pending) > 0 {
		if p.chunk > 0 {
			p.mu.Unlock()
			time.Sleep(p.readWait)
			p.mu.Lock()
			if len(b) > p.chunk {
				b = b[:p.chunk]
			}
		}
		n := copy(b, p.pending)
		p.pending = p.pending[n:]
		p.mu.Unlock()
		return n, nil
	}
	p.mu.Unlock()
	time.Sleep(p.readWait)
	return 0, nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func serialWithPort(port *fakePort, timeout time.Duration) *SerialClient {
	c := NewSerial(SerialConfig{PortPath: "/dev/fake", Timeout: timeout})
	c.open = func(string, *serial.Mode) (serial.Port, error) { return port, nil }
	return c
}

func TestSerialFetchAnswers(t *testing.T) {
	port := &fakePort{
		answers:  []string{`{"status": {"ins": {"type": "rtkFixed"}}}` + "\r\n"},
		readWait: time.Millisecond,
	}
	c := serialWithPort(port, 50*time.Millisecond)
	rec, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !rec.Online || rec.Status.INS.Type != "rtkFixed" {
		t.Fatalf("rec=%+v", rec)
	}
}

func TestSerialFetchSilentUnitTimesOut(t *testing.T) {
	port := &fakePort{readWait: 5 * time.Millisecond}
	c := serialWithPort(port, 20*time.Millisecond)

	start := time.Now()
	_, err := c.Fetch(context.Background())
	elapsed := time.Since(start)
	if err == nil || !strings.Contains(err.Error(), "no answer within") {
		t.Fatalf("err=%v", err)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("Fetch took %v for a 20ms timeout", elapsed)
	}
	if !port.closed {
		t.Fatalf("port should be dropped after a timeout")
	}
}

func TestSerialFetchTricklingUnitHitsDeadline(t *testing.T) {
	// One byte per read and never a newline.
	port := &fakePort{readWait: time.Millisecond, chunk: 1}
	port.answers = []string{strings.Repeat("x", 4096)}
	c := serialWithPort(port, 20*time.Millisecond)

	start := time.Now()
	if _, err := c.Fetch(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Fetch took %v for a 20ms timeout", elapsed)
	}
}

func TestSerialFetchHonoursContext(t *testing.T) {
	port := &fakePort{readWait: time.Millisecond, chunk: 1}
	port.answers = []string{strings.Repeat("x", 4096)}
	c := serialWithPort(port, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Fetch(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("Fetch took %v after its context expired", elapsed)
	}
}
