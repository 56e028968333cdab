package ins

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/shaunagostinho/ins-dash/internal/telemetry"
)

// SerialClient queries a unit over a serial line. The unit answers each
// GET_INFO request with one JSON document on a single line.
type SerialClient struct {
	portPath string
	baudRate int
	timeout  time.Duration

	open func(path string, mode *serial.Mode) (serial.Port, error)

	mu      sync.Mutex
	port    serial.Port
	reader  *portReader
	scanner *bufio.Scanner
}

// SerialConfig holds configuration for the serial client.
type SerialConfig struct {
	PortPath string        `yaml:"serial_port" json:"serialPort"`
	BaudRate int           `yaml:"serial_baudrate" json:"serialBaudrate"`
	Timeout  time.Duration `yaml:"-" json:"-"`
}

const serialRequest = "GET_INFO\n"

var errReadTimeout = errors.New("read timeout")

// portReader bounds one answer. The port returns (0, nil) when its read
// timeout expires; that becomes errReadTimeout, as does passing the deadline
// while bytes trickle in. ctx is checked before every read.
type portReader struct {
	port     io.Reader
	ctx      context.Context
	deadline time.Time
}

func (r *portReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	if time.Now().After(r.deadline) {
		return 0, errReadTimeout
	}
	n, err := r.port.Read(p)
	if n == 0 && err == nil {
		return 0, errReadTimeout
	}
	return n, err
}

func NewSerial(cfg SerialConfig) *SerialClient {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &SerialClient{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
		timeout:  cfg.Timeout,
		open:     serial.Open,
	}
}

func (s *SerialClient) Name() string { return "INS serial " + s.portPath }

func (s *SerialClient) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectLocked()
}

func (s *SerialClient) connectLocked() error {
	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := s.open(s.portPath, mode)
	if err != nil {
		return fmt.Errorf("ins: failed to open %s: %w", s.portPath, err)
	}
	port.SetReadTimeout(s.timeout)
	s.port = port
	s.reader = &portReader{port: port, ctx: context.Background()}
	s.scanner = bufio.NewScanner(s.reader)
	s.scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	log.Printf("[ins] connected to %s at %d baud", s.portPath, s.baudRate)
	return nil
}

func (s *SerialClient) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		err := s.port.Close()
		s.port = nil
		s.reader = nil
		s.scanner = nil
		return err
	}
	return nil
}

// Fetch sends one request and reads one line back within the timeout. A read
// error drops the port so the next Fetch reopens it.
func (s *SerialClient) Fetch(ctx context.Context) (*telemetry.UnitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.port == nil {
		if err := s.connectLocked(); err != nil {
			return nil, err
		}
	}

	if _, err := s.port.Write([]byte(serialRequest)); err != nil {
		s.dropLocked()
		return nil, fmt.Errorf("ins: write %s: %w", s.portPath, err)
	}
	s.reader.ctx = ctx
	s.reader.deadline = time.Now().Add(s.timeout)
	if !s.scanner.Scan() {
		err := s.scanner.Err()
		s.dropLocked()
		if err == nil || errors.Is(err, errReadTimeout) {
			err = fmt.Errorf("no answer within %v", s.timeout)
		}
		return nil, fmt.Errorf("ins: read %s: %w", s.portPath, err)
	}
	return parseSerialLine(s.scanner.Text(), time.Now())
}

func (s *SerialClient) dropLocked() {
	if s.port != nil {
		s.port.Close()
	}
	s.port = nil
	s.reader = nil
	s.scanner = nil
}

func parseSerialLine(line string, now time.Time) (*telemetry.UnitRecord, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("ins: empty answer")
	}
	rec := &telemetry.UnitRecord{Online: true, Timestamp: Timestamp(now)}
	if err := telemetry.DecodeBlocks(rec, []byte(line)); err != nil {
		return nil, fmt.Errorf("ins: decode answer: %w", err)
	}
	return rec, nil
}
