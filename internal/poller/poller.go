// Package poller drives a pull-based update cadence with at most one request
// in flight.
package poller

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Source produces one document per call.
type Source[T any] interface {
	Fetch(ctx context.Context) (T, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc[T any] func(ctx context.Context) (T, error)

func (f SourceFunc[T]) Fetch(ctx context.Context) (T, error) { return f(ctx) }

type State string

const (
	Idle    State = "idle"
	Running State = "running"
)

type Config[T any] struct {
	Name     string
	Source   Source[T]
	Interval time.Duration
	// OnData handles a successful fetch. It runs on the loop goroutine and the
	// next request is not issued until it returns.
	OnData func(T)
	// OnError handles a failed fetch. Optional.
	OnError func(error)
}

// Loop repeats fetch, handle, wait. The wait starts only after the previous
// result was fully handled, so requests never overlap.
type Loop[T any] struct {
	cfg Config[T]

	mu    sync.Mutex
	state State
	stop  chan struct{}
	done  chan struct{}

	cycles   atomic.Uint64
	failures atomic.Uint64
	lastErr  atomic.Value // string
}

// Stats is a point-in-time view of a loop.
type Stats struct {
	Name      string `json:"name"`
	State     State  `json:"state"`
	Interval  string `json:"interval"`
	Cycles    uint64 `json:"cycles"`
	Failures  uint64 `json:"failures"`
	LastError string `json:"lastError,omitempty"`
}

func New[T any](cfg Config[T]) (*Loop[T], error) {
	if cfg.Source == nil {
		return nil, fmt.Errorf("poller: source is required")
	}
	if cfg.OnData == nil {
		return nil, fmt.Errorf("poller: OnData is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Name == "" {
		cfg.Name = "poll"
	}
	l := &Loop[T]{cfg: cfg, state: Idle}
	l.lastErr.Store("")
	return l, nil
}

// Start moves the loop from Idle to Running. The first request is issued
// immediately. ctx bounds the whole run, including any in-flight request.
func (l *Loop[T]) Start(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Running {
		return fmt.Errorf("poller: %s already running", l.cfg.Name)
	}
	l.state = Running
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	go l.run(ctx, l.stop, l.done)
	log.Printf("[poll] %s started (every %v)", l.cfg.Name, l.cfg.Interval)
	return nil
}

// Stop prevents the next cycle from being scheduled. A request already in
// flight is not cancelled; it completes and its result is applied. Use Done
// to wait for the loop to return to Idle.
func (l *Loop[T]) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stop == nil {
		return
	}
	select {
	case <-l.stop:
	default:
		close(l.stop)
	}
}

// Done is closed when the current run has ended. Before the first Start it
// returns a closed channel.
func (l *Loop[T]) Done() <-chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.done == nil {
		c := make(chan struct{})
		close(c)
		return c
	}
	return l.done
}

func (l *Loop[T]) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loop[T]) Stats() Stats {
	return Stats{
		Name:      l.cfg.Name,
		State:     l.State(),
		Interval:  l.cfg.Interval.String(),
		Cycles:    l.cycles.Load(),
		Failures:  l.failures.Load(),
		LastError: l.lastErr.Load().(string),
	}
}

func (l *Loop[T]) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer func() {
		l.mu.Lock()
		l.state = Idle
		l.mu.Unlock()
		close(done)
		log.Printf("[poll] %s stopped", l.cfg.Name)
	}()

	for {
		l.cycle(ctx)

		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		timer := time.NewTimer(l.cfg.Interval)
		select {
		case <-stop:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// cycle runs one fetch and its handler. A panic in a handler is contained so
// one bad cycle never ends the loop.
func (l *Loop[T]) cycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			l.failures.Add(1)
			l.lastErr.Store(fmt.Sprintf("panic: %v", r))
			log.Printf("[poll] %s cycle panicked: %v", l.cfg.Name, r)
		}
	}()
	l.cycles.Add(1)

	data, err := l.cfg.Source.Fetch(ctx)
	if err != nil {
		l.failures.Add(1)
		l.lastErr.Store(err.Error())
		log.Printf("[poll] %s cycle failed: %v", l.cfg.Name, err)
		if l.cfg.OnError != nil {
			l.cfg.OnError(err)
		}
		return
	}
	l.cfg.OnData(data)
}
