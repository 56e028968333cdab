package monitor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

var errConnecting = errors.New("connecting")

// link tracks one unit's connection. While pending, polls skip the unit and
// report it offline with the last connect error.
type link struct {
	pending atomic.Bool

	mu      sync.Mutex
	lastErr error
}

func (l *link) fail(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
}

func (l *link) err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.lastErr == nil {
		return errConnecting
	}
	return l.lastErr
}

// connect opens a unit's client, doubling the wait after each failure from
// RetryMin up to RetryMax, until it succeeds or ctx ends.
func (m *Monitor) connect(ctx context.Context, u Unit, l *link) {
	delay := m.cfg.RetryMin
	for attempt := 1; ; attempt++ {
		err := u.Client.Connect()
		if err == nil {
			l.pending.Store(false)
			log.Printf("[monitor] %s connected via %s (attempt %d)", u.ID, u.Client.Name(), attempt)
			return
		}
		l.fail(fmt.Errorf("connect: %w", err))
		log.Printf("[monitor] %s connect attempt %d failed: %v (retry in %v)", u.ID, attempt, err, delay)

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		delay = min(delay*2, m.cfg.RetryMax)
	}
}
