package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop did not stop")
	}
}

func TestStopDuringSlowRequestAppliesOnlyThatCycle(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{}, 1)
	var fetches, applied atomic.Int32

	src := SourceFunc[int](func(ctx context.Context) (int, error) {
		n := fetches.Add(1)
		entered <- struct{}{}
		<-release
		return int(n), nil
	})
	l, err := New(Config[int]{
		Name:     "slow",
		Source:   src,
		Interval: time.Millisecond,
		OnData:   func(int) { applied.Add(1) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	<-entered
	l.Stop()
	if l.State() != Running {
		t.Fatalf("state=%s while request in flight", l.State())
	}
	close(release)
	waitDone(t, l.Done())

	if fetches.Load() != 1 {
		t.Fatalf("fetches=%d", fetches.Load())
	}
	if applied.Load() != 1 {
		t.Fatalf("applied=%d", applied.Load())
	}
	if l.State() != Idle {
		t.Fatalf("state=%s", l.State())
	}
}

func TestRequestsNeverOverlap(t *testing.T) {
	var inFlight, maxInFlight, calls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := SourceFunc[struct{}](func(ctx context.Context) (struct{}, error) {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		calls.Add(1)
		return struct{}{}, nil
	})
	l, _ := New(Config[struct{}]{Source: src, Interval: time.Millisecond, OnData: func(struct{}) {
		time.Sleep(2 * time.Millisecond)
	}})
	if err := l.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 5 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	l.Stop()
	waitDone(t, l.Done())

	if maxInFlight.Load() != 1 {
		t.Fatalf("max in flight=%d", maxInFlight.Load())
	}
}

func TestErrorsDoNotStopTheLoop(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	var gotErrs []error
	okSeen := make(chan struct{})

	src := SourceFunc[int](func(ctx context.Context) (int, error) {
		if calls.Add(1) <= 2 {
			return 0, errors.New("boom")
		}
		return 7, nil
	})
	l, _ := New(Config[int]{
		Name:     "flaky",
		Source:   src,
		Interval: time.Millisecond,
		OnData: func(v int) {
			if v == 7 {
				select {
				case <-okSeen:
				default:
					close(okSeen)
				}
			}
		},
		OnError: func(err error) {
			mu.Lock()
			gotErrs = append(gotErrs, err)
			mu.Unlock()
		},
	})
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-okSeen:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop never recovered")
	}
	l.Stop()
	waitDone(t, l.Done())

	mu.Lock()
	defer mu.Unlock()
	if len(gotErrs) != 2 {
		t.Fatalf("errors=%v", gotErrs)
	}
	st := l.Stats()
	if st.Failures != 2 || st.LastError != "boom" || st.Cycles < 3 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestHandlerPanicIsContained(t *testing.T) {
	var calls atomic.Int32
	second := make(chan struct{})
	src := SourceFunc[int](func(ctx context.Context) (int, error) { return int(calls.Add(1)), nil })
	l, _ := New(Config[int]{Source: src, Interval: time.Millisecond, OnData: func(n int) {
		if n == 1 {
			panic("bad snapshot")
		}
		if n == 2 {
			close(second)
		}
	}})
	_ = l.Start(context.Background())
	select {
	case <-second:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop died after panic")
	}
	l.Stop()
	waitDone(t, l.Done())
}

func TestStartTwiceAndRestart(t *testing.T) {
	src := SourceFunc[int](func(ctx context.Context) (int, error) { return 1, nil })
	l, _ := New(Config[int]{Source: src, Interval: time.Hour, OnData: func(int) {}})

	waitDone(t, l.Done())
	if l.State() != Idle {
		t.Fatalf("state=%s", l.State())
	}
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Start(context.Background()); err == nil {
		t.Fatalf("second Start should fail")
	}
	l.Stop()
	l.Stop()
	waitDone(t, l.Done())

	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("restart: %v", err)
	}
	l.Stop()
	waitDone(t, l.Done())
}

func TestContextCancelEndsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	src := SourceFunc[int](func(ctx context.Context) (int, error) { return 1, nil })
	l, _ := New(Config[int]{Source: src, Interval: time.Hour, OnData: func(int) {}})
	_ = l.Start(ctx)
	cancel()
	waitDone(t, l.Done())
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Config[int]{OnData: func(int) {}}); err == nil {
		t.Fatalf("expected error without source")
	}
	src := SourceFunc[int](func(ctx context.Context) (int, error) { return 1, nil })
	if _, err := New(Config[int]{Source: src}); err == nil {
		t.Fatalf("expected error without OnData")
	}
}
