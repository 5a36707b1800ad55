package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"CrossoverSentinel/internal/alertstore"
	"CrossoverSentinel/internal/collector"
	"CrossoverSentinel/internal/model"
	"CrossoverSentinel/internal/scanner"
	"CrossoverSentinel/internal/strategy"
)

type countingFetcher struct {
	mu    sync.Mutex
	calls int
	err   error
	// errs, when set, supplies the error for each call in order.
	errs []error
}

func (f *countingFetcher) Fetch(context.Context, string, string, time.Duration) (*model.Series, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return nil, collector.ErrNoData
}

func (f *countingFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type stubSession struct{ err error }

func (s stubSession) Login(context.Context) error { return s.err }

type stubNotifier struct{}

func (stubNotifier) Send(context.Context, string) error { return nil }

func newTestScheduler(f scanner.Fetcher, sess collector.Session, interval time.Duration) *Scheduler {
	cfg := scanner.DefaultConfig()
	cfg.Strategy = strategy.Params{FastPeriod: 3, SlowPeriod: 5, ScanDepth: 3}
	sc := scanner.New(f, sess, alertstore.NewMemory(), stubNotifier{},
		[]model.Symbol{{Name: "RELIANCE", Token: "2885", Exchange: "NSE"}}, cfg)
	return NewScheduler(sc, interval)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeContinuous, "continuous": ModeContinuous, "once": ModeOnce, "replay": ModeReplay} {
		got, err := ParseMode(in)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseMode("forever"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRun_Once(t *testing.T) {
	f := &countingFetcher{}
	s := newTestScheduler(f, stubSession{}, time.Minute)
	if err := s.Run(context.Background(), ModeOnce); err != nil {
		t.Fatal(err)
	}
	if f.count() != 1 {
		t.Errorf("expected exactly one scan, got %d fetches", f.count())
	}
}

func TestRun_ContinuousScansImmediatelyAndRepeats(t *testing.T) {
	f := &countingFetcher{}
	s := newTestScheduler(f, stubSession{}, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, ModeContinuous) }()

	deadline := time.After(5 * time.Second)
	for f.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected repeated scans, got %d", f.count())
		case <-time.After(20 * time.Millisecond):
		}
	}
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ContinuousStopsOnFatalAuth(t *testing.T) {
	f := &countingFetcher{err: &collector.APIError{Code: "AG8001", Message: "Invalid Token"}}
	s := newTestScheduler(f, stubSession{err: errors.New("login refused")}, time.Minute)

	err := s.Run(context.Background(), ModeContinuous)
	if !errors.Is(err, scanner.ErrAuthFatal) {
		t.Fatalf("expected ErrAuthFatal, got %v", err)
	}
}

func TestHandleCommand(t *testing.T) {
	f := &countingFetcher{}
	s := newTestScheduler(f, stubSession{}, time.Minute)
	ctx := context.Background()

	if reply := s.HandleCommand(ctx, "/scan"); !strings.HasPrefix(reply, "Scan complete") {
		t.Errorf("unexpected /scan reply %q", reply)
	}
	if f.count() != 1 {
		t.Errorf("expected /scan to run a scan")
	}
	if reply := s.HandleCommand(ctx, "/status"); !strings.Contains(reply, "Symbols: 1") {
		t.Errorf("unexpected /status reply %q", reply)
	}
	if reply := s.HandleCommand(ctx, "/hello"); !strings.Contains(reply, "/status") {
		t.Errorf("expected help text, got %q", reply)
	}
}

func TestHandleCommand_ScanReportsItsOwnPass(t *testing.T) {
	f := &countingFetcher{errs: []error{nil, errors.New("connection reset")}}
	s := newTestScheduler(f, stubSession{}, time.Minute)
	ctx := context.Background()

	if sum := s.scanTask(ctx); sum == nil || sum.Failures != 0 {
		t.Fatalf("unexpected summary %+v", sum)
	}
	last := s.Scanner.LastSummary()

	reply := s.HandleCommand(ctx, "/scan")
	if reply != "Scan complete: alerts=0 suppressed=0 failures=1" {
		t.Errorf("unexpected /scan reply %q", reply)
	}
	if s.Scanner.LastSummary().ID == last.ID {
		t.Error("expected /scan to produce a new summary")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if sum := s.scanTask(cancelled); sum != nil {
		t.Errorf("expected no scan on cancelled context, got %+v", sum)
	}
}
