package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"CrossoverSentinel/internal/alertstore"
	"CrossoverSentinel/internal/collector"
	"CrossoverSentinel/internal/markethours"
	"CrossoverSentinel/internal/metrics"
	"CrossoverSentinel/internal/model"
	"CrossoverSentinel/internal/notifier"
	"CrossoverSentinel/internal/recorder"
	"CrossoverSentinel/internal/strategy"

	"github.com/google/uuid"
)

// ErrAuthFatal is returned when re-establishing the broker session fails.
// The process cannot recover locally and should exit.
var ErrAuthFatal = errors.New("session re-login failed")

var errSymbolPanic = errors.New("panic while processing symbol")

// Fetcher returns the candle series for one instrument over the trailing lookback.
type Fetcher interface {
	Fetch(ctx context.Context, token, exchange string, lookback time.Duration) (*model.Series, error)
}

// Config holds the scan parameters.
type Config struct {
	Strategy       strategy.Params
	Interval       time.Duration
	Lookback       time.Duration
	ReplayLookback time.Duration
}

// DefaultConfig returns MA9/MA20 over 5-minute bars with 5 days of history.
func DefaultConfig() Config {
	return Config{
		Strategy:       strategy.DefaultParams(),
		Interval:       5 * time.Minute,
		Lookback:       5 * 24 * time.Hour,
		ReplayLookback: 10 * 24 * time.Hour,
	}
}

// Scanner runs one pass over the symbol registry per call to Scan.
// Scans are serialized; symbols are processed in registry order.
type Scanner struct {
	Fetcher  Fetcher
	Session  collector.Session
	Store    alertstore.Store
	Notifier notifier.Notifier
	Recorder recorder.Recorder
	Metrics  *metrics.Metrics
	Hours    *markethours.Window // nil disables the market-hours gate
	Symbols  []model.Symbol
	Config   Config
	Now      func() time.Time

	mu     sync.Mutex
	lastMu sync.RWMutex
	last   *recorder.ScanSummary
}

// New wires a Scanner with a no-op recorder and the wall clock.
func New(f Fetcher, sess collector.Session, store alertstore.Store, n notifier.Notifier, symbols []model.Symbol, cfg Config) *Scanner {
	return &Scanner{
		Fetcher:  f,
		Session:  sess,
		Store:    store,
		Notifier: n,
		Recorder: recorder.NewNoopRecorder(),
		Symbols:  symbols,
		Config:   cfg,
		Now:      time.Now,
	}
}

type symbolOutcome struct {
	alerts     int
	suppressed int
}

// scanState tracks per-pass session recovery.
type scanState struct {
	relogged bool
}

// Scan processes every symbol once. Per-symbol failures are logged and skipped.
// It returns an error wrapping ErrAuthFatal only when a session re-login fails.
func (s *Scanner) Scan(ctx context.Context) error {
	_, err := s.RunScan(ctx)
	return err
}

// RunScan is Scan returning the summary of this pass.
func (s *Scanner) RunScan(ctx context.Context) (*recorder.ScanSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.Now()
	sum := &recorder.ScanSummary{ID: uuid.New().String(), StartedAt: start, Symbols: len(s.Symbols)}

	if s.Hours != nil && !s.Hours.Contains(start) {
		log.Printf("[INFO] scan %s skipped: %s", sum.ID[:8], s.Hours.StatusString(start))
		s.Metrics.ScanSkipped()
		sum.Skipped = true
		return s.finish(sum), nil
	}

	log.Printf("[INFO] scan %s started over %d symbols", sum.ID[:8], len(s.Symbols))
	st := &scanState{}
	for _, sym := range s.Symbols {
		if ctx.Err() != nil {
			log.Printf("[WARN] scan %s interrupted: %v", sum.ID[:8], ctx.Err())
			break
		}
		out, err := s.scanSymbol(ctx, sum.ID, sym)
		sum.Alerts += out.alerts
		sum.Suppressed += out.suppressed
		if err == nil {
			continue
		}
		if errors.Is(err, collector.ErrNoData) {
			log.Printf("[WARN] %s: no data returned, skipping", sym.Name)
			s.Metrics.FetchFailure("no_data")
			continue
		}
		sum.Failures++
		if errors.Is(err, errSymbolPanic) {
			s.Metrics.FetchFailure("panic")
			continue
		}
		s.Metrics.FetchFailure(collector.Kind(err))
		if collector.IsSessionError(err) {
			log.Printf("[WARN] %s: session error: %v", sym.Name, err)
			if ferr := s.recoverSession(ctx, st); ferr != nil {
				return s.finish(sum), ferr
			}
			continue
		}
		log.Printf("[ERROR] %s: %v", sym.Name, err)
	}

	out := s.finish(sum)
	log.Printf("[INFO] scan %s completed in %s: alerts=%d suppressed=%d failures=%d",
		sum.ID[:8], sum.Duration.Round(time.Millisecond), sum.Alerts, sum.Suppressed, sum.Failures)
	return out, nil
}

// recoverSession logs in again at most once per pass.
func (s *Scanner) recoverSession(ctx context.Context, st *scanState) error {
	if st.relogged {
		log.Println("[WARN] session already refreshed during this scan, skipping symbol")
		return nil
	}
	st.relogged = true
	log.Println("[INFO] attempting session re-login")
	if err := s.Session.Login(ctx); err != nil {
		s.Metrics.Relogin(false)
		log.Printf("[ERROR] re-login failed: %v", err)
		return fmt.Errorf("%w: %v", ErrAuthFatal, err)
	}
	s.Metrics.Relogin(true)
	log.Println("[INFO] re-login succeeded")
	return nil
}

// finish records sum as the latest pass and returns a copy of it.
func (s *Scanner) finish(sum *recorder.ScanSummary) *recorder.ScanSummary {
	sum.Duration = s.Now().Sub(sum.StartedAt)
	if !sum.Skipped {
		s.Metrics.ObserveScan(sum.Duration)
	}
	if err := s.Recorder.RecordScan(sum); err != nil {
		log.Printf("[ERROR] record scan: %v", err)
	}
	s.lastMu.Lock()
	s.last = sum
	s.lastMu.Unlock()
	cp := *sum
	return &cp
}

// LastSummary returns the most recent scan summary, or nil before the first scan.
func (s *Scanner) LastSummary() *recorder.ScanSummary {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

// prepare fetches, filters and validates the series for one symbol.
// A nil series with nil error means the symbol was skipped.
func (s *Scanner) prepare(ctx context.Context, sym model.Symbol, lookback time.Duration) (*model.Series, error) {
	series, err := s.Fetcher.Fetch(ctx, sym.Token, sym.Exchange, lookback)
	if err != nil {
		return nil, err
	}
	slow := s.Config.Strategy.SlowPeriod
	if series.Len() < slow {
		log.Printf("[WARN] %s: insufficient history (%d bars, need %d), skipping", sym.Name, series.Len(), slow)
		return nil, nil
	}
	series, dropped := strategy.DropFormingBar(series, s.Config.Interval, s.Now())
	if dropped {
		log.Printf("[INFO] %s: dropped forming bar", sym.Name)
	}
	if series.Len() < slow {
		log.Printf("[WARN] %s: insufficient completed history (%d bars, need %d), skipping", sym.Name, series.Len(), slow)
		return nil, nil
	}
	return series, nil
}

func (s *Scanner) scanSymbol(ctx context.Context, scanID string, sym model.Symbol) (out symbolOutcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ERROR] %s: recovered panic: %v", sym.Name, r)
			err = fmt.Errorf("%w: %v", errSymbolPanic, r)
		}
	}()

	series, err := s.prepare(ctx, sym, s.Config.Lookback)
	if err != nil || series == nil {
		return out, err
	}

	res, err := strategy.Evaluate(sym.Name, series, s.Config.Strategy)
	if err != nil {
		return out, err
	}
	i := series.Len() - 1
	log.Printf("[INFO] %s: %d bars, last %s close=%.2f MA%d=%.2f MA%d=%.2f",
		sym.Name, series.Len(), series.Bars[i].Time.Format("2006-01-02 15:04"), series.Bars[i].Close,
		s.Config.Strategy.FastPeriod, res.MA.Fast[i], s.Config.Strategy.SlowPeriod, res.MA.Slow[i])

	if len(res.Events) == 0 {
		log.Printf("[INFO] %s: no crossover in last %d bars", sym.Name, s.Config.Strategy.ScanDepth)
		return out, nil
	}
	for k := range res.Events {
		s.handleEvent(ctx, scanID, &res.Events[k], &out)
	}
	return out, nil
}

// handleEvent consults the store, notifies and records. The record is written after the
// delivery attempt whether or not it succeeded: undelivered alerts are not repeated.
func (s *Scanner) handleEvent(ctx context.Context, scanID string, evt *model.CrossoverEvent, out *symbolOutcome) {
	ok, err := s.Store.ShouldAlert(ctx, evt.Symbol, evt.Time)
	if err != nil {
		log.Printf("[WARN] %s: alert store unavailable, alerting anyway: %v", evt.Symbol, err)
		ok = true
	}
	if !ok {
		log.Printf("[INFO] %s: duplicate %s alert suppressed for bar %s", evt.Symbol, evt.Direction, evt.Time.Format("2006-01-02 15:04"))
		s.Metrics.AlertSuppressed()
		out.suppressed++
		return
	}

	log.Printf("[INFO] %s: %s crossover at %s close=%.2f", evt.Symbol, evt.Direction, evt.Time.Format("2006-01-02 15:04"), evt.Close)
	delivered := true
	if err := s.Notifier.Send(ctx, notifier.FormatCrossoverAlert(evt)); err != nil {
		delivered = false
		s.Metrics.NotifyFailure()
		log.Printf("[ERROR] %s: send alert: %v", evt.Symbol, err)
	} else {
		s.Metrics.AlertSent(evt.Direction.String())
		out.alerts++
		log.Printf("[INFO] %s: alert sent", evt.Symbol)
	}

	if err := s.Store.Record(ctx, evt.Symbol, evt.Time); err != nil {
		log.Printf("[ERROR] %s: record alert state: %v", evt.Symbol, err)
	}
	s.recordAlert(scanID, evt, delivered, false)
}

func (s *Scanner) recordAlert(scanID string, evt *model.CrossoverEvent, delivered, replay bool) {
	if err := s.Recorder.RecordAlert(&recorder.AlertRecord{
		ScanID:    scanID,
		Symbol:    evt.Symbol,
		Direction: evt.Direction.String(),
		BarTime:   evt.Time,
		Close:     evt.Close,
		FastMA:    evt.FastMA,
		SlowMA:    evt.SlowMA,
		Delivered: delivered,
		Replay:    replay,
	}); err != nil {
		log.Printf("[ERROR] record alert: %v", err)
	}
}
