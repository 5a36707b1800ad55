package scanner

import (
	"context"
	"log"
	"time"

	"CrossoverSentinel/internal/notifier"
)

type sessionExpirer interface {
	SessionExpiry() time.Time
}

// Status builds the report shown by the /status command.
func (s *Scanner) Status(ctx context.Context) *notifier.StatusReport {
	now := s.Now()
	r := &notifier.StatusReport{Market: "Market hours gate disabled"}
	if s.Hours != nil {
		r.Market = s.Hours.StatusString(now)
	}
	if se, ok := s.Session.(sessionExpirer); ok {
		r.SessionExpiry = se.SessionExpiry()
	}
	if last := s.LastSummary(); last != nil {
		r.LastScanAt = last.StartedAt
		r.LastScanTook = last.Duration
		r.Symbols = last.Symbols
		r.Alerts = last.Alerts
		r.Suppressed = last.Suppressed
		r.Failures = last.Failures
	}
	snap, err := s.Store.Snapshot(ctx)
	if err != nil {
		log.Printf("[WARN] read alert store: %v", err)
	}
	r.LastAlerts = snap
	return r
}
