package scanner

import (
	"context"
	"errors"
	"log"

	"CrossoverSentinel/internal/collector"
	"CrossoverSentinel/internal/model"
	"CrossoverSentinel/internal/notifier"
	"CrossoverSentinel/internal/strategy"

	"github.com/google/uuid"
)

// Replay searches the replay lookback of every symbol for the most recent crossover and
// sends it as a single test notification. The alert store is neither read nor written.
// It returns nil, nil when no crossover is found.
func (s *Scanner) Replay(ctx context.Context) (*model.CrossoverEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lookback := s.Config.ReplayLookback
	if lookback <= 0 {
		lookback = s.Config.Lookback
	}
	log.Printf("[INFO] replay started over %d symbols, lookback %s", len(s.Symbols), lookback)

	st := &scanState{}
	var found []model.CrossoverEvent
	for _, sym := range s.Symbols {
		series, err := s.prepare(ctx, sym, lookback)
		if err != nil {
			if collector.IsSessionError(err) {
				log.Printf("[WARN] %s: session error: %v", sym.Name, err)
				if ferr := s.recoverSession(ctx, st); ferr != nil {
					return nil, ferr
				}
				continue
			}
			if errors.Is(err, collector.ErrNoData) {
				log.Printf("[WARN] %s: no data returned, skipping", sym.Name)
			} else {
				log.Printf("[ERROR] %s: %v", sym.Name, err)
			}
			continue
		}
		if series == nil {
			continue
		}
		res, err := strategy.EvaluateAll(sym.Name, series, s.Config.Strategy)
		if err != nil {
			log.Printf("[ERROR] %s: %v", sym.Name, err)
			continue
		}
		if latest := strategy.Latest(res.Events); latest != nil {
			log.Printf("[INFO] %s: latest %s crossover at %s", sym.Name, latest.Direction, latest.Time.Format("2006-01-02 15:04"))
			found = append(found, *latest)
		}
	}

	latest := strategy.Latest(found)
	if latest == nil {
		log.Println("[INFO] replay found no crossover in the lookback window")
		return nil, nil
	}

	delivered := true
	if err := s.Notifier.Send(ctx, notifier.FormatReplayAlert(latest)); err != nil {
		delivered = false
		s.Metrics.NotifyFailure()
		log.Printf("[ERROR] send replay alert: %v", err)
	} else {
		log.Printf("[INFO] replay alert sent for %s %s at %s", latest.Symbol, latest.Direction, latest.Time.Format("2006-01-02 15:04"))
	}
	s.recordAlert(uuid.New().String(), latest, delivered, true)
	return latest, nil
}
