package strategy

import (
	"fmt"
	"time"

	"CrossoverSentinel/internal/calculator"
	"CrossoverSentinel/internal/model"
)

// Params configures crossover evaluation.
type Params struct {
	FastPeriod int
	SlowPeriod int
	ScanDepth  int
}

// DefaultParams returns the reference MA9/MA20 setup with a depth of 3 pairs.
func DefaultParams() Params {
	return Params{FastPeriod: 9, SlowPeriod: 20, ScanDepth: 3}
}

// Validate checks that the periods and depth are usable.
func (p Params) Validate() error {
	if p.FastPeriod <= 0 || p.SlowPeriod <= 0 {
		return fmt.Errorf("ma periods must be positive (fast=%d slow=%d)", p.FastPeriod, p.SlowPeriod)
	}
	if p.FastPeriod >= p.SlowPeriod {
		return fmt.Errorf("fast period %d must be shorter than slow period %d", p.FastPeriod, p.SlowPeriod)
	}
	if p.ScanDepth <= 0 {
		return fmt.Errorf("scan depth must be positive, got %d", p.ScanDepth)
	}
	return nil
}

// DropFormingBar removes the last bar when its close time (open + interval) is after now.
// The input series is never modified; at most one bar is removed.
func DropFormingBar(s *model.Series, interval time.Duration, now time.Time) (*model.Series, bool) {
	if s.Len() == 0 {
		return s, false
	}
	closeTime := s.Last().Time.Add(interval)
	if now.Before(closeTime) {
		return s.WithBars(s.Bars[:len(s.Bars)-1]), true
	}
	return s, false
}

// Result holds the moving averages and crossovers found for one series.
type Result struct {
	MA     *calculator.MovingAverages
	Events []model.CrossoverEvent
}

// Evaluate computes the MA pair and checks the last ScanDepth adjacent bar pairs,
// oldest to newest, for a crossover.
func Evaluate(symbol string, s *model.Series, p Params) (*Result, error) {
	return evaluate(symbol, s, p, p.ScanDepth)
}

// EvaluateAll checks every adjacent bar pair of s.
func EvaluateAll(symbol string, s *model.Series, p Params) (*Result, error) {
	return evaluate(symbol, s, p, s.Len()-1)
}

func evaluate(symbol string, s *model.Series, p Params, depth int) (*Result, error) {
	ma, err := calculator.CalculatePair(s, p.FastPeriod, p.SlowPeriod)
	if err != nil {
		return nil, fmt.Errorf("moving averages: %w", err)
	}
	res := &Result{MA: ma}

	n := s.Len()
	start := n - depth
	if start < 1 {
		start = 1
	}
	for i := start; i < n; i++ {
		dir := calculator.Classify(ma.Fast[i-1], ma.Slow[i-1], ma.Fast[i], ma.Slow[i])
		if dir == model.DirectionNone {
			continue
		}
		bar := s.Bars[i]
		res.Events = append(res.Events, model.CrossoverEvent{
			Symbol:    symbol,
			Time:      bar.Time,
			Close:     bar.Close,
			Direction: dir,
			FastMA:    ma.Fast[i],
			SlowMA:    ma.Slow[i],
			FastLen:   p.FastPeriod,
			SlowLen:   p.SlowPeriod,
		})
	}
	return res, nil
}

// Latest returns the event with the most recent bar time, or nil.
func Latest(events []model.CrossoverEvent) *model.CrossoverEvent {
	var latest *model.CrossoverEvent
	for i := range events {
		if latest == nil || events[i].Time.After(latest.Time) {
			latest = &events[i]
		}
	}
	return latest
}
