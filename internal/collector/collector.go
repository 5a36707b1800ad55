package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"CrossoverSentinel/internal/metrics"
	"CrossoverSentinel/internal/model"

	"github.com/shopspring/decimal"
)

const queryLayout = "2006-01-02 15:04"

// Collector fetches candle series with bounded retry and exponential backoff.
type Collector struct {
	Source         HistoricalSource
	Interval       time.Duration
	MaxRetries     int
	RetryDelayBase time.Duration
	TransientCodes []string
	Location       *time.Location
	Metrics        *metrics.Metrics

	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewCollector creates a Collector with the reference retry policy: 3 attempts, 1s base delay,
// AB1004 treated as transient.
func NewCollector(src HistoricalSource, interval time.Duration, loc *time.Location) *Collector {
	if loc == nil {
		loc = time.Local
	}
	return &Collector{
		Source:         src,
		Interval:       interval,
		MaxRetries:     3,
		RetryDelayBase: time.Second,
		TransientCodes: []string{"AB1004"},
		Location:       loc,
		Now:            time.Now,
		Sleep:          sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Collector) isTransient(code string) bool {
	for _, tc := range c.TransientCodes {
		if strings.EqualFold(tc, code) {
			return true
		}
	}
	return false
}

// Fetch returns the candles for [now-lookback, now]. The window is recomputed on every attempt.
// At most MaxRetries remote calls are made. Non-transient API errors are returned immediately.
func (c *Collector) Fetch(ctx context.Context, token, exchange string, lookback time.Duration) (*model.Series, error) {
	intervalName, err := IntervalName(c.Interval)
	if err != nil {
		return nil, err
	}
	maxRetries := c.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		now := c.Now().In(c.Location)
		req := CandleRequest{
			Exchange:    exchange,
			SymbolToken: token,
			Interval:    intervalName,
			FromDate:    now.Add(-lookback).Format(queryLayout),
			ToDate:      now.Format(queryLayout),
		}

		c.Metrics.FetchAttempt()
		resp, err := c.Source.GetCandleData(ctx, req)
		switch {
		case err != nil:
			lastErr = fmt.Errorf("fetch %s:%s: %w", exchange, token, err)
		case resp == nil:
			lastErr = fmt.Errorf("fetch %s:%s: empty response", exchange, token)
		case !resp.Status:
			apiErr := &APIError{Code: resp.ErrorCode, Message: resp.Message}
			if !c.isTransient(resp.ErrorCode) {
				return nil, apiErr
			}
			apiErr.Transient = true
			lastErr = apiErr
		case len(resp.Data) == 0:
			return nil, ErrNoData
		default:
			series, perr := c.parseRows(resp.Data)
			if perr == nil {
				series.Token = token
				series.Exchange = exchange
				series.FetchedAt = now
				return series, nil
			}
			lastErr = fmt.Errorf("parse %s:%s: %w", exchange, token, perr)
		}

		if attempt == maxRetries-1 {
			break
		}
		delay := c.RetryDelayBase * time.Duration(1<<uint(attempt))
		log.Printf("[WARN] fetch %s:%s failed (attempt %d/%d): %v, retrying in %v",
			exchange, token, attempt+1, maxRetries, lastErr, delay)
		if err := c.Sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Collector) parseRows(rows [][]interface{}) (*model.Series, error) {
	s := &model.Series{Bars: make([]model.Candle, 0, len(rows))}
	for i, row := range rows {
		bar, err := c.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		s.Bars = append(s.Bars, bar)
	}
	return s, nil
}

func (c *Collector) parseRow(row []interface{}) (model.Candle, error) {
	if len(row) < 6 {
		return model.Candle{}, fmt.Errorf("expected 6 columns, got %d", len(row))
	}
	ts, ok := row[0].(string)
	if !ok {
		return model.Candle{}, fmt.Errorf("timestamp is %T, want string", row[0])
	}
	t, err := ParseTimestamp(ts, c.Location)
	if err != nil {
		return model.Candle{}, err
	}

	var prices [4]float64
	for j := 0; j < 4; j++ {
		d, err := toDecimal(row[j+1])
		if err != nil {
			return model.Candle{}, fmt.Errorf("column %d: %w", j+1, err)
		}
		prices[j] = d.InexactFloat64()
	}
	vol, err := toDecimal(row[5])
	if err != nil {
		return model.Candle{}, fmt.Errorf("volume: %w", err)
	}

	return model.Candle{
		Time:   t,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: vol.IntPart(),
	}, nil
}

func toDecimal(v interface{}) (decimal.Decimal, error) {
	switch x := v.(type) {
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		return decimal.NewFromString(x)
	case float64:
		return decimal.NewFromFloat(x), nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported numeric type %T", v)
	}
}

var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// ParseTimestamp accepts RFC3339 timestamps and zone-less ones, the latter read in loc.
// The result is expressed in loc.
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.In(loc), nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// Kind labels a fetch failure for logs and metrics.
func Kind(err error) string {
	var apiErr *APIError
	switch {
	case errors.Is(err, ErrNoData):
		return "no_data"
	case errors.As(err, &apiErr) && IsSessionError(err):
		return "session"
	case errors.As(err, &apiErr) && apiErr.Transient:
		return "transient"
	case errors.As(err, &apiErr):
		return "api"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "transport"
	}
}
