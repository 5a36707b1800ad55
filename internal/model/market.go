package model

import "time"

// Candle represents a single OHLCV bar. Time is the bar's open instant.
type Candle struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// Series holds the candles returned for one (token, exchange) pair, oldest first.
type Series struct {
	Token     string
	Exchange  string
	Bars      []Candle
	FetchedAt time.Time
}

// Len returns the number of bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// Last returns the most recent bar. It panics on an empty series.
func (s *Series) Last() Candle {
	return s.Bars[len(s.Bars)-1]
}

// Closes extracts the close column.
func (s *Series) Closes() []float64 {
	closes := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		closes[i] = b.Close
	}
	return closes
}

// WithBars returns a copy of the series header sharing the given bars.
func (s *Series) WithBars(bars []Candle) *Series {
	return &Series{
		Token:     s.Token,
		Exchange:  s.Exchange,
		Bars:      bars,
		FetchedAt: s.FetchedAt,
	}
}

// Symbol is one entry of the symbol registry.
type Symbol struct {
	Name     string `yaml:"name"`
	Token    string `yaml:"token"`
	Exchange string `yaml:"exchange"`
}
