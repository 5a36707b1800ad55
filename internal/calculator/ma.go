package calculator

import (
	"errors"
	"fmt"
	"math"

	"CrossoverSentinel/internal/model"

	"github.com/shopspring/decimal"
)

// Undefined marks an indicator value that lacks enough history.
var Undefined = math.NaN()

// IsUndefined reports whether v is the insufficient-history sentinel.
func IsUndefined(v float64) bool {
	return math.IsNaN(v)
}

// SMA returns the simple moving average of prices over period, one value per input.
// Values at indices below period-1 are Undefined. The window sum is kept in decimal,
// so windows with the same arithmetic mean yield the same float64.
func SMA(prices []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.New("period must be positive")
	}
	out := make([]float64, len(prices))
	for i := range out {
		out[i] = Undefined
	}
	if len(prices) < period {
		return out, nil
	}

	vals := make([]decimal.Decimal, len(prices))
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return nil, fmt.Errorf("price at index %d is not finite", i)
		}
		vals[i] = decimal.NewFromFloat(p)
	}

	n := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, v := range vals {
		sum = sum.Add(v)
		if i >= period {
			sum = sum.Sub(vals[i-period])
		}
		if i >= period-1 {
			out[i] = sum.Div(n).InexactFloat64()
		}
	}
	return out, nil
}

// MovingAverages holds the fast and slow SMA columns aligned with a series.
type MovingAverages struct {
	Fast []float64
	Slow []float64
}

// CalculatePair computes the fast and slow SMAs over the close column of s.
func CalculatePair(s *model.Series, fast, slow int) (*MovingAverages, error) {
	closes := s.Closes()
	f, err := SMA(closes, fast)
	if err != nil {
		return nil, err
	}
	sl, err := SMA(closes, slow)
	if err != nil {
		return nil, err
	}
	return &MovingAverages{Fast: f, Slow: sl}, nil
}
