package calculator

import (
	"math"
	"math/rand"
	"testing"

	"CrossoverSentinel/internal/model"
)

func naiveMean(prices []float64) float64 {
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices))
}

func TestSMA_MatchesWindowMean(t *testing.T) {
	prices := []float64{10, 11, 12, 13, 12, 11, 15, 18, 17, 16, 14, 13.5, 12.25}
	for _, period := range []int{1, 3, 5, 9, len(prices)} {
		got, err := SMA(prices, period)
		if err != nil {
			t.Fatalf("period %d: %v", period, err)
		}
		if len(got) != len(prices) {
			t.Fatalf("period %d: expected %d values, got %d", period, len(prices), len(got))
		}
		for i := range prices {
			if i < period-1 {
				if !IsUndefined(got[i]) {
					t.Errorf("period %d index %d: expected undefined, got %v", period, i, got[i])
				}
				continue
			}
			want := naiveMean(prices[i-period+1 : i+1])
			if math.Abs(got[i]-want) > 1e-9 {
				t.Errorf("period %d index %d: expected %v, got %v", period, i, want, got[i])
			}
		}
	}
}

// flatBreakout returns 30 varied closes, 30 closes at one price, then one bar 5 above it.
func flatBreakout(r *rand.Rand) (closes []float64, flat float64) {
	cent := func(v float64) float64 { return math.Round(v*100) / 100 }
	for i := 0; i < 30; i++ {
		closes = append(closes, cent(2700+r.Float64()*200))
	}
	flat = cent(2700 + r.Float64()*200)
	for i := 0; i < 30; i++ {
		closes = append(closes, flat)
	}
	return append(closes, flat+5), flat
}

func TestSMA_FlatWindowsAreExact(t *testing.T) {
	for trial := 0; trial < 500; trial++ {
		closes, flat := flatBreakout(rand.New(rand.NewSource(int64(trial))))
		up := len(closes) - 1
		fast, err := SMA(closes, 9)
		if err != nil {
			t.Fatal(err)
		}
		slow, err := SMA(closes, 20)
		if err != nil {
			t.Fatal(err)
		}
		if fast[up-1] != flat || slow[up-1] != flat {
			t.Fatalf("trial %d: flat %v gave fast=%.15f slow=%.15f", trial, flat, fast[up-1], slow[up-1])
		}
		if got := Classify(fast[up-1], slow[up-1], fast[up], slow[up]); got != model.DirectionBullish {
			t.Fatalf("trial %d: breakout from equal MAs classified %s", trial, got)
		}
	}
}

func TestSMA_FlatAt2816(t *testing.T) {
	var closes []float64
	for i := 0; i < 30; i++ {
		closes = append(closes, 2790.5+float64(i%11)*2.35)
	}
	for i := 0; i < 30; i++ {
		closes = append(closes, 2816.06)
	}
	closes = append(closes, 2821.06)
	up := len(closes) - 1
	fast, _ := SMA(closes, 9)
	slow, _ := SMA(closes, 20)
	if fast[up-1] != slow[up-1] {
		t.Fatalf("flat MAs differ: %.15f vs %.15f", fast[up-1], slow[up-1])
	}
	if got := Classify(fast[up-1], slow[up-1], fast[up], slow[up]); got != model.DirectionBullish {
		t.Errorf("expected BULLISH, got %s", got)
	}
}

func TestSMA_RejectsNonFinite(t *testing.T) {
	if _, err := SMA([]float64{1, math.NaN(), 3}, 2); err == nil {
		t.Fatal("expected error for NaN price")
	}
}

func TestSMA_ShortInputAllUndefined(t *testing.T) {
	got, err := SMA([]float64{1, 2, 3}, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, v := range got {
		if !IsUndefined(v) {
			t.Errorf("index %d: expected undefined, got %v", i, v)
		}
	}
}

func TestSMA_InvalidPeriod(t *testing.T) {
	if _, err := SMA([]float64{1, 2, 3}, 0); err == nil {
		t.Fatal("expected error for zero period")
	}
}

func TestSMA_DoesNotMutateInput(t *testing.T) {
	prices := []float64{5, 6, 7, 8}
	if _, err := SMA(prices, 2); err != nil {
		t.Fatal(err)
	}
	if prices[0] != 5 || prices[3] != 8 {
		t.Errorf("input mutated: %v", prices)
	}
}

func TestCalculatePair(t *testing.T) {
	s := &model.Series{}
	for _, c := range []float64{1, 2, 3, 4, 5, 6} {
		s.Bars = append(s.Bars, model.Candle{Close: c})
	}
	ma, err := CalculatePair(s, 2, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(ma.Fast) != 6 || len(ma.Slow) != 6 {
		t.Fatalf("unexpected lengths %d/%d", len(ma.Fast), len(ma.Slow))
	}
	if ma.Fast[5] != 5.5 {
		t.Errorf("fast[5] = %v, want 5.5", ma.Fast[5])
	}
	if ma.Slow[5] != 4.5 {
		t.Errorf("slow[5] = %v, want 4.5", ma.Slow[5])
	}
	if !IsUndefined(ma.Slow[2]) {
		t.Errorf("slow[2] should be undefined, got %v", ma.Slow[2])
	}
}
