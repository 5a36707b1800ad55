package model

import "time"

// Direction classifies a moving-average transition between two adjacent bars.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionBullish
	DirectionBearish
)

func (d Direction) String() string {
	switch d {
	case DirectionBullish:
		return "BULLISH"
	case DirectionBearish:
		return "BEARISH"
	default:
		return "NONE"
	}
}

// CrossoverEvent is a confirmed crossover on a completed bar.
type CrossoverEvent struct {
	Symbol    string
	Time      time.Time
	Close     float64
	Direction Direction
	FastMA    float64
	SlowMA    float64
	FastLen   int
	SlowLen   int
}
