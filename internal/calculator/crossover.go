package calculator

import "CrossoverSentinel/internal/model"

// Classify compares the previous and current fast/slow MA pair.
// Any undefined input yields DirectionNone.
func Classify(fastPrev, slowPrev, fastCurr, slowCurr float64) model.Direction {
	if IsUndefined(fastPrev) || IsUndefined(slowPrev) || IsUndefined(fastCurr) || IsUndefined(slowCurr) {
		return model.DirectionNone
	}
	switch {
	case fastPrev <= slowPrev && fastCurr > slowCurr:
		return model.DirectionBullish
	case fastPrev >= slowPrev && fastCurr < slowCurr:
		return model.DirectionBearish
	default:
		return model.DirectionNone
	}
}
