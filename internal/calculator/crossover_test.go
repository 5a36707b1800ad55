package calculator

import (
	"testing"

	"CrossoverSentinel/internal/model"
)

func TestClassify(t *testing.T) {
	nan := Undefined
	tests := []struct {
		name           string
		fp, sp, fc, sc float64
		want           model.Direction
	}{
		{"equal prior crosses up", 10, 10, 11, 10, model.DirectionBullish},
		{"below to above", 9, 10, 11, 10, model.DirectionBullish},
		{"above to below", 11, 10, 9, 10, model.DirectionBearish},
		{"equal prior crosses down", 10, 10, 9, 10, model.DirectionBearish},
		{"stays above", 11, 10, 12, 10, model.DirectionNone},
		{"stays below", 9, 10, 8, 10, model.DirectionNone},
		{"touches from below", 9, 10, 10, 10, model.DirectionNone},
		{"flat equal", 10, 10, 10, 10, model.DirectionNone},
		{"undefined fast prev", nan, 10, 11, 10, model.DirectionNone},
		{"undefined slow prev", 9, nan, 11, 10, model.DirectionNone},
		{"undefined fast curr", 9, 10, nan, 10, model.DirectionNone},
		{"undefined slow curr", 9, 10, 11, nan, model.DirectionNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.fp, tt.sp, tt.fc, tt.sc); got != tt.want {
				t.Errorf("Classify(%v,%v,%v,%v) = %v, want %v", tt.fp, tt.sp, tt.fc, tt.sc, got, tt.want)
			}
		})
	}
}

func TestClassify_MutuallyExclusive(t *testing.T) {
	values := []float64{8, 9, 10, 11, 12}
	for _, fp := range values {
		for _, sp := range values {
			for _, fc := range values {
				for _, sc := range values {
					bull := fp <= sp && fc > sc
					bear := fp >= sp && fc < sc
					if bull && bear {
						t.Fatalf("both directions for %v %v %v %v", fp, sp, fc, sc)
					}
					got := Classify(fp, sp, fc, sc)
					switch {
					case bull && got != model.DirectionBullish,
						bear && got != model.DirectionBearish,
						!bull && !bear && got != model.DirectionNone:
						t.Errorf("Classify(%v,%v,%v,%v) = %v", fp, sp, fc, sc, got)
					}
				}
			}
		}
	}
}
