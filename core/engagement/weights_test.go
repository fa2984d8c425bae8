package engagement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPercentages(t *testing.T) {
	tests := []struct {
		name       string
		indicators []string
		want       map[string]float64
	}{
		{name: "none", indicators: nil, want: map[string]float64{}},
		{name: "one", indicators: []string{"login"}, want: map[string]float64{"login": 100}},
		{name: "three", indicators: []string{"login", "forum", "assessment"}, want: map[string]float64{"login": 33, "forum": 33, "assessment": 34}},
		{name: "seven", indicators: []string{"a", "b", "c", "d", "e", "f", "g"}, want: map[string]float64{"a": 14, "b": 14, "c": 14, "d": 14, "e": 14, "f": 14, "g": 16}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DefaultPercentages(tt.indicators)
			assert.Equal(t, tt.want, got)

			if len(tt.indicators) > 0 {
				var sum float64
				for _, pct := range got {
					sum += ToFraction(pct)
				}
				assert.InDelta(t, 1.0, sum, 1e-9)
			}
		})
	}
}

func TestPercentageConversion(t *testing.T) {
	for _, pct := range []float64{0, 7, 33, 70, 100, 12.5} {
		assert.Equal(t, pct, ToPercentage(ToFraction(pct)))
	}
	assert.Equal(t, 0.7, ToFraction(70))
	assert.Equal(t, 70.0, IndicatorWeight{Weight: 0.7}.Percentage())
}
