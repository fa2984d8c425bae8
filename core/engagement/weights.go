package engagement

import "math"

// DefaultPercentages splits 100% evenly across indicators using integer division.
// The remainder goes to the last indicator so the parts always sum to 100.
func DefaultPercentages(indicators []string) map[string]float64 {
	n := len(indicators)
	pcts := make(map[string]float64, n)
	if n == 0 {
		return pcts
	}

	share := 100 / n
	for i, name := range indicators {
		if i == n-1 {
			pcts[name] = float64(100 - share*(n-1))
		} else {
			pcts[name] = float64(share)
		}
	}
	return pcts
}

// ToFraction converts a 0-100 percentage to the stored 0-1 weight.
func ToFraction(pct float64) float64 { return pct / 100 }

// ToPercentage converts a stored 0-1 weight to the 0-100 percentage shown to users.
// The result is rounded to 9 decimals so that e.g. 0.07 shows as 7 and not 7.000000000000001.
func ToPercentage(weight float64) float64 { return math.Round(weight*100*1e9) / 1e9 }
