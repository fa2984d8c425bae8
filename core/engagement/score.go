package engagement

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type (
	// RawScores maps indicator names to one student's raw indicator values.
	RawScores map[string]float64

	// Weights maps indicator names to 0-1 weights.
	Weights map[string]float64

	// Direction orders ranked totals. The zero value is Descending.
	Direction int

	StudentScores struct {
		StudentID int64     `json:"student_id"`
		Raw       RawScores `json:"raw"`
		Total     float64   `json:"total"`
	}
)

const (
	Descending Direction = iota
	Ascending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "desc":
		return Descending, nil
	case "asc":
		return Ascending, nil
	default:
		return Descending, errors.Errorf("invalid sort direction %q", s)
	}
}

// WeightsOf returns the 0-1 weights of stored rows.
func WeightsOf(rows map[string]IndicatorWeight) Weights {
	weights := make(Weights, len(rows))
	for name, row := range rows {
		weights[name] = row.Weight
	}
	return weights
}

// TotalScore is the weighted sum of raw. Indicators without a weight do not count.
func TotalScore(raw RawScores, weights Weights) float64 {
	var total float64
	for name, val := range raw {
		if w, ok := weights[name]; ok {
			total += val * w
		}
	}
	return total
}

// Compare orders a before b (-1) or after b (1) by total score.
// Descending puts larger totals first. Totals are compared exactly, without tolerance,
// so near-equal sums may order differently across platforms.
func Compare(a, b RawScores, weights Weights, dir Direction) int {
	return compareTotals(TotalScore(a, weights), TotalScore(b, weights), dir)
}

// CompareIndicator orders a and b by the raw value of a single indicator.
func CompareIndicator(a, b RawScores, indicator string, dir Direction) int {
	return compareTotals(a[indicator], b[indicator], dir)
}

func compareTotals(a, b float64, dir Direction) int {
	if a == b {
		return 0
	}
	if dir == Ascending {
		if a < b {
			return -1
		}
		return 1
	}
	if a > b {
		return -1
	}
	return 1
}

// Rank sorts students by total score and fills in their totals. Ties keep their input order.
func Rank(students []StudentScores, weights Weights, dir Direction) []StudentScores {
	ranked := make([]StudentScores, len(students))
	copy(ranked, students)
	for i := range ranked {
		ranked[i].Total = TotalScore(ranked[i].Raw, weights)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return compareTotals(ranked[i].Total, ranked[j].Total, dir) < 0
	})
	return ranked
}

// RankByIndicator sorts students by the raw value of one indicator and fills in their totals.
func RankByIndicator(students []StudentScores, weights Weights, indicator string, dir Direction) []StudentScores {
	ranked := make([]StudentScores, len(students))
	copy(ranked, students)
	for i := range ranked {
		ranked[i].Total = TotalScore(ranked[i].Raw, weights)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return CompareIndicator(ranked[i].Raw, ranked[j].Raw, indicator, dir) < 0
	})
	return ranked
}
