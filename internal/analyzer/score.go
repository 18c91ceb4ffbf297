package analyzer

import (
	"math"

	"github.com/Sla0ui/secheaders/internal/catalog"
)

const (
	InsecurePenalty   = 5.0
	DeprecatedPenalty = 3.0
)

// Score rates an analysis from 0 to 100, rounded to two decimals.
// Each recommended header present earns an equal share of 100; every header
// with insecure values costs InsecurePenalty and every deprecated header
// costs DeprecatedPenalty. A catalog without recommended headers scores 100.
func Score(a Analysis, cat *catalog.Catalog) float64 {
	recommended := cat.AllRecommended()
	if len(recommended) == 0 {
		return 100
	}

	present := 0
	for name := range recommended {
		if _, ok := a.PresentHeaders[name]; ok {
			present++
		}
	}

	score := float64(present) / float64(len(recommended)) * 100
	score -= InsecurePenalty*float64(len(a.InsecureValues)) + DeprecatedPenalty*float64(len(a.DeprecatedHeaders))
	score = math.Min(math.Max(score, 0), 100)

	return math.Round(score*100) / 100
}

// Grade maps a score onto the letter scale used in reports
func Grade(score float64) string {
	switch {
	case score >= 80:
		return "A"
	case score >= 60:
		return "B"
	case score >= 40:
		return "C"
	default:
		return "F"
	}
}
