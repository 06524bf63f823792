package analytics

import (
	"math"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Metric weights for the overall storage score. Dust matters less than the
// climate pair.
var scoreWeights = map[Metric]float64{
	MetricTemperature: 0.4,
	MetricHumidity:    0.4,
	MetricDust:        0.2,
}

// MetricScore is one metric's contribution to the storage score.
type MetricScore struct {
	Score   float64   `json:"score"`
	Status  RiskLevel `json:"status"`
	Current float64   `json:"current_value"`
}

// StorageScore is the weighted 0-100 storage quality score with a letter
// grade.
type StorageScore struct {
	Overall   float64                `json:"overall_score"`
	PerMetric map[Metric]MetricScore `json:"individual_scores"`
	Grade     string                 `json:"grade"`
	Timestamp time.Time              `json:"timestamp"`
}

// ScoreConditions scores the current reading. Inside the optimal range the
// score falls off gently with distance from the ideal value; outside it
// drops ten points per unit past the boundary, from a ceiling of 80.
func ScoreConditions(current reading.Reading, now time.Time) StorageScore {
	per := make(map[Metric]MetricScore, len(Metrics))
	totalScore, totalWeight := 0.0, 0.0

	for _, m := range Metrics {
		v := valueOf(m, current)
		rng := optimalRanges[m]

		var score float64
		if v >= rng.Min && v <= rng.Max {
			halfRange := (rng.Max - rng.Min) / 2
			score = 100 - math.Abs(v-rng.Ideal)/halfRange*20
		} else if v < rng.Min {
			score = math.Max(0, 80-(rng.Min-v)*10)
		} else {
			score = math.Max(0, 80-(v-rng.Max)*10)
		}
		score = math.Max(0, math.Min(100, score))

		per[m] = MetricScore{Score: score, Status: AssessRisk(m, v), Current: v}

		w := scoreWeights[m]
		totalScore += score * w
		totalWeight += w
	}

	overall := 0.0
	if totalWeight > 0 {
		overall = totalScore / totalWeight
	}
	return StorageScore{
		Overall:   math.Max(0, math.Min(100, overall)),
		PerMetric: per,
		Grade:     gradeFor(overall),
		Timestamp: now,
	}
}

func gradeFor(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}
