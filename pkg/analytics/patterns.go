package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

const (
	// Samples further than this many standard deviations from the window
	// mean count as anomalous.
	anomalyZScore = 2.5
	// Anomaly detection needs more than this many samples to say anything.
	minAnomalySamples = 10
)

// AnomalyReport summarizes the out-of-pattern samples for one metric,
// including when they tend to happen.
type AnomalyReport struct {
	Total              int            `json:"total_anomalies"`
	Percentage         float64        `json:"anomaly_percentage"`
	MostCommonHour     int            `json:"most_common_hour"`
	MostCommonDay      string         `json:"most_common_day"`
	MinValue           float64        `json:"anomaly_value_min"`
	MaxValue           float64        `json:"anomaly_value_max"`
	AverageValue       float64        `json:"average_anomaly_value"`
	HourlyDistribution map[int]int    `json:"hourly_distribution"`
	DailyDistribution  map[string]int `json:"daily_distribution"`
}

// DetectAnomalies finds samples whose z-score against the window exceeds the
// anomaly threshold, per metric. Metrics with too few samples, no spread or
// no anomalies are omitted.
func DetectAnomalies(history []reading.Reading) map[Metric]AnomalyReport {
	reports := make(map[Metric]AnomalyReport, len(Metrics))

	for _, m := range Metrics {
		vs := seriesOf(m, history)
		if len(vs) <= minAnomalySamples {
			continue
		}

		avg := mean(vs)
		sd := popStddev(vs, avg)
		if sd == 0 {
			continue
		}

		rep := AnomalyReport{
			MinValue:           math.Inf(1),
			MaxValue:           math.Inf(-1),
			HourlyDistribution: make(map[int]int),
			DailyDistribution:  make(map[string]int),
		}
		sum := 0.0
		for i, v := range vs {
			if math.Abs(v-avg)/sd <= anomalyZScore {
				continue
			}
			rep.Total++
			sum += v
			rep.MinValue = math.Min(rep.MinValue, v)
			rep.MaxValue = math.Max(rep.MaxValue, v)
			ts := history[i].Timestamp
			rep.HourlyDistribution[ts.Hour()]++
			rep.DailyDistribution[ts.Weekday().String()]++
		}
		if rep.Total == 0 {
			continue
		}

		rep.Percentage = float64(rep.Total) / float64(len(vs)) * 100
		rep.AverageValue = sum / float64(rep.Total)
		rep.MostCommonHour = mostCommonHour(rep.HourlyDistribution)
		rep.MostCommonDay = mostCommonDay(rep.DailyDistribution)
		reports[m] = rep
	}
	return reports
}

// popStddev is the population standard deviation; anomaly z-scores use the
// whole window, not a sample of it.
func popStddev(vs []float64, avg float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		d := v - avg
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)))
}

func mostCommonHour(dist map[int]int) int {
	best, bestCount := 0, -1
	for h, n := range dist {
		if n > bestCount || (n == bestCount && h < best) {
			best, bestCount = h, n
		}
	}
	return best
}

func mostCommonDay(dist map[string]int) string {
	best, bestCount := "", -1
	for d, n := range dist {
		if n > bestCount || (n == bestCount && d < best) {
			best, bestCount = d, n
		}
	}
	return best
}

// DailyPattern describes how one metric moves over the hours of a day.
type DailyPattern struct {
	PeakHour             int             `json:"peak_hour"`
	PeakValue            float64         `json:"peak_value"`
	LowHour              int             `json:"low_hour"`
	LowValue             float64         `json:"low_value"`
	DailyRange           float64         `json:"daily_range"`
	VariationCoefficient float64         `json:"variation_coefficient"`
	StableHours          []int           `json:"stable_hours"`
	HourlyAverages       map[int]float64 `json:"hourly_averages"`
}

// AnalyzeDailyPatterns buckets the history by hour of day and reports peak
// and low hours, the day's swing relative to its average, and the hours with
// the least spread. Metrics with fewer than two populated hours are skipped.
func AnalyzeDailyPatterns(history []reading.Reading) map[Metric]DailyPattern {
	patterns := make(map[Metric]DailyPattern, len(Metrics))

	for _, m := range Metrics {
		buckets := make(map[int][]float64)
		for _, r := range history {
			h := r.Timestamp.Hour()
			buckets[h] = append(buckets[h], valueOf(m, r))
		}
		if len(buckets) < 2 {
			continue
		}

		p := DailyPattern{HourlyAverages: make(map[int]float64, len(buckets))}
		hourStds := make(map[int]float64, len(buckets))
		peakVal, lowVal := math.Inf(-1), math.Inf(1)
		sum := 0.0
		for h, vs := range buckets {
			avg := mean(vs)
			p.HourlyAverages[h] = avg
			hourStds[h] = popStddev(vs, avg)
			sum += avg
			if avg > peakVal {
				peakVal, p.PeakHour = avg, h
			}
			if avg < lowVal {
				lowVal, p.LowHour = avg, h
			}
		}
		p.PeakValue, p.LowValue = peakVal, lowVal
		p.DailyRange = peakVal - lowVal
		if overall := sum / float64(len(buckets)); overall != 0 {
			p.VariationCoefficient = p.DailyRange / overall * 100
		}
		p.StableHours = stableHours(hourStds)

		patterns[m] = p
	}
	return patterns
}

// stableHours returns the hours whose spread sits in the lowest quartile,
// sorted.
func stableHours(hourStds map[int]float64) []int {
	stds := make([]float64, 0, len(hourStds))
	for _, sd := range hourStds {
		stds = append(stds, sd)
	}
	sort.Float64s(stds)
	cutoff := stds[(len(stds)-1)/4]

	var hours []int
	for h, sd := range hourStds {
		if sd < cutoff {
			hours = append(hours, h)
		}
	}
	sort.Ints(hours)
	return hours
}

// WeeklyPattern compares weekday and weekend behavior for one metric.
type WeeklyPattern struct {
	WeekdayAverage  float64            `json:"weekday_average"`
	WeekendAverage  float64            `json:"weekend_average"`
	Difference      float64            `json:"difference"`
	PatternStrength float64            `json:"pattern_strength"`
	DailyAverages   map[string]float64 `json:"daily_averages"`
}

// AnalyzeWeeklyPatterns splits the history into weekday and weekend buckets.
// Metrics missing either bucket are skipped.
func AnalyzeWeeklyPatterns(history []reading.Reading) map[Metric]WeeklyPattern {
	patterns := make(map[Metric]WeeklyPattern, len(Metrics))

	for _, m := range Metrics {
		var weekday, weekend []float64
		days := make(map[string][]float64)
		for _, r := range history {
			v := valueOf(m, r)
			wd := r.Timestamp.Weekday()
			days[wd.String()] = append(days[wd.String()], v)
			if wd == time.Saturday || wd == time.Sunday {
				weekend = append(weekend, v)
			} else {
				weekday = append(weekday, v)
			}
		}
		if len(weekday) == 0 || len(weekend) == 0 {
			continue
		}

		p := WeeklyPattern{
			WeekdayAverage: mean(weekday),
			WeekendAverage: mean(weekend),
			DailyAverages:  make(map[string]float64, len(days)),
		}
		p.Difference = p.WeekendAverage - p.WeekdayAverage
		if p.WeekdayAverage != 0 {
			p.PatternStrength = math.Abs(p.Difference) / p.WeekdayAverage
		}
		for d, vs := range days {
			p.DailyAverages[d] = mean(vs)
		}

		patterns[m] = p
	}
	return patterns
}

// Insight is one actionable observation derived from the patterns.
type Insight struct {
	Type           string `json:"type"`
	Metric         Metric `json:"metric"`
	Severity       string `json:"severity"` // high, medium, info
	Message        string `json:"message"`
	Recommendation string `json:"recommendation"`
}

// PatternInsights turns the detected patterns into the operational notes the
// dashboard surfaces alongside the recommendations.
func PatternInsights(daily map[Metric]DailyPattern, weekly map[Metric]WeeklyPattern) []Insight {
	var insights []Insight

	for _, m := range Metrics {
		p, ok := daily[m]
		if !ok {
			continue
		}
		if p.VariationCoefficient > 20 {
			severity := "medium"
			if p.VariationCoefficient > 30 {
				severity = "high"
			}
			insights = append(insights, Insight{
				Type:           "daily_variation",
				Metric:         m,
				Severity:       severity,
				Message:        fmt.Sprintf("%s shows high daily variation (%.1f%%). Peak at %d:00, low at %d:00.", m, p.VariationCoefficient, p.PeakHour, p.LowHour),
				Recommendation: fmt.Sprintf("Adjust HVAC scheduling around the %d:00 peak to reduce variation.", p.PeakHour),
			})
		}
		if len(p.StableHours) >= 6 {
			insights = append(insights, Insight{
				Type:           "stability_window",
				Metric:         m,
				Severity:       "info",
				Message:        fmt.Sprintf("%s is most stable during %d of the day's hours.", m, len(p.StableHours)),
				Recommendation: "Schedule maintenance and inspections during the stable hours.",
			})
		}
	}

	for _, m := range Metrics {
		p, ok := weekly[m]
		if !ok {
			continue
		}
		if math.Abs(p.Difference) > 2 {
			insights = append(insights, Insight{
				Type:           "weekend_effect",
				Metric:         m,
				Severity:       "medium",
				Message:        fmt.Sprintf("%s differs between weekdays and weekends (%.1f difference).", m, p.Difference),
				Recommendation: "Adjust weekend operational parameters to maintain consistency.",
			})
		}
	}

	return insights
}
