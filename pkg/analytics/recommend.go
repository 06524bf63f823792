package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Recommendation is one actionable storage adjustment.
type Recommendation struct {
	Category string `json:"category"`
	Priority string `json:"priority"` // urgent, high, medium, low
	Action   string `json:"action"`
	Message  string `json:"message"`
	Impact   string `json:"expected_impact"`
}

var priorityRank = map[string]int{
	"urgent": 0,
	"high":   1,
	"medium": 2,
	"low":    3,
}

const maxRecommendations = 10

// Recommend produces the prioritized recommendation list for the current
// conditions, forecasts and trends. Duplicates (same category+action) are
// dropped, the list is sorted urgent-first and capped.
func Recommend(current reading.Reading, forecasts map[Metric]Forecast, trends map[Metric]Trend, now time.Time) []Recommendation {
	var recs []Recommendation

	recs = append(recs, climateRecommendations(current)...)
	recs = append(recs, forecastRecommendations(forecasts)...)
	recs = append(recs, trendRecommendations(trends)...)
	recs = append(recs, seasonalRecommendations(now)...)

	return prioritize(recs)
}

func climateRecommendations(r reading.Reading) []Recommendation {
	var recs []Recommendation

	tempRng := optimalRanges[MetricTemperature]
	if r.Temperature > tempRng.Max {
		recs = append(recs, Recommendation{
			Category: "temperature",
			Priority: "high",
			Action:   "cooling",
			Message:  fmt.Sprintf("Temperature is %.1f°C, above the optimal range. Increase ventilation or cooling.", r.Temperature),
			Impact:   "Prevent coffee bean deterioration and maintain quality",
		})
	} else if r.Temperature < tempRng.Min {
		recs = append(recs, Recommendation{
			Category: "temperature",
			Priority: "medium",
			Action:   "heating",
			Message:  fmt.Sprintf("Temperature is %.1f°C, below the optimal range. Reduce cooling or add heating.", r.Temperature),
			Impact:   "Keep storage conditions in the preservation band",
		})
	}

	humRng := optimalRanges[MetricHumidity]
	if r.Humidity > humRng.Max {
		recs = append(recs, Recommendation{
			Category: "humidity",
			Priority: "high",
			Action:   "dehumidification",
			Message:  fmt.Sprintf("Humidity is %.1f%%, above the optimal range. Increase dehumidification or ventilation.", r.Humidity),
			Impact:   "Prevent mold growth on stored beans",
		})
	} else if r.Humidity < humRng.Min {
		recs = append(recs, Recommendation{
			Category: "humidity",
			Priority: "medium",
			Action:   "humidification",
			Message:  fmt.Sprintf("Humidity is %.1f%%, below the optimal range. Reduce dehumidification.", r.Humidity),
			Impact:   "Prevent beans from drying out",
		})
	}

	if r.SmallDust > optimalRanges[MetricDust].Max {
		recs = append(recs, Recommendation{
			Category: "air_quality",
			Priority: "high",
			Action:   "air_filtration",
			Message:  fmt.Sprintf("Dust level is %.1f µg/m³, above the optimal range. Improve filtration and schedule cleaning.", r.SmallDust),
			Impact:   "Keep the storage environment clean",
		})
	}

	return recs
}

func forecastRecommendations(forecasts map[Metric]Forecast) []Recommendation {
	var recs []Recommendation
	for _, m := range Metrics {
		f, ok := forecasts[m]
		if !ok {
			continue
		}
		switch f.Risk {
		case RiskCritical:
			recs = append(recs, Recommendation{
				Category: string(m),
				Priority: "urgent",
				Action:   "immediate_intervention",
				Message:  fmt.Sprintf("Forecast shows %s reaching critical levels (%.1f) in %d hours. Act immediately.", m, f.Value, f.HoursAhead),
				Impact:   "Prevent severe storage quality degradation",
			})
		case RiskWarning:
			recs = append(recs, Recommendation{
				Category: string(m),
				Priority: "high",
				Action:   fmt.Sprintf("preventive_%s_adjustment", m),
				Message:  fmt.Sprintf("Forecast shows %s reaching warning levels (%.1f) in %d hours. Adjust within that window.", m, f.Value, f.HoursAhead),
				Impact:   "Head off a warning-level excursion",
			})
		}
	}
	return recs
}

func trendRecommendations(trends map[Metric]Trend) []Recommendation {
	var recs []Recommendation
	for _, m := range Metrics {
		t, ok := trends[m]
		if !ok {
			continue
		}
		if t.Direction == "increasing" && t.ChangePercent > 10 {
			recs = append(recs, Recommendation{
				Category: string(m),
				Priority: "medium",
				Action:   "trend_monitoring",
				Message:  fmt.Sprintf("%s shows an increasing trend (%.1f%% change). Monitor closely.", m, t.ChangePercent),
				Impact:   "Early intervention before the optimal range is violated",
			})
		}
	}
	return recs
}

// seasonalRecommendations mirrors the warehouse's seasonal playbook:
// summer runs warm and humid, winter dry and cool, and night hours allow a
// setback.
func seasonalRecommendations(now time.Time) []Recommendation {
	var recs []Recommendation

	switch now.Month() {
	case time.June, time.July, time.August:
		recs = append(recs, Recommendation{
			Category: "scheduling",
			Priority: "medium",
			Action:   "seasonal_summer_adjustment",
			Message:  "Summer season: expect +2°C and +5% humidity drift; raise ventilation by ~20%.",
			Impact:   "Compensate for summer weather patterns",
		})
	case time.December, time.January, time.February:
		recs = append(recs, Recommendation{
			Category: "scheduling",
			Priority: "medium",
			Action:   "seasonal_winter_adjustment",
			Message:  "Winter season: expect -1°C and -3% humidity drift; reduce ventilation by ~10%.",
			Impact:   "Compensate for winter weather patterns",
		})
	}

	if h := now.Hour(); h >= 22 || h <= 6 {
		recs = append(recs, Recommendation{
			Category: "scheduling",
			Priority: "low",
			Action:   "night_setback",
			Message:  "Night hours: consider setback schedules to cut energy use during low activity.",
			Impact:   "Reduce overnight energy consumption",
		})
	}

	return recs
}

func prioritize(recs []Recommendation) []Recommendation {
	seen := make(map[string]struct{}, len(recs))
	unique := recs[:0]
	for _, r := range recs {
		key := r.Category + "_" + r.Action
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		return priorityRank[unique[i].Priority] < priorityRank[unique[j].Priority]
	})

	if len(unique) > maxRecommendations {
		unique = unique[:maxRecommendations]
	}
	return unique
}
