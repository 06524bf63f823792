package analytics

import (
	"testing"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// daytime spring timestamp, outside every seasonal and night rule
var quietHour = time.Date(2026, time.April, 15, 14, 0, 0, 0, time.UTC)

func TestRecommendQuietWhenOptimal(t *testing.T) {
	current := reading.Reading{Temperature: 21.5, Humidity: 62, SmallDust: 15}
	recs := Recommend(current, nil, nil, quietHour)
	if len(recs) != 0 {
		t.Fatalf("optimal conditions need no recommendations, got %+v", recs)
	}
}

func TestRecommendClimateRules(t *testing.T) {
	current := reading.Reading{Temperature: 27, Humidity: 72, SmallDust: 45}
	recs := Recommend(current, nil, nil, quietHour)

	actions := map[string]string{}
	for _, r := range recs {
		actions[r.Action] = r.Priority
	}
	if actions["cooling"] != "high" {
		t.Fatalf("expected high-priority cooling, got %+v", recs)
	}
	if actions["dehumidification"] != "high" {
		t.Fatalf("expected high-priority dehumidification, got %+v", recs)
	}
	if actions["air_filtration"] != "high" {
		t.Fatalf("expected high-priority air filtration, got %+v", recs)
	}
}

func TestRecommendUrgentForecastComesFirst(t *testing.T) {
	current := reading.Reading{Temperature: 26, Humidity: 62, SmallDust: 15}
	forecasts := map[Metric]Forecast{
		MetricTemperature: {Value: 31, Risk: RiskCritical, HoursAhead: 12},
	}
	recs := Recommend(current, forecasts, nil, quietHour)
	if len(recs) == 0 {
		t.Fatal("expected recommendations")
	}
	if recs[0].Priority != "urgent" || recs[0].Action != "immediate_intervention" {
		t.Fatalf("urgent forecast must sort first, got %+v", recs[0])
	}
}

func TestRecommendDeduplicates(t *testing.T) {
	current := reading.Reading{Temperature: 21.5, Humidity: 62, SmallDust: 15}
	trends := map[Metric]Trend{
		MetricTemperature: {Direction: "increasing", ChangePercent: 15},
	}
	recs := Recommend(current, nil, trends, quietHour)

	count := 0
	for _, r := range recs {
		if r.Action == "trend_monitoring" && r.Category == string(MetricTemperature) {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("expected exactly one trend recommendation, got %d", count)
	}
}

func TestRecommendCapped(t *testing.T) {
	current := reading.Reading{Temperature: 29, Humidity: 80, SmallDust: 50}
	forecasts := map[Metric]Forecast{
		MetricTemperature: {Value: 31, Risk: RiskCritical, HoursAhead: 6},
		MetricHumidity:    {Value: 82, Risk: RiskCritical, HoursAhead: 6},
		MetricDust:        {Value: 58, Risk: RiskCritical, HoursAhead: 6},
	}
	trends := map[Metric]Trend{
		MetricTemperature: {Direction: "increasing", ChangePercent: 20},
		MetricHumidity:    {Direction: "increasing", ChangePercent: 20},
		MetricDust:        {Direction: "increasing", ChangePercent: 20},
	}
	night := time.Date(2026, time.July, 20, 23, 0, 0, 0, time.UTC)

	recs := Recommend(current, forecasts, trends, night)
	if len(recs) > maxRecommendations {
		t.Fatalf("recommendations not capped: %d", len(recs))
	}
	for i := 1; i < len(recs); i++ {
		if priorityRank[recs[i-1].Priority] > priorityRank[recs[i].Priority] {
			t.Fatalf("recommendations out of priority order at %d: %+v", i, recs)
		}
	}
}

func TestSeasonalRecommendations(t *testing.T) {
	summer := time.Date(2026, time.July, 10, 12, 0, 0, 0, time.UTC)
	recs := Recommend(reading.Reading{Temperature: 21.5, Humidity: 62, SmallDust: 15}, nil, nil, summer)

	found := false
	for _, r := range recs {
		if r.Action == "seasonal_summer_adjustment" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a summer adjustment recommendation, got %+v", recs)
	}
}
