package analytics

import (
	"math"
	"testing"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

func series(n int, temp func(i int) float64) []reading.Reading {
	base := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	out := make([]reading.Reading, n)
	for i := range out {
		out[i] = reading.Reading{
			Temperature: temp(i),
			Humidity:    62,
			SmallDust:   18,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
		}
	}
	return out
}

func TestAnalyzeTrendsDirection(t *testing.T) {
	rising := series(48, func(i int) float64 { return 18 + float64(i)*0.1 })
	trends := AnalyzeTrends(rising)

	tt, ok := trends[MetricTemperature]
	if !ok {
		t.Fatal("missing temperature trend")
	}
	if tt.Direction != "increasing" {
		t.Fatalf("expected increasing, got %s", tt.Direction)
	}
	if math.Abs(tt.Slope-0.1) > 0.01 {
		t.Fatalf("expected slope ~0.1, got %f", tt.Slope)
	}
	if tt.ChangePercent <= 0 {
		t.Fatalf("expected positive change percent, got %f", tt.ChangePercent)
	}

	if ht := trends[MetricHumidity]; ht.Direction != "stable" {
		t.Fatalf("constant humidity should be stable, got %s", ht.Direction)
	}
}

func TestAnalyzeTrendsSkipsShortSeries(t *testing.T) {
	if got := AnalyzeTrends(series(1, func(int) float64 { return 20 })); len(got) != 0 {
		t.Fatalf("expected no trends for one sample, got %d", len(got))
	}
}

func TestForecastNeedsADayOfData(t *testing.T) {
	short := series(10, func(int) float64 { return 21 })
	if got := ForecastConditions(short, 24, time.Now()); len(got) != 0 {
		t.Fatalf("expected no forecasts for a short series, got %d", len(got))
	}
}

func TestForecastProjectsTrend(t *testing.T) {
	// Steady climb of 0.1°C per hour for two days.
	rising := series(48, func(i int) float64 { return 18 + float64(i)*0.1 })
	now := time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC)

	f, ok := ForecastConditions(rising, 24, now)[MetricTemperature]
	if !ok {
		t.Fatal("missing temperature forecast")
	}
	if f.Trend != "increasing" {
		t.Fatalf("expected increasing trend, got %s", f.Trend)
	}
	// Moving average ~21.55, drift 0.1/h over 24h, seasonal within ±2.
	if f.Value < 20 || f.Value > 27 {
		t.Fatalf("forecast out of expected band: %.2f", f.Value)
	}
	if f.Confidence < 0.5 || f.Confidence > 1 {
		t.Fatalf("confidence out of range: %.2f", f.Confidence)
	}
}

func TestForecastRiskLevels(t *testing.T) {
	if got := AssessRisk(MetricTemperature, 31); got != RiskCritical {
		t.Fatalf("31°C is critical, got %s", got)
	}
	if got := AssessRisk(MetricTemperature, 28); got != RiskWarning {
		t.Fatalf("28°C is a warning, got %s", got)
	}
	if got := AssessRisk(MetricTemperature, 21); got != RiskOptimal {
		t.Fatalf("21°C is optimal, got %s", got)
	}
	if got := AssessRisk(MetricTemperature, 16); got != RiskSuboptimal {
		t.Fatalf("16°C is suboptimal, got %s", got)
	}
	if got := AssessRisk(MetricHumidity, 82); got != RiskCritical {
		t.Fatalf("82%% humidity is critical, got %s", got)
	}
	if got := AssessRisk(MetricDust, 50); got != RiskWarning {
		t.Fatalf("50 µg/m³ dust is a warning, got %s", got)
	}
}

func TestScoreConditions(t *testing.T) {
	now := time.Now()

	ideal := reading.Reading{Temperature: 21.5, Humidity: 62.5, SmallDust: 20}
	score := ScoreConditions(ideal, now)
	if score.Overall != 100 {
		t.Fatalf("ideal conditions score 100, got %.1f", score.Overall)
	}
	if score.Grade != "A" {
		t.Fatalf("expected grade A, got %s", score.Grade)
	}

	bad := reading.Reading{Temperature: 30, Humidity: 80, SmallDust: 55}
	score = ScoreConditions(bad, now)
	if score.Overall >= 60 {
		t.Fatalf("poor conditions must score below 60, got %.1f", score.Overall)
	}
	if score.PerMetric[MetricTemperature].Status != RiskCritical {
		t.Fatalf("expected critical temperature status, got %s", score.PerMetric[MetricTemperature].Status)
	}
}

func TestScoreFallsWithDistanceFromIdeal(t *testing.T) {
	now := time.Now()
	center := ScoreConditions(reading.Reading{Temperature: 21.5, Humidity: 62.5, SmallDust: 20}, now)
	edge := ScoreConditions(reading.Reading{Temperature: 24.9, Humidity: 62.5, SmallDust: 20}, now)
	if edge.Overall >= center.Overall {
		t.Fatalf("edge of range (%.1f) must score below ideal (%.1f)", edge.Overall, center.Overall)
	}
}
