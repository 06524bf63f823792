package analytics

import (
	"math"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Forecast is a short-horizon linear projection for one metric.
type Forecast struct {
	Value        float64   `json:"forecast_value"`
	Confidence   float64   `json:"confidence"`
	HoursAhead   int       `json:"hours_ahead"`
	Risk         RiskLevel `json:"risk_level"`
	CurrentValue float64   `json:"current_value"`
	Trend        string    `json:"trend"`
}

// ForecastConditions projects each metric hoursAhead hours out: a 24-sample
// moving average plus the observed hourly drift, with a daily sine
// adjustment for temperature (afternoon peak) and humidity (night peak).
// Metrics with fewer than 24 samples are skipped.
func ForecastConditions(history []reading.Reading, hoursAhead int, now time.Time) map[Metric]Forecast {
	forecasts := make(map[Metric]Forecast, len(Metrics))
	if hoursAhead < 1 {
		hoursAhead = 24
	}

	for _, m := range Metrics {
		vs := seriesOf(m, history)
		if len(vs) < 24 {
			continue
		}

		recent := tail(vs, 24)
		movingAvg := mean(recent)

		hourlyTrend := 0.0
		if len(vs) >= 48 {
			prev := vs[len(vs)-48 : len(vs)-24]
			hourlyTrend = (movingAvg - mean(prev)) / 24
		}

		value := movingAvg + hourlyTrend*float64(hoursAhead)

		futureHour := float64((now.Hour() + hoursAhead) % 24)
		switch m {
		case MetricTemperature:
			value += 2 * math.Sin((futureHour-6)*math.Pi/12)
		case MetricHumidity:
			value -= 3 * math.Sin((futureHour-6)*math.Pi/12)
		}

		confidence := 0.5
		if movingAvg != 0 {
			confidence = math.Max(0.5, 1-stddev(recent)/movingAvg)
		}

		trend := "stable"
		if hourlyTrend > 0 {
			trend = "increasing"
		} else if hourlyTrend < 0 {
			trend = "decreasing"
		}

		forecasts[m] = Forecast{
			Value:        value,
			Confidence:   confidence,
			HoursAhead:   hoursAhead,
			Risk:         AssessRisk(m, value),
			CurrentValue: vs[len(vs)-1],
			Trend:        trend,
		}
	}
	return forecasts
}
