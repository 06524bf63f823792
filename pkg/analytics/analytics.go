// Package analytics derives trends, short-horizon forecasts, a storage
// quality score and rule-based recommendations from a window of readings.
// Everything here is a pure function of its inputs.
package analytics

import (
	"math"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Metric names the three analyzed measurements. Large particles track
// small dust closely enough that they are not analyzed separately.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricHumidity    Metric = "humidity"
	MetricDust        Metric = "dust"
)

// Metrics lists the analyzed metrics in display order.
var Metrics = []Metric{MetricTemperature, MetricHumidity, MetricDust}

// RiskLevel classifies a value or forecast against the storage thresholds.
type RiskLevel string

const (
	RiskOptimal    RiskLevel = "optimal"
	RiskSuboptimal RiskLevel = "suboptimal"
	RiskWarning    RiskLevel = "warning"
	RiskCritical   RiskLevel = "critical"
)

type valueRange struct {
	Min, Max, Ideal float64
}

var optimalRanges = map[Metric]valueRange{
	MetricTemperature: {Min: 18, Max: 25, Ideal: 21.5},
	MetricHumidity:    {Min: 55, Max: 70, Ideal: 62.5},
	MetricDust:        {Min: 0, Max: 40, Ideal: 20},
}

var riskThresholds = map[Metric]struct{ Warning, Critical float64 }{
	MetricTemperature: {Warning: 27, Critical: 30},
	MetricHumidity:    {Warning: 75, Critical: 80},
	MetricDust:        {Warning: 45, Critical: 55},
}

func valueOf(m Metric, r reading.Reading) float64 {
	switch m {
	case MetricTemperature:
		return r.Temperature
	case MetricHumidity:
		return r.Humidity
	default:
		return r.SmallDust
	}
}

func seriesOf(m Metric, rs []reading.Reading) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = valueOf(m, r)
	}
	return out
}

// AssessRisk classifies one value for one metric.
func AssessRisk(m Metric, v float64) RiskLevel {
	t := riskThresholds[m]
	switch {
	case v >= t.Critical:
		return RiskCritical
	case v >= t.Warning:
		return RiskWarning
	}
	rng := optimalRanges[m]
	if v >= rng.Min && v <= rng.Max {
		return RiskOptimal
	}
	return RiskSuboptimal
}

func mean(vs []float64) float64 {
	if len(vs) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vs {
		sum += v
	}
	return sum / float64(len(vs))
}

func stddev(vs []float64) float64 {
	if len(vs) < 2 {
		return 0
	}
	m := mean(vs)
	sum := 0.0
	for _, v := range vs {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vs)-1))
}

// slope fits a least-squares line over the sample index and returns its
// gradient per sample.
func slope(vs []float64) float64 {
	n := float64(len(vs))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range vs {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

// Trend summarizes how one metric moved across the window.
type Trend struct {
	Direction      string  `json:"direction"`
	Slope          float64 `json:"slope"`
	CurrentAverage float64 `json:"current_average"`
	ChangePercent  float64 `json:"change_percent"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	StdDev         float64 `json:"std_deviation"`
	DataPoints     int     `json:"data_points"`
}

// AnalyzeTrends computes per-metric trends over the given history, oldest
// first. Metrics with fewer than two samples are skipped.
func AnalyzeTrends(history []reading.Reading) map[Metric]Trend {
	trends := make(map[Metric]Trend, len(Metrics))

	for _, m := range Metrics {
		vs := seriesOf(m, history)
		if len(vs) < 2 {
			continue
		}

		s := slope(vs)
		direction := "stable"
		if s > 0.01 {
			direction = "increasing"
		} else if s < -0.01 {
			direction = "decreasing"
		}

		currentAvg := mean(tail(vs, 24))
		previousAvg := currentAvg
		if len(vs) >= 48 {
			previousAvg = mean(vs[:24])
		}
		changePct := 0.0
		if previousAvg != 0 {
			changePct = (currentAvg - previousAvg) / previousAvg * 100
		}

		lo, hi := vs[0], vs[0]
		for _, v := range vs {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}

		trends[m] = Trend{
			Direction:      direction,
			Slope:          s,
			CurrentAverage: currentAvg,
			ChangePercent:  changePct,
			Min:            lo,
			Max:            hi,
			StdDev:         stddev(vs),
			DataPoints:     len(vs),
		}
	}
	return trends
}

func tail(vs []float64, n int) []float64 {
	if len(vs) <= n {
		return vs
	}
	return vs[len(vs)-n:]
}
