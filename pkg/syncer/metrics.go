package syncer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

type instruments struct {
	temperature    metric.Float64Gauge
	humidity       metric.Float64Gauge
	smallDust      metric.Float64Gauge
	largeParticles metric.Float64Gauge
	intervalSecs   metric.Int64Gauge
	consecErrors   metric.Int64Gauge
	cycles         metric.Int64Counter
}

func newInstruments() instruments {
	meter := otel.Meter("github.com/beanops/warehouse-sync-go/pkg/syncer")

	var in instruments
	in.temperature, _ = meter.Float64Gauge("warehouse.temperature",
		metric.WithUnit("°C"),
		metric.WithDescription("Warehouse temperature in degrees Celsius"),
	)
	in.humidity, _ = meter.Float64Gauge("warehouse.humidity",
		metric.WithUnit("%rH"),
		metric.WithDescription("Warehouse relative humidity as a percentage"),
	)
	in.smallDust, _ = meter.Float64Gauge("warehouse.small_dust",
		metric.WithUnit("ug/m3"),
		metric.WithDescription("Small dust (PM2.5-like) concentration"),
	)
	in.largeParticles, _ = meter.Float64Gauge("warehouse.large_particles",
		metric.WithUnit("ug/m3"),
		metric.WithDescription("Large particle concentration"),
	)
	in.intervalSecs, _ = meter.Int64Gauge("sync.interval_seconds",
		metric.WithUnit("s"),
		metric.WithDescription("Current polling interval"),
	)
	in.consecErrors, _ = meter.Int64Gauge("sync.consecutive_errors",
		metric.WithDescription("Consecutive sync cycle failures"),
	)
	in.cycles, _ = meter.Int64Counter("sync.cycles",
		metric.WithDescription("Completed sync cycles by result and provenance"),
	)
	return in
}

func (in instruments) record(ctx context.Context, r reading.Reading, prov reading.Provenance, failed bool, intervalSecs, errors int64) {
	attrs := metric.WithAttributes(attribute.String("provenance", prov.String()))
	in.temperature.Record(ctx, r.Temperature, attrs)
	in.humidity.Record(ctx, r.Humidity, attrs)
	in.smallDust.Record(ctx, r.SmallDust, attrs)
	in.largeParticles.Record(ctx, r.LargeParticles, attrs)
	in.intervalSecs.Record(ctx, intervalSecs)
	in.consecErrors.Record(ctx, errors)

	result := "ok"
	if failed {
		result = "error"
	}
	in.cycles.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
		attribute.String("provenance", prov.String()),
	))
}
