// Package synthetic produces plausible warehouse readings when no real
// source is reachable. The shape is deterministic (daily, seasonal and
// weekly-cleaning cycles); only a small uniform noise term is random.
package synthetic

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/beanops/warehouse-sync-go/pkg/reading"
)

// Baselines for a coffee warehouse at rest.
const (
	baseTemperature = 22.0 // °C
	baseHumidity    = 60.0 // % RH
	baseSmallDust   = 15.0 // µg/m³
	baseLargePart   = 10.0 // µg/m³

	dailyTempAmplitude     = 2.5
	dailyHumidityAmplitude = 5.0
	seasonalTempAmplitude  = 1.5

	// Dust builds up between cleanings; the crew resets it weekly.
	dustPerDay   = 1.5
	dustBuildCap = 8.0
)

// Generator builds time-varying synthetic readings. The zero value is not
// usable; construct with New.
type Generator struct {
	rng *rand.Rand
	now func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed pins the noise source, for reproducible series in tests.
func WithSeed(seed int64) Option {
	return func(g *Generator) { g.rng = rand.New(rand.NewSource(seed)) }
}

// WithClock overrides the wall clock.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New returns a generator seeded from the wall clock.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// History returns one reading per hour covering the last `hours` hours,
// oldest first. The newest sample is for "now" (hoursAgo = 0).
func (g *Generator) History(hours int) []reading.Reading {
	if hours < 1 {
		hours = 1
	}
	out := make([]reading.Reading, 0, hours)
	for hoursAgo := hours - 1; hoursAgo >= 0; hoursAgo-- {
		out = append(out, g.at(hoursAgo))
	}
	return out
}

// Current returns a single synthetic reading for now.
func (g *Generator) Current() reading.Reading {
	return g.at(0)
}

func (g *Generator) at(hoursAgo int) reading.Reading {
	ts := g.now().Add(-time.Duration(hoursAgo) * time.Hour)

	dayFactor := math.Sin(2 * math.Pi * float64(ts.Hour()) / 24)
	seasonFactor := math.Sin(2 * math.Pi * float64(ts.Month()) / 12)

	temp := baseTemperature +
		dayFactor*dailyTempAmplitude +
		seasonFactor*seasonalTempAmplitude +
		g.noise(0.8)

	// Humidity moves against temperature over a day.
	hum := baseHumidity - dayFactor*dailyHumidityAmplitude + g.noise(3)

	daysSinceClean := math.Mod(float64(hoursAgo)/24, 7)
	build := math.Min(daysSinceClean*dustPerDay, dustBuildCap)
	dust := baseSmallDust + build + g.noise(2)
	large := dust*0.6 + g.noise(1.5)

	return reading.Reading{
		ExternalID:     fmt.Sprintf("synthetic-%d", ts.Unix()),
		Temperature:    temp,
		Humidity:       hum,
		SmallDust:      dust,
		LargeParticles: large,
		Timestamp:      ts,
	}.Clamp()
}

// noise returns a uniform value in (-amp, +amp).
func (g *Generator) noise(amp float64) float64 {
	return (g.rng.Float64()*2 - 1) * amp
}
