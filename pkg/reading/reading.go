// Package reading holds the canonical sensor sample type shared by every
// layer of the warehouse sync service, together with the display bounds and
// quality classification used for coffee storage.
package reading

import (
	"math"
	"strconv"
	"time"
)

// Provenance records which source produced a set of readings.
type Provenance int

const (
	// Live means the readings came straight from the IoT channel API.
	Live Provenance = iota
	// Secondary means a cached or previously persisted feed served them.
	Secondary
	// Synthetic means the local generator produced them.
	Synthetic
)

func (p Provenance) String() string {
	switch p {
	case Live:
		return "live"
	case Secondary:
		return "secondary"
	case Synthetic:
		return "synthetic"
	}
	return "unknown"
}

// Display bounds. No reading ever leaves these ranges on its way to a
// consumer, regardless of what the upstream source reported.
const (
	TemperatureMin = 15.0
	TemperatureMax = 30.0
	HumidityMin    = 35.0
	HumidityMax    = 85.0
	SmallDustMin   = 0.0
	SmallDustMax   = 60.0
	LargePartMin   = 0.0
	LargePartMax   = 40.0
)

// Reading is one normalized sample. All four measurements are always set;
// the fetcher and the generator backfill gaps rather than leave them.
type Reading struct {
	ExternalID     string    `json:"external_id"`
	Temperature    float64   `json:"temperature"`     // °C
	Humidity       float64   `json:"humidity"`        // % RH
	SmallDust      float64   `json:"small_dust"`      // µg/m³, PM2.5-like
	LargeParticles float64   `json:"large_particles"` // µg/m³
	Timestamp      time.Time `json:"timestamp"`
}

// Clamp returns a copy with every measurement forced into the display
// bounds.
func (r Reading) Clamp() Reading {
	r.Temperature = clamp(r.Temperature, TemperatureMin, TemperatureMax)
	r.Humidity = clamp(r.Humidity, HumidityMin, HumidityMax)
	r.SmallDust = clamp(r.SmallDust, SmallDustMin, SmallDustMax)
	r.LargeParticles = clamp(r.LargeParticles, LargePartMin, LargePartMax)
	return r
}

// ClampAll clamps a whole series in place and returns it.
func ClampAll(rs []Reading) []Reading {
	for i := range rs {
		rs[i] = rs[i].Clamp()
	}
	return rs
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ParseOptional parses a raw field value from an external feed. Absent,
// empty, non-numeric and non-finite values all come back as missing so that
// NaN never leaks into classification or charts.
func ParseOptional(raw *string) (float64, bool) {
	if raw == nil || *raw == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(*raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
