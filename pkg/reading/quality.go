package reading

// FieldStatus classifies a single measurement against the coffee storage
// bands.
type FieldStatus string

const (
	StatusOptimal    FieldStatus = "optimal"
	StatusAcceptable FieldStatus = "acceptable"
	StatusCritical   FieldStatus = "critical"
)

// Band is the overall quality band derived from the penalty score.
type Band string

const (
	BandExcellent Band = "excellent"
	BandGood      Band = "good"
	BandModerate  Band = "moderate"
	BandPoor      Band = "poor"
	BandHazardous Band = "hazardous"
)

// Storage bands for coffee. A value inside the optimal band costs nothing,
// outside optimal costs the outer penalty, and outside acceptable costs an
// additional critical penalty on top (penalties accumulate).
const (
	tempOptimalMin, tempOptimalMax       = 18.0, 24.0
	tempAcceptableMin, tempAcceptableMax = 15.0, 27.0

	humOptimalMin, humOptimalMax       = 50.0, 65.0
	humAcceptableMin, humAcceptableMax = 40.0, 75.0

	dustOptimalMax    = 25.0
	dustAcceptableMax = 40.0

	penaltyOutsideOptimal    = 10.0
	penaltyOutsideAcceptable = 15.0
)

// Quality is the per-field classification plus the aggregate band for one
// reading.
type Quality struct {
	Temperature FieldStatus `json:"temperature"`
	Humidity    FieldStatus `json:"humidity"`
	SmallDust   FieldStatus `json:"small_dust"`
	Score       float64     `json:"score"`
	Band        Band        `json:"band"`
}

// Classify scores a reading against the storage bands. The score starts at
// 100 and loses a fixed penalty per band crossed, per field.
func Classify(r Reading) Quality {
	q := Quality{Score: 100}

	q.Temperature, q.Score = scoreRange(r.Temperature, tempOptimalMin, tempOptimalMax, tempAcceptableMin, tempAcceptableMax, q.Score)
	q.Humidity, q.Score = scoreRange(r.Humidity, humOptimalMin, humOptimalMax, humAcceptableMin, humAcceptableMax, q.Score)
	q.SmallDust, q.Score = scoreRange(r.SmallDust, 0, dustOptimalMax, 0, dustAcceptableMax, q.Score)

	q.Band = bandFor(q.Score)
	return q
}

func scoreRange(v, optLo, optHi, accLo, accHi, score float64) (FieldStatus, float64) {
	if v >= optLo && v <= optHi {
		return StatusOptimal, score
	}
	score -= penaltyOutsideOptimal
	if v >= accLo && v <= accHi {
		return StatusAcceptable, score
	}
	score -= penaltyOutsideAcceptable
	return StatusCritical, score
}

func bandFor(score float64) Band {
	switch {
	case score >= 85:
		return BandExcellent
	case score >= 70:
		return BandGood
	case score >= 50:
		return BandModerate
	case score >= 30:
		return BandPoor
	default:
		return BandHazardous
	}
}
