package reading

import (
	"math"
	"testing"
)

func TestClampBounds(t *testing.T) {
	r := Reading{Temperature: 99, Humidity: -5, SmallDust: 1000, LargeParticles: -1}.Clamp()
	if r.Temperature != TemperatureMax {
		t.Fatalf("temperature not clamped: %.1f", r.Temperature)
	}
	if r.Humidity != HumidityMin {
		t.Fatalf("humidity not clamped: %.1f", r.Humidity)
	}
	if r.SmallDust != SmallDustMax {
		t.Fatalf("small dust not clamped: %.1f", r.SmallDust)
	}
	if r.LargeParticles != LargePartMin {
		t.Fatalf("large particles not clamped: %.1f", r.LargeParticles)
	}
}

func TestClampLeavesInRangeValues(t *testing.T) {
	in := Reading{Temperature: 21.5, Humidity: 62, SmallDust: 18, LargeParticles: 11}
	if got := in.Clamp(); got != in {
		t.Fatalf("in-range reading changed by clamp: %+v", got)
	}
}

func TestParseOptional(t *testing.T) {
	str := func(s string) *string { return &s }

	if _, ok := ParseOptional(nil); ok {
		t.Fatal("nil should be missing")
	}
	if _, ok := ParseOptional(str("")); ok {
		t.Fatal("empty string should be missing")
	}
	if _, ok := ParseOptional(str("not-a-number")); ok {
		t.Fatal("garbage should be missing")
	}
	if _, ok := ParseOptional(str("NaN")); ok {
		t.Fatal("NaN must not leak through")
	}
	if _, ok := ParseOptional(str("+Inf")); ok {
		t.Fatal("Inf must not leak through")
	}

	v, ok := ParseOptional(str("23.75"))
	if !ok || math.Abs(v-23.75) > 1e-9 {
		t.Fatalf("expected 23.75, got %v (ok=%v)", v, ok)
	}
}
