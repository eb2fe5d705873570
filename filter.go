package evdash

import "time"

// DefaultSmoothingRate is the blend rate per second; at 60 Hz it gives a
// factor of about 0.08 per tick.
const DefaultSmoothingRate = 5.0

// Factor returns the blend factor for a tick of length dt, in [0, 1].
func Factor(rate float64, dt time.Duration) float64 {
	return clampFloat(rate*dt.Seconds(), 0, 1)
}

// Blend moves display towards target by k. For k in [0, 1] the result never
// overshoots the target.
func Blend(display, target, k float64) float64 {
	return display*(1-k) + target*k
}

// Filter smooths the numeric telemetry fields. Discrete fields have no filter
// state.
type Filter struct {
	Rate float64

	Speed float64
	RPM   float64
	SoC   float64
}

func NewFilter(rate float64, initial Telemetry) *Filter {
	if rate <= 0 {
		rate = DefaultSmoothingRate
	}
	return &Filter{
		Rate:  rate,
		Speed: initial.Speed,
		RPM:   float64(initial.RPM),
		SoC:   initial.SoC,
	}
}

func (f *Filter) Advance(target Telemetry, dt time.Duration) {
	k := Factor(f.Rate, dt)
	f.Speed = Blend(f.Speed, target.Speed, k)
	f.RPM = Blend(f.RPM, float64(target.RPM), k)
	f.SoC = Blend(f.SoC, target.SoC, k)
}
