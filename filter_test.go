package evdash

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBlendConverges(t *testing.T) {
	for _, tc := range []struct {
		start, target float64
	}{
		{0, 120},
		{180, 10},
		{80, 80},
	} {
		display := tc.start
		prevDist := math.Abs(display - tc.target)
		for i := 0; i < 20; i++ {
			next := Blend(display, tc.target, 0.15)
			dist := math.Abs(next - tc.target)
			assert.True(t, dist <= prevDist, "moved away from target at tick %d", i)
			if tc.start < tc.target {
				assert.True(t, next >= display && next <= tc.target, "overshoot at tick %d", i)
			} else {
				assert.True(t, next <= display && next >= tc.target, "overshoot at tick %d", i)
			}
			display, prevDist = next, dist
		}
		// 0.85^20 is about 0.039, within a few percent of the start distance
		assert.True(t, math.Abs(display-tc.target) <= 0.04*math.Abs(tc.start-tc.target)+1e-12)
	}
}

func TestBlendWithinOnePercent(t *testing.T) {
	// k=0.15: the remaining error after n ticks is 0.85^n of the start
	display, target := 0.0, 100.0
	n := 0
	for math.Abs(display-target) >= 0.01*math.Abs(target) {
		display = Blend(display, target, 0.15)
		n++
	}
	assert.True(t, n <= 30, "took %d ticks", n)
	assert.True(t, display < target)
}

func TestFactor(t *testing.T) {
	assert.InDelta(t, 5.0/60, Factor(5, time.Second/60), 1e-9)
	assert.Equal(t, 1.0, Factor(5, time.Second), "clamped to 1")
	assert.Equal(t, 0.0, Factor(5, 0))
	assert.Equal(t, 0.0, Factor(5, -time.Second))
}

func TestFilterAdvance(t *testing.T) {
	f := NewFilter(5, DefaultTelemetry())
	assert.Equal(t, 80.0, f.SoC)

	target := Telemetry{Speed: 100, RPM: 4000, SoC: 40, Gear: GearDrive}
	f.Advance(target, 100*time.Millisecond)
	assert.InDelta(t, 50, f.Speed, 1e-9)
	assert.InDelta(t, 2000, f.RPM, 1e-9)
	assert.InDelta(t, 60, f.SoC, 1e-9)

	// a long stall snaps to the target instead of overshooting
	f.Advance(target, 3*time.Second)
	assert.Equal(t, 100.0, f.Speed)
	assert.Equal(t, 4000.0, f.RPM)
	assert.Equal(t, 40.0, f.SoC)
}

func TestFilterDefaultRate(t *testing.T) {
	assert.Equal(t, DefaultSmoothingRate, NewFilter(0, Telemetry{}).Rate)
}
