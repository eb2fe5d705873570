package evdash

import (
	"math"
	"time"
)

const (
	MaxSpeed = 180.0
	MaxSoC   = 100.0
	MaxRPM   = 8000
	MinTemp  = -40
	MaxTemp  = 215
)

type Gear uint8

const (
	GearPark Gear = iota
	GearReverse
	GearNeutral
	GearDrive
	GearUnknown
)

// gears is indexed by the raw bus code.
var gears = []Gear{GearPark, GearReverse, GearNeutral, GearDrive}

func gearFromCode(c uint8) Gear {
	if int(c) >= len(gears) {
		return GearUnknown
	}
	return gears[c]
}

func (g Gear) String() string {
	switch g {
	case GearPark:
		return "P"
	case GearReverse:
		return "R"
	case GearNeutral:
		return "N"
	case GearDrive:
		return "D"
	}
	return "?"
}

type Mode uint8

const (
	ModeEco Mode = iota
	ModeNormal
	ModeSport
	ModeUnknown
)

var modes = []Mode{ModeEco, ModeNormal, ModeSport}

func modeFromCode(c uint8) Mode {
	if int(c) >= len(modes) {
		return ModeUnknown
	}
	return modes[c]
}

func (m Mode) String() string {
	switch m {
	case ModeEco:
		return "ECO"
	case ModeNormal:
		return "NORMAL"
	case ModeSport:
		return "SPORT"
	}
	return "?"
}

// Indicators is the lamp bitfield exactly as it travels on the bus.
type Indicators uint8

const (
	IndicatorLeft Indicators = 1 << iota
	IndicatorRight
	IndicatorLowBeam
	IndicatorHighBeam

	indicatorMask = IndicatorLeft | IndicatorRight | IndicatorLowBeam | IndicatorHighBeam
)

func (i Indicators) Left() bool     { return i&IndicatorLeft != 0 }
func (i Indicators) Right() bool    { return i&IndicatorRight != 0 }
func (i Indicators) LowBeam() bool  { return i&IndicatorLowBeam != 0 }
func (i Indicators) HighBeam() bool { return i&IndicatorHighBeam != 0 }

type Telemetry struct {
	Speed float64
	RPM   int
	SoC   float64

	Gear       Gear
	Mode       Mode
	Indicators Indicators

	BatteryTemp int
	MotorTemp   int

	// UpdatedAt is the time of the last field write, zero if there never was one.
	UpdatedAt time.Time
}

func DefaultTelemetry() Telemetry {
	return Telemetry{
		SoC:         80,
		Gear:        GearPark,
		Mode:        ModeNormal,
		BatteryTemp: 22,
		MotorTemp:   30,
	}
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
