package forwarder

import (
	"time"

	"github.com/jd3nn1s/evdash"
)

type Header struct {
	Type uint8
}

const (
	TypeDisplay = 1
)

// Display is the wire form of evdash.DisplayState. All fields are fixed size
// so the packet can be written with encoding/binary.
type Display struct {
	Timestamp int64

	Speed float32
	RPM   float32
	SoC   float32

	Gear       uint8
	Mode       uint8
	Indicators uint8
	Stale      uint8

	BatteryTemp int16
	MotorTemp   int16

	Status [8]byte
}

func NewDisplay(ds evdash.DisplayState, at time.Time) Display {
	d := Display{
		Timestamp:   at.UnixNano(),
		Speed:       float32(ds.Speed),
		RPM:         float32(ds.RPM),
		SoC:         float32(ds.SoC),
		Gear:        uint8(ds.Gear),
		Mode:        uint8(ds.Mode),
		Indicators:  uint8(ds.Indicators),
		BatteryTemp: int16(ds.BatteryTemp),
		MotorTemp:   int16(ds.MotorTemp),
	}
	if ds.Stale {
		d.Stale = 1
	}
	copy(d.Status[:], ds.Status)
	return d
}
